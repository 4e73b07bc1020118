package editor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/Duongo16/vtm-apidocs/internal/openapi"
)

type fakeStore struct {
	mu         sync.Mutex
	specs      map[int64]string
	gate       map[int64]chan struct{}
	started    chan int64
	updateErr  error
	reindexErr error
	saved      map[int64]string
	reindexed  []int64
}

func newFakeStore(specs map[int64]string) *fakeStore {
	return &fakeStore{specs: specs, gate: map[int64]chan struct{}{}, started: make(chan int64, 8), saved: map[int64]string{}}
}

func (f *fakeStore) GetSpec(ctx context.Context, id int64) (string, error) {
	f.mu.Lock()
	gate := f.gate[id]
	text, ok := f.specs[id]
	f.mu.Unlock()
	f.started <- id
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if !ok {
		return "", errors.New("not found")
	}
	return text, nil
}

func (f *fakeStore) UpdateSpec(_ context.Context, id int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.saved[id] = text
	return nil
}

func (f *fakeStore) Reindex(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reindexErr != nil {
		return f.reindexErr
	}
	f.reindexed = append(f.reindexed, id)
	return nil
}

const petsSpec = `{"openapi":"3.0.3","info":{"title":"Pets","version":"1.0.0"},"paths":{"/pets":{"get":{"summary":"List"}}},"components":{},"servers":[],"tags":[]}`

func openSession(t *testing.T, store Store, id int64) *Session {
	t.Helper()
	s := New(store, nil)
	if err := s.Open(context.Background(), id); err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestSessionLifecycle(t *testing.T) {
	store := newFakeStore(map[int64]string{1: petsSpec})
	s := New(store, nil)
	if s.State() != Unloaded {
		t.Fatalf("state = %s", s.State())
	}
	if err := s.Apply(func(d *openapi.Map) *openapi.Map { return d }); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}
	if err := s.Open(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if s.State() != Clean || s.Text() != openapi.Text(s.Doc()) {
		t.Fatalf("after open: state=%s", s.State())
	}

	err := s.Apply(func(d *openapi.Map) *openapi.Map {
		return openapi.AddOperation(d, "/pets", "post")
	})
	if err != nil {
		t.Fatal(err)
	}
	if s.State() != Dirty {
		t.Fatalf("state = %s, want dirty", s.State())
	}

	if err := s.Save(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.State() != Clean {
		t.Fatalf("state after save = %s", s.State())
	}
	if store.saved[1] != s.Text() {
		t.Fatalf("saved text differs from editor text")
	}
	if diff := cmp.Diff([]int64{1}, store.reindexed); diff != "" {
		t.Fatalf("reindexed (-want +got):\n%s", diff)
	}
}

func TestSessionEditBackToLoadedIsClean(t *testing.T) {
	s := openSession(t, newFakeStore(map[int64]string{1: petsSpec}), 1)
	_ = s.Apply(func(d *openapi.Map) *openapi.Map { return openapi.SetInfoField(d, "title", "Other") })
	if !s.Dirty() {
		t.Fatalf("expected dirty")
	}
	_ = s.Apply(func(d *openapi.Map) *openapi.Map { return openapi.SetInfoField(d, "title", "Pets") })
	if s.State() != Clean {
		t.Fatalf("state = %s, want clean", s.State())
	}
}

func TestSessionSaveFailureKeepsEdits(t *testing.T) {
	store := newFakeStore(map[int64]string{1: petsSpec})
	s := openSession(t, store, 1)
	_ = s.Apply(func(d *openapi.Map) *openapi.Map { return openapi.DeleteOperation(d, "/pets", "get") })
	edited := s.Text()

	store.updateErr = errors.New("boom")
	err := s.Save(context.Background())
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected save error, got %v", err)
	}
	if s.State() != Dirty || s.Text() != edited {
		t.Fatalf("edits lost: state=%s", s.State())
	}
	if len(store.reindexed) != 0 {
		t.Fatalf("reindex must not run after a failed save")
	}

	store.updateErr = nil
	if err := s.Save(context.Background()); err != nil {
		t.Fatal(err)
	}
	if store.saved[1] != edited {
		t.Fatalf("retry saved the wrong text")
	}
}

func TestSessionReindexFailure(t *testing.T) {
	store := newFakeStore(map[int64]string{1: petsSpec})
	store.reindexErr = errors.New("index down")
	s := openSession(t, store, 1)
	_ = s.Apply(func(d *openapi.Map) *openapi.Map { return openapi.SetInfoField(d, "version", "1.1.0") })
	err := s.Save(context.Background())
	if err == nil || !strings.Contains(err.Error(), "reindex") {
		t.Fatalf("expected reindex error, got %v", err)
	}
	if s.State() != Clean {
		t.Fatalf("spec was saved, state = %s", s.State())
	}
}

func TestSessionRawMode(t *testing.T) {
	raw := "openapi: 3.0.3\ninfo:\n  title: Y\n"
	s := openSession(t, newFakeStore(map[int64]string{1: raw}), 1)
	if s.Doc() != nil {
		t.Fatalf("YAML must open in raw mode")
	}
	var perr *openapi.ParseError
	if !errors.As(s.ParseErr(), &perr) {
		t.Fatalf("expected ParseError, got %v", s.ParseErr())
	}
	if err := s.Apply(func(d *openapi.Map) *openapi.Map { return d }); !errors.Is(err, ErrRawMode) {
		t.Fatalf("expected ErrRawMode, got %v", err)
	}
	issues := s.Issues()
	if len(issues) != 1 || issues[0].Severity != openapi.SeverityError {
		t.Fatalf("issues = %v", issues)
	}

	if err := s.SetText(petsSpec); err != nil {
		t.Fatal(err)
	}
	if s.Doc() == nil || !s.Dirty() {
		t.Fatalf("valid text must leave raw mode and be dirty")
	}
	if len(s.Issues()) != 0 {
		t.Fatalf("issues = %v", s.Issues())
	}

	if err := s.Discard(); err != nil {
		t.Fatal(err)
	}
	if s.Text() != raw || s.State() != Clean {
		t.Fatalf("discard did not restore loaded text")
	}
}

func TestSessionOpenShapesDocument(t *testing.T) {
	s := openSession(t, newFakeStore(map[int64]string{1: `{"paths":{}}`}), 1)
	doc := s.Doc()
	for _, k := range []string{"openapi", "info", "paths", "components", "servers", "tags"} {
		if !doc.Has(k) {
			t.Fatalf("missing %s after open", k)
		}
	}
	if s.State() != Clean {
		t.Fatalf("shaping on open must not make the session dirty")
	}
}

func TestSessionLastRequestWins(t *testing.T) {
	store := newFakeStore(map[int64]string{1: petsSpec, 2: `{"openapi":"3.0.3","paths":{}}`})
	store.gate[1] = make(chan struct{})
	s := New(store, nil)

	firstErr := make(chan error, 1)
	go func() { firstErr <- s.Open(context.Background(), 1) }()
	select {
	case <-store.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("first open never reached the store")
	}

	if err := s.Open(context.Background(), 2); err != nil {
		t.Fatal(err)
	}
	close(store.gate[1])

	select {
	case err := <-firstErr:
		if !errors.Is(err, ErrSuperseded) {
			t.Fatalf("first open: expected ErrSuperseded, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("first open did not return")
	}
	if s.ID() != 2 || s.Doc().Map("info").String("title") != "Untitled API" {
		t.Fatalf("stale response overwrote the active document: id=%d", s.ID())
	}
	if s.State() != Clean {
		t.Fatalf("state = %s", s.State())
	}
}

func TestSessionOpenFailure(t *testing.T) {
	s := New(newFakeStore(nil), nil)
	if err := s.Open(context.Background(), 9); err == nil {
		t.Fatalf("expected error")
	}
	if s.State() != Unloaded {
		t.Fatalf("state = %s", s.State())
	}
	if err := s.Save(context.Background()); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spec.json")
	if err := os.WriteFile(path, []byte(`{"paths":{"u002fa":{"get":{}}}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	s := openSession(t, FileStore{Path: path}, 0)
	_ = s.Apply(openapi.RepairKeys)
	if err := s.Save(context.Background()); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"/a"`) {
		t.Fatalf("file not rewritten:\n%s", data)
	}
	fi, _ := os.Stat(path)
	if fi.Mode().Perm() != 0o600 {
		t.Fatalf("mode = %v", fi.Mode().Perm())
	}
}
