package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/Duongo16/vtm-apidocs/internal/openapi"
)

var (
	ErrNotLoaded      = errors.New("no document loaded")
	ErrRawMode        = errors.New("spec text is not valid JSON; fix the text before using structured edits")
	ErrSaveInProgress = errors.New("a save is already in progress")
	ErrSuperseded     = errors.New("superseded by a newer document selection")
)

// Store is where specs are loaded from and saved to.
type Store interface {
	GetSpec(ctx context.Context, id int64) (string, error)
	UpdateSpec(ctx context.Context, id int64, text string) error
	Reindex(ctx context.Context, id int64) error
}

type State int

const (
	Unloaded State = iota
	Loading
	Clean
	Dirty
	Saving
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Clean:
		return "clean"
	case Dirty:
		return "dirty"
	case Saving:
		return "saving"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Session holds the one document being edited.
//
// Open follows last-request-wins: each call supersedes the previous one, and
// a load that finishes after a newer Open started is dropped. Edits never
// touch the store; only Save does, and a failed Save keeps the edited text.
type Session struct {
	store  Store
	logger *slog.Logger

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	id      int64
	state   State
	loaded  string
	text    string
	current openapi.Normalized
}

func New(store Store, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Session{store: store, logger: logger}
}

// Open loads document id, replacing whatever was open.
func (s *Session) Open(ctx context.Context, id int64) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	s.cancel = cancel
	s.id = id
	s.state = Loading
	s.mu.Unlock()

	raw, err := s.store.GetSpec(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		s.logger.Debug("dropping stale spec response", "id", id, "current", s.id)
		return ErrSuperseded
	}
	s.cancel = nil
	if err != nil {
		s.state = Unloaded
		return fmt.Errorf("load spec %d: %w", id, err)
	}

	n := openapi.Normalize(raw)
	if n.Doc != nil {
		n.Doc = openapi.EnsureShape(n.Doc)
		n.Text = openapi.Text(n.Doc)
	}
	if n.Repaired {
		s.logger.Debug("repaired bare unicode escapes", "id", id)
	}
	s.current = n
	s.loaded = n.Text
	s.text = n.Text
	s.state = Clean
	return nil
}

// Apply runs a structured edit on the current document.
func (s *Session) Apply(edit func(doc *openapi.Map) *openapi.Map) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	if s.current.Doc == nil {
		return ErrRawMode
	}
	next := edit(s.current.Doc)
	if next == nil || next == s.current.Doc {
		return nil
	}
	text := openapi.Text(next)
	s.current = openapi.Normalized{Doc: next, Text: text, Format: openapi.FormatJSON}
	s.text = text
	s.markLocked()
	return nil
}

// SetText replaces the text as typed. It is parsed again so that structured
// edits become available once the text is valid JSON.
func (s *Session) SetText(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	s.current = openapi.Normalize(text)
	s.text = text
	s.markLocked()
	return nil
}

// Discard drops unsaved edits.
func (s *Session) Discard() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	s.current = openapi.Normalize(s.loaded)
	s.text = s.loaded
	s.state = Clean
	return nil
}

// Save writes the current text and asks for a reindex. On failure the
// session goes back to Dirty with the edited text intact.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case Saving:
		s.mu.Unlock()
		return ErrSaveInProgress
	case Unloaded, Loading:
		s.mu.Unlock()
		return ErrNotLoaded
	}
	gen, id, text := s.gen, s.id, s.text
	prev := s.state
	s.state = Saving
	s.mu.Unlock()

	err := s.store.UpdateSpec(ctx, id, text)
	saved := err == nil
	if saved {
		if rerr := s.store.Reindex(ctx, id); rerr != nil {
			err = fmt.Errorf("spec saved but reindex failed: %w", rerr)
		} else {
			s.logger.Debug("reindex triggered", "id", id)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return err
	}
	switch {
	case saved:
		s.loaded = text
		s.state = Clean
	case prev == Clean:
		s.state = Clean
	default:
		s.state = Dirty
	}
	if err != nil && !saved {
		return fmt.Errorf("save spec %d: %w", id, err)
	}
	return err
}

func (s *Session) editableLocked() error {
	switch s.state {
	case Unloaded, Loading:
		return ErrNotLoaded
	case Saving:
		return ErrSaveInProgress
	}
	return nil
}

func (s *Session) markLocked() {
	if s.text == s.loaded {
		s.state = Clean
	} else {
		s.state = Dirty
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) ID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Text is the current editor text.
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// Doc is the current document, or nil in raw text mode.
func (s *Session) Doc() *openapi.Map {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Doc
}

// ParseErr is why the current text has no document, if it has none.
func (s *Session) ParseErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Err
}

func (s *Session) Dirty() bool {
	return s.State() == Dirty
}

// Issues runs the shallow checks on the current text.
func (s *Session) Issues() []openapi.Issue {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Unloaded || s.state == Loading {
		return nil
	}
	if s.current.Doc == nil {
		msg := "spec is not valid JSON"
		if s.current.Err != nil {
			msg = s.current.Err.Error()
		}
		return []openapi.Issue{{Severity: openapi.SeverityError, Message: msg}}
	}
	return openapi.Validate(s.current.Doc)
}
