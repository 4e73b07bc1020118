package editor

import (
	"context"
	"os"
	"path/filepath"
)

// FileStore edits a spec kept in a local file. Document ids are ignored and
// Reindex does nothing.
type FileStore struct {
	Path string
}

func (f FileStore) GetSpec(ctx context.Context, _ int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// UpdateSpec replaces the file through a temporary file in the same
// directory, keeping the original permissions when the file exists.
func (f FileStore) UpdateSpec(ctx context.Context, _ int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	mode := os.FileMode(0o644)
	if fi, err := os.Stat(f.Path); err == nil {
		mode = fi.Mode().Perm()
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.Path), ".spec-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.Path)
}

func (FileStore) Reindex(context.Context, int64) error { return nil }
