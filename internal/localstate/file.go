package localstate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// File stores each namespace as <dir>/<namespace>.json.
type File struct {
	dir string
}

// NewFile returns a file backend rooted at dir, creating it if needed.
func NewFile(dir string) (*File, error) {
	if dir == "" {
		return nil, errors.New("local state directory required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create local state dir: %w", err)
	}
	return &File{dir: dir}, nil
}

func (f *File) path(namespace string) string {
	return filepath.Join(f.dir, namespace+".json")
}

func (f *File) Load(_ context.Context, namespace string) ([]byte, error) {
	data, err := os.ReadFile(f.path(namespace))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

// Save writes to a temp file in the same directory and renames it over the
// previous record, so readers never observe a partial snapshot.
func (f *File) Save(_ context.Context, namespace string, data []byte) error {
	tmp, err := os.CreateTemp(f.dir, namespace+".*.tmp")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path(namespace))
}

func (f *File) Remove(_ context.Context, namespace string) error {
	err := os.Remove(f.path(namespace))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	return err
}
