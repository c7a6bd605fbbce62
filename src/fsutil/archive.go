package fsutil

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalArchive keeps archived files under a directory on local disk. It stands
// in for object storage when none is configured.
type LocalArchive struct {
	dir string
}

func NewLocalArchive(dir string) (*LocalArchive, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &LocalArchive{dir: dir}, nil
}

func (a *LocalArchive) path(key string) string {
	return filepath.Join(a.dir, filepath.Base(key))
}

func (a *LocalArchive) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	tmp, err := os.CreateTemp(a.dir, ".put-*")
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write archive file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close archive file: %w", err)
	}
	if err := os.Rename(tmp.Name(), a.path(key)); err != nil {
		return fmt.Errorf("failed to store archive file: %w", err)
	}
	return nil
}

func (a *LocalArchive) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(a.path(key))
	if err != nil {
		return nil, fmt.Errorf("failed to open archive file: %w", err)
	}
	return f, nil
}

func (a *LocalArchive) Delete(ctx context.Context, key string) error {
	err := os.Remove(a.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete archive file: %w", err)
	}
	return nil
}
