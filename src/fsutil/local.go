package fsutil

import (
	"errors"
	"fmt"
	"io"
	"os"

	"pdfqa/src/log"
)

// LocalFileStore implements FileStore using the local filesystem
type LocalFileStore struct {
	tempDir string // empty means os.TempDir()
}

// NewLocalFileStore creates a new LocalFileStore rooted at tempDir for temporary files
func NewLocalFileStore(tempDir string) FileStore {
	return &LocalFileStore{tempDir: tempDir}
}

func (fs *LocalFileStore) WithTempFile(r io.Reader, pattern string, fn func(path string) error) error {
	if fs.tempDir != "" {
		if err := fs.MakeDirectory(fs.tempDir); err != nil {
			return fmt.Errorf("failed to create temp directory: %w", err)
		}
	}

	f, err := os.CreateTemp(fs.tempDir, pattern)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	path := f.Name()
	defer func() {
		if err := fs.Remove(path); err != nil {
			log.Error(err, "failed to remove temp file", "path", path)
		}
	}()

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	return fn(path)
}

func (fs *LocalFileStore) MakeDirectory(path string) error {
	return os.MkdirAll(path, 0755)
}

func (fs *LocalFileStore) Remove(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
