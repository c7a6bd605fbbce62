package fsutil

import "io"

// FileStore provides an interface for file system operations
type FileStore interface {
	// WithTempFile copies r into a fresh temporary file, calls fn with its path
	// and removes the file afterwards, whatever fn returns.
	WithTempFile(r io.Reader, pattern string, fn func(path string) error) error

	// MakeDirectory creates a new directory and all necessary parents
	MakeDirectory(path string) error

	// Remove deletes a single file; a missing file is not an error
	Remove(path string) error
}
