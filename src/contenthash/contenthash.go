// Package contenthash derives document ids from PDF bytes.
package contenthash

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Size is the length of a digest in hex characters.
const Size = md5.Size * 2

// HashReader returns the lowercase hex MD5 digest of everything read from r.
func HashReader(r io.Reader) (string, error) {
	h := md5.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("failed to read content: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashFile hashes the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return HashReader(f)
}

func HashBytes(b []byte) string {
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

// Valid reports whether id has the shape of a digest produced by this package.
func Valid(id string) bool {
	if len(id) != Size {
		return false
	}
	_, err := hex.DecodeString(id)
	return err == nil
}
