package contenthash_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfqa/src/contenthash"
)

func TestHashIsDeterministic(t *testing.T) {
	content := []byte("0123456789")

	dir := t.TempDir()
	a := filepath.Join(dir, "a.pdf")
	b := filepath.Join(dir, "b.pdf")
	require.NoError(t, os.WriteFile(a, content, 0o644))
	require.NoError(t, os.WriteFile(b, content, 0o644))

	ha, err := contenthash.HashFile(a)
	require.NoError(t, err)
	hb, err := contenthash.HashFile(b)
	require.NoError(t, err)

	assert.Equal(t, ha, hb)
	assert.Equal(t, ha, contenthash.HashBytes(content))
	assert.Len(t, ha, contenthash.Size)
}

func TestHashKnownValues(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: "d41d8cd98f00b204e9800998ecf8427e"},
		{name: "short", input: "abc", want: "900150983cd24fb0d6963f7d28e17f72"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := contenthash.HashReader(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, contenthash.Valid(got))
		})
	}
}

func TestHashDiffersForDifferentContent(t *testing.T) {
	assert.NotEqual(t, contenthash.HashBytes([]byte("a")), contenthash.HashBytes([]byte("b")))
}

func TestValid(t *testing.T) {
	assert.False(t, contenthash.Valid(""))
	assert.False(t, contenthash.Valid("xyz"))
	assert.False(t, contenthash.Valid(strings.Repeat("g", contenthash.Size)))
	assert.True(t, contenthash.Valid(strings.Repeat("a", contenthash.Size)))
}

func TestHashFileMissing(t *testing.T) {
	_, err := contenthash.HashFile(filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}
