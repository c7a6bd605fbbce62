package chunking_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"pdfqa/src/chunking"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		text string
		size int
		want []string
	}{
		{
			name: "last window shorter",
			text: "a b c d e",
			size: 2,
			want: []string{"a b", "c d", "e"},
		},
		{
			name: "exact multiple",
			text: "a b c d",
			size: 2,
			want: []string{"a b", "c d"},
		},
		{
			name: "collapses whitespace",
			text: "  a\n\tb   c\n",
			size: 5,
			want: []string{"a b c"},
		},
		{
			name: "empty",
			text: "",
			size: 3,
			want: nil,
		},
		{
			name: "whitespace only",
			text: " \n\t ",
			size: 3,
			want: nil,
		},
		{
			name: "size one",
			text: "x y",
			size: 1,
			want: []string{"x", "y"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, chunking.Split(tt.text, tt.size))
		})
	}
}

func TestSplitDefaultSize(t *testing.T) {
	words := make([]string, chunking.DefaultChunkSize+1)
	for i := range words {
		words[i] = "w"
	}

	chunks := chunking.Split(strings.Join(words, " "), 0)
	assert.Len(t, chunks, 2)
	assert.Len(t, strings.Fields(chunks[0]), chunking.DefaultChunkSize)
	assert.Equal(t, "w", chunks[1])
}

func TestSplitWindowCounts(t *testing.T) {
	for wordCount := 0; wordCount <= 23; wordCount++ {
		for size := 1; size <= 7; size++ {
			words := make([]string, wordCount)
			for i := range words {
				words[i] = "w"
			}
			chunks := chunking.Split(strings.Join(words, " "), size)

			want := (wordCount + size - 1) / size
			if assert.Len(t, chunks, want, "words=%d size=%d", wordCount, size) {
				for i, c := range chunks {
					n := len(strings.Fields(c))
					if i < len(chunks)-1 {
						assert.Equal(t, size, n)
					} else {
						assert.LessOrEqual(t, n, size)
						assert.Positive(t, n)
					}
				}
			}
		}
	}
}

func TestSplitPreservesOrder(t *testing.T) {
	chunks := chunking.Split("one two three four five six seven", 3)
	assert.Equal(t, "one two three four five six seven", strings.Join(chunks, " "))
}
