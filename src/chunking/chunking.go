// Package chunking splits extracted document text into fixed-size word windows.
package chunking

import "strings"

// DefaultChunkSize is the default number of words per chunk.
const DefaultChunkSize = 500

// Split tokenizes text on whitespace and returns consecutive, non-overlapping
// windows of size words joined by single spaces. The last window may be shorter.
// A non-positive size selects DefaultChunkSize. Blank text yields no chunks.
func Split(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	chunks := make([]string, 0, (len(words)+size-1)/size)
	for start := 0; start < len(words); start += size {
		end := min(start+size, len(words))
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}
