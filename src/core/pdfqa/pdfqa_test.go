package pdfqa_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pdfqa/src/core/pdfqa"
	"pdfqa/src/fsutil"
	"pdfqa/src/storage/memory"
)

// letterEmbedder embeds text as its a-z letter histogram.
type letterEmbedder struct {
	mu      sync.Mutex
	batches int
	calls   int
	err     error
}

func (e *letterEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.batches++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = letters(t)
	}
	return out, nil
}

// Batches returns the number of EmbedBatch calls so far.
func (e *letterEmbedder) Batches() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.batches
}

func (e *letterEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return letters(text), nil
}

func letters(text string) []float32 {
	v := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	return v
}

type fakeComposer struct {
	calls    int
	question string
	chunks   []string
	answer   string
	err      error
}

func (c *fakeComposer) Compose(ctx context.Context, question string, chunks []string) (string, error) {
	c.calls++
	c.question = question
	c.chunks = chunks
	return c.answer, c.err
}

// readText treats the uploaded bytes as the extracted text.
func readText(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// flakyStore writes the first chunk and then fails, leaving a partial document.
type flakyStore struct {
	*memory.ChunkStore
	failures int
}

func (s *flakyStore) UpsertChunks(ctx context.Context, documentID string, chunks []string, embeddings [][]float32) error {
	if s.failures > 0 {
		s.failures--
		if err := s.ChunkStore.UpsertChunks(ctx, documentID, chunks[:1], embeddings[:1]); err != nil {
			return err
		}
		return errors.New("connection reset")
	}
	return s.ChunkStore.UpsertChunks(ctx, documentID, chunks, embeddings)
}

// slowStore delays reads so concurrent uploads overlap.
type slowStore struct {
	*memory.ChunkStore
	delay time.Duration
}

func (s *slowStore) Exists(ctx context.Context, documentID string) (bool, error) {
	time.Sleep(s.delay)
	return s.ChunkStore.Exists(ctx, documentID)
}

func (s *slowStore) Count(ctx context.Context, documentID string) (int, error) {
	time.Sleep(s.delay)
	return s.ChunkStore.Count(ctx, documentID)
}

type fixture struct {
	docs     *memory.DocumentRepository
	store    *memory.ChunkStore
	embedder *letterEmbedder
	composer *fakeComposer
	ingestor *pdfqa.Ingestor
	answerer *pdfqa.Answerer
}

func newFixture(t *testing.T, chunkSize int, opts ...func(*fixtureOptions)) *fixture {
	t.Helper()

	o := fixtureOptions{extract: readText}
	for _, opt := range opts {
		opt(&o)
	}

	docs, err := memory.NewDocumentRepository()
	require.NoError(t, err)
	store := memory.NewChunkStore()
	var chunkStore pdfqa.ChunkStore = store
	if o.wrapStore != nil {
		chunkStore = o.wrapStore(store)
	}

	f := &fixture{
		docs:     docs,
		store:    store,
		embedder: &letterEmbedder{},
		composer: &fakeComposer{answer: "42"},
	}

	f.ingestor, err = pdfqa.NewIngestor(docs, chunkStore, f.embedder, o.extract,
		fsutil.NewLocalFileStore(t.TempDir()), pdfqa.IngestConfig{ChunkSize: chunkSize})
	require.NoError(t, err)

	f.answerer, err = pdfqa.NewAnswerer(docs, chunkStore, f.embedder, f.composer, 0)
	require.NoError(t, err)
	return f
}

type fixtureOptions struct {
	extract   pdfqa.Extractor
	wrapStore func(*memory.ChunkStore) pdfqa.ChunkStore
}

func withExtractor(e pdfqa.Extractor) func(*fixtureOptions) {
	return func(o *fixtureOptions) { o.extract = e }
}

func withStore(wrap func(*memory.ChunkStore) pdfqa.ChunkStore) func(*fixtureOptions) {
	return func(o *fixtureOptions) { o.wrapStore = wrap }
}

func (f *fixture) upload(t *testing.T, content string) (*pdfqa.IngestResult, error) {
	t.Helper()
	return f.ingestor.Ingest(context.Background(), pdfqa.IngestRequest{
		Filename: "doc.pdf",
		Uploader: "tester",
		Content:  strings.NewReader(content),
	})
}
