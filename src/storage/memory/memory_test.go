package memory_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfqa/src/core/pdfqa"
	"pdfqa/src/storage/memory"
)

func TestSimilaritySearchIsScopedToDocument(t *testing.T) {
	ctx := context.Background()
	store := memory.NewChunkStore()

	require.NoError(t, store.UpsertChunks(ctx, "doc-a", []string{"a0", "a1"}, [][]float32{{0, 1}, {0.5, 0.5}}))
	// doc-b holds an exact match for the query
	require.NoError(t, store.UpsertChunks(ctx, "doc-b", []string{"b0"}, [][]float32{{1, 0}}))

	hits, err := store.SimilaritySearch(ctx, []float32{1, 0}, "doc-a", 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a1", hits[0].Text)
	assert.Equal(t, "a0", hits[1].Text)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestSimilaritySearchTopK(t *testing.T) {
	ctx := context.Background()
	store := memory.NewChunkStore()
	require.NoError(t, store.UpsertChunks(ctx, "d", []string{"x", "y", "z"}, [][]float32{{1, 0}, {0.9, 0.1}, {0, 1}}))

	hits, err := store.SimilaritySearch(ctx, []float32{1, 0}, "d", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, []string{"x", "y"}, []string{hits[0].Text, hits[1].Text})
}

func TestSimilaritySearchUnknownDocument(t *testing.T) {
	hits, err := memory.NewChunkStore().SimilaritySearch(context.Background(), []float32{1}, "nope", 3)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestUpsertExistsDelete(t *testing.T) {
	ctx := context.Background()
	store := memory.NewChunkStore()

	exists, err := store.Exists(ctx, "d")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.Error(t, store.UpsertChunks(ctx, "d", []string{"a"}, nil))

	require.NoError(t, store.UpsertChunks(ctx, "d", []string{"a", "b"}, [][]float32{{1}, {2}}))
	require.NoError(t, store.UpsertChunks(ctx, "other", []string{"c"}, [][]float32{{3}}))
	exists, err = store.Exists(ctx, "d")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, []string{"a", "b"}, store.Chunks("d"))

	require.NoError(t, store.DeleteDocument(ctx, "d"))
	exists, err = store.Exists(ctx, "d")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, 1, store.Len())
}

func TestChunkStoreCount(t *testing.T) {
	ctx := context.Background()
	store := memory.NewChunkStore()
	require.NoError(t, store.UpsertChunks(ctx, "d", []string{"a", "b", "c"}, [][]float32{{1}, {1}, {1}}))
	require.NoError(t, store.UpsertChunks(ctx, "e", []string{"x"}, [][]float32{{1}}))

	n, err := store.Count(ctx, "d")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = store.Count(ctx, "missing")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDocumentRepositoryBeginClaims(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	staleBefore := base.Add(-10 * time.Minute)

	tests := []struct {
		name    string
		prepare func(t *testing.T, repo *memory.DocumentRepository)
		want    bool
	}{
		{
			name:    "no record",
			prepare: func(t *testing.T, repo *memory.DocumentRepository) {},
			want:    true,
		},
		{
			name: "fresh ingesting marker",
			prepare: func(t *testing.T, repo *memory.DocumentRepository) {
				repo.SetClock(func() time.Time { return base.Add(-time.Minute) })
				_, err := repo.Begin(ctx, "d", "doc.pdf", staleBefore)
				require.NoError(t, err)
			},
			want: false,
		},
		{
			name: "stale ingesting marker",
			prepare: func(t *testing.T, repo *memory.DocumentRepository) {
				repo.SetClock(func() time.Time { return base.Add(-time.Hour) })
				_, err := repo.Begin(ctx, "d", "doc.pdf", staleBefore)
				require.NoError(t, err)
			},
			want: true,
		},
		{
			name: "failed",
			prepare: func(t *testing.T, repo *memory.DocumentRepository) {
				_, err := repo.Begin(ctx, "d", "doc.pdf", staleBefore)
				require.NoError(t, err)
				require.NoError(t, repo.MarkFailed(ctx, "d", "boom"))
			},
			want: true,
		},
		{
			name: "ready",
			prepare: func(t *testing.T, repo *memory.DocumentRepository) {
				_, err := repo.Begin(ctx, "d", "doc.pdf", staleBefore)
				require.NoError(t, err)
				require.NoError(t, repo.MarkReady(ctx, "d", 2))
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, err := memory.NewDocumentRepository()
			require.NoError(t, err)
			repo.SetClock(func() time.Time { return base })
			tt.prepare(t, repo)
			repo.SetClock(func() time.Time { return base })

			claimed, err := repo.Begin(ctx, "d", "", staleBefore)
			require.NoError(t, err)
			assert.Equal(t, tt.want, claimed)
		})
	}
}

func TestDocumentRepositoryBeginConcurrent(t *testing.T) {
	ctx := context.Background()
	repo, err := memory.NewDocumentRepository()
	require.NoError(t, err)

	var wg sync.WaitGroup
	var won atomic.Int32
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := repo.Begin(ctx, "d", "doc.pdf", time.Now().Add(-time.Minute))
			assert.NoError(t, err)
			if claimed {
				won.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), won.Load())
}

func TestDocumentRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	repo, err := memory.NewDocumentRepository()
	require.NoError(t, err)

	doc, err := repo.Get(ctx, "d")
	require.NoError(t, err)
	assert.Nil(t, doc)

	claimed, err := repo.Begin(ctx, "d", "report.pdf", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.True(t, claimed)
	doc, err = repo.Get(ctx, "d")
	require.NoError(t, err)
	assert.Equal(t, pdfqa.DocumentStatusIngesting, doc.Status)
	assert.Equal(t, "report.pdf", doc.Filename)

	require.NoError(t, repo.MarkFailed(ctx, "d", "boom"))
	doc, _ = repo.Get(ctx, "d")
	assert.Equal(t, pdfqa.DocumentStatusFailed, doc.Status)
	assert.Equal(t, "boom", doc.Error)

	claimed, err = repo.Begin(ctx, "d", "", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.True(t, claimed)
	require.NoError(t, repo.MarkReady(ctx, "d", 7))
	doc, _ = repo.Get(ctx, "d")
	assert.Equal(t, pdfqa.DocumentStatusReady, doc.Status)
	assert.Equal(t, 7, doc.ChunkCount)
	assert.Equal(t, "report.pdf", doc.Filename)
	assert.Empty(t, doc.Error)

	assert.Error(t, repo.MarkReady(ctx, "missing", 1))

	claimed, err = repo.Begin(ctx, "d", "", time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, claimed, "ready documents are never reclaimed")

	u1, err := repo.RecordUpload(ctx, "d", "report.pdf", "alice")
	require.NoError(t, err)
	u2, err := repo.RecordUpload(ctx, "d", "copy.pdf", "bob")
	require.NoError(t, err)
	assert.NotEqual(t, u1.ID, u2.ID)
	assert.Len(t, repo.Uploads("d"), 2)
}
