package chunkctrl

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// openTestDB connects to the database named by PDFQA_TEST_POSTGRES_DSN.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("PDFQA_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PDFQA_TEST_POSTGRES_DSN not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	return db
}

func TestChunkServiceSimilaritySearch(t *testing.T) {
	ctx := context.Background()
	svc := NewChunkService(openTestDB(t))
	require.NoError(t, svc.Migrate(ctx))

	const docA, docB = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	t.Cleanup(func() {
		_ = svc.DeleteDocument(ctx, docA)
		_ = svc.DeleteDocument(ctx, docB)
	})

	require.NoError(t, svc.UpsertChunks(ctx, docA,
		[]string{"north", "east", "south"},
		[][]float32{{0, 1, 0}, {1, 0, 0}, {0, -1, 0}},
	))
	require.NoError(t, svc.UpsertChunks(ctx, docB,
		[]string{"other north"},
		[][]float32{{0, 1, 0}},
	))

	hits, err := svc.SimilaritySearch(ctx, []float32{0, 1, 0.1}, docA, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "north", hits[0].Text)
	assert.Equal(t, 0, hits[0].Order)
	assert.Equal(t, "east", hits[1].Text)
	assert.Greater(t, hits[0].Score, hits[1].Score)

	ok, err := svc.Exists(ctx, docA)
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := svc.Count(ctx, docA)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, svc.DeleteDocument(ctx, docA))
	ok, err = svc.Exists(ctx, docA)
	require.NoError(t, err)
	assert.False(t, ok)

	chunks, err := svc.GetByDocument(ctx, docB)
	require.NoError(t, err)
	assert.Len(t, chunks, 1)
}

func TestUpsertChunksLengthMismatch(t *testing.T) {
	svc := NewChunkService(nil)
	err := svc.UpsertChunks(context.Background(), "doc", []string{"a", "b"}, [][]float32{{1}})
	assert.Error(t, err)
}
