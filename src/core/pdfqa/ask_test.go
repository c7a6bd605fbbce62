package pdfqa_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfqa/src/core/pdfqa"
	"pdfqa/src/storage/memory"
)

func TestAskComposesFromRetrievedChunks(t *testing.T) {
	f := newFixture(t, 1)
	res, err := f.upload(t, "aaa bbb ccc")
	require.NoError(t, err)

	answer, err := f.answerer.Ask(context.Background(), res.DocumentID, "  bbb?  ", 2)
	require.NoError(t, err)

	assert.True(t, answer.Found)
	assert.Equal(t, "42", answer.Text)
	assert.Equal(t, "bbb?", answer.Question)
	require.Len(t, answer.Sources, 2)
	assert.Equal(t, "bbb", answer.Sources[0].Text)
	assert.Equal(t, 1, answer.Sources[0].Order)

	assert.Equal(t, 1, f.composer.calls)
	assert.Equal(t, "bbb?", f.composer.question)
	assert.Equal(t, "bbb", f.composer.chunks[0])
}

func TestAskNeverCrossesDocuments(t *testing.T) {
	f := newFixture(t, 1)
	docA, err := f.upload(t, "aaa bbb")
	require.NoError(t, err)
	_, err = f.upload(t, "zzz")
	require.NoError(t, err)

	answer, err := f.answerer.Ask(context.Background(), docA.DocumentID, "zzz", 10)
	require.NoError(t, err)

	require.Len(t, answer.Sources, 2)
	for _, s := range answer.Sources {
		assert.NotEqual(t, "zzz", s.Text)
	}
}

func TestAskEmptyRetrievalSkipsComposer(t *testing.T) {
	f := newFixture(t, 2)
	res, err := f.upload(t, " ")
	require.NoError(t, err)

	answer, err := f.answerer.Ask(context.Background(), res.DocumentID, "anything?", 0)
	require.NoError(t, err)

	assert.False(t, answer.Found)
	assert.Empty(t, answer.Text)
	assert.NotNil(t, answer.Sources)
	assert.Empty(t, answer.Sources)
	assert.Equal(t, 0, f.composer.calls)
}

func TestAskErrors(t *testing.T) {
	f := newFixture(t, 2)
	res, err := f.upload(t, "some text here")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = f.answerer.Ask(ctx, res.DocumentID, "   ", 0)
	assert.ErrorIs(t, err, pdfqa.ErrEmptyQuestion)

	_, err = f.answerer.Ask(ctx, "unknown", "q", 0)
	assert.ErrorIs(t, err, pdfqa.ErrDocumentNotFound)

	f.composer.err = errors.New("empty choices")
	_, err = f.answerer.Ask(ctx, res.DocumentID, "text", 0)
	assert.ErrorIs(t, err, pdfqa.ErrCompletion)
	f.composer.err = nil

	f.embedder.err = errors.New("model down")
	_, err = f.answerer.Ask(ctx, res.DocumentID, "text", 0)
	assert.ErrorIs(t, err, pdfqa.ErrEmbedding)
}

func TestAskUnmarkedRows(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	require.NoError(t, f.store.UpsertChunks(ctx, "legacy", []string{"old text"}, [][]float32{letters("old text")}))

	answer, err := f.answerer.Ask(ctx, "legacy", "old", 0)
	require.NoError(t, err)
	assert.True(t, answer.Found)
}

func TestAnswererDocument(t *testing.T) {
	f := newFixture(t, 2)
	res, err := f.upload(t, "hello world")
	require.NoError(t, err)

	doc, err := f.answerer.Document(context.Background(), res.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, pdfqa.DocumentStatusReady, doc.Status)

	_, err = f.answerer.Document(context.Background(), "missing")
	assert.ErrorIs(t, err, pdfqa.ErrDocumentNotFound)
}

func TestNewAnswererValidatesDependencies(t *testing.T) {
	docs, err := memory.NewDocumentRepository()
	require.NoError(t, err)
	store := memory.NewChunkStore()

	_, err = pdfqa.NewAnswerer(docs, store, &letterEmbedder{}, nil, 3)
	assert.Error(t, err)
	_, err = pdfqa.NewAnswerer(nil, store, &letterEmbedder{}, &fakeComposer{}, 3)
	assert.Error(t, err)
}
