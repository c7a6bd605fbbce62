package pdfqa

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pdfqa/src/log"
	"pdfqa/src/metrics"
)

const DefaultTopK = 3

// Answerer runs question -> embed -> retrieve -> compose for one document.
type Answerer struct {
	docs     DocumentRepository
	store    ChunkStore
	embedder Embedder
	composer Composer
	topK     int
}

func NewAnswerer(docs DocumentRepository, store ChunkStore, embedder Embedder, composer Composer, topK int) (*Answerer, error) {
	switch {
	case docs == nil:
		return nil, fmt.Errorf("document repository is required")
	case store == nil:
		return nil, fmt.Errorf("chunk store is required")
	case embedder == nil:
		return nil, fmt.Errorf("embedder is required")
	case composer == nil:
		return nil, fmt.Errorf("composer is required")
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	return &Answerer{
		docs:     docs,
		store:    store,
		embedder: embedder,
		composer: composer,
		topK:     topK,
	}, nil
}

// Document returns the record of id, or ErrDocumentNotFound.
func (a *Answerer) Document(ctx context.Context, id string) (*Document, error) {
	doc, err := a.docs.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get document: %w", ErrStore, err)
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

// Ask answers question from the chunks of documentID. When nothing is
// retrieved the returned Answer has Found == false and the composer is not called.
// A non-positive topK uses the configured default.
func (a *Answerer) Ask(ctx context.Context, documentID, question string, topK int) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if topK <= 0 {
		topK = a.topK
	}

	logger := log.WithValues("document", documentID)
	logger.V(1).Info("question state", "state", QuestionReceived)

	if err := a.checkReady(ctx, documentID); err != nil {
		metrics.Questions.WithLabelValues("failed").Inc()
		return nil, err
	}

	answer, err := a.answer(ctx, documentID, question, topK)
	if err != nil {
		metrics.Questions.WithLabelValues("failed").Inc()
		logger.Error(err, "failed to answer question")
		return nil, err
	}

	if answer.Found {
		metrics.Questions.WithLabelValues("answered").Inc()
	} else {
		metrics.Questions.WithLabelValues("no_answer").Inc()
	}
	return answer, nil
}

func (a *Answerer) checkReady(ctx context.Context, documentID string) error {
	doc, err := a.docs.Get(ctx, documentID)
	if err != nil {
		return fmt.Errorf("%w: failed to get document: %w", ErrStore, err)
	}

	if doc == nil {
		// rows may predate status markers
		exists, err := a.store.Exists(ctx, documentID)
		if err != nil {
			return fmt.Errorf("%w: failed to check existing chunks: %w", ErrStore, err)
		}
		if !exists {
			return ErrDocumentNotFound
		}
		return nil
	}

	switch doc.Status {
	case DocumentStatusReady:
		return nil
	case DocumentStatusIngesting:
		return ErrIngestInProgress
	default:
		return fmt.Errorf("%w: ingestion of %s failed, upload it again", ErrDocumentNotFound, documentID)
	}
}

func (a *Answerer) answer(ctx context.Context, documentID, question string, topK int) (*Answer, error) {
	logger := log.WithValues("document", documentID)

	start := time.Now()
	embedding, err := a.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}
	metrics.ObserveStage("embed_query", start)
	logger.V(1).Info("question state", "state", QuestionEmbeddedQuery)

	start = time.Now()
	hits, err := a.store.SimilaritySearch(ctx, embedding, documentID, topK)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	metrics.ObserveStage("retrieve", start)
	logger.V(1).Info("question state", "state", QuestionRetrieved, "hits", len(hits))

	answer := &Answer{
		DocumentID: documentID,
		Question:   question,
		Sources:    hits,
	}
	if len(hits) == 0 {
		answer.Sources = []RetrievedChunk{}
		logger.Info("no relevant chunks", "state", QuestionNoAnswer)
		return answer, nil
	}

	texts := make([]string, len(hits))
	for i, h := range hits {
		texts[i] = h.Text
	}

	start = time.Now()
	logger.V(1).Info("question state", "state", QuestionComposed)
	text, err := a.composer.Compose(ctx, question, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompletion, err)
	}
	metrics.ObserveStage("compose", start)
	logger.V(1).Info("question state", "state", QuestionAnswered)

	answer.Text = text
	answer.Found = true
	return answer, nil
}
