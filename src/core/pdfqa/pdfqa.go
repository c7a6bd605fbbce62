package pdfqa

import (
	"context"
	"errors"
	"time"
)

var (
	// Error kinds. Every failure leaving the pipeline wraps exactly one of these.
	ErrExtraction = errors.New("extraction error")
	ErrEmbedding  = errors.New("embedding error")
	ErrStore      = errors.New("store error")
	ErrCompletion = errors.New("completion error")

	ErrDocumentNotFound = errors.New("document not found")
	ErrIngestInProgress = errors.New("document ingestion already in progress")
	ErrEmptyQuestion    = errors.New("question is empty")
)

// DocumentStatus is the two-phase ingestion marker of a document.
type DocumentStatus string

const (
	DocumentStatusIngesting DocumentStatus = "ingesting"
	DocumentStatusReady     DocumentStatus = "ready"
	DocumentStatusFailed    DocumentStatus = "failed"
)

// Document is identified by the content hash of its PDF bytes.
type Document struct {
	ID         string         `json:"id"`
	Filename   string         `json:"filename"`
	Status     DocumentStatus `json:"status"`
	ChunkCount int            `json:"chunkCount"`
	Error      string         `json:"error,omitempty"`
	UploadedAt time.Time      `json:"uploadedAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// Upload records one upload call. Several uploads may share a document.
type Upload struct {
	ID         int64     `json:"id"`
	DocumentID string    `json:"documentId"`
	Filename   string    `json:"filename"`
	Uploader   string    `json:"uploader,omitempty"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// RetrievedChunk is one similarity search hit.
type RetrievedChunk struct {
	ID    string  `json:"id"`
	Order int     `json:"order"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Answer is the outcome of one question. Found is false when retrieval came
// back empty and no completion was requested.
type Answer struct {
	DocumentID string           `json:"documentId"`
	Question   string           `json:"question"`
	Text       string           `json:"answer"`
	Found      bool             `json:"found"`
	Sources    []RetrievedChunk `json:"sources"`
}

// Embedder turns text into vectors. The same model serves chunks and queries.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ChunkStore is the vector-capable document store.
type ChunkStore interface {
	// UpsertChunks writes one row per chunk with a fresh row id. chunks[i] is stored with order i.
	UpsertChunks(ctx context.Context, documentID string, chunks []string, embeddings [][]float32) error
	// Exists reports whether any row carries documentID.
	Exists(ctx context.Context, documentID string) (bool, error)
	// Count returns the number of rows carrying documentID.
	Count(ctx context.Context, documentID string) (int, error)
	// SimilaritySearch returns up to topK chunks of documentID, most similar first.
	SimilaritySearch(ctx context.Context, embedding []float32, documentID string, topK int) ([]RetrievedChunk, error)
	// DeleteDocument removes every row of documentID.
	DeleteDocument(ctx context.Context, documentID string) error
}

// DocumentRepository keeps document records, their ingestion marker and uploads.
type DocumentRepository interface {
	// Get returns nil, nil when the document does not exist.
	Get(ctx context.Context, id string) (*Document, error)
	// Begin claims the document for ingestion by setting status ingesting.
	// The claim succeeds when there is no record, the record failed, or it has
	// been ingesting since before staleBefore. It reports false, nil when
	// another caller holds the document or it is already ready.
	Begin(ctx context.Context, id, filename string, staleBefore time.Time) (bool, error)
	MarkReady(ctx context.Context, id string, chunkCount int) error
	MarkFailed(ctx context.Context, id string, reason string) error
	RecordUpload(ctx context.Context, documentID, filename, uploader string) (*Upload, error)
}

// Composer produces an answer grounded in the given chunks.
type Composer interface {
	Compose(ctx context.Context, question string, chunks []string) (string, error)
}

// Extractor returns the plain text of the PDF at path.
type Extractor func(path string) (string, error)
