package pdfqa

import (
	"context"
	"fmt"
	"io"
	"time"

	"pdfqa/src/chunking"
	"pdfqa/src/contenthash"
	"pdfqa/src/fsutil"
	"pdfqa/src/log"
	"pdfqa/src/metrics"
)

const DefaultStaleAfter = 10 * time.Minute

// IngestConfig tunes the ingestion pipeline.
type IngestConfig struct {
	ChunkSize  int           // words per chunk, see chunking.DefaultChunkSize
	StaleAfter time.Duration // an ingesting marker older than this is treated as abandoned
}

// IngestRequest is one uploaded PDF.
type IngestRequest struct {
	Filename string
	Uploader string
	Content  io.Reader
}

// IngestResult is handed back to the caller, who passes DocumentID on every question.
type IngestResult struct {
	DocumentID string      `json:"documentId"`
	State      IngestState `json:"state"`
	ChunkCount int         `json:"chunks"`
	Upload     *Upload     `json:"upload,omitempty"`
}

// Ingestor runs upload -> hash -> (extract -> chunk -> embed -> store) for new content.
type Ingestor struct {
	docs     DocumentRepository
	store    ChunkStore
	embedder Embedder
	extract  Extractor
	files    fsutil.FileStore
	cfg      IngestConfig
	now      func() time.Time
}

func NewIngestor(docs DocumentRepository, store ChunkStore, embedder Embedder, extract Extractor, files fsutil.FileStore, cfg IngestConfig) (*Ingestor, error) {
	switch {
	case docs == nil:
		return nil, fmt.Errorf("document repository is required")
	case store == nil:
		return nil, fmt.Errorf("chunk store is required")
	case embedder == nil:
		return nil, fmt.Errorf("embedder is required")
	case extract == nil:
		return nil, fmt.Errorf("extractor is required")
	case files == nil:
		return nil, fmt.Errorf("file store is required")
	}

	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = chunking.DefaultChunkSize
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = DefaultStaleAfter
	}

	return &Ingestor{
		docs:     docs,
		store:    store,
		embedder: embedder,
		extract:  extract,
		files:    files,
		cfg:      cfg,
		now:      time.Now,
	}, nil
}

// Ingest spools the upload to a temporary file, which is removed when ingestion ends.
func (i *Ingestor) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	var result *IngestResult
	err := i.files.WithTempFile(req.Content, "upload-*.pdf", func(path string) error {
		var err error
		result, err = i.IngestFile(ctx, path, req.Filename, req.Uploader)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// IngestFile ingests the PDF at path unless its content was ingested before.
func (i *Ingestor) IngestFile(ctx context.Context, path, filename, uploader string) (*IngestResult, error) {
	logger := log.WithValues("filename", filename)
	logger.V(1).Info("ingest state", "state", IngestUploaded)

	id, err := contenthash.HashFile(path)
	if err != nil {
		metrics.Ingestions.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: failed to hash upload: %w", ErrExtraction, err)
	}
	logger = logger.WithValues("document", id)
	logger.V(1).Info("ingest state", "state", IngestHashed)

	result := &IngestResult{DocumentID: id, State: IngestReady}

	skip, err := i.claim(ctx, id, filename)
	if err != nil {
		metrics.Ingestions.WithLabelValues("failed").Inc()
		return nil, err
	}

	if skip {
		logger.Info("content already ingested", "state", IngestSkipped)
		metrics.Ingestions.WithLabelValues("skipped").Inc()
		if doc, err := i.docs.Get(ctx, id); err == nil && doc != nil {
			result.ChunkCount = doc.ChunkCount
		}
	} else {
		count, err := i.ingest(ctx, id, path)
		if err != nil {
			metrics.Ingestions.WithLabelValues("failed").Inc()
			logger.Error(err, "ingestion failed")
			return nil, err
		}
		metrics.Ingestions.WithLabelValues("stored").Inc()
		result.ChunkCount = count
	}

	upload, err := i.docs.RecordUpload(ctx, id, filename, uploader)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to record upload: %w", ErrStore, err)
	}
	result.Upload = upload

	logger.Info("document ready", "state", IngestReady, "chunks", result.ChunkCount)
	return result, nil
}

// claim takes the ingestion marker of id for this caller. It reports true when
// the content is already ingested and nothing needs to run. A failed or
// abandoned ingestion is repaired by dropping its rows once claimed.
func (i *Ingestor) claim(ctx context.Context, id, filename string) (bool, error) {
	doc, err := i.docs.Get(ctx, id)
	if err != nil {
		return false, fmt.Errorf("%w: failed to get document: %w", ErrStore, err)
	}

	if doc != nil {
		switch doc.Status {
		case DocumentStatusReady:
			return true, nil
		case DocumentStatusIngesting:
			if i.now().Sub(doc.UpdatedAt) < i.cfg.StaleAfter {
				return false, ErrIngestInProgress
			}
		}
	}

	claimed, err := i.docs.Begin(ctx, id, filename, i.now().Add(-i.cfg.StaleAfter))
	if err != nil {
		return false, fmt.Errorf("%w: failed to mark document as ingesting: %w", ErrStore, err)
	}
	if !claimed {
		// a concurrent upload of the same content got there first
		current, err := i.docs.Get(ctx, id)
		if err != nil {
			return false, fmt.Errorf("%w: failed to get document: %w", ErrStore, err)
		}
		if current != nil && current.Status == DocumentStatusReady {
			return true, nil
		}
		return false, ErrIngestInProgress
	}

	if doc == nil {
		count, err := i.store.Count(ctx, id)
		if err != nil {
			return false, i.release(ctx, id, fmt.Errorf("%w: failed to check existing chunks: %w", ErrStore, err))
		}
		if count == 0 {
			return false, nil
		}

		// rows written before status markers existed
		if err := i.docs.MarkReady(ctx, id, count); err != nil {
			return false, i.release(ctx, id, fmt.Errorf("%w: failed to adopt document: %w", ErrStore, err))
		}
		return true, nil
	}

	if doc.Status == DocumentStatusIngesting {
		log.Info("reclaiming abandoned ingestion", "document", id, "since", doc.UpdatedAt)
	}
	if err := i.store.DeleteDocument(ctx, id); err != nil {
		return false, i.release(ctx, id, fmt.Errorf("%w: failed to delete partial chunks: %w", ErrStore, err))
	}
	return false, nil
}

// release marks a claimed document as failed so the next upload can retry it.
func (i *Ingestor) release(ctx context.Context, id string, cause error) error {
	if err := i.docs.MarkFailed(ctx, id, cause.Error()); err != nil {
		log.Error(err, "failed to mark document as failed", "document", id)
	}
	return cause
}

func (i *Ingestor) ingest(ctx context.Context, id, path string) (int, error) {
	count, err := i.run(ctx, id, path)
	if err != nil {
		return 0, i.release(ctx, id, err)
	}

	if err := i.docs.MarkReady(ctx, id, count); err != nil {
		return 0, fmt.Errorf("%w: failed to mark document as ready: %w", ErrStore, err)
	}
	return count, nil
}

func (i *Ingestor) run(ctx context.Context, id, path string) (int, error) {
	logger := log.WithValues("document", id)

	start := time.Now()
	text, err := i.extract(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	metrics.ObserveStage("extract", start)
	logger.V(1).Info("ingest state", "state", IngestExtracted, "characters", len(text))

	chunks := chunking.Split(text, i.cfg.ChunkSize)
	logger.V(1).Info("ingest state", "state", IngestChunked, "chunks", len(chunks))
	if len(chunks) == 0 {
		logger.Info("document has no extractable text, nothing to store")
		return 0, nil
	}

	start = time.Now()
	embeddings, err := i.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}
	if len(embeddings) != len(chunks) {
		return 0, fmt.Errorf("%w: got %d embeddings for %d chunks", ErrEmbedding, len(embeddings), len(chunks))
	}
	metrics.ObserveStage("embed", start)
	logger.V(1).Info("ingest state", "state", IngestEmbedded)

	start = time.Now()
	if err := i.store.UpsertChunks(ctx, id, chunks, embeddings); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStore, err)
	}
	metrics.ObserveStage("store", start)
	metrics.ChunksStored.Add(float64(len(chunks)))
	logger.V(1).Info("ingest state", "state", IngestStored)

	return len(chunks), nil
}
