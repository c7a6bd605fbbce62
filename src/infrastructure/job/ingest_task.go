package job

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"

	"pdfqa/src/core/pdfqa"
	"pdfqa/src/fsutil"
	"pdfqa/src/log"
)

const TaskTypeIngest = "ingest"

// Archive holds uploaded PDFs between the API process and the worker.
type Archive interface {
	Put(ctx context.Context, key string, r io.Reader, size int64) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// FileIngestor runs the ingestion pipeline over a PDF on local disk.
type FileIngestor interface {
	IngestFile(ctx context.Context, path, filename, uploader string) (*pdfqa.IngestResult, error)
}

type IngestPayload struct {
	DocumentID string `json:"document_id"`
	ObjectKey  string `json:"object_key"`
	Filename   string `json:"filename"`
	Uploader   string `json:"uploader,omitempty"`
}

// IngestTask fetches an archived PDF into a temp file and ingests it.
type IngestTask struct {
	archive  Archive
	files    fsutil.FileStore
	ingestor FileIngestor
}

func NewIngestTask(archive Archive, files fsutil.FileStore, ingestor FileIngestor) *IngestTask {
	return &IngestTask{
		archive:  archive,
		files:    files,
		ingestor: ingestor,
	}
}

// NewObjectKey returns a fresh archive key for one upload of a document.
// Uploads of the same content get distinct keys, so one job deleting its
// object never pulls the file from under another.
func NewObjectKey(documentID string) string {
	return documentID + "-" + uuid.NewString() + ".pdf"
}

func (t *IngestTask) HandleIngestTask(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
	var payload IngestPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ingest payload: %w", err)
	}

	rc, err := t.archive.Get(ctx, payload.ObjectKey)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch archived pdf: %w", err)
	}
	defer rc.Close()

	var result *pdfqa.IngestResult
	err = t.files.WithTempFile(rc, "ingest-*.pdf", func(path string) error {
		result, err = t.ingestor.IngestFile(ctx, path, payload.Filename, payload.Uploader)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger := log.WithName("ingest-task").WithValues("object", payload.ObjectKey)
	if result.DocumentID != payload.DocumentID {
		logger.Info("archived pdf hashed to a different document id",
			"expected", payload.DocumentID, "actual", result.DocumentID)
	}

	// failed jobs keep their object for the retry
	if err := t.archive.Delete(ctx, payload.ObjectKey); err != nil {
		logger.Error(err, "failed to delete archived pdf")
	}

	out, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ingest result: %w", err)
	}
	return out, nil
}
