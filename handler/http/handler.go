package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pdfqa/src/core/pdfqa"
	"pdfqa/src/fsutil"
	"pdfqa/src/infrastructure/job"
)

// DocumentIngestor ingests an uploaded PDF synchronously.
type DocumentIngestor interface {
	Ingest(ctx context.Context, req pdfqa.IngestRequest) (*pdfqa.IngestResult, error)
}

// QuestionAnswerer answers questions against one ingested document.
type QuestionAnswerer interface {
	Document(ctx context.Context, id string) (*pdfqa.Document, error)
	Ask(ctx context.Context, documentID, question string, topK int) (*pdfqa.Answer, error)
}

// JobQueue hands uploads to the background worker.
type JobQueue interface {
	SubmitIngest(ctx context.Context, path, filename, uploader string) (string, *job.Job, error)
	GetJob(ctx context.Context, id int) (*job.Job, error)
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

var (
	ErrNotPDF           = errors.New("uploaded file is not a pdf")
	ErrAsyncUnavailable = errors.New("asynchronous ingestion is not enabled")
	ErrJobNotFound      = errors.New("job not found")
)

type Handler struct {
	ingestor DocumentIngestor
	answerer QuestionAnswerer
	jobs     JobQueue
	files    fsutil.FileStore
	checks   map[string]HealthCheck
}

// NewHandler builds the API handler. jobs may be nil, in which case async
// uploads are refused.
func NewHandler(ingestor DocumentIngestor, answerer QuestionAnswerer, jobs JobQueue, files fsutil.FileStore, checks map[string]HealthCheck) *Handler {
	return &Handler{
		ingestor: ingestor,
		answerer: answerer,
		jobs:     jobs,
		files:    files,
		checks:   checks,
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	v1 := r.Group("/api/v1")

	// Document routes
	v1.POST("/documents", h.UploadDocument)
	v1.GET("/documents/:id", h.GetDocument)
	v1.POST("/documents/:id/questions", h.AskQuestion)

	// Job routes
	v1.GET("/jobs/:id", h.GetJob)

	// System routes
	v1.GET("/health", h.CheckHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Common error response structure
type ErrorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// sendError maps error kinds to a status; status is used when no kind matches.
func sendError(c *gin.Context, status int, err error) {
	code := "INTERNAL_ERROR"
	switch {
	case errors.Is(err, ErrNotPDF), errors.Is(err, pdfqa.ErrEmptyQuestion):
		code = "BAD_REQUEST"
		status = http.StatusBadRequest
	case errors.Is(err, pdfqa.ErrDocumentNotFound), errors.Is(err, ErrJobNotFound):
		code = "NOT_FOUND"
		status = http.StatusNotFound
	case errors.Is(err, pdfqa.ErrIngestInProgress):
		code = "INGEST_IN_PROGRESS"
		status = http.StatusConflict
	case errors.Is(err, pdfqa.ErrExtraction):
		code = "EXTRACTION_ERROR"
		status = http.StatusUnprocessableEntity
	case errors.Is(err, pdfqa.ErrEmbedding):
		code = "EMBEDDING_ERROR"
		status = http.StatusBadGateway
	case errors.Is(err, pdfqa.ErrStore):
		code = "STORE_ERROR"
		status = http.StatusBadGateway
	case errors.Is(err, pdfqa.ErrCompletion):
		code = "COMPLETION_ERROR"
		status = http.StatusBadGateway
	case errors.Is(err, ErrAsyncUnavailable):
		code = "UNAVAILABLE"
		status = http.StatusServiceUnavailable
	case status == http.StatusBadRequest:
		code = "BAD_REQUEST"
	}

	c.JSON(status, ErrorResponse{
		Code:    code,
		Message: err.Error(),
	})
}

func sendJSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}
