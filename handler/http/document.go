package http

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"pdfqa/src/core/pdfqa"
)

type AsyncUploadResponse struct {
	DocumentID string `json:"documentId"`
	JobID      int    `json:"jobId"`
}

// UploadDocument godoc
// @Summary Upload a PDF and ingest it
// @Tags documents
// @Accept multipart/form-data
// @Param file formData file true "PDF file"
// @Param uploader formData string false "Uploader name"
// @Param async formData bool false "Ingest in the background"
// @Produce json
// @Success 200 {object} pdfqa.IngestResult
// @Success 202 {object} AsyncUploadResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /documents [post]
func (h *Handler) UploadDocument(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		sendError(c, http.StatusBadRequest, fmt.Errorf("file upload required: %w", err))
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		sendError(c, http.StatusBadRequest, fmt.Errorf("%w: %s", ErrNotPDF, header.Filename))
		return
	}

	uploader := c.PostForm("uploader")

	async := false
	if raw := c.PostForm("async"); raw != "" {
		async, err = strconv.ParseBool(raw)
		if err != nil {
			sendError(c, http.StatusBadRequest, fmt.Errorf("invalid async flag: %w", err))
			return
		}
	}

	if !async {
		result, err := h.ingestor.Ingest(c.Request.Context(), pdfqa.IngestRequest{
			Filename: header.Filename,
			Uploader: uploader,
			Content:  file,
		})
		if err != nil {
			sendError(c, http.StatusInternalServerError, err)
			return
		}
		sendJSON(c, http.StatusOK, result)
		return
	}

	if h.jobs == nil {
		sendError(c, http.StatusServiceUnavailable, ErrAsyncUnavailable)
		return
	}

	var resp AsyncUploadResponse
	err = h.files.WithTempFile(file, "upload-*.pdf", func(path string) error {
		documentID, j, err := h.jobs.SubmitIngest(c.Request.Context(), path, header.Filename, uploader)
		if err != nil {
			return err
		}
		resp = AsyncUploadResponse{DocumentID: documentID, JobID: j.ID}
		return nil
	})
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	sendJSON(c, http.StatusAccepted, resp)
}

// GetDocument godoc
// @Summary Get a document record and its ingestion status
// @Tags documents
// @Param id path string true "Document ID"
// @Produce json
// @Success 200 {object} pdfqa.Document
// @Failure 404 {object} ErrorResponse
// @Router /documents/{id} [get]
func (h *Handler) GetDocument(c *gin.Context) {
	doc, err := h.answerer.Document(c.Request.Context(), c.Param("id"))
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	sendJSON(c, http.StatusOK, doc)
}
