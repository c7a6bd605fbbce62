package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

type AskRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"topK,omitempty"`
}

// AskQuestion godoc
// @Summary Ask a question about one document
// @Tags documents
// @Accept json
// @Param id path string true "Document ID"
// @Param request body AskRequest true "Question"
// @Produce json
// @Success 200 {object} pdfqa.Answer
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /documents/{id}/questions [post]
func (h *Handler) AskQuestion(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.TopK < 0 {
		sendError(c, http.StatusBadRequest, fmt.Errorf("topK must not be negative"))
		return
	}

	answer, err := h.answerer.Ask(c.Request.Context(), c.Param("id"), req.Question, req.TopK)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	sendJSON(c, http.StatusOK, answer)
}
