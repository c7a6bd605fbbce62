package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GetJob godoc
// @Summary Get the status of a background ingestion job
// @Tags jobs
// @Param id path int true "Job ID"
// @Produce json
// @Success 200 {object} job.Job
// @Failure 404 {object} ErrorResponse
// @Router /jobs/{id} [get]
func (h *Handler) GetJob(c *gin.Context) {
	if h.jobs == nil {
		sendError(c, http.StatusServiceUnavailable, ErrAsyncUnavailable)
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		sendError(c, http.StatusBadRequest, fmt.Errorf("invalid job id: %w", err))
		return
	}

	j, err := h.jobs.GetJob(c.Request.Context(), id)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	if j == nil {
		sendError(c, http.StatusNotFound, fmt.Errorf("%w: %d", ErrJobNotFound, id))
		return
	}
	sendJSON(c, http.StatusOK, j)
}
