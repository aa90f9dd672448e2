package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/routinekit/routinekit/internal/models"
	"github.com/routinekit/routinekit/internal/version"
)

// ExecutorDescriber reports registered executors.
type ExecutorDescriber interface {
	Describe(ctx context.Context) []models.ExecutorInfo
}

// SystemHandler serves build and runtime information.
type SystemHandler struct {
	executors ExecutorDescriber
}

// NewSystemHandler creates a new SystemHandler instance.
func NewSystemHandler(executors ExecutorDescriber) *SystemHandler {
	return &SystemHandler{executors: executors}
}

// Version returns build information.
// GET /api/version
func (h *SystemHandler) Version(c *gin.Context) {
	respondOK(c, http.StatusOK, version.Info())
}

// Executors lists executor types and whether each can run right now.
// GET /api/executors
func (h *SystemHandler) Executors(c *gin.Context) {
	respondOK(c, http.StatusOK, h.executors.Describe(c.Request.Context()))
}
