package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/routinekit/routinekit/internal/executor"
	"github.com/routinekit/routinekit/internal/logging"
	"github.com/routinekit/routinekit/internal/models"
	"github.com/routinekit/routinekit/internal/services"
)

// RoutineRunner runs a routine's integration.
type RoutineRunner interface {
	Run(ctx context.Context, routineID string) (*models.ExecutionResult, error)
}

// ExecuteHandler handles integration execution requests.
type ExecuteHandler struct {
	runner RoutineRunner
}

// NewExecuteHandler creates a new ExecuteHandler instance.
func NewExecuteHandler(runner RoutineRunner) *ExecuteHandler {
	return &ExecuteHandler{runner: runner}
}

// Execute runs the integration of a routine and returns its result.
// POST /api/execute
func (h *ExecuteHandler) Execute(c *gin.Context) {
	var req models.ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request", err)
		return
	}

	ctx := c.Request.Context()
	logger := logging.FromContext(ctx).With("routine_id", req.RoutineID)

	result, err := h.runner.Run(ctx, req.RoutineID)
	if err == nil {
		respondOK(c, http.StatusOK, result)
		return
	}

	var cfgErr *services.ConfigError
	switch {
	case errors.Is(err, services.ErrRoutineNotFound):
		logger.WarnContext(ctx, "execute: routine not found")
		respondError(c, http.StatusNotFound, "routine not found")
	case errors.Is(err, services.ErrNoIntegration):
		logger.WarnContext(ctx, "execute: no integration")
		respondError(c, http.StatusBadRequest, "routine has no integration")
	case errors.Is(err, services.ErrIntegrationDisabled):
		logger.WarnContext(ctx, "execute: integration disabled")
		respondError(c, http.StatusBadRequest, "integration is disabled")
	case errors.Is(err, executor.ErrUnknownExecutor):
		logger.WarnContext(ctx, "execute: unknown executor", "error", err)
		respondError(c, http.StatusBadRequest, "unknown executor type")
	case errors.As(err, &cfgErr):
		logger.WarnContext(ctx, "execute: invalid integration config", "errors", cfgErr.Errors)
		respondError(c, http.StatusBadRequest, "invalid integration config", cfgErr.Errors...)
	case errors.Is(err, services.ErrExecutorUnavailable):
		logger.WarnContext(ctx, "execute: executor unavailable", "error", err)
		respondError(c, http.StatusServiceUnavailable, "executor is not available")
	default:
		internalError(c, "execution failed", err)
	}
}
