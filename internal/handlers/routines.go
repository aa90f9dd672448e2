package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/routinekit/routinekit/internal/executor"
	"github.com/routinekit/routinekit/internal/models"
	"github.com/routinekit/routinekit/internal/services"
	"github.com/routinekit/routinekit/internal/validation"
)

// RoutineHandler handles HTTP requests for routines and goals.
type RoutineHandler struct {
	routines  *services.RoutineService
	goals     *services.GoalService
	executors services.ExecutorLookup
}

// NewRoutineHandler creates a new RoutineHandler instance.
func NewRoutineHandler(routines *services.RoutineService, goals *services.GoalService, executors services.ExecutorLookup) *RoutineHandler {
	return &RoutineHandler{routines: routines, goals: goals, executors: executors}
}

// List returns all routines, optionally filtered by ?goalId=.
func (h *RoutineHandler) List(c *gin.Context) {
	routines, err := h.routines.ListRoutines(c.Request.Context(), c.Query("goalId"))
	if err != nil {
		internalError(c, "failed to list routines", err)
		return
	}
	respondOK(c, http.StatusOK, routines)
}

// Get returns a single routine by ID.
func (h *RoutineHandler) Get(c *gin.Context) {
	routine, err := h.routines.GetRoutineByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.storeError(c, err)
		return
	}
	respondOK(c, http.StatusOK, routine)
}

// Create creates a new routine.
func (h *RoutineHandler) Create(c *gin.Context) {
	var req models.CreateRoutineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request", err)
		return
	}
	if err := validation.ValidateTitle(req.Title, 200); err != nil {
		badRequest(c, "invalid title", err)
		return
	}
	if err := validation.ValidateBlocks(req.Blocks); err != nil {
		badRequest(c, "invalid blocks", err)
		return
	}
	if !h.checkIntegration(c, req.Integration) {
		return
	}

	routine, err := h.routines.CreateRoutine(c.Request.Context(), &req)
	if err != nil {
		h.storeError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, routine)
}

// Update applies a partial update to a routine.
func (h *RoutineHandler) Update(c *gin.Context) {
	var req models.UpdateRoutineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request", err)
		return
	}
	if req.Title != nil {
		if err := validation.ValidateTitle(*req.Title, 200); err != nil {
			badRequest(c, "invalid title", err)
			return
		}
	}
	if err := validation.ValidateBlocks(req.Blocks); err != nil {
		badRequest(c, "invalid blocks", err)
		return
	}
	if !h.checkIntegration(c, req.Integration) {
		return
	}

	routine, err := h.routines.UpdateRoutine(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.storeError(c, err)
		return
	}
	respondOK(c, http.StatusOK, routine)
}

// Delete deletes a routine and its run history.
func (h *RoutineHandler) Delete(c *gin.Context) {
	if err := h.routines.DeleteRoutine(c.Request.Context(), c.Param("id")); err != nil {
		h.storeError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"deleted": true})
}

// Runs returns the run history of a routine, newest first.
func (h *RoutineHandler) Runs(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			respondError(c, http.StatusBadRequest, "limit must be an integer between 1 and 500")
			return
		}
		limit = n
	}

	if _, err := h.routines.GetRoutineByID(ctx, id); err != nil {
		h.storeError(c, err)
		return
	}

	runs, err := h.routines.ListRuns(ctx, id, limit)
	if err != nil {
		internalError(c, "failed to list runs", err)
		return
	}
	respondOK(c, http.StatusOK, runs)
}

// ListGoals returns all goals.
func (h *RoutineHandler) ListGoals(c *gin.Context) {
	goals, err := h.goals.ListGoals(c.Request.Context())
	if err != nil {
		internalError(c, "failed to list goals", err)
		return
	}
	respondOK(c, http.StatusOK, goals)
}

// GetGoal returns a single goal by ID.
func (h *RoutineHandler) GetGoal(c *gin.Context) {
	goal, err := h.goals.GetGoalByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.storeError(c, err)
		return
	}
	respondOK(c, http.StatusOK, goal)
}

// CreateGoal creates a new goal.
func (h *RoutineHandler) CreateGoal(c *gin.Context) {
	var req models.CreateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request", err)
		return
	}
	if err := validation.ValidateTitle(req.Title, 200); err != nil {
		badRequest(c, "invalid title", err)
		return
	}

	goal, err := h.goals.CreateGoal(c.Request.Context(), &req)
	if err != nil {
		internalError(c, "failed to create goal", err)
		return
	}
	respondOK(c, http.StatusCreated, goal)
}

// DeleteGoal deletes a goal; its routines are kept without a goal.
func (h *RoutineHandler) DeleteGoal(c *gin.Context) {
	if err := h.goals.DeleteGoal(c.Request.Context(), c.Param("id")); err != nil {
		h.storeError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"deleted": true})
}

// checkIntegration rejects unknown executor types and configs the executor
// does not accept. It writes the response and returns false on rejection.
func (h *RoutineHandler) checkIntegration(c *gin.Context, in *models.IntegrationRequest) bool {
	if in == nil || h.executors == nil {
		return true
	}

	exec, err := h.executors.Get(in.ExecutorType)
	if errors.Is(err, executor.ErrUnknownExecutor) {
		respondError(c, http.StatusBadRequest, "unknown executor type", in.ExecutorType)
		return false
	}
	if err != nil {
		internalError(c, "executor lookup failed", err)
		return false
	}

	if v := exec.ValidateConfig(in.Config); !v.Valid {
		respondError(c, http.StatusBadRequest, "invalid integration config", v.Errors...)
		return false
	}
	return true
}

func (h *RoutineHandler) storeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrRoutineNotFound):
		respondError(c, http.StatusNotFound, "routine not found")
	case errors.Is(err, services.ErrGoalNotFound):
		respondError(c, http.StatusNotFound, "goal not found")
	default:
		internalError(c, "storage error", err)
	}
}
