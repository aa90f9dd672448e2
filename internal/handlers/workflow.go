package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/routinekit/routinekit/internal/executor"
	"github.com/routinekit/routinekit/internal/services"
)

// WorkflowHandler renders the GitHub Actions workflow for a routine.
type WorkflowHandler struct {
	routines *services.RoutineService
}

// NewWorkflowHandler creates a new WorkflowHandler instance.
func NewWorkflowHandler(routines *services.RoutineService) *WorkflowHandler {
	return &WorkflowHandler{routines: routines}
}

type workflowQuery struct {
	Command  string `form:"command" binding:"max=4000"`
	Schedule string `form:"schedule" binding:"max=100"`
}

// Workflow returns the workflow YAML as a download.
// GET /api/routines/:id/workflow
func (h *WorkflowHandler) Workflow(c *gin.Context) {
	var q workflowQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid query", err)
		return
	}

	routine, err := h.routines.GetRoutineByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrRoutineNotFound) {
			respondError(c, http.StatusNotFound, "routine not found")
			return
		}
		internalError(c, "failed to load routine", err)
		return
	}

	out, err := executor.RenderWorkflow(executor.WorkflowParams{
		RoutineID:    routine.ID,
		RoutineTitle: routine.Title,
		Command:      q.Command,
		Schedule:     q.Schedule,
	})
	if err != nil {
		internalError(c, "failed to render workflow", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, executor.WorkflowFileName(routine.ID)))
	c.Data(http.StatusOK, "application/yaml; charset=utf-8", []byte(out))
}
