// Package router wires handlers and middleware into the gin engine.
package router

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/routinekit/routinekit/internal/config"
	"github.com/routinekit/routinekit/internal/executor"
	"github.com/routinekit/routinekit/internal/handlers"
	"github.com/routinekit/routinekit/internal/middleware"
	"github.com/routinekit/routinekit/internal/services"
)

// Deps are the collaborators the API is built from.
type Deps struct {
	Logger    *slog.Logger
	Routines  *services.RoutineService
	Goals     *services.GoalService
	Runner    handlers.RoutineRunner
	Executors *executor.Registry
	Chat      handlers.ChatResponder
	Registry  handlers.ServerRegistry
}

// New builds the HTTP engine.
func New(cfg *config.Config, deps Deps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())

	prefix := r.Group(cfg.Server.PathPrefix)
	prefix.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	systemHandler := handlers.NewSystemHandler(deps.Executors)
	executeHandler := handlers.NewExecuteHandler(deps.Runner)
	chatHandler := handlers.NewChatHandler(deps.Chat)
	mcpHandler := handlers.NewMCPHandler(deps.Registry)
	routineHandler := handlers.NewRoutineHandler(deps.Routines, deps.Goals, deps.Executors)
	paletteHandler := handlers.NewPaletteHandler()
	workflowHandler := handlers.NewWorkflowHandler(deps.Routines)

	api := prefix.Group("/api")
	api.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))
	{
		// Public version endpoint
		api.GET("/version", systemHandler.Version)

		protected := api.Group("")
		protected.Use(middleware.TokenRequired(cfg.Server.APIToken))
		{
			protected.GET("/executors", systemHandler.Executors)

			protected.POST("/execute", executeHandler.Execute)
			protected.POST("/chat", chatHandler.Chat)
			protected.GET("/mcp", mcpHandler.Servers)

			protected.GET("/routines", routineHandler.List)
			protected.POST("/routines", routineHandler.Create)
			protected.GET("/routines/:id", routineHandler.Get)
			protected.PATCH("/routines/:id", routineHandler.Update)
			protected.DELETE("/routines/:id", routineHandler.Delete)
			protected.GET("/routines/:id/runs", routineHandler.Runs)
			protected.GET("/routines/:id/workflow", workflowHandler.Workflow)

			protected.GET("/goals", routineHandler.ListGoals)
			protected.POST("/goals", routineHandler.CreateGoal)
			protected.GET("/goals/:id", routineHandler.GetGoal)
			protected.DELETE("/goals/:id", routineHandler.DeleteGoal)

			protected.GET("/palettes", paletteHandler.List)
			protected.GET("/palettes/:name", paletteHandler.Get)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "not found"})
	})

	return r
}
