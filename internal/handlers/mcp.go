package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/routinekit/routinekit/internal/models"
	"github.com/routinekit/routinekit/internal/registry"
)

// ServerRegistry looks up MCP servers.
type ServerRegistry interface {
	Search(ctx context.Context, p registry.SearchParams) (*models.MCPServerList, error)
	Get(ctx context.Context, name string) (*models.MCPServer, error)
}

// MCPHandler proxies the MCP server registry.
type MCPHandler struct {
	registry ServerRegistry
}

// NewMCPHandler creates a new MCPHandler instance.
func NewMCPHandler(r ServerRegistry) *MCPHandler {
	return &MCPHandler{registry: r}
}

type mcpQuery struct {
	Search string `form:"search" binding:"max=200"`
	Cursor string `form:"cursor" binding:"max=500"`
	Name   string `form:"name" binding:"max=200"`
	Limit  *int   `form:"limit" binding:"omitempty,min=1,max=100"`
}

// Servers returns one server when name is given, otherwise a page of servers.
// GET /api/mcp
func (h *MCPHandler) Servers(c *gin.Context) {
	var q mcpQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid query", err)
		return
	}

	ctx := c.Request.Context()

	if q.Name != "" {
		server, err := h.registry.Get(ctx, q.Name)
		if errors.Is(err, registry.ErrServerNotFound) {
			respondError(c, http.StatusNotFound, "server not found")
			return
		}
		if err != nil {
			internalError(c, "registry lookup failed", err)
			return
		}
		respondOK(c, http.StatusOK, server)
		return
	}

	params := registry.SearchParams{Search: q.Search, Cursor: q.Cursor}
	if q.Limit != nil {
		params.Limit = *q.Limit
	}

	list, err := h.registry.Search(ctx, params)
	if err != nil {
		internalError(c, "registry search failed", err)
		return
	}
	if list.Servers == nil {
		list.Servers = []models.MCPServer{}
	}
	respondOK(c, http.StatusOK, list)
}
