package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/routinekit/routinekit/internal/handlers"
	"github.com/routinekit/routinekit/internal/models"
	"github.com/routinekit/routinekit/internal/registry"
)

type fakeRegistry struct {
	servers    map[string]models.MCPServer
	lastSearch *registry.SearchParams
}

func (f *fakeRegistry) Search(_ context.Context, p registry.SearchParams) (*models.MCPServerList, error) {
	f.lastSearch = &p
	list := &models.MCPServerList{}
	for _, s := range f.servers {
		list.Servers = append(list.Servers, s)
	}
	return list, nil
}

func (f *fakeRegistry) Get(_ context.Context, name string) (*models.MCPServer, error) {
	s, ok := f.servers[name]
	if !ok {
		return nil, registry.ErrServerNotFound
	}
	return &s, nil
}

func setupMCPRouter(r handlers.ServerRegistry) *gin.Engine {
	router := gin.New()
	router.GET("/api/mcp", handlers.NewMCPHandler(r).Servers)
	return router
}

func TestMCPHandler_GetByName(t *testing.T) {
	fake := &fakeRegistry{servers: map[string]models.MCPServer{
		"io.github.octo/notes": {Name: "io.github.octo/notes", Version: "1.2.0"},
	}}
	router := setupMCPRouter(fake)

	w, resp := doJSON(t, router, "GET", "/api/mcp?name=io.github.octo%2Fnotes", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var server models.MCPServer
	if err := json.Unmarshal(resp.Data, &server); err != nil {
		t.Fatalf("failed to parse server: %v", err)
	}
	if server.Version != "1.2.0" {
		t.Errorf("expected version 1.2.0, got %q", server.Version)
	}

	w, resp = doJSON(t, router, "GET", "/api/mcp?name=missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
	if resp.Error != "server not found" {
		t.Errorf("unexpected error %q", resp.Error)
	}
	if fake.lastSearch != nil {
		t.Error("expected name lookup not to search")
	}
}

func TestMCPHandler_List(t *testing.T) {
	fake := &fakeRegistry{}
	router := setupMCPRouter(fake)

	w, resp := doJSON(t, router, "GET", "/api/mcp?search=notes&limit=5&cursor=abc", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var list struct {
		Servers []models.MCPServer `json:"servers"`
	}
	if err := json.Unmarshal(resp.Data, &list); err != nil {
		t.Fatalf("failed to parse list: %v", err)
	}
	if list.Servers == nil {
		t.Error("expected servers to be an empty array, not null")
	}

	p := fake.lastSearch
	if p == nil || p.Search != "notes" || p.Limit != 5 || p.Cursor != "abc" {
		t.Errorf("unexpected search params: %+v", p)
	}
}

func TestMCPHandler_InvalidLimit(t *testing.T) {
	for _, q := range []string{"limit=0", "limit=101", "limit=abc", "limit=-3"} {
		t.Run(q, func(t *testing.T) {
			fake := &fakeRegistry{}
			w, _ := doJSON(t, setupMCPRouter(fake), "GET", "/api/mcp?"+q, nil)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", w.Code)
			}
			if fake.lastSearch != nil {
				t.Error("expected registry not to be queried")
			}
		})
	}
}
