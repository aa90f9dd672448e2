package handlers_test

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/routinekit/routinekit/internal/handlers"
	"github.com/routinekit/routinekit/internal/models"
	"github.com/routinekit/routinekit/internal/palette"
)

func TestPaletteHandler(t *testing.T) {
	h := handlers.NewPaletteHandler()
	router := gin.New()
	router.GET("/api/palettes", h.List)
	router.GET("/api/palettes/:name", h.Get)

	w, resp := doJSON(t, router, "GET", "/api/palettes", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var names struct {
		Names []string `json:"names"`
	}
	if err := json.Unmarshal(resp.Data, &names); err != nil {
		t.Fatalf("failed to parse names: %v", err)
	}
	if len(names.Names) != len(palette.Names()) {
		t.Errorf("expected %d names, got %d", len(palette.Names()), len(names.Names))
	}

	w, resp = doJSON(t, router, "GET", "/api/palettes/ocean", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var p palette.Palette
	if err := json.Unmarshal(resp.Data, &p); err != nil {
		t.Fatalf("failed to parse palette: %v", err)
	}
	if p.Name != "ocean" || len(p.Shades) == 0 {
		t.Errorf("unexpected palette: %+v", p)
	}

	if w, _ := doJSON(t, router, "GET", "/api/palettes/neon", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}

	w, resp = doJSON(t, router, "GET", "/api/palettes?base=%2300aa88", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200 for generated palette, got %d", w.Code)
	}
	if err := json.Unmarshal(resp.Data, &p); err != nil || len(p.Shades) == 0 {
		t.Errorf("expected generated shades, got %s", resp.Data)
	}

	if w, _ := doJSON(t, router, "GET", "/api/palettes?base=blue", nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for invalid color, got %d", w.Code)
	}
}

func TestWorkflowHandler(t *testing.T) {
	env := newTestEnv(t)
	r := env.createRoutine(t, "Backup photos", nil)

	router := gin.New()
	router.GET("/api/routines/:id/workflow", handlers.NewWorkflowHandler(env.routines).Workflow)

	w, _ := doJSON(t, router, "GET", "/api/routines/"+r.ID+"/workflow?command=make+backup&schedule=0+6+*+*+*", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/yaml") {
		t.Errorf("expected yaml content type, got %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Errorf("expected attachment disposition, got %q", cd)
	}
	body := w.Body.String()
	for _, want := range []string{"make backup", "0 6 * * *", r.ID} {
		if !strings.Contains(body, want) {
			t.Errorf("expected workflow to contain %q", want)
		}
	}

	if w, _ := doJSON(t, router, "GET", "/api/routines/missing/workflow", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestSystemHandler(t *testing.T) {
	env := newTestEnv(t)
	env.exec.available = false
	h := handlers.NewSystemHandler(env.registry)

	router := gin.New()
	router.GET("/api/version", h.Version)
	router.GET("/api/executors", h.Executors)

	w, resp := doJSON(t, router, "GET", "/api/version", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var info map[string]any
	if err := json.Unmarshal(resp.Data, &info); err != nil {
		t.Fatalf("failed to parse version: %v", err)
	}
	if _, ok := info["version"]; !ok {
		t.Error("expected version field")
	}

	w, resp = doJSON(t, router, "GET", "/api/executors", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var infos []models.ExecutorInfo
	if err := json.Unmarshal(resp.Data, &infos); err != nil {
		t.Fatalf("failed to parse executors: %v", err)
	}
	if len(infos) != 1 || infos[0].Type != "test" || infos[0].Available {
		t.Errorf("unexpected executors: %+v", infos)
	}
}
