package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/routinekit/routinekit/internal/database"
	"github.com/routinekit/routinekit/internal/executor"
	"github.com/routinekit/routinekit/internal/models"
	"github.com/routinekit/routinekit/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Details []string        `json:"details"`
}

// testExecutor is a controllable executor registered as "test".
type testExecutor struct {
	available bool
	valid     bool
	success   bool
	err       error
	calls     int
}

func (e *testExecutor) Type() string { return "test" }

func (e *testExecutor) ValidateConfig(cfg map[string]any) models.ValidationResult {
	if !e.valid {
		return models.ValidationResult{Errors: []string{"target is required"}}
	}
	return models.ValidationResult{Valid: true}
}

func (e *testExecutor) IsAvailable(context.Context) bool { return e.available }

func (e *testExecutor) Execute(context.Context, *models.Routine) (*models.ExecutionResult, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	res := &models.ExecutionResult{Success: e.success, CompletedAt: time.Now().UTC()}
	if !e.success {
		res.Error = "exit status 1"
	}
	return res, nil
}

type testEnv struct {
	db       *database.DB
	routines *services.RoutineService
	goals    *services.GoalService
	exec     *testExecutor
	registry *executor.Registry
	runner   *services.ExecutorService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	exec := &testExecutor{available: true, valid: true, success: true}
	registry := executor.NewRegistry(exec)
	routines := services.NewRoutineService(db, nil)

	return &testEnv{
		db:       db,
		routines: routines,
		goals:    services.NewGoalService(db),
		exec:     exec,
		registry: registry,
		runner:   services.NewExecutorService(routines, registry),
	}
}

func (e *testEnv) createRoutine(t *testing.T, title string, in *models.IntegrationRequest) *models.Routine {
	t.Helper()
	r, err := e.routines.CreateRoutine(context.Background(), &models.CreateRoutineRequest{Title: title, Integration: in})
	if err != nil {
		t.Fatalf("failed to create routine: %v", err)
	}
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") != "" && bytes.HasPrefix(bytes.TrimSpace(w.Body.Bytes()), []byte("{")) {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("failed to parse response %q: %v", w.Body.String(), err)
		}
	}
	return w, env
}
