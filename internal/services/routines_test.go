package services_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routinekit/routinekit/internal/database"
	"github.com/routinekit/routinekit/internal/models"
	"github.com/routinekit/routinekit/internal/services"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())
	return db
}

func strPtr(s string) *string { return &s }

func TestRoutineService_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	goals := services.NewGoalService(db)
	svc := services.NewRoutineService(db, nil)

	goal, err := goals.CreateGoal(ctx, &models.CreateGoalRequest{Title: "Health"})
	require.NoError(t, err)

	created, err := svc.CreateRoutine(ctx, &models.CreateRoutineRequest{
		Title:  "Morning",
		GoalID: &goal.ID,
		Blocks: []models.Block{{Type: "task", Title: "Stretch", DurationMinutes: 10}},
		Integration: &models.IntegrationRequest{
			ExecutorType: "webhook",
			Enabled:      true,
			Config:       map[string]any{"url": "https://example.com"},
		},
	})
	require.NoError(t, err)

	got, err := svc.GetRoutineByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Morning", got.Title)
	require.NotNil(t, got.GoalID)
	assert.Equal(t, goal.ID, *got.GoalID)
	require.Len(t, got.Blocks, 1)
	assert.Equal(t, "Stretch", got.Blocks[0].Title)
	require.NotNil(t, got.Integration)
	assert.Equal(t, "https://example.com", got.Integration.Config["url"])
	assert.Nil(t, got.Integration.LastRun)
}

func TestRoutineService_CreateWithUnknownGoal(t *testing.T) {
	svc := services.NewRoutineService(setupTestDB(t), nil)

	_, err := svc.CreateRoutine(context.Background(), &models.CreateRoutineRequest{
		Title:  "Orphan",
		GoalID: strPtr("nope"),
	})
	assert.ErrorIs(t, err, services.ErrGoalNotFound)
}

func TestRoutineService_ListFiltersByGoal(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	goal, err := services.NewGoalService(db).CreateGoal(ctx, &models.CreateGoalRequest{Title: "Fitness"})
	require.NoError(t, err)
	svc := services.NewRoutineService(db, nil)

	_, err = svc.CreateRoutine(ctx, &models.CreateRoutineRequest{Title: "Run", GoalID: &goal.ID})
	require.NoError(t, err)
	_, err = svc.CreateRoutine(ctx, &models.CreateRoutineRequest{Title: "Read"})
	require.NoError(t, err)

	all, err := svc.ListRoutines(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Read", all[0].Title)

	filtered, err := svc.ListRoutines(ctx, goal.ID)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Run", filtered[0].Title)
}

func TestRoutineService_UpdatePreservesRunMetadata(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	svc := services.NewRoutineService(db, nil)

	r, err := svc.CreateRoutine(ctx, &models.CreateRoutineRequest{
		Title:       "Evening",
		Integration: &models.IntegrationRequest{ExecutorType: "webhook", Enabled: true},
	})
	require.NoError(t, err)

	_, err = svc.RecordRun(ctx, r, &models.ExecutionResult{Success: true})
	require.NoError(t, err)

	updated, err := svc.UpdateRoutine(ctx, r.ID, &models.UpdateRoutineRequest{
		Title: strPtr("Evening wind-down"),
		Integration: &models.IntegrationRequest{
			ExecutorType: "webhook",
			Enabled:      false,
			Config:       map[string]any{"url": "https://example.org"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Evening wind-down", updated.Title)
	assert.False(t, updated.Integration.Enabled)
	require.NotNil(t, updated.Integration.LastResult)
	assert.Equal(t, models.RunSuccess, *updated.Integration.LastResult)

	switched, err := svc.UpdateRoutine(ctx, r.ID, &models.UpdateRoutineRequest{
		Integration: &models.IntegrationRequest{ExecutorType: "script", Enabled: true},
	})
	require.NoError(t, err)
	assert.Nil(t, switched.Integration.LastRun)
}

func TestRoutineService_UpdateClearsGoal(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	goal, err := services.NewGoalService(db).CreateGoal(ctx, &models.CreateGoalRequest{Title: "Calm"})
	require.NoError(t, err)
	svc := services.NewRoutineService(db, nil)

	r, err := svc.CreateRoutine(ctx, &models.CreateRoutineRequest{Title: "Meditate", GoalID: &goal.ID})
	require.NoError(t, err)

	updated, err := svc.UpdateRoutine(ctx, r.ID, &models.UpdateRoutineRequest{GoalID: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, updated.GoalID)
}

func TestRoutineService_Delete(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	svc := services.NewRoutineService(db, nil)

	r, err := svc.CreateRoutine(ctx, &models.CreateRoutineRequest{
		Title:       "Temp",
		Integration: &models.IntegrationRequest{ExecutorType: "webhook", Enabled: true},
	})
	require.NoError(t, err)
	_, err = svc.RecordRun(ctx, r, &models.ExecutionResult{Success: false, Error: "x"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteRoutine(ctx, r.ID))
	_, err = svc.GetRoutineByID(ctx, r.ID)
	assert.ErrorIs(t, err, services.ErrRoutineNotFound)
	assert.ErrorIs(t, svc.DeleteRoutine(ctx, r.ID), services.ErrRoutineNotFound)

	runs, err := svc.ListRuns(ctx, r.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRoutineService_UpdateIntegrationMissingRoutine(t *testing.T) {
	svc := services.NewRoutineService(setupTestDB(t), nil)
	err := svc.UpdateIntegration(context.Background(), "missing", &models.Integration{ExecutorType: "script"})
	assert.ErrorIs(t, err, services.ErrRoutineNotFound)
}

func TestRoutineService_RecordRunWithoutIntegration(t *testing.T) {
	svc := services.NewRoutineService(setupTestDB(t), nil)
	_, err := svc.RecordRun(context.Background(), &models.Routine{ID: "r"}, &models.ExecutionResult{})
	assert.Error(t, err)
}

func TestRoutineService_RecordRunIgnoresStaleSnapshot(t *testing.T) {
	svc := services.NewRoutineService(setupTestDB(t), nil)
	ctx := context.Background()

	snapshot, err := svc.CreateRoutine(ctx, &models.CreateRoutineRequest{
		Title: "Nightly",
		Integration: &models.IntegrationRequest{
			ExecutorType: "webhook",
			Enabled:      true,
			Config:       map[string]any{"url": "https://old.example.org"},
		},
	})
	require.NoError(t, err)

	_, err = svc.UpdateRoutine(ctx, snapshot.ID, &models.UpdateRoutineRequest{
		Integration: &models.IntegrationRequest{
			ExecutorType: "webhook",
			Enabled:      false,
			Config:       map[string]any{"url": "https://new.example.org"},
		},
	})
	require.NoError(t, err)

	run, err := svc.RecordRun(ctx, snapshot, &models.ExecutionResult{Success: true, CompletedAt: time.Now().UTC()})
	require.NoError(t, err)
	assert.Equal(t, "webhook", run.ExecutorType)

	stored, err := svc.GetRoutineByID(ctx, snapshot.ID)
	require.NoError(t, err)
	assert.False(t, stored.Integration.Enabled)
	assert.Equal(t, "https://new.example.org", stored.Integration.Config["url"])
	assert.Equal(t, models.RunSuccess, *stored.Integration.LastResult)
}

func TestRoutineService_EncryptsIntegrationAtRest(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	crypto, err := services.NewCryptoServiceFromSecret("at-rest secret")
	require.NoError(t, err)
	svc := services.NewRoutineService(db, crypto)

	r, err := svc.CreateRoutine(ctx, &models.CreateRoutineRequest{
		Title: "Deploy notes",
		Integration: &models.IntegrationRequest{
			ExecutorType: "webhook",
			Enabled:      true,
			Config:       map[string]any{"headers": map[string]any{"Authorization": "Bearer s3cr3t"}},
		},
	})
	require.NoError(t, err)

	var raw string
	require.NoError(t, db.QueryRowContext(ctx, "SELECT integration FROM routines WHERE id = ?", r.ID).Scan(&raw))
	assert.True(t, strings.HasPrefix(raw, "enc:"))
	assert.NotContains(t, raw, "s3cr3t")

	got, err := svc.GetRoutineByID(ctx, r.ID)
	require.NoError(t, err)
	headers := got.Integration.Config["headers"].(map[string]any)
	assert.Equal(t, "Bearer s3cr3t", headers["Authorization"])

	// Without the key the encrypted value cannot be read back.
	plain := services.NewRoutineService(db, nil)
	_, err = plain.GetRoutineByID(ctx, r.ID)
	assert.Error(t, err)
}

func TestGoalService(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	goals := services.NewGoalService(db)
	routines := services.NewRoutineService(db, nil)

	b, err := goals.CreateGoal(ctx, &models.CreateGoalRequest{Title: "Sleep", Description: "8 hours"})
	require.NoError(t, err)
	_, err = goals.CreateGoal(ctx, &models.CreateGoalRequest{Title: "Learn"})
	require.NoError(t, err)

	list, err := goals.ListGoals(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Learn", list[0].Title)

	got, err := goals.GetGoalByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "8 hours", got.Description)

	r, err := routines.CreateRoutine(ctx, &models.CreateRoutineRequest{Title: "Lights out", GoalID: &b.ID})
	require.NoError(t, err)

	require.NoError(t, goals.DeleteGoal(ctx, b.ID))
	_, err = goals.GetGoalByID(ctx, b.ID)
	assert.ErrorIs(t, err, services.ErrGoalNotFound)
	assert.ErrorIs(t, goals.DeleteGoal(ctx, b.ID), services.ErrGoalNotFound)

	orphan, err := routines.GetRoutineByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Nil(t, orphan.GoalID)
}
