// Package services provides the routine store and the integration execution pipeline.
package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/routinekit/routinekit/internal/database"
	"github.com/routinekit/routinekit/internal/models"
)

const encryptedPrefix = "enc:"

var (
	// ErrRoutineNotFound indicates the requested routine was not found.
	ErrRoutineNotFound = errors.New("routine not found")
	// ErrGoalNotFound indicates the requested goal was not found.
	ErrGoalNotFound = errors.New("goal not found")
)

// RoutineService manages routines, their integrations and run history.
type RoutineService struct {
	db     *database.DB
	crypto *CryptoService
}

// NewRoutineService creates a new RoutineService. crypto may be nil, in which
// case integration config is stored in clear text.
func NewRoutineService(db *database.DB, crypto *CryptoService) *RoutineService {
	return &RoutineService{db: db, crypto: crypto}
}

const routineColumns = "id, title, description, goal_id, blocks, integration, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *RoutineService) scanRoutine(row rowScanner) (*models.Routine, error) {
	var r models.Routine
	var goalID, integration sql.NullString
	var blocks string

	if err := row.Scan(&r.ID, &r.Title, &r.Description, &goalID, &blocks, &integration, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}

	if goalID.Valid {
		r.GoalID = &goalID.String
	}

	r.Blocks = []models.Block{}
	if blocks != "" {
		if err := json.Unmarshal([]byte(blocks), &r.Blocks); err != nil {
			return nil, fmt.Errorf("routine %s has corrupt blocks: %w", r.ID, err)
		}
	}

	if integration.Valid && integration.String != "" {
		in, err := s.decodeIntegration(integration.String)
		if err != nil {
			return nil, fmt.Errorf("routine %s has corrupt integration: %w", r.ID, err)
		}
		r.Integration = in
	}

	return &r, nil
}

func (s *RoutineService) encodeIntegration(in *models.Integration) (sql.NullString, error) {
	if in == nil {
		return sql.NullString{}, nil
	}

	data, err := json.Marshal(in)
	if err != nil {
		return sql.NullString{}, err
	}

	value := string(data)
	if s.crypto != nil {
		encrypted, err := s.crypto.Encrypt(value)
		if err != nil {
			return sql.NullString{}, err
		}
		value = encryptedPrefix + encrypted
	}
	return sql.NullString{String: value, Valid: true}, nil
}

func (s *RoutineService) decodeIntegration(value string) (*models.Integration, error) {
	if strings.HasPrefix(value, encryptedPrefix) {
		if s.crypto == nil {
			return nil, errors.New("integration is encrypted but no encryption key is configured")
		}
		plaintext, err := s.crypto.Decrypt(strings.TrimPrefix(value, encryptedPrefix))
		if err != nil {
			return nil, err
		}
		value = plaintext
	}

	var in models.Integration
	if err := json.Unmarshal([]byte(value), &in); err != nil {
		return nil, err
	}
	if in.Config == nil {
		in.Config = map[string]any{}
	}
	return &in, nil
}

func encodeBlocks(blocks []models.Block) (string, error) {
	if blocks == nil {
		blocks = []models.Block{}
	}
	data, err := json.Marshal(blocks)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func integrationFromRequest(req *models.IntegrationRequest, previous *models.Integration) *models.Integration {
	in := &models.Integration{
		Enabled:      req.Enabled,
		ExecutorType: req.ExecutorType,
		Config:       req.Config,
	}
	if in.Config == nil {
		in.Config = map[string]any{}
	}
	// Run metadata survives config edits as long as the executor stays the same.
	if previous != nil && previous.ExecutorType == req.ExecutorType {
		in.LastRun = previous.LastRun
		in.LastResult = previous.LastResult
	}
	return in
}

func (s *RoutineService) ensureGoal(ctx context.Context, goalID *string) error {
	if goalID == nil || *goalID == "" {
		return nil
	}
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM goals WHERE id = ?", *goalID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrGoalNotFound
	}
	return err
}

// CreateRoutine creates a new routine.
func (s *RoutineService) CreateRoutine(ctx context.Context, req *models.CreateRoutineRequest) (*models.Routine, error) {
	if err := s.ensureGoal(ctx, req.GoalID); err != nil {
		return nil, err
	}

	blocks, err := encodeBlocks(req.Blocks)
	if err != nil {
		return nil, err
	}

	var integration sql.NullString
	if req.Integration != nil {
		integration, err = s.encodeIntegration(integrationFromRequest(req.Integration, nil))
		if err != nil {
			return nil, err
		}
	}

	id := uuid.New().String()
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO routines ("+routineColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		id, req.Title, req.Description, nullableString(req.GoalID), blocks, integration, now, now,
	)
	if err != nil {
		return nil, err
	}

	return s.GetRoutineByID(ctx, id)
}

// GetRoutineByID retrieves a routine by its ID.
func (s *RoutineService) GetRoutineByID(ctx context.Context, id string) (*models.Routine, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+routineColumns+" FROM routines WHERE id = ?", id)
	r, err := s.scanRoutine(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoutineNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListRoutines returns routines ordered by title, optionally filtered by goal.
func (s *RoutineService) ListRoutines(ctx context.Context, goalID string) ([]models.Routine, error) {
	query := "SELECT " + routineColumns + " FROM routines"
	var args []any
	if goalID != "" {
		query += " WHERE goal_id = ?"
		args = append(args, goalID)
	}
	query += " ORDER BY title"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	routines := []models.Routine{}
	for rows.Next() {
		r, err := s.scanRoutine(rows)
		if err != nil {
			return nil, err
		}
		routines = append(routines, *r)
	}
	return routines, rows.Err()
}

// UpdateRoutine applies the non-nil fields of req to a routine.
func (s *RoutineService) UpdateRoutine(ctx context.Context, id string, req *models.UpdateRoutineRequest) (*models.Routine, error) {
	r, err := s.GetRoutineByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		r.Title = *req.Title
	}
	if req.Description != nil {
		r.Description = *req.Description
	}
	if req.GoalID != nil {
		if err := s.ensureGoal(ctx, req.GoalID); err != nil {
			return nil, err
		}
		if *req.GoalID == "" {
			r.GoalID = nil
		} else {
			r.GoalID = req.GoalID
		}
	}
	if req.Blocks != nil {
		r.Blocks = req.Blocks
	}
	if req.Integration != nil {
		r.Integration = integrationFromRequest(req.Integration, r.Integration)
	}

	blocks, err := encodeBlocks(r.Blocks)
	if err != nil {
		return nil, err
	}
	integration, err := s.encodeIntegration(r.Integration)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		"UPDATE routines SET title = ?, description = ?, goal_id = ?, blocks = ?, integration = ?, updated_at = ? WHERE id = ?",
		r.Title, r.Description, nullableString(r.GoalID), blocks, integration, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, err
	}

	return s.GetRoutineByID(ctx, id)
}

// UpdateIntegration overwrites the integration field of a routine. Concurrent
// writers are not detected; the last write wins.
func (s *RoutineService) UpdateIntegration(ctx context.Context, id string, in *models.Integration) error {
	integration, err := s.encodeIntegration(in)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE routines SET integration = ?, updated_at = ? WHERE id = ?",
		integration, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrRoutineNotFound
	}
	return nil
}

// DeleteRoutine deletes a routine and its run history.
func (s *RoutineService) DeleteRoutine(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM integration_runs WHERE routine_id = ?", id); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM routines WHERE id = ?", id)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrRoutineNotFound
	}
	return nil
}

// RecordRun stores the outcome of an execution on the routine's integration
// and appends it to the run history. The integration is re-read inside the
// transaction and only lastRun and lastResult are changed, so edits made while
// the executor was running are kept.
func (s *RoutineService) RecordRun(ctx context.Context, routine *models.Routine, result *models.ExecutionResult) (*models.IntegrationRun, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var stored sql.NullString
	err = tx.QueryRowContext(ctx, s.db.Rebind("SELECT integration FROM routines WHERE id = ?"), routine.ID).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoutineNotFound
	}
	if err != nil {
		return nil, err
	}
	if !stored.Valid || stored.String == "" {
		return nil, fmt.Errorf("routine %s has no integration", routine.ID)
	}

	in, err := s.decodeIntegration(stored.String)
	if err != nil {
		return nil, fmt.Errorf("routine %s has corrupt integration: %w", routine.ID, err)
	}

	completedAt := result.CompletedAt
	outcome := result.Outcome()
	in.LastRun = &completedAt
	in.LastResult = &outcome

	encoded, err := s.encodeIntegration(in)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		s.db.Rebind("UPDATE routines SET integration = ?, updated_at = ? WHERE id = ?"),
		encoded, now, routine.ID,
	); err != nil {
		return nil, err
	}

	executorType := in.ExecutorType
	if routine.Integration != nil {
		executorType = routine.Integration.ExecutorType
	}

	run := &models.IntegrationRun{
		ID:           uuid.New().String(),
		RoutineID:    routine.ID,
		ExecutorType: executorType,
		Success:      result.Success,
		Output:       result.Output,
		Error:        result.Error,
		CompletedAt:  completedAt.UTC(),
		CreatedAt:    now,
	}

	if _, err := tx.ExecContext(ctx,
		s.db.Rebind("INSERT INTO integration_runs (id, routine_id, executor_type, success, output, error, completed_at, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"),
		run.ID, run.RoutineID, run.ExecutorType, run.Success, run.Output, run.Error, run.CompletedAt, run.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to append run history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	routine.Integration = in
	return run, nil
}

// ListRuns returns the most recent runs of a routine, newest first.
func (s *RoutineService) ListRuns(ctx context.Context, routineID string, limit int) ([]models.IntegrationRun, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, routine_id, executor_type, success, output, error, completed_at, created_at
		FROM integration_runs
		WHERE routine_id = ?
		ORDER BY completed_at DESC
		LIMIT ?
	`, routineID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	runs := []models.IntegrationRun{}
	for rows.Next() {
		var run models.IntegrationRun
		if err := rows.Scan(&run.ID, &run.RoutineID, &run.ExecutorType, &run.Success, &run.Output, &run.Error, &run.CompletedAt, &run.CreatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func nullableString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
