package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/routinekit/routinekit/internal/database"
	"github.com/routinekit/routinekit/internal/models"
)

// GoalService manages goals.
type GoalService struct {
	db *database.DB
}

// NewGoalService creates a new GoalService instance.
func NewGoalService(db *database.DB) *GoalService {
	return &GoalService{db: db}
}

// CreateGoal creates a new goal.
func (s *GoalService) CreateGoal(ctx context.Context, req *models.CreateGoalRequest) (*models.Goal, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO goals (id, title, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		id, req.Title, req.Description, now, now,
	)
	if err != nil {
		return nil, err
	}

	return s.GetGoalByID(ctx, id)
}

// GetGoalByID retrieves a goal by its ID.
func (s *GoalService) GetGoalByID(ctx context.Context, id string) (*models.Goal, error) {
	var g models.Goal
	err := s.db.QueryRowContext(ctx,
		"SELECT id, title, description, created_at, updated_at FROM goals WHERE id = ?",
		id,
	).Scan(&g.ID, &g.Title, &g.Description, &g.CreatedAt, &g.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGoalNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// ListGoals returns all goals ordered by title.
func (s *GoalService) ListGoals(ctx context.Context) ([]models.Goal, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, title, description, created_at, updated_at FROM goals ORDER BY title",
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	goals := []models.Goal{}
	for rows.Next() {
		var g models.Goal
		if err := rows.Scan(&g.ID, &g.Title, &g.Description, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

// DeleteGoal deletes a goal. Linked routines keep existing with no goal.
func (s *GoalService) DeleteGoal(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "UPDATE routines SET goal_id = NULL WHERE goal_id = ?", id); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM goals WHERE id = ?", id)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrGoalNotFound
	}
	return nil
}
