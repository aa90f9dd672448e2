// Package models defines the data models shared by services and handlers.
package models

import "time"

// RunResult is the outcome tag stored on an integration after a run.
type RunResult string

const (
	// RunSuccess marks a run whose executor reported success.
	RunSuccess RunResult = "success"
	// RunFailure marks a run whose executor reported failure.
	RunFailure RunResult = "failure"
)

// Goal is a long-term objective routines can be linked to.
type Goal struct {
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
}

// Routine is a user-defined recurring task.
type Routine struct {
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	GoalID      *string      `json:"goalId"`
	Integration *Integration `json:"integration"`
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Blocks      []Block      `json:"blocks"`
}

// Integration binds a routine to an executor.
type Integration struct {
	Config       map[string]any `json:"config"`
	LastRun      *time.Time     `json:"lastRun"`
	LastResult   *RunResult     `json:"lastResult"`
	ExecutorType string         `json:"executorType"`
	Enabled      bool           `json:"enabled"`
}

// Block is one step of a routine.
type Block struct {
	Type            string `json:"type" binding:"required,max=50"`
	Title           string `json:"title" binding:"required,max=200"`
	Content         string `json:"content,omitempty" binding:"max=5000"`
	DurationMinutes int    `json:"durationMinutes,omitempty" binding:"min=0,max=1440"`
}

// CreateGoalRequest contains the data for creating a goal.
type CreateGoalRequest struct {
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description" binding:"max=2000"`
}

// CreateRoutineRequest contains the data for creating a routine.
type CreateRoutineRequest struct {
	GoalID      *string             `json:"goalId"`
	Integration *IntegrationRequest `json:"integration"`
	Title       string              `json:"title" binding:"required,max=200"`
	Description string              `json:"description" binding:"max=2000"`
	Blocks      []Block             `json:"blocks" binding:"omitempty,max=100,dive"`
}

// UpdateRoutineRequest contains the fields to change on a routine. Nil fields are left untouched.
type UpdateRoutineRequest struct {
	Title       *string             `json:"title" binding:"omitempty,min=1,max=200"`
	Description *string             `json:"description" binding:"omitempty,max=2000"`
	GoalID      *string             `json:"goalId"`
	Blocks      []Block             `json:"blocks" binding:"omitempty,max=100,dive"`
	Integration *IntegrationRequest `json:"integration"`
}

// IntegrationRequest configures the executor binding of a routine.
type IntegrationRequest struct {
	Config       map[string]any `json:"config"`
	ExecutorType string         `json:"executorType" binding:"required"`
	Enabled      bool           `json:"enabled"`
}
