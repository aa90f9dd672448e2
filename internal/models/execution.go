package models

import "time"

// ExecuteRequest is the body of POST /execute.
type ExecuteRequest struct {
	RoutineID string `json:"routineId" binding:"required,max=64"`
}

// ExecutionResult is what an executor reports for one attempt.
type ExecutionResult struct {
	CompletedAt time.Time      `json:"completedAt"`
	ExitCode    *int           `json:"exitCode,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	Output      string         `json:"output,omitempty"`
	Error       string         `json:"error,omitempty"`
	ExternalURL string         `json:"externalUrl,omitempty"`
	Success     bool           `json:"success"`
}

// Outcome maps the success flag to a RunResult.
func (r *ExecutionResult) Outcome() RunResult {
	if r.Success {
		return RunSuccess
	}
	return RunFailure
}

// ValidationResult is the outcome of an executor config check.
type ValidationResult struct {
	Errors []string `json:"errors"`
	Valid  bool     `json:"valid"`
}

// IntegrationRun is a recorded execution attempt of a routine's integration.
type IntegrationRun struct {
	CompletedAt  time.Time `json:"completedAt"`
	CreatedAt    time.Time `json:"createdAt"`
	ID           string    `json:"id"`
	RoutineID    string    `json:"routineId"`
	ExecutorType string    `json:"executorType"`
	Output       string    `json:"output"`
	Error        string    `json:"error"`
	Success      bool      `json:"success"`
}

// ExecutorInfo describes a registered executor type.
type ExecutorInfo struct {
	Type      string `json:"type"`
	Available bool   `json:"available"`
}
