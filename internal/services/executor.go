package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/routinekit/routinekit/internal/executor"
	"github.com/routinekit/routinekit/internal/logging"
	"github.com/routinekit/routinekit/internal/models"
)

var (
	// ErrNoIntegration indicates the routine has no integration configured.
	ErrNoIntegration = errors.New("routine has no integration")
	// ErrIntegrationDisabled indicates the routine's integration is turned off.
	ErrIntegrationDisabled = errors.New("integration is disabled")
	// ErrExecutorUnavailable indicates the executor cannot run right now.
	ErrExecutorUnavailable = errors.New("executor is not available")
)

// ConfigError reports an integration config rejected by its executor.
type ConfigError struct {
	Errors []string
}

func (e *ConfigError) Error() string {
	return "invalid integration config: " + strings.Join(e.Errors, "; ")
}

// ExecutorLookup resolves an executor by type.
type ExecutorLookup interface {
	Get(executorType string) (executor.Executor, error)
}

// RoutineStore is the persistence the execution pipeline needs.
type RoutineStore interface {
	GetRoutineByID(ctx context.Context, id string) (*models.Routine, error)
	RecordRun(ctx context.Context, routine *models.Routine, result *models.ExecutionResult) (*models.IntegrationRun, error)
}

// recordTimeout bounds how long recording a finished run may take.
const recordTimeout = 10 * time.Second

// ExecutorService runs a routine's integration and records the outcome.
type ExecutorService struct {
	routines  RoutineStore
	executors ExecutorLookup
	now       func() time.Time
}

// NewExecutorService creates a new ExecutorService.
func NewExecutorService(routines RoutineStore, executors ExecutorLookup) *ExecutorService {
	return &ExecutorService{
		routines:  routines,
		executors: executors,
		now:       time.Now,
	}
}

// Run executes the integration of the routine identified by routineID.
//
// Errors before execution are returned as-is: ErrRoutineNotFound,
// ErrNoIntegration, ErrIntegrationDisabled, executor.ErrUnknownExecutor,
// *ConfigError and ErrExecutorUnavailable. Once the executor has been invoked,
// its outcome is always recorded; an execution error becomes a failed result.
// Only a failure to record is returned after that point.
func (s *ExecutorService) Run(ctx context.Context, routineID string) (*models.ExecutionResult, error) {
	logger := logging.FromContext(ctx).With("routine_id", routineID)

	routine, err := s.routines.GetRoutineByID(ctx, routineID)
	if err != nil {
		return nil, err
	}

	in := routine.Integration
	if in == nil {
		return nil, ErrNoIntegration
	}
	if !in.Enabled {
		return nil, ErrIntegrationDisabled
	}

	exec, err := s.executors.Get(in.ExecutorType)
	if err != nil {
		return nil, err
	}

	if v := exec.ValidateConfig(in.Config); !v.Valid {
		return nil, &ConfigError{Errors: v.Errors}
	}

	if !exec.IsAvailable(ctx) {
		return nil, fmt.Errorf("%w: %s", ErrExecutorUnavailable, in.ExecutorType)
	}

	logger.InfoContext(ctx, "executing integration", "executor", in.ExecutorType)

	result := s.execute(ctx, exec, routine)
	if !result.Success {
		logger.WarnContext(ctx, "integration failed", "executor", in.ExecutorType, "error", result.Error)
	}

	// The executor's side effect has happened; record it even if the caller went away.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if _, err := s.routines.RecordRun(recordCtx, routine, result); err != nil {
		logger.ErrorContext(ctx, "failed to record run", "error", err)
		return nil, fmt.Errorf("failed to record run: %w", err)
	}

	return result, nil
}

// execute invokes the executor and folds errors and panics into a failed result.
func (s *ExecutorService) execute(ctx context.Context, exec executor.Executor, routine *models.Routine) (result *models.ExecutionResult) {
	defer func() {
		if r := recover(); r != nil {
			logging.FromContext(ctx).ErrorContext(ctx, "executor panicked", "executor", exec.Type(), "panic", r)
			result = s.failed(fmt.Sprintf("executor panicked: %v", r))
		}
	}()

	res, err := exec.Execute(ctx, routine)
	if err != nil {
		return s.failed(err.Error())
	}
	if res == nil {
		return s.failed("executor returned no result")
	}
	if res.CompletedAt.IsZero() {
		res.CompletedAt = s.now().UTC()
	}
	return res
}

func (s *ExecutorService) failed(msg string) *models.ExecutionResult {
	return &models.ExecutionResult{
		Success:     false,
		Error:       msg,
		CompletedAt: s.now().UTC(),
	}
}
