// Package executor defines the contract pluggable automation backends
// implement and ships the built-in backends.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/routinekit/routinekit/internal/models"
)

// Built-in executor types.
const (
	TypeGitHubAction = "github_action"
	TypeScript       = "script"
	TypeWebhook      = "webhook"
)

// ErrUnknownExecutor indicates no executor is registered for a type.
var ErrUnknownExecutor = errors.New("unknown executor type")

// Executor runs the automation a routine's integration is bound to.
//
// ValidateConfig and IsAvailable must not panic: config arrives as untyped
// user data and availability problems are reported as false. Execute reports
// logical failures through ExecutionResult.Success; a returned error means the
// attempt could not be carried out at all.
type Executor interface {
	Type() string
	ValidateConfig(config map[string]any) models.ValidationResult
	IsAvailable(ctx context.Context) bool
	Execute(ctx context.Context, routine *models.Routine) (*models.ExecutionResult, error)
}

// Registry maps executor types to implementations.
type Registry struct {
	mu        sync.RWMutex
	executors map[string]Executor
}

// NewRegistry creates a registry holding the given executors.
func NewRegistry(executors ...Executor) *Registry {
	r := &Registry{executors: make(map[string]Executor)}
	for _, e := range executors {
		r.Register(e)
	}
	return r
}

// Register adds or replaces the executor for e.Type().
func (r *Registry) Register(e Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[e.Type()] = e
}

// Get returns the executor registered for executorType.
func (r *Registry) Get(executorType string) (Executor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.executors[executorType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownExecutor, executorType)
	}
	return e, nil
}

// Types returns the registered executor types in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.executors))
	for t := range r.executors {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Describe reports every registered executor with its current availability.
func (r *Registry) Describe(ctx context.Context) []models.ExecutorInfo {
	infos := []models.ExecutorInfo{}
	for _, t := range r.Types() {
		e, err := r.Get(t)
		if err != nil {
			continue
		}
		infos = append(infos, models.ExecutorInfo{Type: t, Available: safeIsAvailable(ctx, e)})
	}
	return infos
}

// safeIsAvailable treats a panicking availability check as unavailable.
func safeIsAvailable(ctx context.Context, e Executor) (available bool) {
	defer func() {
		if recover() != nil {
			available = false
		}
	}()
	return e.IsAvailable(ctx)
}
