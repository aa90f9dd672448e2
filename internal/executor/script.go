package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/routinekit/routinekit/internal/config"
	"github.com/routinekit/routinekit/internal/models"
	"github.com/routinekit/routinekit/internal/validation"
)

// ScriptExecutor runs a shell command on the server host.
type ScriptExecutor struct {
	cfg config.ScriptConfig
	now func() time.Time
}

// NewScriptExecutor creates an executor from cfg.
func NewScriptExecutor(cfg config.ScriptConfig) *ScriptExecutor {
	return &ScriptExecutor{cfg: cfg, now: time.Now}
}

type scriptConfig struct {
	Command    string
	WorkingDir string
	Timeout    time.Duration
}

func (e *ScriptExecutor) Type() string {
	return TypeScript
}

func (e *ScriptExecutor) parse(cfg map[string]any) (*scriptConfig, *configChecker) {
	c := newConfigChecker(cfg)
	sc := &scriptConfig{
		Command:    c.requiredString("command"),
		WorkingDir: c.optionalString("working_dir"),
		Timeout:    time.Duration(e.cfg.DefaultTimeout) * time.Second,
	}

	if sc.Command != "" {
		if err := validation.ValidateCommand(sc.Command, 4096); err != nil {
			c.fail("command: %v", err)
		}
	}
	if sc.WorkingDir != "" {
		if err := validation.ValidatePath(sc.WorkingDir); err != nil {
			c.fail("working_dir: %v", err)
		}
	}
	if seconds, ok := c.optionalInt("timeout_seconds", 1, e.cfg.MaxTimeout); ok {
		sc.Timeout = time.Duration(seconds) * time.Second
	}
	return sc, c
}

// ValidateConfig checks command, working_dir and timeout_seconds.
func (e *ScriptExecutor) ValidateConfig(cfg map[string]any) models.ValidationResult {
	_, c := e.parse(cfg)
	return c.result()
}

// IsAvailable reports whether scripts are enabled and the shell exists.
func (e *ScriptExecutor) IsAvailable(_ context.Context) bool {
	if !e.cfg.Enabled {
		return false
	}
	_, err := exec.LookPath(e.cfg.Shell)
	return err == nil
}

// Execute runs the command with the routine exposed through ROUTINE_* variables.
// A non-zero exit status is a failed result, not an error.
func (e *ScriptExecutor) Execute(ctx context.Context, routine *models.Routine) (*models.ExecutionResult, error) {
	if routine.Integration == nil {
		return nil, fmt.Errorf("routine %s has no integration", routine.ID)
	}

	sc, c := e.parse(routine.Integration.Config)
	if v := c.result(); !v.Valid {
		return nil, fmt.Errorf("invalid script config: %s", strings.Join(v.Errors, "; "))
	}

	if sc.WorkingDir != "" {
		if info, err := os.Stat(sc.WorkingDir); err != nil || !info.IsDir() {
			return nil, fmt.Errorf("working directory does not exist: %s", sc.WorkingDir)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, sc.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.cfg.Shell, "-c", sc.Command)
	cmd.Dir = sc.WorkingDir
	cmd.WaitDelay = 2 * time.Second
	cmd.Env = append(os.Environ(),
		"ROUTINE_ID="+routine.ID,
		"ROUTINE_TITLE="+routine.Title,
	)

	output := &limitedBuffer{limit: e.cfg.MaxOutputSize}
	cmd.Stdout = output
	cmd.Stderr = output

	slog.InfoContext(ctx, "running routine script", "routine_id", routine.ID, "dir", cmd.Dir, "timeout", sc.Timeout)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start command: %w", err)
	}
	err := cmd.Wait()

	exitCode := 0
	result := &models.ExecutionResult{CompletedAt: e.now().UTC()}

	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			exitCode = -1
			result.Error = fmt.Sprintf("command timed out after %s", sc.Timeout)
		case errors.As(err, &exitErr):
			exitCode = exitErr.ExitCode()
			result.Error = fmt.Sprintf("command exited with status %d", exitCode)
		default:
			return nil, fmt.Errorf("command failed: %w", err)
		}
	}

	result.Success = exitCode == 0
	result.ExitCode = &exitCode
	result.Output = output.String()
	if output.truncated {
		result.Details = map[string]any{"truncated": true}
	}

	slog.InfoContext(ctx, "routine script finished", "routine_id", routine.ID, "exit_code", exitCode)
	return result, nil
}

// limitedBuffer keeps the first limit bytes written to it.
type limitedBuffer struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	remaining := b.limit - b.buf.Len()
	if b.limit > 0 && remaining <= 0 {
		b.truncated = true
		return len(p), nil
	}
	if b.limit > 0 && len(p) > remaining {
		b.buf.Write(p[:remaining])
		b.truncated = true
		return len(p), nil
	}
	b.buf.Write(p)
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
