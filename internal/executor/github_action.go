package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/routinekit/routinekit/internal/config"
	"github.com/routinekit/routinekit/internal/models"
)

var githubNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// GitHubActionExecutor triggers a workflow_dispatch event on a repository workflow.
type GitHubActionExecutor struct {
	token      string
	apiBase    string
	defaultRef string
	httpClient *http.Client
	now        func() time.Time
}

// NewGitHubActionExecutor creates an executor from cfg.
func NewGitHubActionExecutor(cfg config.GitHubActionConfig) *GitHubActionExecutor {
	return &GitHubActionExecutor{
		token:      cfg.Token,
		apiBase:    strings.TrimRight(cfg.APIBaseURL, "/"),
		defaultRef: cfg.DefaultRef,
		httpClient: &http.Client{Timeout: cfg.GetTimeout()},
		now:        time.Now,
	}
}

type dispatchConfig struct {
	Owner    string
	Repo     string
	Workflow string
	Ref      string
	Inputs   map[string]string
}

type dispatchRequest struct {
	Ref    string            `json:"ref"`
	Inputs map[string]string `json:"inputs,omitempty"`
}

func (e *GitHubActionExecutor) Type() string {
	return TypeGitHubAction
}

func (e *GitHubActionExecutor) parse(cfg map[string]any) (*dispatchConfig, *configChecker) {
	c := newConfigChecker(cfg)
	d := &dispatchConfig{
		Owner:    c.requiredString("owner"),
		Repo:     c.requiredString("repo"),
		Workflow: c.requiredString("workflow"),
		Ref:      c.optionalString("ref"),
		Inputs:   c.optionalStringMap("inputs"),
	}

	if d.Owner != "" && !githubNamePattern.MatchString(d.Owner) {
		c.fail("owner contains invalid characters")
	}
	if d.Repo != "" && !githubNamePattern.MatchString(d.Repo) {
		c.fail("repo contains invalid characters")
	}
	if d.Workflow != "" && strings.ContainsAny(d.Workflow, "/\\ ") {
		c.fail("workflow must be a workflow file name or id")
	}
	if len(d.Inputs) > 8 {
		c.fail("inputs supports at most 8 entries")
	}
	if d.Ref == "" {
		d.Ref = e.defaultRef
	}
	return d, c
}

// ValidateConfig checks owner, repo and workflow, plus the optional ref and inputs.
func (e *GitHubActionExecutor) ValidateConfig(cfg map[string]any) models.ValidationResult {
	_, c := e.parse(cfg)
	return c.result()
}

// IsAvailable reports whether an API token is configured.
func (e *GitHubActionExecutor) IsAvailable(_ context.Context) bool {
	return e.token != "" && e.apiBase != ""
}

// Execute dispatches the workflow. GitHub answers 204 on success and the
// run itself proceeds asynchronously.
func (e *GitHubActionExecutor) Execute(ctx context.Context, routine *models.Routine) (*models.ExecutionResult, error) {
	if routine.Integration == nil {
		return nil, fmt.Errorf("routine %s has no integration", routine.ID)
	}

	d, c := e.parse(routine.Integration.Config)
	if v := c.result(); !v.Valid {
		return nil, fmt.Errorf("invalid github_action config: %s", strings.Join(v.Errors, "; "))
	}

	inputs := map[string]string{}
	for k, v := range d.Inputs {
		inputs[k] = v
	}
	inputs["routine_id"] = routine.ID
	inputs["routine_title"] = routine.Title

	body, err := json.Marshal(dispatchRequest{Ref: d.Ref, Inputs: inputs})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal dispatch: %w", err)
	}

	endpoint := fmt.Sprintf("%s/repos/%s/%s/actions/workflows/%s/dispatches",
		e.apiBase, url.PathEscape(d.Owner), url.PathEscape(d.Repo), url.PathEscape(d.Workflow))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+e.token)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("Content-Type", "application/json")

	slog.DebugContext(ctx, "dispatching workflow", "owner", d.Owner, "repo", d.Repo, "workflow", d.Workflow, "ref", d.Ref)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("workflow dispatch failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	result := &models.ExecutionResult{
		CompletedAt: e.now().UTC(),
		ExternalURL: fmt.Sprintf("https://github.com/%s/%s/actions/workflows/%s", d.Owner, d.Repo, d.Workflow),
		Details: map[string]any{
			"statusCode": resp.StatusCode,
			"ref":        d.Ref,
		},
	}

	if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusOK {
		result.Success = true
		return result, nil
	}

	result.Error = fmt.Sprintf("GitHub API returned HTTP %d", resp.StatusCode)
	var apiErr struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
		result.Error += ": " + apiErr.Message
	}
	return result, nil
}
