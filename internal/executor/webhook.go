package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/routinekit/routinekit/internal/config"
	"github.com/routinekit/routinekit/internal/models"
)

// WebhookExecutor posts the routine to a user-supplied URL.
type WebhookExecutor struct {
	enabled    bool
	httpClient *http.Client
	now        func() time.Time
}

// NewWebhookExecutor creates an executor from cfg.
func NewWebhookExecutor(cfg config.WebhookConfig) *WebhookExecutor {
	return &WebhookExecutor{
		enabled:    cfg.Enabled,
		httpClient: &http.Client{Timeout: cfg.GetTimeout()},
		now:        time.Now,
	}
}

type webhookConfig struct {
	URL     string
	Method  string
	Headers map[string]string
}

type webhookPayload struct {
	TriggeredAt time.Time      `json:"triggeredAt"`
	RoutineID   string         `json:"routineId"`
	Title       string         `json:"title"`
	Blocks      []models.Block `json:"blocks"`
}

func (e *WebhookExecutor) Type() string {
	return TypeWebhook
}

func (e *WebhookExecutor) parse(cfg map[string]any) (*webhookConfig, *configChecker) {
	c := newConfigChecker(cfg)
	wc := &webhookConfig{
		URL:     c.requiredString("url"),
		Method:  strings.ToUpper(c.optionalString("method")),
		Headers: c.optionalStringMap("headers"),
	}

	if wc.URL != "" {
		u, err := url.Parse(wc.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			c.fail("url must be an absolute http or https URL")
		}
	}
	switch wc.Method {
	case "":
		wc.Method = http.MethodPost
	case http.MethodPost, http.MethodPut:
	default:
		c.fail("method must be POST or PUT")
	}
	return wc, c
}

// ValidateConfig checks url, method and headers.
func (e *WebhookExecutor) ValidateConfig(cfg map[string]any) models.ValidationResult {
	_, c := e.parse(cfg)
	return c.result()
}

// IsAvailable reports whether webhooks are enabled.
func (e *WebhookExecutor) IsAvailable(_ context.Context) bool {
	return e.enabled
}

// Execute delivers the payload; any 2xx response is a success.
func (e *WebhookExecutor) Execute(ctx context.Context, routine *models.Routine) (*models.ExecutionResult, error) {
	if routine.Integration == nil {
		return nil, fmt.Errorf("routine %s has no integration", routine.ID)
	}

	wc, c := e.parse(routine.Integration.Config)
	if v := c.result(); !v.Valid {
		return nil, fmt.Errorf("invalid webhook config: %s", strings.Join(v.Errors, "; "))
	}

	body, err := json.Marshal(webhookPayload{
		TriggeredAt: e.now().UTC(),
		RoutineID:   routine.ID,
		Title:       routine.Title,
		Blocks:      routine.Blocks,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, wc.Method, wc.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range wc.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webhook delivery failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 16<<10))

	result := &models.ExecutionResult{
		CompletedAt: e.now().UTC(),
		Success:     resp.StatusCode >= 200 && resp.StatusCode < 300,
		Output:      string(respBody),
		Details:     map[string]any{"statusCode": resp.StatusCode},
	}
	if !result.Success {
		result.Error = fmt.Sprintf("webhook returned HTTP %d", resp.StatusCode)
	}
	return result, nil
}
