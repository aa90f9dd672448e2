// Package chat forwards routine conversations to a chat model and extracts
// the routine blocks it suggests.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/routinekit/routinekit/internal/config"
	"github.com/routinekit/routinekit/internal/logging"
	"github.com/routinekit/routinekit/internal/models"
)

// ErrNotConfigured is returned when no API key is set for the chat backend.
var ErrNotConfigured = errors.New("chat backend is not configured")

// Role values of a Message.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Request is a provider-neutral completion request.
type Request struct {
	System   string
	Messages []models.ChatMessage
}

// Completion is the model's answer.
type Completion struct {
	Text      string
	ToolCalls []models.ToolCall
}

// Client is a chat-completion backend.
type Client interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
}

// NewClient builds the backend selected by cfg.Provider.
func NewClient(ctx context.Context, cfg config.ChatConfig) (Client, error) {
	switch cfg.Provider {
	case config.ProviderAnthropic:
		return NewAnthropicClient(cfg), nil
	case config.ProviderGemini, "":
		c, err := NewGeminiClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported chat provider: %s", cfg.Provider)
	}
}

// Service answers chat requests about routines.
type Service struct {
	client Client
}

// NewService creates a chat service on top of client.
func NewService(client Client) *Service {
	return &Service{client: client}
}

// Respond sends the conversation with its context to the model. Suggested
// blocks come from fenced ```blocks sections of the reply and from
// suggest_blocks tool calls.
func (s *Service) Respond(ctx context.Context, req *models.ChatRequest) (*models.ChatResponse, error) {
	if s.client == nil {
		return nil, ErrNotConfigured
	}

	completion, err := s.client.Complete(ctx, Request{
		System:   BuildSystemPrompt(req.RoutineContext, req.AppContext),
		Messages: req.Messages,
	})
	if err != nil {
		return nil, err
	}

	suggested, message := ParseBlockSuggestions(completion.Text)

	toolCalls := completion.ToolCalls
	if toolCalls == nil {
		toolCalls = []models.ToolCall{}
	}
	for _, call := range toolCalls {
		if call.Name == SuggestBlocksTool {
			suggested = append(suggested, blocksFromArguments(call.Arguments)...)
		}
	}

	logging.FromContext(ctx).DebugContext(ctx, "chat completed",
		"suggested_blocks", len(suggested),
		"tool_calls", len(toolCalls),
	)

	return &models.ChatResponse{
		Message:         strings.TrimSpace(message),
		SuggestedBlocks: suggested,
		ToolCalls:       toolCalls,
	}, nil
}
