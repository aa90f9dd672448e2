package chat

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/routinekit/routinekit/internal/config"
	"github.com/routinekit/routinekit/internal/models"
)

// GeminiClient talks to the Gemini API through the genai SDK.
type GeminiClient struct {
	client      *genai.Client
	model       string
	maxTokens   int32
	temperature float32
}

// NewGeminiClient creates a client from cfg.
func NewGeminiClient(ctx context.Context, cfg config.ChatConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiClient{
		client:      client,
		model:       cfg.Model,
		maxTokens:   int32(cfg.MaxTokens),
		temperature: cfg.Temperature,
	}, nil
}

var suggestBlocksDeclaration = &genai.FunctionDeclaration{
	Name:        SuggestBlocksTool,
	Description: suggestBlocksDescription,
	Parameters: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"blocks": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"type":            {Type: genai.TypeString, Description: "Block kind, e.g. task, habit, break"},
						"title":           {Type: genai.TypeString},
						"content":         {Type: genai.TypeString},
						"durationMinutes": {Type: genai.TypeInteger},
					},
					Required: []string{"title"},
				},
			},
		},
		Required: []string{"blocks"},
	},
}

// Complete sends the conversation with GenerateContent.
func (c *GeminiClient) Complete(ctx context.Context, req Request) (*Completion, error) {
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := genai.Role(genai.RoleUser)
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(c.temperature),
		MaxOutputTokens: c.maxTokens,
		Tools:           []*genai.Tool{{FunctionDeclarations: []*genai.FunctionDeclaration{suggestBlocksDeclaration}}},
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate failed: %w", err)
	}

	completion := &Completion{Text: resp.Text()}
	for _, call := range resp.FunctionCalls() {
		args := call.Args
		if args == nil {
			args = map[string]any{}
		}
		completion.ToolCalls = append(completion.ToolCalls, models.ToolCall{
			ID:        call.ID,
			Name:      call.Name,
			Arguments: args,
		})
	}

	slog.DebugContext(ctx, "gemini completion", "model", c.model, "tool_calls", len(completion.ToolCalls))
	return completion, nil
}
