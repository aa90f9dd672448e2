package chat

import (
	"fmt"
	"strings"

	"github.com/routinekit/routinekit/internal/models"
)

// SuggestBlocksTool is the function the model can call to propose blocks.
const SuggestBlocksTool = "suggest_blocks"

const suggestBlocksDescription = "Propose routine blocks the user can add to the routine they are editing."

const basePrompt = `You are a helpful assistant inside a personal routine planner.
Help the user design realistic daily and weekly routines that support their goals.
Keep answers short and practical.
When you propose concrete steps, either call the suggest_blocks tool or append a fenced
code block tagged "blocks" containing a JSON array of objects with the fields
"type", "title", "content" and "durationMinutes".`

// BuildSystemPrompt renders the system instruction for a conversation.
func BuildSystemPrompt(routine *models.RoutineContext, app *models.AppContext) string {
	var b strings.Builder
	b.WriteString(basePrompt)

	if app != nil {
		b.WriteString("\n\n## Application context\n")
		if app.Today != "" {
			fmt.Fprintf(&b, "Today: %s\n", app.Today)
		}
		if app.Timezone != "" {
			fmt.Fprintf(&b, "Timezone: %s\n", app.Timezone)
		}
		if app.CurrentView != "" {
			fmt.Fprintf(&b, "Current view: %s\n", app.CurrentView)
		}
		if len(app.Goals) > 0 {
			fmt.Fprintf(&b, "User goals: %s\n", strings.Join(app.Goals, "; "))
		}
	}

	if routine != nil {
		b.WriteString("\n## Routine being edited\n")
		fmt.Fprintf(&b, "Title: %s\n", routine.Title)
		if routine.Description != "" {
			fmt.Fprintf(&b, "Description: %s\n", routine.Description)
		}
		if len(routine.Blocks) == 0 {
			b.WriteString("The routine has no blocks yet.\n")
		}
		for i, block := range routine.Blocks {
			fmt.Fprintf(&b, "%d. [%s] %s", i+1, block.Type, block.Title)
			if block.DurationMinutes > 0 {
				fmt.Fprintf(&b, " (%d min)", block.DurationMinutes)
			}
			b.WriteString("\n")
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// suggestBlocksSchema is the JSON schema of the suggest_blocks arguments.
func suggestBlocksSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"blocks": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"type":            map[string]any{"type": "string", "description": "Block kind, e.g. task, habit, break"},
						"title":           map[string]any{"type": "string"},
						"content":         map[string]any{"type": "string"},
						"durationMinutes": map[string]any{"type": "integer"},
					},
					"required": []string{"title"},
				},
			},
		},
		"required": []string{"blocks"},
	}
}
