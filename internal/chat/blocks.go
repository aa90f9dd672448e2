package chat

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"

	"github.com/routinekit/routinekit/internal/models"
)

const defaultBlockType = "task"

const (
	maxTitleLength   = 200
	maxContentLength = 5000
	maxDuration      = 1440
)

var blocksFence = regexp.MustCompile("(?s)```blocks[ \\t]*\\r?\\n(.*?)```")

// ParseBlockSuggestions extracts the JSON block arrays in ```blocks fences
// from text. It returns the blocks and the text with every well-formed fence
// removed. Fences whose content is not a JSON array are left in the text.
func ParseBlockSuggestions(text string) ([]models.Block, string) {
	blocks := []models.Block{}

	cleaned := blocksFence.ReplaceAllStringFunc(text, func(fence string) string {
		m := blocksFence.FindStringSubmatch(fence)
		var raw []map[string]any
		if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &raw); err != nil {
			return fence
		}
		for _, item := range raw {
			if b, ok := blockFromMap(item); ok {
				blocks = append(blocks, b)
			}
		}
		return ""
	})

	return blocks, collapseBlankLines(cleaned)
}

// blocksFromArguments reads the "blocks" argument of a suggest_blocks call.
func blocksFromArguments(args map[string]any) []models.Block {
	items, ok := args["blocks"].([]any)
	if !ok {
		return nil
	}
	var blocks []models.Block
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if b, ok := blockFromMap(m); ok {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

// blockFromMap converts loosely typed model output into a Block. Entries
// without a title are dropped.
func blockFromMap(m map[string]any) (models.Block, bool) {
	title, _ := m["title"].(string)
	title = strings.TrimSpace(title)
	if title == "" {
		return models.Block{}, false
	}

	b := models.Block{Type: defaultBlockType, Title: truncate(title, maxTitleLength)}
	if t, ok := m["type"].(string); ok && strings.TrimSpace(t) != "" {
		b.Type = truncate(strings.ToLower(strings.TrimSpace(t)), 50)
	}
	if c, ok := m["content"].(string); ok {
		b.Content = truncate(strings.TrimSpace(c), maxContentLength)
	}
	if d, ok := m["durationMinutes"].(float64); ok && d > 0 {
		b.DurationMinutes = int(math.Min(math.Round(d), maxDuration))
	}
	return b, true
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var blankRun = regexp.MustCompile(`\n{3,}`)

func collapseBlankLines(s string) string {
	return strings.TrimSpace(blankRun.ReplaceAllString(s, "\n\n"))
}
