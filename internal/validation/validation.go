// Package validation provides input validation and sanitization utilities.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/routinekit/routinekit/internal/models"
)

var (
	// ErrInputTooLong indicates input exceeds maximum length.
	ErrInputTooLong = errors.New("input exceeds maximum length")
	// ErrInputInvalid indicates input contains invalid characters.
	ErrInputInvalid = errors.New("input contains invalid characters")
	// ErrInputEmpty indicates a required text field is blank.
	ErrInputEmpty = errors.New("input must not be empty")
	// ErrLastMessageNotFromUser indicates a conversation does not end with a user turn.
	ErrLastMessageNotFromUser = errors.New("last message must be from the user")
)

// ValidateTitle validates a routine or goal title.
func ValidateTitle(title string, maxLength int) error {
	if strings.TrimSpace(title) == "" {
		return ErrInputEmpty
	}
	if len([]rune(title)) > maxLength {
		return ErrInputTooLong
	}
	for _, r := range title {
		if unicode.IsControl(r) {
			return ErrInputInvalid
		}
	}
	return nil
}

// ValidateDescription validates a description field.
func ValidateDescription(desc string, maxLength int) error {
	if len([]rune(desc)) > maxLength {
		return ErrInputTooLong
	}
	return nil
}

// ValidatePath validates a file system path.
func ValidatePath(path string) error {
	// Prevent path traversal
	if strings.Contains(path, "..") {
		return ErrInputInvalid
	}

	// Must be absolute path
	if !strings.HasPrefix(path, "/") {
		return ErrInputInvalid
	}

	// Disallow null bytes and other dangerous characters
	if strings.ContainsAny(path, "\x00\n\r") {
		return ErrInputInvalid
	}

	return nil
}

// ValidateCommand validates a shell command string.
// Note: This is basic validation - proper escaping should be handled at execution.
func ValidateCommand(command string, maxLength int) error {
	if len(command) > maxLength {
		return ErrInputTooLong
	}

	// Disallow null bytes
	if strings.Contains(command, "\x00") {
		return ErrInputInvalid
	}

	return nil
}

// ValidateConversation checks what struct tags cannot express: every message
// has visible content and the user spoke last.
func ValidateConversation(messages []models.ChatMessage) error {
	if len(messages) == 0 {
		return fmt.Errorf("messages: %w", ErrInputEmpty)
	}
	for i, m := range messages {
		if strings.TrimSpace(m.Content) == "" {
			return fmt.Errorf("messages[%d].content: %w", i, ErrInputEmpty)
		}
	}
	if messages[len(messages)-1].Role != "user" {
		return ErrLastMessageNotFromUser
	}
	return nil
}

// ValidateBlocks validates the titles and descriptions of routine blocks.
func ValidateBlocks(blocks []models.Block) error {
	for i, b := range blocks {
		if err := ValidateTitle(b.Title, 200); err != nil {
			return fmt.Errorf("blocks[%d].title: %w", i, err)
		}
		if err := ValidateDescription(b.Content, 5000); err != nil {
			return fmt.Errorf("blocks[%d].content: %w", i, err)
		}
	}
	return nil
}
