package executor

import (
	"fmt"
	"math"
	"strings"

	"github.com/routinekit/routinekit/internal/models"
)

// configChecker accumulates validation errors for an untyped config map.
type configChecker struct {
	config map[string]any
	errors []string
}

func newConfigChecker(config map[string]any) *configChecker {
	return &configChecker{config: config}
}

func (c *configChecker) fail(format string, args ...any) {
	c.errors = append(c.errors, fmt.Sprintf(format, args...))
}

// requiredString returns the trimmed string at key, recording an error when missing.
func (c *configChecker) requiredString(key string) string {
	v, ok := c.config[key]
	if !ok || v == nil {
		c.fail("%s is required", key)
		return ""
	}
	s, ok := v.(string)
	if !ok {
		c.fail("%s must be a string", key)
		return ""
	}
	s = strings.TrimSpace(s)
	if s == "" {
		c.fail("%s must not be empty", key)
	}
	return s
}

// optionalString returns the string at key or "" when absent.
func (c *configChecker) optionalString(key string) string {
	v, ok := c.config[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		c.fail("%s must be a string", key)
		return ""
	}
	return strings.TrimSpace(s)
}

// optionalInt accepts JSON numbers that hold whole values.
func (c *configChecker) optionalInt(key string, min, max int) (int, bool) {
	v, ok := c.config[key]
	if !ok || v == nil {
		return 0, false
	}

	var n int
	switch x := v.(type) {
	case int:
		n = x
	case int64:
		n = int(x)
	case float64:
		if x != math.Trunc(x) {
			c.fail("%s must be a whole number", key)
			return 0, false
		}
		n = int(x)
	default:
		c.fail("%s must be a number", key)
		return 0, false
	}

	if n < min || n > max {
		c.fail("%s must be between %d and %d", key, min, max)
		return 0, false
	}
	return n, true
}

// optionalStringMap accepts an object whose values are all strings.
func (c *configChecker) optionalStringMap(key string) map[string]string {
	v, ok := c.config[key]
	if !ok || v == nil {
		return nil
	}

	out := map[string]string{}
	switch m := v.(type) {
	case map[string]string:
		for k, s := range m {
			out[k] = s
		}
	case map[string]any:
		for k, raw := range m {
			s, ok := raw.(string)
			if !ok {
				c.fail("%s.%s must be a string", key, k)
				continue
			}
			out[k] = s
		}
	default:
		c.fail("%s must be an object of strings", key)
		return nil
	}
	return out
}

func (c *configChecker) result() models.ValidationResult {
	return models.ValidationResult{Valid: len(c.errors) == 0, Errors: append([]string{}, c.errors...)}
}
