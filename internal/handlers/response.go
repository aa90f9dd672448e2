// Package handlers provides the HTTP request handlers of the JSON API.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/routinekit/routinekit/internal/logging"
)

func respondOK(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func respondError(c *gin.Context, status int, msg string, details ...string) {
	body := gin.H{"success": false, "error": msg}
	if len(details) > 0 {
		body["details"] = details
	}
	c.JSON(status, body)
}

// internalError logs err and answers 500 without leaking it to the client.
func internalError(c *gin.Context, msg string, err error) {
	logging.FromContext(c.Request.Context()).ErrorContext(c.Request.Context(), msg, "error", err)
	respondError(c, http.StatusInternalServerError, msg)
}

// badRequest answers 400, listing field errors when err comes from binding.
func badRequest(c *gin.Context, msg string, err error) {
	logging.FromContext(c.Request.Context()).WarnContext(c.Request.Context(), msg, "error", err)
	respondError(c, http.StatusBadRequest, msg, validationDetails(err)...)
}

func validationDetails(err error) []string {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}

	details := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, describeFieldError(fe))
	}
	return details
}

func describeFieldError(fe validator.FieldError) string {
	field := fieldPath(fe.Namespace())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// fieldPath turns "ChatRequest.Messages[0].Role" into "messages[0].role".
func fieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToLower(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, ".")
}
