package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/routinekit/routinekit/internal/models"
	"github.com/routinekit/routinekit/internal/validation"
)

// ChatResponder answers a chat request.
type ChatResponder interface {
	Respond(ctx context.Context, req *models.ChatRequest) (*models.ChatResponse, error)
}

// ChatHandler proxies conversations to the chat backend.
type ChatHandler struct {
	chat ChatResponder
}

// NewChatHandler creates a new ChatHandler instance.
func NewChatHandler(chat ChatResponder) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// Chat forwards the conversation and returns the reply with suggested blocks.
// POST /api/chat
func (h *ChatHandler) Chat(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request", err)
		return
	}
	if err := validation.ValidateConversation(req.Messages); err != nil {
		badRequest(c, "invalid request", err)
		return
	}

	resp, err := h.chat.Respond(c.Request.Context(), &req)
	if err != nil {
		internalError(c, "chat request failed", err)
		return
	}

	respondOK(c, http.StatusOK, resp)
}
