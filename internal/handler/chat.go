package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	apperrors "concierge/internal/errors"
	"concierge/internal/logger"
	"concierge/internal/model"
	"concierge/internal/service"

	"github.com/gin-gonic/gin"
)

// ChatResponder answers chat turns
type ChatResponder interface {
	Chat(ctx context.Context, req *model.ChatRequest) (*model.ChatResponse, error)
	ChatStream(ctx context.Context, req *model.ChatRequest, callback service.ChatEventCallback) (*model.ChatResponse, error)
}

// ChatHandler handles chat HTTP requests
type ChatHandler struct {
	chat             ChatResponder
	maxMessageLength int
	log              logger.Logger
}

// NewChatHandler creates a new chat handler. maxMessageLength <= 0 disables
// the length check.
func NewChatHandler(chat ChatResponder, maxMessageLength int, log logger.Logger) *ChatHandler {
	return &ChatHandler{
		chat:             chat,
		maxMessageLength: maxMessageLength,
		log:              log,
	}
}

// Chat handles POST /api/v1/chat
func (h *ChatHandler) Chat(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}

	resp, err := h.chat.Chat(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	resp.RequestID = RequestIDFrom(c)
	c.JSON(http.StatusOK, resp)
}

// ChatStream handles POST /api/v1/chat/stream - SSE progress of one turn
func (h *ChatHandler) ChatStream(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": string(apperrors.CodeInternal), "message": "Streaming not supported", "fallback": true})
		return
	}

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream; charset=utf-8")
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	requestID := RequestIDFrom(c)
	sendSSE(c, "start", map[string]any{"requestId": requestID})
	flusher.Flush()

	_, err := h.chat.ChatStream(c.Request.Context(), req, func(event string, data any) error {
		if resp, ok := data.(*model.ChatResponse); ok {
			resp.RequestID = requestID
		}
		sendSSE(c, event, data)
		flusher.Flush()
		return c.Request.Context().Err()
	})
	if err != nil {
		code := apperrors.CodeOf(err)
		if code == apperrors.CodeInternal {
			h.log.WithError(err).Error("Chat stream failed", map[string]interface{}{"requestId": requestID})
		}
		sendSSE(c, "error", map[string]any{"error": string(code), "message": apperrors.MessageOf(err)})
		flusher.Flush()
		return
	}

	sendSSE(c, "done", nil)
	flusher.Flush()
}

func (h *ChatHandler) bind(c *gin.Context) (*model.ChatRequest, bool) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": string(apperrors.CodeValidation), "message": "Invalid request: " + err.Error()})
		return nil, false
	}

	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": string(apperrors.CodeValidation), "message": "message must not be empty"})
		return nil, false
	}
	if h.maxMessageLength > 0 && utf8.RuneCountInString(req.Message) > h.maxMessageLength {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   string(apperrors.CodeValidation),
			"message": fmt.Sprintf("message exceeds %d characters", h.maxMessageLength),
		})
		return nil, false
	}
	return &req, true
}
