package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"orderbot/internal/model"
	"orderbot/internal/service"
)

// ChatHandler handles chat turn HTTP requests
type ChatHandler struct {
	chatService *service.ChatService
	newTurnID   func() string
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		newTurnID:   uuid.NewString,
	}
}

func (h *ChatHandler) bindTurn(c *gin.Context) (model.TurnInput, bool) {
	var req model.TurnInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return req, false
	}
	if req.TurnID == "" {
		req.TurnID = h.newTurnID()
	}
	if req.UserContext.CustomerID != nil && *req.UserContext.CustomerID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid customer_id"})
		return req, false
	}
	return req, true
}

// Chat handles POST /api/v1/chat
func (h *ChatHandler) Chat(c *gin.Context) {
	req, ok := h.bindTurn(c)
	if !ok {
		return
	}

	response, err := h.chatService.Handle(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrEmptyMessage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Chat failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, response)
}

// ChatStream handles POST /api/v1/chat/stream - SSE progress for one turn
func (h *ChatHandler) ChatStream(c *gin.Context) {
	req, ok := h.bindTurn(c)
	if !ok {
		return
	}

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream; charset=utf-8")
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming not supported"})
		return
	}

	sendSSE(c, "start", map[string]any{"turn_id": req.TurnID})
	flusher.Flush()

	response, err := h.chatService.HandleStream(c.Request.Context(), req, func(event string, data any) error {
		sendSSE(c, event, data)
		flusher.Flush()
		return nil
	})
	if err != nil {
		sendSSE(c, "error", map[string]any{"error": err.Error()})
		flusher.Flush()
		return
	}

	sendSSE(c, "result", response)
	sendSSE(c, "done", nil)
	flusher.Flush()
}

// sendSSE sends a Server-Sent Event
func sendSSE(c *gin.Context, event string, data any) {
	if data == nil {
		fmt.Fprintf(c.Writer, "event: %s\ndata: {}\n\n", event)
		return
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		fmt.Fprintf(c.Writer, "event: error\ndata: {\"error\": \"JSON marshal failed\"}\n\n")
		return
	}
	fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, string(jsonData))
}
