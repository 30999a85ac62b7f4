package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"orderbot/internal/model"
)

// TurnHistory reads back logged turns
type TurnHistory interface {
	RecentTurns(ctx context.Context, sessionID string, limit int) ([]model.TurnRecord, error)
}

// SessionHandler handles session history requests
type SessionHandler struct {
	history      TurnHistory
	defaultLimit int
	maxLimit     int
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(history TurnHistory, defaultLimit, maxLimit int) *SessionHandler {
	return &SessionHandler{
		history:      history,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

// Turns handles GET /api/v1/sessions/:id/turns
func (h *SessionHandler) Turns(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session ID"})
		return
	}

	limit := h.defaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = n
	}
	if limit > h.maxLimit {
		limit = h.maxLimit
	}

	turns, err := h.history.RecentTurns(c.Request.Context(), sessionID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get turns: " + err.Error()})
		return
	}
	if turns == nil {
		turns = []model.TurnRecord{}
	}

	c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "turns": turns})
}
