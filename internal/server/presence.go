package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/inkwelllabs/corkboard/internal/presence"
)

type cursorPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// presencePayload is the wire shape of one roster entry. The cursor is
// nested, unlike the flat storage columns.
type presencePayload struct {
	ID          string        `json:"id"`
	DisplayName string        `json:"displayName"`
	Color       string        `json:"color"`
	Cursor      cursorPayload `json:"cursor"`
	LastSeen    int64         `json:"lastSeen"`
}

func payloadFromRecord(record presence.Record) presencePayload {
	return presencePayload{
		ID:          record.UserID,
		DisplayName: record.DisplayName,
		Color:       record.Color,
		Cursor:      cursorPayload{X: record.CursorX, Y: record.CursorY},
		LastSeen:    record.LastSeenMillis,
	}
}

// handlePresenceJoin registers the caller on the board roster at cursor
// origin, with a color derived from their user id.
func (h *httpHandler) handlePresenceJoin(c *gin.Context) {
	identity, ok := requestIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	boardID := c.Param("boardId")

	record := presence.Record{
		BoardID:        boardID,
		UserID:         identity.UserID,
		DisplayName:    identity.DisplayName,
		Color:          presence.CursorColor(identity.UserID),
		LastSeenMillis: time.Now().UnixMilli(),
	}
	if err := h.presence.Upsert(c.Request.Context(), record); err != nil {
		h.logger.Error("presence join failed", zap.String("board_id", boardID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "presence_failed"})
		return
	}
	c.JSON(http.StatusOK, payloadFromRecord(record))
}

type cursorRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (h *httpHandler) handlePresenceCursor(c *gin.Context) {
	identity, ok := requestIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	boardID := c.Param("boardId")

	var request cursorRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	err := h.presence.UpdateCursor(c.Request.Context(), boardID, identity.UserID, request.X, request.Y, time.Now())
	if err != nil {
		h.logger.Error("cursor update failed", zap.String("board_id", boardID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "presence_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *httpHandler) handlePresenceHeartbeat(c *gin.Context) {
	identity, ok := requestIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	boardID := c.Param("boardId")

	if err := h.presence.Heartbeat(c.Request.Context(), boardID, identity.UserID, time.Now()); err != nil {
		h.logger.Error("presence heartbeat failed", zap.String("board_id", boardID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "presence_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *httpHandler) handlePresenceLeave(c *gin.Context) {
	identity, ok := requestIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	boardID := c.Param("boardId")

	// Leave is best effort. A failed removal ages out via staleness.
	if err := h.presence.Remove(c.Request.Context(), boardID, identity.UserID); err != nil {
		h.logger.Debug("presence removal failed", zap.String("board_id", boardID), zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *httpHandler) handlePresenceList(c *gin.Context) {
	boardID := c.Param("boardId")

	records, err := h.presence.List(c.Request.Context(), boardID)
	if err != nil {
		h.logger.Error("presence list failed", zap.String("board_id", boardID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "presence_failed"})
		return
	}
	users := make([]presencePayload, 0, len(records))
	for _, record := range records {
		users = append(users, payloadFromRecord(record))
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}
