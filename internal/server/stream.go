package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/inkwelllabs/corkboard/internal/store"
)

const streamHeartbeatInterval = 30 * time.Second

type streamEventPayload struct {
	Type      string        `json:"type"`
	ObjectID  string        `json:"objectId"`
	Object    objectPayload `json:"object"`
	Timestamp int64         `json:"timestamp"`
}

// handleObjectStream pushes board changes to the client as server-sent
// events. A heartbeat comment keeps intermediaries from closing the
// connection during quiet periods.
func (h *httpHandler) handleObjectStream(c *gin.Context) {
	boardID := c.Param("boardId")

	events, cancel, err := h.store.Watch(c.Request.Context(), boardID)
	if err != nil {
		var subErr *store.SubscriptionError
		if errors.As(err, &subErr) && subErr.PermissionDenied() {
			// Sign-out raced the stream; nothing left to deliver.
			c.Status(http.StatusNoContent)
			return
		}
		h.logger.Error("stream subscription failed", zap.String("board_id", boardID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "subscription_failed"})
		return
	}
	defer cancel()

	heartbeat := time.NewTicker(streamHeartbeatInterval)
	defer heartbeat.Stop()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent("change", eventPayloadFor(event))
			return true
		case <-heartbeat.C:
			c.SSEvent("heartbeat", time.Now().UnixMilli())
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func eventPayloadFor(event store.Event) streamEventPayload {
	return streamEventPayload{
		Type:      string(event.Type),
		ObjectID:  event.ObjectID,
		Object:    payloadFromObject(event.Object),
		Timestamp: event.Timestamp.UnixMilli(),
	}
}
