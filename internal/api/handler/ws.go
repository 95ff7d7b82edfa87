package handler

import (
	"chatguard/backend/internal/chathub"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The chat widget is embedded on customer sites.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the connection and streams the status events of ?room_id=.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	roomID := c.Query("room_id")
	if roomID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "room_id is required"})
		return
	}
	if _, err := h.Engine.GetStatusSummary(c.Request.Context(), roomID); err != nil {
		h.respondError(c, err, "open status stream")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response.
		return
	}

	client := chathub.NewWebSocketClient(uuid.NewString(), roomID, conn, h.Hub)
	select {
	case h.Hub.RegisterCh <- client:
		client.Run()
	case <-h.Hub.Done():
		conn.Close()
	}
}
