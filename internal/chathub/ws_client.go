package chathub

import (
	"chatguard/backend/internal/models"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

// WebSocketClient implements Client over a gorilla/websocket connection.
type WebSocketClient struct {
	ClientID string
	RoomID   string
	Conn     *websocket.Conn
	Hub      *ManagerService
	Send     chan models.StatusEvent
}

// NewWebSocketClient wraps conn as a watcher of roomID.
func NewWebSocketClient(clientID, roomID string, conn *websocket.Conn, hub *ManagerService) *WebSocketClient {
	return &WebSocketClient{
		ClientID: clientID,
		RoomID:   roomID,
		Conn:     conn,
		Hub:      hub,
		Send:     make(chan models.StatusEvent, sendBuffer),
	}
}

func (c *WebSocketClient) GetClientID() string                       { return c.ClientID }
func (c *WebSocketClient) GetRoomID() string                         { return c.RoomID }
func (c *WebSocketClient) GetSendChannel() chan<- models.StatusEvent { return c.Send }

// Run starts the pumps.
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close closes the Send channel, which stops writePump.
func (c *WebSocketClient) Close() {
	close(c.Send)
}

// readPump only keeps the connection alive; the stream is server to client.
func (c *WebSocketClient) readPump() {
	defer func() {
		select {
		case c.Hub.UnregisterCh <- c:
		case <-c.Hub.Done():
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("ERROR: Reading from client %s: %v", c.ClientID, err)
			}
			return
		}
	}
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(event); err != nil {
				log.Printf("ERROR: Writing status event to client %s: %v", c.ClientID, err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
