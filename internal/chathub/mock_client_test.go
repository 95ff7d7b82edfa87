package chathub_test

import (
	"chatguard/backend/internal/models"
	"sync"
)

type MockClient struct {
	clientID    string
	roomID      string
	RecvChannel chan models.StatusEvent

	mu     sync.Mutex
	closed bool
}

func newMockClient(clientID, roomID string, buffer int) *MockClient {
	return &MockClient{
		clientID:    clientID,
		roomID:      roomID,
		RecvChannel: make(chan models.StatusEvent, buffer),
	}
}

func (c *MockClient) GetClientID() string {
	return c.clientID
}

func (c *MockClient) GetRoomID() string {
	return c.roomID
}

func (c *MockClient) GetSendChannel() chan<- models.StatusEvent {
	return c.RecvChannel
}

func (c *MockClient) Run() {
	// Not needed for testing
}

func (c *MockClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *MockClient) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
