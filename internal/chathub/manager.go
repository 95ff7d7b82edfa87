// Package chathub pushes room status changes to connected chat widgets.
// Status events arrive from Redis Pub/Sub, so every server instance can serve
// the widgets of every room no matter which instance changed the state.
package chathub

import (
	"chatguard/backend/internal/models"
	"context"
	"log"

	"github.com/redis/go-redis/v9"
)

// Subscriber provides the Pub/Sub subscription carrying status events.
type Subscriber interface {
	SubscribeToAllRooms(ctx context.Context) *redis.PubSub
}

// ManagerService keeps the connected clients per room and fans status events out to them.
// All client bookkeeping happens on the Run goroutine.
type ManagerService struct {
	// Clients maps room id to the connections watching it, keyed by client id.
	Clients map[string]map[string]Client

	// Channels
	RegisterCh   chan Client
	UnregisterCh chan Client
	EventsCh     chan models.StatusEvent

	Subscriber Subscriber
	done       chan struct{}
}

// NewManagerService creates a hub. sub may be nil, in which case events are only
// taken from EventsCh.
func NewManagerService(sub Subscriber) *ManagerService {
	return &ManagerService{
		Clients:      make(map[string]map[string]Client),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		EventsCh:     make(chan models.StatusEvent, 64),
		Subscriber:   sub,
		done:         make(chan struct{}),
	}
}

// Done is closed once Run has returned.
func (m *ManagerService) Done() <-chan struct{} {
	return m.done
}

// Run is the hub loop. It returns when ctx is cancelled, closing every client.
func (m *ManagerService) Run(ctx context.Context) {
	defer close(m.done)

	if m.Subscriber != nil {
		m.StartPubSubListener(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			for roomID, clients := range m.Clients {
				for _, client := range clients {
					client.Close()
				}
				delete(m.Clients, roomID)
			}
			log.Println("INFO: Status hub stopped.")
			return

		case client := <-m.RegisterCh:
			m.register(client)

		case client := <-m.UnregisterCh:
			m.unregister(client)

		case event := <-m.EventsCh:
			m.broadcast(event)
		}
	}
}

// ClientCount returns the number of clients watching roomID.
// It must only be used from tests or the Run goroutine.
func (m *ManagerService) ClientCount(roomID string) int {
	return len(m.Clients[roomID])
}

func (m *ManagerService) register(client Client) {
	roomID := client.GetRoomID()
	if m.Clients[roomID] == nil {
		m.Clients[roomID] = make(map[string]Client)
	}
	m.Clients[roomID][client.GetClientID()] = client
	log.Printf("INFO: Client %s watching room %s.", client.GetClientID(), roomID)
}

func (m *ManagerService) unregister(client Client) {
	roomID := client.GetRoomID()
	clients, ok := m.Clients[roomID]
	if !ok {
		return
	}
	if _, ok := clients[client.GetClientID()]; !ok {
		return
	}
	delete(clients, client.GetClientID())
	if len(clients) == 0 {
		delete(m.Clients, roomID)
	}
	client.Close()
}

// broadcast delivers event to the room's clients. A client whose buffer is full
// is disconnected rather than allowed to stall the hub.
func (m *ManagerService) broadcast(event models.StatusEvent) {
	for _, client := range m.Clients[event.RoomID] {
		select {
		case client.GetSendChannel() <- event:
		default:
			log.Printf("WARNING: Client %s is too slow, disconnecting.", client.GetClientID())
			m.unregister(client)
		}
	}
}
