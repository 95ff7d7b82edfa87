package chathub

import (
	"chatguard/backend/internal/models"
	"chatguard/backend/internal/storage"
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

// StartPubSubListener starts a goroutine that forwards status events from Redis Pub/Sub
// to EventsCh until ctx is cancelled.
func (m *ManagerService) StartPubSubListener(ctx context.Context) {
	pubsub := m.Subscriber.SubscribeToAllRooms(ctx)

	go func() {
		<-ctx.Done()
		pubsub.Close()
	}()

	go func() {
		for msg := range pubsub.Channel() {
			event, err := decodeEvent(msg)
			if err != nil {
				log.Printf("ERROR: Failed to decode status event: %v", err)
				continue
			}

			select {
			case m.EventsCh <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
}

func decodeEvent(msg *redis.Message) (models.StatusEvent, error) {
	var event models.StatusEvent
	if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
		return event, fmt.Errorf("channel %s: %w", msg.Channel, err)
	}
	if event.RoomID == "" {
		roomID, ok := storage.RoomIDFromChannel(msg.Channel)
		if !ok {
			return event, fmt.Errorf("channel %s carries no room id", msg.Channel)
		}
		event.RoomID = roomID
	}
	return event, nil
}
