package storage

import (
	"chatguard/backend/internal/models"
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"
)

const statusChannelPrefix = "room_status:"

// StatusChannel returns the Redis channel that carries status events of one room.
func StatusChannel(roomID string) string {
	return statusChannelPrefix + roomID
}

// RoomIDFromChannel is the inverse of StatusChannel.
func RoomIDFromChannel(channel string) (string, bool) {
	if !strings.HasPrefix(channel, statusChannelPrefix) {
		return "", false
	}
	return strings.TrimPrefix(channel, statusChannelPrefix), true
}

// PublishStatus публікує зміну статусу кімнати в Redis Pub/Sub.
func (s *Service) PublishStatus(ctx context.Context, event models.StatusEvent) error {
	if s.Redis == nil {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return wrap("encode status", err)
	}

	if err := s.Redis.Publish(ctx, StatusChannel(event.RoomID), payload).Err(); err != nil {
		return wrap("publish status", err)
	}
	return nil
}

// SubscribeToAllRooms subscribes to the status channels of every room.
func (s *Service) SubscribeToAllRooms(ctx context.Context) *redis.PubSub {
	return s.Redis.PSubscribe(ctx, statusChannelPrefix+"*")
}
