package chathub

import (
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent(t *testing.T) {
	event, err := decodeEvent(&redis.Message{
		Channel: "room_status:room1",
		Payload: `{"room_id":"room1","user_status":"spam_warning","spam_score":3}`,
	})
	require.NoError(t, err)
	assert.Equal(t, "room1", event.RoomID)
	assert.Equal(t, 3, event.SpamScore)

	event, err = decodeEvent(&redis.Message{Channel: "room_status:room2", Payload: `{"user_status":"active"}`})
	require.NoError(t, err)
	assert.Equal(t, "room2", event.RoomID, "room id falls back to the channel name")

	_, err = decodeEvent(&redis.Message{Channel: "room_status:room1", Payload: `not json`})
	assert.Error(t, err)

	_, err = decodeEvent(&redis.Message{Channel: "other", Payload: `{}`})
	assert.Error(t, err)
}
