package chathub

import "chatguard/backend/internal/models"

// Client is the interface for a live subscriber to the status of one chat room.
// It abstracts the underlying connection so the hub can fan events out uniformly.
type Client interface {
	// GetClientID returns the unique identifier of the connection.
	GetClientID() string
	// GetRoomID returns the room whose status events the client receives.
	GetRoomID() string

	// GetSendChannel returns the channel to which the ManagerService (hub) sends
	// events intended for this specific client. It is a send-only channel.
	GetSendChannel() chan<- models.StatusEvent

	// Run starts the client's read and write pumps.
	Run()
	// Close gracefully shuts down the client's connection and associated channels.
	Close()
}
