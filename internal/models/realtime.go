package models

import "time"

// StatusEvent is published after every committed change of a room's abuse state.
// The delivery layer uses it to toggle the input box without polling.
type StatusEvent struct {
	RoomID          string     `json:"room_id"`
	UserStatus      string     `json:"user_status"`
	IsInputDisabled bool       `json:"is_input_disabled"`
	DisabledUntil   *time.Time `json:"disabled_until,omitempty"`
	SpamScore       int        `json:"spam_score"`
	Reason          string     `json:"reason,omitempty"` // denial reason that caused the change, if any
	At              time.Time  `json:"at"`
}

// NewStatusEvent snapshots the room state.
func NewStatusEvent(room *ChatRoom, reason string, at time.Time) StatusEvent {
	return StatusEvent{
		RoomID:          room.RoomID,
		UserStatus:      room.UserStatus,
		IsInputDisabled: room.IsInputDisabled,
		DisabledUntil:   room.DisabledUntil,
		SpamScore:       room.SpamScore,
		Reason:          reason,
		At:              at,
	}
}
