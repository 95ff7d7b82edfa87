package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

const (
	RoomStatusActive = "active"
	RoomStatusClosed = "closed"
)

const (
	PaymentStatusConfirmed = "confirmed"
	PaymentStatusPending   = "pending"
)

// ChatRoom represents the support conversation attached to one paid order.
// Besides ownership data it carries the anti-abuse state of the client, which is
// mutated only by the antispam engine or an admin override.
type ChatRoom struct {
	// RoomID is the unique identifier for the chat room (UUID).
	RoomID string `gorm:"primaryKey" json:"room_id"`
	// OrderID links the room to the order whose payment opened it.
	OrderID string `gorm:"index;not null" json:"order_id"`
	// ClientEmail identifies the client; it is the rate-limited subject of the room.
	ClientEmail string `gorm:"index;not null" json:"client_email"`
	ClientName  string `json:"client_name"`
	ServiceType string `json:"service_type"`
	// ScreeningTags are the urgency/category labels set by the screening intake.
	ScreeningTags pq.StringArray `gorm:"type:text[]" json:"screening_tags"`

	// Status is either "active" or "closed".
	Status string `gorm:"not null;default:active" json:"status"`
	// PaymentConfirmed is set by the payment collaborator. Chat is denied while it is false.
	PaymentConfirmed bool `gorm:"not null;default:false" json:"payment_confirmed"`

	// UserStatus is the derived abuse tier, stored for querying.
	UserStatus          string     `gorm:"not null;default:active" json:"user_status"`
	SpamScore           int        `gorm:"not null;default:0" json:"spam_score"`
	ConsecutiveMessages int        `gorm:"not null;default:0" json:"consecutive_messages"`
	RateLimitViolations int        `gorm:"not null;default:0" json:"rate_limit_violations"`
	IsRateLimited       bool       `gorm:"not null;default:false" json:"is_rate_limited"`
	IsInputDisabled     bool       `gorm:"not null;default:false" json:"is_input_disabled"`
	DisabledUntil       *time.Time `json:"disabled_until"`
	// LastClientMessageAt is the creation time of the latest accepted client message.
	LastClientMessageAt *time.Time `json:"last_client_message_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate generates the room UUID and fills the lifecycle defaults.
func (r *ChatRoom) BeforeCreate(tx *gorm.DB) (err error) {
	if r.RoomID == "" {
		r.RoomID = uuid.New().String()
	}
	if r.Status == "" {
		r.Status = RoomStatusActive
	}
	if r.UserStatus == "" {
		r.UserStatus = StatusActive
	}
	return
}

// IsHardBlocked reports whether input is disabled and the block has not yet expired.
func (r *ChatRoom) IsHardBlocked(now time.Time) bool {
	return r.IsInputDisabled && r.DisabledUntil != nil && r.DisabledUntil.After(now)
}

// PaymentStatus renders the payment flag the way the delivery layer expects it.
func (r *ChatRoom) PaymentStatus() string {
	if r.PaymentConfirmed {
		return PaymentStatusConfirmed
	}
	return PaymentStatusPending
}
