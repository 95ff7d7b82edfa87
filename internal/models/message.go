package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SenderTypeClient = "client"
	SenderTypeAdmin  = "admin"
)

// SpamReasonRapidSuccession marks a message accepted inside the spam window of the previous one.
const SpamReasonRapidSuccession = "rapid_succession"

// Message is a saved chat message. Messages are append-only: once created they are
// never updated, and a room's history is ordered by CreatedAt ascending.
type Message struct {
	// ID is the message UUID.
	ID string `gorm:"primaryKey" json:"id"`
	// RoomID is the identifier of the chat room where the message was sent.
	RoomID string `gorm:"not null;index:idx_room_created" json:"room_id"`
	// SenderID is the email of the sender.
	SenderID string `gorm:"not null" json:"sender_id"`
	// SenderType is either "client" or "admin".
	SenderType string `gorm:"not null" json:"sender_type"`

	// Content is the text payload, empty for a bare file upload.
	Content  string `gorm:"type:text" json:"content,omitempty"`
	FileName string `json:"file_name,omitempty"`
	FilePath string `json:"file_path,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`

	IsRead bool `gorm:"not null;default:false" json:"is_read"`
	// IsSpam and SpamReason are display-only flags set at acceptance time.
	IsSpam     bool   `gorm:"not null;default:false" json:"is_spam"`
	SpamReason string `json:"spam_reason,omitempty"`

	CreatedAt time.Time `gorm:"index:idx_room_created" json:"created_at"`
}

// TableName specifies the table name for GORM.
func (Message) TableName() string {
	return "chat_messages"
}

// BeforeCreate generates the message UUID if it is not set yet.
func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return
}

// HasPayload reports whether the message carries non-blank text or a file reference.
func (m *Message) HasPayload() bool {
	return strings.TrimSpace(m.Content) != "" || m.FilePath != ""
}

// IsFromAdmin reports whether the message was authored by support staff.
func (m *Message) IsFromAdmin() bool {
	return m.SenderType == SenderTypeAdmin
}
