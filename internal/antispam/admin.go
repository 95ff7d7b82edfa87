package antispam

import (
	"chatguard/backend/internal/analysis"
	"chatguard/backend/internal/models"
	"context"
	"log"
	"strings"

	"github.com/lib/pq"
)

// Unblock lifts any block and clears the rate-limit state of the room.
// The spam score is kept; see ResetSpamScore. Calling it on an unblocked room is a no-op.
func (s *Service) Unblock(ctx context.Context, roomID string) error {
	var o *outcome
	room, err := s.Storage.UpdateRoom(ctx, roomID, func(room *models.ChatRoom) error {
		o = s.begin(room)
		room.IsInputDisabled = false
		room.DisabledUntil = nil
		room.ConsecutiveMessages = 0
		room.RateLimitViolations = 0
		room.IsRateLimited = false
		room.UserStatus = models.StatusActive
		return nil
	})
	if err != nil {
		return err
	}
	log.Printf("INFO: Room %s unblocked by admin.", roomID)
	s.finish(ctx, room, o)
	return nil
}

// ResetSpamScore sets the spam score to zero. Status and input flag are left untouched.
func (s *Service) ResetSpamScore(ctx context.Context, roomID string) error {
	var o *outcome
	room, err := s.Storage.UpdateRoom(ctx, roomID, func(room *models.ChatRoom) error {
		o = s.begin(room)
		room.SpamScore = 0
		return nil
	})
	if err != nil {
		return err
	}
	log.Printf("INFO: Spam score of room %s reset by admin.", roomID)
	s.finish(ctx, room, o)
	return nil
}

// CreateRoomParams describes a room opened for a paid order.
type CreateRoomParams struct {
	OrderID          string
	ClientEmail      string
	ClientName       string
	ServiceType      string
	ScreeningTags    []string
	PaymentConfirmed bool
}

// CreateRoom opens the support room of an order.
func (s *Service) CreateRoom(ctx context.Context, p CreateRoomParams) (*models.ChatRoom, error) {
	room := &models.ChatRoom{
		OrderID:          strings.TrimSpace(p.OrderID),
		ClientEmail:      strings.TrimSpace(p.ClientEmail),
		ClientName:       p.ClientName,
		ServiceType:      p.ServiceType,
		ScreeningTags:    pq.StringArray(p.ScreeningTags),
		Status:           models.RoomStatusActive,
		PaymentConfirmed: p.PaymentConfirmed,
	}
	if room.OrderID == "" || room.ClientEmail == "" {
		return nil, ErrInvalidRoom
	}
	room.UserStatus = analysis.DeriveStatus(room, s.now(), s.Policy)

	if err := s.Storage.CreateRoom(ctx, room); err != nil {
		return nil, err
	}
	log.Printf("INFO: Room %s created for order %s.", room.RoomID, room.OrderID)
	return room, nil
}

// SetPaymentConfirmed records the payment collaborator's verdict for the room.
func (s *Service) SetPaymentConfirmed(ctx context.Context, roomID string, confirmed bool) (*models.ChatRoom, error) {
	var o *outcome
	room, err := s.Storage.UpdateRoom(ctx, roomID, func(room *models.ChatRoom) error {
		o = s.begin(room)
		room.PaymentConfirmed = confirmed
		room.UserStatus = analysis.DeriveStatus(room, s.now(), s.Policy)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.finish(ctx, room, o)
	return room, nil
}

// CloseRoom marks the room closed. Rooms are never deleted.
func (s *Service) CloseRoom(ctx context.Context, roomID string) error {
	_, err := s.Storage.UpdateRoom(ctx, roomID, func(room *models.ChatRoom) error {
		room.Status = models.RoomStatusClosed
		return nil
	})
	return err
}

// FlaggedRooms lists rooms whose client is frequent_asker or worse.
func (s *Service) FlaggedRooms(ctx context.Context, limit int) ([]models.ChatRoom, error) {
	return s.Storage.ListFlaggedRooms(ctx, limit)
}

// Messages returns the room history in ascending order.
func (s *Service) Messages(ctx context.Context, roomID string, limit int) ([]models.Message, error) {
	return s.Storage.GetMessages(ctx, roomID, limit)
}
