package antispam

import (
	"chatguard/backend/internal/analysis"
	"chatguard/backend/internal/models"
	"context"
	"time"
)

// GetStatusSummary projects the room counters and history into UserStats.
// It has no side effects: a block that has expired but was not lifted yet is
// reported as lifted without writing anything. IsRateLimited is derived from the
// clock, not from the flag stored by the last burst denial.
func (s *Service) GetStatusSummary(ctx context.Context, roomID string) (*models.UserStats, error) {
	room, err := s.Storage.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	counts, err := s.Storage.GetMessageCounts(ctx, roomID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	view := *room
	if view.IsInputDisabled && !view.IsHardBlocked(now) {
		s.expireBlock(&view, now)
		view.UserStatus = analysis.DeriveStatus(&view, now, s.Policy)
	}

	return &models.UserStats{
		RoomID:                    view.RoomID,
		TotalMessages:             counts.Total,
		MessagesWithoutAdminReply: counts.SinceAdminReply,
		RateLimitViolations:       view.RateLimitViolations,
		SpamWarnings:              counts.Spam,
		IsRateLimited:             s.inBurstWindow(&view, now) || view.IsHardBlocked(now),
		UserStatus:                view.UserStatus,
		PaymentStatus:             view.PaymentStatus(),
		SpamScore:                 view.SpamScore,
		ConsecutiveMessages:       view.ConsecutiveMessages,
	}, nil
}

// inBurstWindow reports whether a send now would still hit the minimum interval.
func (s *Service) inBurstWindow(room *models.ChatRoom, now time.Time) bool {
	return room.LastClientMessageAt != nil && now.Sub(*room.LastClientMessageAt) < s.Policy.MinInterval
}
