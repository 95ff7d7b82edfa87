package antispam

import (
	"chatguard/backend/internal/analysis"
	"chatguard/backend/internal/models"
	"context"
	"strings"
	"time"
)

// CheckSendPermission decides whether the room's client may send a message or file now.
//
// The check is read-mostly. It writes only state that is a consequence of the check
// itself: an expired block is lifted, a flood turns into a hard block, and a burst
// denial counts as a rate-limit violation. Those writes share the room's transaction,
// so if they cannot be persisted no decision is returned at all.
func (s *Service) CheckSendPermission(ctx context.Context, roomID, senderEmail string) (models.Decision, error) {
	var (
		decision models.Decision
		o        *outcome
	)

	room, err := s.Storage.UpdateRoom(ctx, roomID, func(room *models.ChatRoom) error {
		if !sameSender(room.ClientEmail, senderEmail) {
			return ErrInvalidSender
		}
		o = s.begin(room)
		decision = s.evaluate(room, s.now(), o)
		return nil
	})
	if err != nil {
		return models.Decision{}, err
	}

	s.metrics.observe(decision)
	s.finish(ctx, room, o)
	return decision, nil
}

// PostMessageParams describes a message to persist in a room.
type PostMessageParams struct {
	RoomID      string
	SenderEmail string
	SenderType  string
	Content     string
	FileName    string
	FilePath    string
	FileSize    int64
}

// PostResult is the outcome of PostMessage. Message is nil when the send was denied.
type PostResult struct {
	Decision models.Decision
	Message  *models.Message
}

// PostMessage runs the send-permission decision and, if the client is allowed, stores
// the message together with the accepted-message bookkeeping in one transaction.
// Admin messages are never rate-limited; they reset the flood counter instead.
func (s *Service) PostMessage(ctx context.Context, p PostMessageParams) (*PostResult, error) {
	msg := &models.Message{
		SenderID:   strings.TrimSpace(p.SenderEmail),
		SenderType: p.SenderType,
		Content:    p.Content,
		FileName:   p.FileName,
		FilePath:   p.FilePath,
		FileSize:   p.FileSize,
	}
	if msg.SenderType == "" {
		msg.SenderType = models.SenderTypeClient
	}
	if !msg.HasPayload() {
		return nil, ErrInvalidMessage
	}
	if msg.SenderType != models.SenderTypeClient && msg.SenderType != models.SenderTypeAdmin {
		return nil, ErrInvalidMessage
	}

	var (
		decision models.Decision
		o        *outcome
	)

	room, saved, err := s.Storage.AppendMessage(ctx, p.RoomID, func(room *models.ChatRoom) (*models.Message, error) {
		now := s.now()
		msg.CreatedAt = now
		o = s.begin(room)

		if msg.IsFromAdmin() {
			s.applyAdminReply(room, now)
			decision = allow(room)
			return msg, nil
		}

		if !sameSender(room.ClientEmail, msg.SenderID) {
			return nil, ErrInvalidSender
		}
		decision = s.evaluate(room, now, o)
		if !decision.Allowed {
			return nil, nil
		}
		s.applyAccepted(room, msg, now, o)
		decision = allow(room)
		if o.blocked {
			// Accepted, but this message tripped the flood block.
			decision.Reason = models.ReasonTooManyConsecutive
		}
		return msg, nil
	})
	if err != nil {
		return nil, err
	}

	if !msg.IsFromAdmin() {
		s.metrics.observe(decision)
	}
	s.finish(ctx, room, o)
	return &PostResult{Decision: decision, Message: saved}, nil
}

// OnMessageAccepted applies the accepted-message bookkeeping for a message that was
// persisted outside PostMessage. msg.CreatedAt is used as the send time when set.
func (s *Service) OnMessageAccepted(ctx context.Context, roomID string, msg *models.Message) (*models.ChatRoom, error) {
	var o *outcome
	room, err := s.Storage.UpdateRoom(ctx, roomID, func(room *models.ChatRoom) error {
		now := msg.CreatedAt
		if now.IsZero() {
			now = s.now()
		}
		o = s.begin(room)
		if msg.IsFromAdmin() {
			s.applyAdminReply(room, now)
			return nil
		}
		s.applyAccepted(room, msg, now, o)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.finish(ctx, room, o)
	return room, nil
}

// OnAdminReply resets the flood counter after an admin-authored message was persisted.
func (s *Service) OnAdminReply(ctx context.Context, roomID string) error {
	var o *outcome
	room, err := s.Storage.UpdateRoom(ctx, roomID, func(room *models.ChatRoom) error {
		o = s.begin(room)
		s.applyAdminReply(room, s.now())
		return nil
	})
	if err != nil {
		return err
	}
	s.finish(ctx, room, o)
	return nil
}

// evaluate applies the decision precedence to a locked room. First match wins:
// payment gate, closed room, hard block, flood, burst.
func (s *Service) evaluate(room *models.ChatRoom, now time.Time, o *outcome) models.Decision {
	s.expireBlock(room, now)

	switch {
	case !room.PaymentConfirmed:
		return s.deny(room, now, models.ReasonPaymentNotConfirmed, nil)

	case room.Status == models.RoomStatusClosed:
		return s.deny(room, now, models.ReasonRoomClosed, nil)

	case room.IsHardBlocked(now):
		retry := ceilSeconds(room.DisabledUntil.Sub(now))
		return s.deny(room, now, models.ReasonInputDisabled, &retry)

	case room.ConsecutiveMessages >= s.Policy.FloodThreshold:
		s.block(room, now, o)
		o.reason = models.ReasonTooManyConsecutive
		retry := ceilSeconds(s.Policy.BlockDuration)
		return s.deny(room, now, models.ReasonTooManyConsecutive, &retry)
	}

	if room.LastClientMessageAt != nil {
		elapsed := now.Sub(*room.LastClientMessageAt)
		if elapsed < s.Policy.MinInterval {
			room.RateLimitViolations++
			room.IsRateLimited = true
			wait := s.Policy.MinInterval - elapsed
			if wait > s.Policy.MinInterval {
				wait = s.Policy.MinInterval
			}
			retry := ceilSeconds(wait)
			o.reason = models.ReasonRateLimitExceeded
			return s.deny(room, now, models.ReasonRateLimitExceeded, &retry)
		}
	}

	room.IsRateLimited = false
	room.UserStatus = analysis.DeriveStatus(room, now, s.Policy)
	return allow(room)
}

// applyAccepted is the bookkeeping for an accepted client message.
func (s *Service) applyAccepted(room *models.ChatRoom, msg *models.Message, now time.Time, o *outcome) {
	prev := room.LastClientMessageAt

	room.ConsecutiveMessages++
	room.LastClientMessageAt = &now
	room.IsRateLimited = false

	if prev != nil && now.Sub(*prev) < s.Policy.SpamWindow {
		before := room.SpamScore
		room.SpamScore++
		msg.IsSpam = true
		msg.SpamReason = models.SpamReasonRapidSuccession
		if before < s.Policy.SpamSevereThreshold && room.SpamScore >= s.Policy.SpamSevereThreshold {
			o.severe = true
		}
	}

	if room.ConsecutiveMessages >= s.Policy.FloodThreshold && !room.IsHardBlocked(now) {
		s.block(room, now, o)
		o.reason = models.ReasonTooManyConsecutive
	}

	room.UserStatus = analysis.DeriveStatus(room, now, s.Policy)
}

func (s *Service) applyAdminReply(room *models.ChatRoom, now time.Time) {
	s.expireBlock(room, now)
	room.ConsecutiveMessages = 0
	room.UserStatus = analysis.DeriveStatus(room, now, s.Policy)
}

// block disables input for the configured duration.
func (s *Service) block(room *models.ChatRoom, now time.Time, o *outcome) {
	until := now.Add(s.Policy.BlockDuration)
	room.IsInputDisabled = true
	room.DisabledUntil = &until
	room.UserStatus = models.StatusTemporarilyBlocked
	o.blocked = true
}

// expireBlock lifts a block whose deadline has passed. Blocks are never lifted by a
// timer, only here, lazily, on the next operation that touches the room. The flood
// counter is kept: only an admin reply or an unblock lowers it.
func (s *Service) expireBlock(room *models.ChatRoom, now time.Time) {
	if !room.IsInputDisabled || room.IsHardBlocked(now) {
		return
	}
	room.IsInputDisabled = false
	room.DisabledUntil = nil
	room.IsRateLimited = false
}

func (s *Service) deny(room *models.ChatRoom, now time.Time, reason string, retryAfter *int64) models.Decision {
	room.UserStatus = analysis.DeriveStatus(room, now, s.Policy)
	return models.Decision{
		Allowed:             false,
		Reason:              reason,
		RetryAfter:          retryAfter,
		UserStatus:          room.UserStatus,
		ConsecutiveMessages: room.ConsecutiveMessages,
		SpamScore:           room.SpamScore,
	}
}

func allow(room *models.ChatRoom) models.Decision {
	return models.Decision{
		Allowed:             true,
		UserStatus:          room.UserStatus,
		ConsecutiveMessages: room.ConsecutiveMessages,
		SpamScore:           room.SpamScore,
	}
}

// ceilSeconds rounds up to whole seconds, floored at 0.
func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64((d + time.Second - 1) / time.Second)
}

func sameSender(clientEmail, sender string) bool {
	return strings.EqualFold(strings.TrimSpace(clientEmail), strings.TrimSpace(sender))
}
