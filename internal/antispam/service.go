// Package antispam is the rate-limit and abuse policy engine of the support chat.
// For every send attempt it decides whether the client may talk, keeps the
// per-room behavioural counters and escalates the client's status tier.
// All counter updates happen under the room's row lock, so concurrent attempts
// in one room are serialized and cannot lose increments.
package antispam

import (
	"chatguard/backend/internal/analysis"
	"chatguard/backend/internal/config"
	"chatguard/backend/internal/models"
	"chatguard/backend/internal/storage"
	"context"
	"errors"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ErrNotFound is returned for an unknown room id.
	ErrNotFound = storage.ErrRoomNotFound
	// ErrInvalidSender is returned when the sender is not the room's client.
	ErrInvalidSender = errors.New("sender does not own this chat room")
	// ErrInvalidMessage is returned for a message without text and without a file.
	ErrInvalidMessage = errors.New("message has neither text nor file")
	// ErrInvalidRoom is returned when a room is created without order or client email.
	ErrInvalidRoom = errors.New("room requires an order id and a client email")
)

// Notifier alerts support staff about escalations. Implementations must not
// block for long; failures are logged and never affect the decision.
type Notifier interface {
	RoomBlocked(ctx context.Context, room *models.ChatRoom) error
	SpamThresholdReached(ctx context.Context, room *models.ChatRoom) error
}

type nopNotifier struct{}

func (nopNotifier) RoomBlocked(context.Context, *models.ChatRoom) error          { return nil }
func (nopNotifier) SpamThresholdReached(context.Context, *models.ChatRoom) error { return nil }

// Service handles the business logic of the anti-abuse engine.
type Service struct {
	Storage  storage.Storage
	Policy   config.RateLimit
	Notifier Notifier

	metrics *metrics
	now     func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithNotifier sets the escalation notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.Notifier = n
		}
	}
}

// WithRegisterer registers the engine metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *Service) { s.metrics = newMetrics(reg) }
}

// NewService creates a new antispam service.
func NewService(s storage.Storage, policy config.RateLimit, opts ...Option) *Service {
	svc := &Service{
		Storage:  s,
		Policy:   policy,
		Notifier: nopNotifier{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.metrics == nil {
		svc.metrics = newMetrics(nil)
	}
	return svc
}

// outcome collects what has to happen after a room transaction commits.
type outcome struct {
	before  models.ChatRoom
	reason  string
	blocked bool
	severe  bool
}

func (s *Service) begin(room *models.ChatRoom) *outcome {
	return &outcome{before: *room}
}

// finish publishes the status event and sends notifications for a committed change.
// Both are best effort: the state is already durable.
func (s *Service) finish(ctx context.Context, room *models.ChatRoom, o *outcome) {
	if room == nil || o == nil {
		return
	}

	if o.blocked {
		s.metrics.blocks.Inc()
		log.Printf("WARNING: Room %s temporarily blocked until %s (%d consecutive messages).",
			room.RoomID, room.DisabledUntil.Format(time.RFC3339), room.ConsecutiveMessages)
		if err := s.Notifier.RoomBlocked(ctx, room); err != nil {
			log.Printf("ERROR: Failed to notify admins about blocked room %s: %v", room.RoomID, err)
		}
	}
	if o.severe {
		log.Printf("WARNING: Room %s reached spam score %d.", room.RoomID, room.SpamScore)
		if err := s.Notifier.SpamThresholdReached(ctx, room); err != nil {
			log.Printf("ERROR: Failed to notify admins about spam in room %s: %v", room.RoomID, err)
		}
	}

	if analysis.Severity(room.UserStatus) > analysis.Severity(o.before.UserStatus) {
		log.Printf("INFO: Room %s escalated from %s to %s.", room.RoomID, o.before.UserStatus, room.UserStatus)
	}

	if o.before.UserStatus == room.UserStatus &&
		o.before.IsInputDisabled == room.IsInputDisabled &&
		o.before.SpamScore == room.SpamScore {
		return
	}
	event := models.NewStatusEvent(room, o.reason, s.now())
	if err := s.Storage.PublishStatus(ctx, event); err != nil {
		log.Printf("ERROR: Failed to publish status of room %s: %v", room.RoomID, err)
	}
}
