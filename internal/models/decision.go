package models

// User status tiers, from least to most severe.
const (
	StatusActive             = "active"
	StatusUnpaid             = "unpaid"
	StatusFrequentAsker      = "frequent_asker"
	StatusSpamWarning        = "spam_warning"
	StatusTemporarilyBlocked = "temporarily_blocked"
)

// Denial reasons. Each maps to a distinct user-visible message.
const (
	ReasonPaymentNotConfirmed = "payment_not_confirmed"
	ReasonRoomClosed          = "room_closed"
	ReasonInputDisabled       = "input_disabled"
	ReasonTooManyConsecutive  = "too_many_consecutive_messages"
	ReasonRateLimitExceeded   = "rate_limit_exceeded"
)

// Decision is the outcome of a single send-permission check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	// RetryAfter is set in seconds only for time-bounded denials.
	RetryAfter *int64 `json:"retry_after,omitempty"`

	UserStatus          string `json:"user_status,omitempty"`
	ConsecutiveMessages int    `json:"consecutive_messages"`
	SpamScore           int    `json:"spam_score"`
}

// TimeBounded reports whether the denial expires on its own.
func (d Decision) TimeBounded() bool {
	return !d.Allowed && d.RetryAfter != nil
}

// UserStats is the read-time projection of a room's behaviour. It is never stored.
type UserStats struct {
	RoomID                    string `json:"room_id"`
	TotalMessages             int64  `json:"total_messages"`
	MessagesWithoutAdminReply int64  `json:"messages_without_admin_reply"`
	RateLimitViolations       int    `json:"rate_limit_violations"`
	SpamWarnings              int64  `json:"spam_warnings"`
	IsRateLimited             bool   `json:"is_rate_limited"`
	UserStatus                string `json:"user_status"`
	PaymentStatus             string `json:"payment_status"`
	SpamScore                 int    `json:"spam_score"`
	ConsecutiveMessages       int    `json:"consecutive_messages"`
}
