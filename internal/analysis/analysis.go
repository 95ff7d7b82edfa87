// Package analysis turns a room's behavioural counters into a user status tier.
// The status is a pure function of the counters, so every writer that changes
// them recomputes it in the same transaction instead of setting it by hand.
package analysis

import (
	"chatguard/backend/internal/config"
	"chatguard/backend/internal/models"
	"time"
)

var severity = map[string]int{
	models.StatusActive:             0,
	models.StatusUnpaid:             1,
	models.StatusFrequentAsker:      2,
	models.StatusSpamWarning:        3,
	models.StatusTemporarilyBlocked: 4,
}

// Severity returns the rank of a status tier. Unknown tiers rank as active.
func Severity(status string) int {
	return severity[status]
}

// DeriveStatus computes the tier for the room at the given instant.
func DeriveStatus(room *models.ChatRoom, now time.Time, rl config.RateLimit) string {
	switch {
	case room.IsHardBlocked(now):
		return models.StatusTemporarilyBlocked
	case room.SpamScore >= rl.SpamWarningThreshold:
		return models.StatusSpamWarning
	case room.ConsecutiveMessages > rl.FrequentAskerThreshold:
		return models.StatusFrequentAsker
	case !room.PaymentConfirmed:
		return models.StatusUnpaid
	default:
		return models.StatusActive
	}
}
