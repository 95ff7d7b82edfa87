package config

import (
	"fmt"
	"time"
)

const (
	// Burst
	DefaultMinInterval = 5 * time.Second
	DefaultSpamWindow  = 7 * time.Second

	// Flood
	DefaultFloodThreshold         = 10
	DefaultFrequentAskerThreshold = 5
	DefaultBlockDuration          = 30 * time.Minute

	// Spam score
	DefaultSpamWarningThreshold = 3
	DefaultSpamSevereThreshold  = 6
)

// RateLimit holds the policy values used by the anti-abuse engine.
type RateLimit struct {
	// MinInterval is the minimum time between two client messages in a room.
	MinInterval time.Duration
	// SpamWindow is the gap under which an accepted message still counts as a spam signal.
	SpamWindow time.Duration
	// FloodThreshold is the number of client messages without an admin reply that triggers a hard block.
	FloodThreshold int
	// FrequentAskerThreshold is exceeded by consecutive messages before the advisory tier applies.
	FrequentAskerThreshold int
	// BlockDuration is how long input stays disabled after a flood.
	BlockDuration time.Duration
	// SpamWarningThreshold is the spam score at which a room is marked spam_warning.
	SpamWarningThreshold int
	// SpamSevereThreshold is the spam score at which admins are notified.
	SpamSevereThreshold int
}

// DefaultRateLimit returns the built-in policy.
func DefaultRateLimit() RateLimit {
	return RateLimit{
		MinInterval:            DefaultMinInterval,
		SpamWindow:             DefaultSpamWindow,
		FloodThreshold:         DefaultFloodThreshold,
		FrequentAskerThreshold: DefaultFrequentAskerThreshold,
		BlockDuration:          DefaultBlockDuration,
		SpamWarningThreshold:   DefaultSpamWarningThreshold,
		SpamSevereThreshold:    DefaultSpamSevereThreshold,
	}
}

// Validate rejects policies the engine cannot apply.
func (r RateLimit) Validate() error {
	switch {
	case r.MinInterval <= 0:
		return fmt.Errorf("min interval must be positive, got %s", r.MinInterval)
	case r.SpamWindow < 0:
		return fmt.Errorf("spam window must not be negative, got %s", r.SpamWindow)
	case r.FloodThreshold < 1:
		return fmt.Errorf("flood threshold must be at least 1, got %d", r.FloodThreshold)
	case r.FrequentAskerThreshold < 0 || r.FrequentAskerThreshold >= r.FloodThreshold:
		return fmt.Errorf("frequent asker threshold must be in [0, %d), got %d", r.FloodThreshold, r.FrequentAskerThreshold)
	case r.BlockDuration <= 0:
		return fmt.Errorf("block duration must be positive, got %s", r.BlockDuration)
	case r.SpamWarningThreshold < 1:
		return fmt.Errorf("spam warning threshold must be at least 1, got %d", r.SpamWarningThreshold)
	case r.SpamSevereThreshold < r.SpamWarningThreshold:
		return fmt.Errorf("spam severe threshold %d is below warning threshold %d", r.SpamSevereThreshold, r.SpamWarningThreshold)
	}
	return nil
}
