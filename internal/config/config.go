// Package config holds the anti-abuse policy defaults and the service
// configuration read from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvDatabaseDSN = "DATABASE_DSN"
	EnvDBHost      = "DB_HOST"
	EnvDBUser      = "DB_USER"
	EnvDBPassword  = "DB_PASSWORD"
	EnvDBName      = "DB_NAME"
	EnvDBPort      = "DB_PORT"
	EnvDBSSLMode   = "DB_SSLMODE"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvListenAddr     = "LISTEN_ADDR"
	EnvAdminJWTSecret = "ADMIN_JWT_SECRET"

	EnvTelegramToken       = "TELEGRAM_BOT_TOKEN"
	EnvTelegramAdminChatID = "TELEGRAM_ADMIN_CHAT_ID"

	EnvMinInterval            = "RATE_MIN_INTERVAL"
	EnvSpamWindow             = "RATE_SPAM_WINDOW"
	EnvFloodThreshold         = "RATE_FLOOD_THRESHOLD"
	EnvFrequentAskerThreshold = "RATE_FREQUENT_ASKER_THRESHOLD"
	EnvBlockDuration          = "RATE_BLOCK_DURATION"
	EnvSpamWarningThreshold   = "RATE_SPAM_WARNING_THRESHOLD"
	EnvSpamSevereThreshold    = "RATE_SPAM_SEVERE_THRESHOLD"
)

// Config is the full service configuration.
type Config struct {
	DatabaseDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ListenAddr     string
	AdminJWTSecret string

	TelegramToken       string
	TelegramAdminChatID int64

	RateLimit RateLimit
}

// Load reads the configuration from the process environment.
// Call godotenv.Load beforehand if a .env file should be honoured.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseDSN:    DatabaseDSN(),
		RedisAddr:      GetOrDefault(EnvRedisAddr, "localhost:6379"),
		RedisPassword:  Get(EnvRedisPassword),
		ListenAddr:     GetOrDefault(EnvListenAddr, ":8080"),
		AdminJWTSecret: Get(EnvAdminJWTSecret),
		TelegramToken:  Get(EnvTelegramToken),
	}

	var err error
	if cfg.RedisDB, err = intOrDefault(EnvRedisDB, 0); err != nil {
		return nil, err
	}
	if raw := Get(EnvTelegramAdminChatID); raw != "" {
		cfg.TelegramAdminChatID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("config: %s: %w", EnvTelegramAdminChatID, err)
		}
	}
	if cfg.AdminJWTSecret == "" {
		return nil, fmt.Errorf("config: required environment variable not set: %s", EnvAdminJWTSecret)
	}

	cfg.RateLimit, err = LoadRateLimit()
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadRateLimit reads policy overrides from the environment on top of DefaultRateLimit.
func LoadRateLimit() (RateLimit, error) {
	rl := DefaultRateLimit()

	var err error
	if rl.MinInterval, err = durationOrDefault(EnvMinInterval, rl.MinInterval); err != nil {
		return rl, err
	}
	if rl.SpamWindow, err = durationOrDefault(EnvSpamWindow, rl.SpamWindow); err != nil {
		return rl, err
	}
	if rl.BlockDuration, err = durationOrDefault(EnvBlockDuration, rl.BlockDuration); err != nil {
		return rl, err
	}
	if rl.FloodThreshold, err = intOrDefault(EnvFloodThreshold, rl.FloodThreshold); err != nil {
		return rl, err
	}
	if rl.FrequentAskerThreshold, err = intOrDefault(EnvFrequentAskerThreshold, rl.FrequentAskerThreshold); err != nil {
		return rl, err
	}
	if rl.SpamWarningThreshold, err = intOrDefault(EnvSpamWarningThreshold, rl.SpamWarningThreshold); err != nil {
		return rl, err
	}
	if rl.SpamSevereThreshold, err = intOrDefault(EnvSpamSevereThreshold, rl.SpamSevereThreshold); err != nil {
		return rl, err
	}

	if err := rl.Validate(); err != nil {
		return rl, fmt.Errorf("config: %w", err)
	}
	return rl, nil
}

// DatabaseDSN returns DATABASE_DSN or builds a Postgres DSN from the DB_* variables.
func DatabaseDSN() string {
	if dsn := Get(EnvDatabaseDSN); dsn != "" {
		return dsn
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		GetOrDefault(EnvDBHost, "localhost"),
		GetOrDefault(EnvDBUser, "user"),
		Get(EnvDBPassword),
		GetOrDefault(EnvDBName, "chatguard"),
		GetOrDefault(EnvDBPort, "5432"),
		GetOrDefault(EnvDBSSLMode, "disable"),
	)
}

func Get(key string) string {
	return os.Getenv(key)
}

func GetOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func intOrDefault(key string, defaultVal int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return v, nil
}

// durationOrDefault accepts Go durations ("5s", "30m") or a bare number of seconds.
func durationOrDefault(key string, defaultVal time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}
