package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	StorageDriverPostgres = "postgres"
	// StorageDriverMemory is for development and tests only. Every
	// transaction snapshots the whole state under one lock and nothing
	// survives a restart.
	StorageDriverMemory = "memory"
)

type Config struct {
	// Core
	DatabaseURL   string `env:"DATABASE_URL"`
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"postgres"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`

	// Server
	Port int `env:"PORT" envDefault:"8080"`

	// Catalog: embedded default when empty
	CatalogPath     string        `env:"CATALOG_PATH"`
	DefaultCooldown time.Duration `env:"DEFAULT_COOLDOWN" envDefault:"1h"`

	// Auth: bearer token -> owner id
	APITokens map[string]string `env:"API_TOKENS" envSeparator:"," envKeyValSeparator:":"`
	AdminIDs  []string          `env:"ADMIN_IDS" envSeparator:","`

	// Payment provider callbacks
	PaymentCallbackSecret string `env:"PAYMENT_CALLBACK_SECRET"`

	// Requests per owner per minute, 0 disables
	RateLimitPerMinute int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"120"`

	// Telegram ops logging
	BotToken            string `env:"BOT_TOKEN"`
	LogTelegramChatID   int64  `env:"LOG_TELEGRAM_CHAT_ID"`
	LogTopicError       int    `env:"LOG_TOPIC_ERROR"`
	LogTopicOrderFailed int    `env:"LOG_TOPIC_ORDER_FAILED"`
	LogTopicIssue       int    `env:"LOG_TOPIC_ISSUE"`
	LogTopicPayment     int    `env:"LOG_TOPIC_PAYMENT"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL is required for the postgres driver")
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("config: unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.DefaultCooldown < 0 {
		return fmt.Errorf("config: DEFAULT_COOLDOWN must not be negative")
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("config: RATE_LIMIT_PER_MINUTE must not be negative")
	}
	return nil
}

func (c *Config) IsAdmin(ownerID string) bool {
	for _, id := range c.AdminIDs {
		if id == ownerID {
			return true
		}
	}
	return false
}

// TelegramLogEnabled reports whether ops events are mirrored to Telegram.
func (c *Config) TelegramLogEnabled() bool {
	return c.BotToken != "" && c.LogTelegramChatID != 0
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
