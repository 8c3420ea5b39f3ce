package config

import "time"

const (
	// Upper bound of one available-tasks listing
	MaxAvailableTasks = 100

	// Rate limit window and cleanup of expired windows
	RateLimitWindow    = time.Minute
	RateLimitCleanup   = 60 * time.Second
	RateLimitRetention = 10 * time.Minute

	// HTTP server
	ReadHeaderTimeout = 10 * time.Second
	RequestTimeout    = 30 * time.Second
	ShutdownTimeout   = 15 * time.Second
	HealthTimeout     = 2 * time.Second

	// Telegram limits
	MaxTelegramMessageLen = 4096
	TelegramSendTimeout   = 10 * time.Second

	// Largest accepted payment callback body
	MaxCallbackBodyBytes = 64 << 10

	// Longest accepted order target URL
	MaxTargetURLLen = 2048

	// Most groups in one bulk submission
	MaxBulkGroups = 100
)
