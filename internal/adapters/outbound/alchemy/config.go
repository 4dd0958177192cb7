package alchemy

import (
	"errors"
	"log/slog"
	"time"
)

// Default configuration values for reconnection.
const (
	defaultInitialBackoff    = 1 * time.Second
	defaultMaxBackoff        = 60 * time.Second
	defaultBackoffFactor     = 2.0
	defaultPingInterval      = 30 * time.Second
	defaultPongTimeout       = 10 * time.Second
	defaultReadTimeout       = 60 * time.Second
	defaultChannelBufferSize = 32
)

// Config holds the configuration for the Alchemy WebSocket subscriber,
// trimmed to what the block source's subscription strategy needs: a
// live newHeads feed with automatic reconnection. Dedup, monotonic
// advancement, and fallback to the HTTP strategies are the caller's
// job (internal/blocksource), not this adapter's.
type Config struct {
	// WebSocketURL is the Alchemy WebSocket endpoint URL.
	// Example: wss://polygon-mainnet.g.alchemy.com/v2/<api-key>
	WebSocketURL string

	// InitialBackoff is the initial delay before reconnecting after a disconnect.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum delay between reconnection attempts.
	MaxBackoff time.Duration

	// BackoffFactor is the multiplier applied to backoff after each failed attempt.
	BackoffFactor float64

	// PingInterval is how often to send ping messages to keep the connection alive.
	PingInterval time.Duration

	// PongTimeout is how long a ping write may block before the connection
	// is considered dead.
	PongTimeout time.Duration

	// ReadTimeout is the maximum time to wait for a message before the
	// connection is considered dead.
	ReadTimeout time.Duration

	// ChannelBufferSize is the size of the block header channel buffer.
	ChannelBufferSize int

	// Logger is the structured logger for the subscriber.
	Logger *slog.Logger
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.WebSocketURL == "" {
		return errors.New("WebSocketURL is required")
	}
	return nil
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.InitialBackoff == 0 {
		c.InitialBackoff = defaultInitialBackoff
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = defaultMaxBackoff
	}
	if c.BackoffFactor == 0 {
		c.BackoffFactor = defaultBackoffFactor
	}
	if c.PingInterval == 0 {
		c.PingInterval = defaultPingInterval
	}
	if c.PongTimeout == 0 {
		c.PongTimeout = defaultPongTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = defaultReadTimeout
	}
	if c.ChannelBufferSize == 0 {
		c.ChannelBufferSize = defaultChannelBufferSize
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
