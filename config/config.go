// Package config defines the runtime configuration for gorelay and
// validates it before anything binds a socket.
package config

import (
	"time"

	"gorelay/internal/errors"
)

// Config holds every tuneable for a single gorelay process.
type Config struct {
	// ── Connection ───────────────────────────────────────────────────
	Host   string // connect mode: server address
	Port   int    // listen or destination port
	Listen bool
	NoDNS  bool // numeric-only, no DNS resolution

	// ── Capacity ─────────────────────────────────────────────────────
	MaxClients int // fixed connection-table capacity (server)
	BufferSize int // per-message payload capacity in bytes

	// ── Timing ───────────────────────────────────────────────────────
	PollInterval time.Duration // receive-unit socket poll bound
	SendWait     time.Duration // send-unit mailbox wait bound
	ReceiveYield time.Duration // pause after each relayed chunk
	InputPoll    time.Duration // client console latch-recheck interval
	IdleTimeout  time.Duration // client silence threshold (0 disables)

	// ── Keep-alive ───────────────────────────────────────────────────
	KeepAlive       bool
	KeepAlivePeriod time.Duration

	// ── Client behaviour ─────────────────────────────────────────────
	AutoReconnect bool // re-dial with backoff instead of prompting

	// ── Observability ────────────────────────────────────────────────
	MetricsAddr string // ":9100" style; empty disables the endpoint
	Verbose     int
}

// New returns a Config populated with defaults.  CLI flags and
// environment variables overlay it afterwards.
func New() *Config {
	return &Config{
		Host:            DefaultHost,
		Port:            DefaultPort,
		MaxClients:      DefaultMaxClients,
		BufferSize:      DefaultBufferSize,
		PollInterval:    DefaultPollInterval,
		SendWait:        DefaultSendWait,
		ReceiveYield:    DefaultReceiveYield,
		InputPoll:       DefaultInputPoll,
		IdleTimeout:     DefaultIdleTimeout,
		KeepAlive:       true,
		KeepAlivePeriod: DefaultKeepAlivePeriod,
	}
}

// Validate checks field ranges and cross-field consistency.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return &errors.ConfigError{
			Field:   "port",
			Value:   c.Port,
			Message: "must be in range 1-65535",
		}
	}
	if c.MaxClients < 1 {
		return &errors.ConfigError{
			Field:   "max-clients",
			Value:   c.MaxClients,
			Message: "must be positive",
			Hint:    "the connection table needs at least one slot",
		}
	}
	if c.BufferSize < 1 {
		return &errors.ConfigError{
			Field:   "buffer-size",
			Value:   c.BufferSize,
			Message: "must be positive",
		}
	}
	if c.PollInterval <= 0 || c.SendWait <= 0 {
		return &errors.ConfigError{
			Field:   "poll-interval",
			Message: "poll bounds must be positive",
			Hint:    "bounded waits are what let units notice shutdown",
		}
	}
	if c.IdleTimeout < 0 {
		return &errors.ConfigError{
			Field:   "idle-timeout",
			Value:   c.IdleTimeout,
			Message: "must be zero (disabled) or positive",
		}
	}
	if !c.Listen && c.Host == "" {
		return &errors.ConfigError{
			Field:   "host",
			Message: "server address required in connect mode",
		}
	}
	return nil
}
