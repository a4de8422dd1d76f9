package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the GORELAY_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  This should be called BEFORE
// CLI flag parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("GORELAY_HOST"); v != "" {
		cfg.Host = v
	}
	if v := envInt("GORELAY_PORT"); v > 0 {
		cfg.Port = v
	}
	if envBool("GORELAY_LISTEN") {
		cfg.Listen = true
	}
	if envBool("GORELAY_NO_DNS") {
		cfg.NoDNS = true
	}
	if v := envInt("GORELAY_MAX_CLIENTS"); v > 0 {
		cfg.MaxClients = v
	}
	if v := envInt("GORELAY_BUFFER_SIZE"); v > 0 {
		cfg.BufferSize = v
	}
	if v := envDuration("GORELAY_POLL_INTERVAL"); v > 0 {
		cfg.PollInterval = v
	}
	if v := envDuration("GORELAY_SEND_WAIT"); v > 0 {
		cfg.SendWait = v
	}
	if v := envDuration("GORELAY_IDLE_TIMEOUT"); v > 0 {
		cfg.IdleTimeout = v
	}
	if envBool("GORELAY_RECONNECT") {
		cfg.AutoReconnect = true
	}
	if v := os.Getenv("GORELAY_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := envInt("GORELAY_VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

// envDuration accepts Go duration syntax ("500ms") or bare seconds.
func envDuration(key string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return 0
}
