package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags and environment variable loading.

const (
	// DefaultPort is the listen / destination port.
	DefaultPort = 8080

	// DefaultHost is the connect-mode server address.
	DefaultHost = "127.0.0.1"

	// DefaultMaxClients is the connection-table capacity.
	DefaultMaxClients = 10

	// DefaultBufferSize bounds a single relayed message; longer chunks
	// are truncated, not reassembled.
	DefaultBufferSize = 1024

	// DefaultPollInterval bounds each receive-unit socket read.  It is
	// also the worst-case delay before a unit notices termination.
	DefaultPollInterval = 500 * time.Millisecond

	// DefaultSendWait bounds each send-unit mailbox wait.
	DefaultSendWait = 1 * time.Second

	// DefaultReceiveYield is the pause after relaying a chunk, so a
	// fast-streaming peer cannot monopolise the mailbox.
	DefaultReceiveYield = 100 * time.Millisecond

	// DefaultInputPoll is how often the client's console loop re-checks
	// the termination latch while waiting for input.
	DefaultInputPoll = 1 * time.Second

	// DefaultIdleTimeout is the client-side silence threshold after
	// which the server is presumed dead.  Zero disables it.
	DefaultIdleTimeout = 10 * time.Second

	// DefaultKeepAlivePeriod tunes kernel keep-alive probing on
	// accepted connections.
	DefaultKeepAlivePeriod = 10 * time.Second
)
