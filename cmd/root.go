// Package cmd wires up the CLI flags and dispatches to the relay core.
package cmd

import (
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"gorelay/config"
	"gorelay/internal/metrics"
	"gorelay/relay"
	"gorelay/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X gorelay/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Execute parses args and runs the appropriate gorelay mode.
func Execute(ctx context.Context, args []string) error {
	cfg := config.New()
	config.LoadFromEnv(cfg)

	fs := flag.NewFlagSet("gorelay", flag.ContinueOnError)

	// ── connection ───────────────────────────────────────────────
	fs.BoolVarP(&cfg.Listen, "listen", "l", cfg.Listen, "Listen mode")
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "Port number")
	fs.BoolVarP(&cfg.NoDNS, "no-dns", "n", cfg.NoDNS, "Numeric-only, no DNS resolution")

	// ── capacity ─────────────────────────────────────────────────
	fs.IntVarP(&cfg.MaxClients, "max-clients", "m", cfg.MaxClients, "Maximum concurrent connections (with -l)")
	fs.IntVarP(&cfg.BufferSize, "buffer-size", "b", cfg.BufferSize, "Per-message buffer capacity in bytes")

	// ── timing ───────────────────────────────────────────────────
	fs.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "Socket readiness poll bound")
	fs.DurationVar(&cfg.SendWait, "send-wait", cfg.SendWait, "Send-unit mailbox wait bound")
	fs.DurationVarP(&cfg.IdleTimeout, "idle-timeout", "w", cfg.IdleTimeout, "Client silence threshold (0 disables)")

	// ── behaviour ────────────────────────────────────────────────
	fs.BoolVarP(&cfg.AutoReconnect, "reconnect", "r", cfg.AutoReconnect, "Re-dial with backoff instead of prompting")
	fs.BoolVar(&cfg.KeepAlive, "keep-alive", cfg.KeepAlive, "Enable TCP keep-alive probing")
	fs.DurationVar(&cfg.KeepAlivePeriod, "keep-alive-period", cfg.KeepAlivePeriod, "Keep-alive probe period")

	// ── output ───────────────────────────────────────────────────
	fs.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "Metrics listen address (e.g. :9100; empty disables)")
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")

	var showVersion, showHelp, dryRun bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVar(&dryRun, "dry-run", false, "Validate configuration and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp || len(args) == 0 {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Printf("gorelay %s\n", version)
		return nil
	}

	// ── positional arguments ─────────────────────────────────────
	if err := parsePositional(cfg, fs.Args()); err != nil {
		return err
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}
	if dryRun {
		return nil
	}

	// ── build components ─────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)

	var m *metrics.Collector
	if cfg.Listen || cfg.MetricsAddr != "" {
		m = metrics.New()
	}

	r := relay.New(cfg, logger, m)
	return r.Run(ctx)
}

// ── helpers ──────────────────────────────────────────────────────────

func parsePositional(cfg *config.Config, remaining []string) error {
	if cfg.Listen {
		if len(remaining) > 0 {
			return fmt.Errorf("unexpected argument %q in listen mode", remaining[0])
		}
		return nil
	}

	// Connect mode: [host [port]]
	switch len(remaining) {
	case 0: // defaults
	case 2:
		port, err := parsePort(remaining[1])
		if err != nil {
			return err
		}
		cfg.Port = port
		fallthrough
	case 1:
		cfg.Host = remaining[0]
	default:
		return fmt.Errorf("too many arguments (expected host [port])")
	}
	return nil
}

func parsePort(s string) (int, error) {
	var port int
	if _, err := fmt.Sscanf(s, "%d", &port); err != nil || port < 1 || port > 65535 {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	return port, nil
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `gorelay – bidirectional stream relay v%s

A multi-client TCP relay: the server echoes each client's traffic back
through a per-connection mailbox; the client relays console input.

Usage:
  gorelay [options] <host> [port]         Connect
  gorelay -l -p <port> [options]          Listen

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Examples:
  gorelay -l -p 8080                      Serve up to %d clients on 8080
  gorelay -l -p 8080 -m 100 --metrics :9100
  gorelay relay.example.com 8080          Connect interactively
  gorelay -r -w 30s 10.0.0.5 8080        Auto-reconnect, 30s idle limit
  Type "exit" in connect mode to end the session without sending it.
`, config.DefaultMaxClients)
}
