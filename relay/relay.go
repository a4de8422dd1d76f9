// Package relay implements the core listen (server) and connect
// (client) modes of gorelay.
package relay

import (
	"context"
	"net/http"

	"gorelay/config"
	"gorelay/internal/errors"
	"gorelay/internal/metrics"
	"gorelay/util"
)

// Relay orchestrates a single process run.
type Relay struct {
	Config  *config.Config
	Logger  *util.Logger
	Metrics *metrics.Collector
}

// New returns a ready-to-run Relay.
func New(cfg *config.Config, logger *util.Logger, m *metrics.Collector) *Relay {
	return &Relay{Config: cfg, Logger: logger, Metrics: m}
}

// Run dispatches to the correct mode.  The metrics endpoint, when
// configured, is served here so both modes expose it.
func (r *Relay) Run(ctx context.Context) error {
	if r.Config.MetricsAddr != "" {
		go r.serveMetrics(ctx)
	}
	if r.Config.Listen {
		return NewServer(r.Config, r.Logger, r.Metrics).Run(ctx)
	}
	return NewClient(r.Config, r.Logger, r.Metrics).Run(ctx)
}

// serveMetrics exposes /metrics (Prometheus) and /stats (JSON) for the
// lifetime of the run.
func (r *Relay) serveMetrics(ctx context.Context) {
	srv := &http.Server{Addr: r.Config.MetricsAddr, Handler: metrics.Handler(r.Metrics)}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	r.Logger.Verbose("metrics on %s", r.Config.MetricsAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		r.Logger.Warn("metrics server: %v", err)
	}
}
