package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus mirrors of the Collector counters, updated in lockstep by
// the Collector methods and exposed via [Handler].
var (
	promSessionsActive  = promauto.NewGauge(prometheus.GaugeOpts{Name: "gorelay_sessions_active", Help: "Current open sessions"})
	promSessionsTotal   = promauto.NewCounter(prometheus.CounterOpts{Name: "gorelay_sessions_total", Help: "Lifetime accepted sessions"})
	promBytesIn         = promauto.NewCounter(prometheus.CounterOpts{Name: "gorelay_bytes_in_total", Help: "Bytes read from peers"})
	promBytesOut        = promauto.NewCounter(prometheus.CounterOpts{Name: "gorelay_bytes_out_total", Help: "Bytes written to peers"})
	promMessagesDropped = promauto.NewCounter(prometheus.CounterOpts{Name: "gorelay_messages_dropped_total", Help: "Payloads discarded by mailbox overwrite"})
	promReconnects      = promauto.NewCounter(prometheus.CounterOpts{Name: "gorelay_reconnects_total", Help: "Client reconnection events"})
	promErrorsTotal     = promauto.NewCounter(prometheus.CounterOpts{Name: "gorelay_errors_total", Help: "Transport errors recorded"})
)

// Handler returns the HTTP handler serving the Prometheus exposition
// endpoint, plus a /stats JSON snapshot of the given collector.
func Handler(c *Collector) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/stats", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(c.JSON())) //nolint:errcheck
	})
	return mux
}
