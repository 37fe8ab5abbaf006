// Package metrics provides Prometheus instrumentation for the risk engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// BetsAccepted counts exposure registrations, partitioned by game type.
	BetsAccepted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "risk_bets_accepted_total",
		Help: "Total stakes registered against the exposure tracker",
	}, []string{"game_type"})

	// BetsRejected counts rejected admissions by reason
	// (sold_out, over_headroom, reserve, race_lost).
	BetsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "risk_bets_rejected_total",
		Help: "Total bets rejected by the limit or solvency checks",
	}, []string{"reason"})

	// SettlementsTotal counts settled draws by outcome.
	SettlementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "risk_settlements_total",
		Help: "Total draw settlements",
	}, []string{"has_winner"})

	// BankrollBalance tracks the growth fund in currency units.
	BankrollBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "risk_bankroll_balance",
		Help: "Current bankroll balance in currency units",
	})

	// ReserveBalance tracks the prize reserve in currency units.
	ReserveBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "risk_reserve_balance",
		Help: "Current prize reserve balance in currency units",
	})

	// CurrentLimit tracks the per-number betting limit in currency units.
	CurrentLimit = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "risk_limit_per_number",
		Help: "Current per-number betting limit in currency units",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "risk_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "risk_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "risk_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the raw path for the label; the API surface is small enough
		// that cardinality stays bounded.
		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
