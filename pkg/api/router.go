// Package api exposes the monitor's debug/introspection HTTP surface:
// health, live expectation-table dumps and analyzer statistics.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tdevries60/bro/internal/logger"
	"github.com/tdevries60/bro/pkg/expectation"
	"github.com/tdevries60/bro/pkg/metrics"
)

// StatsProvider reports live analyzer counters. The correlator implements
// this.
type StatsProvider interface {
	SessionCount() int
}

// NewRouter creates and configures the chi router with all middleware and routes.
//
// Routes:
//   - GET /healthz - Liveness probe
//   - GET /metrics - Prometheus scrape endpoint (404 when metrics disabled)
//   - GET /v1/expectations - JSON dump of live expectation-table entries
//   - GET /v1/stats - Analyzer counters
func NewRouter(table *expectation.Table, stats StatsProvider) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		JSON(w, http.StatusOK, HealthyResponse(nil))
	})

	r.Get("/metrics", metricsHandler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/expectations", expectationsHandler(table))
		r.Get("/stats", statsHandler(table, stats))
	})

	return r
}

// metricsHandler serves the Prometheus registry when metrics are enabled.
func metricsHandler() http.HandlerFunc {
	if !metrics.IsEnabled() {
		return func(w http.ResponseWriter, _ *http.Request) {
			JSON(w, http.StatusNotFound, ErrorResponse("metrics are disabled"))
		}
	}
	h := promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
	return h.ServeHTTP
}

// expectationEntry is the wire shape of one live expectation.
type expectationEntry struct {
	Addr      string    `json:"addr"`
	Port      uint16    `json:"port"`
	OriginUID string    `json:"origin_uid"`
	Direction string    `json:"direction"`
	Created   time.Time `json:"created"`
	Expiry    time.Time `json:"expiry"`
}

func expectationsHandler(table *expectation.Table) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		entries := table.Snapshot()
		out := make([]expectationEntry, 0, len(entries))
		for _, e := range entries {
			out = append(out, expectationEntry{
				Addr:      e.Key.Addr.String(),
				Port:      e.Key.Port,
				OriginUID: e.OriginUID,
				Direction: e.Direction.String(),
				Created:   e.Created,
				Expiry:    e.Expiry,
			})
		}
		JSON(w, http.StatusOK, OKResponse(out))
	}
}

func statsHandler(table *expectation.Table, stats StatsProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		payload := map[string]int{
			"sessions":     0,
			"expectations": table.Len(),
		}
		if stats != nil {
			payload["sessions"] = stats.SessionCount()
		}
		JSON(w, http.StatusOK, OKResponse(payload))
	}
}

// requestLogger is a custom middleware that logs requests using the internal logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("API request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		// Wrap response writer to capture status code
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logger.Debug("API request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			logger.KeyDurationMs, time.Since(start).Milliseconds(),
		)
	})
}
