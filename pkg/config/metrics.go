package config

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tdevries60/bro/internal/logger"
	"github.com/tdevries60/bro/pkg/metrics"
	prommetrics "github.com/tdevries60/bro/pkg/metrics/prometheus"
)

// InitializeMetrics sets up the metrics subsystem from configuration.
//
// When metrics are disabled it returns (nil, nil): a nil AnalyzerMetrics is
// the no-op implementation and no server is started. When enabled it
// initializes the process-wide registry, builds the analyzer collectors and
// returns an HTTP server ready to serve the /metrics endpoint on the
// configured port. The caller owns the server's lifecycle.
func InitializeMetrics(cfg *Config) (metrics.AnalyzerMetrics, *http.Server) {
	if !cfg.Metrics.Enabled {
		return nil, nil
	}

	metrics.InitRegistry()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	logger.Info("metrics enabled", "addr", srv.Addr)
	return prommetrics.NewAnalyzerMetrics(), srv
}
