package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	registryMu sync.Mutex
	registry   *prometheus.Registry
	enabled    atomic.Bool
)

// InitRegistry creates the process-wide Prometheus registry and enables
// metrics collection. Safe to call more than once; subsequent calls are
// no-ops.
func InitRegistry() {
	registryMu.Lock()
	defer registryMu.Unlock()

	if registry != nil {
		return
	}

	registry = prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	enabled.Store(true)
}

// IsEnabled reports whether metrics collection is enabled.
// Constructors in the prometheus subpackage return nil when disabled,
// and a nil collector means zero overhead for callers.
func IsEnabled() bool {
	return enabled.Load()
}

// GetRegistry returns the process-wide registry, or nil if metrics are
// disabled.
func GetRegistry() *prometheus.Registry {
	registryMu.Lock()
	defer registryMu.Unlock()
	return registry
}
