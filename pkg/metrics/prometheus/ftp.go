package prometheus

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/tdevries60/bro/pkg/metrics"
)

// analyzerMetrics is the Prometheus implementation of metrics.AnalyzerMetrics.
type analyzerMetrics struct {
	commands        *prometheus.CounterVec
	replies         *prometheus.CounterVec
	parseFailures   *prometheus.CounterVec
	expectationOps  *prometheus.CounterVec
	expectationSize prometheus.Gauge
	emitted         *prometheus.CounterVec
	droppedCommands prometheus.Counter
	activeSessions  prometheus.Gauge
	sessionsTotal   prometheus.Counter
	notableEvents   *prometheus.CounterVec
}

// NewAnalyzerMetrics creates a new Prometheus-backed AnalyzerMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewAnalyzerMetrics() metrics.AnalyzerMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &analyzerMetrics{
		commands: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ftpmon_commands_total",
				Help: "Total number of observed FTP commands by command name",
			},
			[]string{"command"},
		),
		replies: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ftpmon_replies_total",
				Help: "Total number of observed FTP replies by hundreds digit",
			},
			[]string{"class"}, // "1xx".."5xx"
		),
		parseFailures: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ftpmon_negotiation_parse_failures_total",
				Help: "Total number of unparseable data-channel negotiation payloads",
			},
			[]string{"variant"}, // "PORT", "EPRT", "PASV", "EPSV"
		),
		expectationOps: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ftpmon_expectation_operations_total",
				Help: "Total number of expectation-table operations",
			},
			[]string{"op"}, // "insert", "overwrite", "expire", "sweep"
		),
		expectationSize: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "ftpmon_expectation_table_size",
				Help: "Current number of live expected data-channel entries",
			},
		),
		emitted: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ftpmon_records_emitted_total",
				Help: "Total number of finalized records handed to the emitter",
			},
			[]string{"command"},
		),
		droppedCommands: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "ftpmon_dropped_commands_total",
				Help: "Total number of pending commands evicted by the queue bound",
			},
		),
		activeSessions: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "ftpmon_active_sessions",
				Help: "Current number of tracked control-channel sessions",
			},
		),
		sessionsTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "ftpmon_sessions_total",
				Help: "Total number of control-channel sessions ever tracked",
			},
		),
		notableEvents: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ftpmon_notable_events_total",
				Help: "Total number of raised notable-event signals",
			},
			[]string{"kind"},
		),
	}
}

func (m *analyzerMetrics) RecordCommand(cmd string) {
	m.commands.WithLabelValues(cmd).Inc()
}

func (m *analyzerMetrics) RecordReply(code int) {
	class := strconv.Itoa(code/100) + "xx"
	m.replies.WithLabelValues(class).Inc()
}

func (m *analyzerMetrics) RecordParseFailure(variant string) {
	m.parseFailures.WithLabelValues(variant).Inc()
}

func (m *analyzerMetrics) RecordExpectation(op string) {
	m.expectationOps.WithLabelValues(op).Inc()
}

func (m *analyzerMetrics) SetExpectationTableSize(n int) {
	m.expectationSize.Set(float64(n))
}

func (m *analyzerMetrics) RecordEmitted(cmd string) {
	m.emitted.WithLabelValues(cmd).Inc()
}

func (m *analyzerMetrics) RecordDroppedCommand() {
	m.droppedCommands.Inc()
}

func (m *analyzerMetrics) RecordSessionOpened() {
	m.activeSessions.Inc()
	m.sessionsTotal.Inc()
}

func (m *analyzerMetrics) RecordSessionClosed() {
	m.activeSessions.Dec()
}

func (m *analyzerMetrics) RecordNotableEvent(kind string) {
	m.notableEvents.WithLabelValues(kind).Inc()
}
