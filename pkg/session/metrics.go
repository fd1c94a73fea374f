package session

import "github.com/prometheus/client_golang/prometheus"

const metricsNamespace = "algorand_mcp"

// Rejection reasons reported on the rejected-requests counter.
const (
	reasonMissingSession = "missing_session"
	reasonUnknownSession = "unknown_session"
	reasonInvalidBody    = "invalid_body"
	reasonInvalidHeader  = "invalid_header"
	reasonInitRejected   = "initialize_rejected"
	reasonShuttingDown   = "shutting_down"
	reasonInternal       = "internal"
)

// Metrics exposes session lifecycle counters. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	active   prometheus.Gauge
	created  prometheus.Counter
	closed   prometheus.Counter
	rejected *prometheus.CounterVec
}

// NewMetrics creates session metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "sessions",
			Name:      "active",
			Help:      "Number of live MCP sessions.",
		}),
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "sessions",
			Name:      "created_total",
			Help:      "Sessions created by initialize requests.",
		}),
		closed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "sessions",
			Name:      "closed_total",
			Help:      "Sessions removed after their transport closed.",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "sessions",
			Name:      "rejected_requests_total",
			Help:      "Requests rejected by the session router, by reason.",
		}, []string{"reason"}),
	}
	reg.MustRegister(m.active, m.created, m.closed, m.rejected)
	return m
}

func (m *Metrics) sessionCreated() {
	if m == nil {
		return
	}
	m.created.Inc()
	m.active.Inc()
}

func (m *Metrics) sessionClosed() {
	if m == nil {
		return
	}
	m.closed.Inc()
	m.active.Dec()
}

func (m *Metrics) requestRejected(reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}
