package resolver

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess    = "success"
	outcomeExecution  = "execution_error"
	outcomeOutput     = "output_error"
	outcomeValidation = "validation_error"
	metricsNamespace  = "dokianime"
	metricsSubsystem  = "resolver"
)

// Metrics records resolver invocations. A nil *Metrics is valid and records nothing.
type Metrics struct {
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	inflight    prometheus.Gauge
}

// NewMetrics registers the resolver collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		invocations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "invocations_total",
			Help:      "Resolver subprocess invocations by command and outcome.",
		}, []string{"command", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "duration_seconds",
			Help:      "Wall time from spawn to exit of resolver subprocesses.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		}, []string{"command"}),
		inflight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "inflight",
			Help:      "Resolver subprocesses currently running.",
		}),
	}
}

func (m *Metrics) started() {
	if m == nil {
		return
	}
	m.inflight.Inc()
}

func (m *Metrics) finished(command Command, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.inflight.Dec()
	m.invocations.WithLabelValues(string(command), outcome).Inc()
	m.duration.WithLabelValues(string(command)).Observe(elapsed.Seconds())
}

func (m *Metrics) rejected(command Command) {
	if m == nil {
		return
	}
	m.invocations.WithLabelValues(string(command), outcomeValidation).Inc()
}

func outcomeLabel(err error) string {
	switch err.(type) {
	case nil:
		return outcomeSuccess
	case *OutputError:
		return outcomeOutput
	default:
		return outcomeExecution
	}
}
