package reports

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/scoutdesk/scoutdesk/internal/shared"
)

// Metrics exposes Prometheus collectors for the report workflow.
type Metrics struct {
	transitions *prometheus.CounterVec
	codeRetries prometheus.Counter
}

// NewMetrics registers the workflow collectors against registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scoutdesk_report_transitions_total",
			Help: "Report workflow operations by transition and outcome.",
		}, []string{"transition", "outcome"}),
		codeRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scoutdesk_report_code_retries_total",
			Help: "Report creations replayed after a code allocation conflict.",
		}),
	}
	if registerer != nil {
		registerer.MustRegister(m.transitions, m.codeRetries)
	}
	return m
}

func (m *Metrics) observe(transition string, err error) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(transition, outcome(err)).Inc()
}

func (m *Metrics) retried() {
	if m == nil {
		return
	}
	m.codeRetries.Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, shared.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, shared.ErrValidation):
		return "validation"
	case errors.Is(err, shared.ErrNotFound):
		return "not_found"
	case errors.Is(err, shared.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, shared.ErrConflict):
		return "conflict"
	default:
		return "storage_unavailable"
	}
}
