// Package telemetry exposes prometheus counters for evaluator decisions.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

type Metrics struct {
	decisions          *prometheus.CounterVec
	auditFailures      prometheus.Counter
	cacheInvalidations *prometheus.CounterVec
}

// New registers the evaluator metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_decisions_total",
			Help: "Entitlement decisions by verdict reason.",
		}, []string{"reason"}),
		auditFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_audit_failures_total",
			Help: "Audit writes that failed and were swallowed.",
		}),
		cacheInvalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_cache_invalidations_total",
			Help: "Invalidation events observed on the notification bus.",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.decisions, m.auditFailures, m.cacheInvalidations)
	return m
}

// NewDefault registers on the default prometheus registry served at /metrics.
func NewDefault() *Metrics {
	return New(prometheus.DefaultRegisterer)
}

func (m *Metrics) Decision(reason string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(reason).Inc()
}

func (m *Metrics) AuditFailure() {
	if m == nil {
		return
	}
	m.auditFailures.Inc()
}

func (m *Metrics) CacheInvalidation(kind string) {
	if m == nil {
		return
	}
	m.cacheInvalidations.WithLabelValues(kind).Inc()
}

// Module provides evaluator metrics on the default registry.
var Module = fx.Module("telemetry",
	fx.Provide(NewDefault),
)
