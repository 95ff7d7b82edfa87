package antispam

import (
	"chatguard/backend/internal/models"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics bundles the Prometheus collectors of the engine.
type metrics struct {
	decisions *prometheus.CounterVec
	blocks    prometheus.Counter
}

// newMetrics creates the collectors and registers them when reg is not nil.
func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatguard_decisions_total",
				Help: "Send-permission decisions by outcome.",
			},
			[]string{"reason"},
		),
		blocks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chatguard_blocks_total",
			Help: "Temporary blocks applied after a message flood.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.decisions, m.blocks)
	}
	return m
}

func (m *metrics) observe(d models.Decision) {
	reason := d.Reason
	if d.Allowed {
		reason = "allowed"
	}
	m.decisions.WithLabelValues(reason).Inc()
}
