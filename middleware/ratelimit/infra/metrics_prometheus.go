package infra

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"admission-gateway/middleware/ratelimit/domain"
)

const (
	OutcomeAllowed   = "allowed"
	OutcomeExceeded  = "rate_limit_exceeded"
	OutcomeBlocked   = "temporarily_blocked"
	OutcomeAbstained = "abstained"
)

// PrometheusObserver exporta as decisões como métricas. Labels têm cardinalidade
// fixa (categoria x outcome); a chave do cliente nunca vira label.
type PrometheusObserver struct {
	decisions *prometheus.CounterVec
	degraded  prometheus.Counter
}

var _ domain.Observer = (*PrometheusObserver)(nil)

// NewPrometheusObserver registra as métricas em reg. Se windows/violations não
// forem nil, também exporta quantas entradas estão vivas em memória.
func NewPrometheusObserver(reg prometheus.Registerer, windows *WindowStore, violations *ViolationTracker) (*PrometheusObserver, error) {
	o := &PrometheusObserver{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ratelimit",
			Name:      "decisions_total",
			Help:      "Admission decisions by category and outcome.",
		}, []string{"category", "outcome"}),
		degraded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ratelimit",
			Name:      "degraded_total",
			Help:      "Decisions that failed open because of an internal error.",
		}),
	}

	collectors := []prometheus.Collector{o.decisions, o.degraded}
	if windows != nil {
		collectors = append(collectors, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "ratelimit",
			Name:      "window_entries",
			Help:      "Live window counters held in memory.",
		}, func() float64 { return float64(windows.Len()) }))
	}
	if violations != nil {
		collectors = append(collectors, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "ratelimit",
			Name:      "violation_entries",
			Help:      "Client/category pairs with violation state.",
		}, func() float64 { return float64(violations.Len()) }))
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register ratelimit metrics: %w", err)
		}
	}
	return o, nil
}

func Outcome(d domain.Decision) string {
	switch {
	case d.Abstained:
		return OutcomeAbstained
	case d.Allowed:
		return OutcomeAllowed
	case d.Code == domain.CodeTemporarilyBlocked:
		return OutcomeBlocked
	default:
		return OutcomeExceeded
	}
}

func (o *PrometheusObserver) ObserveDecision(d domain.Decision) {
	if o == nil {
		return
	}
	o.decisions.WithLabelValues(string(d.Category), Outcome(d)).Inc()
}

func (o *PrometheusObserver) ObserveDegraded(error) {
	if o == nil {
		return
	}
	o.degraded.Inc()
}
