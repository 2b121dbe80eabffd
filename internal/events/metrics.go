package events

import (
	"github.com/aristath/quanttrader/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics subscribes to a Manager's subjects and maintains Prometheus
// counters and a duration histogram for the "performance" ambient concern the distilled
// spec only names as an event subject (spec.md §4.2). Grounded on
// atlas-ai's and blackholedex's prometheus/client_golang dependency.
type Metrics struct {
	ticksTotal       *prometheus.CounterVec
	signalsTotal     *prometheus.CounterVec
	validationReject prometheus.Counter
	errorsTotal      *prometheus.CounterVec
	tickDuration     *prometheus.HistogramVec
}

// NewMetrics registers the engine's Prometheus collectors on reg and
// subscribes to m's subjects to keep them updated for the process
// lifetime.
func NewMetrics(reg prometheus.Registerer, m *Manager) *Metrics {
	mx := &Metrics{
		ticksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quanttrader_ticks_total",
			Help: "Number of tick() results emitted, by action.",
		}, []string{"action", "strategy", "backtest"}),
		signalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quanttrader_signals_closed_total",
			Help: "Number of closed signals, by outcome.",
		}, []string{"outcome", "strategy"}),
		validationReject: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quanttrader_risk_validation_rejections_total",
			Help: "Number of signal proposals rejected by a risk validation.",
		}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quanttrader_errors_total",
			Help: "Number of errors emitted to the error subject, by module.",
		}, []string{"module"}),
		tickDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "quanttrader_tick_duration_ms",
			Help:    "Duration of a tick/timeframe/backtest cycle in milliseconds.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 16),
		}, []string{"metric_type"}),
	}

	reg.MustRegister(mx.ticksTotal, mx.signalsTotal, mx.validationReject, mx.errorsTotal, mx.tickDuration)

	m.Signal.Subscribe(func(tr domain.TickResult) {
		mx.ticksTotal.WithLabelValues(string(tr.Action), tr.StrategyName, boolLabel(tr.Backtest)).Inc()
		if tr.Action == domain.TickClosed {
			mx.signalsTotal.WithLabelValues(string(tr.Outcome), tr.StrategyName).Inc()
		}
	})
	m.Validation.Subscribe(func(ErrorEvent) {
		mx.validationReject.Inc()
	})
	m.Error.Subscribe(func(ev ErrorEvent) {
		mx.errorsTotal.WithLabelValues(ev.Module).Inc()
	})
	m.Performance.Subscribe(func(ev PerformanceEvent) {
		mx.tickDuration.WithLabelValues(ev.MetricType).Observe(float64(ev.DurationMs))
	})

	return mx
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
