package events

import (
	"sync"

	"github.com/aristath/quanttrader/internal/domain"
	"github.com/rs/zerolog"
)

// Manager owns the six subjects spec.md §4.2 names and the
// per-metric-type "previous timestamp" bookkeeping for Performance
// events. One Manager is shared process-wide.
type Manager struct {
	log zerolog.Logger

	Signal         *Subject[domain.TickResult]
	SignalBacktest *Subject[domain.TickResult]
	SignalLive     *Subject[domain.TickResult]
	Performance    *Subject[PerformanceEvent]
	Error          *Subject[ErrorEvent]
	Validation     *Subject[ErrorEvent]

	mu       sync.Mutex
	lastTsMs map[string]int64
}

// NewManager wires the six subjects. An observer panic on any subject
// is captured and re-routed to the Error subject (never the Validation
// subject, which is reserved for risk-validation failures specifically).
func NewManager(log zerolog.Logger) *Manager {
	m := &Manager{
		log:      log.With().Str("component", "events").Logger(),
		lastTsMs: make(map[string]int64),
	}
	onPanic := func(subject string, r any) {
		m.EmitError(subject, errPanic{subject: subject, v: r})
	}
	m.Signal = NewSubject[domain.TickResult]("signal", m.log, onPanic)
	m.SignalBacktest = NewSubject[domain.TickResult]("signalBacktest", m.log, onPanic)
	m.SignalLive = NewSubject[domain.TickResult]("signalLive", m.log, onPanic)
	m.Performance = NewSubject[PerformanceEvent]("performance", m.log, onPanic)
	m.Error = NewSubject[ErrorEvent]("error", m.log, onPanic)
	m.Validation = NewSubject[ErrorEvent]("validation", m.log, onPanic)
	return m
}

// EmitSignal emits a TickResult to the union "signal" subject plus the
// mode-specific subject (signalBacktest or signalLive), preserving the
// causal per-strategy ordering required by spec.md §5.
func (m *Manager) EmitSignal(tr domain.TickResult) {
	m.log.Info().
		Str("action", string(tr.Action)).
		Str("symbol", tr.Symbol).
		Str("strategy", tr.StrategyName).
		Bool("backtest", tr.Backtest).
		Msg("tick result")

	m.Signal.Emit(tr)
	if tr.Backtest {
		m.SignalBacktest.Emit(tr)
	} else {
		m.SignalLive.Emit(tr)
	}
}

// EmitPerformance stamps PreviousTimestampMs from the last emission of
// the same metric type and emits.
func (m *Manager) EmitPerformance(ev PerformanceEvent) {
	m.mu.Lock()
	if prev, ok := m.lastTsMs[ev.MetricType]; ok {
		p := prev
		ev.PreviousTimestampMs = &p
	}
	m.lastTsMs[ev.MetricType] = ev.TimestampMs
	m.mu.Unlock()

	m.Performance.Emit(ev)
}

// EmitError normalises err and routes it to the Error subject. Never
// panics and never returns an error itself — emission must not
// propagate back to the producer (spec.md §4.2).
func (m *Manager) EmitError(module string, err error) {
	m.log.Error().Err(err).Str("module", module).Msg("error event")
	m.Error.Emit(ErrorEvent{Module: module, Err: err})
}

// EmitValidation routes a risk-validation throw to the Validation
// subject (spec.md §4.4).
func (m *Manager) EmitValidation(module string, err error) {
	m.log.Warn().Err(err).Str("module", module).Msg("validation rejected")
	m.Validation.Emit(ErrorEvent{Module: module, Err: err})
}

type errPanic struct {
	v       any
	subject string
}

func (e errPanic) Error() string {
	return "events: observer on subject " + e.subject + " panicked"
}
