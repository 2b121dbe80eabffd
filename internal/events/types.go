package events

// PerformanceEvent is the payload of the Performance subject
// (spec.md §4.2). PreviousTimestampMs is stamped by the emitter from a
// per-emitter monotonically updated field, enabling gap analysis
// between consecutive events of the same metric type.
type PerformanceEvent struct {
	PreviousTimestampMs *int64
	MetricType          string
	StrategyName        string
	ExchangeName        string
	Symbol              string
	TimestampMs         int64
	DurationMs          int64
	Backtest            bool
}

// Metric type constants (spec.md §4.2).
const (
	MetricBacktestTotal     = "backtest_total"
	MetricBacktestTimeframe = "backtest_timeframe"
	MetricBacktestSignal    = "backtest_signal"
	MetricLiveTick          = "live_tick"
)

// ErrorEvent is the payload of the Error and Validation subjects: a
// normalised error plus the module that raised it.
type ErrorEvent struct {
	Err    error
	Module string
}

// Unsubscribe removes a previously registered observer.
type Unsubscribe func()
