package events

import (
	"errors"
	"testing"
	"time"

	"github.com/aristath/quanttrader/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestEmitSignal_RoutesToUnionAndBacktestSubjects(t *testing.T) {
	m := NewManager(zerolog.Nop())
	union := make(chan domain.TickResult, 1)
	backtest := make(chan domain.TickResult, 1)
	live := make(chan domain.TickResult, 1)
	m.Signal.Subscribe(func(tr domain.TickResult) { union <- tr })
	m.SignalBacktest.Subscribe(func(tr domain.TickResult) { backtest <- tr })
	m.SignalLive.Subscribe(func(tr domain.TickResult) { live <- tr })
	time.Sleep(20 * time.Millisecond)

	m.EmitSignal(domain.TickResult{Action: domain.TickOpened, Symbol: "BTC-USD", Backtest: true})

	select {
	case tr := <-union:
		assert.Equal(t, "BTC-USD", tr.Symbol)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for union delivery")
	}
	select {
	case <-backtest:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for backtest delivery")
	}
	select {
	case <-live:
		t.Fatal("live subject should not receive a backtest signal")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestEmitSignal_RoutesLiveToLiveSubjectOnly(t *testing.T) {
	m := NewManager(zerolog.Nop())
	backtest := make(chan domain.TickResult, 1)
	live := make(chan domain.TickResult, 1)
	m.SignalBacktest.Subscribe(func(tr domain.TickResult) { backtest <- tr })
	m.SignalLive.Subscribe(func(tr domain.TickResult) { live <- tr })
	time.Sleep(20 * time.Millisecond)

	m.EmitSignal(domain.TickResult{Action: domain.TickOpened, Backtest: false})

	select {
	case <-live:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for live delivery")
	}
	select {
	case <-backtest:
		t.Fatal("backtest subject should not receive a live signal")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestEmitPerformance_StampsPreviousTimestampFromSameMetricType(t *testing.T) {
	m := NewManager(zerolog.Nop())
	received := make(chan PerformanceEvent, 2)
	m.Performance.Subscribe(func(ev PerformanceEvent) { received <- ev })
	time.Sleep(20 * time.Millisecond)

	m.EmitPerformance(PerformanceEvent{MetricType: MetricLiveTick, TimestampMs: 1000})
	m.EmitPerformance(PerformanceEvent{MetricType: MetricLiveTick, TimestampMs: 2000})

	first := <-received
	assert.Nil(t, first.PreviousTimestampMs)

	second := <-received
	if assert.NotNil(t, second.PreviousTimestampMs) {
		assert.Equal(t, int64(1000), *second.PreviousTimestampMs)
	}
}

func TestEmitPerformance_TracksPreviousPerMetricTypeIndependently(t *testing.T) {
	m := NewManager(zerolog.Nop())
	received := make(chan PerformanceEvent, 2)
	m.Performance.Subscribe(func(ev PerformanceEvent) { received <- ev })
	time.Sleep(20 * time.Millisecond)

	m.EmitPerformance(PerformanceEvent{MetricType: MetricLiveTick, TimestampMs: 1000})
	m.EmitPerformance(PerformanceEvent{MetricType: MetricBacktestTotal, TimestampMs: 5000})

	first := <-received
	assert.Nil(t, first.PreviousTimestampMs)
	second := <-received
	assert.Nil(t, second.PreviousTimestampMs, "different metric type should not inherit the other's previous timestamp")
}

func TestEmitError_RoutesToErrorSubject(t *testing.T) {
	m := NewManager(zerolog.Nop())
	received := make(chan ErrorEvent, 1)
	m.Error.Subscribe(func(ev ErrorEvent) { received <- ev })
	time.Sleep(20 * time.Millisecond)

	m.EmitError("strategy", errors.New("boom"))

	select {
	case ev := <-received:
		assert.Equal(t, "strategy", ev.Module)
		assert.EqualError(t, ev.Err, "boom")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for error delivery")
	}
}

func TestEmitValidation_RoutesToValidationSubjectNotError(t *testing.T) {
	m := NewManager(zerolog.Nop())
	validation := make(chan ErrorEvent, 1)
	errorCh := make(chan ErrorEvent, 1)
	m.Validation.Subscribe(func(ev ErrorEvent) { validation <- ev })
	m.Error.Subscribe(func(ev ErrorEvent) { errorCh <- ev })
	time.Sleep(20 * time.Millisecond)

	m.EmitValidation("risk", errors.New("too many positions"))

	select {
	case ev := <-validation:
		assert.Equal(t, "risk", ev.Module)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for validation delivery")
	}
	select {
	case <-errorCh:
		t.Fatal("validation throw must not reach the error subject")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestObserverPanic_RoutesToErrorSubjectNotCaller(t *testing.T) {
	m := NewManager(zerolog.Nop())
	received := make(chan ErrorEvent, 1)
	m.Error.Subscribe(func(ev ErrorEvent) { received <- ev })
	m.Signal.Subscribe(func(domain.TickResult) { panic("observer exploded") })
	time.Sleep(20 * time.Millisecond)

	assert.NotPanics(t, func() {
		m.EmitSignal(domain.TickResult{Action: domain.TickOpened})
	})

	select {
	case ev := <-received:
		assert.Equal(t, "signal", ev.Module)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for panic to route to error subject")
	}
}
