// Package driver implements the two execution drivers spec.md §4.7
// names: BacktestDriver (walks frame boundaries, fast-forwards active
// signals) and LiveDriver (wall-clock-paced ticks via robfig/cron).
package driver

import (
	"context"
	"time"

	"github.com/aristath/quanttrader/internal/domain"
	"github.com/aristath/quanttrader/internal/events"
	"github.com/aristath/quanttrader/internal/exchange"
	"github.com/aristath/quanttrader/internal/execctx"
	"github.com/aristath/quanttrader/internal/frame"
	"github.com/aristath/quanttrader/internal/strategy"
	"github.com/rs/zerolog"
)

// BacktestRun names the (strategy, exchange, frame, symbol) tuple a
// backtest walks.
type BacktestRun struct {
	StrategyName string
	ExchangeName string
	FrameName    string
	Symbol       string
	WindowStart  int64
	WindowEnd    int64
}

// BacktestDriver walks frame boundaries for one run, ticking the
// strategy at each and fast-forwarding any signal that activates
// within the window instead of replaying every intermediate tick.
type BacktestDriver struct {
	strategy *strategy.Client
	exchange exchange.Adapter
	frame    frame.Client
	events   *events.Manager
	log      zerolog.Logger
}

func NewBacktestDriver(strategyClient *strategy.Client, ex exchange.Adapter, fr frame.Client, ev *events.Manager, log zerolog.Logger) *BacktestDriver {
	return &BacktestDriver{strategy: strategyClient, exchange: ex, frame: fr, events: ev, log: log.With().Str("driver", "backtest").Logger()}
}

// Run walks every frame boundary in run, ticking at each fromTs and
// fast-forwarding any newly active signal to its terminal state using
// the remaining candles in the window.
func (d *BacktestDriver) Run(ctx context.Context, run BacktestRun) error {
	totalStart := time.Now()
	boundaries := d.frame.Boundaries(run.WindowStart, run.WindowEnd)

	for _, b := range boundaries {
		stepStart := time.Now()
		ec := execctx.ExecContext{Symbol: run.Symbol, When: b.FromTs, Backtest: true}
		tickCtx := execctx.WithExecContext(ctx, ec)

		result := d.strategy.Tick(tickCtx, run.Symbol)
		d.emitPerformance(events.MetricBacktestTimeframe, run, b.FromTs, time.Since(stepStart))

		if result.Action != domain.TickOpened && result.Action != domain.TickScheduled {
			continue
		}

		// The tick may have produced an active signal; fast-forward it
		// to its terminal state using the rest of the window's candles
		// instead of replaying per-boundary ticks (spec.md §4.7).
		candles, err := d.exchange.GetCandles(ctx, run.Symbol, b.FromTs, run.WindowEnd)
		if err != nil {
			d.log.Warn().Err(err).Str("symbol", run.Symbol).Msg("failed to fetch fast-forward candles")
			continue
		}
		signalStart := time.Now()
		if final := d.strategy.Backtest(tickCtx, run.Symbol, candles); final != nil {
			d.log.Debug().Str("symbol", run.Symbol).Str("outcome", string(final.Outcome)).Msg("fast-forward resolved signal")
		}
		d.emitPerformance(events.MetricBacktestSignal, run, b.FromTs, time.Since(signalStart))
	}

	d.emitPerformance(events.MetricBacktestTotal, run, run.WindowEnd, time.Since(totalStart))
	return nil
}

func (d *BacktestDriver) emitPerformance(metricType string, run BacktestRun, when int64, duration time.Duration) {
	if d.events == nil {
		return
	}
	d.events.EmitPerformance(events.PerformanceEvent{
		MetricType:   metricType,
		StrategyName: run.StrategyName,
		ExchangeName: run.ExchangeName,
		Symbol:       run.Symbol,
		TimestampMs:  when,
		DurationMs:   duration.Milliseconds(),
		Backtest:     true,
	})
}

// Background runs Run in its own goroutine, recovering any panic and
// routing it to the error subject rather than crashing the caller
// (spec.md §4.7's "background() variant").
func (d *BacktestDriver) Background(ctx context.Context, run BacktestRun) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				if d.events != nil {
					d.events.EmitError("driver.backtest", panicError{run.StrategyName, r})
				}
			}
		}()
		if err := d.Run(ctx, run); err != nil && d.events != nil {
			d.events.EmitError("driver.backtest", err)
		}
	}()
}

type panicError struct {
	strategyName string
	value        any
}

func (p panicError) Error() string {
	return "driver: backtest for " + p.strategyName + " panicked"
}
