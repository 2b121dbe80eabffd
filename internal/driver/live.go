package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/quanttrader/internal/events"
	"github.com/aristath/quanttrader/internal/execctx"
	"github.com/aristath/quanttrader/internal/strategy"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// LiveRun names the (strategy, exchange, symbol) tuple a live driver
// ticks on a wall-clock schedule.
type LiveRun struct {
	StrategyName string
	ExchangeName string
	Symbol       string
	Interval     time.Duration
}

// LiveDriver schedules wall-clock-paced ticks for one strategy/symbol
// pair using robfig/cron/v3 — the teacher's own scheduling library,
// repurposed here for recurring tick jobs instead of report jobs.
type LiveDriver struct {
	strategy *strategy.Client
	events   *events.Manager
	log      zerolog.Logger

	cron *cron.Cron
}

func NewLiveDriver(strategyClient *strategy.Client, ev *events.Manager, log zerolog.Logger) *LiveDriver {
	return &LiveDriver{
		strategy: strategyClient,
		events:   ev,
		log:      log.With().Str("driver", "live").Logger(),
		cron:     cron.New(cron.WithSeconds()),
	}
}

// Start recovers the strategy from persistence, then schedules ticks
// at run.Interval (wall-clock). Returns once the schedule is
// registered; ticks run asynchronously via the cron scheduler.
func (d *LiveDriver) Start(ctx context.Context, run LiveRun) error {
	if err := d.strategy.Recover(ctx); err != nil {
		return fmt.Errorf("recover strategy %s: %w", run.StrategyName, err)
	}

	spec, err := intervalCronSpec(run.Interval)
	if err != nil {
		return fmt.Errorf("build cron spec for %s: %w", run.StrategyName, err)
	}

	_, err = d.cron.AddFunc(spec, func() {
		d.tickOnce(ctx, run)
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", run.StrategyName, err)
	}
	d.cron.Start()
	return nil
}

// Stop halts the strategy's future idle transitions and the cron
// scheduler. In-flight ticks are not interrupted (spec.md §5).
func (d *LiveDriver) Stop() {
	d.strategy.Stop()
	ctx := d.cron.Stop()
	<-ctx.Done()
}

func (d *LiveDriver) tickOnce(ctx context.Context, run LiveRun) {
	defer func() {
		if r := recover(); r != nil && d.events != nil {
			d.events.EmitError("driver.live", panicError{run.StrategyName, r})
		}
	}()

	start := time.Now()
	now := start.UnixMilli()
	ec := execctx.ExecContext{Symbol: run.Symbol, When: now, Backtest: false}
	tickCtx := execctx.WithExecContext(ctx, ec)

	d.strategy.Tick(tickCtx, run.Symbol)

	if d.events != nil {
		d.events.EmitPerformance(events.PerformanceEvent{
			MetricType:   events.MetricLiveTick,
			StrategyName: run.StrategyName,
			ExchangeName: run.ExchangeName,
			Symbol:       run.Symbol,
			TimestampMs:  now,
			DurationMs:   time.Since(start).Milliseconds(),
			Backtest:     false,
		})
	}
}

// Background runs Start in its own goroutine, recovering any panic
// during the initial recovery/schedule and routing it to the error
// subject without crashing the caller.
func (d *LiveDriver) Background(ctx context.Context, run LiveRun) {
	go func() {
		defer func() {
			if r := recover(); r != nil && d.events != nil {
				d.events.EmitError("driver.live", panicError{run.StrategyName, r})
			}
		}()
		if err := d.Start(ctx, run); err != nil && d.events != nil {
			d.events.EmitError("driver.live", err)
		}
	}()
}

// intervalCronSpec converts a wall-clock interval into a seconds-
// resolution cron spec understood by robfig/cron/v3's WithSeconds
// parser. Only whole-second intervals are supported.
func intervalCronSpec(interval time.Duration) (string, error) {
	seconds := int(interval.Seconds())
	if seconds <= 0 {
		return "", fmt.Errorf("interval must be at least one second, got %s", interval)
	}
	if seconds < 60 {
		return fmt.Sprintf("@every %ds", seconds), nil
	}
	return fmt.Sprintf("@every %s", interval), nil
}
