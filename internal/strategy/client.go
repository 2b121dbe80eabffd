// Package strategy implements ClientStrategy, the per-strategyName
// state machine: at most one SignalRow per symbol, driven by Tick and
// Backtest, integrating exchange, risk, and persistence.
package strategy

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/aristath/quanttrader/internal/domain"
	"github.com/aristath/quanttrader/internal/events"
	"github.com/aristath/quanttrader/internal/exchange"
	"github.com/aristath/quanttrader/internal/execctx"
	"github.com/aristath/quanttrader/internal/persist"
	"github.com/aristath/quanttrader/internal/risk"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Client is ClientStrategy: owns the per-symbol signal table for one
// StrategyName, and the exchange/risk/persistence it integrates.
type Client struct {
	schema   Schema
	exchange exchange.Adapter
	risk     *risk.Client
	signals  *persist.SignalStore
	schedule *persist.ScheduleStore
	events   *events.Manager
	log      zerolog.Logger

	mu      sync.Mutex
	table   map[string]domain.SignalRow // symbol -> current non-idle row
	stopped atomic.Bool
}

// New constructs a strategy client. Call Recover once on live startup
// before the first Tick.
func New(schema Schema, ex exchange.Adapter, rk *risk.Client, signals *persist.SignalStore, schedule *persist.ScheduleStore, ev *events.Manager, log zerolog.Logger) *Client {
	return &Client{
		schema:   schema,
		exchange: ex,
		risk:     rk,
		signals:  signals,
		schedule: schedule,
		events:   ev,
		log:      log.With().Str("strategy", schema.StrategyName).Logger(),
		table:    make(map[string]domain.SignalRow),
	}
}

// Recover reconstitutes Scheduled entries from ScheduleStore and Active
// entries from SignalStore, filtered to this strategy/exchange pair
// (spec.md §4.5: live-startup recovery).
func (c *Client) Recover(ctx context.Context) error {
	active, err := c.signals.ListAll(ctx, c.schema.ExchangeName, c.schema.StrategyName)
	if err != nil {
		return fmt.Errorf("recover active signals: %w", err)
	}
	scheduled, err := c.schedule.ListAll(ctx, c.schema.ExchangeName, c.schema.StrategyName)
	if err != nil {
		return fmt.Errorf("recover scheduled signals: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, row := range active {
		c.table[row.Symbol] = row
	}
	for _, row := range scheduled {
		c.table[row.Symbol] = row
	}
	return nil
}

// Stop prevents future Idle -> Scheduled|Active transitions. Active
// monitoring of already-open signals continues uninterrupted.
func (c *Client) Stop() {
	c.stopped.Store(true)
}

func (c *Client) rowFor(symbol string) (domain.SignalRow, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	row, ok := c.table[symbol]
	return row, ok
}

func (c *Client) setRow(symbol string, row domain.SignalRow) {
	c.mu.Lock()
	c.table[symbol] = row
	c.mu.Unlock()
}

func (c *Client) clearRow(symbol string) {
	c.mu.Lock()
	delete(c.table, symbol)
	c.mu.Unlock()
}

func (c *Client) emit(tr domain.TickResult) domain.TickResult {
	if c.events != nil {
		c.events.EmitSignal(tr)
	}
	return tr
}

// Tick drives the state machine for symbol exactly once, emitting
// exactly one TickResult. ctx must carry an execctx.ExecContext (When,
// Backtest) via execctx.WithExecContext; it is created by the driver.
func (c *Client) Tick(ctx context.Context, symbol string) domain.TickResult {
	ec, ok := execctx.ExecContextFrom(ctx)
	if !ok {
		ec = execctx.ExecContext{Symbol: symbol}
	}
	mc := execctx.MethodContext{StrategyName: c.schema.StrategyName, ExchangeName: c.schema.ExchangeName, FrameName: c.schema.FrameName}
	ctx = execctx.WithMethodContext(ctx, mc)
	ctx = execctx.WithExecContext(ctx, ec)

	row, ok := c.rowFor(symbol)
	if !ok {
		return c.tickIdle(ctx, symbol, ec)
	}
	if row.IsScheduled {
		return c.tickScheduled(ctx, symbol, row, ec)
	}
	return c.tickActive(ctx, symbol, row, ec)
}

func (c *Client) tickIdle(ctx context.Context, symbol string, ec execctx.ExecContext) domain.TickResult {
	base := domain.TickResult{Action: domain.TickIdle, Symbol: symbol, StrategyName: c.schema.StrategyName, ExchangeName: c.schema.ExchangeName, When: ec.When, Backtest: ec.Backtest}
	if c.stopped.Load() {
		return c.emit(base)
	}

	price, err := c.exchange.GetAveragePrice(ctx, symbol)
	if err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("failed to fetch price, staying idle")
		return c.emit(base)
	}

	proposal, err := c.schema.GetSignal(ctx)
	if err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("getSignal failed, staying idle")
		return c.emit(base)
	}
	if proposal == nil {
		return c.emit(base)
	}
	if err := proposal.Validate(); err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("proposal failed invariant validation")
		return c.emit(base)
	}

	approved := true
	if c.risk != nil {
		approved = c.risk.CheckSignal(ctx, symbol, c.schema.StrategyName, c.schema.ExchangeName, mustFloat(price), ec.When)
	}
	if !approved {
		return c.emit(base)
	}

	row := domain.NewSignalRow(symbol, c.schema.StrategyName, c.schema.ExchangeName, *proposal, price, ec.When)

	if proposal.PriceOpen == nil || price.Equal(*proposal.PriceOpen) {
		return c.emit(c.open(ctx, symbol, row, ec))
	}

	row.IsScheduled = true
	if err := c.schedule.Write(ctx, row); err != nil {
		c.log.Error().Err(err).Str("symbol", symbol).Msg("failed to persist scheduled signal")
		return c.emit(base)
	}
	c.setRow(symbol, row)
	return c.emit(domain.TickResult{Action: domain.TickScheduled, SignalID: row.ID, Symbol: symbol, StrategyName: c.schema.StrategyName, ExchangeName: c.schema.ExchangeName, PriceOpen: &row.PriceOpen, When: ec.When, Backtest: ec.Backtest})
}

// open transitions a row straight into Active: write the signal file,
// register it with risk, emit `opened`.
func (c *Client) open(ctx context.Context, symbol string, row domain.SignalRow, ec execctx.ExecContext) domain.TickResult {
	row.PendingAt = ec.When
	row.IsScheduled = false

	if err := c.signals.Write(ctx, row); err != nil {
		c.log.Error().Err(err).Str("symbol", symbol).Msg("failed to persist opened signal")
		return domain.TickResult{Action: domain.TickIdle, Symbol: symbol, StrategyName: c.schema.StrategyName, ExchangeName: c.schema.ExchangeName, When: ec.When, Backtest: ec.Backtest}
	}
	if c.risk != nil {
		c.risk.AddSignal(ctx, symbol, domain.ActivePosition{Signal: row, StrategyName: c.schema.StrategyName, ExchangeName: c.schema.ExchangeName, OpenTimestamp: row.PendingAt})
	}
	c.setRow(symbol, row)
	if c.schema.OnOpen != nil {
		c.schema.OnOpen(ctx, row)
	}
	return domain.TickResult{Action: domain.TickOpened, SignalID: row.ID, Symbol: symbol, StrategyName: c.schema.StrategyName, ExchangeName: c.schema.ExchangeName, PriceOpen: &row.PriceOpen, When: ec.When, Backtest: ec.Backtest}
}

func (c *Client) tickScheduled(ctx context.Context, symbol string, row domain.SignalRow, ec execctx.ExecContext) domain.TickResult {
	price, err := c.exchange.GetAveragePrice(ctx, symbol)
	if err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("failed to fetch price for scheduled signal")
		return c.emit(domain.TickResult{Action: domain.TickScheduled, SignalID: row.ID, Symbol: symbol, StrategyName: c.schema.StrategyName, ExchangeName: c.schema.ExchangeName, PriceOpen: &row.PriceOpen, When: ec.When, Backtest: ec.Backtest})
	}

	aged := agedPast(row.ScheduledAt, ec.When, row.MinuteEstimatedTime)
	touched := domain.TouchesOpen(row.Position, row.PriceOpen, price)

	if !touched && !aged {
		return c.emit(domain.TickResult{Action: domain.TickScheduled, SignalID: row.ID, Symbol: symbol, StrategyName: c.schema.StrategyName, ExchangeName: c.schema.ExchangeName, PriceOpen: &row.PriceOpen, When: ec.When, Backtest: ec.Backtest})
	}

	approved := true
	if c.risk != nil {
		approved = c.risk.CheckSignal(ctx, symbol, c.schema.StrategyName, c.schema.ExchangeName, mustFloat(price), ec.When)
	}
	if !approved {
		if err := c.schedule.Delete(ctx, symbol, c.schema.StrategyName); err != nil {
			c.log.Error().Err(err).Str("symbol", symbol).Msg("failed to delete cancelled schedule")
		}
		c.clearRow(symbol)
		return c.emit(domain.TickResult{Action: domain.TickCancelled, SignalID: row.ID, Symbol: symbol, StrategyName: c.schema.StrategyName, ExchangeName: c.schema.ExchangeName, CancelReason: "risk", When: ec.When, Backtest: ec.Backtest})
	}

	// Delete the schedule file BEFORE writing the signal file (data
	// model invariant 1): a crash between the two calls must never
	// leave both a schedule and an active row for the same key.
	if err := c.schedule.Delete(ctx, symbol, c.schema.StrategyName); err != nil {
		c.log.Error().Err(err).Str("symbol", symbol).Msg("failed to delete activating schedule")
		return c.emit(domain.TickResult{Action: domain.TickScheduled, SignalID: row.ID, Symbol: symbol, StrategyName: c.schema.StrategyName, ExchangeName: c.schema.ExchangeName, PriceOpen: &row.PriceOpen, When: ec.When, Backtest: ec.Backtest})
	}
	return c.emit(c.open(ctx, symbol, row, ec))
}

func (c *Client) tickActive(ctx context.Context, symbol string, row domain.SignalRow, ec execctx.ExecContext) domain.TickResult {
	price, err := c.exchange.GetAveragePrice(ctx, symbol)
	if err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("failed to fetch price for active signal")
		return c.emit(domain.TickResult{Action: domain.TickActive, SignalID: row.ID, Symbol: symbol, StrategyName: c.schema.StrategyName, ExchangeName: c.schema.ExchangeName, PriceOpen: &row.PriceOpen, When: ec.When, Backtest: ec.Backtest})
	}

	var outcome domain.Outcome
	switch {
	case domain.CrossesTakeProfit(row.Position, row.PriceTakeProfit, price):
		outcome = domain.OutcomeTakeProfit
	case domain.CrossesStopLoss(row.Position, row.PriceStopLoss, price):
		outcome = domain.OutcomeStopLoss
	case agedPast(row.PendingAt, ec.When, row.MinuteEstimatedTime):
		outcome = domain.OutcomeTimeout
	default:
		unrealized := domain.RealizedPnLPercent(row.Position, row.PriceOpen, price, c.exchange.FeeRate())
		return c.emit(domain.TickResult{Action: domain.TickActive, SignalID: row.ID, Symbol: symbol, StrategyName: c.schema.StrategyName, ExchangeName: c.schema.ExchangeName, PriceOpen: &row.PriceOpen, PnLPercent: &unrealized, When: ec.When, Backtest: ec.Backtest})
	}

	return c.emit(c.close(ctx, symbol, row, price, outcome, ec))
}

func (c *Client) close(ctx context.Context, symbol string, row domain.SignalRow, closePrice decimal.Decimal, outcome domain.Outcome, ec execctx.ExecContext) domain.TickResult {
	if err := c.signals.Delete(ctx, symbol, c.schema.StrategyName); err != nil {
		c.log.Error().Err(err).Str("symbol", symbol).Msg("failed to delete closed signal")
	}
	if c.risk != nil {
		c.risk.RemoveSignal(ctx, symbol, c.schema.StrategyName)
	}
	c.clearRow(symbol)

	pnl := domain.RealizedPnLPercent(row.Position, row.PriceOpen, closePrice, c.exchange.FeeRate())
	result := domain.TickResult{
		Action:       domain.TickClosed,
		SignalID:     row.ID,
		Symbol:       symbol,
		StrategyName: c.schema.StrategyName,
		ExchangeName: c.schema.ExchangeName,
		Outcome:      outcome,
		PriceOpen:    &row.PriceOpen,
		PriceClose:   &closePrice,
		PnLPercent:   &pnl,
		When:         ec.When,
		Backtest:     ec.Backtest,
	}
	if c.schema.OnClose != nil {
		c.schema.OnClose(ctx, row, result)
	}
	return result
}

func agedPast(since, now, minuteEstimatedTime int64) bool {
	if minuteEstimatedTime <= 0 {
		return false
	}
	return now-since >= minuteEstimatedTime*60*1000
}

func mustFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// Backtest fast-forwards an already-Active signal across an ordered
// sequence of future candles, avoiding per-candle Tick replay. Every
// candle inspected emits a TickResult on the event bus: an
// intermediate `active` result carrying unrealized PnL for candles
// that don't resolve the signal, and a terminal `closed` result for
// the one that does. Returns nil when the symbol has no active row
// (nothing to fast-forward) or none of the candles resolve the
// signal. ec.When is ignored; each candle's own OpenTime drives the
// timeout/close timestamp.
func (c *Client) Backtest(ctx context.Context, symbol string, candles []domain.Candle) *domain.TickResult {
	row, ok := c.rowFor(symbol)
	if !ok || row.IsScheduled {
		return nil
	}

	for _, candle := range candles {
		outcome, closePrice, resolved := resolveCandle(row, candle)
		if !resolved {
			unrealized := domain.RealizedPnLPercent(row.Position, row.PriceOpen, candle.Close, c.exchange.FeeRate())
			c.emit(domain.TickResult{
				Action:       domain.TickActive,
				SignalID:     row.ID,
				Symbol:       symbol,
				StrategyName: c.schema.StrategyName,
				ExchangeName: c.schema.ExchangeName,
				PriceOpen:    &row.PriceOpen,
				PnLPercent:   &unrealized,
				When:         candle.OpenTime,
				Backtest:     true,
			})
			continue
		}
		ec := execctx.ExecContext{Symbol: symbol, When: candle.OpenTime, Backtest: true}
		ctx := execctx.WithExecContext(ctx, ec)
		result := c.emit(c.close(ctx, symbol, row, closePrice, outcome, ec))
		return &result
	}
	return nil
}

// resolveCandle applies the spec's fast-forward rule: within one
// candle, test TP and SL against High/Low; if both bounds are touched
// in the same candle, the stop-loss wins (conservative assumption).
// Absent either, a timeout is declared once the candle's age since
// PendingAt reaches MinuteEstimatedTime, closing at that candle's Open.
func resolveCandle(row domain.SignalRow, candle domain.Candle) (domain.Outcome, decimal.Decimal, bool) {
	tpHit := domain.CrossesTakeProfit(row.Position, row.PriceTakeProfit, boundFor(row.Position, candle, true))
	slHit := domain.CrossesStopLoss(row.Position, row.PriceStopLoss, boundFor(row.Position, candle, false))

	switch {
	case slHit:
		return domain.OutcomeStopLoss, row.PriceStopLoss, true
	case tpHit:
		return domain.OutcomeTakeProfit, row.PriceTakeProfit, true
	}

	if agedPast(row.PendingAt, candle.OpenTime, row.MinuteEstimatedTime) {
		return domain.OutcomeTimeout, candle.Open, true
	}
	return "", decimal.Zero, false
}

// boundFor returns the candle bound relevant to testing wantHigh (TP)
// or the stop-loss bound, oriented per position: a long's favorable
// excursion is the candle High, its adverse excursion the Low; a
// short's is the reverse.
func boundFor(position domain.Position, candle domain.Candle, wantHigh bool) decimal.Decimal {
	useHigh := wantHigh
	if position == domain.Short {
		useHigh = !wantHigh
	}
	if useHigh {
		return candle.High
	}
	return candle.Low
}
