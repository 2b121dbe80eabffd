// Package domain defines the core data types of the signal lifecycle
// engine: proposals from user strategies, the persisted signal row, the
// risk tracker's active-position entry, and the tagged tick result union.
package domain

import (
	"github.com/shopspring/decimal"
	"github.com/google/uuid"
)

// Position is the direction of a signal.
type Position string

const (
	Long  Position = "long"
	Short Position = "short"
)

// Outcome is the terminal reason a signal closed.
type Outcome string

const (
	OutcomeTakeProfit Outcome = "tp"
	OutcomeStopLoss   Outcome = "sl"
	OutcomeTimeout    Outcome = "timeout"
	OutcomeManual     Outcome = "manual"
)

// SignalProposal is what a user strategy's getSignal callback returns
// when it wants to open a position. PriceOpen is nil for an immediate
// market order; set, it schedules the signal until price touches it.
type SignalProposal struct {
	PriceOpen           *decimal.Decimal
	PriceTakeProfit     decimal.Decimal
	PriceStopLoss       decimal.Decimal
	Metadata            map[string]any
	Position            Position
	MinuteEstimatedTime int64
}

// Validate checks invariant 3 from the data model: priceStopLoss <
// priceOpen < priceTakeProfit for long, reversed for short. When
// PriceOpen is nil the open price is not yet known, so only the
// TP/SL-relative-to-each-other ordering is checked.
func (p SignalProposal) Validate() error {
	switch p.Position {
	case Long:
		if !p.PriceStopLoss.LessThan(p.PriceTakeProfit) {
			return errInvalidBounds
		}
		if p.PriceOpen != nil {
			if !(p.PriceStopLoss.LessThan(*p.PriceOpen) && p.PriceOpen.LessThan(p.PriceTakeProfit)) {
				return errInvalidBounds
			}
		}
	case Short:
		if !p.PriceTakeProfit.LessThan(p.PriceStopLoss) {
			return errInvalidBounds
		}
		if p.PriceOpen != nil {
			if !(p.PriceTakeProfit.LessThan(*p.PriceOpen) && p.PriceOpen.LessThan(p.PriceStopLoss)) {
				return errInvalidBounds
			}
		}
	default:
		return errInvalidPosition
	}
	if p.MinuteEstimatedTime <= 0 {
		return errInvalidTimeout
	}
	return nil
}

// SignalRow is the canonical, persisted runtime representation of a
// signal, shared by both the SignalStore (active) and ScheduleStore
// (pending-activation) tables.
type SignalRow struct {
	ID                  string
	Symbol              string
	StrategyName        string
	ExchangeName        string
	Position            Position
	PriceOpen           decimal.Decimal
	PriceTakeProfit     decimal.Decimal
	PriceStopLoss       decimal.Decimal
	Metadata            map[string]any
	MinuteEstimatedTime int64
	ScheduledAt         int64
	PendingAt           int64
	IsScheduled         bool
}

// NewSignalRow assembles a SignalRow from a proposal at the moment the
// strategy decides to act on it. marketPrice is used as PriceOpen when
// the proposal didn't pin one (immediate market order).
func NewSignalRow(symbol, strategyName, exchangeName string, p SignalProposal, marketPrice decimal.Decimal, now int64) SignalRow {
	open := marketPrice
	if p.PriceOpen != nil {
		open = *p.PriceOpen
	}
	return SignalRow{
		ID:                  uuid.NewString(),
		Symbol:              symbol,
		StrategyName:        strategyName,
		ExchangeName:        exchangeName,
		Position:            p.Position,
		PriceOpen:           open,
		PriceTakeProfit:     p.PriceTakeProfit,
		PriceStopLoss:       p.PriceStopLoss,
		Metadata:            p.Metadata,
		MinuteEstimatedTime: p.MinuteEstimatedTime,
		ScheduledAt:         now,
	}
}

// CompositeKey is "{strategyName}:{symbol}", the key used by the risk
// tracker's active-position map (data model invariant 2).
func CompositeKey(strategyName, symbol string) string {
	return strategyName + ":" + symbol
}

// ActivePosition is the risk tracker's per-position bookkeeping entry.
type ActivePosition struct {
	Signal        SignalRow
	StrategyName  string
	ExchangeName  string
	OpenTimestamp int64
}

// TickAction is the discriminator of the TickResult tagged union.
type TickAction string

const (
	TickIdle      TickAction = "idle"
	TickScheduled TickAction = "scheduled"
	TickOpened    TickAction = "opened"
	TickActive    TickAction = "active"
	TickClosed    TickAction = "closed"
	TickCancelled TickAction = "cancelled"
)

// TickResult is emitted exactly once per tick() or per step of a
// backtest fast-forward.
type TickResult struct {
	Action       TickAction
	SignalID     string
	Symbol       string
	StrategyName string
	ExchangeName string
	Outcome      Outcome
	CancelReason string
	PriceOpen    *decimal.Decimal
	PriceClose   *decimal.Decimal
	PnLPercent   *decimal.Decimal
	When         int64
	Backtest     bool
}
