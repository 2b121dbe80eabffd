// Package risk implements ClientRisk, the per-riskName portfolio
// tracker shared across every strategy whose schema points to it.
package risk

import (
	"context"
	"fmt"
	"sync"

	"github.com/aristath/quanttrader/internal/domain"
	"github.com/aristath/quanttrader/internal/events"
	"github.com/aristath/quanttrader/internal/persist"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// ValidationPayload is handed to every Validation on checkSignal.
type ValidationPayload struct {
	Symbol              string
	StrategyName        string
	ExchangeName        string
	CurrentPrice        float64
	Timestamp           int64
	ActivePositionCount int
	ActivePositions     []domain.ActivePosition
}

// Validation accepts or rejects a proposed signal given the current
// portfolio snapshot. Returning an error rejects it; the error text is
// purely informational (the teacher's RiskModelBuilder equivalent:
// BuildCorrelationMap "note" fields are informational the same way).
type Validation interface {
	Validate(payload ValidationPayload) error
	Note() string
}

// ValidationFunc adapts a bare function to Validation with no note.
type ValidationFunc func(payload ValidationPayload) error

func (f ValidationFunc) Validate(payload ValidationPayload) error { return f(payload) }
func (f ValidationFunc) Note() string                             { return "" }

type loadState int

const (
	loadNeeded loadState = iota
	loadDone
)

// Client is ClientRisk: one instance per riskName, shared across every
// strategy that points at it. The active-position map starts as a
// "needs load" sentinel (Design Notes recommend a tagged union over a
// type-punned sentinel — here the tag is loadState, and the one-shot
// guarantee comes from singleflight.Group rather than a hand-rolled
// mutex-and-flag dance).
type Client struct {
	riskName    string
	backtest    bool
	store       *persist.RiskStore // nil when risk persistence is disabled
	validations []Validation
	events      *events.Manager
	log         zerolog.Logger

	mu       sync.Mutex
	state    loadState
	loadOnce singleflight.Group
	active   map[string]domain.ActivePosition
}

// New constructs a risk client. store may be nil (no persistence);
// backtest mode always starts from an empty map and never persists.
func New(riskName string, backtest bool, store *persist.RiskStore, validations []Validation, ev *events.Manager, log zerolog.Logger) *Client {
	return &Client{
		riskName:    riskName,
		backtest:    backtest,
		store:       store,
		validations: validations,
		events:      ev,
		log:         log.With().Str("risk", riskName).Logger(),
		active:      make(map[string]domain.ActivePosition),
	}
}

func compositeKey(strategyName, symbol string) string {
	return domain.CompositeKey(strategyName, symbol)
}

// ensureLoaded triggers exactly one backend load across any number of
// concurrent first callers; backtest mode never loads.
func (c *Client) ensureLoaded(ctx context.Context) {
	if c.backtest || c.store == nil {
		c.mu.Lock()
		c.state = loadDone
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	if c.state == loadDone {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	_, _, _ = c.loadOnce.Do("load", func() (any, error) {
		c.mu.Lock()
		if c.state == loadDone {
			c.mu.Unlock()
			return nil, nil
		}
		c.mu.Unlock()

		positions, ok := c.store.Load(ctx, c.riskName)
		c.mu.Lock()
		defer c.mu.Unlock()
		if ok {
			for _, p := range positions {
				c.active[compositeKey(p.StrategyName, p.Signal.Symbol)] = p
			}
		}
		c.state = loadDone
		return nil, nil
	})
}

// CheckSignal evaluates every Validation in registration order against
// a snapshot of the current portfolio, stopping at the first failure.
func (c *Client) CheckSignal(ctx context.Context, symbol, strategyName, exchangeName string, currentPrice float64, timestamp int64) bool {
	c.ensureLoaded(ctx)

	c.mu.Lock()
	positions := make([]domain.ActivePosition, 0, len(c.active))
	for _, p := range c.active {
		positions = append(positions, p)
	}
	c.mu.Unlock()

	payload := ValidationPayload{
		Symbol:              symbol,
		StrategyName:        strategyName,
		ExchangeName:        exchangeName,
		CurrentPrice:        currentPrice,
		Timestamp:           timestamp,
		ActivePositionCount: len(positions),
		ActivePositions:     positions,
	}

	for _, v := range c.validations {
		if err := v.Validate(payload); err != nil {
			wrapped := fmt.Errorf("risk validation %q rejected %s/%s: %w", v.Note(), strategyName, symbol, err)
			c.log.Warn().Err(wrapped).Msg("signal rejected by risk validation")
			if c.events != nil {
				c.events.EmitValidation("risk."+c.riskName, wrapped)
			}
			return false
		}
	}
	return true
}

// AddSignal records an active position under its composite key and
// persists the whole map in live mode.
func (c *Client) AddSignal(ctx context.Context, symbol string, pos domain.ActivePosition) {
	if c.riskName == "" {
		return // no-op risk: nothing to track
	}
	c.ensureLoaded(ctx)

	c.mu.Lock()
	c.active[compositeKey(pos.StrategyName, symbol)] = pos
	c.mu.Unlock()

	c.persist(ctx)
}

// RemoveSignal deletes the entry for (strategyName, symbol) if present
// and persists the whole map in live mode.
func (c *Client) RemoveSignal(ctx context.Context, symbol, strategyName string) {
	if c.riskName == "" {
		return // no-op risk: nothing to track
	}
	c.ensureLoaded(ctx)

	c.mu.Lock()
	delete(c.active, compositeKey(strategyName, symbol))
	c.mu.Unlock()

	c.persist(ctx)
}

func (c *Client) persist(ctx context.Context) {
	if c.backtest || c.store == nil {
		return
	}
	c.mu.Lock()
	snapshot := make([]domain.ActivePosition, 0, len(c.active))
	for _, p := range c.active {
		snapshot = append(snapshot, p)
	}
	c.mu.Unlock()

	if err := c.store.Save(ctx, c.riskName, snapshot); err != nil {
		c.log.Warn().Err(err).Msg("failed to persist risk dump")
	}
}

// NoOp returns an always-approve, no-op Client for strategies with no
// RiskSchema attached.
func NoOp() *Client {
	return &Client{
		riskName: "",
		backtest: true,
		active:   make(map[string]domain.ActivePosition),
		state:    loadDone,
	}
}
