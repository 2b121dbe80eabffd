package driver

import (
	"context"
	"testing"
	"time"

	"github.com/aristath/quanttrader/internal/domain"
	"github.com/aristath/quanttrader/internal/events"
	"github.com/aristath/quanttrader/internal/frame"
	"github.com/aristath/quanttrader/internal/persist"
	"github.com/aristath/quanttrader/internal/strategy"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExchange struct {
	price   decimal.Decimal
	candles []domain.Candle
	feeRate decimal.Decimal
}

func (f *fakeExchange) GetCandles(context.Context, string, int64, int64) ([]domain.Candle, error) {
	return f.candles, nil
}
func (f *fakeExchange) GetAveragePrice(context.Context, string) (decimal.Decimal, error) {
	return f.price, nil
}
func (f *fakeExchange) FormatPrice(_ string, p decimal.Decimal) decimal.Decimal    { return p }
func (f *fakeExchange) FormatQuantity(_ string, q decimal.Decimal) decimal.Decimal { return q }
func (f *fakeExchange) FeeRate() decimal.Decimal                                  { return f.feeRate }

func newTestStrategy(t *testing.T, ex *fakeExchange, getSignal func(context.Context) (*domain.SignalProposal, error)) *strategy.Client {
	t.Helper()
	return newTestStrategyWithEvents(t, ex, getSignal, nil)
}

func newTestStrategyWithEvents(t *testing.T, ex *fakeExchange, getSignal func(context.Context) (*domain.SignalProposal, error), ev *events.Manager) *strategy.Client {
	t.Helper()
	backend := persist.NewFileBackend(t.TempDir())
	signals := persist.NewSignalStore(backend, zerolog.Nop(), nil)
	schedule := persist.NewScheduleStore(backend, zerolog.Nop(), nil)
	return strategy.New(strategy.Schema{
		StrategyName: "trend",
		ExchangeName: "http",
		GetSignal:    getSignal,
	}, ex, nil, signals, schedule, ev, zerolog.Nop())
}

func TestBacktestDriver_RunWalksEveryBoundary(t *testing.T) {
	var tickCount int
	ex := &fakeExchange{price: decimal.NewFromInt(100), feeRate: decimal.NewFromFloat(0.001)}
	st := newTestStrategy(t, ex, func(context.Context) (*domain.SignalProposal, error) {
		tickCount++
		return nil, nil
	})
	fr := frame.NewIntervalFrame(1)
	d := NewBacktestDriver(st, ex, fr, nil, zerolog.Nop())

	err := d.Run(context.Background(), BacktestRun{
		StrategyName: "trend", ExchangeName: "http", Symbol: "BTC-USD",
		WindowStart: 0, WindowEnd: 3 * 60 * 1000,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, tickCount)
}

func TestBacktestDriver_FastForwardsOpenedSignalToTerminal(t *testing.T) {
	ex := &fakeExchange{
		price:   decimal.NewFromInt(100),
		feeRate: decimal.NewFromFloat(0.001),
		candles: []domain.Candle{
			{Open: decimal.NewFromInt(101), High: decimal.NewFromInt(112), Low: decimal.NewFromInt(99), OpenTime: 60000},
		},
	}
	ev := events.NewManager(zerolog.Nop())
	signalEvents := make(chan domain.TickResult, 8)
	ev.SignalBacktest.Subscribe(func(tr domain.TickResult) { signalEvents <- tr })
	time.Sleep(20 * time.Millisecond)

	var calls int
	st := newTestStrategyWithEvents(t, ex, func(context.Context) (*domain.SignalProposal, error) {
		calls++
		if calls > 1 {
			return nil, nil // only open once
		}
		return &domain.SignalProposal{
			Position: domain.Long, PriceStopLoss: decimal.NewFromInt(90), PriceTakeProfit: decimal.NewFromInt(110),
			MinuteEstimatedTime: 60,
		}, nil
	}, ev)
	fr := frame.NewIntervalFrame(1)
	d := NewBacktestDriver(st, ex, fr, nil, zerolog.Nop())

	err := d.Run(context.Background(), BacktestRun{
		StrategyName: "trend", ExchangeName: "http", Symbol: "BTC-USD",
		WindowStart: 0, WindowEnd: 2 * 60 * 1000,
	})
	require.NoError(t, err)

	result := st.Tick(context.Background(), "BTC-USD")
	assert.Equal(t, domain.TickIdle, result.Action, "signal should have closed during fast-forward, leaving the symbol idle")

	var sawClosed bool
	for {
		select {
		case tr := <-signalEvents:
			if tr.Action == domain.TickClosed {
				sawClosed = true
				assert.Equal(t, domain.OutcomeTakeProfit, tr.Outcome)
				require.NotNil(t, tr.PnLPercent)
			}
		case <-time.After(500 * time.Millisecond):
			assert.True(t, sawClosed, "fast-forward must emit a closed TickResult on the signal bus")
			return
		}
	}
}

func TestBacktestDriver_EmitsPerformanceEvents(t *testing.T) {
	ex := &fakeExchange{price: decimal.NewFromInt(100), feeRate: decimal.NewFromFloat(0.001)}
	st := newTestStrategy(t, ex, func(context.Context) (*domain.SignalProposal, error) { return nil, nil })
	fr := frame.NewIntervalFrame(1)
	ev := events.NewManager(zerolog.Nop())
	received := make(chan events.PerformanceEvent, 8)
	ev.Performance.Subscribe(func(e events.PerformanceEvent) { received <- e })
	time.Sleep(20 * time.Millisecond)

	d := NewBacktestDriver(st, ex, fr, ev, zerolog.Nop())
	err := d.Run(context.Background(), BacktestRun{
		StrategyName: "trend", ExchangeName: "http", Symbol: "BTC-USD",
		WindowStart: 0, WindowEnd: 60 * 1000,
	})
	require.NoError(t, err)

	var sawTotal bool
	for i := 0; i < 2; i++ {
		select {
		case e := <-received:
			if e.MetricType == events.MetricBacktestTotal {
				sawTotal = true
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for performance events")
		}
	}
	assert.True(t, sawTotal)
}

func TestBacktestDriver_Background_RunsAsynchronously(t *testing.T) {
	ex := &fakeExchange{price: decimal.NewFromInt(100)}
	st := newTestStrategy(t, ex, func(context.Context) (*domain.SignalProposal, error) { return nil, nil })
	fr := frame.NewIntervalFrame(1)
	ev := events.NewManager(zerolog.Nop())
	d := NewBacktestDriver(st, ex, fr, ev, zerolog.Nop())

	d.Background(context.Background(), BacktestRun{
		StrategyName: "trend", ExchangeName: "http", Symbol: "BTC-USD",
		WindowStart: 0, WindowEnd: 60 * 1000,
	})
	// Background must return immediately without blocking on Run.
}
