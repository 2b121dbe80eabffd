package events

import (
	"errors"
	"testing"
	"time"

	"github.com/aristath/quanttrader/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	m := &dto.Metric{}
	require.NoError(t, (<-ch).Write(m))
	return m.GetCounter().GetValue()
}

func TestMetrics_TicksTotalIncrementsOnSignal(t *testing.T) {
	m := NewManager(zerolog.Nop())
	reg := prometheus.NewRegistry()
	mx := NewMetrics(reg, m)

	m.EmitSignal(domain.TickResult{Action: domain.TickOpened, StrategyName: "trend", Backtest: false})
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, float64(1), counterValue(t, mx.ticksTotal.WithLabelValues("opened", "trend", "false")))
}

func TestMetrics_SignalsClosedTotalOnlyOnTickClosed(t *testing.T) {
	m := NewManager(zerolog.Nop())
	reg := prometheus.NewRegistry()
	mx := NewMetrics(reg, m)

	m.EmitSignal(domain.TickResult{Action: domain.TickOpened, StrategyName: "trend"})
	m.EmitSignal(domain.TickResult{Action: domain.TickClosed, Outcome: domain.OutcomeTakeProfit, StrategyName: "trend"})
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, float64(1), counterValue(t, mx.signalsTotal.WithLabelValues("tp", "trend")))
}

func TestMetrics_ValidationRejectionsIncrementOnValidationEvent(t *testing.T) {
	m := NewManager(zerolog.Nop())
	reg := prometheus.NewRegistry()
	mx := NewMetrics(reg, m)

	m.EmitValidation("risk", errors.New("too many positions"))
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, float64(1), counterValue(t, mx.validationReject))
}

func TestMetrics_ErrorsTotalIncrementsByModule(t *testing.T) {
	m := NewManager(zerolog.Nop())
	reg := prometheus.NewRegistry()
	mx := NewMetrics(reg, m)

	m.EmitError("strategy", errors.New("boom"))
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, float64(1), counterValue(t, mx.errorsTotal.WithLabelValues("strategy")))
}
