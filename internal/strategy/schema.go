package strategy

import (
	"context"

	"github.com/aristath/quanttrader/internal/domain"
)

// Schema is the user-registered, process-lifetime description of a
// strategy: its tick throttle, the risk/sizing clients it plugs into,
// and the signal-generating callback itself.
type Schema struct {
	StrategyName    string
	ExchangeName    string
	FrameName       string
	RiskName        string // empty => no-op risk
	SizingName      string // empty => sizing not consulted
	IntervalMinutes int
	GetSignal       func(ctx context.Context) (*domain.SignalProposal, error)
	OnOpen          func(ctx context.Context, row domain.SignalRow)
	OnClose         func(ctx context.Context, row domain.SignalRow, result domain.TickResult)
}
