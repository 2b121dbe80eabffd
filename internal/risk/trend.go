package risk

import (
	"fmt"

	"github.com/aristath/quanttrader/pkg/formulas"
)

// TrendExtensionValidation rejects a proposed signal when its symbol's
// most recent close sits too far from its own EMA — a guard against
// chasing a price that has already run away from trend, grounded on
// the teacher's scoring/scorers/technicals.go use of CalculateEMA for
// a technical trend score, generalized here to a hard risk gate.
type TrendExtensionValidation struct {
	EMALength      int
	MaxDistancePct float64 // e.g. 5.0 rejects a close more than 5% away from its EMA
	Closes         func(symbol string) []float64
	note           string
}

// NewTrendExtensionValidation builds a TrendExtensionValidation. closes
// must yield the symbol's recent close prices, oldest first; a series
// too short to compute an EMA is treated as "no data", which never
// blocks a signal.
func NewTrendExtensionValidation(emaLength int, maxDistancePct float64, closes func(symbol string) []float64) *TrendExtensionValidation {
	return &TrendExtensionValidation{
		EMALength:      emaLength,
		MaxDistancePct: maxDistancePct,
		Closes:         closes,
		note:           fmt.Sprintf("price extended > %.2f%% from EMA(%d)", maxDistancePct, emaLength),
	}
}

func (t *TrendExtensionValidation) Note() string { return t.note }

func (t *TrendExtensionValidation) Validate(payload ValidationPayload) error {
	if t.Closes == nil {
		return nil
	}
	distance := formulas.CalculateDistanceFromEMA(t.Closes(payload.Symbol), t.EMALength)
	if distance == nil {
		return nil
	}
	if *distance > t.MaxDistancePct || *distance < -t.MaxDistancePct {
		return fmt.Errorf("%s is %.2f%% from its EMA(%d), exceeding the %.2f%% limit",
			payload.Symbol, *distance, t.EMALength, t.MaxDistancePct)
	}
	return nil
}
