package risk

import (
	"fmt"

	"github.com/aristath/quanttrader/pkg/formulas"
)

// CorrelationValidation rejects a proposed signal when its symbol's
// historical daily returns correlate with any already-active position's
// returns at or above Threshold in absolute value (strong negative
// correlation is rejected as well). Supplements the bare validation-function
// contract with a concrete, realistic risk check, grounded on the
// teacher's RiskModelBuilder.BuildCovarianceMatrix/getCorrelations —
// generalized from a covariance matrix over a universe to a pairwise
// formulas.Correlation check against the current portfolio.
type CorrelationValidation struct {
	Threshold float64 // e.g. 0.80, matching the teacher's HighCorrelationThreshold
	Returns   func(symbol string) []float64
	note      string
}

// NewCorrelationValidation builds a CorrelationValidation. returns must
// yield equal-length, time-aligned daily return series for any symbol
// it is asked about; a nil or short series is treated as "no data",
// which never blocks a signal.
func NewCorrelationValidation(threshold float64, returns func(symbol string) []float64) *CorrelationValidation {
	return &CorrelationValidation{
		Threshold: threshold,
		Returns:   returns,
		note:      fmt.Sprintf("|correlation| >= %.2f with an active position", threshold),
	}
}

func (c *CorrelationValidation) Note() string { return c.note }

func (c *CorrelationValidation) Validate(payload ValidationPayload) error {
	if c.Returns == nil || len(payload.ActivePositions) == 0 {
		return nil
	}
	candidate := c.Returns(payload.Symbol)
	if len(candidate) < 2 {
		return nil
	}

	for _, pos := range payload.ActivePositions {
		if pos.Signal.Symbol == payload.Symbol {
			continue
		}
		other := c.Returns(pos.Signal.Symbol)
		n := min(len(candidate), len(other))
		if n < 2 {
			continue
		}
		corr := formulas.Correlation(candidate[:n], other[:n])
		if corr >= c.Threshold || corr <= -c.Threshold {
			return fmt.Errorf("%s correlates %.3f with active position %s (threshold %.2f)",
				payload.Symbol, corr, pos.Signal.Symbol, c.Threshold)
		}
	}
	return nil
}
