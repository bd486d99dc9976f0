package strategy

import (
	"fmt"
	"math"

	"tradesim-go/internal/indicators"
	"tradesim-go/internal/series"
	"tradesim-go/internal/signal"
)

// MeanReversion fades stretched prices: Buy when the close sits z-score
// threshold below its rolling mean, Sell when it sits the same distance above.
type MeanReversion struct {
	lookback int
	zThresh  float64
}

// NewMeanReversion validates the lookback and threshold.
func NewMeanReversion(lookback int, zThresh float64) (*MeanReversion, error) {
	if lookback <= 1 {
		return nil, fmt.Errorf("%w: mean reversion lookback must exceed 1, got %d", ErrConfig, lookback)
	}
	if zThresh <= 0 || math.IsNaN(zThresh) || math.IsInf(zThresh, 0) {
		return nil, fmt.Errorf("%w: z-score threshold must be positive and finite, got %v", ErrConfig, zThresh)
	}
	return &MeanReversion{lookback: lookback, zThresh: zThresh}, nil
}

// Name returns the parameterized identifier used in reports and ranking logs.
func (m *MeanReversion) Name() string {
	return fmt.Sprintf("MeanRev_%d_%g", m.lookback, m.zThresh)
}

// Signals emits the per-bar bias for the whole series. A zero-width window
// (flat prices) has no defined z-score and stays Hold.
func (m *MeanReversion) Signals(s series.Series) []signal.Signal {
	out := holdAll(len(s))
	closes := s.Closes()
	mean := indicators.SMA(closes, m.lookback)
	std := indicators.Std(closes, m.lookback)
	for i := range s {
		if !defined(mean[i]) || !defined(std[i]) || std[i] == 0 {
			continue
		}
		z := (closes[i] - mean[i]) / std[i]
		switch {
		case z <= -m.zThresh:
			out[i] = signal.Buy
		case z >= m.zThresh:
			out[i] = signal.Sell
		}
	}
	return out
}
