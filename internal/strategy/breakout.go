package strategy

import (
	"fmt"
	"math"

	"tradesim-go/internal/indicators"
	"tradesim-go/internal/series"
	"tradesim-go/internal/signal"
)

// BreakoutRetest buys when the close clears the rolling high of the previous
// lookback bars by more than the threshold on elevated volume, with the prior
// close still at or below that level (a fresh break, not a continuation).
// The short side mirrors the rule against the rolling low.
type BreakoutRetest struct {
	lookback  int
	threshold float64
	volMult   float64
}

// NewBreakoutRetest validates lookback, breakout threshold, and the volume filter.
func NewBreakoutRetest(lookback int, threshold, volMult float64) (*BreakoutRetest, error) {
	if lookback <= 0 {
		return nil, fmt.Errorf("%w: breakout lookback must be positive, got %d", ErrConfig, lookback)
	}
	if threshold <= 0 || math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return nil, fmt.Errorf("%w: breakout threshold must be positive and finite, got %v", ErrConfig, threshold)
	}
	if volMult <= 0 || math.IsNaN(volMult) || math.IsInf(volMult, 0) {
		return nil, fmt.Errorf("%w: volume multiplier must be positive and finite, got %v", ErrConfig, volMult)
	}
	return &BreakoutRetest{lookback: lookback, threshold: threshold, volMult: volMult}, nil
}

// Name returns the parameterized identifier used in reports and ranking logs.
func (b *BreakoutRetest) Name() string {
	return fmt.Sprintf("BreakoutRetest_%d_%.2f", b.lookback, b.threshold)
}

// Signals emits the per-bar bias for the whole series. Resistance and support
// are taken over the bars strictly before the current one so a bar cannot
// break its own high.
func (b *BreakoutRetest) Signals(s series.Series) []signal.Signal {
	out := holdAll(len(s))
	closes := s.Closes()
	resistance := indicators.Max(s.Highs(), b.lookback)
	support := indicators.Min(s.Lows(), b.lookback)
	avgVol := indicators.SMA(s.Volumes(), b.lookback)

	for i := 1; i < len(s); i++ {
		res, sup, vol := resistance[i-1], support[i-1], avgVol[i-1]
		if !defined(res) || !defined(sup) || !defined(vol) {
			continue
		}
		if s[i].Volume <= vol*b.volMult {
			continue
		}
		switch {
		case closes[i] > res*(1+b.threshold) && closes[i-1] <= res:
			out[i] = signal.Buy
		case closes[i] < sup*(1-b.threshold) && closes[i-1] >= sup:
			out[i] = signal.Sell
		}
	}
	return out
}
