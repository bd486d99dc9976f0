package strategy

import (
	"fmt"
	"math"

	"tradesim-go/internal/indicators"
	"tradesim-go/internal/series"
	"tradesim-go/internal/signal"
)

// RiskRewardEnhanced combines a moving-average trend filter, an RSI
// overbought/oversold gate, and a rolling-drawdown cap that suppresses new
// entries once price has fallen too far from its running peak.
type RiskRewardEnhanced struct {
	fastMA      int
	slowMA      int
	rsiPeriod   int
	overbought  float64
	oversold    float64
	maxDrawdown float64
}

// NewRiskRewardEnhanced validates every knob before use.
func NewRiskRewardEnhanced(fastMA, slowMA, rsiPeriod int, overbought, oversold, maxDrawdown float64) (*RiskRewardEnhanced, error) {
	if fastMA <= 0 || slowMA <= 0 || rsiPeriod <= 0 {
		return nil, fmt.Errorf("%w: periods must be positive (fast=%d slow=%d rsi=%d)",
			ErrConfig, fastMA, slowMA, rsiPeriod)
	}
	if fastMA >= slowMA {
		return nil, fmt.Errorf("%w: fast MA %d must be below slow MA %d", ErrConfig, fastMA, slowMA)
	}
	if oversold <= 0 || overbought >= 100 || oversold >= overbought {
		return nil, fmt.Errorf("%w: rsi bands out of order (oversold=%v overbought=%v)",
			ErrConfig, oversold, overbought)
	}
	if maxDrawdown <= 0 || maxDrawdown >= 1 || math.IsNaN(maxDrawdown) {
		return nil, fmt.Errorf("%w: max drawdown gate must be in (0,1), got %v", ErrConfig, maxDrawdown)
	}
	return &RiskRewardEnhanced{
		fastMA:      fastMA,
		slowMA:      slowMA,
		rsiPeriod:   rsiPeriod,
		overbought:  overbought,
		oversold:    oversold,
		maxDrawdown: maxDrawdown,
	}, nil
}

// Name returns the parameterized identifier used in reports and ranking logs.
func (r *RiskRewardEnhanced) Name() string {
	return fmt.Sprintf("RiskRewardEnhanced_%d_%d", r.fastMA, r.slowMA)
}

// Signals emits the per-bar bias for the whole series.
func (r *RiskRewardEnhanced) Signals(s series.Series) []signal.Signal {
	out := holdAll(len(s))
	closes := s.Closes()
	fast := indicators.SMA(closes, r.fastMA)
	slow := indicators.SMA(closes, r.slowMA)
	rsi := indicators.RSI(closes, r.rsiPeriod)

	runningMax := math.Inf(-1)
	for i := range s {
		if closes[i] > runningMax {
			runningMax = closes[i]
		}
		if i == 0 || !defined(fast[i]) || !defined(slow[i]) || !defined(rsi[i]) {
			continue
		}
		drawdown := (closes[i] - runningMax) / runningMax
		if drawdown <= -r.maxDrawdown {
			continue // too deep under the peak, stand aside
		}
		switch {
		case fast[i] > slow[i] && rsi[i] < r.oversold && closes[i] > closes[i-1]:
			out[i] = signal.Buy
		case fast[i] < slow[i] && rsi[i] > r.overbought && closes[i] < closes[i-1]:
			out[i] = signal.Sell
		}
	}
	return out
}
