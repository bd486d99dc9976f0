package strategy

import (
	"fmt"
	"math"

	"tradesim-go/internal/indicators"
	"tradesim-go/internal/series"
	"tradesim-go/internal/signal"
)

// OrderFlowImbalance reads aggressive participation from volume and candle
// shape: elevated volume plus positive short-horizon momentum on a bullish
// bar is a Buy, the mirror image a Sell.
type OrderFlowImbalance struct {
	volWindow      int
	momentumPeriod int
	threshold      float64
	volMult        float64
}

// NewOrderFlowImbalance validates the windows and thresholds.
func NewOrderFlowImbalance(volWindow, momentumPeriod int, threshold, volMult float64) (*OrderFlowImbalance, error) {
	if volWindow <= 0 || momentumPeriod <= 0 {
		return nil, fmt.Errorf("%w: order flow windows must be positive (volume=%d momentum=%d)",
			ErrConfig, volWindow, momentumPeriod)
	}
	if threshold <= 0 || math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return nil, fmt.Errorf("%w: momentum threshold must be positive and finite, got %v", ErrConfig, threshold)
	}
	if volMult <= 0 || math.IsNaN(volMult) || math.IsInf(volMult, 0) {
		return nil, fmt.Errorf("%w: volume multiplier must be positive and finite, got %v", ErrConfig, volMult)
	}
	return &OrderFlowImbalance{
		volWindow:      volWindow,
		momentumPeriod: momentumPeriod,
		threshold:      threshold,
		volMult:        volMult,
	}, nil
}

// Name returns the parameterized identifier used in reports and ranking logs.
func (o *OrderFlowImbalance) Name() string {
	return fmt.Sprintf("OrderFlowImbalance_%d_%.1f", o.volWindow, o.volMult)
}

// Signals emits the per-bar bias for the whole series.
func (o *OrderFlowImbalance) Signals(s series.Series) []signal.Signal {
	out := holdAll(len(s))
	avgVol := indicators.SMA(s.Volumes(), o.volWindow)
	momentum := indicators.Momentum(s.Closes(), o.momentumPeriod)

	for i := range s {
		if !defined(avgVol[i]) || !defined(momentum[i]) || avgVol[i] == 0 {
			continue
		}
		if s[i].Volume/avgVol[i] <= o.volMult {
			continue
		}
		switch {
		case momentum[i] > o.threshold && s[i].Close > s[i].Open:
			out[i] = signal.Buy
		case momentum[i] < -o.threshold && s[i].Close < s[i].Open:
			out[i] = signal.Sell
		}
	}
	return out
}
