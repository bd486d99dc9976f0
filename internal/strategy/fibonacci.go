package strategy

import (
	"fmt"
	"math"

	"tradesim-go/internal/indicators"
	"tradesim-go/internal/series"
	"tradesim-go/internal/signal"
)

// FibonacciRetracement trades pullbacks inside an established trend. In an
// uptrend it buys when price hovers near the 23.6% or 38.2% retracement of
// the recent swing and the RSI confirms oversold; in a downtrend it sells
// near the 61.8% or 38.2% level with RSI overbought.
type FibonacciRetracement struct {
	lookback    int
	trendPeriod int
	rsiPeriod   int
	proximity   float64
}

// NewFibonacciRetracement validates the windows and level proximity.
func NewFibonacciRetracement(lookback, trendPeriod, rsiPeriod int, proximity float64) (*FibonacciRetracement, error) {
	if lookback <= 0 || trendPeriod <= 0 || rsiPeriod <= 0 {
		return nil, fmt.Errorf("%w: fib windows must be positive (lookback=%d trend=%d rsi=%d)",
			ErrConfig, lookback, trendPeriod, rsiPeriod)
	}
	if proximity <= 0 || math.IsNaN(proximity) || math.IsInf(proximity, 0) {
		return nil, fmt.Errorf("%w: fib proximity must be positive and finite, got %v", ErrConfig, proximity)
	}
	return &FibonacciRetracement{
		lookback:    lookback,
		trendPeriod: trendPeriod,
		rsiPeriod:   rsiPeriod,
		proximity:   proximity,
	}, nil
}

// Name returns the parameterized identifier used in reports and ranking logs.
func (f *FibonacciRetracement) Name() string {
	return fmt.Sprintf("FibRetracement_%d_%d", f.lookback, f.trendPeriod)
}

// Signals emits the per-bar bias for the whole series.
func (f *FibonacciRetracement) Signals(s series.Series) []signal.Signal {
	out := holdAll(len(s))
	closes := s.Closes()
	trendSMA := indicators.SMA(closes, f.trendPeriod)
	swingHigh := indicators.Max(s.Highs(), f.lookback)
	swingLow := indicators.Min(s.Lows(), f.lookback)
	rsi := indicators.RSI(closes, f.rsiPeriod)

	for i := range s {
		if !defined(trendSMA[i]) || !defined(swingHigh[i]) || !defined(swingLow[i]) || !defined(rsi[i]) {
			continue
		}
		span := swingHigh[i] - swingLow[i]
		fib236 := swingLow[i] + span*0.236
		fib382 := swingLow[i] + span*0.382
		fib618 := swingLow[i] + span*0.618

		uptrend := closes[i] > trendSMA[i]
		switch {
		case uptrend && rsi[i] < 40 &&
			(f.near(closes[i], fib236) || f.near(closes[i], fib382)):
			out[i] = signal.Buy
		case !uptrend && rsi[i] > 60 &&
			(f.near(closes[i], fib618) || f.near(closes[i], fib382)):
			out[i] = signal.Sell
		}
	}
	return out
}

func (f *FibonacciRetracement) near(price, level float64) bool {
	if price == 0 {
		return false
	}
	return math.Abs(price-level)/price < f.proximity
}
