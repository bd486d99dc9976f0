// Package series models immutable OHLCV price history and its structural invariants.
package series

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidSeries marks structurally broken price data (non-monotonic timestamps, inconsistent OHLC).
var ErrInvalidSeries = errors.New("invalid price series")

// Candle is one OHLCV bar.
type Candle struct {
	Ts     time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Series is a time-ordered sequence of candles. Treated as immutable once produced.
type Series []Candle

// Validate checks the structural invariants every downstream consumer relies on:
// strictly increasing timestamps, High >= max(Open, Close), Low <= min(Open, Close),
// positive prices and non-negative volume.
func (s Series) Validate() error {
	for i, c := range s {
		if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
			return fmt.Errorf("%w: non-positive price at bar %d", ErrInvalidSeries, i)
		}
		if c.Volume < 0 {
			return fmt.Errorf("%w: negative volume at bar %d", ErrInvalidSeries, i)
		}
		hi := c.Open
		if c.Close > hi {
			hi = c.Close
		}
		lo := c.Open
		if c.Close < lo {
			lo = c.Close
		}
		if c.High < hi || c.Low > lo {
			return fmt.Errorf("%w: inconsistent OHLC at bar %d", ErrInvalidSeries, i)
		}
		if i > 0 && !c.Ts.After(s[i-1].Ts) {
			return fmt.Errorf("%w: non-increasing timestamp at bar %d", ErrInvalidSeries, i)
		}
	}
	return nil
}

// Closes extracts the close column.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Close
	}
	return out
}

// Opens extracts the open column.
func (s Series) Opens() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Open
	}
	return out
}

// Highs extracts the high column.
func (s Series) Highs() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.High
	}
	return out
}

// Lows extracts the low column.
func (s Series) Lows() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Low
	}
	return out
}

// Volumes extracts the volume column.
func (s Series) Volumes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Volume
	}
	return out
}

// Source is the pull interface for price history. Implementations may be
// synthetic or backed by a market-data collaborator; callers validate the
// returned series themselves.
type Source interface {
	Series(symbol string, bars int) (Series, error)
}
