package strategy

import (
	"fmt"

	"tradesim-go/internal/indicators"
	"tradesim-go/internal/series"
	"tradesim-go/internal/signal"
)

// SMACrossover holds a long bias while the fast simple average trades above
// the slow one and a short bias while below. Equal averages mean Hold, so a
// flat tape never produces spurious signals.
type SMACrossover struct {
	fast int
	slow int
}

// NewSMACrossover validates the periods and builds the strategy.
func NewSMACrossover(fast, slow int) (*SMACrossover, error) {
	if fast <= 0 || slow <= 0 {
		return nil, fmt.Errorf("%w: sma periods must be positive (fast=%d slow=%d)", ErrConfig, fast, slow)
	}
	if fast >= slow {
		return nil, fmt.Errorf("%w: fast period %d must be below slow period %d", ErrConfig, fast, slow)
	}
	return &SMACrossover{fast: fast, slow: slow}, nil
}

// Name returns the parameterized identifier used in reports and ranking logs.
func (c *SMACrossover) Name() string { return fmt.Sprintf("SMA_%d_%d", c.fast, c.slow) }

// Signals emits the per-bar bias for the whole series.
func (c *SMACrossover) Signals(s series.Series) []signal.Signal {
	out := holdAll(len(s))
	closes := s.Closes()
	fast := indicators.SMA(closes, c.fast)
	slow := indicators.SMA(closes, c.slow)
	for i := range s {
		if !defined(fast[i]) || !defined(slow[i]) {
			continue
		}
		switch {
		case fast[i] > slow[i]:
			out[i] = signal.Buy
		case fast[i] < slow[i]:
			out[i] = signal.Sell
		}
	}
	return out
}

// EMACrossover is the exponential counterpart of SMACrossover. The averages
// are seeded from bar zero, but signals stay Hold until the slow window has
// passed so both crossover variants share the same warmup rule.
type EMACrossover struct {
	fast int
	slow int
}

// NewEMACrossover validates the spans and builds the strategy.
func NewEMACrossover(fast, slow int) (*EMACrossover, error) {
	if fast <= 0 || slow <= 0 {
		return nil, fmt.Errorf("%w: ema spans must be positive (fast=%d slow=%d)", ErrConfig, fast, slow)
	}
	if fast >= slow {
		return nil, fmt.Errorf("%w: fast span %d must be below slow span %d", ErrConfig, fast, slow)
	}
	return &EMACrossover{fast: fast, slow: slow}, nil
}

// Name returns the parameterized identifier used in reports and ranking logs.
func (c *EMACrossover) Name() string { return fmt.Sprintf("EMA_%d_%d", c.fast, c.slow) }

// Signals emits the per-bar bias for the whole series.
func (c *EMACrossover) Signals(s series.Series) []signal.Signal {
	out := holdAll(len(s))
	closes := s.Closes()
	fast := indicators.EMA(closes, c.fast)
	slow := indicators.EMA(closes, c.slow)
	for i := c.slow - 1; i < len(s); i++ {
		switch {
		case fast[i] > slow[i]:
			out[i] = signal.Buy
		case fast[i] < slow[i]:
			out[i] = signal.Sell
		}
	}
	return out
}
