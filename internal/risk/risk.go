// Package risk sizes positions and enforces the loss limits that gate the
// simulation loop.
package risk

import (
	"errors"
	"fmt"
	"math"
)

// ErrLimitBreach marks a hard limit violation. The simulator responds with
// forced liquidation and an emergency stop; it is never swallowed.
var ErrLimitBreach = errors.New("risk limit breached")

// ErrConfig marks invalid risk parameters.
var ErrConfig = errors.New("invalid risk configuration")

// Limits are the per-run guard rails, validated once at construction and
// never re-checked mid-run.
type Limits struct {
	// RiskPerTradePct is the fraction of balance put at risk per entry.
	RiskPerTradePct float64 `yaml:"risk_per_trade_pct"`
	// StopLossPct is the stop distance as a fraction of entry price.
	StopLossPct float64 `yaml:"stop_loss_pct"`
	// TakeProfitPct is the profit target as a fraction of entry price.
	TakeProfitPct float64 `yaml:"take_profit_pct"`
	// MaxPositionPct caps position notional as a fraction of balance.
	MaxPositionPct float64 `yaml:"max_position_pct"`
	// DailyLossLimitPct halts new entries for the rest of the session once
	// the day's loss exceeds this fraction of the session start balance.
	DailyLossLimitPct float64 `yaml:"daily_loss_limit_pct"`
	// MaxDrawdownPct is the hard equity drawdown cap; breaching it stops
	// the run.
	MaxDrawdownPct float64 `yaml:"max_drawdown_pct"`
	// ATRStopMultiplier sizes the stop distance as a multiple of the
	// current ATR instead of a fixed price fraction. Zero disables ATR
	// stops and keeps the percentage levels.
	ATRStopMultiplier float64 `yaml:"atr_stop_multiplier"`
}

// Validate fails fast on out-of-range parameters.
func (l Limits) Validate() error {
	check := func(name string, v float64) error {
		if v <= 0 || v >= 1 || math.IsNaN(v) {
			return fmt.Errorf("%w: %s must be in (0,1), got %v", ErrConfig, name, v)
		}
		return nil
	}
	if err := check("risk_per_trade_pct", l.RiskPerTradePct); err != nil {
		return err
	}
	if err := check("stop_loss_pct", l.StopLossPct); err != nil {
		return err
	}
	if err := check("max_position_pct", l.MaxPositionPct); err != nil {
		return err
	}
	if err := check("daily_loss_limit_pct", l.DailyLossLimitPct); err != nil {
		return err
	}
	if err := check("max_drawdown_pct", l.MaxDrawdownPct); err != nil {
		return err
	}
	if l.TakeProfitPct < 0 || math.IsNaN(l.TakeProfitPct) {
		return fmt.Errorf("%w: take_profit_pct must be non-negative, got %v", ErrConfig, l.TakeProfitPct)
	}
	if l.ATRStopMultiplier < 0 || math.IsNaN(l.ATRStopMultiplier) {
		return fmt.Errorf("%w: atr_stop_multiplier must be non-negative, got %v", ErrConfig, l.ATRStopMultiplier)
	}
	return nil
}

// Manager applies the limits. The daily halt is sticky: once tripped it
// stays up for the rest of the session and only ResetSession clears it.
type Manager struct {
	limits Limits
	halted bool
}

// NewManager validates the limits and builds a manager.
func NewManager(limits Limits) (*Manager, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	return &Manager{limits: limits}, nil
}

// Limits returns the configured guard rails.
func (m *Manager) Limits() Limits { return m.limits }

// SizePosition computes the entry quantity: the cash amount at risk divided
// by the per-unit stop distance, capped by the max position notional.
func (m *Manager) SizePosition(balance, price float64) float64 {
	if balance <= 0 || price <= 0 {
		return 0
	}
	qty := (balance * m.limits.RiskPerTradePct) / (price * m.limits.StopLossPct)
	maxQty := balance * m.limits.MaxPositionPct / price
	if qty > maxQty {
		qty = maxQty
	}
	return qty
}

// AllowEntry reports whether new entries are currently permitted, tripping
// the sticky daily halt when the day's loss exceeds the limit. Exits and
// forced liquidation are never gated.
func (m *Manager) AllowEntry(dailyPnL, sessionStartBalance float64) bool {
	if m.halted {
		return false
	}
	if dailyPnL < -m.limits.DailyLossLimitPct*sessionStartBalance {
		m.halted = true
		return false
	}
	return true
}

// Halted reports the sticky daily halt state.
func (m *Manager) Halted() bool { return m.halted }

// ResetSession clears the daily halt at a session boundary. Nothing else
// clears it.
func (m *Manager) ResetSession() { m.halted = false }

// CheckDrawdown compares current equity against the running peak and returns
// ErrLimitBreach when the drawdown cap is pierced.
func (m *Manager) CheckDrawdown(equity, peakEquity float64) error {
	if peakEquity <= 0 {
		return nil
	}
	dd := (equity - peakEquity) / peakEquity
	if dd < -m.limits.MaxDrawdownPct {
		return fmt.Errorf("%w: drawdown %.2f%% exceeds cap %.2f%%",
			ErrLimitBreach, -dd*100, m.limits.MaxDrawdownPct*100)
	}
	return nil
}

// StopLevels derives the stop-loss and take-profit prices for an entry.
// A zero take-profit configuration yields a zero (unset) level.
func (m *Manager) StopLevels(entryPrice float64, long bool) (stopLoss, takeProfit float64) {
	if long {
		stopLoss = entryPrice * (1 - m.limits.StopLossPct)
		if m.limits.TakeProfitPct > 0 {
			takeProfit = entryPrice * (1 + m.limits.TakeProfitPct)
		}
		return stopLoss, takeProfit
	}
	stopLoss = entryPrice * (1 + m.limits.StopLossPct)
	if m.limits.TakeProfitPct > 0 {
		takeProfit = entryPrice * (1 - m.limits.TakeProfitPct)
	}
	return stopLoss, takeProfit
}

// StopLevelsATR places the stop a multiple of the current ATR away from the
// entry, so the exit adapts to realized volatility. Falls back to the
// percentage levels when ATR stops are disabled or the ATR is still in its
// warmup window. The take-profit stays percentage-based either way.
func (m *Manager) StopLevelsATR(entryPrice, atr float64, long bool) (stopLoss, takeProfit float64) {
	if m.limits.ATRStopMultiplier <= 0 || math.IsNaN(atr) || atr <= 0 {
		return m.StopLevels(entryPrice, long)
	}
	dist := atr * m.limits.ATRStopMultiplier
	_, takeProfit = m.StopLevels(entryPrice, long)
	if long {
		stopLoss = entryPrice - dist
	} else {
		stopLoss = entryPrice + dist
	}
	if stopLoss <= 0 {
		stopLoss, _ = m.StopLevels(entryPrice, long)
	}
	return stopLoss, takeProfit
}
