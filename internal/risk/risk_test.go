package risk

import (
	"errors"
	"math"
	"testing"
)

func testLimits() Limits {
	return Limits{
		RiskPerTradePct:   0.02,
		StopLossPct:       0.05,
		TakeProfitPct:     0.10,
		MaxPositionPct:    0.50,
		DailyLossLimitPct: 0.03,
		MaxDrawdownPct:    0.20,
	}
}

func TestLimitsValidation(t *testing.T) {
	l := testLimits()
	if err := l.Validate(); err != nil {
		t.Fatalf("valid limits rejected: %v", err)
	}
	l.StopLossPct = 0
	if err := l.Validate(); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig for zero stop loss, got %v", err)
	}
	l = testLimits()
	l.MaxDrawdownPct = 1.5
	if err := l.Validate(); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig for drawdown cap above 1, got %v", err)
	}
}

func TestSizePositionFormula(t *testing.T) {
	m, err := NewManager(testLimits())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	// (10000 * 0.02) / (100 * 0.05) = 40, capped at 10000*0.5/100 = 50.
	qty := m.SizePosition(10000, 100)
	if math.Abs(qty-40) > 1e-9 {
		t.Fatalf("expected qty 40, got %v", qty)
	}
}

func TestSizePositionCap(t *testing.T) {
	l := testLimits()
	l.RiskPerTradePct = 0.10 // uncapped would be 200
	m, err := NewManager(l)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	qty := m.SizePosition(10000, 100)
	if math.Abs(qty-50) > 1e-9 {
		t.Fatalf("expected cap at 50, got %v", qty)
	}
	if m.SizePosition(0, 100) != 0 || m.SizePosition(10000, 0) != 0 {
		t.Fatalf("degenerate inputs must size to zero")
	}
}

func TestDailyHaltBoundaryAndStickiness(t *testing.T) {
	m, err := NewManager(testLimits())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	start := 10000.0
	// Loss exactly at the limit does not halt; a hair beyond does.
	if !m.AllowEntry(-0.03*start, start) {
		t.Fatalf("loss at the exact limit must still allow entries")
	}
	if m.AllowEntry(-0.03*start-0.01, start) {
		t.Fatalf("loss beyond the limit must halt entries")
	}
	// Sticky: recovering intraday does not clear the halt.
	if m.AllowEntry(0, start) {
		t.Fatalf("halt must stay up for the rest of the session")
	}
	if !m.Halted() {
		t.Fatalf("Halted should report the sticky state")
	}
	m.ResetSession()
	if !m.AllowEntry(0, start) {
		t.Fatalf("session reset must clear the halt")
	}
}

func TestCheckDrawdown(t *testing.T) {
	m, err := NewManager(testLimits())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if err := m.CheckDrawdown(9000, 10000); err != nil {
		t.Fatalf("10%% drawdown under a 20%% cap must pass, got %v", err)
	}
	if err := m.CheckDrawdown(7500, 10000); !errors.Is(err, ErrLimitBreach) {
		t.Fatalf("expected ErrLimitBreach at 25%% drawdown, got %v", err)
	}
}

func TestStopLevels(t *testing.T) {
	m, err := NewManager(testLimits())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	sl, tp := m.StopLevels(100, true)
	if math.Abs(sl-95) > 1e-9 || math.Abs(tp-110) > 1e-9 {
		t.Fatalf("long levels wrong: sl=%v tp=%v", sl, tp)
	}
	sl, tp = m.StopLevels(100, false)
	if math.Abs(sl-105) > 1e-9 || math.Abs(tp-90) > 1e-9 {
		t.Fatalf("short levels wrong: sl=%v tp=%v", sl, tp)
	}
}

func TestStopLevelsATR(t *testing.T) {
	l := testLimits()
	l.ATRStopMultiplier = 2
	m, err := NewManager(l)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	// Stop sits 2 ATR away; the take-profit stays percentage-based.
	sl, tp := m.StopLevelsATR(100, 1.5, true)
	if math.Abs(sl-97) > 1e-9 || math.Abs(tp-110) > 1e-9 {
		t.Fatalf("long ATR levels wrong: sl=%v tp=%v", sl, tp)
	}
	sl, tp = m.StopLevelsATR(100, 1.5, false)
	if math.Abs(sl-103) > 1e-9 || math.Abs(tp-90) > 1e-9 {
		t.Fatalf("short ATR levels wrong: sl=%v tp=%v", sl, tp)
	}
	// Warmup NaN falls back to the percentage stop.
	sl, tp = m.StopLevelsATR(100, math.NaN(), true)
	if math.Abs(sl-95) > 1e-9 || math.Abs(tp-110) > 1e-9 {
		t.Fatalf("NaN ATR fallback wrong: sl=%v tp=%v", sl, tp)
	}
	// Disabled multiplier behaves exactly like StopLevels.
	m2, err := NewManager(testLimits())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	sl, tp = m2.StopLevelsATR(100, 1.5, true)
	if math.Abs(sl-95) > 1e-9 || math.Abs(tp-110) > 1e-9 {
		t.Fatalf("disabled ATR levels wrong: sl=%v tp=%v", sl, tp)
	}
}

func TestLimitsRejectNegativeATRMultiplier(t *testing.T) {
	l := testLimits()
	l.ATRStopMultiplier = -1
	if err := l.Validate(); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig for negative atr multiplier, got %v", err)
	}
}
