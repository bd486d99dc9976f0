// Package strategy contains the signal generation logic evaluated by the
// backtest engine and driven by the paper trading simulator. Every variant is
// causal: the signal at bar t depends only on bars up to and including t, and
// stays Hold until the longest lookback window is filled.
package strategy

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"tradesim-go/internal/series"
	"tradesim-go/internal/signal"
)

// ErrConfig marks invalid strategy parameters. Construction fails fast; a
// badly configured strategy never produces a single signal.
var ErrConfig = errors.New("invalid strategy configuration")

// Strategy is the capability the orchestrator and simulator depend on.
type Strategy interface {
	Name() string
	Signals(s series.Series) []signal.Signal
}

// Params bundles the tunable knobs for every variant so config stays flat.
type Params struct {
	FastSMA int `yaml:"fast_sma"`
	SlowSMA int `yaml:"slow_sma"`
	FastEMA int `yaml:"fast_ema"`
	SlowEMA int `yaml:"slow_ema"`

	MeanRevLookback int     `yaml:"mean_rev_lookback"`
	MeanRevZScore   float64 `yaml:"mean_rev_z_score"`

	BreakoutLookback    int     `yaml:"breakout_lookback"`
	BreakoutThreshold   float64 `yaml:"breakout_threshold"`
	MinVolumeMultiplier float64 `yaml:"min_volume_multiplier"`

	FibLookback    int     `yaml:"fib_lookback"`
	FibTrendPeriod int     `yaml:"fib_trend_period"`
	FibRSIPeriod   int     `yaml:"fib_rsi_period"`
	FibProximity   float64 `yaml:"fib_proximity"`

	FlowVolumeWindow     int     `yaml:"flow_volume_window"`
	FlowMomentumPeriod   int     `yaml:"flow_momentum_period"`
	FlowThreshold        float64 `yaml:"flow_threshold"`
	FlowVolumeMultiplier float64 `yaml:"flow_volume_multiplier"`

	RRFastMA      int     `yaml:"rr_fast_ma"`
	RRSlowMA      int     `yaml:"rr_slow_ma"`
	RRRSIPeriod   int     `yaml:"rr_rsi_period"`
	RROverbought  float64 `yaml:"rr_overbought"`
	RROversold    float64 `yaml:"rr_oversold"`
	RRMaxDrawdown float64 `yaml:"rr_max_drawdown"`
}

// DefaultParams mirror the parameterization the strategies were tuned with.
func DefaultParams() Params {
	return Params{
		FastSMA: 10, SlowSMA: 50,
		FastEMA: 12, SlowEMA: 26,
		MeanRevLookback: 20, MeanRevZScore: 1.5,
		BreakoutLookback: 20, BreakoutThreshold: 0.01, MinVolumeMultiplier: 1.2,
		FibLookback: 50, FibTrendPeriod: 20, FibRSIPeriod: 14, FibProximity: 0.02,
		FlowVolumeWindow: 20, FlowMomentumPeriod: 10, FlowThreshold: 0.005, FlowVolumeMultiplier: 1.1,
		RRFastMA: 9, RRSlowMA: 21, RRRSIPeriod: 14, RROverbought: 70, RROversold: 30, RRMaxDrawdown: 0.05,
	}
}

// Build returns the variant matching the requested mode.
func Build(mode string, p Params) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "sma", "sma_crossover":
		return NewSMACrossover(p.FastSMA, p.SlowSMA)
	case "ema", "ema_crossover":
		return NewEMACrossover(p.FastEMA, p.SlowEMA)
	case "meanrev", "mean_reversion":
		return NewMeanReversion(p.MeanRevLookback, p.MeanRevZScore)
	case "breakout", "breakout_retest":
		return NewBreakoutRetest(p.BreakoutLookback, p.BreakoutThreshold, p.MinVolumeMultiplier)
	case "fib", "fib_retracement":
		return NewFibonacciRetracement(p.FibLookback, p.FibTrendPeriod, p.FibRSIPeriod, p.FibProximity)
	case "orderflow", "order_flow_imbalance":
		return NewOrderFlowImbalance(p.FlowVolumeWindow, p.FlowMomentumPeriod, p.FlowThreshold, p.FlowVolumeMultiplier)
	case "riskreward", "risk_reward_enhanced":
		return NewRiskRewardEnhanced(p.RRFastMA, p.RRSlowMA, p.RRRSIPeriod, p.RROverbought, p.RROversold, p.RRMaxDrawdown)
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q", ErrConfig, mode)
	}
}

// BuildAll constructs every variant in registration order. The order is the
// final tie-break key during selection, so it is fixed and explicit here
// rather than kept in a process-wide registry.
func BuildAll(p Params) ([]Strategy, error) {
	modes := []string{
		"sma_crossover",
		"ema_crossover",
		"mean_reversion",
		"breakout_retest",
		"fib_retracement",
		"order_flow_imbalance",
		"risk_reward_enhanced",
	}
	out := make([]Strategy, 0, len(modes))
	for _, mode := range modes {
		s, err := Build(mode, p)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func holdAll(n int) []signal.Signal {
	return make([]signal.Signal, n)
}

// defined reports whether an indicator slot is usable (not warmup).
func defined(v float64) bool { return !math.IsNaN(v) }
