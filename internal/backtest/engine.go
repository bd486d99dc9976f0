// Package backtest scores a signal sequence against a price series.
package backtest

import (
	"math"

	"tradesim-go/internal/series"
	"tradesim-go/internal/signal"
)

// Result aggregates the performance of one strategy over one series.
type Result struct {
	StrategyName string
	TotalReturn  float64
	Sharpe       float64
	MaxDrawdown  float64
	TradeCount   int
}

// Engine converts signals into a position-weighted return stream and rolls
// up the performance metrics the orchestrator ranks on.
//
// Execution convention: a signal observed at bar t earns bar t+1's
// close-to-close return, i.e. the position for bar t's return is
// signals[t-1]. This is the next-bar-close fill and is applied everywhere
// to avoid look-ahead bias.
type Engine struct {
	// Annualization scales the Sharpe ratio; 252 for daily bars.
	Annualization float64
	// AllowShorts enables negative position weights. Disabled by default:
	// a Sell while flat is a no-op.
	AllowShorts bool
}

// NewEngine builds an engine with the default daily annualization.
func NewEngine(annualization float64, allowShorts bool) *Engine {
	if annualization <= 0 {
		annualization = 252
	}
	return &Engine{Annualization: annualization, AllowShorts: allowShorts}
}

// Evaluate scores the signals against the series. Degenerate inputs (fewer
// than two bars, or a signal slice that never leaves Hold) yield a zero
// Result rather than an error.
func (e *Engine) Evaluate(name string, s series.Series, signals []signal.Signal) Result {
	res := Result{StrategyName: name}
	if len(s) < 2 || len(signals) != len(s) {
		return res
	}

	closes := s.Closes()
	equity := 1.0
	peak := 1.0
	maxDD := 0.0
	var rets []float64

	for t := 1; t < len(s); t++ {
		pos := float64(signals[t-1])
		if !e.AllowShorts && pos < 0 {
			pos = 0
		}
		barRet := 0.0
		if closes[t-1] != 0 {
			barRet = (closes[t] - closes[t-1]) / closes[t-1]
		}
		r := barRet * pos
		rets = append(rets, r)

		equity *= 1 + r
		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			if dd := (equity - peak) / peak; dd < maxDD {
				maxDD = dd
			}
		}
	}

	res.TotalReturn = equity - 1
	res.MaxDrawdown = maxDD
	res.Sharpe = e.sharpe(rets)
	res.TradeCount = countTrades(signals)
	return res
}

// sharpe is the annualized mean/stddev of the periodic returns, with the
// sample standard deviation. Zero volatility means zero, not infinity.
func (e *Engine) sharpe(rets []float64) float64 {
	if len(rets) < 2 {
		return 0
	}
	var sum float64
	for _, r := range rets {
		sum += r
	}
	mean := sum / float64(len(rets))

	var ss float64
	for _, r := range rets {
		d := r - mean
		ss += d * d
	}
	std := math.Sqrt(ss / float64(len(rets)-1))
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(e.Annualization)
}

// countTrades counts signal changes that land on a non-Hold value, which is
// exactly the number of position flips in the single-position model.
func countTrades(signals []signal.Signal) int {
	var n int
	var prev signal.Signal
	for i, sig := range signals {
		if sig != signal.Hold && (i == 0 || sig != prev) {
			n++
		}
		prev = sig
	}
	return n
}
