// Package orchestrator evaluates every registered strategy on one series and
// picks the best performer deterministically.
package orchestrator

import (
	"errors"
	"sort"

	"github.com/rs/zerolog"

	"tradesim-go/internal/backtest"
	"tradesim-go/internal/series"
	"tradesim-go/internal/strategy"
)

// ErrNoStrategies is returned when selection runs with an empty roster.
var ErrNoStrategies = errors.New("no strategies registered")

// Scored pairs a strategy with its backtest result and registration slot.
type Scored struct {
	Strategy strategy.Strategy
	Result   backtest.Result
	Index    int
}

// Orchestrator ranks an injected, registration-ordered strategy list.
// No global registry: the caller decides what competes.
type Orchestrator struct {
	strategies []strategy.Strategy
	engine     *backtest.Engine
	log        zerolog.Logger
}

// New builds an orchestrator over the given strategies.
func New(strategies []strategy.Strategy, engine *backtest.Engine, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{strategies: strategies, engine: engine, log: log}
}

// All returns the registered strategies in registration order.
func (o *Orchestrator) All() []strategy.Strategy {
	out := make([]strategy.Strategy, len(o.strategies))
	copy(out, o.strategies)
	return out
}

// Rank backtests every strategy on the series and returns them best-first.
// Ordering is the strict lexicographic tuple (sharpe desc, total return desc,
// max drawdown desc, least negative first, then registration index asc), so
// two runs over identical inputs always agree.
func (o *Orchestrator) Rank(s series.Series) ([]Scored, error) {
	if len(o.strategies) == 0 {
		return nil, ErrNoStrategies
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	scored := make([]Scored, 0, len(o.strategies))
	for i, strat := range o.strategies {
		res := o.engine.Evaluate(strat.Name(), s, strat.Signals(s))
		o.log.Info().
			Str("strategy", res.StrategyName).
			Float64("sharpe", res.Sharpe).
			Float64("return", res.TotalReturn).
			Float64("drawdown", res.MaxDrawdown).
			Int("trades", res.TradeCount).
			Msg("strategy evaluated")
		scored = append(scored, Scored{Strategy: strat, Result: res, Index: i})
	}

	sort.SliceStable(scored, func(a, b int) bool {
		return better(scored[a], scored[b])
	})
	return scored, nil
}

// better is the strict lexicographic ranking tuple. Registration index is the
// last, explicit tie-break key so equal metrics still order deterministically.
func better(a, b Scored) bool {
	if a.Result.Sharpe != b.Result.Sharpe {
		return a.Result.Sharpe > b.Result.Sharpe
	}
	if a.Result.TotalReturn != b.Result.TotalReturn {
		return a.Result.TotalReturn > b.Result.TotalReturn
	}
	if a.Result.MaxDrawdown != b.Result.MaxDrawdown {
		return a.Result.MaxDrawdown > b.Result.MaxDrawdown
	}
	return a.Index < b.Index
}

// SelectBest returns the winner of Rank.
func (o *Orchestrator) SelectBest(s series.Series) (Scored, error) {
	ranked, err := o.Rank(s)
	if err != nil {
		return Scored{}, err
	}
	best := ranked[0]
	o.log.Info().
		Str("strategy", best.Strategy.Name()).
		Float64("sharpe", best.Result.Sharpe).
		Msg("strategy selected")
	return best, nil
}
