// Package paper runs a full trading session against the simulated exchange:
// strategy selection, bar-by-bar signal execution, risk gating and a final
// performance report.
package paper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tradesim-go/internal/exchange"
	"tradesim-go/internal/indicators"
	"tradesim-go/internal/metrics"
	"tradesim-go/internal/orchestrator"
	"tradesim-go/internal/risk"
	"tradesim-go/internal/series"
	"tradesim-go/internal/signal"
)

// State is the simulator lifecycle phase.
type State int

const (
	// StateIdle is the initial state before Initialize.
	StateIdle State = iota
	// StateInitializing covers data fetch and strategy selection.
	StateInitializing
	// StateRunning is the stepped execution loop.
	StateRunning
	// StateFinished means the run completed all requested steps.
	StateFinished
	// StateEmergencyStopped means the run terminated abnormally: risk breach,
	// external stop or a setup failure. Open positions are force-closed.
	StateEmergencyStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateFinished:
		return "finished"
	case StateEmergencyStopped:
		return "emergency_stopped"
	default:
		return "unknown"
	}
}

// Config sets the session shape. Quantity <= 0 delegates sizing to the risk
// manager; a positive Quantity places fixed-size orders instead.
type Config struct {
	Symbol   string
	Days     int
	History  int
	Quantity float64
}

// DefaultHistory is the warmup window fetched ahead of the simulated days so
// slow indicators are defined before the first executable step.
const DefaultHistory = 60

// atrPeriod is the lookback for the volatility estimate behind ATR stops.
const atrPeriod = 14

// Simulator owns one paper-trading session end to end. It is single-writer:
// one goroutine drives Initialize and Run; State and Report are safe to read
// concurrently.
type Simulator struct {
	cfg      Config
	source   series.Source
	orch     *orchestrator.Orchestrator
	ex       *exchange.Exchange
	riskMgr  *risk.Manager
	log      zerolog.Logger
	notifier Notifier
	recorder FillRecorder
	sink     ReportSink

	mu       sync.Mutex
	state    State
	report   Report
	notifyWG sync.WaitGroup

	strat      orchestrator.Scored
	data       series.Series
	signals    []signal.Signal
	atr        []float64
	curSignal  signal.Signal
	curve      EquityCurve
	peakEquity float64
	dayEquity  float64
	curDay     time.Time
}

// Option customizes optional collaborators.
type Option func(*Simulator)

// WithNotifier wires an alert transport for state-transition events.
func WithNotifier(n Notifier) Option { return func(s *Simulator) { s.notifier = n } }

// WithRecorder wires a fill recorder that receives every executed fill.
func WithRecorder(r FillRecorder) Option { return func(s *Simulator) { s.recorder = r } }

// WithReportSink wires a sink that receives the final report.
func WithReportSink(r ReportSink) Option { return func(s *Simulator) { s.sink = r } }

// NewSimulator assembles a session over the given collaborators.
func NewSimulator(cfg Config, source series.Source, orch *orchestrator.Orchestrator, ex *exchange.Exchange, riskMgr *risk.Manager, log zerolog.Logger, opts ...Option) (*Simulator, error) {
	if cfg.Symbol == "" {
		return nil, fmt.Errorf("simulator: symbol is required")
	}
	if cfg.Days <= 0 {
		return nil, fmt.Errorf("simulator: days must be positive, got %d", cfg.Days)
	}
	if cfg.History <= 0 {
		cfg.History = DefaultHistory
	}
	s := &Simulator{
		cfg:     cfg,
		source:  source,
		orch:    orch,
		ex:      ex,
		riskMgr: riskMgr,
		log:     log.With().Str("sym", cfg.Symbol).Logger(),
		state:   StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// State returns the current lifecycle phase.
func (s *Simulator) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Simulator) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Report returns the report built at the end of the run. Zero value until the
// simulator reaches a terminal state.
func (s *Simulator) Report() Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report
}

// Strategy returns the winner of the selection phase. Valid after Initialize.
func (s *Simulator) Strategy() orchestrator.Scored { return s.strat }

// Curve returns the recorded equity curve.
func (s *Simulator) Curve() EquityCurve { return s.curve }

// Initialize fetches history, selects the best strategy over it and
// precomputes its signal sequence. Any failure here lands the simulator in
// StateEmergencyStopped with no orders placed.
func (s *Simulator) Initialize() error {
	if st := s.State(); st != StateIdle {
		return fmt.Errorf("simulator: initialize from %s", st)
	}
	s.setState(StateInitializing)

	bars := s.cfg.History + s.cfg.Days
	data, err := s.source.Series(s.cfg.Symbol, bars)
	if err != nil {
		s.fail(fmt.Errorf("fetch series: %w", err))
		return fmt.Errorf("fetch series: %w", err)
	}
	if err := data.Validate(); err != nil {
		s.fail(fmt.Errorf("validate series: %w", err))
		return fmt.Errorf("validate series: %w", err)
	}
	// Validate accepts empty and single-bar series; neither can be stepped.
	if len(data) < 2 {
		err := fmt.Errorf("validate series: %w: %d bars is too short to simulate", series.ErrInvalidSeries, len(data))
		s.fail(err)
		return err
	}
	best, err := s.orch.SelectBest(data)
	if err != nil {
		s.fail(fmt.Errorf("select strategy: %w", err))
		return fmt.Errorf("select strategy: %w", err)
	}
	s.data = data
	s.strat = best
	s.signals = best.Strategy.Signals(data)
	s.atr = indicators.ATR(data.Highs(), data.Lows(), data.Closes(), atrPeriod)
	s.log.Info().
		Str("strategy", best.Strategy.Name()).
		Float64("sharpe", best.Result.Sharpe).
		Int("bars", len(data)).
		Msg("strategy selected")
	return nil
}

// Run executes the session. It calls Initialize when the simulator is still
// idle, steps through the simulated window bar by bar, and finishes by
// building the report. Cancelling ctx stops the run at the next step boundary
// through the emergency-stop path, closing any open position.
func (s *Simulator) Run(ctx context.Context) (Report, error) {
	if s.State() == StateIdle {
		if err := s.Initialize(); err != nil {
			return s.Report(), err
		}
	}
	if st := s.State(); st != StateInitializing {
		return s.Report(), fmt.Errorf("simulator: run from %s", st)
	}
	s.setState(StateRunning)

	start := len(s.data) - s.cfg.Days
	if start < 1 {
		start = 1
	}
	s.curSignal = signal.Hold
	s.peakEquity = s.ex.Equity()
	s.dayEquity = s.peakEquity
	s.curDay = day(s.data[start].Ts)
	s.curve.Append(s.data[start-1].Ts, s.peakEquity)

	for t := start; t < len(s.data); t++ {
		select {
		case <-ctx.Done():
			s.emergencyStop("external stop", s.data[t-1].Close, s.data[t-1].Ts)
			return s.finish(true), ctx.Err()
		default:
		}

		bar := s.data[t]
		s.ex.SetPrice(s.cfg.Symbol, bar.Close)
		metrics.StepsTotal.Inc()

		if d := day(bar.Ts); !d.Equal(s.curDay) {
			s.riskMgr.ResetSession()
			s.curDay = d
			s.dayEquity = s.ex.Equity()
		}

		s.manageExits(bar)
		s.step(t, bar)

		equity := s.ex.Equity()
		if equity > s.peakEquity {
			s.peakEquity = equity
		}
		if err := s.riskMgr.CheckDrawdown(equity, s.peakEquity); err != nil {
			s.emergencyStop(err.Error(), bar.Close, bar.Ts)
			s.curve.Append(bar.Ts, s.ex.Equity())
			return s.finish(true), err
		}
		s.curve.Append(bar.Ts, equity)
	}

	s.setState(StateFinished)
	s.notify(Event{Kind: EventFinished, Symbol: s.cfg.Symbol, Equity: s.ex.Equity(), Ts: time.Now()})
	return s.finish(false), nil
}

// step applies the bar's signal: on a change it flattens any open position and
// opens in the new direction, subject to the risk gate.
func (s *Simulator) step(t int, bar series.Candle) {
	sig := s.signals[t]
	if sig == s.curSignal {
		return
	}
	prev := s.curSignal
	s.curSignal = sig

	if pos, ok := s.ex.Position(s.cfg.Symbol); ok {
		s.closePosition(pos, bar.Close, "signal change", bar.Ts)
	}
	if sig == signal.Hold {
		return
	}

	dailyPnL := s.ex.Equity() - s.dayEquity
	wasHalted := s.riskMgr.Halted()
	if !s.riskMgr.AllowEntry(dailyPnL, s.dayEquity) {
		if !wasHalted {
			s.log.Warn().Float64("daily_pnl", dailyPnL).Msg("daily loss limit hit, entries halted")
			s.notify(Event{Kind: EventHalt, Symbol: s.cfg.Symbol, Detail: "daily loss limit", Equity: s.ex.Equity(), Ts: bar.Ts})
		}
		return
	}

	qty := s.cfg.Quantity
	if qty <= 0 {
		qty = s.riskMgr.SizePosition(s.ex.Balance(), bar.Close)
	}
	if qty <= 0 {
		return
	}
	side := exchange.Buy
	if sig == signal.Sell {
		side = exchange.Sell
	}
	fill, err := s.ex.PlaceOrder(exchange.Order{
		Symbol: s.cfg.Symbol,
		Side:   side,
		Qty:    qty,
		Type:   exchange.Market,
		Ts:     bar.Ts,
	})
	if err != nil {
		// Rejections are recorded by the exchange and do not stop the run.
		s.log.Warn().Err(err).Str("side", string(side)).Str("from", prev.String()).Msg("entry rejected")
		return
	}
	sl, tp := s.riskMgr.StopLevelsATR(fill.Price, s.atr[t], side == exchange.Buy)
	s.ex.SetExitLevels(s.cfg.Symbol, sl, tp)
	s.record(fill)
	s.notify(Event{Kind: EventFill, Symbol: s.cfg.Symbol, Detail: string(side), Equity: s.ex.Equity(), Ts: bar.Ts})
}

// manageExits checks the bar's range against the open position's stop-loss and
// take-profit and closes at the triggered level. Stop-loss wins if the bar
// spans both.
func (s *Simulator) manageExits(bar series.Candle) {
	pos, ok := s.ex.Position(s.cfg.Symbol)
	if !ok {
		return
	}
	var exitPrice float64
	var reason string
	if pos.Side == exchange.Long {
		switch {
		case pos.StopLoss > 0 && bar.Low <= pos.StopLoss:
			exitPrice, reason = pos.StopLoss, "stop loss"
		case pos.TakeProfit > 0 && bar.High >= pos.TakeProfit:
			exitPrice, reason = pos.TakeProfit, "take profit"
		}
	} else {
		switch {
		case pos.StopLoss > 0 && bar.High >= pos.StopLoss:
			exitPrice, reason = pos.StopLoss, "stop loss"
		case pos.TakeProfit > 0 && bar.Low <= pos.TakeProfit:
			exitPrice, reason = pos.TakeProfit, "take profit"
		}
	}
	if exitPrice == 0 {
		return
	}
	s.ex.SetPrice(s.cfg.Symbol, exitPrice)
	s.closePosition(pos, exitPrice, reason, bar.Ts)
	s.ex.SetPrice(s.cfg.Symbol, bar.Close)
	// A triggered exit resets the stance so the next non-Hold signal re-enters.
	s.curSignal = signal.Hold
}

// closePosition flattens the position at the current exchange price. ts is
// simulation time so the fill history stays on the bar clock.
func (s *Simulator) closePosition(pos exchange.Position, price float64, reason string, ts time.Time) {
	side := exchange.Sell
	if pos.Side == exchange.Short {
		side = exchange.Buy
	}
	fill, err := s.ex.PlaceOrder(exchange.Order{
		Symbol: pos.Symbol,
		Side:   side,
		Qty:    pos.Qty,
		Type:   exchange.Market,
		Ts:     ts,
	})
	if err != nil {
		s.log.Error().Err(err).Str("reason", reason).Msg("close order rejected")
		return
	}
	s.record(fill)
	s.log.Info().
		Str("reason", reason).
		Float64("price", price).
		Float64("realized", fill.Realized).
		Msg("position closed")
}

// emergencyStop force-closes every open position at the given mark and moves
// the simulator to StateEmergencyStopped.
func (s *Simulator) emergencyStop(reason string, lastPrice float64, ts time.Time) {
	s.ex.SetPrice(s.cfg.Symbol, lastPrice)
	for _, pos := range s.ex.Positions() {
		s.closePosition(pos, lastPrice, "emergency stop", ts)
	}
	s.setState(StateEmergencyStopped)
	metrics.EmergencyStopsTotal.Inc()
	s.log.Error().Str("reason", reason).Msg("emergency stop")
	s.notify(Event{Kind: EventEmergencyStop, Symbol: s.cfg.Symbol, Detail: reason, Equity: s.ex.Equity(), Ts: ts})
}

// fail handles setup errors: the run never traded, so the report carries the
// untouched balances.
func (s *Simulator) fail(err error) {
	s.setState(StateEmergencyStopped)
	metrics.EmergencyStopsTotal.Inc()
	s.log.Error().Err(err).Msg("initialization failed")
	s.notify(Event{Kind: EventEmergencyStop, Symbol: s.cfg.Symbol, Detail: err.Error(), Equity: s.ex.Equity(), Ts: time.Now()})
	s.finish(true)
}

// finish builds the report, stores it and pushes it to the sink. Waits for
// in-flight notifications so callers observe a quiescent simulator.
func (s *Simulator) finish(stopped bool) Report {
	initial := s.ex.StartingCash()
	final := s.ex.Equity()
	trades, wins, losses, avgPnL := tradeStats(s.ex.Fills())
	rep := Report{
		InitialBalance: initial,
		FinalBalance:   final,
		TotalPnL:       final - initial,
		OrdersCount:    len(s.ex.Orders()),
		TradesCount:    trades,
		WinningTrades:  wins,
		LosingTrades:   losses,
		AvgTradePnL:    avgPnL,
		MaxDrawdown:    s.curve.MaxDrawdown(),
		EmergencyStop:  stopped,
	}
	if initial > 0 {
		rep.TotalReturnPct = (final - initial) / initial * 100
	}
	if trades > 0 {
		rep.WinRate = float64(wins) / float64(trades)
	}
	if s.strat.Strategy != nil {
		rep.StrategyName = s.strat.Strategy.Name()
	}
	s.mu.Lock()
	s.report = rep
	s.mu.Unlock()
	if s.sink != nil {
		s.sink.OnReport(rep)
	}
	s.notifyWG.Wait()
	return rep
}

func (s *Simulator) record(fill exchange.Fill) {
	if s.recorder != nil {
		s.recorder.Record(fill)
	}
}

// notify dispatches asynchronously; a failing notifier is logged and ignored.
func (s *Simulator) notify(ev Event) {
	if s.notifier == nil {
		return
	}
	s.notifyWG.Add(1)
	go func() {
		defer s.notifyWG.Done()
		if err := s.notifier.Notify(ev); err != nil {
			s.log.Warn().Err(err).Str("event", string(ev.Kind)).Msg("notify failed")
		}
	}()
}

func day(ts time.Time) time.Time {
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, ts.Location())
}
