package integration

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tradesim-go/internal/backtest"
	"tradesim-go/internal/exchange"
	"tradesim-go/internal/orchestrator"
	"tradesim-go/internal/paper"
	"tradesim-go/internal/risk"
	"tradesim-go/internal/series"
	"tradesim-go/internal/strategy"
)

// Wires the real components end to end: synthetic data, the full strategy
// roster, deterministic selection, and a complete paper session.
func TestFullSessionFlow(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log := zerolog.Nop()
	strategies, err := strategy.BuildAll(strategy.DefaultParams())
	if err != nil {
		t.Fatalf("BuildAll returned error: %v", err)
	}
	engine := backtest.NewEngine(252, false)
	orch := orchestrator.New(strategies, engine, log)
	source := series.NewSyntheticSource(45000, 0.025, 42)
	ex := exchange.New(10_000, 0.001, false, log)
	mgr, err := risk.NewManager(risk.Limits{
		RiskPerTradePct:   0.02,
		StopLossPct:       0.05,
		TakeProfitPct:     0.10,
		MaxPositionPct:    0.5,
		DailyLossLimitPct: 0.10,
		MaxDrawdownPct:    0.5,
	})
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}

	sink := reportCapture{}
	sim, err := paper.NewSimulator(paper.Config{
		Symbol:  "BTCUSDT",
		Days:    30,
		History: 60,
	}, source, orch, ex, mgr, log, paper.WithReportSink(&sink))
	if err != nil {
		t.Fatalf("NewSimulator returned error: %v", err)
	}

	report, err := sim.Run(ctx)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if sim.State() != paper.StateFinished {
		t.Fatalf("expected finished state, got %v", sim.State())
	}
	if report.StrategyName == "" {
		t.Fatal("expected a selected strategy in the report")
	}
	if report.InitialBalance != 10_000 {
		t.Fatalf("unexpected initial balance: %v", report.InitialBalance)
	}
	if report.OrdersCount < report.TradesCount {
		t.Fatalf("orders %d < trades %d", report.OrdersCount, report.TradesCount)
	}
	if report.WinningTrades+report.LosingTrades != report.TradesCount {
		t.Fatalf("wins+losses %d != trades %d", report.WinningTrades+report.LosingTrades, report.TradesCount)
	}
	if len(sink.reports) != 1 {
		t.Fatalf("sink received %d reports, want 1", len(sink.reports))
	}

	// The same seed selects the same strategy and produces the same report.
	ex2 := exchange.New(10_000, 0.001, false, log)
	sim2, err := paper.NewSimulator(paper.Config{
		Symbol:  "BTCUSDT",
		Days:    30,
		History: 60,
	}, source, orch, ex2, mgr2(t), log)
	if err != nil {
		t.Fatalf("NewSimulator returned error: %v", err)
	}
	report2, err := sim2.Run(ctx)
	if err != nil {
		t.Fatalf("second Run returned error: %v", err)
	}
	if report2 != report {
		t.Fatalf("runs diverged:\n%+v\n%+v", report, report2)
	}
}

func mgr2(t *testing.T) *risk.Manager {
	t.Helper()
	m, err := risk.NewManager(risk.Limits{
		RiskPerTradePct:   0.02,
		StopLossPct:       0.05,
		TakeProfitPct:     0.10,
		MaxPositionPct:    0.5,
		DailyLossLimitPct: 0.10,
		MaxDrawdownPct:    0.5,
	})
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}
	return m
}

type reportCapture struct {
	reports []paper.Report
}

func (c *reportCapture) OnReport(r paper.Report) { c.reports = append(c.reports, r) }
