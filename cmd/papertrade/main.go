// Binary papertrade runs a full paper-trading session: strategy selection over
// synthetic history, then a stepped simulation with risk guard rails, ending
// in a JSON report on stdout.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"tradesim-go/internal/backtest"
	"tradesim-go/internal/config"
	"tradesim-go/internal/exchange"
	"tradesim-go/internal/metrics"
	"tradesim-go/internal/orchestrator"
	"tradesim-go/internal/paper"
	"tradesim-go/internal/risk"
	"tradesim-go/internal/series"
	"tradesim-go/internal/util"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "papertrade: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load() // best-effort

	cfgPath := flag.String("config", defaultConfigPath(), "path to the YAML configuration")
	days := flag.Int("days", 0, "override the configured session length")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	if *days > 0 {
		cfg.Paper.Days = *days
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := util.NewLogger(cfg.App.LogLevel, cfg.App.PrettyLog)

	if cfg.App.MetricsAddr != "" {
		_ = metrics.Serve(cfg.App.MetricsAddr)
		log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")
	}

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	strategies, err := cfg.Strategies()
	if err != nil {
		return err
	}
	engine := backtest.NewEngine(cfg.Backtest.Annualization, cfg.Backtest.AllowShorts)
	orch := orchestrator.New(strategies, engine, util.Component(log, "orchestrator"))
	source := series.NewSyntheticSource(cfg.Data.StartPrice, cfg.Data.Volatility, cfg.Data.Seed)
	ex := exchange.New(cfg.Exchange.StartingCash, cfg.Exchange.CommissionRate, cfg.Exchange.AllowShorts, util.Component(log, "exchange"))
	mgr, err := risk.NewManager(cfg.Risk)
	if err != nil {
		return err
	}

	opts := []paper.Option{
		paper.WithNotifier(paper.LogNotifier{Log: util.Component(log, "alerts")}),
	}
	if cfg.Paper.FillsPath != "" {
		recorder, err := paper.NewJSONLRecorder(cfg.Paper.FillsPath)
		if err != nil {
			return fmt.Errorf("open fills recorder: %w", err)
		}
		defer recorder.Close()
		opts = append(opts, paper.WithRecorder(recorder))
	}

	sim, err := paper.NewSimulator(paper.Config{
		Symbol:   cfg.Paper.Symbol,
		Days:     cfg.Paper.Days,
		History:  cfg.Paper.HistoryBars,
		Quantity: cfg.Paper.Quantity,
	}, source, orch, ex, mgr, util.Component(log, "simulator"), opts...)
	if err != nil {
		return err
	}

	report, runErr := sim.Run(ctx)
	if runErr != nil && !errors.Is(runErr, risk.ErrLimitBreach) && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	if runErr != nil {
		log.Warn().Err(runErr).Str("state", sim.State().String()).Msg("session ended early")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	log.Info().
		Str("state", sim.State().String()).
		Float64("final_balance", report.FinalBalance).
		Int("trades", report.TradesCount).
		Msg("session complete")
	return nil
}

func defaultConfigPath() string {
	if p := os.Getenv("TRADESIM_CONFIG"); p != "" {
		return p
	}
	return "internal/config/config.yaml"
}
