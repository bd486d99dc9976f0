// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"tradesim-go/internal/risk"
	"tradesim-go/internal/strategy"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
	PrettyLog   bool   `yaml:"pretty_log"`
}

// Data configures the synthetic market data generator.
type Data struct {
	StartPrice float64 `yaml:"start_price"`
	Volatility float64 `yaml:"volatility"`
	Seed       int64   `yaml:"seed"`
}

// Strategy lists the competing modes and their shared parameter bundle.
// An empty Modes slice enters the full roster.
type Strategy struct {
	Modes  []string        `yaml:"modes"`
	Params strategy.Params `yaml:"params"`
}

// Backtest tunes the evaluation engine.
type Backtest struct {
	Annualization float64 `yaml:"annualization"`
	AllowShorts   bool    `yaml:"allow_shorts"`
}

// Exchange describes the simulated exchange account.
type Exchange struct {
	StartingCash   float64 `yaml:"starting_cash"`
	CommissionRate float64 `yaml:"commission_rate"`
	AllowShorts    bool    `yaml:"allow_shorts"`
}

// Paper shapes a paper-trading session.
type Paper struct {
	Symbol      string  `yaml:"symbol"`
	Days        int     `yaml:"days"`
	HistoryBars int     `yaml:"history_bars"`
	Quantity    float64 `yaml:"quantity"`
	FillsPath   string  `yaml:"fills_path"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App      App         `yaml:"app"`
	Data     Data        `yaml:"data"`
	Strategy Strategy    `yaml:"strategy"`
	Backtest Backtest    `yaml:"backtest"`
	Exchange Exchange    `yaml:"exchange"`
	Risk     risk.Limits `yaml:"risk"`
	Paper    Paper       `yaml:"paper"`
}

// Load reads a YAML file from disk and hydrates a Config struct.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate rejects configurations that cannot produce a runnable session.
func (c *Config) Validate() error {
	if c.Exchange.StartingCash <= 0 {
		return fmt.Errorf("exchange.starting_cash must be positive, got %.2f", c.Exchange.StartingCash)
	}
	if c.Exchange.CommissionRate < 0 {
		return fmt.Errorf("exchange.commission_rate must not be negative, got %.4f", c.Exchange.CommissionRate)
	}
	if c.Paper.Symbol == "" {
		return fmt.Errorf("paper.symbol is required")
	}
	if c.Paper.Days <= 0 {
		return fmt.Errorf("paper.days must be positive, got %d", c.Paper.Days)
	}
	if err := c.Risk.Validate(); err != nil {
		return fmt.Errorf("risk: %w", err)
	}
	for _, mode := range c.Strategy.Modes {
		if _, err := strategy.Build(mode, c.Strategy.Params); err != nil {
			return fmt.Errorf("strategy %q: %w", mode, err)
		}
	}
	return nil
}

// Strategies builds the configured roster in declaration order, or the full
// roster when no modes are listed.
func (c *Config) Strategies() ([]strategy.Strategy, error) {
	if len(c.Strategy.Modes) == 0 {
		return strategy.BuildAll(c.Strategy.Params)
	}
	out := make([]strategy.Strategy, 0, len(c.Strategy.Modes))
	for _, mode := range c.Strategy.Modes {
		s, err := strategy.Build(mode, c.Strategy.Params)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
