package paper

import (
	"time"

	"tradesim-go/internal/exchange"
)

// EquitySample is one point on the equity curve.
type EquitySample struct {
	Ts     time.Time
	Equity float64
}

// EquityCurve is append-only for the duration of one run.
type EquityCurve []EquitySample

// Append adds a sample.
func (c *EquityCurve) Append(ts time.Time, equity float64) {
	*c = append(*c, EquitySample{Ts: ts, Equity: equity})
}

// MaxDrawdown returns the deepest peak-to-trough decline as a non-positive
// fraction; zero for a monotonically non-decreasing curve.
func (c EquityCurve) MaxDrawdown() float64 {
	var peak, maxDD float64
	for i, s := range c {
		if i == 0 || s.Equity > peak {
			peak = s.Equity
		}
		if peak > 0 {
			if dd := (s.Equity - peak) / peak; dd < maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// Report summarizes one completed simulation run. Produced once, read-only
// afterward.
type Report struct {
	InitialBalance float64 `json:"initial_balance"`
	FinalBalance   float64 `json:"final_balance"`
	TotalPnL       float64 `json:"total_pnl"`
	TotalReturnPct float64 `json:"total_return_pct"`
	OrdersCount    int     `json:"orders_count"`
	TradesCount    int     `json:"trades_count"`
	WinningTrades  int     `json:"winning_trades"`
	LosingTrades   int     `json:"losing_trades"`
	WinRate        float64 `json:"win_rate"`
	AvgTradePnL    float64 `json:"avg_trade_pnl"`
	MaxDrawdown    float64 `json:"max_drawdown"`
	StrategyName   string  `json:"strategy_name"`
	EmergencyStop  bool    `json:"emergency_stop"`
}

// ReportSink receives the final report of a run. It is the push interface the
// persistence/UI collaborator implements.
type ReportSink interface {
	OnReport(Report)
}

// tradeStats pairs fills into completed round trips: every closing fill ends
// exactly one trade in the single-position model. Zero-PnL closes count as
// losses, matching the win-rate convention elsewhere in the reports.
func tradeStats(fills []exchange.Fill) (trades, wins, losses int, avgPnL float64) {
	var total float64
	for _, f := range fills {
		if !f.Closing {
			continue
		}
		trades++
		total += f.Realized
		if f.Realized > 0 {
			wins++
		} else {
			losses++
		}
	}
	if trades > 0 {
		avgPnL = total / float64(trades)
	}
	return trades, wins, losses, avgPnL
}
