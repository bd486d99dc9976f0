// Package signal standardizes the directional decisions shared between strategies and the trading layers.
package signal

// Signal expresses a per-bar trading bias produced by a strategy implementation.
type Signal int8

const (
	// Sell is a short bias (exit long / open short).
	Sell Signal = -1
	// Hold means no directional opinion.
	Hold Signal = 0
	// Buy is a long bias (open long / exit short).
	Buy Signal = 1
)

// String renders the signal for logs and reports.
func (s Signal) String() string {
	switch {
	case s > 0:
		return "buy"
	case s < 0:
		return "sell"
	default:
		return "hold"
	}
}
