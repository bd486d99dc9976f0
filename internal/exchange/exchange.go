// Package exchange implements the simulated venue paper runs execute against.
package exchange

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tradesim-go/internal/metrics"
)

// ErrRejected wraps every order rejection reason. A rejected order never
// partially applies: balance and positions are untouched.
var ErrRejected = errors.New("order rejected")

// Side enumerates order directions.
type Side string

const (
	// Buy opens or adds to a long, or closes a short.
	Buy Side = "buy"
	// Sell closes a long, or opens a short when shorting is enabled.
	Sell Side = "sell"
)

// OrderType selects the fill rule.
type OrderType string

const (
	// Market fills immediately at the current price.
	Market OrderType = "market"
	// Limit fills only if the current price satisfies the limit, else rejects.
	Limit OrderType = "limit"
)

// Status is the terminal state the exchange assigns to an order.
type Status string

const (
	// Filled means the order executed in full.
	Filled Status = "filled"
	// Rejected means the order did not execute at all.
	Rejected Status = "rejected"
)

// Order is a placement request. Immutable once submitted; the exchange only
// stamps ID and Status.
type Order struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"`
	Qty        float64   `json:"qty"`
	Type       OrderType `json:"type"`
	LimitPrice float64   `json:"limit_price,omitempty"`
	Status     Status    `json:"status"`
	Ts         time.Time `json:"ts"`
}

// Fill records an execution. Realized is the PnL booked by the fill when it
// closes exposure; Closing distinguishes a flat close from an opening fill.
type Fill struct {
	OrderID  string    `json:"order_id"`
	Symbol   string    `json:"symbol"`
	Side     Side      `json:"side"`
	Qty      float64   `json:"qty"`
	Price    float64   `json:"price"`
	Fee      float64   `json:"fee"`
	Realized float64   `json:"realized"`
	Closing  bool      `json:"closing"`
	Ts       time.Time `json:"ts"`
}

// PositionSide tags the direction of an open position.
type PositionSide string

const (
	// Long positions profit when price rises.
	Long PositionSide = "long"
	// Short positions profit when price falls.
	Short PositionSide = "short"
)

// Position is owned exclusively by the exchange and mutated only via fills.
type Position struct {
	Symbol     string
	Side       PositionSide
	Qty        float64
	EntryPrice float64
	// StopLoss and TakeProfit record the exit levels set at entry; zero
	// means unset. The simulator manages them each step.
	StopLoss   float64
	TakeProfit float64
}

const epsilon = 1e-9

// Exchange keeps one cash balance and a symbol -> position map. All mutations
// go through the mutex: fills apply atomically relative to balance and
// position reads (single-writer discipline per run).
type Exchange struct {
	mu           sync.Mutex
	startingCash float64
	cash         float64
	commission   float64
	allowShorts  bool
	positions    map[string]*Position
	orders       []Order
	fills        []Fill
	realized     float64
	prices       map[string]float64
	orderSeq     int
	log          zerolog.Logger
}

// New builds an exchange with the given bankroll, per-fill commission rate
// (fraction of notional) and shorting flag.
func New(startingCash, commissionRate float64, allowShorts bool, log zerolog.Logger) *Exchange {
	return &Exchange{
		startingCash: startingCash,
		cash:         startingCash,
		commission:   commissionRate,
		allowShorts:  allowShorts,
		positions:    make(map[string]*Position),
		prices:       make(map[string]float64),
		log:          log,
	}
}

// SetPrice updates the last known price used for fills and marks.
func (e *Exchange) SetPrice(symbol string, price float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.prices[symbol] = price
}

// PlaceOrder validates, fills or rejects the order, and records it either
// way. Market orders fill at the last set price; limit orders fill only when
// that price satisfies the limit condition (buy at or under, sell at or over).
func (e *Exchange) PlaceOrder(o Order) (Fill, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.orderSeq++
	o.ID = fmt.Sprintf("ord-%d", e.orderSeq)
	if o.Ts.IsZero() {
		o.Ts = time.Now().UTC()
	}

	fill, err := e.tryFill(o)
	if err != nil {
		o.Status = Rejected
		e.orders = append(e.orders, o)
		metrics.RejectionsTotal.WithLabelValues(o.Symbol, string(o.Side)).Inc()
		e.log.Warn().Str("id", o.ID).Str("sym", o.Symbol).Str("side", string(o.Side)).
			Float64("qty", o.Qty).Err(err).Msg("order rejected")
		return Fill{}, err
	}

	o.Status = Filled
	e.orders = append(e.orders, o)
	e.fills = append(e.fills, fill)
	metrics.OrdersTotal.WithLabelValues(o.Symbol, string(o.Side)).Inc()
	e.log.Info().Str("id", o.ID).Str("sym", o.Symbol).Str("side", string(o.Side)).
		Float64("qty", o.Qty).Float64("px", fill.Price).Float64("realized", fill.Realized).
		Msg("order filled")
	return fill, nil
}

func (e *Exchange) tryFill(o Order) (Fill, error) {
	if o.Qty <= 0 {
		return Fill{}, fmt.Errorf("%w: quantity must be positive", ErrRejected)
	}
	price, ok := e.prices[o.Symbol]
	if !ok || price <= 0 {
		return Fill{}, fmt.Errorf("%w: unknown symbol %s", ErrRejected, o.Symbol)
	}
	switch o.Type {
	case Limit:
		if o.LimitPrice <= 0 {
			return Fill{}, fmt.Errorf("%w: limit order without limit price", ErrRejected)
		}
		if o.Side == Buy && price > o.LimitPrice {
			return Fill{}, fmt.Errorf("%w: buy limit %.4f below market %.4f", ErrRejected, o.LimitPrice, price)
		}
		if o.Side == Sell && price < o.LimitPrice {
			return Fill{}, fmt.Errorf("%w: sell limit %.4f above market %.4f", ErrRejected, o.LimitPrice, price)
		}
	case Market, "":
		// fills at the current price
	default:
		return Fill{}, fmt.Errorf("%w: unsupported order type %q", ErrRejected, o.Type)
	}

	switch o.Side {
	case Buy:
		return e.fillBuy(o, price)
	case Sell:
		return e.fillSell(o, price)
	default:
		return Fill{}, fmt.Errorf("%w: unknown side %q", ErrRejected, o.Side)
	}
}

func (e *Exchange) fillBuy(o Order, price float64) (Fill, error) {
	notional := o.Qty * price
	fee := notional * e.commission
	pos := e.positions[o.Symbol]

	// A buy against an open short closes it (no pyramiding past flat).
	if pos != nil && pos.Side == Short {
		if o.Qty > pos.Qty+epsilon {
			return Fill{}, fmt.Errorf("%w: buy %.8f exceeds short position %.8f", ErrRejected, o.Qty, pos.Qty)
		}
		if notional+fee > e.cash+epsilon {
			return Fill{}, fmt.Errorf("%w: insufficient balance to cover short", ErrRejected)
		}
		realized := (pos.EntryPrice - price) * o.Qty
		e.realized += realized
		e.cash -= notional + fee
		pos.Qty -= o.Qty
		if pos.Qty <= epsilon {
			delete(e.positions, o.Symbol)
		}
		return e.mkFill(o, price, fee, realized, true), nil
	}

	if notional+fee > e.cash+epsilon {
		return Fill{}, fmt.Errorf("%w: insufficient balance (need %.2f, have %.2f)", ErrRejected, notional+fee, e.cash)
	}
	e.cash -= notional + fee
	if pos == nil {
		e.positions[o.Symbol] = &Position{Symbol: o.Symbol, Side: Long, Qty: o.Qty, EntryPrice: price}
	} else {
		total := pos.Qty + o.Qty
		pos.EntryPrice = (pos.EntryPrice*pos.Qty + notional) / total
		pos.Qty = total
	}
	return e.mkFill(o, price, fee, 0, false), nil
}

func (e *Exchange) fillSell(o Order, price float64) (Fill, error) {
	notional := o.Qty * price
	fee := notional * e.commission
	pos := e.positions[o.Symbol]

	if pos != nil && pos.Side == Long {
		if o.Qty > pos.Qty+epsilon {
			return Fill{}, fmt.Errorf("%w: sell %.8f exceeds long position %.8f", ErrRejected, o.Qty, pos.Qty)
		}
		realized := (price - pos.EntryPrice) * o.Qty
		e.realized += realized
		e.cash += notional - fee
		pos.Qty -= o.Qty
		if pos.Qty <= epsilon {
			delete(e.positions, o.Symbol)
		}
		return e.mkFill(o, price, fee, realized, true), nil
	}

	if !e.allowShorts {
		return Fill{}, fmt.Errorf("%w: shorting disabled and no long position in %s", ErrRejected, o.Symbol)
	}
	// Opening or adding to a short credits the proceeds.
	e.cash += notional - fee
	if pos == nil {
		e.positions[o.Symbol] = &Position{Symbol: o.Symbol, Side: Short, Qty: o.Qty, EntryPrice: price}
	} else {
		total := pos.Qty + o.Qty
		pos.EntryPrice = (pos.EntryPrice*pos.Qty + notional) / total
		pos.Qty = total
	}
	return e.mkFill(o, price, fee, 0, false), nil
}

func (e *Exchange) mkFill(o Order, price, fee, realized float64, closing bool) Fill {
	return Fill{
		OrderID:  o.ID,
		Symbol:   o.Symbol,
		Side:     o.Side,
		Qty:      o.Qty,
		Price:    price,
		Fee:      fee,
		Realized: realized,
		Closing:  closing,
		Ts:       o.Ts,
	}
}

// SetExitLevels stamps stop-loss and take-profit prices on an open position.
func (e *Exchange) SetExitLevels(symbol string, stopLoss, takeProfit float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if pos, ok := e.positions[symbol]; ok {
		pos.StopLoss = stopLoss
		pos.TakeProfit = takeProfit
	}
}

// Position returns a copy of the open position, if any.
func (e *Exchange) Position(symbol string) (Position, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	pos, ok := e.positions[symbol]
	if !ok {
		return Position{}, false
	}
	return *pos, true
}

// Positions returns copies of all open positions.
func (e *Exchange) Positions() []Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Position, 0, len(e.positions))
	for _, pos := range e.positions {
		out = append(out, *pos)
	}
	return out
}

// Balance returns free cash.
func (e *Exchange) Balance() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cash
}

// StartingCash returns the initial bankroll.
func (e *Exchange) StartingCash() float64 { return e.startingCash }

// RealizedPnL returns the running total of closed-trade PnL net of nothing:
// fees are taken from cash, not from this figure.
func (e *Exchange) RealizedPnL() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.realized
}

// UnrealizedPnL marks open positions against the last set prices without
// mutating any state.
func (e *Exchange) UnrealizedPnL() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.unrealizedLocked()
}

func (e *Exchange) unrealizedLocked() float64 {
	var total float64
	for sym, pos := range e.positions {
		mark, ok := e.prices[sym]
		if !ok || mark <= 0 {
			continue
		}
		if pos.Side == Long {
			total += (mark - pos.EntryPrice) * pos.Qty
		} else {
			total += (pos.EntryPrice - mark) * pos.Qty
		}
	}
	return total
}

// TotalPnL is realized plus unrealized.
func (e *Exchange) TotalPnL() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.realized + e.unrealizedLocked()
}

// Equity is cash plus the mark-to-market value of open exposure. Short
// proceeds already sit in cash, so shorts contribute their buyback cost
// negatively.
func (e *Exchange) Equity() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	eq := e.cash
	for sym, pos := range e.positions {
		mark, ok := e.prices[sym]
		if !ok || mark <= 0 {
			mark = pos.EntryPrice
		}
		if pos.Side == Long {
			eq += mark * pos.Qty
		} else {
			eq -= mark * pos.Qty
		}
	}
	return eq
}

// Orders returns a copy of the full order history, rejections included.
func (e *Exchange) Orders() []Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Order, len(e.orders))
	copy(out, e.orders)
	return out
}

// Fills returns a copy of the fill history.
func (e *Exchange) Fills() []Fill {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Fill, len(e.fills))
	copy(out, e.fills)
	return out
}
