package exchange

import (
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"
)

func newTestExchange(cash float64, allowShorts bool) *Exchange {
	return New(cash, 0, allowShorts, zerolog.Nop())
}

func TestLongRoundTripPnL(t *testing.T) {
	ex := newTestExchange(10000, false)
	ex.SetPrice("BTC/USD", 100)

	if _, err := ex.PlaceOrder(Order{Symbol: "BTC/USD", Side: Buy, Qty: 2, Type: Market}); err != nil {
		t.Fatalf("open long: %v", err)
	}
	ex.SetPrice("BTC/USD", 120)
	fill, err := ex.PlaceOrder(Order{Symbol: "BTC/USD", Side: Sell, Qty: 2, Type: Market})
	if err != nil {
		t.Fatalf("close long: %v", err)
	}

	if math.Abs(fill.Realized-40) > 1e-9 {
		t.Fatalf("expected realized (120-100)*2 = 40, got %v", fill.Realized)
	}
	if math.Abs(ex.RealizedPnL()-40) > 1e-9 {
		t.Fatalf("expected realized pnl 40, got %v", ex.RealizedPnL())
	}
	if math.Abs(ex.Balance()-10040) > 1e-9 {
		t.Fatalf("expected cash 10040, got %v", ex.Balance())
	}
	if _, open := ex.Position("BTC/USD"); open {
		t.Fatalf("position should be destroyed when fully closed")
	}
}

func TestShortRoundTripPnL(t *testing.T) {
	ex := newTestExchange(10000, true)
	ex.SetPrice("BTC/USD", 100)

	if _, err := ex.PlaceOrder(Order{Symbol: "BTC/USD", Side: Sell, Qty: 2, Type: Market}); err != nil {
		t.Fatalf("open short: %v", err)
	}
	pos, open := ex.Position("BTC/USD")
	if !open || pos.Side != Short {
		t.Fatalf("expected open short, got %+v open=%v", pos, open)
	}

	ex.SetPrice("BTC/USD", 80)
	fill, err := ex.PlaceOrder(Order{Symbol: "BTC/USD", Side: Buy, Qty: 2, Type: Market})
	if err != nil {
		t.Fatalf("cover short: %v", err)
	}
	if math.Abs(fill.Realized-40) > 1e-9 {
		t.Fatalf("expected realized (100-80)*2 = 40, got %v", fill.Realized)
	}
	if math.Abs(ex.Balance()-10040) > 1e-9 {
		t.Fatalf("expected cash 10040 after covering, got %v", ex.Balance())
	}
}

func TestSellWhileFlatRejectedWithoutShorting(t *testing.T) {
	ex := newTestExchange(10000, false)
	ex.SetPrice("BTC/USD", 100)
	if _, err := ex.PlaceOrder(Order{Symbol: "BTC/USD", Side: Sell, Qty: 1, Type: Market}); !errors.Is(err, ErrRejected) {
		t.Fatalf("expected rejection when shorting disabled, got %v", err)
	}
	if ex.Balance() != 10000 {
		t.Fatalf("rejection must not touch the balance")
	}
	orders := ex.Orders()
	if len(orders) != 1 || orders[0].Status != Rejected {
		t.Fatalf("rejected order should be recorded with terminal status, got %+v", orders)
	}
}

func TestRejections(t *testing.T) {
	ex := newTestExchange(100, false)
	ex.SetPrice("BTC/USD", 100)

	if _, err := ex.PlaceOrder(Order{Symbol: "BTC/USD", Side: Buy, Qty: 0, Type: Market}); !errors.Is(err, ErrRejected) {
		t.Fatalf("expected rejection for zero quantity, got %v", err)
	}
	if _, err := ex.PlaceOrder(Order{Symbol: "DOGE/USD", Side: Buy, Qty: 1, Type: Market}); !errors.Is(err, ErrRejected) {
		t.Fatalf("expected rejection for unknown symbol, got %v", err)
	}
	if _, err := ex.PlaceOrder(Order{Symbol: "BTC/USD", Side: Buy, Qty: 5, Type: Market}); !errors.Is(err, ErrRejected) {
		t.Fatalf("expected rejection for insufficient balance, got %v", err)
	}
	if ex.Balance() != 100 {
		t.Fatalf("no rejection may partially apply, balance drifted to %v", ex.Balance())
	}
}

func TestLimitOrderFillCondition(t *testing.T) {
	ex := newTestExchange(10000, false)
	ex.SetPrice("BTC/USD", 100)

	// Buy limit below market cannot fill in the simplified model.
	if _, err := ex.PlaceOrder(Order{Symbol: "BTC/USD", Side: Buy, Qty: 1, Type: Limit, LimitPrice: 95}); !errors.Is(err, ErrRejected) {
		t.Fatalf("expected buy limit below market to reject, got %v", err)
	}
	// Buy limit at or above market fills at the market price.
	fill, err := ex.PlaceOrder(Order{Symbol: "BTC/USD", Side: Buy, Qty: 1, Type: Limit, LimitPrice: 105})
	if err != nil {
		t.Fatalf("marketable buy limit should fill: %v", err)
	}
	if fill.Price != 100 {
		t.Fatalf("limit fills at the current price, got %v", fill.Price)
	}
}

func TestCommissionDeductedFromCash(t *testing.T) {
	ex := New(10000, 0.001, false, zerolog.Nop())
	ex.SetPrice("BTC/USD", 100)

	if _, err := ex.PlaceOrder(Order{Symbol: "BTC/USD", Side: Buy, Qty: 10, Type: Market}); err != nil {
		t.Fatalf("buy: %v", err)
	}
	// 10000 - 1000 notional - 1 fee
	if math.Abs(ex.Balance()-8999) > 1e-9 {
		t.Fatalf("expected cash 8999 after fee, got %v", ex.Balance())
	}
	ex.SetPrice("BTC/USD", 100)
	if _, err := ex.PlaceOrder(Order{Symbol: "BTC/USD", Side: Sell, Qty: 10, Type: Market}); err != nil {
		t.Fatalf("sell: %v", err)
	}
	if math.Abs(ex.Balance()-9998) > 1e-9 {
		t.Fatalf("expected cash 9998 after round trip fees, got %v", ex.Balance())
	}
	// Fees hit cash, not the realized pnl figure.
	if ex.RealizedPnL() != 0 {
		t.Fatalf("flat round trip should realize zero, got %v", ex.RealizedPnL())
	}
}

func TestUnrealizedAndTotalPnL(t *testing.T) {
	ex := newTestExchange(10000, false)
	ex.SetPrice("BTC/USD", 100)
	if _, err := ex.PlaceOrder(Order{Symbol: "BTC/USD", Side: Buy, Qty: 2, Type: Market}); err != nil {
		t.Fatalf("buy: %v", err)
	}

	ex.SetPrice("BTC/USD", 110)
	if math.Abs(ex.UnrealizedPnL()-20) > 1e-9 {
		t.Fatalf("expected unrealized 20, got %v", ex.UnrealizedPnL())
	}
	if math.Abs(ex.TotalPnL()-20) > 1e-9 {
		t.Fatalf("expected total pnl 20, got %v", ex.TotalPnL())
	}
	// Marking must not mutate state: a second read agrees.
	if math.Abs(ex.UnrealizedPnL()-20) > 1e-9 {
		t.Fatalf("unrealized pnl changed on re-read")
	}
	if math.Abs(ex.Equity()-10020) > 1e-9 {
		t.Fatalf("expected equity 10020, got %v", ex.Equity())
	}
}

func TestAveragingIntoLong(t *testing.T) {
	ex := newTestExchange(10000, false)
	ex.SetPrice("BTC/USD", 100)
	if _, err := ex.PlaceOrder(Order{Symbol: "BTC/USD", Side: Buy, Qty: 1, Type: Market}); err != nil {
		t.Fatalf("first buy: %v", err)
	}
	ex.SetPrice("BTC/USD", 110)
	if _, err := ex.PlaceOrder(Order{Symbol: "BTC/USD", Side: Buy, Qty: 1, Type: Market}); err != nil {
		t.Fatalf("second buy: %v", err)
	}
	pos, _ := ex.Position("BTC/USD")
	if math.Abs(pos.EntryPrice-105) > 1e-9 || math.Abs(pos.Qty-2) > 1e-9 {
		t.Fatalf("expected avg entry 105 qty 2, got %+v", pos)
	}
}

func TestPartialClose(t *testing.T) {
	ex := newTestExchange(10000, false)
	ex.SetPrice("BTC/USD", 100)
	if _, err := ex.PlaceOrder(Order{Symbol: "BTC/USD", Side: Buy, Qty: 4, Type: Market}); err != nil {
		t.Fatalf("buy: %v", err)
	}
	ex.SetPrice("BTC/USD", 110)
	fill, err := ex.PlaceOrder(Order{Symbol: "BTC/USD", Side: Sell, Qty: 1, Type: Market})
	if err != nil {
		t.Fatalf("partial sell: %v", err)
	}
	if math.Abs(fill.Realized-10) > 1e-9 {
		t.Fatalf("expected realized 10 on partial close, got %v", fill.Realized)
	}
	pos, open := ex.Position("BTC/USD")
	if !open || math.Abs(pos.Qty-3) > 1e-9 {
		t.Fatalf("expected remaining qty 3, got %+v open=%v", pos, open)
	}
}
