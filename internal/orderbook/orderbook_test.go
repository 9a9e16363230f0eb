package orderbook

import (
	"errors"
	"testing"

	"github.com/rishav/order-matching-engine/internal/id"
	"github.com/rishav/order-matching-engine/internal/orders"
	"github.com/shopspring/decimal"
)

func newLimit(orderID uint64, side orders.Side, price int64, qty int64) *orders.Order {
	return &orders.Order{
		OrderID:   id.Id{Counter: orderID, Date: 1},
		Side:      side,
		OrdType:   orders.OrdTypeLimit,
		Price:     decimal.NewFromInt(price),
		OrderQty:  decimal.NewFromInt(qty),
		LeavesQty: decimal.NewFromInt(qty),
		CumQty:    decimal.Zero,
		Symbol:    "AAPL",
		Status:    orders.StatusNew,
	}
}

func TestBook_AddAndTop(t *testing.T) {
	b := New(nil)
	b.RegisterInstrument("AAPL")

	low := newLimit(1, orders.SideBuy, 10, 5)
	high := newLimit(2, orders.SideBuy, 11, 5)
	if err := b.Add(low); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.Add(high); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	top, err := b.Top("AAPL", orders.SideBuy)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !top.Price.Equal(decimal.NewFromInt(11)) {
		t.Fatalf("expected best bid 11, got %s", top.Price)
	}
}

func TestBook_PriceTimePriority(t *testing.T) {
	b := New(nil)
	b.RegisterInstrument("AAPL")

	first := newLimit(1, orders.SideSell, 10, 5)
	second := newLimit(2, orders.SideSell, 10, 5)
	if err := b.Add(first); err != nil {
		t.Fatal(err)
	}
	if err := b.Add(second); err != nil {
		t.Fatal(err)
	}

	top, err := b.Top("AAPL", orders.SideSell)
	if err != nil {
		t.Fatal(err)
	}
	if !top.OrderID.Equal(first.OrderID) {
		t.Fatalf("expected earliest order to have priority, got %v", top.OrderID)
	}
}

func TestBook_RemoveNotInBook(t *testing.T) {
	b := New(nil)
	b.RegisterInstrument("AAPL")

	_, err := b.Remove("AAPL", id.Id{Counter: 999, Date: 1})
	if !errors.Is(err, ErrOrderNotInBook) {
		t.Fatalf("expected ErrOrderNotInBook, got %v", err)
	}
}

func TestBook_UnregisteredInstrument(t *testing.T) {
	b := New(nil)
	_, err := b.Top("UNKNOWN", orders.SideBuy)
	if !errors.Is(err, ErrInstrumentNotRegistered) {
		t.Fatalf("expected ErrInstrumentNotRegistered, got %v", err)
	}
}

func TestBook_FindStopsAtFirstMatch(t *testing.T) {
	b := New(nil)
	b.RegisterInstrument("AAPL")

	if err := b.Add(newLimit(1, orders.SideSell, 10, 5)); err != nil {
		t.Fatal(err)
	}
	if err := b.Add(newLimit(2, orders.SideSell, 12, 5)); err != nil {
		t.Fatal(err)
	}

	buyerPrice := decimal.NewFromInt(10)
	scanned := 0
	found, err := b.Find("AAPL", orders.SideSell, func(candidate *orders.Order) (bool, bool) {
		scanned++
		if buyerPrice.GreaterThanOrEqual(candidate.Price) {
			return true, false
		}
		return false, true
	})
	if err != nil {
		t.Fatal(err)
	}
	if found == nil || !found.Price.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected match at price 10, got %v", found)
	}
	if scanned != 1 {
		t.Fatalf("expected scan to stop after first candidate, scanned %d", scanned)
	}
}

func TestBook_Snapshot(t *testing.T) {
	b := New(nil)
	b.RegisterInstrument("AAPL")
	if err := b.Add(newLimit(1, orders.SideBuy, 10, 5)); err != nil {
		t.Fatal(err)
	}
	if err := b.Add(newLimit(2, orders.SideBuy, 10, 3)); err != nil {
		t.Fatal(err)
	}

	snap, err := b.Snapshot("AAPL")
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Bids) != 1 {
		t.Fatalf("expected 1 bid level, got %d", len(snap.Bids))
	}
	if !snap.Bids[0].TotalLeaves.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("expected aggregated qty 8, got %s", snap.Bids[0].TotalLeaves)
	}
	if snap.Bids[0].OrderCount != 2 {
		t.Fatalf("expected 2 orders at level, got %d", snap.Bids[0].OrderCount)
	}
}

func TestBook_RemoveEmptiesPriceLevel(t *testing.T) {
	b := New(nil)
	b.RegisterInstrument("AAPL")
	order := newLimit(1, orders.SideBuy, 10, 5)
	if err := b.Add(order); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Remove("AAPL", order.OrderID); err != nil {
		t.Fatal(err)
	}
	top, err := b.Top("AAPL", orders.SideBuy)
	if err != nil {
		t.Fatal(err)
	}
	if top != nil {
		t.Fatalf("expected empty book after removing only order, got %v", top)
	}
}
