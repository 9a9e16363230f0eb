// Package matching implements the OrderMatcher: given an
// active order and the book, it finds a crossing candidate and produces
// DeferedEvents describing the trade instead of mutating book or order
// state directly. Applying those events is the processor's job, which
// keeps matching itself side-effect-free and replayable inside a
// transaction.
package matching

import (
	"github.com/rishav/order-matching-engine/internal/orderbook"
	"github.com/rishav/order-matching-engine/internal/orders"
	"github.com/shopspring/decimal"
)

// DeferedEvent is one of ExecutionDeferedEvent, MatchOrderDeferedEvent, or
// CancelOrderDeferedEvent. Defered events are queued on the
// processor and run in FIFO after the primary transaction commits; each may
// produce its own transaction.
type DeferedEvent interface {
	deferedEvent()
}

// ExecutionDeferedEvent carries one or more trades resulting from a match
// against baseOrder.
type ExecutionDeferedEvent struct {
	BaseOrder *orders.Order
	Trades    []orders.Fill
}

func (ExecutionDeferedEvent) deferedEvent() {}

// MatchOrderDeferedEvent requests that matching continue for order after
// the current trade settles: active order still has leaves after this
// trade.
type MatchOrderDeferedEvent struct {
	Order *orders.Order
}

func (MatchOrderDeferedEvent) deferedEvent() {}

// CancelOrderDeferedEvent requests the order be cancelled with reason,
// e.g. a MARKET order that found no resting liquidity.
type CancelOrderDeferedEvent struct {
	Order  *orders.Order
	Reason string
}

func (CancelOrderDeferedEvent) deferedEvent() {}

// Engine matches one active order against a Book at a time. It holds no
// mutable state of its own beyond the book handle it was constructed with:
// matching is a pure function of current book contents.
type Engine struct {
	book *orderbook.Book
}

// New constructs an Engine against book.
func New(book *orderbook.Book) *Engine {
	return &Engine{book: book}
}

// Match runs algorithm for active against the opposite side of
// its instrument's book, returning the DeferedEvents it produced.
func (e *Engine) Match(active *orders.Order) ([]DeferedEvent, error) {
	oppositeSide := active.Side.Opposite()

	candidate, err := e.book.Find(active.Symbol, oppositeSide, func(c *orders.Order) (matched bool, stop bool) {
		if c.LeavesQty.Sign() <= 0 {
			return false, false
		}
		if active.OrdType == orders.OrdTypeMarket || c.OrdType == orders.OrdTypeMarket {
			return true, false
		}
		if !crosses(active, c) {
			return false, true
		}
		return true, false
	})
	if err != nil {
		return nil, err
	}

	if candidate == nil {
		if active.OrdType == orders.OrdTypeMarket {
			return []DeferedEvent{CancelOrderDeferedEvent{Order: active, Reason: "no market"}}, nil
		}
		return nil, nil
	}

	tradeQty := decimal.Min(active.LeavesQty, candidate.LeavesQty)
	tradePx := candidate.Price

	events := []DeferedEvent{
		ExecutionDeferedEvent{
			BaseOrder: active,
			Trades: []orders.Fill{{
				Active:    active,
				Candidate: candidate,
				TradeQty:  tradeQty,
				TradePx:   tradePx,
			}},
		},
	}

	if active.LeavesQty.GreaterThan(tradeQty) {
		events = append(events, MatchOrderDeferedEvent{Order: active})
	}

	return events, nil
}

// crosses reports whether buyer and seller prices cross: buyer price >=
// seller price.
func crosses(active, candidate *orders.Order) bool {
	var buyPx, sellPx decimal.Decimal
	if active.Side == orders.SideBuy {
		buyPx, sellPx = active.Price, candidate.Price
	} else {
		buyPx, sellPx = candidate.Price, active.Price
	}
	return buyPx.GreaterThanOrEqual(sellPx)
}

// CanFillEntirely reports whether the book currently holds enough opposite
// side liquidity at crossing prices to fill active's leaves quantity
// entirely, without applying any trade. No caller in this module uses it.
func (e *Engine) CanFillEntirely(active *orders.Order) (bool, error) {
	oppositeSide := active.Side.Opposite()
	matches, err := e.book.FindAll(active.Symbol, oppositeSide, func(c *orders.Order) (matched bool, stop bool) {
		if c.LeavesQty.Sign() <= 0 {
			return false, false
		}
		if active.OrdType == orders.OrdTypeMarket || c.OrdType == orders.OrdTypeMarket {
			return true, false
		}
		if !crosses(active, c) {
			return false, true
		}
		return true, false
	})
	if err != nil {
		return false, err
	}

	available := decimal.Zero
	for _, m := range matches {
		available = available.Add(m.LeavesQty)
		if available.GreaterThanOrEqual(active.LeavesQty) {
			return true, nil
		}
	}
	return false, nil
}
