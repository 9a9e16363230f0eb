// Package marketdata distributes book snapshots and trade reports to
// subscribers: the data-plane half of outbound distribution, with the
// session/transport half living in sessionbus.
//
// Per-symbol and subscribe-to-everything channel fan-out, non-blocking
// drop-if-full publish (a slow subscriber never backpressures the matching
// engine), and close-on-unsubscribe cleanup. L1/L2 quotes are derived
// straight from orderbook.Snapshot's decimal.Decimal price levels, and
// trade reports use orders.Trade, which the engine builds from each trade
// exec report.
package marketdata

import (
	"sync"

	"github.com/rishav/order-matching-engine/internal/orderbook"
	"github.com/rishav/order-matching-engine/internal/orders"
	"github.com/shopspring/decimal"
)

// L1Quote is the top-of-book view: best bid/ask price and size.
type L1Quote struct {
	Symbol    string
	BidPrice  decimal.Decimal
	BidSize   decimal.Decimal
	AskPrice  decimal.Decimal
	AskSize   decimal.Decimal
	Timestamp int64
}

// L2Depth is the full aggregated-by-price-level view of one instrument's
// book (spec glossary's "book depth"), carried as-is from orderbook.Book.
type L2Depth struct {
	Snapshot  orderbook.Snapshot
	Timestamp int64
}

// Publisher distributes market data to subscribers over buffered
// channels. A slow or absent subscriber never blocks publication: a full
// channel simply drops the update.
type Publisher struct {
	mu sync.RWMutex

	l1Subs       map[string][]chan L1Quote
	l2Subs       map[string][]chan L2Depth
	tradeSubs    map[string][]chan orders.Trade
	allL1Subs    []chan L1Quote
	allTradeSubs []chan orders.Trade

	bufferSize int
}

// NewPublisher constructs a Publisher whose subscriber channels are
// buffered to bufferSize (at least 1; non-positive values fall back to a
// sane default of 100).
func NewPublisher(bufferSize int) *Publisher {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &Publisher{
		l1Subs:     make(map[string][]chan L1Quote),
		l2Subs:     make(map[string][]chan L2Depth),
		tradeSubs:  make(map[string][]chan orders.Trade),
		bufferSize: bufferSize,
	}
}

// SubscribeL1 subscribes to L1 quotes for symbol.
func (p *Publisher) SubscribeL1(symbol string) <-chan L1Quote {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch := make(chan L1Quote, p.bufferSize)
	p.l1Subs[symbol] = append(p.l1Subs[symbol], ch)
	return ch
}

// SubscribeAllL1 subscribes to L1 quotes across every symbol.
func (p *Publisher) SubscribeAllL1() <-chan L1Quote {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch := make(chan L1Quote, p.bufferSize)
	p.allL1Subs = append(p.allL1Subs, ch)
	return ch
}

// SubscribeL2 subscribes to full book depth for symbol.
func (p *Publisher) SubscribeL2(symbol string) <-chan L2Depth {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch := make(chan L2Depth, p.bufferSize)
	p.l2Subs[symbol] = append(p.l2Subs[symbol], ch)
	return ch
}

// SubscribeTrades subscribes to trade reports for symbol.
func (p *Publisher) SubscribeTrades(symbol string) <-chan orders.Trade {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch := make(chan orders.Trade, p.bufferSize)
	p.tradeSubs[symbol] = append(p.tradeSubs[symbol], ch)
	return ch
}

// SubscribeAllTrades subscribes to trade reports across every symbol.
func (p *Publisher) SubscribeAllTrades() <-chan orders.Trade {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch := make(chan orders.Trade, p.bufferSize)
	p.allTradeSubs = append(p.allTradeSubs, ch)
	return ch
}

// PublishSnapshot derives an L1Quote from snap's top bid/ask levels and
// fans out both the L1 quote and the full L2 depth.
func (p *Publisher) PublishSnapshot(snap orderbook.Snapshot, timestamp int64) {
	quote := L1Quote{Symbol: snap.Symbol, Timestamp: timestamp}
	if len(snap.Bids) > 0 {
		quote.BidPrice = snap.Bids[0].Price
		quote.BidSize = snap.Bids[0].TotalLeaves
	}
	if len(snap.Asks) > 0 {
		quote.AskPrice = snap.Asks[0].Price
		quote.AskSize = snap.Asks[0].TotalLeaves
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, ch := range p.l1Subs[snap.Symbol] {
		select {
		case ch <- quote:
		default:
		}
	}
	for _, ch := range p.allL1Subs {
		select {
		case ch <- quote:
		default:
		}
	}
	for _, ch := range p.l2Subs[snap.Symbol] {
		select {
		case ch <- L2Depth{Snapshot: snap, Timestamp: timestamp}:
		default:
		}
	}
}

// PublishTrade fans trade out to symbol-specific and all-trades
// subscribers.
func (p *Publisher) PublishTrade(trade orders.Trade) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, ch := range p.tradeSubs[trade.Symbol] {
		select {
		case ch <- trade:
		default:
		}
	}
	for _, ch := range p.allTradeSubs {
		select {
		case ch <- trade:
		default:
		}
	}
}

// UnsubscribeL1 removes and closes an L1 subscription.
func (p *Publisher) UnsubscribeL1(symbol string, ch <-chan L1Quote) {
	p.mu.Lock()
	defer p.mu.Unlock()
	subs := p.l1Subs[symbol]
	for i, sub := range subs {
		if sub == ch {
			p.l1Subs[symbol] = append(subs[:i], subs[i+1:]...)
			close(sub)
			return
		}
	}
}

// Close closes every subscription channel the publisher has handed out.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, subs := range p.l1Subs {
		for _, ch := range subs {
			close(ch)
		}
	}
	for _, subs := range p.l2Subs {
		for _, ch := range subs {
			close(ch)
		}
	}
	for _, subs := range p.tradeSubs {
		for _, ch := range subs {
			close(ch)
		}
	}
	for _, ch := range p.allL1Subs {
		close(ch)
	}
	for _, ch := range p.allTradeSubs {
		close(ch)
	}
}
