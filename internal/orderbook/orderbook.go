package orderbook

import (
	"fmt"
	"sync"

	"github.com/rishav/order-matching-engine/internal/id"
	"github.com/rishav/order-matching-engine/internal/orders"
	"github.com/shopspring/decimal"
)

// ErrOrderNotInBook signals a remove() call for an order id the book does
// not hold; a store-invariant violation (treated as a bug,
// triggers rollback, logged at error level).
var ErrOrderNotInBook = fmt.Errorf("orderbook: order not in book")

// ErrInstrumentNotRegistered signals an operation against a symbol that was
// never registered with the book.
var ErrInstrumentNotRegistered = fmt.Errorf("orderbook: instrument not registered")

// SaveFunc is the durable-save callback invoked on add: if one is
// configured, the newly added order is forwarded to it. restore bypasses
// it.
type SaveFunc func(order *orders.Order)

// MatchFunc is the functor OrderMatcher passes to find/findAll.
// It is invoked once per candidate order, in priority order. matched
// selects the candidate; stop halts the scan (used once price no longer
// crosses, since price levels are sorted).
type MatchFunc func(candidate *orders.Order) (matched bool, stop bool)

// DepthLevel is one row of a book snapshot.
type DepthLevel struct {
	Price        decimal.Decimal
	TotalLeaves  decimal.Decimal
	OrderCount   int
}

// Snapshot is the aggregated view of one instrument's book, used for
// session broadcasts.
type Snapshot struct {
	Symbol string
	Bids   []DepthLevel
	Asks   []DepthLevel
}

// ordersGroup is per-instrument state: each side carries its own mutex
//, and the instrument's own orderId->node map gives O(1)
// cancel without touching any other instrument's lock.
type ordersGroup struct {
	bidMu sync.RWMutex
	bids  *RBTree // descending: true (highest price first)

	askMu sync.RWMutex
	asks  *RBTree // descending: false (lowest price first)

	nodesMu sync.RWMutex
	nodes   map[id.Id]*OrderNode
}

func newOrdersGroup() *ordersGroup {
	return &ordersGroup{
		bids:  NewRBTree(true),
		asks:  NewRBTree(false),
		nodes: make(map[id.Id]*OrderNode),
	}
}

func (g *ordersGroup) treeFor(side orders.Side) (*RBTree, *sync.RWMutex) {
	if side == orders.SideBuy {
		return g.bids, &g.bidMu
	}
	return g.asks, &g.askMu
}

// Book is the top-level registry of per-instrument order books.
type Book struct {
	mu     sync.RWMutex
	groups map[string]*ordersGroup
	save   SaveFunc
}

// New constructs an empty Book. save may be nil (used by recovery and tests).
func New(save SaveFunc) *Book {
	return &Book{
		groups: make(map[string]*ordersGroup),
		save:   save,
	}
}

// RegisterInstrument creates the bid/ask side for symbol if absent. Safe to
// call more than once for the same symbol.
func (b *Book) RegisterInstrument(symbol string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.groups[symbol]; !ok {
		b.groups[symbol] = newOrdersGroup()
	}
}

func (b *Book) group(symbol string) (*ordersGroup, error) {
	b.mu.RLock()
	g, ok := b.groups[symbol]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInstrumentNotRegistered, symbol)
	}
	return g, nil
}

// Add inserts order into the book for its side. Only LIMIT orders rest in
// the book; callers must check
// OrdType.RestsInBook() before calling Add. Forwards to the durable save
// callback if configured.
func (b *Book) Add(order *orders.Order) error {
	g, err := b.group(order.Symbol)
	if err != nil {
		return err
	}
	b.insert(g, order)
	if b.save != nil {
		b.save(order)
	}
	return nil
}

// Restore inserts order into the book bypassing the durable save callback;
// used only by the recovery path.
func (b *Book) Restore(order *orders.Order) error {
	g, err := b.group(order.Symbol)
	if err != nil {
		return err
	}
	b.insert(g, order)
	return nil
}

func (b *Book) insert(g *ordersGroup, order *orders.Order) {
	tree, mu := g.treeFor(order.Side)
	mu.Lock()
	level := tree.Get(order.Price)
	if level == nil {
		level = NewPriceLevel(order.Price)
		tree.Insert(level)
	}
	node := level.Append(order)
	mu.Unlock()

	g.nodesMu.Lock()
	g.nodes[order.OrderID] = node
	g.nodesMu.Unlock()
}

// Remove deletes orderID from symbol's book. Fails with ErrOrderNotInBook
// if not found.
func (b *Book) Remove(symbol string, orderID id.Id) (*orders.Order, error) {
	g, err := b.group(symbol)
	if err != nil {
		return nil, err
	}

	g.nodesMu.Lock()
	node, ok := g.nodes[orderID]
	if ok {
		delete(g.nodes, orderID)
	}
	g.nodesMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: order %s", ErrOrderNotInBook, orderID)
	}

	order := node.Order
	tree, mu := g.treeFor(order.Side)
	mu.Lock()
	level := node.level
	level.Remove(node)
	if level.IsEmpty() {
		tree.Delete(level.Price)
	}
	mu.Unlock()

	return order, nil
}

// Find locks the requested side and scans in priority order invoking fn for
// each candidate; returns the first matched order, or nil if none matched.
func (b *Book) Find(symbol string, side orders.Side, fn MatchFunc) (*orders.Order, error) {
	g, err := b.group(symbol)
	if err != nil {
		return nil, err
	}
	tree, mu := g.treeFor(side)
	mu.RLock()
	defer mu.RUnlock()

	var found *orders.Order
	tree.ForEach(func(level *PriceLevel) bool {
		for node := level.Head(); node != nil; node = node.Next() {
			matched, stop := fn(node.Order)
			if matched {
				found = node.Order
				return false
			}
			if stop {
				return false
			}
		}
		return true
	})
	return found, nil
}

// FindAll is Find but collects every match instead of stopping at the first.
func (b *Book) FindAll(symbol string, side orders.Side, fn MatchFunc) ([]*orders.Order, error) {
	g, err := b.group(symbol)
	if err != nil {
		return nil, err
	}
	tree, mu := g.treeFor(side)
	mu.RLock()
	defer mu.RUnlock()

	var found []*orders.Order
	tree.ForEach(func(level *PriceLevel) bool {
		for node := level.Head(); node != nil; node = node.Next() {
			matched, stop := fn(node.Order)
			if matched {
				found = append(found, node.Order)
			}
			if stop {
				return false
			}
		}
		return true
	})
	return found, nil
}

// Top returns the highest-priority resting order on side, or nil if the
// side is empty.
func (b *Book) Top(symbol string, side orders.Side) (*orders.Order, error) {
	g, err := b.group(symbol)
	if err != nil {
		return nil, err
	}
	tree, mu := g.treeFor(side)
	mu.RLock()
	defer mu.RUnlock()

	level := tree.Min()
	if level == nil || level.Head() == nil {
		return nil, nil
	}
	return level.Head().Order, nil
}

// HasLiquidity reports whether side has any resting order, used to decide
// whether a MARKET order can be validated against the book.
func (b *Book) HasLiquidity(symbol string, side orders.Side) bool {
	top, err := b.Top(symbol, side)
	return err == nil && top != nil
}

// Snapshot locks both sides and aggregates (price, totalLeavesQty,
// orderCount) per price level, used for session broadcasts.
func (b *Book) Snapshot(symbol string) (Snapshot, error) {
	g, err := b.group(symbol)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{Symbol: symbol}

	g.bidMu.RLock()
	g.bids.ForEach(func(level *PriceLevel) bool {
		snap.Bids = append(snap.Bids, DepthLevel{Price: level.Price, TotalLeaves: level.TotalQty, OrderCount: level.Count()})
		return true
	})
	g.bidMu.RUnlock()

	g.askMu.RLock()
	g.asks.ForEach(func(level *PriceLevel) bool {
		snap.Asks = append(snap.Asks, DepthLevel{Price: level.Price, TotalLeaves: level.TotalQty, OrderCount: level.Count()})
		return true
	})
	g.askMu.RUnlock()

	return snap, nil
}
