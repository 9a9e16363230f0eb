// Package sessionbus defines the observer contract the (out-of-scope)
// WS/session layer would implement to receive outbound traffic from the
// core engine, and a Bus that fans events out to registered observers.
// Only the broadcast/observer interface and its dispatch are carried
// here, with no WebSocket or session-management code behind it.
package sessionbus

import (
	"sync"

	"github.com/rishav/order-matching-engine/internal/orderbook"
	"github.com/rishav/order-matching-engine/internal/orders"
)

// BookSnapshotObserver receives a book depth update whenever the
// matching engine mutates a price level.
type BookSnapshotObserver interface {
	OnBookSnapshot(snapshot orderbook.Snapshot)
}

// ExecReportObserver receives every execution report the processor
// emits, in the order the state machine produced it.
type ExecReportObserver interface {
	OnExecReport(report *orders.Execution, order *orders.Order)
}

// BookSnapshotObserverFunc adapts a plain function to BookSnapshotObserver.
type BookSnapshotObserverFunc func(orderbook.Snapshot)

// OnBookSnapshot implements BookSnapshotObserver.
func (f BookSnapshotObserverFunc) OnBookSnapshot(snapshot orderbook.Snapshot) { f(snapshot) }

// ExecReportObserverFunc adapts a plain function to ExecReportObserver.
type ExecReportObserverFunc func(*orders.Execution, *orders.Order)

// OnExecReport implements ExecReportObserver.
func (f ExecReportObserverFunc) OnExecReport(report *orders.Execution, order *orders.Order) {
	f(report, order)
}

// Bus fans book snapshots and exec reports out to every registered
// observer. A panicking observer is recovered and does not prevent the
// remaining observers from being notified.
type Bus struct {
	mu            sync.RWMutex
	bookObservers []BookSnapshotObserver
	execObservers []ExecReportObserver
}

// New constructs an empty Bus.
func New() *Bus {
	return &Bus{}
}

// AddBookSnapshotObserver registers obs to receive book snapshots.
func (b *Bus) AddBookSnapshotObserver(obs BookSnapshotObserver) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bookObservers = append(b.bookObservers, obs)
}

// AddExecReportObserver registers obs to receive execution reports.
func (b *Bus) AddExecReportObserver(obs ExecReportObserver) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.execObservers = append(b.execObservers, obs)
}

// PublishBookSnapshot notifies every registered book observer.
func (b *Bus) PublishBookSnapshot(snapshot orderbook.Snapshot) {
	b.mu.RLock()
	observers := make([]BookSnapshotObserver, len(b.bookObservers))
	copy(observers, b.bookObservers)
	b.mu.RUnlock()

	for _, obs := range observers {
		notifyBookSnapshot(obs, snapshot)
	}
}

// PublishExecReport notifies every registered exec-report observer.
func (b *Bus) PublishExecReport(report *orders.Execution, order *orders.Order) {
	b.mu.RLock()
	observers := make([]ExecReportObserver, len(b.execObservers))
	copy(observers, b.execObservers)
	b.mu.RUnlock()

	for _, obs := range observers {
		notifyExecReport(obs, report, order)
	}
}

func notifyBookSnapshot(obs BookSnapshotObserver, snapshot orderbook.Snapshot) {
	defer func() { _ = recover() }()
	obs.OnBookSnapshot(snapshot)
}

func notifyExecReport(obs ExecReportObserver, report *orders.Execution, order *orders.Order) {
	defer func() { _ = recover() }()
	obs.OnExecReport(report, order)
}
