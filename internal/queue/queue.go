// Package queue implements the InputQueue: a multi-producer,
// multi-consumer queue of tagged event variants feeding the processor
// pool. Producers send on a plain buffered Go channel and then bump an
// atomic size counter; the consumer side targets a worker-pool model
// rather than a single dedicated consumer goroutine, so InputQueue
// notifies an observer
// every time an event lands, giving a coalesced, idempotent consumer
// contract without the sequence/gating machinery a single-consumer ring
// buffer needs.
package queue

import (
	"sync"
	"sync/atomic"

	"github.com/rishav/order-matching-engine/internal/id"
)

// EventKind tags which InputQueue variant an Entry carries.
type EventKind uint8

const (
	KindOrder EventKind = iota
	KindOrderCancel
	KindOrderReplace
	KindOrderChangeState
	KindProcess
	KindTimer
)

func (k EventKind) String() string {
	switch k {
	case KindOrder:
		return "Order"
	case KindOrderCancel:
		return "OrderCancel"
	case KindOrderReplace:
		return "OrderReplace"
	case KindOrderChangeState:
		return "OrderChangeState"
	case KindProcess:
		return "Process"
	case KindTimer:
		return "Timer"
	default:
		return "Unknown"
	}
}

// ChangeState is the payload of an OrderChangeStateEvent.
type ChangeState int

const (
	ChangeStateSuspend ChangeState = iota
	ChangeStateResume
	ChangeStateFinish
)

// TimerKind is the payload of a TimerEvent.
type TimerKind int

const (
	TimerExpiration TimerKind = iota
	TimerDayEnd
	TimerDayStart
)

// ProcessKind tags an internal re-dispatch ProcessEvent.
type ProcessKind int

const (
	ProcessOnReplaceReceived ProcessKind = iota
	ProcessOnExecReplace
	ProcessOnReplaceRejected
)

// Entry is one tagged event variant carried by the queue. Exactly one of
// the payload fields is meaningful, selected by Kind, since Go has no
// tagged-union/sum type to model this directly.
type Entry struct {
	Kind   EventKind
	Source string

	Order         interface{} // *orders.Order for KindOrder; avoids an import cycle
	OrderID       id.Id
	ReplOrder     interface{} // *orders.Order for KindOrderReplace, if HasReplOrder
	ReplOrderID   id.Id       // replacement order id for KindOrderReplace, if any
	HasReplOrder  bool
	ChangeState   ChangeState
	Timer         TimerKind
	Process       ProcessKind
	ProcessReplID id.Id
}

// Observer is notified after an event lands in the queue.
// Implementations must be idempotent: the queue may coalesce bursts into a
// single notification.
type Observer interface {
	OnNewEvent()
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func()

func (f ObserverFunc) OnNewEvent() { f() }

// InputQueue is the MPMC queue of tagged Entry variants. Size is tracked
// separately from the channel's internal buffer so Size() is accurate even
// while an entry sits in the "pending" slot between Top and Pop.
type InputQueue struct {
	ch   chan Entry
	size int64

	pendingMu sync.Mutex
	pending   *Entry
	hasPend   bool

	observer Observer
}

// New constructs an InputQueue with the given channel capacity.
func New(capacity int) *InputQueue {
	return &InputQueue{ch: make(chan Entry, capacity)}
}

// Attach installs the observer notified on every Push. Detach removes it.
func (q *InputQueue) Attach(o Observer) {
	q.observer = o
}

// Detach removes the current observer.
func (q *InputQueue) Detach() {
	q.observer = nil
}

// Push enqueues evnt tagged with source, increments Size, and fires
// OnNewEvent.
func (q *InputQueue) Push(source string, evnt Entry) {
	evnt.Source = source
	q.ch <- evnt
	atomic.AddInt64(&q.size, 1)
	if q.observer != nil {
		q.observer.OnNewEvent()
	}
}

// Top pops the next entry into the held pending slot and dispatches it to
// processor's handler, returning true if an event was available. A
// subsequent Pop is required to release the pending slot.
func (q *InputQueue) Top(handle func(Entry)) bool {
	q.pendingMu.Lock()
	defer q.pendingMu.Unlock()

	if q.hasPend {
		handle(*q.pending)
		return true
	}

	select {
	case e := <-q.ch:
		q.pending = &e
		q.hasPend = true
		handle(e)
		return true
	default:
		return false
	}
}

// Pop releases the pending slot claimed by Top, decrementing Size.
func (q *InputQueue) Pop() {
	q.pendingMu.Lock()
	defer q.pendingMu.Unlock()
	if !q.hasPend {
		return
	}
	q.pending = nil
	q.hasPend = false
	atomic.AddInt64(&q.size, -1)
}

// PopWithHandler pops and dispatches an entry in one step.
func (q *InputQueue) PopWithHandler(handle func(Entry)) bool {
	if !q.Top(handle) {
		return false
	}
	q.Pop()
	return true
}

// Size reports the current queue depth, including any entry in the
// pending slot.
func (q *InputQueue) Size() int64 {
	return atomic.LoadInt64(&q.size)
}
