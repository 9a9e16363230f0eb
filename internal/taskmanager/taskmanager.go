// Package taskmanager implements the TaskManager: two worker
// pools of idle Processors, one servicing InputQueue events and one
// servicing ready transactions, each gated by a cache-line-aligned atomic
// availability counter.
//
// Bounded-goroutine-plus-channel pools. There is no close or shutdown
// method; WaitUntilTransactionsFinished waits for quiescence. Workers run an acquire-dispatch-release chain driven by observer
// callbacks (one fired when the input queue gets a new event, the other
// when the transaction manager has a transaction ready to run) rather than
// a single dedicated consumer loop, so idle Processors are pulled on demand
// by whichever pool has a free slot.
package taskmanager

import (
	"sync"
	"time"

	"github.com/rishav/order-matching-engine/internal/id"
	"github.com/rishav/order-matching-engine/internal/processor"
	"github.com/rishav/order-matching-engine/internal/queue"
	"github.com/rishav/order-matching-engine/internal/txmanager"
	"github.com/rishav/order-matching-engine/internal/txn"
)

// cacheLinePad is the x86-64 cache line size.
const cacheLinePad = 64

// alignedCounter is an int64 padded to its own cache line, preventing false
// sharing when multiple pools' availability counters are read concurrently
// from different cores. Go has no alignas, so the padding is carried as
// trailing bytes rather than a compiler attribute.
type alignedCounter struct {
	value int64
	_     [cacheLinePad - 8]byte
}

// Pool is a fixed set of idle Processors handed out on Acquire and
// returned on Release. The free list is a buffered channel; available
// tracks the last
// free-slot count as an observable counter.
type Pool struct {
	free      chan *processor.Processor
	available alignedCounter
	total     int
}

// NewPool pre-populates a Pool with procs.
func NewPool(procs []*processor.Processor) *Pool {
	p := &Pool{
		free:  make(chan *processor.Processor, len(procs)),
		total: len(procs),
	}
	for _, proc := range procs {
		p.free <- proc
	}
	p.available.value = int64(len(procs))
	return p
}

// TryAcquire returns an idle processor without blocking, or ok=false if
// the pool is fully busy.
func (p *Pool) TryAcquire() (*processor.Processor, bool) {
	select {
	case proc := <-p.free:
		atomicDecr(&p.available.value)
		return proc, true
	default:
		return nil, false
	}
}

// Release returns proc to the pool.
func (p *Pool) Release(proc *processor.Processor) {
	atomicIncr(&p.available.value)
	p.free <- proc
}

// Available reports the current idle-processor count.
func (p *Pool) Available() int {
	return int(atomicLoad(&p.available.value))
}

// Total reports the pool's fixed size.
func (p *Pool) Total() int {
	return p.total
}

// TaskManager owns the event-processor pool and the transaction-processor
// pool and wires their acquire/dispatch/release/chain loops
// to the InputQueue and TransactionManager observer hooks.
type TaskManager struct {
	EventPool *Pool
	TxPool    *Pool

	inputQueue *queue.InputQueue
	txManager  *txmanager.Manager

	wg sync.WaitGroup
}

// New constructs a TaskManager and attaches it as the observer of both
// inputQueue and txManager.
func New(eventProcs, txProcs []*processor.Processor, inputQueue *queue.InputQueue, txManager *txmanager.Manager) *TaskManager {
	tm := &TaskManager{
		EventPool:  NewPool(eventProcs),
		TxPool:     NewPool(txProcs),
		inputQueue: inputQueue,
		txManager:  txManager,
	}
	inputQueue.Attach(queue.ObserverFunc(tm.onNewEvent))
	txManager.SetObserver(func(id.Id) { tm.onReadyToExecute() })
	return tm
}

// onNewEvent acquires an idle event processor and spawns a task that pulls
// one event off the queue; on a successful pop it chains another
// onNewEvent to keep draining while processors remain available.
func (tm *TaskManager) onNewEvent() {
	p, ok := tm.EventPool.TryAcquire()
	if !ok {
		return
	}
	tm.wg.Add(1)
	go func(p *processor.Processor) {
		defer tm.wg.Done()
		handled := p.Process()
		tm.EventPool.Release(p)
		if handled {
			tm.onNewEvent()
		}
	}(p)
}

// onReadyToExecute acquires an idle transaction processor, pulls one
// root-executable transaction from the manager, and spawns a task that
// executes it; ProcessTransaction itself removes the transaction from the
// manager on completion, which may promote its children and fire this
// observer again.
func (tm *TaskManager) onReadyToExecute() {
	p, ok := tm.TxPool.TryAcquire()
	if !ok {
		return
	}
	txID, value, ok := tm.txManager.Next()
	if !ok {
		tm.TxPool.Release(p)
		return
	}
	scope, _ := value.(*txn.Scope)

	tm.wg.Add(1)
	go func(p *processor.Processor) {
		defer tm.wg.Done()
		p.ProcessTransaction(txID, scope)
		tm.TxPool.Release(p)
		tm.onReadyToExecute()
	}(p)
}

// WaitUntilTransactionsFinished spins until both pools are fully idle and
// the input queue is empty, re-verifying once after a short pause to avoid
// a false positive caught between a drain and a re-enqueue.
func (tm *TaskManager) WaitUntilTransactionsFinished(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if tm.quiescent() {
			time.Sleep(time.Millisecond)
			if tm.quiescent() {
				return true
			}
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

func (tm *TaskManager) quiescent() bool {
	return tm.EventPool.Available() == tm.EventPool.Total() &&
		tm.TxPool.Available() == tm.TxPool.Total() &&
		tm.inputQueue.Size() == 0
}
