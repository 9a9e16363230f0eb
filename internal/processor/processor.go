// Package processor implements the Processor: the worker that
// drains one InputQueue event at a time, drives it through the state
// machine, and either builds a TransactionScope for the TransactionManager
// (event path) or executes an already-scheduled one (transaction-worker
// path), draining the resulting DeferedEvents afterward. Each dispatch
// runs under panic recovery in a "pull one unit of work, hand off,
// repeat" loop; every mutation is routed through a reversible Operation
// rather than applied inline.
package processor

import (
	"time"

	"github.com/rishav/order-matching-engine/internal/id"
	"github.com/rishav/order-matching-engine/internal/matching"
	"github.com/rishav/order-matching-engine/internal/orderbook"
	"github.com/rishav/order-matching-engine/internal/orders"
	"github.com/rishav/order-matching-engine/internal/orderstore"
	"github.com/rishav/order-matching-engine/internal/queue"
	"github.com/rishav/order-matching-engine/internal/refdata"
	"github.com/rishav/order-matching-engine/internal/statemachine"
	"github.com/rishav/order-matching-engine/internal/txmanager"
	"github.com/rishav/order-matching-engine/internal/txn"
)

// Processor holds one state-machine instance, one matcher, and one
// deferred-event list. A pool of Processors is owned by the TaskManager; a
// single instance is only ever driven by one goroutine at a time, so it
// keeps ordinary (non-atomic) mutable state.
type Processor struct {
	Gen        *id.Generator
	OrderStore *orderstore.Store
	RefStore   *refdata.Store
	Book       *orderbook.Book
	Matcher    *matching.Engine
	InputQueue *queue.InputQueue
	ScopePool  *txn.ScopePool
	TxManager  *txmanager.Manager

	EmitExecReport   func(o *orders.Order, exec *orders.Execution)
	EmitCancelReject func(o *orders.Order, status orders.Status)
	Now              func() time.Time

	machine  *statemachine.Machine
	deferred []matching.DeferedEvent
}

// New constructs a Processor around the shared subsystem handles.
func New(gen *id.Generator, orderStore *orderstore.Store, refStore *refdata.Store, book *orderbook.Book, matcher *matching.Engine, inputQueue *queue.InputQueue, scopePool *txn.ScopePool, txManager *txmanager.Manager) *Processor {
	return &Processor{
		Gen:        gen,
		OrderStore: orderStore,
		RefStore:   refStore,
		Book:       book,
		Matcher:    matcher,
		InputQueue: inputQueue,
		ScopePool:  scopePool,
		TxManager:  txManager,
		machine:    statemachine.New(),
	}
}

func (p *Processor) newTxnContext() *txn.Context {
	return &txn.Context{
		Book:             p.Book,
		OrderStore:       p.OrderStore,
		RefStore:         p.RefStore,
		Matcher:          p.Matcher,
		Gen:              p.Gen,
		EmitExecReport:   p.EmitExecReport,
		EmitCancelReject: p.EmitCancelReject,
		EnqueueEvent:     p.enqueueProcessEvent,
		ScheduleDeferred: p.scheduleDeferred,
		Now:              p.Now,
	}
}

func (p *Processor) scheduleDeferred(events []matching.DeferedEvent) {
	p.deferred = append(p.deferred, events...)
}

func (p *Processor) enqueueProcessEvent(orderID, replID id.Id) {
	p.InputQueue.Push("internal", queue.Entry{
		Kind:          queue.KindProcess,
		OrderID:       orderID,
		Process:       queue.ProcessOnReplaceReceived,
		ProcessReplID: replID,
	})
}

// Process pulls one event from the input queue and drives it to a built
// TransactionScope handed to the TransactionManager. Returns false if the
// queue was empty.
func (p *Processor) Process() bool {
	return p.InputQueue.PopWithHandler(p.onEvent)
}

func (p *Processor) onEvent(e queue.Entry) {
	defer func() {
		_ = recover() // a panic here must not take down the worker pool
	}()

	switch e.Kind {
	case queue.KindOrder:
		p.handleNewOrder(e)
	case queue.KindOrderCancel:
		p.handleCancel(e)
	case queue.KindOrderReplace:
		p.handleReplace(e)
	case queue.KindOrderChangeState:
		p.handleChangeState(e)
	case queue.KindTimer:
		p.handleTimer(e)
	case queue.KindProcess:
		p.handleProcess(e)
	}
}

func (p *Processor) handleNewOrder(e queue.Entry) {
	o, ok := e.Order.(*orders.Order)
	if !ok || o == nil {
		return
	}

	err := p.OrderStore.SaveOrder(o)
	if err == nil {
		err = orders.Validate(o, p.RefStore, p.RefStore, p.Book.HasLiquidity(o.Symbol, o.Side.Opposite()))
	}

	var ev statemachine.Event
	if err != nil {
		ev = statemachine.Event{Kind: statemachine.EvRecvOrderRejected, Reason: err.Error()}
	} else {
		ev = statemachine.Event{Kind: statemachine.EvOrderReceived}
	}
	p.dispatchAndSubmit(o, ev)
}

// handleCancel drives the pending-cancel exec report and, since this engine
// has no outbound venue ack to wait on, completes the cancel in the same
// pass: a rejected guard (order no longer active) stops short of EvExecCancel.
func (p *Processor) handleCancel(e queue.Entry) {
	o, ok := p.OrderStore.LocateByOrderID(e.OrderID)
	if !ok {
		return
	}
	if err := p.dispatchAndSubmit(o, statemachine.Event{Kind: statemachine.EvCancelReceived, Guard: o.IsActive()}); err != nil {
		return
	}
	p.dispatchAndSubmit(o, statemachine.Event{Kind: statemachine.EvExecCancel})
}

// handleReplace drives the original order's pending-replace/replace-complete
// pair and, when the request carries a replacement order, saves it and runs
// its own Rcvd_New entry separately: a replacement is a new order in its own
// right, not a re-dispatch of the original's already-live state.
func (p *Processor) handleReplace(e queue.Entry) {
	o, ok := p.OrderStore.LocateByOrderID(e.OrderID)
	if !ok {
		return
	}
	if e.HasReplOrder {
		repl, ok := e.ReplOrder.(*orders.Order)
		if !ok || repl == nil {
			return
		}
		if err := p.OrderStore.SaveOrder(repl); err != nil {
			return
		}
		p.dispatchAndSubmit(repl, statemachine.Event{Kind: statemachine.EvRplOrderReceived, ReplID: e.OrderID})
		if err := p.dispatchAndSubmit(o, statemachine.Event{Kind: statemachine.EvReplaceReceived, Guard: o.IsActive()}); err != nil {
			return
		}
		p.dispatchAndSubmit(o, statemachine.Event{Kind: statemachine.EvExecReplace, ReplID: e.ReplOrderID})
		return
	}
	p.dispatchAndSubmit(o, statemachine.Event{Kind: statemachine.EvReplaceReceived, Guard: o.IsActive()})
}

func (p *Processor) handleChangeState(e queue.Entry) {
	o, ok := p.OrderStore.LocateByOrderID(e.OrderID)
	if !ok {
		return
	}
	var kind statemachine.EventKind
	switch e.ChangeState {
	case queue.ChangeStateSuspend:
		kind = statemachine.EvSuspended
	case queue.ChangeStateResume:
		kind = statemachine.EvContinue
	case queue.ChangeStateFinish:
		kind = statemachine.EvFinished
	}
	p.dispatchAndSubmit(o, statemachine.Event{Kind: kind, Guard: o.IsActive()})
}

func (p *Processor) handleTimer(e queue.Entry) {
	o, ok := p.OrderStore.LocateByOrderID(e.OrderID)
	if !ok {
		return
	}
	var kind statemachine.EventKind
	switch e.Timer {
	case queue.TimerExpiration:
		kind = statemachine.EvExpired
	case queue.TimerDayEnd:
		kind = statemachine.EvNewDay
	case queue.TimerDayStart:
		kind = statemachine.EvContinue
	}
	p.dispatchAndSubmit(o, statemachine.Event{Kind: kind, Guard: o.IsActive()})
}

func (p *Processor) handleProcess(e queue.Entry) {
	o, ok := p.OrderStore.LocateByOrderID(e.OrderID)
	if !ok {
		return
	}
	var kind statemachine.EventKind
	switch e.Process {
	case queue.ProcessOnReplaceReceived:
		kind = statemachine.EvReplace
	case queue.ProcessOnExecReplace:
		kind = statemachine.EvExecReplace
	case queue.ProcessOnReplaceRejected:
		kind = statemachine.EvReplaceRejected
	}
	p.dispatchAndSubmit(o, statemachine.Event{Kind: kind, ReplID: e.ProcessReplID})
}

// dispatchAndSubmit runs ev through the state machine, translates the
// resulting actions into operations on a freshly acquired scope, and hands
// the detached scope to the TransactionManager for later execution. The
// returned error is nil unless the event was illegal for the order's current
// state, letting callers that chain a follow-up event (cancel/replace
// completion) skip the follow-up when the first step didn't take.
func (p *Processor) dispatchAndSubmit(o *orders.Order, ev statemachine.Event) error {
	actions, err := p.machine.Dispatch(o, ev)
	if err != nil {
		return err
	}

	ps := p.ScopePool.Acquire()
	for _, a := range actions {
		ps.Scope().Append(translateAction(a, o))
	}

	objs, err := ps.Scope().GetRelatedObjects()
	if err != nil {
		ps.Release()
		return err
	}
	scope := ps.Detach()
	txID := p.Gen.Next()
	p.TxManager.Add(txID, objs, scope)
	return nil
}

// ProcessTransaction is the transaction-worker path: execute
// scope's operations; on success drain deferred events, on failure clear
// the deferred-event list unconditionally. txID is then removed from the
// TransactionManager, which may promote waiting children.
func (p *Processor) ProcessTransaction(txID id.Id, scope *txn.Scope) {
	ctx := p.newTxnContext()
	if err := scope.ExecuteTransaction(ctx); err == nil {
		p.drainDeferred(ctx)
	} else {
		p.deferred = nil
	}
	p.TxManager.Finish(txID)
}

// drainDeferred processes queued DeferedEvents FIFO, each in its own
// scope/transaction, swapping the pending slice out before each batch so
// events scheduled mid-drain join the next round rather than the current
// one. Any remaining unprocessed events are dropped if an error stops the
// drain mid-flight.
func (p *Processor) drainDeferred(ctx *txn.Context) {
	for len(p.deferred) > 0 {
		batch := p.deferred
		p.deferred = nil
		for _, de := range batch {
			if err := p.executeDeferred(de, ctx); err != nil {
				p.deferred = nil
				return
			}
		}
	}
}

func (p *Processor) executeDeferred(de matching.DeferedEvent, ctx *txn.Context) error {
	switch ev := de.(type) {
	case matching.ExecutionDeferedEvent:
		for i := range ev.Trades {
			f := ev.Trades[i]
			if err := p.applyFill(f.Active, &f, ctx); err != nil {
				return err
			}
			if err := p.applyFill(f.Candidate, &f, ctx); err != nil {
				return err
			}
		}
	case matching.MatchOrderDeferedEvent:
		return p.runScope(ctx, []txn.Operation{&txn.MatchOrderOp{Order: ev.Order}})
	case matching.CancelOrderDeferedEvent:
		return p.dispatchNow(ev.Order, statemachine.Event{Kind: statemachine.EvInternalCancel, Reason: ev.Reason}, ctx)
	}
	return nil
}

func (p *Processor) applyFill(o *orders.Order, f *orders.Fill, ctx *txn.Context) error {
	o.CumQty = o.CumQty.Add(f.TradeQty)
	o.LeavesQty = o.LeavesQty.Sub(f.TradeQty)
	return p.dispatchNow(o, statemachine.Event{Kind: statemachine.EvTradeExecution, Guard: o.IsFilled(), Trade: f}, ctx)
}

// dispatchNow runs ev through the state machine and executes the resulting
// operations immediately against ctx, bypassing the TransactionManager —
// deferred-event transactions are already serialized by the single
// draining goroutine that produced them, so no further dependency
// ordering is needed (see DESIGN.md).
func (p *Processor) dispatchNow(o *orders.Order, ev statemachine.Event, ctx *txn.Context) error {
	actions, err := p.machine.Dispatch(o, ev)
	if err != nil {
		return nil // illegal transition on a deferred path: nothing to apply
	}
	ops := make([]txn.Operation, 0, len(actions))
	for _, a := range actions {
		ops = append(ops, translateAction(a, o))
	}
	return p.runScope(ctx, ops)
}

func (p *Processor) runScope(ctx *txn.Context, ops []txn.Operation) error {
	ps := p.ScopePool.Acquire()
	defer ps.Release()
	for _, op := range ops {
		ps.Scope().Append(op)
	}
	return ps.Scope().ExecuteTransaction(ctx)
}
