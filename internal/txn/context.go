// Package txn implements transaction Operations, TransactionScope, and the
// ScopePool: the reversible unit of work a processor
// builds while handling one event, committed or rolled back as a whole.
package txn

import (
	"time"

	"github.com/rishav/order-matching-engine/internal/id"
	"github.com/rishav/order-matching-engine/internal/matching"
	"github.com/rishav/order-matching-engine/internal/orderbook"
	"github.com/rishav/order-matching-engine/internal/orders"
	"github.com/rishav/order-matching-engine/internal/orderstore"
	"github.com/rishav/order-matching-engine/internal/refdata"
)

// Context bundles the handles an Operation needs to execute or roll back.
// It is built fresh per transaction by the processor, which captures these
// references once and carries them to each operation.
type Context struct {
	Book       *orderbook.Book
	OrderStore *orderstore.Store
	RefStore   *refdata.Store
	Matcher    *matching.Engine
	Gen        *id.Generator

	// EmitExecReport pushes a completed exec report onto the outbound
	// interface; set by the processor to the session bus.
	EmitExecReport func(o *orders.Order, exec *orders.Execution)

	// EmitCancelReject pushes a CancelRejectEvent / BusinessRejectEvent
	// for a user-visible failure that doesn't warrant a full rollback.
	EmitCancelReject func(o *orders.Order, status orders.Status)

	// EnqueueEvent pushes a follow-up ProcessEvent onto the input queue,
	// addressed to orderID with replID as payload (used for Replace flows).
	EnqueueEvent func(orderID, replID id.Id)

	// ScheduleDeferred appends DeferedEvents the active processor will
	// drain after the current transaction commits.
	ScheduleDeferred func(events []matching.DeferedEvent)

	// Now returns the current wall-clock time; overridable in tests.
	Now func() time.Time
}

func (c *Context) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}
