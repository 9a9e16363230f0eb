package txn

import (
	"github.com/rishav/order-matching-engine/internal/id"
	"github.com/rishav/order-matching-engine/internal/orders"
	"github.com/shopspring/decimal"
)

// Operation is one reversible (or emit-only, irreversible) step in a
// transaction. PrimaryObjectID and RelatedObjectID feed the
// transaction manager's dependency graph.
type Operation interface {
	Execute(ctx *Context) error
	Rollback(ctx *Context) error
	PrimaryObjectID() id.Id
	RelatedObjectID() id.Id
}

func newExecution(o *orders.Order, status orders.Status, execType orders.ExecType, ctx *Context) *orders.Execution {
	effectiveStatus := status
	if status == -1 { // statemachine.StatusUnchanged
		effectiveStatus = o.Status
	}
	return &orders.Execution{
		OrderID:      o.OrderID,
		TransactTime: ctx.now().Unix(),
		OrderStatus:  effectiveStatus,
		Type:         execType,
	}
}

func saveAndEmit(o *orders.Order, exec *orders.Execution, ctx *Context) error {
	if err := ctx.OrderStore.SaveExecution(exec); err != nil {
		return err
	}
	if o.Executions.Valid() {
		ctx.RefStore.AppendExecution(o.Executions, exec.ExecID)
	}
	if ctx.EmitExecReport != nil {
		ctx.EmitExecReport(o, exec)
	}
	return nil
}

// CreateExecReportOp builds a plain (status, execType) exec report.
type CreateExecReportOp struct {
	Order    *orders.Order
	Status   orders.Status
	ExecType orders.ExecType
}

func (op *CreateExecReportOp) Execute(ctx *Context) error {
	exec := newExecution(op.Order, op.Status, op.ExecType, ctx)
	return saveAndEmit(op.Order, exec, ctx)
}
func (op *CreateExecReportOp) Rollback(*Context) error { return nil }
func (op *CreateExecReportOp) PrimaryObjectID() id.Id  { return op.Order.OrderID }
func (op *CreateExecReportOp) RelatedObjectID() id.Id  { return id.Id{} }

// CreateTradeExecReportOp builds a Trade exec report.
type CreateTradeExecReportOp struct {
	Order  *orders.Order
	Status orders.Status
	Trade  *orders.Fill
}

func (op *CreateTradeExecReportOp) Execute(ctx *Context) error {
	exec := newExecution(op.Order, op.Status, orders.ExecTypeTrade, ctx)
	exec.LastQty = op.Trade.TradeQty
	exec.LastPx = op.Trade.TradePx
	exec.CumQty = op.Order.CumQty
	exec.LeavesQty = op.Order.LeavesQty
	return saveAndEmit(op.Order, exec, ctx)
}
func (op *CreateTradeExecReportOp) Rollback(*Context) error { return nil }
func (op *CreateTradeExecReportOp) PrimaryObjectID() id.Id  { return op.Order.OrderID }
func (op *CreateTradeExecReportOp) RelatedObjectID() id.Id  { return id.Id{} }

// CreateRejectExecReportOp builds a Reject exec report.
type CreateRejectExecReportOp struct {
	Order  *orders.Order
	Status orders.Status
	Reason string
}

func (op *CreateRejectExecReportOp) Execute(ctx *Context) error {
	exec := newExecution(op.Order, op.Status, orders.ExecTypeReject, ctx)
	exec.Reason = op.Reason
	return saveAndEmit(op.Order, exec, ctx)
}
func (op *CreateRejectExecReportOp) Rollback(*Context) error { return nil }
func (op *CreateRejectExecReportOp) PrimaryObjectID() id.Id  { return op.Order.OrderID }
func (op *CreateRejectExecReportOp) RelatedObjectID() id.Id  { return id.Id{} }

// CreateReplaceExecReportOp builds a Replace exec report.
type CreateReplaceExecReportOp struct {
	Order       *orders.Order
	Status      orders.Status
	OrigOrderID id.Id
}

func (op *CreateReplaceExecReportOp) Execute(ctx *Context) error {
	exec := newExecution(op.Order, op.Status, orders.ExecTypeReplace, ctx)
	exec.OrigOrderID = op.OrigOrderID
	return saveAndEmit(op.Order, exec, ctx)
}
func (op *CreateReplaceExecReportOp) Rollback(*Context) error { return nil }
func (op *CreateReplaceExecReportOp) PrimaryObjectID() id.Id  { return op.Order.OrderID }
func (op *CreateReplaceExecReportOp) RelatedObjectID() id.Id  { return op.OrigOrderID }

// CreateCorrectExecReportOp builds a Correct exec report. LastQty/LastPx are
// carried separately from the order's CumQty/LeavesQty so a correction can
// restate history without depending on statemachine.CorrectInfo directly.
type CreateCorrectExecReportOp struct {
	Order       *orders.Order
	Status      orders.Status
	LastQty     decimal.Decimal
	LastPx      decimal.Decimal
	OrigOrderID id.Id
	ExecRefID   id.Id
}

func (op *CreateCorrectExecReportOp) Execute(ctx *Context) error {
	exec := newExecution(op.Order, op.Status, orders.ExecTypeCorrect, ctx)
	exec.CumQty = op.Order.CumQty
	exec.LeavesQty = op.Order.LeavesQty
	exec.LastQty = op.LastQty
	exec.LastPx = op.LastPx
	exec.OrigOrderID = op.OrigOrderID
	exec.ExecRefID = op.ExecRefID
	return saveAndEmit(op.Order, exec, ctx)
}
func (op *CreateCorrectExecReportOp) Rollback(*Context) error { return nil }
func (op *CreateCorrectExecReportOp) PrimaryObjectID() id.Id  { return op.Order.OrderID }
func (op *CreateCorrectExecReportOp) RelatedObjectID() id.Id  { return id.Id{} }

// AddToOrderBookOp inserts order into the book; rollback removes it.
type AddToOrderBookOp struct {
	Order *orders.Order
}

func (op *AddToOrderBookOp) Execute(ctx *Context) error {
	return ctx.Book.Add(op.Order)
}
func (op *AddToOrderBookOp) Rollback(ctx *Context) error {
	_, err := ctx.Book.Remove(op.Order.Symbol, op.Order.OrderID)
	return err
}
func (op *AddToOrderBookOp) PrimaryObjectID() id.Id { return op.Order.OrderID }
func (op *AddToOrderBookOp) RelatedObjectID() id.Id { return id.Id{} }

// RemoveFromOrderBookOp removes order from the book; rollback re-adds it.
type RemoveFromOrderBookOp struct {
	Order *orders.Order
}

func (op *RemoveFromOrderBookOp) Execute(ctx *Context) error {
	_, err := ctx.Book.Remove(op.Order.Symbol, op.Order.OrderID)
	return err
}
func (op *RemoveFromOrderBookOp) Rollback(ctx *Context) error {
	return ctx.Book.Add(op.Order)
}
func (op *RemoveFromOrderBookOp) PrimaryObjectID() id.Id { return op.Order.OrderID }
func (op *RemoveFromOrderBookOp) RelatedObjectID() id.Id { return id.Id{} }

// EnqueueOrderEventOp pushes a follow-up ProcessEvent onto the input
// queue. It emits no exec report.
type EnqueueOrderEventOp struct {
	Order  *orders.Order
	ReplID id.Id
}

func (op *EnqueueOrderEventOp) Execute(ctx *Context) error {
	if ctx.EnqueueEvent != nil {
		ctx.EnqueueEvent(op.Order.OrderID, op.ReplID)
	}
	return nil
}
func (op *EnqueueOrderEventOp) Rollback(*Context) error { return nil }
func (op *EnqueueOrderEventOp) PrimaryObjectID() id.Id  { return op.Order.OrderID }
func (op *EnqueueOrderEventOp) RelatedObjectID() id.Id  { return op.ReplID }

// CancelRejectOp pushes a cancel-reject to the outbound interface.
type CancelRejectOp struct {
	Order  *orders.Order
	Status orders.Status
}

func (op *CancelRejectOp) Execute(ctx *Context) error {
	if ctx.EmitCancelReject != nil {
		ctx.EmitCancelReject(op.Order, op.Status)
	}
	return nil
}
func (op *CancelRejectOp) Rollback(*Context) error { return nil }
func (op *CancelRejectOp) PrimaryObjectID() id.Id  { return op.Order.OrderID }
func (op *CancelRejectOp) RelatedObjectID() id.Id  { return id.Id{} }

// MatchOrderOp invokes the matcher and schedules the resulting DeferedEvents
// for post-commit draining. It has no rollback: the events it
// schedules are only drained after the whole transaction commits
// successfully, so a failed transaction never sees them acted on.
type MatchOrderOp struct {
	Order *orders.Order
}

func (op *MatchOrderOp) Execute(ctx *Context) error {
	events, err := ctx.Matcher.Match(op.Order)
	if err != nil {
		return err
	}
	if ctx.ScheduleDeferred != nil {
		ctx.ScheduleDeferred(events)
	}
	return nil
}
func (op *MatchOrderOp) Rollback(*Context) error { return nil }
func (op *MatchOrderOp) PrimaryObjectID() id.Id  { return op.Order.OrderID }
func (op *MatchOrderOp) RelatedObjectID() id.Id  { return id.Id{} }
