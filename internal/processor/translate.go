package processor

import (
	"github.com/rishav/order-matching-engine/internal/id"
	"github.com/rishav/order-matching-engine/internal/orders"
	"github.com/rishav/order-matching-engine/internal/statemachine"
	"github.com/rishav/order-matching-engine/internal/txn"
	"github.com/shopspring/decimal"
)

// translateAction converts one statemachine.Action into the concrete
// txn.Operation it describes, against order o. This is the seam the
// Design Notes call out: the state machine returns actions as data
// specifically so this translation can live outside it.
func translateAction(a statemachine.Action, o *orders.Order) txn.Operation {
	switch a.Kind {
	case statemachine.ActionCreateExecReport:
		return &txn.CreateExecReportOp{Order: o, Status: a.Status, ExecType: a.ExecType}
	case statemachine.ActionCreateTradeExecReport:
		return &txn.CreateTradeExecReportOp{Order: o, Status: a.Status, Trade: a.Trade}
	case statemachine.ActionCreateRejectExecReport:
		return &txn.CreateRejectExecReportOp{Order: o, Status: a.Status, Reason: a.Reason}
	case statemachine.ActionCreateReplaceExecReport:
		return &txn.CreateReplaceExecReportOp{Order: o, Status: a.Status, OrigOrderID: a.OrigOrderID}
	case statemachine.ActionCreateCorrectExecReport:
		var lastQty, lastPx decimal.Decimal
		var origID, execRefID id.Id
		if a.Correct != nil {
			lastQty = a.Correct.LastQty
			lastPx = a.Correct.LastPx
			origID = a.Correct.OrigOrderID
			execRefID = a.Correct.ExecRefID
		}
		return &txn.CreateCorrectExecReportOp{Order: o, Status: a.Status, LastQty: lastQty, LastPx: lastPx, OrigOrderID: origID, ExecRefID: execRefID}
	case statemachine.ActionAddToBook:
		return &txn.AddToOrderBookOp{Order: o}
	case statemachine.ActionRemoveFromBook:
		return &txn.RemoveFromOrderBookOp{Order: o}
	case statemachine.ActionEnqueueOrderEvent:
		return &txn.EnqueueOrderEventOp{Order: o, ReplID: a.ReplID}
	case statemachine.ActionCancelReject:
		return &txn.CancelRejectOp{Order: o, Status: a.Status}
	case statemachine.ActionMatchOrder:
		return &txn.MatchOrderOp{Order: o}
	default:
		return &txn.CreateExecReportOp{Order: o, Status: o.Status, ExecType: orders.ExecTypeStatus}
	}
}
