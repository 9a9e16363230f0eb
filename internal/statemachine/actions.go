package statemachine

import (
	"github.com/rishav/order-matching-engine/internal/id"
	"github.com/rishav/order-matching-engine/internal/orders"
)

// ActionKind enumerates the operation kinds a transition's entry action
// appends to the active transaction scope: on entry to a state, the
// action appends the operations that realize it.
type ActionKind int

const (
	ActionCreateExecReport ActionKind = iota
	ActionCreateTradeExecReport
	ActionCreateRejectExecReport
	ActionCreateReplaceExecReport
	ActionCreateCorrectExecReport
	ActionAddToBook
	ActionRemoveFromBook
	ActionEnqueueOrderEvent
	ActionCancelReject
	ActionMatchOrder
)

// Action is data describing one operation to append; the processor
// translates it into a concrete txn.Operation. Keeping this as
// data rather than a closure keeps the state machine itself free of any
// dependency on the transaction or order-book packages.
type Action struct {
	Kind        ActionKind
	Status      orders.Status
	ExecType    orders.ExecType
	Reason      string
	OrigOrderID id.Id
	ReplID      id.Id
	Trade       *orders.Fill
	Correct     *CorrectInfo
}

// StatusUnchanged marks an Action whose exec report reflects Zone B's
// sub-state rather than a Zone A lifecycle transition — the processor
// fills in the order's current Zone A status when building the report.
const StatusUnchanged orders.Status = -1

func execReport(status orders.Status, execType orders.ExecType) Action {
	return Action{Kind: ActionCreateExecReport, Status: status, ExecType: execType}
}

func tradeExecReport(status orders.Status, trade *orders.Fill) Action {
	return Action{Kind: ActionCreateTradeExecReport, Status: status, ExecType: orders.ExecTypeTrade, Trade: trade}
}

func rejectExecReport(status orders.Status, reason string) Action {
	return Action{Kind: ActionCreateRejectExecReport, Status: status, ExecType: orders.ExecTypeReject, Reason: reason}
}

func replaceExecReport(status orders.Status, origOrderID id.Id) Action {
	return Action{Kind: ActionCreateReplaceExecReport, Status: status, ExecType: orders.ExecTypeReplace, OrigOrderID: origOrderID}
}

func correctExecReport(status orders.Status, correct *CorrectInfo) Action {
	return Action{Kind: ActionCreateCorrectExecReport, Status: status, ExecType: orders.ExecTypeCorrect, Correct: correct}
}

func addToBook() Action      { return Action{Kind: ActionAddToBook} }
func removeFromBook() Action { return Action{Kind: ActionRemoveFromBook} }
func matchOrder() Action     { return Action{Kind: ActionMatchOrder} }

func enqueueOrderEvent(replID id.Id) Action {
	return Action{Kind: ActionEnqueueOrderEvent, ReplID: replID}
}

func cancelReject(status orders.Status) Action {
	return Action{Kind: ActionCancelReject, Status: status}
}
