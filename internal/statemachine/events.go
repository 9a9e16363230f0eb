// Package statemachine implements the two-zone order lifecycle state
// machine. Zone A tracks the order's lifecycle status
// (orders.Status); Zone B tracks the cancel/replace sub-state. A received
// event is dispatched to both zones; zero or one transition fires per
// zone.
//
// Rather than a metaprogrammed dispatch table, each zone's transition
// function is a plain Go function of (state, event) -> (nextState,
// []Action) — the Design Notes call for this explicitly over the
// macro-table approach a C++ port might otherwise reach for.
package statemachine

import (
	"github.com/rishav/order-matching-engine/internal/id"
	"github.com/rishav/order-matching-engine/internal/orders"
	"github.com/shopspring/decimal"
)

// EventKind enumerates every event the machine accepts.
type EventKind int

const (
	EvOrderReceived EventKind = iota
	EvRplOrderReceived
	EvRecvOrderRejected
	EvRecvRplOrderRejected
	EvExternalOrder
	EvExternalOrderRejected
	EvOrderRejected
	EvRplOrderRejected
	EvReplace
	EvTradeExecution
	EvTradeCrctCncl
	EvExpired
	EvRplOrderExpired
	EvCancelReceived
	EvReplaceReceived
	EvCanceled
	EvInternalCancel
	EvExecCancel
	EvExecReplace
	EvNewDay
	EvContinue
	EvSuspended
	EvFinished
	EvCancelRejected
	EvReplaceRejected
	EvReplacedRejected
)

// CorrectInfo carries a TradeCrctCncl event's correction payload.
type CorrectInfo struct {
	CumQty      decimal.Decimal
	LeavesQty   decimal.Decimal
	LastQty     decimal.Decimal
	LastPx      decimal.Decimal
	OrigOrderID id.Id
	ExecRefID   id.Id
	NotExecuted bool
}

// Event is one event delivered to the state machine. Guard
// results (complete, notExecuted, acceptable) are supplied by the caller,
// which has already computed them from order/book state — the machine
// itself never reaches back into the book or order store.
type Event struct {
	Kind    EventKind
	Trade   *orders.Fill
	Correct *CorrectInfo
	Reason  string
	ReplID  id.Id

	// Guard is the outcome the caller computed for whichever guard this
	// transition needs (complete / notExecuted / acceptable). Transitions
	// with no guard ignore this field.
	Guard bool

	// TestOnly mirrors test mode: only the state transition
	// occurs, no actions are appended, and Guard is used verbatim as the
	// guard result (ExpectedGuardResult).
	TestOnly bool
}
