// Package orders defines the order and execution data model and
// the hot/warm/cold field tiering the matching engine relies on.
//
// Prices and quantities use decimal.Decimal rather than fixed-point
// integer cents: it gives the same no-floating-point-drift guarantee
// without a scale factor baked into every arithmetic operation.
package orders

import (
	"fmt"

	"github.com/rishav/order-matching-engine/internal/id"
	"github.com/shopspring/decimal"
)

// Side is the side of an order.
type Side int

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Opposite returns the contra side used when scanning the book for a match.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// OrdType is the order type.
type OrdType int

const (
	OrdTypeMarket OrdType = iota
	OrdTypeLimit
	OrdTypeStop
	OrdTypeStopLimit
)

func (t OrdType) String() string {
	switch t {
	case OrdTypeMarket:
		return "MARKET"
	case OrdTypeLimit:
		return "LIMIT"
	case OrdTypeStop:
		return "STOP"
	case OrdTypeStopLimit:
		return "STOPLIMIT"
	default:
		return "UNKNOWN"
	}
}

// RestsInBook reports whether this order type can occupy the book. Only
// LIMIT rests; MARKET matches once and either fills or fails.
func (t OrdType) RestsInBook() bool {
	return t == OrdTypeLimit
}

// TimeInForce is the order's duration policy (glossary).
type TimeInForce int

const (
	TIFDay TimeInForce = iota
	TIFGTD
	TIFGTC
	TIFFOK
	TIFIOC
	TIFOPG
	TIFATClose
)

func (t TimeInForce) String() string {
	switch t {
	case TIFDay:
		return "DAY"
	case TIFGTD:
		return "GTD"
	case TIFGTC:
		return "GTC"
	case TIFFOK:
		return "FOK"
	case TIFIOC:
		return "IOC"
	case TIFOPG:
		return "OPG"
	case TIFATClose:
		return "ATCLOSE"
	default:
		return "UNKNOWN"
	}
}

// Capacity is the trading capacity under which an order was entered.
type Capacity int

const (
	CapacityInvalid Capacity = iota
	CapacityAgency
	CapacityPrincipal
	CapacityProprietary
	CapacityIndividual
	CapacityRisklessPrincipal
	CapacityAgentForAnotherMember
)

// Currency is the settlement currency of an order.
type Currency int

const (
	CurrencyInvalid Currency = iota
	CurrencyUSD
	CurrencyEUR
)

func (c Currency) String() string {
	switch c {
	case CurrencyUSD:
		return "USD"
	case CurrencyEUR:
		return "EUR"
	default:
		return "INVALID"
	}
}

// SettlType holds the standard FIX settlement type codes (0-9, B, C, plus
// tenor-based settlement).
type SettlType int

const (
	SettlTypeInvalid SettlType = iota
	SettlType0
	SettlType1
	SettlType2
	SettlType3
	SettlType4
	SettlType5
	SettlType6
	SettlType7
	SettlType8
	SettlType9
	SettlTypeB
	SettlTypeC
	SettlTypeTenor
)

// Status is the order's current lifecycle status, kept in lockstep with the
// state machine's Zone A state: Status must always equal the status implied
// by the state machine's current state.
type Status int

const (
	StatusRcvdNew Status = iota
	StatusPendNew
	StatusPendReplace
	StatusNew
	StatusPartFill
	StatusFilled
	StatusExpired
	StatusDoneForDay
	StatusSuspended
	StatusRejected
	StatusCnclReplaced
)

func (s Status) String() string {
	switch s {
	case StatusRcvdNew:
		return "RCVD_NEW"
	case StatusPendNew:
		return "PEND_NEW"
	case StatusPendReplace:
		return "PEND_REPLACE"
	case StatusNew:
		return "NEW"
	case StatusPartFill:
		return "PART_FILL"
	case StatusFilled:
		return "FILLED"
	case StatusExpired:
		return "EXPIRED"
	case StatusDoneForDay:
		return "DONE_FOR_DAY"
	case StatusSuspended:
		return "SUSPENDED"
	case StatusRejected:
		return "REJECTED"
	case StatusCnclReplaced:
		return "CNCL_REPLACED"
	default:
		return "UNKNOWN"
	}
}

// StateMachinePersistence is the (zone1, zone2) tuple persisted with the
// order so the state machine can be restored before processing any event
// for that order.
type StateMachinePersistence struct {
	Zone1 int32
	Zone2 int32
}

// Order is the principal mutable entity, tiered into hot/warm/cold fields
// by access frequency. Two orders locked together must be locked
// smaller-OrderID-first to avoid deadlock.
type Order struct {
	// Hot: read/written on every match, fill, correction.
	OrderID     id.Id
	OrigOrderID id.Id
	Price       decimal.Decimal
	Status      Status
	Side        Side
	OrdType     OrdType
	LeavesQty   decimal.Decimal
	CumQty      decimal.Decimal
	OrderQty    decimal.Decimal
	TIF         TimeInForce

	// Warm: read on processing, seldom in inner loops.
	StopPx                  decimal.Decimal
	AvgPx                   decimal.Decimal
	DayAvgPx                decimal.Decimal
	CreationTime            int64
	LastUpdateTime          int64
	ExpireTime              int64
	SettlDate               int64
	SettlType               SettlType
	Capacity                Capacity
	Currency                Currency
	MinQty                  decimal.Decimal
	DayOrderQty             decimal.Decimal
	DayCumQty               decimal.Decimal
	StateMachinePersistence StateMachinePersistence

	// Cold: lazy references to the reference store.
	Instrument       id.Id
	Account          id.Id
	Clearing         id.Id
	Destination      id.Id
	ExecInstructions string
	ClOrderID        string
	OrigClOrderID    string
	Source           id.Id
	Executions       id.Id // ExecutionList id in the reference store

	Symbol string // denormalized for fast book lookups; mirrors Instrument
}

// RemainingQty is an alias for LeavesQty kept for readability at call sites
// that think in terms of "how much is left".
func (o *Order) RemainingQty() decimal.Decimal {
	return o.LeavesQty
}

// IsFilled reports whether the order has no quantity left to execute.
func (o *Order) IsFilled() bool {
	return o.LeavesQty.Sign() <= 0
}

// IsActive reports whether the order can still participate in matching.
func (o *Order) IsActive() bool {
	return o.Status == StatusNew || o.Status == StatusPartFill
}

// CheckInvariant verifies cumQty + leavesQty == orderQty.
func (o *Order) CheckInvariant() error {
	sum := o.CumQty.Add(o.LeavesQty)
	if !sum.Equal(o.OrderQty) {
		return fmt.Errorf("%w: order %s cumQty=%s leavesQty=%s orderQty=%s",
			ErrInvariantViolated, o.OrderID, o.CumQty, o.LeavesQty, o.OrderQty)
	}
	return nil
}

func (o *Order) String() string {
	return fmt.Sprintf("Order{ID:%s, %s %s %s@%s, Filled:%s, Status:%s}",
		o.OrderID, o.Side, o.Symbol, o.OrderQty, o.Price, o.CumQty, o.Status)
}

// ExecType tags the kind of state change an Execution records.
type ExecType int

const (
	ExecTypeNew ExecType = iota
	ExecTypeTrade
	ExecTypeReplace
	ExecTypeCancel
	ExecTypeReject
	ExecTypeCorrect
	ExecTypeDoneForDay
	ExecTypeExpired
	ExecTypeSuspended
	ExecTypePendingCancel
	ExecTypePendingReplace
	ExecTypeRestated
	ExecTypeStatus
)

func (t ExecType) String() string {
	switch t {
	case ExecTypeNew:
		return "NEW"
	case ExecTypeTrade:
		return "TRADE"
	case ExecTypeReplace:
		return "REPLACE"
	case ExecTypeCancel:
		return "CANCEL"
	case ExecTypeReject:
		return "REJECT"
	case ExecTypeCorrect:
		return "CORRECT"
	case ExecTypeDoneForDay:
		return "DONE_FOR_DAY"
	case ExecTypeExpired:
		return "EXPIRED"
	case ExecTypeSuspended:
		return "SUSPENDED"
	case ExecTypePendingCancel:
		return "PENDING_CANCEL"
	case ExecTypePendingReplace:
		return "PENDING_REPLACE"
	case ExecTypeRestated:
		return "RESTATED"
	case ExecTypeStatus:
		return "STATUS"
	default:
		return "UNKNOWN"
	}
}

// Execution is a tagged record describing one order state change. Every
// variant carries the common fields; the rest are populated per ExecType.
type Execution struct {
	ExecID       id.Id
	OrderID      id.Id
	TransactTime int64
	OrderStatus  Status
	Market       string
	Type         ExecType

	// Trade / Correct fields.
	LastQty   decimal.Decimal
	LastPx    decimal.Decimal
	Currency  Currency
	TradeDate int64

	// Replace / Correct fields.
	OrigOrderID id.Id

	// Cancel / Correct fields.
	ExecRefID id.Id

	// Correct fields.
	CumQty    decimal.Decimal
	LeavesQty decimal.Decimal

	// Reject fields.
	Reason string
}

// Trade is the market-data view of a completed execution, built from a
// trade exec report when it is emitted and published to market data.
type Trade struct {
	TradeID     id.Id
	Symbol      string
	Price       decimal.Decimal
	Quantity    decimal.Decimal
	BuyOrderID  id.Id
	SellOrderID id.Id
	Timestamp   int64
}

// Fill is a single maker/taker execution produced while matching one
// active order.
type Fill struct {
	Active    *Order
	Candidate *Order
	TradeQty  decimal.Decimal
	TradePx   decimal.Decimal
}
