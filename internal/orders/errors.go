package orders

import "errors"

// Validation errors: surfaced as a Rejected transition producing
// a RejectExecReport. Never fatal.
var (
	ErrInvalidOrder            = errors.New("orders: invalid order")
	ErrDuplicateClientOrderID  = errors.New("orders: duplicate client order id")
	ErrUnknownInstrument       = errors.New("orders: unknown instrument")
	ErrUnknownAccount          = errors.New("orders: unknown account")
	ErrNoMarketForMarketOrder  = errors.New("orders: no market for market order")
)

// ErrInvariantViolated signals the store invariant cumQty+leavesQty==orderQty
// does not hold. Treated as a bug: it propagates out of the
// operation, triggers rollback, and is logged at error level.
var ErrInvariantViolated = errors.New("orders: cumQty + leavesQty != orderQty")
