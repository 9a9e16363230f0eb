package statemachine

import (
	"fmt"

	"github.com/rishav/order-matching-engine/internal/orders"
)

// ZoneB is the cancel/replace sub-state.
type ZoneB int

const (
	ZoneBNoCnlReplace ZoneB = iota
	ZoneBGoingCancel
	ZoneBGoingReplace
	ZoneBCnclReplaced
)

func (z ZoneB) String() string {
	switch z {
	case ZoneBNoCnlReplace:
		return "NO_CNL_REPLACE"
	case ZoneBGoingCancel:
		return "GOING_CANCEL"
	case ZoneBGoingReplace:
		return "GOING_REPLACE"
	case ZoneBCnclReplaced:
		return "CNCL_REPLACED"
	default:
		return "UNKNOWN"
	}
}

// transitionB computes Zone B's next state and entry actions for one event.
// o is consulted only for its OrdType: a MARKET order never rests in the
// book, so the terminal cancel/replace rows must not emit removeFromBook for
// one.
func transitionB(state ZoneB, ev Event, o *orders.Order) (ZoneB, []Action, error) {
	restsInBook := o.OrdType.RestsInBook()

	switch state {
	case ZoneBNoCnlReplace:
		switch ev.Kind {
		case EvCancelReceived:
			if !ev.Guard { // acceptable
				return state, nil, fmt.Errorf("%w: zoneB=%s event=%d", ErrIllegalTransition, state, ev.Kind)
			}
			return ZoneBGoingCancel, []Action{execReport(StatusUnchanged, orders.ExecTypePendingCancel)}, nil
		case EvReplaceReceived:
			if !ev.Guard {
				return state, nil, fmt.Errorf("%w: zoneB=%s event=%d", ErrIllegalTransition, state, ev.Kind)
			}
			return ZoneBGoingReplace, []Action{execReport(StatusUnchanged, orders.ExecTypePendingReplace)}, nil
		case EvInternalCancel:
			actions := []Action{execReport(StatusUnchanged, orders.ExecTypeCancel)}
			if restsInBook {
				actions = append(actions, removeFromBook())
			}
			return ZoneBCnclReplaced, actions, nil
		}

	case ZoneBGoingCancel:
		switch ev.Kind {
		case EvExecCancel:
			actions := []Action{execReport(StatusUnchanged, orders.ExecTypeCancel)}
			if restsInBook {
				actions = append(actions, removeFromBook())
			}
			return ZoneBCnclReplaced, actions, nil
		case EvCancelRejected:
			return ZoneBNoCnlReplace, []Action{cancelReject(StatusUnchanged)}, nil
		}

	case ZoneBGoingReplace:
		switch ev.Kind {
		case EvExecReplace:
			actions := []Action{replaceExecReport(StatusUnchanged, ev.ReplID)}
			if restsInBook {
				actions = append(actions, removeFromBook())
			}
			return ZoneBCnclReplaced, actions, nil
		case EvReplaceRejected, EvReplacedRejected:
			return ZoneBNoCnlReplace, []Action{cancelReject(StatusUnchanged)}, nil
		}
	}

	return state, nil, fmt.Errorf("%w: zoneB=%s event=%d", ErrIllegalTransition, state, ev.Kind)
}
