package statemachine

import (
	"fmt"

	"github.com/rishav/order-matching-engine/internal/orders"
)

// ErrIllegalTransition signals that no (state, event) row matched under the
// no-transition policy: an event with no defined transition out of the
// order's current state. The caller's transaction is rolled back.
var ErrIllegalTransition = fmt.Errorf("statemachine: illegal transition")

// transitionA computes Zone A's next state and entry actions for one event
// against an order currently in status. o is consulted only for its
// OrdType, to decide whether a restored order re-enters the book.
func transitionA(status orders.Status, ev Event, o *orders.Order) (orders.Status, []Action, error) {
	restsInBook := o.OrdType.RestsInBook()

	switch status {
	case orders.StatusRcvdNew:
		switch ev.Kind {
		case EvOrderReceived, EvExternalOrder:
			actions := []Action{execReport(orders.StatusNew, orders.ExecTypeNew), matchOrder()}
			if restsInBook {
				actions = append(actions, addToBook())
			}
			return orders.StatusNew, actions, nil
		case EvRplOrderReceived:
			return orders.StatusPendReplace, []Action{enqueueOrderEvent(ev.ReplID)}, nil
		case EvRecvOrderRejected, EvRecvRplOrderRejected, EvExternalOrderRejected:
			return orders.StatusRejected, []Action{rejectExecReport(orders.StatusRejected, ev.Reason)}, nil
		}

	case orders.StatusPendReplace:
		switch ev.Kind {
		case EvReplace:
			actions := []Action{execReport(orders.StatusNew, orders.ExecTypeNew), matchOrder()}
			if restsInBook {
				actions = append(actions, addToBook())
			}
			return orders.StatusNew, actions, nil
		case EvRplOrderRejected:
			return orders.StatusRejected, []Action{rejectExecReport(orders.StatusRejected, ev.Reason)}, nil
		case EvRplOrderExpired:
			return orders.StatusExpired, []Action{execReport(orders.StatusExpired, orders.ExecTypeExpired)}, nil
		}

	case orders.StatusNew, orders.StatusPartFill:
		switch ev.Kind {
		case EvTradeExecution:
			if ev.Guard { // complete
				return orders.StatusFilled, []Action{tradeExecReport(orders.StatusFilled, ev.Trade), removeFromBook()}, nil
			}
			return orders.StatusPartFill, []Action{tradeExecReport(orders.StatusPartFill, ev.Trade)}, nil
		case EvTradeCrctCncl:
			if ev.Guard { // notExecuted
				actions := []Action{correctExecReport(orders.StatusNew, ev.Correct)}
				if restsInBook {
					actions = append(actions, addToBook(), matchOrder())
				}
				return orders.StatusNew, actions, nil
			}
			return orders.StatusPartFill, []Action{correctExecReport(orders.StatusPartFill, ev.Correct)}, nil
		case EvExpired:
			actions := []Action{execReport(orders.StatusExpired, orders.ExecTypeExpired)}
			if restsInBook {
				actions = append(actions, removeFromBook())
			}
			return orders.StatusExpired, actions, nil
		case EvFinished:
			actions := []Action{execReport(orders.StatusDoneForDay, orders.ExecTypeDoneForDay)}
			if restsInBook {
				actions = append(actions, removeFromBook())
			}
			return orders.StatusDoneForDay, actions, nil
		case EvSuspended:
			actions := []Action{execReport(orders.StatusSuspended, orders.ExecTypeSuspended)}
			if restsInBook {
				actions = append(actions, removeFromBook())
			}
			return orders.StatusSuspended, actions, nil
		case EvOrderRejected:
			actions := []Action{rejectExecReport(orders.StatusRejected, ev.Reason)}
			if restsInBook {
				actions = append(actions, removeFromBook())
			}
			return orders.StatusRejected, actions, nil
		}

	case orders.StatusFilled:
		switch ev.Kind {
		case EvTradeCrctCncl:
			if ev.Guard { // notExecuted: restore to New
				actions := []Action{correctExecReport(orders.StatusNew, ev.Correct)}
				if restsInBook {
					actions = append(actions, addToBook(), matchOrder())
				}
				return orders.StatusNew, actions, nil
			}
			actions := []Action{correctExecReport(orders.StatusPartFill, ev.Correct)}
			if restsInBook {
				actions = append(actions, addToBook(), matchOrder())
			}
			return orders.StatusPartFill, actions, nil
		case EvExpired:
			return orders.StatusExpired, []Action{execReport(orders.StatusExpired, orders.ExecTypeExpired)}, nil
		case EvFinished:
			return orders.StatusDoneForDay, []Action{execReport(orders.StatusDoneForDay, orders.ExecTypeDoneForDay)}, nil
		case EvSuspended:
			return orders.StatusSuspended, []Action{execReport(orders.StatusSuspended, orders.ExecTypeSuspended)}, nil
		case EvOrderRejected:
			return orders.StatusRejected, []Action{rejectExecReport(orders.StatusRejected, ev.Reason)}, nil
		}

	case orders.StatusDoneForDay:
		switch ev.Kind {
		case EvNewDay:
			if ev.Guard { // notExecuted
				actions := []Action{execReport(orders.StatusNew, orders.ExecTypeStatus)}
				if restsInBook {
					actions = append(actions, addToBook(), matchOrder())
				}
				return orders.StatusNew, actions, nil
			}
			actions := []Action{execReport(orders.StatusPartFill, orders.ExecTypeStatus)}
			if restsInBook {
				actions = append(actions, addToBook(), matchOrder())
			}
			return orders.StatusPartFill, actions, nil
		case EvTradeCrctCncl:
			return orders.StatusDoneForDay, []Action{correctExecReport(orders.StatusDoneForDay, ev.Correct)}, nil
		case EvSuspended:
			return orders.StatusSuspended, []Action{execReport(orders.StatusSuspended, orders.ExecTypeSuspended)}, nil
		}

	case orders.StatusSuspended:
		switch ev.Kind {
		case EvContinue:
			if ev.Guard {
				actions := []Action{execReport(orders.StatusNew, orders.ExecTypeStatus)}
				if restsInBook {
					actions = append(actions, addToBook(), matchOrder())
				}
				return orders.StatusNew, actions, nil
			}
			actions := []Action{execReport(orders.StatusPartFill, orders.ExecTypeStatus)}
			if restsInBook {
				actions = append(actions, addToBook(), matchOrder())
			}
			return orders.StatusPartFill, actions, nil
		case EvExpired:
			return orders.StatusExpired, []Action{execReport(orders.StatusExpired, orders.ExecTypeExpired)}, nil
		case EvFinished:
			return orders.StatusDoneForDay, []Action{execReport(orders.StatusDoneForDay, orders.ExecTypeDoneForDay)}, nil
		case EvTradeCrctCncl:
			return orders.StatusSuspended, []Action{correctExecReport(orders.StatusSuspended, ev.Correct)}, nil
		}

	case orders.StatusExpired:
		if ev.Kind == EvTradeCrctCncl {
			return orders.StatusExpired, []Action{correctExecReport(orders.StatusExpired, ev.Correct)}, nil
		}

	case orders.StatusCnclReplaced:
		if ev.Kind == EvTradeCrctCncl {
			return orders.StatusCnclReplaced, []Action{correctExecReport(orders.StatusCnclReplaced, ev.Correct)}, nil
		}
	}

	return status, nil, fmt.Errorf("%w: status=%s event=%d", ErrIllegalTransition, status, ev.Kind)
}
