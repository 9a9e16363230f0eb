package statemachine

import "github.com/rishav/order-matching-engine/internal/orders"

// Machine drives one order's two-zone state machine. It holds
// no per-order state itself: Zone A/B state lives on the order
// (o.Status, o.StateMachinePersistence) so the machine can be restored
// before processing any event,.
type Machine struct{}

// New constructs a stateless Machine; a single instance is safe to share
// across orders since Dispatch takes the order explicitly.
func New() *Machine {
	return &Machine{}
}

// Restore loads Zone A/B state from the order's persisted tuple so the
// machine is in the right state before Dispatch runs.
func (m *Machine) Restore(o *orders.Order) (zoneA orders.Status, zoneB ZoneB) {
	return orders.Status(o.StateMachinePersistence.Zone1), ZoneB(o.StateMachinePersistence.Zone2)
}

// Dispatch delivers ev to both zones of o's state machine. Zero or one
// transition fires per zone. In test mode (ev.TestOnly) only
// the state transition occurs: no actions are appended and the guard
// result is taken verbatim from ev.Guard, letting a test harness exercise
// the graph in isolation.
//
// On success, o.Status and o.StateMachinePersistence are updated in place
// and the combined action list (Zone A first, then Zone B) is returned for
// the caller to translate into transaction operations. On failure neither
// zone's state is mutated, and the caller should trigger a full rollback.
func (m *Machine) Dispatch(o *orders.Order, ev Event) ([]Action, error) {
	currentA, currentB := m.Restore(o)

	nextA, actionsA, errA := dispatchZoneA(currentA, ev, o)
	if errA != nil {
		return nil, errA
	}

	nextB, actionsB, errB := dispatchZoneB(currentB, ev, o)
	if errB != nil {
		return nil, errB
	}

	// Zone B reaching its terminal state cancels or replaces the order
	// outright, regardless of what Zone A independently computed for this
	// event (cancel/replace-completion events have no Zone A row at all).
	if nextB == ZoneBCnclReplaced {
		nextA = orders.StatusCnclReplaced
	}

	o.Status = nextA
	o.StateMachinePersistence.Zone1 = int32(nextA)
	o.StateMachinePersistence.Zone2 = int32(nextB)

	if ev.TestOnly {
		return nil, nil
	}
	return append(actionsA, actionsB...), nil
}

// dispatchZoneA runs Zone A's transition for ev, or is a no-op (no state
// change, no actions, no error) if ev does not target Zone A at all — not
// every event in list has a Zone A row.
func dispatchZoneA(state orders.Status, ev Event, o *orders.Order) (orders.Status, []Action, error) {
	if !zoneAEvent(ev.Kind) {
		return state, nil, nil
	}
	return transitionA(state, ev, o)
}

// dispatchZoneB runs Zone B's transition for ev, or is a no-op if ev does
// not target Zone B.
func dispatchZoneB(state ZoneB, ev Event, o *orders.Order) (ZoneB, []Action, error) {
	if !zoneBEvent(ev.Kind) {
		return state, nil, nil
	}
	return transitionB(state, ev, o)
}

func zoneAEvent(kind EventKind) bool {
	switch kind {
	case EvCancelReceived, EvReplaceReceived, EvInternalCancel, EvExecCancel, EvExecReplace, EvCancelRejected, EvReplaceRejected, EvReplacedRejected:
		return false
	default:
		return true
	}
}

func zoneBEvent(kind EventKind) bool {
	switch kind {
	case EvCancelReceived, EvReplaceReceived, EvInternalCancel, EvExecCancel, EvExecReplace, EvCancelRejected, EvReplaceRejected, EvReplacedRejected:
		return true
	default:
		return false
	}
}
