package statemachine

import (
	"errors"
	"testing"

	"github.com/rishav/order-matching-engine/internal/orders"
	"github.com/shopspring/decimal"
)

func newTestOrder(ordType orders.OrdType) *orders.Order {
	return &orders.Order{
		OrdType:   ordType,
		OrderQty:  decimal.NewFromInt(10),
		LeavesQty: decimal.NewFromInt(10),
		CumQty:    decimal.Zero,
	}
}

func TestMachine_AcceptNewLimitOrder(t *testing.T) {
	m := New()
	o := newTestOrder(orders.OrdTypeLimit)

	actions, err := m.Dispatch(o, Event{Kind: EvOrderReceived})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Status != orders.StatusNew {
		t.Fatalf("expected status New, got %s", o.Status)
	}

	hasAddToBook := false
	for _, a := range actions {
		if a.Kind == ActionAddToBook {
			hasAddToBook = true
		}
	}
	if !hasAddToBook {
		t.Fatal("expected a LIMIT order to schedule AddToBook on acceptance")
	}
}

func TestMachine_MarketOrderDoesNotAddToBook(t *testing.T) {
	m := New()
	o := newTestOrder(orders.OrdTypeMarket)

	actions, err := m.Dispatch(o, Event{Kind: EvOrderReceived})
	if err != nil {
		t.Fatal(err)
	}
	for _, a := range actions {
		if a.Kind == ActionAddToBook {
			t.Fatal("expected MARKET order to never schedule AddToBook")
		}
	}
}

func TestMachine_TradeExecutionPartialThenComplete(t *testing.T) {
	m := New()
	o := newTestOrder(orders.OrdTypeLimit)
	if _, err := m.Dispatch(o, Event{Kind: EvOrderReceived}); err != nil {
		t.Fatal(err)
	}

	if _, err := m.Dispatch(o, Event{Kind: EvTradeExecution, Guard: false, Trade: &orders.Fill{}}); err != nil {
		t.Fatal(err)
	}
	if o.Status != orders.StatusPartFill {
		t.Fatalf("expected PartFill, got %s", o.Status)
	}

	if _, err := m.Dispatch(o, Event{Kind: EvTradeExecution, Guard: true, Trade: &orders.Fill{}}); err != nil {
		t.Fatal(err)
	}
	if o.Status != orders.StatusFilled {
		t.Fatalf("expected Filled, got %s", o.Status)
	}
}

func TestMachine_IllegalTransitionDoesNotMutateState(t *testing.T) {
	m := New()
	o := newTestOrder(orders.OrdTypeLimit)
	// Rcvd_New has no row for TradeExecution.
	_, err := m.Dispatch(o, Event{Kind: EvTradeExecution, Guard: true})
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
	if o.Status != orders.StatusRcvdNew {
		t.Fatalf("expected status to remain Rcvd_New after illegal transition, got %s", o.Status)
	}
}

func TestMachine_TestModeSkipsActionsAndUsesExpectedGuard(t *testing.T) {
	m := New()
	o := newTestOrder(orders.OrdTypeLimit)
	if _, err := m.Dispatch(o, Event{Kind: EvOrderReceived}); err != nil {
		t.Fatal(err)
	}

	actions, err := m.Dispatch(o, Event{Kind: EvTradeExecution, Guard: true, TestOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if actions != nil {
		t.Fatalf("expected no actions in test mode, got %v", actions)
	}
	if o.Status != orders.StatusFilled {
		t.Fatalf("expected test mode to still apply the transition, got %s", o.Status)
	}
}

func TestMachine_CancelReceivedRequiresAcceptableGuard(t *testing.T) {
	m := New()
	o := newTestOrder(orders.OrdTypeLimit)
	if _, err := m.Dispatch(o, Event{Kind: EvOrderReceived}); err != nil {
		t.Fatal(err)
	}

	_, err := m.Dispatch(o, Event{Kind: EvCancelReceived, Guard: false})
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition when acceptable guard fails, got %v", err)
	}

	actions, err := m.Dispatch(o, Event{Kind: EvCancelReceived, Guard: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(actions) == 0 {
		t.Fatal("expected pending-cancel exec report action")
	}
}

func TestMachine_FullCancelLifecycle(t *testing.T) {
	m := New()
	o := newTestOrder(orders.OrdTypeLimit)
	if _, err := m.Dispatch(o, Event{Kind: EvOrderReceived}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Dispatch(o, Event{Kind: EvCancelReceived, Guard: true}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Dispatch(o, Event{Kind: EvExecCancel}); err != nil {
		t.Fatal(err)
	}
	_, zoneB := m.Restore(o)
	if zoneB != ZoneBCnclReplaced {
		t.Fatalf("expected zone B CnclReplaced after ExecCancel, got %s", zoneB)
	}
}
