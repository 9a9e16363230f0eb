package refdata

import (
	"testing"

	"github.com/rishav/order-matching-engine/internal/id"
)

func TestStore_AddInstrumentIdempotent(t *testing.T) {
	s := New(id.NewGenerator(), nil)

	first := s.AddInstrument("AAPL", "037833100", "CUSIP")
	second := s.AddInstrument("AAPL", "037833100", "CUSIP")
	if !first.Equal(second) {
		t.Fatalf("expected re-registering a symbol to return the same id, got %v and %v", first, second)
	}
	if !s.HasInstrument(first) {
		t.Fatal("expected instrument to be present")
	}
}

func TestStore_InstrumentBySymbol(t *testing.T) {
	s := New(id.NewGenerator(), nil)
	want := s.AddInstrument("MSFT", "", "")

	got, ok := s.InstrumentBySymbol("MSFT")
	if !ok {
		t.Fatal("expected symbol to resolve")
	}
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	if _, ok := s.InstrumentBySymbol("UNKNOWN"); ok {
		t.Fatal("expected unknown symbol to not resolve")
	}
}

func TestStore_ExecutionListAppend(t *testing.T) {
	s := New(id.NewGenerator(), nil)
	orderID := s.gen.Next()
	listID := s.NewExecutionList(orderID)

	exec1 := s.gen.Next()
	exec2 := s.gen.Next()
	s.AppendExecution(listID, exec1)
	s.AppendExecution(listID, exec2)

	got := s.ExecutionList(listID).ExecIDs()
	if len(got) != 2 || !got[0].Equal(exec1) || !got[1].Equal(exec2) {
		t.Fatalf("expected [%v %v], got %v", exec1, exec2, got)
	}
}

func TestStore_UnknownInstrumentPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unknown instrument lookup")
		}
	}()
	s := New(id.NewGenerator(), nil)
	s.Instrument(id.Id{Counter: 999, Date: 1})
}

func TestStore_PersistFanOut(t *testing.T) {
	var gotKind string
	s := New(id.NewGenerator(), func(kind string, entityID id.Id, entity interface{}) {
		gotKind = kind
	})
	s.AddAccount("ACC1", "FIRM1", AccountTypeAgency)
	if gotKind != "account" {
		t.Fatalf("expected persist fan-out for account insert, got %q", gotKind)
	}
}
