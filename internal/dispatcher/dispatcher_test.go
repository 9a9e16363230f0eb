package dispatcher

import (
	"path/filepath"
	"testing"

	"github.com/rishav/order-matching-engine/internal/durablelog"
	"github.com/rishav/order-matching-engine/internal/id"
	"github.com/rishav/order-matching-engine/internal/orders"
	"github.com/rishav/order-matching-engine/internal/orderstore"
	"github.com/rishav/order-matching-engine/internal/refdata"
	"github.com/shopspring/decimal"
)

func openTestLog(t *testing.T) *durablelog.Log {
	t.Helper()
	log, err := durablelog.Open(filepath.Join(t.TempDir(), "recovery.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { log.Close() })
	return log
}

func TestDispatcher_PersistOrderThenRecoverRestoresBook(t *testing.T) {
	log := openTestLog(t)
	gen := id.NewGenerator()

	disp := New(log, nil)
	refStore := refdata.New(gen, disp.RefPersist)
	disp.SetRefStore(refStore)
	orderStore := orderstore.New(gen, disp.StorePersist)

	instrument := refStore.AddInstrument("AAPL", "SEC1", "ISIN")

	o := &orders.Order{
		Symbol:     "AAPL",
		Instrument: instrument,
		Side:       orders.SideBuy,
		OrdType:    orders.OrdTypeLimit,
		Status:     orders.StatusNew,
		Price:      decimal.NewFromInt(10),
		OrderQty:   decimal.NewFromInt(5),
		LeavesQty:  decimal.NewFromInt(5),
		CumQty:     decimal.Zero,
	}
	if err := orderStore.SaveOrder(o); err != nil {
		t.Fatalf("SaveOrder: %v", err)
	}
	disp.PersistOrder(o) // simulate a later exec-report re-persist

	newGen := id.NewGenerator()
	newRefStore := refdata.New(newGen, nil)
	newOrderStore := orderstore.New(newGen, nil)

	recovery, err := TwoPhaseRecover(log, newGen, newRefStore, newOrderStore)
	if err != nil {
		t.Fatalf("TwoPhaseRecover: %v", err)
	}
	if recovery.Skipped != 0 {
		t.Fatalf("expected no skipped records, got %d", recovery.Skipped)
	}

	if _, ok := newRefStore.InstrumentBySymbol("AAPL"); !ok {
		t.Fatal("expected AAPL instrument restored")
	}
	restored, ok := newOrderStore.LocateByOrderID(o.OrderID)
	if !ok {
		t.Fatal("expected order restored into order store")
	}
	if !restored.Price.Equal(o.Price) || !restored.LeavesQty.Equal(o.LeavesQty) {
		t.Fatalf("expected restored order fields to match, got %+v", restored)
	}
	top, err := recovery.Book.Top("AAPL", orders.SideBuy)
	if err != nil || top.OrderID != o.OrderID {
		t.Fatalf("expected resting order restored into book, err=%v", err)
	}
}

func TestDispatcher_FilledOrderDoesNotReenterBook(t *testing.T) {
	log := openTestLog(t)
	gen := id.NewGenerator()

	disp := New(log, nil)
	refStore := refdata.New(gen, disp.RefPersist)
	disp.SetRefStore(refStore)
	orderStore := orderstore.New(gen, disp.StorePersist)

	instrument := refStore.AddInstrument("MSFT", "SEC2", "ISIN")
	o := &orders.Order{
		Symbol:     "MSFT",
		Instrument: instrument,
		Side:       orders.SideSell,
		OrdType:    orders.OrdTypeLimit,
		Status:     orders.StatusNew,
		Price:      decimal.NewFromInt(20),
		OrderQty:   decimal.NewFromInt(5),
		LeavesQty:  decimal.NewFromInt(5),
	}
	if err := orderStore.SaveOrder(o); err != nil {
		t.Fatalf("SaveOrder: %v", err)
	}

	o.Status = orders.StatusFilled
	o.CumQty = o.OrderQty
	o.LeavesQty = decimal.Zero
	disp.PersistOrder(o)

	newGen := id.NewGenerator()
	newRefStore := refdata.New(newGen, nil)
	newOrderStore := orderstore.New(newGen, nil)
	recovery, err := TwoPhaseRecover(log, newGen, newRefStore, newOrderStore)
	if err != nil {
		t.Fatalf("TwoPhaseRecover: %v", err)
	}

	if recovery.Book.HasLiquidity("MSFT", orders.SideSell) {
		t.Fatal("expected filled order not to re-enter the book")
	}
	if _, ok := newOrderStore.LocateByOrderID(o.OrderID); !ok {
		t.Fatal("expected filled order still locatable by id")
	}
}

func TestDispatcher_GeneratorAdvancesPastRecoveredCounters(t *testing.T) {
	log := openTestLog(t)
	gen := id.NewGenerator()
	disp := New(log, nil)
	refStore := refdata.New(gen, disp.RefPersist)
	disp.SetRefStore(refStore)

	var lastID id.Id
	for i := 0; i < 5; i++ {
		lastID = refStore.AddInstrument(string(rune('A'+i)), "SEC", "ISIN")
	}

	newGen := id.NewGenerator()
	newRefStore := refdata.New(newGen, nil)
	newOrderStore := orderstore.New(newGen, nil)
	if _, err := TwoPhaseRecover(log, newGen, newRefStore, newOrderStore); err != nil {
		t.Fatalf("TwoPhaseRecover: %v", err)
	}

	next := newGen.Next()
	if next.Counter <= lastID.Counter {
		t.Fatalf("expected generator to advance past %d, got %d", lastID.Counter, next.Counter)
	}
}
