package taskmanager

import (
	"testing"
	"time"

	"github.com/rishav/order-matching-engine/internal/id"
	"github.com/rishav/order-matching-engine/internal/matching"
	"github.com/rishav/order-matching-engine/internal/orderbook"
	"github.com/rishav/order-matching-engine/internal/orders"
	"github.com/rishav/order-matching-engine/internal/orderstore"
	"github.com/rishav/order-matching-engine/internal/processor"
	"github.com/rishav/order-matching-engine/internal/queue"
	"github.com/rishav/order-matching-engine/internal/refdata"
	"github.com/rishav/order-matching-engine/internal/txmanager"
	"github.com/rishav/order-matching-engine/internal/txn"
	"github.com/shopspring/decimal"
)

func newTestTaskManager(t *testing.T, eventWorkers, txWorkers int) (*TaskManager, *queue.InputQueue, id.Id, *orderbook.Book) {
	t.Helper()
	gen := id.NewGenerator()
	book := orderbook.New(nil)
	book.RegisterInstrument("TEST")
	refStore := refdata.New(gen, nil)
	orderStore := orderstore.New(gen, nil)
	matcher := matching.New(book)
	q := queue.New(64)
	pool := txn.NewScopePool(16)
	txMgr := txmanager.New(nil)

	instrument := refStore.AddInstrument("TEST", "TEST-SEC", "ISIN")

	eventProcs := make([]*processor.Processor, eventWorkers)
	for i := range eventProcs {
		eventProcs[i] = processor.New(gen, orderStore, refStore, book, matcher, q, pool, txMgr)
	}
	txProcs := make([]*processor.Processor, txWorkers)
	for i := range txProcs {
		txProcs[i] = processor.New(gen, orderStore, refStore, book, matcher, q, pool, txMgr)
	}

	tm := New(eventProcs, txProcs, q, txMgr)
	return tm, q, instrument, book
}

func TestTaskManager_DrainsPushedOrderEndToEnd(t *testing.T) {
	tm, q, instrument, book := newTestTaskManager(t, 2, 2)

	o := &orders.Order{
		Symbol:    "TEST",
		Instrument: instrument,
		Side:      orders.SideBuy,
		OrdType:   orders.OrdTypeLimit,
		Price:     decimal.NewFromInt(100),
		OrderQty:  decimal.NewFromInt(5),
		LeavesQty: decimal.NewFromInt(5),
	}
	q.Push("test", queue.Entry{Kind: queue.KindOrder, Order: o})

	if !tm.WaitUntilTransactionsFinished(2 * time.Second) {
		t.Fatal("expected task manager to reach quiescence")
	}

	top, err := book.Top("TEST", orders.SideBuy)
	if err != nil || top == nil || top.OrderID != o.OrderID {
		t.Fatalf("expected order resting in book after drain, err=%v", err)
	}
}

func TestTaskManager_PoolAcquireReleaseAccounting(t *testing.T) {
	gen := id.NewGenerator()
	book := orderbook.New(nil)
	refStore := refdata.New(gen, nil)
	orderStore := orderstore.New(gen, nil)
	matcher := matching.New(book)
	q := queue.New(4)
	pool := txn.NewScopePool(4)
	txMgr := txmanager.New(nil)

	p := processor.New(gen, orderStore, refStore, book, matcher, q, pool, txMgr)
	procPool := NewPool([]*processor.Processor{p})

	if procPool.Available() != 1 || procPool.Total() != 1 {
		t.Fatalf("expected pool of 1 available, got available=%d total=%d", procPool.Available(), procPool.Total())
	}

	got, ok := procPool.TryAcquire()
	if !ok || got != p {
		t.Fatal("expected to acquire the sole processor")
	}
	if procPool.Available() != 0 {
		t.Fatalf("expected 0 available after acquire, got %d", procPool.Available())
	}
	if _, ok := procPool.TryAcquire(); ok {
		t.Fatal("expected second acquire to fail while pool is exhausted")
	}

	procPool.Release(got)
	if procPool.Available() != 1 {
		t.Fatalf("expected 1 available after release, got %d", procPool.Available())
	}
}

func TestTaskManager_WaitUntilTransactionsFinishedTimesOutWhenStuck(t *testing.T) {
	tm, _, _, _ := newTestTaskManager(t, 1, 1)

	// Artificially mark the event pool busy to simulate a stuck worker, so
	// quiescence never reports true before the short timeout elapses.
	if _, ok := tm.EventPool.TryAcquire(); !ok {
		t.Fatal("expected to acquire the only event processor")
	}

	if tm.WaitUntilTransactionsFinished(50 * time.Millisecond) {
		t.Fatal("expected timeout while the event pool is held busy")
	}
}
