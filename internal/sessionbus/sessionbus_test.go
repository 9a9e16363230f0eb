package sessionbus

import (
	"testing"

	"github.com/rishav/order-matching-engine/internal/id"
	"github.com/rishav/order-matching-engine/internal/orderbook"
	"github.com/rishav/order-matching-engine/internal/orders"
)

func TestBus_PublishBookSnapshotNotifiesAllObservers(t *testing.T) {
	bus := New()
	var got1, got2 orderbook.Snapshot
	bus.AddBookSnapshotObserver(BookSnapshotObserverFunc(func(s orderbook.Snapshot) { got1 = s }))
	bus.AddBookSnapshotObserver(BookSnapshotObserverFunc(func(s orderbook.Snapshot) { got2 = s }))

	bus.PublishBookSnapshot(orderbook.Snapshot{Symbol: "AAPL"})

	if got1.Symbol != "AAPL" || got2.Symbol != "AAPL" {
		t.Fatalf("expected both observers notified, got %+v %+v", got1, got2)
	}
}

func TestBus_PublishExecReportNotifiesObservers(t *testing.T) {
	bus := New()
	var gotReport *orders.Execution
	var gotOrder *orders.Order
	bus.AddExecReportObserver(ExecReportObserverFunc(func(r *orders.Execution, o *orders.Order) {
		gotReport, gotOrder = r, o
	}))

	report := &orders.Execution{ExecID: id.Id{Counter: 1, Date: 1}}
	order := &orders.Order{OrderID: id.Id{Counter: 2, Date: 1}}
	bus.PublishExecReport(report, order)

	if gotReport != report || gotOrder != order {
		t.Fatal("expected observer to receive the published report and order")
	}
}

func TestBus_PanickingObserverDoesNotBlockOthers(t *testing.T) {
	bus := New()
	notified := false
	bus.AddBookSnapshotObserver(BookSnapshotObserverFunc(func(orderbook.Snapshot) {
		panic("boom")
	}))
	bus.AddBookSnapshotObserver(BookSnapshotObserverFunc(func(orderbook.Snapshot) {
		notified = true
	}))

	bus.PublishBookSnapshot(orderbook.Snapshot{Symbol: "MSFT"})

	if !notified {
		t.Fatal("expected second observer to still be notified after the first panicked")
	}
}
