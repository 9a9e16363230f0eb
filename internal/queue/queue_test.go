package queue

import (
	"sync/atomic"
	"testing"
)

func TestInputQueue_PushNotifiesObserver(t *testing.T) {
	q := New(4)
	var notified int32
	q.Attach(ObserverFunc(func() { atomic.AddInt32(&notified, 1) }))

	q.Push("session-1", Entry{Kind: KindOrder})
	if atomic.LoadInt32(&notified) != 1 {
		t.Fatalf("expected observer notified once, got %d", notified)
	}
	if q.Size() != 1 {
		t.Fatalf("expected size 1, got %d", q.Size())
	}
}

func TestInputQueue_TopThenPopDrainsPendingSlot(t *testing.T) {
	q := New(4)
	q.Push("s", Entry{Kind: KindOrderCancel})

	var got Entry
	ok := q.Top(func(e Entry) { got = e })
	if !ok || got.Kind != KindOrderCancel {
		t.Fatalf("expected to peek OrderCancel entry, ok=%v got=%v", ok, got.Kind)
	}
	if q.Size() != 1 {
		t.Fatal("expected Top to not decrement size")
	}

	// Top again before Pop returns the same pending entry.
	var got2 Entry
	q.Top(func(e Entry) { got2 = e })
	if got2.Kind != KindOrderCancel {
		t.Fatal("expected repeated Top to redeliver the pending entry")
	}

	q.Pop()
	if q.Size() != 0 {
		t.Fatalf("expected size 0 after Pop, got %d", q.Size())
	}
}

func TestInputQueue_PopWithHandlerPopsAfterDispatch(t *testing.T) {
	q := New(4)
	q.Push("s", Entry{Kind: KindTimer, Timer: TimerDayEnd})

	var seen Entry
	ok := q.PopWithHandler(func(e Entry) { seen = e })
	if !ok || seen.Timer != TimerDayEnd {
		t.Fatal("expected dispatch of the timer entry")
	}
	if q.Size() != 0 {
		t.Fatalf("expected size 0 after PopWithHandler, got %d", q.Size())
	}
}

func TestInputQueue_EmptyTopReturnsFalse(t *testing.T) {
	q := New(1)
	if q.Top(func(Entry) {}) {
		t.Fatal("expected Top on empty queue to return false")
	}
}
