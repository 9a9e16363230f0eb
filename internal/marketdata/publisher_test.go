package marketdata

import (
	"testing"
	"time"

	"github.com/rishav/order-matching-engine/internal/orderbook"
	"github.com/rishav/order-matching-engine/internal/orders"
	"github.com/shopspring/decimal"
)

func waitForL1(t *testing.T, ch <-chan L1Quote) L1Quote {
	t.Helper()
	select {
	case q := <-ch:
		return q
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for L1 quote")
		return L1Quote{}
	}
}

func TestPublisher_PublishSnapshotDerivesTopOfBook(t *testing.T) {
	pub := NewPublisher(4)
	l1 := pub.SubscribeL1("AAPL")
	l2 := pub.SubscribeL2("AAPL")

	snap := orderbook.Snapshot{
		Symbol: "AAPL",
		Bids:   []orderbook.DepthLevel{{Price: decimal.NewFromInt(100), TotalLeaves: decimal.NewFromInt(10), OrderCount: 2}},
		Asks:   []orderbook.DepthLevel{{Price: decimal.NewFromInt(101), TotalLeaves: decimal.NewFromInt(5), OrderCount: 1}},
	}
	pub.PublishSnapshot(snap, 123)

	quote := waitForL1(t, l1)
	if !quote.BidPrice.Equal(decimal.NewFromInt(100)) || !quote.AskPrice.Equal(decimal.NewFromInt(101)) {
		t.Fatalf("expected derived top-of-book quote, got %+v", quote)
	}

	select {
	case depth := <-l2:
		if len(depth.Snapshot.Bids) != 1 || len(depth.Snapshot.Asks) != 1 {
			t.Fatalf("expected full depth forwarded, got %+v", depth)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for L2 depth")
	}
}

func TestPublisher_AllL1SubscriberSeesEverySymbol(t *testing.T) {
	pub := NewPublisher(4)
	all := pub.SubscribeAllL1()

	pub.PublishSnapshot(orderbook.Snapshot{Symbol: "AAPL"}, 1)
	pub.PublishSnapshot(orderbook.Snapshot{Symbol: "MSFT"}, 2)

	first := waitForL1(t, all)
	second := waitForL1(t, all)
	seen := map[string]bool{first.Symbol: true, second.Symbol: true}
	if !seen["AAPL"] || !seen["MSFT"] {
		t.Fatalf("expected both symbols observed, got %v", seen)
	}
}

func TestPublisher_PublishTradeRoutesBySymbol(t *testing.T) {
	pub := NewPublisher(4)
	aapl := pub.SubscribeTrades("AAPL")
	msft := pub.SubscribeTrades("MSFT")

	pub.PublishTrade(orders.Trade{Symbol: "AAPL", Price: decimal.NewFromInt(100), Quantity: decimal.NewFromInt(1)})

	select {
	case tr := <-aapl:
		if tr.Symbol != "AAPL" {
			t.Fatalf("expected AAPL trade, got %+v", tr)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for AAPL trade")
	}

	select {
	case tr := <-msft:
		t.Fatalf("expected no trade on MSFT subscriber, got %+v", tr)
	default:
	}
}

func TestPublisher_NonBlockingPublishDropsWhenSubscriberFull(t *testing.T) {
	pub := NewPublisher(1)
	ch := pub.SubscribeTrades("AAPL")

	pub.PublishTrade(orders.Trade{Symbol: "AAPL"})
	pub.PublishTrade(orders.Trade{Symbol: "AAPL"}) // channel now full; must not block

	<-ch // drain the one buffered trade
}

func TestPublisher_UnsubscribeL1ClosesChannel(t *testing.T) {
	pub := NewPublisher(1)
	ch := pub.SubscribeL1("AAPL")
	pub.UnsubscribeL1("AAPL", ch)

	if _, ok := <-ch; ok {
		t.Fatal("expected channel closed after unsubscribe")
	}
}

func TestPublisher_CloseClosesAllSubscriptions(t *testing.T) {
	pub := NewPublisher(1)
	l1 := pub.SubscribeL1("AAPL")
	trades := pub.SubscribeTrades("AAPL")

	pub.Close()

	if _, ok := <-l1; ok {
		t.Fatal("expected l1 channel closed")
	}
	if _, ok := <-trades; ok {
		t.Fatal("expected trades channel closed")
	}
}
