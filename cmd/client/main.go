// Command client runs a scripted in-process demonstration against a
// freshly constructed engine.Server: it submits resting liquidity, then
// crosses it with an aggressive order, and prints the resulting book and
// fill outcome to stdout. There is no wire layer to drive, so this talks
// directly to engine.Server's methods instead of issuing requests over a
// socket.
package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/rishav/order-matching-engine/internal/engine"
	"github.com/rishav/order-matching-engine/internal/id"
	"github.com/rishav/order-matching-engine/internal/orders"
	"github.com/rishav/order-matching-engine/internal/refdata"
	"github.com/rishav/order-matching-engine/internal/telemetry"
	"github.com/shopspring/decimal"
)

func main() {
	dataDir := flag.String("data-dir", "./data-demo", "directory for the demo's durable log")
	flag.Parse()

	telemetry.InitLogger(false)

	cfg := engine.DefaultConfig()
	cfg.DataDir = *dataDir
	cfg.Workers = 2

	srv, err := engine.New(cfg)
	if err != nil {
		fmt.Printf("failed to start engine: %v\n", err)
		return
	}
	defer srv.Shutdown(context.Background())

	symbol := "AAPL"
	instrument, ok := srv.RefStore.InstrumentBySymbol(symbol)
	if !ok {
		fmt.Printf("instrument %s not seeded\n", symbol)
		return
	}
	mm1 := srv.RefStore.AddAccount("MM1", "Summit Partners", refdata.AccountTypeAgency)
	trader1 := srv.RefStore.AddAccount("TRADER1", "Apex Capital", refdata.AccountTypePrincipal)

	fmt.Println("=== Order Matching Engine Demo ===")

	fmt.Println("\n1. Market maker (MM1) posts resting liquidity:")
	postLimit(srv, symbol, instrument, mm1, orders.SideBuy, "149.00", 100)
	postLimit(srv, symbol, instrument, mm1, orders.SideBuy, "148.50", 200)
	postLimit(srv, symbol, instrument, mm1, orders.SideSell, "151.00", 100)
	postLimit(srv, symbol, instrument, mm1, orders.SideSell, "151.50", 200)

	srv.WaitUntilIdle(2 * time.Second)
	printBook(srv, symbol)

	fmt.Println("\n2. Trader (TRADER1) crosses the book with a marketable limit order:")
	orderID := postLimit(srv, symbol, instrument, trader1, orders.SideBuy, "151.00", 150)
	srv.WaitUntilIdle(2 * time.Second)

	if o, found := srv.LookupOrder(orderID); found {
		fmt.Printf("  order %s status=%s filled=%s leaves=%s\n", o.OrderID, o.Status, o.CumQty, o.LeavesQty)
	}

	fmt.Println("\n3. Order book after the trade:")
	printBook(srv, symbol)

	fmt.Println("\n=== Demo Complete ===")
}

func postLimit(srv *engine.Server, symbol string, instrument, account id.Id, side orders.Side, price string, qty int64) id.Id {
	p, _ := decimal.NewFromString(price)
	o := &orders.Order{
		Symbol:     symbol,
		Instrument: instrument,
		Account:    account,
		Side:       side,
		OrdType:    orders.OrdTypeLimit,
		Price:      p,
		OrderQty:   decimal.NewFromInt(qty),
	}
	return srv.SubmitOrder(o)
}

func printBook(srv *engine.Server, symbol string) {
	snap, err := srv.Book.Snapshot(symbol)
	if err != nil {
		fmt.Printf("  error: %v\n", err)
		return
	}
	fmt.Println("  ASKS:")
	for i := len(snap.Asks) - 1; i >= 0; i-- {
		lvl := snap.Asks[i]
		fmt.Printf("    %s: %s shares (%d orders)\n", lvl.Price, lvl.TotalLeaves, lvl.OrderCount)
	}
	fmt.Println("  BIDS:")
	for _, lvl := range snap.Bids {
		fmt.Printf("    %s: %s shares (%d orders)\n", lvl.Price, lvl.TotalLeaves, lvl.OrderCount)
	}
}
