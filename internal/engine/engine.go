// Package engine wires every component of the order matching process
// together: identifier generation, reference and order storage, the
// order book and matcher, the state machine, transaction scopes and the
// transaction manager, the input queue, the processor/task-manager
// worker pools, and the durable log + dispatcher recovery path.
// SubmitOrder, CancelOrder, ReplaceOrder, and friends push onto the
// InputQueue directly, since no wire layer sits between a caller and the
// engine — cmd/server and cmd/client talk to this package directly
// instead of over a socket.
package engine

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/rishav/order-matching-engine/internal/dispatcher"
	"github.com/rishav/order-matching-engine/internal/durablelog"
	"github.com/rishav/order-matching-engine/internal/id"
	"github.com/rishav/order-matching-engine/internal/marketdata"
	"github.com/rishav/order-matching-engine/internal/matching"
	"github.com/rishav/order-matching-engine/internal/orderbook"
	"github.com/rishav/order-matching-engine/internal/orders"
	"github.com/rishav/order-matching-engine/internal/orderstore"
	"github.com/rishav/order-matching-engine/internal/processor"
	"github.com/rishav/order-matching-engine/internal/queue"
	"github.com/rishav/order-matching-engine/internal/refdata"
	"github.com/rishav/order-matching-engine/internal/sessionbus"
	"github.com/rishav/order-matching-engine/internal/taskmanager"
	"github.com/rishav/order-matching-engine/internal/telemetry"
	"github.com/rishav/order-matching-engine/internal/txmanager"
	"github.com/rishav/order-matching-engine/internal/txn"
	"github.com/rs/zerolog/log"
)

// Config holds the process's startup knobs.
type Config struct {
	// Port is carried for parity with the CLI surface but bound to no
	// listener: the WS/session layer that would serve it is out of
	// scope.
	Port int

	DataDir string

	// Workers sizes both processor pools equally. Zero means "auto":
	// runtime.NumCPU() workers per pool.
	Workers int

	QueueCapacity int
	ScopePoolSize int

	Symbols []string
}

// DefaultConfig returns the engine's out-of-the-box configuration.
func DefaultConfig() Config {
	return Config{
		Port:          8080,
		DataDir:       "./data",
		Workers:       0,
		QueueCapacity: 4096,
		ScopePoolSize: 1024,
		Symbols:       []string{"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA"},
	}
}

// Server is the fully wired engine process: every core matching component
// plus the outer observability/distribution layers (telemetry, sessionbus,
// marketdata).
type Server struct {
	cfg Config

	Gen        *id.Generator
	RefStore   *refdata.Store
	OrderStore *orderstore.Store
	Book       *orderbook.Book
	Matcher    *matching.Engine
	InputQueue *queue.InputQueue
	ScopePool  *txn.ScopePool
	TxManager  *txmanager.Manager
	TaskMgr    *taskmanager.TaskManager

	Log        *durablelog.Log
	Dispatcher *dispatcher.Dispatcher

	Bus       *sessionbus.Bus
	Publisher *marketdata.Publisher
	Metrics   *telemetry.Metrics

	RecoverySkipped int
}

// New builds a Server: opens the durable log, recovers prior state,
// constructs every in-memory component around the recovered book, seeds
// each default instrument and account not already present, and wires the
// processor/task-manager worker pools. It does not start accepting
// traffic; callers push through the returned Server's methods directly.
func New(cfg Config) (*Server, error) {
	logPath := cfg.DataDir + "/durable.db"
	dlog, err := durablelog.Open(logPath)
	if err != nil {
		return nil, fmt.Errorf("engine: open durable log: %w", err)
	}

	gen := id.NewGenerator()
	disp := dispatcher.New(dlog, nil)
	refStore := refdata.New(gen, disp.RefPersist)
	disp.SetRefStore(refStore)
	orderStore := orderstore.New(gen, disp.StorePersist)

	recovery, err := dispatcher.TwoPhaseRecover(dlog, gen, refStore, orderStore)
	if err != nil {
		dlog.Close()
		return nil, fmt.Errorf("engine: recover durable log: %w", err)
	}
	if recovery.Skipped > 0 {
		log.Warn().Int("skipped", recovery.Skipped).Msg("durable log recovery skipped malformed records")
	}

	book := recovery.Book
	refStore.Seed(defaultInstruments(cfg.Symbols), defaultAccounts())
	for _, symbol := range cfg.Symbols {
		if _, err := book.Snapshot(symbol); err != nil {
			book.RegisterInstrument(symbol)
		}
	}

	matcher := matching.New(book)
	inputQueue := queue.New(cfg.QueueCapacity)
	scopePool := txn.NewScopePool(cfg.ScopePoolSize)
	txManager := txmanager.New(nil)

	bus := sessionbus.New()
	publisher := marketdata.NewPublisher(1000)
	metrics := telemetry.NewMetrics()

	s := &Server{
		cfg:             cfg,
		Gen:             gen,
		RefStore:        refStore,
		OrderStore:      orderStore,
		Book:            book,
		Matcher:         matcher,
		InputQueue:      inputQueue,
		ScopePool:       scopePool,
		TxManager:       txManager,
		Log:             dlog,
		Dispatcher:      disp,
		Bus:             bus,
		Publisher:       publisher,
		Metrics:         metrics,
		RecoverySkipped: recovery.Skipped,
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	eventProcs := make([]*processor.Processor, workers)
	txProcs := make([]*processor.Processor, workers)
	for i := 0; i < workers; i++ {
		eventProcs[i] = s.newProcessor()
		txProcs[i] = s.newProcessor()
	}
	s.TaskMgr = taskmanager.New(eventProcs, txProcs, inputQueue, txManager)

	return s, nil
}

func (s *Server) newProcessor() *processor.Processor {
	p := processor.New(s.Gen, s.OrderStore, s.RefStore, s.Book, s.Matcher, s.InputQueue, s.ScopePool, s.TxManager)
	p.EmitExecReport = s.emitExecReport
	p.EmitCancelReject = s.emitCancelReject
	return p
}

// emitExecReport is the outbound ExecReportEvent path: it
// re-persists the order's latest snapshot, fans the report out over the
// session bus, and republishes the book's top-of-book/depth for the
// order's symbol.
func (s *Server) emitExecReport(o *orders.Order, exec *orders.Execution) {
	outcome := "accepted"
	switch exec.Type {
	case orders.ExecTypeReject:
		outcome = "rejected"
	case orders.ExecTypeCancel:
		outcome = "canceled"
	case orders.ExecTypeTrade:
		if o.IsFilled() {
			outcome = "filled"
		} else {
			outcome = "partial_fill"
		}
	}
	s.Metrics.OrdersProcessed.WithLabelValues(outcome).Inc()

	s.Dispatcher.PersistOrder(o)
	s.Bus.PublishExecReport(exec, o)

	if exec.Type == orders.ExecTypeTrade {
		s.Metrics.TradesExecuted.Inc()
		trade := orders.Trade{
			Symbol:    o.Symbol,
			Price:     exec.LastPx,
			Quantity:  exec.LastQty,
			Timestamp: exec.TransactTime,
		}
		if o.Side == orders.SideBuy {
			trade.BuyOrderID = o.OrderID
		} else {
			trade.SellOrderID = o.OrderID
		}
		s.Publisher.PublishTrade(trade)
	}

	if snap, err := s.Book.Snapshot(o.Symbol); err == nil {
		s.Bus.PublishBookSnapshot(snap)
		s.Publisher.PublishSnapshot(snap, exec.TransactTime)
	}
}

func (s *Server) emitCancelReject(o *orders.Order, status orders.Status) {
	log.Info().Str("order_id", o.OrderID.String()).Str("status", status.String()).Msg("cancel/business reject")
}

// SubmitOrder mints an OrderID, stamps creation time, and pushes the order
// onto the input queue (OrderEvent; ownership transfers to the
// engine). It returns immediately with the minted id; the caller observes
// outcomes via the session bus or by polling OrderStore/WaitUntilIdle.
func (s *Server) SubmitOrder(o *orders.Order) id.Id {
	o.OrderID = s.Gen.Next()
	o.CreationTime = time.Now().UnixNano()
	o.LastUpdateTime = o.CreationTime
	o.LeavesQty = o.OrderQty
	correlationID := uuid.NewString()
	log.Debug().Str("correlation_id", correlationID).Str("order_id", o.OrderID.String()).Str("symbol", o.Symbol).Msg("order submitted")
	s.InputQueue.Push("client", queue.Entry{Kind: queue.KindOrder, Order: o})
	return o.OrderID
}

// CancelOrder pushes an OrderCancelEvent.
func (s *Server) CancelOrder(orderID id.Id) {
	s.InputQueue.Push("client", queue.Entry{Kind: queue.KindOrderCancel, OrderID: orderID})
}

// ReplaceOrder pushes an OrderReplaceEvent. If replacement is non-nil it
// carries a full replacement order (RplOrderReceived); otherwise it signals
// ReplaceReceived against the existing order.
func (s *Server) ReplaceOrder(orderID id.Id, replacement *orders.Order) id.Id {
	entry := queue.Entry{Kind: queue.KindOrderReplace, OrderID: orderID}
	correlationID := uuid.NewString()
	if replacement != nil {
		replacement.OrderID = s.Gen.Next()
		replacement.CreationTime = time.Now().UnixNano()
		replacement.LastUpdateTime = replacement.CreationTime
		replacement.LeavesQty = replacement.OrderQty
		entry.HasReplOrder = true
		entry.ReplOrderID = replacement.OrderID
		entry.ReplOrder = replacement
	}
	log.Debug().Str("correlation_id", correlationID).Str("orig_order_id", orderID.String()).Msg("replace requested")
	s.InputQueue.Push("client", entry)
	return entry.ReplOrderID
}

// ChangeState pushes an OrderChangeStateEvent.
func (s *Server) ChangeState(orderID id.Id, change queue.ChangeState) {
	s.InputQueue.Push("client", queue.Entry{Kind: queue.KindOrderChangeState, OrderID: orderID, ChangeState: change})
}

// Timer pushes a TimerEvent.
func (s *Server) Timer(orderID id.Id, timer queue.TimerKind) {
	s.InputQueue.Push("timer", queue.Entry{Kind: queue.KindTimer, OrderID: orderID, Timer: timer})
}

// WaitUntilIdle blocks until both worker pools and the input queue are
// drained, or timeout elapses.
func (s *Server) WaitUntilIdle(timeout time.Duration) bool {
	return s.TaskMgr.WaitUntilTransactionsFinished(timeout)
}

// LookupOrder returns the current in-memory state of orderID.
func (s *Server) LookupOrder(orderID id.Id) (*orders.Order, bool) {
	return s.OrderStore.LocateByOrderID(orderID)
}

// Shutdown drains in-flight work, closes the durable log, and closes the
// market data publisher, in that order: drain processing, flush the log,
// then close downstream publishers.
func (s *Server) Shutdown(ctx context.Context) error {
	deadline := 10 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		deadline = time.Until(dl)
	}
	s.WaitUntilIdle(deadline)

	if err := s.Log.Close(); err != nil {
		return fmt.Errorf("engine: close durable log: %w", err)
	}
	s.Publisher.Close()
	return nil
}

func defaultInstruments(symbols []string) []refdata.InstrumentDef {
	defs := make([]refdata.InstrumentDef, 0, len(symbols))
	for _, sym := range symbols {
		defs = append(defs, refdata.InstrumentDef{Symbol: sym, SecurityID: sym, SecurityIDSource: "TICKER"})
	}
	return defs
}

func defaultAccounts() []refdata.AccountDef {
	return []refdata.AccountDef{
		{Account: "TRADER1", Firm: "Apex Capital", Type: refdata.AccountTypePrincipal},
		{Account: "TRADER2", Firm: "Apex Capital", Type: refdata.AccountTypePrincipal},
		{Account: "MM1", Firm: "Summit Partners", Type: refdata.AccountTypeAgency},
		{Account: "MM2", Firm: "Meridian Fund", Type: refdata.AccountTypeAgency},
	}
}
