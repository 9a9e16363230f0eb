// Package orderstore implements the OrderStore: the
// process-wide index of live orders and executions, keyed both by order id
// and by client order id, with a separate execution index keyed by exec id.
package orderstore

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rishav/order-matching-engine/internal/id"
	"github.com/rishav/order-matching-engine/internal/orders"
)

// PersistFunc is the dispatcher fan-out hook invoked after an order or
// execution is indexed; its shape mirrors refdata.PersistFunc.
type PersistFunc func(kind string, entityID id.Id, entity interface{})

// Store indexes orders by id and by client order id, and executions by
// exec id. A single writer lock protects both order indexes together so
// they install atomically; the execution index uses its own
// lock since appends to it are independent of order installs.
type Store struct {
	mu         sync.RWMutex
	byID       map[id.Id]*orders.Order
	byClOrdID  map[string]*orders.Order
	orderedIDs []id.Id // preserves insertion order for deterministic snapshots

	execMu sync.RWMutex
	execs  map[id.Id]*orders.Execution

	gen     *id.Generator
	persist PersistFunc
}

// New constructs an empty OrderStore minting ids from gen.
func New(gen *id.Generator, persist PersistFunc) *Store {
	return &Store{
		byID:      make(map[id.Id]*orders.Order),
		byClOrdID: make(map[string]*orders.Order),
		execs:     make(map[id.Id]*orders.Execution),
		gen:       gen,
		persist:   persist,
	}
}

// SaveOrder mints an Id for o if it does not already have one, rejects if
// o.ClOrderID is already present, and installs o into both indexes
// atomically.
func (s *Store) SaveOrder(o *orders.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if o.ClOrderID != "" {
		if _, exists := s.byClOrdID[o.ClOrderID]; exists {
			return fmt.Errorf("%w: clOrderId %q", orders.ErrDuplicateClientOrderID, o.ClOrderID)
		}
	}
	if !o.OrderID.Valid() {
		o.OrderID = s.gen.Next()
	}
	s.byID[o.OrderID] = o
	if o.ClOrderID != "" {
		s.byClOrdID[o.ClOrderID] = o
	}
	s.orderedIDs = append(s.orderedIDs, o.OrderID)
	s.fanOut("order", o.OrderID, o)
	return nil
}

// RestoreOrder installs an order recovered from the durable log without
// minting a new id or rejecting on duplicate clOrderId checks against
// in-flight state, as part of two-phase recovery.
func (s *Store) RestoreOrder(o *orders.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[o.OrderID] = o
	if o.ClOrderID != "" {
		s.byClOrdID[o.ClOrderID] = o
	}
	s.orderedIDs = append(s.orderedIDs, o.OrderID)
}

// SaveExecution mints an execId for e if absent and installs it in the
// execution index.
func (s *Store) SaveExecution(e *orders.Execution) error {
	s.execMu.Lock()
	defer s.execMu.Unlock()
	if !e.ExecID.Valid() {
		e.ExecID = s.gen.Next()
	}
	s.execs[e.ExecID] = e
	s.fanOut("execution", e.ExecID, e)
	return nil
}

// RestoreExecution installs an execution recovered from the durable log
// under its original exec id, without minting a new one, as part of
// two-phase recovery.
func (s *Store) RestoreExecution(e *orders.Execution) {
	s.execMu.Lock()
	defer s.execMu.Unlock()
	s.execs[e.ExecID] = e
}

// LocateByOrderID is a read-lock lookup; ok=false if unknown.
func (s *Store) LocateByOrderID(orderID id.Id) (*orders.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.byID[orderID]
	return o, ok
}

// LocateByClOrderID is a read-lock lookup; ok=false if unknown.
func (s *Store) LocateByClOrderID(clOrdID string) (*orders.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.byClOrdID[clOrdID]
	return o, ok
}

// LocateExecution is a read-lock lookup into the execution index.
func (s *Store) LocateExecution(execID id.Id) (*orders.Execution, bool) {
	s.execMu.RLock()
	defer s.execMu.RUnlock()
	e, ok := s.execs[execID]
	return e, ok
}

// ForEachOrder iterates every order in insertion order under a read lock.
// fn must not call back into the store: re-entrant locking on the same
// goroutine would deadlock since Go's sync.RWMutex is not reentrant.
func (s *Store) ForEachOrder(fn func(*orders.Order)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, orderID := range s.orderedIDs {
		if o, ok := s.byID[orderID]; ok {
			fn(o)
		}
	}
}

// Snapshot returns every order sorted by OrderID, a deterministic ordering
// useful for recovery round-trip comparisons.
func (s *Store) Snapshot() []*orders.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*orders.Order, 0, len(s.byID))
	for _, orderID := range s.orderedIDs {
		if o, ok := s.byID[orderID]; ok {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID.Less(out[j].OrderID) })
	return out
}

func (s *Store) fanOut(kind string, entityID id.Id, entity interface{}) {
	if s.persist != nil {
		s.persist(kind, entityID, entity)
	}
}
