// Package txmanager implements the TransactionManager: an
// ordered dependency graph over transactions that touch shared objects,
// gating execution so two transactions never run concurrently against the
// same object id (in practice, an order id).
//
// When a transaction is added, the object each of its operations touches
// (txn.Scope's GetRelatedObjects) is looked up against the last
// transaction that touched it; if one is found it becomes a parent, and
// the new transaction may not run until every parent finishes. A
// transaction with no parents is root-executable immediately. When a
// parent finishes its children are re-checked and promoted to
// root-executable once their last parent clears, using plain Go maps and
// sets to track the per-object chain.
package txmanager

import (
	"sync"

	"github.com/rishav/order-matching-engine/internal/id"
)

// Entry is one transaction tracked by the Manager: its related-object set
// plus a value the caller associates with it (typically a *txn.Scope).
type Entry struct {
	ID      id.Id
	Objects []id.Id
	Value   interface{}
}

// Manager maintains the parent/child dependency graph and the set of
// currently root-executable (no unfinished parent) transactions.
type Manager struct {
	mu sync.Mutex

	entries map[id.Id]*Entry

	// lastUser maps an object id to the most recently added transaction
	// that touches it — the parent a newly added transaction inherits.
	lastUser map[id.Id]id.Id

	parents  map[id.Id]map[id.Id]struct{}
	children map[id.Id]map[id.Id]struct{}

	// root holds transactions with zero unfinished parents, in the order
	// they became executable.
	root []id.Id

	// onReadyToExecute fires whenever a transaction is promoted to root,
	// including on Add when it has no parents.
	onReadyToExecute func(id.Id)
}

// New constructs an empty Manager. onReady may be nil.
func New(onReady func(id.Id)) *Manager {
	return &Manager{
		entries:  make(map[id.Id]*Entry),
		lastUser: make(map[id.Id]id.Id),
		parents:  make(map[id.Id]map[id.Id]struct{}),
		children: make(map[id.Id]map[id.Id]struct{}),
		onReadyToExecute: onReady,
	}
}

// Add registers a transaction keyed by txID touching objects, associating
// value with it for later retrieval via Next. Returns false if txID is
// already tracked.
func (m *Manager) Add(txID id.Id, objects []id.Id, value interface{}) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[txID]; exists {
		return false
	}

	entry := &Entry{ID: txID, Objects: objects, Value: value}
	m.entries[txID] = entry

	parentSet := make(map[id.Id]struct{})
	for _, obj := range objects {
		if prev, ok := m.lastUser[obj]; ok {
			parentSet[prev] = struct{}{}
		}
		m.lastUser[obj] = txID
	}

	if len(parentSet) == 0 {
		m.root = append(m.root, txID)
		if m.onReadyToExecute != nil {
			m.onReadyToExecute(txID)
		}
		return true
	}

	m.parents[txID] = parentSet
	for p := range parentSet {
		if m.children[p] == nil {
			m.children[p] = make(map[id.Id]struct{})
		}
		m.children[p][txID] = struct{}{}
	}
	return true
}

// Finish removes a completed transaction from the graph. Every child whose
// last remaining parent was txID is promoted to root-executable and
// onReadyToExecute fires for each.
func (m *Manager) Finish(txID id.Id) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, txID)

	children := m.children[txID]
	delete(m.children, txID)

	for obj, last := range m.lastUser {
		if last == txID {
			delete(m.lastUser, obj)
		}
	}

	for child := range children {
		set := m.parents[child]
		delete(set, txID)
		if len(set) == 0 {
			delete(m.parents, child)
			m.root = append(m.root, child)
			if m.onReadyToExecute != nil {
				m.onReadyToExecute(child)
			}
		}
	}
}

// Next pops and returns the next root-executable transaction's value, in
// the order it became root-executable (FIFO), or ok=false if none are
// ready right now.
func (m *Manager) Next() (id.Id, interface{}, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.root) == 0 {
		return id.Id{}, nil, false
	}
	txID := m.root[0]
	m.root = m.root[1:]
	entry, ok := m.entries[txID]
	if !ok {
		return txID, nil, true
	}
	return txID, entry.Value, true
}

// SetObserver installs or replaces the onReadyToExecute callback. Exists
// separately from New so a TaskManager (which the Manager itself does not
// depend on) can wire itself up after construction without a cycle.
func (m *Manager) SetObserver(onReady func(id.Id)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReadyToExecute = onReady
}

// Pending reports how many transactions are currently tracked (root plus
// blocked).
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
