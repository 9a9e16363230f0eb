package txn

import (
	"sync/atomic"
)

// ScopePool is a fixed-size array of pre-allocated Scopes with per-slot
// atomic in_use flags plus a rotating head index: reusable Scope slots
// guarded by a CAS flag rather than a sequence/gating pair, since scope
// acquisition has no ordering requirement between producers.
type ScopePool struct {
	slots  []poolSlot
	size   uint64
	head   uint64
	misses uint64 // cache misses: pool exhausted, fell back to heap
}

type poolSlot struct {
	scope *Scope
	inUse uint32 // atomic: 0 = free, 1 = held
}

// NewScopePool pre-allocates size Scopes.
func NewScopePool(size int) *ScopePool {
	p := &ScopePool{
		slots: make([]poolSlot, size),
		size:  uint64(size),
	}
	for i := range p.slots {
		p.slots[i].scope = NewScope()
	}
	return p
}

// Acquire bumps the head index modulo pool size and races to CAS a slot's
// in_use flag false->true; on success it returns the slot's reset scope. If
// every slot is busy after a full sweep, it falls back to a heap-allocated
// scope (counted as a cache miss) — the pool never blocks a caller.
func (p *ScopePool) Acquire() *PooledScope {
	for i := uint64(0); i < p.size; i++ {
		idx := atomic.AddUint64(&p.head, 1) % p.size
		slot := &p.slots[idx]
		if atomic.CompareAndSwapUint32(&slot.inUse, 0, 1) {
			slot.scope.Reset()
			return &PooledScope{pool: p, slot: slot, scope: slot.scope}
		}
	}
	atomic.AddUint64(&p.misses, 1)
	return &PooledScope{pool: p, scope: NewScope()}
}

// Misses reports how many Acquire calls fell back to heap allocation
// because the pool was fully busy.
func (p *ScopePool) Misses() uint64 {
	return atomic.LoadUint64(&p.misses)
}

// release returns slot (if any) to the pool by clearing in_use. Called by
// PooledScope.Release; a nil slot (heap fallback) is a no-op, matching the
// spec's "if the scope is not in the pool, deletes it" — in Go, the heap
// scope is simply left for the garbage collector.
func (p *ScopePool) release(slot *poolSlot) {
	if slot == nil {
		return
	}
	atomic.StoreUint32(&slot.inUse, 0)
}

// PooledScope wraps a Scope checked out from a ScopePool (or heap-allocated
// on a pool miss) together with enough bookkeeping to return it. Go has no
// destructors, so callers must call Release explicitly — typically via
// defer immediately after Acquire.
type PooledScope struct {
	pool  *ScopePool
	slot  *poolSlot
	scope *Scope
}

// Scope returns the underlying Scope to build operations against.
func (ps *PooledScope) Scope() *Scope {
	return ps.scope
}

// Release returns a pool-backed scope's slot to the pool. It is a no-op for
// a heap-fallback scope.
func (ps *PooledScope) Release() {
	if ps.pool != nil {
		ps.pool.release(ps.slot)
	}
}

// Detach is the commit handoff: when the scope is pool-backed, its
// contents are copied into a fresh heap scope and
// the pool slot is released immediately, so the returned Scope is always
// heap-owned and safe to retain (e.g. handed off to the TransactionManager)
// past the pool's reuse of this slot. A heap-fallback scope is returned
// as-is, since it was never pool-owned.
func (ps *PooledScope) Detach() *Scope {
	if ps.slot == nil {
		return ps.scope
	}
	detached := NewScope()
	detached.ops = append(detached.ops, ps.scope.ops...)
	detached.stages = append(detached.stages, ps.scope.stages...)
	ps.Release()
	return detached
}
