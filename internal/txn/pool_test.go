package txn

import (
	"sync"
	"testing"
)

func TestScopePool_AcquireReleaseReusesSlot(t *testing.T) {
	p := NewScopePool(2)
	ps := p.Acquire()
	ps.Scope().Append(&fakeOp{})
	ps.Release()

	ps2 := p.Acquire()
	if ps2.Scope().Len() != 0 {
		t.Fatal("expected reacquired scope to be reset")
	}
	if p.Misses() != 0 {
		t.Fatalf("expected no misses, got %d", p.Misses())
	}
}

func TestScopePool_ExhaustionFallsBackToHeap(t *testing.T) {
	p := NewScopePool(1)
	first := p.Acquire()
	second := p.Acquire() // pool exhausted; heap fallback

	second.Scope().Append(&fakeOp{})
	if p.Misses() == 0 {
		t.Fatal("expected a recorded cache miss")
	}
	first.Release()
}

func TestScopePool_DetachReturnsHeapOwnedCopy(t *testing.T) {
	p := NewScopePool(1)
	ps := p.Acquire()
	ps.Scope().Append(&fakeOp{})

	detached := ps.Detach()
	if detached.Len() != 1 {
		t.Fatal("expected detached scope to carry over operations")
	}

	// slot should be immediately reusable after Detach.
	ps2 := p.Acquire()
	if ps2.Scope().Len() != 0 {
		t.Fatal("expected the pool slot to be released and reset by Detach")
	}
}

func TestScopePool_ConcurrentAcquireRelease(t *testing.T) {
	p := NewScopePool(4)
	var wg sync.WaitGroup
	seen := make(chan *Scope, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ps := p.Acquire()
			seen <- ps.Scope()
			ps.Release()
		}()
	}
	wg.Wait()
	close(seen)
	for range seen {
	}
}
