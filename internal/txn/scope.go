package txn

import (
	"errors"
	"fmt"

	"github.com/rishav/order-matching-engine/internal/id"
)

// maxRelatedObjects caps the set getRelatedObjects collects;
// exceeding it fails hard rather than silently truncating.
const maxRelatedObjects = 10

// ErrTooManyRelatedObjects is returned when a scope's operations reference
// more distinct objects than the transaction manager's dependency graph can
// track for one transaction.
var ErrTooManyRelatedObjects = errors.New("txn: scope references more than 10 related objects")

// Scope is the reversible unit of work a processor builds while handling
// one event. It owns the ordered operation list and a list of
// stage checkpoints used to discard a partially-built sub-sequence (e.g. a
// DeferedEvent whose own operations need to be unwound without discarding
// everything built so far).
//
// A bump-arena-backed operation list would avoid heap allocation per
// Operation, but Go's allocator and GC make that optimization a poor fit
// here; operations are ordinary heap values and the scope just owns the
// slice.
type Scope struct {
	ops    []Operation
	stages []int
}

// NewScope constructs an empty scope.
func NewScope() *Scope {
	return &Scope{}
}

// Append adds op to the end of the operation list.
func (s *Scope) Append(op Operation) {
	s.ops = append(s.ops, op)
}

// Len reports how many operations are currently queued.
func (s *Scope) Len() int {
	return len(s.ops)
}

// StartNewStage records the current operation count as a checkpoint,
// returning a stage id to pass to RemoveStage.
func (s *Scope) StartNewStage() int {
	s.stages = append(s.stages, len(s.ops))
	return len(s.stages) - 1
}

// RemoveStage discards every operation appended since stage id was opened,
// and the stage marker itself.
func (s *Scope) RemoveStage(stageID int) {
	if stageID < 0 || stageID >= len(s.stages) {
		return
	}
	checkpoint := s.stages[stageID]
	s.ops = s.ops[:checkpoint]
	s.stages = s.stages[:stageID]
}

// Reset clears the operation and stage lists, preserving the underlying
// slice capacity so a pooled scope can be reused without reallocating.
func (s *Scope) Reset() {
	s.ops = s.ops[:0]
	s.stages = s.stages[:0]
}

// GetRelatedObjects collects the set of primary and related object IDs
// touched by this scope's operations, for the transaction manager's
// dependency graph. Capped at maxRelatedObjects; exceeding the
// cap is a hard failure rather than a silent truncation.
func (s *Scope) GetRelatedObjects() ([]id.Id, error) {
	seen := make(map[id.Id]struct{}, maxRelatedObjects)
	var out []id.Id
	add := func(i id.Id) error {
		if !i.Valid() {
			return nil
		}
		if _, ok := seen[i]; ok {
			return nil
		}
		if len(out) >= maxRelatedObjects {
			return fmt.Errorf("%w: got at least %d", ErrTooManyRelatedObjects, len(out)+1)
		}
		seen[i] = struct{}{}
		out = append(out, i)
		return nil
	}
	for _, op := range s.ops {
		if err := add(op.PrimaryObjectID()); err != nil {
			return nil, err
		}
		if err := add(op.RelatedObjectID()); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ExecuteTransaction runs every queued operation against ctx in order. On
// the first failure, operations already executed are rolled back in
// reverse order (rollback errors are swallowed — "best-effort
// unwind", since a partially-applied rollback cannot itself be rolled
// back further) and the triggering error is returned.
func (s *Scope) ExecuteTransaction(ctx *Context) error {
	for i, op := range s.ops {
		if err := op.Execute(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = s.ops[j].Rollback(ctx)
			}
			return err
		}
	}
	return nil
}
