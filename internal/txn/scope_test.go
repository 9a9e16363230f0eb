package txn

import (
	"errors"
	"testing"

	"github.com/rishav/order-matching-engine/internal/id"
)

type fakeOp struct {
	executed, rolledBack bool
	failExecute          bool
	primary, related     id.Id
}

func (f *fakeOp) Execute(*Context) error {
	f.executed = true
	if f.failExecute {
		return errors.New("boom")
	}
	return nil
}
func (f *fakeOp) Rollback(*Context) error {
	f.rolledBack = true
	return nil
}
func (f *fakeOp) PrimaryObjectID() id.Id { return f.primary }
func (f *fakeOp) RelatedObjectID() id.Id { return f.related }

func TestScope_ExecuteTransactionRollsBackOnFailure(t *testing.T) {
	s := NewScope()
	a := &fakeOp{}
	b := &fakeOp{failExecute: true}
	c := &fakeOp{}
	s.Append(a)
	s.Append(b)
	s.Append(c)

	err := s.ExecuteTransaction(&Context{})
	if err == nil {
		t.Fatal("expected error from failing operation")
	}
	if !a.executed || !a.rolledBack {
		t.Fatal("expected first operation executed then rolled back")
	}
	if !b.executed || b.rolledBack {
		t.Fatal("expected failing operation executed but not rolled back (nothing to undo)")
	}
	if c.executed {
		t.Fatal("expected third operation never to execute")
	}
}

func TestScope_StartAndRemoveStage(t *testing.T) {
	s := NewScope()
	s.Append(&fakeOp{})
	stage := s.StartNewStage()
	s.Append(&fakeOp{})
	s.Append(&fakeOp{})
	if s.Len() != 3 {
		t.Fatalf("expected 3 ops before RemoveStage, got %d", s.Len())
	}

	s.RemoveStage(stage)
	if s.Len() != 1 {
		t.Fatalf("expected 1 op after RemoveStage, got %d", s.Len())
	}
}

func TestScope_Reset(t *testing.T) {
	s := NewScope()
	s.Append(&fakeOp{})
	s.StartNewStage()
	s.Reset()
	if s.Len() != 0 {
		t.Fatal("expected Reset to clear operations")
	}
	if _, err := s.GetRelatedObjects(); err != nil {
		t.Fatal(err)
	}
}

func TestScope_GetRelatedObjectsDedupesAndCaps(t *testing.T) {
	s := NewScope()
	shared := id.Id{Counter: 1, Date: 20260101}
	s.Append(&fakeOp{primary: shared})
	s.Append(&fakeOp{primary: shared, related: id.Id{Counter: 2, Date: 20260101}})

	objs, err := s.GetRelatedObjects()
	if err != nil {
		t.Fatal(err)
	}
	if len(objs) != 2 {
		t.Fatalf("expected 2 distinct objects, got %d", len(objs))
	}

	s2 := NewScope()
	for i := uint64(1); i <= maxRelatedObjects+1; i++ {
		s2.Append(&fakeOp{primary: id.Id{Counter: i, Date: 20260101}})
	}
	if _, err := s2.GetRelatedObjects(); !errors.Is(err, ErrTooManyRelatedObjects) {
		t.Fatalf("expected ErrTooManyRelatedObjects, got %v", err)
	}
}
