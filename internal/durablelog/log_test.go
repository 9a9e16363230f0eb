package durablelog

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/rishav/order-matching-engine/internal/id"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	log, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { log.Close() })
	return log
}

func TestLog_SaveThenLoadRoundTrips(t *testing.T) {
	log := openTestLog(t)
	entityID := id.Id{Date: 1, Counter: 7}

	if err := log.Save(entityID, []byte("hello")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var loaded [][]byte
	_, err := log.Load(ObserverFuncs{
		Record: func(got id.Id, version uint32, data []byte) {
			if !got.Equal(entityID) || version != 1 {
				t.Errorf("unexpected record id=%v version=%d", got, version)
			}
			loaded = append(loaded, data)
		},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 1 || string(loaded[0]) != "hello" {
		t.Fatalf("expected one record %q, got %v", "hello", loaded)
	}
}

func TestLog_SaveDuplicateFails(t *testing.T) {
	log := openTestLog(t)
	entityID := id.Id{Date: 1, Counter: 1}

	if err := log.Save(entityID, []byte("a")); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	err := log.Save(entityID, []byte("b"))
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestLog_UpdateAppendsNewVersions(t *testing.T) {
	log := openTestLog(t)
	entityID := id.Id{Date: 1, Counter: 2}

	v1, err := log.Update(entityID, []byte("v1"))
	if err != nil || v1 != 1 {
		t.Fatalf("expected version 1, got %d err=%v", v1, err)
	}
	v2, err := log.Update(entityID, []byte("v2"))
	if err != nil || v2 != 2 {
		t.Fatalf("expected version 2, got %d err=%v", v2, err)
	}

	var versions []uint32
	_, err = log.Load(ObserverFuncs{
		Record: func(_ id.Id, version uint32, _ []byte) {
			versions = append(versions, version)
		},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("expected 2 stored versions, got %v", versions)
	}
}

func TestLog_ReplaceDeletesOldVersion(t *testing.T) {
	log := openTestLog(t)
	entityID := id.Id{Date: 1, Counter: 3}

	if _, err := log.Update(entityID, []byte("v1")); err != nil {
		t.Fatalf("Update: %v", err)
	}
	newVersion, err := log.Replace(entityID, 1, []byte("v2"))
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if newVersion != 2 {
		t.Fatalf("expected replace to mint version 2, got %d", newVersion)
	}

	var seen []uint32
	_, err = log.Load(ObserverFuncs{
		Record: func(_ id.Id, version uint32, _ []byte) { seen = append(seen, version) },
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(seen) != 1 || seen[0] != 2 {
		t.Fatalf("expected only version 2 to remain, got %v", seen)
	}
}

func TestLog_ReplaceMissingVersionFails(t *testing.T) {
	log := openTestLog(t)
	entityID := id.Id{Date: 1, Counter: 4}

	_, err := log.Replace(entityID, 5, []byte("x"))
	if !errors.Is(err, ErrVersionNotFound) {
		t.Fatalf("expected ErrVersionNotFound, got %v", err)
	}
}

func TestLog_EraseAllVersions(t *testing.T) {
	log := openTestLog(t)
	entityID := id.Id{Date: 1, Counter: 5}

	log.Update(entityID, []byte("v1"))
	log.Update(entityID, []byte("v2"))

	if err := log.Erase(entityID); err != nil {
		t.Fatalf("Erase: %v", err)
	}

	var count int
	_, err := log.Load(ObserverFuncs{Record: func(id.Id, uint32, []byte) { count++ }})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no records after erase, got %d", count)
	}
}

func TestLog_LoadPreservesIDOrdering(t *testing.T) {
	log := openTestLog(t)
	a := id.Id{Date: 1, Counter: 100}
	b := id.Id{Date: 1, Counter: 50}

	log.Save(a, []byte("a"))
	log.Save(b, []byte("b"))

	var order []uint64
	_, err := log.Load(ObserverFuncs{
		Record: func(got id.Id, _ uint32, _ []byte) { order = append(order, got.Counter) },
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(order) != 2 || order[0] != 50 || order[1] != 100 {
		t.Fatalf("expected ascending counter order [50 100], got %v", order)
	}
}
