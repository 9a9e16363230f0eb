// Package durablelog implements the durable ordered key/value log: an
// append-friendly store keyed by (id, version) with save, update,
// replace, erase, and a full-scan load with an observer callback.
//
// Backed by go.etcd.io/bbolt instead of a raw append-only file: bbolt
// gives the (id, version) ordering the load/observer contract needs as a
// native sorted B-tree scan rather than a single linear replay.
package durablelog

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/rishav/order-matching-engine/internal/id"
	bolt "go.etcd.io/bbolt"
)

var (
	// ErrDuplicateKey is returned by Save when entityID already has a
	// stored version.
	ErrDuplicateKey = errors.New("durablelog: record already exists")
	// ErrVersionNotFound is returned by Replace when oldVersion is absent.
	ErrVersionNotFound = errors.New("durablelog: version not found")
)

var recordsBucket = []byte("records")

// keyLen is a 16-byte id slot plus a 4-byte big-endian version, chosen so
// bbolt's natural key-ordered cursor scan yields every version of one id
// together, in version order.
const keyLen = 20

// Observer receives a full-scan load's records: the log scanner calls
// StartLoad once, OnRecordLoaded once per stored record in key order,
// then FinishLoad once.
type Observer interface {
	StartLoad()
	OnRecordLoaded(entityID id.Id, version uint32, data []byte)
	FinishLoad()
}

// ObserverFuncs adapts three plain functions into an Observer; nil fields
// are treated as no-ops.
type ObserverFuncs struct {
	Start  func()
	Record func(entityID id.Id, version uint32, data []byte)
	Finish func()
}

func (f ObserverFuncs) StartLoad() {
	if f.Start != nil {
		f.Start()
	}
}

func (f ObserverFuncs) OnRecordLoaded(entityID id.Id, version uint32, data []byte) {
	if f.Record != nil {
		f.Record(entityID, version, data)
	}
}

func (f ObserverFuncs) FinishLoad() {
	if f.Finish != nil {
		f.Finish()
	}
}

// Log is the durable ordered key/value store, one bbolt database file.
type Log struct {
	db *bolt.DB
}

// Open creates or opens the bbolt file at path, ensuring the records
// bucket exists.
func Open(path string) (*Log, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("durablelog: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(recordsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("durablelog: init bucket: %w", err)
	}
	return &Log{db: db}, nil
}

// Close releases the underlying database file.
func (l *Log) Close() error {
	return l.db.Close()
}

// Save inserts version 1 of entityID's record, failing with
// ErrDuplicateKey if any version already exists.
func (l *Log) Save(entityID id.Id, data []byte) error {
	return l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(recordsBucket)
		if maxVersion(b, entityID) > 0 {
			return fmt.Errorf("%w: id %s", ErrDuplicateKey, entityID.String())
		}
		return b.Put(encodeKey(entityID, 1), data)
	})
}

// Update appends data as max_version+1 for entityID, creating version 1
// if entityID has no prior record, and returns the version written.
func (l *Log) Update(entityID id.Id, data []byte) (uint32, error) {
	var version uint32
	err := l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(recordsBucket)
		version = maxVersion(b, entityID) + 1
		return b.Put(encodeKey(entityID, version), data)
	})
	return version, err
}

// Replace deletes oldVersion and appends data as a new version, failing
// with ErrVersionNotFound if oldVersion is absent.
func (l *Log) Replace(entityID id.Id, oldVersion uint32, data []byte) (uint32, error) {
	var version uint32
	err := l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(recordsBucket)
		oldKey := encodeKey(entityID, oldVersion)
		if b.Get(oldKey) == nil {
			return fmt.Errorf("%w: id %s version %d", ErrVersionNotFound, entityID.String(), oldVersion)
		}
		version = maxVersion(b, entityID) + 1
		if err := b.Delete(oldKey); err != nil {
			return err
		}
		return b.Put(encodeKey(entityID, version), data)
	})
	return version, err
}

// Erase removes a single version of entityID's record, or every version
// when versions is empty.
func (l *Log) Erase(entityID id.Id, versions ...uint32) error {
	return l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(recordsBucket)
		if len(versions) == 0 {
			c := b.Cursor()
			prefix := idPrefix(entityID)
			for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
				if err := c.Delete(); err != nil {
					return err
				}
			}
			return nil
		}
		for _, v := range versions {
			if err := b.Delete(encodeKey(entityID, v)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Load scans every record in (id, version) key order, calling observer
// around the pass. Keys of the wrong length are corruption and are
// skipped rather than aborting the load (durable-log corruption
// policy); the count of skipped records is returned.
func (l *Log) Load(observer Observer) (skipped int, err error) {
	observer.StartLoad()
	defer observer.FinishLoad()

	err = l.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(recordsBucket)
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if len(k) != keyLen {
				skipped++
				continue
			}
			entityID, version := decodeKey(k)
			data := make([]byte, len(v))
			copy(data, v)
			observer.OnRecordLoaded(entityID, version, data)
		}
		return nil
	})
	return skipped, err
}

func encodeKey(entityID id.Id, version uint32) []byte {
	buf := make([]byte, keyLen)
	binary.BigEndian.PutUint32(buf[0:4], entityID.Date)
	binary.BigEndian.PutUint64(buf[4:12], entityID.Counter)
	binary.BigEndian.PutUint32(buf[16:20], version)
	return buf
}

func decodeKey(key []byte) (id.Id, uint32) {
	entityID := id.Id{
		Date:    binary.BigEndian.Uint32(key[0:4]),
		Counter: binary.BigEndian.Uint64(key[4:12]),
	}
	return entityID, binary.BigEndian.Uint32(key[16:20])
}

func idPrefix(entityID id.Id) []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint32(buf[0:4], entityID.Date)
	binary.BigEndian.PutUint64(buf[4:12], entityID.Counter)
	return buf
}

func maxVersion(b *bolt.Bucket, entityID id.Id) uint32 {
	c := b.Cursor()
	prefix := idPrefix(entityID)
	var max uint32
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		_, v := decodeKey(k)
		if v > max {
			max = v
		}
	}
	return max
}
