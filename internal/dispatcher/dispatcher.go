// Package dispatcher implements the record dispatcher and two-phase
// recovery: the save side of every in-memory store's PersistFunc/SaveFunc
// hook, tagging each entity with a RecordType byte before handing a
// serialized body to the durable log, and the load side that replays the
// log back into fresh stores on startup.
//
// The dispatcher implements the loader's observer interface plus every
// store's save interface, tags records with a single leading RecordType
// byte, and on load routes to type-specific restore calls — including the
// special case where an order record restores into both the order store
// and the order book. The body past the tag byte is gob-encoded.
package dispatcher

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/rishav/order-matching-engine/internal/durablelog"
	"github.com/rishav/order-matching-engine/internal/id"
	"github.com/rishav/order-matching-engine/internal/orders"
	"github.com/rishav/order-matching-engine/internal/refdata"
)

// RecordType tags the leading byte of every durable-log payload, mirroring
// StorageRecordDispatcher.h's RecordType enum.
type RecordType byte

const (
	RecordInvalid RecordType = iota
	RecordInstrument
	RecordString
	RecordAccount
	RecordClearing
	RecordRawData
	RecordOrder
	RecordExecution
	RecordExecutionList
)

func (rt RecordType) String() string {
	switch rt {
	case RecordInstrument:
		return "Instrument"
	case RecordString:
		return "String"
	case RecordAccount:
		return "Account"
	case RecordClearing:
		return "Clearing"
	case RecordRawData:
		return "RawData"
	case RecordOrder:
		return "Order"
	case RecordExecution:
		return "Execution"
	case RecordExecutionList:
		return "ExecutionList"
	default:
		return "Invalid"
	}
}

// stringRecord wraps an interned string with its id, since refdata never
// stores the id alongside the bare string value itself.
type stringRecord struct {
	ID    id.Id
	Value string
}

// execListRecord snapshots an ExecutionList's accumulated exec ids
// explicitly, since refdata.ExecutionList keeps them unexported and only
// fans out on creation, not on each append.
type execListRecord struct {
	ID      id.Id
	OrderID id.Id
	ExecIDs []id.Id
}

func init() {
	gob.Register(refdata.Instrument{})
	gob.Register(stringRecord{})
	gob.Register(refdata.Account{})
	gob.Register(refdata.Clearing{})
	gob.Register(refdata.RawData{})
	gob.Register(orders.Order{})
	gob.Register(orders.Execution{})
	gob.Register(execListRecord{})
}

func encode(rt RecordType, body interface{}) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(byte(rt))
	if err := gob.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("dispatcher: encode %s record: %w", rt, err)
	}
	return buf.Bytes(), nil
}

func decodeTag(data []byte) (RecordType, []byte) {
	if len(data) == 0 {
		return RecordInvalid, nil
	}
	return RecordType(data[0]), data[1:]
}

func decodeBody(body []byte, out interface{}) error {
	return gob.NewDecoder(bytes.NewReader(body)).Decode(out)
}

// Dispatcher is the durable-log write-through layer: every in-memory
// store's persist hook funnels through one of its methods, which tags and
// writes a record; RefPersist, StorePersist and BookPersist are wired in as
// refdata.PersistFunc / orderstore.PersistFunc / orderbook.SaveFunc.
type Dispatcher struct {
	log      *durablelog.Log
	refStore *refdata.Store
}

// New constructs a Dispatcher writing through to log. refStore is used
// only to snapshot an order's execution list on PersistOrder; it may be
// nil if the caller never calls PersistOrder, and may be attached later
// with SetRefStore once constructed (refdata.New itself needs a
// PersistFunc that routes through this Dispatcher, so the two cannot
// always be built in reference-store-first order).
func New(log *durablelog.Log, refStore *refdata.Store) *Dispatcher {
	return &Dispatcher{log: log, refStore: refStore}
}

// SetRefStore attaches or replaces the reference store used to snapshot
// execution lists.
func (d *Dispatcher) SetRefStore(refStore *refdata.Store) {
	d.refStore = refStore
}

// RefPersist satisfies refdata.PersistFunc: tags kind's entity with its
// RecordType and saves it under entityID at version 1 (reference entities
// are immutable once inserted).
func (d *Dispatcher) RefPersist(kind string, entityID id.Id, entity interface{}) {
	rt, body := refBody(kind, entityID, entity)
	if rt == RecordInvalid {
		return
	}
	data, err := encode(rt, body)
	if err != nil {
		return
	}
	_ = d.log.Save(entityID, data)
}

func refBody(kind string, entityID id.Id, entity interface{}) (RecordType, interface{}) {
	switch kind {
	case "instrument":
		if v, ok := entity.(*refdata.Instrument); ok {
			return RecordInstrument, *v
		}
	case "account":
		if v, ok := entity.(*refdata.Account); ok {
			return RecordAccount, *v
		}
	case "clearing":
		if v, ok := entity.(*refdata.Clearing); ok {
			return RecordClearing, *v
		}
	case "rawdata":
		if v, ok := entity.(*refdata.RawData); ok {
			return RecordRawData, *v
		}
	case "string":
		if v, ok := entity.(string); ok {
			return RecordString, stringRecord{ID: entityID, Value: v}
		}
	case "execlist":
		if v, ok := entity.(*refdata.ExecutionList); ok {
			return RecordExecutionList, execListRecord{ID: v.ID, OrderID: v.OrderID, ExecIDs: v.ExecIDs()}
		}
	}
	return RecordInvalid, nil
}

// StorePersist satisfies orderstore.PersistFunc: persists a freshly
// created order (version 1) or a newly saved execution.
func (d *Dispatcher) StorePersist(kind string, entityID id.Id, entity interface{}) {
	switch kind {
	case "order":
		if o, ok := entity.(*orders.Order); ok {
			d.PersistOrder(o)
		}
	case "execution":
		if e, ok := entity.(*orders.Execution); ok {
			d.persistExecution(e)
		}
	}
}

// PersistOrder snapshots o's full mutable state as a new version — every
// state-machine transition that emits an exec report also re-persists the
// order it mutated — and, if o carries an execution list, snapshots that
// list's current exec ids alongside it.
func (d *Dispatcher) PersistOrder(o *orders.Order) {
	data, err := encode(RecordOrder, *o)
	if err != nil {
		return
	}
	_, _ = d.log.Update(o.OrderID, data)

	if d.refStore != nil && o.Executions.Valid() {
		list := d.refStore.ExecutionList(o.Executions)
		body := execListRecord{ID: list.ID, OrderID: list.OrderID, ExecIDs: list.ExecIDs()}
		if data, err := encode(RecordExecutionList, body); err == nil {
			_, _ = d.log.Update(list.ID, data)
		}
	}
}

func (d *Dispatcher) persistExecution(e *orders.Execution) {
	data, err := encode(RecordExecution, *e)
	if err != nil {
		return
	}
	_, _ = d.log.Save(e.ExecID, data)
}

// BookPersist satisfies orderbook.SaveFunc: the book's own Add already
// races with the order's first exec report, so this re-persists the same
// order snapshot PersistOrder would — harmless, since Update always just
// appends another version.
func (d *Dispatcher) BookPersist(o *orders.Order) {
	d.PersistOrder(o)
}
