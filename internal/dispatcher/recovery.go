package dispatcher

import (
	"fmt"

	"github.com/rishav/order-matching-engine/internal/durablelog"
	"github.com/rishav/order-matching-engine/internal/id"
	"github.com/rishav/order-matching-engine/internal/orderbook"
	"github.com/rishav/order-matching-engine/internal/orders"
	"github.com/rishav/order-matching-engine/internal/orderstore"
	"github.com/rishav/order-matching-engine/internal/refdata"
)

// Recovery is the result of TwoPhaseRecover: the order book rebuilt from
// the log, and how many malformed records the scan skipped across both
// passes ("load never fails fatally on a single bad record").
type Recovery struct {
	Book    *orderbook.Book
	Skipped int
}

// TwoPhaseRecover implements startup recovery. Phase one
// replays the log with no order book bound, restoring only reference
// entities; phase two creates the book from the instruments phase one
// discovered and rescans the log, restoring resting orders into both the
// order store and the book (via Restore — no matching, no exec reports,
// no outbound traffic) and every execution into the order store.
//
// On return, gen has been advanced past every counter value observed in
// the log so freshly minted ids never collide with restored ones.
func TwoPhaseRecover(log *durablelog.Log, gen *id.Generator, refStore *refdata.Store, orderStore *orderstore.Store) (*Recovery, error) {
	p1 := &phaseOneLoader{refStore: refStore}
	skipped1, err := log.Load(p1)
	if err != nil {
		return nil, fmt.Errorf("dispatcher: phase one recovery: %w", err)
	}
	gen.Advance(p1.maxCounter)

	book := orderbook.New(nil)
	for _, symbol := range refStore.Symbols() {
		book.RegisterInstrument(symbol)
	}

	p2 := &phaseTwoLoader{orderStore: orderStore, book: book}
	skipped2, err := log.Load(p2)
	if err != nil {
		return nil, fmt.Errorf("dispatcher: phase two recovery: %w", err)
	}
	gen.Advance(p2.maxCounter)

	return &Recovery{Book: book, Skipped: skipped1 + skipped2}, nil
}

type phaseOneLoader struct {
	refStore   *refdata.Store
	maxCounter uint64
}

func (p *phaseOneLoader) StartLoad()  {}
func (p *phaseOneLoader) FinishLoad() {}

func (p *phaseOneLoader) OnRecordLoaded(entityID id.Id, _ uint32, data []byte) {
	if entityID.Counter > p.maxCounter {
		p.maxCounter = entityID.Counter
	}
	rt, body := decodeTag(data)
	switch rt {
	case RecordInstrument:
		var v refdata.Instrument
		if decodeBody(body, &v) == nil {
			p.refStore.RestoreInstrument(&v)
		}
	case RecordAccount:
		var v refdata.Account
		if decodeBody(body, &v) == nil {
			p.refStore.RestoreAccount(&v)
		}
	case RecordClearing:
		var v refdata.Clearing
		if decodeBody(body, &v) == nil {
			p.refStore.RestoreClearing(&v)
		}
	case RecordRawData:
		var v refdata.RawData
		if decodeBody(body, &v) == nil {
			p.refStore.RestoreRawData(&v)
		}
	case RecordString:
		var v stringRecord
		if decodeBody(body, &v) == nil {
			p.refStore.RestoreString(v.ID, v.Value)
		}
	case RecordExecutionList:
		var v execListRecord
		if decodeBody(body, &v) == nil {
			p.refStore.RestoreExecutionList(v.ID, v.OrderID, v.ExecIDs)
		}
	// RecordOrder and RecordExecution are deferred to phase two, which
	// runs with the order book bound.
	default:
	}
}

// phaseTwoLoader restores orders from their latest persisted version only:
// PersistOrder calls durablelog.Update on every transition, so one order id
// accumulates many versions and the scan visits all of them in ascending
// version order. Installing into the order store/book on every visit
// would insert the same order into the book once per version; instead the
// latest snapshot per id is buffered and installed once in FinishLoad.
type phaseTwoLoader struct {
	orderStore *orderstore.Store
	book       *orderbook.Book
	maxCounter uint64

	latestOrder map[id.Id]*orders.Order
}

func (p *phaseTwoLoader) StartLoad() {
	p.latestOrder = make(map[id.Id]*orders.Order)
}

func (p *phaseTwoLoader) FinishLoad() {
	for _, o := range p.latestOrder {
		p.orderStore.RestoreOrder(o)
		if o.OrdType.RestsInBook() && o.IsActive() {
			_ = p.book.Restore(o)
		}
	}
}

func (p *phaseTwoLoader) OnRecordLoaded(entityID id.Id, _ uint32, data []byte) {
	if entityID.Counter > p.maxCounter {
		p.maxCounter = entityID.Counter
	}
	rt, body := decodeTag(data)
	switch rt {
	case RecordOrder:
		var o orders.Order
		if decodeBody(body, &o) != nil {
			return
		}
		p.latestOrder[entityID] = &o
	case RecordExecution:
		var e orders.Execution
		if decodeBody(body, &e) == nil {
			p.orderStore.RestoreExecution(&e)
		}
	default:
	}
}
