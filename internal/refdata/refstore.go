package refdata

import (
	"sync"

	"github.com/rishav/order-matching-engine/internal/id"
)

// PersistFunc is the dispatcher fan-out hook invoked after a reference
// entity is indexed in memory, so it can be persisted. Store is usable with
// a nil PersistFunc for tests.
type PersistFunc func(kind string, entityID id.Id, entity interface{})

// Store is the ReferenceStore: one reader-writer lock protects every inner
// map, since reads dominate. Removing entries is unsupported.
type Store struct {
	mu sync.RWMutex

	gen *id.Generator

	instruments     map[id.Id]*Instrument
	accounts        map[id.Id]*Account
	clearings       map[id.Id]*Clearing
	rawData         map[id.Id]*RawData
	strings         map[id.Id]string
	executionLists  map[id.Id]*ExecutionList
	bySymbol        map[string]id.Id
	byAccountName   map[string]id.Id

	persist PersistFunc
}

// New constructs an empty ReferenceStore using gen to mint entity ids.
func New(gen *id.Generator, persist PersistFunc) *Store {
	return &Store{
		gen:            gen,
		instruments:    make(map[id.Id]*Instrument),
		accounts:       make(map[id.Id]*Account),
		clearings:      make(map[id.Id]*Clearing),
		rawData:        make(map[id.Id]*RawData),
		strings:        make(map[id.Id]string),
		executionLists: make(map[id.Id]*ExecutionList),
		bySymbol:       make(map[string]id.Id),
		byAccountName:  make(map[string]id.Id),
		persist:        persist,
	}
}

// AddInstrument mints an id for symbol and indexes it, or returns the
// existing id if symbol was already registered.
func (s *Store) AddInstrument(symbol, securityID, securityIDSource string) id.Id {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.bySymbol[symbol]; ok {
		return existing
	}
	newID := s.gen.Next()
	inst := &Instrument{ID: newID, Symbol: symbol, SecurityID: securityID, SecurityIDSource: securityIDSource}
	s.instruments[newID] = inst
	s.bySymbol[symbol] = newID
	s.fanOut("instrument", newID, inst)
	return newID
}

// Instrument returns the instrument for id. Failing this is a programmer
// error: callers that cannot guarantee presence should check
// HasInstrument first.
func (s *Store) Instrument(instrumentID id.Id) *Instrument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.instruments[instrumentID]
	if !ok {
		panic("refdata: unknown instrument id " + instrumentID.String())
	}
	return inst
}

// HasInstrument satisfies orders.InstrumentLookup.
func (s *Store) HasInstrument(instrumentID id.Id) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.instruments[instrumentID]
	return ok
}

// InstrumentBySymbol resolves the registered symbol to its id, ok=false if
// the symbol was never registered.
func (s *Store) InstrumentBySymbol(symbol string) (id.Id, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	instrumentID, ok := s.bySymbol[symbol]
	return instrumentID, ok
}

// AddAccount mints an id for account, or returns the existing id if an
// account of that name is already registered (whatever its firm).
func (s *Store) AddAccount(account, firm string, kind AccountType) id.Id {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.byAccountName[account]; ok {
		return existing
	}
	newID := s.gen.Next()
	a := &Account{ID: newID, Account: account, Firm: firm, Type: kind}
	s.accounts[newID] = a
	s.byAccountName[account] = newID
	s.fanOut("account", newID, a)
	return newID
}

// HasAccount satisfies orders.AccountLookup.
func (s *Store) HasAccount(accountID id.Id) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.accounts[accountID]
	return ok
}

// Account returns the account for id; panics if absent (programmer error).
func (s *Store) Account(accountID id.Id) *Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[accountID]
	if !ok {
		panic("refdata: unknown account id " + accountID.String())
	}
	return a
}

// AddClearing mints an id for a clearing firm entry.
func (s *Store) AddClearing(firm string) id.Id {
	s.mu.Lock()
	defer s.mu.Unlock()
	newID := s.gen.Next()
	c := &Clearing{ID: newID, Firm: firm}
	s.clearings[newID] = c
	s.fanOut("clearing", newID, c)
	return newID
}

// AddString interns a short text value, returning a new id for it.
func (s *Store) AddString(value string) id.Id {
	s.mu.Lock()
	defer s.mu.Unlock()
	newID := s.gen.Next()
	s.strings[newID] = value
	s.fanOut("string", newID, value)
	return newID
}

// String returns the interned text for id; panics if absent.
func (s *Store) String(stringID id.Id) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.strings[stringID]
	if !ok {
		panic("refdata: unknown string id " + stringID.String())
	}
	return v
}

// AddRawData stores a client-assigned opaque identifier.
func (s *Store) AddRawData(kind string, bytes []byte) id.Id {
	s.mu.Lock()
	defer s.mu.Unlock()
	newID := s.gen.Next()
	rd := &RawData{ID: newID, Kind: kind, Bytes: bytes}
	s.rawData[newID] = rd
	s.fanOut("rawdata", newID, rd)
	return newID
}

// NewExecutionList creates an empty execution list for an order.
func (s *Store) NewExecutionList(orderID id.Id) id.Id {
	s.mu.Lock()
	defer s.mu.Unlock()
	newID := s.gen.Next()
	l := &ExecutionList{ID: newID, OrderID: orderID}
	s.executionLists[newID] = l
	s.fanOut("execlist", newID, l)
	return newID
}

// AppendExecution appends execID to the execution list identified by
// listID. The list itself is a reference entity but its contents grow as an
// append-only ordered sequence rather than being strictly immutable after
// insertion.
func (s *Store) AppendExecution(listID, execID id.Id) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.executionLists[listID]
	if !ok {
		panic("refdata: unknown execution list id " + listID.String())
	}
	l.execIDs = append(l.execIDs, execID)
}

// ExecutionList returns the execution list for id; panics if absent.
func (s *Store) ExecutionList(listID id.Id) *ExecutionList {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.executionLists[listID]
	if !ok {
		panic("refdata: unknown execution list id " + listID.String())
	}
	return l
}

// InstrumentDef is one row of a Seed call's instrument list.
type InstrumentDef struct {
	Symbol           string
	SecurityID       string
	SecurityIDSource string
}

// AccountDef is one row of a Seed call's account list.
type AccountDef struct {
	Account string
	Firm    string
	Type    AccountType
}

// Seed registers every instrument and account not already present,
// skipping duplicates by symbol/account name, so a handful of instruments
// and accounts exist before the storage layer starts serving traffic. It is
// a plain Store method used by cmd/server's startup path and by tests, not
// a standalone CLI.
func (s *Store) Seed(instruments []InstrumentDef, accounts []AccountDef) {
	for _, def := range instruments {
		if _, ok := s.InstrumentBySymbol(def.Symbol); ok {
			continue
		}
		s.AddInstrument(def.Symbol, def.SecurityID, def.SecurityIDSource)
	}
	for _, def := range accounts {
		s.AddAccount(def.Account, def.Firm, def.Type)
	}
}

// Symbols returns every registered instrument symbol, used by the
// recovery path to rebuild the order book in its second phase.
func (s *Store) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.bySymbol))
	for sym := range s.bySymbol {
		out = append(out, sym)
	}
	return out
}

// RestoreInstrument installs an instrument recovered from the durable log
// under its original id, without minting a fresh one or fanning back out to
// the dispatcher: the log is the source of truth being replayed here, not a
// new insert to persist again.
func (s *Store) RestoreInstrument(inst *Instrument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instruments[inst.ID] = inst
	s.bySymbol[inst.Symbol] = inst.ID
}

// RestoreAccount is RestoreInstrument's counterpart for accounts.
func (s *Store) RestoreAccount(a *Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.ID] = a
	s.byAccountName[a.Account] = a.ID
}

// RestoreClearing is RestoreInstrument's counterpart for clearing firms.
func (s *Store) RestoreClearing(c *Clearing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearings[c.ID] = c
}

// RestoreRawData is RestoreInstrument's counterpart for raw client ids.
func (s *Store) RestoreRawData(r *RawData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rawData[r.ID] = r
}

// RestoreString is RestoreInstrument's counterpart for interned strings.
func (s *Store) RestoreString(stringID id.Id, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strings[stringID] = value
}

// RestoreExecutionList reinstalls an execution list with its already-
// accumulated exec ids, since the dispatcher snapshots the full ordered
// slice on every persist rather than individual appends.
func (s *Store) RestoreExecutionList(listID, orderID id.Id, execIDs []id.Id) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executionLists[listID] = &ExecutionList{ID: listID, OrderID: orderID, execIDs: execIDs}
}

func (s *Store) fanOut(kind string, entityID id.Id, entity interface{}) {
	if s.persist != nil {
		s.persist(kind, entityID, entity)
	}
}
