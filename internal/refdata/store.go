// Package refdata implements the ReferenceStore: the
// process-lifetime home for immutable entities shared by reference from
// many orders — instruments, accounts, clearing firms, interned strings,
// client-assigned raw order ids, and per-order execution lists.
//
// A reference entity is looked up by content once, on insertion (symbol ->
// instrument id, account name -> account id), and by id thereafter. Once
// inserted an entity is never removed; the only mutation is
// AppendExecution growing a per-order execution list.
package refdata

import (
	"github.com/rishav/order-matching-engine/internal/id"
)

// AccountType distinguishes principal and agency accounts.
type AccountType int

const (
	AccountTypeInvalid AccountType = iota
	AccountTypePrincipal
	AccountTypeAgency
)

func (t AccountType) String() string {
	switch t {
	case AccountTypePrincipal:
		return "PRINCIPAL"
	case AccountTypeAgency:
		return "AGENCY"
	default:
		return "INVALID"
	}
}

// Instrument is immutable after insertion.
type Instrument struct {
	ID               id.Id
	Symbol           string
	SecurityID       string
	SecurityIDSource string
}

// Account is immutable after insertion.
type Account struct {
	ID      id.Id
	Account string
	Firm    string
	Type    AccountType
}

// Clearing is immutable after insertion.
type Clearing struct {
	ID   id.Id
	Firm string
}

// RawData holds a client-assigned identifier, kept verbatim for protocols
// that carry opaque order ids.
type RawData struct {
	ID    id.Id
	Kind  string
	Bytes []byte
}

// ExecutionList is the append-only ordered sequence of execution ids for
// one order. It is itself a reference entity so an Order can
// carry a lightweight id to it rather than a growable slice directly.
type ExecutionList struct {
	ID      id.Id
	OrderID id.Id
	execIDs []id.Id
}

// ExecIDs returns the execution ids appended so far, in append order.
func (l *ExecutionList) ExecIDs() []id.Id {
	out := make([]id.Id, len(l.execIDs))
	copy(out, l.execIDs)
	return out
}
