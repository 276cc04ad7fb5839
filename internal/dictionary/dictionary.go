// Package dictionary implements the bijective interner that maps rich
// datavalues to numeric ids. Besides the id bijection, dictionaries keep a
// set of merely *marked* values: those are recognized as known but resolve
// to the virtual id KnownMarkID, which cannot be reversed.
//
// The dictionary is single-writer: it is mutated only between chase steps
// and is read-only while a step executes.
package dictionary

import (
	"github.com/aidan-bailey/nemo/internal/datavalues"
)

const (
	// NonExistingID is the fake id used for entries that have no id.
	NonExistingID uint64 = ^uint64(0)
	// KnownMarkID is the virtual id of marked entries. It can never be
	// reversed into a value.
	KnownMarkID uint64 = ^uint64(0) - 1
)

// AddResultKind discriminates the outcome of an Add or Mark.
type AddResultKind uint8

const (
	// AddedFresh means the value was new and got the returned id.
	AddedFresh AddResultKind = iota
	// AddedKnown means the value was present and has the returned id.
	AddedKnown
	// AddedRejected means the dictionary does not support the value.
	AddedRejected
)

// AddResult reports whether a value was freshly interned, already known,
// or rejected.
type AddResult struct {
	Kind AddResultKind
	ID   uint64
}

// Fresh builds a fresh-insert result.
func Fresh(id uint64) AddResult { return AddResult{Kind: AddedFresh, ID: id} }

// Known builds an already-present result.
func Known(id uint64) AddResult { return AddResult{Kind: AddedKnown, ID: id} }

// Rejected builds a rejection result carrying NonExistingID.
func Rejected() AddResult { return AddResult{Kind: AddedRejected, ID: NonExistingID} }

// Value returns the id, or NonExistingID for rejections.
func (r AddResult) Value() uint64 { return r.ID }

// Dictionary is a bijective mapping from datavalues to ids. Implementations
// may restrict themselves to a subset of value domains and reject the rest,
// which enables composite routing.
type Dictionary interface {
	// Add interns a value, assigning a fresh id if it is new. Adding a
	// previously marked value does not assign an id; it returns
	// Known(KnownMarkID).
	Add(v datavalues.DataValue) AddResult
	// Mark registers a value as known without binding a retrievable id.
	Mark(v datavalues.DataValue) AddResult
	// Lookup returns the id of a value if present (KnownMarkID for
	// marked-only entries).
	Lookup(v datavalues.DataValue) (uint64, bool)
	// Reverse resolves an id back to its value. KnownMarkID and unknown
	// ids resolve to false.
	Reverse(id uint64) (datavalues.DataValue, bool)
	// Len counts retrievable entries; marked-only entries are excluded.
	Len() int
	// HasMarked reports whether any entry is marked.
	HasMarked() bool
}
