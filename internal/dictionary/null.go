package dictionary

import (
	"github.com/aidan-bailey/nemo/internal/datavalues"
)

// NullDictionary manages skolem nulls. Nulls are never interned from the
// outside; they are coined through FreshNull and live in a reserved id
// range so the composite can recognize them. Equality of nulls is equality
// of ids.
type NullDictionary struct {
	// next is the number of nulls coined so far; ids are 0..next-1 in
	// local space.
	next uint64
}

// NewNullDictionary creates an empty null dictionary.
func NewNullDictionary() *NullDictionary { return &NullDictionary{} }

// FreshNull coins a new null with a previously unused local id.
func (d *NullDictionary) FreshNull() (datavalues.DataValue, uint64) {
	id := d.next
	d.next++
	return datavalues.Null(id), id
}

// Add implements Dictionary. Only nulls previously coined by this
// dictionary are accepted; everything else, including foreign nulls, is
// rejected so that ids stay bijective.
func (d *NullDictionary) Add(v datavalues.DataValue) AddResult {
	if v.Kind() != datavalues.KindNull {
		return Rejected()
	}
	id := v.NullID()
	if id < d.next {
		return Known(id)
	}
	return Rejected()
}

// Mark implements Dictionary; nulls cannot be marked.
func (d *NullDictionary) Mark(v datavalues.DataValue) AddResult {
	return Rejected()
}

// Lookup implements Dictionary.
func (d *NullDictionary) Lookup(v datavalues.DataValue) (uint64, bool) {
	if v.Kind() != datavalues.KindNull {
		return NonExistingID, false
	}
	if id := v.NullID(); id < d.next {
		return id, true
	}
	return NonExistingID, false
}

// Reverse implements Dictionary.
func (d *NullDictionary) Reverse(id uint64) (datavalues.DataValue, bool) {
	if id < d.next {
		return datavalues.Null(id), true
	}
	return datavalues.DataValue{}, false
}

// Len implements Dictionary.
func (d *NullDictionary) Len() int { return int(d.next) }

// HasMarked implements Dictionary.
func (d *NullDictionary) HasMarked() bool { return false }
