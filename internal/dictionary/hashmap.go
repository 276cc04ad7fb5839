package dictionary

import (
	"github.com/aidan-bailey/nemo/internal/datavalues"
)

// HashDictionary is the general-purpose Dictionary backed by a hash map and
// an id-indexed slice. An optional domain predicate restricts the accepted
// values; everything else is rejected, which makes the type usable as a
// sub-dictionary of a composite.
type HashDictionary struct {
	accepts func(datavalues.DataValue) bool
	ids     map[string]uint64
	values  []datavalues.DataValue
	marked  map[string]struct{}
}

// NewHashDictionary creates a dictionary accepting every value domain.
func NewHashDictionary() *HashDictionary {
	return NewRestrictedDictionary(nil)
}

// NewRestrictedDictionary creates a dictionary accepting only values for
// which the predicate holds. A nil predicate accepts everything.
func NewRestrictedDictionary(accepts func(datavalues.DataValue) bool) *HashDictionary {
	return &HashDictionary{
		accepts: accepts,
		ids:     make(map[string]uint64),
		marked:  make(map[string]struct{}),
	}
}

func (d *HashDictionary) supported(v datavalues.DataValue) bool {
	return d.accepts == nil || d.accepts(v)
}

// Add implements Dictionary.
func (d *HashDictionary) Add(v datavalues.DataValue) AddResult {
	if !d.supported(v) {
		return Rejected()
	}
	key := v.Key()
	if _, ok := d.marked[key]; ok {
		return Known(KnownMarkID)
	}
	if id, ok := d.ids[key]; ok {
		return Known(id)
	}
	id := uint64(len(d.values))
	d.ids[key] = id
	d.values = append(d.values, v)
	return Fresh(id)
}

// Mark implements Dictionary.
func (d *HashDictionary) Mark(v datavalues.DataValue) AddResult {
	if !d.supported(v) {
		return Rejected()
	}
	key := v.Key()
	if id, ok := d.ids[key]; ok {
		return Known(id)
	}
	d.marked[key] = struct{}{}
	return Known(KnownMarkID)
}

// Lookup implements Dictionary.
func (d *HashDictionary) Lookup(v datavalues.DataValue) (uint64, bool) {
	if !d.supported(v) {
		return NonExistingID, false
	}
	key := v.Key()
	if id, ok := d.ids[key]; ok {
		return id, true
	}
	if _, ok := d.marked[key]; ok {
		return KnownMarkID, true
	}
	return NonExistingID, false
}

// Reverse implements Dictionary.
func (d *HashDictionary) Reverse(id uint64) (datavalues.DataValue, bool) {
	if id >= uint64(len(d.values)) {
		return datavalues.DataValue{}, false
	}
	return d.values[id], true
}

// Len implements Dictionary.
func (d *HashDictionary) Len() int { return len(d.values) }

// HasMarked implements Dictionary.
func (d *HashDictionary) HasMarked() bool { return len(d.marked) > 0 }
