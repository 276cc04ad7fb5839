package dictionary

import (
	"math"

	"github.com/aidan-bailey/nemo/internal/datavalues"
)

// Ids handed out by a MetaDictionary are partitioned by their top four
// bits: each sub-dictionary owns one partition, nulls own partition 8 (the
// reserved upper range), and the two sentinel ids live at the very top of
// partition 15. Local ids therefore may not exceed 60 bits.
const (
	partitionShift = 60
	partitionMask  = uint64(0xF) << partitionShift
	// NullPartition is the partition of skolem nulls.
	NullPartition = uint64(8) << partitionShift
)

// MetaDictionary routes every value to the first sub-dictionary that
// accepts it and offsets local ids into the sub-dictionary's partition.
// Skolem nulls are handled by a dedicated NullDictionary in the reserved
// upper range. Numeric values are rejected altogether: they are stored
// directly as storage values and never enter the dictionary.
type MetaDictionary struct {
	subs  []Dictionary
	nulls *NullDictionary
}

// NewMetaDictionary creates the default composite: one general
// sub-dictionary for all non-numeric, non-null values, plus the null
// dictionary.
func NewMetaDictionary() *MetaDictionary {
	general := NewRestrictedDictionary(func(v datavalues.DataValue) bool {
		switch v.Kind() {
		case datavalues.KindNull, datavalues.KindInteger, datavalues.KindLong,
			datavalues.KindFloat, datavalues.KindDouble:
			return false
		}
		return true
	})
	return NewCompositeDictionary(general)
}

// NewCompositeDictionary creates a composite over the given sub-
// dictionaries, routed in order. At most eight sub-dictionaries fit the
// partition scheme.
func NewCompositeDictionary(subs ...Dictionary) *MetaDictionary {
	if len(subs) > 8 {
		panic("dictionary: at most 8 sub-dictionaries are supported")
	}
	return &MetaDictionary{subs: subs, nulls: NewNullDictionary()}
}

func globalID(partition int, local uint64) uint64 {
	return uint64(partition)<<partitionShift | local
}

func rebase(r AddResult, partition int) AddResult {
	if r.Kind == AddedRejected || r.ID == KnownMarkID {
		return r
	}
	r.ID = globalID(partition, r.ID)
	return r
}

// FreshNull coins a new skolem null and returns it with its global id.
func (d *MetaDictionary) FreshNull() (datavalues.DataValue, uint64) {
	v, local := d.nulls.FreshNull()
	return v, NullPartition | local
}

// Add implements Dictionary.
func (d *MetaDictionary) Add(v datavalues.DataValue) AddResult {
	if v.Kind() == datavalues.KindNull {
		r := d.nulls.Add(v)
		if r.Kind != AddedRejected {
			r.ID |= NullPartition
		}
		return r
	}
	for i, sub := range d.subs {
		if r := sub.Add(v); r.Kind != AddedRejected {
			return rebase(r, i)
		}
	}
	return Rejected()
}

// Mark implements Dictionary.
func (d *MetaDictionary) Mark(v datavalues.DataValue) AddResult {
	if v.Kind() == datavalues.KindNull {
		return Rejected()
	}
	for i, sub := range d.subs {
		if r := sub.Mark(v); r.Kind != AddedRejected {
			return rebase(r, i)
		}
	}
	return Rejected()
}

// Lookup implements Dictionary.
func (d *MetaDictionary) Lookup(v datavalues.DataValue) (uint64, bool) {
	if v.Kind() == datavalues.KindNull {
		local, ok := d.nulls.Lookup(v)
		if !ok {
			return NonExistingID, false
		}
		return NullPartition | local, true
	}
	for i, sub := range d.subs {
		if id, ok := sub.Lookup(v); ok {
			if id == KnownMarkID {
				return id, true
			}
			return globalID(i, id), true
		}
	}
	return NonExistingID, false
}

// Reverse implements Dictionary.
func (d *MetaDictionary) Reverse(id uint64) (datavalues.DataValue, bool) {
	if id == KnownMarkID || id == NonExistingID {
		return datavalues.DataValue{}, false
	}
	partition := id & partitionMask
	local := id &^ partitionMask
	if partition == NullPartition {
		return d.nulls.Reverse(local)
	}
	idx := int(partition >> partitionShift)
	if idx >= len(d.subs) {
		return datavalues.DataValue{}, false
	}
	return d.subs[idx].Reverse(local)
}

// Len implements Dictionary.
func (d *MetaDictionary) Len() int {
	total := d.nulls.Len()
	for _, sub := range d.subs {
		total += sub.Len()
	}
	return total
}

// HasMarked implements Dictionary.
func (d *MetaDictionary) HasMarked() bool {
	for _, sub := range d.subs {
		if sub.HasMarked() {
			return true
		}
	}
	return false
}

// ValueToStorage converts a datavalue into its physical representation,
// interning through the dictionary when needed. Integers (Integer and
// Long) and floats are stored natively; everything else becomes a
// dictionary reference, using Id32 when the id fits 32 bits. The boolean
// result is false for values the dictionary rejects (or non-storable
// numerics such as NaN).
func (d *MetaDictionary) ValueToStorage(v datavalues.DataValue) (datavalues.StorageValue, bool) {
	switch v.Kind() {
	case datavalues.KindInteger, datavalues.KindLong:
		return datavalues.Int64(v.AsInt64()), true
	case datavalues.KindFloat:
		f := v.AsFloat64()
		if math.IsNaN(f) {
			return datavalues.StorageValue{}, false
		}
		return datavalues.Float(float32(f)), true
	case datavalues.KindDouble:
		f := v.AsFloat64()
		if math.IsNaN(f) {
			return datavalues.StorageValue{}, false
		}
		return datavalues.Double(f), true
	}
	var id uint64
	if v.Kind() == datavalues.KindNull {
		local, ok := d.nulls.Lookup(v)
		if !ok {
			return datavalues.StorageValue{}, false
		}
		id = NullPartition | local
	} else {
		r := d.Add(v)
		if r.Kind == AddedRejected || r.ID == KnownMarkID {
			return datavalues.StorageValue{}, false
		}
		id = r.ID
	}
	if id <= math.MaxUint32 {
		return datavalues.Id32(uint32(id)), true
	}
	return datavalues.Id64(id), true
}

// StorageToValue reconstructs the datavalue behind a storage value,
// reversing the dictionary for id references.
func (d *MetaDictionary) StorageToValue(v datavalues.StorageValue) (datavalues.DataValue, bool) {
	switch v.Type() {
	case datavalues.StorageId32:
		return d.Reverse(uint64(v.AsId32()))
	case datavalues.StorageId64:
		return d.Reverse(v.AsId64())
	case datavalues.StorageInt64:
		return datavalues.Integer(v.AsInt64()), true
	case datavalues.StorageFloat:
		return datavalues.FloatValue(v.AsFloat()), true
	case datavalues.StorageDouble:
		return datavalues.DoubleValue(v.AsDouble()), true
	}
	return datavalues.DataValue{}, false
}
