package columnar

import (
	"github.com/aidan-bailey/nemo/internal/datavalues"
)

// IntervalColumn is one storage type's slice of a trie layer: a data
// column in depth-first sorted order plus the interval lookup that
// associates predecessor global indices with child ranges.
type IntervalColumn[T Value] struct {
	data   Column[T]
	lookup IntervalLookup
}

// Len returns the number of data entries.
func (c *IntervalColumn[T]) Len() int { return c.data.Len() }

// Get returns the data entry at the given index.
func (c *IntervalColumn[T]) Get(i int) T { return c.data.Get(i) }

// Bounds returns the child interval of the given predecessor.
func (c *IntervalColumn[T]) Bounds(predecessor int) (int, int, bool) {
	return c.lookup.Bounds(predecessor)
}

// Scan returns a fresh scan over the whole data column.
func (c *IntervalColumn[T]) Scan() ColumnScan[T] { return NewColumnScan(c.data) }

// IntervalColumnT is a full trie layer: one interval column per storage
// type plus the cumulative starts that map (type, local index) pairs to
// the layer's global index space.
type IntervalColumnT struct {
	id32   IntervalColumn[uint32]
	id64   IntervalColumn[uint64]
	int64s IntervalColumn[int64]
	floats IntervalColumn[float32]
	double IntervalColumn[float64]

	// starts[t] is the total number of entries in all columns of storage
	// types up to and including t, so entries of type t begin at global
	// index starts[t-1]; starts ends with the layer's total length.
	starts [datavalues.NumStorageTypes]int
}

func newIntervalColumnT(
	id32 IntervalColumn[uint32],
	id64 IntervalColumn[uint64],
	int64s IntervalColumn[int64],
	floats IntervalColumn[float32],
	double IntervalColumn[float64],
) *IntervalColumnT {
	c := &IntervalColumnT{
		id32: id32, id64: id64, int64s: int64s, floats: floats, double: double,
	}
	c.starts = [datavalues.NumStorageTypes]int{
		id32.Len(),
		id32.Len() + id64.Len(),
		id32.Len() + id64.Len() + int64s.Len(),
		id32.Len() + id64.Len() + int64s.Len() + floats.Len(),
		id32.Len() + id64.Len() + int64s.Len() + floats.Len() + double.Len(),
	}
	return c
}

// Len returns the total number of entries across all storage types.
func (c *IntervalColumnT) Len() int {
	return c.starts[datavalues.NumStorageTypes-1]
}

// TypeLen returns the number of entries of one storage type.
func (c *IntervalColumnT) TypeLen(t datavalues.StorageType) int {
	switch t {
	case datavalues.StorageId32:
		return c.id32.Len()
	case datavalues.StorageId64:
		return c.id64.Len()
	case datavalues.StorageInt64:
		return c.int64s.Len()
	case datavalues.StorageFloat:
		return c.floats.Len()
	default:
		return c.double.Len()
	}
}

// GlobalIndex maps a storage type and local index within that type's data
// column to the index the entry would have if all five columns were laid
// out consecutively in the fixed type order.
func (c *IntervalColumnT) GlobalIndex(t datavalues.StorageType, local int) int {
	switch t {
	case datavalues.StorageId32:
		return local
	case datavalues.StorageId64:
		return c.starts[0] + local
	case datavalues.StorageInt64:
		return c.starts[1] + local
	case datavalues.StorageFloat:
		return c.starts[2] + local
	default:
		return c.starts[3] + local
	}
}

// Bounds returns the child interval, within the data column of the given
// storage type, below the predecessor with the given global index.
func (c *IntervalColumnT) Bounds(t datavalues.StorageType, predecessor int) (int, int, bool) {
	switch t {
	case datavalues.StorageId32:
		return c.id32.Bounds(predecessor)
	case datavalues.StorageId64:
		return c.id64.Bounds(predecessor)
	case datavalues.StorageInt64:
		return c.int64s.Bounds(predecessor)
	case datavalues.StorageFloat:
		return c.floats.Bounds(predecessor)
	default:
		return c.double.Bounds(predecessor)
	}
}

// Get returns the value at a (storage type, local index) position.
func (c *IntervalColumnT) Get(t datavalues.StorageType, local int) datavalues.StorageValue {
	switch t {
	case datavalues.StorageId32:
		return datavalues.Id32(c.id32.Get(local))
	case datavalues.StorageId64:
		return datavalues.Id64(c.id64.Get(local))
	case datavalues.StorageInt64:
		return datavalues.Int64(c.int64s.Get(local))
	case datavalues.StorageFloat:
		return datavalues.Float(c.floats.Get(local))
	default:
		return datavalues.Double(c.double.Get(local))
	}
}

// Scan returns a rainbow scan over the layer.
func (c *IntervalColumnT) Scan() *RainbowScan {
	return &RainbowScan{
		Id32:   c.id32.Scan(),
		Id64:   c.id64.Scan(),
		Int64:  c.int64s.Scan(),
		Float:  c.floats.Scan(),
		Double: c.double.Scan(),
	}
}

// intervalColumnBuilder builds one storage type's interval column.
type intervalColumnBuilder[T Value] struct {
	data      *AdaptiveBuilder[T]
	lookup    IntervalLookupBuilder
	lastCount int
}

func newIntervalColumnBuilder[T Value](kind LookupKind) *intervalColumnBuilder[T] {
	return &intervalColumnBuilder[T]{
		data:   NewAdaptiveBuilder[T](),
		lookup: NewLookupBuilder(kind),
	}
}

func (b *intervalColumnBuilder[T]) addData(value T) { b.data.Add(value) }

// finishInterval closes the current predecessor: if data arrived since the
// last close, an interval starting at the previous count is recorded,
// otherwise the predecessor is marked empty.
func (b *intervalColumnBuilder[T]) finishInterval() {
	if count := b.data.Count(); count > b.lastCount {
		b.lookup.Add(b.lastCount)
		b.lastCount = count
	} else {
		b.lookup.AddEmpty()
	}
}

func (b *intervalColumnBuilder[T]) finalize() IntervalColumn[T] {
	return IntervalColumn[T]{
		data:   b.data.Finalize(),
		lookup: b.lookup.Finalize(b.data.Count()),
	}
}

// BuilderMatrix builds an IntervalColumnT from a sorted row matrix: values
// arrive grouped by predecessor block, AddValue dedupes repetitions within
// the block, and FinishInterval closes the block across all five storage
// types.
type BuilderMatrix struct {
	id32   *intervalColumnBuilder[uint32]
	id64   *intervalColumnBuilder[uint64]
	int64s *intervalColumnBuilder[int64]
	floats *intervalColumnBuilder[float32]
	double *intervalColumnBuilder[float64]

	pending  datavalues.StorageValue
	hasValue bool
}

// NewBuilderMatrix creates a matrix-mode builder using the given interval
// lookup strategy.
func NewBuilderMatrix(kind LookupKind) *BuilderMatrix {
	return &BuilderMatrix{
		id32:   newIntervalColumnBuilder[uint32](kind),
		id64:   newIntervalColumnBuilder[uint64](kind),
		int64s: newIntervalColumnBuilder[int64](kind),
		floats: newIntervalColumnBuilder[float32](kind),
		double: newIntervalColumnBuilder[float64](kind),
	}
}

func (b *BuilderMatrix) commit() {
	if !b.hasValue {
		return
	}
	switch v := b.pending; v.Type() {
	case datavalues.StorageId32:
		b.id32.addData(v.AsId32())
	case datavalues.StorageId64:
		b.id64.addData(v.AsId64())
	case datavalues.StorageInt64:
		b.int64s.addData(v.AsInt64())
	case datavalues.StorageFloat:
		b.floats.addData(v.AsFloat())
	case datavalues.StorageDouble:
		b.double.addData(v.AsDouble())
	}
}

// AddValue offers the next value of the current predecessor block.
// It reports whether the value differs from the previously added one.
func (b *BuilderMatrix) AddValue(value datavalues.StorageValue) bool {
	if !b.hasValue {
		b.pending = value
		b.hasValue = true
		return true
	}
	if b.pending.Equal(value) {
		return false
	}
	b.commit()
	b.pending = value
	return true
}

// FinishInterval closes the current predecessor block.
func (b *BuilderMatrix) FinishInterval() {
	b.commit()
	b.id32.finishInterval()
	b.id64.finishInterval()
	b.int64s.finishInterval()
	b.floats.finishInterval()
	b.double.finishInterval()
	b.hasValue = false
}

// Finalize seals the layer.
func (b *BuilderMatrix) Finalize() *IntervalColumnT {
	return newIntervalColumnT(
		b.id32.finalize(),
		b.id64.finalize(),
		b.int64s.finalize(),
		b.floats.finalize(),
		b.double.finalize(),
	)
}

// BuilderTriescan builds an IntervalColumnT from a streaming trie scan:
// values arrive already deduplicated, FinishInterval closes predecessor
// blocks.
type BuilderTriescan struct {
	id32   *intervalColumnBuilder[uint32]
	id64   *intervalColumnBuilder[uint64]
	int64s *intervalColumnBuilder[int64]
	floats *intervalColumnBuilder[float32]
	double *intervalColumnBuilder[float64]
}

// NewBuilderTriescan creates a triescan-mode builder using the given
// interval lookup strategy.
func NewBuilderTriescan(kind LookupKind) *BuilderTriescan {
	return &BuilderTriescan{
		id32:   newIntervalColumnBuilder[uint32](kind),
		id64:   newIntervalColumnBuilder[uint64](kind),
		int64s: newIntervalColumnBuilder[int64](kind),
		floats: newIntervalColumnBuilder[float32](kind),
		double: newIntervalColumnBuilder[float64](kind),
	}
}

// AddValue appends a value to the data column of its storage type.
func (b *BuilderTriescan) AddValue(value datavalues.StorageValue) {
	switch value.Type() {
	case datavalues.StorageId32:
		b.id32.addData(value.AsId32())
	case datavalues.StorageId64:
		b.id64.addData(value.AsId64())
	case datavalues.StorageInt64:
		b.int64s.addData(value.AsInt64())
	case datavalues.StorageFloat:
		b.floats.addData(value.AsFloat())
	case datavalues.StorageDouble:
		b.double.addData(value.AsDouble())
	}
}

// FinishInterval closes the current predecessor block.
func (b *BuilderTriescan) FinishInterval() {
	b.id32.finishInterval()
	b.id64.finishInterval()
	b.int64s.finishInterval()
	b.floats.finishInterval()
	b.double.finishInterval()
}

// Finalize seals the layer.
func (b *BuilderTriescan) Finalize() *IntervalColumnT {
	return newIntervalColumnT(
		b.id32.finalize(),
		b.id64.finalize(),
		b.int64s.finalize(),
		b.floats.finalize(),
		b.double.finalize(),
	)
}
