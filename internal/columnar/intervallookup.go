package columnar

import "math"

// emptyMark encodes a childless predecessor in lookup columns.
const emptyMark = math.MaxInt

// IntervalLookup associates every global predecessor index of the previous
// layer with the half-open range of child indices in this layer's data
// column, or reports that the predecessor has no children.
type IntervalLookup interface {
	// Bounds returns the child range of the given predecessor.
	Bounds(predecessor int) (start, end int, ok bool)
}

// IntervalLookupBuilder receives, per predecessor in order, either the
// start offset of its child interval or an empty mark. Since children are
// laid out depth-first, the intervals tile the data column; the end of an
// interval is the next recorded start (or the final data length).
type IntervalLookupBuilder interface {
	// Add records a predecessor whose children start at the given data
	// offset.
	Add(start int)
	// AddEmpty records a childless predecessor.
	AddEmpty()
	// IsExclusive reports whether no predecessor was empty so far, in
	// which case callers may use a contiguous mapping instead of the
	// lookup.
	IsExclusive() bool
	// Finalize seals the builder; dataLen closes the last interval.
	Finalize(dataLen int) IntervalLookup
}

// lookupDual keeps two columns: interval start offsets, and a map from
// predecessor to interval index. Dense choice when most predecessors have
// children.
type lookupDual struct {
	starts  Column[int]
	indexes Column[int]
	dataLen int
}

func (l *lookupDual) Bounds(predecessor int) (int, int, bool) {
	if predecessor < 0 || predecessor >= l.indexes.Len() {
		return 0, 0, false
	}
	idx := l.indexes.Get(predecessor)
	if idx == emptyMark {
		return 0, 0, false
	}
	start := l.starts.Get(idx)
	end := l.dataLen
	if idx+1 < l.starts.Len() {
		end = l.starts.Get(idx + 1)
	}
	return start, end, true
}

// LookupDualBuilder builds the dual-column lookup.
type LookupDualBuilder struct {
	starts    *AdaptiveBuilder[int]
	indexes   *AdaptiveBuilder[int]
	exclusive bool
}

// NewLookupDualBuilder creates an empty dual-column builder.
func NewLookupDualBuilder() *LookupDualBuilder {
	return &LookupDualBuilder{
		starts:    NewAdaptiveBuilder[int](),
		indexes:   NewAdaptiveBuilder[int](),
		exclusive: true,
	}
}

func (b *LookupDualBuilder) Add(start int) {
	b.indexes.Add(b.starts.Count())
	b.starts.Add(start)
}

func (b *LookupDualBuilder) AddEmpty() {
	b.indexes.Add(emptyMark)
	b.exclusive = false
}

func (b *LookupDualBuilder) IsExclusive() bool { return b.exclusive }

func (b *LookupDualBuilder) Finalize(dataLen int) IntervalLookup {
	return &lookupDual{
		starts:  b.starts.Finalize(),
		indexes: b.indexes.Finalize(),
		dataLen: dataLen,
	}
}

// lookupSingle keeps one column mapping predecessors directly to interval
// start offsets, with an empty sentinel; the end of an interval is
// inferred from the next non-empty predecessor. Dense choice when the
// predecessor space is small.
type lookupSingle struct {
	starts  Column[int]
	dataLen int
}

func (l *lookupSingle) Bounds(predecessor int) (int, int, bool) {
	if predecessor < 0 || predecessor >= l.starts.Len() {
		return 0, 0, false
	}
	start := l.starts.Get(predecessor)
	if start == emptyMark {
		return 0, 0, false
	}
	end := l.dataLen
	for next := predecessor + 1; next < l.starts.Len(); next++ {
		if s := l.starts.Get(next); s != emptyMark {
			end = s
			break
		}
	}
	return start, end, true
}

// LookupSingleBuilder builds the single-column lookup.
type LookupSingleBuilder struct {
	starts    *AdaptiveBuilder[int]
	exclusive bool
}

// NewLookupSingleBuilder creates an empty single-column builder.
func NewLookupSingleBuilder() *LookupSingleBuilder {
	return &LookupSingleBuilder{starts: NewAdaptiveBuilder[int](), exclusive: true}
}

func (b *LookupSingleBuilder) Add(start int) { b.starts.Add(start) }

func (b *LookupSingleBuilder) AddEmpty() {
	b.starts.Add(emptyMark)
	b.exclusive = false
}

func (b *LookupSingleBuilder) IsExclusive() bool { return b.exclusive }

func (b *LookupSingleBuilder) Finalize(dataLen int) IntervalLookup {
	return &lookupSingle{starts: b.starts.Finalize(), dataLen: dataLen}
}

// lookupBitvector marks predecessors with children in a bitmap and keeps a
// compact starts vector indexed by rank. Dense choice when most
// predecessors are empty.
type lookupBitvector struct {
	bits    []uint64
	count   int // number of predecessors recorded
	ranks   []int // cumulative popcount per word
	starts  Column[int]
	dataLen int
}

func (l *lookupBitvector) Bounds(predecessor int) (int, int, bool) {
	if predecessor < 0 || predecessor >= l.count {
		return 0, 0, false
	}
	word, bit := predecessor/64, uint(predecessor%64)
	if l.bits[word]&(1<<bit) == 0 {
		return 0, 0, false
	}
	rank := l.ranks[word] + popcount(l.bits[word]&((1<<bit)-1))
	start := l.starts.Get(rank)
	end := l.dataLen
	if rank+1 < l.starts.Len() {
		end = l.starts.Get(rank + 1)
	}
	return start, end, true
}

func popcount(v uint64) int {
	count := 0
	for v != 0 {
		v &= v - 1
		count++
	}
	return count
}

// LookupBitvectorBuilder builds the bitvector lookup.
type LookupBitvectorBuilder struct {
	bits      []uint64
	count     int
	starts    *AdaptiveBuilder[int]
	exclusive bool
}

// NewLookupBitvectorBuilder creates an empty bitvector builder.
func NewLookupBitvectorBuilder() *LookupBitvectorBuilder {
	return &LookupBitvectorBuilder{starts: NewAdaptiveBuilder[int](), exclusive: true}
}

func (b *LookupBitvectorBuilder) Add(start int) {
	word, bit := b.count/64, uint(b.count%64)
	for word >= len(b.bits) {
		b.bits = append(b.bits, 0)
	}
	b.bits[word] |= 1 << bit
	b.count++
	b.starts.Add(start)
}

func (b *LookupBitvectorBuilder) AddEmpty() {
	word := b.count / 64
	for word >= len(b.bits) {
		b.bits = append(b.bits, 0)
	}
	b.count++
	b.exclusive = false
}

func (b *LookupBitvectorBuilder) IsExclusive() bool { return b.exclusive }

func (b *LookupBitvectorBuilder) Finalize(dataLen int) IntervalLookup {
	ranks := make([]int, len(b.bits))
	total := 0
	for i, w := range b.bits {
		ranks[i] = total
		total += popcount(w)
	}
	return &lookupBitvector{
		bits:    b.bits,
		count:   b.count,
		ranks:   ranks,
		starts:  b.starts.Finalize(),
		dataLen: dataLen,
	}
}

// LookupKind selects an interval lookup implementation at build time.
type LookupKind uint8

const (
	// LookupSingle is the single-column strategy (the default).
	LookupSingle LookupKind = iota
	// LookupDual is the dual-column strategy.
	LookupDual
	// LookupBitvector is the bitmap strategy.
	LookupBitvector
)

// NewLookupBuilder creates a builder of the requested kind.
func NewLookupBuilder(kind LookupKind) IntervalLookupBuilder {
	switch kind {
	case LookupDual:
		return NewLookupDualBuilder()
	case LookupBitvector:
		return NewLookupBitvectorBuilder()
	default:
		return NewLookupSingleBuilder()
	}
}
