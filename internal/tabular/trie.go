// Package tabular implements tries — column-oriented tables whose layers
// are type-partitioned interval columns — together with the trie-scan
// algebra that joins, unions, subtracts, filters, extends and aggregates
// them, and the materializer that turns streaming scans back into tries.
package tabular

import (
	"github.com/aidan-bailey/nemo/internal/columnar"
	"github.com/aidan-bailey/nemo/internal/datavalues"
)

// DefaultLookup is the interval lookup strategy used for materialized
// tries.
const DefaultLookup = columnar.LookupSingle

// Trie stores a relation as a tree: each layer is one column, a path from
// the root to a leaf is one row. Tries are immutable once built.
type Trie struct {
	layers []*columnar.IntervalColumnT

	// nonEmpty distinguishes the two arity-0 tries (zero rows or exactly
	// one empty row); for positive arities it mirrors layer content.
	nonEmpty bool
}

// Arity returns the number of layers.
func (t *Trie) Arity() int { return len(t.layers) }

// IsEmpty reports whether the trie holds no rows.
func (t *Trie) IsEmpty() bool { return !t.nonEmpty }

// NumRows counts the rows (leaf entries).
func (t *Trie) NumRows() int {
	if len(t.layers) == 0 {
		if t.nonEmpty {
			return 1
		}
		return 0
	}
	return t.layers[len(t.layers)-1].Len()
}

// Layer returns the interval column of the given layer.
func (t *Trie) Layer(i int) *columnar.IntervalColumnT { return t.layers[i] }

// EmptyTrie returns a trie of the given arity with no rows.
func EmptyTrie(arity int) *Trie {
	rows := [][]datavalues.StorageValue(nil)
	return FromSortedRows(arity, rows)
}

// UnitTrie returns the arity-0 trie holding exactly one empty row.
func UnitTrie() *Trie { return &Trie{nonEmpty: true} }

// FromRows builds a trie from unordered rows; rows are sorted and
// duplicates collapse during the build.
func FromRows(arity int, rows [][]datavalues.StorageValue) *Trie {
	buffer := NewTupleBuffer(arity)
	for _, row := range rows {
		buffer.AddRow(row)
	}
	return FromTupleBuffer(buffer)
}

// FromTupleBuffer builds a trie from a buffer, sorting it first.
func FromTupleBuffer(buffer *TupleBuffer) *Trie {
	return FromSortedRows(buffer.arity, buffer.Sorted())
}

// FromSortedRows builds a trie from lexicographically sorted rows using
// the matrix builders. Rows equal on a prefix share that prefix path;
// duplicate rows collapse.
func FromSortedRows(arity int, rows [][]datavalues.StorageValue) *Trie {
	if arity == 0 {
		return &Trie{nonEmpty: len(rows) > 0}
	}

	layers := make([]*columnar.IntervalColumnT, 0, arity)

	// Boundaries of the previous layer: tuple indices at which the
	// previous layer started a new value, which are exactly the interval
	// boundaries of this layer.
	var lastBoundaries []int

	for col := 0; col < arity; col++ {
		builder := columnar.NewBuilderMatrix(DefaultLookup)
		var boundaries []int

		predecessor := 0
		for tuple, row := range rows {
			if predecessor < len(lastBoundaries) && lastBoundaries[predecessor] == tuple {
				builder.FinishInterval()
				predecessor++
			}
			if builder.AddValue(row[col]) && tuple > 0 {
				boundaries = append(boundaries, tuple)
			}
		}
		builder.FinishInterval()

		layers = append(layers, builder.Finalize())
		lastBoundaries = boundaries
	}

	return &Trie{layers: layers, nonEmpty: len(rows) > 0}
}

// ContainsRow reports whether the trie holds the given row, walking the
// layer intervals without allocating a scan.
func (t *Trie) ContainsRow(row []datavalues.StorageValue) bool {
	if len(row) != t.Arity() {
		return false
	}
	if t.Arity() == 0 {
		return t.nonEmpty
	}

	predecessor := 0
	for i, layer := range t.layers {
		value := row[i]
		start, end := 0, layer.TypeLen(value.Type())
		if i > 0 {
			var ok bool
			start, end, ok = layer.Bounds(value.Type(), predecessor)
			if !ok {
				return false
			}
		}
		local, found := findValue(layer, value, start, end)
		if !found {
			return false
		}
		predecessor = layer.GlobalIndex(value.Type(), local)
	}
	return true
}

// findValue binary-searches one typed data column within [start, end).
func findValue(layer *columnar.IntervalColumnT, value datavalues.StorageValue, start, end int) (int, bool) {
	lo, hi := start, end
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if layer.Get(value.Type(), mid).Compare(value) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < end && layer.Get(value.Type(), lo).Equal(value) {
		return lo, true
	}
	return 0, false
}

// Scan returns a partial trie scan positioned above the first layer.
func (t *Trie) Scan() *TrieScanGeneric {
	scans := make([]*columnar.RainbowScan, len(t.layers))
	for i, layer := range t.layers {
		scans[i] = layer.Scan()
	}
	return &TrieScanGeneric{trie: t, scans: scans}
}

// TrieScanGeneric is the PartialTrieScan over a materialized trie.
type TrieScanGeneric struct {
	trie  *Trie
	path  []datavalues.StorageType
	scans []*columnar.RainbowScan
}

// Arity implements PartialTrieScan.
func (s *TrieScanGeneric) Arity() int { return s.trie.Arity() }

// PathTypes implements PartialTrieScan.
func (s *TrieScanGeneric) PathTypes() []datavalues.StorageType { return s.path }

// Scan implements PartialTrieScan.
func (s *TrieScanGeneric) Scan(layer int) *columnar.RainbowScan { return s.scans[layer] }

// Down implements PartialTrieScan. Below the root it narrows the next
// layer's scan of the chosen storage type to the child interval of the
// current element, located through its global index.
func (s *TrieScanGeneric) Down(next datavalues.StorageType) {
	if len(s.path) == 0 {
		layer := s.trie.layers[0]
		s.scans[0].Narrow(next, 0, layer.TypeLen(next))
		s.path = append(s.path, next)
		return
	}

	current := len(s.path) - 1
	currentType := s.path[current]
	local, ok := s.scans[current].Pos(currentType)
	if !ok {
		panic("tabular: down requires the current layer to point at an element")
	}
	global := s.trie.layers[current].GlobalIndex(currentType, local)

	start, end, ok := s.trie.layers[current+1].Bounds(next, global)
	if !ok {
		start, end = 0, 0
	}
	s.scans[current+1].Narrow(next, start, end)
	s.path = append(s.path, next)
}

// Up implements PartialTrieScan.
func (s *TrieScanGeneric) Up() {
	if len(s.path) == 0 {
		panic("tabular: up at the root")
	}
	s.path = s.path[:len(s.path)-1]
}
