package tabular

import (
	"github.com/aidan-bailey/nemo/internal/columnar"
	"github.com/aidan-bailey/nemo/internal/datavalues"
)

// PartialTrieScan is a navigable iterator over a trie-shaped operator
// tree. Down is legal only while the current layer's scan points at an
// element (or at the root); Up is illegal at the root. Scan exposes the
// rainbow of a layer so callers can advance within it.
type PartialTrieScan interface {
	Arity() int
	Down(next datavalues.StorageType)
	Up()
	Scan(layer int) *columnar.RainbowScan
	PathTypes() []datavalues.StorageType
}

// TrieScan streams complete rows. AdvanceOnLayer advances the deepest
// position that changes while treating maxLayer as the last materialized
// layer; it returns the shallowest layer whose value changed. CurrentValue
// reads the value of a bound layer.
type TrieScan interface {
	Arity() int
	AdvanceOnLayer(maxLayer int) (int, bool)
	CurrentValue(layer int) datavalues.StorageValue
}

// RowScan drives a PartialTrieScan depth-first across all storage types,
// pruning branches that bottom out before maxLayer. It is the generic
// TrieScan over any partial scan.
type RowScan struct {
	inner   PartialTrieScan
	typeIdx []int
	started bool
}

// NewRowScan creates a row scan over a partial scan.
func NewRowScan(inner PartialTrieScan) *RowScan {
	return &RowScan{inner: inner}
}

// Arity implements TrieScan.
func (s *RowScan) Arity() int { return s.inner.Arity() }

// CurrentValue implements TrieScan.
func (s *RowScan) CurrentValue(layer int) datavalues.StorageValue {
	t := datavalues.StorageTypes[s.typeIdx[layer]]
	v, ok := s.inner.Scan(layer).Current(t)
	if !ok {
		panic("tabular: current value of an unbound layer")
	}
	return v
}

// AdvanceOnLayer implements TrieScan.
func (s *RowScan) AdvanceOnLayer(maxLayer int) (int, bool) {
	if s.inner.Arity() == 0 {
		return 0, false
	}

	changed := maxLayer
	if !s.started {
		s.started = true
		s.typeIdx = append(s.typeIdx[:0], 0)
		s.inner.Down(datavalues.StorageTypes[0])
		changed = 0
	}

	for {
		depth := len(s.typeIdx) - 1
		if depth < 0 {
			return 0, false
		}
		t := datavalues.StorageTypes[s.typeIdx[depth]]

		if _, ok := s.inner.Scan(depth).Next(t); ok {
			if depth < changed {
				changed = depth
			}
			if depth == maxLayer {
				return changed, true
			}
			// Descend into the first storage type of the next layer.
			s.typeIdx = append(s.typeIdx, 0)
			s.inner.Down(datavalues.StorageTypes[0])
			continue
		}

		// The current storage type is exhausted on this layer: move to
		// the next type, or backtrack when all five are done.
		if s.typeIdx[depth] < datavalues.NumStorageTypes-1 {
			s.typeIdx[depth]++
			s.inner.Up()
			s.inner.Down(datavalues.StorageTypes[s.typeIdx[depth]])
			continue
		}

		s.inner.Up()
		s.typeIdx = s.typeIdx[:depth]
	}
}

// CollectRows drains a TrieScan into a list of rows of the given width.
func CollectRows(scan TrieScan, width int) [][]datavalues.StorageValue {
	var rows [][]datavalues.StorageValue
	if width == 0 {
		return rows
	}
	current := make([]datavalues.StorageValue, width)
	for {
		changed, ok := scan.AdvanceOnLayer(width - 1)
		if !ok {
			return rows
		}
		for layer := changed; layer < width; layer++ {
			current[layer] = scan.CurrentValue(layer)
		}
		row := make([]datavalues.StorageValue, width)
		copy(row, current)
		rows = append(rows, row)
	}
}
