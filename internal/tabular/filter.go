package tabular

import (
	"github.com/aidan-bailey/nemo/internal/columnar"
	"github.com/aidan-bailey/nemo/internal/datavalues"
)

// FilterPred decides whether a row prefix passes a selection. The slice
// holds the values of layers 0..lastLayer, where lastLayer is the deepest
// layer the condition references.
type FilterPred func(prefix []datavalues.StorageValue) bool

// FilterCondition is a selection evaluated once the given layer is bound.
type FilterCondition struct {
	LastLayer int
	Pred      FilterPred
}

// EqualConstantCondition selects rows whose value on a layer equals a
// constant.
func EqualConstantCondition(layer int, value datavalues.StorageValue) FilterCondition {
	return FilterCondition{
		LastLayer: layer,
		Pred: func(prefix []datavalues.StorageValue) bool {
			return prefix[layer].Equal(value)
		},
	}
}

// EqualColumnsCondition selects rows on which all the given layers agree.
func EqualColumnsCondition(layers []int) FilterCondition {
	last := layers[0]
	for _, l := range layers[1:] {
		if l > last {
			last = l
		}
	}
	return FilterCondition{
		LastLayer: last,
		Pred: func(prefix []datavalues.StorageValue) bool {
			first := prefix[layers[0]]
			for _, l := range layers[1:] {
				if !prefix[l].Equal(first) {
					return false
				}
			}
			return true
		},
	}
}

// filterColumnScan restricts one typed scan of a layer to values whose
// row prefix satisfies the layer's conditions.
type filterColumnScan[T columnar.Value] struct {
	inner  columnar.ColumnScan[T]
	accept func(T) bool
}

func (s *filterColumnScan[T]) Next() (T, bool) {
	for {
		v, ok := s.inner.Next()
		if !ok {
			var zero T
			return zero, false
		}
		if s.accept(v) {
			return v, true
		}
	}
}

func (s *filterColumnScan[T]) Current() (T, bool) { return s.inner.Current() }

func (s *filterColumnScan[T]) Seek(value T) (T, bool) {
	v, ok := s.inner.Seek(value)
	if !ok {
		var zero T
		return zero, false
	}
	if s.accept(v) {
		return v, true
	}
	return s.Next()
}

func (s *filterColumnScan[T]) Pos() (int, bool)      { return s.inner.Pos() }
func (s *filterColumnScan[T]) Narrow(start, end int) { s.inner.Narrow(start, end) }
func (s *filterColumnScan[T]) Reset()                { s.inner.Reset() }

// TrieScanFilter applies selection conditions to an inner scan. Each
// condition is checked on the deepest layer it references, while the
// shallower layers pass through unchanged.
type TrieScanFilter struct {
	inner PartialTrieScan
	conds []FilterCondition
	scans []*columnar.RainbowScan
	path  []datavalues.StorageType
}

// NewTrieScanFilter creates a filter scan.
func NewTrieScanFilter(inner PartialTrieScan, conds []FilterCondition) *TrieScanFilter {
	arity := inner.Arity()
	s := &TrieScanFilter{
		inner: inner,
		conds: conds,
		scans: make([]*columnar.RainbowScan, arity),
	}
	for layer := 0; layer < arity; layer++ {
		var layerConds []FilterCondition
		for _, c := range conds {
			if c.LastLayer == layer {
				layerConds = append(layerConds, c)
			}
		}
		rainbow := inner.Scan(layer)
		if len(layerConds) == 0 {
			s.scans[layer] = rainbow
			continue
		}
		s.scans[layer] = &columnar.RainbowScan{
			Id32:   &filterColumnScan[uint32]{inner: rainbow.Id32, accept: acceptFn(s, layer, layerConds, datavalues.Id32)},
			Id64:   &filterColumnScan[uint64]{inner: rainbow.Id64, accept: acceptFn(s, layer, layerConds, datavalues.Id64)},
			Int64:  &filterColumnScan[int64]{inner: rainbow.Int64, accept: acceptFn(s, layer, layerConds, datavalues.Int64)},
			Float:  &filterColumnScan[float32]{inner: rainbow.Float, accept: acceptFn(s, layer, layerConds, datavalues.Float)},
			Double: &filterColumnScan[float64]{inner: rainbow.Double, accept: acceptFn(s, layer, layerConds, datavalues.Double)},
		}
	}
	return s
}

// acceptFn builds the per-type predicate: it assembles the bound prefix of
// the row, substitutes the candidate value, and checks every condition
// ending on the layer.
func acceptFn[T columnar.Value](s *TrieScanFilter, layer int, conds []FilterCondition, wrap func(T) datavalues.StorageValue) func(T) bool {
	return func(v T) bool {
		prefix := make([]datavalues.StorageValue, layer+1)
		for l := 0; l < layer; l++ {
			value, ok := s.inner.Scan(l).Current(s.path[l])
			if !ok {
				return false
			}
			prefix[l] = value
		}
		prefix[layer] = wrap(v)
		for _, c := range conds {
			if !c.Pred(prefix) {
				return false
			}
		}
		return true
	}
}

// Arity implements PartialTrieScan.
func (s *TrieScanFilter) Arity() int { return s.inner.Arity() }

// PathTypes implements PartialTrieScan.
func (s *TrieScanFilter) PathTypes() []datavalues.StorageType { return s.path }

// Scan implements PartialTrieScan.
func (s *TrieScanFilter) Scan(layer int) *columnar.RainbowScan { return s.scans[layer] }

// Down implements PartialTrieScan.
func (s *TrieScanFilter) Down(next datavalues.StorageType) {
	s.inner.Down(next)
	s.path = append(s.path, next)
}

// Up implements PartialTrieScan.
func (s *TrieScanFilter) Up() {
	s.inner.Up()
	s.path = s.path[:len(s.path)-1]
}
