package tabular

import (
	"github.com/aidan-bailey/nemo/internal/columnar"
	"github.com/aidan-bailey/nemo/internal/datavalues"
)

// AppendExpr computes the value of an appended layer from the values of
// all earlier layers (input layers first, previously appended layers
// after). Returning false drops the row, which is how arithmetic domain
// errors surface.
type AppendExpr func(bound []datavalues.StorageValue) (datavalues.StorageValue, bool)

// ConstantExpr builds an AppendExpr yielding a fixed value.
func ConstantExpr(value datavalues.StorageValue) AppendExpr {
	return func([]datavalues.StorageValue) (datavalues.StorageValue, bool) {
		return value, true
	}
}

// TrieScanFunction appends one computed layer per expression behind the
// layers of the inner scan.
type TrieScanFunction struct {
	inner    PartialTrieScan
	exprs    []AppendExpr
	computed []*columnar.RainbowScan
	values   []datavalues.StorageValue
	valueSet []bool
	path     []datavalues.StorageType

	// Navigation probes every storage type of an appended layer, so the
	// expression result is cached per bound prefix instead of being
	// recomputed (and its failures recounted) on each probe.
	cacheBound [][]datavalues.StorageValue
	cacheValue []datavalues.StorageValue
	cacheOK    []bool
}

// NewTrieScanFunction creates a function scan appending len(exprs) layers.
func NewTrieScanFunction(inner PartialTrieScan, exprs []AppendExpr) *TrieScanFunction {
	return &TrieScanFunction{
		inner:      inner,
		exprs:      exprs,
		computed:   make([]*columnar.RainbowScan, len(exprs)),
		values:     make([]datavalues.StorageValue, len(exprs)),
		valueSet:   make([]bool, len(exprs)),
		cacheBound: make([][]datavalues.StorageValue, len(exprs)),
		cacheValue: make([]datavalues.StorageValue, len(exprs)),
		cacheOK:    make([]bool, len(exprs)),
	}
}

func sameValues(a, b []datavalues.StorageValue) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// evaluate computes (or recalls) the value of appended layer idx for the
// current bound prefix.
func (s *TrieScanFunction) evaluate(idx int, bound []datavalues.StorageValue) (datavalues.StorageValue, bool) {
	if s.cacheBound[idx] != nil && sameValues(s.cacheBound[idx], bound) {
		return s.cacheValue[idx], s.cacheOK[idx]
	}
	value, ok := s.exprs[idx](bound)
	s.cacheBound[idx] = bound
	s.cacheValue[idx] = value
	s.cacheOK[idx] = ok
	return value, ok
}

// Arity implements PartialTrieScan.
func (s *TrieScanFunction) Arity() int { return s.inner.Arity() + len(s.exprs) }

// PathTypes implements PartialTrieScan.
func (s *TrieScanFunction) PathTypes() []datavalues.StorageType { return s.path }

// Scan implements PartialTrieScan.
func (s *TrieScanFunction) Scan(layer int) *columnar.RainbowScan {
	if layer < s.inner.Arity() {
		return s.inner.Scan(layer)
	}
	return s.computed[layer-s.inner.Arity()]
}

// bound collects the current values of all layers before the given
// appended layer.
func (s *TrieScanFunction) bound(appended int) []datavalues.StorageValue {
	innerArity := s.inner.Arity()
	values := make([]datavalues.StorageValue, 0, innerArity+appended)
	for layer := 0; layer < innerArity; layer++ {
		v, ok := s.inner.Scan(layer).Current(s.path[layer])
		if !ok {
			return nil
		}
		values = append(values, v)
	}
	for i := 0; i < appended; i++ {
		if !s.valueSet[i] {
			return nil
		}
		values = append(values, s.values[i])
	}
	return values
}

// Down implements PartialTrieScan. Entering an appended layer evaluates
// its expression over the bound prefix; the layer exposes the computed
// value for its storage type and is empty for every other type, so failed
// evaluations drop the branch.
func (s *TrieScanFunction) Down(next datavalues.StorageType) {
	layer := len(s.path)
	innerArity := s.inner.Arity()
	if layer < innerArity {
		s.inner.Down(next)
		s.path = append(s.path, next)
		return
	}

	idx := layer - innerArity
	s.valueSet[idx] = false
	rainbow := &columnar.RainbowScan{
		Id32:   columnar.NewScanEmpty[uint32](),
		Id64:   columnar.NewScanEmpty[uint64](),
		Int64:  columnar.NewScanEmpty[int64](),
		Float:  columnar.NewScanEmpty[float32](),
		Double: columnar.NewScanEmpty[float64](),
	}
	if bound := s.bound(idx); bound != nil {
		if value, ok := s.evaluate(idx, bound); ok && value.Type() == next {
			switch next {
			case datavalues.StorageId32:
				rainbow.Id32 = columnar.NewScanConstant(value.AsId32())
			case datavalues.StorageId64:
				rainbow.Id64 = columnar.NewScanConstant(value.AsId64())
			case datavalues.StorageInt64:
				rainbow.Int64 = columnar.NewScanConstant(value.AsInt64())
			case datavalues.StorageFloat:
				rainbow.Float = columnar.NewScanConstant(value.AsFloat())
			case datavalues.StorageDouble:
				rainbow.Double = columnar.NewScanConstant(value.AsDouble())
			}
			s.values[idx] = value
			s.valueSet[idx] = true
		}
	}
	s.computed[idx] = rainbow
	s.path = append(s.path, next)
}

// Up implements PartialTrieScan.
func (s *TrieScanFunction) Up() {
	layer := len(s.path) - 1
	if layer < s.inner.Arity() {
		s.inner.Up()
	}
	s.path = s.path[:layer]
}
