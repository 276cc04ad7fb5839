package tabular

import (
	"github.com/aidan-bailey/nemo/internal/columnar"
	"github.com/aidan-bailey/nemo/internal/datavalues"
)

// unionLayer keeps the concrete typed union scans of one layer so the
// trie-level union can toggle input scopes and read value owners.
type unionLayer struct {
	id32 *columnar.ScanUnion[uint32]
	id64 *columnar.ScanUnion[uint64]
	i64  *columnar.ScanUnion[int64]
	f32  *columnar.ScanUnion[float32]
	f64  *columnar.ScanUnion[float64]
}

func (l *unionLayer) setEnabled(enabled []bool) {
	l.id32.SetEnabled(enabled)
	l.id64.SetEnabled(enabled)
	l.i64.SetEnabled(enabled)
	l.f32.SetEnabled(enabled)
	l.f64.SetEnabled(enabled)
}

func (l *unionLayer) activeInputs(t datavalues.StorageType) []int {
	switch t {
	case datavalues.StorageId32:
		return l.id32.ActiveInputs()
	case datavalues.StorageId64:
		return l.id64.ActiveInputs()
	case datavalues.StorageInt64:
		return l.i64.ActiveInputs()
	case datavalues.StorageFloat:
		return l.f32.ActiveInputs()
	default:
		return l.f64.ActiveInputs()
	}
}

// TrieScanUnion unions input scans of identical arity, collapsing
// duplicate rows. Navigation only descends into the inputs that own the
// current value; the others are taken out of scope until backtracking.
type TrieScanUnion struct {
	inputs  []PartialTrieScan
	layers  []*unionLayer
	scans   []*columnar.RainbowScan
	inScope [][]bool
	path    []datavalues.StorageType
}

// NewTrieScanUnion creates a union scan over inputs of equal arity.
func NewTrieScanUnion(inputs []PartialTrieScan) *TrieScanUnion {
	arity := inputs[0].Arity()
	s := &TrieScanUnion{
		inputs:  inputs,
		layers:  make([]*unionLayer, arity),
		scans:   make([]*columnar.RainbowScan, arity),
		inScope: make([][]bool, arity),
	}
	for layer := 0; layer < arity; layer++ {
		id32 := make([]columnar.ColumnScan[uint32], len(inputs))
		id64 := make([]columnar.ColumnScan[uint64], len(inputs))
		i64 := make([]columnar.ColumnScan[int64], len(inputs))
		f32 := make([]columnar.ColumnScan[float32], len(inputs))
		f64 := make([]columnar.ColumnScan[float64], len(inputs))
		for i, input := range inputs {
			rainbow := input.Scan(layer)
			id32[i] = rainbow.Id32
			id64[i] = rainbow.Id64
			i64[i] = rainbow.Int64
			f32[i] = rainbow.Float
			f64[i] = rainbow.Double
		}
		l := &unionLayer{
			id32: columnar.NewScanUnion(id32...),
			id64: columnar.NewScanUnion(id64...),
			i64:  columnar.NewScanUnion(i64...),
			f32:  columnar.NewScanUnion(f32...),
			f64:  columnar.NewScanUnion(f64...),
		}
		s.layers[layer] = l
		s.scans[layer] = &columnar.RainbowScan{
			Id32: l.id32, Id64: l.id64, Int64: l.i64, Float: l.f32, Double: l.f64,
		}
		s.inScope[layer] = make([]bool, len(inputs))
	}
	return s
}

// Arity implements PartialTrieScan.
func (s *TrieScanUnion) Arity() int { return len(s.scans) }

// PathTypes implements PartialTrieScan.
func (s *TrieScanUnion) PathTypes() []datavalues.StorageType { return s.path }

// Scan implements PartialTrieScan.
func (s *TrieScanUnion) Scan(layer int) *columnar.RainbowScan { return s.scans[layer] }

// Down implements PartialTrieScan. At the root all inputs are in scope;
// below, only the owners of the current value descend.
func (s *TrieScanUnion) Down(next datavalues.StorageType) {
	layer := len(s.path)
	scope := s.inScope[layer]
	for i := range scope {
		scope[i] = false
	}
	if layer == 0 {
		for i, input := range s.inputs {
			input.Down(next)
			scope[i] = true
		}
	} else {
		currentType := s.path[layer-1]
		for _, i := range s.layers[layer-1].activeInputs(currentType) {
			s.inputs[i].Down(next)
			scope[i] = true
		}
	}
	s.layers[layer].setEnabled(scope)
	s.scans[layer].Reset(next)
	s.path = append(s.path, next)
}

// Up implements PartialTrieScan.
func (s *TrieScanUnion) Up() {
	layer := len(s.path) - 1
	for i, in := range s.inScope[layer] {
		if in {
			s.inputs[i].Up()
		}
	}
	s.path = s.path[:layer]
}
