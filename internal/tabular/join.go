package tabular

import (
	"github.com/aidan-bailey/nemo/internal/columnar"
	"github.com/aidan-bailey/nemo/internal/datavalues"
)

// TrieScanJoin joins input scans under a shared variable order: output
// layer L carries the L-th variable of the order, and every input whose
// atom uses that variable participates in the layer's leap-frog join.
// Inputs must be ordered compatibly with the output order.
type TrieScanJoin struct {
	inputs []PartialTrieScan
	// layersOf[i] lists the output layers where input i participates, in
	// ascending order; the position within the list is the input's own
	// layer index.
	layersOf     [][]int
	participants [][]int
	scans        []*columnar.RainbowScan
	path         []datavalues.StorageType
}

// NewTrieScanJoin creates a join scan producing arity output layers.
func NewTrieScanJoin(arity int, inputs []PartialTrieScan, layersOf [][]int) *TrieScanJoin {
	s := &TrieScanJoin{
		inputs:       inputs,
		layersOf:     layersOf,
		participants: make([][]int, arity),
		scans:        make([]*columnar.RainbowScan, arity),
	}
	for i, layers := range layersOf {
		for _, layer := range layers {
			s.participants[layer] = append(s.participants[layer], i)
		}
	}
	for layer := 0; layer < arity; layer++ {
		var id32 []columnar.ColumnScan[uint32]
		var id64 []columnar.ColumnScan[uint64]
		var i64 []columnar.ColumnScan[int64]
		var f32 []columnar.ColumnScan[float32]
		var f64 []columnar.ColumnScan[float64]
		for _, input := range s.participants[layer] {
			own := indexOf(layersOf[input], layer)
			rainbow := inputs[input].Scan(own)
			id32 = append(id32, rainbow.Id32)
			id64 = append(id64, rainbow.Id64)
			i64 = append(i64, rainbow.Int64)
			f32 = append(f32, rainbow.Float)
			f64 = append(f64, rainbow.Double)
		}
		s.scans[layer] = &columnar.RainbowScan{
			Id32:   columnar.NewScanJoin(id32...),
			Id64:   columnar.NewScanJoin(id64...),
			Int64:  columnar.NewScanJoin(i64...),
			Float:  columnar.NewScanJoin(f32...),
			Double: columnar.NewScanJoin(f64...),
		}
	}
	return s
}

func indexOf(list []int, value int) int {
	for i, v := range list {
		if v == value {
			return i
		}
	}
	return -1
}

// Arity implements PartialTrieScan.
func (s *TrieScanJoin) Arity() int { return len(s.scans) }

// PathTypes implements PartialTrieScan.
func (s *TrieScanJoin) PathTypes() []datavalues.StorageType { return s.path }

// Scan implements PartialTrieScan.
func (s *TrieScanJoin) Scan(layer int) *columnar.RainbowScan { return s.scans[layer] }

// Down implements PartialTrieScan: every participant of the entered layer
// descends, then the layer's join rainbow restarts for the chosen type.
func (s *TrieScanJoin) Down(next datavalues.StorageType) {
	layer := len(s.path)
	for _, input := range s.participants[layer] {
		s.inputs[input].Down(next)
	}
	s.scans[layer].Reset(next)
	s.path = append(s.path, next)
}

// Up implements PartialTrieScan.
func (s *TrieScanJoin) Up() {
	layer := len(s.path) - 1
	for _, input := range s.participants[layer] {
		s.inputs[input].Up()
	}
	s.path = s.path[:layer]
}
