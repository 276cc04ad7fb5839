package tabular

import (
	"github.com/aidan-bailey/nemo/internal/columnar"
	"github.com/aidan-bailey/nemo/internal/datavalues"
)

// subtractLayer keeps the concrete typed subtract scans of one layer.
type subtractLayer struct {
	subIDs []int // subtrahend indices participating on this layer
	id32   *columnar.ScanSubtract[uint32]
	id64   *columnar.ScanSubtract[uint64]
	i64    *columnar.ScanSubtract[int64]
	f32    *columnar.ScanSubtract[float32]
	f64    *columnar.ScanSubtract[float64]
}

func (l *subtractLayer) setActive(active []bool) {
	l.id32.SetActive(active)
	l.id64.SetActive(active)
	l.i64.SetActive(active)
	l.f32.SetActive(active)
	l.f64.SetActive(active)
}

func (l *subtractLayer) matched(t datavalues.StorageType) []bool {
	switch t {
	case datavalues.StorageId32:
		return l.id32.Matched()
	case datavalues.StorageId64:
		return l.id64.Matched()
	case datavalues.StorageInt64:
		return l.i64.Matched()
	case datavalues.StorageFloat:
		return l.f32.Matched()
	default:
		return l.f64.Matched()
	}
}

// TrieScanSubtract removes from a minuend all rows matched by one of the
// subtrahends. A subtrahend participates on the output layers of its
// variables; it stays on the path while its values match the minuend and
// filters on its final layer. Subtrahends that diverge become inactive for
// the rest of the branch.
type TrieScanSubtract struct {
	main PartialTrieScan
	subs []PartialTrieScan
	// layersOf[i] lists the output layers of subtrahend i, ascending.
	layersOf [][]int

	layers    []*subtractLayer
	scans     []*columnar.RainbowScan
	active    [][]bool
	descended [][]bool
	path      []datavalues.StorageType
}

// NewTrieScanSubtract creates a subtract scan over the minuend.
func NewTrieScanSubtract(main PartialTrieScan, subs []PartialTrieScan, layersOf [][]int) *TrieScanSubtract {
	arity := main.Arity()
	s := &TrieScanSubtract{
		main:      main,
		subs:      subs,
		layersOf:  layersOf,
		layers:    make([]*subtractLayer, arity),
		scans:     make([]*columnar.RainbowScan, arity),
		active:    make([][]bool, arity),
		descended: make([][]bool, arity),
	}

	for layer := 0; layer < arity; layer++ {
		s.active[layer] = make([]bool, len(subs))
		s.descended[layer] = make([]bool, len(subs))

		var subIDs []int
		var filters []bool
		for i, layers := range layersOf {
			if indexOf(layers, layer) >= 0 {
				subIDs = append(subIDs, i)
				filters = append(filters, layers[len(layers)-1] == layer)
			}
		}

		mainRainbow := main.Scan(layer)
		if len(subIDs) == 0 {
			s.scans[layer] = mainRainbow
			continue
		}

		id32 := make([]columnar.ColumnScan[uint32], len(subIDs))
		id64 := make([]columnar.ColumnScan[uint64], len(subIDs))
		i64 := make([]columnar.ColumnScan[int64], len(subIDs))
		f32 := make([]columnar.ColumnScan[float32], len(subIDs))
		f64 := make([]columnar.ColumnScan[float64], len(subIDs))
		for k, i := range subIDs {
			own := indexOf(layersOf[i], layer)
			rainbow := subs[i].Scan(own)
			id32[k] = rainbow.Id32
			id64[k] = rainbow.Id64
			i64[k] = rainbow.Int64
			f32[k] = rainbow.Float
			f64[k] = rainbow.Double
		}
		l := &subtractLayer{
			subIDs: subIDs,
			id32:   columnar.NewScanSubtract(mainRainbow.Id32, id32, filters),
			id64:   columnar.NewScanSubtract(mainRainbow.Id64, id64, filters),
			i64:    columnar.NewScanSubtract(mainRainbow.Int64, i64, filters),
			f32:    columnar.NewScanSubtract(mainRainbow.Float, f32, filters),
			f64:    columnar.NewScanSubtract(mainRainbow.Double, f64, filters),
		}
		s.layers[layer] = l
		s.scans[layer] = &columnar.RainbowScan{
			Id32: l.id32, Id64: l.id64, Int64: l.i64, Float: l.f32, Double: l.f64,
		}
	}
	return s
}

// Arity implements PartialTrieScan.
func (s *TrieScanSubtract) Arity() int { return s.main.Arity() }

// PathTypes implements PartialTrieScan.
func (s *TrieScanSubtract) PathTypes() []datavalues.StorageType { return s.path }

// Scan implements PartialTrieScan.
func (s *TrieScanSubtract) Scan(layer int) *columnar.RainbowScan { return s.scans[layer] }

// Down implements PartialTrieScan. A subtrahend entering its first layer
// starts active; on later layers it stays active only if it matched the
// minuend's value on its previous layer. Active subtrahends descend along
// with the minuend.
func (s *TrieScanSubtract) Down(next datavalues.StorageType) {
	layer := len(s.path)

	for i, layers := range s.layersOf {
		j := indexOf(layers, layer)
		if j < 0 {
			continue
		}
		active := true
		if j > 0 {
			prev := layers[j-1]
			active = s.active[prev][i] && s.matchedAt(prev, i)
		}
		s.active[layer][i] = active
		s.descended[layer][i] = false
		if active {
			s.subs[i].Down(next)
			s.descended[layer][i] = true
		}
	}

	s.main.Down(next)
	if l := s.layers[layer]; l != nil {
		flags := make([]bool, len(l.subIDs))
		for k, i := range l.subIDs {
			flags[k] = s.active[layer][i]
		}
		l.setActive(flags)
	}
	s.scans[layer].Reset(next)
	s.path = append(s.path, next)
}

// matchedAt reports whether subtrahend i matched the minuend value on the
// given (earlier) layer.
func (s *TrieScanSubtract) matchedAt(layer, sub int) bool {
	l := s.layers[layer]
	if l == nil {
		return false
	}
	matched := l.matched(s.path[layer])
	for k, i := range l.subIDs {
		if i == sub {
			return matched[k]
		}
	}
	return false
}

// Up implements PartialTrieScan.
func (s *TrieScanSubtract) Up() {
	layer := len(s.path) - 1
	for i, down := range s.descended[layer] {
		if down {
			s.subs[i].Up()
		}
	}
	s.main.Up()
	s.path = s.path[:layer]
}
