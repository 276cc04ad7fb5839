package tabular

import (
	"github.com/aidan-bailey/nemo/internal/columnar"
)

// Materialize drains a trie scan into an owned trie using the triescan
// builders: every advance emits the changed suffix of the current row, and
// a value change on a layer closes the predecessor blocks of all deeper
// layers.
func Materialize(scan TrieScan) *Trie {
	return MaterializeCut(scan, 0)
}

// MaterializeCut materializes all but the final cutLayers layers,
// retaining only prefix existence. Rows are still driven to full depth, so
// a prefix appears exactly when at least one completion exists.
func MaterializeCut(scan TrieScan, cutLayers int) *Trie {
	arity := scan.Arity()
	width := arity - cutLayers
	if width < 0 {
		panic("tabular: cannot cut more layers than the scan has")
	}
	if width == 0 {
		// Existence of any row is all that remains.
		if arity > 0 {
			if _, ok := scan.AdvanceOnLayer(arity - 1); ok {
				return UnitTrie()
			}
		}
		return &Trie{}
	}

	builders := make([]*columnar.BuilderTriescan, width)
	for i := range builders {
		builders[i] = columnar.NewBuilderTriescan(DefaultLookup)
	}

	rows := 0
	for {
		changed, ok := scan.AdvanceOnLayer(arity - 1)
		if !ok {
			break
		}
		if changed >= width {
			// Only cut layers moved; the retained prefix is unchanged.
			continue
		}
		// A new value on the changed layer completes the current
		// predecessor blocks of all deeper retained layers.
		if rows > 0 {
			for layer := changed + 1; layer < width; layer++ {
				builders[layer].FinishInterval()
			}
		}
		for layer := changed; layer < width; layer++ {
			builders[layer].AddValue(scan.CurrentValue(layer))
		}
		rows++
	}

	if rows == 0 {
		return EmptyTrie(width)
	}
	layers := make([]*columnar.IntervalColumnT, width)
	for i, b := range builders {
		b.FinishInterval()
		layers[i] = b.Finalize()
	}
	return &Trie{layers: layers, nonEmpty: true}
}
