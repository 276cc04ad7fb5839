package tabular

import (
	"github.com/aidan-bailey/nemo/internal/datavalues"
)

// ProjectReorder materializes a projection/reordering of a trie: output
// column j holds input column columns[j]. Reordering breaks the trie's
// sort order, so the result is rebuilt through a sorted tuple buffer;
// dropped columns may collapse rows.
func ProjectReorder(trie *Trie, columns []int) *Trie {
	if len(columns) == 0 {
		if trie.IsEmpty() {
			return &Trie{}
		}
		return UnitTrie()
	}

	buffer := NewTupleBuffer(len(columns))
	scan := NewRowScan(trie.Scan())
	width := trie.Arity()
	current := make([]datavalues.StorageValue, width)
	for {
		changed, ok := scan.AdvanceOnLayer(width - 1)
		if !ok {
			break
		}
		for layer := changed; layer < width; layer++ {
			current[layer] = scan.CurrentValue(layer)
		}
		row := make([]datavalues.StorageValue, len(columns))
		for j, c := range columns {
			row[j] = current[c]
		}
		buffer.rows = append(buffer.rows, row)
	}
	return FromTupleBuffer(buffer)
}

// IdentityPermutation returns 0..n-1.
func IdentityPermutation(n int) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	return perm
}

// IsIdentity reports whether the permutation maps every position to
// itself.
func IsIdentity(perm []int) bool {
	for i, p := range perm {
		if i != p {
			return false
		}
	}
	return true
}
