package tabular

import (
	"sort"

	"github.com/aidan-bailey/nemo/internal/datavalues"
)

// TupleBuffer collects rows of storage values before they are sorted and
// frozen into a trie. Values are appended column by column with AddValue,
// which closes the current row once it reaches the arity; AddRow appends a
// whole row.
type TupleBuffer struct {
	arity   int
	rows    [][]datavalues.StorageValue
	current []datavalues.StorageValue
}

// NewTupleBuffer creates a buffer for rows of the given arity.
func NewTupleBuffer(arity int) *TupleBuffer {
	return &TupleBuffer{arity: arity}
}

// Arity returns the row width.
func (b *TupleBuffer) Arity() int { return b.arity }

// Len returns the number of complete rows.
func (b *TupleBuffer) Len() int { return len(b.rows) }

// AddValue appends one value to the row under construction; the row is
// committed automatically once it reaches the arity.
func (b *TupleBuffer) AddValue(v datavalues.StorageValue) {
	b.current = append(b.current, v)
	if len(b.current) == b.arity {
		b.rows = append(b.rows, b.current)
		b.current = nil
	}
}

// AddRow appends a complete row. The slice is copied.
func (b *TupleBuffer) AddRow(row []datavalues.StorageValue) {
	if len(row) != b.arity {
		panic("tabular: row width does not match buffer arity")
	}
	copied := make([]datavalues.StorageValue, b.arity)
	copy(copied, row)
	b.rows = append(b.rows, copied)
}

// CompareRows orders rows lexicographically under the storage value order.
func CompareRows(a, c []datavalues.StorageValue) int {
	for i := range a {
		if cmp := a[i].Compare(c[i]); cmp != 0 {
			return cmp
		}
	}
	return 0
}

// Sorted returns the rows in lexicographic order. The buffer itself is
// sorted in place; callers must not add rows afterwards.
func (b *TupleBuffer) Sorted() [][]datavalues.StorageValue {
	sort.Slice(b.rows, func(i, j int) bool {
		return CompareRows(b.rows[i], b.rows[j]) < 0
	})
	return b.rows
}
