// Package columnar implements the compressed column primitives of the
// engine: immutable single-typed columns with adaptive representations,
// seekable column scans, the per-layer interval lookup structures, and the
// type-partitioned interval columns that make up one trie layer.
package columnar

// Value constrains the element types storable in a column: the five
// physical storage types plus int for internal index columns.
type Value interface {
	~uint32 | ~uint64 | ~int64 | ~float32 | ~float64 | ~int
}

// Column is a sealed random-access sequence of a single storage type.
type Column[T Value] interface {
	// Len returns the number of entries.
	Len() int
	// Get returns the entry at the given index.
	Get(index int) T
}

// columnDense stores entries verbatim.
type columnDense[T Value] struct {
	data []T
}

func (c *columnDense[T]) Len() int    { return len(c.data) }
func (c *columnDense[T]) Get(i int) T { return c.data[i] }

// run describes length entries starting at start, each increment apart.
// A zero increment is a plain run-length run; a non-zero increment is a
// delta run.
type run[T Value] struct {
	start     T
	increment T
	length    int
}

// columnRuns stores entries as a sequence of arithmetic runs together with
// the cumulative entry count before each run, enabling binary-search Get.
type columnRuns[T Value] struct {
	runs    []run[T]
	offsets []int // offsets[i] = number of entries before runs[i]
	length  int
}

func newColumnRuns[T Value](runs []run[T]) *columnRuns[T] {
	offsets := make([]int, len(runs))
	total := 0
	for i, r := range runs {
		offsets[i] = total
		total += r.length
	}
	return &columnRuns[T]{runs: runs, offsets: offsets, length: total}
}

func (c *columnRuns[T]) Len() int { return c.length }

func (c *columnRuns[T]) Get(i int) T {
	// Binary search for the run containing entry i.
	lo, hi := 0, len(c.runs)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if c.offsets[mid] <= i {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	r := c.runs[lo]
	step := i - c.offsets[lo]
	return r.start + r.increment*T(step)
}
