package columnar

import (
	"testing"

	dv "github.com/aidan-bailey/nemo/internal/datavalues"
)

func collect[T Value](c Column[T]) []T {
	out := make([]T, c.Len())
	for i := range out {
		out[i] = c.Get(i)
	}
	return out
}

func buildColumn[T Value](values []T) Column[T] {
	b := NewAdaptiveBuilder[T]()
	for _, v := range values {
		b.Add(v)
	}
	return b.Finalize()
}

func TestAdaptiveBuilderRepresentations(t *testing.T) {
	// Long constant runs become a run-length column.
	constant := make([]int64, 0, 32)
	for i := 0; i < 16; i++ {
		constant = append(constant, 7)
	}
	for i := 0; i < 16; i++ {
		constant = append(constant, 9)
	}
	col := buildColumn(constant)
	if _, ok := col.(*columnRuns[int64]); !ok {
		t.Errorf("constant data built %T, want run column", col)
	}

	// Arithmetic sequences become a delta column.
	arith := make([]int64, 0, 32)
	for i := int64(0); i < 32; i++ {
		arith = append(arith, 10+3*i)
	}
	col = buildColumn(arith)
	if _, ok := col.(*columnRuns[int64]); !ok {
		t.Errorf("arithmetic data built %T, want run column", col)
	}

	// Irregular data stays dense.
	irregular := []int64{5, 1, 9, 2, 14, 3, 8, 4, 100, -7, 13, 6}
	col = buildColumn(irregular)
	if _, ok := col.(*columnDense[int64]); !ok {
		t.Errorf("irregular data built %T, want dense column", col)
	}

	// Representation never changes the observable content.
	for _, data := range [][]int64{constant, arith, irregular} {
		got := collect(buildColumn(data))
		for i := range data {
			if got[i] != data[i] {
				t.Fatalf("index %d = %d, want %d", i, got[i], data[i])
			}
		}
	}
}

func TestColumnScanSeek(t *testing.T) {
	col := buildColumn([]int64{2, 4, 4, 7, 11, 15, 22, 22, 30})
	scan := NewColumnScan(col)

	if v, ok := scan.Seek(5); !ok || v != 7 {
		t.Errorf("Seek(5) = (%d, %v), want 7", v, ok)
	}
	if pos, ok := scan.Pos(); !ok || pos != 3 {
		t.Errorf("Pos() = (%d, %v), want 3", pos, ok)
	}
	// Seeking backwards stays put.
	if v, ok := scan.Seek(1); !ok || v != 7 {
		t.Errorf("Seek(1) = (%d, %v), want 7", v, ok)
	}
	if v, ok := scan.Seek(22); !ok || v != 22 {
		t.Errorf("Seek(22) = (%d, %v), want 22", v, ok)
	}
	if _, ok := scan.Seek(31); ok {
		t.Error("Seek(31) found a value past the end")
	}

	// Narrowed windows bound both iteration and seeks.
	scan.Narrow(1, 4)
	var got []int64
	for v, ok := scan.Next(); ok; v, ok = scan.Next() {
		got = append(got, v)
	}
	want := []int64{4, 4, 7}
	if len(got) != len(want) {
		t.Fatalf("window scan = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("window scan = %v, want %v", got, want)
		}
	}
	scan.Reset()
	if v, ok := scan.Seek(10); ok {
		t.Errorf("Seek(10) in window [1,4) = %d, want end", v)
	}
}

func TestScanJoin(t *testing.T) {
	a := NewColumnScan(buildColumn([]int64{1, 3, 5, 7, 9, 11}))
	b := NewColumnScan(buildColumn([]int64{2, 3, 4, 5, 10, 11}))
	c := NewColumnScan(buildColumn([]int64{3, 5, 6, 11, 12}))

	join := NewScanJoin[int64](a, b, c)
	var got []int64
	for v, ok := join.Next(); ok; v, ok = join.Next() {
		got = append(got, v)
	}
	want := []int64{3, 5, 11}
	if len(got) != len(want) {
		t.Fatalf("join = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("join = %v, want %v", got, want)
		}
	}
}

func TestScanUnion(t *testing.T) {
	a := NewColumnScan(buildColumn([]int64{1, 4, 7}))
	b := NewColumnScan(buildColumn([]int64{2, 4, 8}))
	c := NewColumnScan(buildColumn([]int64{4, 9}))

	union := NewScanUnion[int64](a, b, c)
	var got []int64
	var activeAt4 []int
	for v, ok := union.Next(); ok; v, ok = union.Next() {
		got = append(got, v)
		if v == 4 {
			activeAt4 = union.ActiveInputs()
		}
	}
	want := []int64{1, 2, 4, 7, 8, 9}
	if len(got) != len(want) {
		t.Fatalf("union = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("union = %v, want %v", got, want)
		}
	}
	if len(activeAt4) != 3 {
		t.Errorf("ActiveInputs at 4 = %v, want all three", activeAt4)
	}
}

func TestScanSubtract(t *testing.T) {
	main := NewColumnScan(buildColumn([]int64{1, 2, 3, 4, 5}))
	sub := NewColumnScan(buildColumn([]int64{2, 4, 6}))

	subtract := NewScanSubtract[int64](main, []ColumnScan[int64]{sub}, []bool{true})
	subtract.SetActive([]bool{true})
	var got []int64
	for v, ok := subtract.Next(); ok; v, ok = subtract.Next() {
		got = append(got, v)
	}
	want := []int64{1, 3, 5}
	if len(got) != len(want) {
		t.Fatalf("subtract = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("subtract = %v, want %v", got, want)
		}
	}

	// Inactive subtrahends do not filter.
	main.Reset()
	sub.Reset()
	subtract.Reset()
	subtract.SetActive([]bool{false})
	count := 0
	for _, ok := subtract.Next(); ok; _, ok = subtract.Next() {
		count++
	}
	if count != 5 {
		t.Errorf("inactive subtract kept %d values, want 5", count)
	}
}

func TestIntervalLookups(t *testing.T) {
	for _, kind := range []LookupKind{LookupSingle, LookupDual, LookupBitvector} {
		builder := NewLookupBuilder(kind)
		// Predecessors: empty, empty, [0,2), [2,3), empty, [3,6).
		builder.AddEmpty()
		builder.AddEmpty()
		builder.Add(0)
		builder.Add(2)
		builder.AddEmpty()
		builder.Add(3)
		if builder.IsExclusive() {
			t.Errorf("kind %v: IsExclusive with empty predecessors", kind)
		}
		lookup := builder.Finalize(6)

		type bounds struct {
			start, end int
			ok         bool
		}
		want := []bounds{{0, 0, false}, {0, 0, false}, {0, 2, true}, {2, 3, true}, {0, 0, false}, {3, 6, true}}
		for p, w := range want {
			start, end, ok := lookup.Bounds(p)
			if ok != w.ok || (ok && (start != w.start || end != w.end)) {
				t.Errorf("kind %v: Bounds(%d) = (%d, %d, %v), want %+v", kind, p, start, end, ok, w)
			}
		}
		if _, _, ok := lookup.Bounds(6); ok {
			t.Errorf("kind %v: Bounds past the recorded predecessors", kind)
		}
	}

	exclusive := NewLookupBuilder(LookupSingle)
	exclusive.Add(0)
	exclusive.Add(4)
	if !exclusive.IsExclusive() {
		t.Error("IsExclusive() = false without empty predecessors")
	}
}

// Mirrors the layer-builder scenario of the reference implementation:
// two predecessor blocks mixing storage types, with duplicates inside a
// block deduplicated in matrix mode.
func TestBuilderMatrixLayer(t *testing.T) {
	for _, kind := range []LookupKind{LookupSingle, LookupDual, LookupBitvector} {
		b := NewBuilderMatrix(kind)

		if !b.AddValue(dv.Id32(12)) {
			t.Error("first value reported as duplicate")
		}
		if !b.AddValue(dv.Id32(16)) {
			t.Error("new value reported as duplicate")
		}
		if b.AddValue(dv.Id32(16)) {
			t.Error("duplicate value reported as new")
		}
		b.AddValue(dv.Int64(-10))
		b.AddValue(dv.Int64(-4))
		b.FinishInterval()

		b.AddValue(dv.Int64(-4))
		if b.AddValue(dv.Int64(-4)) {
			t.Error("duplicate value reported as new")
		}
		b.AddValue(dv.Int64(0))
		b.AddValue(dv.Float(3.1))
		if b.AddValue(dv.Float(3.1)) {
			t.Error("duplicate float reported as new")
		}
		b.FinishInterval()

		layer := b.Finalize()

		if got := collect[uint32](layer.id32.data); len(got) != 2 || got[0] != 12 || got[1] != 16 {
			t.Errorf("kind %v: id32 data = %v", kind, got)
		}
		if got := collect[int64](layer.int64s.data); len(got) != 4 || got[0] != -10 || got[3] != 0 {
			t.Errorf("kind %v: int64 data = %v", kind, got)
		}
		if got := collect[float32](layer.floats.data); len(got) != 1 || got[0] != 3.1 {
			t.Errorf("kind %v: float data = %v", kind, got)
		}
		if layer.starts != [5]int{2, 2, 6, 7, 7} {
			t.Errorf("kind %v: starts = %v, want [2 2 6 7 7]", kind, layer.starts)
		}

		assertBounds := func(t2 dv.StorageType, p, wantStart, wantEnd int, wantOK bool) {
			t.Helper()
			start, end, ok := layer.Bounds(t2, p)
			if ok != wantOK || (ok && (start != wantStart || end != wantEnd)) {
				t.Errorf("kind %v: Bounds(%v, %d) = (%d, %d, %v)", kind, t2, p, start, end, ok)
			}
		}
		assertBounds(dv.StorageId32, 0, 0, 2, true)
		assertBounds(dv.StorageId64, 0, 0, 0, false)
		assertBounds(dv.StorageInt64, 0, 0, 2, true)
		assertBounds(dv.StorageFloat, 0, 0, 0, false)
		assertBounds(dv.StorageDouble, 0, 0, 0, false)
		assertBounds(dv.StorageId32, 1, 0, 0, false)
		assertBounds(dv.StorageInt64, 1, 2, 4, true)
		assertBounds(dv.StorageFloat, 1, 0, 1, true)
	}
}

func TestBuilderTriescanLayer(t *testing.T) {
	b := NewBuilderTriescan(LookupSingle)
	b.AddValue(dv.Id32(12))
	b.AddValue(dv.Id32(16))
	b.AddValue(dv.Int64(-10))
	b.AddValue(dv.Int64(-4))
	b.FinishInterval()
	b.AddValue(dv.Int64(-4))
	b.AddValue(dv.Int64(0))
	b.AddValue(dv.Float(3.1))
	b.FinishInterval()

	layer := b.Finalize()
	if layer.starts != [5]int{2, 2, 6, 7, 7} {
		t.Errorf("starts = %v, want [2 2 6 7 7]", layer.starts)
	}
	if layer.GlobalIndex(dv.StorageInt64, 1) != 3 {
		t.Errorf("GlobalIndex(Int64, 1) = %d, want 3", layer.GlobalIndex(dv.StorageInt64, 1))
	}
	if layer.GlobalIndex(dv.StorageFloat, 0) != 6 {
		t.Errorf("GlobalIndex(Float, 0) = %d, want 6", layer.GlobalIndex(dv.StorageFloat, 0))
	}
}
