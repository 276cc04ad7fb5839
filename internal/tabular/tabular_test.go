package tabular

import (
	"sort"
	"testing"

	dv "github.com/aidan-bailey/nemo/internal/datavalues"
)

func intRow(values ...int64) []dv.StorageValue {
	row := make([]dv.StorageValue, len(values))
	for i, v := range values {
		row[i] = dv.Int64(v)
	}
	return row
}

func intRows(rows ...[]int64) [][]dv.StorageValue {
	out := make([][]dv.StorageValue, len(rows))
	for i, r := range rows {
		out[i] = intRow(r...)
	}
	return out
}

func sortRows(rows [][]dv.StorageValue) {
	sort.Slice(rows, func(i, j int) bool {
		return CompareRows(rows[i], rows[j]) < 0
	})
}

func assertRows(t *testing.T, got, want [][]dv.StorageValue) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("row count = %d, want %d (got %v, want %v)", len(got), len(want), got, want)
	}
	for i := range want {
		if CompareRows(got[i], want[i]) != 0 {
			t.Fatalf("row %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestTrieRoundTrip(t *testing.T) {
	rows := [][]dv.StorageValue{
		{dv.Id32(3), dv.Int64(-2)},
		{dv.Id32(3), dv.Int64(-2)}, // duplicate collapses
		{dv.Id32(3), dv.Float(1.5)},
		{dv.Id32(1), dv.Double(0.25)},
		{dv.Id64(9), dv.Id32(7)},
		{dv.Int64(5), dv.Id64(8)},
	}
	trie := FromRows(2, rows)
	if trie.NumRows() != 5 {
		t.Errorf("NumRows() = %d, want 5", trie.NumRows())
	}

	got := CollectRows(NewRowScan(trie.Scan()), 2)
	want := [][]dv.StorageValue{
		{dv.Id32(1), dv.Double(0.25)},
		{dv.Id32(3), dv.Int64(-2)},
		{dv.Id32(3), dv.Float(1.5)},
		{dv.Id64(9), dv.Id32(7)},
		{dv.Int64(5), dv.Id64(8)},
	}
	assertRows(t, got, want)
}

func TestTrieAllTypesOneLayer(t *testing.T) {
	rows := [][]dv.StorageValue{
		{dv.Id32(1)}, {dv.Id64(2)}, {dv.Int64(3)}, {dv.Float(4)}, {dv.Double(5)},
	}
	trie := FromRows(1, rows)
	got := CollectRows(NewRowScan(trie.Scan()), 1)
	// Lex order follows the fixed storage type order.
	want := [][]dv.StorageValue{
		{dv.Id32(1)}, {dv.Id64(2)}, {dv.Int64(3)}, {dv.Float(4)}, {dv.Double(5)},
	}
	assertRows(t, got, want)
}

func TestGenericTrieScanNavigation(t *testing.T) {
	trie := FromRows(3, [][]dv.StorageValue{
		{dv.Id32(0), dv.Int64(-2), dv.Float(1.2)},
		{dv.Id32(0), dv.Int64(-1), dv.Id32(20)},
		{dv.Id32(0), dv.Int64(-1), dv.Id32(32)},
		{dv.Int64(6), dv.Id32(100), dv.Id32(101)},
		{dv.Int64(6), dv.Id32(100), dv.Id32(102)},
	})
	scan := trie.Scan()

	scan.Down(dv.StorageId32)
	if v, ok := scan.Scan(0).Next(dv.StorageId32); !ok || !v.Equal(dv.Id32(0)) {
		t.Fatalf("layer 0 id32 = %v, %v", v, ok)
	}
	scan.Down(dv.StorageId32)
	if _, ok := scan.Scan(1).Next(dv.StorageId32); ok {
		t.Fatal("layer 1 has no id32 children under id32(0)")
	}
	scan.Up()
	scan.Down(dv.StorageInt64)
	if v, ok := scan.Scan(1).Next(dv.StorageInt64); !ok || !v.Equal(dv.Int64(-2)) {
		t.Fatalf("layer 1 int64 = %v, %v", v, ok)
	}
	scan.Down(dv.StorageFloat)
	if v, ok := scan.Scan(2).Next(dv.StorageFloat); !ok || !v.Equal(dv.Float(1.2)) {
		t.Fatalf("layer 2 float = %v, %v", v, ok)
	}
	scan.Up()
	if v, ok := scan.Scan(1).Next(dv.StorageInt64); !ok || !v.Equal(dv.Int64(-1)) {
		t.Fatalf("layer 1 next int64 = %v, %v", v, ok)
	}
	scan.Down(dv.StorageId32)
	if v, ok := scan.Scan(2).Next(dv.StorageId32); !ok || !v.Equal(dv.Id32(20)) {
		t.Fatalf("layer 2 id32 = %v, %v", v, ok)
	}
	if v, ok := scan.Scan(2).Next(dv.StorageId32); !ok || !v.Equal(dv.Id32(32)) {
		t.Fatalf("layer 2 id32 second = %v, %v", v, ok)
	}
	scan.Up()
	scan.Up()
	scan.Down(dv.StorageInt64)
	if v, ok := scan.Scan(0).Next(dv.StorageInt64); !ok || !v.Equal(dv.Int64(6)) {
		t.Fatalf("layer 0 int64 = %v, %v", v, ok)
	}
}

func TestTrieScanJoin(t *testing.T) {
	a := FromRows(2, intRows(
		[]int64{1, 2}, []int64{1, 3}, []int64{1, 4},
		[]int64{2, 5}, []int64{3, 6}, []int64{3, 7},
	))
	b := FromRows(2, intRows(
		[]int64{1, 1}, []int64{2, 8}, []int64{2, 9},
		[]int64{3, 10}, []int64{6, 11}, []int64{6, 12},
	))

	join := NewTrieScanJoin(3,
		[]PartialTrieScan{a.Scan(), b.Scan()},
		[][]int{{0, 1}, {1, 2}},
	)
	got := CollectRows(NewRowScan(join), 3)
	want := intRows(
		[]int64{1, 2, 8}, []int64{1, 2, 9}, []int64{1, 3, 10},
		[]int64{3, 6, 11}, []int64{3, 6, 12},
	)
	assertRows(t, got, want)
}

func TestTrieScanJoinMixedTypes(t *testing.T) {
	a := FromRows(1, [][]dv.StorageValue{{dv.Id32(4)}, {dv.Int64(4)}, {dv.Float(2)}})
	b := FromRows(1, [][]dv.StorageValue{{dv.Int64(4)}, {dv.Float(2)}, {dv.Double(2)}})

	join := NewTrieScanJoin(1,
		[]PartialTrieScan{a.Scan(), b.Scan()},
		[][]int{{0}, {0}},
	)
	got := CollectRows(NewRowScan(join), 1)
	// Id32(4) and Int64(4) do not meet across storage types.
	want := [][]dv.StorageValue{{dv.Int64(4)}, {dv.Float(2)}}
	assertRows(t, got, want)
}

func TestTrieScanUnion(t *testing.T) {
	a := FromRows(2, intRows([]int64{1, 2}, []int64{1, 3}, []int64{4, 5}))
	b := FromRows(2, intRows([]int64{1, 3}, []int64{2, 2}, []int64{4, 6}))
	c := FromRows(2, intRows([]int64{4, 5}))

	union := NewTrieScanUnion([]PartialTrieScan{a.Scan(), b.Scan(), c.Scan()})
	got := CollectRows(NewRowScan(union), 2)
	want := intRows(
		[]int64{1, 2}, []int64{1, 3}, []int64{2, 2},
		[]int64{4, 5}, []int64{4, 6},
	)
	assertRows(t, got, want)
}

func TestTrieScanSubtractFullArity(t *testing.T) {
	a := FromRows(2, intRows([]int64{1, 2}, []int64{1, 3}, []int64{2, 4}, []int64{3, 5}))
	b := FromRows(2, intRows([]int64{1, 3}, []int64{3, 5}, []int64{7, 7}))

	subtract := NewTrieScanSubtract(a.Scan(), []PartialTrieScan{b.Scan()}, [][]int{{0, 1}})
	got := CollectRows(NewRowScan(subtract), 2)
	want := intRows([]int64{1, 2}, []int64{2, 4})
	assertRows(t, got, want)
}

func TestTrieScanSubtractProjected(t *testing.T) {
	// Subtrahend only constrains the first layer.
	a := FromRows(2, intRows([]int64{1, 2}, []int64{2, 3}, []int64{3, 4}))
	b := FromRows(1, intRows([]int64{2}))

	subtract := NewTrieScanSubtract(a.Scan(), []PartialTrieScan{b.Scan()}, [][]int{{0}})
	got := CollectRows(NewRowScan(subtract), 2)
	want := intRows([]int64{1, 2}, []int64{3, 4})
	assertRows(t, got, want)
}

func TestTrieScanFunctionAppend(t *testing.T) {
	a := FromRows(2, intRows([]int64{1, 2}, []int64{3, 4}))

	sum := func(bound []dv.StorageValue) (dv.StorageValue, bool) {
		if bound[0].Type() != dv.StorageInt64 || bound[1].Type() != dv.StorageInt64 {
			return dv.StorageValue{}, false
		}
		return dv.Int64(bound[0].AsInt64() + bound[1].AsInt64()), true
	}
	fn := NewTrieScanFunction(a.Scan(), []AppendExpr{sum})
	got := CollectRows(NewRowScan(fn), 3)
	want := intRows([]int64{1, 2, 3}, []int64{3, 4, 7})
	assertRows(t, got, want)
}

func TestTrieScanFunctionDropsFailedRows(t *testing.T) {
	a := FromRows(2, intRows([]int64{6, 0}, []int64{6, 2}))

	div := func(bound []dv.StorageValue) (dv.StorageValue, bool) {
		if bound[1].AsInt64() == 0 {
			return dv.StorageValue{}, false
		}
		return dv.Int64(bound[0].AsInt64() / bound[1].AsInt64()), true
	}
	fn := NewTrieScanFunction(a.Scan(), []AppendExpr{div})
	got := CollectRows(NewRowScan(fn), 3)
	want := intRows([]int64{6, 2, 3})
	assertRows(t, got, want)
}

func TestTrieScanFilter(t *testing.T) {
	a := FromRows(2, intRows([]int64{1, 1}, []int64{1, 2}, []int64{2, 2}, []int64{3, 4}))

	equal := EqualColumnsCondition([]int{0, 1})
	filter := NewTrieScanFilter(a.Scan(), []FilterCondition{equal})
	got := CollectRows(NewRowScan(filter), 2)
	want := intRows([]int64{1, 1}, []int64{2, 2})
	assertRows(t, got, want)

	constant := EqualConstantCondition(0, dv.Int64(1))
	filter = NewTrieScanFilter(a.Scan(), []FilterCondition{constant})
	got = CollectRows(NewRowScan(filter), 2)
	want = intRows([]int64{1, 1}, []int64{1, 2})
	assertRows(t, got, want)
}

func TestAggregateScan(t *testing.T) {
	// w(a,2), w(a,5), w(b,3) summed per group.
	a := FromRows(2, intRows([]int64{10, 2}, []int64{10, 5}, []int64{20, 3}))

	agg := NewAggregateScan(NewRowScan(a.Scan()), 1, AggSum)
	got := CollectRows(agg, 2)
	want := intRows([]int64{10, 7}, []int64{20, 3})
	assertRows(t, got, want)

	counts := NewAggregateScan(NewRowScan(a.Scan()), 1, AggCount)
	got = CollectRows(counts, 2)
	want = intRows([]int64{10, 2}, []int64{20, 1})
	assertRows(t, got, want)

	avgs := NewAggregateScan(NewRowScan(a.Scan()), 1, AggAvg)
	got = CollectRows(avgs, 2)
	want = [][]dv.StorageValue{
		{dv.Int64(10), dv.Double(3.5)},
		{dv.Int64(20), dv.Double(3)},
	}
	assertRows(t, got, want)
}

func TestAggregateGlobal(t *testing.T) {
	a := FromRows(1, intRows([]int64{4}, []int64{9}))
	agg := NewAggregateScan(NewRowScan(a.Scan()), 0, AggMax)
	got := CollectRows(agg, 1)
	assertRows(t, got, intRows([]int64{9}))
}

func TestMaterialize(t *testing.T) {
	a := FromRows(2, intRows([]int64{1, 2}, []int64{1, 3}, []int64{5, 1}))
	b := FromRows(2, intRows([]int64{1, 3}, []int64{5, 1}, []int64{6, 6}))

	union := NewTrieScanUnion([]PartialTrieScan{a.Scan(), b.Scan()})
	materialized := Materialize(NewRowScan(union))
	got := CollectRows(NewRowScan(materialized.Scan()), 2)
	want := intRows([]int64{1, 2}, []int64{1, 3}, []int64{5, 1}, []int64{6, 6})
	assertRows(t, got, want)
}

func TestMaterializeCut(t *testing.T) {
	a := FromRows(2, intRows([]int64{1, 2}, []int64{1, 3}, []int64{5, 1}))
	cut := MaterializeCut(NewRowScan(a.Scan()), 1)
	if cut.Arity() != 1 {
		t.Fatalf("Arity() = %d, want 1", cut.Arity())
	}
	got := CollectRows(NewRowScan(cut.Scan()), 1)
	assertRows(t, got, intRows([]int64{1}, []int64{5}))
}

func TestMaterializeEmptyJoin(t *testing.T) {
	a := FromRows(1, intRows([]int64{1}))
	b := FromRows(1, intRows([]int64{2}))
	join := NewTrieScanJoin(1, []PartialTrieScan{a.Scan(), b.Scan()}, [][]int{{0}, {0}})
	materialized := Materialize(NewRowScan(join))
	if !materialized.IsEmpty() {
		t.Error("empty join materialized a non-empty trie")
	}
}

func TestProjectReorder(t *testing.T) {
	a := FromRows(3, intRows([]int64{1, 2, 3}, []int64{4, 5, 6}))

	swapped := ProjectReorder(a, []int{2, 0, 1})
	got := CollectRows(NewRowScan(swapped.Scan()), 3)
	want := intRows([]int64{3, 1, 2}, []int64{6, 4, 5})
	assertRows(t, got, want)

	// Projection may collapse rows.
	c := FromRows(2, intRows([]int64{1, 2}, []int64{1, 3}))
	projected := ProjectReorder(c, []int{0})
	got = CollectRows(NewRowScan(projected.Scan()), 1)
	assertRows(t, got, intRows([]int64{1}))
}

func TestMaxArityTrie(t *testing.T) {
	const arity = 18
	var rows [][]dv.StorageValue
	for r := int64(0); r < 4; r++ {
		row := make([]dv.StorageValue, arity)
		for c := range row {
			row[c] = dv.Int64(r * int64(c+1))
		}
		rows = append(rows, row)
	}
	trie := FromRows(arity, rows)
	if trie.Arity() != arity || trie.NumRows() != 4 {
		t.Fatalf("arity=%d rows=%d", trie.Arity(), trie.NumRows())
	}
	got := CollectRows(NewRowScan(trie.Scan()), arity)
	if len(got) != 4 {
		t.Fatalf("collected %d rows", len(got))
	}
	for _, row := range rows {
		if !trie.ContainsRow(row) {
			t.Errorf("row %v missing", row)
		}
	}
}

func TestUnitTrie(t *testing.T) {
	unit := UnitTrie()
	if unit.Arity() != 0 || unit.IsEmpty() || unit.NumRows() != 1 {
		t.Errorf("unit trie: arity=%d empty=%v rows=%d", unit.Arity(), unit.IsEmpty(), unit.NumRows())
	}
	empty := EmptyTrie(0)
	if !empty.IsEmpty() || empty.NumRows() != 0 {
		t.Errorf("empty unit trie: empty=%v rows=%d", empty.IsEmpty(), empty.NumRows())
	}
}
