package clean

import (
	"reflect"
	"testing"

	"csvclean/internal/table"
)

func twoCol(a, b []table.Cell) *table.Table {
	return &table.Table{Columns: []table.Column{
		{Name: "a", Cells: a},
		{Name: "b", Cells: b},
	}}
}

//
// trimStrings / emptyToNull
//

// TestTrimStrings verifies only string cells are trimmed.
func TestTrimStrings(t *testing.T) {
	t.Parallel()

	tbl := twoCol(
		[]table.Cell{str("  x "), str("y"), null()},
		[]table.Cell{table.IntCell(1), table.BoolCell(true), str("\tz\n")},
	)
	trimStrings(tbl)

	want := twoCol(
		[]table.Cell{str("x"), str("y"), null()},
		[]table.Cell{table.IntCell(1), table.BoolCell(true), str("z")},
	)
	if !reflect.DeepEqual(tbl, want) {
		t.Fatalf("trimStrings = %+v, want %+v", tbl, want)
	}
}

// TestEmptyToNull verifies only empty string cells become nulls.
func TestEmptyToNull(t *testing.T) {
	t.Parallel()

	tbl := twoCol(
		[]table.Cell{str(""), str(" "), str("x")},
		[]table.Cell{table.IntCell(0), null(), str("")},
	)
	emptyToNull(tbl)

	want := twoCol(
		[]table.Cell{null(), str(" "), str("x")},
		[]table.Cell{table.IntCell(0), null(), null()},
	)
	if !reflect.DeepEqual(tbl, want) {
		t.Fatalf("emptyToNull = %+v, want %+v", tbl, want)
	}
}

//
// removeNullRows
//

// TestRemoveNullRows verifies every mode against the same three-column
// rows: one full, one with a single null, one with two nulls, one fully
// null.
func TestRemoveNullRows(t *testing.T) {
	t.Parallel()

	build := func() *table.Table {
		return &table.Table{Columns: []table.Column{
			{Name: "a", Cells: []table.Cell{str("a1"), str("a2"), str("a3"), null()}},
			{Name: "b", Cells: []table.Cell{str("b1"), null(), null(), null()}},
			{Name: "c", Cells: []table.Cell{str("c1"), str("c2"), null(), null()}},
		}}
	}

	tests := []struct {
		name        string
		mode        string
		threshold   int
		wantRemoved int
		wantLeft    int
	}{
		{name: "any", mode: "any", wantRemoved: 3, wantLeft: 1},
		{name: "all", mode: "all", wantRemoved: 1, wantLeft: 3},
		{name: "threshold_2", mode: "threshold", threshold: 2, wantRemoved: 2, wantLeft: 2},
		{name: "threshold_0_keeps_everything", mode: "threshold", threshold: 0, wantRemoved: 0, wantLeft: 4},
		{name: "threshold_4_drops_everything", mode: "threshold", threshold: 4, wantRemoved: 4, wantLeft: 0},
		{name: "no", mode: "no", wantRemoved: 0, wantLeft: 4},
		{name: "unknown_mode_is_noop", mode: "sometimes", wantRemoved: 0, wantLeft: 4},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tbl := build()
			removed := removeNullRows(tbl, tt.mode, tt.threshold)
			if removed != tt.wantRemoved {
				t.Fatalf("removed = %d, want %d", removed, tt.wantRemoved)
			}
			if got := tbl.RowCount(); got != tt.wantLeft {
				t.Fatalf("rows left = %d, want %d", got, tt.wantLeft)
			}
		})
	}
}

// TestRemoveNullRowsKeepsOrder verifies surviving rows keep their order.
func TestRemoveNullRowsKeepsOrder(t *testing.T) {
	t.Parallel()

	tbl := twoCol(
		[]table.Cell{str("r1"), null(), str("r3")},
		[]table.Cell{str("x"), str("x"), str("x")},
	)
	if removed := removeNullRows(tbl, "any", 1); removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	got := []string{tbl.Columns[0].Cells[0].Str, tbl.Columns[0].Cells[1].Str}
	if got[0] != "r1" || got[1] != "r3" {
		t.Fatalf("surviving rows = %v, want [r1 r3]", got)
	}
}

//
// dedupRows
//

// TestDedupRows verifies exact duplicates collapse to the first
// occurrence.
func TestDedupRows(t *testing.T) {
	t.Parallel()

	tbl := twoCol(
		[]table.Cell{str("alice"), str("bob"), str("alice")},
		[]table.Cell{table.IntCell(1), table.IntCell(2), table.IntCell(1)},
	)
	if removed := dedupRows(tbl); removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if got := tbl.RowCount(); got != 2 {
		t.Fatalf("rows left = %d, want 2", got)
	}
	if tbl.Columns[0].Cells[0].Str != "alice" || tbl.Columns[0].Cells[1].Str != "bob" {
		t.Fatalf("wrong survivors: %+v", tbl.Columns[0].Cells)
	}
}

// TestDedupRowsTypedValues verifies typed cells only collide with equal
// typed cells: the string "1" and the integer 1 are distinct rows.
func TestDedupRowsTypedValues(t *testing.T) {
	t.Parallel()

	tbl := &table.Table{Columns: []table.Column{
		{Name: "v", Cells: []table.Cell{str("1"), table.IntCell(1), table.FloatCell(1), table.BoolCell(true)}},
	}}
	if removed := dedupRows(tbl); removed != 0 {
		t.Fatalf("removed = %d, want 0", removed)
	}

	nulls := &table.Table{Columns: []table.Column{
		{Name: "v", Cells: []table.Cell{null(), null(), str("")}},
	}}
	if removed := dedupRows(nulls); removed != 1 {
		t.Fatalf("null dedup removed = %d, want 1", removed)
	}
}
