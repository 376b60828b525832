package clean

import (
	"strings"

	"csvclean/internal/table"
)

// trimStrings trims surrounding whitespace on every string cell in place.
// Typed cells are left alone.
func trimStrings(t *table.Table) {
	for ci := range t.Columns {
		cells := t.Columns[ci].Cells
		for i := range cells {
			if cells[i].Kind == table.KindString {
				cells[i] = table.StringCell(strings.TrimSpace(cells[i].Str))
			}
		}
	}
}

// emptyToNull converts empty-string cells to nulls in place.
func emptyToNull(t *table.Table) {
	for ci := range t.Columns {
		cells := t.Columns[ci].Cells
		for i := range cells {
			if cells[i].Kind == table.KindString && cells[i].Str == "" {
				cells[i] = table.NullCell()
			}
		}
	}
}

// removeNullRows drops rows according to mode and reports how many went.
// "any" drops rows with at least one null, "all" drops rows that are
// entirely null, "threshold" keeps rows with at least threshold non-null
// cells. "no" and unrecognized modes drop nothing.
func removeNullRows(t *table.Table, mode string, threshold int) int {
	rows := t.RowCount()
	if rows == 0 {
		return 0
	}
	keep := make([]bool, rows)
	for r := range keep {
		nonNull := 0
		for ci := range t.Columns {
			if !t.Columns[ci].Cells[r].IsNull() {
				nonNull++
			}
		}
		switch mode {
		case "any":
			keep[r] = nonNull == len(t.Columns)
		case "all":
			keep[r] = nonNull > 0
		case "threshold":
			keep[r] = nonNull >= threshold
		default:
			keep[r] = true
		}
	}
	return t.FilterRows(keep)
}

// dedupRows drops exact duplicate rows, keeping the first occurrence, and
// reports how many went. Equality is by typed value, so "1" the string and
// 1 the integer do not collide.
func dedupRows(t *table.Table) int {
	rows := t.RowCount()
	if rows == 0 {
		return 0
	}
	seen := make(map[string]struct{}, rows)
	keep := make([]bool, rows)
	var b strings.Builder
	for r := 0; r < rows; r++ {
		b.Reset()
		for ci := range t.Columns {
			if ci > 0 {
				b.WriteByte(0)
			}
			b.WriteString(t.Columns[ci].Cells[r].Key())
		}
		k := b.String()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keep[r] = true
	}
	return t.FilterRows(keep)
}
