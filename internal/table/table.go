// Package table holds one delimited file as typed columns. Cells start as
// strings at load time; the cleaning steps retype and drop them in place.
package table

import (
	"strconv"
	"time"
)

// Kind discriminates the value held by a Cell.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindBool
	KindInt
	KindFloat
	KindDate
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindDate:
		return "date"
	}
	return "null"
}

// Cell is one typed value. The zero value is null.
type Cell struct {
	Kind  Kind
	Str   string
	Bool  bool
	Int   int64
	Float float64
	Date  time.Time
}

func NullCell() Cell            { return Cell{} }
func StringCell(s string) Cell  { return Cell{Kind: KindString, Str: s} }
func BoolCell(b bool) Cell      { return Cell{Kind: KindBool, Bool: b} }
func IntCell(i int64) Cell      { return Cell{Kind: KindInt, Int: i} }
func FloatCell(f float64) Cell  { return Cell{Kind: KindFloat, Float: f} }
func DateCell(t time.Time) Cell { return Cell{Kind: KindDate, Date: t} }

// IsNull reports whether the cell holds no value.
func (c Cell) IsNull() bool { return c.Kind == KindNull }

// Render returns the cell's output-CSV form. Nulls render empty, booleans
// as true/false, floats in shortest round-trip form, dates as YYYY-MM-DD.
func (c Cell) Render() string {
	switch c.Kind {
	case KindString:
		return c.Str
	case KindBool:
		if c.Bool {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(c.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(c.Float, 'g', -1, 64)
	case KindDate:
		return c.Date.Format("2006-01-02")
	}
	return ""
}

// Key returns a stable representation for exact-duplicate detection. The
// leading type tag keeps 1, "1", and true distinct; null only equals null.
func (c Cell) Key() string {
	switch c.Kind {
	case KindString:
		return "s" + c.Str
	case KindBool:
		if c.Bool {
			return "b1"
		}
		return "b0"
	case KindInt:
		return "i" + strconv.FormatInt(c.Int, 10)
	case KindFloat:
		return "f" + strconv.FormatFloat(c.Float, 'g', -1, 64)
	case KindDate:
		return "d" + c.Date.Format("2006-01-02")
	}
	return "n"
}

// Column is one named column; all columns of a table stay equally sized.
type Column struct {
	Name  string
	Cells []Cell
}

// Table is a column-oriented snapshot of one delimited file.
type Table struct {
	Columns []Column
}

// RowCount returns the number of data rows (header excluded).
func (t *Table) RowCount() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Cells)
}

// Headers returns the column names in order.
func (t *Table) Headers() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// FilterRows keeps only rows whose keep entry is true and returns the
// number of rows removed. len(keep) must equal RowCount.
func (t *Table) FilterRows(keep []bool) int {
	removed := 0
	for _, k := range keep {
		if !k {
			removed++
		}
	}
	if removed == 0 {
		return 0
	}
	for ci := range t.Columns {
		cells := t.Columns[ci].Cells
		out := cells[:0]
		for r, c := range cells {
			if keep[r] {
				out = append(out, c)
			}
		}
		t.Columns[ci].Cells = out
	}
	return removed
}
