package table

import (
	"encoding/csv"
	"fmt"
	"os"
)

// WriteCSV writes the table to path as UTF-8, comma-delimited, header row
// first, regardless of the input's encoding and delimiter.
func (t *Table) WriteCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(t.Headers()); err != nil {
		f.Close()
		return fmt.Errorf("write output: %w", err)
	}

	rec := make([]string, len(t.Columns))
	for r := 0; r < t.RowCount(); r++ {
		for ci := range t.Columns {
			rec[ci] = t.Columns[ci].Cells[r].Render()
		}
		if err := w.Write(rec); err != nil {
			f.Close()
			return fmt.Errorf("write output: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("write output: %w", err)
	}
	return f.Close()
}
