package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// ErrEmptyInput reports a file with no records at all, header included.
var ErrEmptyInput = errors.New("input CSV is empty (no rows found)")

// Load reads the delimited file into string cells through the given
// decoder. The first record is the header.
//
// With removeMismatch, rows whose field count differs from the header's are
// dropped and counted (second return value) instead of failing the parse.
// Without it, any ragged row fails the whole read.
func Load(path string, enc encoding.Encoding, comma rune, removeMismatch bool) (*Table, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(transform.NewReader(f, enc.NewDecoder()))
	r.Comma = comma
	r.LazyQuotes = true
	if removeMismatch {
		r.FieldsPerRecord = -1
	}

	records, err := r.ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("parse input: %w", err)
	}
	if len(records) == 0 {
		return nil, 0, ErrEmptyInput
	}

	header := records[0]
	// A BOM that survived decode belongs to the stream, not the first name.
	header[0] = strings.TrimPrefix(header[0], "\uFEFF")

	t := &Table{Columns: make([]Column, len(header))}
	for i, name := range header {
		t.Columns[i] = Column{Name: name, Cells: make([]Cell, 0, len(records)-1)}
	}

	removed := 0
	for _, rec := range records[1:] {
		if removeMismatch && len(rec) != len(header) {
			removed++
			continue
		}
		for i := range header {
			t.Columns[i].Cells = append(t.Columns[i].Cells, StringCell(rec[i]))
		}
	}
	return t, removed, nil
}
