package clean

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"csvclean/internal/table"
)

const dateFormat = "2006-01-02"

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// boolWords maps the accepted boolean spellings, lowercased.
var boolWords = map[string]bool{
	"true": true, "yes": true, "1": true,
	"false": false, "no": false, "0": false,
}

// 2^63 is exact as a float64, so this brackets the int64 range.
const int64Bound = float64(1 << 63)

// InferTypes converts empty strings to nulls, then retypes every column
// whose remaining values agree on one candidate type.
func InferTypes(tbl *table.Table) {
	emptyToNull(tbl)
	for ci := range tbl.Columns {
		inferColumn(tbl.Columns[ci].Cells)
	}
}

// inferColumn retypes a column in place when every non-null value parses
// under one candidate type. First match wins: boolean, then numeric, then
// ISO date. A single non-conforming value keeps the whole column as
// strings; all-null columns are left alone.
func inferColumn(cells []table.Cell) {
	var (
		seen    bool
		allBool = true
		allInt  = true
		allNum  = true
		allDate = true
	)

	for i := range cells {
		if cells[i].IsNull() {
			continue
		}
		seen = true
		v := strings.TrimSpace(cells[i].Str)

		if allBool {
			if _, ok := boolWords[strings.ToLower(v)]; !ok {
				allBool = false
			}
		}
		if allNum {
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				f, ferr := strconv.ParseFloat(v, 64)
				switch {
				case ferr != nil || math.IsNaN(f) || math.IsInf(f, 0):
					allNum, allInt = false, false
				case f != math.Trunc(f) || f < -int64Bound || f >= int64Bound:
					allInt = false
				}
			}
		}
		if allDate {
			if !datePattern.MatchString(v) {
				allDate = false
			} else if _, err := time.Parse(dateFormat, v); err != nil {
				allDate = false
			}
		}
	}

	if !seen {
		return
	}

	switch {
	case allBool:
		for i := range cells {
			if cells[i].IsNull() {
				continue
			}
			v := strings.ToLower(strings.TrimSpace(cells[i].Str))
			cells[i] = table.BoolCell(boolWords[v])
		}
	case allInt:
		for i := range cells {
			if cells[i].IsNull() {
				continue
			}
			v := strings.TrimSpace(cells[i].Str)
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				cells[i] = table.IntCell(n)
			} else {
				f, _ := strconv.ParseFloat(v, 64)
				cells[i] = table.IntCell(int64(f))
			}
		}
	case allNum:
		for i := range cells {
			if cells[i].IsNull() {
				continue
			}
			f, _ := strconv.ParseFloat(strings.TrimSpace(cells[i].Str), 64)
			cells[i] = table.FloatCell(f)
		}
	case allDate:
		for i := range cells {
			if cells[i].IsNull() {
				continue
			}
			t, _ := time.Parse(dateFormat, strings.TrimSpace(cells[i].Str))
			cells[i] = table.DateCell(t)
		}
	}
}
