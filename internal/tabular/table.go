// Package tabular loads uploaded CSV and spreadsheet files into an in-memory
// table with per-column type inference and numeric statistics.
//
// A Table keeps the source file's column and row order. Column kinds are
// uniform: a column is numeric only if every non-empty cell parses as a
// number; otherwise the column is text. Numeric parsing tolerates the usual
// artifacts of user-exported data (currency symbols, thousands separators,
// accounting-style negatives).
package tabular

import (
	"regexp"
	"strconv"
	"strings"
)

// ColumnKind classifies a column as text or numeric.
type ColumnKind int

const (
	KindText ColumnKind = iota
	KindNumeric
)

// String returns the lowercase name of the kind ("text" or "numeric").
func (k ColumnKind) String() string {
	if k == KindNumeric {
		return "numeric"
	}
	return "text"
}

// Row maps column names to cell values. Values are string, int64, float64,
// or nil for empty cells.
type Row map[string]any

// Table is an ordered collection of uniform-schema rows loaded from a file.
type Table struct {
	Columns []string
	Kinds   map[string]ColumnKind
	Rows    []Row
}

// ColumnStats holds the observed minimum and maximum of a numeric column.
type ColumnStats struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Kind returns the inferred kind for a column. Unknown columns report text.
func (t *Table) Kind(column string) ColumnKind {
	return t.Kinds[column]
}

// HasColumn reports whether the table has a column with the given name.
func (t *Table) HasColumn(column string) bool {
	for _, c := range t.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// Stats computes min/max over a numeric column. The second return value is
// false for text columns, unknown columns, and columns with no values.
func (t *Table) Stats(column string) (ColumnStats, bool) {
	if t.Kinds[column] != KindNumeric {
		return ColumnStats{}, false
	}

	var stats ColumnStats
	seen := false
	for _, row := range t.Rows {
		v, ok := NumericValue(row[column])
		if !ok {
			continue
		}
		if !seen {
			stats.Min, stats.Max = v, v
			seen = true
			continue
		}
		if v < stats.Min {
			stats.Min = v
		}
		if v > stats.Max {
			stats.Max = v
		}
	}
	return stats, seen
}

// CellString formats a cell value for display and export. Integral numerics
// render without a decimal point; nil renders as the empty string.
func CellString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatFloat(val, 'f', 0, 64)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
}

// NumericValue extracts a float64 from a cell value. Strings are run through
// ParseNumber so a text column's digit-bearing cells still compare in range
// filters. Returns false for nil and non-numeric strings.
func NumericValue(v any) (float64, bool) {
	switch val := v.(type) {
	case int64:
		return float64(val), true
	case float64:
		return val, true
	case string:
		return ParseNumber(val)
	default:
		return 0, false
	}
}

// numberPattern validates a cleaned-up cell as integer, decimal, or
// scientific notation.
var numberPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// currencyReplacer strips currency symbols and thousands separators commonly
// found in exported salary columns.
var currencyReplacer = strings.NewReplacer(
	"$", "",
	"€", "", // euro
	"£", "", // pound
	"₹", "", // rupee
	",", "",
)

// ParseNumber parses a cell as a number after stripping currency symbols and
// thousands separators. Accounting-style negatives "(123.45)" are honored.
// Returns false for empty or non-numeric input.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.TrimSpace(currencyReplacer.Replace(s))
	if negative {
		s = "-" + s
	}

	if !numberPattern.MatchString(s) {
		return 0, false
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// CleanCell removes common spreadsheet artifacts from a cell value: outer
// whitespace, Excel formula prefixes (="value"), and surrounding quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.Trim(s, `"'`)
}
