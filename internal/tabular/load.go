package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// Sentinel errors for the loading pipeline. Callers match with errors.Is.
var (
	// ErrUnsupportedFormat indicates a file extension outside .csv/.xlsx/.xls.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrParse indicates the underlying parser could not interpret the bytes.
	ErrParse = errors.New("parse error")

	// ErrEmpty indicates the file held no header row.
	ErrEmpty = errors.New("empty file")
)

// SupportedExtension reports whether the filename carries a loadable
// extension. The check is case-insensitive.
func SupportedExtension(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".xlsx", ".xls":
		return true
	}
	return false
}

// Load parses raw uploaded bytes into a Table. The parser is chosen by the
// filename extension; the first row is the header. Returns an error wrapping
// ErrUnsupportedFormat or ErrParse on failure.
func Load(filename string, data []byte) (*Table, error) {
	var (
		records [][]string
		err     error
	)

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		records, err = parseCSV(data)
	case ".xlsx":
		records, err = parseXLSX(data)
	case ".xls":
		records, err = parseXLS(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	return fromRecords(records)
}

// parseCSV reads CSV data leniently: ragged rows and lazy quoting are
// accepted, and invalid UTF-8 is replaced before parsing.
func parseCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(sanitizeUTF8(data)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.ReadAll()
}

// parseXLSX reads the first sheet of an xlsx workbook.
func parseXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

// parseXLS reads the first sheet of a legacy xls workbook.
func parseXLS(data []byte) ([][]string, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}
	rows := wb.ReadAllCells(1 << 20)
	if len(rows) == 0 {
		return nil, errors.New("workbook has no rows")
	}
	return rows, nil
}

// fromRecords builds a typed Table from raw string records. The first
// non-empty record is the header; fully empty records are skipped.
func fromRecords(records [][]string) (*Table, error) {
	headerAt := -1
	for i, rec := range records {
		if !isEmptyRecord(rec) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return nil, ErrEmpty
	}

	header := records[headerAt]
	columns := make([]string, 0, len(header))
	for i, h := range header {
		name := CleanCell(h)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		columns = append(columns, name)
	}

	var raw [][]string
	for _, rec := range records[headerAt+1:] {
		if isEmptyRecord(rec) {
			continue
		}
		raw = append(raw, rec)
	}

	kinds := inferKinds(columns, raw)

	rows := make([]Row, 0, len(raw))
	for _, rec := range raw {
		row := make(Row, len(columns))
		for i, col := range columns {
			var cell string
			if i < len(rec) {
				cell = CleanCell(rec[i])
			}
			row[col] = typedCell(cell, kinds[col])
		}
		rows = append(rows, row)
	}

	return &Table{Columns: columns, Kinds: kinds, Rows: rows}, nil
}

// inferKinds classifies each column: numeric only when every non-empty cell
// parses as a number and at least one cell holds a value.
func inferKinds(columns []string, raw [][]string) map[string]ColumnKind {
	kinds := make(map[string]ColumnKind, len(columns))
	for i, col := range columns {
		numeric := false
		valid := true
		for _, rec := range raw {
			if i >= len(rec) {
				continue
			}
			cell := CleanCell(rec[i])
			if cell == "" {
				continue
			}
			if _, ok := ParseNumber(cell); !ok {
				valid = false
				break
			}
			numeric = true
		}
		if valid && numeric {
			kinds[col] = KindNumeric
		} else {
			kinds[col] = KindText
		}
	}
	return kinds
}

// typedCell converts a cleaned cell string into its stored value. Numeric
// columns store int64 for integral values and float64 otherwise; empty cells
// store nil in either kind.
func typedCell(cell string, kind ColumnKind) any {
	if cell == "" {
		return nil
	}
	if kind == KindNumeric {
		f, ok := ParseNumber(cell)
		if !ok {
			return nil
		}
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	}
	return cell
}

func isEmptyRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// sanitizeUTF8 replaces invalid byte sequences with the Unicode replacement
// character so the CSV reader never chokes on mixed encodings.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('�')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}
