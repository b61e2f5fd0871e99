package core

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/sparklabs/sparksearch/internal/tabular"
)

// ExportFormat selects the serialization for search results.
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportJSON ExportFormat = "json"
	ExportXLSX ExportFormat = "xlsx"
)

// ParseExportFormat normalizes a user-supplied format string.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv", "":
		return ExportCSV, nil
	case "json":
		return ExportJSON, nil
	case "xlsx", "excel":
		return ExportXLSX, nil
	default:
		return "", fmt.Errorf("unknown export format %q", s)
	}
}

// ContentType returns the MIME type and filename extension for the format.
func (f ExportFormat) ContentType() (mime, ext string) {
	switch f {
	case ExportJSON:
		return "application/json", "json"
	case ExportXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "xlsx"
	default:
		return "text/csv", "csv"
	}
}

// Export writes the table to w in the given format. Column order follows the
// table; row order is preserved.
func Export(w io.Writer, tbl *tabular.Table, format ExportFormat) error {
	switch format {
	case ExportJSON:
		return exportJSON(w, tbl)
	case ExportXLSX:
		return exportXLSX(w, tbl)
	default:
		return exportCSV(w, tbl)
	}
}

func exportCSV(w io.Writer, tbl *tabular.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tbl.Columns); err != nil {
		return err
	}
	record := make([]string, len(tbl.Columns))
	for _, row := range tbl.Rows {
		for i, col := range tbl.Columns {
			record[i] = tabular.CellString(row[col])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func exportJSON(w io.Writer, tbl *tabular.Table) error {
	// Rows serialize as objects; a nil slice would serialize as null.
	rows := tbl.Rows
	if rows == nil {
		rows = []tabular.Row{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func exportXLSX(w io.Writer, tbl *tabular.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"

	header := make([]any, len(tbl.Columns))
	for i, col := range tbl.Columns {
		header[i] = col
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for r, row := range tbl.Rows {
		cells := make([]any, len(tbl.Columns))
		for i, col := range tbl.Columns {
			cells[i] = row[col]
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return err
		}
	}

	return f.Write(w)
}
