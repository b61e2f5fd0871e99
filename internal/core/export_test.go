package core

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sparklabs/sparksearch/internal/tabular"
)

func exportTable() *tabular.Table {
	return &tabular.Table{
		Columns: []string{"name", "salary"},
		Kinds: map[string]tabular.ColumnKind{
			"name":   tabular.KindText,
			"salary": tabular.KindNumeric,
		},
		Rows: []tabular.Row{
			{"name": "Alice", "salary": int64(50000)},
			{"name": "Bob", "salary": 72000.5},
			{"name": "Carol", "salary": nil},
		},
	}
}

func TestParseExportFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    ExportFormat
		wantErr bool
	}{
		{input: "", want: ExportCSV},
		{input: "csv", want: ExportCSV},
		{input: "CSV", want: ExportCSV},
		{input: "json", want: ExportJSON},
		{input: "xlsx", want: ExportXLSX},
		{input: "excel", want: ExportXLSX},
		{input: "pdf", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseExportFormat(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseExportFormat(%q) should fail", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseExportFormat(%q) error = %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseExportFormat(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestExportCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(&buf, exportTable(), ExportCSV); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("csv lines = %d, want header plus 3 rows", len(lines))
	}
	if lines[0] != "name,salary" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "Alice,50000" {
		t.Errorf("row 1 = %q, want integral salary without decimals", lines[1])
	}
	if lines[2] != "Bob,72000.5" {
		t.Errorf("row 2 = %q", lines[2])
	}
	if lines[3] != "Carol," {
		t.Errorf("row 3 = %q, want empty cell for nil", lines[3])
	}
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(&buf, exportTable(), ExportJSON); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	var rows []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rows); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[0]["name"] != "Alice" {
		t.Errorf("rows[0].name = %v", rows[0]["name"])
	}
	if rows[2]["salary"] != nil {
		t.Errorf("rows[2].salary = %v, want null", rows[2]["salary"])
	}
}

func TestExportJSONEmptyTable(t *testing.T) {
	tbl := &tabular.Table{Columns: []string{"a"}}

	var buf bytes.Buffer
	if err := Export(&buf, tbl, ExportJSON); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("empty table JSON = %q, want []", buf.String())
	}
}

func TestExportXLSXRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(&buf, exportTable(), ExportXLSX); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	// The workbook must load back through the same parser uploads use.
	tbl, err := tabular.Load("out.xlsx", buf.Bytes())
	if err != nil {
		t.Fatalf("re-load exported xlsx: %v", err)
	}
	if len(tbl.Columns) != 2 || tbl.Columns[0] != "name" {
		t.Errorf("columns = %v", tbl.Columns)
	}
	if len(tbl.Rows) != 3 {
		t.Errorf("rows = %d, want 3", len(tbl.Rows))
	}
}

func TestExportFormatContentType(t *testing.T) {
	mime, ext := ExportCSV.ContentType()
	if mime != "text/csv" || ext != "csv" {
		t.Errorf("csv content type = %s %s", mime, ext)
	}
	mime, ext = ExportXLSX.ContentType()
	if !strings.Contains(mime, "spreadsheet") || ext != "xlsx" {
		t.Errorf("xlsx content type = %s %s", mime, ext)
	}
}
