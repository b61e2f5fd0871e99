package filter

import (
	"testing"

	"github.com/sparklabs/sparksearch/internal/tabular"
)

func buildTable() *tabular.Table {
	return &tabular.Table{
		Columns: []string{"name", "salary", "level", "empty_num"},
		Kinds: map[string]tabular.ColumnKind{
			"name":      tabular.KindText,
			"salary":    tabular.KindNumeric,
			"level":     tabular.KindNumeric,
			"empty_num": tabular.KindNumeric,
		},
		Rows: []tabular.Row{
			{"name": "Alice", "salary": int64(-500), "level": int64(3), "empty_num": nil},
			{"name": "Bob", "salary": int64(90000), "level": int64(3), "empty_num": nil},
		},
	}
}

func TestBuildTextSelection(t *testing.T) {
	spec, warnings, err := Build(buildTable(), []Selection{
		{Column: "name", Kind: SelectText, Pattern: "ali"},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}

	cond, ok := spec.Get("name").(TextFilter)
	if !ok {
		t.Fatalf("Get(name) = %T, want TextFilter", spec.Get("name"))
	}
	if cond.Pattern != "ali" {
		t.Errorf("pattern = %q, want ali", cond.Pattern)
	}
}

func TestBuildEmptyPatternDropped(t *testing.T) {
	spec, warnings, err := Build(buildTable(), []Selection{
		{Column: "name", Kind: SelectText, Pattern: ""},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !spec.Empty() {
		t.Error("empty pattern should produce no filter")
	}
	if len(warnings) != 0 {
		t.Errorf("empty pattern should not warn, got %v", warnings)
	}
}

func TestBuildRangeDefaults(t *testing.T) {
	spec, _, err := Build(buildTable(), []Selection{
		{Column: "salary", Kind: SelectRange},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	cond, ok := spec.Get("salary").(RangeFilter)
	if !ok {
		t.Fatalf("Get(salary) = %T, want RangeFilter", spec.Get("salary"))
	}
	// Bounds come from observed data; a negative minimum stays negative.
	if cond.Low != -500 || cond.High != 90000 {
		t.Errorf("range = [%v, %v], want [-500, 90000]", cond.Low, cond.High)
	}
}

func TestBuildRangeExplicitBounds(t *testing.T) {
	spec, _, err := Build(buildTable(), []Selection{
		{Column: "salary", Kind: SelectRange, Low: 10, High: 20, HasBounds: true},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	cond := spec.Get("salary").(RangeFilter)
	if cond.Low != 10 || cond.High != 20 {
		t.Errorf("range = [%v, %v], want [10, 20]", cond.Low, cond.High)
	}
}

func TestBuildDegenerateRangeWidened(t *testing.T) {
	// level has min == max == 3.
	spec, _, err := Build(buildTable(), []Selection{
		{Column: "level", Kind: SelectRange},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	cond := spec.Get("level").(RangeFilter)
	if cond.Low != 3 || cond.High != 3+DegenerateRangeMargin {
		t.Errorf("range = [%v, %v], want [3, %v]", cond.Low, cond.High, 3+DegenerateRangeMargin)
	}
}

func TestBuildSwappedBounds(t *testing.T) {
	spec, _, err := Build(buildTable(), []Selection{
		{Column: "salary", Kind: SelectRange, Low: 50, High: 10, HasBounds: true},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	cond := spec.Get("salary").(RangeFilter)
	if cond.Low != 10 || cond.High != 50 {
		t.Errorf("range = [%v, %v], want bounds swapped to [10, 50]", cond.Low, cond.High)
	}
}

func TestBuildWarnings(t *testing.T) {
	tests := []struct {
		name string
		sel  Selection
	}{
		{
			name: "unknown column",
			sel:  Selection{Column: "ghost", Kind: SelectText, Pattern: "x"},
		},
		{
			name: "range on text column",
			sel:  Selection{Column: "name", Kind: SelectRange},
		},
		{
			name: "range on valueless numeric column",
			sel:  Selection{Column: "empty_num", Kind: SelectRange},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, warnings, err := Build(buildTable(), []Selection{tt.sel})
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if !spec.Empty() {
				t.Error("dropped selection should leave spec empty")
			}
			if len(warnings) != 1 {
				t.Fatalf("warnings = %v, want exactly one", warnings)
			}
			if warnings[0].Column != tt.sel.Column {
				t.Errorf("warning column = %q, want %q", warnings[0].Column, tt.sel.Column)
			}
		})
	}
}

func TestBuildUnknownKind(t *testing.T) {
	_, _, err := Build(buildTable(), []Selection{
		{Column: "name", Kind: "fuzzy"},
	})
	if err == nil {
		t.Fatal("unknown selection kind should fail")
	}
}

func TestBuildDuplicateColumn(t *testing.T) {
	_, _, err := Build(buildTable(), []Selection{
		{Column: "name", Kind: SelectText, Pattern: "a"},
		{Column: "name", Kind: SelectText, Pattern: "b"},
	})
	if err == nil {
		t.Fatal("duplicate column selections should fail")
	}
}
