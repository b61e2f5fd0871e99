// Package filter models per-column search criteria and builds them from user
// selections against a loaded table.
//
// A Spec holds at most one filter per column, combined with logical AND by
// whichever executor applies it. Conditions are a closed variant: text
// containment or an inclusive numeric range. Text matching is
// case-insensitive in every execution path.
package filter

import "fmt"

// Condition is the closed set of per-column filter kinds.
// Implementations: TextFilter, RangeFilter.
type Condition interface {
	condition()
	String() string
}

// TextFilter matches rows whose cell contains Pattern, case-insensitively.
type TextFilter struct {
	Pattern string
}

func (TextFilter) condition() {}

func (f TextFilter) String() string {
	return fmt.Sprintf("contains %q", f.Pattern)
}

// RangeFilter matches rows whose numeric cell lies in [Low, High], inclusive
// at both ends.
type RangeFilter struct {
	Low  float64
	High float64
}

func (RangeFilter) condition() {}

func (f RangeFilter) String() string {
	return fmt.Sprintf("in [%g, %g]", f.Low, f.High)
}

// ColumnFilter binds a condition to a column name.
type ColumnFilter struct {
	Column string
	Cond   Condition
}

// Spec is an ordered set of column filters. A column appears at most once;
// Add enforces the invariant.
type Spec struct {
	Filters []ColumnFilter
}

// Empty reports whether the spec carries no criteria. Callers must treat an
// empty spec as "no criteria" and never hand it to an executor.
func (s Spec) Empty() bool {
	return len(s.Filters) == 0
}

// Add appends a filter for a column. Returns an error if the column already
// has one.
func (s *Spec) Add(column string, cond Condition) error {
	for _, f := range s.Filters {
		if f.Column == column {
			return fmt.Errorf("duplicate filter for column %q", column)
		}
	}
	s.Filters = append(s.Filters, ColumnFilter{Column: column, Cond: cond})
	return nil
}

// Get returns the condition for a column, or nil if the column is unfiltered.
func (s Spec) Get(column string) Condition {
	for _, f := range s.Filters {
		if f.Column == column {
			return f.Cond
		}
	}
	return nil
}

// Columns returns the filtered column names in spec order.
func (s Spec) Columns() []string {
	cols := make([]string, len(s.Filters))
	for i, f := range s.Filters {
		cols[i] = f.Column
	}
	return cols
}
