// Package search applies a filter spec to an in-memory table.
//
// This is the fallback execution path for sessions without a store handle
// and for the offline CLI; the SQL stores implement the same semantics in
// their WHERE clauses.
package search

import (
	"errors"
	"strings"

	"github.com/sparklabs/sparksearch/internal/filter"
	"github.com/sparklabs/sparksearch/internal/tabular"
)

// ErrNoCriteria is returned when Apply is called with an empty spec. The
// caller layer is expected to catch "no criteria" before executing; reaching
// the executor with an empty spec is a contract violation, not a full scan.
var ErrNoCriteria = errors.New("no search criteria")

// Apply returns the subsequence of tbl's rows satisfying every filter in
// spec. Row order is preserved and tbl is never mutated; calling Apply twice
// with the same inputs yields identical results.
//
// A row missing a value on any filtered column is excluded.
func Apply(tbl *tabular.Table, spec filter.Spec) (*tabular.Table, error) {
	if spec.Empty() {
		return nil, ErrNoCriteria
	}

	out := &tabular.Table{
		Columns: tbl.Columns,
		Kinds:   tbl.Kinds,
	}

	for _, row := range tbl.Rows {
		if Matches(row, spec) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out, nil
}

// Matches reports whether a single row satisfies every filter in spec.
func Matches(row tabular.Row, spec filter.Spec) bool {
	for _, cf := range spec.Filters {
		v, ok := row[cf.Column]
		if !ok || v == nil {
			return false
		}

		switch cond := cf.Cond.(type) {
		case filter.TextFilter:
			cell := tabular.CellString(v)
			if !strings.Contains(strings.ToLower(cell), strings.ToLower(cond.Pattern)) {
				return false
			}

		case filter.RangeFilter:
			n, ok := tabular.NumericValue(v)
			if !ok {
				return false
			}
			if n < cond.Low || n > cond.High {
				return false
			}

		default:
			return false
		}
	}
	return true
}
