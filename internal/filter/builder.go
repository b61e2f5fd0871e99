package filter

import (
	"fmt"

	"github.com/sparklabs/sparksearch/internal/tabular"
)

// DegenerateRangeMargin widens the upper bound when a numeric column's
// observed minimum equals its maximum, so a range control stays usable.
const DegenerateRangeMargin = 1000

// SelectionKind distinguishes the two filter form inputs per column.
type SelectionKind string

const (
	SelectText  SelectionKind = "text"
	SelectRange SelectionKind = "range"
)

// Selection is one column's filter request from the form or CLI.
type Selection struct {
	Column string        `json:"column"`
	Kind   SelectionKind `json:"kind"`

	// Pattern applies to text selections. An empty pattern means
	// "no filter on this column".
	Pattern string `json:"pattern,omitempty"`

	// Low/High apply to range selections when HasBounds is set; otherwise
	// bounds default to the column's observed minimum and maximum.
	Low       float64 `json:"low,omitempty"`
	High      float64 `json:"high,omitempty"`
	HasBounds bool    `json:"hasBounds,omitempty"`
}

// Warning describes a selection that was dropped without failing the build.
type Warning struct {
	Column  string `json:"column"`
	Message string `json:"message"`
}

// Build turns user selections into a Spec against the given table.
//
// Text selections with an empty pattern are silently dropped. Range
// selections on non-numeric columns produce a Warning and are dropped.
// Range bounds default to the column's observed [min, max]; the lower bound
// is the true minimum, never clamped to zero. If min equals max the upper
// bound is widened by DegenerateRangeMargin.
//
// An empty result is not an error: it signals "no criteria" to the caller.
func Build(tbl *tabular.Table, selections []Selection) (Spec, []Warning, error) {
	var spec Spec
	var warnings []Warning

	for _, sel := range selections {
		if !tbl.HasColumn(sel.Column) {
			warnings = append(warnings, Warning{
				Column:  sel.Column,
				Message: "unknown column, filter skipped",
			})
			continue
		}

		switch sel.Kind {
		case SelectText:
			if sel.Pattern == "" {
				continue
			}
			if err := spec.Add(sel.Column, TextFilter{Pattern: sel.Pattern}); err != nil {
				return Spec{}, nil, err
			}

		case SelectRange:
			if tbl.Kind(sel.Column) != tabular.KindNumeric {
				warnings = append(warnings, Warning{
					Column:  sel.Column,
					Message: fmt.Sprintf("column %q is not numeric, range filter skipped", sel.Column),
				})
				continue
			}

			low, high := sel.Low, sel.High
			if !sel.HasBounds {
				stats, ok := tbl.Stats(sel.Column)
				if !ok {
					warnings = append(warnings, Warning{
						Column:  sel.Column,
						Message: fmt.Sprintf("column %q has no values, range filter skipped", sel.Column),
					})
					continue
				}
				low, high = stats.Min, stats.Max
			}
			if low == high {
				high = low + DegenerateRangeMargin
			}
			if low > high {
				low, high = high, low
			}
			if err := spec.Add(sel.Column, RangeFilter{Low: low, High: high}); err != nil {
				return Spec{}, nil, err
			}

		default:
			return Spec{}, nil, fmt.Errorf("unknown filter kind %q for column %q", sel.Kind, sel.Column)
		}
	}

	return spec, warnings, nil
}
