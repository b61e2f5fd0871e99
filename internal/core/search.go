package core

import (
	"context"
	"errors"

	"github.com/sparklabs/sparksearch/internal/filter"
	"github.com/sparklabs/sparksearch/internal/logging"
	"github.com/sparklabs/sparksearch/internal/search"
	"github.com/sparklabs/sparksearch/internal/store"
	"github.com/sparklabs/sparksearch/internal/tabular"
)

// ColumnInfo describes one available column for the filter form.
type ColumnInfo struct {
	Name  string               `json:"name"`
	Kind  string               `json:"kind"`
	Stats *tabular.ColumnStats `json:"stats,omitempty"`
}

// SearchResult is the result of one search invocation, produced fresh each
// time.
type SearchResult struct {
	Table    *tabular.Table   `json:"-"`
	Count    int              `json:"count"`
	Warnings []filter.Warning `json:"warnings,omitempty"`
}

// Columns lists the columns available for filtering, with min/max stats for
// numeric columns. The session snapshot wins when present; otherwise the
// store is consulted, so filters survive a server restart.
func (s *Service) Columns(ctx context.Context, sess *Session) ([]ColumnInfo, error) {
	if sess.Table != nil {
		infos := make([]ColumnInfo, len(sess.Table.Columns))
		for i, col := range sess.Table.Columns {
			info := ColumnInfo{Name: col, Kind: sess.Table.Kind(col).String()}
			if stats, ok := sess.Table.Stats(col); ok {
				info.Stats = &stats
			}
			infos[i] = info
		}
		return infos, nil
	}

	if s.store == nil {
		return nil, store.ErrNoData
	}

	cols, err := s.store.Columns(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]ColumnInfo, len(cols))
	for i, col := range cols {
		info := ColumnInfo{Name: col.Name, Kind: col.Kind.String()}
		if col.Kind == tabular.KindNumeric {
			if stats, err := s.store.ColumnStats(ctx, col.Name); err == nil {
				info.Stats = &stats
			}
		}
		infos[i] = info
	}
	return infos, nil
}

// Search builds a filter spec from the selections and executes it. The store
// executes when attached; otherwise the session's in-memory table is
// filtered directly. An empty spec (nothing selected, or every selection
// dropped) returns search.ErrNoCriteria without executing.
//
// The result and its spec are snapshotted on the session for export.
func (s *Service) Search(ctx context.Context, sess *Session, selections []filter.Selection) (*SearchResult, error) {
	tbl, resolved, err := s.filterTable(ctx, sess, selections)
	if err != nil {
		return nil, err
	}

	spec, warnings, err := filter.Build(tbl, resolved)
	if err != nil {
		return nil, err
	}
	if spec.Empty() {
		return nil, search.ErrNoCriteria
	}

	result, err := s.execute(ctx, sess, spec)
	if err != nil {
		return nil, err
	}

	sess.LastSpec = spec
	sess.LastResult = result

	logging.FromContext(ctx).Info("search executed",
		"filters", len(spec.Filters),
		"matches", len(result.Rows),
		"warnings", len(warnings),
	)

	return &SearchResult{Table: result, Count: len(result.Rows), Warnings: warnings}, nil
}

// execute runs the spec against the store when attached, falling back to the
// in-memory executor over the session snapshot. The store only executes when
// it holds the session's current upload; after a failed ingestion it still
// carries the previous data set, which must not be served.
func (s *Service) execute(ctx context.Context, sess *Session, spec filter.Spec) (*tabular.Table, error) {
	if s.store != nil && (sess.Table == nil || sess.Ingested) {
		result, err := s.store.Search(ctx, spec)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, store.ErrNoData) || sess.Table == nil {
			return nil, err
		}
	}

	if sess.Table == nil {
		return nil, store.ErrNoData
	}
	return search.Apply(sess.Table, spec)
}

// filterTable returns the table the filter builder should resolve column
// kinds and stats against, plus the selections to build from. Without a
// session snapshot, a schema-only surrogate is assembled from the store and
// range bounds are pre-resolved from store statistics into a copy of the
// selections; the caller's slice is never touched.
func (s *Service) filterTable(ctx context.Context, sess *Session, selections []filter.Selection) (*tabular.Table, []filter.Selection, error) {
	if sess.Table != nil {
		return sess.Table, selections, nil
	}
	if s.store == nil {
		return nil, nil, store.ErrNoData
	}

	cols, err := s.store.Columns(ctx)
	if err != nil {
		return nil, nil, err
	}

	surrogate := &tabular.Table{
		Columns: make([]string, len(cols)),
		Kinds:   make(map[string]tabular.ColumnKind, len(cols)),
	}
	for i, col := range cols {
		surrogate.Columns[i] = col.Name
		surrogate.Kinds[col.Name] = col.Kind
	}

	// A rowless surrogate has no stats, so default range bounds must come
	// from the store before the builder sees the selections.
	resolved := make([]filter.Selection, len(selections))
	copy(resolved, selections)
	for i, sel := range resolved {
		if sel.Kind != filter.SelectRange || sel.HasBounds {
			continue
		}
		if surrogate.Kinds[sel.Column] != tabular.KindNumeric {
			continue
		}
		stats, err := s.store.ColumnStats(ctx, sel.Column)
		if err != nil {
			return nil, nil, err
		}
		resolved[i].Low = stats.Min
		resolved[i].High = stats.Max
		resolved[i].HasBounds = true
	}

	return surrogate, resolved, nil
}
