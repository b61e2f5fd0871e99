// Package sqlite implements the store.Store adapter on an embedded SQLite
// database. It is the default backend for single-binary local deployments
// where no PostgreSQL instance is available.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/sparklabs/sparksearch/internal/filter"
	"github.com/sparklabs/sparksearch/internal/search"
	"github.com/sparklabs/sparksearch/internal/store"
	"github.com/sparklabs/sparksearch/internal/tabular"
)

// Store is a SQLite-backed persistence adapter.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database file at path. The parent directory is
// created if missing. Pass ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create data directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ingest loads the file at path and replaces the resumes tables with its
// contents in a single transaction.
func (s *Store) Ingest(ctx context.Context, path string) (store.IngestResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return store.IngestResult{}, fmt.Errorf("read upload: %w", err)
	}

	tbl, err := tabular.Load(filepath.Base(path), data)
	if err != nil {
		return store.IngestResult{}, err
	}

	cols := store.DBColumns(tbl)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.IngestResult{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		fmt.Sprintf("DROP TABLE IF EXISTS %s", store.QuoteIdentifier(store.DataTable)),
		fmt.Sprintf("DROP TABLE IF EXISTS %s", store.QuoteIdentifier(store.ColumnsTable)),
		createDataTable(cols),
		createColumnsTable(),
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return store.IngestResult{}, fmt.Errorf("prepare tables: %w", err)
		}
	}

	insertCols := fmt.Sprintf(
		"INSERT INTO %s (position, name, db_name, kind) VALUES (?, ?, ?, ?)",
		store.QuoteIdentifier(store.ColumnsTable),
	)
	for i, col := range cols {
		if _, err := tx.ExecContext(ctx, insertCols, i, col.Name, col.DBName, col.Kind.String()); err != nil {
			return store.IngestResult{}, fmt.Errorf("record column %q: %w", col.Name, err)
		}
	}

	insertRow, err := tx.PrepareContext(ctx, insertRowStatement(cols))
	if err != nil {
		return store.IngestResult{}, fmt.Errorf("prepare insert: %w", err)
	}
	defer insertRow.Close()

	for i, row := range tbl.Rows {
		args := make([]any, len(cols))
		for j, col := range cols {
			args[j] = row[col.Name]
		}
		if _, err := insertRow.ExecContext(ctx, args...); err != nil {
			return store.IngestResult{}, fmt.Errorf("insert row %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return store.IngestResult{}, fmt.Errorf("commit: %w", err)
	}

	return store.IngestResult{
		Rows:    len(tbl.Rows),
		Message: fmt.Sprintf("ingested %d rows, %d columns", len(tbl.Rows), len(cols)),
	}, nil
}

// Columns lists the ingested columns in file order.
func (s *Store) Columns(ctx context.Context) ([]store.Column, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?",
		store.ColumnsTable,
	).Scan(&count)
	if err != nil {
		return nil, fmt.Errorf("check tables: %w", err)
	}
	if count == 0 {
		return nil, store.ErrNoData
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT name, db_name, kind FROM %s ORDER BY position",
		store.QuoteIdentifier(store.ColumnsTable),
	))
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var cols []store.Column
	for rows.Next() {
		var c store.Column
		var kind string
		if err := rows.Scan(&c.Name, &c.DBName, &kind); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		if kind == "numeric" {
			c.Kind = tabular.KindNumeric
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	if len(cols) == 0 {
		return nil, store.ErrNoData
	}
	return cols, nil
}

// Search returns ingested rows matching every filter in spec, in upload
// order. An empty spec is a contract violation and is rejected.
func (s *Store) Search(ctx context.Context, spec filter.Spec) (*tabular.Table, error) {
	if spec.Empty() {
		return nil, search.ErrNoCriteria
	}

	cols, err := s.Columns(ctx)
	if err != nil {
		return nil, err
	}

	where, args, err := store.BuildWhere(store.SQLiteDialect, cols, spec)
	if err != nil {
		return nil, err
	}

	selected := make([]string, len(cols))
	for i, c := range cols {
		selected[i] = store.QuoteIdentifier(c.DBName)
	}

	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s",
		strings.Join(selected, ", "),
		store.QuoteIdentifier(store.DataTable),
		where,
		store.QuoteIdentifier(store.SeqColumn),
	)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	out := &tabular.Table{
		Columns: make([]string, len(cols)),
		Kinds:   make(map[string]tabular.ColumnKind, len(cols)),
	}
	for i, c := range cols {
		out.Columns[i] = c.Name
		out.Kinds[c.Name] = c.Kind
	}

	for rows.Next() {
		values := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		row := make(tabular.Row, len(cols))
		for i, c := range cols {
			row[c.Name] = store.NormalizeValue(values[i])
		}
		out.Rows = append(out.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

// ColumnStats returns min/max for a numeric column.
func (s *Store) ColumnStats(ctx context.Context, column string) (tabular.ColumnStats, error) {
	cols, err := s.Columns(ctx)
	if err != nil {
		return tabular.ColumnStats{}, err
	}

	var col store.Column
	found := false
	for _, c := range cols {
		if c.Name == column {
			col = c
			found = true
			break
		}
	}
	if !found {
		return tabular.ColumnStats{}, fmt.Errorf("unknown column %q", column)
	}
	if col.Kind != tabular.KindNumeric {
		return tabular.ColumnStats{}, fmt.Errorf("column %q is not numeric", column)
	}

	quoted := store.QuoteIdentifier(col.DBName)
	var min, max sql.NullFloat64
	err = s.db.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT MIN(%s), MAX(%s) FROM %s",
		quoted, quoted, store.QuoteIdentifier(store.DataTable),
	)).Scan(&min, &max)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return tabular.ColumnStats{}, fmt.Errorf("column stats: %w", err)
	}
	if !min.Valid || !max.Valid {
		return tabular.ColumnStats{}, fmt.Errorf("column %q has no values", column)
	}
	return tabular.ColumnStats{Min: min.Float64, Max: max.Float64}, nil
}

func createDataTable(cols []store.Column) string {
	defs := make([]string, 0, len(cols)+1)
	defs = append(defs, store.QuoteIdentifier(store.SeqColumn)+" INTEGER PRIMARY KEY AUTOINCREMENT")
	for _, col := range cols {
		sqlType := "TEXT"
		if col.Kind == tabular.KindNumeric {
			sqlType = "REAL"
		}
		defs = append(defs, store.QuoteIdentifier(col.DBName)+" "+sqlType)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)",
		store.QuoteIdentifier(store.DataTable), strings.Join(defs, ", "))
}

func createColumnsTable() string {
	return fmt.Sprintf(
		"CREATE TABLE %s (position INTEGER PRIMARY KEY, name TEXT NOT NULL, db_name TEXT NOT NULL, kind TEXT NOT NULL)",
		store.QuoteIdentifier(store.ColumnsTable),
	)
}

func insertRowStatement(cols []store.Column) string {
	names := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	for i, col := range cols {
		names[i] = store.QuoteIdentifier(col.DBName)
		placeholders[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		store.QuoteIdentifier(store.DataTable),
		strings.Join(names, ", "),
		strings.Join(placeholders, ", "),
	)
}
