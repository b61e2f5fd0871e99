// Package postgres implements the store.Store adapter on PostgreSQL via
// pgx. Each ingestion rebuilds the resumes table inside one transaction, so
// a failed upload never leaves a half-written data set behind.
package postgres

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sparklabs/sparksearch/internal/filter"
	"github.com/sparklabs/sparksearch/internal/search"
	"github.com/sparklabs/sparksearch/internal/store"
	"github.com/sparklabs/sparksearch/internal/tabular"
)

// Store is a PostgreSQL-backed persistence adapter.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an existing connection pool. The caller owns pool configuration;
// Close releases it.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Open connects to the given database URL and verifies the connection.
func Open(ctx context.Context, url string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
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

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return store.IngestResult{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, stmt := range []string{
		fmt.Sprintf("DROP TABLE IF EXISTS %s", store.QuoteIdentifier(store.DataTable)),
		fmt.Sprintf("DROP TABLE IF EXISTS %s", store.QuoteIdentifier(store.ColumnsTable)),
		createDataTable(cols),
		createColumnsTable(),
	} {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return store.IngestResult{}, fmt.Errorf("prepare tables: %w", err)
		}
	}

	insertCols := fmt.Sprintf(
		"INSERT INTO %s (position, name, db_name, kind) VALUES ($1, $2, $3, $4)",
		store.QuoteIdentifier(store.ColumnsTable),
	)
	for i, col := range cols {
		if _, err := tx.Exec(ctx, insertCols, i, col.Name, col.DBName, col.Kind.String()); err != nil {
			return store.IngestResult{}, fmt.Errorf("record column %q: %w", col.Name, err)
		}
	}

	insertRow := insertRowStatement(cols)
	for i, row := range tbl.Rows {
		args := make([]any, len(cols))
		for j, col := range cols {
			args[j] = row[col.Name]
		}
		if _, err := tx.Exec(ctx, insertRow, args...); err != nil {
			return store.IngestResult{}, fmt.Errorf("insert row %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return store.IngestResult{}, fmt.Errorf("commit: %w", err)
	}

	return store.IngestResult{
		Rows:    len(tbl.Rows),
		Message: fmt.Sprintf("ingested %d rows, %d columns", len(tbl.Rows), len(cols)),
	}, nil
}

// Columns lists the ingested columns in file order.
func (s *Store) Columns(ctx context.Context) ([]store.Column, error) {
	var exists *string
	err := s.pool.QueryRow(ctx,
		"SELECT to_regclass($1)::text", store.ColumnsTable,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check tables: %w", err)
	}
	if exists == nil {
		return nil, store.ErrNoData
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(
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

	where, args, err := store.BuildWhere(store.PostgresDialect, cols, spec)
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

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	out := resultTable(cols)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row values: %w", err)
		}
		out.Rows = append(out.Rows, rowFromValues(cols, values))
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

	col, err := numericColumn(cols, column)
	if err != nil {
		return tabular.ColumnStats{}, err
	}

	quoted := store.QuoteIdentifier(col.DBName)
	var min, max *float64
	err = s.pool.QueryRow(ctx, fmt.Sprintf(
		"SELECT MIN(%s), MAX(%s) FROM %s",
		quoted, quoted, store.QuoteIdentifier(store.DataTable),
	)).Scan(&min, &max)
	if err != nil {
		return tabular.ColumnStats{}, fmt.Errorf("column stats: %w", err)
	}
	if min == nil || max == nil {
		return tabular.ColumnStats{}, fmt.Errorf("column %q has no values", column)
	}
	return tabular.ColumnStats{Min: *min, Max: *max}, nil
}

func numericColumn(cols []store.Column, column string) (store.Column, error) {
	for _, c := range cols {
		if c.Name == column {
			if c.Kind != tabular.KindNumeric {
				return store.Column{}, fmt.Errorf("column %q is not numeric", column)
			}
			return c, nil
		}
	}
	return store.Column{}, fmt.Errorf("unknown column %q", column)
}

func createDataTable(cols []store.Column) string {
	defs := make([]string, 0, len(cols)+1)
	defs = append(defs, store.QuoteIdentifier(store.SeqColumn)+" BIGSERIAL PRIMARY KEY")
	for _, col := range cols {
		sqlType := "TEXT"
		if col.Kind == tabular.KindNumeric {
			sqlType = "DOUBLE PRECISION"
		}
		defs = append(defs, store.QuoteIdentifier(col.DBName)+" "+sqlType)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)",
		store.QuoteIdentifier(store.DataTable), strings.Join(defs, ", "))
}

func createColumnsTable() string {
	return fmt.Sprintf(
		"CREATE TABLE %s (position INT PRIMARY KEY, name TEXT NOT NULL, db_name TEXT NOT NULL, kind TEXT NOT NULL)",
		store.QuoteIdentifier(store.ColumnsTable),
	)
}

func insertRowStatement(cols []store.Column) string {
	names := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	for i, col := range cols {
		names[i] = store.QuoteIdentifier(col.DBName)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		store.QuoteIdentifier(store.DataTable),
		strings.Join(names, ", "),
		strings.Join(placeholders, ", "),
	)
}

func resultTable(cols []store.Column) *tabular.Table {
	out := &tabular.Table{
		Columns: make([]string, len(cols)),
		Kinds:   make(map[string]tabular.ColumnKind, len(cols)),
	}
	for i, c := range cols {
		out.Columns[i] = c.Name
		out.Kinds[c.Name] = c.Kind
	}
	return out
}

func rowFromValues(cols []store.Column, values []any) tabular.Row {
	row := make(tabular.Row, len(cols))
	for i, col := range cols {
		row[col.Name] = store.NormalizeValue(values[i])
	}
	return row
}
