// Package store defines the persistence adapter the search pipeline
// delegates ingestion and querying to, plus the SQL fragments shared by its
// PostgreSQL and SQLite implementations.
//
// Both backends materialize each upload as a fresh "resumes" table whose
// columns mirror the uploaded file, with a companion "resumes_columns" table
// recording display names, database names, and inferred kinds. A sequence
// column preserves the file's row order so searches return rows in upload
// order.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sparklabs/sparksearch/internal/filter"
	"github.com/sparklabs/sparksearch/internal/tabular"
)

// DataTable and ColumnsTable are the backing table names shared by both
// implementations.
const (
	DataTable    = "resumes"
	ColumnsTable = "resumes_columns"
	SeqColumn    = "_seq"
)

// ErrNoData is returned by query operations before any file was ingested.
var ErrNoData = errors.New("no data ingested")

// Column describes one ingested column.
type Column struct {
	Name   string             `json:"name"`   // display name from the file header
	DBName string             `json:"dbName"` // sanitized database identifier
	Kind   tabular.ColumnKind `json:"-"`
}

// IngestResult reports the outcome of a successful ingestion.
type IngestResult struct {
	Rows    int    `json:"rows"`
	Message string `json:"message"`
}

// Store is the persistence adapter interface consumed by the service layer.
type Store interface {
	// Ingest loads the file at path and replaces the backing tables with
	// its contents.
	Ingest(ctx context.Context, path string) (IngestResult, error)

	// Search returns the ingested rows matching every filter in spec, in
	// upload order.
	Search(ctx context.Context, spec filter.Spec) (*tabular.Table, error)

	// ColumnStats returns min/max for a numeric column.
	ColumnStats(ctx context.Context, column string) (tabular.ColumnStats, error)

	// Columns lists the ingested columns in file order.
	Columns(ctx context.Context) ([]Column, error)

	Close() error
}

// QuoteIdentifier quotes a SQL identifier to prevent injection. Works for
// both PostgreSQL and SQLite.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// ToDBColumnName converts a display column name to a database identifier:
// lowercased, spaces collapsed to underscores, other non-alphanumerics
// dropped. "Expected Salary" -> "expected_salary".
func ToDBColumnName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '-':
			b.WriteRune('_')
		}
	}
	s := b.String()
	if s == "" || (s[0] >= '0' && s[0] <= '9') {
		s = "c_" + s
	}
	return s
}

// DBColumns assigns unique database identifiers to the table's columns,
// suffixing duplicates after sanitization.
func DBColumns(tbl *tabular.Table) []Column {
	used := make(map[string]bool)
	cols := make([]Column, len(tbl.Columns))
	for i, name := range tbl.Columns {
		base := ToDBColumnName(name)
		dbName := base
		for n := 2; used[dbName]; n++ {
			dbName = fmt.Sprintf("%s_%d", base, n)
		}
		used[dbName] = true
		cols[i] = Column{Name: name, DBName: dbName, Kind: tbl.Kind(name)}
	}
	return cols
}

// Dialect abstracts the placeholder and case-insensitive match syntax that
// differs between the two backends.
type Dialect struct {
	// Placeholder renders the i-th (1-based) query parameter.
	Placeholder func(i int) string

	// TextMatch renders a case-insensitive containment test of column col
	// against the placeholder ph.
	TextMatch func(col, ph string) string
}

// PostgresDialect uses $n placeholders and ILIKE.
var PostgresDialect = Dialect{
	Placeholder: func(i int) string { return fmt.Sprintf("$%d", i) },
	TextMatch:   func(col, ph string) string { return fmt.Sprintf(`%s::text ILIKE %s ESCAPE '\'`, col, ph) },
}

// SQLiteDialect uses ? placeholders and LOWER() comparison, since SQLite's
// LIKE is only case-insensitive for ASCII by default.
var SQLiteDialect = Dialect{
	Placeholder: func(i int) string { return "?" },
	TextMatch:   func(col, ph string) string { return fmt.Sprintf(`LOWER(CAST(%s AS TEXT)) LIKE LOWER(%s) ESCAPE '\'`, col, ph) },
}

// likeEscaper neutralizes LIKE metacharacters so user patterns match
// literally, the same way the in-memory executor treats them.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes %, _ and the escape character in a user pattern for use
// with the dialects' ESCAPE '\' clauses.
func EscapeLike(pattern string) string {
	return likeEscaper.Replace(pattern)
}

// NormalizeValue folds driver types back into the loader's value set:
// integral floats become int64 so results round-trip identically whether
// they came from a store or the in-memory table.
func NormalizeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case float64:
		if val == float64(int64(val)) {
			return int64(val)
		}
		return val
	case float32:
		return NormalizeValue(float64(val))
	case int32:
		return int64(val)
	case int64:
		return val
	case []byte:
		return string(val)
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// BuildWhere renders the WHERE clause for a filter spec. Filters combine
// with AND; text filters match case-insensitively, range filters are
// inclusive at both ends. Returns an empty clause for an empty spec (callers
// guard against executing one). Errors on filters naming unknown columns.
func BuildWhere(d Dialect, columns []Column, spec filter.Spec) (string, []any, error) {
	byName := make(map[string]Column, len(columns))
	for _, c := range columns {
		byName[c.Name] = c
	}

	var conds []string
	var args []any
	argIdx := 1

	for _, cf := range spec.Filters {
		col, ok := byName[cf.Column]
		if !ok {
			return "", nil, fmt.Errorf("filter on unknown column %q", cf.Column)
		}
		quoted := QuoteIdentifier(col.DBName)

		switch cond := cf.Cond.(type) {
		case filter.TextFilter:
			conds = append(conds, d.TextMatch(quoted, d.Placeholder(argIdx)))
			args = append(args, "%"+EscapeLike(cond.Pattern)+"%")
			argIdx++

		case filter.RangeFilter:
			conds = append(conds, fmt.Sprintf("%s BETWEEN %s AND %s",
				quoted, d.Placeholder(argIdx), d.Placeholder(argIdx+1)))
			args = append(args, cond.Low, cond.High)
			argIdx += 2

		default:
			return "", nil, fmt.Errorf("unsupported filter condition for column %q", cf.Column)
		}
	}

	if len(conds) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}
