// Package reader implements sync.RowReader over the three local
// embedded SQLite databases: drift.db (primary), bridge.db (causal) and
// cortex.db (semantic).
//
// Databases are opened read-mostly with WAL so the analysis engine can
// keep writing while a push reads. Rows come back as schema.Row values
// in the closed union, ordered by ascending id so cursor advancement is
// well defined.
package reader

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/sourcepulse/cloudsync/internal/catalog"
	"github.com/sourcepulse/cloudsync/internal/schema"
)

// fileForSource maps each source database to its on-disk filename.
var fileForSource = map[catalog.Source]string{
	catalog.SourcePrimary:  "drift.db",
	catalog.SourceCausal:   "bridge.db",
	catalog.SourceSemantic: "cortex.db",
}

// SQLiteReader reads local rows from the three embedded databases.
type SQLiteReader struct {
	dbs map[catalog.Source]*sql.DB
}

// Open opens the three databases under dir.
//
// All three files must exist or be creatable; the caller MUST call
// Close when done.
//
// Example:
//
//	r, err := reader.Open(".cloudsync")
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
func Open(dir string) (*SQLiteReader, error) {
	r := &SQLiteReader{dbs: make(map[catalog.Source]*sql.DB, len(fileForSource))}

	for source, file := range fileForSource {
		conn, err := openDB(filepath.Join(dir, file))
		if err != nil {
			_ = r.Close()
			return nil, fmt.Errorf("failed to open %s database: %w", source, err)
		}
		r.dbs[source] = conn
	}
	return r, nil
}

// openDB opens one SQLite file with the pragmas every local database
// uses: WAL for concurrent reads, a busy timeout, foreign keys on.
func openDB(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	return conn, nil
}

// DB returns the underlying connection for a source. Useful for tests
// that need to seed rows.
func (r *SQLiteReader) DB(source catalog.Source) *sql.DB {
	return r.dbs[source]
}

// Close closes all three database connections.
func (r *SQLiteReader) Close() error {
	var firstErr error
	for source, conn := range r.dbs {
		if conn == nil {
			continue
		}
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close %s database: %w", source, err)
		}
		r.dbs[source] = nil
	}
	return firstErr
}

// ReadRows implements sync.RowReader.
//
// The table name is checked against the replication catalog before it is
// interpolated into SQL, so an arbitrary string can never reach the
// query text.
//
// A catalog table the analysis engine has not created locally yet is an
// empty row set, not an error, mirroring MaxCursor: a schema-lagging
// database must not fail every push until all tables exist.
func (r *SQLiteReader) ReadRows(ctx context.Context, localTable string, source catalog.Source, sinceCursor int64) ([]schema.Row, error) {
	def, ok := catalog.Lookup(localTable)
	if !ok {
		return nil, fmt.Errorf("table %q is not in the replication catalog", localTable)
	}
	if def.Source != source {
		return nil, fmt.Errorf("table %q belongs to source %q, not %q", localTable, def.Source, source)
	}
	conn := r.dbs[source]
	if conn == nil {
		return nil, fmt.Errorf("source database %q is not open", source)
	}

	present, err := tableNames(ctx, conn)
	if err != nil {
		return nil, err
	}
	if !present[localTable] {
		return nil, nil
	}

	query := fmt.Sprintf("SELECT * FROM %s WHERE id > ? ORDER BY id ASC", localTable)
	rows, err := conn.QueryContext(ctx, query, sinceCursor)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", localTable, err)
	}
	defer rows.Close()

	return scanRows(rows)
}

// MaxCursor implements sync.RowReader: the highest row id across the
// source's catalog tables. Catalog tables not yet present in the local
// schema contribute nothing rather than failing the whole query.
func (r *SQLiteReader) MaxCursor(ctx context.Context, source catalog.Source) (int64, error) {
	conn := r.dbs[source]
	if conn == nil {
		return 0, fmt.Errorf("source database %q is not open", source)
	}

	present, err := tableNames(ctx, conn)
	if err != nil {
		return 0, err
	}

	var max int64
	for _, def := range catalog.TablesForSource(source) {
		if !present[def.LocalTable] {
			continue
		}
		var id sql.NullInt64
		query := fmt.Sprintf("SELECT MAX(id) FROM %s", def.LocalTable)
		if err := conn.QueryRowContext(ctx, query).Scan(&id); err != nil {
			return 0, fmt.Errorf("failed to read max id of %s: %w", def.LocalTable, err)
		}
		if id.Valid && id.Int64 > max {
			max = id.Int64
		}
	}
	return max, nil
}

// tableNames lists the tables present in one database.
func tableNames(ctx context.Context, conn *sql.DB) (map[string]bool, error) {
	rows, err := conn.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table'")
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	names := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		names[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating table names: %w", err)
	}
	return names, nil
}

// scanRows converts a generic result set into schema.Row values.
func scanRows(rows *sql.Rows) ([]schema.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var out []schema.Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(schema.Row, len(cols))
		for i, col := range cols {
			row[col] = normalizeValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

// normalizeValue maps driver values onto the closed row value union.
// Byte slices are copied because the driver may reuse its buffer.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case []byte:
		b := make([]byte, len(val))
		copy(b, val)
		return b
	case int64, float64, string, bool, nil:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}
