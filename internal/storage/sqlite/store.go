// Package sqlite implements storage.Store for SQLite.
//
// Key design points vs MySQL/Postgres:
//   - SQLite column types are affinities. Dates and datetimes are stored
//     with TEXT affinity; decimals as REAL.
//   - "INSERT OR IGNORE" relies on the UNIQUE fingerprint constraint the
//     DDL always creates.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"csvsync/internal/schema"
	"csvsync/internal/storage"
)

type Store struct {
	db *sql.DB
}

func init() {
	storage.Register("sqlite", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Store, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() { _ = s.db.Close() }

func (s *Store) TableExists(ctx context.Context, table string) (bool, error) {
	const q = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`

	var n int
	if err := s.db.QueryRowContext(ctx, q, table).Scan(&n); err != nil {
		return false, fmt.Errorf("sqlite: check table %s: %w", table, err)
	}
	return n > 0, nil
}

func (s *Store) EnsureTable(ctx context.Context, spec schema.TableSpec) error {
	ddl, err := buildCreateTableSQL(spec)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("sqlite: create table %s: %w", spec.Name, err)
	}
	return nil
}

func (s *Store) Fingerprints(ctx context.Context, table string) (map[string]struct{}, error) {
	// Checking existence first avoids string-matching a "no such table"
	// error from the driver.
	exists, err := s.TableExists(ctx, table)
	if err != nil {
		return nil, err
	}
	if !exists {
		return map[string]struct{}{}, nil
	}

	q := fmt.Sprintf(`SELECT %s FROM %s`, sqlIdent(schema.FingerprintColumn), sqlIdent(table))
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("sqlite: load fingerprints from %s: %w", table, err)
	}
	defer rows.Close()

	out := map[string]struct{}{}
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		out[h] = struct{}{}
	}
	return out, rows.Err()
}

func (s *Store) InsertIgnoringDuplicates(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	q, args := buildInsertSQL(table, columns, rows)
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("sqlite: insert into %s: %w", table, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func buildInsertSQL(table string, columns []string, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT OR IGNORE INTO ")
	b.WriteString(sqlIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(sqlIdent(c))
	}
	b.WriteString(") VALUES ")

	placeholders := "(" + strings.TrimRight(strings.Repeat("?,", len(columns)), ",") + ")"
	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(placeholders)
		args = append(args, row...)
	}
	return b.String(), args
}

func buildCreateTableSQL(spec schema.TableSpec) (string, error) {
	if err := spec.Validate(); err != nil {
		return "", err
	}

	parts := make([]string, 0, len(spec.Columns)+4)
	parts = append(parts, fmt.Sprintf("%s INTEGER PRIMARY KEY AUTOINCREMENT", sqlIdent(schema.IDColumn)))

	for _, c := range spec.Columns {
		parts = append(parts, fmt.Sprintf("%s %s", sqlIdent(c.Name), columnType(c)))
	}

	parts = append(parts,
		fmt.Sprintf("%s TEXT NOT NULL UNIQUE", sqlIdent(schema.FingerprintColumn)),
		fmt.Sprintf("%s TEXT DEFAULT (datetime('now'))", sqlIdent(schema.ImportedAtColumn)),
	)

	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  %s\n)",
		sqlIdent(spec.Name),
		strings.Join(parts, ",\n  "),
	), nil
}

func columnType(c schema.ColumnSpec) string {
	switch c.Type {
	case schema.TypeInteger, schema.TypeBoolean:
		return "INTEGER"
	case schema.TypeDecimal:
		return "REAL"
	default:
		// Text, dates and datetimes all take TEXT affinity.
		return "TEXT"
	}
}

func sqlIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
