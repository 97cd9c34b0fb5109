// Package mssql implements storage.Store for SQL Server.
//
// SQL Server has no INSERT IGNORE equivalent, so duplicate suppression is
// emulated: each row is inserted inside a transaction guarded by an
// IF NOT EXISTS check on the fingerprint column.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"csvsync/internal/schema"
	"csvsync/internal/storage"
)

type Store struct {
	db *sql.DB
}

func init() {
	storage.Register("mssql", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Store, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
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
	const q = `SELECT COUNT(*) FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_NAME = @p1`

	var n int
	if err := s.db.QueryRowContext(ctx, q, table).Scan(&n); err != nil {
		return false, fmt.Errorf("mssql: check table %s: %w", table, err)
	}
	return n > 0, nil
}

func (s *Store) EnsureTable(ctx context.Context, spec schema.TableSpec) error {
	ddl, err := buildCreateTableSQL(spec)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("mssql: create table %s: %w", spec.Name, err)
	}
	return nil
}

func (s *Store) Fingerprints(ctx context.Context, table string) (map[string]struct{}, error) {
	exists, err := s.TableExists(ctx, table)
	if err != nil {
		return nil, err
	}
	if !exists {
		return map[string]struct{}{}, nil
	}

	q := fmt.Sprintf(`SELECT %s FROM %s`, msIdent(schema.FingerprintColumn), msIdent(table))
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("mssql: load fingerprints from %s: %w", table, err)
	}
	defer rows.Close()

	out := map[string]struct{}{}
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		out[strings.TrimRight(h, " ")] = struct{}{}
	}
	return out, rows.Err()
}

func (s *Store) InsertIgnoringDuplicates(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("mssql: begin insert tx: %w", err)
	}
	defer tx.Rollback()

	q := buildInsertSQL(table, columns)
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("mssql: prepare insert for %s: %w", table, err)
	}
	defer stmt.Close()

	var inserted int64
	for _, row := range rows {
		res, err := stmt.ExecContext(ctx, row...)
		if err != nil {
			return inserted, fmt.Errorf("mssql: insert into %s: %w", table, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += n
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("mssql: commit insert tx: %w", err)
	}
	return inserted, nil
}

// buildInsertSQL returns a single-row statement that skips the insert when
// the fingerprint already exists. The fingerprint must be the last column
// so its parameter index is known.
func buildInsertSQL(table string, columns []string) string {
	hashParam := fmt.Sprintf("@p%d", len(columns))

	cols := make([]string, len(columns))
	params := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = msIdent(c)
		params[i] = fmt.Sprintf("@p%d", i+1)
	}

	return fmt.Sprintf(
		"IF NOT EXISTS (SELECT 1 FROM %s WHERE %s = %s) INSERT INTO %s (%s) VALUES (%s)",
		msIdent(table), msIdent(schema.FingerprintColumn), hashParam,
		msIdent(table), strings.Join(cols, ", "), strings.Join(params, ", "),
	)
}

func buildCreateTableSQL(spec schema.TableSpec) (string, error) {
	if err := spec.Validate(); err != nil {
		return "", err
	}

	parts := make([]string, 0, len(spec.Columns)+3)
	parts = append(parts, fmt.Sprintf("%s BIGINT IDENTITY(1,1) PRIMARY KEY", msIdent(schema.IDColumn)))

	for _, c := range spec.Columns {
		t, err := columnType(c)
		if err != nil {
			return "", fmt.Errorf("mssql: table %s column %s: %w", spec.Name, c.Name, err)
		}
		parts = append(parts, fmt.Sprintf("%s %s", msIdent(c.Name), t))
	}

	parts = append(parts,
		fmt.Sprintf("%s CHAR(%d) NOT NULL UNIQUE", msIdent(schema.FingerprintColumn), schema.FingerprintLength),
		fmt.Sprintf("%s DATETIME2 NOT NULL DEFAULT SYSUTCDATETIME()", msIdent(schema.ImportedAtColumn)),
	)

	return fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s (\n  %s\n)",
		spec.Name,
		msIdent(spec.Name),
		strings.Join(parts, ",\n  "),
	), nil
}

func columnType(c schema.ColumnSpec) (string, error) {
	switch c.Type {
	case schema.TypeInteger:
		return "BIGINT", nil
	case schema.TypeDecimal:
		return fmt.Sprintf("DECIMAL(%d,%d)", c.Precision, c.Scale), nil
	case schema.TypeBoolean:
		return "BIT", nil
	case schema.TypeDate:
		return "DATE", nil
	case schema.TypeDateTime:
		return "DATETIME2", nil
	case schema.TypeText:
		return fmt.Sprintf("NVARCHAR(%d)", c.Length), nil
	default:
		return "", fmt.Errorf("unsupported column type %d", c.Type)
	}
}

func msIdent(id string) string {
	return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
}
