// Package mysql implements storage.Store for MySQL/MariaDB, the primary
// backend of the tool.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"csvsync/internal/schema"
	"csvsync/internal/storage"
)

// MySQL server error number for "table doesn't exist". Duplicate-key
// violations (1062) never surface here because inserts use INSERT IGNORE.
const errNoSuchTable = 1146

type Store struct {
	db *sql.DB
}

func init() {
	storage.Register("mysql", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Store, error) {
	db, err := sql.Open("mysql", cfg.DSN)
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
	const q = `SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_name = ?`

	var n int
	if err := s.db.QueryRowContext(ctx, q, table).Scan(&n); err != nil {
		return false, fmt.Errorf("mysql: check table %s: %w", table, err)
	}
	return n > 0, nil
}

func (s *Store) EnsureTable(ctx context.Context, spec schema.TableSpec) error {
	ddl, err := buildCreateTableSQL(spec)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("mysql: create table %s: %w", spec.Name, err)
	}
	return nil
}

func (s *Store) Fingerprints(ctx context.Context, table string) (map[string]struct{}, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s`, sqlIdent(schema.FingerprintColumn), sqlIdent(table))

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		if isMySQLErr(err, errNoSuchTable) {
			return map[string]struct{}{}, nil
		}
		return nil, fmt.Errorf("mysql: load fingerprints from %s: %w", table, err)
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

// InsertIgnoringDuplicates performs a multi-row INSERT IGNORE. MySQL skips
// rows violating the unique fingerprint constraint and reports only the
// rows actually written in RowsAffected.
func (s *Store) InsertIgnoringDuplicates(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	q, args := buildInsertSQL(table, columns, rows)
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("mysql: insert into %s: %w", table, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// buildInsertSQL constructs one INSERT IGNORE statement and its args. It is
// pure so tests can verify placeholder layout without a database.
func buildInsertSQL(table string, columns []string, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT IGNORE INTO ")
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
	parts = append(parts, fmt.Sprintf("%s BIGINT AUTO_INCREMENT PRIMARY KEY", sqlIdent(schema.IDColumn)))

	for _, c := range spec.Columns {
		t, err := columnType(c)
		if err != nil {
			return "", fmt.Errorf("mysql: table %s column %s: %w", spec.Name, c.Name, err)
		}
		parts = append(parts, fmt.Sprintf("%s %s", sqlIdent(c.Name), t))
	}

	parts = append(parts,
		fmt.Sprintf("%s CHAR(%d) NOT NULL", sqlIdent(schema.FingerprintColumn), schema.FingerprintLength),
		fmt.Sprintf("%s TIMESTAMP DEFAULT CURRENT_TIMESTAMP", sqlIdent(schema.ImportedAtColumn)),
		fmt.Sprintf("UNIQUE KEY %s (%s)", sqlIdent("uniq_"+schema.FingerprintColumn), sqlIdent(schema.FingerprintColumn)),
	)

	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  %s\n) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci",
		sqlIdent(spec.Name),
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
		return "TINYINT(1)", nil
	case schema.TypeDate:
		return "DATE", nil
	case schema.TypeDateTime:
		return "DATETIME", nil
	case schema.TypeText:
		return fmt.Sprintf("VARCHAR(%d)", c.Length), nil
	default:
		return "", fmt.Errorf("unsupported column type %d", c.Type)
	}
}

func sqlIdent(id string) string {
	return "`" + strings.ReplaceAll(id, "`", "``") + "`"
}

func isMySQLErr(err error, number uint16) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == number
}
