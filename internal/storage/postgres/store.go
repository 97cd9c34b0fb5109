// Package postgres implements storage.Store for PostgreSQL using pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"csvsync/internal/schema"
	"csvsync/internal/storage"
)

// SQLSTATE class 42P01 is undefined_table.
const pgUndefinedTable = "42P01"

type Store struct {
	pool *pgxpool.Pool
}

func init() {
	storage.Register("postgres", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Store, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() { s.pool.Close() }

func (s *Store) TableExists(ctx context.Context, table string) (bool, error) {
	const q = `SELECT to_regclass($1) IS NOT NULL`

	var ok bool
	if err := s.pool.QueryRow(ctx, q, table).Scan(&ok); err != nil {
		return false, fmt.Errorf("postgres: check table %s: %w", table, err)
	}
	return ok, nil
}

func (s *Store) EnsureTable(ctx context.Context, spec schema.TableSpec) error {
	ddl, err := buildCreateTableSQL(spec)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("postgres: create table %s: %w", spec.Name, err)
	}
	return nil
}

func (s *Store) Fingerprints(ctx context.Context, table string) (map[string]struct{}, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s`, pgIdent(schema.FingerprintColumn), pgIdent(table))

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		if isPgErr(err, pgUndefinedTable) {
			return map[string]struct{}{}, nil
		}
		return nil, fmt.Errorf("postgres: load fingerprints from %s: %w", table, err)
	}
	defer rows.Close()

	out := map[string]struct{}{}
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		// CHAR(64) pads on shorter values; fingerprints are always 64 hex
		// chars, but trim defensively matters less than consistency with
		// what the engine computes.
		out[strings.TrimRight(h, " ")] = struct{}{}
	}
	return out, rows.Err()
}

func (s *Store) InsertIgnoringDuplicates(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	q, args := buildInsertSQL(table, columns, rows)
	cmd, err := s.pool.Exec(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("postgres: insert into %s: %w", table, err)
	}
	return cmd.RowsAffected(), nil
}

// buildInsertSQL constructs a single INSERT ... ON CONFLICT (row_hash) DO
// NOTHING statement with numbered placeholders. Pure, so placeholder
// numbering is unit-testable without a database.
func buildInsertSQL(table string, columns []string, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(pgIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(pgIdent(c))
	}
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	n := 1
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", n)
			n++
			args = append(args, row[j])
		}
		b.WriteString(")")
	}

	b.WriteString(" ON CONFLICT (")
	b.WriteString(pgIdent(schema.FingerprintColumn))
	b.WriteString(") DO NOTHING")

	return b.String(), args
}

func buildCreateTableSQL(spec schema.TableSpec) (string, error) {
	if err := spec.Validate(); err != nil {
		return "", err
	}

	parts := make([]string, 0, len(spec.Columns)+3)
	parts = append(parts, fmt.Sprintf("%s BIGSERIAL PRIMARY KEY", pgIdent(schema.IDColumn)))

	for _, c := range spec.Columns {
		t, err := columnType(c)
		if err != nil {
			return "", fmt.Errorf("postgres: table %s column %s: %w", spec.Name, c.Name, err)
		}
		parts = append(parts, fmt.Sprintf("%s %s", pgIdent(c.Name), t))
	}

	parts = append(parts,
		fmt.Sprintf("%s CHAR(%d) NOT NULL UNIQUE", pgIdent(schema.FingerprintColumn), schema.FingerprintLength),
		fmt.Sprintf("%s TIMESTAMPTZ NOT NULL DEFAULT now()", pgIdent(schema.ImportedAtColumn)),
	)

	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  %s\n)",
		pgIdent(spec.Name),
		strings.Join(parts, ",\n  "),
	), nil
}

func columnType(c schema.ColumnSpec) (string, error) {
	switch c.Type {
	case schema.TypeInteger:
		return "BIGINT", nil
	case schema.TypeDecimal:
		return fmt.Sprintf("NUMERIC(%d,%d)", c.Precision, c.Scale), nil
	case schema.TypeBoolean:
		return "BOOLEAN", nil
	case schema.TypeDate:
		return "DATE", nil
	case schema.TypeDateTime:
		return "TIMESTAMP", nil
	case schema.TypeText:
		return fmt.Sprintf("VARCHAR(%d)", c.Length), nil
	default:
		return "", fmt.Errorf("unsupported column type %d", c.Type)
	}
}

func pgIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func isPgErr(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
