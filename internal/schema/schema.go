// Package schema implements column type inference and table definition
// building for CSV imports.
//
// The schema package is responsible for:
//   - Inferring a storage type per column from a bounded sample of values
//   - Sanitizing raw CSV headers into safe column identifiers
//   - Producing a TableSpec that storage backends materialize as DDL
//
// Design constraints:
//   - Inference is a heuristic over the first N rows only. A column whose
//     later rows deviate from the sample may be mis-typed; that is an
//     accepted limitation, not something this package tries to repair.
//   - All functions here are pure; materialization lives in internal/storage.
package schema

import "fmt"

// ColumnType is the inferred storage type of a CSV column.
type ColumnType int

const (
	TypeText ColumnType = iota
	TypeInteger
	TypeDecimal
	TypeBoolean
	TypeDate
	TypeDateTime
)

// String returns the lowercase label used in logs and tests.
func (t ColumnType) String() string {
	switch t {
	case TypeInteger:
		return "integer"
	case TypeDecimal:
		return "decimal"
	case TypeBoolean:
		return "boolean"
	case TypeDate:
		return "date"
	case TypeDateTime:
		return "datetime"
	default:
		return "text"
	}
}

// Names of the system columns every synced table carries. They are appended
// after the data columns when a backend renders DDL and are never part of
// the fingerprint.
const (
	IDColumn          = "id"
	FingerprintColumn = "row_hash"
	ImportedAtColumn  = "imported_at"
)

// FingerprintLength is the hex length of the row fingerprint column.
const FingerprintLength = 64

// Limits bounds type inference output. Zero values fall back to the
// defaults from DefaultLimits.
type Limits struct {
	// TextMin and TextMax clamp the inferred VARCHAR length.
	TextMin int
	TextMax int

	// DecimalPrecision and DecimalScale are used for every Decimal column.
	DecimalPrecision int
	DecimalScale     int
}

// DefaultLimits mirrors the historical defaults: VARCHAR between 50 and 500
// characters, DECIMAL(10,2).
func DefaultLimits() Limits {
	return Limits{
		TextMin:          50,
		TextMax:          500,
		DecimalPrecision: 10,
		DecimalScale:     2,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.TextMin <= 0 {
		l.TextMin = d.TextMin
	}
	if l.TextMax < l.TextMin {
		l.TextMax = d.TextMax
		if l.TextMax < l.TextMin {
			l.TextMax = l.TextMin
		}
	}
	if l.DecimalPrecision <= 0 {
		l.DecimalPrecision = d.DecimalPrecision
	}
	if l.DecimalScale < 0 {
		l.DecimalScale = d.DecimalScale
	}
	return l
}

// ColumnSpec describes one data column of a synced table.
type ColumnSpec struct {
	// Name is the sanitized identifier, unique within the table.
	Name string

	Type ColumnType

	// Length is the VARCHAR bound for Text columns; zero otherwise.
	Length int

	// Precision and Scale apply to Decimal columns only.
	Precision int
	Scale     int
}

// TableSpec is the ordered definition of a synced table's data columns.
//
// The three system columns (surrogate id, unique fingerprint, insertion
// timestamp) are fixed and rendered by each storage backend; they do not
// appear in Columns. A TableSpec is created once, at first sync of a table,
// and never altered afterward by this tool.
type TableSpec struct {
	Name    string
	Columns []ColumnSpec
}

// ColumnNames returns the data column names in order.
func (s TableSpec) ColumnNames() []string {
	out := make([]string, 0, len(s.Columns))
	for _, c := range s.Columns {
		out = append(out, c.Name)
	}
	return out
}

// Validate reports structural problems that would produce broken DDL.
func (s TableSpec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("schema: table name is empty")
	}
	if len(s.Columns) == 0 {
		return fmt.Errorf("schema: table %s has no columns", s.Name)
	}
	seen := make(map[string]struct{}, len(s.Columns)+3)
	seen[IDColumn] = struct{}{}
	seen[FingerprintColumn] = struct{}{}
	seen[ImportedAtColumn] = struct{}{}
	for _, c := range s.Columns {
		if c.Name == "" {
			return fmt.Errorf("schema: table %s has an unnamed column", s.Name)
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("schema: table %s has duplicate column %q", s.Name, c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	return nil
}
