// Package storage defines the backend-agnostic store interface used by the
// sync engine, plus the factory registry that backend packages register
// themselves with from init().
package storage

import (
	"context"
	"fmt"
	"sync"

	"csvsync/internal/schema"
)

// Config is the minimal configuration needed to open a store.
type Config struct {
	// Kind selects a registered backend ("mysql", "postgres", "sqlite",
	// "mssql").
	Kind string

	// DSN is passed through to the backend factory; its format is
	// backend-specific.
	DSN string
}

// Store is the relational collaborator of the sync engine.
//
// The interface is intentionally minimal: create-if-absent schema
// materialization, fingerprint retrieval, and duplicate-tolerant batch
// insert. Each backend implements the semantics in its own dialect (MySQL
// INSERT IGNORE, Postgres ON CONFLICT DO NOTHING, SQLite OR IGNORE; MSSQL
// emulates with a per-row existence check inside a transaction).
type Store interface {
	// Close releases the underlying connections. Call once at shutdown.
	Close()

	// TableExists reports whether the target table is present.
	TableExists(ctx context.Context, table string) (bool, error)

	// EnsureTable materializes the spec with create-if-absent semantics.
	// Calling it for an existing table is a no-op, never an error.
	EnsureTable(ctx context.Context, spec schema.TableSpec) error

	// Fingerprints returns the complete set of row fingerprints currently
	// stored for the table. A table that does not exist yet yields an empty
	// set, not an error.
	Fingerprints(ctx context.Context, table string) (map[string]struct{}, error)

	// InsertIgnoringDuplicates writes rows (values aligned with columns,
	// which include the fingerprint column) and returns the number actually
	// inserted. A duplicate-key violation on the fingerprint column is
	// silently ignored and not counted; any other failure is returned.
	InsertIgnoringDuplicates(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)
}

type factory func(ctx context.Context, cfg Config) (Store, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend under a kind. It is meant to be called from
// an init() function in the backend package; registering the same kind
// twice panics to fail fast on ambiguous wiring.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// New opens a store using the registered factory for cfg.Kind.
func New(ctx context.Context, cfg Config) (Store, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing backend kind")
	}

	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unsupported backend kind %q", cfg.Kind)
	}
	return f(ctx, cfg)
}

// Kinds returns the registered backend kinds, for error messages and CLI
// help.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	return out
}
