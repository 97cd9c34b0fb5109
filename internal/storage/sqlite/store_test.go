package sqlite

import (
	"context"
	"testing"

	"csvsync/internal/schema"
	"csvsync/internal/storage"
)

func newTestStore(t *testing.T) storage.Store {
	t.Helper()
	s, err := New(context.Background(), storage.Config{Kind: "sqlite", DSN: ":memory:"})
	if err != nil {
		t.Fatalf("open in-memory sqlite: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func testSpec() schema.TableSpec {
	return schema.TableSpec{
		Name: "imported_data",
		Columns: []schema.ColumnSpec{
			{Name: "order_id", Type: schema.TypeInteger},
			{Name: "customer", Type: schema.TypeText, Length: 50},
			{Name: "amount", Type: schema.TypeDecimal, Precision: 10, Scale: 2},
		},
	}
}

func TestEnsureTable_Idempotent(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	if err := s.EnsureTable(ctx, testSpec()); err != nil {
		t.Fatalf("first EnsureTable: %v", err)
	}
	if err := s.EnsureTable(ctx, testSpec()); err != nil {
		t.Fatalf("second EnsureTable should be a no-op: %v", err)
	}

	ok, err := s.TableExists(ctx, "imported_data")
	if err != nil {
		t.Fatalf("TableExists: %v", err)
	}
	if !ok {
		t.Fatal("table should exist after EnsureTable")
	}
}

func TestFingerprints_MissingTableIsEmptySet(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	got, err := s.Fingerprints(context.Background(), "never_created")
	if err != nil {
		t.Fatalf("Fingerprints on missing table: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty set, got %d entries", len(got))
	}
}

func TestInsertIgnoringDuplicates(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	if err := s.EnsureTable(ctx, testSpec()); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}

	cols := []string{"order_id", "customer", "amount", schema.FingerprintColumn}
	rows := [][]any{
		{"1", "Alice", "10.50", "hash-1"},
		{"2", "Bob", "20.00", "hash-2"},
	}

	n, err := s.InsertIgnoringDuplicates(ctx, "imported_data", cols, rows)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if n != 2 {
		t.Fatalf("inserted = %d, want 2", n)
	}

	// Re-inserting the same fingerprints is silently ignored.
	n, err = s.InsertIgnoringDuplicates(ctx, "imported_data", cols, rows)
	if err != nil {
		t.Fatalf("duplicate insert: %v", err)
	}
	if n != 0 {
		t.Fatalf("duplicate insert affected %d rows, want 0", n)
	}

	// A mixed batch only counts the genuinely new row.
	mixed := [][]any{
		{"2", "Bob", "20.00", "hash-2"},
		{"3", "Carol", "30.25", "hash-3"},
	}
	n, err = s.InsertIgnoringDuplicates(ctx, "imported_data", cols, mixed)
	if err != nil {
		t.Fatalf("mixed insert: %v", err)
	}
	if n != 1 {
		t.Fatalf("mixed insert affected %d rows, want 1", n)
	}

	fps, err := s.Fingerprints(ctx, "imported_data")
	if err != nil {
		t.Fatalf("Fingerprints: %v", err)
	}
	if len(fps) != 3 {
		t.Fatalf("fingerprint count = %d, want 3", len(fps))
	}
	if _, ok := fps["hash-3"]; !ok {
		t.Fatal("hash-3 missing from fingerprint set")
	}
}

func TestInsertNullValues(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	if err := s.EnsureTable(ctx, testSpec()); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}

	cols := []string{"order_id", "customer", "amount", schema.FingerprintColumn}
	n, err := s.InsertIgnoringDuplicates(ctx, "imported_data", cols, [][]any{
		{"1", nil, nil, "hash-null"},
	})
	if err != nil {
		t.Fatalf("insert with NULLs: %v", err)
	}
	if n != 1 {
		t.Fatalf("inserted = %d, want 1", n)
	}
}
