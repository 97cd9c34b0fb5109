package fingerprint

import "testing"

func TestSum_Deterministic(t *testing.T) {
	t.Parallel()

	row := []string{"1", "Alice", "10.50"}
	a := Sum(row)
	b := Sum(row)
	if a != b {
		t.Fatalf("same row hashed differently: %s vs %s", a, b)
	}
	if len(a) != Size {
		t.Fatalf("fingerprint length = %d, want %d", len(a), Size)
	}
}

func TestSum_DiffersOnAnyValueChange(t *testing.T) {
	t.Parallel()

	base := Sum([]string{"1", "Alice", "10.50"})

	variants := [][]string{
		{"2", "Alice", "10.50"},
		{"1", "alice", "10.50"},
		{"1", "Alice", "10.51"},
		{"1", "Alice", "10.50", ""},
		{"1", "Alice"},
	}
	for _, v := range variants {
		if got := Sum(v); got == base {
			t.Fatalf("variant %v collided with base row", v)
		}
	}
}

func TestSum_PositionalOnly(t *testing.T) {
	t.Parallel()

	// Reordering values changes the fingerprint even when the multiset of
	// values is identical.
	if Sum([]string{"a", "b"}) == Sum([]string{"b", "a"}) {
		t.Fatal("fingerprint must depend on value order")
	}
}

func TestSum_EmptyRow(t *testing.T) {
	t.Parallel()

	if got := Sum(nil); len(got) != Size {
		t.Fatalf("empty row fingerprint length = %d, want %d", len(got), Size)
	}
	if Sum(nil) != Sum([]string{}) {
		t.Fatal("nil and empty rows should fingerprint identically")
	}
}
