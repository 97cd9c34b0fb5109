package schema

import "testing"

func TestSanitizeName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in, want string
	}{
		{"Order ID", "Order_ID"},
		{"unit-price", "unit_price"},
		{"amount (€)", "amount_"},
		{"  name  ", "name"},
		{"déjà_vu", "dj_vu"},
		{"$$$", ""},
	}
	for _, tc := range cases {
		if got := SanitizeName(tc.in); got != tc.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestBuild_ScenarioTypes(t *testing.T) {
	t.Parallel()

	headers := []string{"id", "name", "amount"}
	sample := [][]string{
		{"1", "Alice", "10.50"},
		{"2", "Bob", "20.00"},
	}

	spec, err := Build("orders", headers, sample, DefaultLimits())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(spec.Columns) != 3 {
		t.Fatalf("columns = %d, want 3", len(spec.Columns))
	}

	// "id" collides with the surrogate key column and gets suffixed.
	if spec.Columns[0].Name != "id_2" || spec.Columns[0].Type != TypeInteger {
		t.Fatalf("col 0 = %+v, want id_2 integer", spec.Columns[0])
	}
	if spec.Columns[1].Type != TypeText || spec.Columns[1].Length < 50 {
		t.Fatalf("col 1 = %+v, want text length >= 50", spec.Columns[1])
	}
	if spec.Columns[2].Type != TypeDecimal {
		t.Fatalf("col 2 = %+v, want decimal", spec.Columns[2])
	}
}

func TestBuild_CollisionSuffixing(t *testing.T) {
	t.Parallel()

	headers := []string{"A B", "A-B", "A_B", ""}
	spec, err := Build("t", headers, nil, Limits{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := []string{"A_B", "A_B_2", "A_B_3", "col_4"}
	for i, w := range want {
		if spec.Columns[i].Name != w {
			t.Fatalf("column %d = %q, want %q", i, spec.Columns[i].Name, w)
		}
	}
	if err := spec.Validate(); err != nil {
		t.Fatalf("Validate after suffixing: %v", err)
	}
}

func TestBuild_ShortSampleRowsPadEmpty(t *testing.T) {
	t.Parallel()

	headers := []string{"a", "b", "c"}
	sample := [][]string{
		{"1"},            // b and c missing
		{"2", "x"},       // c missing
		{"3", "y", "9.5"}, // full row
	}

	spec, err := Build("t", headers, sample, Limits{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if spec.Columns[0].Type != TypeInteger {
		t.Fatalf("col a = %s, want integer", spec.Columns[0].Type)
	}
	// Missing values are empty, so the single "x"/"y" values decide.
	if spec.Columns[1].Type != TypeText {
		t.Fatalf("col b = %s, want text", spec.Columns[1].Type)
	}
	if spec.Columns[2].Type != TypeDecimal {
		t.Fatalf("col c = %s, want decimal", spec.Columns[2].Type)
	}
}

func TestBuild_EmptyHeaderFails(t *testing.T) {
	t.Parallel()

	if _, err := Build("t", nil, nil, Limits{}); err == nil {
		t.Fatal("expected error for empty header row")
	}
	if _, err := Build("  ", []string{"a"}, nil, Limits{}); err == nil {
		t.Fatal("expected error for blank table name")
	}
}
