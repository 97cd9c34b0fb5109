package schema

import (
	"fmt"
	"strings"
)

// SanitizeName converts a raw CSV header into a safe column identifier:
// whitespace and hyphens become underscores, everything outside
// [A-Za-z0-9_] is dropped. The result may be empty; Build substitutes a
// positional fallback name in that case.
func SanitizeName(raw string) string {
	raw = strings.TrimSpace(raw)

	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r == ' ' || r == '\t' || r == '-':
			b.WriteByte('_')
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// sanitizeHeaders sanitizes every header and disambiguates collisions.
//
// Distinct headers can collapse to the same identifier ("A B" and "A-B" both
// become "A_B"); later occurrences get a numeric suffix (_2, _3, ...) instead
// of silently shadowing the earlier column. Names colliding with a system
// column are suffixed the same way.
func sanitizeHeaders(headers []string) []string {
	out := make([]string, 0, len(headers))
	taken := map[string]struct{}{
		IDColumn:          {},
		FingerprintColumn: {},
		ImportedAtColumn:  {},
	}

	for i, h := range headers {
		name := SanitizeName(h)
		if name == "" {
			name = fmt.Sprintf("col_%d", i+1)
		}
		if _, exists := taken[name]; exists {
			for n := 2; ; n++ {
				cand := fmt.Sprintf("%s_%d", name, n)
				if _, exists := taken[cand]; !exists {
					name = cand
					break
				}
			}
		}
		taken[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// Build produces the table definition for a header row and its sample rows.
//
// For each column index it collects the column's values across the sample
// (missing trailing fields count as empty) and runs type inference. Sample
// rows longer than the header are ignored beyond the header length.
func Build(table string, headers []string, sample [][]string, limits Limits) (TableSpec, error) {
	if strings.TrimSpace(table) == "" {
		return TableSpec{}, fmt.Errorf("schema: table name is empty")
	}
	if len(headers) == 0 {
		return TableSpec{}, fmt.Errorf("schema: header row is empty")
	}

	names := sanitizeHeaders(headers)
	cols := make([]ColumnSpec, 0, len(headers))

	for i := range headers {
		values := make([]string, 0, len(sample))
		for _, row := range sample {
			if i < len(row) {
				values = append(values, row[i])
			} else {
				values = append(values, "")
			}
		}
		spec := InferType(values, limits)
		spec.Name = names[i]
		cols = append(cols, spec)
	}

	spec := TableSpec{Name: table, Columns: cols}
	if err := spec.Validate(); err != nil {
		return TableSpec{}, err
	}
	return spec, nil
}
