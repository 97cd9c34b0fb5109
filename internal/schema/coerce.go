package schema

import (
	"strconv"
	"strings"
	"time"
)

// Coerce converts a raw field value into the native Go value matching the
// column's inferred type, for use as a bind parameter.
//
// Empty values become nil (NULL). A value that no longer parses as the
// inferred type — the sample missed a deviating row further down the file —
// is passed through as the raw string and left for the store to accept or
// reject; rejection surfaces as a per-row insert failure, not a crash.
func (c ColumnSpec) Coerce(v string) any {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}

	switch c.Type {
	case TypeInteger:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	case TypeDecimal:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	case TypeBoolean:
		switch strings.ToLower(v) {
		case "1", "t", "true", "yes", "y":
			return true
		case "0", "f", "false", "no", "n":
			return false
		}
	case TypeDate:
		for _, lay := range dateLayouts {
			if t, err := time.Parse(lay, v); err == nil {
				return t
			}
		}
	case TypeDateTime:
		for _, lay := range dateTimeLayouts {
			if t, err := time.Parse(lay, v); err == nil {
				return t
			}
		}
	}

	return v
}
