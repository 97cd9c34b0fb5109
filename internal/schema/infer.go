package schema

import (
	"strconv"
	"strings"
	"time"
)

// Date layouts are tried before datetime layouts, and a column only counts
// as Date/DateTime when a single layout parses every non-empty value.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
}

var dateTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// InferType decides the storage type for one column from its sampled values.
//
// Precedence over the non-empty subset of values:
//  1. every value parses as a base-10 integer  -> Integer
//  2. every value parses as a float            -> Decimal
//  3. every value is a recognized boolean form -> Boolean
//  4. every value matches one date layout      -> Date
//  5. every value matches one datetime layout  -> DateTime
//  6. otherwise Text, with length clamped to [limits.TextMin, limits.TextMax]
//
// An all-empty sample yields Text at the minimum length. The returned spec
// has no Name; Build fills it in.
func InferType(values []string, limits Limits) ColumnSpec {
	limits = limits.withDefaults()

	nonEmpty := make([]string, 0, len(values))
	maxLen := 0
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		nonEmpty = append(nonEmpty, v)
		if len(v) > maxLen {
			maxLen = len(v)
		}
	}

	if len(nonEmpty) == 0 {
		return ColumnSpec{Type: TypeText, Length: limits.TextMin}
	}

	if allOf(nonEmpty, isInteger) {
		return ColumnSpec{Type: TypeInteger}
	}
	if allOf(nonEmpty, isFloat) {
		return ColumnSpec{
			Type:      TypeDecimal,
			Precision: limits.DecimalPrecision,
			Scale:     limits.DecimalScale,
		}
	}
	if allOf(nonEmpty, isBool) {
		return ColumnSpec{Type: TypeBoolean}
	}
	if layoutMatchesAll(nonEmpty, dateLayouts) {
		return ColumnSpec{Type: TypeDate}
	}
	if layoutMatchesAll(nonEmpty, dateTimeLayouts) {
		return ColumnSpec{Type: TypeDateTime}
	}

	return ColumnSpec{Type: TypeText, Length: clamp(maxLen, limits.TextMin, limits.TextMax)}
}

func allOf(values []string, ok func(string) bool) bool {
	for _, v := range values {
		if !ok(v) {
			return false
		}
	}
	return true
}

func isInteger(v string) bool {
	_, err := strconv.ParseInt(v, 10, 64)
	return err == nil
}

func isFloat(v string) bool {
	_, err := strconv.ParseFloat(v, 64)
	return err == nil
}

func isBool(v string) bool {
	switch strings.ToLower(v) {
	case "1", "0", "t", "f", "true", "false", "yes", "no", "y", "n":
		return true
	default:
		return false
	}
}

// layoutMatchesAll reports whether a single layout parses every value.
// Mixing layouts within one column disqualifies it.
func layoutMatchesAll(values []string, layouts []string) bool {
	for _, lay := range layouts {
		all := true
		for _, v := range values {
			if _, err := time.Parse(lay, v); err != nil {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
