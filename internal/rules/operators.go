package rules

import (
	"strings"
)

/*
 * Operator comparison logic.
 *
 * Implements the six relational operators over the values produced by the
 * schema accessors (string, int64, bool) and literal targets (string,
 * float64, bool). Numeric comparison converts both sides to float64 so
 * int64 accessor values compare correctly against number literals.
 *
 * Why function-based: a switch over six operators is cleaner than six
 * interface implementations with minimal behavior variation; compile-time
 * validation guarantees operand types, so no policy handling is needed here.
 */

// Compare applies the operator to compare value against target.
// Operand type compatibility is validated at rule compile time.
func Compare(op CmpOp, value, target any) bool {
	switch op {
	case CmpEq:
		return compareEqual(value, target)
	case CmpNeq:
		return !compareEqual(value, target)
	case CmpLt:
		return compareOrder(value, target) < 0
	case CmpLte:
		return compareOrder(value, target) <= 0
	case CmpGt:
		return compareOrder(value, target) > 0
	case CmpGte:
		return compareOrder(value, target) >= 0
	default:
		return false
	}
}

// compareEqual performs equality comparison with numeric type coercion.
func compareEqual(a, b any) bool {
	if na, nb, ok := asNumbers(a, b); ok {
		return na == nb
	}
	return a == b
}

// compareOrder performs three-way comparison (-1/0/1). Numbers compare
// numerically, strings lexically. Returns 0 for incomparable types.
func compareOrder(a, b any) int {
	if na, nb, ok := asNumbers(a, b); ok {
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		default:
			return 0
		}
	}
	sa, oka := a.(string)
	sb, okb := b.(string)
	if oka && okb {
		return strings.Compare(sa, sb)
	}
	return 0
}

// asNumbers attempts to convert both values to float64 for numeric comparison.
// Returns converted values and success flag.
func asNumbers(a, b any) (float64, float64, bool) {
	na, oka := toFloat64(a)
	nb, okb := toFloat64(b)
	return na, nb, oka && okb
}

// toFloat64 converts value to float64 if it's a numeric type.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
