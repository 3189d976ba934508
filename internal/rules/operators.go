// internal/rules/operators.go
package rules

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/permitwise/permitwise/internal/types"
)

/*
 * Operator comparison logic.
 *
 * Implements 8 comparison operators with type-aware comparison rules.
 * Collected input values arrive as JSON-decoded scalars (string, float64,
 * bool) or arrays; comparison handles numeric type mixing for JSON
 * compatibility.
 *
 * Operators:
 *   - eq/neq: Equality with numeric coercion across float64/int/int64
 *   - gt/lt: Numeric comparison; either operand failing numeric coercion
 *     deterministically fails the condition, never errors
 *   - in/notIn: Membership test against the declared value list
 *   - contains: Case-insensitive substring containment
 *   - matches: Pattern match (Go regexp syntax)
 *
 * An unrecognized operator is the one comparison failure that surfaces as
 * an error: it marks a misauthored rule, not a value mismatch.
 *
 * Why function-based: 8 operators via switch statement cleaner than 8
 * interface implementations with minimal behavior variation.
 */

// Compare applies the condition's operator to the actual input value.
// Returns types.ErrUnknownOperator for operators outside the enumeration;
// every other mismatch (type, coercion, pattern) is a false result.
func Compare(cond *types.Condition, actual any) (bool, error) {
	switch cond.Operator {
	case types.OpEq:
		return compareEqual(actual, cond.Value), nil
	case types.OpNeq:
		return !compareEqual(actual, cond.Value), nil
	case types.OpGt:
		return compareNumeric(actual, cond.Value, func(c int) bool { return c > 0 }), nil
	case types.OpLt:
		return compareNumeric(actual, cond.Value, func(c int) bool { return c < 0 }), nil
	case types.OpIn:
		return compareIn(actual, cond.Values), nil
	case types.OpNotIn:
		return !compareIn(actual, cond.Values), nil
	case types.OpContains:
		return compareContains(actual, cond.Value), nil
	case types.OpMatches:
		return compareMatches(actual, cond.Value), nil
	default:
		return false, fmt.Errorf("%w: %q", types.ErrUnknownOperator, cond.Operator)
	}
}

// compareEqual performs equality comparison with numeric type coercion.
// Handles float64/int/int64 mixing for JSON compatibility. Booleans and
// strings compare by exact value.
func compareEqual(a, b any) bool {
	if na, nb, ok := asNumbers(a, b); ok {
		return na == nb
	}
	return a == b
}

// compareNumeric coerces both operands to numeric and applies cmp to the
// three-way comparison. Coercion failure of either operand fails the
// condition deterministically.
func compareNumeric(a, b any, cmp func(int) bool) bool {
	na, oka := toFloat64(a)
	nb, okb := toFloat64(b)
	if !oka || !okb {
		return false
	}
	switch {
	case na < nb:
		return cmp(-1)
	case na > nb:
		return cmp(1)
	default:
		return cmp(0)
	}
}

// asNumbers attempts to convert both values to float64 for numeric
// comparison. Returns converted values and success flag.
func asNumbers(a, b any) (float64, float64, bool) {
	na, oka := toFloat64(a)
	nb, okb := toFloat64(b)
	return na, nb, oka && okb
}

// toFloat64 converts value to float64 if it is numeric or a numeric string.
// Handles float64, int, int64 from JSON unmarshaling. Booleans are rejected
// to avoid true vs 1 ambiguity; whitespace-only strings are not numbers.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// toText converts any scalar to its string representation for substring
// and pattern operators. Lenient: numbers and booleans stringify.
func toText(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case int:
		return strconv.Itoa(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	case bool:
		return strconv.FormatBool(s), true
	default:
		return "", false
	}
}

// compareIn checks membership in the declared value list using equality
// semantics. An array input matches when any of its elements is a member.
func compareIn(value any, set []any) bool {
	if arr, ok := value.([]any); ok {
		for _, elem := range arr {
			if compareIn(elem, set) {
				return true
			}
		}
		return false
	}
	for _, elem := range set {
		if compareEqual(value, elem) {
			return true
		}
	}
	return false
}

// compareContains checks case-insensitive substring containment.
// Non-stringifiable operands fail the condition.
func compareContains(value, sub any) bool {
	vs, ok1 := toText(value)
	ss, ok2 := toText(sub)
	if !ok1 || !ok2 {
		return false
	}
	return strings.Contains(strings.ToLower(vs), strings.ToLower(ss))
}

// compareMatches checks the value against a regular expression pattern.
// An invalid pattern fails the condition rather than erroring: pattern
// validity is a value-level concern, unlike operator validity.
func compareMatches(value, pattern any) bool {
	vs, ok1 := toText(value)
	ps, ok2 := pattern.(string)
	if !ok1 || !ok2 {
		return false
	}
	matched, err := regexp.MatchString(ps, vs)
	if err != nil {
		return false
	}
	return matched
}
