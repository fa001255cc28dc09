package targeting

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// The numeric coercion helpers below accept json.Number in addition to the
// native Go numeric types: the parser package decodes flag-set JSON with
// json.Decoder.UseNumber to preserve int64 precision up to 2^63-1.

func asInt64(value any) (int64, bool) {
	switch n := value.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

func asFloat64(value any) (float64, bool) {
	switch n := value.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func asString(value any) (string, bool) {
	s, ok := value.(string)
	return s, ok
}

func asBool(value any) (bool, bool) {
	b, ok := value.(bool)
	return b, ok
}

// valuesEqual compares two dynamically-typed values for JsonLogic "=="
// semantics, preferring numeric cross-type comparison before falling back
// to a strict type-and-value match.
func valuesEqual(left, right any) bool {
	if leftInt, ok := asInt64(left); ok {
		if rightInt, ok := asInt64(right); ok {
			return leftInt == rightInt
		}
		if rightFloat, ok := asFloat64(right); ok {
			return floatEqualsInt64(rightFloat, leftInt)
		}
	}

	if leftFloat, ok := asFloat64(left); ok {
		if rightFloat, ok := asFloat64(right); ok {
			return leftFloat == rightFloat
		}
		if rightInt, ok := asInt64(right); ok {
			return floatEqualsInt64(leftFloat, rightInt)
		}
	}

	if leftStr, ok := asString(left); ok {
		if rightStr, ok := asString(right); ok {
			return leftStr == rightStr
		}
		return false
	}

	if leftBool, ok := asBool(left); ok {
		if rightBool, ok := asBool(right); ok {
			return leftBool == rightBool
		}
		return false
	}

	if left == nil || right == nil {
		return left == nil && right == nil
	}

	return false
}

func floatEqualsInt64(left float64, right int64) bool {
	if !isWholeFinite(left) {
		return false
	}
	if left < float64(math.MinInt64) || left > float64(math.MaxInt64) {
		return false
	}
	converted := int64(left)
	return float64(converted) == left && converted == right
}

func isWholeFinite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0) && math.Trunc(value) == value
}

// compareNumeric returns -1, 0, or 1 comparing left and right as numbers.
// ok is false if either side is not numeric.
func compareNumeric(left, right any) (cmp int, ok bool) {
	lf, lok := asFloat64(left)
	if !lok {
		if li, liok := asInt64(left); liok {
			lf, lok = float64(li), true
		}
	}
	rf, rok := asFloat64(right)
	if !rok {
		if ri, riok := asInt64(right); riok {
			rf, rok = float64(ri), true
		}
	}
	if !lok || !rok {
		return 0, false
	}
	switch {
	case lf < rf:
		return -1, true
	case lf > rf:
		return 1, true
	default:
		return 0, true
	}
}

// stringContains reports whether needle occurs within haystack, the
// substring-test form JsonLogic's "in" operator supports for two strings.
func stringContains(haystack, needle string) bool {
	return strings.Contains(haystack, needle)
}

// toDisplayString renders a value as "cat" concatenates it: strings pass
// through unchanged, numbers print without Go's type noise, everything else
// falls back to fmt's default formatting.
func toDisplayString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		if i, ok := asInt64(v); ok {
			return fmt.Sprintf("%d", i)
		}
		if f, ok := asFloat64(v); ok {
			return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", f), "0"), ".")
		}
		return fmt.Sprintf("%v", v)
	}
}

// isTruthy implements JsonLogic truthiness: false, nil, zero numbers, empty
// strings, and empty arrays are falsy; everything else is truthy.
func isTruthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case []any:
		return len(v) > 0
	default:
		if f, ok := asFloat64(v); ok {
			return f != 0
		}
		if i, ok := asInt64(v); ok {
			return i != 0
		}
		return true
	}
}
