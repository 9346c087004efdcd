package forms

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// compare evaluates one operator between a field value and a condition
// value. Comparison operators are false unless both sides are numeric.
func compare(op Operator, actual, expected any) bool {
	switch op {
	case OpEquals:
		return equals(actual, expected)
	case OpNotEquals:
		return !equals(actual, expected)
	case OpContains:
		return contains(actual, expected)
	case OpNotContains:
		return !contains(actual, expected)
	case OpStartsWith:
		a, e, ok := textPair(actual, expected)
		return ok && strings.HasPrefix(a, e)
	case OpEndsWith:
		a, e, ok := textPair(actual, expected)
		return ok && strings.HasSuffix(a, e)
	case OpGreaterThan:
		a, e, ok := numberPair(actual, expected)
		return ok && a > e
	case OpLessThan:
		a, e, ok := numberPair(actual, expected)
		return ok && a < e
	case OpGreaterThanOrEqual:
		a, e, ok := numberPair(actual, expected)
		return ok && a >= e
	case OpLessThanOrEqual:
		a, e, ok := numberPair(actual, expected)
		return ok && a <= e
	case OpIsEmpty:
		return isEmpty(actual)
	case OpIsNotEmpty:
		return !isEmpty(actual)
	case OpIn:
		return in(actual, expected)
	case OpNotIn:
		return !in(actual, expected)
	default:
		return false
	}
}

// equals compares numerically when both sides are numbers, otherwise as
// case-insensitive text. A list equals another list with the same
// elements in any order, or a single value when it holds only that value.
func equals(actual, expected any) bool {
	if a, e, ok := boolPair(actual, expected); ok {
		return a == e
	}
	if isEmpty(actual) || isEmpty(expected) {
		return isEmpty(actual) && isEmpty(expected)
	}
	if list, ok := toList(actual); ok {
		want, ok := toList(expected)
		if !ok {
			want = []any{expected}
		}
		return sameElements(list, want)
	}
	if a, e, ok := numberPair(actual, expected); ok {
		return a == e
	}
	a, e, ok := textPair(actual, expected)
	return ok && a == e
}

func sameElements(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
outer:
	for _, x := range a {
		for j, y := range b {
			if !used[j] && equals(x, y) {
				used[j] = true
				continue outer
			}
		}
		return false
	}
	return true
}

// contains is list membership for lists and a substring test otherwise.
func contains(actual, expected any) bool {
	if isEmpty(actual) {
		return false
	}
	if list, ok := toList(actual); ok {
		for _, v := range list {
			if equals(v, expected) {
				return true
			}
		}
		return false
	}
	a, e, ok := textPair(actual, expected)
	return ok && strings.Contains(a, e)
}

// in reports whether actual, or any element of it when it is a list, is
// one of the expected values. expected is a list or a comma-separated
// string.
func in(actual, expected any) bool {
	if isEmpty(actual) {
		return false
	}
	candidates := expectedList(expected)
	values, ok := toList(actual)
	if !ok {
		values = []any{actual}
	}
	for _, v := range values {
		for _, c := range candidates {
			if equals(v, c) {
				return true
			}
		}
	}
	return false
}

func expectedList(v any) []any {
	if list, ok := toList(v); ok {
		return list
	}
	s, ok := v.(string)
	if !ok {
		return []any{v}
	}
	parts := strings.Split(s, ",")
	out := make([]any, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// isEmpty treats nil, blank strings, empty lists and an unchecked
// checkbox as no value.
func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case bool:
		return !val
	case []any:
		return len(val) == 0
	case []string:
		return len(val) == 0
	}
	return false
}

func toList(v any) ([]any, bool) {
	switch val := v.(type) {
	case []any:
		return val, true
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

// boolPair applies when either side is a bool. A missing value reads as
// false, matching an unchecked checkbox.
func boolPair(actual, expected any) (bool, bool, bool) {
	_, aIsBool := actual.(bool)
	_, eIsBool := expected.(bool)
	if !aIsBool && !eIsBool {
		return false, false, false
	}
	a, ok := toBool(actual)
	if !ok {
		return false, false, false
	}
	e, ok := toBool(expected)
	if !ok {
		return false, false, false
	}
	return a, e, true
}

func toBool(v any) (bool, bool) {
	switch val := v.(type) {
	case nil:
		return false, true
	case bool:
		return val, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		return b, err == nil
	}
	return false, false
}

func numberPair(actual, expected any) (float64, float64, bool) {
	a, ok := toNumber(actual)
	if !ok {
		return 0, 0, false
	}
	e, ok := toNumber(expected)
	if !ok {
		return 0, 0, false
	}
	return a, e, true
}

// toNumber accepts Go numbers and numeric strings. Booleans are not
// numbers.
func toNumber(v any) (float64, bool) {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int32:
		f = float64(val)
	case int64:
		f = float64(val)
	case uint:
		f = float64(val)
	case uint64:
		f = float64(val)
	case json.Number:
		n, err := val.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func textPair(actual, expected any) (string, string, bool) {
	a, ok := toText(actual)
	if !ok {
		return "", "", false
	}
	e, ok := toText(expected)
	if !ok {
		return "", "", false
	}
	return a, e, true
}

// toText renders scalars as lower-cased trimmed text. Lists and maps have
// no text form.
func toText(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", true
	case string:
		return strings.ToLower(strings.TrimSpace(val)), true
	case bool:
		return strconv.FormatBool(val), true
	case []any, []string, map[string]any:
		return "", false
	}
	if f, ok := toNumber(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}
	return strings.ToLower(fmt.Sprint(v)), true
}
