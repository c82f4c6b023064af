package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	// maxRegexPatternLength rejects oversized user patterns outright.
	maxRegexPatternLength = 200
	// maxRegexSubjectLength caps the string a user pattern may run against.
	maxRegexSubjectLength = 10000
)

// redosShapes is a blocklist of quantifier shapes known to blow up
// backtracking engines. Rejection is fail-closed: the field predicate is
// treated as a non-match, the query itself never errors.
var redosShapes = []*regexp.Regexp{
	regexp.MustCompile(`\([^()]*[+*][^()]*\)[+*]`), // nested quantified group: (a+)+
	regexp.MustCompile(`\([^()]*[+*][^()]*\)\{`),   // quantified group with counted repeat
	regexp.MustCompile(`[+*]\s*[+*]`),              // stacked quantifiers: a++, a*+
}

// MatchesWhere reports whether row satisfies every field predicate in cond.
// Each field maps to either a literal (equality) or an operator object;
// predicates are ANDed across fields.
func MatchesWhere(row map[string]interface{}, cond map[string]interface{}) bool {
	for field, predicate := range cond {
		value, present := row[field]
		ops, isOps := predicate.(map[string]interface{})
		if !isOps {
			if !equalValues(value, predicate) {
				return false
			}
			continue
		}
		for op, operand := range ops {
			if !matchOperator(value, present, op, operand) {
				return false
			}
		}
	}
	return true
}

func matchOperator(value interface{}, present bool, op string, operand interface{}) bool {
	switch op {
	case "$lt":
		c, ok := compareValues(value, operand)
		return ok && c < 0
	case "$lte":
		c, ok := compareValues(value, operand)
		return ok && c <= 0
	case "$gt":
		c, ok := compareValues(value, operand)
		return ok && c > 0
	case "$gte":
		c, ok := compareValues(value, operand)
		return ok && c >= 0
	case "$ne":
		return !equalValues(value, operand)
	case "$in":
		list, ok := operand.([]interface{})
		if !ok {
			return false
		}
		return containsValue(list, value)
	case "$nin":
		list, ok := operand.([]interface{})
		if !ok {
			return false
		}
		return !containsValue(list, value)
	case "$exists":
		want, ok := operand.(bool)
		if !ok {
			return false
		}
		// Empty string counts as absent.
		exists := present && value != nil && value != ""
		return exists == want
	case "$regex":
		pattern, ok := operand.(string)
		if !ok {
			return false
		}
		return matchRegex(stringify(value), pattern)
	case "$text":
		needle, ok := operand.(string)
		if !ok {
			return false
		}
		return strings.Contains(strings.ToLower(stringify(value)), strings.ToLower(needle))
	default:
		// Unknown operator fails the field closed.
		return false
	}
}

// matchRegex applies the defensive limits before testing. Any rejection or
// compile failure is a non-match, never an error.
func matchRegex(subject, pattern string) bool {
	if len(pattern) > maxRegexPatternLength {
		return false
	}
	for _, shape := range redosShapes {
		if shape.MatchString(pattern) {
			return false
		}
	}
	if len(subject) > maxRegexSubjectLength {
		subject = subject[:maxRegexSubjectLength]
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(subject)
}

// MatchesTextSearch reports whether any field of the row contains the query
// string, case-insensitively.
func MatchesTextSearch(row map[string]interface{}, q string) bool {
	needle := strings.ToLower(q)
	for _, value := range row {
		if strings.Contains(strings.ToLower(stringify(value)), needle) {
			return true
		}
	}
	return false
}

// compareValues orders two values. Both numeric (or numeric strings) compare
// numerically, everything else falls back to string ordering.
func compareValues(a, b interface{}) (int, bool) {
	na, aok := toFloat(a)
	nb, bok := toFloat(b)
	if aok && bok {
		switch {
		case na < nb:
			return -1, true
		case na > nb:
			return 1, true
		default:
			return 0, true
		}
	}
	return strings.Compare(stringify(a), stringify(b)), true
}

// equalValues applies the same coercion as compareValues for equality.
func equalValues(a, b interface{}) bool {
	c, _ := compareValues(a, b)
	return c == 0
}

func containsValue(list []interface{}, value interface{}) bool {
	for _, item := range list {
		if equalValues(item, value) {
			return true
		}
	}
	return false
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		if v == "" {
			return 0, false
		}
		n, err := strconv.ParseFloat(v, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func stringify(value interface{}) string {
	if value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}
