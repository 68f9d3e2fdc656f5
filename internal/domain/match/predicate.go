package match

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Predicate tests a string value and returns true if it matches.
type Predicate func(string) bool

// Or returns a predicate that requires at least one predicate to match.
func Or(predicates ...Predicate) Predicate {
	return func(s string) bool {
		for _, p := range predicates {
			if p(s) {
				return true
			}
		}
		return false
	}
}

// Not returns a predicate that inverts the given predicate.
func Not(p Predicate) Predicate {
	return func(s string) bool {
		return !p(s)
	}
}

// Never returns a predicate that never matches.
func Never() Predicate {
	return func(string) bool { return false }
}

// EqualFold matches values equal to expected, ignoring case.
func EqualFold(expected string) Predicate {
	return func(s string) bool {
		return strings.EqualFold(s, expected)
	}
}

// ContainsFold matches values containing expected, ignoring case.
func ContainsFold(expected string) Predicate {
	needle := strings.ToLower(expected)
	return func(s string) bool {
		return strings.Contains(strings.ToLower(s), needle)
	}
}

// HasPrefixFold matches values starting with expected, ignoring case.
func HasPrefixFold(expected string) Predicate {
	prefix := strings.ToLower(expected)
	return func(s string) bool {
		return strings.HasPrefix(strings.ToLower(s), prefix)
	}
}

// HasSuffixFold matches values ending with expected, ignoring case.
func HasSuffixFold(expected string) Predicate {
	suffix := strings.ToLower(expected)
	return func(s string) bool {
		return strings.HasSuffix(strings.ToLower(s), suffix)
	}
}

// RegexFold compiles pattern as a case-insensitive regular expression.
func RegexFold(pattern string) (Predicate, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern %q: %w", pattern, err)
	}
	return re.MatchString, nil
}

// GreaterThan matches values that parse as a base-10 float above threshold.
// Non-numeric values or thresholds never match.
func GreaterThan(threshold string) Predicate {
	return numericCompare(threshold, func(v, t float64) bool { return v > t })
}

// LessThan matches values that parse as a base-10 float below threshold.
// Non-numeric values or thresholds never match.
func LessThan(threshold string) Predicate {
	return numericCompare(threshold, func(v, t float64) bool { return v < t })
}

func numericCompare(threshold string, cmp func(v, t float64) bool) Predicate {
	t, ok := parseDecimal(threshold)
	if !ok {
		return Never()
	}
	return func(s string) bool {
		v, ok := parseDecimal(s)
		if !ok {
			return false
		}
		return cmp(v, t)
	}
}

// parseDecimal parses s as a finite base-10 float. Hex literals, NaN and
// infinities are rejected.
func parseDecimal(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if strings.ContainsAny(s, "xX") {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
