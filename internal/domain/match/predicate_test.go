package match_test

import (
	"testing"

	"github.com/sophialabs/mockdeck/internal/domain/match"
)

func TestCombinators(t *testing.T) {
	long := func(s string) bool { return len(s) > 2 }
	startsA := func(s string) bool { return s != "" && s[0] == 'a' }

	tests := []struct {
		name  string
		p     match.Predicate
		input string
		want  bool
	}{
		{"or one", match.Or(long, startsA), "ab", true},
		{"or none", match.Or(long, startsA), "xy", false},
		{"or empty", match.Or(), "x", false},
		{"not", match.Not(startsA), "xyz", true},
		{"not negated", match.Not(startsA), "abc", false},
		{"never", match.Never(), "anything", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p(tt.input); got != tt.want {
				t.Errorf("predicate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFoldPredicates(t *testing.T) {
	tests := []struct {
		name  string
		p     match.Predicate
		input string
		want  bool
	}{
		{"equal fold", match.EqualFold("ON"), "on", true},
		{"equal fold mismatch", match.EqualFold("on"), "off", false},
		{"contains fold", match.ContainsFold("Bear"), "grizzly BEAR cub", true},
		{"contains fold mismatch", match.ContainsFold("wolf"), "grizzly", false},
		{"prefix fold", match.HasPrefixFold("bearer "), "Bearer abc", true},
		{"prefix fold mismatch", match.HasPrefixFold("basic"), "Bearer abc", false},
		{"suffix fold", match.HasSuffixFold(".JSON"), "data.json", true},
		{"suffix fold mismatch", match.HasSuffixFold(".xml"), "data.json", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p(tt.input); got != tt.want {
				t.Errorf("predicate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestRegexFold(t *testing.T) {
	p, err := match.RegexFold(`^user-\d+$`)
	if err != nil {
		t.Fatalf("RegexFold failed: %v", err)
	}
	if !p("USER-42") {
		t.Error("expected case-insensitive regex match")
	}
	if p("user-x") {
		t.Error("expected no match for user-x")
	}

	if _, err := match.RegexFold(`([a-z`); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestNumericComparisons(t *testing.T) {
	tests := []struct {
		name  string
		p     match.Predicate
		input string
		want  bool
	}{
		{"greater", match.GreaterThan("10"), "10.5", true},
		{"not greater", match.GreaterThan("10"), "10", false},
		{"less", match.LessThan("10"), "-3", true},
		{"not less", match.LessThan("10"), "11", false},
		{"exponent", match.GreaterThan("100"), "1e3", true},
		{"non-numeric value", match.GreaterThan("10"), "abc", false},
		{"non-numeric value less", match.LessThan("10"), "abc", false},
		{"non-numeric threshold", match.LessThan("ten"), "1", false},
		{"hex rejected", match.GreaterThan("1"), "0x1p4", false},
		{"nan rejected", match.LessThan("1"), "NaN", false},
		{"whitespace trimmed", match.GreaterThan(" 1 "), " 2 ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p(tt.input); got != tt.want {
				t.Errorf("predicate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
