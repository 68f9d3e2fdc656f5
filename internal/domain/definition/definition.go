package definition

import (
	"sort"
	"time"
)

// Definition is a stored mock: where it matches and what it answers.
type Definition struct {
	ID           string
	Description  string
	CollectionID string

	Method     string
	Route      string
	Query      string // exact raw query filter, empty means any
	ExpectBody string // expected request body substring, empty means any

	Status      int
	Body        string
	BodyFile    string
	ContentType string
	Headers     map[string]string
	DelayMs     int

	Active     bool
	Sequential bool

	Rules []Rule
	Steps []Step

	// SourceFile and SourceIndex locate the definition in the catalog on disk.
	// SourceIndex is -1 for single-definition files.
	SourceFile  string
	SourceIndex int
}

// Rule is a conditional override evaluated against the incoming request.
// Lower priorities are evaluated first.
type Rule struct {
	Field    string
	Operator string
	Value    string
	Priority int

	Status      int
	Body        string
	ContentType string
	Headers     map[string]string
}

// Step is one entry of a sequential definition's round-robin.
type Step struct {
	Order       int
	Status      int
	Body        string
	ContentType string
	Headers     map[string]string
	// DelayMs overrides the definition delay when non-nil.
	DelayMs *int
}

// IsSequential reports whether requests should be served from the steps.
func (d *Definition) IsSequential() bool {
	return d.Sequential && len(d.Steps) > 0
}

// Delay returns the definition's configured delay.
func (d *Definition) Delay() time.Duration {
	return msDuration(d.DelayMs)
}

// StepDelay returns the effective delay for step: its own when set,
// otherwise the definition delay.
func (d *Definition) StepDelay(s *Step) time.Duration {
	if s != nil && s.DelayMs != nil {
		return msDuration(*s.DelayMs)
	}
	return d.Delay()
}

// SortSteps orders steps ascending by Order, keeping storage order for ties.
func (d *Definition) SortSteps() {
	sort.SliceStable(d.Steps, func(i, j int) bool {
		return d.Steps[i].Order < d.Steps[j].Order
	})
}

// SortedRules returns a copy of rules ordered ascending by priority.
// Rules sharing a priority keep their storage order.
func SortedRules(rules []Rule) []Rule {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})
	return sorted
}

func msDuration(ms int) time.Duration {
	if ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}
