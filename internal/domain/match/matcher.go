package match

import (
	"strings"

	"github.com/sophialabs/mockdeck/internal/domain/definition"
)

// Tier identifies which matching stage selected a definition.
type Tier int

const (
	TierNone Tier = iota
	TierExact
	TierParametric
	TierFallback
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierParametric:
		return "parametric"
	case TierFallback:
		return "fallback"
	default:
		return "none"
	}
}

// Result holds the outcome of matching a request against candidates.
type Result struct {
	Definition *definition.Definition
	Tier       Tier
}

// Matched reports whether a definition was selected.
func (r Result) Matched() bool {
	return r.Definition != nil
}

// Matcher selects the definition that answers a request.
type Matcher struct{}

// NewMatcher creates a new Matcher.
func NewMatcher() *Matcher {
	return &Matcher{}
}

type tier struct {
	kind    Tier
	matches func(route, path string) bool
}

var tiers = []tier{
	{kind: TierExact, matches: func(route, path string) bool {
		return route == path
	}},
	{kind: TierParametric, matches: func(route, path string) bool {
		if !HasPlaceholders(route) {
			return false
		}
		_, ok := ExtractRouteParams(route, path)
		return ok
	}},
	{kind: TierFallback, matches: func(route, path string) bool {
		return route != "" && strings.Contains(path, route)
	}},
}

// Match runs the tiers in order and stops at the first one with candidates.
// Candidates are expected to be pre-filtered by method and query and to be in
// storage order.
func (m *Matcher) Match(req *IncomingRequest, candidates []*definition.Definition) Result {
	if len(candidates) == 0 {
		return Result{}
	}

	for _, t := range tiers {
		var hits []*definition.Definition
		for _, d := range candidates {
			if t.matches(d.Route, req.Path) {
				hits = append(hits, d)
			}
		}
		if len(hits) > 0 {
			return Result{Definition: breakTie(hits, req.Body), Tier: t.kind}
		}
	}

	return Result{}
}

// breakTie prefers a definition whose expected body occurs in the request
// body (ignoring case), then one without an expected body, then the first.
func breakTie(hits []*definition.Definition, body []byte) *definition.Definition {
	if len(hits) == 1 {
		return hits[0]
	}

	lowerBody := strings.ToLower(string(body))
	for _, d := range hits {
		if d.ExpectBody != "" && strings.Contains(lowerBody, strings.ToLower(d.ExpectBody)) {
			return d
		}
	}
	for _, d := range hits {
		if d.ExpectBody == "" {
			return d
		}
	}
	return hits[0]
}
