package rules_test

import (
	"testing"

	"github.com/sophialabs/mockdeck/internal/domain/definition"
	"github.com/sophialabs/mockdeck/internal/domain/match"
	"github.com/sophialabs/mockdeck/internal/domain/rules"
)

func TestOperators(t *testing.T) {
	req := &match.IncomingRequest{
		Method:  "POST",
		Path:    "/api/orders",
		Query:   map[string]string{"limit": "25", "word": "abc"},
		Headers: map[string]string{"Authorization": "Bearer token-1", "X-Env": "staging"},
		Body:    []byte(`{"total":99.5}`),
	}

	tests := []struct {
		name string
		r    definition.Rule
		want bool
	}{
		{"equals case-insensitive", rule("header.x-env", "EQUALS", "STAGING"), true},
		{"equals absent", rule("header.X-None", "equals", ""), false},
		{"notEquals different", rule("header.X-Env", "notEquals", "prod"), true},
		{"notEquals same", rule("header.X-Env", "notEquals", "Staging"), false},
		{"notEquals absent", rule("header.X-None", "notEquals", "prod"), true},
		{"contains", rule("header.Authorization", "contains", "TOKEN"), true},
		{"notContains", rule("header.Authorization", "notContains", "basic"), true},
		{"startsWith", rule("header.Authorization", "startsWith", "bearer "), true},
		{"endsWith", rule("path", "endsWith", "/ORDERS"), true},
		{"regex", rule("path", "regex", `^/API/\w+$`), true},
		{"regex no match", rule("path", "regex", `^/users`), false},
		{"exists", rule("query.limit", "exists", ""), true},
		{"notExists", rule("query.limit", "notExists", ""), false},
		{"greaterThan", rule("query.limit", "greaterThan", "10"), true},
		{"lessThan", rule("body.total", "lessThan", "100"), true},
		{"greaterThan non-numeric", rule("query.word", "greaterThan", "10"), false},
		{"lessThan non-numeric", rule("query.word", "lessThan", "10"), false},
		{"in list", rule("header.X-Env", "in", "dev, Staging ,prod"), true},
		{"in list miss", rule("header.X-Env", "in", "dev,prod"), false},
		{"expr on value", rule("query.limit", "expr", `exists && int(value) >= 20`), true},
		{"expr on request", rule("method", "expr", `method == "POST" && headers["X-Env"] == "staging"`), true},
		{"expr false", rule("query.limit", "expr", `value == "1"`), false},
	}

	e := rules.NewEvaluator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.Evaluate([]definition.Rule{tt.r}, req, "/api/orders")
			if got := res.Rule != nil; got != tt.want {
				t.Errorf("got %v, want %v (errors: %v)", got, tt.want, res.Errors)
			}
		})
	}
}

func TestOperators_NonNumericIsNotAnError(t *testing.T) {
	e := rules.NewEvaluator()
	req := &match.IncomingRequest{Query: map[string]string{"n": "abc"}}

	res := e.Evaluate([]definition.Rule{rule("query.n", "greaterThan", "10")}, req, "")
	if res.Rule != nil {
		t.Error("expected no match")
	}
	if len(res.Errors) != 0 {
		t.Errorf("expected no errors, got %v", res.Errors)
	}
}

func TestOperators_InvalidExpressionIsRecorded(t *testing.T) {
	e := rules.NewEvaluator()

	res := e.Evaluate([]definition.Rule{rule("method", "expr", `value +`)}, &match.IncomingRequest{Method: "GET"}, "")
	if res.Rule != nil {
		t.Error("expected no match")
	}
	if len(res.Errors) != 1 {
		t.Errorf("expected one error, got %v", res.Errors)
	}
}

func TestRegisterOperator(t *testing.T) {
	e := rules.NewEvaluator()
	e.RegisterOperator("lengthIs", func(expected string, _ *rules.Input) (rules.Condition, error) {
		return func(value string, ok bool) (bool, error) {
			return ok && len(value) == len(expected), nil
		}, nil
	})

	res := e.Evaluate([]definition.Rule{rule("method", "LENGTHIS", "xyz")}, &match.IncomingRequest{Method: "GET"}, "")
	if res.Rule == nil {
		t.Error("expected custom operator to match")
	}
}
