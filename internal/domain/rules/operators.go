package rules

import (
	"fmt"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/sophialabs/mockdeck/internal/domain/match"
)

func defaultOperators(programs *programCache) map[string]Operator {
	return map[string]Operator{
		"equals":      present(match.EqualFold),
		"notequals":   absentOr(match.EqualFold),
		"contains":    present(match.ContainsFold),
		"notcontains": absentOr(match.ContainsFold),
		"startswith":  present(match.HasPrefixFold),
		"endswith":    present(match.HasSuffixFold),
		"greaterthan": present(match.GreaterThan),
		"lessthan":    present(match.LessThan),
		"regex":       regexOperator,
		"in":          present(oneOf),
		"exists":      existsOperator(true),
		"notexists":   existsOperator(false),
		"expr":        exprOperator(programs),
	}
}

// present holds when the field exists and satisfies the predicate.
func present(build func(string) match.Predicate) Operator {
	return func(expected string, _ *Input) (Condition, error) {
		p := build(expected)
		return func(value string, ok bool) (bool, error) {
			return ok && p(value), nil
		}, nil
	}
}

// absentOr holds when the field is missing or fails the predicate.
func absentOr(build func(string) match.Predicate) Operator {
	return func(expected string, _ *Input) (Condition, error) {
		fails := match.Not(build(expected))
		return func(value string, ok bool) (bool, error) {
			return !ok || fails(value), nil
		}, nil
	}
}

func regexOperator(expected string, _ *Input) (Condition, error) {
	p, err := match.RegexFold(expected)
	if err != nil {
		return nil, err
	}
	return func(value string, ok bool) (bool, error) {
		return ok && p(value), nil
	}, nil
}

func existsOperator(want bool) Operator {
	return func(string, *Input) (Condition, error) {
		return func(_ string, ok bool) (bool, error) {
			return ok == want, nil
		}, nil
	}
}

func oneOf(list string) match.Predicate {
	var ps []match.Predicate
	for _, item := range strings.Split(list, ",") {
		ps = append(ps, match.EqualFold(strings.TrimSpace(item)))
	}
	return match.Or(ps...)
}

// exprEnv is the environment visible to expr rule conditions.
type exprEnv struct {
	Value   string            `expr:"value"`
	Exists  bool              `expr:"exists"`
	Method  string            `expr:"method"`
	Path    string            `expr:"path"`
	Query   map[string]string `expr:"query"`
	Headers map[string]string `expr:"headers"`
}

func exprOperator(programs *programCache) Operator {
	return func(expression string, in *Input) (Condition, error) {
		program, err := programs.get(expression)
		if err != nil {
			return nil, err
		}

		req := in.Request()
		return func(value string, ok bool) (bool, error) {
			out, err := expr.Run(program, exprEnv{
				Value:   value,
				Exists:  ok,
				Method:  req.Method,
				Path:    req.Path,
				Query:   req.Query,
				Headers: req.Headers,
			})
			if err != nil {
				return false, fmt.Errorf("run expression: %w", err)
			}
			b, _ := out.(bool)
			return b, nil
		}, nil
	}
}

type programCache struct {
	mu       sync.RWMutex
	programs map[string]*vm.Program
}

func newProgramCache() *programCache {
	return &programCache{programs: make(map[string]*vm.Program)}
}

func (c *programCache) get(expression string) (*vm.Program, error) {
	c.mu.RLock()
	program, ok := c.programs[expression]
	c.mu.RUnlock()
	if ok {
		return program, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if program, ok := c.programs[expression]; ok {
		return program, nil
	}

	program, err := expr.Compile(expression, expr.Env(exprEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile expression %q: %w", expression, err)
	}
	c.programs[expression] = program
	return program, nil
}
