package rules

import (
	"fmt"
	"strings"

	"github.com/sophialabs/mockdeck/internal/domain/definition"
	"github.com/sophialabs/mockdeck/internal/domain/match"
)

// Extractor returns the value selected by a field argument and whether the
// field is present. Errors are reserved for malformed selectors; a field
// that cannot be found is reported as absent.
type Extractor func(in *Input, arg string) (value string, present bool, err error)

// Condition decides whether an extracted field satisfies a rule.
type Condition func(value string, present bool) (bool, error)

// Operator builds the condition for a rule's comparison value.
type Operator func(expected string, in *Input) (Condition, error)

// RuleError records why a single rule could not be evaluated.
type RuleError struct {
	Rule definition.Rule
	Err  error
}

func (e RuleError) Error() string {
	return fmt.Sprintf("rule %s %s %q (priority %d): %v", e.Rule.Field, e.Rule.Operator, e.Rule.Value, e.Rule.Priority, e.Err)
}

func (e RuleError) Unwrap() error { return e.Err }

// Result is the outcome of evaluating a definition's rules.
type Result struct {
	// Rule is the first matching rule by ascending priority, nil when none matched.
	Rule *definition.Rule
	// Errors lists rules that were skipped because they failed to evaluate.
	Errors []RuleError
}

// Evaluator evaluates conditional rules against requests. Selectors and
// operators are looked up in dispatch tables and can be extended.
type Evaluator struct {
	selectors map[string]Extractor
	operators map[string]Operator
	programs  *programCache
}

// NewEvaluator creates an Evaluator with the built-in selectors and operators.
func NewEvaluator() *Evaluator {
	e := &Evaluator{
		selectors: make(map[string]Extractor),
		operators: make(map[string]Operator),
		programs:  newProgramCache(),
	}
	for name, ex := range defaultSelectors() {
		e.RegisterSelector(name, ex)
	}
	for name, op := range defaultOperators(e.programs) {
		e.RegisterOperator(name, op)
	}
	return e
}

// RegisterSelector adds a field selector. Names ending in "." are prefixes
// that take the remainder of the field as their argument; other names match
// the whole field. Names are case-insensitive.
func (e *Evaluator) RegisterSelector(name string, ex Extractor) {
	e.selectors[strings.ToLower(name)] = ex
}

// RegisterOperator adds an operator. Names are case-insensitive.
func (e *Evaluator) RegisterOperator(name string, op Operator) {
	e.operators[strings.ToLower(name)] = op
}

// Evaluate sorts rules ascending by priority and returns the first rule whose
// condition holds. A rule that fails to evaluate is recorded in Result.Errors
// and treated as a non-match; evaluation continues with the next rule.
func (e *Evaluator) Evaluate(rules []definition.Rule, req *match.IncomingRequest, routePattern string) Result {
	var res Result
	if len(rules) == 0 {
		return res
	}

	in := NewInput(req, routePattern)
	for _, r := range definition.SortedRules(rules) {
		ok, err := e.evaluateRule(r, in)
		if err != nil {
			res.Errors = append(res.Errors, RuleError{Rule: r, Err: err})
			continue
		}
		if ok {
			matched := r
			res.Rule = &matched
			return res
		}
	}
	return res
}

func (e *Evaluator) evaluateRule(r definition.Rule, in *Input) (matched bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			matched = false
			err = fmt.Errorf("panic: %v", p)
		}
	}()

	extract, arg, err := e.selectorFor(r.Field)
	if err != nil {
		return false, err
	}

	op, ok := e.operators[strings.ToLower(strings.TrimSpace(r.Operator))]
	if !ok {
		return false, fmt.Errorf("unknown operator %q", r.Operator)
	}

	value, present, err := extract(in, arg)
	if err != nil {
		return false, fmt.Errorf("field %q: %w", r.Field, err)
	}

	cond, err := op(r.Value, in)
	if err != nil {
		return false, fmt.Errorf("operator %q: %w", r.Operator, err)
	}

	return cond(value, present)
}

func (e *Evaluator) selectorFor(field string) (Extractor, string, error) {
	field = strings.TrimSpace(field)
	if ex, ok := e.selectors[strings.ToLower(field)]; ok && !strings.HasSuffix(field, ".") {
		return ex, "", nil
	}

	if i := strings.IndexByte(field, '.'); i > 0 {
		if ex, ok := e.selectors[strings.ToLower(field[:i+1])]; ok {
			arg := field[i+1:]
			if arg == "" {
				return nil, "", fmt.Errorf("field selector %q is missing a name", field)
			}
			return ex, arg, nil
		}
	}

	return nil, "", fmt.Errorf("unknown field selector %q", field)
}
