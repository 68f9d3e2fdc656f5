package template

import (
	"github.com/flosch/pongo2/v6"
)

const (
	// DefaultMaxLoopIterations caps a single for-loop and range().
	DefaultMaxLoopIterations = 1000
	// budgetKey holds the per-render iteration budget in the public context.
	budgetKey = "_mockdeck_loop_budget"
)

// loopBudget bounds the iterations of one render. perLoop caps each loop;
// remaining is shared by every loop of the render, nested ones included.
type loopBudget struct {
	perLoop   int
	remaining int
}

func newLoopBudget(perLoop int) *loopBudget {
	if perLoop <= 0 {
		perLoop = DefaultMaxLoopIterations
	}
	return &loopBudget{perLoop: perLoop, remaining: perLoop * 10}
}

func init() {
	if err := pongo2.ReplaceTag("for", boundedForParser); err != nil {
		panic(err)
	}
}

// loopInfo is exposed to templates as forloop.
type loopInfo struct {
	Counter     int
	Counter0    int
	Revcounter  int
	Revcounter0 int
	First       bool
	Last        bool
	Parentloop  *loopInfo
}

type boundedForNode struct {
	key      string
	value    string
	object   pongo2.IEvaluator
	reversed bool
	sorted   bool
	start    *pongo2.Token

	body  *pongo2.NodeWrapper
	empty *pongo2.NodeWrapper
}

func (node *boundedForNode) Execute(ctx *pongo2.ExecutionContext, writer pongo2.TemplateWriter) (forErr *pongo2.Error) {
	budget, ok := ctx.Public[budgetKey].(*loopBudget)
	if !ok {
		budget = newLoopBudget(0)
		ctx.Public[budgetKey] = budget
	}

	forCtx := pongo2.NewChildExecutionContext(ctx)
	info := &loopInfo{First: true}
	if parent, ok := forCtx.Private["forloop"].(*loopInfo); ok {
		info.Parentloop = parent
	}
	forCtx.Private["forloop"] = info

	obj, err := node.object.Evaluate(forCtx)
	if err != nil {
		return err
	}

	obj.IterateOrder(func(idx, count int, key, value *pongo2.Value) bool {
		if idx >= budget.perLoop {
			forErr = ctx.Error("for-loop exceeds the iteration limit", node.start)
			return false
		}
		if budget.remaining <= 0 {
			forErr = ctx.Error("template exceeds the total loop iteration budget", node.start)
			return false
		}
		budget.remaining--

		forCtx.Private[node.key] = key
		if value != nil && node.value != "" {
			forCtx.Private[node.value] = value
		}
		info.Counter = idx + 1
		info.Counter0 = idx
		info.First = idx == 0
		info.Last = idx+1 == count
		info.Revcounter = count - idx
		info.Revcounter0 = count - idx - 1

		if err := node.body.Execute(forCtx, writer); err != nil {
			forErr = err
			return false
		}
		return true
	}, func() {
		if node.empty == nil {
			return
		}
		if err := node.empty.Execute(forCtx, writer); err != nil {
			forErr = err
		}
	}, node.reversed, node.sorted)

	return forErr
}

func boundedForParser(doc *pongo2.Parser, start *pongo2.Token, arguments *pongo2.Parser) (pongo2.INodeTag, *pongo2.Error) {
	node := &boundedForNode{start: start}

	keyToken := arguments.MatchType(pongo2.TokenIdentifier)
	if keyToken == nil {
		return nil, arguments.Error("Expected an key identifier as first argument for 'for'-tag", nil)
	}
	node.key = keyToken.Val

	if arguments.Match(pongo2.TokenSymbol, ",") != nil {
		valueToken := arguments.MatchType(pongo2.TokenIdentifier)
		if valueToken == nil {
			return nil, arguments.Error("Value name must be an identifier.", nil)
		}
		node.value = valueToken.Val
	}

	if arguments.Match(pongo2.TokenKeyword, "in") == nil {
		return nil, arguments.Error("Expected keyword 'in'.", nil)
	}

	object, err := arguments.ParseExpression()
	if err != nil {
		return nil, err
	}
	node.object = object

	if arguments.MatchOne(pongo2.TokenIdentifier, "reversed") != nil {
		node.reversed = true
	}
	if arguments.MatchOne(pongo2.TokenIdentifier, "sorted") != nil {
		node.sorted = true
	}
	if arguments.Remaining() > 0 {
		return nil, arguments.Error("Malformed for-loop arguments.", nil)
	}

	body, endargs, err := doc.WrapUntilTag("empty", "endfor")
	if err != nil {
		return nil, err
	}
	if endargs.Count() > 0 {
		return nil, endargs.Error("Arguments not allowed here.", nil)
	}
	node.body = body

	if body.Endtag == "empty" {
		empty, endargs, err := doc.WrapUntilTag("endfor")
		if err != nil {
			return nil, err
		}
		if endargs.Count() > 0 {
			return nil, endargs.Error("Arguments not allowed here.", nil)
		}
		node.empty = empty
	}

	return node, nil
}

// rangeInts returns [0, n) or [start, stop) stepping by step, never longer
// than limit.
func rangeInts(limit int, args ...*pongo2.Value) []int {
	start, stop, step := 0, 0, 1
	switch len(args) {
	case 0:
		return nil
	case 1:
		stop = args[0].Integer()
	case 2:
		start, stop = args[0].Integer(), args[1].Integer()
	default:
		start, stop, step = args[0].Integer(), args[1].Integer(), args[2].Integer()
	}
	if step == 0 {
		return nil
	}

	var out []int
	for i := start; (step > 0 && i < stop) || (step < 0 && i > stop); i += step {
		if len(out) >= limit {
			break
		}
		out = append(out, i)
	}
	return out
}
