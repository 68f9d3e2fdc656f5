package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/antchfx/xmlquery"
	"github.com/tidwall/gjson"

	"github.com/sophialabs/mockdeck/internal/domain/match"
)

func defaultSelectors() map[string]Extractor {
	return map[string]Extractor{
		"method":    selectMethod,
		"path":      selectPath,
		"body":      selectRawBody,
		"header.":   selectHeader,
		"query.":    selectQuery,
		"cookie.":   selectCookie,
		"route.":    selectRoute,
		"body.":     selectBodyPath,
		"jsonpath.": selectJSONPath,
		"xpath.":    selectXPath,
	}
}

func selectMethod(in *Input, _ string) (string, bool, error) {
	return in.req.Method, true, nil
}

func selectPath(in *Input, _ string) (string, bool, error) {
	return in.req.Path, true, nil
}

func selectRawBody(in *Input, _ string) (string, bool, error) {
	return string(in.req.Body), len(in.req.Body) > 0, nil
}

func selectHeader(in *Input, name string) (string, bool, error) {
	v, ok := in.req.Header(name)
	return v, ok, nil
}

func selectQuery(in *Input, name string) (string, bool, error) {
	v, ok := in.req.QueryValue(name)
	return v, ok, nil
}

func selectCookie(in *Input, name string) (string, bool, error) {
	v, ok := in.req.Cookie(name)
	return v, ok, nil
}

func selectRoute(in *Input, name string) (string, bool, error) {
	v, ok := match.RouteParam(in.routePattern, in.req.Path, name)
	return v, ok, nil
}

// selectBodyPath walks a dot-separated path through the JSON body. Each
// segment is an object key or an array index.
func selectBodyPath(in *Input, path string) (string, bool, error) {
	if !gjson.ValidBytes(in.req.Body) {
		return "", false, nil
	}

	r := gjson.GetBytes(in.req.Body, escapeGJSONPath(path))
	if !r.Exists() {
		return "", false, nil
	}

	switch r.Type {
	case gjson.Null:
		return "", false, nil
	case gjson.True:
		return "true", true, nil
	case gjson.False:
		return "false", true, nil
	case gjson.String:
		return r.Str, true, nil
	default:
		return r.Raw, true, nil
	}
}

// escapeGJSONPath keeps "." as the only separator so keys containing
// gjson query syntax are matched literally.
func escapeGJSONPath(path string) string {
	var b strings.Builder
	b.Grow(len(path))
	for _, r := range path {
		switch r {
		case '*', '?', '|', '#', '@', '\\', '!', '=', '<', '>', '%':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func selectJSONPath(in *Input, expr string) (string, bool, error) {
	if !strings.HasPrefix(expr, "$") {
		expr = "$." + expr
	}

	eval, err := jsonpath.New(expr)
	if err != nil {
		return "", false, fmt.Errorf("compile jsonpath %q: %w", expr, err)
	}

	doc, err := in.JSON()
	if err != nil {
		return "", false, nil
	}

	v, err := eval(context.Background(), doc)
	if err != nil {
		return "", false, nil
	}
	return stringify(v)
}

func selectXPath(in *Input, expr string) (string, bool, error) {
	if len(in.req.Body) == 0 {
		return "", false, nil
	}

	doc, err := in.XML()
	if err != nil {
		return "", false, nil
	}

	node, err := xmlquery.Query(doc, expr)
	if err != nil {
		return "", false, fmt.Errorf("xpath %q: %w", expr, err)
	}
	if node == nil {
		return "", false, nil
	}
	return node.InnerText(), true, nil
}

func stringify(v any) (string, bool, error) {
	switch t := v.(type) {
	case nil:
		return "", false, nil
	case string:
		return t, true, nil
	case bool:
		return strconv.FormatBool(t), true, nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true, nil
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", false, nil
		}
		return string(b), true, nil
	}
}
