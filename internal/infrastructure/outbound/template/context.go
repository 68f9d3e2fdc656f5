package template

import (
	"math/rand/v2"
	"regexp"
	"strings"
	"time"

	"github.com/flosch/pongo2/v6"

	"github.com/sophialabs/mockdeck/internal/domain/match"
)

var identifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// lowerKeys keys headers by lower-case name; foldHeaderLookups folds the
// names used in templates to match.
func lowerKeys(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		out[strings.ToLower(k)] = v
	}
	return out
}

func orEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

// bindings is the request data shared by every render of one Bind.
type bindings struct {
	rc      match.RenderContext
	headers map[string]string
	body    any
	buckets map[string]any
}

func prepare(rc match.RenderContext) *bindings {
	b := &bindings{
		rc:      rc,
		headers: lowerKeys(rc.Headers),
		buckets: make(map[string]any, len(rc.Buckets)),
	}
	if rc.JSON != nil {
		b.body = normalizeJSON(rc.JSON)
	}
	for name, data := range rc.Buckets {
		b.buckets[name] = normalizeJSON(data)
	}
	return b
}

// buildContext assembles the bindings visible to one render. Loop budgets
// are never shared between renders.
func (e *Engine) buildContext(b *bindings) pongo2.Context {
	rc, headers, body, buckets := b.rc, b.headers, b.body, b.buckets
	now := e.clock.Now()

	ctx := pongo2.Context{
		"request": map[string]any{
			"method":  rc.Method,
			"path":    rc.Path,
			"body":    string(rc.Body),
			"json":    body,
			"query":   orEmpty(rc.Query),
			"headers": headers,
			"cookies": orEmpty(rc.Cookies),
			"route":   orEmpty(rc.Route),
		},
		"headers": headers,
		"buckets": buckets,

		headerKeyFunc: func(name *pongo2.Value) string {
			return strings.ToLower(name.String())
		},

		"uuid":              generateUUID,
		"random_int":        randomInt,
		"random_float":      randomFloat,
		"random_double":     randomFloat,
		"random_bool":       randomBool,
		"random_name":       randomName,
		"random_first_name": randomFirstName,
		"random_last_name":  randomLastName,
		"random_email":      randomEmail,
		"random_phone":      randomPhone,
		"random_string":     randomString,
		"to_json":           toJSONString,
		"json_set":          setJSON,

		"timestamp": func() int64 { return now.Unix() },
		"now_iso":   func() string { return now.UTC().Format(time.RFC3339) },
		"now_format": func(layout string) string {
			return now.Format(layout)
		},
		"header": func(name string) string {
			v, _ := (&match.IncomingRequest{Headers: rc.Headers}).Header(name)
			return v
		},
		"query": func(name string) string {
			return rc.Query[name]
		},
		"range": func(args ...*pongo2.Value) []int {
			return rangeInts(e.maxLoop, args...)
		},
		"random_item": func(name string) any {
			return randomItem(buckets[name])
		},
		"json_path": func(expression string, source ...*pongo2.Value) any {
			data := body
			if len(source) > 0 {
				var ok bool
				if data, ok = decodeSource(source[0]); !ok {
					return nil
				}
			}
			return extractJSONPath(data, expression)
		},
		"json_get": func(path string, source ...*pongo2.Value) any {
			doc := rc.Body
			if len(source) > 0 {
				var ok bool
				if doc, ok = rawSource(source[0]); !ok {
					return nil
				}
			}
			return extractGJSON(doc, path)
		},

		budgetKey: newLoopBudget(e.maxLoop),
	}

	for name, data := range buckets {
		if _, taken := ctx[name]; taken || !identifier.MatchString(name) {
			continue
		}
		ctx[name] = data
	}

	return ctx
}

// randomItem returns a random element of an array bucket, or the bucket
// itself when it holds a single object.
func randomItem(data any) any {
	items, ok := data.([]any)
	if !ok {
		return data
	}
	if len(items) == 0 {
		return nil
	}
	return items[rand.IntN(len(items))]
}
