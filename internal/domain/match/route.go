package match

import (
	"regexp"
	"strings"
	"sync"
)

// compiledRoute is a route pattern turned into an anchored regular expression.
type compiledRoute struct {
	re    *regexp.Regexp
	names []string
}

var routeCache sync.Map // pattern -> *compiledRoute

// HasPlaceholders reports whether pattern contains at least one {name} placeholder.
func HasPlaceholders(pattern string) bool {
	_, names := splitRoute(pattern)
	return len(names) > 0
}

// ExtractRouteParams matches path against pattern, where each {name}
// placeholder matches exactly one non-empty, slash-free run of characters and
// literal text is compared case-sensitively. It returns the captured
// parameters and whether the whole path matched.
func ExtractRouteParams(pattern, path string) (map[string]string, bool) {
	cr := compileRoute(pattern)
	m := cr.re.FindStringSubmatch(path)
	if m == nil {
		return nil, false
	}
	params := make(map[string]string, len(cr.names))
	for i, name := range cr.names {
		params[name] = m[i+1]
	}
	return params, true
}

// RouteParam returns a single placeholder value of pattern matched against path.
func RouteParam(pattern, path, name string) (string, bool) {
	params, ok := ExtractRouteParams(pattern, path)
	if !ok {
		return "", false
	}
	v, ok := params[name]
	return v, ok
}

func compileRoute(pattern string) *compiledRoute {
	if cached, ok := routeCache.Load(pattern); ok {
		return cached.(*compiledRoute)
	}

	literals, names := splitRoute(pattern)
	var b strings.Builder
	b.WriteString("^")
	for i, lit := range literals {
		b.WriteString(regexp.QuoteMeta(lit))
		if i < len(names) {
			b.WriteString("([^/]+)")
		}
	}
	b.WriteString("$")

	cr := &compiledRoute{re: regexp.MustCompile(b.String()), names: names}
	actual, _ := routeCache.LoadOrStore(pattern, cr)
	return actual.(*compiledRoute)
}

// splitRoute separates a pattern into literal runs and placeholder names.
// len(literals) is always len(names)+1. Braces that do not form a
// placeholder ("{}", "{a/b}", unclosed) stay literal.
func splitRoute(pattern string) (literals, names []string) {
	var lit strings.Builder
	rest := pattern
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			lit.WriteString(rest)
			break
		}
		closeIdx := strings.IndexByte(rest[open+1:], '}')
		if closeIdx < 0 {
			lit.WriteString(rest)
			break
		}
		name := rest[open+1 : open+1+closeIdx]
		if name == "" || strings.ContainsAny(name, "/{") {
			lit.WriteString(rest[:open+1])
			rest = rest[open+1:]
			continue
		}
		lit.WriteString(rest[:open])
		literals = append(literals, lit.String())
		lit.Reset()
		names = append(names, name)
		rest = rest[open+1+closeIdx+1:]
	}
	literals = append(literals, lit.String())
	return literals, names
}
