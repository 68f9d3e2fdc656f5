package template

import (
	"regexp"
	"strings"
)

// legacyRewrite maps one older placeholder form onto the template syntax.
type legacyRewrite struct {
	pattern *regexp.Regexp
	replace string
}

func legacy(pattern, replace string) legacyRewrite {
	return legacyRewrite{
		pattern: regexp.MustCompile(`\{\{\s*` + pattern + `\s*\}\}`),
		replace: replace,
	}
}

const legacyName = `([A-Za-z0-9_\-.]+)`

var legacyRewrites = []legacyRewrite{
	legacy(`random\.uuid`, `{{ uuid() }}`),
	legacy(`uuid`, `{{ uuid() }}`),
	legacy(`random\.name`, `{{ random_name() }}`),
	legacy(`random\.firstName`, `{{ random_first_name() }}`),
	legacy(`random\.lastName`, `{{ random_last_name() }}`),
	legacy(`random\.email`, `{{ random_email() }}`),
	legacy(`random\.phone`, `{{ random_phone() }}`),
	legacy(`random\.bool`, `{{ random_bool() }}`),
	legacy(`random\.float`, `{{ random_float() }}`),
	legacy(`random\.int`, `{{ random_int() }}`),
	legacy(`random\.int\(\s*(-?\d+)\s*,\s*(-?\d+)\s*\)`, `{{ random_int(${1}, ${2}) }}`),
	legacy(`random\.int\s+(-?\d+)\s+(-?\d+)`, `{{ random_int(${1}, ${2}) }}`),
	legacy(`timestamp`, `{{ timestamp() }}`),
	legacy(`now`, `{{ now_iso() }}`),
	legacy(`date\.iso`, `{{ now_iso() }}`),
	legacy(`request\.path`, `{{ request.path }}`),
	legacy(`request\.method`, `{{ request.method }}`),
	legacy(`request\.body`, `{{ request.body }}`),
	legacy(`request\.query\.`+legacyName, `{{ request.query["${1}"] }}`),
	legacy(`request\.headers?\.`+legacyName, `{{ request.headers["${1}"] }}`),
	legacy(`request\.cookies?\.`+legacyName, `{{ request.cookies["${1}"] }}`),
	legacy(`request\.route\.`+legacyName, `{{ request.route["${1}"] }}`),
}

// RewriteLegacy converts older placeholder forms such as {{random.uuid}} or
// {{request.header.X-Id}} into template expressions. It is a pure text
// rewrite; anything it does not recognise is left untouched.
func RewriteLegacy(source string) string {
	if !strings.Contains(source, "{{") {
		return source
	}
	for _, r := range legacyRewrites {
		source = r.pattern.ReplaceAllString(source, r.replace)
	}
	return source
}
