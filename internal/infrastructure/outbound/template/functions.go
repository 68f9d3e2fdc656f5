package template

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/flosch/pongo2/v6"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	defaultRandomIntMax  = 100
	defaultRandomStrLen  = 16
	maxRandomStringBytes = 4096
)

func generateUUID() string {
	return uuid.NewString()
}

func randomInt(args ...*pongo2.Value) int {
	lo, hi := 0, defaultRandomIntMax
	switch len(args) {
	case 0:
	case 1:
		hi = args[0].Integer()
	default:
		lo, hi = args[0].Integer(), args[1].Integer()
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	// The span is computed modulo 2^64 so any pair of bounds fits.
	span := uint64(hi) - uint64(lo)
	if span == math.MaxUint64 {
		return int(rand.Uint64())
	}
	return lo + int(rand.Uint64N(span+1))
}

func randomFloat(args ...*pongo2.Value) decimal {
	lo, hi := 0.0, 1.0
	switch len(args) {
	case 0:
	case 1:
		hi = args[0].Float()
	default:
		lo, hi = args[0].Float(), args[1].Float()
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	return decimal(lo + rand.Float64()*(hi-lo))
}

func randomBool() boolean {
	return rand.IntN(2) == 1
}

func pick(list []string) string {
	return list[rand.IntN(len(list))]
}

func randomFirstName() string { return pick(firstNames) }
func randomLastName() string  { return pick(lastNames) }

func randomName() string {
	return randomFirstName() + " " + randomLastName()
}

func randomEmail() string {
	local := strings.ToLower(randomFirstName() + "." + randomLastName())
	return fmt.Sprintf("%s%d@%s", local, rand.IntN(1000), pick(emailDomains))
}

func randomPhone() string {
	return fmt.Sprintf("+1-555-%03d-%04d", rand.IntN(1000), rand.IntN(10000))
}

// randomString returns a string of n characters drawn from alphabet.
// Defaults are 16 alphanumeric characters.
func randomString(args ...*pongo2.Value) string {
	n, alphabet := defaultRandomStrLen, alphanumeric
	if len(args) > 0 {
		n = args[0].Integer()
	}
	if len(args) > 1 && args[1].String() != "" {
		alphabet = args[1].String()
	}
	if n <= 0 {
		return ""
	}
	n = min(n, maxRandomStringBytes)

	runes := []rune(alphabet)
	var b strings.Builder
	b.Grow(n)
	for range n {
		b.WriteRune(runes[rand.IntN(len(runes))])
	}
	return b.String()
}

func toJSONString(v *pongo2.Value) string {
	b, err := json.Marshal(v.Interface())
	if err != nil {
		return v.String()
	}
	return string(b)
}

// decodeSource turns a helper's optional source argument into a JSON value.
// Strings are parsed as JSON documents; anything else is used as is.
func decodeSource(v *pongo2.Value) (any, bool) {
	if v == nil || v.IsNil() {
		return nil, false
	}
	if s, ok := v.Interface().(string); ok {
		var data any
		if err := json.Unmarshal([]byte(s), &data); err != nil {
			return nil, false
		}
		return normalizeJSON(data), true
	}
	return v.Interface(), true
}

func extractJSONPath(data any, expression string) any {
	if !strings.HasPrefix(expression, "$") {
		expression = "$." + expression
	}
	result, err := jsonpath.Get(expression, data)
	if err != nil {
		return nil
	}
	return result
}

func rawSource(v *pongo2.Value) ([]byte, bool) {
	if v == nil || v.IsNil() {
		return nil, false
	}
	if s, ok := v.Interface().(string); ok {
		return []byte(s), true
	}
	b, err := json.Marshal(v.Interface())
	if err != nil {
		return nil, false
	}
	return b, true
}

func extractGJSON(doc []byte, path string) any {
	if !gjson.ValidBytes(doc) {
		return nil
	}
	r := gjson.GetBytes(doc, path)
	if !r.Exists() {
		return nil
	}
	return normalizeJSON(r.Value())
}

// setJSON returns doc with value stored at path. doc may be a JSON string
// or any JSON-encodable value; the result is always a JSON string.
func setJSON(doc *pongo2.Value, path string, value *pongo2.Value) (string, error) {
	raw, ok := rawSource(doc)
	if !ok || len(raw) == 0 {
		raw = []byte("{}")
	}
	out, err := sjson.SetBytes(raw, path, value.Interface())
	if err != nil {
		return "", fmt.Errorf("json_set %q: %w", path, err)
	}
	return string(out), nil
}

func init() {
	if err := pongo2.RegisterFilter("tojson", filterToJSON); err != nil {
		panic(err)
	}
}

func filterToJSON(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	return pongo2.AsValue(toJSONString(in)), nil
}

// decimal is a JSON number that prints the way it was written.
type decimal float64

func (d decimal) String() string { return strconv.FormatFloat(float64(d), 'f', -1, 64) }

func (d decimal) MarshalJSON() ([]byte, error) {
	return []byte(d.String()), nil
}

// boolean is a JSON boolean that prints as true or false.
type boolean bool

func (b boolean) String() string { return strconv.FormatBool(bool(b)) }

// normalizeJSON converts decoded JSON so that values print as JSON literals
// inside templates: integral numbers become int, other numbers decimal and
// booleans boolean. Objects and arrays are copied.
func normalizeJSON(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = normalizeJSON(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalizeJSON(item)
		}
		return out
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return int(t)
		}
		return decimal(t)
	case bool:
		return boolean(t)
	default:
		return v
	}
}
