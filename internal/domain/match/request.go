package match

import (
	"net/textproto"
	"strings"
)

// IncomingRequest represents an HTTP request in domain terms, free of net/http.
type IncomingRequest struct {
	Method   string
	Path     string
	RawQuery string
	// Query, Headers and Cookies hold the first value of each name.
	Query   map[string]string
	Headers map[string]string
	Cookies map[string]string
	Body    []byte
}

// Header returns the named header value, ignoring case.
func (r *IncomingRequest) Header(name string) (string, bool) {
	return lookupFold(r.Headers, name, textproto.CanonicalMIMEHeaderKey(name))
}

// QueryValue returns the named query parameter.
func (r *IncomingRequest) QueryValue(name string) (string, bool) {
	v, ok := r.Query[name]
	return v, ok
}

// Cookie returns the named cookie value.
func (r *IncomingRequest) Cookie(name string) (string, bool) {
	v, ok := r.Cookies[name]
	return v, ok
}

// RenderContext is the per-request data exposed to response templates.
type RenderContext struct {
	Method  string
	Path    string
	Body    []byte
	JSON    any // parsed body, nil when the body is not JSON
	Query   map[string]string
	Headers map[string]string
	Cookies map[string]string
	Route   map[string]string
	// Buckets holds the data buckets of the matched definition's collection.
	Buckets map[string]any
}

func lookupFold(m map[string]string, name, canonical string) (string, bool) {
	if v, ok := m[canonical]; ok {
		return v, true
	}
	if v, ok := m[name]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}
