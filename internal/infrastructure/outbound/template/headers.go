package template

import "strings"

const headerKeyFunc = "header_key"

// foldHeaderLookups rewrites header lookups inside template tags so names
// match in any case: headers["X-Id"] becomes headers[header_key("X-Id")]
// and headers.Accept becomes headers.accept. The bare headers binding and
// request.headers are both covered. Text outside tags is left untouched.
func foldHeaderLookups(source string) string {
	if !strings.Contains(source, "headers") {
		return source
	}

	var b strings.Builder
	b.Grow(len(source) + 16)
	for {
		start, closer := nextTag(source)
		if start < 0 {
			break
		}
		end := strings.Index(source[start+2:], closer)
		if end < 0 {
			break
		}
		end += start + 2
		b.WriteString(source[:start])
		b.WriteString(foldTag(source[start:end]))
		source = source[end:]
	}
	b.WriteString(source)
	return b.String()
}

// nextTag returns the offset of the next {{ or {% and its closing delimiter.
func nextTag(s string) (int, string) {
	v := strings.Index(s, "{{")
	t := strings.Index(s, "{%")
	switch {
	case v < 0 && t < 0:
		return -1, ""
	case t < 0 || (v >= 0 && v < t):
		return v, "}}"
	default:
		return t, "%}"
	}
}

func foldTag(tag string) string {
	const name = "headers"

	var b strings.Builder
	var quote byte
	for i := 0; i < len(tag); i++ {
		c := tag[i]
		if quote != 0 {
			b.WriteByte(c)
			if c == '\\' && i+1 < len(tag) {
				i++
				b.WriteByte(tag[i])
			} else if c == quote {
				quote = 0
			}
			continue
		}
		if c == '"' || c == '\'' {
			quote = c
			b.WriteByte(c)
			continue
		}
		if !isHeadersRef(tag, i) {
			b.WriteByte(c)
			continue
		}

		b.WriteString(name)
		k := i + len(name)
		j := k
		for j < len(tag) && tag[j] == ' ' {
			j++
		}

		switch {
		case j < len(tag) && tag[j] == '[':
			if end := closingBracket(tag, j); end >= 0 {
				b.WriteString(tag[k:j])
				b.WriteString("[" + headerKeyFunc + "(")
				b.WriteString(foldTag(tag[j+1 : end]))
				b.WriteString(")]")
				i = end
				continue
			}
		case k < len(tag) && tag[k] == '.':
			n := k + 1
			for n < len(tag) && isIdentByte(tag[n]) {
				n++
			}
			b.WriteString("." + strings.ToLower(tag[k+1:n]))
			i = n - 1
			continue
		}
		i = k - 1
	}
	return b.String()
}

// isHeadersRef reports whether tag[i:] starts a reference to the headers
// binding or to request.headers.
func isHeadersRef(tag string, i int) bool {
	const name = "headers"
	if !strings.HasPrefix(tag[i:], name) {
		return false
	}
	if end := i + len(name); end < len(tag) && isIdentByte(tag[end]) {
		return false
	}
	before := strings.TrimSuffix(tag[:i], "request.")
	if before == "" {
		return true
	}
	last := before[len(before)-1]
	return !isIdentByte(last) && last != '.'
}

// closingBracket returns the index of the ] matching the [ at open, or -1.
func closingBracket(s string, open int) int {
	depth := 0
	var quote byte
	for i := open; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func isIdentByte(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}
