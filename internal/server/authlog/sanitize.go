package authlog

import (
	"strings"
	"unicode/utf8"
)

// denylist holds lowercased attribute keys that never reach a sink.
var denylist = map[string]struct{}{
	"password":        {},
	"token":           {},
	"secret":          {},
	"accesstoken":     {},
	"refreshtoken":    {},
	"twofactorsecret": {},
	"backupcodes":     {},
}

// IsDenied reports whether an attribute key is on the secret denylist.
// Matching ignores case.
func IsDenied(key string) bool {
	_, ok := denylist[strings.ToLower(key)]
	return ok
}

// MaskEmail keeps the first and last character of the local part and stars
// the rest; the domain is kept as is. Input without '@' is masked as a bare
// local part.
//
//	alice@x -> a***e@x
//	ab@x    -> a*@x
//	a@x     -> *@x
func MaskEmail(email string) string {
	local, domain, hasAt := strings.Cut(email, "@")

	n := utf8.RuneCountInString(local)
	var b strings.Builder
	b.Grow(len(email))

	switch {
	case n == 0:
	case n == 1:
		b.WriteByte('*')
	case n == 2:
		r, _ := utf8.DecodeRuneInString(local)
		b.WriteRune(r)
		b.WriteByte('*')
	default:
		first, _ := utf8.DecodeRuneInString(local)
		last, _ := utf8.DecodeLastRuneInString(local)
		b.WriteRune(first)
		b.WriteString(strings.Repeat("*", n-2))
		b.WriteRune(last)
	}

	if hasAt {
		b.WriteByte('@')
		b.WriteString(domain)
	}
	return b.String()
}

// Sanitize returns a copy of attrs with denylisted keys removed and every
// "email" value masked. Nested maps and slices are walked.
func Sanitize(attrs map[string]any) map[string]any {
	if attrs == nil {
		return nil
	}
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		if IsDenied(k) {
			continue
		}
		if strings.EqualFold(k, "email") {
			if s, ok := v.(string); ok {
				out[k] = MaskEmail(s)
				continue
			}
		}
		out[k] = sanitizeValue(v)
	}
	return out
}

func sanitizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return Sanitize(val)
	case map[string]string:
		m := make(map[string]any, len(val))
		for k, s := range val {
			m[k] = s
		}
		return Sanitize(m)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = sanitizeValue(item)
		}
		return out
	case []map[string]any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Sanitize(item)
		}
		return out
	default:
		return v
	}
}
