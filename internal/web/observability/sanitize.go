package observability

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Rune limits for request fields copied into log lines.
const (
	routeLimit  = 180
	methodLimit = 10
	idLimit     = 64
	addrLimit   = 64
)

// clean keeps at most limit printable runes of value. Control characters and
// invalid UTF-8 are dropped so a crafted path cannot forge log lines.
func clean(value string, limit int) string {
	var b strings.Builder
	b.Grow(min(len(value), limit*utf8.UTFMax))
	kept := 0
	for i, r := range value {
		if kept == limit {
			break
		}
		if unicode.IsControl(r) {
			continue
		}
		if r == utf8.RuneError {
			if _, size := utf8.DecodeRuneInString(value[i:]); size <= 1 {
				continue
			}
		}
		b.WriteRune(r)
		kept++
	}
	return b.String()
}

// SanitizeRoute cleans a route pattern or path; empty means the root.
func SanitizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	return clean(route, routeLimit)
}

// SanitizeMethod cleans and upper-cases an HTTP method.
func SanitizeMethod(method string) string {
	return strings.ToUpper(clean(method, methodLimit))
}

// SanitizeID cleans a user or session identifier.
func SanitizeID(id string) string {
	return clean(id, idLimit)
}
