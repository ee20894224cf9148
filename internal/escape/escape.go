// Package escape converts between raw XML character data and plain strings.
package escape

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	textEscaper      = strings.NewReplacer("&", "&amp;", "<", "&lt;")
	attributeEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", `"`, "&quot;")
)

// legacyEntities is the reduced entity set understood by older annotation tooling
var legacyEntities = map[string]string{
	"lt":   "<",
	"amp":  "&",
	"quot": `"`,
}

var standardEntities = map[string]string{
	"lt":   "<",
	"gt":   ">",
	"amp":  "&",
	"apos": "'",
	"quot": `"`,
}

// EscapeText escapes '&' and '<' for use as element content
func EscapeText(s string) string {
	return textEscaper.Replace(s)
}

// EscapeAttribute escapes '&', '<' and '"' for use inside a double-quoted attribute value
func EscapeAttribute(s string) string {
	return attributeEscaper.Replace(s)
}

// UnescapeText resolves the standard entities and numeric character references in s
func UnescapeText(s string) string {
	return Unescape(s, false)
}

// UnescapeAttribute resolves entities in an attribute value. Attribute and text values
// share one entity set.
func UnescapeAttribute(s string) string {
	return Unescape(s, false)
}

// Unescape resolves entity references in a single left-to-right pass, so the output of
// one replacement is never scanned again ("&amp;lt;" becomes "&lt;"). With legacy set only
// lt, amp and quot are resolved. Unknown or malformed references are kept verbatim.
func Unescape(s string, legacy bool) string {
	if strings.IndexByte(s, '&') < 0 {
		return s
	}
	entities := standardEntities
	if legacy {
		entities = legacyEntities
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '&' {
			b.WriteByte(s[i])
			continue
		}
		semi := strings.IndexByte(s[i+1:], ';')
		if semi <= 0 {
			b.WriteByte('&')
			continue
		}
		ref := s[i+1 : i+1+semi]
		if replacement, ok := resolve(ref, entities, legacy); ok {
			b.WriteString(replacement)
			i += semi + 1
			continue
		}
		b.WriteByte('&')
	}
	return b.String()
}

func resolve(ref string, entities map[string]string, legacy bool) (string, bool) {
	if ref[0] != '#' {
		v, ok := entities[ref]
		return v, ok
	}
	if legacy {
		return "", false
	}
	r, ok := parseNumericEntity(ref[1:])
	if !ok {
		return "", false
	}
	return string(r), true
}

func parseNumericEntity(digits string) (rune, bool) {
	base := 10
	if strings.HasPrefix(digits, "x") || strings.HasPrefix(digits, "X") {
		base = 16
		digits = digits[1:]
	}
	if digits == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(digits, base, 32)
	if err != nil {
		return 0, false
	}
	r := rune(n)
	if r == 0 || !utf8.ValidRune(r) {
		return 0, false
	}
	return r, true
}
