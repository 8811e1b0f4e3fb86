// Package string holds small string helpers shared by validation and
// handlers.
package string

import (
	"strings"
	"unicode"
)

// ToSnakeCase converts a Go field name to its snake_case JSON form. Runs of
// capitals are kept together, so UserID becomes user_id and SourceIP
// becomes source_ip.
func ToSnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && wordStart(runes, i) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// wordStart reports whether the capital at i opens a new word: it follows a
// lower case letter or digit, or it ends an acronym that precedes one.
func wordStart(runes []rune, i int) bool {
	prev := runes[i-1]
	if unicode.IsLower(prev) || unicode.IsDigit(prev) {
		return true
	}
	return i+1 < len(runes) && unicode.IsLower(runes[i+1])
}
