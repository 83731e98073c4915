package strcase

import (
	"strings"
	"unicode"
)

// ToLowerSnake converts a Go identifier to snake_case, keeping initialisms
// together: "LookaheadDays" -> "lookahead_days", "CompanyIDs" -> "company_ids".
func ToLowerSnake(s string) string {
	runes := []rune(s)

	var b strings.Builder
	b.Grow(len(s) + 4)

	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && wordBoundary(runes, i) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}

	return b.String()
}

// wordBoundary reports whether the upper-case rune at i starts a new word.
func wordBoundary(runes []rune, i int) bool {
	prev := runes[i-1]
	if unicode.IsLower(prev) || unicode.IsDigit(prev) {
		return true
	}
	if !unicode.IsUpper(prev) || i+1 >= len(runes) {
		return false
	}

	// "HTTPServer": the S starts a word. "CompanyIDs": the trailing s is a plural, not a word.
	next := runes[i+1]
	return unicode.IsLower(next) && !(next == 's' && i+2 == len(runes))
}
