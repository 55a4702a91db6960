package naming

import (
	"strings"
	"unicode"
)

// ToSnakeCase lower-cases a Go type name into file-name form. An
// underscore goes before an upper-case rune that starts a word: after a
// lower-case rune, or ending an acronym ("HTTPSConnection" ->
// "https_connection"). Existing underscores are not doubled
// ("Outer_Inner" -> "outer_inner").
func ToSnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && runes[i-1] != '_' {
			afterLower := !unicode.IsUpper(runes[i-1])
			endsAcronym := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if afterLower || endsAcronym {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
