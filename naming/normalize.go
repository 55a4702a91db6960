package naming

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Identifier turns a foreign identifier into a Go identifier: NFKC
// normalization, every rune that may not appear in a Go identifier
// becomes '_', and exported names start with an upper-case letter.
func Identifier(s string, export bool) string {
	s = norm.NFKC.String(s)
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	id := b.String()
	if id == "" {
		return "_"
	}
	first := []rune(id)[0]
	if export {
		if up := unicode.ToUpper(first); unicode.IsUpper(up) {
			return string(up) + id[len(string(first)):]
		}
		return "X" + id
	}
	if unicode.IsDigit(first) {
		return "x" + id
	}
	return id
}

func stripMarks() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// ASCII folds accents away and replaces every remaining non-ASCII rune
// with '_'. Import paths and file names must be ASCII.
func ASCII(s string) string {
	folded, _, err := transform.String(stripMarks(), s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	for _, r := range folded {
		if r < 0x80 {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// PackageSegment normalizes one Java package segment into a Go package
// directory name: lower-case ASCII identifier, reserved words escaped.
func PackageSegment(s string) string {
	seg := cases.Lower(language.Und).String(ASCII(s))
	var b strings.Builder
	for _, r := range seg {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	seg = b.String()
	switch {
	case seg == "":
		seg = "defaultpkg"
	case seg[0] == '_' || (seg[0] >= '0' && seg[0] <= '9'):
		// the go tool ignores directories starting with '_'
		seg = "x" + seg
	}
	return EscapeReserved(seg, func(s string) bool { return goKeywords[s] || packageSegments[s] })
}

// FoldFileName is the comparison key of a file name on case-insensitive
// file systems. Casers are stateful, so each call builds its own.
func FoldFileName(s string) string {
	return cases.Fold().String(s)
}

// FileName derives the generated file name for a type name.
func FileName(typeName string) string {
	base := ToSnakeCase(ASCII(typeName))
	base = strings.Trim(base, "_")
	if base == "" || base[0] == '.' {
		base = "x" + base
	}
	return base + FileSuffix
}

// FileSuffix ends every generated file name. It keeps the go tool from
// reading a trailing _test, _linux or _amd64 element as a build constraint.
const FileSuffix = "_jbind.go"

// DocFileName is the per-package documentation file.
const DocFileName = "doc" + FileSuffix
