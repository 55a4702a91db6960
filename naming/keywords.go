package naming

// goKeywords cannot be used as identifiers at all.
var goKeywords = map[string]bool{
	"break": true, "case": true, "chan": true, "const": true, "continue": true,
	"default": true, "defer": true, "else": true, "fallthrough": true, "for": true,
	"func": true, "go": true, "goto": true, "if": true, "import": true,
	"interface": true, "map": true, "package": true, "range": true, "return": true,
	"select": true, "struct": true, "switch": true, "type": true, "var": true,
	// the blank identifier declares nothing
	"_": true,
}

// predeclared identifiers may be shadowed, but generated code refers to
// several of them, so unexported bindings must not redeclare them.
var predeclared = map[string]bool{
	"any": true, "bool": true, "byte": true, "comparable": true, "complex64": true,
	"complex128": true, "error": true, "float32": true, "float64": true, "int": true,
	"int8": true, "int16": true, "int32": true, "int64": true, "rune": true,
	"string": true, "uint": true, "uint8": true, "uint16": true, "uint32": true,
	"uint64": true, "uintptr": true, "true": true, "false": true, "iota": true,
	"nil": true, "append": true, "cap": true, "clear": true, "close": true,
	"complex": true, "copy": true, "delete": true, "imag": true, "len": true,
	"make": true, "max": true, "min": true, "new": true, "panic": true,
	"print": true, "println": true, "real": true, "recover": true,
	// names used by generated code
	"env": true, "ref": true, "ret": true, "err": true, "jglue": true,
}

// packageSegments are directory names the go tool treats specially.
var packageSegments = map[string]bool{
	"main":     true,
	"internal": true,
	"vendor":   true,
	"testdata": true,
}

// HandleSelectors are promoted onto every generated handle type by the
// glue object; generated members must not shadow them.
var HandleSelectors = []string{"Bind", "JRef", "IsNull"}

// IsKeyword reports whether s is a Go keyword or the blank identifier.
func IsKeyword(s string) bool {
	return goKeywords[s]
}

// IsReservedPackageLevel reports whether s cannot name a package-level
// declaration in generated code.
func IsReservedPackageLevel(s string) bool {
	return goKeywords[s] || predeclared[s]
}

// EscapeReserved appends an underscore while s is reserved.
func EscapeReserved(s string, reserved func(string) bool) string {
	for i := 0; i < 4 && reserved(s); i++ {
		s += "_"
	}
	return s
}
