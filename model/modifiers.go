package model

import "strings"

// Modifiers is a set of access and property flags. Bit values follow the
// JVM class-file access flags so class-file input maps without translation.
type Modifiers uint16

const (
	Public       Modifiers = 0x0001
	Private      Modifiers = 0x0002
	Protected    Modifiers = 0x0004
	Static       Modifiers = 0x0008
	Final        Modifiers = 0x0010
	Synchronized Modifiers = 0x0020
	Bridge       Modifiers = 0x0040 // methods
	Volatile     Modifiers = 0x0040 // fields
	Varargs      Modifiers = 0x0080 // methods
	Transient    Modifiers = 0x0080 // fields
	Native       Modifiers = 0x0100
	Interface    Modifiers = 0x0200
	Abstract     Modifiers = 0x0400
	Strict       Modifiers = 0x0800
	Synthetic    Modifiers = 0x1000
	Annotation   Modifiers = 0x2000
	Enum         Modifiers = 0x4000
)

// Has reports whether every flag in f is set.
func (m Modifiers) Has(f Modifiers) bool {
	return m&f == f
}

// Visibility is the access level implied by the modifiers.
type Visibility uint8

const (
	VisibilityPackage Visibility = iota
	VisibilityPrivate
	VisibilityProtected
	VisibilityPublic
)

// Visibility returns the access level.
func (m Modifiers) Visibility() Visibility {
	switch {
	case m.Has(Public):
		return VisibilityPublic
	case m.Has(Protected):
		return VisibilityProtected
	case m.Has(Private):
		return VisibilityPrivate
	}
	return VisibilityPackage
}

// memberModifierNames is used for parsing and rendering method and field
// modifiers. Class-level interface/annotation/enum are carried by Kind.
var memberModifierNames = []struct {
	name string
	flag Modifiers
}{
	{"public", Public},
	{"private", Private},
	{"protected", Protected},
	{"static", Static},
	{"final", Final},
	{"synchronized", Synchronized},
	{"bridge", Bridge},
	{"varargs", Varargs},
	{"native", Native},
	{"abstract", Abstract},
	{"strictfp", Strict},
	{"synthetic", Synthetic},
}

// ParseModifier returns the flag for a modifier keyword.
func ParseModifier(name string) (Modifiers, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "volatile":
		return Volatile, true
	case "transient":
		return Transient, true
	}
	for _, m := range memberModifierNames {
		if m.name == name {
			return m.flag, true
		}
	}
	return 0, false
}

// Names lists the modifier keywords set in m.
func (m Modifiers) Names() []string {
	var out []string
	for _, n := range memberModifierNames {
		if m.Has(n.flag) {
			out = append(out, n.name)
		}
	}
	return out
}

func (m Modifiers) String() string {
	return strings.Join(m.Names(), " ")
}
