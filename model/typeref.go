package model

import (
	"strings"
)

// Primitive identifies a JVM primitive type.
type Primitive uint8

const (
	Void Primitive = iota
	Boolean
	Byte
	Char
	Short
	Int
	Long
	Float
	Double
)

var primitiveNames = [...]string{
	Void:    "void",
	Boolean: "boolean",
	Byte:    "byte",
	Char:    "char",
	Short:   "short",
	Int:     "int",
	Long:    "long",
	Float:   "float",
	Double:  "double",
}

var primitiveDescriptors = [...]byte{
	Void:    'V',
	Boolean: 'Z',
	Byte:    'B',
	Char:    'C',
	Short:   'S',
	Int:     'I',
	Long:    'J',
	Float:   'F',
	Double:  'D',
}

func (p Primitive) String() string {
	if int(p) < len(primitiveNames) {
		return primitiveNames[p]
	}
	return "invalid"
}

// Descriptor returns the single-letter JVM descriptor of p.
func (p Primitive) Descriptor() byte {
	return primitiveDescriptors[p]
}

// PrimitiveByName looks up a primitive by its Java keyword.
func PrimitiveByName(name string) (Primitive, bool) {
	for i, n := range primitiveNames {
		if n == name {
			return Primitive(i), true
		}
	}
	return 0, false
}

// PrimitiveByDescriptor looks up a primitive by its JVM descriptor letter.
func PrimitiveByDescriptor(c byte) (Primitive, bool) {
	for i, d := range primitiveDescriptors {
		if d == c {
			return Primitive(i), true
		}
	}
	return 0, false
}

// Tag discriminates the TypeRef variant.
type Tag uint8

const (
	TagPrimitive Tag = iota
	TagArray
	TagReference
	TagVariable
	TagWildcard
)

// BoundKind is the bound of a wildcard type argument.
type BoundKind uint8

const (
	Unbounded BoundKind = iota // ?
	Extends                    // ? extends B
	Super                      // ? super B
)

// TypeRef is a reference to a type: a primitive, an array, a (possibly
// parameterized) class, a type variable or a wildcard.
type TypeRef struct {
	Tag       Tag
	Primitive Primitive // TagPrimitive
	Elem      *TypeRef  // TagArray: element type (never itself an array)
	Dims      int       // TagArray: rank, >= 1
	Name      string    // TagReference: dotted binary name; TagVariable: variable name
	Args      []TypeRef // TagReference: generic arguments
	Owner     *TypeRef  // TagReference: parameterized outer type, if any
	Bound     *TypeRef  // TagWildcard
	BoundKind BoundKind // TagWildcard
}

// Prim returns a primitive TypeRef.
func Prim(p Primitive) TypeRef {
	return TypeRef{Tag: TagPrimitive, Primitive: p}
}

// Ref returns a reference TypeRef to the class name with optional generic arguments.
func Ref(name string, args ...TypeRef) TypeRef {
	return TypeRef{Tag: TagReference, Name: name, Args: args}
}

// Var returns a type variable TypeRef.
func Var(name string) TypeRef {
	return TypeRef{Tag: TagVariable, Name: name}
}

// ArrayOf returns an array of elem with the given additional rank.
// Arrays of arrays are flattened into a single rank count.
func ArrayOf(elem TypeRef, dims int) TypeRef {
	if elem.Tag == TagArray {
		inner := *elem.Elem
		return TypeRef{Tag: TagArray, Elem: &inner, Dims: elem.Dims + dims}
	}
	return TypeRef{Tag: TagArray, Elem: &elem, Dims: dims}
}

// Wildcard returns a wildcard type argument.
func Wildcard(kind BoundKind, bound *TypeRef) TypeRef {
	return TypeRef{Tag: TagWildcard, BoundKind: kind, Bound: bound}
}

// IsVoid reports whether t is the void return type.
func (t TypeRef) IsVoid() bool {
	return t.Tag == TagPrimitive && t.Primitive == Void
}

// IsReference reports whether values of t are object references.
func (t TypeRef) IsReference() bool {
	return t.Tag != TagPrimitive
}

// References returns every class name t mentions, in first-seen order.
func (t TypeRef) References() []string {
	var out []string
	seen := map[string]bool{}
	var walk func(r TypeRef)
	walk = func(r TypeRef) {
		switch r.Tag {
		case TagReference:
			if !seen[r.Name] {
				seen[r.Name] = true
				out = append(out, r.Name)
			}
			if r.Owner != nil {
				walk(*r.Owner)
			}
			for _, a := range r.Args {
				walk(a)
			}
		case TagArray:
			walk(*r.Elem)
		case TagWildcard:
			if r.Bound != nil {
				walk(*r.Bound)
			}
		}
	}
	walk(t)
	return out
}

// String renders t in Java source notation.
func (t TypeRef) String() string {
	var b strings.Builder
	t.write(&b)
	return b.String()
}

func (t TypeRef) write(b *strings.Builder) {
	switch t.Tag {
	case TagPrimitive:
		b.WriteString(t.Primitive.String())
	case TagArray:
		t.Elem.write(b)
		for i := 0; i < t.Dims; i++ {
			b.WriteString("[]")
		}
	case TagReference:
		b.WriteString(t.Name)
		if len(t.Args) > 0 {
			b.WriteByte('<')
			for i, a := range t.Args {
				if i > 0 {
					b.WriteString(", ")
				}
				a.write(b)
			}
			b.WriteByte('>')
		}
	case TagVariable:
		b.WriteString(t.Name)
	case TagWildcard:
		b.WriteByte('?')
		if t.Bound != nil {
			switch t.BoundKind {
			case Extends:
				b.WriteString(" extends ")
			case Super:
				b.WriteString(" super ")
			}
			t.Bound.write(b)
		}
	}
}

// Equal reports structural equality.
func (t TypeRef) Equal(o TypeRef) bool {
	if t.Tag != o.Tag {
		return false
	}
	switch t.Tag {
	case TagPrimitive:
		return t.Primitive == o.Primitive
	case TagArray:
		return t.Dims == o.Dims && t.Elem.Equal(*o.Elem)
	case TagReference:
		if t.Name != o.Name || len(t.Args) != len(o.Args) {
			return false
		}
		for i := range t.Args {
			if !t.Args[i].Equal(o.Args[i]) {
				return false
			}
		}
		return true
	case TagVariable:
		return t.Name == o.Name
	case TagWildcard:
		if t.BoundKind != o.BoundKind || (t.Bound == nil) != (o.Bound == nil) {
			return false
		}
		return t.Bound == nil || t.Bound.Equal(*o.Bound)
	}
	return false
}
