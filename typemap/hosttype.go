// Package typemap maps foreign TypeRefs to Go type expressions in the
// generated code and describes them back for round-trip checks.
package typemap

import (
	"strings"

	"github.com/teranos/jbind/model"
)

// GluePath is the import path of the runtime glue package.
const GluePath = "github.com/teranos/jbind/jglue"

// Category is the foreign category of a mapped type.
type Category uint8

const (
	CatVoid Category = iota
	CatPrimitive
	CatClass
	CatInterface
	CatArray
)

var categoryNames = [...]string{"void", "primitive", "class", "interface", "array"}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return "invalid"
}

// Position is where a type appears in a generated signature.
type Position uint8

const (
	// Param is a parameter or field write: handle values.
	Param Position = iota
	// Result is a return value or field read: owned locals.
	Result
	// Element is an array element type argument.
	Element
)

// Named is a Go type name with its import path.
type Named struct {
	Path string
	Name string
}

func (n Named) String() string {
	if n.Path == "" {
		return n.Name
	}
	return n.Path + "." + n.Name
}

// HostType is the Go rendering of one foreign type.
type HostType struct {
	Category Category
	// Primitive is set for CatPrimitive and for primitive array elements.
	Primitive model.Primitive
	// Rank is the array dimension count, 0 for non-arrays.
	Rank int
	// Class is the foreign class for references and reference arrays.
	Class string
	// Type is the Go type of a reference or array element handle.
	Type Named
	// Owned wraps the whole type in jglue.Local.
	Owned bool
	// Erased lists the type variables erased to produce this type, in
	// first-seen order.
	Erased []string
}

// Void is the mapped void type.
var Void = HostType{Category: CatVoid}

// IsVoid reports whether h is void.
func (h HostType) IsVoid() bool { return h.Category == CatVoid }

// IsReference reports whether h is passed as a reference Value.
func (h HostType) IsReference() bool {
	return h.Category == CatClass || h.Category == CatInterface || h.Category == CatArray
}

var goPrimitives = map[model.Primitive]string{
	model.Boolean: "bool",
	model.Byte:    "int8",
	model.Char:    "uint16",
	model.Short:   "int16",
	model.Int:     "int32",
	model.Long:    "int64",
	model.Float:   "float32",
	model.Double:  "float64",
}

// GoPrimitive returns the Go type of a foreign primitive.
func GoPrimitive(p model.Primitive) string { return goPrimitives[p] }

// ElementString renders the element type of an array: a primitive or a
// handle.
func (h HostType) ElementString() string {
	if h.Type.Name == "" {
		return goPrimitives[h.Primitive]
	}
	return h.Type.String()
}

// Value returns h as a handle value, without the owning Local.
func (h HostType) Value() HostType {
	h.Owned = false
	return h
}

// String renders the fully qualified Go type expression, e.g.
// "github.com/teranos/jbind/jglue.Local[example.com/gen/java/lang.String]".
func (h HostType) String() string {
	var inner string
	switch h.Category {
	case CatVoid:
		return ""
	case CatPrimitive:
		return goPrimitives[h.Primitive]
	case CatArray:
		inner = h.ElementString()
		for i := 0; i < h.Rank; i++ {
			inner = GluePath + ".Array[" + inner + "]"
		}
	default:
		inner = h.Type.String()
	}
	if h.Owned {
		return GluePath + ".Local[" + inner + "]"
	}
	return inner
}

// Mangle returns a short identifier fragment for signature-based names,
// e.g. "int32", "String", "int32Array2".
func (h HostType) Mangle() string {
	switch h.Category {
	case CatVoid:
		return "void"
	case CatPrimitive:
		return goPrimitives[h.Primitive]
	case CatArray:
		elem := h.Type.Name
		if elem == "" {
			elem = goPrimitives[h.Primitive]
		}
		if h.Rank == 1 {
			return elem + "Array"
		}
		return elem + "Array" + string(rune('0'+h.Rank%10))
	default:
		return h.Type.Name
	}
}

// Description is the foreign-side identity of a mapped type.
type Description struct {
	Category  Category
	Primitive model.Primitive
	Rank      int
	Class     string
}

// Describe is the inverse of mapping: the foreign category, array rank and
// class identity h was produced from.
func (h HostType) Describe() Description {
	d := Description{Category: h.Category, Rank: h.Rank, Class: h.Class}
	if h.Category == CatPrimitive || (h.Category == CatArray && h.Class == "" && h.Type.Name == "") {
		d.Primitive = h.Primitive
	}
	return d
}

// TypeRef rebuilds the erased foreign type a description stands for.
// The glue object stands in for the root object type.
func (d Description) TypeRef() model.TypeRef {
	var base model.TypeRef
	switch {
	case d.Category == CatVoid:
		return model.Prim(model.Void)
	case d.Category == CatPrimitive:
		return model.Prim(d.Primitive)
	case d.Class != "":
		base = model.Ref(d.Class)
	case d.Category == CatArray && d.Primitive != model.Void:
		base = model.Prim(d.Primitive)
	default:
		base = model.Ref(model.ObjectClass)
	}
	if d.Rank > 0 {
		return model.ArrayOf(base, d.Rank)
	}
	return base
}

// ShortString renders h with import paths reduced to their last element,
// for messages.
func (h HostType) ShortString() string {
	s := h.String()
	var b strings.Builder
	for _, part := range strings.SplitAfter(s, "[") {
		seg := part
		if i := strings.LastIndexByte(strings.TrimRight(seg, "[]"), '/'); i >= 0 {
			seg = seg[i+1:]
		}
		b.WriteString(seg)
	}
	return b.String()
}
