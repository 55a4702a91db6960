// Package model holds the descriptor model: immutable records describing
// classes, interfaces, fields and methods of a JVM class library, as
// delivered by ingest. Resolution results never live here; later stages
// keep them in side tables keyed by class name and member key.
package model

import (
	"strings"
)

// Kind distinguishes the four JVM type kinds.
type Kind uint8

const (
	KindClass Kind = iota
	KindInterface
	KindEnum
	KindAnnotation
)

var kindNames = [...]string{"class", "interface", "enum", "annotation"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// ParseKind parses a kind keyword.
func ParseKind(s string) (Kind, bool) {
	for i, n := range kindNames {
		if n == s {
			return Kind(i), true
		}
	}
	return 0, false
}

// ObjectClass is the root of the class hierarchy.
const ObjectClass = "java.lang.Object"

// Constructor and static initializer method names.
const (
	ConstructorName       = "<init>"
	StaticInitializerName = "<clinit>"
)

// TypeParam is a declared generic type parameter.
type TypeParam struct {
	Name   string
	Bounds []TypeRef
}

// Param is a method parameter. Name is informational and may be empty.
type Param struct {
	Name string
	Type TypeRef
}

// Field describes one declared field.
type Field struct {
	Name       string
	Modifiers  Modifiers
	Type       TypeRef
	Constant   any // nil, bool, int32, int64, float32, float64 or string
	Deprecated bool
}

// Key is the member key of the field inside its class.
func (f *Field) Key() string {
	return "field:" + f.Name
}

// IsStatic reports whether the field is static.
func (f *Field) IsStatic() bool { return f.Modifiers.Has(Static) }

// Method describes one declared method, constructor or static initializer.
type Method struct {
	Name       string
	Modifiers  Modifiers
	TypeParams []TypeParam
	Params     []Param
	Return     TypeRef
	Throws     []TypeRef
	Deprecated bool
	// Descriptor is the erased JVM method descriptor, e.g. "(ILjava/lang/String;)V".
	// Ingest always fills it; Class.Normalize computes it for hand-built records.
	Descriptor string
}

// Key is the member key: name plus erased descriptor. Unique inside a class.
func (m *Method) Key() string {
	return m.Name + m.Descriptor
}

// IsConstructor reports whether m is an instance initializer.
func (m *Method) IsConstructor() bool { return m.Name == ConstructorName }

// IsStaticInitializer reports whether m is a class initializer.
func (m *Method) IsStaticInitializer() bool { return m.Name == StaticInitializerName }

// IsStatic reports whether m is static.
func (m *Method) IsStatic() bool { return m.Modifiers.Has(Static) }

// Class is one class descriptor.
type Class struct {
	Name        string // dotted binary name, e.g. "java.util.Map$Entry"
	Kind        Kind
	Modifiers   Modifiers
	Super       *TypeRef // nil for the root object type and for interfaces
	Interfaces  []TypeRef
	TypeParams  []TypeParam
	Fields      []Field
	Methods     []Method
	Annotations []string
	Deprecated  bool
	Origin      string // input the record came from
}

// Package returns the dotted package of the class, "" for the default package.
func (c *Class) Package() string {
	return PackageOf(c.Name)
}

// SimpleName returns the class name without its package, nested names
// keep their '$' separators.
func (c *Class) SimpleName() string {
	return SimpleNameOf(c.Name)
}

// IsInterface reports whether c is an interface or annotation type.
func (c *Class) IsInterface() bool {
	return c.Kind == KindInterface || c.Kind == KindAnnotation
}

// Outer returns the binary name of the enclosing class of a nested class.
func (c *Class) Outer() (string, bool) {
	i := strings.LastIndexByte(c.Name, '$')
	if i <= 0 || i <= strings.LastIndexByte(c.Name, '.') {
		return "", false
	}
	return c.Name[:i], true
}

// InternalName returns the slash-separated JVM internal name.
func (c *Class) InternalName() string {
	return InternalName(c.Name)
}

// Scope returns the type-variable scope of the class body.
func (c *Class) Scope(outer Scope) Scope {
	return NewScope(outer, c.TypeParams)
}

// Normalize fills missing method descriptors by erasure against the class
// and method type parameters.
func (c *Class) Normalize(outer Scope) {
	cs := c.Scope(outer)
	for i := range c.Methods {
		m := &c.Methods[i]
		if m.Descriptor != "" {
			continue
		}
		m.Descriptor = MethodDescriptor(NewScope(cs, m.TypeParams), m.Params, m.Return)
	}
}

// PackageOf returns the package part of a dotted binary name.
func PackageOf(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return ""
}

// SimpleNameOf returns the part of a dotted binary name after the package.
func SimpleNameOf(name string) string {
	return name[strings.LastIndexByte(name, '.')+1:]
}

// InternalName converts a dotted binary name to the JVM internal form.
func InternalName(name string) string {
	return strings.ReplaceAll(name, ".", "/")
}

// BinaryName converts a JVM internal name to the dotted binary form.
func BinaryName(internal string) string {
	return strings.ReplaceAll(internal, "/", ".")
}
