package model

import "strings"

// Scope resolves type variables to their declarations.
type Scope interface {
	Lookup(name string) (TypeParam, bool)
}

type scope struct {
	parent Scope
	params []TypeParam
}

// NewScope returns a scope declaring params, falling back to parent.
// A nil parent is an empty scope.
func NewScope(parent Scope, params []TypeParam) Scope {
	return &scope{parent: parent, params: params}
}

func (s *scope) Lookup(name string) (TypeParam, bool) {
	for _, p := range s.params {
		if p.Name == name {
			return p, true
		}
	}
	if s.parent != nil {
		return s.parent.Lookup(name)
	}
	return TypeParam{}, false
}

// maxErasureDepth bounds variable-to-bound chasing for malformed input
// such as <T extends U, U extends T>.
const maxErasureDepth = 32

// Erasure returns the erased type: generic arguments dropped, type
// variables replaced by the erasure of their first bound (Object when
// unbounded or undeclared), wildcards by the erasure of their upper bound.
func (t TypeRef) Erasure(s Scope) TypeRef {
	return t.erase(s, 0)
}

func (t TypeRef) erase(s Scope, depth int) TypeRef {
	if depth > maxErasureDepth {
		return Ref(ObjectClass)
	}
	switch t.Tag {
	case TagArray:
		elem := t.Elem.erase(s, depth+1)
		return ArrayOf(elem, t.Dims)
	case TagReference:
		return Ref(t.Name)
	case TagVariable:
		if s != nil {
			if p, ok := s.Lookup(t.Name); ok && len(p.Bounds) > 0 {
				return p.Bounds[0].erase(s, depth+1)
			}
		}
		return Ref(ObjectClass)
	case TagWildcard:
		if t.BoundKind == Extends && t.Bound != nil {
			return t.Bound.erase(s, depth+1)
		}
		return Ref(ObjectClass)
	}
	return t
}

// Descriptor returns the JVM field descriptor of the erasure of t.
func (t TypeRef) Descriptor(s Scope) string {
	var b strings.Builder
	writeDescriptor(&b, t.Erasure(s))
	return b.String()
}

func writeDescriptor(b *strings.Builder, t TypeRef) {
	switch t.Tag {
	case TagPrimitive:
		b.WriteByte(t.Primitive.Descriptor())
	case TagArray:
		for i := 0; i < t.Dims; i++ {
			b.WriteByte('[')
		}
		writeDescriptor(b, *t.Elem)
	case TagReference:
		b.WriteByte('L')
		b.WriteString(InternalName(t.Name))
		b.WriteByte(';')
	}
}

// MethodDescriptor returns the erased JVM method descriptor.
func MethodDescriptor(s Scope, params []Param, ret TypeRef) string {
	var b strings.Builder
	b.WriteByte('(')
	for _, p := range params {
		writeDescriptor(&b, p.Type.Erasure(s))
	}
	b.WriteByte(')')
	writeDescriptor(&b, ret.Erasure(s))
	return b.String()
}
