// Package jglue is the runtime contract generated bindings compile
// against. A binding never touches the managed runtime directly: it holds
// opaque references, packs arguments into Values and asks an Env to
// invoke, construct, read and write on its behalf. An Env implementation
// owns reference lifetimes and method lookup; jgluetest provides an
// in-memory one for tests.
package jglue

import "fmt"

// Ref is an opaque reference to a managed object. The zero Ref is null.
type Ref uintptr

// Referent is implemented by every generated handle.
type Referent interface {
	JRef() Ref
}

// Handle is the constraint satisfied by generated handle types: a value
// wrapping a reference that can rebind itself to another reference.
type Handle[T any] interface {
	Referent
	Bind(Ref) T
}

// Object is the root handle. Generated root classes embed it.
type Object struct {
	ref Ref
}

// Wrap returns an Object for r.
func Wrap(r Ref) Object { return Object{ref: r} }

// JRef returns the wrapped reference.
func (o Object) JRef() Ref { return o.ref }

// IsNull reports whether the handle holds the null reference.
func (o Object) IsNull() bool { return o.ref == 0 }

// Bind returns an Object for r.
func (Object) Bind(r Ref) Object { return Object{ref: r} }

func (o Object) String() string { return fmt.Sprintf("jglue.Object(%#x)", uintptr(o.ref)) }

// MethodID names a method, constructor or static method by its declaring
// class (internal form, "java/lang/String"), name and JVM descriptor.
type MethodID struct {
	Class      string
	Name       string
	Descriptor string
}

func (m MethodID) String() string { return m.Class + "." + m.Name + m.Descriptor }

// FieldID names a field by its declaring class, name and type descriptor.
type FieldID struct {
	Class      string
	Name       string
	Descriptor string
}

func (f FieldID) String() string { return f.Class + "." + f.Name + ":" + f.Descriptor }

// Env performs operations in the managed runtime. Invoke dispatches
// virtually: the most-derived override of m for obj's runtime class runs.
// References returned inside Values are owned by the caller and are given
// back with Release.
type Env interface {
	Invoke(obj Ref, m MethodID, args ...Value) (Value, error)
	InvokeStatic(m MethodID, args ...Value) (Value, error)
	New(m MethodID, args ...Value) (Ref, error)
	GetField(obj Ref, f FieldID) (Value, error)
	SetField(obj Ref, f FieldID, v Value) error
	GetStaticField(f FieldID) (Value, error)
	SetStaticField(f FieldID, v Value) error
	Release(r Ref)
}

// Throwable is a managed exception surfaced as a Go error.
type Throwable struct {
	// Class is the binary name of the exception class.
	Class   string
	Message string
	// Ref is the exception object, owned by the receiver of the error.
	Ref Ref
}

func (t *Throwable) Error() string {
	if t.Message == "" {
		return t.Class
	}
	return t.Class + ": " + t.Message
}

// JRef returns the exception object.
func (t *Throwable) JRef() Ref { return t.Ref }
