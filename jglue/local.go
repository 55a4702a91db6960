package jglue

// Local is an owned reference returned by the runtime, typed by the handle
// it binds to. The owner calls Release when done with it.
type Local[T Handle[T]] struct {
	env Env
	ref Ref
}

// NewLocal takes ownership of r.
func NewLocal[T Handle[T]](env Env, r Ref) Local[T] {
	return Local[T]{env: env, ref: r}
}

// Get returns the handle bound to the reference. The handle is valid until
// Release.
func (l Local[T]) Get() T {
	var zero T
	return zero.Bind(l.ref)
}

// JRef returns the owned reference.
func (l Local[T]) JRef() Ref { return l.ref }

// IsNull reports whether the runtime returned null.
func (l Local[T]) IsNull() bool { return l.ref == 0 }

// Release gives the reference back to the runtime. Releasing a null or
// zero Local does nothing.
func (l Local[T]) Release() {
	if l.ref != 0 && l.env != nil {
		l.env.Release(l.ref)
	}
}

// Array is a handle to a managed array with elements of type E. E is the
// host type of one element: a primitive, a handle or a nested Array.
type Array[E any] struct {
	Object
}

// Bind returns an Array for r.
func (Array[E]) Bind(r Ref) Array[E] { return Array[E]{Object: Wrap(r)} }

// Cast rebinds the reference held by h as T. It performs no runtime check.
func Cast[T Handle[T]](h Referent) T {
	var zero T
	if h == nil {
		return zero.Bind(0)
	}
	return zero.Bind(h.JRef())
}
