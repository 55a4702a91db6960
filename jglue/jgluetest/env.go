// Package jgluetest provides an in-memory jglue.Env with virtual dispatch,
// for testing generated bindings and the glue contract without a JVM.
package jgluetest

import (
	"strings"
	"sync"

	"github.com/teranos/jbind/errors"
	"github.com/teranos/jbind/jglue"
)

// Impl implements a method. self is null for static methods.
type Impl func(env *Env, self jglue.Ref, args []jglue.Value) (jglue.Value, error)

// Class is a fake managed class.
type Class struct {
	Name    string // internal name, "pkg/Base"
	Super   string
	methods map[string]Impl
	statics map[string]Impl
}

// Method defines a virtual method.
func (c *Class) Method(name, desc string, impl Impl) *Class {
	c.methods[name+desc] = impl
	return c
}

// Static defines a static method.
func (c *Class) Static(name, desc string, impl Impl) *Class {
	c.statics[name+desc] = impl
	return c
}

// Constructor defines a constructor. impl runs on the fresh object.
func (c *Class) Constructor(desc string, impl Impl) *Class {
	return c.Method("<init>", desc, impl)
}

type object struct {
	class    string
	fields   map[string]jglue.Value
	released bool
}

// Call records one invocation.
type Call struct {
	Method jglue.MethodID
	// Target is the internal name of the class whose implementation ran.
	Target string
	Self   jglue.Ref
	Args   []jglue.Value
}

// Env is a fake runtime. Safe for concurrent use.
type Env struct {
	mu      sync.Mutex
	classes map[string]*Class
	objects map[jglue.Ref]*object
	statics map[string]jglue.Value
	calls   []Call
	next    jglue.Ref
}

var _ jglue.Env = (*Env)(nil)

// New returns an empty runtime.
func New() *Env {
	return &Env{
		classes: map[string]*Class{},
		objects: map[jglue.Ref]*object{},
		statics: map[string]jglue.Value{},
		next:    1,
	}
}

// Define adds a class extending super ("" for a root).
func (e *Env) Define(name, super string) *Class {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := &Class{Name: name, Super: super, methods: map[string]Impl{}, statics: map[string]Impl{}}
	e.classes[name] = c
	return c
}

// Alloc creates an object of class without running a constructor.
func (e *Env) Alloc(class string) jglue.Ref {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.alloc(class)
}

func (e *Env) alloc(class string) jglue.Ref {
	r := e.next
	e.next++
	e.objects[r] = &object{class: class, fields: map[string]jglue.Value{}}
	return r
}

// ClassOf returns the runtime class of r.
func (e *Env) ClassOf(r jglue.Ref) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	o, ok := e.objects[r]
	if !ok {
		return "", false
	}
	return o.class, true
}

// Live returns the number of allocated, unreleased references.
func (e *Env) Live() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, o := range e.objects {
		if !o.released {
			n++
		}
	}
	return n
}

// Calls returns the recorded invocations in order.
func (e *Env) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Call(nil), e.calls...)
}

// Throw returns a managed exception for impls to fail with.
func (e *Env) Throw(class, message string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.throwLocked(class, message)
}

// throwLocked allocates the exception object. class is a binary name.
func (e *Env) throwLocked(class, message string) error {
	return &jglue.Throwable{Class: class, Message: message, Ref: e.alloc(strings.ReplaceAll(class, ".", "/"))}
}

func (e *Env) live(r jglue.Ref) (*object, error) {
	if r == 0 {
		return nil, e.throwLocked("java.lang.NullPointerException", "")
	}
	o, ok := e.objects[r]
	if !ok || o.released {
		return nil, errors.AssertionFailedf("use of invalid reference %#x", uintptr(r))
	}
	return o, nil
}

// resolve finds the implementation of key starting at class and walking
// superclasses, most-derived first.
func (e *Env) resolve(class, key string) (*Class, Impl) {
	for name := class; name != ""; {
		c, ok := e.classes[name]
		if !ok {
			return nil, nil
		}
		if impl, ok := c.methods[key]; ok {
			return c, impl
		}
		name = c.Super
	}
	return nil, nil
}

func (e *Env) call(c Call, impl Impl, args []jglue.Value) (jglue.Value, error) {
	e.calls = append(e.calls, c)
	// impls may call back into the env
	e.mu.Unlock()
	defer e.mu.Lock()
	return impl(e, c.Self, args)
}

// Invoke implements jglue.Env.
func (e *Env) Invoke(obj jglue.Ref, m jglue.MethodID, args ...jglue.Value) (jglue.Value, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	o, err := e.live(obj)
	if err != nil {
		return jglue.Void, err
	}
	key := m.Name + m.Descriptor
	target, impl := e.resolve(o.class, key)
	if impl == nil {
		// default methods live on the interface itself
		if c, ok := e.classes[m.Class]; ok {
			target, impl = c, c.methods[key]
		}
	}
	if impl == nil {
		return jglue.Void, e.throwLocked("java.lang.NoSuchMethodError", m.String())
	}
	return e.call(Call{Method: m, Target: target.Name, Self: obj, Args: args}, impl, args)
}

// InvokeStatic implements jglue.Env.
func (e *Env) InvokeStatic(m jglue.MethodID, args ...jglue.Value) (jglue.Value, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.classes[m.Class]
	if !ok {
		return jglue.Void, e.throwLocked("java.lang.NoClassDefFoundError", m.Class)
	}
	impl, ok := c.statics[m.Name+m.Descriptor]
	if !ok {
		return jglue.Void, e.throwLocked("java.lang.NoSuchMethodError", m.String())
	}
	return e.call(Call{Method: m, Target: c.Name, Args: args}, impl, args)
}

// New implements jglue.Env.
func (e *Env) New(m jglue.MethodID, args ...jglue.Value) (jglue.Ref, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.classes[m.Class]
	if !ok {
		return 0, e.throwLocked("java.lang.NoClassDefFoundError", m.Class)
	}
	impl, ok := c.methods[m.Name+m.Descriptor]
	if !ok {
		return 0, e.throwLocked("java.lang.NoSuchMethodError", m.String())
	}
	r := e.alloc(c.Name)
	if _, err := e.call(Call{Method: m, Target: c.Name, Self: r, Args: args}, impl, args); err != nil {
		e.objects[r].released = true
		return 0, err
	}
	return r, nil
}

func fieldKey(f jglue.FieldID) string { return f.Class + "." + f.Name }

// GetField implements jglue.Env.
func (e *Env) GetField(obj jglue.Ref, f jglue.FieldID) (jglue.Value, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	o, err := e.live(obj)
	if err != nil {
		return jglue.Void, err
	}
	return o.fields[fieldKey(f)], nil
}

// SetField implements jglue.Env.
func (e *Env) SetField(obj jglue.Ref, f jglue.FieldID, v jglue.Value) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	o, err := e.live(obj)
	if err != nil {
		return err
	}
	o.fields[fieldKey(f)] = v
	return nil
}

// GetStaticField implements jglue.Env.
func (e *Env) GetStaticField(f jglue.FieldID) (jglue.Value, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statics[fieldKey(f)], nil
}

// SetStaticField implements jglue.Env.
func (e *Env) SetStaticField(f jglue.FieldID, v jglue.Value) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.statics[fieldKey(f)] = v
	return nil
}

// Release implements jglue.Env.
func (e *Env) Release(r jglue.Ref) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if o, ok := e.objects[r]; ok {
		o.released = true
	}
}
