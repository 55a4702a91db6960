// Package overload decides the Go method and function names of every
// member. Go has no overloading and only embedding for inheritance, so
// names are chosen class by class, supertypes first: overrides keep the
// name their ancestor uses, overloads are told apart by suffix, and
// interfaces a class cannot satisfy by name are reported and left
// unasserted.
package overload

import (
	"sort"
	"strings"

	"github.com/teranos/jbind/graph"
	"github.com/teranos/jbind/model"
	"github.com/teranos/jbind/naming"
	"github.com/teranos/jbind/typemap"
)

// Collision values.
const (
	CollisionSuffix    = "suffix"
	CollisionSignature = "signature"
)

// Strategy records how a name was chosen.
type Strategy uint8

const (
	StrategyUnique Strategy = iota
	StrategySuffixed
	StrategySignature
	StrategyInherited
	StrategyRenamed
)

var strategyNames = [...]string{"unique", "suffixed", "signature", "inherited", "renamed"}

func (s Strategy) String() string {
	if int(s) < len(strategyNames) {
		return strategyNames[s]
	}
	return "unknown"
}

// MemberKind distinguishes methods on a handle type.
type MemberKind uint8

const (
	// KindMethod wraps a declared instance method.
	KindMethod MemberKind = iota
	// KindGetter reads an instance field.
	KindGetter
	// KindSetter writes an instance field.
	KindSetter
	// KindAlias forwards an interface-required name to the method the
	// class provides under another name.
	KindAlias
	// KindInterfaceWrapper invokes an interface method the ancestor chain
	// does not provide under the required name.
	KindInterfaceWrapper
)

var memberKindNames = [...]string{"method", "getter", "setter", "alias", "interface-wrapper"}

func (k MemberKind) String() string {
	if int(k) < len(memberKindNames) {
		return memberKindNames[k]
	}
	return "unknown"
}

// Member is a Go method on a generated handle or capability interface.
type Member struct {
	Name     string
	Kind     MemberKind
	Strategy Strategy
	// Declarer is the foreign class whose method or field is called.
	Declarer string
	// Key is the member key inside Declarer.
	Key string
	// Override identifies the member across the hierarchy: name plus
	// erased parameter descriptor, or the field accessor key.
	Override string
	Method   *model.Method
	Field    *model.Field
	Params   []typemap.HostType
	Result   typemap.HostType
	// Target is the method an alias forwards to.
	Target string
}

// Signature renders the Go parameter and result types. Two members with
// equal signatures are interchangeable in a Go method set.
func (m *Member) Signature() string {
	return signature(m.Params, m.Result)
}

func signature(params []typemap.HostType, result typemap.HostType) string {
	var b strings.Builder
	b.WriteByte('(')
	for i, p := range params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.String())
	}
	b.WriteByte(')')
	if !result.IsVoid() {
		b.WriteByte(' ')
		b.WriteString(result.String())
	}
	return b.String()
}

// IsWrapper reports whether m exists only to satisfy an interface.
func (m *Member) IsWrapper() bool {
	return m.Kind == KindAlias || m.Kind == KindInterfaceWrapper
}

// FuncKind distinguishes package-level functions.
type FuncKind uint8

const (
	FuncConstructor FuncKind = iota
	FuncStatic
	FuncStaticGet
	FuncStaticSet
)

// Func is a package-level function: a constructor, a static method or a
// static field accessor.
type Func struct {
	Name     string
	Kind     FuncKind
	Strategy Strategy
	Declarer string
	Key      string
	Method   *model.Method
	Field    *model.Field
	Params   []typemap.HostType
	Result   typemap.HostType

	natural string
	rename  string
}

// Const is a compile-time constant of a static final field.
type Const struct {
	Name  string
	Field *model.Field
	// GoType is "string" or a Go primitive type.
	GoType string
	Value  any

	natural string
}

// Rejected is a member that is not emitted, with the reason.
type Rejected struct {
	Member string
	Reason string
}

// Class holds the resolved members of one class or interface.
type Class struct {
	Node  *graph.Node
	Names naming.ClassNames
	// Embed is the handle embedded by the class, or by the companion of
	// an interface.
	Embed typemap.Named
	// Methods are declared on the handle type, sorted by name. For
	// interfaces they are the methods of the companion handle.
	Methods []*Member
	Funcs   []*Func
	Consts  []*Const
	// Asserts lists the interfaces the handle satisfies, sorted.
	Asserts []string
	// Interface holds an interface's own capability methods, sorted.
	Interface []*Member
	// Embeds lists the super-interfaces the capability interface embeds.
	Embeds []string
	// CompanionComplete is set when the companion satisfies the
	// capability interface.
	CompanionComplete bool
	Rejected          []Rejected

	surface map[string]*Member
}

// Surface returns every method callable on the handle, inherited ones
// included, sorted by name. For interfaces it is the capability method set.
func (c *Class) Surface() []*Member {
	out := make([]*Member, 0, len(c.surface))
	for _, m := range c.surface {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup returns the surface member with the given Go name.
func (c *Class) Lookup(name string) (*Member, bool) {
	m, ok := c.surface[name]
	return m, ok
}

// ByOverride returns the surface member for an override key, preferring
// real members over wrappers.
func (c *Class) ByOverride(key string) (*Member, bool) {
	m := byOverride(c.surface)[key]
	return m, m != nil
}

func byOverride(surface map[string]*Member) map[string]*Member {
	out := make(map[string]*Member, len(surface))
	for _, name := range sortedNames(surface) {
		m := surface[name]
		if prev, ok := out[m.Override]; ok && !prev.IsWrapper() {
			continue
		}
		out[m.Override] = m
	}
	return out
}

func sortedNames(surface map[string]*Member) []string {
	names := make([]string, 0, len(surface))
	for n := range surface {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Result is the outcome of overload resolution for a graph.
type Result struct {
	classes map[string]*Class
}

// Class returns the resolution of a class.
func (r *Result) Class(name string) (*Class, bool) {
	c, ok := r.classes[name]
	return c, ok
}

// Classes returns every resolved class sorted by foreign name.
func (r *Result) Classes() []*Class {
	out := make([]*Class, 0, len(r.classes))
	for _, c := range r.classes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Node.Name() < out[j].Node.Name() })
	return out
}
