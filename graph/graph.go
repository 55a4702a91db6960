// Package graph builds the type graph: every ingested class keyed by its
// fully-qualified name, with resolved supertype edges, ancestor chains,
// interface closures, dispatch order and derived "uses" edges. The graph
// is read-only once Build returns and is shared by every later stage.
package graph

import (
	"sort"

	"github.com/teranos/jbind/diag"
	"github.com/teranos/jbind/model"
)

// DefaultMaxDepth bounds ancestor walks over malformed input.
const DefaultMaxDepth = 256

// EdgeKind labels a relationship between two classes.
type EdgeKind string

const (
	Extends    EdgeKind = "EXTENDS"
	Implements EdgeKind = "IMPLEMENTS"
	UsesParam  EdgeKind = "USES_PARAM"
	UsesReturn EdgeKind = "USES_RETURN"
	UsesField  EdgeKind = "USES_FIELD"
)

// Edge is a directed relationship between two classes.
type Edge struct {
	From string
	To   string
	Kind EdgeKind
}

// Node is a class in the graph together with its resolved relationships.
type Node struct {
	Class *model.Class
	// Index is the ingest position of the class.
	Index int
	// Super is the resolved superclass, nil for roots and interfaces.
	Super *Node
	// Interfaces are the resolved direct superinterfaces in declared order.
	Interfaces []*Node
	// Ancestors is the superclass chain, nearest first.
	Ancestors []*Node
	// Closure is every interface reachable from the class, its ancestors
	// and their superinterfaces, sorted by name, without duplicates.
	Closure []*Node
	// Level is 0 for roots and 1 + the maximum level of any supertype.
	Level int
	// Invalid is set for classes caught in an inheritance cycle.
	Invalid bool

	outer       *Node
	scope       model.Scope
	methods     map[string]*model.Method
	fields      map[string]*model.Field
	unemittable map[string]diag.Diagnostic
}

// Name returns the fully-qualified class name.
func (n *Node) Name() string { return n.Class.Name }

// Package returns the Java package of the class.
func (n *Node) Package() string { return n.Class.Package() }

// IsInterface reports whether the node is an interface type.
func (n *Node) IsInterface() bool { return n.Class.IsInterface() }

// Scope returns the type-variable scope of the class body, including the
// enclosing class for inner (non-static) classes.
func (n *Node) Scope() model.Scope { return n.scope }

// Outer returns the enclosing class node, if it is in the graph.
func (n *Node) Outer() *Node { return n.outer }

// DispatchOrder returns the class followed by its ancestors, most-derived first.
func (n *Node) DispatchOrder() []*Node {
	out := make([]*Node, 0, len(n.Ancestors)+1)
	out = append(out, n)
	return append(out, n.Ancestors...)
}

// Method returns the method declared by this class under key.
func (n *Node) Method(key string) (*model.Method, bool) {
	m, ok := n.methods[key]
	return m, ok
}

// Field returns the field declared by this class with the given name.
func (n *Node) Field(name string) (*model.Field, bool) {
	f, ok := n.fields[name]
	return f, ok
}

// Unemittable returns the reason a member cannot be emitted.
func (n *Node) Unemittable(key string) (diag.Diagnostic, bool) {
	d, ok := n.unemittable[key]
	return d, ok
}

// Implements reports whether iface is in the class's interface closure.
func (n *Node) Implements(iface *Node) bool {
	i := sort.Search(len(n.Closure), func(i int) bool { return n.Closure[i].Name() >= iface.Name() })
	return i < len(n.Closure) && n.Closure[i] == iface
}

// IsSubtypeOf reports whether n is other, extends it or implements it.
func (n *Node) IsSubtypeOf(other *Node) bool {
	if n == other {
		return true
	}
	for _, a := range n.Ancestors {
		if a == other {
			return true
		}
	}
	return other.IsInterface() && n.Implements(other)
}

// Graph is the resolved type graph.
type Graph struct {
	byName   map[string]*Node
	sorted   []*Node
	ingest   []*Node
	levels   [][]*Node
	edges    []Edge
	packages *PackageGraph
}

// Lookup returns the node for a fully-qualified name.
func (g *Graph) Lookup(name string) (*Node, bool) {
	n, ok := g.byName[name]
	return n, ok
}

// Known reports whether name refers to an emittable class. The root
// object type is always known: generated code falls back to the glue
// object when the input does not carry it.
func (g *Graph) Known(name string) bool {
	if n, ok := g.byName[name]; ok {
		return !n.Invalid
	}
	return name == model.ObjectClass
}

// Nodes returns all nodes sorted by name, invalid ones included.
func (g *Graph) Nodes() []*Node { return g.sorted }

// IngestOrder returns all nodes in ingest order.
func (g *Graph) IngestOrder() []*Node { return g.ingest }

// Valid returns the emittable nodes sorted by name.
func (g *Graph) Valid() []*Node {
	out := make([]*Node, 0, len(g.sorted))
	for _, n := range g.sorted {
		if !n.Invalid {
			out = append(out, n)
		}
	}
	return out
}

// Levels groups valid nodes by Level, each group sorted by name. Every
// supertype of a node sits in an earlier group.
func (g *Graph) Levels() [][]*Node { return g.levels }

// Edges returns the derived relationships sorted by (from, kind, to).
func (g *Graph) Edges() []Edge { return g.edges }

// Packages returns the Java package dependency graph.
func (g *Graph) Packages() *PackageGraph { return g.packages }

// Provider returns the most-derived class in n's dispatch order that
// declares the method key, or nil.
func (g *Graph) Provider(n *Node, key string) *Node {
	for _, c := range n.DispatchOrder() {
		if _, ok := c.methods[key]; ok {
			return c
		}
	}
	return nil
}
