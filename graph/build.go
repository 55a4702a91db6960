package graph

import (
	"sort"

	"github.com/teranos/jbind/diag"
	"github.com/teranos/jbind/model"
)

// Options tunes graph construction.
type Options struct {
	// MaxDepth bounds ancestor walks; DefaultMaxDepth when zero.
	MaxDepth int
	// Excluded reports names dropped by include/exclude filters. Members
	// referring to them are reported as warnings rather than errors.
	Excluded func(name string) bool
}

// Build inserts every class, resolves references and computes the derived
// relationships. Recoverable problems are returned as diagnostics; Build
// itself never fails.
func Build(classes []*model.Class, opts Options) (*Graph, []diag.Diagnostic) {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.Excluded == nil {
		opts.Excluded = func(string) bool { return false }
	}

	b := &builder{
		g:    &Graph{byName: make(map[string]*Node, len(classes))},
		opts: opts,
	}
	b.insert(classes)
	b.scopes()
	b.members()
	b.supertypes()
	b.ancestors()
	b.closures()
	b.memberReferences()
	b.computeLevels()
	b.deriveEdges()
	b.g.packages = buildPackageGraph(b.g)
	return b.g, b.diags
}

type builder struct {
	g     *Graph
	opts  Options
	diags []diag.Diagnostic
}

func (b *builder) report(d diag.Diagnostic) {
	b.diags = append(b.diags, d)
}

func (b *builder) unresolved(class, member, ref, message string) diag.Diagnostic {
	d := diag.Unresolved(class, member, ref)
	d.Message = message
	if b.opts.Excluded(ref) {
		d.Severity = diag.Warning
		if d.Message == "" {
			d.Message = "excluded by filter"
		} else {
			d.Message += " (excluded by filter)"
		}
	}
	return d
}

// insert keys classes by name. A duplicate never merges: the later
// definition is dropped.
func (b *builder) insert(classes []*model.Class) {
	for _, c := range classes {
		if prev, dup := b.g.byName[c.Name]; dup {
			b.report(diag.New(diag.DuplicateClass, c.Name, "",
				"definition from %q ignored, keeping %q", c.Origin, prev.Class.Origin))
			continue
		}
		n := &Node{
			Class:       c,
			Index:       len(b.g.ingest),
			methods:     make(map[string]*model.Method, len(c.Methods)),
			fields:      make(map[string]*model.Field, len(c.Fields)),
			unemittable: map[string]diag.Diagnostic{},
		}
		b.g.byName[c.Name] = n
		b.g.ingest = append(b.g.ingest, n)
	}
	b.g.sorted = make([]*Node, len(b.g.ingest))
	copy(b.g.sorted, b.g.ingest)
	sort.Slice(b.g.sorted, func(i, j int) bool { return b.g.sorted[i].Name() < b.g.sorted[j].Name() })
}

// scopes links nested classes to their enclosing class and builds the
// type-variable scope of each class body.
func (b *builder) scopes() {
	for _, n := range b.g.sorted {
		if outer, ok := n.Class.Outer(); ok {
			n.outer = b.g.byName[outer]
		}
	}
	var scopeOf func(n *Node, depth int) model.Scope
	scopeOf = func(n *Node, depth int) model.Scope {
		if n.scope != nil {
			return n.scope
		}
		var parent model.Scope
		inner := n.outer != nil && !n.Class.Modifiers.Has(model.Static) && n.Class.Kind == model.KindClass
		if inner && depth < b.opts.MaxDepth {
			parent = scopeOf(n.outer, depth+1)
		}
		n.scope = n.Class.Scope(parent)
		return n.scope
	}
	for _, n := range b.g.sorted {
		scopeOf(n, 0)
	}
}

// members fills missing descriptors and indexes members by key.
func (b *builder) members() {
	for _, n := range b.g.sorted {
		n.Class.Normalize(outerScope(n))
		for i := range n.Class.Methods {
			m := &n.Class.Methods[i]
			if _, dup := n.methods[m.Key()]; dup {
				b.report(diag.New(diag.SkippedMember, n.Name(), m.Key(), "duplicate member ignored"))
				continue
			}
			n.methods[m.Key()] = m
		}
		for i := range n.Class.Fields {
			f := &n.Class.Fields[i]
			if _, dup := n.fields[f.Name]; dup {
				b.report(diag.New(diag.SkippedMember, n.Name(), f.Key(), "duplicate member ignored"))
				continue
			}
			n.fields[f.Name] = f
		}
	}
}

func outerScope(n *Node) model.Scope {
	inner := n.outer != nil && !n.Class.Modifiers.Has(model.Static) && n.Class.Kind == model.KindClass
	if inner {
		return n.outer.scope
	}
	return nil
}

// supertypes resolves extends and implements edges.
func (b *builder) supertypes() {
	object := b.g.byName[model.ObjectClass]
	for _, n := range b.g.sorted {
		c := n.Class
		if c.Super != nil && !c.IsInterface() {
			name := c.Super.Name
			switch s, ok := b.g.byName[name]; {
			case ok && !s.IsInterface():
				n.Super = s
			case ok:
				b.report(b.unresolved(c.Name, "", name, "superclass is an interface, class treated as a root"))
			case name != model.ObjectClass:
				b.report(b.unresolved(c.Name, "", name, "superclass unresolved, class treated as a root"))
			}
			if n.Super == nil && object != nil && n != object {
				n.Super = object
			}
		}
		for _, ref := range c.Interfaces {
			switch s, ok := b.g.byName[ref.Name]; {
			case ok && s.IsInterface():
				n.Interfaces = append(n.Interfaces, s)
			case ok:
				b.report(b.unresolved(c.Name, "", ref.Name, "implemented type is not an interface, edge dropped"))
			default:
				b.report(b.unresolved(c.Name, "", ref.Name, "interface unresolved, edge dropped"))
			}
		}
	}
}

// ancestors walks extends edges. A walk that revisits a class or runs
// past MaxDepth invalidates the class.
func (b *builder) ancestors() {
	for _, n := range b.g.sorted {
		seen := map[*Node]bool{n: true}
		var chain []*Node
		for cur := n.Super; cur != nil; cur = cur.Super {
			if seen[cur] || len(chain) >= b.opts.MaxDepth {
				n.Invalid = true
				b.report(diag.New(diag.InheritanceCycle, n.Name(), "",
					"ancestor walk did not reach a root within %d steps (cycle through %s)", b.opts.MaxDepth, cur.Name()))
				break
			}
			seen[cur] = true
			chain = append(chain, cur)
		}
		if !n.Invalid {
			n.Ancestors = chain
		}
	}
}

// closures computes interface closures. An interface that reaches itself
// is invalidated.
func (b *builder) closures() {
	for _, n := range b.g.sorted {
		if n.Invalid {
			continue
		}
		queue := append([]*Node{}, n.Interfaces...)
		for _, a := range n.Ancestors {
			queue = append(queue, a.Interfaces...)
		}
		visited := map[*Node]bool{}
		cyclic := false
		for len(queue) > 0 {
			i := queue[0]
			queue = queue[1:]
			if i == n {
				cyclic = true
				continue
			}
			if visited[i] {
				continue
			}
			visited[i] = true
			queue = append(queue, i.Interfaces...)
		}
		if cyclic {
			n.Invalid = true
			b.report(diag.New(diag.InheritanceCycle, n.Name(), "", "interface extends itself"))
			continue
		}
		n.Closure = make([]*Node, 0, len(visited))
		for i := range visited {
			n.Closure = append(n.Closure, i)
		}
	}
	for _, n := range b.g.sorted {
		valid := n.Closure[:0]
		for _, i := range n.Closure {
			if !i.Invalid {
				valid = append(valid, i)
			}
		}
		n.Closure = valid
		sort.Slice(n.Closure, func(i, j int) bool { return n.Closure[i].Name() < n.Closure[j].Name() })
	}
}

// memberReferences marks members whose erased types name classes outside
// the graph. Only the member is lost, never the class.
func (b *builder) memberReferences() {
	for _, n := range b.g.sorted {
		if n.Invalid {
			continue
		}
		for i := range n.Class.Methods {
			m := &n.Class.Methods[i]
			if m.IsStaticInitializer() {
				continue
			}
			scope := model.NewScope(n.scope, m.TypeParams)
			types := make([]model.TypeRef, 0, len(m.Params)+1)
			for _, p := range m.Params {
				types = append(types, p.Type)
			}
			types = append(types, m.Return)
			if ref, missing := b.firstUnknown(types, scope); missing {
				d := b.unresolved(n.Name(), m.Key(), ref, "")
				n.unemittable[m.Key()] = d
				b.report(d)
			}
		}
		for i := range n.Class.Fields {
			f := &n.Class.Fields[i]
			if ref, missing := b.firstUnknown([]model.TypeRef{f.Type}, n.scope); missing {
				d := b.unresolved(n.Name(), f.Key(), ref, "")
				n.unemittable[f.Key()] = d
				b.report(d)
			}
		}
	}
}

func (b *builder) firstUnknown(types []model.TypeRef, scope model.Scope) (string, bool) {
	for _, t := range types {
		for _, ref := range t.Erasure(scope).References() {
			if !b.g.Known(ref) {
				return ref, true
			}
		}
	}
	return "", false
}

func (b *builder) computeLevels() {
	const pending = -1
	level := map[*Node]int{}
	var visit func(n *Node) int
	visit = func(n *Node) int {
		if l, ok := level[n]; ok {
			if l == pending {
				return 0
			}
			return l
		}
		level[n] = pending
		l := 0
		supers := append([]*Node{}, n.Interfaces...)
		if n.Super != nil {
			supers = append(supers, n.Super)
		}
		for _, s := range supers {
			if s.Invalid {
				continue
			}
			if sl := visit(s) + 1; sl > l {
				l = sl
			}
		}
		level[n] = l
		n.Level = l
		return l
	}
	maxLevel := -1
	for _, n := range b.g.sorted {
		if n.Invalid {
			continue
		}
		if l := visit(n); l > maxLevel {
			maxLevel = l
		}
	}
	b.g.levels = make([][]*Node, maxLevel+1)
	for _, n := range b.g.sorted {
		if !n.Invalid {
			b.g.levels[n.Level] = append(b.g.levels[n.Level], n)
		}
	}
}

func (b *builder) deriveEdges() {
	seen := map[Edge]bool{}
	add := func(from *Node, to string, kind EdgeKind) {
		target, ok := b.g.byName[to]
		if !ok || target.Invalid || target == from {
			return
		}
		e := Edge{From: from.Name(), To: to, Kind: kind}
		if !seen[e] {
			seen[e] = true
			b.g.edges = append(b.g.edges, e)
		}
	}
	for _, n := range b.g.sorted {
		if n.Invalid {
			continue
		}
		if n.Super != nil {
			add(n, n.Super.Name(), Extends)
		}
		for _, i := range n.Interfaces {
			add(n, i.Name(), Implements)
		}
		for i := range n.Class.Methods {
			m := &n.Class.Methods[i]
			if _, skip := n.unemittable[m.Key()]; skip || m.IsStaticInitializer() {
				continue
			}
			scope := model.NewScope(n.scope, m.TypeParams)
			for _, p := range m.Params {
				for _, ref := range p.Type.Erasure(scope).References() {
					add(n, ref, UsesParam)
				}
			}
			for _, ref := range m.Return.Erasure(scope).References() {
				add(n, ref, UsesReturn)
			}
		}
		for i := range n.Class.Fields {
			f := &n.Class.Fields[i]
			if _, skip := n.unemittable[f.Key()]; skip {
				continue
			}
			for _, ref := range f.Type.Erasure(n.scope).References() {
				add(n, ref, UsesField)
			}
		}
	}
	sort.Slice(b.g.edges, func(i, j int) bool {
		a, c := b.g.edges[i], b.g.edges[j]
		if a.From != c.From {
			return a.From < c.From
		}
		if a.Kind != c.Kind {
			return a.Kind < c.Kind
		}
		return a.To < c.To
	})
}
