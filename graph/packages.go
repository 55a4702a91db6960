package graph

import (
	"sort"

	"github.com/teranos/jbind/model"
)

// PackageGroup is a strongly connected set of Java packages. Go forbids
// import cycles, so each group is emitted as one Go package.
type PackageGroup struct {
	// Primary is the lexically smallest member; it names the group.
	Primary string
	// Members are the Java packages in the group, sorted.
	Members []string
}

// PackageGraph is the dependency graph between Java packages implied by
// the code that will be generated for them.
type PackageGraph struct {
	deps    map[string]map[string]bool
	groups  []PackageGroup
	groupOf map[string]int
}

// Packages returns every Java package holding a valid class, sorted.
func (p *PackageGraph) Packages() []string {
	out := make([]string, 0, len(p.deps))
	for pkg := range p.deps {
		out = append(out, pkg)
	}
	sort.Strings(out)
	return out
}

// DependsOn returns the packages pkg needs, sorted, excluding itself.
func (p *PackageGraph) DependsOn(pkg string) []string {
	out := make([]string, 0, len(p.deps[pkg]))
	for d := range p.deps[pkg] {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Groups returns the package groups sorted by primary.
func (p *PackageGraph) Groups() []PackageGroup { return p.groups }

// Group returns the group holding pkg.
func (p *PackageGraph) Group(pkg string) (PackageGroup, bool) {
	i, ok := p.groupOf[pkg]
	if !ok {
		return PackageGroup{}, false
	}
	return p.groups[i], true
}

// buildPackageGraph records, for every valid class, the packages its
// generated code refers to: the embedded superclass, every interface it
// asserts, the types of its members and of the interface members it may
// need to wrap.
func buildPackageGraph(g *Graph) *PackageGraph {
	p := &PackageGraph{deps: map[string]map[string]bool{}, groupOf: map[string]int{}}
	_, hasObject := g.byName[model.ObjectClass]

	need := func(from, to string) {
		if from != to {
			p.deps[from][to] = true
		}
	}
	needTypes := func(pkg string, n *Node) {
		for i := range n.Class.Methods {
			m := &n.Class.Methods[i]
			if _, skip := n.unemittable[m.Key()]; skip || m.IsStaticInitializer() {
				continue
			}
			scope := model.NewScope(n.scope, m.TypeParams)
			types := []model.TypeRef{m.Return}
			for _, param := range m.Params {
				types = append(types, param.Type)
			}
			for _, t := range types {
				for _, ref := range t.Erasure(scope).References() {
					if g.Known(ref) {
						if _, ok := g.byName[ref]; ok {
							need(pkg, model.PackageOf(ref))
						}
					}
				}
			}
		}
		for i := range n.Class.Fields {
			f := &n.Class.Fields[i]
			if _, skip := n.unemittable[f.Key()]; skip {
				continue
			}
			for _, ref := range f.Type.Erasure(n.scope).References() {
				if _, ok := g.byName[ref]; ok && g.Known(ref) {
					need(pkg, model.PackageOf(ref))
				}
			}
		}
	}

	for _, n := range g.sorted {
		if n.Invalid {
			continue
		}
		if p.deps[n.Package()] == nil {
			p.deps[n.Package()] = map[string]bool{}
		}
	}
	for _, n := range g.sorted {
		if n.Invalid {
			continue
		}
		pkg := n.Package()
		if n.Super != nil {
			need(pkg, n.Super.Package())
		}
		if n.IsInterface() && hasObject {
			need(pkg, model.PackageOf(model.ObjectClass))
		}
		for _, i := range n.Closure {
			need(pkg, i.Package())
			needTypes(pkg, i)
		}
		needTypes(pkg, n)
	}

	p.groups = stronglyConnected(p.Packages(), p.DependsOn)
	for i, grp := range p.groups {
		for _, m := range grp.Members {
			p.groupOf[m] = i
		}
	}
	return p
}

// stronglyConnected runs Tarjan's algorithm over nodes in the given order
// and returns the components sorted by their smallest member.
func stronglyConnected(nodes []string, succ func(string) []string) []PackageGroup {
	index := map[string]int{}
	low := map[string]int{}
	onStack := map[string]bool{}
	var stack []string
	var groups []PackageGroup
	next := 0

	var connect func(v string)
	connect = func(v string) {
		index[v] = next
		low[v] = next
		next++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range succ(v) {
			if _, seen := index[w]; !seen {
				connect(w)
				if low[w] < low[v] {
					low[v] = low[w]
				}
			} else if onStack[w] && index[w] < low[v] {
				low[v] = index[w]
			}
		}

		if low[v] == index[v] {
			var members []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				members = append(members, w)
				if w == v {
					break
				}
			}
			sort.Strings(members)
			groups = append(groups, PackageGroup{Primary: members[0], Members: members})
		}
	}

	for _, v := range nodes {
		if _, seen := index[v]; !seen {
			connect(v)
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Primary < groups[j].Primary })
	return groups
}
