package overload

import (
	"go/token"
	"sort"
	"strings"

	"github.com/teranos/jbind/diag"
	"github.com/teranos/jbind/naming"
	"github.com/teranos/jbind/typemap"
)

func isSelector(s string) bool {
	for _, sel := range naming.HandleSelectors {
		if s == sel {
			return true
		}
	}
	return false
}

// newScope returns the method scope of a handle embedding embed, with
// every inherited name taken by the member it belongs to.
func (r *resolver) newScope(embed string, inherited map[string]*Member) *naming.Scope {
	scope := naming.NewScope(r.opts.MaxSuffix)
	for _, sel := range naming.HandleSelectors {
		scope.Reserve(sel)
	}
	scope.Reserve(embed)
	for _, name := range sortedNames(inherited) {
		scope.Pin(inherited[name].Override, name)
	}
	return scope
}

func copySurface(s map[string]*Member) map[string]*Member {
	out := make(map[string]*Member, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// nameMembers assigns Go names to own members: overrides reuse the
// inherited name, renames are pinned, names required by implemented
// interfaces come next and the rest go through overload grouping.
func (r *resolver) nameMembers(c *Class, cands []*candidate, scope *naming.Scope, inherited map[string]*Member, prefs []*Class, embed string) []*Member {
	inh := byOverride(inherited)
	var named []*Member

	var pending []*candidate
	for _, cd := range cands {
		if prev, ok := inh[cd.m.Override]; ok && !cd.fresh {
			if prev.Signature() == cd.m.Signature() {
				// the promoted method already dispatches to the override
				continue
			}
			cd.m.Name, cd.m.Strategy = prev.Name, StrategyInherited
			named = append(named, cd.m)
			continue
		}
		pending = append(pending, cd)
	}

	var rest []*candidate
	for _, cd := range pending {
		if cd.rename == "" {
			rest = append(rest, cd)
			continue
		}
		switch {
		case !token.IsIdentifier(cd.rename) || !token.IsExported(cd.rename) || isSelector(cd.rename):
			r.unresolvable(c, cd.m.Key, "rename %q is not a usable exported Go identifier", cd.rename)
		case !scope.Pin(cd.m.Override, cd.rename):
			r.unresolvable(c, cd.m.Key, "rename %q is already used in %s", cd.rename, c.Names.Type)
		default:
			cd.m.Name, cd.m.Strategy = cd.rename, StrategyRenamed
			named = append(named, cd.m)
		}
	}

	pending, rest = rest, nil
	prefer := map[string]string{}
	for _, ic := range prefs {
		for key, m := range byOverride(ic.surface) {
			if _, ok := prefer[key]; !ok {
				prefer[key] = m.Name
			}
		}
	}
	for _, cd := range pending {
		if name, ok := prefer[cd.m.Override]; ok && !cd.fresh {
			if _, taken := scope.Taken(name); !taken && scope.Pin(cd.m.Override, name) {
				cd.m.Name, cd.m.Strategy = name, StrategyInherited
				named = append(named, cd.m)
				continue
			}
		}
		rest = append(rest, cd)
	}

	return append(named, r.groups(c, rest, scope, embed)...)
}

func (r *resolver) unresolvable(c *Class, member, format string, args ...interface{}) {
	d := diag.New(diag.NameCollisionUnresolvable, c.Node.Name(), member, format, args...)
	r.diags.Add(d)
	c.reject(member, d.Message)
}

// less orders the members of one overload group: fewer parameters first,
// then Go parameter types element by element, methods before field
// accessors, then the member key.
func less(a, b *candidate) bool {
	if c := compareParams(a.m.Params, b.m.Params); c != 0 {
		return c < 0
	}
	if a.accessor != b.accessor {
		return !a.accessor
	}
	return a.m.Override < b.m.Override
}

// groups names the members left after inheritance and renames. Members
// sharing a natural name form a group; the first in group order keeps the
// natural name when it is free, the others take the lowest free suffix
// (or a signature mangling).
func (r *resolver) groups(c *Class, cands []*candidate, scope *naming.Scope, embed string) []*Member {
	byBase := map[string][]*candidate{}
	for _, cd := range cands {
		base := naming.EscapeReserved(cd.natural, func(s string) bool { return isSelector(s) || s == embed })
		byBase[base] = append(byBase[base], cd)
	}
	bases := make([]string, 0, len(byBase))
	for b := range byBase {
		bases = append(bases, b)
	}
	sort.Strings(bases)

	type loser struct {
		cd   *candidate
		base string
	}
	var named []*Member
	var losers []loser
	for _, base := range bases {
		g := byBase[base]
		sort.SliceStable(g, func(i, j int) bool { return less(g[i], g[j]) })
		first := g[0]
		if _, taken := scope.Taken(base); !taken {
			scope.Pin(first.m.Override, base)
			first.m.Name = base
			first.m.Strategy = StrategyUnique
			if len(g) > 1 {
				first.m.Strategy = r.groupStrategy()
			}
			named = append(named, first.m)
		} else {
			losers = append(losers, loser{first, base})
		}
		for _, cd := range g[1:] {
			losers = append(losers, loser{cd, base})
		}
	}

	for _, l := range losers {
		m := l.cd.m
		cand, tryBase, strategy := l.base, false, StrategySuffixed
		if r.opts.Collision == CollisionSignature && len(m.Params) > 0 {
			cand, tryBase, strategy = l.base+"_"+mangle(m), true, StrategySignature
		}
		name, ok := scope.Next(cand, tryBase, naming.NumericSuffix)
		if !ok {
			r.unresolvable(c, m.Key, "no free name for %s after %d suffixes", l.base, r.opts.MaxSuffix)
			continue
		}
		scope.Pin(m.Override, name)
		m.Name, m.Strategy = name, strategy
		named = append(named, m)
	}
	return named
}

// compareParams orders parameter lists by length, then by the short Go
// type of each parameter, then by the qualified one.
func compareParams(a, b []typemap.HostType) int {
	if len(a) != len(b) {
		return len(a) - len(b)
	}
	for i := range a {
		if sa, sb := a[i].ShortString(), b[i].ShortString(); sa != sb {
			return strings.Compare(sa, sb)
		}
	}
	for i := range a {
		if sa, sb := a[i].String(), b[i].String(); sa != sb {
			return strings.Compare(sa, sb)
		}
	}
	return 0
}

func (r *resolver) groupStrategy() Strategy {
	if r.opts.Collision == CollisionSignature {
		return StrategySignature
	}
	return StrategySuffixed
}

func mangle(m *Member) string {
	parts := make([]string, len(m.Params))
	for i, p := range m.Params {
		parts[i] = p.Mangle()
	}
	return strings.Join(parts, "_")
}

// closure returns the resolved interfaces a class implements, sorted.
func (r *resolver) closure(c *Class) []*Class {
	var out []*Class
	for _, i := range c.Node.Closure {
		if ic, ok := r.results[i.Name()]; ok {
			out = append(out, ic)
		}
	}
	return out
}

func (r *resolver) resolveClass(c *Class, cands []*candidate) {
	embed, super := r.embedOf(c.Node)
	c.Embed = embed
	inherited := map[string]*Member{}
	if super != nil {
		inherited = super.surface
	}
	scope := r.newScope(embed.Name, inherited)
	prefs := r.closure(c)

	c.Methods = r.nameMembers(c, cands, scope, inherited, prefs, embed.Name)
	surface := copySurface(inherited)
	for _, m := range c.Methods {
		surface[m.Name] = m
	}
	for _, ic := range prefs {
		r.assertInterface(c, ic, scope, surface)
	}
	c.surface = surface
	sortMembers(c.Methods)
	r.record(c, c.Names.Type, c.Methods)
}

// assertInterface adds the wrappers a class needs to satisfy ic and
// records the assertion, or reports why ic cannot be satisfied.
func (r *resolver) assertInterface(c *Class, ic *Class, scope *naming.Scope, surface map[string]*Member) {
	var wrappers []*Member
	for _, name := range sortedNames(ic.surface) {
		req := ic.surface[name]
		if have, ok := surface[name]; ok {
			if have.Signature() == req.Signature() {
				continue
			}
			r.notAsserted(c, ic, "%s is %s%s, interface needs %s", name, have.Key, have.Signature(), req.Signature())
			return
		}
		if _, taken := scope.Taken(name); taken {
			r.notAsserted(c, ic, "%s is reserved on %s", name, c.Names.Type)
			return
		}
		w := &Member{
			Name: name, Kind: KindInterfaceWrapper, Strategy: StrategyInherited,
			Declarer: req.Declarer, Key: req.Key, Override: req.Override,
			Method: req.Method, Field: req.Field, Params: req.Params, Result: req.Result,
		}
		if t := aliasTarget(surface, req); t != nil {
			w.Kind, w.Target = KindAlias, t.Name
		}
		wrappers = append(wrappers, w)
	}
	for _, w := range wrappers {
		scope.Pin(w.Override, w.Name)
		surface[w.Name] = w
		c.Methods = append(c.Methods, w)
	}
	c.Asserts = append(c.Asserts, ic.Node.Name())
}

func (r *resolver) notAsserted(c *Class, ic *Class, format string, args ...interface{}) {
	d := diag.New(diag.NameCollision, c.Node.Name(), "", "interface %s not asserted: "+format, append([]interface{}{ic.Node.Name()}, args...)...)
	d.Ref = ic.Node.Name()
	r.diags.Add(d)
}

// aliasTarget finds a real member providing req under another name.
func aliasTarget(surface map[string]*Member, req *Member) *Member {
	for _, name := range sortedNames(surface) {
		m := surface[name]
		if !m.IsWrapper() && m.Override == req.Override && m.Signature() == req.Signature() {
			return m
		}
	}
	return nil
}

func (r *resolver) resolveInterface(c *Class, cands []*candidate) {
	objNamed, obj := r.object()
	c.Embed = objNamed
	objSurface := map[string]*Member{}
	if obj != nil {
		objSurface = obj.surface
	}

	merged := map[string]*Member{}
	for _, s := range c.Node.Interfaces {
		sc, ok := r.results[s.Name()]
		if !ok {
			continue
		}
		if reason := conflicts(merged, sc.surface); reason != "" {
			d := diag.New(diag.NameCollision, c.Node.Name(), "", "super-interface %s not embedded: %s", s.Name(), reason)
			d.Ref = s.Name()
			r.diags.Add(d)
			continue
		}
		for name, m := range sc.surface {
			merged[name] = m
		}
		c.Embeds = append(c.Embeds, s.Name())
	}

	inherited := copySurface(objSurface)
	for name, m := range merged {
		inherited[name] = m
	}
	inh := byOverride(inherited)
	for _, cd := range cands {
		if prev, ok := inh[cd.m.Override]; ok && prev.Signature() != cd.m.Signature() {
			// an interface cannot redeclare an embedded method with another signature
			cd.fresh = true
		}
	}
	scope := r.newScope(objNamed.Name, inherited)
	own := r.nameMembers(c, cands, scope, inherited, nil, objNamed.Name)
	sortMembers(own)
	c.Interface = own

	surface := copySurface(merged)
	for _, m := range own {
		surface[m.Name] = m
	}
	c.surface = surface
	r.record(c, c.Names.Type, own)

	// the companion embeds the object handle and wraps the rest
	compScope := r.newScope(objNamed.Name, objSurface)
	c.CompanionComplete = true
	for _, name := range sortedNames(surface) {
		m := surface[name]
		if have, ok := objSurface[name]; ok {
			if have.Signature() != m.Signature() {
				c.CompanionComplete = false
				r.notAsserted(c, c, "%s on %s is %s%s", name, c.Names.Companion, have.Key, have.Signature())
			}
			continue
		}
		if _, taken := compScope.Taken(name); taken {
			c.CompanionComplete = false
			r.notAsserted(c, c, "%s is reserved on %s", name, c.Names.Companion)
			continue
		}
		w := *m
		w.Kind, w.Target = KindInterfaceWrapper, ""
		compScope.Pin(w.Override, w.Name)
		c.Methods = append(c.Methods, &w)
	}
	sortMembers(c.Methods)
	r.record(c, c.Names.Companion, c.Methods)
}

// conflicts reports a name the two method sets declare differently.
func conflicts(a, b map[string]*Member) string {
	for _, name := range sortedNames(b) {
		x, ok := a[name]
		if !ok {
			continue
		}
		y := b[name]
		if x.Override != y.Override || x.Signature() != y.Signature() {
			return name + " is " + x.Declarer + "#" + x.Key + " and " + y.Declarer + "#" + y.Key
		}
	}
	return ""
}

func sortMembers(ms []*Member) {
	sort.Slice(ms, func(i, j int) bool { return ms[i].Name < ms[j].Name })
}

// record stores member names in the name table under the handle type.
func (r *resolver) record(c *Class, typeName string, members []*Member) {
	scope := c.Names.Package.Path + "." + typeName
	for _, m := range members {
		id := c.Node.Name() + "#" + m.Override
		if m.IsWrapper() || m.Declarer != c.Node.Name() {
			id += "@" + m.Name
		}
		if err := r.names.Assign(naming.KindMember, scope, id, m.Name); err != nil {
			r.log.Debugw("member name not recorded", "error", err)
		}
	}
}
