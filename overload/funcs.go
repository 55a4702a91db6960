package overload

import (
	"go/token"
	"sort"
	"strings"

	"github.com/teranos/jbind/naming"
)

func funcID(class string, f *Func) string {
	id := class + "#" + f.Key
	if f.Kind == FuncStaticSet {
		id += "#set"
	}
	return id
}

func funcLess(a, b *Func) bool {
	if c := compareParams(a.Params, b.Params); c != 0 {
		return c < 0
	}
	if am, bm := a.Method != nil, b.Method != nil; am != bm {
		return am
	}
	return a.Key < b.Key
}

// desiredNames disambiguates the package-level functions of one class the
// way instance members are: grouped by natural name, ordered, suffixed.
func (r *resolver) desiredNames(c *Class) map[*Func]string {
	out := map[*Func]string{}
	byBase := map[string][]*Func{}
	for _, f := range c.Funcs {
		if f.rename != "" {
			out[f] = f.rename
			f.Strategy = StrategyRenamed
			continue
		}
		byBase[f.natural] = append(byBase[f.natural], f)
	}
	for base, g := range byBase {
		sort.SliceStable(g, func(i, j int) bool { return funcLess(g[i], g[j]) })
		used := map[string]bool{base: true}
		out[g[0]] = base
		g[0].Strategy = StrategyUnique
		if len(g) > 1 {
			g[0].Strategy = r.groupStrategy()
		}
		n := 2
		for _, f := range g[1:] {
			name := ""
			if r.opts.Collision == CollisionSignature && len(f.Params) > 0 {
				parts := make([]string, len(f.Params))
				for i, p := range f.Params {
					parts[i] = p.Mangle()
				}
				name = base + "_" + strings.Join(parts, "_")
				f.Strategy = StrategySignature
			}
			if name == "" || used[name] {
				for ; used[naming.NumericSuffix(base, n)]; n++ {
				}
				name = naming.NumericSuffix(base, n)
				f.Strategy = StrategySuffixed
			}
			used[name] = true
			out[f] = name
		}
	}
	return out
}

// packageFuncs names constructors, static members and constants. They all
// live in the Go package scope next to the handle types, so names are
// allocated per Go package in one batch after every class is resolved.
func (r *resolver) packageFuncs() {
	byPkg := map[*naming.GoPackage][]*Class{}
	classes := make([]*Class, 0, len(r.results))
	for _, c := range r.results {
		classes = append(classes, c)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].Node.Name() < classes[j].Node.Name() })
	for _, c := range classes {
		byPkg[c.Names.Package] = append(byPkg[c.Names.Package], c)
	}

	entries := r.names.Entries()
	for _, gp := range r.names.Packages() {
		scope := naming.NewScope(r.opts.MaxSuffix)
		for _, e := range entries {
			if (e.Kind == naming.KindClass || e.Kind == naming.KindCompanion) && e.Scope == gp.Path {
				scope.Reserve(e.Host)
			}
		}

		type slot struct {
			class   *Class
			fn      *Func
			con     *Const
			desired string
		}
		slots := map[string]slot{}
		var claims []naming.Claim
		for _, c := range byPkg[gp] {
			desired := r.desiredNames(c)
			for _, f := range c.Funcs {
				id := funcID(c.Node.Name(), f)
				slots[id] = slot{class: c, fn: f, desired: desired[f]}
				if f.Strategy == StrategyRenamed {
					name := desired[f]
					switch {
					case !token.IsIdentifier(name) || !token.IsExported(name):
						r.unresolvable(c, f.Key, "rename %q is not an exported Go identifier", name)
					case !scope.Pin(id, name):
						r.unresolvable(c, f.Key, "rename %q is already used in package %s", name, gp.Path)
					default:
						f.Name = name
					}
					continue
				}
				claims = append(claims, naming.Claim{Foreign: id, Index: c.Node.Index, Natural: desired[f]})
			}
			for _, k := range c.Consts {
				id := c.Node.Name() + "#" + k.Field.Key()
				slots[id] = slot{class: c, con: k}
				claims = append(claims, naming.Claim{Foreign: id, Index: c.Node.Index, Natural: k.natural})
			}
		}

		assigned, failed := scope.Allocate(claims, r.opts.TieBreak, naming.NumericSuffix)
		for _, cl := range failed {
			s := slots[cl.Foreign]
			r.unresolvable(s.class, cl.Foreign, "no free package-level name for %s", cl.Natural)
		}
		for id, name := range assigned {
			s := slots[id]
			kind := naming.KindFunc
			if s.fn != nil {
				if name != s.desired {
					s.fn.Strategy = StrategySuffixed
				}
				s.fn.Name = name
			} else {
				s.con.Name = name
				kind = naming.KindConst
			}
			if err := r.names.Assign(kind, gp.Path, id, name); err != nil {
				r.log.Debugw("package-level name not recorded", "error", err)
			}
		}

		for _, c := range byPkg[gp] {
			c.Funcs = keepNamedFuncs(c.Funcs)
			c.Consts = keepNamedConsts(c.Consts)
		}
	}
}

func keepNamedFuncs(fs []*Func) []*Func {
	out := fs[:0]
	for _, f := range fs {
		if f.Name != "" {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func keepNamedConsts(cs []*Const) []*Const {
	out := cs[:0]
	for _, k := range cs {
		if k.Name != "" {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
