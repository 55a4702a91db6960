package overload

import (
	"github.com/teranos/jbind/diag"
	"github.com/teranos/jbind/graph"
	"github.com/teranos/jbind/model"
)

type erasedMethod struct {
	m      *model.Method
	params []model.TypeRef
	ret    model.TypeRef
}

// suppressed returns the methods of n that only exist to bridge erasure
// or covariant returns, keyed by member key, with the reason. A flagged
// bridge (or synthetic method) is dropped when a sibling declares the
// same name with parameter and return types it can stand in for. Two
// siblings with identical parameters whose returns are strictly related
// leave only the narrower one.
func (r *resolver) suppressed(n *graph.Node) map[string]string {
	cls := n.Class
	var methods []erasedMethod
	for i := range cls.Methods {
		m := &cls.Methods[i]
		if m.IsConstructor() || m.IsStaticInitializer() {
			continue
		}
		scope := model.NewScope(n.Scope(), m.TypeParams)
		em := erasedMethod{m: m, ret: m.Return.Erasure(scope)}
		for _, p := range m.Params {
			em.params = append(em.params, p.Type.Erasure(scope))
		}
		methods = append(methods, em)
	}

	out := map[string]string{}
	flagged := func(m *model.Method) bool {
		return m.Modifiers.Has(model.Bridge) || m.Modifiers.Has(model.Synthetic)
	}
	for _, b := range methods {
		if !flagged(b.m) {
			continue
		}
		for _, s := range methods {
			if s.m == b.m || flagged(s.m) || !r.bridges(b, s) {
				continue
			}
			out[b.m.Key()] = "bridge for " + s.m.Key()
			break
		}
	}
	for _, a := range methods {
		for _, b := range methods {
			if a.m == b.m || a.m.Name != b.m.Name || a.m.IsStatic() != b.m.IsStatic() {
				continue
			}
			if _, done := out[a.m.Key()]; done {
				continue
			}
			if _, done := out[b.m.Key()]; done {
				continue
			}
			if !sameTypes(a.params, b.params) || a.ret.Equal(b.ret) {
				continue
			}
			// a narrows b
			if r.assignable(a.ret, b.ret) {
				out[b.m.Key()] = "covariant bridge for " + a.m.Key()
			}
		}
	}

	for key, reason := range out {
		r.diags.Add(diag.New(diag.SuppressedBridge, n.Name(), key, "%s", reason))
	}
	return out
}

// bridges reports whether b can stand in for s: same name and arity,
// every parameter and the return of b a supertype of the one in s.
func (r *resolver) bridges(b, s erasedMethod) bool {
	if b.m.Name != s.m.Name || len(b.params) != len(s.params) || b.m.IsStatic() != s.m.IsStatic() {
		return false
	}
	for i := range b.params {
		if !r.assignable(s.params[i], b.params[i]) {
			return false
		}
	}
	if b.ret.IsVoid() || s.ret.IsVoid() {
		return b.ret.IsVoid() && s.ret.IsVoid()
	}
	return r.assignable(s.ret, b.ret)
}

func sameTypes(a, b []model.TypeRef) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// assignable reports whether a value of erased type sub can be used where
// erased type super is expected.
func (r *resolver) assignable(sub, super model.TypeRef) bool {
	if sub.Equal(super) {
		return true
	}
	switch {
	case super.Tag == model.TagReference && super.Name == model.ObjectClass:
		return sub.Tag == model.TagReference || sub.Tag == model.TagArray
	case sub.Tag == model.TagReference && super.Tag == model.TagReference:
		a, okA := r.g.Lookup(sub.Name)
		b, okB := r.g.Lookup(super.Name)
		return okA && okB && a.IsSubtypeOf(b)
	case sub.Tag == model.TagArray && super.Tag == model.TagArray:
		if sub.Dims != super.Dims {
			return false
		}
		if sub.Elem.Tag == model.TagPrimitive || super.Elem.Tag == model.TagPrimitive {
			return false
		}
		return r.assignable(*sub.Elem, *super.Elem)
	}
	return false
}
