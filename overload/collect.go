package overload

import (
	"math"
	"strings"

	"github.com/teranos/jbind/diag"
	"github.com/teranos/jbind/graph"
	"github.com/teranos/jbind/model"
	"github.com/teranos/jbind/naming"
	"github.com/teranos/jbind/typemap"
)

// candidate is an instance member waiting for a name.
type candidate struct {
	m        *Member
	natural  string
	rename   string
	accessor bool
	// fresh members never reuse an inherited name.
	fresh bool
}

func (c *Class) reject(member, reason string) {
	c.Rejected = append(c.Rejected, Rejected{Member: member, Reason: reason})
}

// overrideKey is the method name plus its erased parameter descriptor:
// what a subclass method must match to override it.
func overrideKey(m *model.Method) string {
	if i := strings.IndexByte(m.Descriptor, ')'); i >= 0 {
		return m.Name + m.Descriptor[:i+1]
	}
	return m.Name + m.Descriptor
}

func (r *resolver) ignored(class, name, desc string) bool {
	id := class + "#" + name
	return r.opts.Ignore(id) || (desc != "" && r.opts.Ignore(id+desc))
}

func (r *resolver) renamed(class, name, desc string) string {
	id := class + "#" + name
	if desc != "" {
		if host, ok := r.names.Renamed(id + desc); ok {
			return host
		}
	}
	host, _ := r.names.Renamed(id)
	return host
}

// mapType maps one type and records every erased type variable.
func (r *resolver) mapType(class, member string, t model.TypeRef, scope model.Scope, pos typemap.Position) (typemap.HostType, error) {
	h, err := r.mapper.Map(t, typemap.Context{Class: class, Member: member, Scope: scope, Position: pos})
	if err != nil {
		return h, err
	}
	for _, v := range h.Erased {
		d := diag.New(diag.ErasureFallback, class, member, "type variable %s erased to %s", v, h.ShortString())
		d.Ref = v
		r.diags.Add(d)
	}
	return h, nil
}

func (r *resolver) mapSignature(class, member string, scope model.Scope, m *model.Method) ([]typemap.HostType, typemap.HostType, error) {
	params := make([]typemap.HostType, 0, len(m.Params))
	for _, p := range m.Params {
		h, err := r.mapType(class, member, p.Type, scope, typemap.Param)
		if err != nil {
			return nil, typemap.HostType{}, err
		}
		params = append(params, h)
	}
	if m.IsConstructor() {
		return params, typemap.Void, nil
	}
	result, err := r.mapType(class, member, m.Return, scope, typemap.Result)
	return params, result, err
}

// collect turns the declarations of n into instance member candidates,
// package-level functions and constants. Members that cannot be emitted
// are recorded on c.
func (r *resolver) collect(n *graph.Node, c *Class) ([]*candidate, []*Func, []*Const) {
	cls := n.Class
	suppressed := r.suppressed(n)
	abstract := n.IsInterface() || cls.Modifiers.Has(model.Abstract)
	typeName := c.Names.Type

	var (
		members []*candidate
		funcs   []*Func
		consts  []*Const
	)
	for i := range cls.Methods {
		m := &cls.Methods[i]
		if m.IsStaticInitializer() || !r.visible(m.Modifiers) {
			continue
		}
		if m.IsConstructor() && abstract {
			continue
		}
		key := m.Key()
		if r.ignored(n.Name(), m.Name, m.Descriptor) {
			c.reject(key, "ignored by configuration")
			continue
		}
		if d, ok := n.Unemittable(key); ok {
			c.reject(key, d.Error())
			continue
		}
		if reason, ok := suppressed[key]; ok {
			c.reject(key, reason)
			continue
		}
		scope := model.NewScope(n.Scope(), m.TypeParams)
		params, result, err := r.mapSignature(n.Name(), key, scope, m)
		if err != nil {
			c.reject(key, err.Error())
			r.diags.Add(diag.New(diag.SkippedMember, n.Name(), key, "%v", err))
			continue
		}
		rename := r.renamed(n.Name(), m.Name, m.Descriptor)

		switch {
		case m.IsConstructor():
			funcs = append(funcs, &Func{
				Kind: FuncConstructor, Declarer: n.Name(), Key: key, Method: m,
				Params: params, Result: result,
				natural: "New" + typeName, rename: rename,
			})
		case m.IsStatic():
			funcs = append(funcs, &Func{
				Kind: FuncStatic, Declarer: n.Name(), Key: key, Method: m,
				Params: params, Result: result,
				natural: typeName + "_" + naming.Identifier(m.Name, true), rename: rename,
			})
		default:
			members = append(members, &candidate{
				m: &Member{
					Kind: KindMethod, Declarer: n.Name(), Key: key, Override: overrideKey(m),
					Method: m, Params: params, Result: result,
				},
				natural: naming.Identifier(m.Name, true),
				rename:  rename,
			})
		}
	}

	for i := range cls.Fields {
		f := &cls.Fields[i]
		if !r.visible(f.Modifiers) {
			continue
		}
		key := f.Key()
		if r.ignored(n.Name(), f.Name, "") {
			c.reject(key, "ignored by configuration")
			continue
		}
		if d, ok := n.Unemittable(key); ok {
			c.reject(key, d.Error())
			continue
		}
		field := naming.Identifier(f.Name, true)
		if f.IsStatic() && f.Modifiers.Has(model.Final) {
			if goType, ok := constType(f); ok {
				consts = append(consts, &Const{Field: f, GoType: goType, Value: f.Constant, natural: typeName + "_" + field})
				continue
			}
		}
		if f.IsStatic() || !n.IsInterface() {
			get, err := r.mapType(n.Name(), key, f.Type, n.Scope(), typemap.Result)
			if err == nil {
				var set typemap.HostType
				set, err = r.mapType(n.Name(), key, f.Type, n.Scope(), typemap.Param)
				if err == nil {
					settable := !f.Modifiers.Has(model.Final)
					if f.IsStatic() {
						funcs = append(funcs, &Func{Kind: FuncStaticGet, Declarer: n.Name(), Key: key, Field: f, Result: get, natural: typeName + "_" + field})
						if settable {
							funcs = append(funcs, &Func{Kind: FuncStaticSet, Declarer: n.Name(), Key: key, Field: f, Params: []typemap.HostType{set}, Result: typemap.Void, natural: typeName + "_Set" + field})
						}
					} else {
						members = append(members, &candidate{
							m:        &Member{Kind: KindGetter, Declarer: n.Name(), Key: key, Override: key + "#get", Field: f, Result: get},
							natural:  "Get" + field,
							accessor: true,
						})
						if settable {
							members = append(members, &candidate{
								m:        &Member{Kind: KindSetter, Declarer: n.Name(), Key: key, Override: key + "#set", Field: f, Params: []typemap.HostType{set}, Result: typemap.Void},
								natural:  "Set" + field,
								accessor: true,
							})
						}
					}
				}
			}
			if err != nil {
				c.reject(key, err.Error())
				r.diags.Add(diag.New(diag.SkippedMember, n.Name(), key, "%v", err))
			}
		}
	}
	return members, funcs, consts
}

// constType returns the Go type of a constant field, if its value can be
// a Go constant.
func constType(f *model.Field) (string, bool) {
	if f.Constant == nil {
		return "", false
	}
	switch v := f.Constant.(type) {
	case float32:
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return "", false
		}
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "", false
		}
	case string:
		if f.Type.Tag == model.TagReference && f.Type.Name == "java.lang.String" {
			return "string", true
		}
		return "", false
	}
	if f.Type.Tag == model.TagPrimitive && !f.Type.IsVoid() {
		return typemap.GoPrimitive(f.Type.Primitive), true
	}
	return "", false
}
