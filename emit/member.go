package emit

import (
	"strconv"

	"github.com/dave/jennifer/jen"

	"github.com/teranos/jbind/model"
	"github.com/teranos/jbind/overload"
	"github.com/teranos/jbind/typemap"
)

var valueFuncs = map[model.Primitive]string{
	model.Boolean: "Bool",
	model.Byte:    "Byte",
	model.Char:    "Char",
	model.Short:   "Short",
	model.Int:     "Int",
	model.Long:    "Long",
	model.Float:   "Float",
	model.Double:  "Double",
}

func glue(name string) *jen.Statement { return jen.Qual(typemap.GluePath, name) }

// typeCode renders a mapped type.
func typeCode(h typemap.HostType) *jen.Statement {
	var t *jen.Statement
	switch h.Category {
	case typemap.CatPrimitive:
		return jen.Id(typemap.GoPrimitive(h.Primitive))
	case typemap.CatArray:
		if h.Type.Name == "" {
			t = jen.Id(typemap.GoPrimitive(h.Primitive))
		} else {
			t = qual(h.Type)
		}
		for i := 0; i < h.Rank; i++ {
			t = glue("Array").Types(t)
		}
	default:
		t = qual(h.Type)
	}
	if h.Owned {
		return glue("Local").Types(t)
	}
	return t
}

func paramName(i int) string { return "p" + strconv.Itoa(i) }

// paramList renders "(env jglue.Env, p0 T0, ...)".
func paramList(params []typemap.HostType) *jen.Statement {
	ps := []jen.Code{jen.Id("env").Add(glue("Env"))}
	for i, p := range params {
		ps = append(ps, jen.Id(paramName(i)).Add(typeCode(p)))
	}
	return jen.Params(ps...)
}

// signature renders the parameters and "(R, error)", or "error" for void.
func (e *emitter) signature(params []typemap.HostType, result typemap.HostType) *jen.Statement {
	s := paramList(params)
	if result.IsVoid() {
		return s.Error()
	}
	return s.Params(typeCode(result), jen.Error())
}

func args(params []typemap.HostType) []jen.Code {
	out := make([]jen.Code, len(params))
	for i, p := range params {
		if p.Category == typemap.CatPrimitive {
			out[i] = glue(valueFuncs[p.Primitive]).Call(jen.Id(paramName(i)))
		} else {
			out[i] = glue("ObjectValue").Call(jen.Id(paramName(i)))
		}
	}
	return out
}

func zero(h typemap.HostType) jen.Code {
	switch {
	case h.Category == typemap.CatPrimitive && h.Primitive == model.Boolean:
		return jen.False()
	case h.Category == typemap.CatPrimitive:
		return jen.Lit(0)
	}
	return typeCode(h).Values()
}

// convert turns the returned Value v into the mapped result.
func convert(h typemap.HostType) jen.Code {
	if h.Category == typemap.CatPrimitive {
		return jen.Id("v").Dot(valueFuncs[h.Primitive]).Call()
	}
	inner := h.Value()
	return glue("NewLocal").Types(typeCode(inner)).Call(jen.Id("env"), jen.Id("v").Dot("Ref").Call())
}

// finish returns the body tail after a call assigned v and err.
func finish(result typemap.HostType) []jen.Code {
	if result.IsVoid() {
		return []jen.Code{jen.Return(jen.Id("err"))}
	}
	return []jen.Code{
		jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(zero(result), jen.Err())),
		jen.Return(convert(result), jen.Nil()),
	}
}

// call assigns the Value of a runtime call to v, or discards it for void.
func call(result typemap.HostType, fn jen.Code) jen.Code {
	if result.IsVoid() {
		return jen.List(jen.Id("_"), jen.Err()).Op(":=").Add(fn)
	}
	return jen.List(jen.Id("v"), jen.Err()).Op(":=").Add(fn)
}

func methodID(class string, m *model.Method) jen.Code {
	return glue("MethodID").Values(jen.Dict{
		jen.Id("Class"):      jen.Lit(model.InternalName(class)),
		jen.Id("Name"):       jen.Lit(m.Name),
		jen.Id("Descriptor"): jen.Lit(m.Descriptor),
	})
}

func (e *emitter) fieldID(class string, f *model.Field) jen.Code {
	desc := f.Type.Descriptor(nil)
	if c, ok := e.plan.Members.Class(class); ok {
		desc = f.Type.Descriptor(c.Node.Scope())
	}
	return glue("FieldID").Values(jen.Dict{
		jen.Id("Class"):      jen.Lit(model.InternalName(class)),
		jen.Id("Name"):       jen.Lit(f.Name),
		jen.Id("Descriptor"): jen.Lit(desc),
	})
}

func deprecated(f *jen.File, name string, d bool) {
	if d {
		f.Comment("//")
		f.Comment("Deprecated: " + name + " is deprecated.")
	}
}

// method renders one handle method with receiver type typ.
func (e *emitter) method(f *jen.File, c *overload.Class, typ string, m *overload.Member) {
	recv := jen.Id("h").Id(typ)
	ref := jen.Id("h").Dot("JRef").Call()
	foreign := m.Declarer + "." + m.Key
	var body []jen.Code

	switch {
	case m.Kind == overload.KindAlias:
		f.Comment(m.Name + " calls " + m.Target + ", which provides " + foreign + ".")
		fwd := make([]jen.Code, 0, len(m.Params)+1)
		fwd = append(fwd, jen.Id("env"))
		for i := range m.Params {
			fwd = append(fwd, jen.Id(paramName(i)))
		}
		body = []jen.Code{jen.Return(jen.Id("h").Dot(m.Target).Call(fwd...))}
	case m.Field != nil && len(m.Params) == 0:
		f.Comment(m.Name + " reads the field " + m.Declarer + "." + m.Field.Name + ".")
		deprecated(f, m.Declarer+"."+m.Field.Name, m.Field.Deprecated)
		body = append([]jen.Code{
			jen.List(jen.Id("v"), jen.Err()).Op(":=").Id("env").Dot("GetField").Call(ref, e.fieldID(m.Declarer, m.Field)),
		}, finish(m.Result)...)
	case m.Field != nil:
		f.Comment(m.Name + " writes the field " + m.Declarer + "." + m.Field.Name + ".")
		deprecated(f, m.Declarer+"."+m.Field.Name, m.Field.Deprecated)
		body = []jen.Code{
			jen.Return(jen.Id("env").Dot("SetField").Call(ref, e.fieldID(m.Declarer, m.Field), args(m.Params)[0])),
		}
	default:
		if m.Kind == overload.KindInterfaceWrapper {
			f.Comment(m.Name + " calls " + foreign + " on the handle.")
		} else {
			f.Comment(m.Name + " calls " + foreign + ".")
		}
		deprecated(f, foreign, m.Method.Deprecated)
		invoke := append([]jen.Code{ref, methodID(m.Declarer, m.Method)}, args(m.Params)...)
		body = append([]jen.Code{call(m.Result, jen.Id("env").Dot("Invoke").Call(invoke...))}, finish(m.Result)...)
	}
	f.Func().Params(recv).Id(m.Name).Add(e.signature(m.Params, m.Result)).Block(body...)
}

// funcs renders constructors, static methods and static field accessors.
func (e *emitter) funcs(f *jen.File, c *overload.Class) {
	self := c.Names.Type
	if c.Node.IsInterface() {
		self = c.Names.Companion
	}
	for _, fn := range c.Funcs {
		f.Line()
		foreign := fn.Declarer + "." + fn.Key
		switch fn.Kind {
		case overload.FuncConstructor:
			owned := glue("Local").Types(jen.Id(self))
			f.Comment(fn.Name + " constructs a " + fn.Declarer + " with " + fn.Key + ".")
			deprecated(f, foreign, fn.Method.Deprecated)
			newArgs := append([]jen.Code{methodID(fn.Declarer, fn.Method)}, args(fn.Params)...)
			f.Func().Id(fn.Name).Add(paramList(fn.Params)).Params(owned, jen.Error()).Block(
				jen.List(jen.Id("r"), jen.Err()).Op(":=").Id("env").Dot("New").Call(newArgs...),
				jen.If(jen.Err().Op("!=").Nil()).Block(
					jen.Return(glue("Local").Types(jen.Id(self)).Values(), jen.Err()),
				),
				jen.Return(glue("NewLocal").Types(jen.Id(self)).Call(jen.Id("env"), jen.Id("r")), jen.Nil()),
			)
		case overload.FuncStatic:
			f.Comment(fn.Name + " calls the static method " + foreign + ".")
			deprecated(f, foreign, fn.Method.Deprecated)
			invoke := append([]jen.Code{methodID(fn.Declarer, fn.Method)}, args(fn.Params)...)
			body := append([]jen.Code{call(fn.Result, jen.Id("env").Dot("InvokeStatic").Call(invoke...))}, finish(fn.Result)...)
			f.Func().Id(fn.Name).Add(e.signature(fn.Params, fn.Result)).Block(body...)
		case overload.FuncStaticGet:
			f.Comment(fn.Name + " reads the static field " + fn.Declarer + "." + fn.Field.Name + ".")
			deprecated(f, fn.Declarer+"."+fn.Field.Name, fn.Field.Deprecated)
			body := append([]jen.Code{
				jen.List(jen.Id("v"), jen.Err()).Op(":=").Id("env").Dot("GetStaticField").Call(e.fieldID(fn.Declarer, fn.Field)),
			}, finish(fn.Result)...)
			f.Func().Id(fn.Name).Add(e.signature(nil, fn.Result)).Block(body...)
		case overload.FuncStaticSet:
			f.Comment(fn.Name + " writes the static field " + fn.Declarer + "." + fn.Field.Name + ".")
			deprecated(f, fn.Declarer+"."+fn.Field.Name, fn.Field.Deprecated)
			f.Func().Id(fn.Name).Add(e.signature(fn.Params, typemap.Void)).Block(
				jen.Return(jen.Id("env").Dot("SetStaticField").Call(e.fieldID(fn.Declarer, fn.Field), args(fn.Params)[0])),
			)
		}
	}
}
