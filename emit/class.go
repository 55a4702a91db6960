package emit

import (
	"regexp"

	"github.com/dave/jennifer/jen"

	"github.com/teranos/jbind/diag"
	"github.com/teranos/jbind/model"
	"github.com/teranos/jbind/naming"
	"github.com/teranos/jbind/overload"
	"github.com/teranos/jbind/typemap"
)

// locals are identifiers generated bodies declare. Imported packages
// with one of these names get an alias so they are not shadowed.
var locals = regexp.MustCompile(`^(h|r|v|env|err|p[0-9]+)$`)

type emitter struct {
	plan  Plan
	pkg   *naming.GoPackage
	diags *diag.Collector
}

func newEmitter(plan Plan, pkg *naming.GoPackage, diags *diag.Collector) *emitter {
	return &emitter{plan: plan, pkg: pkg, diags: diags}
}

func (e *emitter) file(p string, classes []*overload.Class) (Unit, error) {
	f := jen.NewFilePathName(e.pkg.Path, e.pkg.Name)
	f.HeaderComment(Header)
	f.ImportName(typemap.GluePath, "jglue")
	for _, gp := range e.plan.Names.Packages() {
		if gp != e.pkg && locals.MatchString(gp.Name) {
			f.ImportAlias(gp.Path, gp.Name+"pkg")
		}
	}

	names := make([]string, 0, len(classes))
	for i, c := range classes {
		if i > 0 {
			f.Line()
		}
		if c.Node.IsInterface() {
			e.iface(f, c)
		} else {
			e.class(f, c)
		}
		names = append(names, c.Node.Name())
	}
	return render(f, p, names)
}

// named returns the Go type of another resolved class.
func (e *emitter) named(class string) (typemap.Named, bool) {
	c, ok := e.plan.Members.Class(class)
	if !ok {
		return typemap.Named{}, false
	}
	return typemap.Named{Path: c.Names.Package.Path, Name: c.Names.Type}, true
}

func qual(n typemap.Named) *jen.Statement {
	return jen.Qual(n.Path, n.Name)
}

func (e *emitter) class(f *jen.File, c *overload.Class) {
	typ := c.Names.Type
	f.Comment(typ + " is a handle to a " + describe(c.Node.Class) + ".")
	if c.Node.Class.Deprecated {
		f.Comment("//")
		f.Comment("Deprecated: " + c.Node.Name() + " is deprecated.")
	}
	f.Type().Id(typ).Struct(qual(c.Embed))
	f.Line()
	e.bind(f, typ, c.Embed)

	for _, m := range c.Methods {
		f.Line()
		e.method(f, c, typ, m)
	}
	e.funcs(f, c)
	e.consts(f, c)

	if len(c.Asserts) > 0 {
		f.Line()
		for _, a := range c.Asserts {
			if n, ok := e.named(a); ok {
				f.Var().Id("_").Add(qual(n)).Op("=").Id(typ).Values()
			}
		}
	}
	e.rejected(f, c)
}

func (e *emitter) iface(f *jen.File, c *overload.Class) {
	typ, comp := c.Names.Type, c.Names.Companion
	f.Comment(typ + " is implemented by handles to " + c.Node.Name() + ".")
	if c.Node.Class.Deprecated {
		f.Comment("//")
		f.Comment("Deprecated: " + c.Node.Name() + " is deprecated.")
	}
	elems := []jen.Code{jen.Qual(typemap.GluePath, "Referent")}
	for _, s := range c.Embeds {
		if n, ok := e.named(s); ok {
			elems = append(elems, qual(n))
		}
	}
	for _, m := range c.Interface {
		elems = append(elems, jen.Id(m.Name).Add(e.signature(m.Params, m.Result)))
	}
	f.Type().Id(typ).Interface(elems...)
	f.Line()

	f.Comment(comp + " is a handle to an object implementing " + c.Node.Name() + ".")
	f.Type().Id(comp).Struct(qual(c.Embed))
	f.Line()
	e.bind(f, comp, c.Embed)
	for _, m := range c.Methods {
		f.Line()
		e.method(f, c, comp, m)
	}
	e.funcs(f, c)
	e.consts(f, c)

	if c.CompanionComplete {
		f.Line()
		f.Var().Id("_").Id(typ).Op("=").Id(comp).Values()
	}
	e.rejected(f, c)
}

func (e *emitter) bind(f *jen.File, typ string, embed typemap.Named) {
	f.Comment("Bind returns a " + typ + " for r.")
	f.Func().Params(jen.Id(typ)).Id("Bind").Params(jen.Id("r").Qual(typemap.GluePath, "Ref")).Id(typ).Block(
		jen.Return(jen.Id(typ).Values(jen.Dict{
			jen.Id(embed.Name): qual(embed).Values().Dot("Bind").Call(jen.Id("r")),
		})),
	)
}

func (e *emitter) rejected(f *jen.File, c *overload.Class) {
	if !e.plan.KeepRejected || len(c.Rejected) == 0 {
		return
	}
	f.Line()
	for _, r := range c.Rejected {
		f.Comment("Not emitting: " + c.Node.Name() + "#" + r.Member + ": " + r.Reason)
	}
}

func describe(c *model.Class) string {
	switch c.Kind {
	case model.KindEnum:
		return "enum " + c.Name
	case model.KindAnnotation:
		return "annotation " + c.Name
	}
	return c.Name
}
