package graph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/jbind/diag"
	"github.com/teranos/jbind/errors"
	"github.com/teranos/jbind/model"
)

func ref(name string) *model.TypeRef {
	r := model.Ref(name)
	return &r
}

func class(name, super string, ifaces ...string) *model.Class {
	c := &model.Class{Name: name, Kind: model.KindClass, Modifiers: model.Public}
	if super != "" {
		c.Super = ref(super)
	}
	for _, i := range ifaces {
		c.Interfaces = append(c.Interfaces, model.Ref(i))
	}
	return c
}

func iface(name string, supers ...string) *model.Class {
	c := class(name, "", supers...)
	c.Kind = model.KindInterface
	return c
}

func method(name string, ret model.TypeRef, params ...model.TypeRef) model.Method {
	m := model.Method{Name: name, Modifiers: model.Public, Return: ret}
	for _, p := range params {
		m.Params = append(m.Params, model.Param{Type: p})
	}
	return m
}

func kinds(ds []diag.Diagnostic) []diag.Kind {
	var out []diag.Kind
	for _, d := range ds {
		out = append(out, d.Kind)
	}
	return out
}

func TestBuildDuplicateClassKeepsFirst(t *testing.T) {
	first := class("pkg.A", model.ObjectClass)
	first.Origin = "a.jar"
	second := class("pkg.A", model.ObjectClass)
	second.Origin = "b.jar"

	g, ds := Build([]*model.Class{first, second}, Options{})

	require.Len(t, ds, 1)
	assert.True(t, errors.Is(ds[0], errors.ErrDuplicateClass))
	n, ok := g.Lookup("pkg.A")
	require.True(t, ok)
	assert.Same(t, first, n.Class)
	assert.Len(t, g.Nodes(), 1)
}

func TestBuildUnresolvedMemberIsSkippedNotClass(t *testing.T) {
	c := class("pkg.A", model.ObjectClass)
	c.Methods = []model.Method{
		method("ok", model.Prim(model.Int)),
		method("bad", model.Prim(model.Void), model.Ref("pkg.Missing")),
		method("generic", model.Ref("java.util.List", model.Ref("pkg.Missing"))),
	}
	c.Fields = []model.Field{{Name: "gone", Type: model.Ref("pkg.Missing")}}
	list := iface("java.util.List")

	g, ds := Build([]*model.Class{c, list}, Options{})

	n, _ := g.Lookup("pkg.A")
	assert.False(t, n.Invalid)
	_, skipped := n.Unemittable("ok()I")
	assert.False(t, skipped)

	d, skipped := n.Unemittable("bad(Lpkg/Missing;)V")
	require.True(t, skipped)
	assert.Equal(t, "pkg.Missing", d.Ref)
	assert.Equal(t, diag.Error, d.Severity)

	_, skipped = n.Unemittable("generic()Ljava/util/List;")
	assert.False(t, skipped, "generic arguments are erased and never block a member")

	_, skipped = n.Unemittable("field:gone")
	assert.True(t, skipped)
	assert.Equal(t, []diag.Kind{diag.UnresolvedType, diag.UnresolvedType}, kinds(ds))
}

func TestBuildExcludedReferenceIsWarning(t *testing.T) {
	c := class("pkg.A", model.ObjectClass)
	c.Methods = []model.Method{method("x", model.Ref("internal.Hidden"))}

	_, ds := Build([]*model.Class{c}, Options{Excluded: func(name string) bool { return name == "internal.Hidden" }})

	require.Len(t, ds, 1)
	assert.Equal(t, diag.Warning, ds[0].Severity)
	assert.Contains(t, ds[0].Message, "excluded")
}

func TestBuildUnresolvedSuperBecomesRoot(t *testing.T) {
	object := class(model.ObjectClass, "")
	c := class("pkg.A", "pkg.Gone")

	g, ds := Build([]*model.Class{object, c}, Options{})

	require.Len(t, ds, 1)
	assert.Equal(t, "pkg.Gone", ds[0].Ref)
	n, _ := g.Lookup("pkg.A")
	require.NotNil(t, n.Super)
	assert.Equal(t, model.ObjectClass, n.Super.Name(), "unresolved super falls back to Object")
	assert.False(t, n.Invalid)
}

func TestBuildInheritanceCycle(t *testing.T) {
	a := class("pkg.A", "pkg.B")
	b := class("pkg.B", "pkg.A")
	c := class("pkg.C", "pkg.A")
	d := class("pkg.D", model.ObjectClass)
	user := class("pkg.User", model.ObjectClass)
	user.Methods = []model.Method{method("take", model.Prim(model.Void), model.Ref("pkg.A"))}

	g, ds := Build([]*model.Class{a, b, c, d, user}, Options{})

	for _, name := range []string{"pkg.A", "pkg.B", "pkg.C"} {
		n, _ := g.Lookup(name)
		assert.True(t, n.Invalid, name)
	}
	n, _ := g.Lookup("pkg.D")
	assert.False(t, n.Invalid)
	assert.False(t, g.Known("pkg.A"))

	u, _ := g.Lookup("pkg.User")
	_, skipped := u.Unemittable("take(Lpkg/A;)V")
	assert.True(t, skipped, "members referring to invalid classes are unemittable")

	var cycles int
	for _, d := range ds {
		if d.Kind == diag.InheritanceCycle {
			cycles++
		}
	}
	assert.Equal(t, 3, cycles)
	assert.Len(t, g.Valid(), 2)
}

func TestBuildMaxDepth(t *testing.T) {
	classes := []*model.Class{class("pkg.C0", "")}
	for i := 1; i <= 5; i++ {
		classes = append(classes, class("pkg.C"+string(rune('0'+i)), "pkg.C"+string(rune('0'+i-1))))
	}
	g, _ := Build(classes, Options{MaxDepth: 3})

	n, _ := g.Lookup("pkg.C3")
	assert.False(t, n.Invalid)
	n, _ = g.Lookup("pkg.C4")
	assert.True(t, n.Invalid)
}

func TestBuildInterfaceCycle(t *testing.T) {
	i := iface("pkg.I", "pkg.J")
	j := iface("pkg.J", "pkg.I")
	k := iface("pkg.K", "pkg.I")

	g, ds := Build([]*model.Class{i, j, k}, Options{})

	ni, _ := g.Lookup("pkg.I")
	nj, _ := g.Lookup("pkg.J")
	nk, _ := g.Lookup("pkg.K")
	assert.True(t, ni.Invalid)
	assert.True(t, nj.Invalid)
	assert.False(t, nk.Invalid)
	assert.Empty(t, nk.Closure)
	assert.Contains(t, kinds(ds), diag.InheritanceCycle)
}

func TestClosureDiamondAndAncestors(t *testing.T) {
	classes := []*model.Class{
		class(model.ObjectClass, ""),
		iface("pkg.Top"),
		iface("pkg.Left", "pkg.Top"),
		iface("pkg.Right", "pkg.Top"),
		class("pkg.Base", model.ObjectClass, "pkg.Left"),
		class("pkg.Derived", "pkg.Base", "pkg.Right"),
	}
	g, ds := Build(classes, Options{})
	require.Empty(t, ds)

	d, _ := g.Lookup("pkg.Derived")
	var names []string
	for _, i := range d.Closure {
		names = append(names, i.Name())
	}
	assert.Equal(t, []string{"pkg.Left", "pkg.Right", "pkg.Top"}, names)

	var chain []string
	for _, a := range d.DispatchOrder() {
		chain = append(chain, a.Name())
	}
	assert.Equal(t, []string{"pkg.Derived", "pkg.Base", model.ObjectClass}, chain)

	top, _ := g.Lookup("pkg.Top")
	base, _ := g.Lookup("pkg.Base")
	assert.True(t, d.Implements(top))
	assert.True(t, d.IsSubtypeOf(base))
	assert.False(t, base.IsSubtypeOf(d))

	// every supertype sits at a lower level
	for _, n := range g.Valid() {
		for _, s := range append(n.Interfaces, n.Ancestors...) {
			assert.Less(t, s.Level, n.Level, "%s vs %s", s.Name(), n.Name())
		}
	}
}

func TestProviderIsMostDerived(t *testing.T) {
	base := class("pkg.Base", "")
	base.Methods = []model.Method{method("foo", model.Prim(model.Int)), method("bar", model.Prim(model.Void))}
	derived := class("pkg.Derived", "pkg.Base")
	derived.Methods = []model.Method{method("foo", model.Prim(model.Int))}

	g, _ := Build([]*model.Class{base, derived}, Options{})
	d, _ := g.Lookup("pkg.Derived")

	assert.Equal(t, "pkg.Derived", g.Provider(d, "foo()I").Name())
	assert.Equal(t, "pkg.Base", g.Provider(d, "bar()V").Name())
	assert.Nil(t, g.Provider(d, "baz()V"))
}

func TestInnerClassScope(t *testing.T) {
	outer := class("pkg.Outer", "")
	outer.TypeParams = []model.TypeParam{{Name: "T", Bounds: []model.TypeRef{model.Ref("java.lang.Number")}}}
	inner := class("pkg.Outer$Inner", "")
	inner.Methods = []model.Method{method("get", model.Var("T"))}
	nested := class("pkg.Outer$Nested", "")
	nested.Modifiers |= model.Static
	nested.Methods = []model.Method{method("get", model.Var("T"))}
	number := class("java.lang.Number", "")

	g, _ := Build([]*model.Class{outer, inner, nested, number}, Options{})

	in, _ := g.Lookup("pkg.Outer$Inner")
	assert.Equal(t, "pkg.Outer", in.Outer().Name())
	_, ok := in.Method("get()Ljava/lang/Number;")
	assert.True(t, ok, "inner classes see the enclosing type variables")

	ns, _ := g.Lookup("pkg.Outer$Nested")
	_, ok = ns.Method("get()Ljava/lang/Object;")
	assert.True(t, ok, "static nested classes do not")
}

func TestPackageGroupsMergeCycles(t *testing.T) {
	a := class("p.a.A", "")
	a.Methods = []model.Method{method("b", model.Ref("p.b.B"))}
	b := class("p.b.B", "")
	b.Methods = []model.Method{method("a", model.Prim(model.Void), model.Ref("p.a.A"))}
	c := class("p.c.C", "p.a.A")

	g, _ := Build([]*model.Class{c, b, a}, Options{})
	pg := g.Packages()

	groups := pg.Groups()
	require.Len(t, groups, 2)
	assert.Equal(t, PackageGroup{Primary: "p.a", Members: []string{"p.a", "p.b"}}, groups[0])
	assert.Equal(t, PackageGroup{Primary: "p.c", Members: []string{"p.c"}}, groups[1])

	grp, ok := pg.Group("p.b")
	require.True(t, ok)
	assert.Equal(t, "p.a", grp.Primary)
	assert.Equal(t, []string{"p.a"}, pg.DependsOn("p.c"))
}

func TestBuildIsOrderIndependent(t *testing.T) {
	mk := func() []*model.Class {
		base := class("pkg.Base", "", "pkg.I")
		base.Methods = []model.Method{method("f", model.Ref("pkg.Other"))}
		return []*model.Class{
			iface("pkg.I"),
			base,
			class("pkg.Other", ""),
			class("pkg.Derived", "pkg.Base"),
		}
	}
	forward := mk()
	backward := mk()
	for i, j := 0, len(backward)-1; i < j; i, j = i+1, j-1 {
		backward[i], backward[j] = backward[j], backward[i]
	}

	g1, d1 := Build(forward, Options{})
	g2, d2 := Build(backward, Options{})

	assert.Equal(t, d1, d2)
	assert.Equal(t, g1.Edges(), g2.Edges())
	assert.Equal(t, g1.Packages().Groups(), g2.Packages().Groups())
	assert.Equal(t, g1.Stats(), g2.Stats())
}

func TestSnapshot(t *testing.T) {
	base := class("pkg.Base", "", "pkg.I")
	g, _ := Build([]*model.Class{iface("pkg.I"), base}, Options{})

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	snap := g.Snapshot(now)
	assert.Len(t, snap.Nodes, 2)
	require.Len(t, snap.Links, 1)
	assert.Equal(t, SnapshotLink{Source: "pkg.Base", Target: "pkg.I", Type: "IMPLEMENTS"}, snap.Links[0])
	assert.Equal(t, 1, snap.Meta.Stats.Classes)
	assert.Equal(t, 1, snap.Meta.Stats.Interfaces)
	assert.Equal(t, now, snap.Meta.GeneratedAt)
}
