package overload

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/jbind/diag"
	"github.com/teranos/jbind/graph"
	"github.com/teranos/jbind/model"
	mt "github.com/teranos/jbind/model/modeltest"
	"github.com/teranos/jbind/naming"
	"github.com/teranos/jbind/typemap"
)

func resolve(t *testing.T, opts Options, classes ...*model.Class) (*Result, []diag.Diagnostic) {
	t.Helper()
	classes = append([]*model.Class{mt.Object(), mt.Class("java.lang.String", model.ObjectClass)}, classes...)
	g, _ := graph.Build(classes, graph.Options{})
	names, ds := naming.Resolve(g, naming.Options{Module: "example.com/gen"})
	require.Empty(t, ds)
	mapper, err := typemap.New(g, names, 0)
	require.NoError(t, err)
	res, ds, err := Resolve(context.Background(), g, names, mapper, opts)
	require.NoError(t, err)
	return res, ds
}

func class(t *testing.T, res *Result, name string) *Class {
	t.Helper()
	c, ok := res.Class(name)
	require.True(t, ok, "class %s not resolved", name)
	return c
}

func methodNames(ms []*Member) []string {
	var out []string
	for _, m := range ms {
		out = append(out, m.Name)
	}
	return out
}

func byKey(ms []*Member, key string) *Member {
	for _, m := range ms {
		if m.Key == key {
			return m
		}
	}
	return nil
}

func kindsOf(ds []diag.Diagnostic) []diag.Kind {
	var out []diag.Kind
	for _, d := range ds {
		out = append(out, d.Kind)
	}
	return out
}

func TestOverrideDoesNotDuplicate(t *testing.T) {
	res, _ := resolve(t, Options{},
		mt.With(mt.Class("pkg.Base", model.ObjectClass), mt.Method("foo", mt.Int)),
		mt.With(mt.Class("pkg.Derived", "pkg.Base"), mt.Method("foo", mt.Int)),
	)
	base := class(t, res, "pkg.Base")
	derived := class(t, res, "pkg.Derived")

	assert.Equal(t, []string{"Foo"}, methodNames(base.Methods))
	assert.Empty(t, derived.Methods, "the promoted Foo reaches the override")
	assert.Equal(t, "Base", derived.Embed.Name)

	foo, ok := derived.Lookup("Foo")
	require.True(t, ok)
	assert.Equal(t, "pkg.Base", foo.Declarer)
}

func TestCovariantOverrideKeepsName(t *testing.T) {
	res, _ := resolve(t, Options{},
		mt.With(mt.Class("pkg.Base", model.ObjectClass), mt.Method("get", model.Ref(model.ObjectClass))),
		mt.With(mt.Class("pkg.Derived", "pkg.Base"), mt.Method("get", mt.String)),
	)
	derived := class(t, res, "pkg.Derived")
	require.Len(t, derived.Methods, 1)
	assert.Equal(t, "Get", derived.Methods[0].Name)
	assert.Equal(t, StrategyInherited, derived.Methods[0].Strategy)
	assert.Equal(t, "jglue.Local[lang.String]", derived.Methods[0].Result.ShortString())
}

func TestOverloadSuffixOrder(t *testing.T) {
	res, _ := resolve(t, Options{},
		mt.With(mt.Class("pkg.A", model.ObjectClass),
			mt.Method("foo", mt.Void, mt.String),
			mt.Method("foo", mt.Void, mt.Int),
			mt.Method("foo", mt.Void),
			mt.Method("bar", mt.Void),
		),
	)
	a := class(t, res, "pkg.A")
	assert.Equal(t, "Foo", byKey(a.Methods, "foo()V").Name)
	assert.Equal(t, "Foo_2", byKey(a.Methods, "foo(I)V").Name)
	assert.Equal(t, "Foo_3", byKey(a.Methods, "foo(Ljava/lang/String;)V").Name)
	assert.Equal(t, StrategySuffixed, byKey(a.Methods, "foo(I)V").Strategy)
	assert.Equal(t, StrategyUnique, byKey(a.Methods, "bar()V").Strategy)
}

func TestOverloadSignatureMangling(t *testing.T) {
	res, _ := resolve(t, Options{Collision: CollisionSignature},
		mt.With(mt.Class("pkg.A", model.ObjectClass),
			mt.Method("foo", mt.Void, mt.String),
			mt.Method("foo", mt.Void, mt.Int),
			mt.Method("foo", mt.Void, mt.Int, mt.String),
		),
	)
	a := class(t, res, "pkg.A")
	assert.Equal(t, "Foo", byKey(a.Methods, "foo(I)V").Name)
	assert.Equal(t, "Foo_String", byKey(a.Methods, "foo(Ljava/lang/String;)V").Name)
	assert.Equal(t, "Foo_int32_String", byKey(a.Methods, "foo(ILjava/lang/String;)V").Name)
	assert.Equal(t, StrategySignature, byKey(a.Methods, "foo(Ljava/lang/String;)V").Strategy)
}

func TestSubclassOverloadTakesNextSuffix(t *testing.T) {
	res, _ := resolve(t, Options{},
		mt.With(mt.Class("pkg.Base", model.ObjectClass),
			mt.Method("foo", mt.Void),
			mt.Method("foo", mt.Void, mt.Int),
		),
		mt.With(mt.Class("pkg.Derived", "pkg.Base"),
			mt.Method("foo", mt.Void, mt.Int),
			mt.Method("foo", mt.Void, mt.String),
		),
	)
	derived := class(t, res, "pkg.Derived")
	assert.Equal(t, []string{"Foo_3"}, methodNames(derived.Methods))

	names := methodNames(derived.Surface())
	assert.Contains(t, names, "Foo")
	assert.Contains(t, names, "Foo_2")
	assert.Contains(t, names, "Foo_3")
}

func TestReservedNamesEscaped(t *testing.T) {
	res, _ := resolve(t, Options{},
		mt.Class("pkg.Base", model.ObjectClass),
		mt.With(mt.Class("pkg.Derived", "pkg.Base"),
			mt.Method("bind", mt.Void),
			mt.Method("isNull", mt.Void),
			mt.Method("base", mt.Void),
		),
	)
	derived := class(t, res, "pkg.Derived")
	assert.Equal(t, []string{"Base_", "Bind_", "IsNull_"}, methodNames(derived.Methods))
}

func TestBridgeSuppression(t *testing.T) {
	bridge := mt.Method("compareTo", mt.Int, model.Ref(model.ObjectClass))
	bridge.Modifiers |= model.Bridge | model.Synthetic
	res, ds := resolve(t, Options{},
		mt.With(mt.Class("pkg.Name", model.ObjectClass),
			mt.Method("compareTo", mt.Int, mt.String),
			bridge,
		),
	)
	name := class(t, res, "pkg.Name")
	require.Len(t, name.Methods, 1)
	assert.Equal(t, "compareTo(Ljava/lang/String;)I", name.Methods[0].Key)
	assert.Equal(t, "CompareTo", name.Methods[0].Name)
	assert.Contains(t, kindsOf(ds), diag.SuppressedBridge)
	require.Len(t, name.Rejected, 1)
	assert.Equal(t, "compareTo(Ljava/lang/Object;)I", name.Rejected[0].Member)
}

func TestCovariantBridgeWithoutFlags(t *testing.T) {
	res, ds := resolve(t, Options{},
		mt.With(mt.Class("pkg.Builder", model.ObjectClass),
			mt.Method("append", model.Ref(model.ObjectClass), mt.Int),
			mt.Method("append", model.Ref("pkg.Builder"), mt.Int),
		),
	)
	b := class(t, res, "pkg.Builder")
	require.Len(t, b.Methods, 1)
	assert.Equal(t, "append(I)Lpkg/Builder;", b.Methods[0].Key)
	assert.Equal(t, []diag.Kind{diag.SuppressedBridge}, kindsOf(ds))
}

func TestInterfaceWrapperAndAssertion(t *testing.T) {
	res, ds := resolve(t, Options{},
		mt.With(mt.Interface("pkg.Sized"), mt.Method("size", mt.Int)),
		mt.Class("pkg.Bag", model.ObjectClass, "pkg.Sized"),
	)
	require.Empty(t, ds)
	bag := class(t, res, "pkg.Bag")
	assert.Equal(t, []string{"pkg.Sized"}, bag.Asserts)
	require.Len(t, bag.Methods, 1)
	assert.Equal(t, KindInterfaceWrapper, bag.Methods[0].Kind)
	assert.Equal(t, "pkg.Sized", bag.Methods[0].Declarer)

	sized := class(t, res, "pkg.Sized")
	assert.Equal(t, []string{"Size"}, methodNames(sized.Interface))
	assert.True(t, sized.CompanionComplete)
	assert.Equal(t, []string{"Size"}, methodNames(sized.Methods))
	assert.Equal(t, "Object", sized.Embed.Name)
}

func TestInterfaceNamePreferred(t *testing.T) {
	res, _ := resolve(t, Options{},
		mt.With(mt.Interface("pkg.Writer"), mt.Method("write", mt.Void, mt.Int)),
		mt.With(mt.Class("pkg.Out", model.ObjectClass, "pkg.Writer"),
			mt.Method("write", mt.Void),
			mt.Method("write", mt.Void, mt.Int),
		),
	)
	out := class(t, res, "pkg.Out")
	assert.Equal(t, "Write", byKey(out.Methods, "write(I)V").Name, "interface name wins over group order")
	assert.Equal(t, "Write_2", byKey(out.Methods, "write()V").Name)
	assert.Equal(t, []string{"pkg.Writer"}, out.Asserts)
}

func TestAliasForRenamedMember(t *testing.T) {
	classes := []*model.Class{
		mt.Object(),
		mt.Class("java.lang.String", model.ObjectClass),
		mt.With(mt.Class("pkg.Base", model.ObjectClass), mt.Method("put", mt.Void, mt.String)),
		mt.With(mt.Interface("pkg.Sink"), mt.Method("put", mt.Void, mt.String)),
		mt.Class("pkg.Derived", "pkg.Base", "pkg.Sink"),
	}
	g, _ := graph.Build(classes, graph.Options{})
	names, _ := naming.Resolve(g, naming.Options{Renames: map[string]string{"pkg.Base#put": "PutString"}})
	mapper, err := typemap.New(g, names, 0)
	require.NoError(t, err)
	res, ds, err := Resolve(context.Background(), g, names, mapper, Options{})
	require.NoError(t, err)
	require.Empty(t, ds)

	derived := class(t, res, "pkg.Derived")
	assert.Equal(t, []string{"pkg.Sink"}, derived.Asserts)
	require.Len(t, derived.Methods, 1)
	alias := derived.Methods[0]
	assert.Equal(t, "Put", alias.Name)
	assert.Equal(t, KindAlias, alias.Kind)
	assert.Equal(t, "PutString", alias.Target)
	assert.True(t, alias.IsWrapper())
}

func TestInterfaceNameHeldByOverload(t *testing.T) {
	res, ds := resolve(t, Options{},
		mt.With(mt.Class("pkg.Base", model.ObjectClass),
			mt.Method("get", mt.Int, mt.Int),
			mt.Method("get", mt.Int, mt.Int, mt.Int),
		),
		mt.With(mt.Interface("pkg.Pair"), mt.Method("get", mt.Int, mt.Int, mt.Int)),
		mt.With(mt.Class("pkg.Derived", "pkg.Base", "pkg.Pair"), mt.Method("get", mt.Int, mt.Int, mt.Int)),
	)
	derived := class(t, res, "pkg.Derived")
	// Get is Base's get(int); Pair wants Get for get(int,int)
	assert.Empty(t, derived.Asserts)
	var collisions int
	for _, d := range ds {
		if d.Kind == diag.NameCollision {
			collisions++
			assert.Equal(t, "pkg.Pair", d.Ref)
			assert.Equal(t, diag.Warning, d.Severity)
		}
	}
	assert.Equal(t, 1, collisions)
}

func TestInterfaceConflictNotAsserted(t *testing.T) {
	res, ds := resolve(t, Options{},
		mt.With(mt.Class("pkg.Base", model.ObjectClass), mt.Method("foo", mt.Int)),
		mt.With(mt.Interface("pkg.I"), mt.Method("foo", mt.Void, mt.Int)),
		mt.Class("pkg.Derived", "pkg.Base", "pkg.I"),
	)
	derived := class(t, res, "pkg.Derived")
	assert.Empty(t, derived.Asserts)
	assert.Equal(t, []diag.Kind{diag.NameCollision}, kindsOf(ds))
}

func TestFieldAccessorsAndConstants(t *testing.T) {
	final := mt.Field("id", mt.Int)
	final.Modifiers |= model.Final
	static := mt.Field("count", mt.Int)
	static.Modifiers |= model.Static

	res, _ := resolve(t, Options{},
		mt.WithFields(mt.Class("pkg.A", model.ObjectClass),
			mt.Field("x", mt.Int),
			final,
			static,
			mt.Const("MAX", mt.Int, int32(10)),
			mt.Const("NAME", mt.String, "a"),
		),
	)
	a := class(t, res, "pkg.A")
	assert.Equal(t, []string{"GetId", "GetX", "SetX"}, methodNames(a.Methods))

	var funcs []string
	for _, f := range a.Funcs {
		funcs = append(funcs, f.Name)
	}
	assert.Equal(t, []string{"A_Count", "A_SetCount"}, funcs)

	require.Len(t, a.Consts, 2)
	assert.Equal(t, "A_MAX", a.Consts[0].Name)
	assert.Equal(t, "int32", a.Consts[0].GoType)
	assert.Equal(t, "A_NAME", a.Consts[1].Name)
	assert.Equal(t, "string", a.Consts[1].GoType)
}

func TestConstructorsAndStatics(t *testing.T) {
	res, _ := resolve(t, Options{},
		mt.With(mt.Class("pkg.A", model.ObjectClass),
			mt.Constructor(mt.Int),
			mt.Constructor(),
			mt.Static("of", model.Ref("pkg.A"), mt.Int),
		),
		mt.With(mt.Class("pkg.B", model.ObjectClass), mt.Constructor()),
		mt.Class("pkg.NewB", model.ObjectClass),
	)
	funcNames := func(c *Class) map[string]string {
		out := map[string]string{}
		for _, f := range c.Funcs {
			out[f.Key] = f.Name
		}
		return out
	}
	a := funcNames(class(t, res, "pkg.A"))
	assert.Equal(t, "NewA", a["<init>()V"])
	assert.Equal(t, "NewA_2", a["<init>(I)V"])
	assert.Equal(t, "A_Of", a["of(I)Lpkg/A;"])

	b := class(t, res, "pkg.B")
	require.Len(t, b.Funcs, 1)
	assert.Equal(t, "NewB_2", b.Funcs[0].Name, "type NewB keeps its name")
	assert.Equal(t, StrategySuffixed, b.Funcs[0].Strategy)
}

func TestAbstractClassHasNoConstructors(t *testing.T) {
	abstract := mt.With(mt.Class("pkg.Shape", model.ObjectClass), mt.Constructor())
	abstract.Modifiers |= model.Abstract
	res, _ := resolve(t, Options{}, abstract)
	assert.Empty(t, class(t, res, "pkg.Shape").Funcs)
}

func TestVisibilityAndIgnore(t *testing.T) {
	hidden := mt.Method("hidden", mt.Void)
	hidden.Modifiers = model.Protected
	res, _ := resolve(t, Options{Ignore: func(id string) bool { return id == "pkg.A#skip" }},
		mt.With(mt.Class("pkg.A", model.ObjectClass),
			hidden,
			mt.Method("skip", mt.Void),
			mt.Method("keep", mt.Void),
		),
	)
	a := class(t, res, "pkg.A")
	assert.Equal(t, []string{"Keep"}, methodNames(a.Methods))
	require.Len(t, a.Rejected, 1)
	assert.Equal(t, "ignored by configuration", a.Rejected[0].Reason)

	res, _ = resolve(t, Options{Visibility: "protected"},
		mt.With(mt.Class("pkg.A", model.ObjectClass), hidden),
	)
	assert.Equal(t, []string{"Hidden"}, methodNames(class(t, res, "pkg.A").Methods))
}

func TestErasureAudit(t *testing.T) {
	box := mt.With(mt.Class("pkg.Box", model.ObjectClass), mt.Method("get", model.Var("T")))
	box.TypeParams = []model.TypeParam{{Name: "T"}}
	res, ds := resolve(t, Options{}, box)

	get := class(t, res, "pkg.Box").Methods[0]
	assert.Equal(t, "jglue.Local[lang.Object]", get.Result.ShortString())
	require.Len(t, ds, 1)
	assert.Equal(t, diag.ErasureFallback, ds[0].Kind)
	assert.Equal(t, "T", ds[0].Ref)
	assert.Equal(t, diag.Info, ds[0].Severity)
}

func TestUnemittableMemberRejected(t *testing.T) {
	res, _ := resolve(t, Options{},
		mt.With(mt.Class("pkg.A", model.ObjectClass),
			mt.Method("use", mt.Void, model.Ref("com.missing.Thing")),
			mt.Method("ok", mt.Void),
		),
	)
	a := class(t, res, "pkg.A")
	assert.Equal(t, []string{"Ok"}, methodNames(a.Methods))
	require.Len(t, a.Rejected, 1)
	assert.Equal(t, "use(Lcom/missing/Thing;)V", a.Rejected[0].Member)
}

func TestMemberRename(t *testing.T) {
	classes := []*model.Class{
		mt.Object(),
		mt.With(mt.Class("pkg.A", model.ObjectClass), mt.Method("foo", mt.Void), mt.Method("foo", mt.Void, mt.Int)),
	}
	g, _ := graph.Build(classes, graph.Options{})
	names, _ := naming.Resolve(g, naming.Options{Renames: map[string]string{"pkg.A#foo(I)V": "FooInt"}})
	mapper, err := typemap.New(g, names, 0)
	require.NoError(t, err)
	res, _, err := Resolve(context.Background(), g, names, mapper, Options{})
	require.NoError(t, err)

	a := class(t, res, "pkg.A")
	assert.Equal(t, "FooInt", byKey(a.Methods, "foo(I)V").Name)
	assert.Equal(t, StrategyRenamed, byKey(a.Methods, "foo(I)V").Strategy)
	assert.Equal(t, "Foo", byKey(a.Methods, "foo()V").Name)
}

// Every method an ancestor or implemented interface exposes stays
// reachable from the subclass handle.
func TestSurfaceIsClosedOverInheritance(t *testing.T) {
	res, _ := resolve(t, Options{},
		mt.With(mt.Interface("pkg.I"), mt.Method("i", mt.Void)),
		mt.With(mt.Interface("pkg.J", "pkg.I"), mt.Method("j", mt.Void)),
		mt.With(mt.Class("pkg.A", model.ObjectClass), mt.Method("a", mt.Void)),
		mt.With(mt.Class("pkg.B", "pkg.A", "pkg.J"), mt.Method("b", mt.Void)),
		mt.With(mt.Class("pkg.C", "pkg.B"), mt.Method("c", mt.Void), mt.Method("a", mt.Void)),
	)
	c := class(t, res, "pkg.C")
	for _, ancestor := range []string{"pkg.A", "pkg.B", "pkg.I", "pkg.J"} {
		ac := class(t, res, ancestor)
		for _, m := range ac.Surface() {
			got, ok := c.Lookup(m.Name)
			require.True(t, ok, "%s.%s missing on pkg.C", ancestor, m.Name)
			assert.Equal(t, m.Signature(), got.Signature())
		}
	}
	assert.Equal(t, []string{"pkg.I", "pkg.J"}, class(t, res, "pkg.B").Asserts)
	assert.Equal(t, []string{"pkg.I"}, class(t, res, "pkg.J").Embeds)
}

func TestResolveIsOrderIndependent(t *testing.T) {
	mk := func() []*model.Class {
		return []*model.Class{
			mt.Object(),
			mt.With(mt.Interface("pkg.I"), mt.Method("run", mt.Void, mt.Int)),
			mt.With(mt.Class("pkg.A", model.ObjectClass, "pkg.I"),
				mt.Method("run", mt.Void),
				mt.Method("run", mt.Void, model.Ref("pkg.A")),
				mt.Constructor(),
			),
			mt.With(mt.Class("pkg.B", "pkg.A"), mt.Method("run", mt.Void, mt.Int, mt.Int)),
		}
	}
	run := func(classes []*model.Class) []naming.Entry {
		g, _ := graph.Build(classes, graph.Options{})
		names, _ := naming.Resolve(g, naming.Options{})
		mapper, err := typemap.New(g, names, 0)
		require.NoError(t, err)
		_, _, err = Resolve(context.Background(), g, names, mapper, Options{Workers: 4})
		require.NoError(t, err)
		return names.Entries()
	}
	forward := mk()
	reversed := mk()
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}
	assert.Equal(t, run(forward), run(reversed))
}

func TestResolveHonoursCancellation(t *testing.T) {
	g, _ := graph.Build([]*model.Class{mt.Object(), mt.Class("pkg.A", model.ObjectClass)}, graph.Options{})
	names, _ := naming.Resolve(g, naming.Options{})
	mapper, err := typemap.New(g, names, 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = Resolve(ctx, g, names, mapper, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUnknownVisibility(t *testing.T) {
	_, _, err := Resolve(context.Background(), nil, nil, nil, Options{Visibility: "friends"})
	require.Error(t, err)
}
