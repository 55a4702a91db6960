package emit

import (
	"context"
	"go/parser"
	"go/token"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/jbind/graph"
	"github.com/teranos/jbind/model"
	mt "github.com/teranos/jbind/model/modeltest"
	"github.com/teranos/jbind/naming"
	"github.com/teranos/jbind/overload"
	"github.com/teranos/jbind/typemap"
)

func plan(t *testing.T, nopts naming.Options, classes ...*model.Class) Plan {
	t.Helper()
	classes = append([]*model.Class{mt.Object()}, classes...)
	g, _ := graph.Build(classes, graph.Options{})
	if nopts.Module == "" {
		nopts.Module = "example.com/gen"
	}
	names, _ := naming.Resolve(g, nopts)
	mapper, err := typemap.New(g, names, 0)
	require.NoError(t, err)
	res, _, err := overload.Resolve(context.Background(), g, names, mapper, overload.Options{})
	require.NoError(t, err)
	return Plan{Names: names, Members: res}
}

func emit(t *testing.T, p Plan) map[string]string {
	t.Helper()
	units, _, err := Emit(context.Background(), p)
	require.NoError(t, err)
	out := map[string]string{}
	for _, u := range units {
		out[u.Path] = string(u.Source)
	}
	return out
}

func TestEmitOverrideIsNotRedeclared(t *testing.T) {
	files := emit(t, plan(t, naming.Options{},
		mt.With(mt.Class("pkg.Base", model.ObjectClass), mt.Method("foo", mt.Int)),
		mt.With(mt.Class("pkg.Derived", "pkg.Base"), mt.Method("foo", mt.Int)),
	))

	require.Contains(t, files, "pkg/base_jbind.go")
	require.Contains(t, files, "pkg/derived_jbind.go")
	base, derived := files["pkg/base_jbind.go"], files["pkg/derived_jbind.go"]

	assert.True(t, strings.HasPrefix(base, "// "+Header))
	assert.Contains(t, base, "type Base struct {\n\tlang.Object\n}")
	assert.Contains(t, base, "func (h Base) Foo(env jglue.Env) (int32, error) {")
	assert.Contains(t, base, `"pkg/Base"`)
	assert.Contains(t, base, "return v.Int(), nil")

	assert.Contains(t, derived, "type Derived struct {\n\tBase\n}")
	assert.Contains(t, derived, "func (Derived) Bind(r jglue.Ref) Derived {")
	assert.NotContains(t, derived, "Foo(")
}

func TestEmitUnitsParse(t *testing.T) {
	units, _, err := Emit(context.Background(), plan(t, naming.Options{},
		mt.Class("java.lang.String", model.ObjectClass),
		mt.With(mt.Interface("pkg.Sized"), mt.Method("size", mt.Int)),
		mt.With(mt.Class("pkg.Bag", model.ObjectClass, "pkg.Sized"),
			mt.Constructor(),
			mt.Method("add", mt.Void, mt.String),
			mt.Method("items", model.ArrayOf(mt.String, 2)),
			mt.Static("empty", model.Ref("pkg.Bag")),
		),
	))
	require.NoError(t, err)

	var paths []string
	for _, u := range units {
		paths = append(paths, u.Path)
		f, err := parser.ParseFile(token.NewFileSet(), u.Path, u.Source, parser.ParseComments)
		require.NoError(t, err, "%s:\n%s", u.Path, u.Source)
		want := "pkg"
		if strings.HasPrefix(u.Path, "java/lang/") {
			want = "lang"
		}
		assert.Equal(t, want, f.Name.Name)
	}
	assert.Equal(t, []string{
		"java/lang/doc_jbind.go",
		"java/lang/object_jbind.go",
		"java/lang/string_jbind.go",
		"pkg/bag_jbind.go",
		"pkg/doc_jbind.go",
		"pkg/sized_jbind.go",
	}, paths)
}

func TestEmitInterfaceAndCompanion(t *testing.T) {
	files := emit(t, plan(t, naming.Options{},
		mt.With(mt.Interface("pkg.Sized"), mt.Method("size", mt.Int)),
		mt.Class("pkg.Bag", model.ObjectClass, "pkg.Sized"),
	))
	sized := files["pkg/sized_jbind.go"]
	assert.Contains(t, sized, "type Sized interface {")
	assert.Contains(t, sized, "jglue.Referent")
	assert.Contains(t, sized, "Size(env jglue.Env) (int32, error)")
	assert.Contains(t, sized, "type SizedHandle struct {\n\tlang.Object\n}")
	assert.Contains(t, sized, "func (h SizedHandle) Size(env jglue.Env) (int32, error) {")
	assert.Contains(t, sized, "var _ Sized = SizedHandle{}")

	bag := files["pkg/bag_jbind.go"]
	assert.Contains(t, bag, "func (h Bag) Size(env jglue.Env) (int32, error) {")
	assert.Contains(t, bag, `"pkg/Sized"`, "the wrapper calls the interface method")
	assert.Contains(t, bag, "var _ Sized = Bag{}")
}

func TestEmitFuncsFieldsAndConsts(t *testing.T) {
	static := mt.Field("count", mt.Int)
	static.Modifiers |= model.Static
	a := mt.With(mt.Class("pkg.A", model.ObjectClass),
		mt.Constructor(mt.Int),
		mt.Static("of", model.Ref("pkg.A"), mt.Int),
	)
	mt.WithFields(a,
		mt.Field("x", mt.Int),
		static,
		mt.Const("MAX", mt.Int, int32(10)),
		mt.Const("NAME", model.Ref("java.lang.String"), "a"),
		mt.Const("FLAG", model.Prim(model.Boolean), true),
	)
	files := emit(t, plan(t, naming.Options{}, mt.Class("java.lang.String", model.ObjectClass), a))
	src := files["pkg/a_jbind.go"]

	assert.Contains(t, src, "func NewA(env jglue.Env, p0 int32) (jglue.Local[A], error) {")
	assert.Contains(t, src, "r, err := env.New(")
	assert.Contains(t, src, "return jglue.NewLocal[A](env, r), nil")
	assert.Contains(t, src, "func A_Of(env jglue.Env, p0 int32) (jglue.Local[A], error) {")
	assert.Contains(t, src, "env.InvokeStatic(")
	assert.Contains(t, src, "func A_Count(env jglue.Env) (int32, error) {")
	assert.Contains(t, src, "func A_SetCount(env jglue.Env, p0 int32) error {")
	assert.Contains(t, src, "env.SetStaticField(")
	assert.Contains(t, src, "func (h A) GetX(env jglue.Env) (int32, error) {")
	assert.Contains(t, src, "func (h A) SetX(env jglue.Env, p0 int32) error {")
	assert.Contains(t, src, "env.GetField(h.JRef(),")
	assert.Contains(t, src, "const A_MAX = int32(10)")
	assert.Contains(t, src, `const A_NAME = "a"`)
	assert.Contains(t, src, "const A_FLAG = true")
}

func TestEmitReferenceTypes(t *testing.T) {
	files := emit(t, plan(t, naming.Options{},
		mt.Class("java.lang.String", model.ObjectClass),
		mt.With(mt.Class("pkg.A", model.ObjectClass),
			mt.Method("name", mt.String, mt.String),
			mt.Method("grid", model.ArrayOf(mt.Int, 2)),
			mt.Method("flag", model.Prim(model.Boolean)),
		),
	))
	src := files["pkg/a_jbind.go"]
	assert.Contains(t, src, "func (h A) Name(env jglue.Env, p0 lang.String) (jglue.Local[lang.String], error) {")
	assert.Contains(t, src, "jglue.ObjectValue(p0)")
	assert.Contains(t, src, "return jglue.Local[lang.String]{}, err")
	assert.Contains(t, src, "return jglue.NewLocal[lang.String](env, v.Ref()), nil")
	assert.Contains(t, src, "func (h A) Grid(env jglue.Env) (jglue.Local[jglue.Array[jglue.Array[int32]]], error) {")
	assert.Contains(t, src, "return false, err")
}

func TestEmitKeepRejected(t *testing.T) {
	p := plan(t, naming.Options{},
		mt.With(mt.Class("pkg.A", model.ObjectClass),
			mt.Method("use", mt.Void, model.Ref("com.missing.Thing")),
		),
	)
	src := emit(t, p)["pkg/a_jbind.go"]
	assert.NotContains(t, src, "Not emitting")

	p.KeepRejected = true
	src = emit(t, p)["pkg/a_jbind.go"]
	assert.Contains(t, src, "// Not emitting: pkg.A#use(Lcom/missing/Thing;)V: ")
}

func TestEmitPackageUnit(t *testing.T) {
	units, _, err := Emit(context.Background(), plan(t, naming.Options{Unit: naming.UnitPackage},
		mt.Class("pkg.A", model.ObjectClass),
		mt.Class("pkg.B", "pkg.A"),
	))
	require.NoError(t, err)

	var found bool
	for _, u := range units {
		if u.Path == "pkg/pkg_jbind.go" {
			found = true
			assert.Equal(t, []string{"pkg.A", "pkg.B"}, u.Classes)
			assert.Contains(t, string(u.Source), "type A struct")
			assert.Contains(t, string(u.Source), "type B struct")
		}
	}
	assert.True(t, found)
}

func TestEmitDocFile(t *testing.T) {
	files := emit(t, plan(t, naming.Options{Layout: naming.LayoutSingle, PackageName: "bindings"},
		mt.Class("pkg.A", model.ObjectClass),
		mt.Class("other.B", model.ObjectClass),
	))
	doc := files["doc_jbind.go"]
	assert.Contains(t, doc, "// Package bindings binds the Java packages:")
	assert.Contains(t, doc, "//\tjava.lang")
	assert.Contains(t, doc, "//\tother")
	assert.Contains(t, doc, "//\tpkg")
	assert.Contains(t, doc, "package bindings")
}

func TestEmitAliasesShadowedImports(t *testing.T) {
	files := emit(t, plan(t, naming.Options{},
		mt.Class("env.Thing", model.ObjectClass),
		mt.With(mt.Class("pkg.A", model.ObjectClass), mt.Method("take", mt.Void, model.Ref("env.Thing"))),
	))
	src := files["pkg/a_jbind.go"]
	assert.Contains(t, src, `envpkg "example.com/gen/env"`)
	assert.Contains(t, src, "p0 envpkg.Thing")
}

func TestEmitIsDeterministic(t *testing.T) {
	mk := func() Plan {
		return plan(t, naming.Options{},
			mt.With(mt.Interface("pkg.I"), mt.Method("run", mt.Void)),
			mt.With(mt.Class("pkg.A", model.ObjectClass, "pkg.I"), mt.Method("run", mt.Void, mt.Int)),
			mt.Class("pkg.B", "pkg.A"),
		)
	}
	first, _, err := Emit(context.Background(), mk())
	require.NoError(t, err)
	p := mk()
	p.Workers = 1
	second, _, err := Emit(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEmitCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := Emit(ctx, plan(t, naming.Options{}, mt.Class("pkg.A", model.ObjectClass)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConstValue(t *testing.T) {
	for _, tc := range []struct {
		goType string
		in     any
		want   any
		ok     bool
	}{
		{"int32", int32(7), int32(7), true},
		{"int32", int64(1) << 40, nil, false},
		{"int64", float64(3), int64(3), true},
		{"int8", int32(-128), int8(-128), true},
		{"int16", int32(40000), nil, false},
		{"uint16", "A", uint16('A'), true},
		{"uint16", int32(-1), nil, false},
		{"float32", float64(1.5), float32(1.5), true},
		{"float64", int32(2), float64(2), true},
		{"bool", true, true, true},
		{"string", "x", "x", true},
		{"string", int32(1), "", false},
		{"int32", 1.5, nil, false},
	} {
		got, ok := constValue(tc.goType, tc.in)
		assert.Equal(t, tc.ok, ok, "%s %v", tc.goType, tc.in)
		if tc.ok {
			assert.Equal(t, tc.want, got)
		}
	}
}

func TestTypeCodeMatchesHostType(t *testing.T) {
	h := typemap.HostType{
		Category: typemap.CatArray, Rank: 2, Owned: true,
		Type: typemap.Named{Path: "example.com/gen/java/lang", Name: "String"},
	}
	assert.Equal(t, `jglue.Local[jglue.Array[jglue.Array[lang.String]]]`, h.ShortString())
	assert.Equal(t, "github.com/teranos/jbind/jglue.Local[github.com/teranos/jbind/jglue.Array[github.com/teranos/jbind/jglue.Array[example.com/gen/java/lang.String]]]", h.String())
	assert.NotNil(t, typeCode(h))
}
