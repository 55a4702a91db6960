package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/jbind/diag"
	"github.com/teranos/jbind/graph"
	"github.com/teranos/jbind/model"
	mt "github.com/teranos/jbind/model/modeltest"
)

func build(t *testing.T, classes ...*model.Class) *graph.Graph {
	t.Helper()
	g, ds := graph.Build(classes, graph.Options{})
	for _, d := range ds {
		require.Less(t, d.Severity, diag.Error, "unexpected diagnostic: %v", d)
	}
	return g
}

func TestIdentifier(t *testing.T) {
	tests := []struct {
		in     string
		export bool
		want   string
	}{
		{"foo", true, "Foo"},
		{"foo", false, "foo"},
		{"Map$Entry", true, "Map_Entry"},
		{"ﬁle", true, "File"}, // NFKC expands the ligature
		{"1st", true, "X1st"},
		{"1st", false, "x1st"},
		{"café", true, "Café"},
		{"", true, "_"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Identifier(tt.in, tt.export), tt.in)
	}
}

func TestPackageSegment(t *testing.T) {
	tests := map[string]string{
		"util":     "util",
		"Util":     "util",
		"internal": "internal_",
		"main":     "main_",
		"func":     "func_",
		"_hidden":  "x_hidden",
		"2d":       "x2d",
		"":         "defaultpkg",
		"über":     "uber",
	}
	for in, want := range tests {
		assert.Equal(t, want, PackageSegment(in), in)
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"ArrayList":       "array_list",
		"HTTPSConnection": "https_connection",
		"Outer_Inner":     "outer_inner",
		"URL":             "url",
		"Http2Client":     "http2_client",
		"already_snake":   "already_snake",
	}
	for in, want := range tests {
		assert.Equal(t, want, ToSnakeCase(in), in)
	}
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "array_list_jbind.go", FileName("ArrayList"))
	assert.Equal(t, "map_entry_jbind.go", FileName("Map_Entry"))
	assert.Equal(t, "foo_test_jbind.go", FileName("FooTest"))
	assert.Equal(t, "item_2_jbind.go", FileSuffixed("item_jbind.go", 2))
}

func TestEscapeReserved(t *testing.T) {
	assert.Equal(t, "type_", EscapeReserved("type", IsKeyword))
	assert.Equal(t, "err_", EscapeReserved("err", IsReservedPackageLevel))
	assert.Equal(t, "Foo", EscapeReserved("Foo", IsReservedPackageLevel))
}

func TestTableAssignIsImmutable(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.Assign(KindClass, "p", "pkg.A", "A"))
	require.NoError(t, tbl.Assign(KindClass, "p", "pkg.A", "A"), "same assignment is idempotent")

	assert.Error(t, tbl.Assign(KindClass, "p", "pkg.A", "A_2"))
	assert.Error(t, tbl.Assign(KindClass, "p", "pkg.B", "A"))
	require.NoError(t, tbl.Assign(KindClass, "q", "pkg.B", "A"), "other scope")

	host, ok := tbl.Host(KindClass, "pkg.A")
	require.True(t, ok)
	assert.Equal(t, "A", host)
	foreign, ok := tbl.Foreign(KindClass, "q", "A")
	require.True(t, ok)
	assert.Equal(t, "pkg.B", foreign)
	assert.Equal(t, 2, tbl.Len())
}

func TestAllocateNaturalNamesFirst(t *testing.T) {
	s := NewScope(0)
	claims := []Claim{
		{Foreign: "b", Index: 0, Natural: "X"},
		{Foreign: "a", Index: 1, Natural: "X"},
		{Foreign: "c", Index: 2, Natural: "X_2"},
	}
	got, failed := s.Allocate(claims, TieSorted, nil)
	require.Empty(t, failed)
	assert.Equal(t, map[string]string{"a": "X", "b": "X_3", "c": "X_2"}, got)

	s = NewScope(0)
	got, _ = s.Allocate(claims, TieIngest, nil)
	assert.Equal(t, map[string]string{"b": "X", "a": "X_3", "c": "X_2"}, got)
}

func TestAllocateSuffixLimit(t *testing.T) {
	s := NewScope(3)
	s.Reserve("X")
	s.Reserve("X_2")
	s.Reserve("X_3")
	_, failed := s.Allocate([]Claim{{Foreign: "a", Natural: "X"}}, TieSorted, nil)
	require.Len(t, failed, 1)
	assert.Equal(t, "a", failed[0].Foreign)
}

func TestFoldingScope(t *testing.T) {
	s := NewFoldingScope(0, FoldFileName)
	got, _ := s.Allocate([]Claim{
		{Foreign: "pkg.A", Natural: "Item.go"},
		{Foreign: "pkg.a", Natural: "item.go"},
	}, TieSorted, NumericSuffix)
	assert.Equal(t, "Item.go", got["pkg.A"])
	assert.Equal(t, "item.go_2", got["pkg.a"])
}

// pkg.A.Item and pkg.a.item differ only by case; they must never share a
// declaration or a file.
func TestCaseOnlyDifferencePackagesLayout(t *testing.T) {
	g := build(t,
		mt.Class("pkg.A.Item", ""),
		mt.Class("pkg.a.item", ""),
	)
	r, ds := Resolve(g, Options{Module: "example.com/gen"})
	require.Empty(t, ds)

	upper, ok := r.Class("pkg.A.Item")
	require.True(t, ok)
	lower, ok := r.Class("pkg.a.item")
	require.True(t, ok)

	assert.Equal(t, "example.com/gen/pkg/a", upper.Package.Path)
	assert.Equal(t, "example.com/gen/pkg/a_2", lower.Package.Path)
	assert.Equal(t, "a_2", lower.Package.Name)
	assert.Equal(t, "Item", upper.Type)
	assert.Equal(t, "Item", lower.Type)
	assert.Equal(t, "pkg/a/item_jbind.go", upper.File)
	assert.Equal(t, "pkg/a_2/item_jbind.go", lower.File)
}

func TestCaseOnlyDifferenceSingleLayout(t *testing.T) {
	g := build(t,
		mt.Class("pkg.A.Item", ""),
		mt.Class("pkg.a.item", ""),
	)
	r, ds := Resolve(g, Options{Module: "example.com/gen", Layout: LayoutSingle, PackageName: "gen"})
	require.Empty(t, ds)

	upper, _ := r.Class("pkg.A.Item")
	lower, _ := r.Class("pkg.a.item")
	assert.Same(t, upper.Package, lower.Package)
	assert.Equal(t, "Item", upper.Type)
	assert.Equal(t, "Item_2", lower.Type)
	assert.Equal(t, "item_jbind.go", upper.File)
	assert.Equal(t, "item_2_jbind.go", lower.File)
}

func TestTieBreakPolicies(t *testing.T) {
	classes := []*model.Class{
		mt.Class("pkg.a.item", ""),
		mt.Class("pkg.A.Item", ""),
	}

	sorted, _ := Resolve(build(t, classes...), Options{Layout: LayoutSingle})
	c, _ := sorted.Class("pkg.A.Item")
	assert.Equal(t, "Item", c.Type, "lexically smallest name wins")

	ingest, _ := Resolve(build(t, classes...), Options{Layout: LayoutSingle, TieBreak: TieIngest})
	c, _ = ingest.Class("pkg.a.item")
	assert.Equal(t, "Item", c.Type, "first ingested wins")
	c, _ = ingest.Class("pkg.A.Item")
	assert.Equal(t, "Item_2", c.Type)
}

func TestResolveIgnoresIngestOrder(t *testing.T) {
	mk := func() []*model.Class {
		return []*model.Class{
			mt.Object(),
			mt.Class("pkg.A.Item", model.ObjectClass),
			mt.Class("pkg.a.item", model.ObjectClass),
			mt.Interface("pkg.List"),
			mt.Class("pkg.ListHandle", model.ObjectClass),
			mt.Class("pkg.Outer$Inner", model.ObjectClass),
		}
	}
	forward := mk()
	reversed := mk()
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}

	a, _ := Resolve(build(t, forward...), Options{})
	b, _ := Resolve(build(t, reversed...), Options{})
	assert.Equal(t, a.Entries(), b.Entries())
}

func TestCompanionYieldsToClassNames(t *testing.T) {
	g := build(t,
		mt.Object(),
		mt.Interface("pkg.List"),
		mt.Class("pkg.ListHandle", model.ObjectClass),
	)
	r, ds := Resolve(g, Options{})
	require.Empty(t, ds)

	list, _ := r.Class("pkg.List")
	handle, _ := r.Class("pkg.ListHandle")
	assert.Equal(t, "ListHandle", handle.Type)
	assert.Equal(t, "ListHandle_2", list.Companion)
	assert.Equal(t, "pkg/list_handle_jbind.go", handle.File)
}

func TestNestedAndReservedNames(t *testing.T) {
	g := build(t,
		mt.Object(),
		mt.Class("main.Outer$Inner", model.ObjectClass),
		mt.Class("main.Outer", model.ObjectClass),
	)
	r, ds := Resolve(g, Options{Module: "m"})
	require.Empty(t, ds)

	inner, _ := r.Class("main.Outer$Inner")
	assert.Equal(t, "Outer_Inner", inner.Type)
	assert.Equal(t, "m/main_", inner.Package.Path)
	assert.Equal(t, "main_/outer_inner_jbind.go", inner.File)

	obj, _ := r.Class(model.ObjectClass)
	assert.Equal(t, "m/java/lang", obj.Package.Path)
	assert.Equal(t, "lang", obj.Package.Name)
}

func TestRenames(t *testing.T) {
	g := build(t,
		mt.Class("pkg.Foo", ""),
		mt.Class("pkg.Bar", ""),
		mt.Class("pkg.Baz", ""),
	)
	r, ds := Resolve(g, Options{Renames: map[string]string{
		"pkg.Foo": "Bar",
		"pkg.Baz": "not-valid",
	}})

	foo, _ := r.Class("pkg.Foo")
	bar, _ := r.Class("pkg.Bar")
	assert.Equal(t, "Bar", foo.Type, "renames are pinned before natural names")
	assert.Equal(t, "Bar_2", bar.Type)

	_, ok := r.Class("pkg.Baz")
	assert.False(t, ok)
	require.Len(t, ds, 1)
	assert.Equal(t, diag.NameCollisionUnresolvable, ds[0].Kind)
	assert.Equal(t, "pkg.Baz", ds[0].Class)
}

func TestUnitPackage(t *testing.T) {
	g := build(t,
		mt.Class("pkg.util.A", ""),
		mt.Class("pkg.util.B", ""),
	)
	r, _ := Resolve(g, Options{Unit: UnitPackage})
	a, _ := r.Class("pkg.util.A")
	b, _ := r.Class("pkg.util.B")
	assert.Equal(t, "pkg/util/util_jbind.go", a.File)
	assert.Equal(t, a.File, b.File)
}

func TestPackageCycleSharesGoPackage(t *testing.T) {
	g := build(t,
		mt.Class("pkg.b.B", "pkg.a.A"),
		mt.With(mt.Class("pkg.a.A", ""), mt.Method("b", model.Ref("pkg.b.B"))),
	)
	r, _ := Resolve(g, Options{})
	a, _ := r.Class("pkg.a.A")
	b, _ := r.Class("pkg.b.B")
	assert.Same(t, a.Package, b.Package)
	assert.Equal(t, []string{"pkg.a", "pkg.b"}, a.Package.Java)
	assert.Equal(t, "pkg/a", a.Package.Dir)
}

func TestSingleLayoutRecordsEveryPackage(t *testing.T) {
	g := build(t, mt.Class("pkg.A", ""), mt.Class("other.B", ""))
	r, ds := Resolve(g, Options{Module: "example.com/gen", Layout: LayoutSingle})
	require.Empty(t, ds)

	for _, pkg := range []string{"pkg", "other"} {
		host, ok := r.Host(KindPackage, pkg)
		require.True(t, ok, pkg)
		assert.Equal(t, "example.com/gen", host)
	}
	file, ok := r.Host(KindFile, "pkg.A")
	require.True(t, ok)
	assert.Equal(t, "a_jbind.go", file)
}

func TestAssignConflictIsReported(t *testing.T) {
	res := &resolver{r: &Resolution{Table: NewTable()}}
	res.assign("pkg.A", KindFile, "pkg", "pkg.A", "a_jbind.go")
	require.Empty(t, res.diags)

	res.assign("pkg.B", KindFile, "pkg", "pkg.B", "a_jbind.go")
	require.Len(t, res.diags, 1)
	d := res.diags[0]
	assert.Equal(t, diag.NameCollisionUnresolvable, d.Kind)
	assert.Equal(t, "pkg.B", d.Class)
	assert.Contains(t, d.Message, "already names pkg.A")
}
