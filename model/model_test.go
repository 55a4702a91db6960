package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassNames(t *testing.T) {
	c := &Class{Name: "java.util.Map$Entry"}
	assert.Equal(t, "java.util", c.Package())
	assert.Equal(t, "Map$Entry", c.SimpleName())
	assert.Equal(t, "java/util/Map$Entry", c.InternalName())

	outer, ok := c.Outer()
	require.True(t, ok)
	assert.Equal(t, "java.util.Map", outer)

	_, ok = (&Class{Name: "Top"}).Outer()
	assert.False(t, ok)
	assert.Equal(t, "", (&Class{Name: "Top"}).Package())
}

func TestErasureAndDescriptor(t *testing.T) {
	comparable := Ref("java.lang.Comparable", Var("T"))
	classScope := NewScope(nil, []TypeParam{
		{Name: "T", Bounds: []TypeRef{comparable}},
		{Name: "U"},
	})

	tests := []struct {
		name string
		ref  TypeRef
		want string
	}{
		{"primitive", Prim(Int), "I"},
		{"void", Prim(Void), "V"},
		{"class", Ref("java.lang.String"), "Ljava/lang/String;"},
		{"generic args dropped", Ref("java.util.List", Ref("java.lang.String")), "Ljava/util/List;"},
		{"bounded variable", Var("T"), "Ljava/lang/Comparable;"},
		{"unbounded variable", Var("U"), "Ljava/lang/Object;"},
		{"undeclared variable", Var("Z"), "Ljava/lang/Object;"},
		{"array of variables", ArrayOf(Var("T"), 2), "[[Ljava/lang/Comparable;"},
		{"wildcard extends", Wildcard(Extends, &comparable), "Ljava/lang/Comparable;"},
		{"wildcard super", Wildcard(Super, &comparable), "Ljava/lang/Object;"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ref.Descriptor(classScope))
		})
	}
}

func TestErasureCycleTerminates(t *testing.T) {
	s := NewScope(nil, []TypeParam{
		{Name: "A", Bounds: []TypeRef{Var("B")}},
		{Name: "B", Bounds: []TypeRef{Var("A")}},
	})
	assert.Equal(t, "Ljava/lang/Object;", Var("A").Descriptor(s))
}

func TestArrayOfFlattensRank(t *testing.T) {
	inner := ArrayOf(Prim(Int), 1)
	outer := ArrayOf(inner, 2)
	assert.Equal(t, 3, outer.Dims)
	assert.Equal(t, TagPrimitive, outer.Elem.Tag)
	assert.Equal(t, "int[][][]", outer.String())
}

func TestNormalizeFillsDescriptors(t *testing.T) {
	c := &Class{
		Name:       "pkg.Box",
		TypeParams: []TypeParam{{Name: "T"}},
		Methods: []Method{
			{Name: "get", Return: Var("T")},
			{
				Name:       "map",
				TypeParams: []TypeParam{{Name: "R", Bounds: []TypeRef{Ref("java.lang.Number")}}},
				Params:     []Param{{Name: "f", Type: Ref("java.util.function.Function", Var("T"), Var("R"))}},
				Return:     Ref("pkg.Box", Var("R")),
			},
			{Name: "set", Params: []Param{{Type: Var("T")}}, Return: Prim(Void), Descriptor: "(Ljava/lang/Object;)V"},
		},
	}
	c.Normalize(nil)

	assert.Equal(t, "get()Ljava/lang/Object;", c.Methods[0].Key())
	assert.Equal(t, "map(Ljava/util/function/Function;)Lpkg/Box;", c.Methods[1].Key())
	assert.Equal(t, "set(Ljava/lang/Object;)V", c.Methods[2].Key())
}

func TestReferences(t *testing.T) {
	bound := Ref("pkg.B")
	ref := Ref("java.util.Map",
		Ref("java.lang.String"),
		Ref("java.util.List", Wildcard(Extends, &bound)),
	)
	assert.Equal(t, []string{"java.util.Map", "java.lang.String", "java.util.List", "pkg.B"}, ref.References())
	assert.Empty(t, Prim(Long).References())
	assert.Equal(t, "java.util.Map<java.lang.String, java.util.List<? extends pkg.B>>", ref.String())
}

func TestTypeRefEqual(t *testing.T) {
	a := Ref("java.util.List", Ref("java.lang.String"))
	b := Ref("java.util.List", Ref("java.lang.String"))
	c := Ref("java.util.List", Ref("java.lang.Object"))
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.True(t, ArrayOf(Prim(Int), 2).Equal(ArrayOf(Prim(Int), 2)))
	assert.False(t, ArrayOf(Prim(Int), 2).Equal(ArrayOf(Prim(Int), 1)))
}

func TestModifiers(t *testing.T) {
	m := Public | Static | Final
	assert.True(t, m.Has(Static))
	assert.False(t, m.Has(Abstract))
	assert.Equal(t, VisibilityPublic, m.Visibility())
	assert.Equal(t, VisibilityPackage, Modifiers(0).Visibility())
	assert.Equal(t, "public static final", m.String())

	flag, ok := ParseModifier("Synthetic")
	require.True(t, ok)
	assert.Equal(t, Synthetic, flag)
	_, ok = ParseModifier("sealed")
	assert.False(t, ok)
}

func TestPrimitiveLookup(t *testing.T) {
	p, ok := PrimitiveByName("char")
	require.True(t, ok)
	assert.Equal(t, Char, p)
	assert.Equal(t, byte('C'), p.Descriptor())

	p, ok = PrimitiveByDescriptor('J')
	require.True(t, ok)
	assert.Equal(t, Long, p)
	_, ok = PrimitiveByDescriptor('L')
	assert.False(t, ok)
}
