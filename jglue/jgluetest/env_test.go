package jgluetest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/jbind/errors"
	"github.com/teranos/jbind/jglue"
)

func constant(v int32) Impl {
	return func(*Env, jglue.Ref, []jglue.Value) (jglue.Value, error) { return jglue.Int(v), nil }
}

var baseFoo = jglue.MethodID{Class: "pkg/Base", Name: "foo", Descriptor: "()I"}

func TestInvokeDispatchesToMostDerived(t *testing.T) {
	env := New()
	env.Define("pkg/Base", "").Method("foo", "()I", constant(1))
	env.Define("pkg/Derived", "pkg/Base").Method("foo", "()I", constant(2))
	env.Define("pkg/Leaf", "pkg/Derived")

	for class, want := range map[string]int32{"pkg/Base": 1, "pkg/Derived": 2, "pkg/Leaf": 2} {
		ret, err := env.Invoke(env.Alloc(class), baseFoo)
		require.NoError(t, err)
		assert.Equal(t, want, ret.Int(), class)
	}

	calls := env.Calls()
	require.Len(t, calls, 3)
	for _, c := range calls {
		assert.Equal(t, baseFoo, c.Method)
	}
}

func TestInvokeDefaultMethod(t *testing.T) {
	env := New()
	env.Define("pkg/I", "").Method("size", "()I", constant(0))
	env.Define("pkg/C", "")

	ret, err := env.Invoke(env.Alloc("pkg/C"), jglue.MethodID{Class: "pkg/I", Name: "size", Descriptor: "()I"})
	require.NoError(t, err)
	assert.Equal(t, int32(0), ret.Int())
	assert.Equal(t, "pkg/I", env.Calls()[0].Target)
}

func TestInvokeErrors(t *testing.T) {
	env := New()
	env.Define("pkg/Base", "")

	_, err := env.Invoke(0, baseFoo)
	var th *jglue.Throwable
	require.True(t, errors.As(err, &th))
	assert.Equal(t, "java.lang.NullPointerException", th.Class)

	_, err = env.Invoke(env.Alloc("pkg/Base"), baseFoo)
	require.True(t, errors.As(err, &th))
	assert.Equal(t, "java.lang.NoSuchMethodError", th.Class)

	r := env.Alloc("pkg/Base")
	env.Release(r)
	_, err = env.Invoke(r, baseFoo)
	assert.Error(t, err)
}

func TestNewRunsConstructor(t *testing.T) {
	env := New()
	field := jglue.FieldID{Class: "pkg/Point", Name: "x", Descriptor: "I"}
	env.Define("pkg/Point", "").Constructor("(I)V", func(env *Env, self jglue.Ref, args []jglue.Value) (jglue.Value, error) {
		return jglue.Void, env.SetField(self, field, args[0])
	})

	r, err := env.New(jglue.MethodID{Class: "pkg/Point", Name: "<init>", Descriptor: "(I)V"}, jglue.Int(4))
	require.NoError(t, err)
	v, err := env.GetField(r, field)
	require.NoError(t, err)
	assert.Equal(t, int32(4), v.Int())
	class, _ := env.ClassOf(r)
	assert.Equal(t, "pkg/Point", class)
}

func TestNewFailureReleasesObject(t *testing.T) {
	env := New()
	env.Define("pkg/Bad", "").Constructor("()V", func(env *Env, _ jglue.Ref, _ []jglue.Value) (jglue.Value, error) {
		return jglue.Void, env.Throw("java.lang.IllegalStateException", "no")
	})

	_, err := env.New(jglue.MethodID{Class: "pkg/Bad", Name: "<init>", Descriptor: "()V"})
	require.Error(t, err)
	assert.Equal(t, "java.lang.IllegalStateException: no", err.Error())
	// only the exception object stays live
	assert.Equal(t, 1, env.Live())
}

func TestStatics(t *testing.T) {
	env := New()
	env.Define("pkg/Math", "").Static("twice", "(I)I", func(_ *Env, self jglue.Ref, args []jglue.Value) (jglue.Value, error) {
		assert.Zero(t, self)
		return jglue.Int(args[0].Int() * 2), nil
	})
	ret, err := env.InvokeStatic(jglue.MethodID{Class: "pkg/Math", Name: "twice", Descriptor: "(I)I"}, jglue.Int(21))
	require.NoError(t, err)
	assert.Equal(t, int32(42), ret.Int())

	f := jglue.FieldID{Class: "pkg/Math", Name: "PI", Descriptor: "D"}
	require.NoError(t, env.SetStaticField(f, jglue.Double(3.14)))
	v, err := env.GetStaticField(f)
	require.NoError(t, err)
	assert.Equal(t, 3.14, v.Double())
}
