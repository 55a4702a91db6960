package shapes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/jbind/errors"
	"github.com/teranos/jbind/jglue"
	"github.com/teranos/jbind/jglue/jgluetest"
)

func runtime(t *testing.T) *jgluetest.Env {
	t.Helper()
	env := jgluetest.New()
	env.Define("shapes/Shape", "").
		Constructor("()V", func(*jgluetest.Env, jglue.Ref, []jglue.Value) (jglue.Value, error) {
			return jglue.Void, nil
		}).
		Method("area", "()I", func(*jgluetest.Env, jglue.Ref, []jglue.Value) (jglue.Value, error) {
			return jglue.Int(0), nil
		}).
		Method("scale", "(I)Lshapes/Shape;", func(env *jgluetest.Env, _ jglue.Ref, _ []jglue.Value) (jglue.Value, error) {
			return jglue.RefValue(env.Alloc("shapes/Square")), nil
		})

	side := map[jglue.Ref]int32{}
	env.Define("shapes/Square", "shapes/Shape").
		Constructor("(I)V", func(_ *jgluetest.Env, self jglue.Ref, args []jglue.Value) (jglue.Value, error) {
			if args[0].Int() < 0 {
				return jglue.Void, env.Throw("java.lang.IllegalArgumentException", "negative side")
			}
			side[self] = args[0].Int()
			return jglue.Void, nil
		}).
		Method("area", "()I", func(_ *jgluetest.Env, self jglue.Ref, _ []jglue.Value) (jglue.Value, error) {
			return jglue.Int(side[self] * side[self]), nil
		})
	return env
}

// Square declares no Area of its own: the promoted Shape.Area reaches the
// override through the runtime's virtual dispatch.
func TestPromotedMethodDispatchesToOverride(t *testing.T) {
	env := runtime(t)

	sq, err := NewSquare(env, 3)
	require.NoError(t, err)
	defer sq.Release()

	area, err := sq.Get().Area(env)
	require.NoError(t, err)
	assert.Equal(t, int32(9), area)

	// the same object seen through the base handle
	base := jglue.Cast[Shape](sq.Get())
	area, err = base.Area(env)
	require.NoError(t, err)
	assert.Equal(t, int32(9), area)

	plain, err := NewShape(env)
	require.NoError(t, err)
	defer plain.Release()
	area, err = plain.Get().Area(env)
	require.NoError(t, err)
	assert.Equal(t, int32(0), area)
}

func TestFieldAccessors(t *testing.T) {
	env := runtime(t)
	sq, err := NewSquare(env, 2)
	require.NoError(t, err)
	defer sq.Release()

	require.NoError(t, sq.Get().SetSides(env, 4))
	sides, err := sq.Get().GetSides(env)
	require.NoError(t, err)
	assert.Equal(t, int32(4), sides)
}

func TestOwnedResults(t *testing.T) {
	env := runtime(t)
	sq, err := NewSquare(env, 1)
	require.NoError(t, err)

	scaled, err := sq.Get().Scale(env, 2)
	require.NoError(t, err)
	assert.False(t, scaled.IsNull())
	class, ok := env.ClassOf(scaled.JRef())
	require.True(t, ok)
	assert.Equal(t, "shapes/Square", class)

	live := env.Live()
	scaled.Release()
	sq.Release()
	assert.Equal(t, live-2, env.Live())
}

func TestExceptionsAreErrors(t *testing.T) {
	env := runtime(t)
	_, err := NewSquare(env, -1)
	var th *jglue.Throwable
	require.True(t, errors.As(err, &th))
	assert.Equal(t, "java.lang.IllegalArgumentException", th.Class)
	assert.Equal(t, "negative side", th.Message)

	_, err = Shape{}.Area(env)
	require.True(t, errors.As(err, &th))
	assert.Equal(t, "java.lang.NullPointerException", th.Class)
}
