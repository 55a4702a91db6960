package jglue_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/jbind/errors"
	"github.com/teranos/jbind/jglue"
	"github.com/teranos/jbind/jglue/jgluetest"
)

// handle is shaped like a generated root class.
type handle struct{ jglue.Object }

func (handle) Bind(r jglue.Ref) handle { return handle{jglue.Wrap(r)} }

type derived struct{ handle }

func (derived) Bind(r jglue.Ref) derived { return derived{handle{}.Bind(r)} }

func TestValueRoundTrip(t *testing.T) {
	assert.True(t, jglue.Bool(true).Bool())
	assert.False(t, jglue.Bool(false).Bool())
	assert.Equal(t, int8(-5), jglue.Byte(-5).Byte())
	assert.Equal(t, uint16(0xffff), jglue.Char(0xffff).Char())
	assert.Equal(t, int16(math.MinInt16), jglue.Short(math.MinInt16).Short())
	assert.Equal(t, int32(math.MinInt32), jglue.Int(math.MinInt32).Int())
	assert.Equal(t, int64(math.MaxInt64), jglue.Long(math.MaxInt64).Long())
	assert.Equal(t, float32(1.5), jglue.Float(1.5).Float())
	assert.Equal(t, math.Inf(-1), jglue.Double(math.Inf(-1)).Double())
	assert.Equal(t, jglue.KindInt, jglue.Int(1).Kind())
	assert.Equal(t, jglue.KindVoid, jglue.Void.Kind())
}

func TestObjectValue(t *testing.T) {
	var nilIface jglue.Referent
	assert.True(t, jglue.ObjectValue(nilIface).IsNull())

	h := handle{}.Bind(7)
	v := jglue.ObjectValue(h)
	assert.Equal(t, jglue.KindObject, v.Kind())
	assert.Equal(t, jglue.Ref(7), v.Ref())
	assert.Equal(t, "object(0x7)", v.String())
}

func TestBindThroughEmbedding(t *testing.T) {
	d := derived{}.Bind(42)
	assert.Equal(t, jglue.Ref(42), d.JRef())
	assert.False(t, d.IsNull())
	assert.True(t, derived{}.IsNull())
}

func TestCast(t *testing.T) {
	d := jglue.Cast[derived](handle{}.Bind(3))
	assert.Equal(t, jglue.Ref(3), d.JRef())
	assert.True(t, jglue.Cast[derived](nil).IsNull())
}

func TestLocalRelease(t *testing.T) {
	env := jgluetest.New()
	r := env.Alloc("pkg/Base")
	require.Equal(t, 1, env.Live())

	l := jglue.NewLocal[handle](env, r)
	assert.Equal(t, r, l.Get().JRef())
	assert.False(t, l.IsNull())

	l.Release()
	assert.Equal(t, 0, env.Live())

	var zero jglue.Local[handle]
	assert.True(t, zero.IsNull())
	zero.Release()
}

func TestArrayHandle(t *testing.T) {
	a := jglue.Array[jglue.Array[int32]]{}.Bind(9)
	assert.Equal(t, jglue.Ref(9), a.JRef())

	l := jglue.NewLocal[jglue.Array[int32]](nil, 0)
	assert.True(t, l.Get().IsNull())
}

func TestThrowable(t *testing.T) {
	var err error = &jglue.Throwable{Class: "java.io.IOException", Message: "closed"}
	assert.Equal(t, "java.io.IOException: closed", err.Error())

	var th *jglue.Throwable
	require.True(t, errors.As(errors.Wrap(err, "read"), &th))
	assert.Equal(t, "java.io.IOException", th.Class)
	assert.Equal(t, "java.lang.Error", (&jglue.Throwable{Class: "java.lang.Error"}).Error())
}
