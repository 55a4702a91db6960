package jglue

import (
	"fmt"
	"math"
)

// Kind is the runtime type of a Value.
type Kind uint8

const (
	KindVoid Kind = iota
	KindBoolean
	KindByte
	KindChar
	KindShort
	KindInt
	KindLong
	KindFloat
	KindDouble
	KindObject
)

var kindNames = [...]string{"void", "boolean", "byte", "char", "short", "int", "long", "float", "double", "object"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Value is an argument to or result of a runtime call.
type Value struct {
	kind Kind
	bits uint64
	ref  Ref
}

// Void is the result of a void method.
var Void = Value{}

func Bool(b bool) Value {
	if b {
		return Value{kind: KindBoolean, bits: 1}
	}
	return Value{kind: KindBoolean}
}

func Byte(b int8) Value     { return Value{kind: KindByte, bits: uint64(b)} }
func Char(c uint16) Value   { return Value{kind: KindChar, bits: uint64(c)} }
func Short(s int16) Value   { return Value{kind: KindShort, bits: uint64(s)} }
func Int(i int32) Value     { return Value{kind: KindInt, bits: uint64(i)} }
func Long(l int64) Value    { return Value{kind: KindLong, bits: uint64(l)} }
func Float(f float32) Value { return Value{kind: KindFloat, bits: uint64(math.Float32bits(f))} }
func Double(d float64) Value {
	return Value{kind: KindDouble, bits: math.Float64bits(d)}
}

// ObjectValue passes a reference. A nil Referent passes null.
func ObjectValue(r Referent) Value {
	if r == nil {
		return Value{kind: KindObject}
	}
	return Value{kind: KindObject, ref: r.JRef()}
}

// RefValue passes a raw reference.
func RefValue(r Ref) Value { return Value{kind: KindObject, ref: r} }

// Kind returns the runtime type of v.
func (v Value) Kind() Kind { return v.kind }

func (v Value) Bool() bool      { return v.bits != 0 }
func (v Value) Byte() int8      { return int8(v.bits) }
func (v Value) Char() uint16    { return uint16(v.bits) }
func (v Value) Short() int16    { return int16(v.bits) }
func (v Value) Int() int32      { return int32(v.bits) }
func (v Value) Long() int64     { return int64(v.bits) }
func (v Value) Float() float32  { return math.Float32frombits(uint32(v.bits)) }
func (v Value) Double() float64 { return math.Float64frombits(v.bits) }
func (v Value) Ref() Ref        { return v.ref }
func (v Value) IsNull() bool    { return v.kind == KindObject && v.ref == 0 }

func (v Value) String() string {
	switch v.kind {
	case KindVoid:
		return "void"
	case KindBoolean:
		return fmt.Sprintf("boolean(%t)", v.Bool())
	case KindFloat:
		return fmt.Sprintf("float(%g)", v.Float())
	case KindDouble:
		return fmt.Sprintf("double(%g)", v.Double())
	case KindObject:
		return fmt.Sprintf("object(%#x)", uintptr(v.ref))
	default:
		return fmt.Sprintf("%s(%d)", v.kind, v.Long())
	}
}
