// Package modeltest builds descriptor records for tests.
package modeltest

import "github.com/teranos/jbind/model"

// Class returns a public class extending super ("" for none).
func Class(name, super string, ifaces ...string) *model.Class {
	c := &model.Class{Name: name, Kind: model.KindClass, Modifiers: model.Public}
	if super != "" {
		s := model.Ref(super)
		c.Super = &s
	}
	for _, i := range ifaces {
		c.Interfaces = append(c.Interfaces, model.Ref(i))
	}
	return c
}

// Interface returns a public interface.
func Interface(name string, supers ...string) *model.Class {
	c := Class(name, "", supers...)
	c.Kind = model.KindInterface
	c.Modifiers |= model.Interface | model.Abstract
	return c
}

// Object returns java.lang.Object with no members.
func Object() *model.Class {
	return Class(model.ObjectClass, "")
}

// Method returns a public instance method.
func Method(name string, ret model.TypeRef, params ...model.TypeRef) model.Method {
	m := model.Method{Name: name, Modifiers: model.Public, Return: ret}
	for _, p := range params {
		m.Params = append(m.Params, model.Param{Type: p})
	}
	return m
}

// Static returns a public static method.
func Static(name string, ret model.TypeRef, params ...model.TypeRef) model.Method {
	m := Method(name, ret, params...)
	m.Modifiers |= model.Static
	return m
}

// Constructor returns a public constructor.
func Constructor(params ...model.TypeRef) model.Method {
	return Method(model.ConstructorName, model.Prim(model.Void), params...)
}

// Field returns a public instance field.
func Field(name string, t model.TypeRef) model.Field {
	return model.Field{Name: name, Modifiers: model.Public, Type: t}
}

// Const returns a public static final field with a constant value.
func Const(name string, t model.TypeRef, value any) model.Field {
	return model.Field{Name: name, Modifiers: model.Public | model.Static | model.Final, Type: t, Constant: value}
}

// With appends methods to c and returns it.
func With(c *model.Class, methods ...model.Method) *model.Class {
	c.Methods = append(c.Methods, methods...)
	return c
}

// WithFields appends fields to c and returns it.
func WithFields(c *model.Class, fields ...model.Field) *model.Class {
	c.Fields = append(c.Fields, fields...)
	return c
}

// Int is the primitive int type.
var Int = model.Prim(model.Int)

// Void is the void type.
var Void = model.Prim(model.Void)

// String is java.lang.String.
var String = model.Ref("java.lang.String")
