package emit

import (
	"math"

	"github.com/dave/jennifer/jen"

	"github.com/teranos/jbind/diag"
	"github.com/teranos/jbind/overload"
)

func (e *emitter) consts(f *jen.File, c *overload.Class) {
	for _, k := range c.Consts {
		v, ok := constValue(k.GoType, k.Value)
		if !ok {
			e.diags.Add(diag.New(diag.SkippedMember, c.Node.Name(), k.Field.Key(),
				"constant %v is not representable as %s", k.Value, k.GoType))
			continue
		}
		f.Line()
		f.Comment(k.Name + " is the constant " + c.Node.Name() + "." + k.Field.Name + ".")
		deprecated(f, c.Node.Name()+"."+k.Field.Name, k.Field.Deprecated)
		if x, ok := v.(float64); ok {
			f.Const().Id(k.Name).Op("=").Id("float64").Call(jen.Lit(x))
			continue
		}
		f.Const().Id(k.Name).Op("=").Lit(v)
	}
}

// constValue converts a descriptor constant to the Go type of its field.
func constValue(goType string, v any) (any, bool) {
	switch goType {
	case "bool":
		b, ok := v.(bool)
		return b, ok
	case "string":
		s, ok := v.(string)
		return s, ok
	case "float32":
		x, ok := asFloat(v)
		if !ok || math.Abs(x) > math.MaxFloat32 {
			return nil, false
		}
		return float32(x), true
	case "float64":
		x, ok := asFloat(v)
		return x, ok
	}
	n, ok := asInt(v)
	if !ok {
		return nil, false
	}
	switch goType {
	case "int8":
		return int8(n), n >= math.MinInt8 && n <= math.MaxInt8
	case "int16":
		return int16(n), n >= math.MinInt16 && n <= math.MaxInt16
	case "uint16":
		return uint16(n), n >= 0 && n <= math.MaxUint16
	case "int32":
		return int32(n), n >= math.MinInt32 && n <= math.MaxInt32
	case "int64":
		return n, true
	}
	return nil, false
}

func asInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case float64:
		if x != math.Trunc(x) || math.Abs(x) > 1<<53 {
			return 0, false
		}
		return int64(x), true
	case string:
		// char constants may arrive as one-character strings
		r := []rune(x)
		if len(r) == 1 {
			return int64(r[0]), true
		}
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	}
	return 0, false
}
