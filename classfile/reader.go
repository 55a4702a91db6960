// Package classfile reads JVM class files and decodes JVM type descriptors
// and generic signatures into the descriptor model.
package classfile

import (
	"encoding/binary"
	"math"
	"unicode/utf16"

	"github.com/teranos/jbind/errors"
	"github.com/teranos/jbind/model"
)

const magic = 0xCAFEBABE

// Constant pool tags.
const (
	tagUtf8               = 1
	tagInteger            = 3
	tagFloat              = 4
	tagLong               = 5
	tagDouble             = 6
	tagClass              = 7
	tagString             = 8
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagDynamic            = 17
	tagInvokeDynamic      = 18
	tagModule             = 19
	tagPackage            = 20
)

// Class-level access flags that are not member modifiers.
const (
	accSuper      = 0x0020
	accInterface  = 0x0200
	accAnnotation = 0x2000
	accEnum       = 0x4000
	accModule     = 0x8000
)

const deprecatedAnnotation = "Ljava/lang/Deprecated;"

type constant struct {
	tag   uint8
	str   string // Utf8
	num   uint64 // Integer, Float, Long, Double raw bits
	index uint16 // Class, String: name/string index
}

// reader is a bounds-checked big-endian cursor.
type reader struct {
	b   []byte
	off int
	err error
}

func (r *reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if r.off+n > len(r.b) {
		r.err = errors.Newf("truncated class file at offset %d", r.off)
		return false
	}
	return true
}

func (r *reader) u1() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.b[r.off]
	r.off++
	return v
}

func (r *reader) u2() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(r.b[r.off:])
	r.off += 2
	return v
}

func (r *reader) u4() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(r.b[r.off:])
	r.off += 4
	return v
}

func (r *reader) bytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	v := r.b[r.off : r.off+n]
	r.off += n
	return v
}

// file is a class file being parsed, with its constant pool.
type file struct {
	pool []constant
	r    *reader
}

func (f *file) utf8(i uint16) (string, error) {
	if int(i) >= len(f.pool) || f.pool[i].tag != tagUtf8 {
		return "", errors.Newf("constant %d is not Utf8", i)
	}
	return f.pool[i].str, nil
}

func (f *file) className(i uint16) (string, error) {
	if int(i) >= len(f.pool) || f.pool[i].tag != tagClass {
		return "", errors.Newf("constant %d is not a Class", i)
	}
	internal, err := f.utf8(f.pool[i].index)
	if err != nil {
		return "", err
	}
	return model.BinaryName(internal), nil
}

// attribute is a raw attribute; body is parsed lazily by name.
type attribute struct {
	name string
	body []byte
}

func (f *file) attributes() ([]attribute, error) {
	n := f.r.u2()
	attrs := make([]attribute, 0, n)
	for i := 0; i < int(n); i++ {
		name, err := f.utf8(f.r.u2())
		if err != nil {
			return nil, err
		}
		size := f.r.u4()
		body := f.r.bytes(int(size))
		if f.r.err != nil {
			return nil, f.r.err
		}
		attrs = append(attrs, attribute{name: name, body: body})
	}
	return attrs, f.r.err
}

// Parse decodes a class file into a class descriptor.
// Method and field bodies beyond their signatures are skipped.
func Parse(data []byte) (*model.Class, error) {
	r := &reader{b: data}
	if r.u4() != magic {
		return nil, errors.New("not a class file: bad magic")
	}
	r.u2() // minor
	r.u2() // major

	f := &file{r: r}
	if err := f.readPool(); err != nil {
		return nil, err
	}

	access := r.u2()
	thisName, err := f.className(r.u2())
	if err != nil {
		return nil, errors.Wrap(err, "this_class")
	}
	if access&accModule != 0 {
		return nil, errors.Newf("%s is a module descriptor", thisName)
	}

	c := &model.Class{
		Name:      thisName,
		Kind:      kindOf(access),
		Modifiers: classModifiers(access),
	}

	if superIdx := r.u2(); superIdx != 0 {
		superName, err := f.className(superIdx)
		if err != nil {
			return nil, errors.Wrap(err, "super_class")
		}
		if !c.IsInterface() {
			ref := model.Ref(superName)
			c.Super = &ref
		}
	}

	for n := r.u2(); n > 0; n-- {
		name, err := f.className(r.u2())
		if err != nil {
			return nil, errors.Wrap(err, "interfaces")
		}
		c.Interfaces = append(c.Interfaces, model.Ref(name))
	}

	if err := f.readFields(c); err != nil {
		return nil, errors.Wrapf(err, "%s fields", thisName)
	}
	if err := f.readMethods(c); err != nil {
		return nil, errors.Wrapf(err, "%s methods", thisName)
	}

	attrs, err := f.attributes()
	if err != nil {
		return nil, errors.Wrapf(err, "%s attributes", thisName)
	}
	for _, a := range attrs {
		switch a.name {
		case "Signature":
			sig, err := f.signatureText(a.body)
			if err != nil {
				return nil, err
			}
			cs, err := ParseClassSignature(sig)
			if err != nil {
				return nil, errors.Wrapf(err, "%s class signature", thisName)
			}
			c.TypeParams = cs.TypeParams
			if c.Super != nil {
				c.Super = &cs.Super
			}
			if len(cs.Interfaces) == len(c.Interfaces) {
				c.Interfaces = cs.Interfaces
			}
		case "Deprecated":
			c.Deprecated = true
		case "RuntimeVisibleAnnotations":
			names, err := f.annotationTypes(a.body)
			if err != nil {
				return nil, err
			}
			for _, n := range names {
				if n == deprecatedAnnotation {
					c.Deprecated = true
				}
				c.Annotations = append(c.Annotations, model.BinaryName(n[1:len(n)-1]))
			}
		case "InnerClasses":
			if flags, ok := f.innerFlags(a.body, thisName); ok {
				c.Modifiers = classModifiers(flags)
			}
		}
	}
	return c, nil
}

func (f *file) readPool() error {
	r := f.r
	count := int(r.u2())
	f.pool = make([]constant, count)
	for i := 1; i < count; i++ {
		tag := r.u1()
		c := constant{tag: tag}
		switch tag {
		case tagUtf8:
			n := r.u2()
			c.str = decodeModifiedUTF8(r.bytes(int(n)))
		case tagInteger, tagFloat:
			c.num = uint64(r.u4())
		case tagLong, tagDouble:
			c.num = uint64(r.u4())<<32 | uint64(r.u4())
		case tagClass, tagString, tagMethodType, tagModule, tagPackage:
			c.index = r.u2()
		case tagFieldref, tagMethodref, tagInterfaceMethodref, tagNameAndType, tagDynamic, tagInvokeDynamic:
			r.u2()
			r.u2()
		case tagMethodHandle:
			r.u1()
			r.u2()
		default:
			return errors.Newf("unknown constant pool tag %d at index %d", tag, i)
		}
		if r.err != nil {
			return r.err
		}
		f.pool[i] = c
		// 8-byte constants take two slots
		if tag == tagLong || tag == tagDouble {
			i++
		}
	}
	return nil
}

func (f *file) readFields(c *model.Class) error {
	for n := f.r.u2(); n > 0; n-- {
		access := f.r.u2()
		name, err := f.utf8(f.r.u2())
		if err != nil {
			return err
		}
		desc, err := f.utf8(f.r.u2())
		if err != nil {
			return err
		}
		typ, err := ParseFieldDescriptor(desc)
		if err != nil {
			return errors.Wrapf(err, "field %s", name)
		}
		fd := model.Field{Name: name, Modifiers: model.Modifiers(access), Type: typ}

		attrs, err := f.attributes()
		if err != nil {
			return err
		}
		for _, a := range attrs {
			switch a.name {
			case "ConstantValue":
				if len(a.body) == 2 {
					fd.Constant = f.constantValue(binary.BigEndian.Uint16(a.body), typ)
				}
			case "Signature":
				sig, err := f.signatureText(a.body)
				if err != nil {
					return err
				}
				if generic, err := ParseFieldDescriptor(sig); err == nil {
					fd.Type = generic
				}
			case "Deprecated":
				fd.Deprecated = true
			case "RuntimeVisibleAnnotations":
				fd.Deprecated = fd.Deprecated || f.hasDeprecated(a.body)
			}
		}
		c.Fields = append(c.Fields, fd)
	}
	return f.r.err
}

func (f *file) readMethods(c *model.Class) error {
	for n := f.r.u2(); n > 0; n-- {
		access := f.r.u2()
		name, err := f.utf8(f.r.u2())
		if err != nil {
			return err
		}
		desc, err := f.utf8(f.r.u2())
		if err != nil {
			return err
		}
		params, ret, err := ParseMethodDescriptor(desc)
		if err != nil {
			return errors.Wrapf(err, "method %s", name)
		}
		m := model.Method{
			Name:       name,
			Modifiers:  model.Modifiers(access),
			Return:     ret,
			Descriptor: desc,
		}
		m.Params = make([]model.Param, len(params))
		for i, p := range params {
			m.Params[i] = model.Param{Type: p}
		}

		attrs, err := f.attributes()
		if err != nil {
			return err
		}
		for _, a := range attrs {
			switch a.name {
			case "Signature":
				sig, err := f.signatureText(a.body)
				if err != nil {
					return err
				}
				ms, err := ParseMethodSignature(sig)
				if err != nil {
					return errors.Wrapf(err, "method %s signature", name)
				}
				m.TypeParams = ms.TypeParams
				m.Return = ms.Return
				// Signatures omit synthetic parameters (outer instance,
				// enum name/ordinal); keep the descriptor types then.
				if len(ms.Params) == len(m.Params) {
					for i, p := range ms.Params {
						m.Params[i].Type = p
					}
				}
				if len(ms.Throws) > 0 {
					m.Throws = ms.Throws
				}
			case "Exceptions":
				if len(m.Throws) == 0 {
					m.Throws, err = f.exceptions(a.body)
					if err != nil {
						return err
					}
				}
			case "MethodParameters":
				f.parameterNames(a.body, m.Params)
			case "Deprecated":
				m.Deprecated = true
			case "RuntimeVisibleAnnotations":
				m.Deprecated = m.Deprecated || f.hasDeprecated(a.body)
			}
		}
		c.Methods = append(c.Methods, m)
	}
	return f.r.err
}

func (f *file) signatureText(body []byte) (string, error) {
	if len(body) != 2 {
		return "", errors.New("malformed Signature attribute")
	}
	return f.utf8(binary.BigEndian.Uint16(body))
}

func (f *file) constantValue(i uint16, typ model.TypeRef) any {
	if int(i) >= len(f.pool) {
		return nil
	}
	c := f.pool[i]
	switch c.tag {
	case tagInteger:
		v := int32(uint32(c.num))
		if typ.Tag == model.TagPrimitive && typ.Primitive == model.Boolean {
			return v != 0
		}
		return v
	case tagLong:
		return int64(c.num)
	case tagFloat:
		return math.Float32frombits(uint32(c.num))
	case tagDouble:
		return math.Float64frombits(c.num)
	case tagString:
		s, err := f.utf8(c.index)
		if err != nil {
			return nil
		}
		return s
	}
	return nil
}

func (f *file) exceptions(body []byte) ([]model.TypeRef, error) {
	r := &reader{b: body}
	var out []model.TypeRef
	for n := r.u2(); n > 0 && r.err == nil; n-- {
		name, err := f.className(r.u2())
		if err != nil {
			return nil, err
		}
		out = append(out, model.Ref(name))
	}
	return out, r.err
}

func (f *file) parameterNames(body []byte, params []model.Param) {
	r := &reader{b: body}
	n := int(r.u1())
	for i := 0; i < n && r.err == nil; i++ {
		nameIdx := r.u2()
		r.u2() // access flags
		if i < len(params) && nameIdx != 0 {
			if name, err := f.utf8(nameIdx); err == nil {
				params[i].Name = name
			}
		}
	}
}

func (f *file) innerFlags(body []byte, thisName string) (uint16, bool) {
	r := &reader{b: body}
	for n := r.u2(); n > 0 && r.err == nil; n-- {
		inner := r.u2()
		r.u2() // outer
		r.u2() // simple name
		flags := r.u2()
		if name, err := f.className(inner); err == nil && name == thisName {
			return flags, true
		}
	}
	return 0, false
}

func (f *file) hasDeprecated(body []byte) bool {
	names, err := f.annotationTypes(body)
	if err != nil {
		return false
	}
	for _, n := range names {
		if n == deprecatedAnnotation {
			return true
		}
	}
	return false
}

// annotationTypes returns the type descriptors of a RuntimeVisibleAnnotations body.
func (f *file) annotationTypes(body []byte) ([]string, error) {
	r := &reader{b: body}
	var names []string
	for n := r.u2(); n > 0 && r.err == nil; n-- {
		name, err := f.skipAnnotation(r)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, r.err
}

func (f *file) skipAnnotation(r *reader) (string, error) {
	typ, err := f.utf8(r.u2())
	if err != nil {
		return "", err
	}
	for pairs := r.u2(); pairs > 0 && r.err == nil; pairs-- {
		r.u2() // element name
		if err := f.skipElementValue(r); err != nil {
			return "", err
		}
	}
	if len(typ) < 3 {
		return "", errors.Newf("malformed annotation type %q", typ)
	}
	return typ, r.err
}

func (f *file) skipElementValue(r *reader) error {
	switch tag := r.u1(); tag {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 's', 'c':
		r.u2()
	case 'e':
		r.u2()
		r.u2()
	case '@':
		_, err := f.skipAnnotation(r)
		return err
	case '[':
		for n := r.u2(); n > 0 && r.err == nil; n-- {
			if err := f.skipElementValue(r); err != nil {
				return err
			}
		}
	default:
		if r.err == nil {
			return errors.Newf("unknown element value tag %q", tag)
		}
	}
	return r.err
}

func kindOf(access uint16) model.Kind {
	switch {
	case access&accAnnotation != 0:
		return model.KindAnnotation
	case access&accInterface != 0:
		return model.KindInterface
	case access&accEnum != 0:
		return model.KindEnum
	}
	return model.KindClass
}

func classModifiers(access uint16) model.Modifiers {
	return model.Modifiers(access &^ (accSuper | accInterface | accAnnotation | accEnum | accModule))
}

// decodeModifiedUTF8 decodes the class-file string encoding: NUL as two
// bytes and supplementary characters as surrogate pairs.
func decodeModifiedUTF8(b []byte) string {
	units := make([]uint16, 0, len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c < 0x80:
			units = append(units, uint16(c))
			i++
		case c&0xE0 == 0xC0 && i+1 < len(b):
			units = append(units, uint16(c&0x1F)<<6|uint16(b[i+1]&0x3F))
			i += 2
		case c&0xF0 == 0xE0 && i+2 < len(b):
			units = append(units, uint16(c&0x0F)<<12|uint16(b[i+1]&0x3F)<<6|uint16(b[i+2]&0x3F))
			i += 3
		default:
			units = append(units, 0xFFFD)
			i++
		}
	}
	return string(utf16.Decode(units))
}
