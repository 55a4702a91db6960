package classfile

import (
	"github.com/teranos/jbind/errors"
	"github.com/teranos/jbind/model"
)

// ClassSignature is a decoded class Signature attribute.
type ClassSignature struct {
	TypeParams []model.TypeParam
	Super      model.TypeRef
	Interfaces []model.TypeRef
}

// MethodSignature is a decoded method Signature attribute.
type MethodSignature struct {
	TypeParams []model.TypeParam
	Params     []model.TypeRef
	Return     model.TypeRef
	Throws     []model.TypeRef
}

// sigParser is a cursor over one descriptor or signature string.
type sigParser struct {
	s string
	i int
}

func (p *sigParser) eof() bool { return p.i >= len(p.s) }

func (p *sigParser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.s[p.i]
}

func (p *sigParser) expect(c byte) error {
	if p.peek() != c {
		return p.errorf("expected %q", c)
	}
	p.i++
	return nil
}

func (p *sigParser) errorf(format string, args ...interface{}) error {
	return errors.Wrapf(errors.Newf(format, args...), "signature %q at offset %d", p.s, p.i)
}

// identifier reads up to (not including) any of the stop bytes.
func (p *sigParser) identifier(stops string) (string, error) {
	start := p.i
	for !p.eof() {
		c := p.s[p.i]
		for j := 0; j < len(stops); j++ {
			if c == stops[j] {
				if p.i == start {
					return "", p.errorf("empty identifier")
				}
				return p.s[start:p.i], nil
			}
		}
		p.i++
	}
	return "", p.errorf("unterminated identifier")
}

func (p *sigParser) typeParams() ([]model.TypeParam, error) {
	if p.peek() != '<' {
		return nil, nil
	}
	p.i++
	var out []model.TypeParam
	for p.peek() != '>' {
		if p.eof() {
			return nil, p.errorf("unterminated type parameters")
		}
		name, err := p.identifier(":")
		if err != nil {
			return nil, err
		}
		tp := model.TypeParam{Name: name}
		// class bound may be empty ("T::Ljava/lang/Comparable;")
		for p.peek() == ':' {
			p.i++
			if c := p.peek(); c == ':' || c == '>' || (c != 'L' && c != 'T' && c != '[') {
				continue
			}
			bound, err := p.referenceType()
			if err != nil {
				return nil, err
			}
			tp.Bounds = append(tp.Bounds, bound)
		}
		out = append(out, tp)
	}
	p.i++
	return out, nil
}

// javaType parses any field type signature, primitives included.
func (p *sigParser) javaType() (model.TypeRef, error) {
	if prim, ok := model.PrimitiveByDescriptor(p.peek()); ok && prim != model.Void {
		p.i++
		return model.Prim(prim), nil
	}
	return p.referenceType()
}

func (p *sigParser) referenceType() (model.TypeRef, error) {
	switch p.peek() {
	case 'L':
		return p.classType()
	case 'T':
		p.i++
		name, err := p.identifier(";")
		if err != nil {
			return model.TypeRef{}, err
		}
		p.i++
		return model.Var(name), nil
	case '[':
		dims := 0
		for p.peek() == '[' {
			dims++
			p.i++
		}
		elem, err := p.javaType()
		if err != nil {
			return model.TypeRef{}, err
		}
		return model.ArrayOf(elem, dims), nil
	}
	return model.TypeRef{}, p.errorf("unexpected %q", p.peek())
}

func (p *sigParser) classType() (model.TypeRef, error) {
	if err := p.expect('L'); err != nil {
		return model.TypeRef{}, err
	}
	internal, err := p.identifier("<.;")
	if err != nil {
		return model.TypeRef{}, err
	}
	ref := model.Ref(model.BinaryName(internal))
	if ref.Args, err = p.typeArgs(); err != nil {
		return model.TypeRef{}, err
	}
	for p.peek() == '.' {
		p.i++
		inner, err := p.identifier("<.;")
		if err != nil {
			return model.TypeRef{}, err
		}
		owner := ref
		ref = model.Ref(owner.Name + "$" + inner)
		if len(owner.Args) > 0 || owner.Owner != nil {
			ref.Owner = &owner
		}
		if ref.Args, err = p.typeArgs(); err != nil {
			return model.TypeRef{}, err
		}
	}
	if err := p.expect(';'); err != nil {
		return model.TypeRef{}, err
	}
	return ref, nil
}

func (p *sigParser) typeArgs() ([]model.TypeRef, error) {
	if p.peek() != '<' {
		return nil, nil
	}
	p.i++
	var args []model.TypeRef
	for p.peek() != '>' {
		if p.eof() {
			return nil, p.errorf("unterminated type arguments")
		}
		switch p.peek() {
		case '*':
			p.i++
			args = append(args, model.Wildcard(model.Unbounded, nil))
		case '+', '-':
			kind := model.Extends
			if p.peek() == '-' {
				kind = model.Super
			}
			p.i++
			bound, err := p.referenceType()
			if err != nil {
				return nil, err
			}
			args = append(args, model.Wildcard(kind, &bound))
		default:
			arg, err := p.referenceType()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
	}
	p.i++
	return args, nil
}

func (p *sigParser) returnType() (model.TypeRef, error) {
	if p.peek() == 'V' {
		p.i++
		return model.Prim(model.Void), nil
	}
	return p.javaType()
}

func (p *sigParser) done() error {
	if !p.eof() {
		return p.errorf("trailing characters")
	}
	return nil
}

// ParseFieldDescriptor parses a field descriptor or field signature,
// e.g. "[I", "Ljava/util/List<Ljava/lang/String;>;".
func ParseFieldDescriptor(s string) (model.TypeRef, error) {
	p := &sigParser{s: s}
	t, err := p.javaType()
	if err != nil {
		return model.TypeRef{}, err
	}
	return t, p.done()
}

// ParseMethodDescriptor parses a method descriptor such as "(I[J)V".
func ParseMethodDescriptor(s string) ([]model.TypeRef, model.TypeRef, error) {
	sig, err := ParseMethodSignature(s)
	if err != nil {
		return nil, model.TypeRef{}, err
	}
	return sig.Params, sig.Return, nil
}

// ParseMethodSignature parses a generic method signature.
func ParseMethodSignature(s string) (MethodSignature, error) {
	p := &sigParser{s: s}
	var sig MethodSignature
	var err error
	if sig.TypeParams, err = p.typeParams(); err != nil {
		return sig, err
	}
	if err := p.expect('('); err != nil {
		return sig, err
	}
	for p.peek() != ')' {
		if p.eof() {
			return sig, p.errorf("unterminated parameter list")
		}
		t, err := p.javaType()
		if err != nil {
			return sig, err
		}
		sig.Params = append(sig.Params, t)
	}
	p.i++
	if sig.Return, err = p.returnType(); err != nil {
		return sig, err
	}
	for p.peek() == '^' {
		p.i++
		t, err := p.referenceType()
		if err != nil {
			return sig, err
		}
		sig.Throws = append(sig.Throws, t)
	}
	return sig, p.done()
}

// ParseClassSignature parses a generic class signature.
func ParseClassSignature(s string) (ClassSignature, error) {
	p := &sigParser{s: s}
	var sig ClassSignature
	var err error
	if sig.TypeParams, err = p.typeParams(); err != nil {
		return sig, err
	}
	if sig.Super, err = p.classType(); err != nil {
		return sig, err
	}
	for !p.eof() {
		t, err := p.classType()
		if err != nil {
			return sig, err
		}
		sig.Interfaces = append(sig.Interfaces, t)
	}
	return sig, nil
}
