package javasrc

import (
	"math"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/teranos/jbind/errors"
	"github.com/teranos/jbind/model"
)

// scope is the set of type variables visible at a node.
type scope struct {
	d    *decl
	vars map[string]bool
}

func (s scope) with(params []model.TypeParam) scope {
	if len(params) == 0 {
		return s
	}
	vars := make(map[string]bool, len(s.vars)+len(params))
	for v := range s.vars {
		vars[v] = true
	}
	for _, p := range params {
		vars[p.Name] = true
	}
	return scope{d: s.d, vars: vars}
}

func firstOfType(n *sitter.Node, typ string) *sitter.Node {
	if n == nil {
		return nil
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == typ {
			return c
		}
	}
	return nil
}

var modifierTokens = map[string]model.Modifiers{
	"public":       model.Public,
	"protected":    model.Protected,
	"private":      model.Private,
	"static":       model.Static,
	"final":        model.Final,
	"abstract":     model.Abstract,
	"synchronized": model.Synchronized,
	"native":       model.Native,
	"strictfp":     model.Strict,
	"transient":    model.Transient,
	"volatile":     model.Volatile,
}

// modifiers reads the modifier keywords and annotations of a declaration.
func (r *reader) modifiers(d *decl, n *sitter.Node) (mods model.Modifiers, annos []string, deprecated, isDefault bool) {
	m := firstOfType(n, "modifiers")
	if m == nil {
		return 0, nil, false, false
	}
	for i := 0; i < int(m.ChildCount()); i++ {
		c := m.Child(i)
		switch c.Type() {
		case "marker_annotation", "annotation":
			name := c.ChildByFieldName("name")
			if name == nil {
				continue
			}
			a := r.qualified(d, stripGenerics(d.text(name)))
			annos = append(annos, a)
			if a == "java.lang.Deprecated" {
				deprecated = true
			}
		case "default":
			isDefault = true
		default:
			mods |= modifierTokens[c.Type()]
		}
	}
	return mods, annos, deprecated, isDefault
}

func accessOf(m model.Modifiers) model.Modifiers {
	return m & (model.Public | model.Protected | model.Private)
}

// varsOf returns the type variable names declared by d and, for inner
// classes, by the enclosing instances.
func (r *reader) varsOf(d *decl) map[string]bool {
	vars := map[string]bool{}
	for e := d; e != nil; e = e.outer {
		if tp := firstOfType(e.node, "type_parameters"); tp != nil {
			for i := 0; i < int(tp.NamedChildCount()); i++ {
				if id := firstOfType(tp.NamedChild(i), "type_identifier"); id != nil {
					vars[e.text(id)] = true
				}
			}
		}
		if e.static {
			break
		}
	}
	return vars
}

func (r *reader) typeParams(sc scope, n *sitter.Node) []model.TypeParam {
	if n == nil {
		return nil
	}
	var out []model.TypeParam
	names := map[string]bool{}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if id := firstOfType(n.NamedChild(i), "type_identifier"); id != nil {
			names[sc.d.text(id)] = true
			out = append(out, model.TypeParam{Name: sc.d.text(id)})
		}
	}
	// bounds may mention any parameter of the list
	inner := sc
	for name := range names {
		inner = inner.with([]model.TypeParam{{Name: name}})
	}
	for i, j := 0, 0; i < int(n.NamedChildCount()); i++ {
		tp := n.NamedChild(i)
		if firstOfType(tp, "type_identifier") == nil {
			continue
		}
		if b := firstOfType(tp, "type_bound"); b != nil {
			for k := 0; k < int(b.NamedChildCount()); k++ {
				out[j].Bounds = append(out[j].Bounds, r.typeRef(inner, b.NamedChild(k)))
			}
		}
		j++
	}
	return out
}

func (r *reader) typeList(sc scope, n *sitter.Node) []model.TypeRef {
	if n == nil {
		return nil
	}
	if l := firstOfType(n, "type_list"); l != nil {
		n = l
	}
	var out []model.TypeRef
	for i := 0; i < int(n.NamedChildCount()); i++ {
		out = append(out, r.typeRef(sc, n.NamedChild(i)))
	}
	return out
}

// typeRef converts a type node.
func (r *reader) typeRef(sc scope, n *sitter.Node) model.TypeRef {
	if n == nil {
		return model.Ref(model.ObjectClass)
	}
	text := sc.d.text(n)
	switch n.Type() {
	case "integral_type", "floating_point_type", "boolean_type", "void_type":
		if p, ok := model.PrimitiveByName(strings.TrimSpace(text)); ok {
			return model.Prim(p)
		}
	case "type_identifier":
		if sc.vars[text] {
			return model.Var(text)
		}
		return model.Ref(r.resolve(sc.d, text))
	case "scoped_type_identifier":
		return model.Ref(r.qualified(sc.d, stripGenerics(text)))
	case "generic_type":
		base := r.typeRef(sc, n.NamedChild(0))
		if args := firstOfType(n, "type_arguments"); args != nil {
			for i := 0; i < int(args.NamedChildCount()); i++ {
				base.Args = append(base.Args, r.typeRef(sc, args.NamedChild(i)))
			}
		}
		return base
	case "array_type":
		elem := r.typeRef(sc, n.ChildByFieldName("element"))
		return model.ArrayOf(elem, dims(sc.d, n.ChildByFieldName("dimensions")))
	case "wildcard":
		var bound *model.TypeRef
		for i := int(n.NamedChildCount()) - 1; i >= 0; i-- {
			c := n.NamedChild(i)
			if c.Type() == "annotation" || c.Type() == "marker_annotation" {
				continue
			}
			t := r.typeRef(sc, c)
			bound = &t
			break
		}
		switch {
		case bound != nil && hasChild(n, "extends"):
			return model.Wildcard(model.Extends, bound)
		case bound != nil && hasChild(n, "super"):
			return model.Wildcard(model.Super, bound)
		}
		return model.Wildcard(model.Unbounded, nil)
	case "annotated_type":
		return r.typeRef(sc, n.NamedChild(int(n.NamedChildCount())-1))
	}
	return model.Ref(model.ObjectClass)
}

func dims(d *decl, n *sitter.Node) int {
	if n == nil {
		return 0
	}
	return strings.Count(d.text(n), "[")
}

// stripGenerics drops type arguments and whitespace from a dotted name.
func stripGenerics(s string) string {
	var b strings.Builder
	depth := 0
	for _, c := range s {
		switch {
		case c == '<':
			depth++
		case c == '>':
			depth--
		case depth == 0 && c != ' ' && c != '\t' && c != '\n' && c != '\r':
			b.WriteRune(c)
		}
	}
	return b.String()
}

// class builds the descriptor of one declaration.
func (r *reader) class(d *decl) (*model.Class, error) {
	n := d.node
	mods, annos, deprecated, _ := r.modifiers(d, n)
	c := &model.Class{Name: d.name, Kind: d.kind, Modifiers: mods, Annotations: annos, Deprecated: deprecated}
	inIface := d.outer != nil && d.outer.kind != model.KindClass && d.outer.kind != model.KindEnum
	if inIface {
		c.Modifiers |= model.Public | model.Static
	}
	if d.outer != nil && (d.kind != model.KindClass || n.Type() == "record_declaration") {
		c.Modifiers |= model.Static
	}

	sc := scope{d: d, vars: r.varsOf(d)}
	c.TypeParams = r.typeParams(sc, firstOfType(n, "type_parameters"))

	self := model.Ref(d.name)
	for _, p := range c.TypeParams {
		self.Args = append(self.Args, model.Var(p.Name))
	}
	switch {
	case d.kind == model.KindInterface || d.kind == model.KindAnnotation:
		c.Modifiers |= model.Interface | model.Abstract
		if d.kind == model.KindAnnotation {
			c.Modifiers |= model.Annotation
			c.Interfaces = []model.TypeRef{model.Ref("java.lang.annotation.Annotation")}
		}
		c.Interfaces = append(c.Interfaces, r.typeList(sc, firstOfType(n, "extends_interfaces"))...)
	case d.kind == model.KindEnum:
		c.Modifiers |= model.Enum | model.Final
		super := model.Ref("java.lang.Enum", self)
		c.Super = &super
		c.Interfaces = r.typeList(sc, firstOfType(n, "super_interfaces"))
	case n.Type() == "record_declaration":
		c.Modifiers |= model.Final
		super := model.Ref("java.lang.Record")
		c.Super = &super
		c.Interfaces = r.typeList(sc, firstOfType(n, "super_interfaces"))
	default:
		if d.name != model.ObjectClass {
			super := model.Ref(model.ObjectClass)
			if s := firstOfType(n, "superclass"); s != nil && s.NamedChildCount() > 0 {
				super = r.typeRef(sc, s.NamedChild(int(s.NamedChildCount())-1))
			}
			c.Super = &super
		}
		c.Interfaces = r.typeList(sc, firstOfType(n, "super_interfaces"))
	}

	if err := r.members(d, sc, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *reader) members(d *decl, sc scope, c *model.Class) error {
	iface := c.IsInterface()
	var nodes []*sitter.Node
	if body := d.node.ChildByFieldName("body"); body != nil {
		for i := 0; i < int(body.NamedChildCount()); i++ {
			m := body.NamedChild(i)
			if m.Type() == "enum_body_declarations" {
				for j := 0; j < int(m.NamedChildCount()); j++ {
					nodes = append(nodes, m.NamedChild(j))
				}
				continue
			}
			nodes = append(nodes, m)
		}
	}

	ctors := 0
	for _, m := range nodes {
		switch m.Type() {
		case "enum_constant":
			name := m.ChildByFieldName("name")
			if name == nil {
				continue
			}
			c.Fields = append(c.Fields, model.Field{
				Name:      d.text(name),
				Modifiers: model.Public | model.Static | model.Final | model.Enum,
				Type:      model.Ref(d.name),
			})
		case "field_declaration", "constant_declaration":
			fs, err := r.fields(d, sc, m, iface)
			if err != nil {
				return err
			}
			c.Fields = append(c.Fields, fs...)
		case "method_declaration", "annotation_type_element_declaration":
			c.Methods = append(c.Methods, r.method(d, sc, m, iface))
		case "constructor_declaration", "compact_constructor_declaration":
			ctors++
			if d.kind == model.KindEnum {
				// enum constructors are private and take synthetic parameters
				continue
			}
			if m.Type() == "compact_constructor_declaration" {
				continue
			}
			c.Methods = append(c.Methods, r.constructor(d, sc, m))
		}
	}

	if d.node.Type() == "record_declaration" {
		r.recordMembers(d, sc, c)
		ctors++
	}
	if ctors == 0 && d.kind == model.KindClass {
		c.Methods = append(c.Methods, model.Method{
			Name:      model.ConstructorName,
			Modifiers: accessOf(c.Modifiers),
			Params:    r.outerParam(d),
			Return:    model.Prim(model.Void),
		})
	}
	if d.kind == model.KindEnum {
		c.Methods = append(c.Methods,
			model.Method{Name: "values", Modifiers: model.Public | model.Static, Return: model.ArrayOf(model.Ref(d.name), 1)},
			model.Method{
				Name: "valueOf", Modifiers: model.Public | model.Static, Return: model.Ref(d.name),
				Params: []model.Param{{Name: "name", Type: model.Ref("java.lang.String")}},
			},
		)
	}
	return nil
}

// outerParam is the enclosing instance every constructor of an inner
// class receives first.
func (r *reader) outerParam(d *decl) []model.Param {
	if d.static || d.outer == nil {
		return nil
	}
	return []model.Param{{Name: "this$0", Type: model.Ref(d.outer.name)}}
}

func (r *reader) recordMembers(d *decl, sc scope, c *model.Class) {
	comps := d.node.ChildByFieldName("parameters")
	if comps == nil {
		return
	}
	params, _ := r.params(sc, comps)
	for _, p := range params {
		c.Fields = append(c.Fields, model.Field{Name: p.Name, Modifiers: model.Private | model.Final, Type: p.Type})
		c.Methods = append(c.Methods, model.Method{Name: p.Name, Modifiers: model.Public, Return: p.Type})
	}
	for _, m := range c.Methods {
		if m.IsConstructor() && len(m.Params) == len(params) {
			return
		}
	}
	c.Methods = append(c.Methods, model.Method{
		Name: model.ConstructorName, Modifiers: accessOf(c.Modifiers), Params: params, Return: model.Prim(model.Void),
	})
}

func (r *reader) params(sc scope, n *sitter.Node) ([]model.Param, bool) {
	var out []model.Param
	varargs := false
	for i := 0; i < int(n.NamedChildCount()); i++ {
		p := n.NamedChild(i)
		switch p.Type() {
		case "formal_parameter":
			t := r.typeRef(sc, p.ChildByFieldName("type"))
			if k := dims(sc.d, p.ChildByFieldName("dimensions")); k > 0 {
				t = model.ArrayOf(t, k)
			}
			name := ""
			if id := p.ChildByFieldName("name"); id != nil {
				name = sc.d.text(id)
			}
			out = append(out, model.Param{Name: name, Type: t})
		case "spread_parameter":
			var t model.TypeRef
			name := ""
			for j := 0; j < int(p.NamedChildCount()); j++ {
				c := p.NamedChild(j)
				switch c.Type() {
				case "modifiers":
				case "variable_declarator":
					if id := c.ChildByFieldName("name"); id != nil {
						name = sc.d.text(id)
					}
				default:
					t = r.typeRef(sc, c)
				}
			}
			out = append(out, model.Param{Name: name, Type: model.ArrayOf(t, 1)})
			varargs = true
		}
	}
	return out, varargs
}

func (r *reader) throws(sc scope, n *sitter.Node) []model.TypeRef {
	t := firstOfType(n, "throws")
	if t == nil {
		return nil
	}
	var out []model.TypeRef
	for i := 0; i < int(t.NamedChildCount()); i++ {
		out = append(out, r.typeRef(sc, t.NamedChild(i)))
	}
	return out
}

func (r *reader) method(d *decl, sc scope, n *sitter.Node, iface bool) model.Method {
	mods, _, deprecated, isDefault := r.modifiers(d, n)
	m := model.Method{Modifiers: mods, Deprecated: deprecated}
	if name := n.ChildByFieldName("name"); name != nil {
		m.Name = d.text(name)
	}
	m.TypeParams = r.typeParams(sc, firstOfType(n, "type_parameters"))
	msc := sc.with(m.TypeParams)
	m.Return = r.typeRef(msc, n.ChildByFieldName("type"))
	if k := dims(d, n.ChildByFieldName("dimensions")); k > 0 {
		m.Return = model.ArrayOf(m.Return, k)
	}
	if ps := n.ChildByFieldName("parameters"); ps != nil {
		var varargs bool
		m.Params, varargs = r.params(msc, ps)
		if varargs {
			m.Modifiers |= model.Varargs
		}
	}
	m.Throws = r.throws(msc, n)
	if iface {
		if !m.Modifiers.Has(model.Private) {
			m.Modifiers |= model.Public
		}
		if n.ChildByFieldName("body") == nil && !isDefault && !m.Modifiers.Has(model.Static) && !m.Modifiers.Has(model.Private) {
			m.Modifiers |= model.Abstract
		}
	}
	return m
}

func (r *reader) constructor(d *decl, sc scope, n *sitter.Node) model.Method {
	mods, _, deprecated, _ := r.modifiers(d, n)
	m := model.Method{Name: model.ConstructorName, Modifiers: mods, Deprecated: deprecated, Return: model.Prim(model.Void)}
	m.TypeParams = r.typeParams(sc, firstOfType(n, "type_parameters"))
	msc := sc.with(m.TypeParams)
	m.Params = r.outerParam(d)
	if ps := n.ChildByFieldName("parameters"); ps != nil {
		params, varargs := r.params(msc, ps)
		m.Params = append(m.Params, params...)
		if varargs {
			m.Modifiers |= model.Varargs
		}
	}
	m.Throws = r.throws(msc, n)
	return m
}

func (r *reader) fields(d *decl, sc scope, n *sitter.Node, iface bool) ([]model.Field, error) {
	mods, _, deprecated, _ := r.modifiers(d, n)
	if iface {
		mods |= model.Public | model.Static | model.Final
	}
	base := r.typeRef(sc, n.ChildByFieldName("type"))
	var out []model.Field
	for i := 0; i < int(n.NamedChildCount()); i++ {
		v := n.NamedChild(i)
		if v.Type() != "variable_declarator" {
			continue
		}
		f := model.Field{Modifiers: mods, Type: base, Deprecated: deprecated}
		if id := v.ChildByFieldName("name"); id != nil {
			f.Name = d.text(id)
		}
		if k := dims(d, v.ChildByFieldName("dimensions")); k > 0 {
			f.Type = model.ArrayOf(base, k)
		}
		if mods.Has(model.Static|model.Final) && f.Type.Tag != model.TagArray {
			if val := v.ChildByFieldName("value"); val != nil {
				k, err := literal(d, val, f.Type)
				if err != nil {
					return nil, errors.Wrapf(err, "field %s", f.Name)
				}
				f.Constant = k
			}
		}
		out = append(out, f)
	}
	return out, nil
}

// literal evaluates a constant initializer: a literal, optionally negated.
// Anything else is not a compile-time constant here and yields nil.
func literal(d *decl, n *sitter.Node, t model.TypeRef) (any, error) {
	neg := false
	for n.Type() == "parenthesized_expression" || (n.Type() == "unary_expression" && n.NamedChildCount() == 1) {
		if n.Type() == "unary_expression" {
			op := n.ChildByFieldName("operator")
			if op == nil || d.text(op) != "-" {
				return nil, nil
			}
			neg = !neg
		}
		n = n.NamedChild(0)
	}
	text := d.text(n)
	switch n.Type() {
	case "true", "false":
		if t.Tag == model.TagPrimitive && t.Primitive == model.Boolean && !neg {
			return text == "true", nil
		}
		return nil, nil
	case "string_literal":
		if t.Tag != model.TagReference || t.Name != "java.lang.String" || neg {
			return nil, nil
		}
		s, err := strconv.Unquote(text)
		if err != nil {
			// text blocks and Java-only escapes stay non-constant
			return nil, nil
		}
		return s, nil
	case "character_literal":
		s, err := strconv.Unquote(text)
		if err != nil || len([]rune(s)) != 1 {
			return nil, nil
		}
		return numeric(float64([]rune(s)[0]), int64([]rune(s)[0]), true, neg, t)
	case "decimal_integer_literal", "hex_integer_literal", "octal_integer_literal", "binary_integer_literal":
		clean := strings.TrimRight(strings.ReplaceAll(text, "_", ""), "lL")
		if n.Type() == "octal_integer_literal" && !strings.HasPrefix(clean, "0o") {
			clean = "0o" + strings.TrimPrefix(clean, "0")
		}
		u, err := strconv.ParseUint(clean, 0, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "integer literal %s", text)
		}
		return numeric(float64(u), int64(u), true, neg, t)
	case "decimal_floating_point_literal", "hex_floating_point_literal":
		clean := strings.ReplaceAll(text, "_", "")
		if n.Type() == "decimal_floating_point_literal" || strings.ContainsAny(clean, "pP") {
			clean = strings.TrimRight(clean, "fFdD")
		}
		f, err := strconv.ParseFloat(clean, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "float literal %s", text)
		}
		return numeric(f, int64(f), false, neg, t)
	}
	return nil, nil
}

// numeric converts a literal to the representation of the field type.
// Integer literals wrap the way Java narrows hex and octal forms.
func numeric(f float64, i int64, integral, neg bool, t model.TypeRef) (any, error) {
	if neg {
		f, i = -f, -i
	}
	if t.Tag != model.TagPrimitive {
		return nil, nil
	}
	switch t.Primitive {
	case model.Int, model.Short, model.Byte, model.Char:
		if !integral {
			return nil, nil
		}
		return int32(i), nil
	case model.Long:
		if !integral {
			return nil, nil
		}
		return i, nil
	case model.Float:
		if math.Abs(f) > math.MaxFloat32 {
			return nil, errors.Newf("literal %v overflows float", f)
		}
		return float32(f), nil
	case model.Double:
		return f, nil
	}
	return nil, nil
}
