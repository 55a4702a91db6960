// Package javasrc reads class descriptors from Java source files with the
// tree-sitter Java grammar. Only declarations are read; method bodies and
// initializers other than constant literals are ignored.
package javasrc

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"

	"github.com/teranos/jbind/errors"
	"github.com/teranos/jbind/model"
)

// Source is one compilation unit.
type Source struct {
	Name string
	Data []byte
}

type unit struct {
	src  Source
	pkg  string
	root *sitter.Node
	// single maps the simple name of a single-type import to its
	// canonical name.
	single   map[string]string
	onDemand []string
	types    []*decl
}

// decl is one type declaration.
type decl struct {
	unit  *unit
	node  *sitter.Node
	kind  model.Kind
	name  string // binary
	outer *decl
	// static is false for inner classes, which capture the outer instance.
	static bool
	// members maps simple names of member types to binary names.
	members map[string]string
}

func (d *decl) text(n *sitter.Node) string { return n.Content(d.unit.src.Data) }

type reader struct {
	units []*unit
	// declared maps binary names to declarations.
	declared map[string]*decl
	// canonical maps dotted source names to binary names.
	canonical map[string]string
}

// Parse reads every source. Names resolve against all declared types,
// so sources of one library are parsed together.
func Parse(ctx context.Context, sources []Source) ([]*model.Class, error) {
	r := &reader{declared: map[string]*decl{}, canonical: map[string]string{}}
	parser := sitter.NewParser()
	parser.SetLanguage(java.GetLanguage())
	for _, src := range sources {
		tree, err := parser.ParseCtx(ctx, nil, src.Data)
		if err != nil {
			return nil, errors.Wrapf(err, "parse %s", src.Name)
		}
		root := tree.RootNode()
		if bad := firstError(root); bad != nil {
			return nil, errors.Newf("%s:%d:%d: syntax error", src.Name, bad.StartPoint().Row+1, bad.StartPoint().Column+1)
		}
		r.collect(&unit{src: src, root: root, single: map[string]string{}})
	}

	var out []*model.Class
	for _, u := range r.units {
		for _, d := range u.types {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			c, err := r.class(d)
			if err != nil {
				return nil, errors.Wrapf(err, "%s: %s", u.src.Name, d.name)
			}
			c.Origin = u.src.Name
			out = append(out, c)
		}
	}
	return out, nil
}

func firstError(n *sitter.Node) *sitter.Node {
	if !n.HasError() {
		return nil
	}
	if n.IsError() || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if bad := firstError(n.Child(i)); bad != nil {
			return bad
		}
	}
	return n
}

var typeDecls = map[string]model.Kind{
	"class_declaration":           model.KindClass,
	"record_declaration":          model.KindClass,
	"interface_declaration":       model.KindInterface,
	"enum_declaration":            model.KindEnum,
	"annotation_type_declaration": model.KindAnnotation,
}

// collect registers the package, imports and every type declaration of u.
func (r *reader) collect(u *unit) {
	r.units = append(r.units, u)
	data := u.src.Data
	for i := 0; i < int(u.root.NamedChildCount()); i++ {
		n := u.root.NamedChild(i)
		switch n.Type() {
		case "package_declaration":
			for j := 0; j < int(n.NamedChildCount()); j++ {
				if c := n.NamedChild(j); c.Type() == "scoped_identifier" || c.Type() == "identifier" {
					u.pkg = c.Content(data)
				}
			}
		case "import_declaration":
			if hasChild(n, "static") {
				// member imports do not name types
				continue
			}
			text := strings.TrimSpace(n.Content(data))
			text = strings.TrimSuffix(strings.TrimPrefix(text, "import"), ";")
			text = strings.Join(strings.Fields(text), "")
			if strings.HasSuffix(text, ".*") {
				u.onDemand = append(u.onDemand, strings.TrimSuffix(text, ".*"))
				continue
			}
			u.single[text[strings.LastIndexByte(text, '.')+1:]] = text
		}
	}
	for i := 0; i < int(u.root.NamedChildCount()); i++ {
		r.declare(u, u.root.NamedChild(i), nil)
	}
}

func (r *reader) declare(u *unit, n *sitter.Node, outer *decl) {
	kind, ok := typeDecls[n.Type()]
	if !ok {
		return
	}
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	simple := nameNode.Content(u.src.Data)
	d := &decl{unit: u, node: n, kind: kind, outer: outer, members: map[string]string{}, static: true}
	var canon string
	switch {
	case outer != nil:
		d.name = outer.name + "$" + simple
		canon = r.canonicalOf(outer) + "." + simple
		outer.members[simple] = d.name
		// member classes of classes are inner unless static
		if n.Type() == "class_declaration" && outer.kind != model.KindInterface && outer.kind != model.KindAnnotation {
			d.static = hasModifier(n, "static")
		}
	case u.pkg != "":
		d.name = u.pkg + "." + simple
		canon = d.name
	default:
		d.name = simple
		canon = simple
	}
	r.declared[d.name] = d
	r.canonical[canon] = d.name
	u.types = append(u.types, d)

	body := n.ChildByFieldName("body")
	if body == nil {
		return
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		c := body.NamedChild(i)
		if c.Type() == "enum_body_declarations" {
			for j := 0; j < int(c.NamedChildCount()); j++ {
				r.declare(u, c.NamedChild(j), d)
			}
			continue
		}
		r.declare(u, c, d)
	}
}

func (r *reader) canonicalOf(d *decl) string {
	if d.outer == nil {
		return d.name
	}
	return r.canonicalOf(d.outer) + "." + d.name[strings.LastIndexByte(d.name, '$')+1:]
}

func hasChild(n *sitter.Node, typ string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == typ {
			return true
		}
	}
	return false
}

func hasModifier(n *sitter.Node, mod string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.Type() != "modifiers" {
			continue
		}
		for j := 0; j < int(c.ChildCount()); j++ {
			if c.Child(j).Type() == mod {
				return true
			}
		}
	}
	return false
}

// langTypes are java.lang types resolved without a declaration.
var langTypes = map[string]bool{
	"Object": true, "String": true, "CharSequence": true, "Class": true, "Enum": true, "Record": true,
	"Boolean": true, "Byte": true, "Character": true, "Short": true, "Integer": true, "Long": true,
	"Float": true, "Double": true, "Number": true, "Void": true, "Math": true, "System": true,
	"Comparable": true, "Iterable": true, "Runnable": true, "Cloneable": true, "AutoCloseable": true,
	"Throwable": true, "Exception": true, "RuntimeException": true, "Error": true, "Thread": true,
	"StringBuilder": true, "StringBuffer": true, "ClassLoader": true, "Appendable": true, "Readable": true,
	"Override": true, "Deprecated": true, "FunctionalInterface": true, "SuppressWarnings": true, "SafeVarargs": true,
	"IllegalArgumentException": true, "IllegalStateException": true, "UnsupportedOperationException": true,
	"NullPointerException": true, "IndexOutOfBoundsException": true, "ClassCastException": true,
	"InterruptedException": true, "CloneNotSupportedException": true, "ArithmeticException": true,
}

// resolve finds the binary name of a simple type name seen inside d:
// member types of d and its enclosing types, single-type imports, the
// current package, on-demand imports, then java.lang.
func (r *reader) resolve(d *decl, simple string) string {
	if name, ok := r.lookup(d, simple); ok {
		return name
	}
	if d.unit.pkg != "" {
		return d.unit.pkg + "." + simple
	}
	return simple
}

func (r *reader) lookup(d *decl, simple string) (string, bool) {
	for e := d; e != nil; e = e.outer {
		if name, ok := e.members[simple]; ok {
			return name, true
		}
		if e.name[strings.LastIndexAny(e.name, ".$")+1:] == simple {
			return e.name, true
		}
	}
	u := d.unit
	if canon, ok := u.single[simple]; ok {
		return r.binary(canon), true
	}
	local := simple
	if u.pkg != "" {
		local = u.pkg + "." + simple
	}
	if _, ok := r.declared[local]; ok {
		return local, true
	}
	for _, od := range u.onDemand {
		if name, ok := r.canonical[od+"."+simple]; ok {
			return name, true
		}
	}
	if _, ok := r.declared["java.lang."+simple]; ok || langTypes[simple] {
		return "java.lang." + simple, true
	}
	return "", false
}

// binary converts a canonical name to a binary name when the type is
// declared in the run. Undeclared names are taken as top-level types.
func (r *reader) binary(canon string) string {
	if name, ok := r.canonical[canon]; ok {
		return name
	}
	return canon
}

// qualified resolves a dotted name: the first segment may be a type
// visible in d, otherwise the whole name is canonical.
func (r *reader) qualified(d *decl, dotted string) string {
	parts := strings.Split(dotted, ".")
	if first, ok := r.lookup(d, parts[0]); ok {
		if len(parts) == 1 {
			return first
		}
		return first + "$" + strings.Join(parts[1:], "$")
	}
	return r.binary(dotted)
}
