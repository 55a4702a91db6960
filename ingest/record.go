package ingest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"math"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/teranos/jbind/classfile"
	"github.com/teranos/jbind/errors"
	"github.com/teranos/jbind/model"
)

// Record is one class descriptor as reflection tools dump it. Names may be
// dotted ("java.util.Map$Entry") or internal ("java/util/Map$Entry");
// types are JVM descriptors with optional generic signatures.
type Record struct {
	Name        string         `json:"name" yaml:"name"`
	Kind        string         `json:"kind,omitempty" yaml:"kind,omitempty"`
	Modifiers   []string       `json:"modifiers,omitempty" yaml:"modifiers,omitempty"`
	Super       string         `json:"super,omitempty" yaml:"super,omitempty"`
	Interfaces  []string       `json:"interfaces,omitempty" yaml:"interfaces,omitempty"`
	Signature   string         `json:"signature,omitempty" yaml:"signature,omitempty"`
	Annotations []string       `json:"annotations,omitempty" yaml:"annotations,omitempty"`
	Deprecated  bool           `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
	Fields      []FieldRecord  `json:"fields,omitempty" yaml:"fields,omitempty"`
	Methods     []MethodRecord `json:"methods,omitempty" yaml:"methods,omitempty"`
}

// FieldRecord describes one field.
type FieldRecord struct {
	Name       string   `json:"name" yaml:"name"`
	Modifiers  []string `json:"modifiers,omitempty" yaml:"modifiers,omitempty"`
	Descriptor string   `json:"descriptor" yaml:"descriptor"`
	Signature  string   `json:"signature,omitempty" yaml:"signature,omitempty"`
	Constant   any      `json:"constant,omitempty" yaml:"constant,omitempty"`
	Deprecated bool     `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
}

// MethodRecord describes one method or constructor ("<init>").
type MethodRecord struct {
	Name       string   `json:"name" yaml:"name"`
	Modifiers  []string `json:"modifiers,omitempty" yaml:"modifiers,omitempty"`
	Descriptor string   `json:"descriptor" yaml:"descriptor"`
	Signature  string   `json:"signature,omitempty" yaml:"signature,omitempty"`
	Params     []string `json:"params,omitempty" yaml:"params,omitempty"`
	Throws     []string `json:"throws,omitempty" yaml:"throws,omitempty"`
	Deprecated bool     `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
}

// DecodeJSON reads a JSON array of records or a single record.
func DecodeJSON(data []byte) ([]Record, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var r Record
		if err := strict(json.NewDecoder(bytes.NewReader(data))).Decode(&r); err != nil {
			return nil, errors.Wrap(err, "decode record")
		}
		return []Record{r}, nil
	}
	var rs []Record
	if err := strict(json.NewDecoder(bytes.NewReader(data))).Decode(&rs); err != nil {
		return nil, errors.Wrap(err, "decode records")
	}
	return rs, nil
}

// DecodeJSONL reads one record per non-empty line.
func DecodeJSONL(r io.Reader) ([]Record, error) {
	var out []Record
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for line := 1; sc.Scan(); line++ {
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}
		var rec Record
		if err := strict(json.NewDecoder(bytes.NewReader(text))).Decode(&rec); err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		out = append(out, rec)
	}
	return out, sc.Err()
}

// DecodeYAML reads a YAML sequence of records, or a stream of documents
// each holding one record.
func DecodeYAML(data []byte) ([]Record, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var out []Record
	for {
		var node yaml.Node
		err := dec.Decode(&node)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "decode yaml")
		}
		root := &node
		if root.Kind == yaml.DocumentNode && len(root.Content) == 1 {
			root = root.Content[0]
		}
		if root.Kind == yaml.SequenceNode {
			var rs []Record
			if err := decodeNode(root, &rs); err != nil {
				return nil, err
			}
			out = append(out, rs...)
			continue
		}
		var r Record
		if err := decodeNode(root, &r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
}

// decodeNode decodes with unknown keys rejected. yaml.Node.Decode ignores
// KnownFields, so the node is re-encoded through a strict decoder.
func decodeNode(n *yaml.Node, v any) error {
	data, err := yaml.Marshal(n)
	if err != nil {
		return errors.Wrap(err, "decode yaml")
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return errors.Wrap(dec.Decode(v), "decode yaml")
}

func strict(d *json.Decoder) *json.Decoder {
	d.DisallowUnknownFields()
	d.UseNumber()
	return d
}

func binaryName(s string) string {
	return model.BinaryName(s)
}

func modifiers(names []string) (model.Modifiers, error) {
	var m model.Modifiers
	for _, n := range names {
		switch strings.ToLower(n) {
		case "interface":
			m |= model.Interface
			continue
		case "annotation":
			m |= model.Annotation
			continue
		case "enum":
			m |= model.Enum
			continue
		case "default":
			continue
		}
		f, ok := model.ParseModifier(n)
		if !ok {
			return 0, errors.Newf("unknown modifier %q", n)
		}
		m |= f
	}
	return m, nil
}

// Class converts the record to a descriptor.
func (r *Record) Class() (*model.Class, error) {
	if r.Name == "" {
		return nil, errors.New("record without a name")
	}
	name := binaryName(r.Name)
	mods, err := modifiers(r.Modifiers)
	if err != nil {
		return nil, errors.Wrap(err, name)
	}
	c := &model.Class{
		Name:        name,
		Kind:        model.KindClass,
		Modifiers:   mods,
		Deprecated:  r.Deprecated,
		Annotations: r.Annotations,
	}
	switch {
	case r.Kind != "":
		k, ok := model.ParseKind(r.Kind)
		if !ok {
			return nil, errors.Newf("%s: unknown kind %q", name, r.Kind)
		}
		c.Kind = k
	case mods.Has(model.Annotation):
		c.Kind = model.KindAnnotation
	case mods.Has(model.Interface):
		c.Kind = model.KindInterface
	case mods.Has(model.Enum):
		c.Kind = model.KindEnum
	}
	if c.Kind == model.KindInterface || c.Kind == model.KindAnnotation {
		c.Modifiers |= model.Interface | model.Abstract
	}

	if !c.IsInterface() && name != model.ObjectClass {
		super := model.ObjectClass
		if r.Super != "" {
			super = binaryName(r.Super)
		}
		ref := model.Ref(super)
		c.Super = &ref
	}
	for _, i := range r.Interfaces {
		c.Interfaces = append(c.Interfaces, model.Ref(binaryName(i)))
	}
	if r.Signature != "" {
		sig, err := classfile.ParseClassSignature(r.Signature)
		if err != nil {
			return nil, errors.Wrapf(err, "%s signature", name)
		}
		c.TypeParams = sig.TypeParams
		if c.Super != nil && sig.Super.Name != "" {
			c.Super = &sig.Super
		}
		if len(sig.Interfaces) == len(c.Interfaces) {
			c.Interfaces = sig.Interfaces
		}
	}

	for i := range r.Fields {
		f, err := r.Fields[i].field()
		if err != nil {
			return nil, errors.Wrapf(err, "%s field %s", name, r.Fields[i].Name)
		}
		c.Fields = append(c.Fields, f)
	}
	for i := range r.Methods {
		m, err := r.Methods[i].method()
		if err != nil {
			return nil, errors.Wrapf(err, "%s method %s", name, r.Methods[i].Name)
		}
		c.Methods = append(c.Methods, m)
	}
	return c, nil
}

func (r *FieldRecord) field() (model.Field, error) {
	mods, err := modifiers(r.Modifiers)
	if err != nil {
		return model.Field{}, err
	}
	t, err := classfile.ParseFieldDescriptor(r.Descriptor)
	if err != nil {
		return model.Field{}, err
	}
	f := model.Field{Name: r.Name, Modifiers: mods, Type: t, Deprecated: r.Deprecated}
	if r.Signature != "" {
		if f.Type, err = classfile.ParseFieldDescriptor(r.Signature); err != nil {
			return model.Field{}, err
		}
	}
	if r.Constant != nil {
		if f.Constant, err = constant(r.Descriptor, r.Constant); err != nil {
			return model.Field{}, err
		}
	}
	return f, nil
}

func (r *MethodRecord) method() (model.Method, error) {
	mods, err := modifiers(r.Modifiers)
	if err != nil {
		return model.Method{}, err
	}
	params, ret, err := classfile.ParseMethodDescriptor(r.Descriptor)
	if err != nil {
		return model.Method{}, err
	}
	m := model.Method{Name: r.Name, Modifiers: mods, Return: ret, Descriptor: r.Descriptor, Deprecated: r.Deprecated}
	for _, t := range r.Throws {
		m.Throws = append(m.Throws, model.Ref(binaryName(t)))
	}
	if r.Signature != "" {
		sig, err := classfile.ParseMethodSignature(r.Signature)
		if err != nil {
			return model.Method{}, err
		}
		m.TypeParams = sig.TypeParams
		m.Return = sig.Return
		// signatures omit synthetic parameters; keep the descriptor's then
		if len(sig.Params) == len(params) {
			params = sig.Params
		}
		if len(sig.Throws) > 0 {
			m.Throws = sig.Throws
		}
	}
	for i, t := range params {
		p := model.Param{Type: t}
		if i < len(r.Params) {
			p.Name = r.Params[i]
		}
		m.Params = append(m.Params, p)
	}
	return m, nil
}

// constant normalizes a decoded constant to the type its descriptor
// names: int32 for I, S, B, C and Z-as-number, int64, float32, float64,
// bool or string.
func constant(desc string, v any) (any, error) {
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			v = i
		} else if f, err := n.Float64(); err == nil {
			v = f
		} else {
			return nil, errors.Wrapf(err, "constant %s", n)
		}
	}
	switch desc {
	case "Ljava/lang/String;":
		s, ok := v.(string)
		if !ok {
			return nil, errors.Newf("constant %v is not a string", v)
		}
		return s, nil
	case "Z":
		switch x := v.(type) {
		case bool:
			return x, nil
		case int64, int:
			return toInt(x) != 0, nil
		}
	case "C":
		if s, ok := v.(string); ok && len([]rune(s)) == 1 {
			return int32([]rune(s)[0]), nil
		}
		fallthrough
	case "I", "S", "B":
		if i, ok := integral(v); ok && i >= math.MinInt32 && i <= math.MaxInt32 {
			return int32(i), nil
		}
	case "J":
		if i, ok := integral(v); ok {
			return i, nil
		}
	case "F":
		if f, ok := floating(v); ok {
			return float32(f), nil
		}
	case "D":
		if f, ok := floating(v); ok {
			return f, nil
		}
	}
	return nil, errors.Newf("constant %v does not match descriptor %s", v, desc)
}

func toInt(v any) int64 {
	i, _ := integral(v)
	return i
}

func integral(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int64:
		return x, true
	case float64:
		if x == math.Trunc(x) {
			return int64(x), true
		}
	}
	return 0, false
}

func floating(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case float64:
		return x, true
	case string:
		switch x {
		case "NaN":
			return math.NaN(), true
		case "Infinity":
			return math.Inf(1), true
		case "-Infinity":
			return math.Inf(-1), true
		}
	}
	return 0, false
}
