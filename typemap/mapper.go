package typemap

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/teranos/jbind/errors"
	"github.com/teranos/jbind/graph"
	"github.com/teranos/jbind/model"
	"github.com/teranos/jbind/naming"
)

// DefaultCacheSize bounds the per-mapper memo of erased types.
const DefaultCacheSize = 4096

// Context locates a type in the foreign declarations.
type Context struct {
	Class  string
	Member string
	// Scope resolves type variables: the class body plus method type
	// parameters.
	Scope    model.Scope
	Position Position
}

type cacheKey struct {
	desc string
	pos  Position
}

// Mapper maps foreign types against one resolved graph and name table.
// It holds no global state; the memo lives and dies with the mapper. Safe
// for concurrent use.
type Mapper struct {
	graph *graph.Graph
	names *naming.Resolution
	cache *lru.Cache[cacheKey, HostType]
}

// New returns a mapper. size <= 0 selects DefaultCacheSize.
func New(g *graph.Graph, names *naming.Resolution, size int) (*Mapper, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[cacheKey, HostType](size)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create type cache")
	}
	return &Mapper{graph: g, names: names, cache: cache}, nil
}

// Map returns the Go type of ref at ctx. Type variables and wildcards are
// erased first; the variables involved are listed in HostType.Erased so
// the caller can audit the loss. References to classes without a binding
// fail with ErrUnresolvedType.
func (m *Mapper) Map(ref model.TypeRef, ctx Context) (HostType, error) {
	erased := ref.Erasure(ctx.Scope)
	vars := Variables(ref)

	key := cacheKey{desc: erased.Descriptor(nil), pos: ctx.Position}
	if h, ok := m.cache.Get(key); ok {
		h.Erased = vars
		return h, nil
	}
	h, err := m.mapErased(erased, ctx.Position)
	if err != nil {
		return HostType{}, errors.Wrapf(err, "%s %s", ctx.Class, ctx.Member)
	}
	m.cache.Add(key, h)
	h.Erased = vars
	return h, nil
}

// Lookup returns the handle names of a class: its Go type for values and
// the concrete handle that owns references to it.
func (m *Mapper) Lookup(class string) (value, concrete Named, isInterface bool, err error) {
	if class == model.ObjectClass {
		if _, ok := m.names.Class(class); !ok {
			obj := Named{Path: GluePath, Name: "Object"}
			return obj, obj, false, nil
		}
	}
	n, ok := m.graph.Lookup(class)
	if !ok || n.Invalid {
		return Named{}, Named{}, false, errors.Mark(errors.Newf("no class %s", class), errors.ErrUnresolvedType)
	}
	cn, ok := m.names.Class(class)
	if !ok {
		return Named{}, Named{}, false, errors.Mark(errors.Newf("class %s has no binding", class), errors.ErrUnresolvedType)
	}
	value = Named{Path: cn.Package.Path, Name: cn.Type}
	if n.IsInterface() {
		return value, Named{Path: cn.Package.Path, Name: cn.Companion}, true, nil
	}
	return value, value, false, nil
}

func (m *Mapper) mapErased(t model.TypeRef, pos Position) (HostType, error) {
	switch t.Tag {
	case model.TagPrimitive:
		if t.Primitive == model.Void {
			return Void, nil
		}
		return HostType{Category: CatPrimitive, Primitive: t.Primitive}, nil

	case model.TagArray:
		elem, err := m.mapErased(*t.Elem, Element)
		if err != nil {
			return HostType{}, err
		}
		h := HostType{
			Category:  CatArray,
			Primitive: elem.Primitive,
			Rank:      t.Dims,
			Class:     elem.Class,
			Type:      elem.Type,
			Owned:     pos == Result,
		}
		return h, nil

	case model.TagReference:
		value, concrete, iface, err := m.Lookup(t.Name)
		if err != nil {
			return HostType{}, err
		}
		h := HostType{Category: CatClass, Class: t.Name, Type: value}
		if iface {
			h.Category = CatInterface
		}
		// owned results and array elements need a concrete handle
		if pos != Param {
			h.Type = concrete
		}
		h.Owned = pos == Result
		return h, nil
	}
	return HostType{}, errors.AssertionFailedf("type %s survived erasure", t)
}

// Variables lists the type variables ref mentions, first-seen order.
func Variables(ref model.TypeRef) []string {
	var out []string
	seen := map[string]bool{}
	var walk func(t *model.TypeRef)
	walk = func(t *model.TypeRef) {
		if t == nil {
			return
		}
		switch t.Tag {
		case model.TagVariable:
			if !seen[t.Name] {
				seen[t.Name] = true
				out = append(out, t.Name)
			}
		case model.TagArray:
			walk(t.Elem)
		case model.TagWildcard:
			walk(t.Bound)
		}
	}
	walk(&ref)
	return out
}
