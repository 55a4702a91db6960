package overload

import (
	"context"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/teranos/jbind/diag"
	"github.com/teranos/jbind/errors"
	"github.com/teranos/jbind/graph"
	"github.com/teranos/jbind/logger"
	"github.com/teranos/jbind/model"
	"github.com/teranos/jbind/naming"
	"github.com/teranos/jbind/typemap"
)

// Options controls overload resolution.
type Options struct {
	// Collision is CollisionSuffix (foo, foo_2) or CollisionSignature
	// (foo, foo_int32_String).
	Collision string
	TieBreak  naming.TieBreak
	MaxSuffix int
	// Visibility is the least visible member kept: "public", "protected",
	// "package" or "private".
	Visibility string
	// Ignore reports foreign ids ("pkg.Class#name" or
	// "pkg.Class#name(desc)") that are not emitted.
	Ignore func(id string) bool
	// Workers bounds the classes resolved at once.
	Workers int
}

func (o Options) withDefaults() Options {
	if o.Collision == "" {
		o.Collision = CollisionSuffix
	}
	if o.TieBreak == "" {
		o.TieBreak = naming.TieSorted
	}
	if o.MaxSuffix <= 0 {
		o.MaxSuffix = naming.DefaultMaxSuffix
	}
	if o.Visibility == "" {
		o.Visibility = "public"
	}
	if o.Ignore == nil {
		o.Ignore = func(string) bool { return false }
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	return o
}

var visibilityRank = map[model.Visibility]int{
	model.VisibilityPrivate:   0,
	model.VisibilityPackage:   1,
	model.VisibilityProtected: 2,
	model.VisibilityPublic:    3,
}

// ParseVisibility returns the rank of a visibility keyword.
func ParseVisibility(s string) (int, bool) {
	switch s {
	case "private":
		return 0, true
	case "package":
		return 1, true
	case "protected":
		return 2, true
	case "public":
		return 3, true
	}
	return 0, false
}

type resolver struct {
	g       *graph.Graph
	names   *naming.Resolution
	mapper  *typemap.Mapper
	opts    Options
	minRank int
	log     *zap.SugaredLogger
	diags   diag.Collector

	// results is only written between levels.
	results map[string]*Class
}

// Resolve names the members of every class in g. Classes are resolved
// level by level so supertypes are final before their subtypes look at
// them; classes inside one level run in parallel. The error is non-nil
// only when ctx ends.
func Resolve(ctx context.Context, g *graph.Graph, names *naming.Resolution, mapper *typemap.Mapper, opts Options) (*Result, []diag.Diagnostic, error) {
	opts = opts.withDefaults()
	rank, ok := ParseVisibility(opts.Visibility)
	if !ok {
		return nil, nil, errors.NewConfigurationError("unknown visibility %q", opts.Visibility)
	}
	r := &resolver{
		g:       g,
		names:   names,
		mapper:  mapper,
		opts:    opts,
		minRank: rank,
		log:     logger.ComponentLogger("overload"),
		results: map[string]*Class{},
	}
	start := time.Now()

	// interfaces see the root object's names, so it goes first
	if obj, ok := g.Lookup(model.ObjectClass); ok && !obj.Invalid {
		if c := r.resolveNode(obj); c != nil {
			r.results[model.ObjectClass] = c
		}
	}

	for depth, level := range g.Levels() {
		out := make([]*Class, len(level))
		eg, egCtx := errgroup.WithContext(ctx)
		eg.SetLimit(opts.Workers)
		for i, n := range level {
			if _, done := r.results[n.Name()]; done {
				continue
			}
			eg.Go(func() error {
				if err := egCtx.Err(); err != nil {
					return err
				}
				out[i] = r.resolveNode(n)
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, nil, errors.Wrapf(err, "overload resolution stopped at level %d", depth)
		}
		for _, c := range out {
			if c != nil {
				r.results[c.Node.Name()] = c
			}
		}
	}

	r.packageFuncs()

	r.log.Debugw("members resolved",
		logger.FieldCount, len(r.results),
		logger.FieldDurationMS, time.Since(start).Milliseconds())
	return &Result{classes: r.results}, r.diags.Sorted(), nil
}

func (r *resolver) visible(m model.Modifiers) bool {
	return visibilityRank[m.Visibility()] >= r.minRank
}

// embedOf returns the handle a class embeds: the nearest named ancestor,
// or the glue object for roots.
func (r *resolver) embedOf(n *graph.Node) (typemap.Named, *Class) {
	for _, a := range n.Ancestors {
		if c, ok := r.results[a.Name()]; ok {
			return typemap.Named{Path: c.Names.Package.Path, Name: c.Names.Type}, c
		}
	}
	return typemap.Named{Path: typemap.GluePath, Name: "Object"}, nil
}

// object returns the resolution of the root object class, if bound.
func (r *resolver) object() (typemap.Named, *Class) {
	if c, ok := r.results[model.ObjectClass]; ok {
		return typemap.Named{Path: c.Names.Package.Path, Name: c.Names.Type}, c
	}
	return typemap.Named{Path: typemap.GluePath, Name: "Object"}, nil
}

func (r *resolver) resolveNode(n *graph.Node) *Class {
	cn, ok := r.names.Class(n.Name())
	if !ok {
		return nil
	}
	c := &Class{Node: n, Names: cn}
	members, funcs, consts := r.collect(n, c)
	c.Consts = consts
	c.Funcs = funcs
	if n.IsInterface() {
		r.resolveInterface(c, members)
	} else {
		r.resolveClass(c, members)
	}
	return c
}
