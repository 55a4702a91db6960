package naming

import (
	"go/token"
	"path"
	"sort"
	"strings"

	"github.com/teranos/jbind/diag"
	"github.com/teranos/jbind/graph"
	"github.com/teranos/jbind/logger"
	"go.uber.org/zap"
)

// Layout values.
const (
	LayoutPackages = "packages"
	LayoutSingle   = "single"
)

// Unit values.
const (
	UnitClass   = "class"
	UnitPackage = "package"
)

// Options controls name resolution.
type Options struct {
	TieBreak  TieBreak
	MaxSuffix int
	// Layout is LayoutPackages (one Go package per Java package group) or
	// LayoutSingle (everything in one Go package).
	Layout string
	// Unit is UnitClass (one file per class) or UnitPackage.
	Unit string
	// Module is the import path the output directory is reachable under.
	Module string
	// PackageName names the Go package in LayoutSingle.
	PackageName string
	// Renames maps foreign ids ("pkg.Class", "pkg.Class#name" or
	// "pkg.Class#name(desc)") to host identifiers.
	Renames map[string]string
}

func (o Options) withDefaults() Options {
	if o.TieBreak == "" {
		o.TieBreak = TieSorted
	}
	if o.MaxSuffix <= 0 {
		o.MaxSuffix = DefaultMaxSuffix
	}
	if o.Layout == "" {
		o.Layout = LayoutPackages
	}
	if o.Unit == "" {
		o.Unit = UnitClass
	}
	if o.PackageName == "" {
		o.PackageName = "bindings"
	}
	return o
}

// GoPackage is one generated Go package.
type GoPackage struct {
	// Path is the import path.
	Path string
	// Dir is the slash-separated directory relative to the output root,
	// "." for the root itself.
	Dir string
	// Name is the package clause name.
	Name string
	// Java lists the Java packages emitted into this package, sorted.
	Java []string
}

// File returns the output path of a file in the package directory.
func (p *GoPackage) File(name string) string {
	return path.Join(p.Dir, name)
}

// ClassNames are the host names of one class.
type ClassNames struct {
	Package *GoPackage
	// Type is the handle type name.
	Type string
	// Companion is the concrete handle of an interface, "" for classes.
	Companion string
	// File is the output path of the unit holding the class.
	File string
}

// Resolution is the outcome of name resolution for a graph.
type Resolution struct {
	*Table
	opts     Options
	packages []*GoPackage
	byJava   map[string]*GoPackage
	classes  map[string]ClassNames
}

// Options returns the options the resolution was made with.
func (r *Resolution) Options() Options { return r.opts }

// Packages returns the Go packages sorted by path.
func (r *Resolution) Packages() []*GoPackage { return r.packages }

// PackageFor returns the Go package a Java package is emitted into.
func (r *Resolution) PackageFor(javaPkg string) (*GoPackage, bool) {
	p, ok := r.byJava[javaPkg]
	return p, ok
}

// Class returns the host names of a class. Classes whose names could not
// be resolved are absent and must be treated as unknown.
func (r *Resolution) Class(name string) (ClassNames, bool) {
	c, ok := r.classes[name]
	return c, ok
}

// Renamed returns the configured host identifier for a foreign id.
func (r *Resolution) Renamed(foreign string) (string, bool) {
	h, ok := r.opts.Renames[foreign]
	return h, ok
}

// MemberScope is the table scope of members declared on a class type.
func MemberScope(c ClassNames) string {
	return c.Package.Path + "." + c.Type
}

// Resolve assigns Go packages, type names, companion names and file names
// to every valid class of g. The result depends only on g's content and,
// for TieIngest, its ingest order.
func Resolve(g *graph.Graph, opts Options) (*Resolution, []diag.Diagnostic) {
	opts = opts.withDefaults()
	r := &Resolution{
		Table:   NewTable(),
		opts:    opts,
		byJava:  map[string]*GoPackage{},
		classes: map[string]ClassNames{},
	}
	res := &resolver{g: g, r: r, log: logger.ComponentLogger("naming")}
	res.packages()
	res.types()
	res.files()
	diag.Sort(res.diags)
	res.log.Debugw("names resolved",
		logger.FieldCount, r.Len(),
		"packages", len(r.packages),
		"diagnostics", len(res.diags))
	return r, res.diags
}

type resolver struct {
	g     *graph.Graph
	r     *Resolution
	diags []diag.Diagnostic
	log   *zap.SugaredLogger
}

func (res *resolver) fail(class, member, format string, args ...interface{}) {
	res.diags = append(res.diags, diag.New(diag.NameCollisionUnresolvable, class, member, format, args...))
}

// assign records a name in the table. A name the table already holds
// for something else is reported against class.
func (res *resolver) assign(class string, kind Kind, scope, foreign, host string) {
	if err := res.r.Assign(kind, scope, foreign, host); err != nil {
		res.fail(class, "", "%v", err)
	}
}

// packages builds the Go package of every Java package group. In the
// packages layout a group is placed at the directory derived from its
// primary member; sibling directories that collide once normalized and
// case-folded are suffixed.
func (res *resolver) packages() {
	opts := res.r.opts
	groups := res.g.Packages().Groups()

	if opts.Layout == LayoutSingle {
		gp := &GoPackage{Path: opts.Module, Dir: ".", Name: opts.PackageName}
		for _, grp := range groups {
			for _, m := range grp.Members {
				gp.Java = append(gp.Java, m)
				res.r.byJava[m] = gp
				res.assign(m, KindPackage, m, m, gp.Path)
			}
		}
		sort.Strings(gp.Java)
		res.r.packages = []*GoPackage{gp}
		return
	}

	// first ingest position of a class under each package prefix
	first := map[string]int{}
	for _, n := range res.g.IngestOrder() {
		for _, prefix := range prefixes(n.Package()) {
			if i, ok := first[prefix]; !ok || n.Index < i {
				first[prefix] = n.Index
			}
		}
	}

	// children of each prefix, by depth
	children := map[string][]string{}
	seen := map[string]bool{}
	maxDepth := 0
	for _, grp := range groups {
		ps := prefixes(grp.Primary)
		if len(ps) > maxDepth {
			maxDepth = len(ps)
		}
		parent := ""
		for i, p := range ps {
			if !seen[p] {
				seen[p] = true
				key := parent
				if i == 0 {
					key = "\x00root"
				}
				children[key] = append(children[key], p)
			}
			parent = p
		}
	}

	dirOf := map[string]string{}
	parents := []string{"\x00root"}
	for depth := 0; depth < maxDepth && len(parents) > 0; depth++ {
		var next []string
		for _, parent := range parents {
			kids := children[parent]
			if len(kids) == 0 {
				continue
			}
			scope := NewFoldingScope(opts.MaxSuffix, FoldFileName)
			claims := make([]Claim, 0, len(kids))
			for _, k := range kids {
				claims = append(claims, Claim{Foreign: k, Index: first[k], Natural: PackageSegment(lastSegment(k))})
			}
			assigned, failed := scope.Allocate(claims, opts.TieBreak, NumericSuffix)
			for _, c := range failed {
				res.fail("", "", "package %q: no free directory name for %q", c.Foreign, c.Natural)
			}
			parentDir := ""
			if parent != "\x00root" {
				parentDir = dirOf[parent]
			}
			for _, k := range kids {
				seg, ok := assigned[k]
				if !ok {
					continue
				}
				dirOf[k] = path.Join(parentDir, seg)
				next = append(next, k)
			}
		}
		sort.Strings(next)
		parents = next
	}

	for _, grp := range groups {
		dir, ok := dirOf[grp.Primary]
		if !ok {
			continue
		}
		gp := &GoPackage{
			Path: path.Join(opts.Module, dir),
			Dir:  dir,
			Name: path.Base(dir),
			Java: append([]string(nil), grp.Members...),
		}
		for _, m := range grp.Members {
			res.r.byJava[m] = gp
			res.assign(m, KindPackage, m, m, gp.Path)
		}
		res.r.packages = append(res.r.packages, gp)
	}
	sort.Slice(res.r.packages, func(i, j int) bool { return res.r.packages[i].Path < res.r.packages[j].Path })
}

// prefixes returns "a", "a.b", "a.b.c" for "a.b.c". The default package
// has the single prefix "".
func prefixes(pkg string) []string {
	if pkg == "" {
		return []string{""}
	}
	parts := strings.Split(pkg, ".")
	out := make([]string, len(parts))
	for i := range parts {
		out[i] = strings.Join(parts[:i+1], ".")
	}
	return out
}

func lastSegment(pkg string) string {
	return pkg[strings.LastIndexByte(pkg, '.')+1:]
}

// TypeName is the natural handle type name of a class.
func TypeName(binaryName string) string {
	simple := binaryName[strings.LastIndexByte(binaryName, '.')+1:]
	return EscapeReserved(Identifier(strings.ReplaceAll(simple, "$", "_"), true), IsReservedPackageLevel)
}

// types allocates handle type names and interface companions in each Go
// package. Types are allocated before companions so a class named
// ListHandle keeps its name over the companion of List.
func (res *resolver) types() {
	opts := res.r.opts
	byPkg := map[*GoPackage][]*graph.Node{}
	for _, n := range res.g.Valid() {
		gp, ok := res.r.byJava[n.Package()]
		if !ok {
			res.fail(n.Name(), "", "no Go package for %q", n.Package())
			continue
		}
		byPkg[gp] = append(byPkg[gp], n)
	}

	for _, gp := range res.r.packages {
		nodes := byPkg[gp]
		scope := NewScope(opts.MaxSuffix)
		names := map[string]string{}

		var claims []Claim
		for _, n := range nodes {
			if host, ok := opts.Renames[n.Name()]; ok {
				if !token.IsIdentifier(host) || !token.IsExported(host) {
					res.fail(n.Name(), "", "rename %q is not an exported Go identifier", host)
					continue
				}
				if !scope.Pin(n.Name(), host) {
					owner, _ := scope.Taken(host)
					res.fail(n.Name(), "", "rename %q is already used by %s", host, owner)
					continue
				}
				names[n.Name()] = host
				continue
			}
			claims = append(claims, Claim{Foreign: n.Name(), Index: n.Index, Natural: TypeName(n.Name())})
		}
		assigned, failed := scope.Allocate(claims, opts.TieBreak, NumericSuffix)
		for _, c := range failed {
			res.fail(c.Foreign, "", "no free type name for %q after %d suffixes", c.Natural, opts.MaxSuffix)
		}
		for f, h := range assigned {
			names[f] = h
		}

		var companions []Claim
		for _, n := range nodes {
			if _, ok := names[n.Name()]; ok && n.IsInterface() {
				companions = append(companions, Claim{Foreign: n.Name(), Index: n.Index, Natural: names[n.Name()] + "Handle"})
			}
		}
		compNames, failed := scope.Allocate(companions, opts.TieBreak, NumericSuffix)
		for _, c := range failed {
			res.fail(c.Foreign, "", "no free companion name for %q", c.Natural)
		}

		for _, n := range nodes {
			host, ok := names[n.Name()]
			if !ok {
				continue
			}
			cn := ClassNames{Package: gp, Type: host}
			if n.IsInterface() {
				comp, ok := compNames[n.Name()]
				if !ok {
					continue
				}
				cn.Companion = comp
				if err := res.r.Assign(KindCompanion, gp.Path, n.Name(), comp); err != nil {
					res.fail(n.Name(), "", "%v", err)
					continue
				}
			}
			if err := res.r.Assign(KindClass, gp.Path, n.Name(), host); err != nil {
				res.fail(n.Name(), "", "%v", err)
				continue
			}
			res.r.classes[n.Name()] = cn
		}
	}
}

// FileSuffixed forms the n-th alternative of a generated file name.
func FileSuffixed(base string, n int) string {
	return NumericSuffix(strings.TrimSuffix(base, FileSuffix), n) + FileSuffix
}

// files places every named class in an output unit. File names are
// compared case-folded so the tree also works on case-insensitive file
// systems.
func (res *resolver) files() {
	opts := res.r.opts
	byPkg := map[*GoPackage][]string{}
	for _, n := range res.g.Valid() {
		if cn, ok := res.r.classes[n.Name()]; ok {
			byPkg[cn.Package] = append(byPkg[cn.Package], n.Name())
		}
	}

	for _, gp := range res.r.packages {
		scope := NewFoldingScope(opts.MaxSuffix, FoldFileName)
		scope.Reserve(DocFileName)
		res.assign("", KindFile, gp.Dir, "doc:"+gp.Path, DocFileName)

		if opts.Unit == UnitPackage {
			file := EscapeReserved(gp.Name, func(s string) bool { return s+FileSuffix == DocFileName }) + FileSuffix
			scope.Pin(gp.Path, file)
			res.assign("", KindFile, gp.Dir, "package:"+gp.Path, file)
			for _, name := range byPkg[gp] {
				cn := res.r.classes[name]
				cn.File = gp.File(file)
				res.r.classes[name] = cn
			}
			continue
		}

		claims := make([]Claim, 0, len(byPkg[gp]))
		for _, name := range byPkg[gp] {
			n, _ := res.g.Lookup(name)
			claims = append(claims, Claim{Foreign: name, Index: n.Index, Natural: FileName(res.r.classes[name].Type)})
		}
		assigned, failed := scope.Allocate(claims, opts.TieBreak, FileSuffixed)
		for _, c := range failed {
			res.fail(c.Foreign, "", "no free file name for %q", c.Natural)
			delete(res.r.classes, c.Foreign)
		}
		for f, file := range assigned {
			cn := res.r.classes[f]
			cn.File = gp.File(file)
			res.r.classes[f] = cn
			res.assign(f, KindFile, gp.Dir, f, file)
		}
	}
}
