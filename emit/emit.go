// Package emit renders resolved classes as Go source. Each output unit is
// one file: a class (or every class of a Go package when the unit is
// "package") or the doc file of a Go package.
package emit

import (
	"bytes"
	"context"
	"path"
	"runtime"
	"sort"
	"time"

	"github.com/dave/jennifer/jen"
	"golang.org/x/sync/errgroup"

	"github.com/teranos/jbind/diag"
	"github.com/teranos/jbind/errors"
	"github.com/teranos/jbind/logger"
	"github.com/teranos/jbind/naming"
	"github.com/teranos/jbind/overload"
)

// Header opens every generated file.
const Header = "Code generated by jbind. DO NOT EDIT."

// Plan is everything emission needs from the earlier stages.
type Plan struct {
	Names   *naming.Resolution
	Members *overload.Result
	// KeepRejected lists members that were not emitted as comments.
	KeepRejected bool
	// Workers bounds the files rendered at once.
	Workers int
}

// Unit is one generated file.
type Unit struct {
	// Path is slash-separated and relative to the output root.
	Path   string
	Source []byte
	// Classes are the foreign classes rendered into the file, sorted.
	Classes []string
}

type fileKey struct {
	pkg  *naming.GoPackage
	file string
}

// Emit renders every class of the plan. Units are sorted by path. The
// error is non-nil when ctx ends or generated source cannot be rendered.
func Emit(ctx context.Context, plan Plan) ([]Unit, []diag.Diagnostic, error) {
	log := logger.ComponentLogger("emit")
	start := time.Now()
	workers := plan.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	files := map[fileKey][]*overload.Class{}
	pkgs := map[*naming.GoPackage]bool{}
	for _, c := range plan.Members.Classes() {
		k := fileKey{pkg: c.Names.Package, file: c.Names.File}
		files[k] = append(files[k], c)
		pkgs[c.Names.Package] = true
	}
	keys := make([]fileKey, 0, len(files))
	for k := range files {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].file < keys[j].file
	})

	var diags diag.Collector
	units := make([]Unit, len(keys))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, k := range keys {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			e := newEmitter(plan, k.pkg, &diags)
			u, err := e.file(k.file, files[k])
			if err != nil {
				return err
			}
			units[i] = u
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}

	for _, gp := range plan.Names.Packages() {
		if !pkgs[gp] {
			continue
		}
		u, err := docUnit(gp)
		if err != nil {
			return nil, nil, err
		}
		units = append(units, u)
	}
	sort.Slice(units, func(i, j int) bool { return units[i].Path < units[j].Path })

	log.Debugw("units rendered",
		logger.FieldCount, len(units),
		logger.FieldDurationMS, time.Since(start).Milliseconds())
	return units, diags.Sorted(), nil
}

// docUnit renders the package documentation file.
func docUnit(gp *naming.GoPackage) (Unit, error) {
	f := jen.NewFilePathName(gp.Path, gp.Name)
	f.HeaderComment(Header)
	f.PackageComment("Package " + gp.Name + " binds the Java packages:")
	f.PackageComment("//")
	for _, j := range gp.Java {
		name := j
		if name == "" {
			name = "(default package)"
		}
		f.PackageComment("//\t" + name)
	}
	return render(f, path.Join(gp.Dir, naming.DocFileName), nil)
}

func render(f *jen.File, p string, classes []string) (Unit, error) {
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return Unit{}, errors.Wrapf(err, "render %s", p)
	}
	return Unit{Path: p, Source: buf.Bytes(), Classes: classes}, nil
}
