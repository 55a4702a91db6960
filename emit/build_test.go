package emit

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/packages"

	"github.com/teranos/jbind/model"
	mt "github.com/teranos/jbind/model/modeltest"
	"github.com/teranos/jbind/naming"
)

// TestEmittedUnitsBuild type-checks emitted units inside this module so
// they resolve the jglue runtime. testdata is skipped by ./... so the
// units go to a temporary directory beside the sources.
func TestEmittedUnitsBuild(t *testing.T) {
	if testing.Short() {
		t.Skip("loads packages with the go command")
	}
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go command not available")
	}
	dir, err := os.MkdirTemp(".", "buildcheck")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	for _, opts := range []naming.Options{
		{},
		{Unit: naming.UnitPackage},
		{Layout: naming.LayoutSingle, PackageName: "bindings"},
	} {
		out := filepath.Join(dir, "gen"+opts.Unit+opts.Layout)
		opts.Module = "github.com/teranos/jbind/emit/" + filepath.ToSlash(out)

		units, _, err := Emit(context.Background(), plan(t, opts,
			mt.Class("java.lang.String", model.ObjectClass),
			mt.With(mt.Interface("pkg.Sized"), mt.Method("size", mt.Int)),
			mt.With(mt.Class("pkg.Base", model.ObjectClass, "pkg.Sized"),
				mt.Constructor(),
				mt.Method("size", mt.Int),
				mt.Method("name", mt.String),
			),
			mt.With(mt.Class("pkg.Derived", "pkg.Base"), mt.Method("size", mt.Int)),
			mt.Class("pkg.A.Item", model.ObjectClass),
			mt.Class("pkg.a.item", model.ObjectClass),
		))
		require.NoError(t, err)
		for _, u := range units {
			p := filepath.Join(out, filepath.FromSlash(u.Path))
			require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
			require.NoError(t, os.WriteFile(p, u.Source, 0644))
		}

		pkgs, err := packages.Load(&packages.Config{
			Dir:  out,
			Mode: packages.NeedName | packages.NeedTypes | packages.NeedSyntax | packages.NeedTypesInfo,
		}, "./...")
		require.NoError(t, err)
		require.NotEmpty(t, pkgs)
		for _, p := range pkgs {
			require.Empty(t, p.Errors, "%s (%s)", p.PkgPath, out)
		}
	}
}
