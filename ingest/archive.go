package ingest

import (
	"archive/zip"
	"context"
	"io"
	"path"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/teranos/jbind/classfile"
	"github.com/teranos/jbind/errors"
	"github.com/teranos/jbind/model"
)

// readArchive parses the class files of a jar or zip archive, in entry
// name order. Nested archives are not opened.
func readArchive(ctx context.Context, p, origin string, workers int) ([]*model.Class, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, errors.Wrap(err, "open archive")
	}
	defer zr.Close()
	return readZip(ctx, &zr.Reader, origin, workers)
}

func readZip(ctx context.Context, zr *zip.Reader, origin string, workers int) ([]*model.Class, error) {
	var entries []*zip.File
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(f.Name, ".class") || skipEntry(path.Base(f.Name)) {
			continue
		}
		// multi-release variants shadow the base entries; keep the base
		if strings.HasPrefix(f.Name, "META-INF/") {
			continue
		}
		entries = append(entries, f)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	out := make([]*model.Class, len(entries))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, f := range entries {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			rc, err := f.Open()
			if err != nil {
				return errors.Wrapf(err, "%s!%s", origin, f.Name)
			}
			data, err := io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return errors.Wrapf(err, "%s!%s", origin, f.Name)
			}
			c, err := classfile.Parse(data)
			if err != nil {
				return errors.Wrapf(err, "%s!%s", origin, f.Name)
			}
			c.Origin = origin + "!" + f.Name
			out[i] = c
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
