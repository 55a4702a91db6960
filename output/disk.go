package output

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/teranos/jbind/emit"
	"github.com/teranos/jbind/errors"
)

// Disk writes units under a root directory.
type Disk struct {
	Root string
}

// NewDisk returns a sink rooted at dir.
func NewDisk(dir string) *Disk {
	return &Disk{Root: dir}
}

func (d *Disk) local(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", errors.WrapEmissionIO(errors.Newf("path %q leaves the output directory", path), "resolve output path")
	}
	return filepath.Join(d.Root, clean), nil
}

// Write replaces the file atomically. Unchanged files are left alone so
// their modification times survive regeneration.
func (d *Disk) Write(ctx context.Context, u emit.Unit) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := d.local(u.Path)
	if err != nil {
		return err
	}
	if old, err := os.ReadFile(p); err == nil && bytes.Equal(old, u.Source) {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return errors.WrapEmissionIO(err, "create "+filepath.Dir(p))
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), "."+filepath.Base(p)+".*")
	if err != nil {
		return errors.WrapEmissionIO(err, "write "+u.Path)
	}
	if _, err := tmp.Write(u.Source); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.WrapEmissionIO(err, "write "+u.Path)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.WrapEmissionIO(err, "write "+u.Path)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return errors.WrapEmissionIO(err, "write "+u.Path)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())
		return errors.WrapEmissionIO(err, "write "+u.Path)
	}
	return nil
}

// Remove deletes a file and the directories it leaves empty.
func (d *Disk) Remove(_ context.Context, path string) error {
	p, err := d.local(path)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.WrapEmissionIO(err, "remove "+path)
	}
	root := filepath.Clean(d.Root)
	for dir := filepath.Dir(p); dir != root && strings.HasPrefix(dir, root); dir = filepath.Dir(dir) {
		if os.Remove(dir) != nil {
			break
		}
	}
	return nil
}

func (d *Disk) Read(_ context.Context, path string) ([]byte, error) {
	p, err := d.local(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return nil, errors.Mark(errors.Wrap(err, "read "+path), errors.ErrNotFound)
	}
	return data, errors.WrapEmissionIO(err, "read "+path)
}

func (d *Disk) List(context.Context) ([]string, error) {
	var out []string
	err := filepath.WalkDir(d.Root, func(p string, e fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && p == d.Root {
				return filepath.SkipDir
			}
			return err
		}
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(d.Root, p)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, errors.WrapEmissionIO(err, "list "+d.Root)
	}
	sort.Strings(out)
	return out, nil
}

func (d *Disk) String() string { return d.Root }
