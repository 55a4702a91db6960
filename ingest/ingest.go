// Package ingest reads class descriptors from the inputs of a run:
// descriptor records (JSON, JSON lines, YAML), class files, jar and zip
// archives, Java sources and directories holding any of these. Remote
// inputs are fetched with go-getter first.
package ingest

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/jbind/classfile"
	"github.com/teranos/jbind/errors"
	"github.com/teranos/jbind/ingest/javasrc"
	"github.com/teranos/jbind/logger"
	"github.com/teranos/jbind/model"
)

// Options controls ingest.
type Options struct {
	// CacheDir holds fetched remote inputs. Defaults to the user cache
	// directory.
	CacheDir string
	// Refresh fetches remote inputs again even when cached.
	Refresh bool
	// Workers bounds the archive entries parsed at once.
	Workers int
}

// Load reads every input in order. Entries of an archive and files of a
// directory are read in lexical order. Classes parsed from Java sources
// follow all others because names in sources resolve against every
// source type of the run.
func Load(ctx context.Context, inputs []string, opts Options) ([]*model.Class, error) {
	l := &loader{opts: opts, log: logger.ComponentLogger("ingest")}
	start := time.Now()
	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := l.input(ctx, in); err != nil {
			return nil, errors.WrapConfiguration(err, "ingest "+in)
		}
	}
	if len(l.sources) > 0 {
		cs, err := javasrc.Parse(ctx, l.sources)
		if err != nil {
			return nil, errors.WrapConfiguration(err, "ingest java sources")
		}
		l.classes = append(l.classes, cs...)
	}
	l.log.Debugw("inputs loaded",
		logger.FieldCount, len(l.classes),
		logger.FieldDurationMS, time.Since(start).Milliseconds())
	return l.classes, nil
}

type loader struct {
	opts    Options
	log     *zap.SugaredLogger
	classes []*model.Class
	sources []javasrc.Source
}

func (l *loader) input(ctx context.Context, in string) error {
	local := in
	if _, err := os.Stat(in); err != nil {
		if !IsRemote(in) {
			return errors.Wrap(err, "open input")
		}
		dir, err := Fetch(ctx, in, l.opts.CacheDir, l.opts.Refresh)
		if err != nil {
			return err
		}
		l.log.Infow("remote input fetched", logger.FieldInput, in, logger.FieldPath, dir)
		local = dir
	}
	info, err := os.Stat(local)
	if err != nil {
		return errors.Wrap(err, "open input")
	}
	if !info.IsDir() {
		return l.file(ctx, local, in)
	}
	return filepath.WalkDir(local, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != local && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !Supported(p) {
			return nil
		}
		rel, _ := filepath.Rel(local, p)
		return l.file(ctx, p, filepath.ToSlash(filepath.Join(in, rel)))
	})
}

// Supported reports whether a file name has an extension ingest reads.
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".jsonl", ".yaml", ".yml", ".class", ".jar", ".zip", ".java":
		return true
	}
	return false
}

func (l *loader) file(ctx context.Context, p, origin string) error {
	ext := strings.ToLower(filepath.Ext(p))
	if ext == ".jar" || ext == ".zip" {
		cs, err := readArchive(ctx, p, origin, l.opts.Workers)
		if err != nil {
			return err
		}
		l.classes = append(l.classes, cs...)
		return nil
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return errors.Wrap(err, "read input")
	}
	switch ext {
	case ".java":
		l.sources = append(l.sources, javasrc.Source{Name: origin, Data: data})
		return nil
	case ".class":
		if skipEntry(filepath.Base(p)) {
			return nil
		}
		c, err := classfile.Parse(data)
		if err != nil {
			return errors.Wrap(err, origin)
		}
		c.Origin = origin
		l.classes = append(l.classes, c)
		return nil
	}

	var recs []Record
	switch ext {
	case ".json":
		recs, err = DecodeJSON(data)
	case ".jsonl":
		recs, err = DecodeJSONL(bytes.NewReader(data))
	case ".yaml", ".yml":
		recs, err = DecodeYAML(data)
	default:
		return errors.Newf("unsupported input %s", origin)
	}
	if err != nil {
		return errors.Wrap(err, origin)
	}
	for i := range recs {
		c, err := recs[i].Class()
		if err != nil {
			return errors.Wrapf(err, "%s record %d", origin, i+1)
		}
		c.Origin = origin
		l.classes = append(l.classes, c)
	}
	return nil
}

// skipEntry reports class files that describe modules or packages.
func skipEntry(name string) bool {
	base := strings.TrimSuffix(filepath.Base(name), ".class")
	return base == "module-info" || base == "package-info"
}
