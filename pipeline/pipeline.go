// Package pipeline runs the generator end to end: ingest, filter, graph
// building, naming, member resolution, emission, sink writes and the run
// manifest. Stages run one after another over read-only results of the
// previous stage; parallelism lives inside stages.
package pipeline

import (
	"context"
	"path/filepath"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/jbind/config"
	"github.com/teranos/jbind/db"
	"github.com/teranos/jbind/diag"
	"github.com/teranos/jbind/emit"
	"github.com/teranos/jbind/errors"
	"github.com/teranos/jbind/graph"
	"github.com/teranos/jbind/ingest"
	"github.com/teranos/jbind/logger"
	"github.com/teranos/jbind/manifest"
	"github.com/teranos/jbind/model"
	"github.com/teranos/jbind/naming"
	"github.com/teranos/jbind/output"
	"github.com/teranos/jbind/overload"
	"github.com/teranos/jbind/typemap"
	"github.com/teranos/jbind/version"
)

// Option configures a Driver.
type Option func(*Driver)

// WithSink replaces the sink output.sink selects.
func WithSink(s output.Sink) Option {
	return func(d *Driver) {
		d.sink = s
	}
}

// WithManifest records runs in store instead of the one manifest.dsn
// names. The caller keeps ownership of store.
func WithManifest(store *manifest.Store) Option {
	return func(d *Driver) {
		d.store = store
	}
}

// WithoutManifest disables run bookkeeping regardless of configuration.
func WithoutManifest() Option {
	return func(d *Driver) {
		d.noManifest = true
	}
}

// WithLogger replaces the component logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(d *Driver) {
		d.log = l
	}
}

// Driver runs the generator for one configuration.
type Driver struct {
	cfg        *config.Config
	filter     *Filter
	sink       output.Sink
	store      *manifest.Store
	ownStore   bool
	noManifest bool
	log        *zap.SugaredLogger
}

// New validates cfg and prepares the sink and manifest store. Every
// configuration problem is reported here, before any input is read.
func New(cfg *config.Config, opts ...Option) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	filter, err := NewFilter(cfg.Filter.Include, cfg.Filter.Exclude)
	if err != nil {
		return nil, err
	}

	d := &Driver{
		cfg:    cfg,
		filter: filter,
		log:    logger.ComponentLogger("pipeline"),
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.sink == nil {
		d.sink, err = SinkFor(cfg.Output)
		if err != nil {
			return nil, err
		}
	}
	if d.noManifest {
		d.store = nil
	} else if d.store == nil && cfg.Manifest.Enabled {
		d.store, err = manifest.Open(cfg.Manifest.DSN)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open manifest")
		}
		d.ownStore = true
	}
	return d, nil
}

// SinkFor builds the sink output.sink selects.
func SinkFor(cfg config.OutputConfig) (output.Sink, error) {
	switch cfg.Sink {
	case "s3":
		return output.NewS3(output.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			Prefix:    cfg.S3.Prefix,
			UseSSL:    cfg.S3.UseSSL,
		})
	case "", "disk":
		return output.NewDisk(cfg.Dir), nil
	}
	return nil, errors.NewConfigurationError("unknown output.sink %q", cfg.Sink)
}

// Sink returns the sink units are written to.
func (d *Driver) Sink() output.Sink { return d.sink }

// Close releases the manifest store if the driver opened it.
func (d *Driver) Close() error {
	if d.ownStore && d.store != nil {
		return d.store.Close()
	}
	return nil
}

func (d *Driver) workers() int {
	if d.cfg.Run.Workers > 0 {
		return d.cfg.Run.Workers
	}
	return runtime.NumCPU()
}

// inputs falls back to input.paths.
func (d *Driver) inputs(in []string) []string {
	if len(in) > 0 {
		return in
	}
	return d.cfg.Input.Paths
}

// run carries the state of one Run call.
type run struct {
	d      *Driver
	report *Report
	diags  diag.Collector
}

// stage times fn and applies the fatality policy to the diagnostics
// collected so far.
func (r *run) stage(ctx context.Context, name string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log := logger.ChildLogger(r.d.log, logger.FieldStage, name)
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	r.report.Stages = append(r.report.Stages, StageTiming{Name: name, Duration: elapsed})
	log.Debugw("Stage finished",
		logger.FieldDurationMS, elapsed.Milliseconds(),
		logger.FieldCount, r.diags.Len())
	if err != nil {
		return errors.Wrapf(err, "%s", name)
	}
	return r.diags.Fatal(r.d.cfg.Run.Strict)
}

// Graph ingests, filters and builds the type graph without generating
// anything.
func (d *Driver) Graph(ctx context.Context, inputs []string) (*graph.Graph, *Report, error) {
	r := &run{d: d, report: &Report{}}
	start := time.Now()
	g, err := r.buildGraph(ctx, d.inputs(inputs))
	r.finish(start)
	return g, r.report, err
}

func (r *run) buildGraph(ctx context.Context, inputs []string) (*graph.Graph, error) {
	d := r.d
	if len(inputs) == 0 {
		return nil, errors.WithHint(
			errors.NewConfigurationError("no inputs"),
			"pass inputs on the command line or set input.paths",
		)
	}

	var classes []*model.Class
	err := r.stage(ctx, "ingest", func() error {
		var err error
		classes, err = ingest.Load(ctx, inputs, ingest.Options{
			CacheDir: d.cfg.Input.CacheDir,
			Refresh:  d.cfg.Input.Refresh,
			Workers:  d.workers(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	var kept []*model.Class
	excluded := map[string]bool{}
	err = r.stage(ctx, "filter", func() error {
		for _, c := range classes {
			if d.filter.Match(c.Name) {
				kept = append(kept, c)
			} else {
				excluded[c.Name] = true
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.report.Ingested = len(classes)
	r.report.Filtered = len(excluded)

	var g *graph.Graph
	err = r.stage(ctx, "graph", func() error {
		var ds []diag.Diagnostic
		g, ds = graph.Build(kept, graph.Options{
			MaxDepth: d.cfg.Graph.MaxDepth,
			Excluded: func(name string) bool {
				return excluded[name] || (!d.filter.Empty() && !d.filter.Match(name))
			},
		})
		r.diags.Add(ds...)
		return nil
	})
	if g != nil {
		r.report.Classes = len(g.Nodes())
		r.report.Graph = g.Stats()
	}
	return g, err
}

// Run generates bindings for inputs, or input.paths when inputs is empty.
// The report is returned even when the run fails; its diagnostics explain
// the failure.
func (d *Driver) Run(ctx context.Context, inputs []string) (*Report, error) {
	start := time.Now()
	r := &run{d: d, report: &Report{Sink: d.sink.String()}}

	var rec *manifest.Run
	if d.store != nil {
		var err error
		rec, err = d.store.Begin(ctx, version.Get().Version, d.configHash(), d.sourceRevision())
		if err != nil {
			return r.report, errors.Wrap(err, "failed to record run")
		}
		r.report.RunID = rec.ID.String()
	}

	outputs, err := r.generate(ctx, d.inputs(inputs))
	r.finish(start)

	if rec != nil {
		status := manifest.StatusOK
		if err != nil {
			status = manifest.StatusFailed
			outputs = nil
		}
		// the run must be closed even when ctx ended
		ferr := d.store.Finish(context.WithoutCancel(ctx), rec, status, outputs)
		switch {
		case ferr == nil:
		case db.IsDatabaseClosed(ferr):
			d.log.Warnw("Manifest closed before the run was recorded", logger.FieldRunID, rec.ID.String())
		case err == nil:
			err = errors.Wrap(ferr, "failed to record run")
		}
	}

	if err != nil {
		d.log.Errorw("Run failed", logger.FieldError, err, logger.FieldDurationMS, r.report.Duration.Milliseconds())
		return r.report, err
	}
	d.log.Infow("Run finished",
		"classes", r.report.Classes,
		"files", len(r.report.Units),
		"diagnostics", len(r.report.Diagnostics),
		logger.FieldDurationMS, r.report.Duration.Milliseconds())
	return r.report, nil
}

func (r *run) generate(ctx context.Context, inputs []string) ([]manifest.Output, error) {
	d := r.d
	g, err := r.buildGraph(ctx, inputs)
	if err != nil {
		return nil, err
	}

	var names *naming.Resolution
	err = r.stage(ctx, "naming", func() error {
		var ds []diag.Diagnostic
		names, ds = naming.Resolve(g, naming.Options{
			TieBreak:    naming.TieBreak(d.cfg.Naming.TieBreak),
			MaxSuffix:   d.cfg.Naming.MaxSuffix,
			Layout:      d.cfg.Naming.Layout,
			Unit:        d.cfg.Naming.Unit,
			Module:      d.cfg.Naming.Module,
			PackageName: d.cfg.Naming.PackageName,
			Renames:     d.cfg.Renames(),
		})
		r.diags.Add(ds...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	var members *overload.Result
	err = r.stage(ctx, "overload", func() error {
		mapper, err := typemap.New(g, names, 0)
		if err != nil {
			return err
		}
		var ds []diag.Diagnostic
		members, ds, err = overload.Resolve(ctx, g, names, mapper, overload.Options{
			Collision:  d.cfg.Members.Collision,
			TieBreak:   naming.TieBreak(d.cfg.Naming.TieBreak),
			MaxSuffix:  d.cfg.Naming.MaxSuffix,
			Visibility: d.cfg.Members.Visibility,
			Ignore:     d.cfg.Ignored,
			Workers:    d.workers(),
		})
		r.diags.Add(ds...)
		return err
	})
	if err != nil {
		return nil, err
	}

	var units []emit.Unit
	err = r.stage(ctx, "emit", func() error {
		var ds []diag.Diagnostic
		var err error
		units, ds, err = emit.Emit(ctx, emit.Plan{
			Names:        names,
			Members:      members,
			KeepRejected: d.cfg.Members.KeepRejected,
			Workers:      d.workers(),
		})
		r.diags.Add(ds...)
		return err
	})
	r.report.Units = units
	if err != nil {
		return nil, err
	}

	var outputs []manifest.Output
	err = r.stage(ctx, "write", func() error {
		outputs = make([]manifest.Output, 0, len(units))
		for _, u := range units {
			if err := d.sink.Write(ctx, u); err != nil {
				r.diags.Add(diag.New(diag.EmissionIOError, "", "", "%s: %v", u.Path, err))
				return err
			}
			outputs = append(outputs, manifest.NewOutput(u.Path, u.Source, u.Classes))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if d.cfg.Output.Prune && d.store != nil {
		err = r.stage(ctx, "prune", func() error {
			stale, err := d.store.Stale(ctx, r.report.Paths())
			if err != nil {
				return err
			}
			for _, p := range stale {
				if err := d.sink.Remove(ctx, p); err != nil {
					return err
				}
				d.log.Debugw("Pruned stale file", logger.FieldPath, p)
			}
			r.report.Pruned = stale
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return outputs, nil
}

func (r *run) finish(start time.Time) {
	r.report.Diagnostics = r.diags.Sorted()
	r.report.Duration = time.Since(start)
	for _, u := range r.report.Units {
		r.report.Emitted += len(u.Classes)
	}
	r.report.SkippedMembers = r.diags.CountKind(diag.SkippedMember)
	r.report.Erased = r.diags.CountKind(diag.ErasureFallback)
	r.report.SuppressedBridges = r.diags.CountKind(diag.SuppressedBridge)
}

// configHash identifies the effective configuration of a run.
func (d *Driver) configHash() string {
	data, err := config.Marshal(d.cfg, "jbind.toml")
	if err != nil {
		return ""
	}
	return manifest.Hash(data)
}

func (d *Driver) sourceRevision() string {
	dir := "."
	if d.cfg.Path != "" {
		dir = filepath.Dir(d.cfg.Path)
	}
	rev, err := manifest.SourceRevision(dir)
	if err != nil {
		d.log.Debugw("No source revision", logger.FieldError, err)
		return ""
	}
	return rev
}
