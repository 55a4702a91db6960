// Package graphexport loads the type graph into Neo4j for ad-hoc querying.
//
// Classes become JavaClass nodes linked to JavaPackage nodes; supertype
// relationships become EXTENDS and IMPLEMENTS edges and member signatures
// become USES edges tagged with where the reference occurs.
package graphexport

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/teranos/jbind/config"
	"github.com/teranos/jbind/errors"
	"github.com/teranos/jbind/graph"
	"github.com/teranos/jbind/logger"
)

// DefaultBatchSize is the number of rows per UNWIND statement.
const DefaultBatchSize = 500

var indexes = []string{
	"CREATE INDEX java_package_name IF NOT EXISTS FOR (n:JavaPackage) ON (n.name)",
	"CREATE INDEX java_class_name IF NOT EXISTS FOR (n:JavaClass) ON (n.name)",
}

var cleanup = []string{
	"MATCH ()-[r:EXTENDS|IMPLEMENTS|IN_PACKAGE|USES]->() DELETE r",
	"MATCH (n:JavaClass) DETACH DELETE n",
	"MATCH (n:JavaPackage) DETACH DELETE n",
}

const (
	packageQuery = `UNWIND $batch AS row
		MERGE (n:JavaPackage {name: row.name})
		SET n.classes = row.classes, n.group = row.group`

	classQuery = `UNWIND $batch AS row
		MERGE (n:JavaClass {name: row.name})
		SET n.simple_name = row.simple, n.package = row.pkg, n.kind = row.kind,
		    n.level = row.level, n.invalid = row.invalid,
		    n.methods = row.methods, n.fields = row.fields, n.origin = row.origin
		WITH n, row
		MATCH (p:JavaPackage {name: row.pkg})
		MERGE (n)-[:IN_PACKAGE]->(p)`

	extendsQuery = `UNWIND $batch AS row
		MATCH (a:JavaClass {name: row.from}), (b:JavaClass {name: row.to})
		MERGE (a)-[:EXTENDS]->(b)`

	implementsQuery = `UNWIND $batch AS row
		MATCH (a:JavaClass {name: row.from}), (b:JavaClass {name: row.to})
		MERGE (a)-[:IMPLEMENTS]->(b)`

	usesQuery = `UNWIND $batch AS row
		MATCH (a:JavaClass {name: row.from}), (b:JavaClass {name: row.to})
		MERGE (a)-[r:USES {via: row.via}]->(b)`
)

// runFunc executes one Cypher statement.
type runFunc func(ctx context.Context, cypher string, params map[string]any) error

// Summary counts what an export wrote.
type Summary struct {
	Packages   int
	Classes    int
	Extends    int
	Implements int
	Uses       int
	Statements int
	Duration   time.Duration
}

// Exporter writes a type graph to Neo4j.
type Exporter struct {
	driver    neo4j.DriverWithContext
	run       runFunc
	batchSize int
	clean     bool
	log       *zap.SugaredLogger
}

// Open connects to the server described by cfg and verifies connectivity.
func Open(ctx context.Context, cfg config.Neo4jConfig) (*Exporter, error) {
	if cfg.URI == "" {
		return nil, errors.NewConfigurationError("graph.neo4j.uri is not set")
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create neo4j driver for %s", cfg.URI)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, errors.WithHint(
			errors.Wrapf(err, "failed to connect to %s", cfg.URI),
			"check graph.neo4j.uri and NEO4J_PASSWORD",
		)
	}

	var opts []neo4j.ExecuteQueryConfigurationOption
	if cfg.Database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(cfg.Database))
	}
	run := func(ctx context.Context, cypher string, params map[string]any) error {
		_, err := neo4j.ExecuteQuery(ctx, driver, cypher, params, neo4j.EagerResultTransformer, opts...)
		return err
	}

	e := newExporter(run, cfg.BatchSize, cfg.Clean)
	e.driver = driver
	return e, nil
}

func newExporter(run runFunc, batchSize int, clean bool) *Exporter {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Exporter{
		run:       run,
		batchSize: batchSize,
		clean:     clean,
		log:       logger.ComponentLogger("graphexport"),
	}
}

// Close releases the driver.
func (e *Exporter) Close(ctx context.Context) error {
	if e.driver == nil {
		return nil
	}
	return e.driver.Close(ctx)
}

// Export writes g. Nodes are merged on their names so repeated exports
// update in place; with clean set, previously exported data is removed first.
func (e *Exporter) Export(ctx context.Context, g *graph.Graph) (Summary, error) {
	start := time.Now()
	var sum Summary

	exec := func(cypher string, params map[string]any) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		sum.Statements++
		return e.run(ctx, cypher, params)
	}

	if e.clean {
		e.log.Infow("Cleaning existing graph data")
		for _, q := range cleanup {
			if err := exec(q, nil); err != nil {
				return sum, errors.Wrap(err, "failed to clean graph")
			}
		}
	}
	for _, q := range indexes {
		if err := exec(q, nil); err != nil {
			return sum, errors.Wrap(err, "failed to create index")
		}
	}

	pkgs := packageRows(g)
	sum.Packages = len(pkgs)
	if err := e.batches(exec, packageQuery, pkgs); err != nil {
		return sum, errors.Wrap(err, "failed to load packages")
	}

	classes := classRows(g)
	sum.Classes = len(classes)
	if err := e.batches(exec, classQuery, classes); err != nil {
		return sum, errors.Wrap(err, "failed to load classes")
	}

	extends, implements, uses := edgeRows(g)
	sum.Extends, sum.Implements, sum.Uses = len(extends), len(implements), len(uses)
	for _, step := range []struct {
		query string
		rows  []map[string]any
		what  string
	}{
		{extendsQuery, extends, "EXTENDS"},
		{implementsQuery, implements, "IMPLEMENTS"},
		{usesQuery, uses, "USES"},
	} {
		if err := e.batches(exec, step.query, step.rows); err != nil {
			return sum, errors.Wrapf(err, "failed to load %s edges", step.what)
		}
	}

	sum.Duration = time.Since(start)
	e.log.Infow("Graph exported",
		"packages", sum.Packages,
		"classes", sum.Classes,
		"edges", sum.Extends+sum.Implements+sum.Uses,
		logger.FieldDurationMS, sum.Duration.Milliseconds())
	return sum, nil
}

func (e *Exporter) batches(exec func(string, map[string]any) error, query string, rows []map[string]any) error {
	for start := 0; start < len(rows); start += e.batchSize {
		end := min(start+e.batchSize, len(rows))
		e.log.Debugw("Loading batch", logger.FieldCount, end-start)
		if err := exec(query, map[string]any{"batch": rows[start:end]}); err != nil {
			return err
		}
	}
	return nil
}

func packageRows(g *graph.Graph) []map[string]any {
	counts := map[string]int{}
	for _, n := range g.Nodes() {
		counts[n.Package()]++
	}
	names := make([]string, 0, len(counts))
	for p := range counts {
		names = append(names, p)
	}
	sort.Strings(names)

	rows := make([]map[string]any, 0, len(names))
	for _, p := range names {
		group := p
		if grp, ok := g.Packages().Group(p); ok {
			group = grp.Primary
		}
		rows = append(rows, map[string]any{"name": p, "classes": counts[p], "group": group})
	}
	return rows
}

func classRows(g *graph.Graph) []map[string]any {
	rows := make([]map[string]any, 0, len(g.Nodes()))
	for _, n := range g.Nodes() {
		rows = append(rows, map[string]any{
			"name":    n.Name(),
			"simple":  n.Class.SimpleName(),
			"pkg":     n.Package(),
			"kind":    n.Class.Kind.String(),
			"level":   n.Level,
			"invalid": n.Invalid,
			"methods": len(n.Class.Methods),
			"fields":  len(n.Class.Fields),
			"origin":  n.Class.Origin,
		})
	}
	return rows
}

func edgeRows(g *graph.Graph) (extends, implements, uses []map[string]any) {
	for _, e := range g.Edges() {
		row := map[string]any{"from": e.From, "to": e.To}
		switch e.Kind {
		case graph.Extends:
			extends = append(extends, row)
		case graph.Implements:
			implements = append(implements, row)
		default:
			row["via"] = strings.ToLower(strings.TrimPrefix(string(e.Kind), "USES_"))
			uses = append(uses, row)
		}
	}
	return extends, implements, uses
}
