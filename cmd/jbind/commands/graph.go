package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/jbind/display"
	"github.com/teranos/jbind/graph"
	"github.com/teranos/jbind/graphexport"
	"github.com/teranos/jbind/output"
	"github.com/teranos/jbind/pipeline"
)

// GraphCmd groups the type graph commands
var GraphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Inspect or export the type graph",
	Long: `Build the type graph from the inputs without generating code.

Subcommands:
  stats    - Class, package and edge counts; package cycles
  snapshot - The graph as JSON (nodes and links)
  export   - Load the graph into Neo4j`,
}

var (
	graphStatsJSON bool
	exportClean    bool
	exportBatch    int
)

var graphStatsCmd = &cobra.Command{
	Use:   "stats [inputs...]",
	Short: "Show type graph statistics",
	RunE:  runGraphStats,
}

var graphSnapshotCmd = &cobra.Command{
	Use:   "snapshot [inputs...]",
	Short: "Print the type graph as JSON",
	RunE:  runGraphSnapshot,
}

var graphExportCmd = &cobra.Command{
	Use:   "export [inputs...]",
	Short: "Export the type graph to Neo4j",
	Long: `Load classes, packages and their relationships into Neo4j.

Nodes: JavaPackage, JavaClass
Relationships: IN_PACKAGE, EXTENDS, IMPLEMENTS, USES {via: param|return|field}

The connection comes from graph.neo4j; the password may be given as
NEO4J_PASSWORD in the environment or the .env file.

Examples:
  jbind graph export                   # Merge into the configured database
  jbind graph export --clean           # Replace previously exported data`,
	RunE: runGraphExport,
}

func init() {
	graphStatsCmd.Flags().BoolVarP(&graphStatsJSON, "json", "j", false, "Output as JSON")
	graphExportCmd.Flags().BoolVar(&exportClean, "clean", false, "Delete previously exported nodes first (overrides graph.neo4j.clean)")
	graphExportCmd.Flags().IntVar(&exportBatch, "batch-size", 0, "Rows per statement (overrides graph.neo4j.batch_size)")

	GraphCmd.AddCommand(graphStatsCmd)
	GraphCmd.AddCommand(graphSnapshotCmd)
	GraphCmd.AddCommand(graphExportCmd)
}

func buildGraph(cmd *cobra.Command, args []string) (*graph.Graph, *pipeline.Report, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	d, err := pipeline.New(cfg, pipeline.WithSink(output.NewMemory()), pipeline.WithoutManifest())
	if err != nil {
		return nil, nil, err
	}
	defer d.Close()

	ctx, cancel := signalContext(cmd)
	defer cancel()
	return d.Graph(ctx, args)
}

func runGraphStats(cmd *cobra.Command, args []string) error {
	g, report, err := buildGraph(cmd, args)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(out, g.Stats())
	}
	return printGraphStats(out, g, report)
}

func printGraphStats(w io.Writer, g *graph.Graph, report *pipeline.Report) error {
	s := g.Stats()
	data := pterm.TableData{
		{"Graph", "Count"},
		{"classes", fmt.Sprint(s.Classes)},
		{"interfaces", fmt.Sprint(s.Interfaces)},
		{"invalid", fmt.Sprint(s.Invalid)},
		{"packages", fmt.Sprint(s.Packages)},
		{"package groups", fmt.Sprint(s.PackageGroups)},
		{"max level", fmt.Sprint(s.MaxLevel)},
		{"unemittable members", fmt.Sprint(s.Skipped)},
		{"edges", fmt.Sprint(s.Edges)},
	}
	if report != nil && report.Filtered > 0 {
		data = append(data, []string{"filtered out", fmt.Sprint(report.Filtered)})
	}
	if err := display.RenderTable(w, data); err != nil {
		return err
	}

	edges := map[string]int{}
	for _, e := range g.Edges() {
		edges[string(e.Kind)]++
	}
	kinds := make([]string, 0, len(edges))
	for k := range edges {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	edgeData := pterm.TableData{{"Edge", "Count"}}
	for _, k := range kinds {
		edgeData = append(edgeData, []string{k, fmt.Sprint(edges[k])})
	}
	if err := display.RenderTable(w, edgeData); err != nil {
		return err
	}

	// package groups with more than one member are import cycles folded
	// into one Go package
	var cycles pterm.TableData
	for _, grp := range g.Packages().Groups() {
		if len(grp.Members) > 1 {
			cycles = append(cycles, []string{grp.Primary, strings.Join(grp.Members, ", ")})
		}
	}
	if len(cycles) > 0 {
		fmt.Fprintln(w, pterm.Warning.Sprintf("%d package cycles merged into one Go package each", len(cycles)))
		return display.RenderTable(w, append(pterm.TableData{{"Group", "Packages"}}, cycles...))
	}
	return nil
}

func runGraphSnapshot(cmd *cobra.Command, args []string) error {
	g, _, err := buildGraph(cmd, args)
	if err != nil {
		return err
	}
	return display.OutputJSON(cmd.OutOrStdout(), g.Snapshot(time.Now().UTC()))
}

func runGraphExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	neo := cfg.Graph.Neo4j
	if cmd.Flags().Changed("clean") {
		neo.Clean = exportClean
	}
	if exportBatch > 0 {
		neo.BatchSize = exportBatch
	}

	g, _, err := buildGraph(cmd, args)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	exporter, err := graphexport.Open(ctx, neo)
	if err != nil {
		return err
	}
	defer exporter.Close(ctx)

	sum, err := exporter.Export(ctx, g)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), pterm.Success.Sprintf(
		"Exported %d packages, %d classes and %d relationships to %s in %s",
		sum.Packages, sum.Classes, sum.Extends+sum.Implements+sum.Uses, neo.URI,
		sum.Duration.Round(time.Millisecond)))
	return nil
}
