package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/jbind/config"
	"github.com/teranos/jbind/diag"
	"github.com/teranos/jbind/display"
	"github.com/teranos/jbind/logger"
	"github.com/teranos/jbind/output"
	"github.com/teranos/jbind/pipeline"
)

var (
	generateAudit  bool
	generateDryRun bool
	generateStrict bool
	generateOutput string
	generateJSON   bool
	generateLimit  int
)

// GenerateCmd represents the generate command
var GenerateCmd = &cobra.Command{
	Use:   "generate [inputs...]",
	Short: "Generate Go bindings",
	Long: `Generate Go bindings for the classes found in the inputs.

Inputs are descriptor files (.json, .jsonl, .yaml), class files, jar/zip
archives, Java sources, directories of those, or remote sources go-getter
understands. Without arguments input.paths is used.

Examples:
  jbind generate                          # Inputs from jbind.toml
  jbind generate lib/android.jar          # Explicit input
  jbind generate --dry-run -v             # Run everything but write nothing
  jbind generate --audit                  # List every erased generic type`,
	RunE: runGenerate,
}

func init() {
	GenerateCmd.Flags().BoolVar(&generateAudit, "audit", false, "Print the erasure audit")
	GenerateCmd.Flags().BoolVar(&generateDryRun, "dry-run", false, "Generate in memory without writing files or recording the run")
	GenerateCmd.Flags().BoolVar(&generateStrict, "strict", false, "Treat recoverable diagnostics as fatal (overrides run.strict)")
	GenerateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "Output directory (overrides output.dir)")
	GenerateCmd.Flags().BoolVarP(&generateJSON, "json", "j", false, "Print the report as JSON")
	GenerateCmd.Flags().IntVar(&generateLimit, "limit", 50, "Diagnostics shown in the summary (0 = all)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyGenerateFlags(cmd, cfg)

	var opts []pipeline.Option
	if generateDryRun {
		opts = append(opts, pipeline.WithSink(output.NewMemory()), pipeline.WithoutManifest())
	}
	d, err := pipeline.New(cfg, opts...)
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	report, runErr := d.Run(ctx, args)
	out := cmd.OutOrStdout()
	if display.ShouldOutputJSON(cmd) {
		if err := display.OutputJSON(out, reportJSON(report)); err != nil {
			return err
		}
		return runErr
	}
	if err := printReport(out, report, generateLimit); err != nil {
		return err
	}
	if generateAudit || logger.ShouldOutput(verbosity, logger.OutputAudit) {
		if err := printAudit(out, report); err != nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}
	fmt.Fprintln(out, pterm.Success.Sprintf("Generated %d files for %d classes in %s",
		len(report.Units), report.Emitted, report.Duration.Round(time.Millisecond)))
	return nil
}

func applyGenerateFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("strict") {
		cfg.Run.Strict = generateStrict
	}
	if generateOutput != "" {
		cfg.Output.Dir = generateOutput
		cfg.Output.Sink = "disk"
	}
}

// printReport writes the human summary of a run.
func printReport(w io.Writer, r *pipeline.Report, limit int) error {
	stats := pterm.TableData{
		{"Classes", "Count"},
		{"ingested", fmt.Sprint(r.Ingested)},
		{"filtered out", fmt.Sprint(r.Filtered)},
		{"in graph", fmt.Sprint(r.Classes)},
		{"emitted", fmt.Sprint(r.Emitted)},
		{"files", fmt.Sprint(len(r.Units))},
		{"skipped members", fmt.Sprint(r.SkippedMembers)},
		{"suppressed bridges", fmt.Sprint(r.SuppressedBridges)},
		{"erased types", fmt.Sprint(r.Erased)},
	}
	if len(r.Pruned) > 0 {
		stats = append(stats, []string{"pruned files", fmt.Sprint(len(r.Pruned))})
	}
	if err := display.RenderTable(w, stats); err != nil {
		return err
	}
	if logger.ShouldOutput(verbosity, logger.OutputTiming) && len(r.Stages) > 0 {
		timing := pterm.TableData{{"Stage", "Duration"}}
		for _, s := range r.Stages {
			timing = append(timing, []string{s.Name, s.Duration.Round(time.Microsecond).String()})
		}
		if err := display.RenderTable(w, timing); err != nil {
			return err
		}
	}
	if logger.ShouldOutput(verbosity, logger.OutputGraphStats) {
		g := r.Graph
		graphData := pterm.TableData{
			{"Graph", "Count"},
			{"interfaces", fmt.Sprint(g.Interfaces)},
			{"invalid", fmt.Sprint(g.Invalid)},
			{"package groups", fmt.Sprint(g.PackageGroups)},
			{"max level", fmt.Sprint(g.MaxLevel)},
			{"edges", fmt.Sprint(g.Edges)},
		}
		if err := display.RenderTable(w, graphData); err != nil {
			return err
		}
	}

	// erasures are listed by --audit
	var shown []diag.Diagnostic
	for _, d := range r.Diagnostics {
		if d.Kind != diag.ErasureFallback && d.Severity >= diag.Warning {
			shown = append(shown, d)
		}
	}
	if len(shown) > 0 {
		fmt.Fprintln(w, pterm.Warning.Sprintf("%d diagnostics", len(shown)))
		return display.RenderDiagnostics(w, shown, limit)
	}
	return nil
}

func printAudit(w io.Writer, r *pipeline.Report) error {
	audit := r.Audit()
	if len(audit) == 0 {
		fmt.Fprintln(w, pterm.Info.Sprint("No generic types were erased"))
		return nil
	}
	fmt.Fprintln(w, pterm.Info.Sprintf("Erasure audit: %d positions", len(audit)))
	return display.RenderDiagnostics(w, audit, 0)
}

type jsonDiagnostic struct {
	Kind     string `json:"kind"`
	Severity string `json:"severity"`
	Class    string `json:"class,omitempty"`
	Member   string `json:"member,omitempty"`
	Ref      string `json:"ref,omitempty"`
	Message  string `json:"message,omitempty"`
}

type jsonReport struct {
	RunID          string           `json:"run_id,omitempty"`
	Sink           string           `json:"sink,omitempty"`
	Files          []string         `json:"files"`
	Pruned         []string         `json:"pruned,omitempty"`
	Ingested       int              `json:"ingested"`
	Filtered       int              `json:"filtered"`
	Classes        int              `json:"classes"`
	Emitted        int              `json:"emitted"`
	SkippedMembers int              `json:"skipped_members"`
	Erased         int              `json:"erased"`
	DurationMS     int64            `json:"duration_ms"`
	Diagnostics    []jsonDiagnostic `json:"diagnostics"`
}

func reportJSON(r *pipeline.Report) jsonReport {
	out := jsonReport{
		RunID:          r.RunID,
		Sink:           r.Sink,
		Files:          r.Paths(),
		Pruned:         r.Pruned,
		Ingested:       r.Ingested,
		Filtered:       r.Filtered,
		Classes:        r.Classes,
		Emitted:        r.Emitted,
		SkippedMembers: r.SkippedMembers,
		Erased:         r.Erased,
		DurationMS:     r.Duration.Milliseconds(),
		Diagnostics:    make([]jsonDiagnostic, 0, len(r.Diagnostics)),
	}
	for _, d := range r.Diagnostics {
		out.Diagnostics = append(out.Diagnostics, jsonDiagnostic{
			Kind:     string(d.Kind),
			Severity: d.Severity.String(),
			Class:    d.Class,
			Member:   d.Member,
			Ref:      d.Ref,
			Message:  d.Message,
		})
	}
	return out
}
