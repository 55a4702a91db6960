package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/jbind/display"
	"github.com/teranos/jbind/errors"
	"github.com/teranos/jbind/output"
	"github.com/teranos/jbind/pipeline"
)

// CheckCmd checks if generated bindings are up to date
var CheckCmd = &cobra.Command{
	Use:   "check [inputs...]",
	Short: "Check if generated bindings are up to date",
	Long: `Check if the bindings in the output match what generate would write now.

Generation runs in memory; nothing is written and no run is recorded.
Files carrying the jbind header that would no longer be generated are
reported as stale. Hand-written files are ignored.

Exit codes:
  0 - Bindings are up to date
  1 - Bindings are out of date, or the check failed

Examples:
  jbind check                      # Compare with output.dir
  jbind check --json               # Machine-readable list of changes`,
	RunE: runCheck,
}

var checkJSON bool

func init() {
	CheckCmd.Flags().BoolVarP(&checkJSON, "json", "j", false, "Print changes as JSON")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	target, err := pipeline.SinkFor(cfg.Output)
	if err != nil {
		return err
	}

	d, err := pipeline.New(cfg, pipeline.WithSink(output.NewMemory()), pipeline.WithoutManifest())
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	report, err := d.Run(ctx, args)
	if err != nil {
		return errors.Wrap(err, "failed to generate bindings for comparison")
	}
	changes, err := pipeline.Diff(ctx, report.Units, target)
	if err != nil {
		return errors.Wrapf(err, "failed to compare with %s", target)
	}

	out := cmd.OutOrStdout()
	if display.ShouldOutputJSON(cmd) {
		if err := display.OutputJSON(out, changes); err != nil {
			return err
		}
	} else if len(changes) == 0 {
		fmt.Fprintln(out, pterm.Success.Sprintf("Bindings in %s are up to date (%d files)", target, len(report.Units)))
	} else {
		fmt.Fprintln(out, pterm.Error.Sprintf("Bindings in %s are out of date", target))
		for _, c := range changes {
			fmt.Fprintf(out, "  - %s (%s)\n", c.Path, c.Kind)
		}
	}

	if len(changes) > 0 {
		return errors.WithHint(
			errors.Newf("%d generated files are out of date", len(changes)),
			"run 'jbind generate' to update",
		)
	}
	return nil
}
