package commands

import (
	"context"
	"fmt"
	"sort"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/tools/go/packages"

	"github.com/teranos/jbind/errors"
	"github.com/teranos/jbind/logger"
)

// VerifyCmd type-checks generated packages
var VerifyCmd = &cobra.Command{
	Use:   "verify [dir]",
	Short: "Type-check generated packages",
	Long: `Load every Go package below the output directory and report compile errors.

The directory must belong to a Go module that can resolve the jglue
runtime. Without an argument output.dir is used.

Examples:
  jbind verify                 # Check output.dir
  jbind verify ./gen/java      # Check one subtree`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	dir := ""
	if len(args) == 1 {
		dir = args[0]
	} else {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Output.Sink != "disk" {
			return errors.NewConfigurationError("verify needs the disk sink, output.sink is %q", cfg.Output.Sink)
		}
		dir = cfg.Output.Dir
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	spinner, _ := pterm.DefaultSpinner.WithWriter(cmd.ErrOrStderr()).Start("Type-checking " + dir)
	result, err := verifyDir(ctx, dir)
	if spinner != nil {
		_ = spinner.Stop()
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(result.Errors) == 0 {
		fmt.Fprintln(out, pterm.Success.Sprintf("%d packages type-check", result.Packages))
		return nil
	}
	for _, e := range result.Errors {
		fmt.Fprintln(out, e)
	}
	return errors.Newf("%d errors in %d packages", len(result.Errors), result.Packages)
}

// verifyResult lists type errors found below a directory.
type verifyResult struct {
	Packages int
	Errors   []string
}

// verifyDir loads ./... under dir with full type information.
func verifyDir(ctx context.Context, dir string) (*verifyResult, error) {
	cfg := &packages.Config{
		Context: ctx,
		Dir:     dir,
		Mode: packages.NeedName | packages.NeedFiles | packages.NeedImports |
			packages.NeedDeps | packages.NeedTypes | packages.NeedSyntax | packages.NeedTypesInfo,
	}
	pkgs, err := packages.Load(cfg, "./...")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load packages in %s", dir)
	}

	result := &verifyResult{Packages: len(pkgs)}
	seen := map[string]bool{}
	packages.Visit(pkgs, nil, func(p *packages.Package) {
		for _, e := range p.Errors {
			msg := e.Error()
			if !seen[msg] {
				seen[msg] = true
				result.Errors = append(result.Errors, msg)
			}
		}
	})
	sort.Strings(result.Errors)
	logger.Logger.Debugw("Packages verified",
		logger.FieldPath, dir,
		logger.FieldCount, result.Packages,
		"errors", len(result.Errors))
	return result, nil
}
