package commands

import (
	"fmt"
	"net/url"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/jbind/config"
	"github.com/teranos/jbind/errors"
)

// ConfigCmd groups configuration commands
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Create or show jbind configuration",
	Long: `Manage jbind configuration.

Configuration is read from jbind.toml (or jbind.yaml) in the working
directory or a parent, then overridden by JBIND_* environment variables,
e.g. JBIND_OUTPUT_DIR=gen or JBIND_RUN_STRICT=true.`,
}

var (
	initPath   string
	initModule string
	initForce  bool
	showFormat string
)

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with defaults",
	Long: `Write a configuration file holding every option at its default.

Examples:
  jbind config init --module example.com/app/gen
  jbind config init --path jbind.yaml          # YAML instead of TOML`,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults, file and environment are merged.
Secrets are masked.`,
	RunE: runConfigShow,
}

func init() {
	configInitCmd.Flags().StringVar(&initPath, "path", config.FileNames[0], "File to write (.toml, .yaml or .yml)")
	configInitCmd.Flags().StringVar(&initModule, "module", "", "Import path of the output directory (naming.module)")
	configInitCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing file (a backup is kept)")
	configShowCmd.Flags().StringVar(&showFormat, "format", "toml", "Output format: toml or yaml")

	ConfigCmd.AddCommand(configInitCmd)
	ConfigCmd.AddCommand(configShowCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(initPath); err == nil && !initForce {
		return errors.WithHint(
			errors.Newf("%s already exists", initPath),
			"pass --force to overwrite it; the old file is kept as a backup",
		)
	}
	cfg := config.Default()
	cfg.Naming.Module = initModule
	if err := config.Save(cfg, initPath); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), pterm.Success.Sprintf("Wrote %s", initPath))
	if initModule == "" {
		fmt.Fprintln(cmd.OutOrStdout(), pterm.Warning.Sprint("naming.module is empty; set it before generating"))
	}
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	masked := *cfg
	masked.Output.S3.SecretKey = mask(cfg.Output.S3.SecretKey)
	masked.Graph.Neo4j.Password = mask(cfg.Graph.Neo4j.Password)
	masked.Manifest.DSN = maskDSN(cfg.Manifest.DSN)

	out := cmd.OutOrStdout()
	if cfg.Path != "" {
		fmt.Fprintf(out, "# from %s\n", cfg.Path)
	}
	if showFormat != "toml" && showFormat != "yaml" {
		return errors.Newf("unknown format %q (toml, yaml)", showFormat)
	}
	data, err := config.Marshal(&masked, "jbind."+showFormat)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}

// maskDSN hides the password of a postgres URL.
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	return u.Redacted()
}
