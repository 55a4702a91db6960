package commands

import (
	"context"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/teranos/jbind/config"
	"github.com/teranos/jbind/errors"
	"github.com/teranos/jbind/logger"
)

var (
	configPath string
	envFile    string
	logJSON    bool

	// verbosity is the -v count of the running command.
	verbosity int
)

// RootCmd is the jbind command
var RootCmd = &cobra.Command{
	Use:   "jbind",
	Short: "jbind - Go bindings for JVM class libraries",
	Long: `jbind - Generate statically typed Go bindings from JVM class descriptors.

jbind reads reflected class metadata (descriptor JSON/YAML, jar and class
files, Java sources) and writes Go packages that call into the JVM through
the jglue runtime contract.

Available commands:
  generate - Generate bindings
  check    - Fail if generated bindings are out of date
  verify   - Type-check generated packages
  graph    - Inspect or export the type graph
  watch    - Regenerate when inputs or configuration change
  config   - Create or show configuration
  version  - Show version information

Examples:
  jbind config init                    # Write jbind.toml with defaults
  jbind generate android.jar           # Generate into output.dir
  jbind generate --audit               # Also list erased generic types
  jbind check                          # CI: are bindings up to date?
  jbind graph stats                    # Graph statistics`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadEnvFile(envFile); err != nil {
			return err
		}
		verbosity, _ = cmd.Flags().GetCount("verbose")
		if err := logger.Initialize(logJSON, verbosity); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		logger.Logger.Debugw("Logger initialized", "verbosity", logger.LevelName(verbosity))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	RootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Configuration file (default: search for jbind.toml upward)")
	RootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file loaded before configuration")
	RootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Log JSON to stderr and print JSON results")

	RootCmd.AddCommand(GenerateCmd)
	RootCmd.AddCommand(CheckCmd)
	RootCmd.AddCommand(VerifyCmd)
	RootCmd.AddCommand(GraphCmd)
	RootCmd.AddCommand(WatchCmd)
	RootCmd.AddCommand(ConfigCmd)
	RootCmd.AddCommand(VersionCmd)
}

// loadEnvFile loads credentials such as NEO4J_PASSWORD from a dotenv file.
// Variables already set win. A missing file is fine.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errors.WrapConfiguration(err, "load "+path)
	}
	return nil
}

// loadConfig loads the configuration --config names or the nearest one.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Logger.Debugw("Configuration loaded", logger.FieldPath, cfg.Path)
	return cfg, nil
}

// signalContext ends on the first interrupt.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt)
}
