package display

import (
	"os"

	"github.com/spf13/cobra"
)

// ShouldOutputJSON determines if a command should output JSON: an explicit
// --json flag wins, then the global --log-json flag, then JBIND_JSON.
func ShouldOutputJSON(cmd *cobra.Command) bool {
	if cmd == nil {
		return os.Getenv("JBIND_JSON") != ""
	}

	if f := cmd.Flags().Lookup("json"); f != nil && f.Changed {
		v, _ := cmd.Flags().GetBool("json")
		return v
	}

	if globalFlag, _ := cmd.Root().PersistentFlags().GetBool("log-json"); globalFlag {
		return true
	}

	return os.Getenv("JBIND_JSON") != ""
}
