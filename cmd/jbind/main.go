package main

import (
	"fmt"
	"os"

	"github.com/teranos/jbind/cmd/jbind/commands"
	"github.com/teranos/jbind/errors"
)

func main() {
	if err := commands.RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintln(os.Stderr, "Hint:", hint)
		}
		os.Exit(1)
	}
}
