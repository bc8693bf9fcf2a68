package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var descendantsCmd = &cobra.Command{
	Use:   "descendants <class>",
	Short: "Print the descendants computed by the last analyse run for a class",
	Args:  cobra.ExactArgs(1),
	RunE:  runDescendants,
}

func runDescendants(cmd *cobra.Command, args []string) error {
	e, err := buildEnv(cmd, os.Stderr)
	if err != nil {
		return err
	}
	if err := e.mainDB.Load(); err != nil {
		return err
	}

	className := args[0]
	meta, err := e.analyser.Cache.LoadMeta(className)
	if err != nil {
		return err
	}
	if meta == nil {
		return fmt.Errorf("no meta recorded for %s", className)
	}
	for _, d := range meta.Descendants {
		fmt.Fprintln(cmd.OutOrStdout(), d)
	}
	return nil
}
