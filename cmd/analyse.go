package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/classanalyser/classanalyser/internal/compile"
	"github.com/classanalyser/classanalyser/internal/events"
)

var (
	compilingColor = color.New(color.FgCyan)
	compiledColor  = color.New(color.FgGreen)
)

var analyseCmd = &cobra.Command{
	Use:   "analyse <class>...",
	Short: "Run the dependency closure, merge, and descendant fixup once",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAnalyse,
}

func runAnalyse(cmd *cobra.Command, args []string) error {
	e, err := buildEnv(cmd, os.Stderr)
	if err != nil {
		return err
	}

	e.bus.On(events.CompilingClass, func(payload any) {
		evt := payload.(compile.CompilingClassEvent)
		compilingColor.Fprintf(os.Stderr, "compiling %s\n", evt.ClassFile.GetClassName())
	})
	e.bus.On(events.CompiledClass, func(payload any) {
		evt := payload.(compile.CompiledClassEvent)
		compiledColor.Fprintf(os.Stderr, "compiled  %s\n", evt.ClassFile.GetClassName())
	})

	if err := e.analyser.Open(cmd.Context()); err != nil {
		return err
	}
	result, err := e.analyser.AnalyseClasses(cmd.Context(), args, e.forceScan)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "visited %d classes\n", len(result.Order))
	return nil
}
