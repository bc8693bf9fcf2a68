package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/classanalyser/classanalyser/internal/compile"
	"github.com/classanalyser/classanalyser/internal/difftext"
	"github.com/classanalyser/classanalyser/internal/events"
)

var explainCmd = &cobra.Command{
	Use:   "explain <class>",
	Short: "Re-analyse a class and diff its ClassInfo before and after the recompile, if one is needed",
	Args:  cobra.ExactArgs(1),
	RunE:  runExplain,
}

func runExplain(cmd *cobra.Command, args []string) error {
	e, err := buildEnv(cmd, os.Stderr)
	if err != nil {
		return err
	}

	className := args[0]
	var captured *compile.CompiledClassEvent
	e.bus.On(events.CompiledClass, func(payload any) {
		evt := payload.(compile.CompiledClassEvent)
		if evt.ClassFile != nil && evt.ClassFile.GetClassName() == className {
			captured = &evt
		}
	})

	if err := e.analyser.Open(cmd.Context()); err != nil {
		return err
	}
	if _, err := e.analyser.AnalyseClasses(cmd.Context(), []string{className}, e.forceScan); err != nil {
		return err
	}

	if captured == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "%s is up to date, nothing recompiled\n", className)
		return nil
	}

	out, err := difftext.Unified("before", "after", captured.Old, captured.New)
	if err != nil {
		return err
	}
	if out == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "%s recompiled but ClassInfo is unchanged\n", className)
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}
