// Command classanalyser incrementally scans, compiles, and merges class
// metadata for a class-based scripting-language front end.
package main

import (
	"fmt"
	"os"

	"github.com/classanalyser/classanalyser/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
