package main

// ============================================================================
// readpulse entry point. All logic lives in internal/cli; this file only
// builds the command tree, executes it, and guards against panics.
// ============================================================================

import (
	"fmt"
	"os"

	"github.com/luyichen/readpulse/internal/cli"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "fatal error: %v\n", r)
			os.Exit(1)
		}
	}()

	if err := cli.BuildCLI().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
