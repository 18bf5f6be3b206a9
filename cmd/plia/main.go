package main

import (
	"os"

	"github.com/juanma-plia/PLIA-SHARED/cmd"
	"github.com/juanma-plia/PLIA-SHARED/cmd/run"
)

func main() {
	rootCmd := cmd.NewRootCommand()

	runCmd := run.NewRunCommand()
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
