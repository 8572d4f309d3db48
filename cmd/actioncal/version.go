package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "actioncal %s\n", Version)
			fmt.Fprintf(out, "Build Time: %s\n", BuildTime)
			fmt.Fprintf(out, "Git Commit: %s\n", GitCommit)
			fmt.Fprintf(out, "Go Version: %s\n", runtime.Version())
		},
	}
}
