package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sowgen",
	Short: "Scope-of-work generation and timeline orchestration",
	Long: `sowgen turns a homeowner's renovation answers into a structured
scope of work: a work breakdown across specialist trades, a cost estimate
with material responsibilities, and a critical-path project schedule.

Generation runs as an asynchronous job. Start one with 'sowgen generate',
poll it with 'sowgen status', and refine the result with 'sowgen review'
and 'sowgen apply'.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
