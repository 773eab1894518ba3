package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "taskforge",
	Short: "Multi-agent request router and code pipeline",
	Long: `Taskforge routes natural-language requests to specialist agents:
a planner that extracts requirements and architecture, a code generator,
a syntax checker, an automatic patcher, and a key-value memory.

With no arguments, launches an interactive prompt where you can type
requests and inspect agent status.

Core capabilities:
- Classifies free-text requests into typed tasks
- Runs a planner, codegen, checker, patcher pipeline per task
- Persists artifacts under a per-task output directory
- Optionally packages generated Python into an executable
- Serves the same pipeline over HTTP and from batch input files`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runREPL()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(versionCmd)
}
