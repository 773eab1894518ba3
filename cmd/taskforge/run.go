package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	runExe      bool
	runJSONOut  bool
	runAgent    string
	runTaskType string
)

var runCmd = &cobra.Command{
	Use:   "run <request...>",
	Short: "Process a single request and print the result",
	Long: `Process one natural-language request through the full pipeline.

The request is classified, routed to an agent, and executed. Artifacts
are written under the output root and the result is printed.

Examples:
  taskforge run generate a calculator
  taskforge run --exe build a prime checker app
  taskforge run --json plan a todo application`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runExe, "exe", false, "Package generated Python into an executable")
	runCmd.Flags().BoolVar(&runJSONOut, "json", false, "Print the full result as JSON")
	runCmd.Flags().StringVar(&runAgent, "agent", "", "Force a target agent (codegen, checker, patcher, planner, memory)")
	runCmd.Flags().StringVar(&runTaskType, "type", "", "Force a task type instead of classifying the request")
}

func runRun(cmd *cobra.Command, args []string) error {
	a, err := buildApp(appOptions{forceExe: runExe})
	if err != nil {
		return err
	}
	defer a.Close()

	request := strings.Join(args, " ")
	ctx := context.Background()

	res := processForcedOrPlain(ctx, a, request)
	a.recordManifest(request, res)

	if runJSONOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	printResult(res)
	if !res.Success {
		return fmt.Errorf("request failed")
	}
	return nil
}
