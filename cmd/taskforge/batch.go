package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"taskforge/internal/batch"
)

var (
	batchDir     string
	batchWorkers int
	batchWatch   bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Process request files from an input directory",
	Long: `Process request files laid out under a batch root:

  <root>/input/plain/*.txt   raw request text, one request per file
  <root>/input/json/*.json   {"request": "..."} or a full task object
  <root>/output/final/       <name>.result.json or <name>.error.json

One sweep by default; --watch keeps running and picks up new files as
they appear.`,
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVar(&batchDir, "dir", "", "Batch root directory (overrides config)")
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 0, "Concurrent file workers (overrides config)")
	batchCmd.Flags().BoolVar(&batchWatch, "watch", false, "Keep watching the input directories")
}

func runBatch(cmd *cobra.Command, args []string) error {
	a, err := buildApp(appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	root := batchDir
	if root == "" {
		root = a.cfg.Batch.Root
	}
	workers := batchWorkers
	if workers <= 0 {
		workers = a.cfg.Batch.Workers
	}

	runner := batch.NewRunner(a.supervisor, root, workers)

	if batchWatch {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		fmt.Printf("Watching %s (Ctrl+C to stop)\n", root)
		return runner.Watch(ctx)
	}

	summary, err := runner.RunOnce(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("Processed %d file(s): %d plain, %d json\n",
		summary.Total, summary.Plain, summary.JSON)
	return nil
}
