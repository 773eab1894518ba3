package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"taskforge/internal/state"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show processing history and manifest summary",
	Long: `Display recent task history from the durable store along with
the output manifest summary.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 10, "Number of history entries to show")
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := buildApp(appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	manifest := a.manager.LoadManifest()
	fmt.Printf("Output root: %s\n", a.manager.Root())
	fmt.Printf("Tasks in manifest: %d\n", manifest.TotalTasks)

	if a.db == nil {
		fmt.Println("History database unavailable.")
		return nil
	}
	return printHistory(a.db, statusLimit)
}

func printHistory(db *state.DB, limit int) error {
	total, err := db.Count()
	if err != nil {
		return fmt.Errorf("count history: %w", err)
	}
	entries, err := db.Recent(limit)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	fmt.Printf("History: %d task(s) recorded (%s)\n", total, filepath.Base(db.Path()))
	if len(entries) == 0 {
		return nil
	}
	for _, entry := range entries {
		when := time.Unix(int64(entry.Timestamp), 0).Format("2006-01-02 15:04:05")
		outcome := "ok"
		if !entry.Success {
			outcome = "failed"
		}
		fmt.Printf("  %s  %-12s %-10s %-8s %.2fs\n",
			when, entry.TaskType, entry.AgentUsed, outcome, entry.ProcessingTime)
	}
	return nil
}
