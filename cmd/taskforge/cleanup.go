package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"taskforge/internal/output"
)

var (
	cleanupDays        int
	cleanupMaxDiskMB   int
	cleanupHistoryDays int
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Apply retention to task artifacts and history",
	Long: `Delete old task directories and prune the history database.

Task directories containing a .keep file are never removed. The disk
cap deletes oldest directories first until total size fits.

Examples:
  taskforge cleanup --days 30              # Drop task dirs older than 30 days
  taskforge cleanup --max-disk-mb 512      # Cap total artifact size
  taskforge cleanup --history-days 90      # Prune history entries`,
	RunE: runCleanup,
}

func init() {
	cleanupCmd.Flags().IntVar(&cleanupDays, "days", 0, "Delete task directories older than this many days")
	cleanupCmd.Flags().IntVar(&cleanupMaxDiskMB, "max-disk-mb", 0, "Cap total task directory size in MB")
	cleanupCmd.Flags().IntVar(&cleanupHistoryDays, "history-days", 0, "Delete history entries older than this many days")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	a, err := buildApp(appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	days := cleanupDays
	if days == 0 {
		days = a.cfg.Output.RetentionDays
	}
	maxDisk := cleanupMaxDiskMB
	if maxDisk == 0 {
		maxDisk = a.cfg.Output.MaxDiskMB
	}

	if days == 0 && maxDisk == 0 && cleanupHistoryDays == 0 {
		fmt.Println("Nothing to do: no retention limits configured or given.")
		return nil
	}

	if days > 0 || maxDisk > 0 {
		summary, err := a.manager.ApplyRetention(days, maxDisk)
		if err != nil {
			return fmt.Errorf("apply retention: %w", err)
		}
		fmt.Println(formatRetentionSummary(summary))
	}

	if cleanupHistoryDays > 0 {
		if a.db == nil {
			fmt.Println("History database unavailable; skipping history prune.")
			return nil
		}
		cutoff := time.Now().AddDate(0, 0, -cleanupHistoryDays)
		pruned, err := a.db.Purge(cutoff)
		if err != nil {
			return fmt.Errorf("purge history: %w", err)
		}
		fmt.Printf("History: %d entries pruned\n", pruned)
	}
	return nil
}

func formatRetentionSummary(summary output.RetentionSummary) string {
	return fmt.Sprintf("Task directories: %d deleted, %d kept (%.1f MB on disk)",
		len(summary.Deleted), len(summary.Kept), float64(summary.DiskBytes)/(1024*1024))
}
