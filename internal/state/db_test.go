package state

import (
	"path/filepath"
	"testing"
	"time"

	"taskforge/pkg/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

func entryAt(ts float64, taskID string) models.HistoryEntry {
	return models.HistoryEntry{
		Timestamp:      ts,
		TaskID:         taskID,
		TaskType:       "code_generation",
		AgentUsed:      "codegen",
		Success:        true,
		ProcessingTime: 0.25,
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestAppendAndRecent(t *testing.T) {
	db := openTestDB(t)
	for i, id := range []string{"task_1", "task_2", "task_3"} {
		if err := db.Append(entryAt(float64(1000+i), id)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	entries, err := db.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].TaskID != "task_3" || entries[1].TaskID != "task_2" {
		t.Errorf("order = %s, %s; want newest first", entries[0].TaskID, entries[1].TaskID)
	}
	if !entries[0].Success || entries[0].AgentUsed != "codegen" {
		t.Errorf("entry fields not preserved: %+v", entries[0])
	}
}

func TestCount(t *testing.T) {
	db := openTestDB(t)
	if err := db.Append(entryAt(1, "task_a")); err != nil {
		t.Fatal(err)
	}
	count, err := db.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestPurge(t *testing.T) {
	db := openTestDB(t)
	cutoff := time.Now()
	old := float64(cutoff.Add(-48*time.Hour).UnixNano()) / 1e9
	recent := float64(cutoff.Add(time.Hour).UnixNano()) / 1e9

	if err := db.Append(entryAt(old, "task_old")); err != nil {
		t.Fatal(err)
	}
	if err := db.Append(entryAt(recent, "task_new")); err != nil {
		t.Fatal(err)
	}

	deleted, err := db.Purge(cutoff)
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
	entries, err := db.Recent(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].TaskID != "task_new" {
		t.Errorf("surviving entries = %+v", entries)
	}
}
