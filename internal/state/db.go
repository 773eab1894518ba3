// Package state provides the SQLite-backed task history. The
// supervisor mirrors its in-memory rolling log here so history
// survives restarts.
package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"taskforge/pkg/models"
)

// DB wraps an SQLite connection with history operations.
type DB struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// Open opens the database at path, creating parent directories as
// needed. WAL mode is enabled for concurrent reads.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &DB{conn: conn, path: path}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Migrate applies all pending schema migrations.
func (db *DB) Migrate() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1History},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := db.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}
	return nil
}

const migrationV1History = `
CREATE TABLE IF NOT EXISTS history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp REAL NOT NULL,
	task_id TEXT NOT NULL,
	task_type TEXT NOT NULL,
	agent_used TEXT NOT NULL,
	success INTEGER NOT NULL DEFAULT 0,
	processing_time REAL NOT NULL DEFAULT 0.0
);

CREATE INDEX IF NOT EXISTS idx_history_timestamp ON history(timestamp);
CREATE INDEX IF NOT EXISTS idx_history_task_id ON history(task_id);
`

// Append records one history entry.
func (db *DB) Append(entry models.HistoryEntry) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(
		`INSERT INTO history (timestamp, task_id, task_type, agent_used, success, processing_time)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.Timestamp, entry.TaskID, entry.TaskType, entry.AgentUsed,
		boolToInt(entry.Success), entry.ProcessingTime,
	)
	if err != nil {
		return fmt.Errorf("append history entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (db *DB) Recent(limit int) ([]models.HistoryEntry, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.Query(
		`SELECT timestamp, task_id, task_type, agent_used, success, processing_time
		 FROM history ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []models.HistoryEntry
	for rows.Next() {
		var e models.HistoryEntry
		var success int
		if err := rows.Scan(&e.Timestamp, &e.TaskID, &e.TaskType, &e.AgentUsed, &success, &e.ProcessingTime); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		e.Success = success != 0
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

// Count returns the total number of history entries.
func (db *DB) Count() (int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var count int
	row := db.conn.QueryRow("SELECT COUNT(*) FROM history")
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return count, nil
}

// Purge removes entries older than the cutoff and returns how many
// were deleted.
func (db *DB) Purge(before time.Time) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	res, err := db.conn.Exec("DELETE FROM history WHERE timestamp < ?", float64(before.UnixNano())/1e9)
	if err != nil {
		return 0, fmt.Errorf("purge history: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge rows affected: %w", err)
	}
	return deleted, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
