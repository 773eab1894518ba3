// Package orchestrator coordinates the agent pipeline for one task:
// planning pre-step, code generation, syntax check, patching and the
// artifact tree on disk.
package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DebugLogger provides debug logging for pipeline operations. It
// wraps file-based logging with thread-safe access.
type DebugLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewDebugLogger creates a logger writing to the specified path,
// creating parent directories as needed. An empty path returns a
// no-op logger.
func NewDebugLogger(logPath string) (*DebugLogger, error) {
	if logPath == "" {
		return &DebugLogger{}, nil
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	logger := &DebugLogger{file: f}
	logger.Logf("=== Pipeline debug log started at %s ===", time.Now().Format(time.RFC3339))
	return logger, nil
}

// NewDebugLoggerForOutput creates a debug logger under the output
// root's global/logs directory. Returns a no-op logger on error.
func NewDebugLoggerForOutput(outputRoot string) *DebugLogger {
	logger, err := NewDebugLogger(filepath.Join(outputRoot, "global", "logs", "pipeline-debug.log"))
	if err != nil {
		return &DebugLogger{}
	}
	return logger
}

// NopLogger returns a no-op logger for testing or when logging is
// disabled.
func NopLogger() *DebugLogger {
	return &DebugLogger{}
}

// Logf writes a timestamped message to the debug log. Safe to call
// on a nil or no-op logger.
func (l *DebugLogger) Logf(format string, args ...any) {
	if l == nil || l.file == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(l.file, "[%s] %s\n", time.Now().Format("15:04:05.000"), msg)
	l.file.Sync()
}

// Close closes the log file. Safe to call on a nil or no-op logger.
func (l *DebugLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
