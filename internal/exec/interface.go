// Package exec provides an interface for running the external
// packaging tool. The abstraction keeps command execution mockable in
// tests.
package exec

import "context"

// CommandRunner runs external commands for the pipeline.
type CommandRunner interface {
	// Run executes a command and returns combined stdout/stderr
	// output. The working directory is set to workDir if non-empty.
	Run(ctx context.Context, workDir string, name string, args ...string) (output []byte, err error)

	// LookPath reports the absolute path of an executable on PATH,
	// or an error when it is not installed.
	LookPath(name string) (string, error)

	// Exists checks if a file exists at path, relative to workDir
	// when workDir is non-empty.
	Exists(ctx context.Context, workDir string, path string) bool
}
