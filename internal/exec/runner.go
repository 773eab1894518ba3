package exec

import (
	"context"
	"os"
	osexec "os/exec"
	"path/filepath"
)

// Runner implements CommandRunner with os/exec.
type Runner struct{}

// NewRunner creates a Runner.
func NewRunner() *Runner {
	return &Runner{}
}

// Run executes a command and returns combined stdout/stderr output.
func (r *Runner) Run(ctx context.Context, workDir string, name string, args ...string) ([]byte, error) {
	cmd := osexec.CommandContext(ctx, name, args...)
	if workDir != "" {
		cmd.Dir = workDir
	}
	return cmd.CombinedOutput()
}

// LookPath resolves an executable on PATH.
func (r *Runner) LookPath(name string) (string, error) {
	return osexec.LookPath(name)
}

// Exists checks if a file exists at path.
func (r *Runner) Exists(_ context.Context, workDir string, path string) bool {
	if workDir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(workDir, path)
	}
	_, err := os.Stat(path)
	return err == nil
}

var _ CommandRunner = (*Runner)(nil)
