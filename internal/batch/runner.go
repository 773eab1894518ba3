// Package batch processes request files from an input tree and
// writes per-file result JSON, either as a one-shot sweep or by
// watching for new files.
package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"taskforge/internal/supervisor"
	"taskforge/pkg/models"
)

// Summary counts one sweep of the input tree.
type Summary struct {
	Plain int `json:"plain"`
	JSON  int `json:"json"`
	Total int `json:"total"`
}

// Runner drives the supervisor from files on disk. Plain text files
// under input/plain and JSON request files under input/json produce
// result files under output/final.
type Runner struct {
	supervisor *supervisor.Supervisor
	root       string
	workers    int

	mu        sync.Mutex
	processed map[string]bool
}

// NewRunner builds a Runner rooted at root. workers bounds
// concurrent request processing; values below 1 mean serial.
func NewRunner(sup *supervisor.Supervisor, root string, workers int) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		supervisor: sup,
		root:       root,
		workers:    workers,
		processed:  make(map[string]bool),
	}
}

func (r *Runner) plainDir() string { return filepath.Join(r.root, "input", "plain") }
func (r *Runner) jsonDir() string  { return filepath.Join(r.root, "input", "json") }
func (r *Runner) finalDir() string { return filepath.Join(r.root, "output", "final") }

func (r *Runner) ensureDirs() error {
	for _, d := range []string{r.plainDir(), r.jsonDir(), r.finalDir()} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("create batch directory: %w", err)
		}
	}
	return nil
}

// RunOnce sweeps the input tree once. Per-file failures become
// .error.json outputs, not errors.
func (r *Runner) RunOnce(ctx context.Context) (Summary, error) {
	if err := r.ensureDirs(); err != nil {
		return Summary{}, err
	}

	plain, err := listFiles(r.plainDir(), ".txt")
	if err != nil {
		return Summary{}, err
	}
	jsonFiles, err := listFiles(r.jsonDir(), ".json")
	if err != nil {
		return Summary{}, err
	}

	var summary Summary
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for _, path := range plain {
		g.Go(func() error {
			if r.processPlain(gctx, path) {
				mu.Lock()
				summary.Plain++
				mu.Unlock()
			}
			return nil
		})
	}
	for _, path := range jsonFiles {
		g.Go(func() error {
			if r.processJSON(gctx, path) {
				mu.Lock()
				summary.JSON++
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}
	summary.Total = summary.Plain + summary.JSON
	return summary, nil
}

// Watch processes existing files, then reacts to new ones until the
// context is canceled.
func (r *Runner) Watch(ctx context.Context) error {
	if err := r.ensureDirs(); err != nil {
		return err
	}
	if _, err := r.RunOnce(ctx); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	for _, d := range []string{r.plainDir(), r.jsonDir()} {
		if err := watcher.Add(d); err != nil {
			return fmt.Errorf("watch %s: %w", d, err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			switch strings.ToLower(filepath.Ext(event.Name)) {
			case ".txt":
				r.processPlain(ctx, event.Name)
			case ".json":
				r.processJSON(ctx, event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher: %w", err)
		}
	}
}

// markProcessed reports whether the file was already handled and
// records it otherwise. Watch mode can see the same path twice
// (create then write).
func (r *Runner) markProcessed(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.processed[path] {
		return false
	}
	r.processed[path] = true
	return true
}

func (r *Runner) processPlain(ctx context.Context, path string) bool {
	if !r.markProcessed(path) {
		return false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		r.writeError(path, err)
		return false
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return false
	}
	result := r.supervisor.ProcessRequest(ctx, prompt)
	return r.writeResult(path, result)
}

// jsonRequest is the accepted JSON input shape: either a bare
// request string or a full task.
type jsonRequest struct {
	Request string `json:"request"`
	models.Task
}

func (r *Runner) processJSON(ctx context.Context, path string) bool {
	if !r.markProcessed(path) {
		return false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		r.writeError(path, err)
		return false
	}
	var req jsonRequest
	if err := json.Unmarshal(data, &req); err != nil {
		r.writeError(path, fmt.Errorf("parse request: %w", err))
		return false
	}

	if req.Request != "" {
		result := r.supervisor.ProcessRequest(ctx, req.Request)
		return r.writeResult(path, result)
	}
	if req.Description == "" {
		r.writeError(path, fmt.Errorf("request or description is required"))
		return false
	}
	taskResult, err := r.supervisor.RouteTask(ctx, req.Task)
	if err != nil {
		r.writeError(path, err)
		return false
	}
	return r.writeResult(path, taskResult)
}

func (r *Runner) writeResult(inputPath string, result any) bool {
	out := filepath.Join(r.finalDir(), stem(inputPath)+".result.json")
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		r.writeError(inputPath, err)
		return false
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return false
	}
	return true
}

func (r *Runner) writeError(inputPath string, cause error) {
	out := filepath.Join(r.finalDir(), stem(inputPath)+".error.json")
	data, _ := json.MarshalIndent(map[string]any{
		"success": false,
		"error":   cause.Error(),
	}, "", "  ")
	os.WriteFile(out, data, 0644)
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func listFiles(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ext) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	return files, nil
}
