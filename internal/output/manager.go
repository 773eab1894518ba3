// Package output maintains the artifact tree on disk: one-time
// migration of the legacy flat layout, the manifest index and the
// retention sweep.
package output

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	manifestName    = "manifest.json"
	migrationMarker = ".migrated_v1"
	globalDirName   = "global"
)

// ManifestEntry is one task in the manifest index.
type ManifestEntry struct {
	Slug           string  `json:"slug"`
	Description    string  `json:"description"`
	CreatedAt      float64 `json:"created_at"`
	Summary        string  `json:"summary"`
	GeneratedCount int     `json:"generated_count"`
	Exe            string  `json:"exe,omitempty"`
}

// Manifest indexes every task directory under the output root.
type Manifest struct {
	Tasks      []ManifestEntry `json:"tasks"`
	TotalTasks int             `json:"total_tasks"`
}

// RetentionSummary reports one retention sweep.
type RetentionSummary struct {
	Deleted   []string `json:"deleted"`
	Kept      []string `json:"kept"`
	DiskBytes int64    `json:"disk_bytes"`
}

// Manager operates on one output root.
type Manager struct {
	root string
}

// NewManager returns a Manager for the given output root.
func NewManager(root string) *Manager {
	return &Manager{root: root}
}

// Root returns the output root path.
func (m *Manager) Root() string { return m.root }

// TasksDir returns the per-task directory root.
func (m *Manager) TasksDir() string { return filepath.Join(m.root, "tasks") }

// GlobalDir returns the directory for cross-task files, creating it
// if needed.
func (m *Manager) GlobalDir() (string, error) {
	dir := filepath.Join(m.root, globalDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create global directory: %w", err)
	}
	return dir, nil
}

// MigrateLegacyLayout moves flat final/*.json artifacts into
// tasks/<slug>/ directories. The sweep runs once; a marker file at
// the root gates later calls. Returns the slugs created.
func (m *Manager) MigrateLegacyLayout() ([]string, error) {
	marker := filepath.Join(m.root, migrationMarker)
	if _, err := os.Stat(marker); err == nil {
		return nil, nil
	}

	finalDir := filepath.Join(m.root, "final")
	entries, err := os.ReadDir(finalDir)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(m.root, 0755); err != nil {
				return nil, fmt.Errorf("create output root: %w", err)
			}
			if err := os.WriteFile(marker, []byte("no-final"), 0644); err != nil {
				return nil, fmt.Errorf("write migration marker: %w", err)
			}
			return nil, nil
		}
		return nil, fmt.Errorf("read legacy final directory: %w", err)
	}

	var created []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || name == "traceability.json" {
			continue
		}
		prefix := strings.TrimSuffix(name, ".json")
		slug := prefix
		if len(slug) > 56 {
			slug = slug[:56]
		}
		taskDir := filepath.Join(m.TasksDir(), slug)
		if _, err := os.Stat(taskDir); err == nil {
			continue
		}
		for _, sub := range []string{"generated", "planning", "build", "patches"} {
			if err := os.MkdirAll(filepath.Join(taskDir, sub), 0755); err != nil {
				return created, fmt.Errorf("create task directory %s: %w", slug, err)
			}
		}
		if err := os.Rename(filepath.Join(finalDir, name), filepath.Join(taskDir, "summary.json")); err != nil {
			continue
		}

		// Companion build outputs move alongside the summary.
		buildDir := filepath.Join(taskDir, "build")
		if exe := filepath.Join(finalDir, prefix+".exe"); fileExists(exe) {
			os.Rename(exe, filepath.Join(buildDir, slug+".exe"))
		}
		if note := filepath.Join(finalDir, prefix+"_exe_build.txt"); fileExists(note) {
			os.Rename(note, filepath.Join(buildDir, "note.txt"))
		}
		if legacyBuild := filepath.Join(finalDir, "_build_"+prefix); fileExists(legacyBuild) {
			os.Rename(legacyBuild, filepath.Join(buildDir, "_build_"+prefix))
		}
		created = append(created, slug)
	}

	if err := os.WriteFile(marker, []byte("done"), 0644); err != nil {
		return created, fmt.Errorf("write migration marker: %w", err)
	}
	return created, nil
}

// LoadManifest reads the manifest, returning an empty one when the
// file is missing or unreadable.
func (m *Manager) LoadManifest() Manifest {
	var manifest Manifest
	data, err := os.ReadFile(filepath.Join(m.root, manifestName))
	if err != nil {
		return manifest
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return Manifest{}
	}
	return manifest
}

// SaveManifest writes the manifest to the output root.
func (m *Manager) SaveManifest(manifest Manifest) error {
	if err := os.MkdirAll(m.root, 0755); err != nil {
		return fmt.Errorf("create output root: %w", err)
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(m.root, manifestName), data, 0644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// UpdateManifestEntry replaces or appends the entry for slug and
// refreshes the task count.
func (m *Manager) UpdateManifestEntry(slug, description, summaryPath, exePath string, generatedCount int) error {
	manifest := m.LoadManifest()
	kept := manifest.Tasks[:0]
	for _, t := range manifest.Tasks {
		if t.Slug != slug {
			kept = append(kept, t)
		}
	}
	if len(description) > 240 {
		description = description[:240]
	}
	kept = append(kept, ManifestEntry{
		Slug:           slug,
		Description:    description,
		CreatedAt:      float64(time.Now().UnixNano()) / 1e9,
		Summary:        summaryPath,
		GeneratedCount: generatedCount,
		Exe:            exePath,
	})
	manifest.Tasks = kept
	manifest.TotalTasks = len(kept)
	return m.SaveManifest(manifest)
}

// ApplyRetention deletes task directories past the age cutoff, then
// oldest-first until disk usage fits under the cap. Directories with
// a .keep file are never deleted. The sweep is appended to the
// global cleanup log.
func (m *Manager) ApplyRetention(retentionDays, maxDiskMB int) (RetentionSummary, error) {
	now := time.Now()
	summary := RetentionSummary{Deleted: []string{}, Kept: []string{}}

	taskDirs, err := listTaskDirs(m.TasksDir())
	if err != nil {
		return summary, err
	}

	var cutoff time.Time
	if retentionDays > 0 {
		cutoff = now.Add(-time.Duration(retentionDays) * 24 * time.Hour)
	}

	for _, d := range taskDirs {
		if fileExists(filepath.Join(d.path, ".keep")) {
			summary.Kept = append(summary.Kept, d.name)
			continue
		}
		if !cutoff.IsZero() && d.mtime.Before(cutoff) {
			if err := os.RemoveAll(d.path); err == nil {
				summary.Deleted = append(summary.Deleted, d.name)
			}
		}
	}

	remaining, err := listTaskDirs(m.TasksDir())
	if err != nil {
		return summary, err
	}
	var diskBytes int64
	for i := range remaining {
		remaining[i].size = dirSize(remaining[i].path)
		diskBytes += remaining[i].size
	}

	if maxDiskMB > 0 {
		capBytes := int64(maxDiskMB) * 1024 * 1024
		if diskBytes > capBytes {
			sort.Slice(remaining, func(i, j int) bool {
				return remaining[i].mtime.Before(remaining[j].mtime)
			})
			for _, d := range remaining {
				if diskBytes <= capBytes {
					break
				}
				if fileExists(filepath.Join(d.path, ".keep")) {
					continue
				}
				if err := os.RemoveAll(d.path); err == nil {
					summary.Deleted = append(summary.Deleted, d.name)
					diskBytes -= d.size
				}
			}
		}
	}
	summary.DiskBytes = diskBytes

	if err := m.appendCleanupLog(now, summary); err != nil {
		return summary, err
	}
	return summary, nil
}

func (m *Manager) appendCleanupLog(now time.Time, summary RetentionSummary) error {
	globalDir, err := m.GlobalDir()
	if err != nil {
		return err
	}
	record := struct {
		TS float64 `json:"ts"`
		RetentionSummary
	}{float64(now.UnixNano()) / 1e9, summary}
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal cleanup record: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(globalDir, "cleanup.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open cleanup log: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append cleanup log: %w", err)
	}
	return nil
}

type taskDir struct {
	name  string
	path  string
	mtime time.Time
	size  int64
}

func listTaskDirs(root string) ([]taskDir, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read tasks directory: %w", err)
	}
	var dirs []taskDir
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(root, entry.Name())
		info, err := entry.Info()
		mtime := time.Now()
		if err == nil {
			mtime = info.ModTime()
		}
		dirs = append(dirs, taskDir{name: entry.Name(), path: path, mtime: mtime})
	}
	return dirs, nil
}

func dirSize(path string) int64 {
	var total int64
	filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
