package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"taskforge/internal/codegen"
	"taskforge/internal/memory"
	"taskforge/internal/planner"
	"taskforge/internal/syntax"
	"taskforge/pkg/models"
)

func newTestOrchestrator(t *testing.T) (*Orchestrator, string) {
	t.Helper()
	root := t.TempDir()
	o := New(Options{
		Planner:    planner.New(),
		Generator:  codegen.NewGenerator(nil, "python", "", 1024),
		Checker:    syntax.NewChecker(),
		Memory:     memory.NewStore(),
		OutputRoot: root,
	})
	return o, root
}

func TestTaskSlug(t *testing.T) {
	tests := []struct {
		name        string
		description string
		wantPrefix  string
	}{
		{"words joined", "Build a calculator, please. Now", "build-a-calculator-please-now_"},
		{"caps eight words", "one two three four five six seven eight nine", "one-two-three-four-five-six-seven-eight_"},
		{"empty falls back", "", "general-task_"},
		{"symbols only", "!!! ???", "general-task_"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slug := TaskSlug(tt.description)
			if !strings.HasPrefix(slug, tt.wantPrefix) {
				t.Errorf("slug = %q, want prefix %q", slug, tt.wantPrefix)
			}
			if len(slug) > 56 {
				t.Errorf("slug %q longer than 56 chars", slug)
			}
		})
	}

	if TaskSlug("same text") != TaskSlug("same text") {
		t.Error("slug not stable for identical input")
	}
	if TaskSlug("text one") == TaskSlug("text two") {
		t.Error("different descriptions collided")
	}
}

func TestDetermineAgent(t *testing.T) {
	tests := []struct {
		name string
		task models.Task
		want string
	}{
		{"type wins", models.Task{Type: "testing", Description: "write code"}, "checker"},
		{"codegen keywords", models.Task{Description: "implement a parser"}, "codegen"},
		{"checker keywords", models.Task{Description: "verify the results"}, "checker"},
		{"patcher keywords", models.Task{Description: "fix the bug"}, "patcher"},
		{"planner keywords", models.Task{Description: "plan the requirements"}, "planner"},
		{"memory keywords", models.Task{Description: "remember this value"}, "memory"},
		{"no match", models.Task{Description: "hello there"}, "unassigned"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := determineAgent(tt.task); got != tt.want {
				t.Errorf("determineAgent = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExecuteTaskCodegenPipeline(t *testing.T) {
	o, root := newTestOrchestrator(t)
	res, err := o.ExecuteTask(context.Background(), models.Task{
		ID:          "task_test1234",
		Description: "Generate a calculator",
	})
	if err != nil {
		t.Fatalf("ExecuteTask: %v", err)
	}
	if !res.Success || res.AgentUsed != "codegen" {
		t.Fatalf("result = %+v", res)
	}
	pr := res.Result
	if pr == nil || !pr.PlanExecuted {
		t.Fatal("pipeline result missing")
	}

	// Planner pre-step plus the three plan steps plus checker and patcher.
	actions := make(map[string]models.StepStatus)
	for _, s := range pr.Steps {
		actions[s.Action] = s.Status
	}
	for _, want := range []string{"planner_analysis", "validate_input", "execute_agent", "validate_output", "checker_validation", "patcher_auto"} {
		if _, ok := actions[want]; !ok {
			t.Errorf("step %q missing; steps = %+v", want, actions)
		}
	}
	if pr.FinalStatus != "success" {
		t.Errorf("final status = %q", pr.FinalStatus)
	}

	art := pr.Artifacts
	if len(art.GeneratedFiles) != 3 {
		t.Errorf("generated files = %v", art.GeneratedFiles)
	}
	if art.TaskDir == "" || art.SpecPath == "" || art.PatcherArtifact == "" {
		t.Errorf("artifacts incomplete: %+v", art)
	}

	taskDir := filepath.Join(root, "tasks", art.TaskSlug)
	for _, rel := range []string{
		filepath.Join("final", "task_payload.json"),
		filepath.Join("final", "traceability.json"),
		filepath.Join("engineering", "summary.json"),
		filepath.Join("tests", "syntax_report.json"),
	} {
		if _, err := os.Stat(filepath.Join(taskDir, rel)); err != nil {
			t.Errorf("expected artifact %s: %v", rel, err)
		}
	}

	// The payload relativizes artifact paths to the task dir.
	data, err := os.ReadFile(filepath.Join(taskDir, "final", "task_payload.json"))
	if err != nil {
		t.Fatal(err)
	}
	var payload finalPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatal(err)
	}
	for _, gf := range payload.FinalResult.Artifacts.GeneratedFiles {
		if filepath.IsAbs(gf) {
			t.Errorf("generated file path not relativized: %s", gf)
		}
	}
}

func TestExecuteTaskPromotesUnassigned(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	res, err := o.ExecuteTask(context.Background(), models.Task{
		ID:          "task_gen12345",
		Type:        "general",
		Description: "summarize quarterly sales numbers",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.AgentUsed != "codegen" {
		t.Errorf("agent = %q, want codegen", res.AgentUsed)
	}
}

func TestExecuteTaskGeneratesID(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	res, err := o.ExecuteTask(context.Background(), models.Task{Description: "implement a widget"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(res.TaskID, "task_") || len(res.TaskID) != 13 {
		t.Errorf("task id = %q", res.TaskID)
	}
}

func TestExecuteTaskMemoryTarget(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	res, err := o.ExecuteTask(context.Background(), models.Task{
		ID:          "task_mem00001",
		Type:        "memory",
		Description: "remember the deployment window",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.AgentUsed != "memory" {
		t.Errorf("agent = %q", res.AgentUsed)
	}
	if res.Result.FinalStatus != "success" {
		t.Errorf("status = %q", res.Result.FinalStatus)
	}
	if _, ok := o.memory.Recall("task_mem00001"); !ok {
		t.Error("value not saved to memory store")
	}
}

func TestExecuteTaskPatcherTarget(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	res, err := o.ExecuteTask(context.Background(), models.Task{
		ID:          "task_fix12345",
		Type:        "patching",
		Description: "fix this snippet",
		Input:       "def f():\n    pass \n",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.AgentUsed != "patcher" {
		t.Fatalf("agent = %q", res.AgentUsed)
	}
	if res.Result.Artifacts.PatcherArtifact == "" {
		t.Error("patcher artifact missing")
	}
}

func TestShouldBuildExe(t *testing.T) {
	tests := []struct {
		desc string
		want bool
	}{
		{"build an executable for me", true},
		{"package it as exe", true},
		{"create a windows binary", true},
		{"write a parser", false},
		{"execute the plan", false},
	}
	for _, tt := range tests {
		if got := shouldBuildExe(tt.desc); got != tt.want {
			t.Errorf("shouldBuildExe(%q) = %v, want %v", tt.desc, got, tt.want)
		}
	}
}

// fakeRunner simulates the packaging tool by dropping a binary into
// the requested dist directory.
type fakeRunner struct {
	missing bool
	runErr  error
}

func (f *fakeRunner) LookPath(name string) (string, error) {
	if f.missing {
		return "", errors.New("not found")
	}
	return "/usr/bin/" + name, nil
}

func (f *fakeRunner) Run(_ context.Context, _ string, _ string, args ...string) ([]byte, error) {
	if f.runErr != nil {
		return []byte("build failed"), f.runErr
	}
	for i, a := range args {
		if a == "--distpath" && i+1 < len(args) {
			os.WriteFile(filepath.Join(args[i+1], "app.bin"), []byte("binary"), 0755)
		}
	}
	return []byte("build ok"), nil
}

func (f *fakeRunner) Exists(_ context.Context, _ string, path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestExecuteTaskBuildsExecutable(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	o.runner = &fakeRunner{}

	res, err := o.ExecuteTask(context.Background(), models.Task{
		ID:          "task_exe00001",
		Description: "Generate a calculator and build an executable",
	})
	if err != nil {
		t.Fatal(err)
	}
	art := res.Result.Artifacts
	if art.ExecutableArtifact == "" {
		t.Fatalf("no executable artifact; note = %q", art.ExecutableNote)
	}
	if _, err := os.Stat(art.ExecutableArtifact); err != nil {
		t.Errorf("executable not on disk: %v", err)
	}
	if art.ExecutableBuildLog == "" {
		t.Error("build log not recorded")
	}
}

func TestExecuteTaskExeToolMissing(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	o.runner = &fakeRunner{missing: true}

	res, err := o.ExecuteTask(context.Background(), models.Task{
		ID:          "task_exe00002",
		Description: "Generate a calculator and build an executable",
	})
	if err != nil {
		t.Fatal(err)
	}
	art := res.Result.Artifacts
	if art.ExecutableArtifact != "" {
		t.Error("artifact set despite missing tool")
	}
	if !strings.Contains(art.ExecutableNote, "not installed") {
		t.Errorf("note = %q", art.ExecutableNote)
	}
	// A missing tool downgrades to a note; the pipeline still succeeds.
	if res.Result.FinalStatus != "success" {
		t.Errorf("status = %q", res.Result.FinalStatus)
	}
}

func TestDebugLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "debug.log")
	logger, err := NewDebugLogger(path)
	if err != nil {
		t.Fatalf("NewDebugLogger: %v", err)
	}
	logger.Logf("task %s routed", "task_1")
	if err := logger.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "task task_1 routed") {
		t.Errorf("log content = %q", data)
	}
}

func TestNopLoggerIsSafe(t *testing.T) {
	var nilLogger *DebugLogger
	nilLogger.Logf("ignored")
	if err := nilLogger.Close(); err != nil {
		t.Fatal(err)
	}
	NopLogger().Logf("also ignored")
}
