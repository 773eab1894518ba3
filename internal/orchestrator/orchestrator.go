package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"taskforge/internal/codegen"
	"taskforge/internal/exec"
	"taskforge/internal/memory"
	"taskforge/internal/patcher"
	"taskforge/internal/planner"
	"taskforge/internal/syntax"
	"taskforge/pkg/models"
)

// Options configures an Orchestrator.
type Options struct {
	Planner    *planner.Planner
	Generator  *codegen.Generator
	Checker    *syntax.Checker
	Memory     *memory.Store
	Runner     exec.CommandRunner
	Logger     *DebugLogger
	OutputRoot string
	// ForceExe builds an executable for every task regardless of
	// description keywords.
	ForceExe bool
}

// Orchestrator runs one task through the agent pipeline and lays the
// results out under the output root.
type Orchestrator struct {
	planner    *planner.Planner
	generator  *codegen.Generator
	checker    *syntax.Checker
	memory     *memory.Store
	runner     exec.CommandRunner
	logger     *DebugLogger
	outputRoot string
	forceExe   bool
}

// New builds an Orchestrator. Logger may be nil.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = NopLogger()
	}
	return &Orchestrator{
		planner:    opts.Planner,
		generator:  opts.Generator,
		checker:    opts.Checker,
		memory:     opts.Memory,
		runner:     opts.Runner,
		logger:     logger,
		outputRoot: opts.OutputRoot,
		forceExe:   opts.ForceExe,
	}
}

// ExecuteTask runs a single task through its plan. Step failures are
// recorded in the result rather than aborting; only directory setup
// can fail outright.
func (o *Orchestrator) ExecuteTask(ctx context.Context, task models.Task) (*models.TaskResult, error) {
	if task.ID == "" {
		task.ID = "task_" + uuid.New().String()[:8]
	}
	target := task.AgentTarget
	if target == "" {
		target = determineAgent(task)
	}
	// Generic tasks get the full pipeline.
	if target == "unassigned" {
		target = "codegen"
	}

	slug := TaskSlug(task.Description)
	taskDir := filepath.Join(o.outputRoot, "tasks", slug)
	for _, sub := range []string{"engineering", "codegen", "final", "tests", "patches"} {
		if err := os.MkdirAll(filepath.Join(taskDir, sub), 0755); err != nil {
			return nil, fmt.Errorf("create task directory: %w", err)
		}
	}
	o.logger.Logf("task %s: target=%s dir=%s", task.ID, target, taskDir)

	run := &taskRun{
		task:    task,
		target:  target,
		taskDir: taskDir,
		artifacts: models.PipelineArtifacts{
			TaskSlug: slug,
			TaskDir:  taskDir,
		},
	}

	o.runPlannerPreStep(run)

	plan := []models.StepRecord{
		{Step: 1, Action: "validate_input"},
		{Step: 2, Action: "execute_agent", Agent: target},
		{Step: 3, Action: "validate_output"},
	}
	failures := 0
	for _, step := range plan {
		record := step
		record.Status = models.StepCompleted
		record.Output = fmt.Sprintf("Step %d executed successfully", record.Step)

		if record.Action == "execute_agent" {
			if err := o.executeAgent(ctx, run, &record); err != nil {
				failures++
				record.Status = models.StepFailed
				record.Output = fmt.Sprintf("agent error: %v", err)
				o.logger.Logf("task %s: step %d failed: %v", task.ID, record.Step, err)
			}
		}
		run.steps = append(run.steps, record)
	}

	if codeText := run.codeText(); codeText != "" || len(run.artifacts.GeneratedFiles) > 0 {
		o.runQualityChain(ctx, run)
	}
	if len(run.artifacts.GeneratedFiles) > 0 {
		o.writeTraceability(run)
	}
	if o.forceExe || shouldBuildExe(task.Description) {
		o.buildExecutable(ctx, run)
	}

	completed := 0
	for _, s := range run.steps {
		if s.Status == models.StepCompleted {
			completed++
		}
	}
	status := "success"
	if failures > 0 {
		status = "partial"
	}

	return &models.TaskResult{
		Success:   true,
		TaskID:    task.ID,
		AgentUsed: target,
		Result: &models.PipelineResult{
			PlanExecuted:   true,
			StepsCompleted: completed,
			StepsFailed:    failures,
			Steps:          run.steps,
			FinalStatus:    status,
			AgentOutput:    run.agentOutput,
			Artifacts:      run.artifacts,
		},
	}, nil
}

// taskRun carries mutable state through one ExecuteTask call.
type taskRun struct {
	task        models.Task
	target      string
	taskDir     string
	steps       []models.StepRecord
	artifacts   models.PipelineArtifacts
	agentOutput map[string]any
	filePlan    []planner.PlannedFile
}

func (r *taskRun) codeText() string {
	if r.agentOutput == nil {
		return ""
	}
	code, _ := r.agentOutput["code"].(string)
	return code
}

// determineAgent routes a task by type, then by description keywords.
func determineAgent(task models.Task) string {
	desc := strings.ToLower(task.Description)
	switch strings.ToLower(task.Type) {
	case "codegen", "code_generation":
		return "codegen"
	case "testing":
		return "checker"
	case "patching":
		return "patcher"
	case "engineering", "analysis":
		return "planner"
	case "memory":
		return "memory"
	}
	switch {
	case containsAnyWord(desc, "code", "generate", "write", "implement"):
		return "codegen"
	case containsAnyWord(desc, "test", "verify", "check", "validate"):
		return "checker"
	case containsAnyWord(desc, "fix", "patch", "repair", "debug"):
		return "patcher"
	case containsAnyWord(desc, "design", "architect", "plan", "requirements"):
		return "planner"
	case containsAnyWord(desc, "save", "store", "remember", "recall"):
		return "memory"
	}
	return "unassigned"
}

// runPlannerPreStep runs the planning analysis before codegen when
// the description carries no design context of its own.
func (o *Orchestrator) runPlannerPreStep(run *taskRun) {
	if run.target != "codegen" || o.planner == nil {
		return
	}
	lower := strings.ToLower(run.task.Description)
	if strings.Contains(lower, "spec") || strings.Contains(lower, "architecture") || strings.Contains(lower, "design") {
		return
	}

	record := models.StepRecord{Step: 0, Action: "planner_analysis", Agent: "planner"}
	engDir := filepath.Join(run.taskDir, "engineering")
	analysis := o.planner.Analyze(run.task.Description, "web_application")
	written, err := o.planner.WriteArtifacts(engDir, analysis)
	if err != nil {
		record.Status = models.StepFailed
		record.Output = fmt.Sprintf("planner error: %v", err)
	} else {
		record.Status = models.StepCompleted
		record.Output = engDir
		run.filePlan = o.planner.PlanFiles(run.task.Description)
	}
	for _, path := range written {
		switch filepath.Base(path) {
		case "spec.json":
			run.artifacts.SpecPath = path
		case "plan.json":
			run.artifacts.PlanPath = path
		}
	}
	run.steps = append(run.steps, record)
}

// executeAgent runs the primary agent for step 2.
func (o *Orchestrator) executeAgent(ctx context.Context, run *taskRun, record *models.StepRecord) error {
	switch run.target {
	case "codegen":
		return o.executeCodegen(ctx, run, record)
	case "checker":
		return o.executeChecker(ctx, run, record)
	case "patcher":
		return o.executePatcher(run, record)
	case "planner":
		return o.executePlanner(run, record)
	case "memory":
		return o.executeMemory(run, record)
	default:
		record.Status = models.StepSkipped
		record.Output = "No agent assigned"
		return nil
	}
}

func (o *Orchestrator) executeCodegen(ctx context.Context, run *taskRun, record *models.StepRecord) error {
	if o.generator == nil {
		return fmt.Errorf("code generator not configured")
	}
	codegenDir := filepath.Join(run.taskDir, "codegen")

	if len(run.filePlan) > 0 {
		return o.executeFilePlan(ctx, run, record, codegenDir)
	}

	res, err := o.generator.Generate(ctx, codegen.Request{
		Prompt:    run.task.Description,
		TaskID:    run.task.ID,
		OutputDir: codegenDir,
	})
	if err != nil {
		return err
	}
	run.agentOutput = map[string]any{
		"code":     res.Code,
		"language": res.Language,
		"method":   res.Method,
		"llm_used": res.ProviderUsed,
	}
	record.Output = "agent_executed"
	record.AgentResult = map[string]any{"method": res.Method, "language": res.Language}
	if res.ArtifactPath != "" {
		run.artifacts.CodegenArtifact = res.ArtifactPath
	}
	if res.ArtifactWriteError != "" {
		run.agentOutput["artifact_write_error"] = res.ArtifactWriteError
	}
	return nil
}

// executeFilePlan generates every planned file into the codegen
// directory, preserving relative paths.
func (o *Orchestrator) executeFilePlan(ctx context.Context, run *taskRun, record *models.StepRecord, codegenDir string) error {
	var generated []string
	for _, pf := range run.filePlan {
		prompt := fmt.Sprintf("Task: %s\nImplement file '%s' for: %s. Provide ONLY %s code.",
			run.task.Description, pf.Path, pf.Description, pf.Language)
		res, err := o.generator.Generate(ctx, codegen.Request{
			Prompt:   prompt,
			Language: pf.Language,
		})
		if err != nil {
			o.logger.Logf("task %s: file plan entry %s failed: %v", run.task.ID, pf.Path, err)
			continue
		}
		target := filepath.Join(codegenDir, filepath.FromSlash(pf.Path))
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			continue
		}
		if err := os.WriteFile(target, []byte(res.Code), 0644); err != nil {
			continue
		}
		generated = append(generated, target)
	}

	if len(generated) == 0 {
		return fmt.Errorf("file plan produced no files")
	}
	run.artifacts.GeneratedFiles = generated
	run.artifacts.CodegenArtifact = generated[0]
	run.agentOutput = map[string]any{
		"code":            "",
		"generated_files": generated,
	}
	record.Output = "agent_executed"
	record.AgentResult = map[string]any{"files": len(generated)}
	return nil
}

func (o *Orchestrator) executeChecker(ctx context.Context, run *taskRun, record *models.StepRecord) error {
	if o.checker == nil {
		return fmt.Errorf("syntax checker not configured")
	}
	code := run.task.Input
	if code == "" {
		code = run.task.Description
	}
	report := o.checker.Check(ctx, code, "python")
	run.agentOutput = map[string]any{
		"valid":        report.Valid,
		"checked_with": report.CheckedWith,
		"issues":       report.Issues,
	}
	record.Output = "agent_executed"
	record.AgentResult = map[string]any{"valid": report.Valid}
	return nil
}

func (o *Orchestrator) executePatcher(run *taskRun, record *models.StepRecord) error {
	code := run.task.Input
	if code == "" {
		code = run.task.Description
	}
	res := patcher.Apply(code)
	res, err := patcher.WriteResult(filepath.Join(run.taskDir, "patches"), res)
	if err != nil {
		return err
	}
	run.artifacts.PatcherArtifact = res.ArtifactPath
	run.agentOutput = map[string]any{
		"patched_code":  res.Patched,
		"fixes_applied": res.FixesApplied,
	}
	record.Output = "agent_executed"
	record.AgentResult = map[string]any{"fixes": len(res.FixesApplied)}
	return nil
}

func (o *Orchestrator) executePlanner(run *taskRun, record *models.StepRecord) error {
	if o.planner == nil {
		return fmt.Errorf("planner not configured")
	}
	engDir := filepath.Join(run.taskDir, "engineering")
	analysis := o.planner.Analyze(run.task.Description, "general")
	written, err := o.planner.WriteArtifacts(engDir, analysis)
	if err != nil {
		return err
	}
	for _, path := range written {
		switch filepath.Base(path) {
		case "spec.json":
			run.artifacts.SpecPath = path
		case "plan.json":
			run.artifacts.PlanPath = path
		}
	}
	run.agentOutput = map[string]any{
		"analysis_id":  analysis.ID,
		"architecture": analysis.Architecture.Pattern,
		"artifact_dir": engDir,
	}
	record.Output = "agent_executed"
	record.AgentResult = map[string]any{"requirements": len(analysis.Requirements)}
	return nil
}

func (o *Orchestrator) executeMemory(run *taskRun, record *models.StepRecord) error {
	if o.memory == nil {
		return fmt.Errorf("memory store not configured")
	}
	value := run.task.Input
	if value == "" {
		value = run.task.Description
	}
	if err := o.memory.Save(run.task.ID, value); err != nil {
		return err
	}
	run.agentOutput = map[string]any{"saved": run.task.ID}
	record.Output = "agent_executed"
	return nil
}

func shouldBuildExe(description string) bool {
	lower := strings.ToLower(description)
	for _, kw := range []string{"executable", " .exe", " build exe", "make an exe", "windows binary", "create exe"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	for _, word := range strings.Fields(lower) {
		if word == "exe" || word == "executable" {
			return true
		}
	}
	return false
}

func containsAnyWord(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
