package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"taskforge/internal/patcher"
	"taskforge/pkg/models"
)

const (
	aggregateFileCap  = 10
	aggregateCharCap  = 4000
	packagingToolName = "pyinstaller"
)

// runQualityChain appends the checker and patcher steps after code
// generation, then writes the final payload. Failures become step
// records, never errors.
func (o *Orchestrator) runQualityChain(ctx context.Context, run *taskRun) {
	codeText := run.codeText()
	if codeText == "" {
		codeText = o.aggregateGeneratedFiles(run)
	}
	if codeText == "" {
		return
	}

	nextStep := 1
	for _, s := range run.steps {
		if s.Step >= nextStep {
			nextStep = s.Step + 1
		}
	}

	if o.checker != nil {
		record := models.StepRecord{Step: nextStep, Action: "checker_validation", Agent: "checker"}
		report := o.checker.Check(ctx, codeText, "python")
		record.Status = models.StepCompleted
		if !report.Valid {
			record.Status = models.StepFailed
		}
		record.Output = "checker_executed"
		record.AgentResult = map[string]any{"valid": report.Valid, "issues": len(report.Issues)}
		if path, err := writeJSON(filepath.Join(run.taskDir, "tests", "syntax_report.json"), report); err == nil {
			run.artifacts.CheckerArtifact = path
		}
		run.steps = append(run.steps, record)
		nextStep++
	}

	record := models.StepRecord{Step: nextStep, Action: "patcher_auto", Agent: "patcher"}
	res := patcher.Apply(codeText)
	res, err := patcher.WriteResult(filepath.Join(run.taskDir, "patches"), res)
	if err != nil {
		record.Status = models.StepFailed
		record.Output = fmt.Sprintf("patcher error: %v", err)
		run.steps = append(run.steps, record)
		return
	}
	record.Status = models.StepCompleted
	record.Output = "patcher_executed"
	record.AgentResult = map[string]any{"fixes": len(res.FixesApplied), "changed": res.Changed()}
	run.artifacts.PatcherArtifact = res.ArtifactPath
	run.steps = append(run.steps, record)

	o.persistPatchedCode(run, res.Patched)
	o.writeFinalPayload(run)
}

// aggregateGeneratedFiles concatenates generated source files into
// one reviewable text, capped per file and in file count.
func (o *Orchestrator) aggregateGeneratedFiles(run *taskRun) string {
	var parts []string
	for i, path := range run.artifacts.GeneratedFiles {
		if i >= aggregateFileCap {
			break
		}
		ext := filepath.Ext(path)
		if ext != ".py" && ext != ".js" && ext != ".ts" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		text := string(data)
		if len(text) > aggregateCharCap {
			text = text[:aggregateCharCap]
		}
		parts = append(parts, fmt.Sprintf("# FILE: %s\n%s", filepath.Base(path), text))
	}
	if len(parts) == 0 {
		return ""
	}
	if run.agentOutput == nil {
		run.agentOutput = map[string]any{}
	}
	run.agentOutput["combined_code"] = fmt.Sprintf("Aggregated %d files", len(parts))
	return strings.Join(parts, "\n\n")
}

// persistPatchedCode writes the patched text over the primary
// codegen artifact when it differs.
func (o *Orchestrator) persistPatchedCode(run *taskRun, patched string) {
	path := run.artifacts.CodegenArtifact
	if path == "" || patched == "" {
		return
	}
	current, err := os.ReadFile(path)
	if err == nil && string(current) == patched {
		return
	}
	if err := os.WriteFile(path, []byte(patched), 0644); err != nil {
		o.logger.Logf("task %s: persist patched code failed: %v", run.task.ID, err)
	}
}

// finalPayload is the shape written to final/task_payload.json.
type finalPayload struct {
	TaskID      string `json:"task_id"`
	Description string `json:"description"`
	FinalResult struct {
		Status        string                   `json:"status"`
		Timestamp     string                   `json:"timestamp"`
		TaskDirectory string                   `json:"task_directory"`
		Artifacts     models.PipelineArtifacts `json:"artifacts"`
	} `json:"final_result"`
}

// writeFinalPayload persists the run summary with artifact paths
// relativized to the task directory.
func (o *Orchestrator) writeFinalPayload(run *taskRun) {
	payload := finalPayload{TaskID: run.task.ID, Description: run.task.Description}
	payload.FinalResult.Status = "completed"
	payload.FinalResult.Timestamp = time.Now().Format(time.RFC3339)
	payload.FinalResult.TaskDirectory = filepath.Base(run.taskDir)
	payload.FinalResult.Artifacts = relativizeArtifacts(run.artifacts, run.taskDir)

	if _, err := writeJSON(filepath.Join(run.taskDir, "final", "task_payload.json"), payload); err != nil {
		o.logger.Logf("task %s: final payload write failed: %v", run.task.ID, err)
	}
}

func relativizeArtifacts(a models.PipelineArtifacts, taskDir string) models.PipelineArtifacts {
	rel := func(path string) string {
		if path == "" {
			return ""
		}
		if r, err := filepath.Rel(taskDir, path); err == nil && !strings.HasPrefix(r, "..") {
			return r
		}
		return path
	}
	out := a
	out.CodegenArtifact = rel(a.CodegenArtifact)
	out.CheckerArtifact = rel(a.CheckerArtifact)
	out.PatcherArtifact = rel(a.PatcherArtifact)
	out.ExecutableArtifact = rel(a.ExecutableArtifact)
	out.ExecutableBuildLog = rel(a.ExecutableBuildLog)
	out.SpecPath = rel(a.SpecPath)
	out.PlanPath = rel(a.PlanPath)
	out.DesignPath = rel(a.DesignPath)
	out.TraceabilityPath = rel(a.TraceabilityPath)
	out.GeneratedFiles = make([]string, len(a.GeneratedFiles))
	for i, gf := range a.GeneratedFiles {
		out.GeneratedFiles[i] = rel(gf)
	}
	return out
}

// traceability maps requirements and description keywords onto the
// generated file names.
type traceability struct {
	DetailedRequirementMap map[string][]string `json:"detailed_requirement_map"`
	KeywordMap             map[string][]string `json:"keyword_map"`
	GeneratedFiles         []string            `json:"generated_files"`
}

func (o *Orchestrator) writeTraceability(run *taskRun) {
	requirements := o.loadTraceRequirements(run)

	detail := make(map[string][]string)
	for _, gf := range run.artifacts.GeneratedFiles {
		name := strings.ToLower(filepath.Base(gf))
		seen := map[string]bool{}
		var hits []string
		for _, req := range requirements {
			for _, token := range strings.Fields(strings.ToLower(req.desc)) {
				if len(token) > 4 && strings.Contains(name, token) && !seen[req.id] {
					seen[req.id] = true
					hits = append(hits, req.id)
				}
			}
		}
		if len(hits) > 0 {
			sort.Strings(hits)
			detail[gf] = hits
		}
	}

	keywordMap := make(map[string][]string)
	descWords := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(run.task.Description)) {
		descWords[w] = true
	}
	for _, gf := range run.artifacts.GeneratedFiles {
		name := strings.ToLower(filepath.Base(gf))
		var hits []string
		for w := range descWords {
			if len(w) > 3 && strings.Contains(name, w) {
				hits = append(hits, w)
			}
		}
		sort.Strings(hits)
		keywordMap[gf] = hits
	}

	combined := traceability{
		DetailedRequirementMap: detail,
		KeywordMap:             keywordMap,
		GeneratedFiles:         run.artifacts.GeneratedFiles,
	}
	if path, err := writeJSON(filepath.Join(run.taskDir, "final", "traceability.json"), combined); err == nil {
		run.artifacts.TraceabilityPath = path
	} else {
		o.logger.Logf("task %s: traceability write failed: %v", run.task.ID, err)
	}
}

type traceRequirement struct {
	id   string
	desc string
}

// loadTraceRequirements reads requirements from the planner's
// spec.json artifact, falling back to sentences of the description.
func (o *Orchestrator) loadTraceRequirements(run *taskRun) []traceRequirement {
	var reqs []traceRequirement
	if run.artifacts.SpecPath != "" {
		if data, err := os.ReadFile(run.artifacts.SpecPath); err == nil {
			var specDoc struct {
				Spec struct {
					Requirements []struct {
						ID          string `json:"requirement_id"`
						Description string `json:"description"`
					} `json:"requirements"`
				} `json:"spec"`
			}
			if json.Unmarshal(data, &specDoc) == nil {
				for _, r := range specDoc.Spec.Requirements {
					reqs = append(reqs, traceRequirement{id: r.ID, desc: r.Description})
				}
			}
		}
	}
	if len(reqs) == 0 {
		for i, sentence := range strings.Split(run.task.Description, ".") {
			s := strings.TrimSpace(sentence)
			if s != "" {
				reqs = append(reqs, traceRequirement{id: fmt.Sprintf("implicit_%d", i+1), desc: s})
			}
		}
	}
	return reqs
}

// buildExecutable packages the primary artifact with the external
// packaging tool. Every failure downgrades to a note stored on the
// artifacts rather than an error.
func (o *Orchestrator) buildExecutable(ctx context.Context, run *taskRun) {
	if o.runner == nil {
		run.artifacts.ExecutableNote = "executable build skipped: no command runner configured"
		return
	}
	toolPath, err := o.runner.LookPath(packagingToolName)
	if err != nil {
		run.artifacts.ExecutableNote = fmt.Sprintf("%s not installed; cannot build executable", packagingToolName)
		return
	}

	finalDir := filepath.Join(run.taskDir, "final")
	scriptPath := run.artifacts.CodegenArtifact
	if scriptPath == "" || !o.runner.Exists(ctx, "", scriptPath) {
		scriptPath = filepath.Join(finalDir, run.artifacts.TaskSlug+"_app.py")
		if err := os.WriteFile(scriptPath, []byte(run.codeText()), 0644); err != nil {
			run.artifacts.ExecutableNote = fmt.Sprintf("could not stage build input: %v", err)
			return
		}
	}

	buildRoot := filepath.Join(finalDir, "_build_"+run.artifacts.TaskSlug)
	distDir := filepath.Join(buildRoot, "dist")
	workDir := filepath.Join(buildRoot, "work")
	specDir := filepath.Join(buildRoot, "spec")
	for _, d := range []string{distDir, workDir, specDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			run.artifacts.ExecutableNote = fmt.Sprintf("could not create build tree: %v", err)
			return
		}
	}

	args := []string{
		"--onefile", "--noconfirm", "--clean",
		"--distpath", distDir,
		"--workpath", workDir,
		"--specpath", specDir,
		scriptPath,
	}
	run.artifacts.ExecutableBuildArgs = strings.Join(args, " ")

	logPath := filepath.Join(buildRoot, "build.log")
	out, runErr := o.runner.Run(ctx, run.taskDir, toolPath, args...)
	if err := os.WriteFile(logPath, out, 0644); err == nil {
		run.artifacts.ExecutableBuildLog = logPath
	}
	if runErr != nil {
		run.artifacts.ExecutableNote = fmt.Sprintf("%s exited with error: %v", packagingToolName, runErr)
		return
	}

	built := firstBinary(distDir)
	if built == "" {
		run.artifacts.ExecutableNote = "no executable produced by " + packagingToolName
		return
	}
	target := filepath.Join(finalDir, run.artifacts.TaskSlug+filepath.Ext(built))
	if err := copyFile(built, target); err != nil {
		run.artifacts.ExecutableNote = fmt.Sprintf("copy failed: %v", err)
		return
	}
	run.artifacts.ExecutableArtifact = target
	run.artifacts.ExecutableNote = "Executable built: " + filepath.Base(target)
}

func firstBinary(distDir string) string {
	entries, err := os.ReadDir(distDir)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			return filepath.Join(distDir, entry.Name())
		}
	}
	return ""
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0755)
}

func writeJSON(path string, v any) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("create directory for %s: %w", filepath.Base(path), err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return path, nil
}
