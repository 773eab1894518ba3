package models

import "time"

// StepStatus represents the outcome of a single pipeline step.
type StepStatus string

const (
	// StepCompleted indicates the step finished successfully.
	StepCompleted StepStatus = "completed"
	// StepFailed indicates the step ran but reported an error.
	StepFailed StepStatus = "failed"
	// StepSkipped indicates the step could not run and was passed over.
	StepSkipped StepStatus = "skipped"
)

// Valid returns true if the status is a known value.
func (s StepStatus) Valid() bool {
	switch s {
	case StepCompleted, StepFailed, StepSkipped:
		return true
	default:
		return false
	}
}

// Task is a routable unit of work produced by the intent classifier
// or supplied directly by a caller.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"task_id"`
	// Type is the task type (codegen, testing, analysis, ...).
	Type string `json:"type,omitempty"`
	// Description is the natural-language request text.
	Description string `json:"description"`
	// AgentTarget names the agent this task should be routed to.
	AgentTarget string `json:"agent_target,omitempty"`
	// Priority ranges from 1 (lowest) to 10 (highest).
	Priority int `json:"priority,omitempty"`
	// Input carries optional raw input for the target agent.
	Input string `json:"input,omitempty"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at,omitempty"`
	// Metadata holds classifier-provided context about the task.
	Metadata *TaskMetadata `json:"metadata,omitempty"`
}

// TaskMetadata carries classifier context attached to a parsed task.
type TaskMetadata struct {
	// Confidence is the classifier confidence for the chosen intent.
	Confidence float64 `json:"confidence"`
	// OriginalText is the request text before parsing.
	OriginalText string `json:"original_text,omitempty"`
	// Complexity is the assessed complexity (low, medium, high).
	Complexity string `json:"complexity,omitempty"`
	// EstimatedSeconds is the estimated execution time.
	EstimatedSeconds int `json:"estimated_seconds,omitempty"`
}

// StepRecord is a single executed (or planned) step in a task's plan.
type StepRecord struct {
	// Step is the 1-based step number; planner pre-steps use 0.
	Step int `json:"step"`
	// Action identifies what the step did (validate_input, execute_agent, ...).
	Action string `json:"action"`
	// Agent names the agent that ran, when the action invoked one.
	Agent string `json:"agent,omitempty"`
	// Status is the step outcome.
	Status StepStatus `json:"status"`
	// Output is a short human-readable summary of the step.
	Output string `json:"output"`
	// AgentResult holds a trimmed view of the agent's output for diagnostics.
	AgentResult map[string]any `json:"agent_result,omitempty"`
}

// PipelineArtifacts records the files a task run produced on disk.
// Paths are absolute while the run is in flight; the final payload
// writer relativizes them to the task directory.
type PipelineArtifacts struct {
	CodegenArtifact     string   `json:"codegen_artifact,omitempty"`
	CheckerArtifact     string   `json:"checker_artifact,omitempty"`
	PatcherArtifact     string   `json:"patcher_artifact,omitempty"`
	ExecutableArtifact  string   `json:"executable_artifact,omitempty"`
	ExecutableNote      string   `json:"executable_note,omitempty"`
	ExecutableBuildArgs string   `json:"executable_build_args,omitempty"`
	ExecutableBuildLog  string   `json:"executable_build_log,omitempty"`
	SpecPath            string   `json:"spec_path,omitempty"`
	PlanPath            string   `json:"plan_path,omitempty"`
	DesignPath          string   `json:"design_path,omitempty"`
	TraceabilityPath    string   `json:"traceability_path,omitempty"`
	GeneratedFiles      []string `json:"generated_files,omitempty"`
	TaskSlug            string   `json:"task_slug,omitempty"`
	TaskDir             string   `json:"task_dir,omitempty"`
}

// PipelineResult is the outcome of executing one task's plan.
type PipelineResult struct {
	// PlanExecuted is true once the plan ran, even partially.
	PlanExecuted bool `json:"plan_executed"`
	// StepsCompleted counts steps that finished successfully.
	StepsCompleted int `json:"steps_completed"`
	// StepsFailed counts steps that reported an error.
	StepsFailed int `json:"steps_failed"`
	// Steps holds the per-step execution records in order.
	Steps []StepRecord `json:"execution_details"`
	// FinalStatus is "success" when no step failed, otherwise "partial".
	FinalStatus string `json:"final_status"`
	// AgentOutput is the primary agent's output.
	AgentOutput map[string]any `json:"agent_output"`
	// Artifacts lists the files this run produced.
	Artifacts PipelineArtifacts `json:"pipeline_artifacts"`
}

// TaskResult wraps a pipeline result with routing information.
type TaskResult struct {
	Success   bool            `json:"success"`
	TaskID    string          `json:"task_id"`
	AgentUsed string          `json:"agent_used"`
	Result    *PipelineResult `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// RequestResult is the supervisor's response to a processed request.
type RequestResult struct {
	Success bool   `json:"success"`
	TaskID  string `json:"task_id"`
	// ProcessingTime is the elapsed wall time in seconds.
	ProcessingTime float64     `json:"processing_time"`
	Result         *TaskResult `json:"result,omitempty"`
	Error          string      `json:"error,omitempty"`
}

// HistoryEntry is one row in the supervisor's rolling task log.
type HistoryEntry struct {
	// Timestamp is when the task finished, as a Unix time.
	Timestamp float64 `json:"timestamp"`
	TaskID    string  `json:"task_id"`
	TaskType  string  `json:"task_type"`
	AgentUsed string  `json:"agent_used"`
	Success   bool    `json:"success"`
	// ProcessingTime is the elapsed wall time in seconds.
	ProcessingTime float64 `json:"processing_time"`
}
