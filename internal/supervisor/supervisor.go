// Package supervisor is the composition root of the pipeline. It
// turns raw request text into tasks, routes them through the
// orchestrator and keeps the rolling task history.
package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"taskforge/internal/agent"
	"taskforge/internal/intent"
	"taskforge/internal/memory"
	"taskforge/internal/orchestrator"
	"taskforge/internal/state"
	"taskforge/internal/version"
	"taskforge/pkg/models"
)

// historyCap bounds the in-memory rolling history.
const historyCap = 100

// recentStatusEntries is how many history rows Status reports.
const recentStatusEntries = 5

// Supervisor routes requests and tracks processing history.
type Supervisor struct {
	classifier   *intent.Classifier
	orchestrator *orchestrator.Orchestrator
	memory       *memory.Store
	registry     *agent.Registry

	// db mirrors the rolling history durably; nil disables it.
	db *state.DB

	mu      sync.Mutex
	history []models.HistoryEntry
	total   int
}

// Options configures a Supervisor.
type Options struct {
	Classifier   *intent.Classifier
	Orchestrator *orchestrator.Orchestrator
	Memory       *memory.Store
	Registry     *agent.Registry
	DB           *state.DB
}

// New builds a Supervisor and registers the dispatchable agents.
func New(opts Options) *Supervisor {
	s := &Supervisor{
		classifier:   opts.Classifier,
		orchestrator: opts.Orchestrator,
		memory:       opts.Memory,
		registry:     opts.Registry,
		db:           opts.DB,
	}
	if s.registry != nil {
		s.registerAgents()
	}
	return s
}

// ProcessRequest classifies raw request text into a task and executes
// it, recording the outcome in the history.
func (s *Supervisor) ProcessRequest(ctx context.Context, text string) models.RequestResult {
	start := time.Now()
	if text == "" {
		return models.RequestResult{Success: false, Error: "request text is required"}
	}

	task, _ := s.classifier.ParseToTask(text, "")
	taskResult, err := s.RouteTask(ctx, task)
	elapsed := time.Since(start).Seconds()

	result := models.RequestResult{
		TaskID:         task.ID,
		ProcessingTime: elapsed,
	}
	if err != nil {
		result.Error = err.Error()
		s.recordHistory(task, "", false, elapsed)
		return result
	}
	result.Success = taskResult.Success
	result.Result = taskResult
	s.recordHistory(task, taskResult.AgentUsed, taskResult.Success, elapsed)
	return result
}

// RouteTask executes an already-built task. Every target runs
// through the orchestrator so each task gets the full pipeline
// treatment.
func (s *Supervisor) RouteTask(ctx context.Context, task models.Task) (*models.TaskResult, error) {
	if s.orchestrator == nil {
		return nil, fmt.Errorf("orchestrator not configured")
	}
	res, err := s.orchestrator.ExecuteTask(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("execute task %s: %w", task.ID, err)
	}
	return res, nil
}

func (s *Supervisor) recordHistory(task models.Task, agentUsed string, success bool, elapsed float64) {
	entry := models.HistoryEntry{
		Timestamp:      float64(time.Now().UnixNano()) / 1e9,
		TaskID:         task.ID,
		TaskType:       task.Type,
		AgentUsed:      agentUsed,
		Success:        success,
		ProcessingTime: elapsed,
	}

	s.mu.Lock()
	s.history = append(s.history, entry)
	if len(s.history) > historyCap {
		s.history = s.history[len(s.history)-historyCap:]
	}
	s.total++
	s.mu.Unlock()

	// Durable mirror is best effort; the in-memory log is the source
	// of truth for status output.
	if s.db != nil {
		_ = s.db.Append(entry)
	}
}

// Status summarizes the supervisor for status commands and the HTTP
// API.
type Status struct {
	Status              string                `json:"status"`
	Version             string                `json:"version"`
	Agents              []agent.Info          `json:"agents"`
	TotalTasksProcessed int                   `json:"total_tasks_processed"`
	RecentTasks         []models.HistoryEntry `json:"recent_tasks"`
}

// Status reports the current supervisor state.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	recent := s.history
	if len(recent) > recentStatusEntries {
		recent = recent[len(recent)-recentStatusEntries:]
	}
	out := Status{
		Status:              "operational",
		Version:             version.Get(),
		TotalTasksProcessed: s.total,
		RecentTasks:         append([]models.HistoryEntry(nil), recent...),
	}
	if s.registry != nil {
		out.Agents = s.registry.Infos()
	}
	return out
}

// History returns a copy of the rolling history, newest last.
func (s *Supervisor) History() []models.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.HistoryEntry(nil), s.history...)
}

// AgentInfo returns status info for one registered agent.
func (s *Supervisor) AgentInfo(name string) (agent.Info, bool) {
	if s.registry == nil {
		return agent.Info{}, false
	}
	a, ok := s.registry.Get(name)
	if !ok {
		return agent.Info{}, false
	}
	return agent.Info{Name: a.Name(), Description: a.Description()}, true
}

// HealthCheck exercises one dispatch per checkable agent and reports
// per-agent health.
func (s *Supervisor) HealthCheck(ctx context.Context) map[string]bool {
	health := make(map[string]bool)
	if s.registry == nil {
		return health
	}
	for _, name := range s.registry.Names() {
		input := map[string]any{"text": "health check"}
		_, err := s.registry.Dispatch(ctx, name, input)
		health[name] = err == nil
	}
	return health
}

// registerAgents wires the classifier and memory store into the
// dispatch registry.
func (s *Supervisor) registerAgents() {
	if s.classifier != nil {
		s.registry.Register(agent.Func{
			AgentName: "classifier",
			Desc:      "Intent classification and task parsing",
			Fn: func(_ context.Context, input map[string]any) (map[string]any, error) {
				text, _ := input["text"].(string)
				if text == "" {
					return nil, fmt.Errorf("text is required")
				}
				res, cached := s.classifier.Analyze(text)
				return map[string]any{"intent": res, "cached": cached}, nil
			},
		})
	}
	if s.memory != nil {
		s.registry.Register(agent.Func{
			AgentName: "memory",
			Desc:      "In-process key/value memory",
			Fn: func(_ context.Context, input map[string]any) (map[string]any, error) {
				if key, ok := input["save"].(string); ok {
					value, _ := input["value"].(string)
					if err := s.memory.Save(key, value); err != nil {
						return nil, err
					}
					return map[string]any{"saved": key}, nil
				}
				if key, ok := input["recall"].(string); ok {
					entry, found := s.memory.Recall(key)
					return map[string]any{"entry": entry, "found": found}, nil
				}
				return map[string]any{"entries": s.memory.List()}, nil
			},
		})
	}
}
