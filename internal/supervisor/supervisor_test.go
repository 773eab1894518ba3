package supervisor

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"taskforge/internal/agent"
	"taskforge/internal/codegen"
	"taskforge/internal/intent"
	"taskforge/internal/memory"
	"taskforge/internal/orchestrator"
	"taskforge/internal/planner"
	"taskforge/internal/state"
	"taskforge/internal/syntax"
)

func newTestSupervisor(t *testing.T, db *state.DB) *Supervisor {
	t.Helper()
	orch := orchestrator.New(orchestrator.Options{
		Planner:    planner.New(),
		Generator:  codegen.NewGenerator(nil, "python", "", 1024),
		Checker:    syntax.NewChecker(),
		Memory:     memory.NewStore(),
		OutputRoot: t.TempDir(),
	})
	return New(Options{
		Classifier:   intent.NewClassifier(),
		Orchestrator: orch,
		Memory:       memory.NewStore(),
		Registry:     agent.NewRegistry(nil),
		DB:           db,
	})
}

func TestProcessRequest(t *testing.T) {
	s := newTestSupervisor(t, nil)
	res := s.ProcessRequest(context.Background(), "generate a function that sorts a list")
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
	if res.TaskID == "" || res.Result == nil {
		t.Fatalf("incomplete result: %+v", res)
	}
	if res.Result.AgentUsed != "codegen" {
		t.Errorf("agent = %q", res.Result.AgentUsed)
	}
	if res.ProcessingTime < 0 {
		t.Errorf("processing time = %f", res.ProcessingTime)
	}
}

func TestProcessRequestEmpty(t *testing.T) {
	s := newTestSupervisor(t, nil)
	res := s.ProcessRequest(context.Background(), "")
	if res.Success || res.Error == "" {
		t.Errorf("empty request accepted: %+v", res)
	}
}

func TestHistoryTrimming(t *testing.T) {
	s := newTestSupervisor(t, nil)
	for i := 0; i < historyCap+20; i++ {
		s.ProcessRequest(context.Background(), fmt.Sprintf("remember item number %d", i))
	}

	history := s.History()
	if len(history) != historyCap {
		t.Fatalf("history length = %d, want %d", len(history), historyCap)
	}
	status := s.Status()
	if status.TotalTasksProcessed != historyCap+20 {
		t.Errorf("total = %d, want %d", status.TotalTasksProcessed, historyCap+20)
	}
	if len(status.RecentTasks) != recentStatusEntries {
		t.Errorf("recent = %d entries", len(status.RecentTasks))
	}
}

func TestHistoryMirroredToDB(t *testing.T) {
	db, err := state.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		t.Fatal(err)
	}

	s := newTestSupervisor(t, db)
	s.ProcessRequest(context.Background(), "generate a prime sieve")

	count, err := db.Count()
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("db count = %d, want 1", count)
	}
}

func TestStatusAndAgentInfo(t *testing.T) {
	s := newTestSupervisor(t, nil)
	status := s.Status()
	if status.Status != "operational" || status.Version == "" {
		t.Errorf("status = %+v", status)
	}
	if len(status.Agents) != 2 {
		t.Errorf("agents = %+v", status.Agents)
	}

	info, ok := s.AgentInfo("classifier")
	if !ok || info.Description == "" {
		t.Errorf("classifier info = %+v, ok = %v", info, ok)
	}
	if _, ok := s.AgentInfo("nope"); ok {
		t.Error("unknown agent reported as present")
	}
}

func TestHealthCheck(t *testing.T) {
	s := newTestSupervisor(t, nil)
	health := s.HealthCheck(context.Background())
	if !health["classifier"] {
		t.Errorf("classifier unhealthy: %v", health)
	}
	if !health["memory"] {
		t.Errorf("memory unhealthy: %v", health)
	}
}
