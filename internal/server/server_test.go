package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"taskforge/internal/agent"
	"taskforge/internal/codegen"
	"taskforge/internal/intent"
	"taskforge/internal/memory"
	"taskforge/internal/orchestrator"
	"taskforge/internal/planner"
	"taskforge/internal/provider"
	"taskforge/internal/supervisor"
	"taskforge/internal/syntax"

	"taskforge/pkg/models"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	orch := orchestrator.New(orchestrator.Options{
		Planner:    planner.New(),
		Generator:  codegen.NewGenerator(nil, "python", "", 1024),
		Checker:    syntax.NewChecker(),
		Memory:     memory.NewStore(),
		OutputRoot: t.TempDir(),
	})
	sup := supervisor.New(supervisor.Options{
		Classifier:   intent.NewClassifier(),
		Orchestrator: orch,
		Memory:       memory.NewStore(),
		Registry:     agent.NewRegistry(nil),
	})
	ts := httptest.NewServer(New(sup, "").Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestProcessEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/process", "application/json",
		strings.NewReader(`{"request": "generate a function that reverses a string"}`))
	if err != nil {
		t.Fatalf("POST /process: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var result models.RequestResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !result.Success || result.TaskID == "" {
		t.Errorf("result = %+v", result)
	}
}

func TestProcessEndpointPrimeArtifact(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/process", "application/json",
		strings.NewReader(`{"request": "Generate a Python function to calculate prime numbers"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var result models.RequestResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if !result.Success {
		t.Fatalf("result = %+v", result)
	}

	artifact := result.Result.Result.Artifacts.CodegenArtifact
	if !strings.HasSuffix(artifact, ".py") {
		t.Fatalf("artifact = %q, want .py file", artifact)
	}
	code, err := os.ReadFile(artifact)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if !strings.Contains(string(code), "def ") {
		t.Errorf("artifact does not define a function:\n%s", code)
	}
}

func TestProcessEndpointRejectsBadBody(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"request": `},
		{"missing field", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/process", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestProcessEndpointWrongMethod(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/process")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestStatusEndpoint(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var status supervisor.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status.Status != "operational" {
		t.Errorf("status = %+v", status)
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var health struct {
		Healthy bool            `json:"healthy"`
		Agents  map[string]bool `json:"agents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatal(err)
	}
	if !health.Healthy {
		t.Errorf("health = %+v", health)
	}
}

func TestProcessEndpointDemoGate(t *testing.T) {
	orch := orchestrator.New(orchestrator.Options{
		Planner:    planner.New(),
		Generator:  codegen.NewGenerator(nil, "python", "", 1024),
		Checker:    syntax.NewChecker(),
		Memory:     memory.NewStore(),
		OutputRoot: t.TempDir(),
	})
	sup := supervisor.New(supervisor.Options{
		Classifier:   intent.NewClassifier(),
		Orchestrator: orch,
	})
	srv := New(sup, "")
	srv.SetDemo(provider.NewDemo("", ""))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	post := func() (*http.Response, provider.DemoResult) {
		t.Helper()
		resp, err := http.Post(ts.URL+"/process", "application/json",
			strings.NewReader(`{"request": "generate a calculator"}`))
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		var res provider.DemoResult
		if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
			t.Fatal(err)
		}
		return resp, res
	}

	for call := 1; call <= 2; call++ {
		resp, res := post()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("call %d status = %d", call, resp.StatusCode)
		}
		if !res.Success || !res.Demo || res.CallNumber != call {
			t.Errorf("call %d result = %+v", call, res)
		}
	}

	resp, res := post()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("over-cap status = %d, want 403", resp.StatusCode)
	}
	if res.Success || res.Error != "NEED_API_KEY" {
		t.Errorf("over-cap result = %+v", res)
	}
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/nope")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
