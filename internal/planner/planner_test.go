package planner

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtractRequirements(t *testing.T) {
	p := New()
	desc := "The system must store user accounts. Performance should stay responsive. Dark mode is optional."
	reqs := p.ExtractRequirements(desc)
	if len(reqs) != 3 {
		t.Fatalf("got %d requirements, want 3", len(reqs))
	}

	if reqs[0].Type != "functional" || reqs[0].Priority != "high" {
		t.Errorf("first requirement = %s/%s, want functional/high", reqs[0].Type, reqs[0].Priority)
	}
	if reqs[1].Type != "non_functional" || reqs[1].Priority != "medium" {
		t.Errorf("second requirement = %s/%s, want non_functional/medium", reqs[1].Type, reqs[1].Priority)
	}
	if reqs[2].Priority != "low" {
		t.Errorf("third requirement priority = %s, want low", reqs[2].Priority)
	}
	if reqs[0].ID != "req_1" {
		t.Errorf("ID = %s, want req_1", reqs[0].ID)
	}
}

func TestExtractRequirementsEmpty(t *testing.T) {
	if reqs := New().ExtractRequirements(""); len(reqs) != 0 {
		t.Errorf("got %d requirements from empty description", len(reqs))
	}
}

func TestAnalyzeConcerns(t *testing.T) {
	a := New().Analyze("Build a secure api that can scale to many users", "api_service")
	if diff := cmp.Diff([]string{"scale", "users"}, a.Concerns["scalability"]); diff != "" {
		t.Errorf("scalability mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"secure"}, a.Concerns["security"]); diff != "" {
		t.Errorf("security mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"api"}, a.Concerns["integration"]); diff != "" {
		t.Errorf("integration mismatch (-want +got):\n%s", diff)
	}
}

func TestRecommendArchitecture(t *testing.T) {
	p := New()
	tests := []struct {
		name        string
		description string
		projectType string
		want        string
	}{
		{"scalable web app", "must scale under load", "web_application", "microservices"},
		{"scalable but generic", "must scale under load", "general", "monolithic"},
		{"data processing", "transform records", "data_processing", "layered"},
		{"plain", "do a thing", "web_application", "monolithic"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := p.Analyze(tt.description, tt.projectType)
			if a.Architecture.Pattern != tt.want {
				t.Errorf("pattern = %s, want %s", a.Architecture.Pattern, tt.want)
			}
			if a.Architecture.Info.Description == "" {
				t.Error("pattern info not attached")
			}
		})
	}
}

func TestPlanningSteps(t *testing.T) {
	p := New()
	if steps := p.PlanningSteps("api_service"); steps[1] != "api_design" {
		t.Errorf("api_service steps = %v", steps)
	}
	if steps := p.PlanningSteps("unknown"); len(steps) != 5 || steps[0] != "requirements_analysis" {
		t.Errorf("fallback steps = %v", steps)
	}
}

func TestPlanFiles(t *testing.T) {
	p := New()
	tests := []struct {
		name        string
		description string
		wantPaths   []string
	}{
		{"calculator", "Build a simple calculator", []string{"calculator.py", "cli.py", "test_calculator.py"}},
		{"landing page", "Create a landing page for a bakery", []string{"index.html", "styles.css", "script.js"}},
		{"generic", "Parse a log file", []string{"main.py"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := p.PlanFiles(tt.description)
			var got []string
			for _, f := range plan {
				got = append(got, f.Path)
			}
			if diff := cmp.Diff(tt.wantPaths, got); diff != "" {
				t.Errorf("plan mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWriteArtifacts(t *testing.T) {
	p := New()
	dir := filepath.Join(t.TempDir(), "engineering")
	a := p.Analyze("Build a secure api service. It must handle auth.", "api_service")

	written, err := p.WriteArtifacts(dir, a)
	if err != nil {
		t.Fatalf("WriteArtifacts: %v", err)
	}
	if len(written) != 4 {
		t.Fatalf("wrote %d files, want 4: %v", len(written), written)
	}

	data, err := os.ReadFile(filepath.Join(dir, "summary.json"))
	if err != nil {
		t.Fatalf("read summary.json: %v", err)
	}
	var decoded Analysis
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode summary.json: %v", err)
	}
	if decoded.ProjectType != "api_service" {
		t.Errorf("project type = %s", decoded.ProjectType)
	}

	md, err := os.ReadFile(filepath.Join(dir, "summary.md"))
	if err != nil {
		t.Fatalf("read summary.md: %v", err)
	}
	if !strings.Contains(string(md), "## Next Steps") {
		t.Errorf("summary.md missing steps section:\n%s", md)
	}
}
