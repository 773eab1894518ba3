package intent

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"taskforge/pkg/models"
)

func TestAnalyzeCategories(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantType  string
		wantAgent string
	}{
		{"code generation", "write a function to sort a list", models.IntentCodeGeneration, "codegen"},
		{"implement keyword", "implement a linked list", models.IntentCodeGeneration, "codegen"},
		{"testing", "test this module for regressions", models.IntentTesting, "checker"},
		{"documentation", "explain how the cache works", models.IntentDocumentation, "planner"},
		{"analysis", "analyze the data pipeline", models.IntentAnalysis, "planner"},
		{"security", "run a security audit of the login flow", models.IntentSecurity, "planner"},
		{"deployment", "deploy the billing service", models.IntentDeployment, "planner"},
		{"monitoring", "monitor memory usage over time", models.IntentMonitoring, "planner"},
	}

	c := NewClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, cached := c.Analyze(tt.text)
			if cached {
				t.Error("first call should not be cached")
			}
			if got.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", got.Type, tt.wantType)
			}
			if got.AgentTarget != tt.wantAgent {
				t.Errorf("AgentTarget = %q, want %q", got.AgentTarget, tt.wantAgent)
			}
			if got.Confidence <= 0 || got.Confidence > 1 {
				t.Errorf("Confidence = %v, want (0, 1]", got.Confidence)
			}
		})
	}
}

func TestAnalyzeGeneralFallback(t *testing.T) {
	c := NewClassifier()
	got, _ := c.Analyze("hello there")
	if got.Type != models.IntentGeneral {
		t.Errorf("Type = %q, want general", got.Type)
	}
	if got.Confidence != 0.5 {
		t.Errorf("Confidence = %v, want 0.5", got.Confidence)
	}
}

func TestAnalyzeCaching(t *testing.T) {
	c := NewClassifier()
	text := "write a function to parse dates"

	first, cached := c.Analyze(text)
	if cached {
		t.Fatal("first call reported as cached")
	}
	second, cached := c.Analyze(text)
	if !cached {
		t.Fatal("second call not served from cache")
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("cached result differs (-first +second):\n%s", diff)
	}

	if n := c.ClearCache(); n != 1 {
		t.Errorf("ClearCache() = %d, want 1", n)
	}
	if c.CacheSize() != 0 {
		t.Errorf("CacheSize() = %d after clear, want 0", c.CacheSize())
	}
}

func TestCacheBounded(t *testing.T) {
	c := NewClassifier()
	for i := 0; i < maxCacheEntries+25; i++ {
		c.Analyze(fmt.Sprintf("request number %d", i))
	}
	if size := c.CacheSize(); size > maxCacheEntries {
		t.Errorf("CacheSize() = %d, want <= %d", size, maxCacheEntries)
	}
}

func TestExtractEntities(t *testing.T) {
	e := ExtractEntities("Create main.py in python with 3 react components")

	wantFiles := []string{"main.py"}
	if diff := cmp.Diff(wantFiles, e.Files); diff != "" {
		t.Errorf("Files mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"python"}, e.Languages); diff != "" {
		t.Errorf("Languages mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"react"}, e.Technologies); diff != "" {
		t.Errorf("Technologies mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{3}, e.Numbers); diff != "" {
		t.Errorf("Numbers mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"create"}, e.Actions); diff != "" {
		t.Errorf("Actions mismatch (-want +got):\n%s", diff)
	}
}

func TestAssessComplexity(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"keyword high", "build an enterprise data platform", models.ComplexityHigh},
		{"keyword low", "a simple script", models.ComplexityLow},
		{"short text low", "parse logs", models.ComplexityLow},
		{"medium by length", "one two three four five six seven eight nine ten eleven twelve thirteen fourteen fifteen sixteen seventeen eighteen nineteen twenty plusone", models.ComplexityMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := assessComplexity(tt.text); got != tt.want {
				t.Errorf("assessComplexity(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestEstimatePriority(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		intent string
		want   int
	}{
		{"urgent", "fix this now, it is urgent", models.IntentGeneral, 9},
		{"important", "important cleanup work", models.IntentGeneral, 7},
		{"low", "optional refactoring for later", models.IntentGeneral, 3},
		{"security default", "harden the endpoint", models.IntentSecurity, 6},
		{"testing default", "exercise the parser", models.IntentTesting, 6},
		{"plain default", "summarize the report", models.IntentGeneral, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := estimatePriority(tt.text, tt.intent); got != tt.want {
				t.Errorf("estimatePriority() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEstimateSeconds(t *testing.T) {
	tests := []struct {
		complexity string
		intent     string
		want       int
	}{
		{models.ComplexityLow, models.IntentCodeGeneration, 168},
		{models.ComplexityMedium, models.IntentCodeGeneration, 240},
		{models.ComplexityHigh, models.IntentCodeGeneration, 360},
		{models.ComplexityMedium, "unknown", 180},
		{models.ComplexityHigh, models.IntentMonitoring, 90},
	}

	for _, tt := range tests {
		name := tt.intent + "/" + tt.complexity
		t.Run(name, func(t *testing.T) {
			if got := estimateSeconds(tt.complexity, tt.intent); got != tt.want {
				t.Errorf("estimateSeconds() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseToTask(t *testing.T) {
	c := NewClassifier()
	task, result := c.ParseToTask("generate a python script to fetch urls", "")

	if task.ID == "" {
		t.Error("task ID should be set")
	}
	if task.Type != "codegen" {
		t.Errorf("Type = %q, want codegen", task.Type)
	}
	if task.AgentTarget != "codegen" {
		t.Errorf("AgentTarget = %q, want codegen", task.AgentTarget)
	}
	if task.Metadata == nil || task.Metadata.Confidence != result.Confidence {
		t.Error("metadata should carry the classifier confidence")
	}

	// An explicit target overrides the suggestion.
	task, _ = c.ParseToTask("generate a python script to fetch urls", "patcher")
	if task.AgentTarget != "patcher" {
		t.Errorf("AgentTarget = %q, want patcher", task.AgentTarget)
	}
}
