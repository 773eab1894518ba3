// Package planner produces lightweight engineering analyses for a
// task before code generation runs: extracted requirements, system
// concerns, an architecture recommendation, canned planning steps and
// an optional file plan.
package planner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Requirement is one requirement extracted from free-form text.
type Requirement struct {
	ID          string `json:"requirement_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Priority    string `json:"priority"`
}

// Component is a suggested architectural building block.
type Component struct {
	ID           string   `json:"component_id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Type         string   `json:"type"`
	Technologies []string `json:"technologies"`
}

// PatternInfo describes one architecture pattern.
type PatternInfo struct {
	Description string   `json:"description"`
	Benefits    []string `json:"benefits"`
	UseCases    []string `json:"use_cases"`
}

// Architecture is the recommendation block of an analysis.
type Architecture struct {
	Pattern    string      `json:"recommended_pattern"`
	Info       PatternInfo `json:"pattern_info"`
	Reasoning  string      `json:"reasoning"`
	Components []Component `json:"basic_components"`
}

// Analysis is the full outcome of Analyze.
type Analysis struct {
	ID           string              `json:"analysis_id"`
	ProjectType  string              `json:"project_type"`
	Description  string              `json:"description"`
	Requirements []Requirement       `json:"requirements"`
	Concerns     map[string][]string `json:"system_concerns"`
	Architecture Architecture        `json:"architecture_recommendation"`
	NextSteps    []string            `json:"next_steps"`
	Timestamp    time.Time           `json:"analysis_timestamp"`
}

// PlannedFile is one entry of a file plan.
type PlannedFile struct {
	Path        string `json:"path"`
	Description string `json:"description"`
	Language    string `json:"language"`
}

type concernPattern struct {
	name string
	re   *regexp.Regexp
}

var concernPatterns = []concernPattern{
	{"scalability", regexp.MustCompile(`(scale|load|performance|users)`)},
	{"security", regexp.MustCompile(`(security|auth|secure)`)},
	{"reliability", regexp.MustCompile(`(reliable|backup|uptime)`)},
	{"maintainability", regexp.MustCompile(`(maintain|update|modify)`)},
	{"integration", regexp.MustCompile(`(integrate|api|connect)`)},
}

var designPatterns = map[string]PatternInfo{
	"microservices": {
		Description: "Distributed architecture with independent services",
		Benefits:    []string{"scalability", "maintainability", "technology_diversity"},
		UseCases:    []string{"large_teams", "complex_domains", "independent_deployment"},
	},
	"monolithic": {
		Description: "Single deployable unit architecture",
		Benefits:    []string{"simplicity", "easier_testing", "single_deployment"},
		UseCases:    []string{"small_teams", "simple_domains", "rapid_prototyping"},
	},
	"layered": {
		Description: "Hierarchical organization of components",
		Benefits:    []string{"separation_of_concerns", "reusability", "testability"},
		UseCases:    []string{"traditional_applications", "clear_boundaries", "team_structure"},
	},
}

var planningTemplates = map[string][]string{
	"web_application": {
		"requirements_analysis", "basic_design", "technology_selection",
		"development_planning", "testing_approach",
	},
	"api_service": {
		"requirements_analysis", "api_design", "authentication_planning",
		"testing_strategy", "deployment_basics",
	},
	"data_processing": {
		"data_analysis", "processing_design", "storage_planning",
		"scheduling_approach", "monitoring_basics",
	},
}

var stepDescriptions = map[string]string{
	"requirements_analysis": "Gather and document functional and non-functional requirements",
	"basic_design":          "Create high-level system design and component structure",
	"technology_selection":  "Choose appropriate technologies based on requirements",
	"development_planning":  "Plan development phases and milestones",
	"testing_approach":      "Define testing strategy and quality assurance",
}

var (
	nonFunctionalKeywords = []string{"performance", "security", "usability", "reliability"}
	highPriorityKeywords  = []string{"critical", "must", "essential"}
	lowPriorityKeywords   = []string{"nice to have", "optional", "could"}
)

// Planner performs the analyses. The zero value is ready to use.
type Planner struct{}

// New returns a ready Planner.
func New() *Planner { return &Planner{} }

// Analyze builds a full analysis of a task description.
func (p *Planner) Analyze(description, projectType string) Analysis {
	if projectType == "" {
		projectType = "general"
	}
	now := time.Now().UTC()
	concerns := p.analyzeConcerns(description)
	return Analysis{
		ID:           "analysis_" + now.Format("20060102_150405"),
		ProjectType:  projectType,
		Description:  description,
		Requirements: p.ExtractRequirements(description),
		Concerns:     concerns,
		Architecture: p.recommendArchitecture(projectType, concerns),
		NextSteps:    p.PlanningSteps(projectType),
		Timestamp:    now,
	}
}

// ExtractRequirements splits a description into sentences and
// classifies each one by type and priority.
func (p *Planner) ExtractRequirements(description string) []Requirement {
	var reqs []Requirement
	for i, sentence := range strings.Split(description, ".") {
		s := strings.TrimSpace(sentence)
		if s == "" {
			continue
		}
		lower := strings.ToLower(s)

		reqType := "functional"
		if containsAny(lower, nonFunctionalKeywords) {
			reqType = "non_functional"
		}

		priority := "medium"
		if containsAny(lower, highPriorityKeywords) {
			priority = "high"
		} else if containsAny(lower, lowPriorityKeywords) {
			priority = "low"
		}

		reqs = append(reqs, Requirement{
			ID:          fmt.Sprintf("req_%d", i+1),
			Title:       fmt.Sprintf("Requirement %d", i+1),
			Description: s,
			Type:        reqType,
			Priority:    priority,
		})
	}
	return reqs
}

// analyzeConcerns matches concern regexes against the description and
// returns the distinct keywords each one captured.
func (p *Planner) analyzeConcerns(description string) map[string][]string {
	lower := strings.ToLower(description)
	concerns := make(map[string][]string, len(concernPatterns))
	for _, cp := range concernPatterns {
		seen := map[string]bool{}
		var hits []string
		for _, m := range cp.re.FindAllString(lower, -1) {
			if !seen[m] {
				seen[m] = true
				hits = append(hits, m)
			}
		}
		sort.Strings(hits)
		concerns[cp.name] = hits
	}
	return concerns
}

func (p *Planner) recommendArchitecture(projectType string, concerns map[string][]string) Architecture {
	pattern := "monolithic"
	switch {
	case len(concerns["scalability"]) > 0 &&
		(projectType == "web_application" || projectType == "api_service"):
		pattern = "microservices"
	case projectType == "data_processing":
		pattern = "layered"
	}
	return Architecture{
		Pattern:    pattern,
		Info:       designPatterns[pattern],
		Reasoning:  fmt.Sprintf("Based on project type %q and identified concerns", projectType),
		Components: suggestComponents(projectType),
	}
}

// PlanningSteps returns the canned step list for a project type.
func (p *Planner) PlanningSteps(projectType string) []string {
	if steps, ok := planningTemplates[projectType]; ok {
		return steps
	}
	return []string{
		"requirements_analysis", "basic_design", "technology_selection",
		"development_planning", "testing_approach",
	}
}

// Patterns returns the known architecture patterns.
func (p *Planner) Patterns() map[string]PatternInfo { return designPatterns }

// PlanFiles turns a description into a concrete file plan. Known
// shapes get dedicated plans; anything else a single main module.
func (p *Planner) PlanFiles(description string) []PlannedFile {
	lower := strings.ToLower(description)
	switch {
	case strings.Contains(lower, "calculator"):
		return []PlannedFile{
			{Path: "calculator.py", Description: "Calculator operations: add, subtract, multiply, divide with zero-division handling", Language: "python"},
			{Path: "cli.py", Description: "Command line entry point that reads two operands and an operator, prints the result", Language: "python"},
			{Path: "test_calculator.py", Description: "Unit tests covering each calculator operation and the division by zero case", Language: "python"},
		}
	case strings.Contains(lower, "landing page") || strings.Contains(lower, "landing-page"):
		return []PlannedFile{
			{Path: "index.html", Description: "Landing page markup with hero section, feature list and contact form for: " + description, Language: "html"},
			{Path: "styles.css", Description: "Responsive stylesheet for the landing page layout", Language: "css"},
			{Path: "script.js", Description: "Form validation and smooth scrolling behavior for the landing page", Language: "javascript"},
		}
	default:
		return []PlannedFile{
			{Path: "main.py", Description: description, Language: "python"},
		}
	}
}

func suggestComponents(projectType string) []Component {
	switch projectType {
	case "web_application":
		return []Component{
			{ID: "comp_1", Name: "Frontend Application", Description: "User interface and client-side logic", Type: "ui", Technologies: []string{"React", "Vue.js", "Angular"}},
			{ID: "comp_2", Name: "Backend API", Description: "Server-side logic and API endpoints", Type: "api", Technologies: []string{"Node.js", "Python FastAPI", "Java Spring"}},
			{ID: "comp_3", Name: "Database", Description: "Data storage and persistence", Type: "database", Technologies: []string{"PostgreSQL", "MongoDB", "SQLite"}},
		}
	case "api_service":
		return []Component{
			{ID: "comp_1", Name: "API Server", Description: "RESTful API service", Type: "service", Technologies: []string{"FastAPI", "Express.js", "Spring Boot"}},
			{ID: "comp_2", Name: "Authentication Module", Description: "User authentication and authorization", Type: "service", Technologies: []string{"JWT", "OAuth2", "Basic Auth"}},
		}
	case "data_processing":
		return []Component{
			{ID: "comp_1", Name: "Data Ingestion", Description: "Data input and validation", Type: "service", Technologies: []string{"Python Pandas", "Node.js Streams"}},
			{ID: "comp_2", Name: "Processing Engine", Description: "Data transformation and analysis", Type: "service", Technologies: []string{"Python", "JavaScript", "Java"}},
			{ID: "comp_3", Name: "Output Storage", Description: "Processed data storage", Type: "database", Technologies: []string{"Database", "File System", "Cloud Storage"}},
		}
	default:
		return nil
	}
}

// WriteArtifacts persists the analysis into dir as summary.json,
// summary.md, spec.json and plan.json. It returns the paths written;
// a failed file is skipped rather than aborting the set.
func (p *Planner) WriteArtifacts(dir string, a Analysis) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create engineering directory: %w", err)
	}

	specArtifact := map[string]any{
		"project_type": a.ProjectType,
		"spec": map[string]any{
			"description":  a.Description,
			"requirements": a.Requirements,
		},
		"derived_concerns": a.Concerns,
	}
	descriptions := make(map[string]string, len(a.NextSteps))
	for _, step := range a.NextSteps {
		if d, ok := stepDescriptions[step]; ok {
			descriptions[step] = d
		}
	}
	planArtifact := map[string]any{
		"project_type":      a.ProjectType,
		"steps":             a.NextSteps,
		"step_descriptions": descriptions,
	}

	files := []struct {
		name    string
		content any
	}{
		{"summary.json", a},
		{"summary.md", renderSummaryMarkdown(a)},
		{"spec.json", specArtifact},
		{"plan.json", planArtifact},
	}

	var written []string
	var firstErr error
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		var data []byte
		if s, ok := f.content.(string); ok {
			data = []byte(s)
		} else {
			var err error
			data, err = json.MarshalIndent(f.content, "", "  ")
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("marshal %s: %w", f.name, err)
				}
				continue
			}
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("write %s: %w", f.name, err)
			}
			continue
		}
		written = append(written, path)
	}
	return written, firstErr
}

func renderSummaryMarkdown(a Analysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Analysis Summary: %s\n\n", a.ProjectType)
	fmt.Fprintf(&b, "Analysis ID: %s\n", a.ID)
	fmt.Fprintf(&b, "Timestamp: %s\n\n", a.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&b, "## Architecture Recommendation\n")
	fmt.Fprintf(&b, "Pattern: %s\n\n", a.Architecture.Pattern)
	fmt.Fprintf(&b, "## Next Steps\n")
	for _, step := range a.NextSteps {
		fmt.Fprintf(&b, "- %s\n", step)
	}
	return b.String()
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
