package models

// Intent categories recognized by the classifier, in scoring order.
const (
	IntentCodeGeneration = "code_generation"
	IntentTesting        = "testing"
	IntentDocumentation  = "documentation"
	IntentAnalysis       = "analysis"
	IntentSecurity       = "security"
	IntentDeployment     = "deployment"
	IntentMonitoring     = "monitoring"
	// IntentGeneral is the fallback when no category pattern matches.
	IntentGeneral = "general"
)

// Complexity levels assigned by the classifier.
const (
	ComplexityLow    = "low"
	ComplexityMedium = "medium"
	ComplexityHigh   = "high"
)

// Intent is the classifier's reading of a natural-language request.
type Intent struct {
	// Type is the intent category, or "general" when nothing matched.
	Type string `json:"intent_type"`
	// Confidence is the fraction of category patterns that matched,
	// or 0.5 for the general fallback.
	Confidence float64 `json:"confidence"`
	// Entities holds tokens extracted from the text.
	Entities Entities `json:"entities"`
	// AgentTarget is the suggested agent for this intent.
	AgentTarget string `json:"agent_target,omitempty"`
	// Priority ranges from 1 (lowest) to 10 (highest); default 5.
	Priority int `json:"priority"`
	// Complexity is low, medium, or high.
	Complexity string `json:"complexity"`
	// EstimatedSeconds is the estimated execution time.
	EstimatedSeconds int `json:"estimated_time,omitempty"`
}

// Entities are the tokens the classifier pulled out of a request.
type Entities struct {
	// Files lists file-like tokens (name.ext).
	Files []string `json:"files,omitempty"`
	// Languages lists recognized programming languages.
	Languages []string `json:"languages,omitempty"`
	// Technologies lists recognized frameworks and tools.
	Technologies []string `json:"technologies,omitempty"`
	// Numbers lists integer literals found in the text.
	Numbers []int `json:"numbers,omitempty"`
	// Actions lists recognized action verbs.
	Actions []string `json:"actions,omitempty"`
}

// Empty returns true when no entities were extracted.
func (e Entities) Empty() bool {
	return len(e.Files) == 0 && len(e.Languages) == 0 && len(e.Technologies) == 0 &&
		len(e.Numbers) == 0 && len(e.Actions) == 0
}
