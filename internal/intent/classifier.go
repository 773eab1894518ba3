// Package intent implements pattern-based intent classification for
// natural-language requests: category scoring, entity extraction,
// complexity and priority assessment, and task structure generation.
package intent

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskforge/pkg/models"
)

// maxCacheEntries bounds the classifier's result cache.
const maxCacheEntries = 100

// category pairs an intent type with its recognition patterns. The
// slice below is ordered; equal scores resolve to the earlier entry.
type category struct {
	name     string
	patterns []*regexp.Regexp
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(e))
	}
	return out
}

var categories = []category{
	{models.IntentCodeGeneration, compileAll(
		`(write|create|generate|build).*?(code|function|class|script|program)`,
		`implement.*`,
		`develop.*`,
		`program.*`,
	)},
	{models.IntentTesting, compileAll(
		`test.*`,
		`run.*test`,
		`verify.*`,
		`check.*`,
		`validate.*`,
	)},
	{models.IntentDocumentation, compileAll(
		`(document|docs|documentation).*`,
		`explain.*`,
		`describe.*`,
		`create.*documentation`,
	)},
	{models.IntentAnalysis, compileAll(
		`(analyze|examine|investigate|review).*`,
		`find.*(bugs|issues|problems)`,
		`(scan|search|look).*`,
	)},
	{models.IntentSecurity, compileAll(
		`(secure|protect|guard).*`,
		`.*(security|vulnerabilities|audit).*`,
		`check.*(security|vulnerabilities)`,
	)},
	{models.IntentDeployment, compileAll(
		`(deploy|release|publish).*`,
		`(setup|configure|install).*`,
		`(start|launch|run).*(server|service|application)`,
	)},
	{models.IntentMonitoring, compileAll(
		`(monitor|watch|track).*`,
		`(observe|log|record).*`,
		`check.*(status|health|performance)`,
	)},
}

var (
	filePattern   = regexp.MustCompile(`\b\w+\.\w+\b`)
	numberPattern = regexp.MustCompile(`\b\d+\b`)
)

var knownLanguages = []string{"python", "javascript", "java", "c++", "c#", "go", "rust", "typescript"}

var knownTechnologies = []string{"react", "vue", "angular", "django", "flask", "express", "spring", "docker"}

var actionVerbs = []string{"create", "build", "test", "deploy", "fix", "update", "delete", "analyze"}

var complexityIndicators = []struct {
	level string
	words []string
}{
	{models.ComplexityHigh, []string{"complex", "advanced", "enterprise", "production", "scalable", "distributed"}},
	{models.ComplexityMedium, []string{"moderate", "standard", "typical", "regular", "normal"}},
	{models.ComplexityLow, []string{"simple", "basic", "quick", "easy", "minimal", "small"}},
}

// baseTimes are per-intent execution time estimates in seconds.
var baseTimes = map[string]int{
	models.IntentCodeGeneration: 240,
	models.IntentTesting:        180,
	models.IntentDocumentation:  300,
	models.IntentAnalysis:       120,
	models.IntentSecurity:       180,
	models.IntentDeployment:     300,
	models.IntentMonitoring:     60,
}

// intentAgents routes each intent category to an agent.
var intentAgents = map[string]string{
	models.IntentCodeGeneration: "codegen",
	models.IntentTesting:        "checker",
	models.IntentDocumentation:  "planner",
	models.IntentAnalysis:       "planner",
	models.IntentSecurity:       "planner",
	models.IntentDeployment:     "planner",
	models.IntentMonitoring:     "planner",
}

// taskTypes maps intent categories to task type names.
var taskTypes = map[string]string{
	models.IntentCodeGeneration: "codegen",
	models.IntentTesting:        "testing",
	models.IntentDocumentation:  "documentation",
	models.IntentAnalysis:       "analysis",
	models.IntentSecurity:       "security",
	models.IntentDeployment:     "deployment",
	models.IntentMonitoring:     "monitoring",
}

// Classifier analyzes request text. Results are cached by content
// hash; the cache is bounded and only emptied by ClearCache.
type Classifier struct {
	mu    sync.Mutex
	cache map[string]models.Intent
}

// NewClassifier creates a classifier with an empty cache.
func NewClassifier() *Classifier {
	return &Classifier{cache: make(map[string]models.Intent)}
}

// Analyze classifies text into an intent. The second return value is
// true when the result came from the cache.
func (c *Classifier) Analyze(text string) (models.Intent, bool) {
	key := cacheKey(text)

	c.mu.Lock()
	if cached, ok := c.cache[key]; ok {
		c.mu.Unlock()
		return cached, true
	}
	c.mu.Unlock()

	intentType, confidence := scoreIntent(text)
	entities := ExtractEntities(text)
	complexity := assessComplexity(text)

	result := models.Intent{
		Type:             intentType,
		Confidence:       confidence,
		Entities:         entities,
		AgentTarget:      suggestAgent(intentType, entities),
		Priority:         estimatePriority(text, intentType),
		Complexity:       complexity,
		EstimatedSeconds: estimateSeconds(complexity, intentType),
	}

	c.mu.Lock()
	if len(c.cache) < maxCacheEntries {
		c.cache[key] = result
	}
	c.mu.Unlock()

	return result, false
}

// ParseToTask converts request text into a routable task. A non-empty
// targetAgent overrides the classifier's suggestion.
func (c *Classifier) ParseToTask(text, targetAgent string) (models.Task, models.Intent) {
	result, _ := c.Analyze(text)

	agent := targetAgent
	if agent == "" {
		agent = result.AgentTarget
	}
	if agent == "" {
		agent = "planner"
	}

	taskType, ok := taskTypes[result.Type]
	if !ok {
		taskType = result.Type
	}

	task := models.Task{
		ID:          "task_" + uuid.New().String()[:8],
		Type:        taskType,
		Description: text,
		AgentTarget: agent,
		Priority:    result.Priority,
		Input:       text,
		CreatedAt:   time.Now().UTC(),
		Metadata: &models.TaskMetadata{
			Confidence:       result.Confidence,
			OriginalText:     text,
			Complexity:       result.Complexity,
			EstimatedSeconds: result.EstimatedSeconds,
		},
	}
	return task, result
}

// CacheSize returns the number of cached results.
func (c *Classifier) CacheSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}

// ClearCache empties the cache and returns how many entries it held.
func (c *Classifier) ClearCache() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.cache)
	c.cache = make(map[string]models.Intent)
	return n
}

// SupportedIntents lists the recognized categories in scoring order.
func SupportedIntents() []string {
	out := make([]string, len(categories))
	for i, cat := range categories {
		out[i] = cat.name
	}
	return out
}

func cacheKey(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

// scoreIntent scores each category by the fraction of its patterns
// that match. Ties resolve to the earlier category; no match at all
// falls back to general with confidence 0.5.
func scoreIntent(text string) (string, float64) {
	lower := strings.ToLower(text)

	best := models.IntentGeneral
	bestScore := 0.0
	for _, cat := range categories {
		matched := 0
		for _, p := range cat.patterns {
			if p.MatchString(lower) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		score := float64(matched) / float64(len(cat.patterns))
		if score > bestScore {
			best = cat.name
			bestScore = score
		}
	}

	if best == models.IntentGeneral {
		return models.IntentGeneral, 0.5
	}
	return best, bestScore
}

// ExtractEntities pulls file names, languages, technologies, numbers,
// and action verbs out of the text.
func ExtractEntities(text string) models.Entities {
	lower := strings.ToLower(text)
	var e models.Entities

	e.Files = filePattern.FindAllString(text, -1)

	for _, lang := range knownLanguages {
		if strings.Contains(lower, lang) {
			e.Languages = append(e.Languages, lang)
		}
	}
	for _, tech := range knownTechnologies {
		if strings.Contains(lower, tech) {
			e.Technologies = append(e.Technologies, tech)
		}
	}
	for _, raw := range numberPattern.FindAllString(text, -1) {
		if n, err := strconv.Atoi(raw); err == nil {
			e.Numbers = append(e.Numbers, n)
		}
	}
	for _, verb := range actionVerbs {
		if strings.Contains(lower, verb) {
			e.Actions = append(e.Actions, verb)
		}
	}
	return e
}

// assessComplexity checks indicator keywords first, then falls back to
// word count (>50 high, >20 medium, else low).
func assessComplexity(text string) string {
	lower := strings.ToLower(text)
	for _, ind := range complexityIndicators {
		for _, w := range ind.words {
			if strings.Contains(lower, w) {
				return ind.level
			}
		}
	}

	words := len(strings.Fields(text))
	switch {
	case words > 50:
		return models.ComplexityHigh
	case words > 20:
		return models.ComplexityMedium
	default:
		return models.ComplexityLow
	}
}

// estimatePriority maps urgency keywords to 9/7/3, security and
// testing intents to 6, and everything else to 5.
func estimatePriority(text, intentType string) int {
	lower := strings.ToLower(text)

	for _, w := range []string{"urgent", "critical", "emergency", "asap", "immediately", "now"} {
		if strings.Contains(lower, w) {
			return 9
		}
	}
	for _, w := range []string{"important", "high", "priority", "soon", "quickly"} {
		if strings.Contains(lower, w) {
			return 7
		}
	}
	for _, w := range []string{"later", "when possible", "low priority", "optional"} {
		if strings.Contains(lower, w) {
			return 3
		}
	}
	if intentType == models.IntentSecurity || intentType == models.IntentTesting {
		return 6
	}
	return 5
}

// estimateSeconds multiplies the per-intent base time by the
// complexity factor (0.7 low, 1.0 medium, 1.5 high).
func estimateSeconds(complexity, intentType string) int {
	base, ok := baseTimes[intentType]
	if !ok {
		base = 180
	}

	mult := 1.0
	switch complexity {
	case models.ComplexityLow:
		mult = 0.7
	case models.ComplexityHigh:
		mult = 1.5
	}
	return int(float64(base) * mult)
}

// suggestAgent picks an agent for the intent type, falling back to
// entity hints and finally the planner.
func suggestAgent(intentType string, entities models.Entities) string {
	if agent, ok := intentAgents[intentType]; ok {
		return agent
	}
	if len(entities.Files) > 0 {
		return "planner"
	}
	if len(entities.Languages) > 0 {
		return "codegen"
	}
	return "planner"
}
