// Package patcher applies heuristic textual repairs to generated
// Python code. The rewrites run in a fixed order and never fail; code
// they cannot improve passes through unchanged.
package patcher

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Result holds the outcome of a patch run.
type Result struct {
	Original     string   `json:"original_code"`
	Patched      string   `json:"patched_code"`
	FixesApplied []string `json:"fixes_applied"`
	// ArtifactPath is set once the result has been written to disk.
	ArtifactPath string `json:"artifact_path,omitempty"`
}

// Changed reports whether any rewrite altered the code.
func (r Result) Changed() bool {
	return r.Original != r.Patched
}

var (
	blankRunPattern = regexp.MustCompile(`\n\n\n+`)

	colonPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?m)^(\s*if\s+[^:\n]+)$`),
		regexp.MustCompile(`(?m)^(\s*for\s+[^:\n]+)$`),
		regexp.MustCompile(`(?m)^(\s*while\s+[^:\n]+)$`),
		regexp.MustCompile(`(?m)^(\s*def\s+\w+\([^)\n]*\))$`),
		regexp.MustCompile(`(?m)^(\s*class\s+\w+(?:\([^)\n]*\))?)$`),
	}
)

// Apply runs every rewrite in order: trailing whitespace, blank-line
// runs, reindentation, missing colons, bare pass bodies, and missing
// imports.
func Apply(code string) Result {
	res := Result{Original: code}
	patched := code

	patched = stripTrailingWhitespace(patched)
	res.FixesApplied = append(res.FixesApplied, "Removed trailing whitespace")

	patched = collapseBlankRuns(patched)
	res.FixesApplied = append(res.FixesApplied, "Collapsed blank line runs")

	patched = reindent(patched)
	res.FixesApplied = append(res.FixesApplied, "Fixed indentation")

	patched = appendMissingColons(patched)
	res.FixesApplied = append(res.FixesApplied, "Added missing colons")

	if replaced := replaceBarePass(patched); replaced != patched {
		patched = replaced
		res.FixesApplied = append(res.FixesApplied, "Replaced bare pass statements")
	}

	if withImports := prependMissingImports(patched); withImports != patched {
		patched = withImports
		res.FixesApplied = append(res.FixesApplied, "Added missing imports")
	}

	res.Patched = patched
	return res
}

// WriteResult persists the result as JSON under dir and records the
// artifact path on the returned copy.
func WriteResult(dir string, res Result) (Result, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return res, fmt.Errorf("create patch directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("patch_%d.json", time.Now().UnixNano()))
	res.ArtifactPath = path

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return res, fmt.Errorf("marshal patch result: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return res, fmt.Errorf("write patch result: %w", err)
	}
	return res, nil
}

func stripTrailingWhitespace(code string) string {
	lines := strings.Split(code, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}

func collapseBlankRuns(code string) string {
	return blankRunPattern.ReplaceAllString(code, "\n\n")
}

// reindent rebuilds indentation from scratch: dedent before
// else/elif/except/finally, indent one level after a line ending with
// a colon.
func reindent(code string) string {
	lines := strings.Split(code, "\n")
	out := make([]string, 0, len(lines))
	level := 0

	for _, line := range lines {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			out = append(out, "")
			continue
		}

		if hasDedentKeyword(stripped) && level > 0 {
			level--
		}

		out = append(out, strings.Repeat("    ", level)+stripped)

		if strings.HasSuffix(stripped, ":") {
			level++
		}
	}
	return strings.Join(out, "\n")
}

func hasDedentKeyword(stripped string) bool {
	for _, kw := range []string{"elif", "else", "except", "finally"} {
		if strings.HasPrefix(stripped, kw) {
			return true
		}
	}
	return false
}

func appendMissingColons(code string) string {
	for _, p := range colonPatterns {
		code = p.ReplaceAllString(code, "$1:")
	}
	return code
}

// replaceBarePass swaps `pass` for `return None` inside function
// bodies. Tracking is line based: a def opens a function, the next
// unindented non-blank line closes it.
func replaceBarePass(code string) string {
	lines := strings.Split(code, "\n")
	inFunction := false

	for i, line := range lines {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "def ") {
			inFunction = true
			continue
		}
		if inFunction && stripped == "pass" {
			lines[i] = strings.Replace(line, "pass", "return None", 1)
			continue
		}
		if stripped != "" && !strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t") {
			inFunction = false
		}
	}
	return strings.Join(lines, "\n")
}

// prependMissingImports adds imports for modules the code references
// without importing.
func prependMissingImports(code string) string {
	var missing []string

	if strings.Contains(code, "json.") && !strings.Contains(code, "import json") {
		missing = append(missing, "import json")
	}
	if strings.Contains(code, "os.") && !strings.Contains(code, "import os") {
		missing = append(missing, "import os")
	}
	if strings.Contains(code, "sys.") && !strings.Contains(code, "import sys") {
		missing = append(missing, "import sys")
	}
	if strings.Contains(code, "datetime") && !strings.Contains(code, "import datetime") &&
		!strings.Contains(code, "from datetime") {
		missing = append(missing, "from datetime import datetime")
	}

	if len(missing) == 0 {
		return code
	}
	return strings.Join(missing, "\n") + "\n\n" + code
}
