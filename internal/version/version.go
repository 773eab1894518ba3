// Package version exposes the embedded release version.
package version

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var versionContent string

// Get returns the current version with surrounding whitespace trimmed.
func Get() string {
	return strings.TrimSpace(versionContent)
}

// UserAgent returns an identifier suitable for HTTP User-Agent headers.
func UserAgent() string {
	return "taskforge/" + Get()
}
