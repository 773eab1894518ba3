package orchestrator

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// TaskSlug derives a stable directory name from a task description:
// the first eight alphanumeric words joined by dashes plus a short
// hash of the full text, capped at 56 characters.
func TaskSlug(description string) string {
	cleaned := strings.NewReplacer(",", " ", ".", " ").Replace(strings.ToLower(description))
	var words []string
	for _, w := range strings.Fields(cleaned) {
		if isAlnum(w) {
			words = append(words, w)
			if len(words) == 8 {
				break
			}
		}
	}
	base := "general-task"
	if len(words) > 0 {
		base = strings.Join(words, "-")
	}

	sum := sha1.Sum([]byte(description))
	slug := base + "_" + hex.EncodeToString(sum[:])[:8]
	if len(slug) > 56 {
		slug = slug[:56]
	}
	return slug
}

func isAlnum(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
