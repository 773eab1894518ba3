package config

import (
	"bufio"
	"os"
	"strings"
	"sync"
)

var dotenvOnce sync.Once

// LoadDotenv reads .env.local then .env from the working directory and
// sets any variables not already present in the process environment.
// Externally set variables always win. Safe to call more than once;
// only the first call does work.
func LoadDotenv() {
	dotenvOnce.Do(func() {
		for _, name := range []string{".env.local", ".env"} {
			loadDotenvFile(name)
		}
	})
}

// loadDotenvFile parses a single dotenv file. Parse errors are ignored
// so a malformed file never blocks startup.
func loadDotenvFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		val = strings.Trim(val, `"'`)
		if key == "" {
			continue
		}
		if _, exists := os.LookupEnv(key); !exists {
			os.Setenv(key, val)
		}
	}
}
