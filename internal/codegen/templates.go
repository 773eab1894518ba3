package codegen

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Template is one keyword-matched snippet inside a pack.
type Template struct {
	Match string `yaml:"match"`
	Code  string `yaml:"code"`
}

// TemplatePack is a user-supplied set of templates for one language,
// loaded from a YAML file. Packs are consulted before the built-in
// templates, in file name order.
type TemplatePack struct {
	Language  string     `yaml:"language"`
	Templates []Template `yaml:"templates"`
}

// LoadTemplatePacks reads every *.yaml and *.yml file in dir. A
// missing directory yields no packs and no error; a malformed file
// fails the whole load so broken packs do not silently vanish.
func LoadTemplatePacks(dir string) ([]TemplatePack, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read template directory: %w", err)
	}

	var packs []TemplatePack
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read template pack %s: %w", entry.Name(), err)
		}
		var pack TemplatePack
		if err := yaml.Unmarshal(data, &pack); err != nil {
			return nil, fmt.Errorf("parse template pack %s: %w", entry.Name(), err)
		}
		pack.Language = strings.ToLower(strings.TrimSpace(pack.Language))
		packs = append(packs, pack)
	}
	return packs, nil
}

// pythonTemplate picks a deterministic snippet by prompt keyword.
// The prompt must already be lower-cased.
func pythonTemplate(prompt string) string {
	switch {
	case strings.Contains(prompt, "prime"):
		return primeTemplate
	case strings.Contains(prompt, "calculator"):
		return calculatorTemplate
	case strings.Contains(prompt, "function") || strings.Contains(prompt, "def"):
		return functionTemplate
	case strings.Contains(prompt, "class"):
		return classTemplate
	case strings.Contains(prompt, "api") || strings.Contains(prompt, "fastapi"):
		return apiTemplate
	case strings.Contains(prompt, "test"):
		return testTemplate
	default:
		return fmt.Sprintf(genericTemplate, prompt, prompt)
	}
}

const primeTemplate = `# Generated Python code: Prime number utilities
from math import isqrt

def is_prime(n: int) -> bool:
    """Return True if n is a prime number (n >= 2)."""
    if n < 2:
        return False
    if n % 2 == 0:
        return n == 2
    limit = isqrt(n)
    f = 3
    while f <= limit:
        if n % f == 0:
            return False
        f += 2
    return True

def primes_up_to(limit: int) -> list[int]:
    """Return a list of all prime numbers up to and including 'limit'."""
    if limit < 2:
        return []
    primes = [2]
    for x in range(3, limit + 1, 2):
        if is_prime(x):
            primes.append(x)
    return primes

if __name__ == "__main__":
    # Example: print primes up to 1000
    print(primes_up_to(1000))
`

const calculatorTemplate = `# Generated Python code: Calculator operations

def add(a: float, b: float) -> float:
    """Return the sum of a and b."""
    return a + b

def subtract(a: float, b: float) -> float:
    """Return a minus b."""
    return a - b

def multiply(a: float, b: float) -> float:
    """Return the product of a and b."""
    return a * b

def divide(a: float, b: float) -> float:
    """Return a divided by b. Raises ValueError on division by zero."""
    if b == 0:
        raise ValueError("division by zero")
    return a / b

if __name__ == "__main__":
    print(add(2, 3))
`

const functionTemplate = `def example_function():
    """
    Generated function based on prompt.
    """
    # TODO: Implement function logic
    pass

    return "result"`

const classTemplate = `class ExampleClass:
    """
    Generated class based on prompt.
    """

    def __init__(self):
      # TODO: Initialize class
      pass

    def example_method(self):
      # TODO: Implement method
      return "result"`

const apiTemplate = `from fastapi import FastAPI

app = FastAPI()

@app.get("/")
def read_root():
    """Generated API endpoint."""
    return {"message": "Hello World"}

@app.get("/items/{item_id}")
def read_item(item_id: int):
    """Generated API endpoint with parameter."""
    return {"item_id": item_id}`

const testTemplate = `import unittest

class TestExample(unittest.TestCase):
    """Generated test class."""

    def test_example(self):
        """Generated test method."""
        # TODO: Implement test logic
        self.assertTrue(True)

    def setUp(self):
        """Set up test fixtures."""
        pass

if __name__ == '__main__':
    unittest.main()`

const genericTemplate = `# Generated Python code
# Task: %s

def main():
    """
    Main function to accomplish the task.
    """
    # TODO: Implement the requested functionality
    print("Task: %s")
    return True

if __name__ == "__main__":
    main()`
