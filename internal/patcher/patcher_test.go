package patcher

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestApplyTrailingWhitespace(t *testing.T) {
	res := Apply("x = 1   \ny = 2\t\n")
	if strings.Contains(res.Patched, " \n") || strings.Contains(res.Patched, "\t\n") {
		t.Errorf("trailing whitespace survived: %q", res.Patched)
	}
}

func TestApplyCollapsesBlankRuns(t *testing.T) {
	res := Apply("a = 1\n\n\n\n\nb = 2\n")
	if strings.Contains(res.Patched, "\n\n\n") {
		t.Errorf("blank run survived: %q", res.Patched)
	}
	if !strings.Contains(res.Patched, "a = 1\n\nb = 2") {
		t.Errorf("single blank line not preserved: %q", res.Patched)
	}
}

func TestApplyReindents(t *testing.T) {
	in := "def f(x):\nif x:\nreturn 1\nelse:\nreturn 2\n"
	res := Apply(in)
	want := "def f(x):\n    if x:\n        return 1\n    else:\n        return 2\n"
	if res.Patched != want {
		t.Errorf("reindent mismatch\n got: %q\nwant: %q", res.Patched, want)
	}
}

func TestApplyAddsMissingColons(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"if", "if x > 1\n    pass\n", "if x > 1:"},
		{"for", "for i in range(3)\n    pass\n", "for i in range(3):"},
		{"while", "while True\n    pass\n", "while True:"},
		{"def", "def f(a, b)\n    pass\n", "def f(a, b):"},
		{"class", "class Foo\n    pass\n", "class Foo:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Apply(tt.in)
			if !strings.Contains(res.Patched, tt.want) {
				t.Errorf("missing %q in %q", tt.want, res.Patched)
			}
		})
	}
}

func TestApplyReplacesBarePass(t *testing.T) {
	res := Apply("def f():\n    pass\n")
	if !strings.Contains(res.Patched, "return None") {
		t.Errorf("pass not replaced: %q", res.Patched)
	}
	if !containsFix(res, "Replaced bare pass statements") {
		t.Errorf("fix list missing pass entry: %v", res.FixesApplied)
	}
}

func TestApplyLeavesModuleLevelPassAlone(t *testing.T) {
	res := Apply("class Empty:\n    pass\n")
	if strings.Contains(res.Patched, "return None") {
		t.Errorf("class-level pass rewritten: %q", res.Patched)
	}
}

func TestApplyAddsMissingImports(t *testing.T) {
	res := Apply("data = json.dumps({})\npath = os.getcwd()\n")
	if !strings.HasPrefix(res.Patched, "import json\nimport os\n\n") {
		t.Errorf("imports not prepended: %q", res.Patched)
	}
}

func TestApplyImportAlreadyPresent(t *testing.T) {
	res := Apply("import json\n\ndata = json.dumps({})\n")
	if strings.Count(res.Patched, "import json") != 1 {
		t.Errorf("duplicate import added: %q", res.Patched)
	}
}

func TestApplyReachesFixedPoint(t *testing.T) {
	// The first pass may both add colons and reindent, so the fixed
	// point is only guaranteed from the second pass onward.
	in := "def f(x)\nif x\nreturn json.dumps(x)\n"
	second := Apply(Apply(in).Patched)
	third := Apply(second.Patched)
	if second.Patched != third.Patched {
		t.Errorf("third pass changed output\nsecond: %q\nthird:  %q", second.Patched, third.Patched)
	}
}

func TestWriteResult(t *testing.T) {
	dir := t.TempDir()
	res, err := WriteResult(filepath.Join(dir, "patches"), Apply("x = 1 \n"))
	if err != nil {
		t.Fatalf("WriteResult: %v", err)
	}
	if res.ArtifactPath == "" {
		t.Fatal("artifact path not recorded")
	}
	data, err := os.ReadFile(res.ArtifactPath)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if !strings.Contains(string(data), "patched_code") {
		t.Errorf("artifact missing patched_code field: %s", data)
	}
}

func containsFix(res Result, fix string) bool {
	for _, f := range res.FixesApplied {
		if f == fix {
			return true
		}
	}
	return false
}
