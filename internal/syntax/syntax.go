// Package syntax validates generated source code. Go sources go
// through go/parser, Python and JavaScript through tree-sitter
// grammars, and everything else through a bracket balance scan.
package syntax

import (
	"context"
	"fmt"
	"go/parser"
	"go/scanner"
	"go/token"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
)

// Issue is a single problem found in a source text. Line and Column
// are 1-based.
type Issue struct {
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Message string `json:"message"`
}

// Report is the outcome of checking one source text.
type Report struct {
	Valid       bool    `json:"valid"`
	Language    string  `json:"language"`
	CheckedWith string  `json:"checked_with"`
	Issues      []Issue `json:"issues,omitempty"`
}

// Checker validates source code by language. The zero value is not
// usable; construct with NewChecker so grammar parsers are shared.
type Checker struct {
	pythonParser *sitter.Parser
	jsParser     *sitter.Parser
}

// NewChecker builds a Checker with tree-sitter parsers for the
// grammars it bundles.
func NewChecker() *Checker {
	py := sitter.NewParser()
	py.SetLanguage(python.GetLanguage())
	js := sitter.NewParser()
	js.SetLanguage(javascript.GetLanguage())
	return &Checker{pythonParser: py, jsParser: js}
}

// Check validates code for the given language. It never panics; a
// language without a real parser falls back to bracket balancing.
func (c *Checker) Check(ctx context.Context, code, language string) Report {
	lang := strings.ToLower(strings.TrimSpace(language))
	switch lang {
	case "go", "golang":
		return checkGo(code)
	case "python", "py":
		return c.checkTreeSitter(ctx, code, "python", c.pythonParser)
	case "javascript", "js", "typescript", "ts":
		return c.checkTreeSitter(ctx, code, lang, c.jsParser)
	default:
		return checkBrackets(code, lang)
	}
}

func checkGo(code string) Report {
	rep := Report{Language: "go", CheckedWith: "go/parser"}
	fset := token.NewFileSet()
	_, err := parser.ParseFile(fset, "generated.go", code, parser.AllErrors)
	if err == nil {
		rep.Valid = true
		return rep
	}
	if list, ok := err.(scanner.ErrorList); ok {
		for _, e := range list {
			rep.Issues = append(rep.Issues, Issue{
				Line:    e.Pos.Line,
				Column:  e.Pos.Column,
				Message: e.Msg,
			})
		}
	} else {
		rep.Issues = append(rep.Issues, Issue{Line: 1, Column: 1, Message: err.Error()})
	}
	return rep
}

func (c *Checker) checkTreeSitter(ctx context.Context, code, lang string, p *sitter.Parser) Report {
	rep := Report{Language: lang, CheckedWith: "tree-sitter"}
	tree, err := p.ParseCtx(ctx, nil, []byte(code))
	if err != nil {
		rep.Issues = append(rep.Issues, Issue{Line: 1, Column: 1, Message: fmt.Sprintf("parse failed: %v", err)})
		return rep
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		rep.Valid = true
		return rep
	}

	if node := firstErrorNode(root); node != nil {
		point := node.StartPoint()
		msg := "syntax error"
		if node.IsMissing() {
			msg = fmt.Sprintf("missing %s", node.Type())
		}
		rep.Issues = append(rep.Issues, Issue{
			Line:    int(point.Row) + 1,
			Column:  int(point.Column) + 1,
			Message: msg,
		})
	} else {
		rep.Issues = append(rep.Issues, Issue{Line: 1, Column: 1, Message: "syntax error"})
	}
	return rep
}

// firstErrorNode walks the tree depth first and returns the earliest
// ERROR or missing node.
func firstErrorNode(node *sitter.Node) *sitter.Node {
	if node.Type() == "ERROR" || node.IsMissing() {
		return node
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil || !child.HasError() {
			continue
		}
		if found := firstErrorNode(child); found != nil {
			return found
		}
	}
	return nil
}

// checkBrackets is the fallback for languages without a grammar. It
// only verifies that (), [] and {} pair up outside of string
// literals.
func checkBrackets(code, lang string) Report {
	rep := Report{Language: lang, CheckedWith: "bracket-balance"}

	type open struct {
		ch   byte
		line int
		col  int
	}
	var stack []open
	pairs := map[byte]byte{')': '(', ']': '[', '}': '{'}

	line, col := 1, 0
	var inString byte
	for i := 0; i < len(code); i++ {
		ch := code[i]
		col++
		if ch == '\n' {
			line++
			col = 0
			inString = 0
			continue
		}

		if inString != 0 {
			if ch == '\\' {
				i++
				col++
			} else if ch == inString {
				inString = 0
			}
			continue
		}
		switch ch {
		case '"', '\'', '`':
			inString = ch
		case '(', '[', '{':
			stack = append(stack, open{ch, line, col})
		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1].ch != pairs[ch] {
				rep.Issues = append(rep.Issues, Issue{
					Line:    line,
					Column:  col,
					Message: fmt.Sprintf("unmatched %q", string(ch)),
				})
				return rep
			}
			stack = stack[:len(stack)-1]
		}
	}

	if len(stack) > 0 {
		top := stack[len(stack)-1]
		rep.Issues = append(rep.Issues, Issue{
			Line:    top.line,
			Column:  top.col,
			Message: fmt.Sprintf("unclosed %q", string(top.ch)),
		})
		return rep
	}

	rep.Valid = true
	return rep
}
