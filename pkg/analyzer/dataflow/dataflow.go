// Package dataflow builds a lightweight, per-file view of which variables
// carry user input. It is not a real taint analysis: it recognises function
// parameters, assignments from well-known input sources and one-step
// propagation between assignments, all on a line-by-line basis.
package dataflow

import (
	"regexp"
	"strings"

	"github.com/exploopio/codeguard/pkg/analyzer/srcline"
)

// Kind explains why a variable is considered tainted.
type Kind string

const (
	KindParameter Kind = "parameter"
	KindInput     Kind = "user input"
)

// Context is the data-flow summary of one file.
type Context struct {
	// Variables assigned from an input source or from another tainted variable
	UserInputVars map[string]struct{}

	// Names of declared function parameters
	FunctionParams map[string]struct{}

	// Variables passed to database query calls
	DBVars map[string]struct{}

	// Variables passed to file system calls
	FileVars map[string]struct{}
}

// NewContext returns an empty context.
func NewContext() *Context {
	return &Context{
		UserInputVars:  map[string]struct{}{},
		FunctionParams: map[string]struct{}{},
		DBVars:         map[string]struct{}{},
		FileVars:       map[string]struct{}{},
	}
}

// InputSources are lowercase markers of expressions that read external input.
var InputSources = []string{
	"getstringextra", "getintextra", "getextras", "getintent", "intent.", "request.", "req.",
	"readline", "input(", "scanner.next", "getparameter", "getqueryparameter", ".text.tostring",
	"args[", "system.getenv", "bundle.get", "arguments?.get", "sys.argv", "stdin",
	"os.args", "formvalue", "url.query", "getheader", "params[", "query[",
}

var (
	funcDeclPattern = regexp.MustCompile(`\b(?:fun|func|def|function)\s+(?:\([^)]*\)\s*)?[A-Za-z_][A-Za-z0-9_]*\s*\(([^)]*)\)`)
	javaDeclPattern = regexp.MustCompile(`\b(?:public|private|protected|static|void)\b[^=;(]*\b[A-Za-z_][A-Za-z0-9_]*\s*\(([^)]*)\)`)
	dbCallPattern   = regexp.MustCompile(`(?i)\b(?:rawquery|execsql|executequery|executeupdate|execute|query|exec|queryrow|prepare)\s*\(([^)]*)`)
	fileCallPattern = regexp.MustCompile(`(?i)\b(?:file|fileinputstream|fileoutputstream|filereader|open|paths\.get|os\.open|os\.readfile|readfile)\s*\(([^)]*)`)
)

// Build scans f once and returns its data-flow context. Comment lines are
// ignored; everything else, including test code, contributes declarations.
func Build(f *srcline.File) *Context {
	ctx := NewContext()
	for i := 0; i < f.Len(); i++ {
		if f.IsComment(i) || f.IsBlank(i) {
			continue
		}
		line := f.Line(i)

		for _, p := range parameters(line) {
			ctx.FunctionParams[p] = struct{}{}
		}
		ctx.trackAssignment(line)

		for _, m := range dbCallPattern.FindAllStringSubmatch(line, -1) {
			for _, id := range srcline.Identifiers(m[1]) {
				ctx.DBVars[id] = struct{}{}
			}
		}
		for _, m := range fileCallPattern.FindAllStringSubmatch(line, -1) {
			for _, id := range srcline.Identifiers(m[1]) {
				ctx.FileVars[id] = struct{}{}
			}
		}
	}
	return ctx
}

// IsUserInput reports whether name is a parameter or carries user input.
func (c *Context) IsUserInput(name string) bool {
	if _, ok := c.UserInputVars[name]; ok {
		return true
	}
	_, ok := c.FunctionParams[name]
	return ok
}

// TaintedIn returns the first identifier on line that is tainted, with the
// reason it is tainted. On an assignment the right hand side is searched
// first, so the source is named rather than the variable it flows into.
// Direct input sources on the line itself also count.
func (c *Context) TaintedIn(line string) (string, Kind, bool) {
	if idx := assignIndex(line); idx >= 0 {
		if name, kind, ok := c.taintedIdentifier(line[idx+1:]); ok {
			return name, kind, true
		}
	}
	if name, kind, ok := c.taintedIdentifier(line); ok {
		return name, kind, true
	}
	if src, ok := srcline.FirstOf(strings.ToLower(line), InputSources...); ok {
		return strings.TrimRight(src, ".([?"), KindInput, true
	}
	return "", "", false
}

func (c *Context) taintedIdentifier(text string) (string, Kind, bool) {
	for _, id := range srcline.Identifiers(text) {
		if _, ok := c.UserInputVars[id]; ok {
			return id, KindInput, true
		}
		if _, ok := c.FunctionParams[id]; ok {
			return id, KindParameter, true
		}
	}
	return "", "", false
}

// trackAssignment marks the assigned variable as user input when the right
// hand side reads an input source or an already tainted variable.
func (c *Context) trackAssignment(line string) {
	idx := assignIndex(line)
	if idx < 0 {
		return
	}
	lhs, rhs := line[:idx], line[idx+1:]
	name := assignedName(lhs)
	if name == "" {
		return
	}

	if srcline.ContainsAny(strings.ToLower(rhs), InputSources...) {
		c.UserInputVars[name] = struct{}{}
		return
	}
	for _, id := range srcline.Identifiers(rhs) {
		if c.IsUserInput(id) {
			c.UserInputVars[name] = struct{}{}
			return
		}
	}
}

// assignIndex returns the byte offset of the first plain assignment operator
// outside string literals, or -1.
func assignIndex(line string) int {
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		if quote != 0 {
			switch {
			case c == '\\' && quote != '`':
				i++
			case c == quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'', '`':
			quote = c
			continue
		case '/':
			if i+1 < len(line) && line[i+1] == '/' {
				return -1
			}
			continue
		case '=':
		default:
			continue
		}
		if i > 0 && line[i-1] != ':' && strings.IndexByte("=!<>+-*/%&|^", line[i-1]) >= 0 {
			continue
		}
		if i+1 < len(line) && (line[i+1] == '=' || line[i+1] == '>') {
			i++
			continue
		}
		return i
	}
	return -1
}

var declKeywords = map[string]bool{
	"val": true, "var": true, "let": true, "const": true, "final": true, "private": true,
	"public": true, "protected": true, "internal": true, "static": true, "lateinit": true,
}

// assignedName extracts the target identifier from the left side of an
// assignment: the last identifier before an optional type annotation.
func assignedName(lhs string) string {
	lhs = strings.TrimSuffix(strings.TrimSpace(lhs), ":")
	if idx := strings.Index(lhs, ":"); idx >= 0 {
		lhs = lhs[:idx]
	}
	ids := srcline.Identifiers(lhs)
	for i := len(ids) - 1; i >= 0; i-- {
		if !declKeywords[ids[i]] {
			return ids[i]
		}
	}
	return ""
}

// parameters extracts parameter names from a function declaration on line.
func parameters(line string) []string {
	if m := funcDeclPattern.FindStringSubmatch(line); m != nil {
		return splitParams(m[1], firstToken)
	}
	if m := javaDeclPattern.FindStringSubmatch(line); m != nil && !strings.Contains(line, "new ") {
		return splitParams(m[1], lastToken)
	}
	return nil
}

func splitParams(list string, pick func(string) string) []string {
	var out []string
	for _, raw := range strings.Split(list, ",") {
		p := strings.TrimSpace(raw)
		if idx := strings.Index(p, "="); idx >= 0 {
			p = strings.TrimSpace(p[:idx])
		}
		if p == "" {
			continue
		}
		// name: Type (Kotlin, Swift, TypeScript, Python annotations)
		if idx := strings.Index(p, ":"); idx >= 0 {
			p = strings.TrimSpace(p[:idx])
			p = lastToken(p)
		} else {
			p = pick(p)
		}
		p = strings.TrimLeft(p, "*&.")
		if p != "" && p != "self" && p != "this" && !declKeywords[p] {
			out = append(out, p)
		}
	}
	return out
}

func firstToken(p string) string {
	ids := srcline.Identifiers(p)
	for _, id := range ids {
		if !declKeywords[id] {
			return id
		}
	}
	return ""
}

func lastToken(p string) string {
	ids := srcline.Identifiers(p)
	for i := len(ids) - 1; i >= 0; i-- {
		if !declKeywords[ids[i]] {
			return ids[i]
		}
	}
	return ""
}
