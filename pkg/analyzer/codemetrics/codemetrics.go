// Package codemetrics computes structural counters for a source text: line
// classes, functions and their lengths, nesting depth, cyclomatic
// complexity, declarations, imports and TODO markers.
package codemetrics

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/exploopio/codeguard/pkg/analyzer/rules"
	"github.com/exploopio/codeguard/pkg/analyzer/srcline"
	"github.com/exploopio/codeguard/pkg/model"
)

var (
	decisionKeyword = regexp.MustCompile(`\b(?:if|elif|for|foreach|while|case|catch|except|when)\b`)
	booleanOperator = regexp.MustCompile(`&&|\|\||\?:|\?\?|\band\b|\bor\b`)
	importLine      = regexp.MustCompile(`^\s*(?:import\b|from\s+[\w.]+\s+import\b|#include\b|#import\b|using\s+[\w.]+\s*;|require\s*\(|\w+\s*=\s*require\s*\()`)
	todoMarker      = regexp.MustCompile(`\b(?:TODO|FIXME|HACK|XXX)\b`)
)

// Complexity returns the decision points on one line: decision keywords,
// boolean operators and elvis or null-coalescing operators. Literals and
// trailing comments are ignored.
func Complexity(line string) int {
	return CodeComplexity(srcline.Code(line))
}

// CodeComplexity is Complexity for a line already reduced by srcline.Code.
func CodeComplexity(code string) int {
	return len(decisionKeyword.FindAllStringIndex(code, -1)) + len(booleanOperator.FindAllStringIndex(code, -1))
}

// Compute returns the metrics of f.
func Compute(f *srcline.File) model.CodeMetrics {
	m := model.CodeMetrics{TotalLines: f.Len()}
	if f.Len() == 0 {
		return m
	}

	complexity := 1
	inGoImports := false
	for i, line := range f.Lines() {
		if n := utf8.RuneCountInString(line); n > m.LongestLine {
			m.LongestLine = n
		}
		if todoMarker.MatchString(line) {
			m.TodoCount++
		}

		switch {
		case f.IsBlank(i):
			m.BlankLines++
			continue
		case f.IsComment(i):
			m.CommentLines++
			continue
		}
		m.CodeLines++

		t := strings.TrimSpace(line)
		switch {
		case inGoImports:
			if strings.HasPrefix(t, ")") {
				inGoImports = false
			} else {
				m.ImportCount++
			}
		case strings.HasPrefix(t, "import ("):
			inGoImports = true
		case importLine.MatchString(line):
			m.ImportCount++
		}

		if IsClassDecl(line) {
			m.ClassCount++
		}
		code := f.Code(i)
		complexity += CodeComplexity(code)
		m.ImmutableCount += len(rules.ImmutableDecl.FindAllStringIndex(code, -1))
		m.MutableCount += len(rules.MutableDeclAny.FindAllStringIndex(code, -1))
	}
	m.CyclomaticComplexity = complexity
	m.MaxNestingDepth = MaxNesting(f)

	funcs := Functions(f)
	m.FunctionCount = len(funcs)
	if len(funcs) > 0 {
		total := 0
		for _, fn := range funcs {
			total += fn.Length()
			m.MaxFunctionLength = max(m.MaxFunctionLength, fn.Length())
		}
		m.AvgFunctionLength = round1(float64(total) / float64(len(funcs)))
	}

	if nonBlank := m.TotalLines - m.BlankLines; nonBlank > 0 {
		m.CommentPercentage = round1(float64(m.CommentLines) * 100 / float64(nonBlank))
	}
	return m
}

// ComputeCode splits code and computes its metrics.
func ComputeCode(code string) model.CodeMetrics {
	return Compute(srcline.New(code))
}

// MaxNesting returns the deepest brace nesting in f. Files without braces
// are measured by indentation, one level per indentation step.
func MaxNesting(f *srcline.File) int {
	depth, deepest, braces := 0, 0, 0
	for i := range f.Lines() {
		if f.IsComment(i) {
			continue
		}
		for _, r := range f.Code(i) {
			switch r {
			case '{':
				braces++
				depth++
				deepest = max(deepest, depth)
			case '}':
				depth = max(depth-1, 0)
			}
		}
	}
	if braces > 0 {
		return deepest
	}
	return indentNesting(f)
}

func indentNesting(f *srcline.File) int {
	step := 0
	for i, line := range f.Lines() {
		if f.IsBlank(i) || f.IsComment(i) {
			continue
		}
		if n := srcline.Indent(line); n > 0 && (step == 0 || n < step) {
			step = n
		}
	}
	if step == 0 {
		return 0
	}
	deepest := 0
	for i, line := range f.Lines() {
		if f.IsBlank(i) || f.IsComment(i) {
			continue
		}
		deepest = max(deepest, srcline.Indent(line)/step)
	}
	return deepest
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
