package health

import (
	"regexp"
	"slices"
	"unicode/utf8"

	"github.com/exploopio/codeguard/pkg/analyzer/codemetrics"
	"github.com/exploopio/codeguard/pkg/analyzer/rules"
	"github.com/exploopio/codeguard/pkg/shared/severity"
)

// Thresholds.
const (
	longFunctionLines     = 30
	veryLongFunctionLines = 60
	longLineRunes         = 120
	sparseCommentPercent  = 5.0
	sparseCommentMinLines = 30
	moderateComplexity    = 10
	highComplexity        = 15
	moderateNesting       = 3
	deepNesting           = 5
	raceWindow            = 15
	releaseWindow         = 10
	syncWindow            = 3
)

var (
	conditional      = regexp.MustCompile(`\b(?:if|when|elif|guard|switch|case|match)\b|\?:|\s\?\s[^:]+\s:\s`)
	returnKeyword    = regexp.MustCompile(`\breturn\b`)
	annotationOrMeta = regexp.MustCompile(`^\s*(?:@|import\b|package\b|#include\b|from\s+\S+\s+import\b)`)
)

// occurrences tracks the first line and the count of one kind of problem.
type occurrences struct {
	first int
	count int
}

func (o *occurrences) add(i int) {
	if o.count == 0 {
		o.first = i + 1
	}
	o.count++
}

// penalty returns min(count, limit) * per.
func (o occurrences) penalty(per, limit int) int {
	return min(o.count, limit) * per
}

func (a *analysis) countFindings(title string) occurrences {
	var o occurrences
	for _, v := range a.findings {
		if v.Title == title {
			o.add(v.Line - 1)
		}
	}
	return o
}

// =============================================================================
// Bug risk
// =============================================================================

func (a *analysis) bugRisk() int {
	score := baselineBugRisk

	if o := a.countFindings(rules.EmptyHandler.Title); o.count > 0 {
		score -= o.penalty(2, 2)
		a.report(severity.High, "Swallowed Exceptions",
			"%d exception handler(s) ignore the error, first on line %d. Failures go unnoticed and leave the program in an undefined state.", o.count, o.first)
	}
	if o := a.countFindings("Force Unwrap Operator"); o.count > 0 {
		score -= o.penalty(1, 3)
		a.report(severity.Medium, "Force Unwrap Usage",
			"%d not-null assertion(s) (!!), first on line %d, throw when the value is null.", o.count, o.first)
	}
	if o := a.countFindings("Unsafe Type Cast"); o.count > 0 {
		score -= o.penalty(1, 2)
		a.report(severity.Low, "Unchecked Casts",
			"%d unchecked cast(s), first on line %d, throw on an unexpected type.", o.count, o.first)
	}

	var global, leaks occurrences
	for i := range a.f.Lines() {
		if a.f.Skip(i) {
			continue
		}
		code := a.f.Code(i)
		if rules.GlobalScopeLaunch.MatchString(code) {
			global.add(i)
		}
		if rules.ResourceOpen.MatchString(code) && !a.f.NearAny(i, 0, releaseWindow, rules.ResourceRelease...) {
			leaks.add(i)
		}
	}
	if global.count > 0 {
		score -= global.penalty(1, 2)
		a.report(severity.Medium, "Unstructured Coroutine Launch",
			"GlobalScope is used %d time(s), first on line %d. Work launched there outlives its caller and leaks on cancellation.", global.count, global.first)
	}
	if leaks.count > 0 {
		score -= leaks.penalty(1, 3)
		a.report(severity.Medium, "Potential Resource Leak",
			"%d resource(s) opened without a nearby close, first on line %d.", leaks.count, leaks.first)
	}

	for _, race := range a.races() {
		score -= 2
		a.report(severity.High, "Potential Race Condition",
			"Mutable variable '%s' is accessed from concurrent code on line %d without synchronization.", race.name, race.line)
	}

	for _, fn := range a.funcs {
		recursive, baseCase := a.recursion(fn)
		if !recursive {
			continue
		}
		if baseCase {
			a.report(severity.Low, "Recursive Function",
				"Function '%s' calls itself. Deep inputs can overflow the stack.", fn.Name)
			continue
		}
		score -= 2
		a.report(severity.High, "Recursion Without Base Case",
			"Function '%s' calls itself and has no conditional exit, so it may never terminate.", fn.Name)
	}
	return score
}

type race struct {
	name string
	line int
}

// races finds mutable variables referenced in the body of a concurrency
// launch with no synchronization marker near it. At most one race is
// reported per launch and per variable.
func (a *analysis) races() []race {
	declared := map[string]int{}
	for i := range a.f.Lines() {
		if a.f.Skip(i) {
			continue
		}
		if m := rules.MutableDecl.FindStringSubmatch(a.f.Code(i)); m != nil {
			if _, ok := declared[m[1]]; !ok {
				declared[m[1]] = i
			}
		}
	}
	if len(declared) == 0 {
		return nil
	}

	var out []race
	reported := map[string]bool{}
	for i := range a.f.Lines() {
		if a.f.Skip(i) || !rules.ConcurrencyLaunch.MatchString(a.f.Code(i)) {
			continue
		}
		end := min(a.blocks.End(i), i+raceWindow)
		if a.f.NearAny(i, syncWindow, end-i, rules.SyncMarkers...) {
			continue
		}
	body:
		for j := i; j <= end; j++ {
			if a.f.Skip(j) {
				continue
			}
			for _, id := range a.f.Identifiers(j) {
				decl, ok := declared[id]
				if !ok || reported[id] || (decl >= i && decl <= end) {
					continue
				}
				reported[id] = true
				out = append(out, race{name: id, line: j + 1})
				break body
			}
		}
	}
	return out
}

// recursion reports whether fn calls itself and, if so, whether its body has
// a conditional exit.
func (a *analysis) recursion(fn codemetrics.Function) (recursive, baseCase bool) {
	// The declaration itself is one match.
	if a.lines.calls(fn.Name, fn.Start, fn.End) < 2 {
		return false, false
	}
	if fn.Start == fn.End {
		return true, conditional.MatchString(a.f.Code(fn.Start))
	}
	return true, a.lines.conditionals(fn.Start+1, fn.End) > 0 && a.lines.returns(fn.Start+1, fn.End) > 0
}

// =============================================================================
// Performance
// =============================================================================

// loopCoverage marks the lines inside loop bodies. body[j] holds when a
// loop spans line j, header included; nested[j] when line j opens a loop
// inside another one.
func (a *analysis) loopCoverage() (body, nested []bool) {
	n := a.f.Len()
	inside := make([]int, n+1)
	after := make([]int, n+1)
	starts := make([]bool, n)
	for i := range n {
		if a.f.Skip(i) || !rules.LoopStart.MatchString(a.f.Code(i)) {
			continue
		}
		starts[i] = true
		end := a.blocks.End(i)
		inside[i]++
		inside[end+1]--
		after[i+1]++
		after[end+1]--
	}

	body = make([]bool, n)
	nested = make([]bool, n)
	in, past := 0, 0
	for j := range n {
		in += inside[j]
		past += after[j]
		body[j] = in > 0
		nested[j] = starts[j] && past > 0
	}
	return body, nested
}

func (a *analysis) performance() int {
	score := baselinePerformance

	var concat, alloc, regex, nested, blocking occurrences
	body, inner := a.loopCoverage()
	for j := range a.f.Lines() {
		if a.f.Skip(j) {
			continue
		}
		code := a.f.Code(j)
		if rules.BlockingCall.MatchString(code) {
			blocking.add(j)
		}
		if !body[j] {
			continue
		}
		if inner[j] {
			nested.add(j)
		}
		if isConcatInLoop(code) {
			concat.add(j)
		}
		if rules.AllocationInLoop.MatchString(code) {
			alloc.add(j)
		}
		if rules.RegexCompile.MatchString(code) {
			regex.add(j)
		}
	}

	if concat.count > 0 {
		score -= concat.penalty(1, 2)
		a.report(severity.Medium, "String Concatenation in Loop",
			"Strings are concatenated inside a loop %d time(s), first on line %d. Each iteration copies the whole string; use a builder or join.", concat.count, concat.first)
	}
	if regex.count > 0 {
		score -= regex.penalty(1, 2)
		a.report(severity.Medium, "Regex Compiled in Loop",
			"A regular expression is compiled inside a loop on line %d. Compile it once outside the loop.", regex.first)
	}
	if nested.count > 0 {
		score -= nested.penalty(1, 2)
		a.report(severity.Medium, "Nested Loops",
			"%d nested loop(s), first on line %d, give quadratic or worse running time on large inputs.", nested.count, nested.first)
	}
	if alloc.count > 0 {
		score -= alloc.penalty(1, 2)
		a.report(severity.Low, "Object Allocation in Loop",
			"Objects are allocated inside a loop %d time(s), first on line %d. Hoist reusable instances out of the loop.", alloc.count, alloc.first)
	}
	if blocking.count > 0 {
		score -= blocking.penalty(1, 2)
		a.report(severity.Medium, "Blocking Call",
			"%d blocking call(s), first on line %d, stall the calling thread.", blocking.count, blocking.first)
	}
	return score
}

// isConcatInLoop reports whether code appends to a string. The s = s + "x"
// form only counts when both sides name the same variable.
func isConcatInLoop(code string) bool {
	for _, m := range rules.StringConcatInLoop.FindAllStringSubmatch(code, -1) {
		if m[1] == "" || m[1] == m[2] {
			return true
		}
	}
	return false
}

// =============================================================================
// Security
// =============================================================================

func (a *analysis) security() int {
	var counts severity.CountBySeverity
	firstTitle := map[severity.Level]string{}
	for _, v := range a.findings {
		counts.Increment(v.Severity)
		if _, ok := firstTitle[v.Severity]; !ok {
			firstTitle[v.Severity] = v.Title
		}
	}

	if counts.Critical > 0 {
		a.report(severity.Critical, "Critical Security Vulnerabilities",
			"%d critical finding(s), including %s.", counts.Critical, firstTitle[severity.Critical])
	}
	if counts.High > 0 {
		a.report(severity.High, "High-Risk Security Findings",
			"%d high severity finding(s), including %s.", counts.High, firstTitle[severity.High])
	}
	if counts.Medium > 0 {
		a.report(severity.Medium, "Medium-Risk Security Findings",
			"%d medium severity finding(s), including %s.", counts.Medium, firstTitle[severity.Medium])
	}
	return baselineSecurity - 3*counts.Critical - 2*counts.High - counts.Medium
}

// =============================================================================
// Readability
// =============================================================================

func (a *analysis) readability() int {
	score := baselineReadability

	for _, fn := range a.funcs {
		switch n := fn.Length(); {
		case n > veryLongFunctionLines:
			score -= 2
			a.report(severity.High, "Very Long Function",
				"Function '%s' spans %d lines. Split it into smaller functions with one responsibility each.", fn.Name, n)
		case n > longFunctionLines:
			score--
			a.report(severity.Medium, "Long Function",
				"Function '%s' spans %d lines.", fn.Name, n)
		}
	}

	var magic, short, long occurrences
	for i, line := range a.f.Lines() {
		if a.f.Skip(i) {
			continue
		}
		if utf8.RuneCountInString(line) > longLineRunes {
			long.add(i)
		}
		code := a.f.Code(i)
		if !annotationOrMeta.MatchString(code) && !rules.ConstantDecl.MatchString(code) {
			for _, m := range rules.MagicNumber.FindAllStringSubmatch(code, -1) {
				if !rules.AllowedNumbers[m[1]] {
					magic.add(i)
				}
			}
		}
		if !rules.LoopStart.MatchString(code) {
			for range rules.SingleLetterDecl.FindAllStringIndex(code, -1) {
				short.add(i)
			}
		}
	}
	if magic.count >= 3 {
		score--
		a.report(severity.Low, "Magic Numbers",
			"%d unexplained numeric literal(s), first on line %d. Name them as constants.", magic.count, magic.first)
	}
	if short.count >= 3 {
		score--
		a.report(severity.Low, "Short Variable Names",
			"%d single-letter variable name(s), first on line %d.", short.count, short.first)
	}
	if long.count > 0 {
		score -= long.penalty(1, 1)
		a.report(severity.Low, "Long Lines",
			"%d line(s) exceed %d characters, first on line %d.", long.count, longLineRunes, long.first)
	}
	if a.metrics.CodeLines >= sparseCommentMinLines && a.metrics.CommentPercentage < sparseCommentPercent {
		score--
		a.report(severity.Low, "Sparse Comments",
			"Only %.1f%% of non-blank lines are comments.", a.metrics.CommentPercentage)
	}

	if len(a.funcs) > 0 && a.metrics.AvgFunctionLength <= 15 {
		score++
	}
	if a.metrics.CommentPercentage >= 10 && a.hasDocComments() {
		score++
	}
	return score
}

func (a *analysis) hasDocComments() bool {
	return slices.ContainsFunc(a.f.Lines(), rules.DocComment.MatchString)
}

// =============================================================================
// Complexity
// =============================================================================

func (a *analysis) complexity() int {
	score := baselineComplexity

	worst := 0
	for _, fn := range a.funcs {
		c := 1 + a.lines.complexity(fn.Start, fn.End)
		worst = max(worst, c)
		switch {
		case c > highComplexity:
			score -= 2
			a.report(severity.High, "High Cyclomatic Complexity",
				"Function '%s' has a cyclomatic complexity of %d. Extract branches into helper functions.", fn.Name, c)
		case c > moderateComplexity:
			score--
			a.report(severity.Medium, "Elevated Cyclomatic Complexity",
				"Function '%s' has a cyclomatic complexity of %d.", fn.Name, c)
		}
	}
	if len(a.funcs) == 0 && a.metrics.CyclomaticComplexity > 2*moderateComplexity {
		score--
		a.report(severity.Medium, "High File Complexity",
			"The file has a cyclomatic complexity of %d outside any function.", a.metrics.CyclomaticComplexity)
	}

	nesting := a.metrics.MaxNestingDepth
	switch {
	case nesting > deepNesting:
		score -= 2
		a.report(severity.High, "Deep Nesting",
			"Code is nested %d levels deep. Use early returns and extract inner blocks.", nesting)
	case nesting > moderateNesting:
		score--
		a.report(severity.Medium, "Nested Code",
			"Code is nested %d levels deep.", nesting)
	}

	if len(a.funcs) > 0 && nesting <= moderateNesting {
		switch {
		case worst <= 5:
			score += 2
		case worst <= moderateComplexity:
			score++
		}
	}
	return score
}
