package health

import (
	"fmt"
	"regexp"

	"github.com/exploopio/codeguard/pkg/analyzer/rules"
)

// MaxBestPractices caps the best practices listed in a result.
const MaxBestPractices = 8

const (
	immutableRatio  = 0.7
	safeCallRatio   = 0.8
	shortAvgLength  = 20.0
	minDeclarations = 3
	minSafeCalls    = 3
	minPrivate      = 2
)

// bestPractices lists the positive patterns found in the file, in a fixed
// order, up to MaxBestPractices.
func (a *analysis) bestPractices() []string {
	out := []string{}
	add := func(s string) {
		if len(out) < MaxBestPractices {
			out = append(out, s)
		}
	}

	m := a.metrics
	if decls := m.ImmutableCount + m.MutableCount; decls >= minDeclarations {
		if ratio := float64(m.ImmutableCount) / float64(decls); ratio >= immutableRatio {
			add(fmt.Sprintf("Prefers immutable declarations (%d%% of variables)", int(ratio*100+0.5)))
		}
	}

	safe := a.countCode(rules.SafeCall)
	forced := a.countFindings("Force Unwrap Operator").count
	if safe >= minSafeCalls && float64(safe)/float64(safe+forced) >= safeCallRatio {
		add("Handles nulls with safe calls and default values")
	}

	if len(a.funcs) > 0 && m.AvgFunctionLength <= shortAvgLength {
		add(fmt.Sprintf("Keeps functions short (%.1f lines on average)", m.AvgFunctionLength))
	}
	if a.countCode(rules.DataClass) > 0 {
		add("Uses data classes for value types")
	}
	if a.countCode(rules.SealedType) > 0 {
		add("Models closed hierarchies with sealed types")
	}
	if a.countCode(rules.WhenExpression) > 0 {
		add("Uses when/switch expressions for branching")
	}
	if a.countCode(rules.PrivateMember) >= minPrivate {
		add("Encapsulates state with private members")
	}
	if a.countCode(rules.StructuredScope) > 0 {
		add("Uses structured concurrency scopes")
	}
	if a.countCode(rules.ResourceManagement) > 0 {
		add("Releases resources with scoped blocks")
	}
	if a.countRaw(rules.ParameterizedQuery) > 0 {
		add("Uses parameterized queries")
	}
	if a.hasDocComments() {
		add("Documents code with doc comments")
	}
	return out
}

// countCode counts matches of re in the code part of non-skipped lines.
func (a *analysis) countCode(re *regexp.Regexp) int {
	n := 0
	for i := range a.f.Lines() {
		if !a.f.Skip(i) {
			n += len(re.FindAllStringIndex(a.f.Code(i), -1))
		}
	}
	return n
}

// countRaw counts matches of re in non-skipped lines, literals included.
func (a *analysis) countRaw(re *regexp.Regexp) int {
	n := 0
	for i, line := range a.f.Lines() {
		if !a.f.Skip(i) {
			n += len(re.FindAllStringIndex(line, -1))
		}
	}
	return n
}
