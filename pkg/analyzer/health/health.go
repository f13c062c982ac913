// Package health scores a source file on five dimensions (bug risk,
// performance, security, readability and complexity) and lists the issues
// and best practices behind those scores.
//
// Every dimension starts from a fixed baseline and moves by small integer
// deltas. Scores are clamped to [MinDimension, MaxDimension] before they are
// returned, and the overall score is their weighted average scaled to 0-100.
package health

import (
	"fmt"
	"slices"

	"github.com/exploopio/codeguard/pkg/analyzer/codemetrics"
	"github.com/exploopio/codeguard/pkg/analyzer/detect"
	"github.com/exploopio/codeguard/pkg/analyzer/enrich"
	"github.com/exploopio/codeguard/pkg/analyzer/srcline"
	"github.com/exploopio/codeguard/pkg/model"
	"github.com/exploopio/codeguard/pkg/shared/severity"
)

// Dimension bounds and baselines.
const (
	MinDimension = 1
	MaxDimension = 10

	baselineBugRisk     = 10
	baselinePerformance = 10
	baselineSecurity    = 10
	baselineReadability = 7
	baselineComplexity  = 7
)

// Overall score weights in percent. They sum to 100.
const (
	weightBugRisk     = 25
	weightSecurity    = 25
	weightPerformance = 20
	weightReadability = 15
	weightComplexity  = 15
)

// MaxIssues caps the issue list of a result.
const MaxIssues = 15

// analysis is the per-call state shared by the dimension scorers.
type analysis struct {
	f        *srcline.File
	blocks   *codemetrics.Blocks
	funcs    []codemetrics.Function
	metrics  model.CodeMetrics
	findings []model.Vulnerability
	issues   []model.HealthIssue
	lines    *lineIndex
}

func (a *analysis) report(level severity.Level, title, format string, args ...any) {
	a.issues = append(a.issues, model.HealthIssue{
		Severity:    level,
		Title:       title,
		Description: fmt.Sprintf(format, args...),
	})
}

// Analyze scores the file held by in. findings are the deduplicated
// vulnerability findings for the same file; they drive the security
// dimension and part of bug risk.
func Analyze(in *detect.Input, findings []model.Vulnerability, language string) *model.CodeHealthResult {
	blocks := codemetrics.NewBlocks(in.File)
	a := &analysis{
		f:        in.File,
		blocks:   blocks,
		funcs:    blocks.Functions(),
		metrics:  codemetrics.Compute(in.File),
		findings: findings,
		lines:    newLineIndex(in.File),
	}

	res := &model.CodeHealthResult{
		BugRisk:     clamp(a.bugRisk()),
		Performance: clamp(a.performance()),
		Security:    clamp(a.security()),
		Readability: clamp(a.readability()),
		Complexity:  clamp(a.complexity()),
		Metrics:     a.metrics,
		Language:    language,
	}
	res.OverallScore = Overall(res.BugRisk, res.Security, res.Performance, res.Readability, res.Complexity)

	slices.SortStableFunc(a.issues, func(x, y model.HealthIssue) int {
		return severity.Compare(x.Severity, y.Severity)
	})
	if len(a.issues) > MaxIssues {
		a.issues = a.issues[:MaxIssues]
	}
	res.Issues = a.issues
	if res.Issues == nil {
		res.Issues = []model.HealthIssue{}
	}
	res.BestPractices = a.bestPractices()
	res.Summary = summarize(res)
	return res
}

// AnalyzeCode runs the vulnerability checkers and the health analysis on
// code.
func AnalyzeCode(code, language string) *model.CodeHealthResult {
	in := detect.NewInput(code)
	return Analyze(in, enrich.Dedupe(detect.Run(in)), language)
}

// Overall returns the weighted average of the dimension scores on a 0-100
// scale, rounded half up.
func Overall(bugRisk, security, performance, readability, complexity int) int {
	sum := bugRisk*weightBugRisk +
		security*weightSecurity +
		performance*weightPerformance +
		readability*weightReadability +
		complexity*weightComplexity
	return min(max((sum+5)/10, 0), 100)
}

func clamp(score int) int {
	return min(max(score, MinDimension), MaxDimension)
}

type dimension struct {
	name  string
	score int
}

func summarize(res *model.CodeHealthResult) string {
	if res.Metrics.TotalLines == 0 {
		return "No code to analyze."
	}

	var verdict string
	switch {
	case res.OverallScore >= 85:
		verdict = "Excellent"
	case res.OverallScore >= 70:
		verdict = "Good"
	case res.OverallScore >= 50:
		verdict = "Fair"
	default:
		verdict = "Poor"
	}

	lang := res.Language
	if lang == "" {
		lang = "code"
	}
	s := fmt.Sprintf("%s code health (%d/100) across %d lines of %s.", verdict, res.OverallScore, res.Metrics.TotalLines, lang)
	if len(res.Issues) == 0 {
		return s + " No significant issues found."
	}

	dims := []dimension{
		{"bug risk", res.BugRisk},
		{"security", res.Security},
		{"performance", res.Performance},
		{"readability", res.Readability},
		{"complexity", res.Complexity},
	}
	weakest := dims[0]
	for _, d := range dims[1:] {
		if d.score < weakest.score {
			weakest = d
		}
	}
	return s + fmt.Sprintf(" %d issue(s) found; weakest area: %s (%d/10).", len(res.Issues), weakest.name, weakest.score)
}
