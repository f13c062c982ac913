// Package analyzer assembles the two reports the engine produces: a
// security scan (vulnerabilities, score, grade and compliance) and a code
// health analysis.
//
// ScanSecurity and AnalyzeHealth are pure: the same input always yields the
// same result, apart from ScanResult.Duration which is measured wall-clock
// time. They never fail; malformed input degrades to fewer findings. Service
// wraps them with the boundary concerns (size limit, cancellation, logging
// and metrics).
package analyzer

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/exploopio/codeguard/pkg/analyzer/compliance"
	"github.com/exploopio/codeguard/pkg/analyzer/detect"
	"github.com/exploopio/codeguard/pkg/analyzer/enrich"
	"github.com/exploopio/codeguard/pkg/analyzer/health"
	"github.com/exploopio/codeguard/pkg/analyzer/scoring"
	"github.com/exploopio/codeguard/pkg/model"
	"github.com/exploopio/codeguard/pkg/shared/severity"
)

// TotalChecks is the number of checks a security scan runs: every
// vulnerability checker plus every compliance check.
var TotalChecks = detect.CheckCount + compliance.CheckCount

// ScanSecurity scans code for vulnerabilities and compliance issues.
// language is a display label only; it never changes detection.
func ScanSecurity(code, language string) *model.ScanResult {
	start := time.Now()
	in := detect.NewInput(code)
	res := scanVulnerabilities(in, language)
	res.Compliance = compliance.Check(in.File)
	res.Duration = time.Since(start)
	return res
}

// AnalyzeHealth scores the health of code on five dimensions.
func AnalyzeHealth(code, language string) *model.CodeHealthResult {
	in := detect.NewInput(code)
	return health.Analyze(in, enrich.Dedupe(detect.Run(in)), language)
}

// scanVulnerabilities runs the detector, dedupes, enriches, sorts and scores.
func scanVulnerabilities(in *detect.Input, language string) *model.ScanResult {
	vulns := enrich.Process(detect.Run(in))
	slices.SortStableFunc(vulns, func(a, b model.Vulnerability) int {
		return severity.Compare(a.Severity, b.Severity)
	})

	var counts severity.CountBySeverity
	owasp := map[string]struct{}{}
	for _, v := range vulns {
		counts.Increment(v.Severity)
		for _, id := range v.OWASP {
			owasp[id] = struct{}{}
		}
	}
	categories := make([]string, 0, len(owasp))
	for id := range owasp {
		categories = append(categories, id)
	}
	slices.Sort(categories)

	score := scoring.Score(counts)
	res := &model.ScanResult{
		Grade:           scoring.Grade(score),
		Score:           score,
		Vulnerabilities: vulns,
		Counts:          counts,
		OWASPCategories: categories,
		TotalChecks:     TotalChecks,
		Language:        language,
		LinesScanned:    in.File.Len(),
	}
	res.Summary = summarize(res)
	return res
}

func summarize(res *model.ScanResult) string {
	var b strings.Builder
	if res.Language != "" {
		fmt.Fprintf(&b, "Scanned %d lines of %s. ", res.LinesScanned, res.Language)
	} else {
		fmt.Fprintf(&b, "Scanned %d lines. ", res.LinesScanned)
	}

	c := res.Counts
	if c.Total == 0 {
		fmt.Fprintf(&b, "No security issues found. Score %d/100 (%s).", res.Score, res.Grade)
		return b.String()
	}

	var parts []string
	for _, l := range severity.AllLevels() {
		if n := c.Get(l); n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, l))
		}
	}
	fmt.Fprintf(&b, "Found %d issue(s): %s. Score %d/100 (%s).", c.Total, strings.Join(parts, ", "), res.Score, res.Grade)
	if c.Critical > 0 {
		b.WriteString(" Fix the critical issues before release.")
	}
	return b.String()
}
