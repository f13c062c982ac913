package export

import (
	"fmt"
	"strings"

	"github.com/exploopio/codeguard/pkg/model"
)

// SecurityText renders a security scan for a terminal.
func SecurityText(res *model.ScanResult, opts Options) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Security scan: %s", opts.path())
	if res.Language != "" {
		fmt.Fprintf(&b, " (%s)", res.Language)
	}
	fmt.Fprintf(&b, "\nScore %d/100, grade %s\n%s\n", res.Score, res.Grade, res.Summary)

	for _, v := range res.Vulnerabilities {
		b.WriteString("\n")
		fmt.Fprintf(&b, "[%s] %s", v.Severity.Label(), v.Title)
		if v.HasLine() {
			fmt.Fprintf(&b, " (line %d)", v.Line)
		}
		b.WriteString("\n")

		var refs []string
		if v.CWE != "" {
			refs = append(refs, v.CWE)
		}
		if len(v.OWASP) > 0 {
			refs = append(refs, "OWASP "+strings.Join(v.OWASP, ", "))
		}
		if v.CVSSScore > 0 {
			refs = append(refs, fmt.Sprintf("CVSS %.1f", v.CVSSScore))
		}
		if len(refs) > 0 {
			fmt.Fprintf(&b, "  %s\n", strings.Join(refs, " | "))
		}
		fmt.Fprintf(&b, "  %s\n", v.Description)
		if v.Snippet != "" {
			fmt.Fprintf(&b, "  > %s\n", v.Snippet)
		}
		fmt.Fprintf(&b, "  Fix: %s\n", v.Fix)
	}

	if c := res.Compliance; c != nil {
		b.WriteString("\nCompliance\n")
		fmt.Fprintf(&b, "  GDPR %s, HIPAA %s, PCI-DSS %s\n",
			verdict(c.GDPRCompliant), verdict(c.HIPAACompliant), verdict(c.PCICompliant))
		if c.Summary != "" {
			fmt.Fprintf(&b, "  %s\n", c.Summary)
		}
		for _, issue := range c.Issues {
			fmt.Fprintf(&b, "  [%s %s] %s", issue.Framework, issue.Article, issue.Title)
			if issue.Line > 0 {
				fmt.Fprintf(&b, " (line %d)", issue.Line)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func verdict(ok bool) string {
	if ok {
		return "compliant"
	}
	return "not compliant"
}

// HealthText renders a health analysis for a terminal.
func HealthText(res *model.CodeHealthResult, opts Options) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Code health: %s", opts.path())
	if res.Language != "" {
		fmt.Fprintf(&b, " (%s)", res.Language)
	}
	fmt.Fprintf(&b, "\nOverall %d/100\n%s\n\n", res.OverallScore, res.Summary)

	dims := []struct {
		name  string
		score int
	}{
		{"Bug risk", res.BugRisk},
		{"Performance", res.Performance},
		{"Security", res.Security},
		{"Readability", res.Readability},
		{"Complexity", res.Complexity},
	}
	for _, d := range dims {
		fmt.Fprintf(&b, "  %-12s %2d/10\n", d.name, d.score)
	}

	if len(res.Issues) > 0 {
		b.WriteString("\nIssues\n")
		for _, issue := range res.Issues {
			fmt.Fprintf(&b, "  [%s] %s: %s\n", issue.Severity.Label(), issue.Title, issue.Description)
		}
	}
	if len(res.BestPractices) > 0 {
		b.WriteString("\nBest practices\n")
		for _, p := range res.BestPractices {
			fmt.Fprintf(&b, "  + %s\n", p)
		}
	}

	m := res.Metrics
	fmt.Fprintf(&b, "\nMetrics\n  %d lines (%d code, %d comment, %d blank), %d functions, %d classes\n",
		m.TotalLines, m.CodeLines, m.CommentLines, m.BlankLines, m.FunctionCount, m.ClassCount)
	fmt.Fprintf(&b, "  complexity %d, max nesting %d, longest function %d lines, comments %.1f%%\n",
		m.CyclomaticComplexity, m.MaxNestingDepth, m.MaxFunctionLength, m.CommentPercentage)
	return b.String()
}
