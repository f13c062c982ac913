// Package model holds the result types produced by the analysis engine.
//
// Every value here is created once per scan and never mutated afterwards.
// Stages that add information (enrichment) return updated copies.
package model

import (
	"time"

	"github.com/exploopio/codeguard/pkg/shared/severity"
)

// =============================================================================
// Security scan
// =============================================================================

// Vulnerability is one reported security issue.
type Vulnerability struct {
	// Severity tier: critical, high, medium, low
	Severity severity.Level `json:"severity"`

	// Category tag (Secrets, Injection, Transport, Storage, ...)
	Category string `json:"category"`

	// Short title, also part of the deduplication key
	Title string `json:"title"`

	// Human readable description
	Description string `json:"description"`

	// 1-based line number, 0 when the finding is not tied to a line
	Line int `json:"line,omitempty"`

	// Offending line with long literals redacted
	Snippet string `json:"snippet,omitempty"`

	// Remediation guidance
	Fix string `json:"fix"`

	// Certainty that the finding is a true positive
	Confidence severity.Confidence `json:"confidence"`

	// Enrichment, filled by the enrichment stage
	OWASP      []string `json:"owasp,omitempty"`
	CWE        string   `json:"cwe,omitempty"`
	CVSSScore  float64  `json:"cvss_score,omitempty"`
	CVSSVector string   `json:"cvss_vector,omitempty"`
}

// HasLine reports whether the finding points at a specific line.
func (v Vulnerability) HasLine() bool {
	return v.Line > 0
}

// WithClassification returns a copy of v carrying the OWASP and CWE ids.
func (v Vulnerability) WithClassification(owasp []string, cwe string) Vulnerability {
	v.OWASP = append([]string(nil), owasp...)
	v.CWE = cwe
	return v
}

// WithCVSS returns a copy of v carrying the CVSS base score and vector.
func (v Vulnerability) WithCVSS(score float64, vector string) Vulnerability {
	v.CVSSScore = score
	v.CVSSVector = vector
	return v
}

// ScanResult is the outcome of one security scan.
type ScanResult struct {
	// Letter grade A-F
	Grade string `json:"grade"`

	// Numeric score 0-100
	Score int `json:"score"`

	// Deduplicated findings ordered by severity (critical first)
	Vulnerabilities []Vulnerability `json:"vulnerabilities"`

	// Finding counts per severity
	Counts severity.CountBySeverity `json:"counts"`

	// Summary text
	Summary string `json:"summary"`

	// Wall-clock time spent scanning
	Duration time.Duration `json:"duration"`

	// OWASP categories covered by the findings, sorted
	OWASPCategories []string `json:"owasp_categories,omitempty"`

	// Number of checks that were executed
	TotalChecks int `json:"total_checks"`

	// Language label supplied by the caller
	Language string `json:"language,omitempty"`

	// Number of lines scanned
	LinesScanned int `json:"lines_scanned"`

	// Regulatory compliance findings
	Compliance *ComplianceResult `json:"compliance,omitempty"`
}

// =============================================================================
// Compliance
// =============================================================================

// Framework identifies a regulatory framework.
type Framework string

const (
	FrameworkGDPR  Framework = "GDPR"
	FrameworkHIPAA Framework = "HIPAA"
	FrameworkPCI   Framework = "PCI-DSS"
	FrameworkSOC2  Framework = "SOC2"
	FrameworkCOPPA Framework = "COPPA"
)

// AllFrameworks returns every supported framework in reporting order.
func AllFrameworks() []Framework {
	return []Framework{FrameworkGDPR, FrameworkHIPAA, FrameworkPCI, FrameworkSOC2, FrameworkCOPPA}
}

// String returns the string representation.
func (f Framework) String() string {
	return string(f)
}

// ComplianceIssue is one regulatory compliance finding.
type ComplianceIssue struct {
	Framework   Framework `json:"framework"`
	Article     string    `json:"article"`
	Title       string    `json:"title"`
	Description string    `json:"description"`

	// 1-based line number, 0 for file-level issues (missing controls)
	Line int `json:"line,omitempty"`

	Fix string `json:"fix"`
}

// ComplianceResult aggregates the compliance pass.
type ComplianceResult struct {
	Issues         []ComplianceIssue `json:"issues"`
	GDPRCompliant  bool              `json:"gdpr_compliant"`
	HIPAACompliant bool              `json:"hipaa_compliant"`
	PCICompliant   bool              `json:"pci_compliant"`
	Summary        string            `json:"summary"`
}

// IssuesFor returns the issues reported for one framework.
func (r *ComplianceResult) IssuesFor(f Framework) []ComplianceIssue {
	if r == nil {
		return nil
	}
	var out []ComplianceIssue
	for _, issue := range r.Issues {
		if issue.Framework == f {
			out = append(out, issue)
		}
	}
	return out
}

// =============================================================================
// Code health
// =============================================================================

// HealthIssue is one detected code health problem.
type HealthIssue struct {
	Severity    severity.Level `json:"severity"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
}

// CodeMetrics holds structural counters for a source text.
type CodeMetrics struct {
	TotalLines           int     `json:"total_lines"`
	CodeLines            int     `json:"code_lines"`
	CommentLines         int     `json:"comment_lines"`
	BlankLines           int     `json:"blank_lines"`
	FunctionCount        int     `json:"function_count"`
	ClassCount           int     `json:"class_count"`
	AvgFunctionLength    float64 `json:"avg_function_length"`
	MaxFunctionLength    int     `json:"max_function_length"`
	MaxNestingDepth      int     `json:"max_nesting_depth"`
	CyclomaticComplexity int     `json:"cyclomatic_complexity"`
	ImmutableCount       int     `json:"immutable_count"`
	MutableCount         int     `json:"mutable_count"`
	CommentPercentage    float64 `json:"comment_percentage"`
	ImportCount          int     `json:"import_count"`
	LongestLine          int     `json:"longest_line"`
	TodoCount            int     `json:"todo_count"`
}

// CodeHealthResult is the outcome of one health analysis.
type CodeHealthResult struct {
	// Weighted overall score 0-100
	OverallScore int `json:"overall_score"`

	// Dimension scores, each 1-10
	BugRisk     int `json:"bug_risk"`
	Performance int `json:"performance"`
	Security    int `json:"security"`
	Readability int `json:"readability"`
	Complexity  int `json:"complexity"`

	Issues        []HealthIssue `json:"issues"`
	Summary       string        `json:"summary"`
	Metrics       CodeMetrics   `json:"metrics"`
	BestPractices []string      `json:"best_practices"`
	Language      string        `json:"language,omitempty"`
}
