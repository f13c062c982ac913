package export

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/exploopio/codeguard/pkg/analyzer/rules"
	"github.com/exploopio/codeguard/pkg/model"
	"github.com/exploopio/codeguard/pkg/ris"
	"github.com/exploopio/codeguard/pkg/shared/fingerprint"
)

const assetID = "source"

// frameworkVersions are the framework editions compliance checks cite.
var frameworkVersions = map[model.Framework]string{
	model.FrameworkGDPR: "2016/679",
	model.FrameworkPCI:  "4.0",
	model.FrameworkSOC2: "2017",
}

// ToRIS converts a security scan into a RIS report with one asset for the
// scanned source. Compliance issues become failed compliance findings.
func ToRIS(res *model.ScanResult, opts Options) *ris.Report {
	ts := opts.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	path := opts.path()

	report := ris.NewReport(ts)
	report.Metadata.ID = opts.ReportID
	if report.Metadata.ID == "" {
		report.Metadata.ID = uuid.New().String()
	}
	report.Metadata.DurationMs = int(res.Duration.Milliseconds())
	report.Metadata.Scope = &ris.Scope{Name: path, Type: "source", Includes: []string{path}}
	report.Metadata.Properties = ris.Properties{
		"score":         res.Score,
		"grade":         res.Grade,
		"total_checks":  res.TotalChecks,
		"lines_scanned": res.LinesScanned,
	}
	report.Tool = &ris.Tool{
		Name:         ToolName,
		Version:      opts.ToolVersion,
		Vendor:       ToolVendor,
		InfoURL:      ToolInfoURL,
		Capabilities: []string{"sast", "secrets", "compliance"},
	}

	assetType := ris.AssetTypeFile
	if path == "stdin" {
		assetType = ris.AssetTypeSnippet
	}
	report.Assets = append(report.Assets, ris.Asset{
		ID:          assetID,
		Type:        assetType,
		Value:       path,
		Language:    res.Language,
		ContentHash: opts.ContentHash,
	})

	for _, v := range res.Vulnerabilities {
		report.Findings = append(report.Findings, vulnerabilityFinding(v, path))
	}
	if res.Compliance != nil {
		for _, c := range res.Compliance.Issues {
			report.Findings = append(report.Findings, complianceFinding(c, path))
		}
	}
	return report
}

func vulnerabilityFinding(v model.Vulnerability, path string) ris.Finding {
	f := ris.Finding{
		Type:        ris.FindingTypeVulnerability,
		Title:       v.Title,
		Description: v.Description,
		Severity:    ris.Severity(v.Severity.String()),
		Confidence:  v.Confidence.Percent(),
		Category:    v.Category,
		RuleID:      RuleID(v),
		RuleName:    v.Title,
		AssetRef:    assetID,
		Status:      ris.FindingStatusOpen,
		Remediation: &ris.Remediation{Recommendation: v.Fix},
		Tags:        append([]string{slug(v.Category)}, v.OWASP...),
	}
	if v.HasLine() {
		f.Location = &ris.FindingLocation{Path: path, StartLine: v.Line, EndLine: v.Line, Snippet: v.Snippet}
	}
	if v.CWE != "" {
		f.References = append(f.References, cweURL(v.CWE))
	}

	if v.Category == rules.CategorySecrets {
		f.Type = ris.FindingTypeSecret
		f.Secret = &ris.SecretDetails{
			SecretType:  secretType(v.Title),
			Service:     secretService(v.Title),
			MaskedValue: v.Snippet,
		}
		f.Fingerprint = fingerprint.GenerateSecret(path, v.Title, v.Line, v.Snippet)
	} else {
		f.Fingerprint = fingerprint.GenerateVulnerability(path, v.Category, v.Title, v.Line)
	}

	f.Vulnerability = &ris.VulnerabilityDetails{
		CWEID:       v.CWE,
		OWASP:       v.OWASP,
		CVSSVersion: "3.1",
		CVSSScore:   v.CVSSScore,
		CVSSVector:  v.CVSSVector,
		CVSSSource:  "heuristic",
	}
	if v.CWE != "" {
		f.Vulnerability.CWEIDs = []string{v.CWE}
	}
	return f
}

func complianceFinding(c model.ComplianceIssue, path string) ris.Finding {
	f := ris.Finding{
		Type:        ris.FindingTypeCompliance,
		Title:       c.Title,
		Description: c.Description,
		Severity:    ris.SeverityMedium,
		Category:    "Compliance",
		RuleID:      ComplianceRuleID(c),
		RuleName:    c.Framework.String() + " " + c.Article,
		AssetRef:    assetID,
		Status:      ris.FindingStatusOpen,
		Remediation: &ris.Remediation{Recommendation: c.Fix},
		Tags:        []string{"compliance", slug(c.Framework.String())},
		Fingerprint: fingerprint.GenerateCompliance(path, c.Framework.String(), c.Article, c.Title, c.Line),
		Compliance: &ris.ComplianceDetails{
			Framework:        strings.ToLower(c.Framework.String()),
			FrameworkVersion: frameworkVersions[c.Framework],
			ControlID:        c.Article,
			ControlName:      c.Title,
			Result:           "fail",
		},
	}
	if c.Line > 0 {
		f.Location = &ris.FindingLocation{Path: path, StartLine: c.Line, EndLine: c.Line}
	}
	return f
}

func cweURL(cwe string) string {
	return "https://cwe.mitre.org/data/definitions/" + strings.TrimPrefix(cwe, "CWE-") + ".html"
}

func secretType(title string) string {
	t := strings.ToLower(title)
	switch {
	case strings.Contains(t, "private key"):
		return "private_key"
	case strings.Contains(t, "connection string"):
		return "connection_string"
	case strings.Contains(t, "webhook"):
		return "webhook"
	case strings.Contains(t, "token"):
		return "token"
	case strings.Contains(t, "key"):
		return "api_key"
	default:
		return "generic"
	}
}

var secretServices = []string{"openai", "anthropic", "google", "github", "aws", "slack", "stripe"}

func secretService(title string) string {
	first, _, _ := strings.Cut(strings.ToLower(title), " ")
	for _, s := range secretServices {
		if first == s {
			return s
		}
	}
	return ""
}
