package export

import (
	"fmt"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/exploopio/codeguard/pkg/model"
	"github.com/exploopio/codeguard/pkg/shared/fingerprint"
	"github.com/exploopio/codeguard/pkg/shared/severity"
)

// ToSARIF converts a security scan into a SARIF 2.1.0 report with a single
// run. Each distinct finding title becomes a rule; compliance issues are
// reported as notes under their own rules.
func ToSARIF(res *model.ScanResult, opts Options) (*sarif.Report, error) {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, fmt.Errorf("failed to create SARIF report: %w", err)
	}

	run := sarif.NewRunWithInformationURI(ToolName, ToolInfoURL)
	if opts.ToolVersion != "" {
		version := opts.ToolVersion
		run.Tool.Driver.Version = &version
	}
	path := opts.path()

	rulesSeen := map[string]*sarif.ReportingDescriptor{}
	addRule := func(id, name, description, help, level string, props sarif.Properties) *sarif.ReportingDescriptor {
		if rule, ok := rulesSeen[id]; ok {
			return rule
		}
		rule := run.AddRule(id).
			WithDescription(name).
			WithDefaultConfiguration(&sarif.ReportingConfiguration{Level: level}).
			WithProperties(props)
		rule.FullDescription = &sarif.MultiformatMessageString{Text: &description}
		rule.Help = &sarif.MultiformatMessageString{Text: &help}
		rulesSeen[id] = rule
		return rule
	}

	for _, v := range res.Vulnerabilities {
		level := sarifLevel(v.Severity)
		tags := append([]string{"security", slug(v.Category)}, v.OWASP...)
		props := sarif.Properties{
			"tags":              tags,
			"security-severity": fmt.Sprintf("%.1f", v.CVSSScore),
			"precision":         v.Confidence.String(),
		}
		if v.CWE != "" {
			props["cwe"] = v.CWE
		}
		rule := addRule(RuleID(v), v.Title, v.Description, v.Fix, level, props)

		result := sarif.NewRuleResult(rule.ID).
			WithMessage(sarif.NewTextMessage(v.Description)).
			WithLevel(level).
			WithLocations([]*sarif.Location{location(path, v.Line)})
		result.Properties = sarif.Properties{
			"severity":    v.Severity.String(),
			"fingerprint": fingerprint.GenerateVulnerability(path, v.Category, v.Title, v.Line),
		}
		run.AddResult(result)
	}

	if res.Compliance != nil {
		for _, c := range res.Compliance.Issues {
			props := sarif.Properties{
				"tags":      []string{"compliance", slug(c.Framework.String())},
				"framework": c.Framework.String(),
				"article":   c.Article,
			}
			rule := addRule(ComplianceRuleID(c), c.Title, c.Description, c.Fix, "note", props)

			result := sarif.NewRuleResult(rule.ID).
				WithMessage(sarif.NewTextMessage(fmt.Sprintf("%s %s: %s", c.Framework, c.Article, c.Description))).
				WithLevel("note").
				WithLocations([]*sarif.Location{location(path, c.Line)})
			run.AddResult(result)
		}
	}

	report.AddRun(run)
	return report, nil
}

// location points at path and, when line is known, at that line. SARIF
// regions start at line 1, so file-level findings carry no region.
func location(path string, line int) *sarif.Location {
	physical := sarif.NewPhysicalLocation().
		WithArtifactLocation(sarif.NewArtifactLocation().WithUri(path))
	if line > 0 {
		physical = physical.WithRegion(sarif.NewRegion().WithStartLine(line))
	}
	return sarif.NewLocation().WithPhysicalLocation(physical)
}

func sarifLevel(l severity.Level) string {
	switch l {
	case severity.Critical, severity.High:
		return "error"
	case severity.Medium:
		return "warning"
	default:
		return "note"
	}
}
