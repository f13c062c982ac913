package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exploopio/codeguard/pkg/analyzer"
	"github.com/exploopio/codeguard/pkg/errors"
	"github.com/exploopio/codeguard/pkg/model"
	"github.com/exploopio/codeguard/pkg/ris"
)

var githubToken = "ghp_" + strings.Repeat("a1B2", 9)

var leakySource = strings.Join([]string{
	`fun login(userId: String) {`,
	`    val token = "` + githubToken + `"`,
	`    val query = "SELECT * FROM users WHERE id = " + userId`,
	`    prefs.edit().putString("email", user.email).apply()`,
	`    return db.rawQuery(query, null)`,
	`}`,
}, "\n")

func scan(t *testing.T) *model.ScanResult {
	t.Helper()
	res := analyzer.ScanSecurity(leakySource, "Kotlin")
	require.NotEmpty(t, res.Vulnerabilities)
	return res
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatText, "JSON": FormatJSON, "sarif": FormatSARIF, "ris": FormatRIS} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xml")
	assert.True(t, errors.IsInvalidInput(err))
}

func TestRuleIDs(t *testing.T) {
	assert.Equal(t, "error-handling", slug("Error Handling"))
	assert.Equal(t, "pci-dss", slug("PCI-DSS"))
	assert.Equal(t, "cg/injection/sql-injection", RuleID(model.Vulnerability{Category: "Injection", Title: "SQL Injection"}))
	assert.Equal(t, "cg/compliance/gdpr/unencrypted-personal-data",
		ComplianceRuleID(model.ComplianceIssue{Framework: model.FrameworkGDPR, Title: "Unencrypted Personal Data!"}))
}

func TestToRIS(t *testing.T) {
	res := scan(t)
	ts := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	report := ToRIS(res, Options{Path: "app/Login.kt", ToolVersion: "1.2.0", ReportID: "rec-1", ContentHash: "abc", Timestamp: ts})
	require.NoError(t, report.Validate())

	assert.Equal(t, ris.SchemaVersion, report.Version)
	assert.Equal(t, "rec-1", report.Metadata.ID)
	assert.Equal(t, ts, report.Metadata.Timestamp)
	assert.Equal(t, "1.2.0", report.Tool.Version)
	require.Len(t, report.Assets, 1)
	assert.Equal(t, ris.AssetTypeFile, report.Assets[0].Type)
	assert.Equal(t, "Kotlin", report.Assets[0].Language)

	want := len(res.Vulnerabilities) + len(res.Compliance.Issues)
	require.Len(t, report.Findings, want)

	var secret, sql *ris.Finding
	for i := range report.Findings {
		f := &report.Findings[i]
		assert.Len(t, f.Fingerprint, 64, f.Title)
		assert.Equal(t, "source", f.AssetRef)
		switch f.Title {
		case "GitHub Personal Access Token":
			secret = f
		case "SQL Injection":
			sql = f
		}
	}

	require.NotNil(t, secret)
	assert.Equal(t, ris.FindingTypeSecret, secret.Type)
	assert.Equal(t, "github", secret.Secret.Service)
	assert.Equal(t, "token", secret.Secret.SecretType)
	assert.NotContains(t, secret.Secret.MaskedValue, githubToken)
	assert.Equal(t, 2, secret.Location.StartLine)

	require.NotNil(t, sql)
	assert.Equal(t, ris.FindingTypeVulnerability, sql.Type)
	assert.Equal(t, ris.SeverityCritical, sql.Severity)
	assert.Equal(t, "CWE-89", sql.Vulnerability.CWEID)
	assert.Equal(t, []string{"https://cwe.mitre.org/data/definitions/89.html"}, sql.References)

	last := report.Findings[len(report.Findings)-1]
	assert.Equal(t, ris.FindingTypeCompliance, last.Type)
	assert.Equal(t, "fail", last.Compliance.Result)
}

func TestToRIS_Snippet(t *testing.T) {
	report := ToRIS(analyzer.ScanSecurity("val x = 1", "Kotlin"), Options{})
	require.NoError(t, report.Validate())
	assert.Equal(t, ris.AssetTypeSnippet, report.Assets[0].Type)
	assert.Len(t, report.Metadata.ID, 36)
	assert.Empty(t, report.Findings)
}

func TestToSARIF(t *testing.T) {
	res := scan(t)

	var buf bytes.Buffer
	require.NoError(t, WriteSecurity(&buf, FormatSARIF, res, Options{Path: "Login.kt", ToolVersion: "1.2.0"}))

	var doc struct {
		Version string `json:"version"`
		Runs    []struct {
			Tool struct {
				Driver struct {
					Name    string `json:"name"`
					Version string `json:"version"`
					Rules   []struct {
						ID string `json:"id"`
					} `json:"rules"`
				} `json:"driver"`
			} `json:"tool"`
			Results []struct {
				RuleID    string `json:"ruleId"`
				Level     string `json:"level"`
				Locations []struct {
					PhysicalLocation struct {
						ArtifactLocation struct {
							URI string `json:"uri"`
						} `json:"artifactLocation"`
						Region *struct {
							StartLine int `json:"startLine"`
						} `json:"region"`
					} `json:"physicalLocation"`
				} `json:"locations"`
			} `json:"results"`
		} `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, "2.1.0", doc.Version)
	require.Len(t, doc.Runs, 1)
	run := doc.Runs[0]
	assert.Equal(t, ToolName, run.Tool.Driver.Name)
	assert.Equal(t, "1.2.0", run.Tool.Driver.Version)
	assert.Len(t, run.Results, len(res.Vulnerabilities)+len(res.Compliance.Issues))

	ids := map[string]bool{}
	for _, r := range run.Tool.Driver.Rules {
		assert.False(t, ids[r.ID], "duplicate rule %s", r.ID)
		ids[r.ID] = true
	}

	first := run.Results[0]
	assert.Equal(t, "error", first.Level)
	assert.True(t, ids[first.RuleID])
	require.Len(t, first.Locations, 1)
	assert.Equal(t, "Login.kt", first.Locations[0].PhysicalLocation.ArtifactLocation.URI)
	require.NotNil(t, first.Locations[0].PhysicalLocation.Region)
	assert.Equal(t, res.Vulnerabilities[0].Line, first.Locations[0].PhysicalLocation.Region.StartLine)
}

func TestWriteHealth(t *testing.T) {
	res := analyzer.AnalyzeHealth(leakySource, "Kotlin")

	var buf bytes.Buffer
	require.NoError(t, WriteHealth(&buf, FormatText, res, Options{Path: "Login.kt"}))
	out := buf.String()
	assert.Contains(t, out, "Code health: Login.kt (Kotlin)")
	assert.Contains(t, out, "Bug risk")
	assert.Contains(t, out, "Metrics\n  6 lines")

	buf.Reset()
	require.NoError(t, WriteHealth(&buf, FormatJSON, res, Options{}))
	var decoded model.CodeHealthResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, res.OverallScore, decoded.OverallScore)

	err := WriteHealth(&buf, FormatSARIF, res, Options{})
	assert.True(t, errors.IsInvalidInput(err))
}

func TestSecurityText(t *testing.T) {
	res := scan(t)
	out := SecurityText(res, Options{Path: "Login.kt"})

	assert.True(t, strings.HasPrefix(out, "Security scan: Login.kt (Kotlin)\nScore "), out)
	assert.Contains(t, out, "[Critical] GitHub Personal Access Token (line 2)")
	assert.Contains(t, out, "[Critical] SQL Injection (line 3)")
	assert.Contains(t, out, "CWE-89")
	assert.Contains(t, out, "\nCompliance\n")
	assert.NotContains(t, out, githubToken)
}
