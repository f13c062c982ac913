// Package ris defines the RIS interchange document that scan reports are
// exported to.
//
// Only the parts of the schema a source code scanner produces are modelled:
// a repository or file asset, and vulnerability, secret and compliance
// findings located in that source.
package ris

import (
	"fmt"
	"slices"
	"time"
)

// SchemaVersion is the RIS version written by NewReport.
const SchemaVersion = "1.0"

// Report is the root RIS document containing assets and findings.
type Report struct {
	// Schema version (required)
	Version string `json:"version"`

	// Schema URL for validation (optional)
	Schema string `json:"$schema,omitempty"`

	// Report metadata
	Metadata ReportMetadata `json:"metadata"`

	// Tool that produced the report
	Tool *Tool `json:"tool,omitempty"`

	// Scanned sources
	Assets []Asset `json:"assets,omitempty"`

	// Findings discovered
	Findings []Finding `json:"findings,omitempty"`

	// Custom properties
	Properties Properties `json:"properties,omitempty"`
}

// ReportMetadata contains metadata about the report.
type ReportMetadata struct {
	// Unique identifier for this report (recommended)
	ID string `json:"id,omitempty"`

	// Timestamp when the report was generated (required)
	Timestamp time.Time `json:"timestamp"`

	// Duration of the scan in milliseconds
	DurationMs int `json:"duration_ms,omitempty"`

	// Source type: scanner, collector, integration, manual
	SourceType string `json:"source_type,omitempty"`

	// External reference, e.g. the history record id
	SourceRef string `json:"source_ref,omitempty"`

	// Target scope of the scan
	Scope *Scope `json:"scope,omitempty"`

	Properties Properties `json:"properties,omitempty"`
}

// Scope defines the target scope of the scan.
type Scope struct {
	Name     string   `json:"name,omitempty"`
	Type     string   `json:"type,omitempty"`
	Includes []string `json:"includes,omitempty"`
}

// Tool describes the tool that generated this report.
type Tool struct {
	// Tool name (required)
	Name string `json:"name"`

	Version      string   `json:"version,omitempty"`
	Vendor       string   `json:"vendor,omitempty"`
	InfoURL      string   `json:"info_url,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// Asset is a scanned source.
type Asset struct {
	// Identifier referenced by Finding.AssetRef
	ID string `json:"id"`

	Type  AssetType `json:"type"`
	Value string    `json:"value"`
	Name  string    `json:"name,omitempty"`

	// Language label of the scanned source
	Language string `json:"language,omitempty"`

	// Fingerprint of the scanned content
	ContentHash string `json:"content_hash,omitempty"`

	Properties Properties `json:"properties,omitempty"`
}

// Finding is one reported issue.
type Finding struct {
	// Unique identifier for this finding within the report
	ID string `json:"id,omitempty"`

	// Finding type (required)
	Type FindingType `json:"type"`

	// Short title (required)
	Title string `json:"title"`

	Description string `json:"description,omitempty"`

	// Severity (required)
	Severity Severity `json:"severity"`

	// Confidence score 0-100
	Confidence int `json:"confidence,omitempty"`

	Category string `json:"category,omitempty"`
	RuleID   string `json:"rule_id,omitempty"`
	RuleName string `json:"rule_name,omitempty"`

	// Reference to an asset ID within this report
	AssetRef string `json:"asset_ref,omitempty"`

	Location *FindingLocation `json:"location,omitempty"`

	// Exactly one of the detail blocks matching Type is set
	Vulnerability *VulnerabilityDetails `json:"vulnerability,omitempty"`
	Secret        *SecretDetails        `json:"secret,omitempty"`
	Compliance    *ComplianceDetails    `json:"compliance,omitempty"`

	Remediation *Remediation `json:"remediation,omitempty"`
	References  []string     `json:"references,omitempty"`
	Tags        []string     `json:"tags,omitempty"`

	// Fingerprint for deduplication across scans
	Fingerprint string `json:"fingerprint,omitempty"`

	Status FindingStatus `json:"status,omitempty"`

	Properties Properties `json:"properties,omitempty"`
}

// FindingStatus represents the status of a finding.
type FindingStatus string

const (
	FindingStatusOpen          FindingStatus = "open"
	FindingStatusResolved      FindingStatus = "resolved"
	FindingStatusFalsePositive FindingStatus = "false_positive"
)

// FindingLocation locates a finding in source code.
type FindingLocation struct {
	Path      string `json:"path,omitempty"`
	StartLine int    `json:"start_line,omitempty"`
	EndLine   int    `json:"end_line,omitempty"`
	Snippet   string `json:"snippet,omitempty"`
	Branch    string `json:"branch,omitempty"`
}

// VulnerabilityDetails contains vulnerability-specific details.
type VulnerabilityDetails struct {
	CWEIDs []string `json:"cwe_ids,omitempty"`

	// CWE ID (single, for older consumers)
	CWEID string `json:"cwe_id,omitempty"`

	// OWASP Top 10 categories, e.g. "A03:2021"
	OWASP []string `json:"owasp,omitempty"`

	CVSSVersion string  `json:"cvss_version,omitempty"`
	CVSSScore   float64 `json:"cvss_score,omitempty"`
	CVSSVector  string  `json:"cvss_vector,omitempty"`

	// CVSS data source; "heuristic" for scores derived from the rule
	CVSSSource string `json:"cvss_source,omitempty"`
}

// SecretDetails contains secret-specific details.
type SecretDetails struct {
	// Secret type: api_key, password, token, private_key, etc.
	SecretType string `json:"secret_type,omitempty"`

	// Service associated with the secret: aws, github, stripe, etc.
	Service string `json:"service,omitempty"`

	// Redacted line the secret was found on
	MaskedValue string `json:"masked_value,omitempty"`
}

// ComplianceDetails contains compliance-specific details.
type ComplianceDetails struct {
	// Framework: gdpr, hipaa, pci-dss, soc2, coppa
	Framework string `json:"framework,omitempty"`

	FrameworkVersion string `json:"framework_version,omitempty"`

	// Article or control reference
	ControlID   string `json:"control_id,omitempty"`
	ControlName string `json:"control_name,omitempty"`

	// Result: pass, fail, manual, not_applicable
	Result string `json:"result,omitempty"`
}

// Remediation provides remediation guidance for a finding.
type Remediation struct {
	Recommendation string   `json:"recommendation,omitempty"`
	Steps          []string `json:"steps,omitempty"`

	// Effort estimate: trivial, low, medium, high
	Effort string `json:"effort,omitempty"`

	References []string `json:"references,omitempty"`
}

// =============================================================================
// Enums and Value Objects
// =============================================================================

// AssetType represents the type of an asset.
type AssetType string

const (
	AssetTypeRepository AssetType = "repository"
	AssetTypeFile       AssetType = "file"
	AssetTypeSnippet    AssetType = "snippet"
)

// IsValid checks if the asset type is valid.
func (t AssetType) IsValid() bool {
	return slices.Contains([]AssetType{AssetTypeRepository, AssetTypeFile, AssetTypeSnippet}, t)
}

func (t AssetType) String() string {
	return string(t)
}

// FindingType represents the type of a finding.
type FindingType string

const (
	FindingTypeVulnerability FindingType = "vulnerability"
	FindingTypeSecret        FindingType = "secret"
	FindingTypeCompliance    FindingType = "compliance"
)

// AllFindingTypes returns all valid finding types.
func AllFindingTypes() []FindingType {
	return []FindingType{
		FindingTypeVulnerability,
		FindingTypeSecret,
		FindingTypeCompliance,
	}
}

// IsValid checks if the finding type is valid.
func (t FindingType) IsValid() bool {
	return slices.Contains(AllFindingTypes(), t)
}

// String returns the string representation.
func (t FindingType) String() string {
	return string(t)
}

// Severity represents the severity level.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// AllSeverities returns all valid severities.
func AllSeverities() []Severity {
	return []Severity{
		SeverityCritical,
		SeverityHigh,
		SeverityMedium,
		SeverityLow,
		SeverityInfo,
	}
}

// IsValid checks if the severity is valid.
func (s Severity) IsValid() bool {
	return slices.Contains(AllSeverities(), s)
}

// String returns the string representation.
func (s Severity) String() string {
	return string(s)
}

// Properties is a property bag for custom properties.
type Properties map[string]any

// NewReport creates a new empty RIS report generated at ts.
func NewReport(ts time.Time) *Report {
	return &Report{
		Version: SchemaVersion,
		Metadata: ReportMetadata{
			Timestamp:  ts,
			SourceType: "scanner",
		},
		Assets:   make([]Asset, 0),
		Findings: make([]Finding, 0),
	}
}

// Validate checks the required fields of the document.
func (r *Report) Validate() error {
	if r.Version == "" {
		return fmt.Errorf("ris: version is required")
	}
	if r.Metadata.Timestamp.IsZero() {
		return fmt.Errorf("ris: metadata.timestamp is required")
	}
	assets := make(map[string]bool, len(r.Assets))
	for _, a := range r.Assets {
		if !a.Type.IsValid() {
			return fmt.Errorf("ris: asset %q has invalid type %q", a.ID, a.Type)
		}
		assets[a.ID] = true
	}
	for i, f := range r.Findings {
		if f.Title == "" {
			return fmt.Errorf("ris: finding %d has no title", i)
		}
		if !f.Type.IsValid() {
			return fmt.Errorf("ris: finding %d has invalid type %q", i, f.Type)
		}
		if !f.Severity.IsValid() {
			return fmt.Errorf("ris: finding %d has invalid severity %q", i, f.Severity)
		}
		if f.AssetRef != "" && !assets[f.AssetRef] {
			return fmt.Errorf("ris: finding %d references unknown asset %q", i, f.AssetRef)
		}
	}
	return nil
}
