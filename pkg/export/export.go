// Package export renders analysis results for people and for other tools:
// plain text, JSON, SARIF 2.1.0 and RIS documents.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/exploopio/codeguard/pkg/errors"
	"github.com/exploopio/codeguard/pkg/model"
)

// Tool identity written into SARIF and RIS documents.
const (
	ToolName    = "codeguard"
	ToolVendor  = "Exploop"
	ToolInfoURL = "https://github.com/exploopio/codeguard"
)

// Format is an output format.
type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatSARIF Format = "sarif"
	FormatRIS   Format = "ris"
)

// ParseFormat parses a format name. The empty string means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatSARIF, FormatRIS:
		return f, nil
	default:
		return "", errors.E(errors.KindInvalidInput, "export.ParseFormat",
			fmt.Sprintf("unknown format %q (want text, json, sarif or ris)", s))
	}
}

// Options carries the context a result does not hold itself.
type Options struct {
	// Path of the scanned source, used in locations. Defaults to "stdin".
	Path string

	// ToolVersion is written into SARIF and RIS tool blocks.
	ToolVersion string

	// ReportID identifies the RIS report, typically a history record id.
	// A random UUID is used when empty.
	ReportID string

	// ContentHash is the fingerprint of the scanned text.
	ContentHash string

	// Timestamp of the RIS report. Defaults to now.
	Timestamp time.Time
}

func (o Options) path() string {
	if o.Path == "" {
		return "stdin"
	}
	return o.Path
}

// WriteSecurity writes a security scan result in format f.
func WriteSecurity(w io.Writer, f Format, res *model.ScanResult, opts Options) error {
	switch f {
	case FormatText, "":
		_, err := io.WriteString(w, SecurityText(res, opts))
		return err
	case FormatJSON:
		return writeJSON(w, res)
	case FormatSARIF:
		report, err := ToSARIF(res, opts)
		if err != nil {
			return err
		}
		return report.PrettyWrite(w)
	case FormatRIS:
		return writeJSON(w, ToRIS(res, opts))
	default:
		return errors.E(errors.KindInvalidInput, "export.WriteSecurity", fmt.Sprintf("unknown format %q", f))
	}
}

// WriteHealth writes a health result. Only text and JSON apply to health
// reports.
func WriteHealth(w io.Writer, f Format, res *model.CodeHealthResult, opts Options) error {
	switch f {
	case FormatText, "":
		_, err := io.WriteString(w, HealthText(res, opts))
		return err
	case FormatJSON:
		return writeJSON(w, res)
	default:
		return errors.E(errors.KindInvalidInput, "export.WriteHealth",
			fmt.Sprintf("format %q is not available for health reports", f))
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// slug turns a title into a lowercase rule id fragment.
func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// RuleID returns the stable rule id of a vulnerability.
func RuleID(v model.Vulnerability) string {
	return "cg/" + slug(v.Category) + "/" + slug(v.Title)
}

// ComplianceRuleID returns the stable rule id of a compliance issue.
func ComplianceRuleID(c model.ComplianceIssue) string {
	return "cg/compliance/" + slug(c.Framework.String()) + "/" + slug(c.Title)
}
