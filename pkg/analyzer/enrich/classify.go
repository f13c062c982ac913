package enrich

import (
	"strings"

	"github.com/exploopio/codeguard/pkg/analyzer/rules"
)

// Classification holds the OWASP Top 10 (web 2021 and mobile 2024) ids and
// the CWE id for a finding.
type Classification struct {
	OWASP []string
	CWE   string
}

type titleMapping struct {
	// lowercase title fragment
	match string
	Classification
}

type categoryMapping struct {
	titles   []titleMapping
	fallback Classification
}

func class(cwe string, owasp ...string) Classification {
	return Classification{OWASP: owasp, CWE: cwe}
}

// Unknown categories fall back to insecure design.
var defaultClassification = class("CWE-710", "A04:2021")

var categoryMappings = map[string]categoryMapping{
	rules.CategorySecrets: {
		titles: []titleMapping{
			{"private key", class("CWE-321", "A02:2021", "M1:2024")},
			{"connection string", class("CWE-798", "A07:2021", "M1:2024")},
		},
		fallback: class("CWE-798", "A07:2021", "M1:2024"),
	},
	rules.CategoryInjection: {
		titles: []titleMapping{
			{"sql", class("CWE-89", "A03:2021", "M4:2024")},
			{"command", class("CWE-78", "A03:2021", "M4:2024")},
			{"path traversal", class("CWE-22", "A01:2021", "M4:2024")},
			{"deserialization", class("CWE-502", "A08:2021", "M4:2024")},
			{"xml external", class("CWE-611", "A05:2021", "M4:2024")},
		},
		fallback: class("CWE-74", "A03:2021", "M4:2024"),
	},
	rules.CategoryTransport: {
		titles: []titleMapping{
			{"certificate", class("CWE-295", "A02:2021", "M5:2024")},
			{"cleartext", class("CWE-319", "A05:2021", "M5:2024")},
		},
		fallback: class("CWE-319", "A02:2021", "M5:2024"),
	},
	rules.CategoryCryptography: {
		titles: []titleMapping{
			{"hashing", class("CWE-328", "A02:2021", "M10:2024")},
			{"random", class("CWE-338", "A02:2021", "M10:2024")},
			{"key size", class("CWE-326", "A02:2021", "M10:2024")},
			{"initialization vector", class("CWE-329", "A02:2021", "M10:2024")},
		},
		fallback: class("CWE-327", "A02:2021", "M10:2024"),
	},
	rules.CategoryStorage: {
		titles: []titleMapping{
			{"world-accessible", class("CWE-732", "A01:2021", "M9:2024")},
			{"external storage", class("CWE-922", "A04:2021", "M9:2024")},
		},
		fallback: class("CWE-312", "A04:2021", "M9:2024"),
	},
	rules.CategoryLogging: {
		fallback: class("CWE-532", "A09:2021", "M6:2024"),
	},
	rules.CategoryErrorHandling: {
		titles: []titleMapping{
			{"empty", class("CWE-390", "A09:2021")},
			{"broad", class("CWE-396", "A04:2021")},
		},
		fallback: class("CWE-703", "A04:2021"),
	},
	rules.CategoryWebView: {
		titles: []titleMapping{
			{"javascript interface", class("CWE-749", "A03:2021", "M4:2024")},
			{"file access", class("CWE-200", "A01:2021", "M8:2024")},
			{"debugging", class("CWE-489", "A05:2021", "M7:2024")},
			{"mixed content", class("CWE-319", "A02:2021", "M5:2024")},
		},
		fallback: class("CWE-79", "A03:2021", "M4:2024"),
	},
	rules.CategoryConfiguration: {
		titles: []titleMapping{
			{"debuggable", class("CWE-489", "A05:2021", "M7:2024")},
			{"obfuscation", class("CWE-693", "A05:2021", "M7:2024")},
			{"backup", class("CWE-530", "A05:2021", "M9:2024")},
		},
		fallback: class("CWE-16", "A05:2021", "M8:2024"),
	},
	rules.CategoryPlatform: {
		titles: []titleMapping{
			{"broadcast", class("CWE-925", "A01:2021", "M8:2024")},
			{"pendingintent", class("CWE-927", "A01:2021", "M8:2024")},
			{"dynamic code", class("CWE-94", "A08:2021", "M7:2024")},
		},
		fallback: class("CWE-926", "A01:2021", "M8:2024"),
	},
	rules.CategoryInputValidation: {
		titles: []titleMapping{
			{"deep link", class("CWE-939", "A01:2021", "M4:2024")},
		},
		fallback: class("CWE-20", "A03:2021", "M4:2024"),
	},
	rules.CategoryDataLeakage: {
		fallback: class("CWE-200", "A01:2021", "M6:2024"),
	},
	rules.CategoryNetwork: {
		fallback: class("CWE-1051", "A05:2021", "M8:2024"),
	},
	rules.CategoryNullSafety: {
		titles: []titleMapping{
			{"cast", class("CWE-704", "A04:2021")},
		},
		fallback: class("CWE-476", "A04:2021"),
	},
	rules.CategoryCodeQuality: {
		titles: []titleMapping{
			{"todo", class("CWE-546", "A04:2021")},
			{"reflection", class("CWE-470", "A03:2021", "M7:2024")},
		},
		fallback: class("CWE-710", "A04:2021"),
	},
	rules.CategoryNavigation: {
		fallback: class("CWE-601", "A01:2021", "M4:2024"),
	},
}

// Classify maps a finding's category and title to its OWASP and CWE ids.
// The category selects a table, the first title fragment found in the
// lowercased title wins and the category default applies otherwise.
func Classify(category, title string) Classification {
	m, ok := categoryMappings[category]
	if !ok {
		return defaultClassification
	}
	lower := strings.ToLower(title)
	for _, t := range m.titles {
		if strings.Contains(lower, t.match) {
			return t.Classification
		}
	}
	return m.fallback
}
