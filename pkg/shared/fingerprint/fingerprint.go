// Package fingerprint provides stable fingerprints for engine findings.
//
// Fingerprints identify the same finding across repeated scans of the same
// source: exported reports carry them so downstream trackers can deduplicate,
// and the history store keys scans by the hash of the scanned content.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Type represents the kind of finding being fingerprinted.
type Type string

const (
	// TypeVulnerability is for findings produced by the vulnerability detector.
	TypeVulnerability Type = "vuln"

	// TypeSecret is for hardcoded secret findings. The matched snippet is
	// hashed into the fingerprint so two secrets on one line stay distinct.
	TypeSecret Type = "secret"

	// TypeCompliance is for regulatory compliance issues.
	TypeCompliance Type = "compliance"

	// TypeHealth is for code health issues (no line information).
	TypeHealth Type = "health"
)

// Input contains the data needed to generate a fingerprint.
// Not all fields are required - only the relevant ones for the finding type.
type Input struct {
	Type Type

	// Common fields
	Path     string // File path or logical source name
	Category string // Finding category or compliance framework
	Title    string // Finding title
	Line     int    // 1-based line, 0 when the finding is file-level

	// Secret-specific: the redacted snippet of the offending line
	Snippet string

	// Compliance-specific: the article or clause reference
	Reference string
}

// Generate creates a fingerprint for the given input.
// The fingerprint is a SHA256 hash (64 hex characters).
//
// The algorithm varies by type:
//   - Vulnerability: path + category + title + line
//   - Secret: path + title + line + snippet hash
//   - Compliance: path + framework + reference + title + line
//   - Health: path + title
func Generate(input Input) string {
	var data string

	switch input.Type {
	case TypeVulnerability:
		data = fmt.Sprintf("vuln:%s:%s:%s:%d",
			normalize(input.Path),
			normalize(input.Category),
			normalize(input.Title),
			input.Line,
		)

	case TypeSecret:
		snippetHash := ""
		if input.Snippet != "" {
			snippetHash = Hash(input.Snippet)[:16]
		}
		data = fmt.Sprintf("secret:%s:%s:%d:%s",
			normalize(input.Path),
			normalize(input.Title),
			input.Line,
			snippetHash,
		)

	case TypeCompliance:
		data = fmt.Sprintf("compliance:%s:%s:%s:%s:%d",
			normalize(input.Path),
			normalize(input.Category),
			normalize(input.Reference),
			normalize(input.Title),
			input.Line,
		)

	case TypeHealth:
		data = fmt.Sprintf("health:%s:%s",
			normalize(input.Path),
			normalize(input.Title),
		)

	default:
		data = fmt.Sprintf("generic:%s:%s:%s:%d",
			normalize(input.Path),
			normalize(input.Category),
			normalize(input.Title),
			input.Line,
		)
	}

	return Hash(data)
}

// GenerateVulnerability is a convenience wrapper for detector findings.
func GenerateVulnerability(path, category, title string, line int) string {
	return Generate(Input{
		Type:     TypeVulnerability,
		Path:     path,
		Category: category,
		Title:    title,
		Line:     line,
	})
}

// GenerateSecret is a convenience wrapper for hardcoded secret findings.
func GenerateSecret(path, title string, line int, snippet string) string {
	return Generate(Input{
		Type:    TypeSecret,
		Path:    path,
		Title:   title,
		Line:    line,
		Snippet: snippet,
	})
}

// GenerateCompliance is a convenience wrapper for compliance issues.
func GenerateCompliance(path, framework, reference, title string, line int) string {
	return Generate(Input{
		Type:      TypeCompliance,
		Path:      path,
		Category:  framework,
		Reference: reference,
		Title:     title,
		Line:      line,
	})
}

// Content returns the fingerprint of a scanned source text. Line endings are
// normalized so the same file checked out on Windows and Unix hashes equally.
func Content(code string) string {
	return Hash(strings.ReplaceAll(code, "\r\n", "\n"))
}

// Hash computes SHA256 hash of the input string.
// Returns 64 hex characters.
func Hash(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// normalize cleans up a string for consistent fingerprinting.
// - Trims whitespace
// - Converts to lowercase for case-insensitive matching
// - Normalizes path separators
func normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "\\", "/")
	return s
}
