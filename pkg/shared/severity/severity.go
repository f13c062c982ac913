// Package severity provides the severity tiers and confidence levels shared by
// the security scanner, the compliance pass and the code health analyzer.
//
// Tiers are ordered Critical, High, Medium, Low. Ordinal follows that order
// (Critical = 0) and is the sort key for every report the engine produces.
package severity

import "strings"

// Level represents a severity tier for a finding or a health issue.
type Level string

const (
	// Critical - Exploitable as written. Secrets, injection, unsafe deserialization.
	Critical Level = "critical"

	// High - Serious weakness that should be fixed before release.
	High Level = "high"

	// Medium - Weakness that needs specific conditions to be exploited.
	Medium Level = "medium"

	// Low - Hygiene issue or weak signal.
	Low Level = "low"
)

// AllLevels returns all severity tiers in ordinal order (Critical first).
func AllLevels() []Level {
	return []Level{Critical, High, Medium, Low}
}

// String returns the string representation of the severity level.
func (l Level) String() string {
	return string(l)
}

// Label returns the capitalized display name ("Critical", "High", ...).
func (l Level) Label() string {
	switch l {
	case Critical:
		return "Critical"
	case High:
		return "High"
	case Medium:
		return "Medium"
	case Low:
		return "Low"
	default:
		return "Unknown"
	}
}

// Ordinal returns the sort position of the level. Critical is 0, Low is 3 and
// anything unrecognised sorts last.
func (l Level) Ordinal() int {
	switch l {
	case Critical:
		return 0
	case High:
		return 1
	case Medium:
		return 2
	case Low:
		return 3
	default:
		return 4
	}
}

// Priority returns the numeric priority of the severity level.
// Higher numbers = higher priority.
func (l Level) Priority() int {
	return 4 - l.Ordinal()
}

// IsHigherThan returns true if this severity is higher than the other.
func (l Level) IsHigherThan(other Level) bool {
	return l.Priority() > other.Priority()
}

// IsAtLeast returns true if this severity is at least as high as the other.
func (l Level) IsAtLeast(other Level) bool {
	return l.Priority() >= other.Priority()
}

// IsValid reports whether l is one of the four tiers.
func (l Level) IsValid() bool {
	return l.Ordinal() < 4
}

// FromString normalizes user supplied severity names (CLI flags, config files,
// API query parameters). Unknown input maps to Low.
func FromString(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CRITICAL", "CRIT":
		return Critical
	case "HIGH", "ERROR", "SEVERE":
		return High
	case "MEDIUM", "MODERATE", "WARNING", "WARN", "MED":
		return Medium
	default:
		return Low
	}
}

// FromCVSS converts a CVSS base score (0.0-10.0) to a severity tier.
// Based on CVSS v3.x qualitative ratings, with "None" folded into Low.
func FromCVSS(score float64) Level {
	switch {
	case score >= 9.0:
		return Critical
	case score >= 7.0:
		return High
	case score >= 4.0:
		return Medium
	default:
		return Low
	}
}

// ToCVSSRange returns the CVSS score range for a severity level.
// Returns (min, max) where min is inclusive and max is exclusive.
func (l Level) ToCVSSRange() (float64, float64) {
	switch l {
	case Critical:
		return 9.0, 10.1
	case High:
		return 7.0, 9.0
	case Medium:
		return 4.0, 7.0
	case Low:
		return 0.0, 4.0
	default:
		return 0.0, 0.0
	}
}

// Compare returns:
//
//	-1 if a sorts before b (a is more severe)
//	 0 if a == b
//	+1 if a sorts after b
//
// The result is suitable for slices.SortStableFunc.
func Compare(a, b Level) int {
	oa, ob := a.Ordinal(), b.Ordinal()
	switch {
	case oa < ob:
		return -1
	case oa > ob:
		return 1
	default:
		return 0
	}
}

// Max returns the higher severity of two levels.
func Max(a, b Level) Level {
	if a.IsHigherThan(b) {
		return a
	}
	return b
}

// Min returns the lower severity of two levels.
func Min(a, b Level) Level {
	if a.IsHigherThan(b) {
		return b
	}
	return a
}

// Confidence is the engine's certainty that a finding is a true positive.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// String returns the string representation of the confidence.
func (c Confidence) String() string {
	return string(c)
}

// Percent maps the confidence to the 0-100 scale used by exported reports.
func (c Confidence) Percent() int {
	switch c {
	case ConfidenceHigh:
		return 90
	case ConfidenceMedium:
		return 60
	case ConfidenceLow:
		return 30
	default:
		return 0
	}
}

// CountBySeverity counts findings by severity level.
type CountBySeverity struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Total    int `json:"total"`
}

// Increment increases the count for the given severity.
func (c *CountBySeverity) Increment(level Level) {
	c.Total++
	switch level {
	case Critical:
		c.Critical++
	case High:
		c.High++
	case Medium:
		c.Medium++
	default:
		c.Low++
	}
}

// Get returns the count recorded for level.
func (c *CountBySeverity) Get(level Level) int {
	switch level {
	case Critical:
		return c.Critical
	case High:
		return c.High
	case Medium:
		return c.Medium
	case Low:
		return c.Low
	default:
		return 0
	}
}

// HighestSeverity returns the highest severity level that has a non-zero
// count. The boolean is false when nothing was counted.
func (c *CountBySeverity) HighestSeverity() (Level, bool) {
	for _, l := range AllLevels() {
		if c.Get(l) > 0 {
			return l, true
		}
	}
	return Low, false
}
