// Package scoring turns per-severity finding counts into a 0-100 security
// score and a letter grade.
//
// Deductions have diminishing returns inside a tier, and the final score is
// clamped into a band chosen by the most severe findings so grade boundaries
// stay stable as checkers are added.
package scoring

import (
	"github.com/exploopio/codeguard/pkg/shared/severity"
)

const (
	MaxScore = 100
	MinScore = 0

	// Additional findings in a tier beyond the first that still cost points.
	extraCap = 4

	// Low findings cost one point each up to this many.
	lowCap = 5
)

type tierCost struct {
	first int
	extra int
}

var tierCosts = map[severity.Level]tierCost{
	severity.Critical: {first: 12, extra: 6},
	severity.High:     {first: 8, extra: 4},
	severity.Medium:   {first: 4, extra: 2},
}

// Deduction returns the points removed for n findings of one tier.
func Deduction(level severity.Level, n int) int {
	if n <= 0 {
		return 0
	}
	if level == severity.Low {
		return min(n, lowCap)
	}
	c, ok := tierCosts[level]
	if !ok {
		return 0
	}
	return c.first + min(n-1, extraCap)*c.extra
}

// Band is the inclusive range a score is clamped into.
type Band struct {
	Min int
	Max int
}

// BandFor returns the band selected by the counts.
func BandFor(c severity.CountBySeverity) Band {
	switch {
	case c.Critical >= 3:
		return Band{5, 25}
	case c.Critical == 2:
		return Band{15, 40}
	case c.Critical == 1:
		return Band{25, 55}
	case c.High >= 3:
		return Band{30, 60}
	case c.High > 0:
		return Band{45, 75}
	case c.Medium > 0:
		return Band{55, 95}
	case c.Low > 0:
		return Band{85, 100}
	default:
		return Band{MaxScore, MaxScore}
	}
}

// Score computes the security score for the counts.
func Score(c severity.CountBySeverity) int {
	s := MaxScore
	for _, l := range severity.AllLevels() {
		s -= Deduction(l, c.Get(l))
	}
	b := BandFor(c)
	s = min(max(s, b.Min), b.Max)
	return min(max(s, MinScore), MaxScore)
}

// Grade thresholds, highest first.
var gradeThresholds = []struct {
	min   int
	grade string
}{
	{85, "A"},
	{70, "B"},
	{50, "C"},
	{30, "D"},
}

// Grade maps a score to a letter grade.
func Grade(score int) string {
	for _, t := range gradeThresholds {
		if score >= t.min {
			return t.grade
		}
	}
	return "F"
}
