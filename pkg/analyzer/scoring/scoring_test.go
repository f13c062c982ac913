package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/exploopio/codeguard/pkg/shared/severity"
)

func counts(crit, high, med, low int) severity.CountBySeverity {
	return severity.CountBySeverity{
		Critical: crit,
		High:     high,
		Medium:   med,
		Low:      low,
		Total:    crit + high + med + low,
	}
}

func TestDeduction(t *testing.T) {
	tests := []struct {
		level severity.Level
		n     int
		want  int
	}{
		{severity.Critical, 0, 0},
		{severity.Critical, 1, 12},
		{severity.Critical, 2, 18},
		{severity.Critical, 5, 36},
		{severity.Critical, 20, 36},
		{severity.High, 1, 8},
		{severity.High, 3, 16},
		{severity.High, 9, 24},
		{severity.Medium, 1, 4},
		{severity.Medium, 6, 12},
		{severity.Low, 3, 3},
		{severity.Low, 40, 5},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Deduction(tt.level, tt.n), "%s x%d", tt.level, tt.n)
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		c    severity.CountBySeverity
		want int
	}{
		{"clean", counts(0, 0, 0, 0), 100},
		{"one low", counts(0, 0, 0, 1), 99},
		{"many lows stay in band", counts(0, 0, 0, 30), 95},
		{"one medium", counts(0, 0, 1, 0), 95},
		{"mediums and lows", counts(0, 0, 30, 30), 83},
		{"one high", counts(0, 1, 0, 0), 75},
		{"high capped at 75", counts(0, 2, 5, 0), 75},
		{"highs mediums lows", counts(0, 2, 5, 5), 71},
		{"three highs", counts(0, 3, 0, 0), 60},
		{"one critical", counts(1, 0, 0, 0), 55},
		{"one critical plus noise", counts(1, 5, 10, 10), 47},
		{"two criticals", counts(2, 0, 0, 0), 40},
		{"three criticals", counts(3, 0, 0, 0), 25},
		{"everything", counts(10, 10, 10, 10), 23},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.c))
		})
	}
}

func TestScore_Bounds(t *testing.T) {
	for crit := 0; crit < 6; crit++ {
		for high := 0; high < 6; high++ {
			for med := 0; med < 6; med++ {
				for low := 0; low < 8; low++ {
					s := Score(counts(crit, high, med, low))
					assert.GreaterOrEqual(t, s, MinScore)
					assert.LessOrEqual(t, s, MaxScore)
				}
			}
		}
	}
}

func TestScore_AddingCriticalLowersScore(t *testing.T) {
	for high := 0; high < 4; high++ {
		for med := 0; med < 4; med++ {
			before := Score(counts(0, high, med, 2))
			after := Score(counts(1, high, med, 2))
			assert.Less(t, after, before, "high=%d med=%d", high, med)
		}
	}
}

func TestGrade(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{100, "A"},
		{85, "A"},
		{84, "B"},
		{70, "B"},
		{69, "C"},
		{50, "C"},
		{49, "D"},
		{30, "D"},
		{29, "F"},
		{0, "F"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Grade(tt.score), "score %d", tt.score)
	}
}
