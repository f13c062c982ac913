package severity

import (
	"slices"
	"testing"
)

func TestLevel_Ordinal(t *testing.T) {
	tests := []struct {
		level    Level
		expected int
	}{
		{Critical, 0},
		{High, 1},
		{Medium, 2},
		{Low, 3},
		{Level("invalid"), 4},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			if got := tt.level.Ordinal(); got != tt.expected {
				t.Errorf("Level.Ordinal() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestLevel_Label(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{Critical, "Critical"},
		{High, "High"},
		{Medium, "Medium"},
		{Low, "Low"},
		{Level(""), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.level.Label(); got != tt.expected {
				t.Errorf("Level.Label() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestLevel_IsHigherThan(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Level
		expected bool
	}{
		{"Critical > High", Critical, High, true},
		{"High > Medium", High, Medium, true},
		{"Medium > Low", Medium, Low, true},
		{"Same severity", High, High, false},
		{"Low not > High", Low, High, false},
		{"Invalid not > Low", Level("x"), Low, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.IsHigherThan(tt.b); got != tt.expected {
				t.Errorf("Level.IsHigherThan() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestFromString(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"CRITICAL", Critical},
		{"crit", Critical},
		{"High", High},
		{"error", High},
		{"warning", Medium},
		{" medium ", Medium},
		{"low", Low},
		{"whatever", Low},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := FromString(tt.input); got != tt.expected {
				t.Errorf("FromString(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFromCVSS(t *testing.T) {
	tests := []struct {
		score    float64
		expected Level
	}{
		{10.0, Critical},
		{9.8, Critical},
		{9.0, Critical},
		{8.9, High},
		{7.0, High},
		{6.9, Medium},
		{4.0, Medium},
		{3.9, Low},
		{0.0, Low},
	}

	for _, tt := range tests {
		if got := FromCVSS(tt.score); got != tt.expected {
			t.Errorf("FromCVSS(%v) = %v, want %v", tt.score, got, tt.expected)
		}
	}
}

func TestCompare_SortsCriticalFirst(t *testing.T) {
	levels := []Level{Low, Critical, Medium, High, Critical}
	slices.SortStableFunc(levels, Compare)

	want := []Level{Critical, Critical, High, Medium, Low}
	if !slices.Equal(levels, want) {
		t.Errorf("sorted = %v, want %v", levels, want)
	}
}

func TestConfidence_Percent(t *testing.T) {
	if ConfidenceHigh.Percent() <= ConfidenceMedium.Percent() {
		t.Error("high confidence should map above medium")
	}
	if ConfidenceMedium.Percent() <= ConfidenceLow.Percent() {
		t.Error("medium confidence should map above low")
	}
	if Confidence("").Percent() != 0 {
		t.Error("empty confidence should map to 0")
	}
}

func TestCountBySeverity(t *testing.T) {
	var c CountBySeverity
	if _, ok := c.HighestSeverity(); ok {
		t.Fatal("empty counter should report no highest severity")
	}

	c.Increment(Medium)
	c.Increment(Low)
	c.Increment(High)
	c.Increment(High)

	if c.Total != 4 {
		t.Errorf("Total = %d, want 4", c.Total)
	}
	if c.Get(High) != 2 {
		t.Errorf("Get(High) = %d, want 2", c.Get(High))
	}
	if got, ok := c.HighestSeverity(); !ok || got != High {
		t.Errorf("HighestSeverity() = %v, %v, want high, true", got, ok)
	}
}
