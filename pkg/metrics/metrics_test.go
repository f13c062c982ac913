package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestInMemoryCollector(t *testing.T) {
	c := NewInMemoryCollector()

	t.Run("Counter", func(t *testing.T) {
		c.CounterInc(ScansTotal.Name, "kind", "security", "grade", "A")
		c.CounterInc(ScansTotal.Name, "kind", "security", "grade", "A")
		c.CounterAdd(ScansTotal.Name, 5, "kind", "security", "grade", "A")

		if got := c.GetCounter(ScansTotal.Name, "kind", "security", "grade", "A"); got != 7 {
			t.Errorf("Counter = %v, want %v", got, 7)
		}
		if got := c.GetCounter(ScansTotal.Name, "kind", "health", "grade", "A"); got != 0 {
			t.Errorf("Counter with other labels = %v, want 0", got)
		}
	})

	t.Run("Gauge", func(t *testing.T) {
		c.GaugeSet(LastSecurityScore.Name, 42)
		if got := c.GetGauge(LastSecurityScore.Name); got != 42 {
			t.Errorf("Gauge = %v, want %v", got, 42)
		}
	})

	t.Run("Histogram", func(t *testing.T) {
		c.HistogramObserve(HealthScore.Name, 91)
		c.HistogramObserve(HealthScore.Name, 55)
		if got := c.GetHistogram(HealthScore.Name); len(got) != 2 {
			t.Errorf("Histogram observations = %v, want %v", len(got), 2)
		}
	})
}

func TestTimer(t *testing.T) {
	c := NewInMemoryCollector()
	timer := NewTimer(c, ScanDuration.Name, "kind", "health")
	time.Sleep(time.Millisecond)
	d := timer.ObserveDuration()

	if d <= 0 {
		t.Errorf("duration = %v, want > 0", d)
	}
	obs := c.GetHistogram(ScanDuration.Name, "kind", "health")
	if len(obs) != 1 || obs[0] <= 0 {
		t.Errorf("observations = %v", obs)
	}
}

func TestDefaultCollector(t *testing.T) {
	defer SetDefaultCollector(nil)

	if _, ok := GetDefaultCollector().(*NopCollector); !ok {
		t.Fatal("default collector should be a NopCollector")
	}
	c := NewInMemoryCollector()
	SetDefaultCollector(c)
	if GetDefaultCollector() != Collector(c) {
		t.Error("SetDefaultCollector did not take effect")
	}
	SetDefaultCollector(nil)
	if _, ok := GetDefaultCollector().(*NopCollector); !ok {
		t.Error("nil should restore the NopCollector")
	}
}

func TestDefinitionsAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, def := range Definitions() {
		if seen[def.Name] {
			t.Errorf("duplicate metric %s", def.Name)
		}
		seen[def.Name] = true
		if !strings.HasPrefix(def.Name, "codeguard_") {
			t.Errorf("metric %s lacks the codeguard_ prefix", def.Name)
		}
	}
}

func TestPrometheusCollector(t *testing.T) {
	c, err := NewPrometheusCollector(nil)
	if err != nil {
		t.Fatalf("NewPrometheusCollector() error = %v", err)
	}

	c.CounterInc(FindingsTotal.Name, "severity", "critical")
	c.CounterAdd(FindingsTotal.Name, 2, "severity", "high")
	c.GaugeSet(LastSecurityScore.Name, 55)
	c.HistogramObserve(HealthScore.Name, 91)
	c.CounterInc("not_registered")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	out := string(body)

	for _, want := range []string{
		`codeguard_findings_total{severity="critical"} 1`,
		`codeguard_findings_total{severity="high"} 2`,
		`codeguard_last_security_score 55`,
		`codeguard_health_score_count 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output lacks %q", want)
		}
	}

	if err := c.Register(FindingsTotal); err != nil {
		t.Errorf("registering twice should be a no-op, got %v", err)
	}
	if err := c.Register(MetricDefinition{Name: "x", Type: "bogus"}); err == nil {
		t.Error("unknown metric type should fail")
	}
}
