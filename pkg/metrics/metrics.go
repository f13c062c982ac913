// Package metrics records what the analyzer does: scans run, findings per
// severity, compliance issues per framework, health scores, remote fetches,
// history writes and HTTP requests.
//
// Code records through the Collector interface. NopCollector is the default;
// PrometheusCollector backs the /metrics endpoint and InMemoryCollector is
// used by tests.
package metrics

import (
	"net/http"
	"sync"
	"time"
)

// =============================================================================
// Metrics Interface
// =============================================================================

// Collector is the interface for collecting and reporting metrics. Labels are
// passed as name/value pairs.
type Collector interface {
	CounterInc(name string, labels ...string)
	CounterAdd(name string, value float64, labels ...string)
	GaugeSet(name string, value float64, labels ...string)
	HistogramObserve(name string, value float64, labels ...string)

	// Handler returns an HTTP handler for the metrics endpoint
	Handler() http.Handler
}

// =============================================================================
// Metric Definitions
// =============================================================================

// MetricType represents the type of metric.
type MetricType string

const (
	MetricTypeCounter   MetricType = "counter"
	MetricTypeGauge     MetricType = "gauge"
	MetricTypeHistogram MetricType = "histogram"
)

// MetricDefinition defines a metric with its metadata.
type MetricDefinition struct {
	Name    string     `json:"name"`
	Type    MetricType `json:"type"`
	Help    string     `json:"help"`
	Labels  []string   `json:"labels,omitempty"`
	Buckets []float64  `json:"buckets,omitempty"` // For histograms
}

var (
	ScansTotal = MetricDefinition{
		Name:   "codeguard_scans_total",
		Type:   MetricTypeCounter,
		Help:   "Total number of analyses run",
		Labels: []string{"kind", "grade"},
	}
	ScanDuration = MetricDefinition{
		Name:    "codeguard_scan_duration_seconds",
		Type:    MetricTypeHistogram,
		Help:    "Duration of analyses in seconds",
		Labels:  []string{"kind"},
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}
	LinesScanned = MetricDefinition{
		Name:   "codeguard_lines_scanned_total",
		Type:   MetricTypeCounter,
		Help:   "Total number of source lines analyzed",
		Labels: []string{"kind"},
	}
	FindingsTotal = MetricDefinition{
		Name:   "codeguard_findings_total",
		Type:   MetricTypeCounter,
		Help:   "Total number of vulnerability findings reported",
		Labels: []string{"severity"},
	}
	ComplianceIssuesTotal = MetricDefinition{
		Name:   "codeguard_compliance_issues_total",
		Type:   MetricTypeCounter,
		Help:   "Total number of compliance issues reported",
		Labels: []string{"framework"},
	}
	HealthScore = MetricDefinition{
		Name:    "codeguard_health_score",
		Type:    MetricTypeHistogram,
		Help:    "Overall code health scores",
		Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	}
	LastSecurityScore = MetricDefinition{
		Name: "codeguard_last_security_score",
		Type: MetricTypeGauge,
		Help: "Score of the most recent security scan",
	}
	RemoteFetchesTotal = MetricDefinition{
		Name:   "codeguard_remote_fetches_total",
		Type:   MetricTypeCounter,
		Help:   "Total number of remote source fetches",
		Labels: []string{"provider", "status"},
	}
	HistoryWritesTotal = MetricDefinition{
		Name:   "codeguard_history_writes_total",
		Type:   MetricTypeCounter,
		Help:   "Total number of history writes",
		Labels: []string{"status"},
	}
	HTTPRequestsTotal = MetricDefinition{
		Name:   "codeguard_http_requests_total",
		Type:   MetricTypeCounter,
		Help:   "Total number of API requests served",
		Labels: []string{"route", "status"},
	}
	HTTPRequestDuration = MetricDefinition{
		Name:    "codeguard_http_request_duration_seconds",
		Type:    MetricTypeHistogram,
		Help:    "Duration of API requests in seconds",
		Labels:  []string{"route"},
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}
)

// Definitions returns every metric the analyzer records.
func Definitions() []MetricDefinition {
	return []MetricDefinition{
		ScansTotal, ScanDuration, LinesScanned, FindingsTotal, ComplianceIssuesTotal,
		HealthScore, LastSecurityScore, RemoteFetchesTotal, HistoryWritesTotal,
		HTTPRequestsTotal, HTTPRequestDuration,
	}
}

// =============================================================================
// NopCollector
// =============================================================================

// NopCollector discards all metrics.
type NopCollector struct{}

func (c *NopCollector) CounterInc(name string, labels ...string)                      {}
func (c *NopCollector) CounterAdd(name string, value float64, labels ...string)       {}
func (c *NopCollector) GaugeSet(name string, value float64, labels ...string)         {}
func (c *NopCollector) HistogramObserve(name string, value float64, labels ...string) {}
func (c *NopCollector) Handler() http.Handler                                         { return http.NotFoundHandler() }

// =============================================================================
// InMemoryCollector
// =============================================================================

// InMemoryCollector stores metrics in memory for tests.
type InMemoryCollector struct {
	mu         sync.RWMutex
	counters   map[string]float64
	gauges     map[string]float64
	histograms map[string][]float64
}

// NewInMemoryCollector creates a new in-memory metrics collector.
func NewInMemoryCollector() *InMemoryCollector {
	return &InMemoryCollector{
		counters:   make(map[string]float64),
		gauges:     make(map[string]float64),
		histograms: make(map[string][]float64),
	}
}

func (c *InMemoryCollector) key(name string, labels []string) string {
	key := name
	for i := 0; i+1 < len(labels); i += 2 {
		key += "," + labels[i] + "=" + labels[i+1]
	}
	return key
}

func (c *InMemoryCollector) CounterInc(name string, labels ...string) {
	c.CounterAdd(name, 1, labels...)
}

func (c *InMemoryCollector) CounterAdd(name string, value float64, labels ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[c.key(name, labels)] += value
}

func (c *InMemoryCollector) GaugeSet(name string, value float64, labels ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gauges[c.key(name, labels)] = value
}

func (c *InMemoryCollector) HistogramObserve(name string, value float64, labels ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := c.key(name, labels)
	c.histograms[key] = append(c.histograms[key], value)
}

func (c *InMemoryCollector) Handler() http.Handler {
	return http.NotFoundHandler()
}

// GetCounter returns the value of a counter.
func (c *InMemoryCollector) GetCounter(name string, labels ...string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counters[c.key(name, labels)]
}

// GetGauge returns the value of a gauge.
func (c *InMemoryCollector) GetGauge(name string, labels ...string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gauges[c.key(name, labels)]
}

// GetHistogram returns all observations of a histogram.
func (c *InMemoryCollector) GetHistogram(name string, labels ...string) []float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.histograms[c.key(name, labels)]
}

// =============================================================================
// Timer
// =============================================================================

// Timer records the time since its creation into a histogram.
type Timer struct {
	start     time.Time
	collector Collector
	name      string
	labels    []string
}

// NewTimer creates a new timer that will record to the given histogram.
func NewTimer(collector Collector, name string, labels ...string) *Timer {
	return &Timer{
		start:     time.Now(),
		collector: collector,
		name:      name,
		labels:    labels,
	}
}

// ObserveDuration records the duration since the timer was created.
func (t *Timer) ObserveDuration() time.Duration {
	d := time.Since(t.start)
	t.collector.HistogramObserve(t.name, d.Seconds(), t.labels...)
	return d
}

// =============================================================================
// Global Default Collector
// =============================================================================

var (
	defaultCollector   Collector = &NopCollector{}
	defaultCollectorMu sync.RWMutex
)

// SetDefaultCollector sets the global default metrics collector.
func SetDefaultCollector(collector Collector) {
	defaultCollectorMu.Lock()
	defer defaultCollectorMu.Unlock()
	if collector == nil {
		collector = &NopCollector{}
	}
	defaultCollector = collector
}

// GetDefaultCollector returns the global default metrics collector.
func GetDefaultCollector() Collector {
	defaultCollectorMu.RLock()
	defer defaultCollectorMu.RUnlock()
	return defaultCollector
}

var (
	_ Collector = (*NopCollector)(nil)
	_ Collector = (*InMemoryCollector)(nil)
)
