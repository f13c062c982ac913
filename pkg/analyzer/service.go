package analyzer

import (
	"context"
	"fmt"
	"time"

	"github.com/exploopio/codeguard/pkg/analyzer/compliance"
	"github.com/exploopio/codeguard/pkg/analyzer/detect"
	"github.com/exploopio/codeguard/pkg/analyzer/scoring"
	"github.com/exploopio/codeguard/pkg/core"
	"github.com/exploopio/codeguard/pkg/errors"
	"github.com/exploopio/codeguard/pkg/metrics"
	"github.com/exploopio/codeguard/pkg/model"
)

// DefaultMaxInputBytes is the default source size limit of a Service.
const DefaultMaxInputBytes = 2 << 20

// Scan kinds used as metric labels.
const (
	KindSecurity = "security"
	KindHealth   = "health"
)

// ServiceConfig configures a Service.
type ServiceConfig struct {
	// MaxInputBytes rejects larger inputs with ErrInputTooLarge. 0 disables the limit.
	MaxInputBytes int

	// DefaultLanguage is the label used when the caller gives none.
	DefaultLanguage string

	Logger  core.Logger
	Metrics metrics.Collector
}

// ServiceOption is a function that configures the service.
type ServiceOption func(*ServiceConfig)

// WithMaxInputBytes sets the input size limit.
func WithMaxInputBytes(n int) ServiceOption {
	return func(c *ServiceConfig) {
		c.MaxInputBytes = n
	}
}

// WithDefaultLanguage sets the language label used when none is given.
func WithDefaultLanguage(lang string) ServiceOption {
	return func(c *ServiceConfig) {
		c.DefaultLanguage = lang
	}
}

// WithLogger sets the logger.
func WithLogger(l core.Logger) ServiceOption {
	return func(c *ServiceConfig) {
		c.Logger = l
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m metrics.Collector) ServiceOption {
	return func(c *ServiceConfig) {
		c.Metrics = m
	}
}

// Service runs analyses for callers that need a size limit, cancellation,
// logging and metrics around the pure entry points. It holds no per-scan
// state and is safe for concurrent use.
type Service struct {
	cfg ServiceConfig
}

// NewService creates a service. Unset logger and metrics fall back to the
// package defaults of core and metrics.
func NewService(opts ...ServiceOption) *Service {
	cfg := ServiceConfig{MaxInputBytes: DefaultMaxInputBytes}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = core.GetDefaultLogger()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.GetDefaultCollector()
	}
	return &Service{cfg: cfg}
}

func (s *Service) check(ctx context.Context, op, code string) error {
	if s.cfg.MaxInputBytes > 0 && len(code) > s.cfg.MaxInputBytes {
		return errors.Wrap(fmt.Errorf("%w: %d bytes, limit %d", errors.ErrInputTooLarge, len(code), s.cfg.MaxInputBytes), op)
	}
	return canceled(ctx, op)
}

func canceled(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		kind := errors.KindCanceled
		if err == context.DeadlineExceeded {
			kind = errors.KindTimeout
		}
		return errors.E(kind, op, "analysis interrupted", err)
	}
	return nil
}

func (s *Service) language(lang string) string {
	if lang == "" {
		return s.cfg.DefaultLanguage
	}
	return lang
}

// ScanSecurity scans code like the package-level ScanSecurity. The context
// is checked before the scan and again between the vulnerability pass and
// the compliance pass.
func (s *Service) ScanSecurity(ctx context.Context, code, language string) (*model.ScanResult, error) {
	const op = "analyzer.ScanSecurity"
	if err := s.check(ctx, op, code); err != nil {
		s.cfg.Logger.Warn("security scan rejected: %v", err)
		return nil, err
	}

	timer := metrics.NewTimer(s.cfg.Metrics, metrics.ScanDuration.Name, "kind", KindSecurity)
	start := time.Now()
	in := detect.NewInput(code)
	res := scanVulnerabilities(in, s.language(language))
	if err := canceled(ctx, op); err != nil {
		s.cfg.Logger.Warn("security scan interrupted after vulnerability pass: %v", err)
		return nil, err
	}
	res.Compliance = compliance.Check(in.File)
	res.Duration = time.Since(start)
	timer.ObserveDuration()

	s.recordScan(res)
	s.cfg.Logger.Info("security scan: %d lines, %d findings, score %d (%s) in %s",
		res.LinesScanned, res.Counts.Total, res.Score, res.Grade, res.Duration)
	return res, nil
}

// AnalyzeHealth analyzes code like the package-level AnalyzeHealth.
func (s *Service) AnalyzeHealth(ctx context.Context, code, language string) (*model.CodeHealthResult, error) {
	const op = "analyzer.AnalyzeHealth"
	if err := s.check(ctx, op, code); err != nil {
		s.cfg.Logger.Warn("health analysis rejected: %v", err)
		return nil, err
	}

	timer := metrics.NewTimer(s.cfg.Metrics, metrics.ScanDuration.Name, "kind", KindHealth)
	res := AnalyzeHealth(code, s.language(language))
	d := timer.ObserveDuration()

	m := s.cfg.Metrics
	m.CounterInc(metrics.ScansTotal.Name, "kind", KindHealth, "grade", scoring.Grade(res.OverallScore))
	m.CounterAdd(metrics.LinesScanned.Name, float64(res.Metrics.TotalLines), "kind", KindHealth)
	m.HistogramObserve(metrics.HealthScore.Name, float64(res.OverallScore))
	s.cfg.Logger.Info("health analysis: %d lines, overall %d, %d issues in %s",
		res.Metrics.TotalLines, res.OverallScore, len(res.Issues), d)
	return res, nil
}

func (s *Service) recordScan(res *model.ScanResult) {
	m := s.cfg.Metrics
	m.CounterInc(metrics.ScansTotal.Name, "kind", KindSecurity, "grade", res.Grade)
	m.CounterAdd(metrics.LinesScanned.Name, float64(res.LinesScanned), "kind", KindSecurity)
	m.GaugeSet(metrics.LastSecurityScore.Name, float64(res.Score))
	for _, v := range res.Vulnerabilities {
		m.CounterInc(metrics.FindingsTotal.Name, "severity", v.Severity.String())
	}
	if res.Compliance != nil {
		for _, fw := range model.AllFrameworks() {
			if n := len(res.Compliance.IssuesFor(fw)); n > 0 {
				m.CounterAdd(metrics.ComplianceIssuesTotal.Name, float64(n), "framework", fw.String())
			}
		}
	}
	s.cfg.Logger.Debug("security scan counts: critical=%d high=%d medium=%d low=%d",
		res.Counts.Critical, res.Counts.High, res.Counts.Medium, res.Counts.Low)
}
