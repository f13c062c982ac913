// Package audit keeps an append-only JSON-lines trail of analyses and history
// changes, whether they came from the API, the CLI or watch mode.
//
// A nil *Logger is valid and drops every event, so callers never need to
// check whether auditing is enabled.
package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/exploopio/codeguard/pkg/core"
	"github.com/exploopio/codeguard/pkg/errors"
	"github.com/exploopio/codeguard/pkg/model"
)

// EventType represents the type of audit event.
type EventType string

const (
	EventScanCompleted   EventType = "scan_completed"
	EventScanFailed      EventType = "scan_failed"
	EventHealthCompleted EventType = "health_completed"
	EventHealthFailed    EventType = "health_failed"
	EventRecordDeleted   EventType = "record_deleted"
	EventHistoryCleared  EventType = "history_cleared"
)

// Severity represents log severity level.
type Severity string

const (
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARN"
	SeverityError   Severity = "ERROR"
)

// Origins.
const (
	OriginAPI   = "api"
	OriginCLI   = "cli"
	OriginWatch = "watch"
)

// Event is one line of the audit log.
type Event struct {
	Timestamp  time.Time      `json:"timestamp"`
	Type       EventType      `json:"type"`
	Severity   Severity       `json:"severity"`
	Origin     string         `json:"origin,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	RecordID   string         `json:"record_id,omitempty"`
	Source     string         `json:"source,omitempty"`
	Message    string         `json:"message"`
	Error      string         `json:"error,omitempty"`
	DurationMS int64          `json:"duration_ms,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
}

// Config configures the audit logger.
type Config struct {
	// Path of the log file. Parent directories are created.
	Path string

	// Origin is stamped on events that do not carry one.
	Origin string

	// BufferSize is the number of events held before a flush.
	// Default: 100
	BufferSize int

	// FlushInterval is how often Start's background loop flushes.
	// Default: 5 seconds
	FlushInterval time.Duration

	Logger core.Logger
}

// DefaultPath returns ~/.codeguard/audit.log.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	if home == "" {
		home = os.TempDir()
	}
	return filepath.Join(home, ".codeguard", "audit.log")
}

// Logger is the audit logger.
type Logger struct {
	cfg  Config
	file *os.File
	mu   sync.Mutex

	buffer   []Event
	bufferMu sync.Mutex

	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	now func() time.Time
}

// Open opens cfg.Path for appending.
func Open(cfg Config) (*Logger, error) {
	const op = "audit.Open"

	if cfg.Path == "" {
		cfg.Path = DefaultPath()
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = core.GetDefaultLogger()
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, errors.E(errors.KindStorage, op, "create log directory", err)
	}
	// 0640: owner read/write, group read
	file, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, errors.E(errors.KindStorage, op, "open log file", err)
	}

	return &Logger{
		cfg:    cfg,
		file:   file,
		buffer: make([]Event, 0, cfg.BufferSize),
		now:    time.Now,
	}, nil
}

// Start begins background flushing.
func (l *Logger) Start() {
	if l == nil {
		return
	}
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return
	}
	l.running = true
	l.stopCh = make(chan struct{})
	l.mu.Unlock()

	l.wg.Add(1)
	go l.flushLoop()
}

// Close stops the background loop, flushes and closes the file.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	if l.running {
		l.running = false
		close(l.stopCh)
	}
	l.mu.Unlock()
	l.wg.Wait()

	flushErr := l.Flush()
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.file.Close(); err != nil {
		return errors.E(errors.KindStorage, "audit.Close", err)
	}
	return flushErr
}

// Log records an event. Timestamp, Origin and Severity are filled in when
// empty.
func (l *Logger) Log(event Event) {
	if l == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = l.now().UTC()
	}
	if event.Origin == "" {
		event.Origin = l.cfg.Origin
	}
	if event.Severity == "" {
		event.Severity = SeverityInfo
		if event.Error != "" {
			event.Severity = SeverityError
		}
	}

	l.bufferMu.Lock()
	l.buffer = append(l.buffer, event)
	full := len(l.buffer) >= l.cfg.BufferSize
	l.bufferMu.Unlock()

	if full {
		if err := l.Flush(); err != nil {
			l.cfg.Logger.Warn("audit flush: %v", err)
		}
	}
}

// Scan records a finished or failed security scan.
func (l *Logger) Scan(ev Event, res *model.ScanResult, err error) {
	if err != nil {
		ev.Type, ev.Message, ev.Error = EventScanFailed, "security scan failed", err.Error()
		l.Log(ev)
		return
	}
	ev.Type, ev.Message = EventScanCompleted, "security scan completed"
	ev.DurationMS = res.Duration.Milliseconds()
	ev.Details = map[string]any{
		"language":        res.Language,
		"score":           res.Score,
		"grade":           res.Grade,
		"vulnerabilities": len(res.Vulnerabilities),
		"critical":        res.Counts.Critical,
	}
	if res.Counts.Critical > 0 {
		ev.Severity = SeverityWarning
	}
	l.Log(ev)
}

// Health records a finished or failed code health analysis.
func (l *Logger) Health(ev Event, res *model.CodeHealthResult, err error) {
	if err != nil {
		ev.Type, ev.Message, ev.Error = EventHealthFailed, "health analysis failed", err.Error()
		l.Log(ev)
		return
	}
	ev.Type, ev.Message = EventHealthCompleted, "health analysis completed"
	ev.Details = map[string]any{
		"language": res.Language,
		"score":    res.OverallScore,
		"issues":   len(res.Issues),
	}
	l.Log(ev)
}

// Deleted records removed history records.
func (l *Logger) Deleted(ev Event, ids ...string) {
	for _, id := range ids {
		e := ev
		e.Type, e.Message, e.RecordID = EventRecordDeleted, "history record deleted", id
		l.Log(e)
	}
}

// Cleared records a history wipe.
func (l *Logger) Cleared(ev Event, n int64) {
	ev.Type, ev.Message = EventHistoryCleared, "history cleared"
	ev.Details = map[string]any{"deleted": n}
	ev.Severity = SeverityWarning
	l.Log(ev)
}

// Flush writes buffered events to disk.
func (l *Logger) Flush() error {
	if l == nil {
		return nil
	}
	l.bufferMu.Lock()
	if len(l.buffer) == 0 {
		l.bufferMu.Unlock()
		return nil
	}
	events := l.buffer
	l.buffer = make([]Event, 0, l.cfg.BufferSize)
	l.bufferMu.Unlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	enc := json.NewEncoder(l.file)
	for _, event := range events {
		if err := enc.Encode(event); err != nil {
			return errors.E(errors.KindStorage, "audit.Flush", err)
		}
	}
	if err := l.file.Sync(); err != nil {
		return errors.E(errors.KindStorage, "audit.Flush", err)
	}
	return nil
}

func (l *Logger) flushLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			if err := l.Flush(); err != nil {
				l.cfg.Logger.Warn("audit flush: %v", err)
			}
		}
	}
}
