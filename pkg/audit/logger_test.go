package audit

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/exploopio/codeguard/pkg/model"
	"github.com/exploopio/codeguard/pkg/shared/severity"
)

func openTemp(t *testing.T, cfg Config) (*Logger, string) {
	t.Helper()
	if cfg.Path == "" {
		cfg.Path = filepath.Join(t.TempDir(), "logs", "audit.log")
	}
	l, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return l, cfg.Path
}

func readEvents(t *testing.T, path string) []Event {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	var events []Event
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var ev Event
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			t.Fatalf("line %q is not an event: %v", sc.Text(), err)
		}
		events = append(events, ev)
	}
	return events
}

func TestOpen_CreatesDirectory(t *testing.T) {
	l, path := openTemp(t, Config{})
	defer l.Close()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("log file not created: %v", err)
	}
	if l.cfg.BufferSize != 100 || l.cfg.FlushInterval != 5*time.Second {
		t.Errorf("defaults not applied: %+v", l.cfg)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(Config{Path: filepath.Join(file, "audit.log")}); err == nil {
		t.Error("Open() under a regular file should fail")
	}
}

func TestNilLogger(t *testing.T) {
	var l *Logger
	l.Start()
	l.Log(Event{Message: "dropped"})
	l.Scan(Event{}, nil, errors.New("boom"))
	if err := l.Flush(); err != nil {
		t.Errorf("Flush() = %v", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

func TestLogger_Log(t *testing.T) {
	l, path := openTemp(t, Config{Origin: OriginCLI})
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	l.Log(Event{Type: EventRecordDeleted, Message: "gone", RecordID: "r-1"})
	l.Log(Event{Type: EventScanFailed, Message: "bad", Error: "boom", Origin: OriginAPI})

	if events := readEvents(t, path); len(events) != 0 {
		t.Fatalf("events written before flush: %d", len(events))
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	events := readEvents(t, path)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if !events[0].Timestamp.Equal(fixed) {
		t.Errorf("timestamp = %v, want %v", events[0].Timestamp, fixed)
	}
	if events[0].Origin != OriginCLI || events[0].Severity != SeverityInfo {
		t.Errorf("defaults not filled: %+v", events[0])
	}
	if events[1].Origin != OriginAPI || events[1].Severity != SeverityError {
		t.Errorf("explicit origin or error severity lost: %+v", events[1])
	}
}

func TestLogger_Scan(t *testing.T) {
	l, path := openTemp(t, Config{})

	res := &model.ScanResult{
		Grade:           "F",
		Score:           40,
		Language:        "Kotlin",
		Duration:        1500 * time.Millisecond,
		Vulnerabilities: []model.Vulnerability{{Severity: severity.Critical, Title: "SQL Injection"}},
		Counts:          severity.CountBySeverity{Critical: 1, Total: 1},
	}
	l.Scan(Event{RequestID: "req-1", RecordID: "rec-1", Source: "Repo.kt"}, res, nil)
	l.Scan(Event{Source: "Huge.kt"}, nil, errors.New("input exceeds the size limit"))
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	events := readEvents(t, path)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	ok := events[0]
	if ok.Type != EventScanCompleted || ok.Severity != SeverityWarning {
		t.Errorf("completed event = %+v", ok)
	}
	if ok.DurationMS != 1500 || ok.RecordID != "rec-1" || ok.RequestID != "req-1" {
		t.Errorf("completed event fields = %+v", ok)
	}
	if ok.Details["grade"] != "F" || ok.Details["vulnerabilities"] != float64(1) {
		t.Errorf("details = %v", ok.Details)
	}

	failed := events[1]
	if failed.Type != EventScanFailed || failed.Severity != SeverityError || failed.Error == "" {
		t.Errorf("failed event = %+v", failed)
	}
}

func TestLogger_HealthDeleteClear(t *testing.T) {
	l, path := openTemp(t, Config{})

	l.Health(Event{Source: "Find.kt"}, &model.CodeHealthResult{OverallScore: 91, Language: "Kotlin"}, nil)
	l.Deleted(Event{Origin: OriginAPI}, "a", "b")
	l.Cleared(Event{}, 3)
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	events := readEvents(t, path)
	want := []EventType{EventHealthCompleted, EventRecordDeleted, EventRecordDeleted, EventHistoryCleared}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}
	for i, ev := range events {
		if ev.Type != want[i] {
			t.Errorf("event %d type = %s, want %s", i, ev.Type, want[i])
		}
	}
	if events[1].RecordID != "a" || events[2].RecordID != "b" {
		t.Errorf("record ids = %q, %q", events[1].RecordID, events[2].RecordID)
	}
	if events[3].Details["deleted"] != float64(3) || events[3].Severity != SeverityWarning {
		t.Errorf("clear event = %+v", events[3])
	}
}

func TestLogger_BufferFlush(t *testing.T) {
	l, path := openTemp(t, Config{BufferSize: 2})
	defer l.Close()

	l.Log(Event{Message: "one"})
	if n := len(readEvents(t, path)); n != 0 {
		t.Fatalf("flushed early: %d events", n)
	}
	l.Log(Event{Message: "two"})
	if n := len(readEvents(t, path)); n != 2 {
		t.Errorf("full buffer not flushed: %d events", n)
	}
}

func TestLogger_BackgroundFlush(t *testing.T) {
	l, path := openTemp(t, Config{FlushInterval: 10 * time.Millisecond})
	l.Start()
	l.Start()
	defer l.Close()

	l.Log(Event{Message: "tick"})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(readEvents(t, path)) == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("event not flushed by the background loop")
}

func TestLogger_ConcurrentLogging(t *testing.T) {
	l, path := openTemp(t, Config{BufferSize: 7})

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for range 10 {
				l.Log(Event{Message: "concurrent", Details: map[string]any{"worker": i}})
			}
		}(i)
	}
	wg.Wait()
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	if n := len(readEvents(t, path)); n != 100 {
		t.Errorf("got %d events, want 100", n)
	}
}
