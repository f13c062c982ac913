package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func healthy(ctx context.Context) CheckResult { return CheckResult{Status: StatusHealthy} }

func TestHandler_Check(t *testing.T) {
	h := NewHandler(WithVersion("1.2.3"), WithTimeout(time.Second))
	h.RegisterFunc("rules", healthy)
	h.Register("", &PingerCheck{CheckName: "history", Ping: func(ctx context.Context) error { return nil }})

	resp := h.Check(context.Background())
	if resp.Status != StatusHealthy {
		t.Errorf("Status = %v, want healthy", resp.Status)
	}
	if resp.Version != "1.2.3" {
		t.Errorf("Version = %q", resp.Version)
	}
	if len(resp.Checks) != 2 {
		t.Fatalf("Checks = %d, want 2", len(resp.Checks))
	}
	if got := resp.Checks["history"].Message; got != "ok" {
		t.Errorf("history message = %q, want ok", got)
	}

	names := h.Names()
	if len(names) != 2 || names[0] != "history" || names[1] != "rules" {
		t.Errorf("Names() = %v", names)
	}
}

func TestHandler_WorstStatusWins(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		want     Status
	}{
		{"all healthy", []Status{StatusHealthy, StatusHealthy}, StatusHealthy},
		{"unknown ignored", []Status{StatusHealthy, StatusUnknown}, StatusHealthy},
		{"degraded", []Status{StatusDegraded, StatusHealthy}, StatusDegraded},
		{"unhealthy beats degraded", []Status{StatusDegraded, StatusUnhealthy}, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler()
			for i, s := range tt.statuses {
				s := s
				h.RegisterFunc(string(rune('a'+i)), func(ctx context.Context) CheckResult {
					return CheckResult{Status: s}
				})
			}
			if got := h.Check(context.Background()).Status; got != tt.want {
				t.Errorf("Status = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHandler_HideDetails(t *testing.T) {
	h := NewHandler(WithHideDetails())
	h.RegisterFunc("rules", healthy)
	if resp := h.Check(context.Background()); resp.Checks != nil {
		t.Errorf("Checks = %v, want none", resp.Checks)
	}
}

func TestHandler_Timeout(t *testing.T) {
	h := NewHandler(WithTimeout(20 * time.Millisecond))
	h.RegisterFunc("slow", func(ctx context.Context) CheckResult {
		<-ctx.Done()
		return CheckResult{Status: StatusUnhealthy, Error: ctx.Err().Error()}
	})

	start := time.Now()
	resp := h.Check(context.Background())
	if time.Since(start) > time.Second {
		t.Error("Check did not honor its timeout")
	}
	if resp.Status != StatusUnhealthy {
		t.Errorf("Status = %v, want unhealthy", resp.Status)
	}
}

func TestHTTPHandlers(t *testing.T) {
	h := NewHandler()
	failing := false
	h.RegisterFunc("history", func(ctx context.Context) CheckResult {
		if failing {
			return CheckResult{Status: StatusUnhealthy, Error: "database is locked"}
		}
		return CheckResult{Status: StatusHealthy}
	})

	serve := func(handler http.Handler) (int, Response) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		var resp Response
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		return rec.Code, resp
	}

	if code, resp := serve(h.HealthHandler()); code != http.StatusOK || resp.Status != StatusHealthy {
		t.Errorf("health = %d %v", code, resp.Status)
	}

	failing = true
	if code, _ := serve(h.HealthHandler()); code != http.StatusServiceUnavailable {
		t.Errorf("failing health = %d, want 503", code)
	}
	if code, _ := serve(h.LivenessHandler()); code != http.StatusOK {
		t.Errorf("liveness = %d, want 200", code)
	}

	failing = false
	h.SetReady(false)
	if h.IsReady() {
		t.Error("IsReady after SetReady(false)")
	}
	if code, resp := serve(h.ReadinessHandler()); code != http.StatusServiceUnavailable || resp.Status != StatusUnhealthy {
		t.Errorf("readiness while draining = %d %v", code, resp.Status)
	}
	h.SetReady(true)
	if code, _ := serve(h.ReadinessHandler()); code != http.StatusOK {
		t.Errorf("readiness = %d, want 200", code)
	}
}

func TestPingerCheck(t *testing.T) {
	c := &PingerCheck{CheckName: "history"}
	if got := c.Check(context.Background()).Status; got != StatusUnknown {
		t.Errorf("nil Ping status = %v, want unknown", got)
	}

	c.Ping = func(ctx context.Context) error { return errors.New("disk I/O error") }
	res := c.Check(context.Background())
	if res.Status != StatusUnhealthy || res.Error != "disk I/O error" {
		t.Errorf("failing ping = %+v", res)
	}
}

func TestDiskCheck(t *testing.T) {
	c := &DiskCheck{Path: t.TempDir()}
	res := c.Check(context.Background())
	if res.Status != StatusHealthy {
		t.Fatalf("Status = %v (%s)", res.Status, res.Error)
	}
	if res.Metadata["path"] != c.Path {
		t.Errorf("path = %v", res.Metadata["path"])
	}

	c.MinFreePercent = 100.1
	if got := c.Check(context.Background()).Status; got != StatusDegraded {
		t.Errorf("Status above 100%% threshold = %v, want degraded", got)
	}

	missing := &DiskCheck{Path: "/does/not/exist"}
	if got := missing.Check(context.Background()).Status; got != StatusUnknown {
		t.Errorf("missing path status = %v, want unknown", got)
	}
}

func TestMemoryCheck(t *testing.T) {
	if got := (&MemoryCheck{}).Check(context.Background()).Status; got != StatusHealthy {
		t.Errorf("Status = %v, want healthy", got)
	}
	if got := (&MemoryCheck{MaxHeapBytes: 1}).Check(context.Background()).Status; got != StatusDegraded {
		t.Errorf("Status with 1 byte limit = %v, want degraded", got)
	}
}
