// Package health runs the probes behind codeguard's /healthz and /readyz
// endpoints: the history database, the rule engine self-test, free disk
// space under the history directory and memory use.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// =============================================================================
// Checks
// =============================================================================

// Checker is a single named probe.
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// CheckFunc adapts a function to Checker. Its name is the one it was
// registered under.
type CheckFunc func(ctx context.Context) CheckResult

func (f CheckFunc) Name() string                          { return "" }
func (f CheckFunc) Check(ctx context.Context) CheckResult { return f(ctx) }

// Status is the outcome of a probe or of all probes together.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
	StatusUnknown   Status = "unknown"
)

// weight orders statuses from best to worst.
func (s Status) weight() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusUnknown:
		return 1
	case StatusDegraded:
		return 2
	default:
		return 3
	}
}

// CheckResult is what one probe reports.
type CheckResult struct {
	Status   Status         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Error    string         `json:"error,omitempty"`
	Duration time.Duration  `json:"duration_ms"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Response is the body of the health endpoints.
type Response struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
	Uptime    float64                `json:"uptime_seconds,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// =============================================================================
// Handler
// =============================================================================

// Handler holds the registered checks and serves them over HTTP.
type Handler struct {
	mu     sync.RWMutex
	checks map[string]Checker
	ready  bool

	version     string
	timeout     time.Duration
	hideDetails bool
	started     time.Time
	now         func() time.Time
}

// Option configures a Handler.
type Option func(*Handler)

// WithVersion reports version in every response.
func WithVersion(version string) Option {
	return func(h *Handler) {
		h.version = version
	}
}

// WithTimeout bounds a full Check run. Default 5s.
func WithTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// WithHideDetails leaves per-check results out of responses.
func WithHideDetails() Option {
	return func(h *Handler) {
		h.hideDetails = true
	}
}

// NewHandler creates a handler with no checks. It starts ready.
func NewHandler(opts ...Option) *Handler {
	h := &Handler{
		checks:  make(map[string]Checker),
		ready:   true,
		timeout: 5 * time.Second,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.started = h.now()
	return h
}

// Register adds or replaces a check. An empty name uses c.Name().
func (h *Handler) Register(name string, c Checker) {
	if name == "" {
		name = c.Name()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = c
}

// RegisterFunc registers fn under name.
func (h *Handler) RegisterFunc(name string, fn func(ctx context.Context) CheckResult) {
	h.Register(name, CheckFunc(fn))
}

// Names returns the registered check names, sorted.
func (h *Handler) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetReady flips readiness. The server clears it while draining.
func (h *Handler) SetReady(ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready = ready
}

// IsReady reports readiness.
func (h *Handler) IsReady() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ready
}

// Check runs every registered check concurrently and folds the results into
// the worst status seen.
func (h *Handler) Check(ctx context.Context) Response {
	h.mu.RLock()
	checks := make(map[string]Checker, len(h.checks))
	for name, c := range h.checks {
		checks[name] = c
	}
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make(map[string]CheckResult, len(checks))
	)
	for name, c := range checks {
		wg.Add(1)
		go func(name string, c Checker) {
			defer wg.Done()
			start := time.Now()
			res := c.Check(ctx)
			res.Duration = time.Since(start) / time.Millisecond
			mu.Lock()
			results[name] = res
			mu.Unlock()
		}(name, c)
	}
	wg.Wait()

	overall := StatusHealthy
	for _, res := range results {
		// Unknown only means a probe could not decide; it never fails the service.
		if res.Status != StatusUnknown && res.Status.weight() > overall.weight() {
			overall = res.Status
		}
	}

	now := h.now()
	resp := Response{
		Status:    overall,
		Timestamp: now.UTC(),
		Version:   h.version,
		Uptime:    now.Sub(h.started).Seconds(),
	}
	if !h.hideDetails {
		resp.Checks = results
	}
	return resp
}

// LivenessHandler answers 200 whenever the process can serve a request.
func (h *Handler) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, Response{
			Status:    StatusHealthy,
			Timestamp: h.now().UTC(),
			Version:   h.version,
		})
	})
}

// ReadinessHandler answers 503 while not ready or when a check is unhealthy.
func (h *Handler) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.IsReady() {
			writeJSON(w, http.StatusServiceUnavailable, Response{
				Status:    StatusUnhealthy,
				Timestamp: h.now().UTC(),
				Version:   h.version,
			})
			return
		}
		h.HealthHandler().ServeHTTP(w, r)
	})
}

// HealthHandler runs all checks. Degraded still answers 200.
func (h *Handler) HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := h.Check(r.Context())
		code := http.StatusOK
		if resp.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, resp)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// =============================================================================
// Built-in checks
// =============================================================================

// PingerCheck probes a dependency through its Ping method, such as the
// history store.
type PingerCheck struct {
	CheckName string
	Ping      func(ctx context.Context) error
}

func (c *PingerCheck) Name() string { return c.CheckName }

func (c *PingerCheck) Check(ctx context.Context) CheckResult {
	if c.Ping == nil {
		return CheckResult{Status: StatusUnknown, Message: "disabled"}
	}
	if err := c.Ping(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy, Message: "ok"}
}

// DiskCheck reports free space on the filesystem holding Path. Below
// MinFreePercent the result is degraded: scans still work, history writes
// may not.
type DiskCheck struct {
	Path           string
	MinFreePercent float64
}

func (c *DiskCheck) Name() string { return "disk" }

func (c *DiskCheck) Check(ctx context.Context) CheckResult {
	path := c.Path
	if path == "" {
		path = "/"
	}

	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return CheckResult{Status: StatusUnknown, Error: fmt.Sprintf("statfs %s: %v", path, err)}
	}
	total := st.Blocks * uint64(st.Bsize) //nolint:gosec // Bsize is positive
	free := st.Bavail * uint64(st.Bsize)  //nolint:gosec // Bsize is positive
	if total == 0 {
		return CheckResult{Status: StatusUnknown, Message: "filesystem reports no blocks"}
	}
	pct := float64(free) / float64(total) * 100

	res := CheckResult{
		Status:  StatusHealthy,
		Message: fmt.Sprintf("%.1f%% free", pct),
		Metadata: map[string]any{
			"path":       path,
			"free_bytes": free,
			"total":      total,
		},
	}
	if c.MinFreePercent > 0 && pct < c.MinFreePercent {
		res.Status = StatusDegraded
		res.Error = fmt.Sprintf("free space %.1f%% below %.1f%%", pct, c.MinFreePercent)
	}
	return res
}

// MemoryCheck reports Go heap use and, where the platform exposes it, system
// memory. A heap above MaxHeapBytes is degraded.
type MemoryCheck struct {
	MaxHeapBytes uint64
}

func (c *MemoryCheck) Name() string { return "memory" }

func (c *MemoryCheck) Check(ctx context.Context) CheckResult {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	res := CheckResult{
		Status:  StatusHealthy,
		Message: fmt.Sprintf("heap %d MiB, %d goroutines", m.HeapAlloc>>20, runtime.NumGoroutine()),
		Metadata: map[string]any{
			"heap_alloc_bytes": m.HeapAlloc,
			"num_gc":           m.NumGC,
		},
	}
	if total, free, ok := systemMemory(); ok {
		res.Metadata["system_total_bytes"] = total
		res.Metadata["system_free_bytes"] = free
	}
	if c.MaxHeapBytes > 0 && m.HeapAlloc > c.MaxHeapBytes {
		res.Status = StatusDegraded
		res.Error = fmt.Sprintf("heap %d bytes above %d", m.HeapAlloc, c.MaxHeapBytes)
	}
	return res
}

var (
	_ Checker = (*PingerCheck)(nil)
	_ Checker = (*DiskCheck)(nil)
	_ Checker = (*MemoryCheck)(nil)
	_ Checker = CheckFunc(nil)
)
