package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exploopio/codeguard/pkg/analyzer"
	"github.com/exploopio/codeguard/pkg/audit"
	"github.com/exploopio/codeguard/pkg/compress"
	"github.com/exploopio/codeguard/pkg/history"
	"github.com/exploopio/codeguard/pkg/metrics"
	"github.com/exploopio/codeguard/pkg/model"
)

const injectable = `fun find(userId: String) {
    val query = "SELECT * FROM users WHERE id = " + userId
    return db.rawQuery(query, null)
}`

type fixture struct {
	srv     *Server
	store   *history.Store
	metrics *metrics.InMemoryCollector
}

func newFixture(t *testing.T, withHistory bool) *fixture {
	t.Helper()
	m := metrics.NewInMemoryCollector()
	cfg := Config{
		Version: "test",
		Service: analyzer.NewService(analyzer.WithMaxInputBytes(4096), analyzer.WithMetrics(m)),
		Metrics: m,
	}
	f := &fixture{metrics: m}
	if withHistory {
		path := filepath.Join(t.TempDir(), "history.db")
		st, err := history.Open(history.Config{Path: path, Compression: compress.AlgorithmZSTD})
		require.NoError(t, err)
		t.Cleanup(func() { _ = st.Close() })
		cfg.History = st
		cfg.HistoryPath = path
		f.store = st
	}
	f.srv = New(cfg)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type scanEnvelope struct {
	ID     string           `json:"id"`
	Result model.ScanResult `json:"result"`
}

func TestScanSecurity(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(t, http.MethodPost, "/v1/scan/security", AnalyzeRequest{Code: injectable, Language: "Kotlin"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[scanEnvelope](t, rec)
	assert.Empty(t, resp.ID)
	assert.Equal(t, "Kotlin", resp.Result.Language)
	require.NotEmpty(t, resp.Result.Vulnerabilities)
	titles := make([]string, 0, len(resp.Result.Vulnerabilities))
	for _, v := range resp.Result.Vulnerabilities {
		titles = append(titles, v.Title)
	}
	assert.Contains(t, titles, "SQL Injection")
	assert.Equal(t, 1.0, f.metrics.GetCounter(metrics.HTTPRequestsTotal.Name, "route", "/v1/scan/security", "status", "200"))
}

func TestAnalyzeHealth_Saved(t *testing.T) {
	f := newFixture(t, true)

	rec := f.do(t, http.MethodPost, "/v1/analyze/health", AnalyzeRequest{Code: injectable, Source: "Find.kt", Save: true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		ID     string                 `json:"id"`
		Result model.CodeHealthResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ID)
	assert.Equal(t, 4, resp.Result.Metrics.TotalLines)

	saved, err := f.store.Get(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, history.KindHealth, saved.Kind)
	assert.Equal(t, "Find.kt", saved.Source)
}

func TestAnalyze_BadRequests(t *testing.T) {
	f := newFixture(t, false)

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"malformed json", `{"code":`, http.StatusBadRequest},
		{"empty code", AnalyzeRequest{Language: "Kotlin"}, http.StatusBadRequest},
		{"over service limit", AnalyzeRequest{Code: strings.Repeat("x", 5000)}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/v1/scan/security", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			resp := decode[ErrorResponse](t, rec)
			assert.Equal(t, "invalid_input", resp.Kind)
			assert.NotEmpty(t, resp.Error)
			assert.NotEmpty(t, resp.RequestID)
		})
	}
}

func TestAnalyze_BodyTooLarge(t *testing.T) {
	f := newFixture(t, false)
	f.srv.cfg.MaxBodyBytes = 64

	rec := f.do(t, http.MethodPost, "/v1/scan/security", AnalyzeRequest{Code: strings.Repeat("val x = 1\n", 20)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Error, "request body over 64 bytes")
}

func TestHistoryRoutes(t *testing.T) {
	f := newFixture(t, true)

	var ids []string
	for i := 0; i < 3; i++ {
		rec := f.do(t, http.MethodPost, "/v1/scan/security", AnalyzeRequest{Code: injectable, Save: true})
		require.Equal(t, http.StatusOK, rec.Code)
		ids = append(ids, decode[scanEnvelope](t, rec).ID)
	}
	f.do(t, http.MethodPost, "/v1/analyze/health", AnalyzeRequest{Code: injectable, Save: true})

	rec := f.do(t, http.MethodGet, "/v1/history?limit=2&kind=security", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	list := decode[struct {
		Records []history.Record `json:"records"`
		Count   int              `json:"count"`
	}](t, rec)
	assert.Equal(t, 2, list.Count)
	for _, r := range list.Records {
		assert.Equal(t, history.KindSecurity, r.Kind)
		assert.Empty(t, r.Payload)
	}

	rec = f.do(t, http.MethodGet, "/v1/history/"+ids[0], nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[history.Record](t, rec)
	assert.Equal(t, ids[0], got.ID)
	res, err := got.ScanResult()
	require.NoError(t, err)
	assert.NotEmpty(t, res.Vulnerabilities)

	rec = f.do(t, http.MethodDelete, "/v1/history/"+ids[0], nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/history/"+ids[0], nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[ErrorResponse](t, rec).Kind)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/v1/history?limit=-1", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/v1/history?kind=lint", nil).Code)
}

func TestAuditTrail(t *testing.T) {
	f := newFixture(t, true)
	path := filepath.Join(t.TempDir(), "audit.log")
	al, err := audit.Open(audit.Config{Path: path})
	require.NoError(t, err)
	f.srv.cfg.Audit = al

	rec := f.do(t, http.MethodPost, "/v1/scan/security", AnalyzeRequest{Code: injectable, Source: "Repo.kt", Save: true})
	require.Equal(t, http.StatusOK, rec.Code)
	id := decode[scanEnvelope](t, rec).ID

	rec = f.do(t, http.MethodPost, "/v1/scan/security", AnalyzeRequest{Code: strings.Repeat("x", 5000)})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/v1/analyze/health", AnalyzeRequest{Code: injectable}).Code)
	require.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/v1/history/"+id, nil).Code)
	require.NoError(t, al.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)

	var events []audit.Event
	for _, l := range lines {
		var ev audit.Event
		require.NoError(t, json.Unmarshal([]byte(l), &ev))
		assert.Equal(t, audit.OriginAPI, ev.Origin)
		assert.NotEmpty(t, ev.RequestID)
		events = append(events, ev)
	}
	assert.Equal(t, audit.EventScanCompleted, events[0].Type)
	assert.Equal(t, id, events[0].RecordID)
	assert.Equal(t, "Repo.kt", events[0].Source)
	assert.Equal(t, audit.EventScanFailed, events[1].Type)
	assert.Equal(t, audit.EventHealthCompleted, events[2].Type)
	assert.Equal(t, audit.EventRecordDeleted, events[3].Type)
	assert.Equal(t, id, events[3].RecordID)
}

func TestHistoryDisabled(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(t, http.MethodPost, "/v1/scan/security", AnalyzeRequest{Code: injectable, Save: true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[scanEnvelope](t, rec).ID)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/v1/history", nil).Code)
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, true)

	rec := f.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Status  string `json:"status"`
		Version string `json:"version"`
		Checks  map[string]struct {
			Status string `json:"status"`
		} `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "test", resp.Version)
	assert.ElementsMatch(t, []string{"history", "disk", "memory", "rules"}, f.srv.Health().Names())
	assert.Equal(t, "healthy", resp.Checks["history"].Status)
	assert.Equal(t, "healthy", resp.Checks["rules"].Status)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/livez", nil).Code)
}

func TestUnmatchedRoute(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(t, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1.0, f.metrics.GetCounter(metrics.HTTPRequestsTotal.Name, "route", "unmatched", "status", "404"))
}

func TestMetricsRoute(t *testing.T) {
	prom, err := metrics.NewPrometheusCollector(nil)
	require.NoError(t, err)
	srv := New(Config{
		Service: analyzer.NewService(analyzer.WithMetrics(prom)),
		Metrics: prom,
	})

	body, _ := json.Marshal(AnalyzeRequest{Code: injectable})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/scan/security", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	out := rec.Body.String()
	assert.Contains(t, out, `codeguard_http_requests_total{route="/v1/scan/security",status="200"} 1`)
	assert.Contains(t, out, `codeguard_scans_total{grade=`)
	assert.Contains(t, out, `codeguard_findings_total{severity="critical"}`)
}

func TestServe_Shutdown(t *testing.T) {
	f := newFixture(t, false)
	f.srv.cfg.ShutdownTimeout = time.Second

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.srv.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/livez"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	assert.False(t, f.srv.Health().IsReady())
}
