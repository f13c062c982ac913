// Package server exposes the analyzer over HTTP.
//
// Routes:
//
//	POST   /v1/scan/security     run a security scan
//	POST   /v1/analyze/health    run a code health analysis
//	GET    /v1/history           list saved scans (?limit=&kind=)
//	GET    /v1/history/{id}      fetch one saved scan with its report
//	DELETE /v1/history/{id}      delete one saved scan
//	GET    /healthz              run all health checks
//	GET    /livez, /readyz       liveness and readiness probes
//	GET    /metrics              Prometheus metrics
package server

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/exploopio/codeguard/pkg/analyzer"
	"github.com/exploopio/codeguard/pkg/audit"
	"github.com/exploopio/codeguard/pkg/core"
	"github.com/exploopio/codeguard/pkg/errors"
	"github.com/exploopio/codeguard/pkg/health"
	"github.com/exploopio/codeguard/pkg/history"
	"github.com/exploopio/codeguard/pkg/metrics"
)

// DefaultMaxBodyBytes bounds request bodies. JSON escaping can grow source
// text, so this is larger than the analyzer's input limit.
const DefaultMaxBodyBytes = 8 << 20

// Config configures a Server.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
	Version         string

	Service *analyzer.Service

	// History is optional. Without it "save" is ignored and the history
	// routes answer 404.
	History     *history.Store
	HistoryPath string

	// Metrics also serves /metrics. Nil disables the route.
	Metrics metrics.Collector

	// Audit receives one event per analysis and deletion. Nil disables it.
	Audit *audit.Logger

	Logger core.Logger
}

// Server is the codeguard HTTP API.
type Server struct {
	cfg    Config
	router chi.Router
	health *health.Handler
	srv    *http.Server
}

// New builds the router and registers the health checks.
func New(cfg Config) *Server {
	if cfg.Service == nil {
		cfg.Service = analyzer.NewService()
	}
	if cfg.Logger == nil {
		cfg.Logger = core.GetDefaultLogger()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		cfg:    cfg,
		health: health.NewHandler(health.WithVersion(cfg.Version), health.WithTimeout(5*time.Second)),
	}
	s.registerChecks()
	s.router = s.routes()
	return s
}

func (s *Server) registerChecks() {
	h := s.health
	db := &health.PingerCheck{CheckName: "history"}
	if s.cfg.History != nil {
		db.Ping = s.cfg.History.Ping
	}
	h.Register("", db)
	h.Register("", &health.MemoryCheck{MaxHeapBytes: 1 << 30})

	dir := "."
	if s.cfg.HistoryPath != "" && s.cfg.HistoryPath != ":memory:" {
		dir = filepath.Dir(s.cfg.HistoryPath)
	}
	h.Register("", &health.DiskCheck{Path: dir, MinFreePercent: 5})
	h.RegisterFunc("rules", s.rulesCheck)
}

// rulesCheck scans a snippet with a known injection flaw.
func (s *Server) rulesCheck(ctx context.Context) health.CheckResult {
	const probe = `val query = "SELECT * FROM users WHERE id = " + userId` + "\n" + `db.rawQuery(query, null)`
	res := analyzer.ScanSecurity(probe, "Kotlin")
	if res.Counts.Total == 0 {
		return health.CheckResult{Status: health.StatusUnhealthy, Error: "rule engine reported no findings for the probe"}
	}
	return health.CheckResult{
		Status:   health.StatusHealthy,
		Message:  strconv.Itoa(res.TotalChecks) + " checks loaded",
		Metadata: map[string]any{"probe_findings": res.Counts.Total},
	}
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/scan/security", s.handleScanSecurity)
		r.Post("/analyze/health", s.handleAnalyzeHealth)

		r.Route("/history", func(r chi.Router) {
			r.Get("/", s.handleListHistory)
			r.Get("/{id}", s.handleGetHistory)
			r.Delete("/{id}", s.handleDeleteHistory)
		})
	})

	r.Method(http.MethodGet, "/healthz", s.health.HealthHandler())
	r.Method(http.MethodGet, "/livez", s.health.LivenessHandler())
	r.Method(http.MethodGet, "/readyz", s.health.ReadinessHandler())
	if s.cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.cfg.Metrics.Handler())
	}
	return r
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Health returns the health handler, for registering extra checks.
func (s *Server) Health() *health.Handler {
	return s.health
}

// ListenAndServe serves on the configured address until ctx is done, then
// drains in-flight requests for up to ShutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return errors.E(errors.KindNetwork, "server.ListenAndServe", "listen "+s.cfg.Address, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.srv = &http.Server{
		Handler:           s.router,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.cfg.Logger.Info("listening on %s", ln.Addr())
		errc <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.E(errors.KindNetwork, "server.Serve", err)
	case <-ctx.Done():
	}

	s.health.SetReady(false)
	s.cfg.Logger.Info("shutting down, draining for up to %s", s.cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return errors.E(errors.KindTimeout, "server.Shutdown", err)
	}
	return nil
}

// instrument logs each request and records the request metrics under the
// matched route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)

		if m := s.cfg.Metrics; m != nil {
			m.CounterInc(metrics.HTTPRequestsTotal.Name, "route", route, "status", strconv.Itoa(status))
			m.HistogramObserve(metrics.HTTPRequestDuration.Name, elapsed.Seconds(), "route", route)
		}
		s.cfg.Logger.Debug("%s %s %d %s [%s]", r.Method, r.URL.Path, status, elapsed, middleware.GetReqID(r.Context()))
	})
}
