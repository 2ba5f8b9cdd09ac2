// Package http serves the statement-analysis JSON API and the embedded
// frontend. All state lives behind the backend store; handlers only
// orchestrate ingestion, report derivation, and advisor calls.
package http

import (
	"context"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/advisor"
	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/backend"
	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/cache"
	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/core"
	applog "github.com/Aura-Ki/Corespeed-Finance-Agent/internal/log"
	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/middleware/ratelimit"
	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/middleware/security"
	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/middleware/trace"
	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/services"
	appweb "github.com/Aura-Ki/Corespeed-Finance-Agent/web"
)

const (
	// DefaultUploadMaxBytes caps statement uploads when no limit is
	// configured.
	DefaultUploadMaxBytes = 10 << 20

	reportCacheSize    = 200
	reportCacheTTL     = 5 * time.Minute
	cacheSweepInterval = 10 * time.Minute

	staticCacheMaxAge = 3600
)

// Pinger exposes a storage liveness probe for the readiness endpoint.
// The SQLite repository implements it; the memory store needs none.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Adviser answers a question about a derived spending report. The
// Gemini advisor implements it.
type Adviser interface {
	Advise(ctx context.Context, question string, report core.Report) (string, error)
	Model() string
}

// Options carries the tunable knobs of the server. Zero values fall
// back to defaults.
type Options struct {
	UploadMaxBytes     int64
	RateLimitPerMinute int
	Pinger             Pinger
	Logger             *applog.Logger
}

// Server wires the HTTP surface: routing, middleware, the per-session
// report cache, and the counters exposed on /metrics.
type Server struct {
	http.Server

	store   backend.Backend
	ingest  *services.IngestService
	advisor Adviser
	pinger  Pinger
	logger  *applog.Logger

	uploadMaxBytes int64

	reportCache  *cache.LRUCache[core.Report]
	cacheManager *cache.Manager

	rateLimiter *ratelimit.Limiter
	tracer      *trace.Middleware
	detector    *security.Detector
	headers     *security.HeadersMiddleware

	startedAt            time.Time
	statementsIngested   int64
	transactionsIngested int64
	chatRequests         int64
	reportCacheHits      int64
	reportCacheMisses    int64

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server. A nil advisor disables the chat endpoint with 503 responses.
func NewServer(addr string, store backend.Backend, ingest *services.IngestService, adv *advisor.Advisor, opts Options) *Server {
	if opts.UploadMaxBytes <= 0 {
		opts.UploadMaxBytes = DefaultUploadMaxBytes
	}
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)
	}

	detector := security.NewDetector()

	s := &Server{
		store:          store,
		ingest:         ingest,
		pinger:         opts.Pinger,
		logger:         logger,
		uploadMaxBytes: opts.UploadMaxBytes,
		reportCache:    cache.NewLRUCache[core.Report](reportCacheSize, reportCacheTTL),
		cacheManager:   cache.NewManager(),
		rateLimiter:    ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		tracer:         trace.NewMiddleware(detector.ExtractClientIP),
		detector:       detector,
		headers:        security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
		startedAt:      time.Now(),
	}
	// A nil *advisor.Advisor must not become a non-nil Adviser.
	if adv != nil {
		s.advisor = adv
	}

	s.cacheManager.Register(s.reportCache)
	s.cacheManager.StartCleanup(cacheSweepInterval)

	mux := http.NewServeMux()
	s.routes(mux)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.withMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssetMiddleware(staticCacheMaxAge)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}
	mux.HandleFunc("/", s.handleIndex)

	mux.HandleFunc("/api/upload", s.handleUpload)
	mux.HandleFunc("/api/report", s.handleReport)
	mux.HandleFunc("/api/transactions", s.handleTransactions)
	mux.HandleFunc("/api/chat", s.handleChat)
	mux.HandleFunc("/api/session", s.handleSession)

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)
}

// withMiddleware wraps the mux in the shared chain: tracing outermost so
// every request gets an ID, then the request logger, security headers,
// suspicion logging, and rate limiting on mutating methods. Handlers
// retrieve the logger with applog.FromContext.
func (s *Server) withMiddleware(next http.Handler) http.Handler {
	onLimit := func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, s.detector.ExtractClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		TooManyRequestsError("rate limit exceeded, try again later").Write(w)
	}

	handler := s.rateLimiter.Middleware(s.detector.ExtractClientIP, onLimit,
		http.MethodPost, http.MethodDelete)(next)
	handler = s.suspicionMiddleware(handler)
	handler = s.headers.Middleware(handler)
	handler = applog.Middleware(s.logger)(handler)
	return s.tracer.Middleware(handler)
}

// suspicionMiddleware logs requests matching known attack patterns.
// They are never blocked; detection feeds the metrics and the logs.
func (s *Server) suspicionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			fields := applog.NewFields().
				WithClientIP(s.detector.ExtractClientIP(r)).
				WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery,
					r.Header.Get("User-Agent"), r.Referer())
			applog.FromContext(r.Context()).WarnContext(r.Context(),
				"Suspicious request detected", fields.ToSlice()...)
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		NotFoundError("not found").Write(w)
		return
	}
	if resp := RequireMethod(r, http.MethodGet, http.MethodHead); resp != nil {
		resp.Write(w)
		return
	}

	page, err := appweb.StaticFS.ReadFile("static/index.html")
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(),
			"Embedded frontend missing", applog.FieldError, err)
		InternalServerError("frontend not available").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

// Shutdown stops the background sweeps before draining the HTTP server.
// Safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
