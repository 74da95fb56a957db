package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"complaints/internal/amqp"
	"complaints/internal/analytics"
	"complaints/internal/log"
	"complaints/internal/metrics"
	"complaints/internal/middleware/ratelimit"
	"complaints/internal/middleware/security"
	"complaints/internal/middleware/trace"
	"complaints/internal/sheets"
	appweb "complaints/web"
)

// Refresher asks the worker to re-import the worksheet.
type Refresher interface {
	PublishRefresh(ctx context.Context, reason string) (*amqp.RefreshMessage, error)
}

// Invalidator drops a cached snapshot.
type Invalidator interface {
	Invalidate()
}

// Options wires the server to its data source and collaborators. Reader is
// required; Engine, Metrics and Logger get defaults; Refresher is optional.
type Options struct {
	Addr      string
	Backend   string
	Reader    sheets.SnapshotReader
	Engine    *analytics.Engine
	Refresher Refresher
	Metrics   *metrics.Metrics
	Logger    *log.Logger

	// RefreshPerMinute bounds POST /api/refresh per client.
	RefreshPerMinute int
}

type Server struct {
	http.Server
	templates *template.Template

	backend   string
	reader    sheets.SnapshotReader
	engine    *analytics.Engine
	refresher Refresher
	metrics   *metrics.Metrics
	logger    *log.Logger

	detector *security.Detector
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	headers  *security.HeadersMiddleware
	started  time.Time
}

func NewServer(o Options) *Server {
	if o.Engine == nil {
		o.Engine = analytics.NewEngine(analytics.DefaultOptions())
	}
	if o.Metrics == nil {
		o.Metrics = metrics.New()
	}
	if o.Logger == nil {
		o.Logger = log.New(log.DefaultConfig())
	}
	if o.RefreshPerMinute <= 0 {
		o.RefreshPerMinute = 6
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              o.Addr,
			ReadHeaderTimeout: 5 * time.Second,
		},
		backend:   o.Backend,
		reader:    o.Reader,
		engine:    o.Engine,
		refresher: o.Refresher,
		metrics:   o.Metrics,
		logger:    o.Logger.WithComponent(log.ComponentHTTP),
		detector:  security.NewDetector(),
		limiter:   ratelimit.NewLimiter(ratelimit.Config{Requests: o.RefreshPerMinute, Window: time.Minute}),
		headers:   security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
		started:   time.Now(),
	}
	s.tracer = trace.NewMiddleware(s.logger, s.detector.ExtractClientIP, s.metrics)

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", log.FieldError, err, log.FieldComponent, log.ComponentTemplate)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ui/dashboard", s.handleDashboardPartial)
	mux.Handle("GET /charts/{kind}", log.ComponentMiddleware(log.ComponentCharts)(http.HandlerFunc(s.handleChart)))
	mux.HandleFunc("GET /api/dashboard", s.handleDashboardJSON)
	mux.Handle("POST /api/refresh", s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit)(http.HandlerFunc(s.handleRefresh)))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", s.metrics.Handler())

	s.Handler = s.tracer.Middleware(
		s.headers.Middleware(
			s.detector.Middleware(s.onSuspicious)(mux)))
	return s
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}

func (s *Server) onSuspicious(r *http.Request) {
	s.metrics.SuspiciousRequest()
	log.FromContext(r.Context()).Warn("Suspicious request detected",
		log.NewFields().
			WithComponent(log.ComponentSecurity).
			WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent(), "").
			ToSlice()...)
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	s.metrics.RateLimitHit()
	s.metrics.ObserveRefresh("rate_limited")
	log.FromContext(r.Context()).Warn("Rate limit exceeded",
		log.FieldComponent, log.ComponentRateLimit,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Too many refresh requests. Please wait a moment.").
		TriggerErrorNotification("Too many refresh requests").
		Write(w)
}
