package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"tamerun/internal/auth"
	"tamerun/internal/log"
	"tamerun/internal/middleware/ratelimit"
	"tamerun/internal/middleware/security"
	"tamerun/internal/middleware/trace"
	"tamerun/internal/services"
	appweb "tamerun/web"
)

// readTimeout bounds storage reads made while rendering a page.
const readTimeout = 7 * time.Second

// Pinger reports whether the storage backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services the handlers call.
type Deps struct {
	Auth         *auth.Service
	Tokens       *auth.TokenIssuer
	Transactions *services.TransactionService
	Receipts     *services.ReceiptService
	Dashboard    *services.DashboardService
	Goals        *services.GoalService
	Catalog      *services.CategoryCatalog
	Storage      Pinger
}

type Server struct {
	http.Server
	deps      Deps
	templates *template.Template
	logger    *log.Logger
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	tracer    *trace.Middleware
	nowFn     func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, deps Deps, logger *log.Logger) (*Server, error) {
	t, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       2 * time.Minute,
		},
		deps:      deps,
		templates: t,
		logger:    logger.WithComponent(log.ComponentHTTP),
		limiter:   ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector:  security.NewDetector(),
		tracer:    trace.NewMiddleware(true),
		nowFn:     time.Now,
	}
	s.Handler = s.routes()
	return s, nil
}

func parseTemplates() (*template.Template, error) {
	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return t, nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /signup", s.handleSignUp)
	mux.HandleFunc("POST /logout", s.handleLogout)

	protected := auth.Middleware(s.deps.Tokens)
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, protected(h))
	}
	handle("GET /{$}", s.handleDashboard)
	handle("GET /input", s.handleInput)
	handle("GET /ui/categories", s.handleCategoryOptions)
	handle("POST /transactions", s.handleCreateTransaction)
	handle("GET /stats", s.handleStats)
	handle("POST /goals", s.handleCreateGoal)
	handle("POST /goals/{id}/contribute", s.handleContribute)
	handle("POST /receipts/analyze", s.handleAnalyzeReceipt)
	handle("POST /receipts/register", s.handleRegisterReceipt)

	limited := s.limiter.Middleware(s.detector.ClientIP, ratelimit.WritesOnly, s.onRateLimit)

	// Outermost first.
	return chain(mux,
		s.tracer.Middleware,
		log.Middleware(s.logger, trace.FromRequest),
		s.detector.Middleware(s.logger),
		security.Headers(security.DefaultHeadersConfig()),
		limited,
	)
}

func chain(h http.Handler, mw ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	fields := log.NewFields().
		WithComponent(log.ComponentRateLimit).
		WithClientIP(s.detector.ClientIP(r)).
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent())
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded", fields.ToSlice()...)
	ErrorResponse(http.StatusTooManyRequests, "Too many requests. Please try again shortly.").
		TriggerErrorNotification("Too many requests").
		Write(w)
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
