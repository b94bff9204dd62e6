// Package http exposes the ledger over a JSON REST API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

const maxBodyBytes = 1 << 20

// AuthAPI is what the auth endpoints need.
type AuthAPI interface {
	Register(ctx context.Context, reg services.Registration) (core.User, auth.Token, error)
	Login(ctx context.Context, email, password string) (core.User, auth.Token, error)
	Me(ctx context.Context, userID int64) (core.User, error)
}

// LineItemAPI is what the revenue and expense endpoints need.
type LineItemAPI interface {
	List(ctx context.Context, userID int64, kind core.Kind, now time.Time) ([]ledger.Classified, error)
	Filter(ctx context.Context, userID int64, kind core.Kind, c ledger.Criteria, now time.Time) ([]ledger.Classified, error)
	Get(ctx context.Context, userID int64, kind core.Kind, id int64, now time.Time) (ledger.Classified, error)
	Create(ctx context.Context, userID int64, item core.LineItem) (core.LineItem, error)
	Update(ctx context.Context, userID int64, item core.LineItem) (core.LineItem, error)
	Delete(ctx context.Context, userID int64, kind core.Kind, id int64) error
	Installments(ctx context.Context, userID, id int64, now time.Time) ([]ledger.Installment, error)
	Summary(ctx context.Context, userID int64, now time.Time) (services.Overview, error)
}

type CategoryAPI interface {
	List(ctx context.Context, userID int64) ([]core.Category, error)
	Ensure(ctx context.Context, userID int64, name string) (core.Category, bool, error)
	Delete(ctx context.Context, userID, id int64) (int64, error)
}

type SavingAPI interface {
	List(ctx context.Context, userID int64) ([]core.Saving, error)
	Create(ctx context.Context, userID int64, s core.Saving) (core.Saving, error)
	Update(ctx context.Context, userID int64, s core.Saving) (core.Saving, error)
	Delete(ctx context.Context, userID, id int64) error
}

// Options wires a Server.
type Options struct {
	Addr           string
	Auth           AuthAPI
	LineItems      LineItemAPI
	Categories     CategoryAPI
	Savings        SavingAPI
	Verifier       auth.Verifier
	Logger         *log.Logger
	LoginRateLimit int                             // per minute per client; 0 uses the limiter default
	Ready          func(ctx context.Context) error // nil means always ready
	Now            func() time.Time                // nil means time.Now
}

type Server struct {
	http.Server
	auth       AuthAPI
	lineItems  LineItemAPI
	categories CategoryAPI
	savings    SavingAPI
	ready      func(ctx context.Context) error
	now        func() time.Time

	limiter      *ratelimit.Limiter
	detector     *security.Detector
	tracer       *trace.Middleware
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &Server{
		auth:       opts.Auth,
		lineItems:  opts.LineItems,
		categories: opts.Categories,
		savings:    opts.Savings,
		ready:      opts.Ready,
		now:        now,
		limiter:    ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.LoginRateLimit}),
		detector:   security.NewDetector(),
		tracer:     trace.NewMiddleware(),
	}

	api := http.NewServeMux()
	api.HandleFunc("GET /api/user/me", s.handleMe)

	for _, kind := range []core.Kind{core.Revenue, core.Expense} {
		api.HandleFunc("GET /api/"+string(kind)+"s", s.handleList(kind))
		api.HandleFunc("POST /api/"+string(kind)+"/add", s.handleCreate(kind))
		api.HandleFunc("POST /api/"+string(kind)+"/filter", s.handleFilter(kind))
		api.HandleFunc("GET /api/"+string(kind)+"/{id}", s.handleGet(kind))
		api.HandleFunc("PUT /api/"+string(kind)+"/{id}", s.handleUpdate(kind))
		api.HandleFunc("DELETE /api/"+string(kind)+"/{id}", s.handleDelete(kind))
	}
	api.HandleFunc("GET /api/expense/{id}/installments", s.handleInstallments)

	api.HandleFunc("GET /api/categories", s.handleListCategories)
	api.HandleFunc("POST /api/category/add", s.handleCreateCategory)
	api.HandleFunc("DELETE /api/category/{id}", s.handleDeleteCategory)

	api.HandleFunc("GET /api/savings", s.handleListSavings)
	api.HandleFunc("POST /api/saving/add", s.handleCreateSaving)
	api.HandleFunc("PUT /api/saving/{id}", s.handleUpdateSaving)
	api.HandleFunc("DELETE /api/saving/{id}", s.handleDeleteSaving)

	api.HandleFunc("GET /api/summary", s.handleSummary)

	limited := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusTooManyRequests, "too many attempts, try again later")
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("POST /login", limited(http.HandlerFunc(s.handleLogin)))
	mux.Handle("POST /user/new", limited(http.HandlerFunc(s.handleRegister)))
	mux.Handle("/api/", auth.Middleware(opts.Verifier)(api))

	var handler http.Handler = mux
	handler = log.Middleware(logger.WithComponent(log.ComponentHTTP), trace.RequestID)(handler)
	handler = s.detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

// Shutdown stops background routines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// Metrics reports request counters since startup.
func (s *Server) Metrics() trace.Metrics {
	return s.tracer.GetMetrics()
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
