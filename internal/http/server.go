// Package http exposes the budget operations as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	applog "easybudget/internal/log"
	"easybudget/internal/middleware/ratelimit"
	"easybudget/internal/middleware/security"
	"easybudget/internal/middleware/trace"
	"easybudget/internal/services"
)

// Options tunes the outer surface. Zero values fall back to the middleware
// package defaults.
type Options struct {
	RateLimitPerMinute int
	Logger             *applog.Logger
}

type Server struct {
	http.Server
	svc      *services.BudgetService
	limiter  *ratelimit.Limiter
	detector *security.Detector

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc *services.BudgetService, opts Options) *Server {
	mux := http.NewServeMux()

	detector := security.NewDetector()
	limiter := ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute: opts.RateLimitPerMinute,
	})

	s := &Server{
		svc:      svc,
		limiter:  limiter,
		detector: detector,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	mux.HandleFunc("PUT /api/expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)

	mux.HandleFunc("GET /api/days/{day}/expenses", s.handleDayExpenses)
	mux.HandleFunc("GET /api/days/{day}/balance", s.handleDayBalance)

	mux.HandleFunc("GET /api/months/{month}/expenses", s.handleMonthExpenses)
	mux.HandleFunc("GET /api/months/{month}/summary", s.handleMonthSummary)

	mux.HandleFunc("POST /api/recurring", s.handleCreateRecurring)
	mux.HandleFunc("DELETE /api/recurring/{id}", s.handleDeleteRecurring)

	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	traceMW := trace.NewMiddleware(detector.ExtractClientIP)
	limitMW := limiter.Middleware(detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "60")
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded"})
	})
	logMW := applog.Middleware(logger.WithComponent(applog.ComponentHTTP))
	requestIDMW := applog.RequestIDMiddleware(func(r *http.Request) string {
		return trace.GetRequestID(r.Context())
	})

	var handler http.Handler = mux
	handler = limitMW(handler)
	handler = headers.Middleware(handler)
	handler = s.flagSuspicious(handler)
	handler = requestIDMW(handler)
	handler = logMW(handler)
	handler = traceMW.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}
	return s
}

// Shutdown stops the listener and the rate limiter's cleanup goroutine.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// flagSuspicious logs requests matching known attack patterns. They still
// proceed; the rate limiter is the enforcement layer.
func (s *Server) flagSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request",
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path,
				applog.FieldClientIP, s.detector.ExtractClientIP(r))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
