// Package http exposes the ledger over HTTP, choosing JSON or XML for
// request and response bodies from the Content-Type and Accept headers.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"expensetracker/internal/ledger"
	"expensetracker/internal/log"
	"expensetracker/internal/middleware/security"
	"expensetracker/internal/middleware/trace"
)

const (
	defaultMaxBodyBytes = 1 << 20
	readyTimeout        = 5 * time.Second
)

// Server wraps http.Server with the expense routes.
type Server struct {
	http.Server

	ledger       ledger.Ledger
	pinger       ledger.Pinger
	logger       *log.Logger
	maxBodyBytes int64

	shutdownOnce sync.Once
}

type Option func(*Server)

// WithPinger enables the readiness probe against p.
func WithPinger(p ledger.Pinger) Option {
	return func(s *Server) { s.pinger = p }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMaxBodyBytes caps request bodies; n <= 0 keeps the default.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

func WithTimeouts(read, write, idle time.Duration) Option {
	return func(s *Server) {
		s.ReadTimeout = read
		s.WriteTimeout = write
		s.IdleTimeout = idle
	}
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, l ledger.Ledger, opts ...Option) *Server {
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			MaxHeaderBytes:    1 << 16,
		},
		ledger:       l,
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.New(log.DefaultConfig())
	}
	s.logger = s.logger.WithComponent(log.ComponentHTTP)
	s.Handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(trace.NewMiddleware(s.logger).Handler)
	r.Use(middleware.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Handler)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.With(middleware.RequestSize(s.maxBodyBytes)).Post("/expenses", s.handleCreateExpense)
	r.Get("/expenses/{date}", s.handleListExpenses)

	return r
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.Server.Shutdown(ctx)
	})
	return err
}
