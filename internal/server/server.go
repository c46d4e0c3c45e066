// Package server exposes the record store as a REST API.
//
// Routes:
//
//	GET    /healthz
//	GET    /api/{collection}
//	POST   /api/{collection}
//	GET    /api/{collection}/{id}
//	PUT    /api/{collection}/{id}
//	DELETE /api/{collection}/{id}
//
// Bodies are JSON records. Errors are {"error": "..."} with a matching
// status code.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/roach88/datamod/internal/store"
)

// DefaultRequestTimeout bounds each request.
const DefaultRequestTimeout = 60 * time.Second

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Server serves collections from a record store.
type Server struct {
	store   *store.Store
	idField string
	timeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithIDField names the record field that holds identifiers.
func WithIDField(field string) Option {
	return func(s *Server) {
		s.idField = field
	}
}

// WithRequestTimeout overrides DefaultRequestTimeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.timeout = d
	}
}

// New creates a server over st.
func New(st *store.Store, opts ...Option) *Server {
	s := &Server{store: st, idField: "id", timeout: DefaultRequestTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.timeout))

	r.Get("/healthz", s.healthHandler)

	r.Route("/api/{collection}", func(r chi.Router) {
		r.Get("/", s.listHandler)
		r.Post("/", s.createHandler)
		r.Get("/{id}", s.getHandler)
		r.Put("/{id}", s.updateHandler)
		r.Delete("/{id}", s.deleteHandler)
	})

	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		slog.Info("server stopping", "addr", addr)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// requestLogger logs one line per request through slog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			slog.Info("request",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}
