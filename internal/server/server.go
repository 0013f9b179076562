// Package server exposes the store of record over HTTP. It is a passive
// store: it never makes ordering decisions, it only persists what the
// scheduler's sync layer delivers and hands state back at bootstrap.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abhisek/triplehelix/internal/backend"
)

// Storage is what the server needs from the store.
type Storage interface {
	SaveStitch(ctx context.Context, rec backend.StitchRecord) error
	SaveSession(ctx context.Context, rec backend.SessionRecord) error
	LoadSession(ctx context.Context) (backend.SessionRecord, bool, error)
	LoadStitches(ctx context.Context) ([]backend.StitchRecord, error)
}

// Server hosts the record API.
type Server struct {
	addr string
	log  *slog.Logger
	http *http.Server
}

// New builds a server on addr over the given storage.
func New(addr string, storage Storage, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}

	h := &handlers{storage: storage, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	r.Get("/healthz", h.health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/stitches", h.listStitches)
		r.Put("/stitches/{threadID}/{stitchID}", h.upsertStitch)
		r.Get("/state", h.getState)
		r.Put("/state", h.putState)
	})

	return &Server{
		addr: addr,
		log:  log,
		http: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler returns the routed handler, mainly for in-process serving.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("record server listening", "addr", s.addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}

// requestLogger logs one line per request.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Debug("request",
				"method", r.Method, "path", r.URL.Path,
				"status", ww.Status(), "elapsed", time.Since(start))
		})
	}
}
