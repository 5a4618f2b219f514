// Package server is the HTTP dashboard: an HTML page plus JSON and CSV endpoints.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/tyler180/nfl-rushing-stats/internal/pipeline"
)

// Runner is satisfied by *pipeline.Pipeline.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) pipeline.View
}

type Options struct {
	Years       []int // offered seasons, newest first
	CORSOrigins []string
	Logger      *slog.Logger
}

type Server struct {
	run    Runner
	years  []int
	allow  map[int]bool
	cors   []string
	logger *slog.Logger
}

func New(run Runner, opts Options) *Server {
	s := &Server{
		run:    run,
		years:  opts.Years,
		allow:  make(map[int]bool, len(opts.Years)),
		cors:   opts.CORSOrigins,
		logger: opts.Logger,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if len(s.cors) == 0 {
		s.cors = []string{"*"}
	}
	for _, y := range opts.Years {
		s.allow[y] = true
	}
	return s
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cors,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/years", s.handleYears)
		r.Get("/rushing", s.handleRushing)
		r.Get("/rushing.csv", s.handleRushingCSV)
	})
	return r
}

// ListenAndServe runs until ctx is cancelled, then drains for up to 10s.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return err
		}
		return nil
	}
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("http",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"dur", time.Since(start),
				"req_id", chimiddleware.GetReqID(r.Context()),
			)
		})
	}
}
