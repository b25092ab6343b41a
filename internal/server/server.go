package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rustyeddy/tradebook/internal/logging"
	"github.com/rustyeddy/tradebook/internal/metrics"
	"github.com/rustyeddy/tradebook/internal/trace"
	"github.com/rustyeddy/tradebook/journal"
	"github.com/sirupsen/logrus"
)

// Options wires the server to its collaborators. Journal may be nil, in
// which case the run endpoints answer 503.
type Options struct {
	Journal     *journal.SQLite
	Metrics     *metrics.Metrics
	Tracer      *trace.Tracer
	Log         *logrus.Entry
	SkipInvalid bool
}

// Server exposes the PnL engine over HTTP.
type Server struct {
	opts   Options
	router chi.Router
}

func New(opts Options) *Server {
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewMetrics()
	}
	if opts.Tracer == nil {
		opts.Tracer = trace.Noop()
	}
	if opts.Log == nil {
		opts.Log = logging.Discard()
	}

	s := &Server{opts: opts}

	r := chi.NewRouter()
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/pnl", s.handlePnL)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
	})

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.opts.Log.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.opts.Log.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errc
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.opts.Log.WithFields(logrus.Fields{
			"method":  r.Method,
			"path":    r.URL.Path,
			"elapsed": time.Since(start),
		}).Debug("request")
	})
}
