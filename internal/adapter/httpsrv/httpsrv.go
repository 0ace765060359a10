package httpsrv

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

type Server struct {
	srv    *http.Server
	router *http.ServeMux
}

type ServerOptions struct {
	Logger         *slog.Logger
	MetricsHandler http.Handler
	MetricsPath    string
	Prober         Prober
	// MaxTargets bounds hosts x protocols of a single /probe request.
	MaxTargets int
}

func NewServer(addr string, opts ServerOptions) *Server {
	router := http.NewServeMux()

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.MaxTargets <= 0 {
		opts.MaxTargets = defaultMaxTargets
	}

	router.Handle("GET /health", healthHandler())

	if opts.MetricsHandler != nil {
		router.Handle("GET "+opts.MetricsPath, opts.MetricsHandler)
	}

	if opts.Prober != nil {
		router.Handle("GET /probe", probeHandler(opts.Logger, opts.Prober, opts.MaxTargets))
	}

	return &Server{
		srv:    srv,
		router: router,
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) ListenAddr() string {
	return s.srv.Addr
}

func (s *Server) Start() error {
	err := s.srv.ListenAndServe()

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
