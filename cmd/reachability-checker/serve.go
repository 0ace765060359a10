package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/khmm12/reachability-checker/internal/adapter/httpsrv"
	"github.com/khmm12/reachability-checker/internal/adapter/prometheus"
	"github.com/khmm12/reachability-checker/internal/common/logging"
)

type Serve struct {
	Addr        string `name:"addr" env:"SERVE_ADDR" default:"0.0.0.0:8080" help:"HTTP address to serve /probe, /health and /metrics on."`
	MetricsPath string `name:"metrics.path" env:"METRICS_PATH" default:"/metrics" help:"Path to serve Prometheus metrics of the last probe on."`
	MaxTargets  int    `name:"max-targets" env:"SERVE_MAX_TARGETS" default:"100" help:"Maximum number of host/protocol pairs per probe request."`
}

func (s *Serve) Validate() error {
	var errs []error

	if !isTCPAddr(s.Addr) {
		errs = append(errs, errors.New("--addr: must be a valid tcp listening address (e.g. 0.0.0.0:8080)"))
	}

	if s.MaxTargets <= 0 {
		errs = append(errs, errors.New("--max-targets: must be greater than zero"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

func (s *Serve) Run(cli *CLI) error {
	ctx := context.Background()
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger, err := newLogger(cli.LogLevel)
	if err != nil {
		return err
	}

	dispatcher, closeDrivers, err := newDispatcher(logger, cli)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to create probe drivers", logging.Error(err))
		return err
	}

	defer closeDrivers()

	exporter, err := prometheus.NewExporter()
	if err != nil {
		logger.ErrorContext(ctx, "Failed to create prometheus exporter", logging.Error(err))
		return err
	}

	uc := newUseCase(logger, cli, dispatcher, prometheus.NewReportPublisher(logger, exporter, prometheus.PublishOptions{}))

	srv := httpsrv.NewServer(s.Addr, httpsrv.ServerOptions{
		Logger:         logger,
		MetricsHandler: exporter.Handler(),
		MetricsPath:    s.MetricsPath,
		Prober:         uc,
		MaxTargets:     s.MaxTargets,
	})

	defer func() {
		logger.InfoContext(ctx, "Stopping HTTP Server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if serr := srv.Shutdown(shutdownCtx); serr != nil {
			logger.ErrorContext(ctx, "Failed to stop HTTP Server", logging.Error(serr))
		}

		logger.InfoContext(ctx, "Stopped")
	}()

	errCh := make(chan error, 1)

	go func() {
		logger.InfoContext(ctx, "Start HTTP Server",
			slog.String("address", srv.ListenAddr()),
			slog.Any("protocols", dispatcher.Protocols()))

		if err := srv.Start(); err != nil {
			logger.ErrorContext(ctx, "Failed to start HTTP Server", logging.Error(err))
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}
