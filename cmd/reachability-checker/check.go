package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/khmm12/reachability-checker/internal/adapter/prometheus"
	"github.com/khmm12/reachability-checker/internal/adapter/render"
	"github.com/khmm12/reachability-checker/internal/common/logging"
	"github.com/khmm12/reachability-checker/internal/common/tracing"
	"github.com/khmm12/reachability-checker/internal/ports"
	"github.com/khmm12/reachability-checker/internal/usecase"
)

var errUnreachable = errors.New("not every host responded on every protocol")

type CheckMetrics struct {
	PushURL  string `name:"push-url" env:"METRICS_PUSH_URL" help:"Pushgateway URL to push the report metrics to after the run."`
	Job      string `name:"job" env:"METRICS_JOB" default:"reachability_checker" help:"Pushgateway job name."`
	Textfile string `name:"textfile" env:"METRICS_TEXTFILE" help:"Write the report metrics to this node_exporter textfile."`
}

type Check struct {
	Protocols []string     `name:"protocols" short:"p" aliases:"protocol" env:"PROBE_PROTOCOLS" default:"icmp" sep:"," help:"Protocols to probe (icmp, http, mdns). Matched case-insensitively by substring. Repeatable."`
	Dump      string       `name:"dump" env:"OUTPUT_DUMP" default:"none" enum:"none,json,yaml" help:"Also print the full report as json or yaml."`
	Metrics   CheckMetrics `embed:"" prefix:"metrics."`
	Hosts     []string     `arg:"" optional:"" name:"hosts" help:"Hosts to check."`
}

func (c *Check) Validate() error {
	var errs []error

	if c.Metrics.PushURL != "" && !isHTTPURL(c.Metrics.PushURL) {
		errs = append(errs, errors.New("--metrics.push-url: must be an http(s) URL"))
	}

	if _, err := render.ParseFormat(c.Dump); err != nil {
		errs = append(errs, fmt.Errorf("--dump: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

func (c *Check) Run(cli *CLI, stdout io.Writer) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cli.Probe.Deadline > 0 {
		var cancelDeadline context.CancelFunc
		ctx, cancelDeadline = context.WithTimeout(ctx, cli.Probe.Deadline)
		defer cancelDeadline()
	}

	ctx = tracing.WithTraceID(ctx)

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

	for _, protocol := range c.Protocols {
		if _, ok := dispatcher.Resolve(protocol); !ok {
			logger.WarnContext(ctx, "No probe driver matches protocol",
				slog.String("protocol", protocol),
				slog.Any("supported", dispatcher.Protocols()))
		}
	}

	publisher, err := c.newPublisher(logger)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to create metrics publisher", logging.Error(err))
		return err
	}

	uc := newUseCase(logger, cli, dispatcher, publisher)

	rep, runErr := uc.Execute(ctx, usecase.CheckReachabilityCommand{
		Hosts:     c.Hosts,
		Protocols: c.Protocols,
	})
	if runErr != nil {
		logger.ErrorContext(ctx, "Failed to publish report metrics", logging.Error(runErr))
	}

	if err := render.Lines(stdout, rep); err != nil {
		return err
	}

	format, _ := render.ParseFormat(c.Dump)
	if err := render.Dump(stdout, rep, format); err != nil {
		return err
	}

	if runErr != nil {
		return runErr
	}

	if s := rep.Summary(); s.Succeeded < s.Total {
		return errUnreachable
	}

	return nil
}

// newPublisher returns nil when no metrics sink is configured.
func (c *Check) newPublisher(logger *slog.Logger) (ports.ReportPublisher, error) {
	if c.Metrics.PushURL == "" && c.Metrics.Textfile == "" {
		return nil, nil
	}

	exporter, err := prometheus.NewExporter()
	if err != nil {
		return nil, err
	}

	return prometheus.NewReportPublisher(logger, exporter, prometheus.PublishOptions{
		PushURL:  c.Metrics.PushURL,
		Job:      c.Metrics.Job,
		Textfile: c.Metrics.Textfile,
	}), nil
}
