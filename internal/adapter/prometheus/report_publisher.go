package prometheus

import (
	"context"
	"errors"
	"log/slog"

	"github.com/khmm12/reachability-checker/internal/report"
)

type PublishOptions struct {
	// PushURL is the Pushgateway to push to after every report. Optional.
	PushURL string
	Job     string
	// Textfile is a node_exporter textfile to rewrite after every report. Optional.
	Textfile string
}

// ReportPublisher is safe for concurrent use. Overlapping publishes are
// serialized so the exported metrics always describe a single report.
type ReportPublisher struct {
	logger   *slog.Logger
	exporter *Exporter
	opts     PublishOptions
}

func NewReportPublisher(logger *slog.Logger, exporter *Exporter, opts PublishOptions) *ReportPublisher {
	if opts.Job == "" {
		opts.Job = "reachability_checker"
	}

	return &ReportPublisher{
		logger:   logger,
		exporter: exporter,
		opts:     opts,
	}
}

func (p *ReportPublisher) Publish(ctx context.Context, r *report.Report) error {
	summary := r.Summary()

	p.logger.DebugContext(ctx, "Publishing reachability report",
		slog.Group("publish",
			slog.Int("total", summary.Total),
			slog.Int("succeeded", summary.Succeeded),
			slog.Int("failed", summary.Failed),
		))

	p.exporter.mu.Lock()
	defer p.exporter.mu.Unlock()

	m := p.exporter.metrics

	m.probeSuccess.Reset()

	for _, e := range r.Entries() {
		switch e.Outcome.Status {
		case report.StatusSuccess:
			m.probeSuccess.WithLabelValues(e.Host, e.Protocol).Set(1.0)
		case report.StatusFailure:
			m.probeSuccess.WithLabelValues(e.Host, e.Protocol).Set(0.0)
		case report.StatusUnsupported:
		}
	}

	m.hostsTotal.Set(float64(summary.Hosts))
	m.probesTotal.Set(float64(summary.Total))
	m.probesSucceeded.Set(float64(summary.Succeeded))
	m.probesFailed.Set(float64(summary.Failed))
	m.probesUnsupported.Set(float64(summary.Unsupported))
	m.runDuration.Set(r.Duration().Seconds())
	m.lastRunTimestamp.SetToCurrentTime()

	var errs []error

	if p.opts.PushURL != "" {
		errs = append(errs, p.exporter.Push(ctx, p.opts.PushURL, p.opts.Job))
	}

	if p.opts.Textfile != "" {
		errs = append(errs, p.exporter.WriteTextfile(p.opts.Textfile))
	}

	return errors.Join(errs...)
}
