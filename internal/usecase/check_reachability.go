package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/khmm12/reachability-checker/internal/common/logging"
	"github.com/khmm12/reachability-checker/internal/ports"
	"github.com/khmm12/reachability-checker/internal/report"
)

const (
	DefaultConcurrency = 20
	DefaultTimeout     = 5 * time.Second

	// Drivers get the probe timeout as their deadline; the watchdog fires a
	// little later so a driver that honours it can report its own reason.
	watchdogGrace = 250 * time.Millisecond
)

type resolver interface {
	Resolve(protocol string) (ports.ProbeDriver, bool)
}

type CheckReachabilityOptions struct {
	// Concurrency bounds the number of probes in flight. 1 probes sequentially.
	Concurrency int
	// DefaultTimeout applies to drivers without an entry in Timeouts.
	DefaultTimeout time.Duration
	// Timeouts holds per-driver timeouts keyed by the driver name.
	Timeouts map[string]time.Duration
	// RateLimit caps probe starts per second. Zero disables the limit.
	RateLimit float64
	// Publisher receives the sealed report of every run. Optional.
	Publisher ports.ReportPublisher
}

type CheckReachabilityUseCase struct {
	logger      *slog.Logger
	resolver    resolver
	publisher   ports.ReportPublisher
	concurrency int
	timeout     time.Duration
	timeouts    map[string]time.Duration
	limiter     *rate.Limiter
}

func NewCheckReachabilityUseCase(logger *slog.Logger, resolver resolver, opts CheckReachabilityOptions) *CheckReachabilityUseCase {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}

	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = DefaultTimeout
	}

	timeouts := make(map[string]time.Duration, len(opts.Timeouts))
	for name, d := range opts.Timeouts {
		if d > 0 {
			timeouts[strings.ToLower(name)] = d
		}
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return &CheckReachabilityUseCase{
		logger:      logger,
		resolver:    resolver,
		publisher:   opts.Publisher,
		concurrency: opts.Concurrency,
		timeout:     opts.DefaultTimeout,
		timeouts:    timeouts,
		limiter:     limiter,
	}
}

type CheckReachabilityCommand struct {
	Hosts     []string
	Protocols []string
}

// Execute probes every (host, protocol) pair of cmd and returns a report with
// exactly one outcome per distinct pair. Probe failures never fail the run;
// the returned error is only set when publishing the report fails, in which
// case the complete report is still returned.
func (u *CheckReachabilityUseCase) Execute(ctx context.Context, cmd CheckReachabilityCommand) (*report.Report, error) {
	rep := report.New(cmd.Hosts, cmd.Protocols)

	u.logger.InfoContext(ctx, "Run reachability check",
		slog.Group("check",
			slog.Int("hosts", len(cmd.Hosts)),
			slog.Int("protocols", len(cmd.Protocols)),
			slog.Int("concurrency", u.concurrency),
		))

	var (
		g   errgroup.Group
		sem = semaphore.NewWeighted(int64(u.concurrency))
	)

	for _, host := range cmd.Hosts {
		for _, protocol := range cmd.Protocols {
			drv, ok := u.resolver.Resolve(protocol)
			if !ok {
				u.record(ctx, rep, host, protocol, report.Unsupported())
				continue
			}

			if err := sem.Acquire(ctx, 1); err != nil {
				u.record(ctx, rep, host, protocol, report.Failure(report.ReasonCancelled))
				continue
			}

			g.Go(func() error {
				defer sem.Release(1)

				u.record(ctx, rep, host, protocol, u.probe(ctx, drv, host, protocol))

				return nil
			})
		}
	}

	_ = g.Wait()

	rep.Seal()

	summary := rep.Summary()
	u.logger.InfoContext(ctx, "Finished reachability check",
		slog.Group("check",
			slog.Int("total", summary.Total),
			slog.Int("succeeded", summary.Succeeded),
			slog.Int("failed", summary.Failed),
			slog.Int("unsupported", summary.Unsupported),
		),
		slog.Duration("duration", rep.Duration()))

	if u.publisher == nil {
		return rep, nil
	}

	if err := u.publisher.Publish(ctx, rep); err != nil {
		return rep, fmt.Errorf("failed to publish reachability report: %w", err)
	}

	return rep, nil
}

func (u *CheckReachabilityUseCase) probe(ctx context.Context, drv ports.ProbeDriver, host, protocol string) report.Outcome {
	if ctx.Err() != nil {
		return report.Failure(report.ReasonCancelled)
	}

	if u.limiter != nil {
		if err := u.limiter.Wait(ctx); err != nil {
			return report.Failure(report.ReasonCancelled)
		}
	}

	timeout := u.timeoutFor(drv)

	probeCtx, cancel := context.WithTimeout(logging.WithProbe(ctx, host, protocol), timeout)
	defer cancel()

	// Buffered so a driver that overruns the watchdog can still exit.
	resCh := make(chan report.Outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				u.logger.ErrorContext(probeCtx, "Probe driver panicked", slog.Any("panic", r))
				resCh <- report.Failuref("panic: %v", r)
			}
		}()

		resCh <- drv.Probe(probeCtx, host, timeout)
	}()

	watchdog := time.NewTimer(timeout + watchdogGrace)
	defer watchdog.Stop()

	select {
	case o := <-resCh:
		if ctx.Err() != nil && !o.Succeeded() {
			return report.Failure(report.ReasonCancelled)
		}

		return o
	case <-ctx.Done():
		return report.Failure(report.ReasonCancelled)
	case <-watchdog.C:
		u.logger.WarnContext(probeCtx, "Probe driver overran its timeout", slog.Duration("timeout", timeout))
		return report.Failure(report.ReasonTimeout)
	}
}

func (u *CheckReachabilityUseCase) record(ctx context.Context, rep *report.Report, host, protocol string, o report.Outcome) {
	u.logger.DebugContext(logging.WithProbe(ctx, host, protocol), "Probe finished", slog.String("outcome", o.String()))

	if err := rep.Set(host, protocol, o); err != nil {
		u.logger.ErrorContext(ctx, "Failed to record probe outcome", logging.Error(err))
	}
}

func (u *CheckReachabilityUseCase) timeoutFor(drv ports.ProbeDriver) time.Duration {
	if d, ok := u.timeouts[strings.ToLower(drv.Name())]; ok {
		return d
	}

	return u.timeout
}
