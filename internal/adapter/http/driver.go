package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/khmm12/reachability-checker/internal/common/logging"
	"github.com/khmm12/reachability-checker/internal/report"
)

const (
	Name = "http"

	DefaultTimeout   = 10 * time.Second
	DefaultUserAgent = "reachability-checker/1.0"

	maxDrainBytes = 64 << 10
)

type Config struct {
	UserAgent string
	// Transport overrides the round tripper, mainly for tests.
	Transport http.RoundTripper
}

// Driver issues a single GET http://<host>/ per probe. Only a 200 response
// counts as reachable; redirects are reported as their 3xx status. The
// default transport dials the host directly and ignores proxy settings.
type Driver struct {
	logger    *slog.Logger
	client    *http.Client
	userAgent string
}

func New(logger *slog.Logger, cfg Config) *Driver {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	transport := cfg.Transport
	if transport == nil {
		transport = &http.Transport{
			DialContext:       (&net.Dialer{KeepAlive: -1}).DialContext,
			DisableKeepAlives: true,
		}
	}

	return &Driver{
		logger: logger,
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		userAgent: cfg.UserAgent,
	}
}

func (d *Driver) Name() string {
	return Name
}

func (d *Driver) Probe(ctx context.Context, host string, timeout time.Duration) report.Outcome {
	target, err := targetURL(host)
	if err != nil {
		return report.Failure(report.ReasonInvalidHost)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return report.Failure(report.ReasonInvalidHost)
	}

	req.Header.Set("User-Agent", d.userAgent)

	now := time.Now()

	resp, err := d.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			d.logger.DebugContext(ctx, "HTTP probe timed out", slog.String("url", target), slog.Duration("timeout", timeout))
			return report.Failure(report.ReasonTimeout)
		}

		d.logger.DebugContext(ctx, "HTTP probe failed", slog.String("url", target), logging.Error(err))

		return report.Failure(describe(err))
	}

	defer func() { _ = resp.Body.Close() }()

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))

	d.logger.DebugContext(ctx, "HTTP probe finished",
		slog.String("url", target),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(now)))

	if resp.StatusCode != http.StatusOK {
		return report.Failuref("status=%d", resp.StatusCode)
	}

	return report.Success()
}

// targetURL builds http://<host>/. host may carry a port; bare IPv6
// literals are bracketed.
func targetURL(host string) (string, error) {
	host = strings.TrimSpace(host)
	if host == "" || strings.ContainsAny(host, "/?#@ ") {
		return "", fmt.Errorf("invalid host %q", host)
	}

	if addr, err := netip.ParseAddr(host); err == nil && addr.Is6() {
		host = "[" + host + "]"
	}

	u := url.URL{Scheme: "http", Host: host, Path: "/"}

	if _, err := url.Parse(u.String()); err != nil {
		return "", fmt.Errorf("invalid host %q: %w", host, err)
	}

	return u.String(), nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// describe strips the "Get \"url\":" prefix added by the client.
func describe(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err.Error()
	}

	return err.Error()
}
