package mdns

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/khmm12/reachability-checker/internal/common/logging"
	"github.com/khmm12/reachability-checker/internal/report"
)

const (
	Name = "mdns"

	DefaultTimeout = 3 * time.Second
)

type querier interface {
	query(ctx context.Context, host string) (string, error)
}

// Driver resolves .local hosts over multicast DNS. A host that answers the
// address query is considered reachable.
type Driver struct {
	logger  *slog.Logger
	querier querier
}

func NewDriver(logger *slog.Logger, client *Client) *Driver {
	return &Driver{logger: logger, querier: client}
}

func (d *Driver) Name() string {
	return Name
}

func (d *Driver) Probe(ctx context.Context, host string, timeout time.Duration) report.Outcome {
	if strings.TrimSpace(host) == "" {
		return report.Failure(report.ReasonInvalidHost)
	}

	innerCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	addr, err := d.querier.query(innerCtx, host)
	if err != nil {
		// The caller gave up; that is not an answer about the host.
		if ctx.Err() != nil {
			return report.Failure(report.ReasonCancelled)
		}

		// No answer within the timeout means the host is down.
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(innerCtx.Err(), context.DeadlineExceeded) {
			d.logger.DebugContext(ctx, "No mDNS answer", slog.Duration("timeout", timeout))
			return report.Failure(report.ReasonNoReply)
		}

		d.logger.DebugContext(ctx, "mDNS query failed", logging.Error(err))

		return report.Failure(err.Error())
	}

	d.logger.DebugContext(ctx, "mDNS answer received", slog.String("addr", addr))

	return report.Success()
}

func (c *Client) query(ctx context.Context, host string) (string, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}

	defer c.sem.Release(1)

	_, addr, err := c.conn.QueryAddr(ctx, host)
	if err != nil {
		return "", err
	}

	return addr.String(), nil
}
