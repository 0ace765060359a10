package mdns

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/khmm12/reachability-checker/internal/report"
)

type querierFunc func(ctx context.Context, host string) (string, error)

func (f querierFunc) query(ctx context.Context, host string) (string, error) {
	return f(ctx, host)
}

func TestDriver_AnswerIsSuccess(t *testing.T) {
	d := newTestDriver(func(context.Context, string) (string, error) {
		return "192.168.1.20", nil
	})

	require.Equal(t, report.Success(), d.Probe(t.Context(), "printer.local", time.Second))
}

func TestDriver_NoAnswerIsNoReply(t *testing.T) {
	d := newTestDriver(func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	require.Equal(t, report.Failure(report.ReasonNoReply), d.Probe(t.Context(), "printer.local", 20*time.Millisecond))
}

func TestDriver_CallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	d := newTestDriver(func(ctx context.Context, _ string) (string, error) {
		return "", ctx.Err()
	})

	require.Equal(t, report.Failure(report.ReasonCancelled), d.Probe(ctx, "printer.local", time.Second))
}

func TestDriver_QueryError(t *testing.T) {
	d := newTestDriver(func(context.Context, string) (string, error) {
		return "", errors.New("connection closed")
	})

	require.Equal(t, report.Failure("connection closed"), d.Probe(t.Context(), "printer.local", time.Second))
}

func TestDriver_EmptyHost(t *testing.T) {
	d := newTestDriver(func(context.Context, string) (string, error) {
		t.Fatal("query must not be sent")
		return "", nil
	})

	require.Equal(t, report.Failure(report.ReasonInvalidHost), d.Probe(t.Context(), "", time.Second))
}

func TestNewClient_ValidatesConfig(t *testing.T) {
	_, err := NewClient(discardLogger(), ClientConfig{UseIPv4: true})
	require.ErrorContains(t, err, "concurrency")

	_, err = NewClient(discardLogger(), ClientConfig{Concurrency: 1})
	require.ErrorContains(t, err, "at least one of IPv4 or IPv6")
}

func newTestDriver(fn querierFunc) *Driver {
	return &Driver{logger: discardLogger(), querier: fn}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
