package ports

import (
	"context"
	"time"

	"github.com/khmm12/reachability-checker/internal/report"
)

// ProbeDriver checks reachability of a host over a single protocol.
//
// Name returns the canonical protocol keyword the driver is dispatched by.
// Probe must honour both ctx and timeout and must report every failure through
// the returned outcome.
type ProbeDriver interface {
	Name() string
	Probe(ctx context.Context, host string, timeout time.Duration) report.Outcome
}
