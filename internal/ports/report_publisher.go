package ports

import (
	"context"

	"github.com/khmm12/reachability-checker/internal/report"
)

type ReportPublisher interface {
	Publish(ctx context.Context, r *report.Report) error
}
