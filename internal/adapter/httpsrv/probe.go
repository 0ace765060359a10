package httpsrv

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/khmm12/reachability-checker/internal/adapter/render"
	"github.com/khmm12/reachability-checker/internal/common/logging"
	"github.com/khmm12/reachability-checker/internal/common/tracing"
	"github.com/khmm12/reachability-checker/internal/report"
	"github.com/khmm12/reachability-checker/internal/usecase"
)

const defaultMaxTargets = 100

type Prober interface {
	Execute(ctx context.Context, cmd usecase.CheckReachabilityCommand) (*report.Report, error)
}

// probeHandler runs one check for the hosts and protocols given as
// repeated or comma separated "host" and "protocol" query parameters.
func probeHandler(logger *slog.Logger, prober Prober, maxTargets int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := tracing.WithExistingTraceID(r.Context(), r.Header.Get("X-Request-Id"))
		w.Header().Set("X-Trace-Id", tracing.GetTraceID(ctx))

		query := r.URL.Query()
		hosts := splitParam(query["host"])
		protocols := splitParam(query["protocol"])

		if len(hosts) == 0 || len(protocols) == 0 {
			http.Error(w, "at least one host and one protocol are required", http.StatusBadRequest)
			return
		}

		if len(hosts)*len(protocols) > maxTargets {
			http.Error(w, "too many host/protocol pairs", http.StatusBadRequest)
			return
		}

		rep, err := prober.Execute(ctx, usecase.CheckReachabilityCommand{
			Hosts:     hosts,
			Protocols: protocols,
		})
		if err != nil {
			logger.WarnContext(ctx, "Probe request finished with an error", logging.Error(err))
		}

		w.Header().Set("Content-Type", "application/json")

		if err := json.NewEncoder(w).Encode(render.NewDocument(rep)); err != nil {
			logger.ErrorContext(ctx, "Failed to write probe response", logging.Error(err))
		}
	}
}

func splitParam(values []string) []string {
	var out []string

	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}

	return out
}
