package prometheus

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/khmm12/reachability-checker/internal/report"
)

func TestReportPublisher_PublishesOutcomes(t *testing.T) {
	ctx := context.Background()
	exporter, publisher := newTestPublisher(t, PublishOptions{})

	err := publisher.Publish(ctx, newTestReport(t))
	require.NoError(t, err)

	m := exporter.metrics

	requireMetric(t, 2.0, m.hostsTotal)
	requireMetric(t, 4.0, m.probesTotal)
	requireMetric(t, 2.0, m.probesSucceeded)
	requireMetric(t, 1.0, m.probesFailed)
	requireMetric(t, 1.0, m.probesUnsupported)
	requireMetric(t, 1.0, m.probeSuccess.WithLabelValues("a.example", "icmp"))
	requireMetric(t, 0.0, m.probeSuccess.WithLabelValues("a.example", "http"))
	requireMetric(t, 1.0, m.probeSuccess.WithLabelValues("b.example", "icmp"))

	// Unsupported pairs have no series; the lookups above created three.
	require.Equal(t, 3, testutil.CollectAndCount(m.probeSuccess))
}

func TestReportPublisher_ResetsStalePairs(t *testing.T) {
	ctx := context.Background()
	exporter, publisher := newTestPublisher(t, PublishOptions{})

	require.NoError(t, publisher.Publish(ctx, newTestReport(t)))

	next := report.New([]string{"c.example"}, []string{"icmp"})
	require.NoError(t, next.Set("c.example", "icmp", report.Success()))
	next.Seal()

	require.NoError(t, publisher.Publish(ctx, next))

	require.Equal(t, 1, testutil.CollectAndCount(exporter.metrics.probeSuccess))
	requireMetric(t, 1.0, exporter.metrics.hostsTotal)
}

func TestReportPublisher_EmptyReport(t *testing.T) {
	ctx := context.Background()
	exporter, publisher := newTestPublisher(t, PublishOptions{})

	empty := report.New(nil, nil)
	empty.Seal()

	require.NoError(t, publisher.Publish(ctx, empty))

	requireMetric(t, 0.0, exporter.metrics.probesTotal)
	require.Equal(t, 0, testutil.CollectAndCount(exporter.metrics.probeSuccess))
}

func TestReportPublisher_PushesToGateway(t *testing.T) {
	var (
		method, path string
		body         []byte
	)

	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer gateway.Close()

	_, publisher := newTestPublisher(t, PublishOptions{PushURL: gateway.URL, Job: "edge"})

	require.NoError(t, publisher.Publish(context.Background(), newTestReport(t)))

	require.Equal(t, http.MethodPut, method)
	require.Equal(t, "/metrics/job/edge", path)
	require.NotEmpty(t, body)
}

func TestReportPublisher_ReportsPushFailure(t *testing.T) {
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer gateway.Close()

	_, publisher := newTestPublisher(t, PublishOptions{PushURL: gateway.URL})

	err := publisher.Publish(context.Background(), newTestReport(t))
	require.ErrorContains(t, err, "failed to push metrics")
}

func TestReportPublisher_WritesTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reachability.prom")

	_, publisher := newTestPublisher(t, PublishOptions{Textfile: path})

	require.NoError(t, publisher.Publish(context.Background(), newTestReport(t)))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(content), "reachability_probes_total 4")
	require.Contains(t, string(content), `reachability_probe_success{host="a.example",protocol="icmp"} 1`)
}

func TestExporter_ServesMetrics(t *testing.T) {
	exporter, publisher := newTestPublisher(t, PublishOptions{})
	require.NoError(t, publisher.Publish(context.Background(), newTestReport(t)))

	rec := httptest.NewRecorder()
	exporter.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "reachability_probes_succeeded 2")
}

func TestReportPublisher_ConcurrentPublishesDoNotMix(t *testing.T) {
	ctx := context.Background()
	exporter, publisher := newTestPublisher(t, PublishOptions{})

	small, large := newReachableReport(t, 30), newReachableReport(t, 50)

	done := make(chan struct{})
	scraped := make(chan error, 1)

	go func() {
		defer close(scraped)

		for {
			select {
			case <-done:
				return
			default:
			}

			if err := checkConsistent(exporter); err != nil {
				scraped <- err
				return
			}
		}
	}()

	for range 100 {
		var wg sync.WaitGroup

		for _, r := range []*report.Report{small, large} {
			wg.Add(1)

			go func() {
				defer wg.Done()
				_ = publisher.Publish(ctx, r)
			}()
		}

		wg.Wait()

		require.NoError(t, checkConsistent(exporter))
	}

	close(done)
	require.NoError(t, <-scraped)
}

// checkConsistent verifies that one scrape sees as many per-pair series as
// the run reported pairs.
func checkConsistent(e *Exporter) error {
	families, err := e.gather()
	if err != nil {
		return err
	}

	var (
		series int
		total  float64
	)

	for _, mf := range families {
		switch mf.GetName() {
		case "reachability_probe_success":
			series = len(mf.GetMetric())
		case "reachability_probes_total":
			total = mf.GetMetric()[0].GetGauge().GetValue()
		}
	}

	if float64(series) != total {
		return fmt.Errorf("scraped %d probe_success series for %v probes", series, total)
	}

	return nil
}

func newReachableReport(t *testing.T, hosts int) *report.Report {
	t.Helper()

	names := make([]string, 0, hosts)
	for i := range hosts {
		names = append(names, fmt.Sprintf("host-%d.example", i))
	}

	r := report.New(names, []string{"icmp"})
	for _, host := range names {
		require.NoError(t, r.Set(host, "icmp", report.Success()))
	}

	r.Seal()

	return r
}

func newTestReport(t *testing.T) *report.Report {
	t.Helper()

	r := report.New([]string{"a.example", "b.example"}, []string{"icmp", "http", "ftp"})
	require.NoError(t, r.Set("a.example", "icmp", report.Success()))
	require.NoError(t, r.Set("a.example", "http", report.Failure("status=404")))
	require.NoError(t, r.Set("a.example", "ftp", report.Unsupported()))
	require.NoError(t, r.Set("b.example", "icmp", report.Success()))
	r.Seal()

	return r
}

func newTestPublisher(t *testing.T, opts PublishOptions) (*Exporter, *ReportPublisher) {
	t.Helper()

	exporter, err := NewExporter()
	require.NoError(t, err)

	publisher := NewReportPublisher(slog.New(slog.NewTextHandler(io.Discard, nil)), exporter, opts)

	return exporter, publisher
}

func requireMetric(t *testing.T, expected float64, metric prometheus.Collector) {
	t.Helper()

	require.InDelta(t, expected, testutil.ToFloat64(metric), 0.001)
}
