package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	probeSuccess      *prometheus.GaugeVec
	hostsTotal        prometheus.Gauge
	probesTotal       prometheus.Gauge
	probesSucceeded   prometheus.Gauge
	probesFailed      prometheus.Gauge
	probesUnsupported prometheus.Gauge
	runDuration       prometheus.Gauge
	lastRunTimestamp  prometheus.Gauge
}

const (
	prefix = "reachability_"
)

func newMetrics(reg *prometheus.Registry) (*metrics, error) {
	m := &metrics{
		probeSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prefix + "probe_success",
			Help: "Result of the last probe of a host over a protocol (1: reachable, 0: unreachable)",
		}, []string{"host", "protocol"}),
		hostsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "hosts_total",
			Help: "Number of distinct hosts in the last run",
		}),
		probesTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "probes_total",
			Help: "Number of (host, protocol) pairs in the last run",
		}),
		probesSucceeded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "probes_succeeded",
			Help: "Number of reachable pairs in the last run",
		}),
		probesFailed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "probes_failed",
			Help: "Number of unreachable pairs in the last run",
		}),
		probesUnsupported: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "probes_unsupported",
			Help: "Number of pairs whose protocol has no probe driver in the last run",
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "run_duration_seconds",
			Help: "Wall time of the last run",
		}),
		lastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
	}

	err := register(reg,
		m.probeSuccess,
		m.hostsTotal,
		m.probesTotal,
		m.probesSucceeded,
		m.probesFailed,
		m.probesUnsupported,
		m.runDuration,
		m.lastRunTimestamp,
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func register(r *prometheus.Registry, cs ...prometheus.Collector) error {
	for i, c := range cs {
		if err := r.Register(c); err != nil {
			for _, c := range cs[:i] {
				r.Unregister(c)
			}

			return err
		}
	}

	return nil
}
