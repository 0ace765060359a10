package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	httpprobe "github.com/khmm12/reachability-checker/internal/adapter/http"
	"github.com/khmm12/reachability-checker/internal/adapter/icmp"
	"github.com/khmm12/reachability-checker/internal/adapter/mdns"
	"github.com/khmm12/reachability-checker/internal/common/logging"
	"github.com/khmm12/reachability-checker/internal/dispatch"
	"github.com/khmm12/reachability-checker/internal/ports"
	"github.com/khmm12/reachability-checker/internal/usecase"
)

type Probe struct {
	Concurrency int           `name:"concurrency" env:"PROBE_CONCURRENCY" default:"20" help:"The maximum number of probes to run concurrently."`
	Timeout     time.Duration `name:"timeout" env:"PROBE_TIMEOUT" default:"5s" help:"Timeout of a single probe for protocols without a dedicated timeout."`
	Rate        float64       `name:"rate" env:"PROBE_RATE" default:"0" help:"Maximum number of probes started per second (0 disables the limit)."`
	Deadline    time.Duration `name:"deadline" env:"PROBE_DEADLINE" default:"0s" help:"Abandon a run after this duration; unfinished probes are reported as cancelled (0 disables)."`
}

type ICMP struct {
	Timeout    time.Duration `name:"timeout" env:"ICMP_TIMEOUT" default:"4s" help:"How long to wait for an echo reply."`
	Privileged bool          `name:"privileged" env:"ICMP_PRIVILEGED" default:"false" help:"Use raw sockets (requires CAP_NET_RAW) instead of unprivileged ping sockets."`
	Network    string        `name:"network" env:"ICMP_NETWORK" default:"ip" enum:"ip,ip4,ip6" help:"Address family used to resolve hosts (ip, ip4, ip6)."`
	TTL        int           `name:"ttl" env:"ICMP_TTL" default:"64" help:"IPv4 TTL / IPv6 hop limit of echo requests."`
	Size       int           `name:"size" env:"ICMP_SIZE" default:"56" help:"Echo request payload size in bytes."`
}

type HTTP struct {
	Timeout   time.Duration `name:"timeout" env:"HTTP_TIMEOUT" default:"10s" help:"Timeout of a single GET request."`
	UserAgent string        `name:"user-agent" env:"HTTP_USER_AGENT" default:"reachability-checker/1.0" help:"User-Agent header of probe requests. Requests go straight to the host; HTTP_PROXY is ignored."`
}

type MDNS struct {
	Enabled     bool          `name:"enabled" env:"MDNS_ENABLED" default:"false" help:"Register the mdns protocol (resolves .local hosts over multicast DNS)."`
	Timeout     time.Duration `name:"timeout" env:"MDNS_TIMEOUT" default:"3s" help:"How long to wait for an mDNS answer."`
	Concurrency int           `name:"concurrency" env:"MDNS_CONCURRENCY" default:"10" help:"The maximum number of mDNS queries in flight."`
	UseIPv4     bool          `name:"ipv4" env:"MDNS_USE_IPV4" default:"true" help:"Query over IPv4."`
	IPv4Addr    string        `name:"ipv4.addr" env:"MDNS_IPV4_ADDR" default:"224.0.0.0:5353" help:"IPv4 address to bind to for mDNS queries."`
	UseIPv6     bool          `name:"ipv6" env:"MDNS_USE_IPV6" default:"true" help:"Query over IPv6."`
	IPv6Addr    string        `name:"ipv6.addr" env:"MDNS_IPV6_ADDR" default:"[FF02::]:5353" help:"IPv6 address to bind to for mDNS queries."`
}

func (m *MDNS) validate() []error {
	if !m.Enabled {
		return nil
	}

	var errs []error

	if m.Timeout <= 0 {
		errs = append(errs, errors.New("--mdns.timeout: must be greater than zero"))
	}

	if m.Concurrency <= 0 {
		errs = append(errs, errors.New("--mdns.concurrency: must be greater than zero"))
	}

	if !m.UseIPv4 && !m.UseIPv6 {
		errs = append(errs, errors.New("--mdns.ipv4, --mdns.ipv6: at least one must be enabled"))
	}

	if m.UseIPv4 && !isUDP4AddrResolvable(m.IPv4Addr) {
		errs = append(errs, errors.New("--mdns.ipv4.addr: must be a valid IPv4 address (e.g. 224.0.0.0:5353)"))
	}

	if m.UseIPv6 && !isUDP6AddrResolvable(m.IPv6Addr) {
		errs = append(errs, errors.New("--mdns.ipv6.addr: must be a valid IPv6 address (e.g. [FF02::]:5353)"))
	}

	return errs
}

func (c *CLI) Validate() error {
	var errs []error

	p := &c.Probe

	if p.Concurrency <= 0 {
		errs = append(errs, errors.New("--probe.concurrency: must be greater than zero"))
	}

	if p.Timeout <= 0 {
		errs = append(errs, errors.New("--probe.timeout: must be greater than zero"))
	}

	if p.Rate < 0 {
		errs = append(errs, errors.New("--probe.rate: must not be negative"))
	}

	if p.Deadline < 0 {
		errs = append(errs, errors.New("--probe.deadline: must not be negative"))
	}

	if c.ICMP.Timeout <= 0 {
		errs = append(errs, errors.New("--icmp.timeout: must be greater than zero"))
	}

	if c.ICMP.TTL < 1 || c.ICMP.TTL > 255 {
		errs = append(errs, errors.New("--icmp.ttl: must be between 1 and 255"))
	}

	if c.ICMP.Size < 0 || c.ICMP.Size > 1452 {
		errs = append(errs, errors.New("--icmp.size: must be between 0 and 1452"))
	}

	if c.HTTP.Timeout <= 0 {
		errs = append(errs, errors.New("--http.timeout: must be greater than zero"))
	}

	errs = append(errs, c.MDNS.validate()...)

	if !isLogLevel(c.LogLevel) {
		errs = append(errs, errors.New("--log.level: must be one of debug, info, warn, error"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

func newLogger(levelStr string) (*slog.Logger, error) {
	level, err := logging.ParseLevel(levelStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}

	// stdout carries the report.
	return logging.New(os.Stderr, level), nil
}

// newDispatcher registers the probe drivers in priority order: icmp, http,
// then mdns when enabled. The returned func releases driver resources.
func newDispatcher(logger *slog.Logger, cli *CLI) (*dispatch.Dispatcher, func(), error) {
	icmpDriver, err := icmp.New(logger, icmp.Config{
		Privileged: cli.ICMP.Privileged,
		Network:    cli.ICMP.Network,
		TTL:        cli.ICMP.TTL,
		Size:       cli.ICMP.Size,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create icmp driver: %w", err)
	}

	httpDriver := httpprobe.New(logger, httpprobe.Config{
		UserAgent: cli.HTTP.UserAgent,
	})

	drivers := []ports.ProbeDriver{icmpDriver, httpDriver}
	closeFn := func() {}

	if cli.MDNS.Enabled {
		client, err := mdns.NewClient(logger, mdns.ClientConfig{
			UseIPv4:     cli.MDNS.UseIPv4,
			UseIPv6:     cli.MDNS.UseIPv6,
			IPv4Addr:    cli.MDNS.IPv4Addr,
			IPv6Addr:    cli.MDNS.IPv6Addr,
			Concurrency: cli.MDNS.Concurrency,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create mdns client: %w", err)
		}

		closeFn = func() {
			logger.Debug("Closing mdns client")
			_ = client.Close()
		}

		drivers = append(drivers, mdns.NewDriver(logger, client))
	}

	dispatcher, err := dispatch.New(drivers...)
	if err != nil {
		closeFn()
		return nil, nil, err
	}

	return dispatcher, closeFn, nil
}

func newUseCase(logger *slog.Logger, cli *CLI, resolver *dispatch.Dispatcher, publisher ports.ReportPublisher) *usecase.CheckReachabilityUseCase {
	return usecase.NewCheckReachabilityUseCase(logger, resolver, usecase.CheckReachabilityOptions{
		Concurrency:    cli.Probe.Concurrency,
		DefaultTimeout: cli.Probe.Timeout,
		Timeouts: map[string]time.Duration{
			icmp.Name:      cli.ICMP.Timeout,
			httpprobe.Name: cli.HTTP.Timeout,
			mdns.Name:      cli.MDNS.Timeout,
		},
		RateLimit: cli.Probe.Rate,
		Publisher: publisher,
	})
}
