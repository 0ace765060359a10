package icmp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/net/icmp"

	"github.com/khmm12/reachability-checker/internal/common/logging"
	"github.com/khmm12/reachability-checker/internal/report"
)

const (
	Name = "icmp"

	DefaultTimeout = 4 * time.Second
	DefaultTTL     = 64
	DefaultSize    = 56

	maxPacketSize     = 1500
	ipv6HeaderAndEcho = 40 + 8
)

var ErrInvalidHost = errors.New(report.ReasonInvalidHost)

type Config struct {
	// Privileged uses raw sockets instead of datagram ping sockets.
	Privileged bool
	// Network restricts address resolution: "ip" (IPv4 preferred), "ip4" or "ip6".
	Network string
	// TTL sets the IPv4 TTL or the IPv6 hop limit. Zero keeps the system default.
	TTL int
	// Size is the echo payload size in bytes.
	Size int
	// Resolver is used for host lookups; net.DefaultResolver when nil.
	Resolver *net.Resolver
}

// Driver sends a single ICMP echo request per probe and waits for the reply.
type Driver struct {
	logger *slog.Logger
	cfg    Config
	id     int
	seq    atomic.Uint32
}

func New(logger *slog.Logger, cfg Config) (*Driver, error) {
	switch cfg.Network {
	case "":
		cfg.Network = "ip"
	case "ip", "ip4", "ip6":
	default:
		return nil, fmt.Errorf("icmp: unsupported network %q", cfg.Network)
	}

	if cfg.Size < 0 || cfg.Size > maxPacketSize-ipv6HeaderAndEcho {
		return nil, fmt.Errorf("icmp: payload size must be between 0 and %d", maxPacketSize-ipv6HeaderAndEcho)
	}

	if cfg.TTL < 0 || cfg.TTL > 255 {
		return nil, fmt.Errorf("icmp: ttl must be between 0 and 255")
	}

	if cfg.Resolver == nil {
		cfg.Resolver = net.DefaultResolver
	}

	return &Driver{
		logger: logger,
		cfg:    cfg,
		id:     os.Getpid() & 0xffff,
	}, nil
}

func (d *Driver) Name() string {
	return Name
}

func (d *Driver) Probe(ctx context.Context, host string, timeout time.Duration) report.Outcome {
	if strings.TrimSpace(host) == "" {
		return report.Failure(ErrInvalidHost.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	now := time.Now()

	dst, err := d.resolve(ctx, host)
	if err != nil {
		d.logger.DebugContext(ctx, "Failed to resolve host", logging.Error(err))
		return report.Failure(err.Error())
	}

	ok, err := d.ping(ctx, dst)

	switch {
	case err != nil:
		d.logger.DebugContext(ctx, "Echo request failed", slog.String("addr", dst.String()), logging.Error(err))
		return report.Failure(err.Error())
	case !ok:
		d.logger.DebugContext(ctx, "No echo reply", slog.String("addr", dst.String()), slog.Duration("duration", time.Since(now)))
		return report.Failure(report.ReasonNoReply)
	default:
		d.logger.DebugContext(ctx, "Echo reply received", slog.String("addr", dst.String()), slog.Duration("rtt", time.Since(now)))
		return report.Success()
	}
}

func (d *Driver) resolve(ctx context.Context, host string) (netip.Addr, error) {
	if addr, err := netip.ParseAddr(host); err == nil {
		return addr.Unmap(), nil
	}

	addrs, err := d.cfg.Resolver.LookupNetIP(ctx, d.cfg.Network, host)
	if err != nil {
		return netip.Addr{}, err
	}

	var v6 netip.Addr

	for _, addr := range addrs {
		addr = addr.Unmap()
		if addr.Is4() {
			return addr, nil
		}

		if !v6.IsValid() {
			v6 = addr
		}
	}

	if !v6.IsValid() {
		return netip.Addr{}, fmt.Errorf("lookup %s: no usable address", host)
	}

	return v6, nil
}

// ping reports whether dst answered the echo request. A false result with a
// nil error means no reply arrived in time or an ICMP error was returned.
func (d *Driver) ping(ctx context.Context, dst netip.Addr) (bool, error) {
	fam := familyOf(dst)

	conn, err := listen(fam, d.cfg.Privileged, d.cfg.TTL)
	if err != nil {
		return false, err
	}

	defer func() { _ = conn.Close() }()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetReadDeadline(deadline); err != nil {
			return false, fmt.Errorf("failed to set read deadline: %w", err)
		}
	}

	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	req := echoRequest{
		dst:     dst,
		id:      d.id,
		seq:     int(d.seq.Add(1) & 0xffff),
		matchID: d.cfg.Privileged,
	}

	msg := icmp.Message{
		Type: fam.echo,
		Code: 0,
		Body: &icmp.Echo{
			ID:   req.id,
			Seq:  req.seq,
			Data: payload(d.cfg.Size),
		},
	}

	b, err := msg.Marshal(nil)
	if err != nil {
		return false, fmt.Errorf("failed to marshal echo request: %w", err)
	}

	if _, err := conn.WriteTo(b, destination(dst, d.cfg.Privileged)); err != nil {
		return false, fmt.Errorf("failed to send echo request: %w", err)
	}

	buf := make([]byte, maxPacketSize)

	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) || ctx.Err() != nil {
				return false, nil
			}

			return false, fmt.Errorf("failed to read echo reply: %w", err)
		}

		peer, ok := peerAddr(from)
		if !ok {
			continue
		}

		reply, err := icmp.ParseMessage(fam.proto, buf[:n])
		if err != nil {
			continue
		}

		switch classify(fam, reply, peer, req) {
		case verdictReply:
			return true, nil
		case verdictError:
			d.logger.DebugContext(ctx, "Echo request answered with an error", slog.Any("type", reply.Type), slog.Int("code", reply.Code))
			return false, nil
		case verdictIgnore:
		}
	}
}

func payload(size int) []byte {
	b := make([]byte, size)
	for i := range b {
		b[i] = byte('a' + i%26)
	}

	return b
}
