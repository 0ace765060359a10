package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/khmm12/reachability-checker/internal/dispatch"
	portsm "github.com/khmm12/reachability-checker/internal/ports/mocks"
	"github.com/khmm12/reachability-checker/internal/report"
	"github.com/khmm12/reachability-checker/internal/usecase"
)

func TestCLI_ParsesCheckWithDefaults(t *testing.T) {
	cli, kctx := parse(t, "-p", "icmp", "--protocol", "HTTP,ftp", "a.example", "b.example")

	require.Equal(t, "check", kctx.Selected().Name)
	require.Equal(t, []string{"icmp", "HTTP", "ftp"}, cli.Check.Protocols)
	require.Equal(t, []string{"a.example", "b.example"}, cli.Check.Hosts)
	require.Equal(t, 20, cli.Probe.Concurrency)
	require.Equal(t, 4*time.Second, cli.ICMP.Timeout)
	require.Equal(t, 10*time.Second, cli.HTTP.Timeout)
	require.Equal(t, "none", cli.Check.Dump)
	require.False(t, cli.MDNS.Enabled)
}

func TestCLI_ParsesServe(t *testing.T) {
	cli, kctx := parse(t, "serve", "--addr", "127.0.0.1:9115", "--icmp.timeout", "1s")

	require.Equal(t, "serve", kctx.Selected().Name)
	require.Equal(t, "127.0.0.1:9115", cli.Serve.Addr)
	require.Equal(t, time.Second, cli.ICMP.Timeout)
}

func TestCLI_RejectsInvalidFlags(t *testing.T) {
	for _, args := range [][]string{
		{"--probe.concurrency", "0", "a"},
		{"--probe.timeout", "0s", "a"},
		{"--probe.rate=-1", "a"},
		{"--icmp.ttl", "0", "a"},
		{"--icmp.size", "9000", "a"},
		{"--http.timeout", "0s", "a"},
		{"--log.level", "fatal", "a"},
		{"--metrics.push-url", "gateway:9091", "a"},
		{"--mdns.enabled", "--mdns.ipv4.addr", "printer.local:5353", "a"},
		{"--mdns.enabled", "--mdns.ipv4=false", "--mdns.ipv6=false", "a"},
		{"serve", "--addr", "localhost"},
	} {
		var cli CLI

		parser, err := kong.New(&cli, kong.Exit(func(int) {}))
		require.NoError(t, err)

		_, err = parser.Parse(args)
		require.Error(t, err, args)
	}
}

func TestCheck_RunPrintsReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	host := srv.Listener.Addr().String()
	textfile := filepath.Join(t.TempDir(), "reachability.prom")

	cli, _ := parse(t, "--log.level", "error", "--metrics.textfile", textfile, "-p", "http", "-p", "ftp", host)

	var out bytes.Buffer

	err := cli.Check.Run(cli, &out)
	require.ErrorIs(t, err, errUnreachable)

	require.Equal(t, ""+
		host+" http = yes\n"+
		host+" ftp = unsupported\n",
		out.String())

	metrics, err := os.ReadFile(textfile)
	require.NoError(t, err)
	require.Contains(t, string(metrics), "reachability_probes_succeeded 1")
}

func TestCheck_RunSucceedsWhenEverythingResponds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	host := srv.Listener.Addr().String()

	cli, _ := parse(t, "--log.level", "error", "--dump", "json", "-p", "http", host)

	var out bytes.Buffer

	require.NoError(t, cli.Check.Run(cli, &out))
	require.Contains(t, out.String(), host+" http = yes\n")
	require.Contains(t, out.String(), `"succeeded": 1`)
}

func TestCheck_RunWithoutHostsPrintsNothing(t *testing.T) {
	cli, _ := parse(t, "--log.level", "error", "-p", "icmp")

	var out bytes.Buffer

	require.NoError(t, cli.Check.Run(cli, &out))
	require.Empty(t, out.String())
}

func TestNewUseCase_AppliesPerProtocolTimeouts(t *testing.T) {
	cli, _ := parse(t, "--mdns.timeout", "1s", "--icmp.timeout", "2s", "--http.timeout", "3s", "--probe.timeout", "7s", "a")

	drivers := map[string]time.Duration{
		"icmp": 2 * time.Second,
		"http": 3 * time.Second,
		"mdns": time.Second,
		"echo": 7 * time.Second,
	}

	for name, want := range drivers {
		drv := portsm.NewMockProbeDriver(t)
		drv.On("Name").Return(name).Maybe()
		drv.On("Probe", mock.Anything, "a", want).Return(report.Success()).Once()

		dispatcher, err := dispatch.New(drv)
		require.NoError(t, err)

		uc := newUseCase(slog.New(slog.NewTextHandler(io.Discard, nil)), cli, dispatcher, nil)

		rep, err := uc.Execute(context.Background(), usecase.CheckReachabilityCommand{
			Hosts:     []string{"a"},
			Protocols: []string{name},
		})
		require.NoError(t, err)

		o, ok := rep.Get("a", name)
		require.True(t, ok, name)
		require.Equal(t, report.Success(), o, name)
	}
}

func parse(t *testing.T, args ...string) (*CLI, *kong.Context) {
	t.Helper()

	var cli CLI

	parser, err := kong.New(&cli, kong.Exit(func(int) { t.Fatal("unexpected exit") }))
	require.NoError(t, err)

	kctx, err := parser.Parse(args)
	require.NoError(t, err)

	return &cli, kctx
}
