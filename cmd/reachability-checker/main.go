package main

import (
	"errors"
	"io"
	"os"

	"github.com/alecthomas/kong"
)

const (
	exitUnreachable = 2
)

type CLI struct {
	Probe    Probe  `embed:"" prefix:"probe."`
	ICMP     ICMP   `embed:"" prefix:"icmp."`
	HTTP     HTTP   `embed:"" prefix:"http."`
	MDNS     MDNS   `embed:"" prefix:"mdns."`
	LogLevel string `name:"log.level" env:"LOG_LEVEL" default:"info" help:"Log level (debug, info, warn, error)"`

	Check Check `cmd:"" default:"withargs" help:"Probe the given hosts once and print one line per host and protocol."`
	Serve Serve `cmd:"" help:"Serve on-demand probes over HTTP (GET /probe?host=...&protocol=...)."`
}

func main() {
	var cli CLI

	kctx := kong.Parse(&cli,
		kong.Name("reachability-checker"),
		kong.Description("Check whether hosts respond over ICMP echo, HTTP and mDNS."),
		kong.UsageOnError(),
	)

	kctx.BindTo(os.Stdout, (*io.Writer)(nil))

	err := kctx.Run(&cli)
	if errors.Is(err, errUnreachable) {
		os.Exit(exitUnreachable)
	}

	kctx.FatalIfErrorf(err)
}
