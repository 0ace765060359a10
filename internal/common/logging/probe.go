package logging

import (
	"context"
	"log/slog"
)

type probeCtxKey struct{}

type probeAttrs struct {
	host     string
	protocol string
}

// WithProbe tags ctx with the pair being probed; records logged with the
// returned context carry a "probe" group.
func WithProbe(ctx context.Context, host, protocol string) context.Context {
	return context.WithValue(ctx, probeCtxKey{}, probeAttrs{host: host, protocol: protocol})
}

func probeAttr(ctx context.Context) (slog.Attr, bool) {
	p, ok := ctx.Value(probeCtxKey{}).(probeAttrs)
	if !ok {
		return slog.Attr{}, false
	}

	return slog.Group("probe",
		slog.String("host", p.host),
		slog.String("protocol", p.protocol),
	), true
}
