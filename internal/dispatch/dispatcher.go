package dispatch

import (
	"fmt"
	"strings"

	"github.com/khmm12/reachability-checker/internal/ports"
)

// Dispatcher maps free-form protocol names to probe drivers.
//
// A protocol matches a driver when the driver's keyword occurs anywhere in it,
// ignoring case. Drivers are tried in registration order and the first
// match wins, so "icmp-over-http" resolves to icmp when icmp is registered
// first.
type Dispatcher struct {
	drivers  []ports.ProbeDriver
	keywords []string
}

func New(drivers ...ports.ProbeDriver) (*Dispatcher, error) {
	d := &Dispatcher{
		drivers:  make([]ports.ProbeDriver, 0, len(drivers)),
		keywords: make([]string, 0, len(drivers)),
	}

	seen := make(map[string]struct{}, len(drivers))

	for _, drv := range drivers {
		kw := strings.ToLower(strings.TrimSpace(drv.Name()))
		if kw == "" {
			return nil, fmt.Errorf("dispatch: driver %T has an empty name", drv)
		}

		if _, ok := seen[kw]; ok {
			return nil, fmt.Errorf("dispatch: duplicate driver for protocol %q", kw)
		}

		seen[kw] = struct{}{}

		d.drivers = append(d.drivers, drv)
		d.keywords = append(d.keywords, kw)
	}

	return d, nil
}

func (d *Dispatcher) Resolve(protocol string) (ports.ProbeDriver, bool) {
	protocol = strings.ToLower(protocol)

	for i, kw := range d.keywords {
		if strings.Contains(protocol, kw) {
			return d.drivers[i], true
		}
	}

	return nil, false
}

// Protocols returns the registered keywords in priority order.
func (d *Dispatcher) Protocols() []string {
	return append([]string(nil), d.keywords...)
}
