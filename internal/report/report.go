package report

import (
	"errors"
	"sync"
	"time"
)

var ErrSealed = errors.New("report is sealed")

// Report holds one outcome per (host, protocol) pair of a single run.
//
// Hosts and protocols keep the order of their first appearance in the run
// input, so that Entries can be rendered in the caller's order regardless of
// the order in which probes complete. Set is safe for concurrent use.
type Report struct {
	mu sync.RWMutex

	hosts     []string
	protocols []string
	outcomes  map[string]map[string]Outcome

	startedAt  time.Time
	finishedAt time.Time
	sealed     bool
}

// Entry is a single flattened (host, protocol, outcome) triple.
type Entry struct {
	Host     string  `json:"host" yaml:"host"`
	Protocol string  `json:"protocol" yaml:"protocol"`
	Outcome  Outcome `json:"outcome" yaml:"outcome"`
}

type Summary struct {
	Hosts       int `json:"hosts" yaml:"hosts"`
	Total       int `json:"total" yaml:"total"`
	Succeeded   int `json:"succeeded" yaml:"succeeded"`
	Failed      int `json:"failed" yaml:"failed"`
	Unsupported int `json:"unsupported" yaml:"unsupported"`
}

func New(hosts, protocols []string) *Report {
	return &Report{
		hosts:     dedup(hosts),
		protocols: dedup(protocols),
		outcomes:  make(map[string]map[string]Outcome, len(hosts)),
		startedAt: time.Now(),
	}
}

// Set records the outcome for a pair, replacing any previous one.
func (r *Report) Set(host, protocol string, outcome Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return ErrSealed
	}

	byProto, ok := r.outcomes[host]
	if !ok {
		byProto = make(map[string]Outcome, len(r.protocols))
		r.outcomes[host] = byProto
	}

	byProto[protocol] = outcome

	return nil
}

// Seal marks the run as finished. Any later Set fails with ErrSealed.
func (r *Report) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return
	}

	r.sealed = true
	r.finishedAt = time.Now()
}

func (r *Report) Get(host, protocol string) (Outcome, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.outcomes[host][protocol]

	return o, ok
}

func (r *Report) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, byProto := range r.outcomes {
		n += len(byProto)
	}

	return n
}

func (r *Report) Hosts() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.hosts...)
}

func (r *Report) Duration() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.finishedAt.IsZero() {
		return time.Since(r.startedAt)
	}

	return r.finishedAt.Sub(r.startedAt)
}

// Entries returns the recorded outcomes as a flat list ordered by host, then
// protocol, in the order they were supplied to the run.
func (r *Report) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]Entry, 0, len(r.hosts)*len(r.protocols))

	for _, host := range r.hosts {
		byProto := r.outcomes[host]
		for _, protocol := range r.protocols {
			o, ok := byProto[protocol]
			if !ok {
				continue
			}

			entries = append(entries, Entry{Host: host, Protocol: protocol, Outcome: o})
		}
	}

	return entries
}

// Tree returns a copy of the nested host -> protocol -> outcome mapping.
func (r *Report) Tree() map[string]map[string]Outcome {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tree := make(map[string]map[string]Outcome, len(r.outcomes))

	for host, byProto := range r.outcomes {
		cp := make(map[string]Outcome, len(byProto))
		for protocol, o := range byProto {
			cp[protocol] = o
		}

		tree[host] = cp
	}

	return tree
}

func (r *Report) Summary() Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Summary{Hosts: len(r.outcomes)}

	for _, byProto := range r.outcomes {
		for _, o := range byProto {
			s.Total++

			switch o.Status {
			case StatusSuccess:
				s.Succeeded++
			case StatusFailure:
				s.Failed++
			case StatusUnsupported:
				s.Unsupported++
			}
		}
	}

	return s
}

// AllSucceeded reports whether the report is non-empty and every pair succeeded.
func (r *Report) AllSucceeded() bool {
	s := r.Summary()

	return s.Total > 0 && s.Succeeded == s.Total
}

func dedup(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))

	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}

		seen[v] = struct{}{}
		out = append(out, v)
	}

	return out
}
