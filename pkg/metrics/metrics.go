// Package metrics is a small registry of counters, gauges and histograms
// rendered in the Prometheus text exposition format.
package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultBuckets are latency buckets in seconds.
var DefaultBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// Counter is a monotonically increasing counter.
type Counter struct{ val atomic.Int64 }

func (c *Counter) Inc()         { c.val.Add(1) }
func (c *Counter) Add(n int64)  { c.val.Add(n) }
func (c *Counter) Value() int64 { return c.val.Load() }

// Gauge holds a value that can go up and down.
type Gauge struct{ val atomic.Int64 }

func (g *Gauge) Set(n int64)  { g.val.Store(n) }
func (g *Gauge) Value() int64 { return g.val.Load() }

// Histogram counts observations into cumulative buckets.
type Histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

// Observe records v.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sum += v
	h.count++
	for i, b := range h.buckets {
		if v <= b {
			h.counts[i]++
		}
	}
}

// Since observes the seconds elapsed since t.
func (h *Histogram) Since(t time.Time) { h.Observe(time.Since(t).Seconds()) }

type family struct {
	kind   string
	help   string
	series map[string]any // full name with labels -> *Counter, *Gauge or *Histogram
}

// Registry holds metric families by base name.
type Registry struct {
	mu       sync.Mutex
	families map[string]*family
	order    []string
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{families: make(map[string]*family)}
}

func (r *Registry) get(name, kind, help string, create func() any) any {
	r.mu.Lock()
	defer r.mu.Unlock()

	base := baseName(name)
	f, ok := r.families[base]
	if !ok {
		f = &family{kind: kind, help: help, series: make(map[string]any)}
		r.families[base] = f
		r.order = append(r.order, base)
	}
	if f.help == "" {
		f.help = help
	}
	m, ok := f.series[name]
	if !ok {
		m = create()
		f.series[name] = m
	}
	return m
}

// Counter returns the counter called name, creating it on first use. name may
// carry labels, see WithLabels.
func (r *Registry) Counter(name, help string) *Counter {
	return r.get(name, "counter", help, func() any { return &Counter{} }).(*Counter)
}

// Gauge returns the gauge called name, creating it on first use.
func (r *Registry) Gauge(name, help string) *Gauge {
	return r.get(name, "gauge", help, func() any { return &Gauge{} }).(*Gauge)
}

// Histogram returns the histogram called name. A nil buckets uses DefaultBuckets.
func (r *Registry) Histogram(name, help string, buckets []float64) *Histogram {
	if buckets == nil {
		buckets = DefaultBuckets
	}
	return r.get(name, "histogram", help, func() any {
		b := append([]float64(nil), buckets...)
		sort.Float64s(b)
		return &Histogram{buckets: b, counts: make([]uint64, len(b))}
	}).(*Histogram)
}

// WithLabels appends label pairs to name: WithLabels("x", "k", "v") is x{k="v"}.
func WithLabels(name string, kvs ...string) string {
	if len(kvs) == 0 || len(kvs)%2 != 0 {
		return name
	}
	pairs := make([]string, 0, len(kvs)/2)
	for i := 0; i < len(kvs); i += 2 {
		pairs = append(pairs, fmt.Sprintf("%s=%q", kvs[i], kvs[i+1]))
	}
	return name + "{" + strings.Join(pairs, ",") + "}"
}

func baseName(name string) string {
	if i := strings.IndexByte(name, '{'); i >= 0 {
		return name[:i]
	}
	return name
}

// labels returns the inner label list of name, without braces.
func labels(name string) string {
	i := strings.IndexByte(name, '{')
	if i < 0 {
		return ""
	}
	return name[i+1 : len(name)-1]
}

// Render returns every metric in the Prometheus text format.
func (r *Registry) Render() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	for _, base := range r.order {
		f := r.families[base]
		if f.help != "" {
			fmt.Fprintf(&b, "# HELP %s %s\n", base, f.help)
		}
		fmt.Fprintf(&b, "# TYPE %s %s\n", base, f.kind)

		names := make([]string, 0, len(f.series))
		for n := range f.series {
			names = append(names, n)
		}
		sort.Strings(names)

		for _, n := range names {
			switch m := f.series[n].(type) {
			case *Counter:
				fmt.Fprintf(&b, "%s %d\n", n, m.Value())
			case *Gauge:
				fmt.Fprintf(&b, "%s %d\n", n, m.Value())
			case *Histogram:
				renderHistogram(&b, base, labels(n), m)
			}
		}
	}
	return b.String()
}

func renderHistogram(b *strings.Builder, base, lbl string, h *Histogram) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sep, wrapped := "", ""
	if lbl != "" {
		sep, wrapped = ",", "{"+lbl+"}"
	}
	for i, bound := range h.buckets {
		fmt.Fprintf(b, "%s_bucket{%s%sle=\"%g\"} %d\n", base, lbl, sep, bound, h.counts[i])
	}
	fmt.Fprintf(b, "%s_bucket{%s%sle=\"+Inf\"} %d\n", base, lbl, sep, h.count)
	fmt.Fprintf(b, "%s_sum%s %g\n", base, wrapped, h.sum)
	fmt.Fprintf(b, "%s_count%s %d\n", base, wrapped, h.count)
}

// Handler serves Render output.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		w.Write([]byte(r.Render()))
	})
}
