package main

import (
	"context"
	"time"

	"github.com/WessleyAI/edgerag-helpdesk/engine/domain"
	"github.com/WessleyAI/edgerag-helpdesk/engine/ingest"
	"github.com/WessleyAI/edgerag-helpdesk/engine/rag"
	"github.com/WessleyAI/edgerag-helpdesk/pkg/metrics"
	"github.com/WessleyAI/edgerag-helpdesk/pkg/resilience"
)

// apiMetrics names every metric the server exports.
type apiMetrics struct {
	reg *metrics.Registry
}

func newAPIMetrics() *apiMetrics {
	return &apiMetrics{reg: metrics.New()}
}

func (m *apiMetrics) requests(route string) *metrics.Counter {
	return m.reg.Counter(metrics.WithLabels("edgerag_requests_total", "route", route), "Pipeline requests by route")
}

func (m *apiMetrics) failures(stage string) *metrics.Counter {
	return m.reg.Counter(metrics.WithLabels("edgerag_errors_total", "stage", stage), "Failed pipeline requests by stage")
}

func (m *apiMetrics) duration(route string) *metrics.Histogram {
	return m.reg.Histogram(metrics.WithLabels("edgerag_pipeline_duration_seconds", "route", route), "Pipeline latency", nil)
}

func (m *apiMetrics) chunks() *metrics.Counter {
	return m.reg.Counter("edgerag_chunks_indexed_total", "Chunks upserted into the vector index")
}

func (m *apiMetrics) fallbacks() *metrics.Counter {
	return m.reg.Counter("edgerag_answer_fallbacks_total", "Answers returned as raw model text")
}

// breakerChanged records breaker transitions as a gauge (0 closed, 1 open, 2 half-open).
func (m *apiMetrics) breakerChanged(name string, _, to resilience.State) {
	m.reg.Gauge(metrics.WithLabels("edgerag_breaker_state", "name", name), "Circuit breaker state").Set(int64(to))
}

// errorStage classifies a failed request for edgerag_errors_total.
func errorStage(route string, err error) string {
	if domain.IsValidation(err) {
		return route + "_validation"
	}
	return route
}

// meteredIngester records ingestion metrics for HTTP and NATS callers alike.
type meteredIngester struct {
	next  ingest.Ingester
	m     *apiMetrics
	route string
}

func (mi *meteredIngester) Ingest(ctx context.Context, docs []domain.Document) (*ingest.Result, error) {
	start := time.Now()
	mi.m.requests(mi.route).Inc()
	res, err := mi.next.Ingest(ctx, docs)
	mi.m.duration(mi.route).Since(start)
	if err != nil {
		mi.m.failures(errorStage(mi.route, err)).Inc()
		return nil, err
	}
	mi.m.chunks().Add(int64(res.Mutation.Count))
	return res, nil
}

// meteredAsker records chat metrics.
type meteredAsker struct {
	next Asker
	m    *apiMetrics
}

func (ma *meteredAsker) Ask(ctx context.Context, q rag.Question) (*rag.Answer, error) {
	start := time.Now()
	ma.m.requests("chat").Inc()
	ans, err := ma.next.Ask(ctx, q)
	ma.m.duration("chat").Since(start)
	if err != nil {
		ma.m.failures(errorStage("chat", err)).Inc()
		return nil, err
	}
	if ans.Structured == nil {
		ma.m.fallbacks().Inc()
	}
	return ans, nil
}
