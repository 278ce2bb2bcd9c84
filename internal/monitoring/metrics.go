// Package monitoring exposes the prometheus collectors scraped at /metrics
// and a lightweight snapshot monitor behind the status surface.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors for the orchestration pipeline. All record
// methods are nil-safe so callers can run unmetered.
type Metrics struct {
	registry *prometheus.Registry

	queries       *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	routing       *prometheus.CounterVec
	handoffLength prometheus.Histogram
	queueDepth    *prometheus.GaugeVec
	analysisCalls *prometheus.CounterVec
	insights      *prometheus.CounterVec
}

// NewMetrics builds and registers the collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "foreman_queries_total",
				Help: "Queries processed, by agent and outcome",
			},
			[]string{"agent", "status"},
		),

		queryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "foreman_query_duration_seconds",
				Help:    "Time spent resolving one query",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"agent"},
		),

		routing: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "foreman_routing_decisions_total",
				Help: "Routing decisions, by primary agent and ambiguity",
			},
			[]string{"agent", "ambiguous"},
		),

		handoffLength: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "foreman_handoff_chain_length",
				Help:    "Agents visited per handoff chain",
				Buckets: prometheus.LinearBuckets(1, 1, 5),
			},
		),

		queueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "foreman_queue_depth",
				Help: "Messages waiting in each agent queue",
			},
			[]string{"agent"},
		),

		analysisCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "foreman_analysis_calls_total",
				Help: "Analysis operations executed, by operation name",
			},
			[]string{"operation"},
		),

		insights: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "foreman_insights_total",
				Help: "Insights extracted from shared documents, by agent",
			},
			[]string{"agent"},
		),
	}

	m.registry.MustRegister(
		m.queries, m.queryDuration, m.routing,
		m.handoffLength, m.queueDepth, m.analysisCalls, m.insights,
	)
	return m
}

// Registry returns the registry for the scrape handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveQuery records one processed query and its duration.
func (m *Metrics) ObserveQuery(agent string, failed bool, d time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if failed {
		status = "error"
	}
	m.queries.WithLabelValues(agent, status).Inc()
	m.queryDuration.WithLabelValues(agent).Observe(d.Seconds())
}

// RecordRouting records one routing decision.
func (m *Metrics) RecordRouting(agent string, ambiguous bool) {
	if m == nil {
		return
	}
	flag := "false"
	if ambiguous {
		flag = "true"
	}
	m.routing.WithLabelValues(agent, flag).Inc()
}

// ObserveHandoff records the length of a completed handoff chain.
func (m *Metrics) ObserveHandoff(chainLength int) {
	if m == nil {
		return
	}
	m.handoffLength.Observe(float64(chainLength))
}

// SetQueueDepth records the current depth of one agent queue.
func (m *Metrics) SetQueueDepth(agent string, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(agent).Set(float64(depth))
}

// RecordAnalysisCall records one executed analysis operation.
func (m *Metrics) RecordAnalysisCall(operation string) {
	if m == nil {
		return
	}
	m.analysisCalls.WithLabelValues(operation).Inc()
}

// RecordInsights records insights extracted by one agent.
func (m *Metrics) RecordInsights(agent string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.insights.WithLabelValues(agent).Add(float64(n))
}
