// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "toyrotator"

// AI outcome labels.
const (
	OutcomeParsed   = "parsed"
	OutcomeFallback = "fallback"
)

var (
	// Registry is a private registry so tests can build several apps in one process.
	Registry = prometheus.NewRegistry()

	CallableRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "callable_requests_total",
		Help:      "Callable function invocations by function and result code.",
	}, []string{"function", "code"})

	CallableDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "callable_duration_seconds",
		Help:      "Callable function latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"function"})

	AIOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ai_outcomes_total",
		Help:      "AI feature results by feature and outcome (parsed or fallback).",
	}, []string{"feature", "outcome"})

	AIUsageRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ai_usage_rejected_total",
		Help:      "AI requests rejected because the usage limit was reached.",
	}, []string{"feature"})

	JobRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "job_runs_total",
		Help:      "Background job sweeps by job and result.",
	}, []string{"job", "result"})

	PushSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "push_messages_total",
		Help:      "Push messages by result (success, failure, pruned).",
	}, []string{"result"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		CallableRequests,
		CallableDuration,
		AIOutcomes,
		AIUsageRejected,
		JobRuns,
		PushSent,
	)
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
