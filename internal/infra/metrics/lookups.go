package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(lookupLatencyMs, lookupRetriesTotal)
}

var lookupLatencyMs = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "lookup_call_latency_ms",
		Help:    "External lookup call latency distribution in milliseconds.",
		Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
	},
	[]string{"kind", "outcome"},
)

var lookupRetriesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lookup_call_retries_total",
		Help: "Retries against the external lookup provider, labeled by reason.",
	},
	[]string{"kind", "reason"}, // 'timeout', 'connection', 'rate_limit', 'server'
)

func ObserveLookup(kind, outcome string, latencyMs int) {
	lookupLatencyMs.WithLabelValues(norm(kind), norm(outcome)).Observe(float64(latencyMs))
}

func IncLookupRetry(kind, reason string) {
	lookupRetriesTotal.WithLabelValues(norm(kind), norm(reason)).Inc()
}
