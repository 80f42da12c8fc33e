package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(jobsSubmittedTotal, jobsFinishedTotal, jobItemsTotal)
}

var jobsSubmittedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lookup_jobs_submitted_total",
		Help: "Total batch jobs accepted at submission, labeled by kind.",
	},
	[]string{"kind"},
)

var jobsFinishedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lookup_jobs_finished_total",
		Help: "Total batch jobs that reached a terminal status, labeled by kind and status.",
	},
	[]string{"kind", "status"}, // 'completed', 'failed'
)

var jobItemsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lookup_job_items_total",
		Help: "Total processed items, labeled by kind and outcome.",
	},
	[]string{"kind", "outcome"},
)

func IncJobSubmitted(kind string) {
	jobsSubmittedTotal.WithLabelValues(norm(kind)).Inc()
}

func IncJobFinished(kind, status string) {
	jobsFinishedTotal.WithLabelValues(norm(kind), norm(status)).Inc()
}

func IncJobItem(kind, outcome string) {
	jobItemsTotal.WithLabelValues(norm(kind), norm(outcome)).Inc()
}
