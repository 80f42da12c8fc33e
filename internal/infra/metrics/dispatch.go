package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(dispatchTotal, recoveryTotal)
}

var dispatchTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lookup_dispatch_total",
		Help: "Dispatch attempts, labeled by path ('queue', 'fallback').",
	},
	[]string{"path"},
)

var recoveryTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lookup_recovery_total",
		Help: "Stuck jobs handled by the recovery sweep, labeled by action ('reset', 'stalled').",
	},
	[]string{"action"},
)

func IncDispatch(path string) {
	dispatchTotal.WithLabelValues(norm(path)).Inc()
}

func IncRecovery(action string) {
	recoveryTotal.WithLabelValues(norm(action)).Inc()
}
