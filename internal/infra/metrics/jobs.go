package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(schedulerJobsFiredTotal, schedulerJobsDueGauge) }

var schedulerJobsFiredTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "scheduler_jobs_fired_total",
		Help: "Total number of scheduler jobs dispatched, labeled by handler and outcome.",
	},
	[]string{"handler", "outcome"}, // handler: DEACTIVATE|NOTIFY, outcome: success|failed
)

var schedulerJobsDueGauge = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "scheduler_jobs_due",
		Help: "Number of unlocked jobs found due in the most recent sweep.",
	},
)

func IncJobFired(handler, outcome string) {
	schedulerJobsFiredTotal.WithLabelValues(norm(handler), strings.ToLower(outcome)).Inc()
}

func SetJobsDue(n int) {
	schedulerJobsDueGauge.Set(float64(n))
}
