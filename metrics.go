package ddns

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics registered on the default registry.
var (
	passesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ddns_passes_total",
		Help: "Total number of reconciliation passes by result.",
	}, []string{"result"})

	passDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ddns_pass_duration_seconds",
		Help:    "Duration of reconciliation passes in seconds.",
		Buckets: prometheus.DefBuckets,
	})

	recordOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ddns_record_outcomes_total",
		Help: "Total number of per-record reconciliation outcomes.",
	}, []string{"outcome"})

	scheduleOverrunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ddns_schedule_overruns_total",
		Help: "Total number of passes that took longer than the schedule interval.",
	})
)

func observePass(r Report) {
	passDuration.Observe(r.Elapsed.Seconds())
	if r.OK() {
		passesTotal.WithLabelValues("success").Inc()
	} else {
		passesTotal.WithLabelValues("failure").Inc()
	}
	for _, o := range r.Outcomes {
		recordOutcomesTotal.WithLabelValues(o.Action.String()).Inc()
	}
}
