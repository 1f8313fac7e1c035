package prom

import (
	"github.com/prometheus/client_golang/prometheus"

	chqcal "github.com/bbernstein/chq-calendar"
)

var (
	syncRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chqcal_sync_runs_total",
			Help: "Total number of sync runs by outcome.",
		},
		[]string{"outcome"},
	)

	syncEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chqcal_sync_events_total",
			Help: "Total number of events touched by sync runs, by action.",
		},
		[]string{"action"},
	)

	syncPages = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chqcal_sync_pages_total",
			Help: "Total number of feed pages fetched by sync runs.",
		},
	)

	syncDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chqcal_sync_duration_seconds",
			Help:    "A histogram of sync run durations.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)
)

func init() {
	promRegister(syncRuns)
	promRegister(syncEvents)
	promRegister(syncPages)
	promRegister(syncDuration)
}

// RecordSyncPage tracks one fetched feed page.
func RecordSyncPage() {
	syncPages.Inc()
}

// RecordSyncRun tracks one finished sync run.
func RecordSyncRun(result chqcal.SyncResult) {
	outcome := "success"
	if !result.Success {
		outcome = "failure"
	}
	syncRuns.WithLabelValues(outcome).Inc()

	syncEvents.WithLabelValues("processed").Add(float64(result.EventsProcessed))
	syncEvents.WithLabelValues("created").Add(float64(result.EventsCreated))
	syncEvents.WithLabelValues("updated").Add(float64(result.EventsUpdated))
	syncEvents.WithLabelValues("deleted").Add(float64(result.EventsDeleted))

	syncDuration.Observe(result.Duration.Seconds())
}
