package services

import "github.com/prometheus/client_golang/prometheus"

// Journal domain counters. They are exported on /metrics by the server and
// accumulate in-process for the terminal client.
var (
	entriesSaved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "journal_entries_saved_total",
			Help: "Entry saves by result.",
		},
		[]string{"result"},
	)
	entriesDeleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "journal_entries_deleted_total",
			Help: "Entry deletions by result.",
		},
		[]string{"result"},
	)
	reflections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "journal_reflections_total",
			Help: "Reflection requests by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(entriesSaved, entriesDeleted, reflections)
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
