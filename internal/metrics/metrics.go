// Package metrics exposes prometheus collectors for the irrigation engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal counts daily runs by how they ended.
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "irrigation_runs_total",
		Help: "Daily irrigation runs by result.",
	}, []string{"result"}) // completed | suppressed | failed

	// ZoneOutcomes counts per-zone terminating conditions.
	ZoneOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "irrigation_zone_outcomes_total",
		Help: "Zone outcomes by terminating condition.",
	}, []string{"zone", "reason"})

	// ZoneErrors counts zones whose session failed on an actuator error.
	ZoneErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "irrigation_zone_errors_total",
		Help: "Zones that failed with an actuator or timer error.",
	}, []string{"zone"})

	// WateringSeconds accumulates time spent with a valve open, per zone.
	WateringSeconds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "irrigation_watering_seconds_total",
		Help: "Seconds of valve-open time per zone.",
	}, []string{"zone"})

	// RunDuration observes wall time of a whole run.
	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "irrigation_run_duration_seconds",
		Help:    "Wall time of a daily run.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})
)
