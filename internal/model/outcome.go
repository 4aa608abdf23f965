package model

import "time"

// OutcomeReason classifies how a zone's daily run terminated.
type OutcomeReason string

const (
	// OutcomeSkipped means the zone was already moist enough and no valve or
	// timer interaction took place.
	OutcomeSkipped OutcomeReason = "skipped"
	// OutcomeTargetReached means watering stopped because the moisture target
	// was reached.
	OutcomeTargetReached OutcomeReason = "target_reached"
	// OutcomeTimedOut means the shared timeout timer expired before the
	// moisture target was reached.
	OutcomeTimedOut OutcomeReason = "timed_out"
	// OutcomeStoppedExternally means the valve was observed closed by
	// something other than this engine (a human, or the actuator's own
	// safety timeout).
	OutcomeStoppedExternally OutcomeReason = "stopped_externally"
)

// ZoneOutcome is produced once per zone per run and consumed by the notifier
// and the outcome event sink. Nothing persists it across runs.
type ZoneOutcome struct {
	Zone          string
	Reason        OutcomeReason
	FinalMoisture int
	WateredFor    time.Duration
}

// Watered reports whether the zone actually entered the watering state.
func (o ZoneOutcome) Watered() bool {
	return o.Reason != OutcomeSkipped
}
