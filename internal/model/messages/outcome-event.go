package messages

import "time"

// ZoneOutcomeEvent is published once per zone at the end of its session,
// aligned with the notification the operator receives.
type ZoneOutcomeEvent struct {
	RunID         string    `json:"run_id"`
	Zone          string    `json:"zone"`
	Reason        string    `json:"reason"` // skipped | target_reached | timed_out | stopped_externally
	FinalMoisture int       `json:"final_moisture"`
	WateredForSec int       `json:"watered_for_sec"`
	Timestamp     time.Time `json:"timestamp"`
}

// RunEvent marks the boundaries of a daily run: the header when the run
// starts, a suppression with its reason, or the trailing completion.
type RunEvent struct {
	RunID     string    `json:"run_id"`
	Kind      string    `json:"kind"` // started | suppressed | failed | completed
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
