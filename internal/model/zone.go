// Package model holds the value types shared between the irrigation engine,
// its configuration surface, and the event messages it emits.
package model

// ValveKind selects which actuator capability a run drives.
type ValveKind string

const (
	// ValveSwitch is an instantaneous open/close actuator; watering duration
	// is enforced purely by the engine's timeout timer.
	ValveSwitch ValveKind = "switch"
	// ValveTimed is an actuator whose open command carries its own duration,
	// acting as a physical backstop behind the engine's timer.
	ValveTimed ValveKind = "timed"
)

func (k ValveKind) Valid() bool {
	return k == ValveSwitch || k == ValveTimed
}

// Faulty probes on this platform report near-zero moisture instead of an
// error, so any reading at or below this ceiling is treated as "sensor not
// functioning" rather than as genuinely bone-dry soil.
const nonFunctionalCeiling = 3

// SensorFunctional reports whether a moisture reading came from a working
// probe. Non-functional readings still count as 0% for the suppression
// checks (fail-open: a dead probe biases toward watering) but switch the
// zone to its default watering duration.
func SensorFunctional(reading int) bool {
	return reading > nonFunctionalCeiling
}

// ClampMoisture forces a reading into the 0..100 percent range.
func ClampMoisture(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
