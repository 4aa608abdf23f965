// Package device defines the narrow contracts the irrigation engine consumes
// from the outside world: a moisture sensor, a valve actuator in two
// variants, and a timeout timer. Real implementations (MQTT, GPIO, InfluxDB)
// and fakes for tests live alongside the contracts.
package device

import (
	"context"
	"time"
)

// ValveState is the reported state of a zone's water path.
type ValveState string

const (
	ValveOpen   ValveState = "open"
	ValveClosed ValveState = "closed"
)

// TimerState is the reported state of the shared timeout timer. The timer
// has no distinct "expired" state: expiry returns it to idle, and the engine
// reads idle-after-start as the expiry signal.
type TimerState string

const (
	TimerIdle   TimerState = "idle"
	TimerActive TimerState = "active"
)

// MoistureSensor reports the current soil moisture percentage for one zone.
// Implementations never return an error: an unreachable probe is reported as
// a low reading, by convention of the upstream platform.
type MoistureSensor interface {
	ReadMoisture(ctx context.Context) int
}

// Valve is the instantaneous switch variant of the actuator.
type Valve interface {
	Open(ctx context.Context) error
	Close(ctx context.Context) error
	State(ctx context.Context) (ValveState, error)
}

// TimedValve is an actuator whose open command carries its own duration;
// the physical hardware closes the water path on its own when that duration
// elapses, independent of this process.
type TimedValve interface {
	Valve
	OpenFor(ctx context.Context, d time.Duration) error
}

// TimeoutTimer is a start/query/stop primitive. One physical timer is shared
// by all zones and reused strictly sequentially.
type TimeoutTimer interface {
	Start(d time.Duration) error
	Stop() error
	State() TimerState
}
