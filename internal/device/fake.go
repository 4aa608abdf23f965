package device

import (
	"context"
	"time"
)

// FakeSensor returns scripted moisture readings. Each call consumes the next
// reading; once exhausted the last one repeats.
type FakeSensor struct {
	Readings []int
	index    int
}

func NewFakeSensor(readings ...int) *FakeSensor {
	return &FakeSensor{Readings: readings}
}

func (f *FakeSensor) ReadMoisture(_ context.Context) int {
	if len(f.Readings) == 0 {
		return 0
	}
	r := f.Readings[f.index]
	if f.index < len(f.Readings)-1 {
		f.index++
	}
	return r
}

// FakeValve records actuator commands for test assertions. It satisfies both
// the Switch and TimedValve contracts.
type FakeValve struct {
	Current    ValveState
	OpenCalls  int
	CloseCalls int
	StateCalls int

	// TimedOpens counts OpenFor calls; LastOpenFor is the duration of the
	// most recent one.
	TimedOpens  int
	LastOpenFor time.Duration

	// ClosedAfterStateCalls, when positive, makes State report closed from
	// that call onward, simulating an external stop.
	ClosedAfterStateCalls int

	OpenErr  error
	CloseErr error
	StateErr error
}

func NewFakeValve() *FakeValve {
	return &FakeValve{Current: ValveClosed}
}

func (f *FakeValve) Open(_ context.Context) error {
	f.OpenCalls++
	if f.OpenErr != nil {
		return f.OpenErr
	}
	f.Current = ValveOpen
	return nil
}

func (f *FakeValve) OpenFor(ctx context.Context, d time.Duration) error {
	f.TimedOpens++
	f.LastOpenFor = d
	return f.Open(ctx)
}

func (f *FakeValve) Close(_ context.Context) error {
	f.CloseCalls++
	if f.CloseErr != nil {
		return f.CloseErr
	}
	f.Current = ValveClosed
	return nil
}

func (f *FakeValve) State(_ context.Context) (ValveState, error) {
	f.StateCalls++
	if f.StateErr != nil {
		return ValveClosed, f.StateErr
	}
	if f.ClosedAfterStateCalls > 0 && f.StateCalls >= f.ClosedAfterStateCalls {
		f.Current = ValveClosed
	}
	return f.Current, nil
}

// FakeTimer is a scriptable TimeoutTimer.
type FakeTimer struct {
	StartCalls int
	StopCalls  int
	Started    []time.Duration

	// IdleAfterStateCalls, when positive, makes State report idle (expired)
	// from that many queries after Start.
	IdleAfterStateCalls int

	// StoppedWhileActive records whether the most recent Stop arrived while
	// the timer had not yet expired.
	StoppedWhileActive bool

	StartErr error
	StopErr  error

	running      bool
	expired      bool
	queriesSince int
}

func NewFakeTimer() *FakeTimer {
	return &FakeTimer{}
}

func (f *FakeTimer) Start(d time.Duration) error {
	f.StartCalls++
	f.Started = append(f.Started, d)
	if f.StartErr != nil {
		return f.StartErr
	}
	f.running = true
	f.expired = false
	f.queriesSince = 0
	return nil
}

func (f *FakeTimer) Stop() error {
	f.StopCalls++
	f.StoppedWhileActive = f.running && !f.expired
	f.running = false
	f.expired = false
	f.queriesSince = 0
	return f.StopErr
}

func (f *FakeTimer) State() TimerState {
	if !f.running {
		return TimerIdle
	}
	f.queriesSince++
	if f.IdleAfterStateCalls > 0 && f.queriesSince >= f.IdleAfterStateCalls {
		f.expired = true
	}
	if f.expired {
		return TimerIdle
	}
	return TimerActive
}
