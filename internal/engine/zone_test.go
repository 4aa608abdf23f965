package engine

import (
	"context"
	"testing"
	"time"

	"github.com/AndySymons/GAIL-Garden-irrigation-system/internal/device"
	"github.com/AndySymons/GAIL-Garden-irrigation-system/internal/forecast"
	"github.com/AndySymons/GAIL-Garden-irrigation-system/internal/model"
	"github.com/AndySymons/GAIL-Garden-irrigation-system/internal/notify"
)

func testConfig(zones []ZoneConfig, kind model.ValveKind, timer device.TimeoutTimer) Config {
	return Config{
		Zones:         zones,
		ValveKind:     kind,
		Timer:         timer,
		MinForecastMM: 20,
		PollInterval:  time.Millisecond,
		SettleDelay:   time.Millisecond,
	}
}

func testEngine(t *testing.T, cfg Config, provider forecast.Provider, notifier notify.Notifier) *Engine {
	t.Helper()
	if provider == nil {
		provider = &forecast.FakeProvider{Days: []forecast.Day{{}, {}}}
	}
	if notifier == nil {
		notifier = &notify.FakeNotifier{}
	}
	e, err := New(cfg, provider, notifier)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func zone(name string, valve device.Valve, sensor device.MoistureSensor) ZoneConfig {
	return ZoneConfig{
		Name:            name,
		Valve:           valve,
		Sensor:          sensor,
		ThresholdPct:    30,
		TargetPct:       60,
		MaxDuration:     20 * time.Minute,
		DefaultDuration: 10 * time.Minute,
	}
}

// Functional sensor below threshold: watering starts with the max duration.
func TestZoneWateringUsesMaxDuration(t *testing.T) {
	valve := device.NewFakeValve()
	timer := device.NewFakeTimer()
	z := zone("lawn", valve, device.NewFakeSensor(25, 70))
	e := testEngine(t, testConfig([]ZoneConfig{z}, model.ValveSwitch, timer), nil, nil)

	out, err := e.runZone(context.Background(), z)
	if err != nil {
		t.Fatalf("runZone: %v", err)
	}
	if out.Reason != model.OutcomeTargetReached {
		t.Errorf("reason = %s, want target_reached", out.Reason)
	}
	if len(timer.Started) != 1 || timer.Started[0] != 20*time.Minute {
		t.Errorf("timer started with %v, want one start of 20m", timer.Started)
	}
	if valve.OpenCalls != 1 || valve.TimedOpens != 0 {
		t.Errorf("switch valve opens = %d timed = %d, want 1/0", valve.OpenCalls, valve.TimedOpens)
	}
}

// Scenario B: moisture above threshold transitions straight to Skipped with
// no valve or timer interaction.
func TestZoneSkippedNoSideEffects(t *testing.T) {
	valve := device.NewFakeValve()
	timer := device.NewFakeTimer()
	z := zone("lawn", valve, device.NewFakeSensor(35))
	e := testEngine(t, testConfig([]ZoneConfig{z}, model.ValveSwitch, timer), nil, nil)

	out, err := e.runZone(context.Background(), z)
	if err != nil {
		t.Fatalf("runZone: %v", err)
	}
	if out.Reason != model.OutcomeSkipped {
		t.Errorf("reason = %s, want skipped", out.Reason)
	}
	if out.FinalMoisture != 35 {
		t.Errorf("final moisture = %d, want 35", out.FinalMoisture)
	}
	if valve.OpenCalls+valve.CloseCalls+valve.StateCalls != 0 {
		t.Errorf("valve touched on skip: %+v", valve)
	}
	if timer.StartCalls+timer.StopCalls != 0 {
		t.Errorf("timer touched on skip: %+v", timer)
	}
}

// A reading exactly at the threshold still waters: the bound is "at or
// below".
func TestZoneWatersAtThreshold(t *testing.T) {
	valve := device.NewFakeValve()
	timer := device.NewFakeTimer()
	z := zone("lawn", valve, device.NewFakeSensor(30, 70))
	e := testEngine(t, testConfig([]ZoneConfig{z}, model.ValveSwitch, timer), nil, nil)

	out, err := e.runZone(context.Background(), z)
	if err != nil {
		t.Fatalf("runZone: %v", err)
	}
	if out.Reason != model.OutcomeTargetReached {
		t.Errorf("reason = %s, want target_reached", out.Reason)
	}
}

// Scenario C: a near-zero reading means the probe is dead; watering still
// happens, bounded by the default duration, and the timed valve's own
// duration is one minute longer.
func TestZoneNonFunctionalSensorUsesDefaultDuration(t *testing.T) {
	valve := device.NewFakeValve()
	timer := device.NewFakeTimer()
	timer.IdleAfterStateCalls = 2
	z := zone("beds", valve, device.NewFakeSensor(2, 2))
	e := testEngine(t, testConfig([]ZoneConfig{z}, model.ValveTimed, timer), nil, nil)

	out, err := e.runZone(context.Background(), z)
	if err != nil {
		t.Fatalf("runZone: %v", err)
	}
	if out.Reason != model.OutcomeTimedOut {
		t.Errorf("reason = %s, want timed_out", out.Reason)
	}
	if len(timer.Started) != 1 || timer.Started[0] != 10*time.Minute {
		t.Errorf("timer started with %v, want one start of 10m (default)", timer.Started)
	}
	if valve.TimedOpens != 1 || valve.LastOpenFor != 11*time.Minute {
		t.Errorf("timed open for %s, want 11m (default + 1m backstop)", valve.LastOpenFor)
	}
}

// Scenario D: target reached before the timer expires; the timer is stopped
// while still active.
func TestZoneTargetReachedStopsActiveTimer(t *testing.T) {
	valve := device.NewFakeValve()
	timer := device.NewFakeTimer()
	z := zone("lawn", valve, device.NewFakeSensor(25, 70))
	e := testEngine(t, testConfig([]ZoneConfig{z}, model.ValveSwitch, timer), nil, nil)

	out, err := e.runZone(context.Background(), z)
	if err != nil {
		t.Fatalf("runZone: %v", err)
	}
	if out.Reason != model.OutcomeTargetReached {
		t.Fatalf("reason = %s, want target_reached", out.Reason)
	}
	if out.FinalMoisture != 70 {
		t.Errorf("final moisture = %d, want 70", out.FinalMoisture)
	}
	if timer.StopCalls != 1 || !timer.StoppedWhileActive {
		t.Errorf("timer stops = %d stoppedWhileActive = %v, want 1/true", timer.StopCalls, timer.StoppedWhileActive)
	}
	if valve.CloseCalls != 1 {
		t.Errorf("valve closes = %d, want 1", valve.CloseCalls)
	}
}

// Scenario E: the timer expires while moisture is still short of target and
// the valve remains open.
func TestZoneTimeout(t *testing.T) {
	valve := device.NewFakeValve()
	timer := device.NewFakeTimer()
	timer.IdleAfterStateCalls = 3
	z := zone("lawn", valve, device.NewFakeSensor(25, 40))
	e := testEngine(t, testConfig([]ZoneConfig{z}, model.ValveSwitch, timer), nil, nil)

	out, err := e.runZone(context.Background(), z)
	if err != nil {
		t.Fatalf("runZone: %v", err)
	}
	if out.Reason != model.OutcomeTimedOut {
		t.Errorf("reason = %s, want timed_out", out.Reason)
	}
	if out.FinalMoisture != 40 {
		t.Errorf("final moisture = %d, want 40", out.FinalMoisture)
	}
	if valve.CloseCalls != 1 {
		t.Errorf("valve closes = %d, want 1", valve.CloseCalls)
	}
}

// The valve observed closed by someone else terminates the session.
func TestZoneStoppedExternally(t *testing.T) {
	valve := device.NewFakeValve()
	valve.ClosedAfterStateCalls = 2
	timer := device.NewFakeTimer()
	z := zone("lawn", valve, device.NewFakeSensor(25, 40))
	e := testEngine(t, testConfig([]ZoneConfig{z}, model.ValveSwitch, timer), nil, nil)

	out, err := e.runZone(context.Background(), z)
	if err != nil {
		t.Fatalf("runZone: %v", err)
	}
	if out.Reason != model.OutcomeStoppedExternally {
		t.Errorf("reason = %s, want stopped_externally", out.Reason)
	}
	if timer.StopCalls != 1 {
		t.Errorf("timer stops = %d, want 1", timer.StopCalls)
	}
}

// When target and timeout hold at the same poll, target wins; when timeout
// and external stop hold together, timeout wins.
func TestZoneClassificationPriority(t *testing.T) {
	t.Run("target beats timeout", func(t *testing.T) {
		valve := device.NewFakeValve()
		timer := device.NewFakeTimer()
		timer.IdleAfterStateCalls = 1
		z := zone("lawn", valve, device.NewFakeSensor(25, 70))
		e := testEngine(t, testConfig([]ZoneConfig{z}, model.ValveSwitch, timer), nil, nil)

		out, err := e.runZone(context.Background(), z)
		if err != nil {
			t.Fatalf("runZone: %v", err)
		}
		if out.Reason != model.OutcomeTargetReached {
			t.Errorf("reason = %s, want target_reached", out.Reason)
		}
	})

	t.Run("timeout beats external stop", func(t *testing.T) {
		valve := device.NewFakeValve()
		valve.ClosedAfterStateCalls = 1
		timer := device.NewFakeTimer()
		timer.IdleAfterStateCalls = 1
		z := zone("lawn", valve, device.NewFakeSensor(25, 40))
		e := testEngine(t, testConfig([]ZoneConfig{z}, model.ValveSwitch, timer), nil, nil)

		out, err := e.runZone(context.Background(), z)
		if err != nil {
			t.Fatalf("runZone: %v", err)
		}
		if out.Reason != model.OutcomeTimedOut {
			t.Errorf("reason = %s, want timed_out", out.Reason)
		}
	})
}

// A timed-valve run always opens for one minute more than the timer it
// races against.
func TestZoneTimedValveBackstopDuration(t *testing.T) {
	valve := device.NewFakeValve()
	timer := device.NewFakeTimer()
	z := zone("lawn", valve, device.NewFakeSensor(25, 70))
	e := testEngine(t, testConfig([]ZoneConfig{z}, model.ValveTimed, timer), nil, nil)

	if _, err := e.runZone(context.Background(), z); err != nil {
		t.Fatalf("runZone: %v", err)
	}
	if valve.TimedOpens != 1 {
		t.Fatalf("timed opens = %d, want 1", valve.TimedOpens)
	}
	if want := timer.Started[0] + time.Minute; valve.LastOpenFor != want {
		t.Errorf("valve open duration = %s, want %s", valve.LastOpenFor, want)
	}
}

// Cancellation during Watering still closes the valve and stops the timer.
func TestZoneCancellationUnwinds(t *testing.T) {
	valve := device.NewFakeValve()
	timer := device.NewFakeTimer()
	z := zone("lawn", valve, device.NewFakeSensor(25, 40))
	e := testEngine(t, testConfig([]ZoneConfig{z}, model.ValveSwitch, timer), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.runZone(ctx, z)
	if err == nil {
		t.Fatal("expected error from cancelled run")
	}
	if valve.OpenCalls != 1 || valve.CloseCalls != 1 {
		t.Errorf("valve opens = %d closes = %d, want 1/1", valve.OpenCalls, valve.CloseCalls)
	}
	if timer.StartCalls != 1 || timer.StopCalls != 1 {
		t.Errorf("timer starts = %d stops = %d, want 1/1", timer.StartCalls, timer.StopCalls)
	}
}

// A valve that fails to open leaves the timer stopped and surfaces an error.
func TestZoneOpenFailureStopsTimer(t *testing.T) {
	valve := device.NewFakeValve()
	valve.OpenErr = context.DeadlineExceeded
	timer := device.NewFakeTimer()
	z := zone("lawn", valve, device.NewFakeSensor(25))
	e := testEngine(t, testConfig([]ZoneConfig{z}, model.ValveSwitch, timer), nil, nil)

	if _, err := e.runZone(context.Background(), z); err == nil {
		t.Fatal("expected open error")
	}
	if timer.StopCalls != 1 {
		t.Errorf("timer stops = %d, want 1 after failed open", timer.StopCalls)
	}
	if valve.CloseCalls != 0 {
		t.Errorf("valve closes = %d, want 0 for a valve that never opened", valve.CloseCalls)
	}
}
