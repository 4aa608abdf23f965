package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/AndySymons/GAIL-Garden-irrigation-system/internal/device"
	"github.com/AndySymons/GAIL-Garden-irrigation-system/internal/model"
	"github.com/AndySymons/GAIL-Garden-irrigation-system/internal/notify"
)

func TestSchedulerResolvesZonesInOrder(t *testing.T) {
	valve1 := device.NewFakeValve()
	valve2 := device.NewFakeValve()
	timer := device.NewFakeTimer()
	notifier := &notify.FakeNotifier{}

	zones := []ZoneConfig{
		zone("lawn", valve1, device.NewFakeSensor(25, 70)),
		zone("beds", valve2, device.NewFakeSensor(28, 65)),
	}
	e := testEngine(t, testConfig(zones, model.ValveSwitch, timer), nil, notifier)

	outcomes := e.runAll(context.Background(), "test-run")
	if len(outcomes) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(outcomes))
	}
	if outcomes[0].Zone != "lawn" || outcomes[1].Zone != "beds" {
		t.Errorf("outcome order = %s, %s; want lawn, beds", outcomes[0].Zone, outcomes[1].Zone)
	}
	// one shared timer, started and released once per zone
	if timer.StartCalls != 2 || timer.StopCalls != 2 {
		t.Errorf("timer starts = %d stops = %d, want 2/2", timer.StartCalls, timer.StopCalls)
	}
	if len(notifier.Messages) != 2 {
		t.Fatalf("got %d notifications, want one per zone", len(notifier.Messages))
	}
	if !strings.Contains(notifier.Messages[0].Body, "Zone 1 (lawn)") {
		t.Errorf("first message %q should name zone 1 (lawn)", notifier.Messages[0].Body)
	}
	if !strings.Contains(notifier.Messages[1].Body, "Zone 2 (beds)") {
		t.Errorf("second message %q should name zone 2 (beds)", notifier.Messages[1].Body)
	}
}

func TestSchedulerContinuesPastFailingZone(t *testing.T) {
	valve1 := device.NewFakeValve()
	valve1.OpenErr = errors.New("actuator unreachable")
	valve2 := device.NewFakeValve()
	timer := device.NewFakeTimer()
	notifier := &notify.FakeNotifier{}

	zones := []ZoneConfig{
		zone("lawn", valve1, device.NewFakeSensor(25)),
		zone("beds", valve2, device.NewFakeSensor(28, 65)),
	}
	e := testEngine(t, testConfig(zones, model.ValveSwitch, timer), nil, notifier)

	outcomes := e.runAll(context.Background(), "test-run")
	if len(outcomes) != 1 {
		t.Fatalf("got %d outcomes, want 1 (failed zone carries none)", len(outcomes))
	}
	if outcomes[0].Zone != "beds" {
		t.Errorf("surviving outcome zone = %s, want beds", outcomes[0].Zone)
	}
	var failMsg bool
	for _, m := range notifier.Messages {
		if strings.Contains(m.Body, "Zone 1 (lawn) failed") {
			failMsg = true
		}
	}
	if !failMsg {
		t.Errorf("no failure notification for zone 1; got %+v", notifier.Messages)
	}
	if valve2.OpenCalls != 1 {
		t.Errorf("second zone opens = %d, want 1", valve2.OpenCalls)
	}
}

func TestSchedulerSkipOutcomeMessage(t *testing.T) {
	valve := device.NewFakeValve()
	timer := device.NewFakeTimer()
	notifier := &notify.FakeNotifier{}
	zones := []ZoneConfig{zone("lawn", valve, device.NewFakeSensor(45))}
	e := testEngine(t, testConfig(zones, model.ValveSwitch, timer), nil, notifier)

	outcomes := e.runAll(context.Background(), "test-run")
	if len(outcomes) != 1 || outcomes[0].Reason != model.OutcomeSkipped {
		t.Fatalf("outcomes = %+v, want one skipped", outcomes)
	}
	if len(notifier.Messages) != 1 {
		t.Fatalf("got %d notifications, want 1", len(notifier.Messages))
	}
	body := notifier.Messages[0].Body
	if !strings.Contains(body, "skipped") || !strings.Contains(body, "45%") || !strings.Contains(body, "30%") {
		t.Errorf("skip message %q should carry reading and threshold", body)
	}
}

func TestSchedulerPublishesOutcomeEvents(t *testing.T) {
	pub := &recordingSink{}
	valve := device.NewFakeValve()
	timer := device.NewFakeTimer()
	zones := []ZoneConfig{zone("lawn", valve, device.NewFakeSensor(25, 70))}
	e := testEngine(t, testConfig(zones, model.ValveSwitch, timer), nil, nil)
	e.SetOutcomeSink(pub)

	e.runAll(context.Background(), "test-run")
	if len(pub.outcomes) != 1 {
		t.Fatalf("sink received %d outcomes, want 1", len(pub.outcomes))
	}
	if pub.outcomes[0].Reason != model.OutcomeTargetReached {
		t.Errorf("event reason = %s, want target_reached", pub.outcomes[0].Reason)
	}
}

func TestSchedulerCancelledBetweenZones(t *testing.T) {
	valve1 := device.NewFakeValve()
	valve2 := device.NewFakeValve()
	timer := device.NewFakeTimer()
	zones := []ZoneConfig{
		zone("lawn", valve1, device.NewFakeSensor(45)), // skipped, no suspension points
		zone("beds", valve2, device.NewFakeSensor(25, 40)),
	}
	e := testEngine(t, testConfig(zones, model.ValveSwitch, timer), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outcomes := e.runAll(ctx, "test-run")
	if len(outcomes) != 0 {
		t.Errorf("cancelled run resolved %d zones, want 0", len(outcomes))
	}
	if valve1.OpenCalls+valve2.OpenCalls != 0 {
		t.Errorf("valves touched after cancellation")
	}
}

type recordingSink struct {
	outcomes []model.ZoneOutcome
	runKinds []string
}

func (s *recordingSink) PublishOutcome(_ string, out model.ZoneOutcome) {
	s.outcomes = append(s.outcomes, out)
}

func (s *recordingSink) PublishRunEvent(_ string, kind, _ string) {
	s.runKinds = append(s.runKinds, kind)
}
