package notify

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/AndySymons/GAIL-Garden-irrigation-system/internal/model"
)

type recordingPublisher struct {
	payloads []string
	err      error
}

func (p *recordingPublisher) Publish(payload string) error {
	return p.PublishQoS(0, false, payload)
}

func (p *recordingPublisher) PublishQoS(_ byte, _ bool, payload string) error {
	if p.err != nil {
		return p.err
	}
	p.payloads = append(p.payloads, payload)
	return nil
}

func TestMQTTNotifierPayload(t *testing.T) {
	pub := &recordingPublisher{}
	n := NewMQTTNotifier(pub)

	n.Notify("Garden watering", "run 1234", "Zone 1 (lawn) skipped")

	if len(pub.payloads) != 1 {
		t.Fatalf("published %d payloads, want 1", len(pub.payloads))
	}
	var msg message
	if err := json.Unmarshal([]byte(pub.payloads[0]), &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Title != "Garden watering" || msg.Preamble != "run 1234" || msg.Body != "Zone 1 (lawn) skipped" {
		t.Errorf("payload = %+v", msg)
	}
	if msg.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}

func TestMQTTNotifierSwallowsPublishError(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	n := NewMQTTNotifier(pub)
	// must not panic or propagate
	n.Notify("t", "p", "b")
}

func TestMultiFansOut(t *testing.T) {
	a := &FakeNotifier{}
	b := &FakeNotifier{}
	Multi{a, b}.Notify("t", "p", "body")
	if len(a.Messages) != 1 || len(b.Messages) != 1 {
		t.Fatalf("fan-out: a=%d b=%d, want 1 each", len(a.Messages), len(b.Messages))
	}
}

func TestOutcomePublisherEvent(t *testing.T) {
	pub := &recordingPublisher{}
	p := NewOutcomePublisher(pub)

	p.PublishOutcome("run-1", model.ZoneOutcome{
		Zone:          "lawn",
		Reason:        model.OutcomeTargetReached,
		FinalMoisture: 61,
	})

	if len(pub.payloads) != 1 {
		t.Fatalf("published %d payloads, want 1", len(pub.payloads))
	}
	var evt struct {
		RunID  string `json:"run_id"`
		Zone   string `json:"zone"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(pub.payloads[0]), &evt); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if evt.RunID != "run-1" || evt.Zone != "lawn" || evt.Reason != "target_reached" {
		t.Errorf("event = %+v", evt)
	}
}
