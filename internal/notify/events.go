package notify

import (
	"encoding/json"
	"log"
	"time"

	"github.com/AndySymons/GAIL-Garden-irrigation-system/internal/model"
	"github.com/AndySymons/GAIL-Garden-irrigation-system/internal/model/messages"
	"github.com/AndySymons/GAIL-Garden-irrigation-system/pkg/mqttbus"
)

// OutcomePublisher emits zone outcome and run boundary events as JSON on a
// broker topic. Like notifications, event delivery failures are logged and
// swallowed.
type OutcomePublisher struct {
	publisher mqttbus.IPublisher
}

func NewOutcomePublisher(publisher mqttbus.IPublisher) *OutcomePublisher {
	return &OutcomePublisher{publisher: publisher}
}

func (p *OutcomePublisher) PublishOutcome(runID string, out model.ZoneOutcome) {
	evt := messages.ZoneOutcomeEvent{
		RunID:         runID,
		Zone:          out.Zone,
		Reason:        string(out.Reason),
		FinalMoisture: out.FinalMoisture,
		WateredForSec: int(out.WateredFor.Seconds()),
		Timestamp:     time.Now().UTC(),
	}
	p.publish(evt)
}

func (p *OutcomePublisher) PublishRunEvent(runID, kind, reason string) {
	p.publish(messages.RunEvent{
		RunID:     runID,
		Kind:      kind,
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	})
}

func (p *OutcomePublisher) publish(evt any) {
	b, err := json.Marshal(evt)
	if err != nil {
		log.Printf("events: marshal failed: %v", err)
		return
	}
	if err := p.publisher.PublishQoS(1, false, string(b)); err != nil {
		log.Printf("events: publish failed: %v", err)
	}
}
