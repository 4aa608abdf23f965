// Package notify delivers human-readable messages about the daily run.
// Delivery is fire-and-forget: a sink that fails logs the failure and never
// affects irrigation control flow.
package notify

import (
	"encoding/json"
	"log"
	"time"

	"github.com/AndySymons/GAIL-Garden-irrigation-system/pkg/mqttbus"
)

// Notifier accepts one structured message. Implementations must not return
// errors to the caller; failures are resolved internally.
type Notifier interface {
	Notify(title, preamble, body string)
}

// LogNotifier writes notifications to the process log. It is always wired,
// so there is no silent path through the engine even without a broker.
type LogNotifier struct{}

func (LogNotifier) Notify(title, preamble, body string) {
	log.Printf("notify: %s | %s | %s", title, preamble, body)
}

// message is the JSON payload MQTTNotifier publishes.
type message struct {
	Title     string    `json:"title"`
	Preamble  string    `json:"preamble"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

// MQTTNotifier publishes notifications to a broker topic for dashboards or
// phone bridges to pick up.
type MQTTNotifier struct {
	publisher mqttbus.IPublisher
}

func NewMQTTNotifier(publisher mqttbus.IPublisher) *MQTTNotifier {
	return &MQTTNotifier{publisher: publisher}
}

func (n *MQTTNotifier) Notify(title, preamble, body string) {
	b, err := json.Marshal(message{Title: title, Preamble: preamble, Body: body, Timestamp: time.Now().UTC()})
	if err != nil {
		log.Printf("notify: marshal failed: %v", err)
		return
	}
	if err := n.publisher.Publish(string(b)); err != nil {
		log.Printf("notify: publish failed: %v", err)
	}
}

// Multi fans a notification out to several sinks.
type Multi []Notifier

func (m Multi) Notify(title, preamble, body string) {
	for _, n := range m {
		n.Notify(title, preamble, body)
	}
}
