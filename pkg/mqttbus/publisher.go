package mqttbus

import (
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// IPublisher publishes payloads to a fixed topic.
type IPublisher interface {
	Publish(payload string) error
	PublishQoS(qos byte, retained bool, payload string) error
}

// Publisher binds a shared MQTT client to one topic.
type Publisher struct {
	client mqtt.Client
	topic  string
}

func NewPublisher(client mqtt.Client, topic string) *Publisher {
	return &Publisher{client: client, topic: topic}
}

// Publish sends the payload at QoS 0.
func (p *Publisher) Publish(payload string) error {
	return p.PublishQoS(0, false, payload)
}

// PublishQoS sends the payload with an explicit QoS and retained flag.
func (p *Publisher) PublishQoS(qos byte, retained bool, payload string) error {
	token := p.client.Publish(p.topic, qos, retained, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}
	return nil
}
