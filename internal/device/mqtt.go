package device

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/AndySymons/GAIL-Garden-irrigation-system/internal/model"
	"github.com/AndySymons/GAIL-Garden-irrigation-system/pkg/dedup"
	"github.com/AndySymons/GAIL-Garden-irrigation-system/pkg/mqttbus"
)

// MoistureReading is the payload the sensor platform publishes on
// sensor topics (one topic per zone, zone id as the last segment).
type MoistureReading struct {
	Zone      string    `json:"zone"`
	Moisture  int       `json:"moisture"`
	Timestamp time.Time `json:"timestamp"`
}

// ValveCommand is published on a valve's command topic. DurationMin is only
// set for the timed valve variant.
type ValveCommand struct {
	State       ValveState `json:"state"`
	DurationMin int        `json:"duration_min,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
}

// valveStatus is the retained payload the actuator platform publishes on a
// valve's state topic.
type valveStatus struct {
	Zone  string     `json:"zone"`
	State ValveState `json:"state"`
}

// MoistureCache holds the last reading per zone, fed by an MQTT subscription.
// Reads are memory lookups: a zone with no reading yet reports 0, which the
// engine already treats as a non-functional probe.
type MoistureCache struct {
	mu       sync.RWMutex
	readings map[string]int
	deduper  *dedup.Deduper
}

func NewMoistureCache() *MoistureCache {
	return &MoistureCache{
		readings: make(map[string]int),
		deduper:  dedup.New(10*time.Minute, 20000),
	}
}

// Handle is the mqttbus handler for sensor topics. Redelivered QoS 1
// payloads are dropped before decoding.
func (c *MoistureCache) Handle(topic string, msg mqtt.Message) error {
	if !c.deduper.ShouldProcessPayload(msg.Payload()) {
		return nil
	}

	var r MoistureReading
	if err := json.Unmarshal(msg.Payload(), &r); err != nil {
		log.Printf("moisture: bad payload on %s: %v", topic, err)
		return nil
	}
	if r.Zone == "" {
		r.Zone = lastSegment(topic)
	}
	if r.Zone == "" {
		return nil
	}

	c.mu.Lock()
	c.readings[r.Zone] = model.ClampMoisture(r.Moisture)
	c.mu.Unlock()
	return nil
}

// Sensor returns the MoistureSensor view for one zone.
func (c *MoistureCache) Sensor(zone string) MoistureSensor {
	return &cachedSensor{cache: c, zone: zone}
}

func (c *MoistureCache) read(zone string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.readings[zone]
	if !ok {
		return 0
	}
	return v
}

type cachedSensor struct {
	cache *MoistureCache
	zone  string
}

func (s *cachedSensor) ReadMoisture(_ context.Context) int {
	return s.cache.read(s.zone)
}

// ValveStateCache holds the last reported valve state per zone, fed by the
// actuator platform's retained state topics.
type ValveStateCache struct {
	mu     sync.RWMutex
	states map[string]ValveState
}

func NewValveStateCache() *ValveStateCache {
	return &ValveStateCache{states: make(map[string]ValveState)}
}

func (c *ValveStateCache) Handle(topic string, msg mqtt.Message) error {
	var st valveStatus
	if err := json.Unmarshal(msg.Payload(), &st); err != nil {
		log.Printf("valve: bad state payload on %s: %v", topic, err)
		return nil
	}
	if st.Zone == "" {
		st.Zone = lastSegment(topic)
	}
	if st.Zone == "" || (st.State != ValveOpen && st.State != ValveClosed) {
		return nil
	}

	c.mu.Lock()
	c.states[st.Zone] = st.State
	c.mu.Unlock()
	return nil
}

func (c *ValveStateCache) state(zone string) (ValveState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st, ok := c.states[zone]
	return st, ok
}

// MQTTValve drives a zone's valve by publishing commands and reading the
// actuator's reported state from the shared cache. It satisfies both the
// Switch and TimedValve contracts; which capability a run uses is decided
// by its configuration.
type MQTTValve struct {
	commands mqttbus.IPublisher
	states   *ValveStateCache
	zone     string
}

func NewMQTTValve(commands mqttbus.IPublisher, states *ValveStateCache, zone string) *MQTTValve {
	return &MQTTValve{commands: commands, states: states, zone: zone}
}

func (v *MQTTValve) Open(ctx context.Context) error {
	return v.publish(ValveCommand{State: ValveOpen, Timestamp: time.Now().UTC()})
}

func (v *MQTTValve) OpenFor(ctx context.Context, d time.Duration) error {
	minutes := int(d / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return v.publish(ValveCommand{State: ValveOpen, DurationMin: minutes, Timestamp: time.Now().UTC()})
}

func (v *MQTTValve) Close(ctx context.Context) error {
	return v.publish(ValveCommand{State: ValveClosed, Timestamp: time.Now().UTC()})
}

// State reads the actuator's last reported state. A zone whose actuator has
// never reported is an actuator failure, not a guess.
func (v *MQTTValve) State(ctx context.Context) (ValveState, error) {
	st, ok := v.states.state(v.zone)
	if !ok {
		return ValveClosed, fmt.Errorf("no reported state for valve %q", v.zone)
	}
	return st, nil
}

func (v *MQTTValve) publish(cmd ValveCommand) error {
	b, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	if err := v.commands.PublishQoS(1, false, string(b)); err != nil {
		return fmt.Errorf("valve %q command %s: %w", v.zone, cmd.State, err)
	}
	return nil
}

func lastSegment(topic string) string {
	parts := strings.Split(topic, "/")
	return parts[len(parts)-1]
}
