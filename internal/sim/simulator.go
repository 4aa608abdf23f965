package sim

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/AndySymons/GAIL-Garden-irrigation-system/internal/device"
	"github.com/AndySymons/GAIL-Garden-irrigation-system/pkg/dedup"
	"github.com/AndySymons/GAIL-Garden-irrigation-system/pkg/mqttbus"
)

// Simulator impersonates one zone's sensor and valve: it consumes valve
// commands, reports valve state, and publishes moisture readings on a fixed
// cadence.
type Simulator struct {
	zone      string
	generator *Generator

	readings mqttbus.IPublisher
	states   mqttbus.IPublisher

	mu        sync.Mutex
	autoClose *time.Timer

	deduper *dedup.Deduper
}

func NewSimulator(zone string, gen *Generator, readings, states mqttbus.IPublisher) *Simulator {
	return &Simulator{
		zone:      zone,
		generator: gen,
		readings:  readings,
		states:    states,
		deduper:   dedup.New(2*time.Minute, 10000),
	}
}

// Run publishes a reading every interval until ctx is cancelled.
func (s *Simulator) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.reportState(false)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.publishReading()
		}
	}
}

// HandleCommand is the mqttbus handler for the zone's valve command topic.
// Redelivered QoS 1 payloads are dropped.
func (s *Simulator) HandleCommand(topic string, msg mqtt.Message) error {
	if !s.deduper.ShouldProcessPayload(msg.Payload()) {
		return nil
	}

	var cmd device.ValveCommand
	if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
		log.Printf("sim %s: bad command on %s: %v", s.zone, topic, err)
		return nil
	}

	switch cmd.State {
	case device.ValveOpen:
		s.setValve(true)
		if cmd.DurationMin > 0 {
			s.scheduleClose(time.Duration(cmd.DurationMin) * time.Minute)
		}
	case device.ValveClosed:
		s.setValve(false)
	default:
		log.Printf("sim %s: unknown valve state %q", s.zone, cmd.State)
	}
	return nil
}

func (s *Simulator) setValve(open bool) {
	s.mu.Lock()
	if s.autoClose != nil {
		s.autoClose.Stop()
		s.autoClose = nil
	}
	s.mu.Unlock()

	s.generator.SetValve(open)
	s.reportState(open)
	log.Printf("sim %s: valve open=%v", s.zone, open)
}

// scheduleClose arms the timed valve's own backstop.
func (s *Simulator) scheduleClose(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoClose = time.AfterFunc(d, func() { s.setValve(false) })
}

func (s *Simulator) publishReading() {
	reading := device.MoistureReading{
		Zone:      s.zone,
		Moisture:  s.generator.Next(),
		Timestamp: time.Now().UTC(),
	}
	b, err := json.Marshal(reading)
	if err != nil {
		return
	}
	if err := s.readings.PublishQoS(1, false, string(b)); err != nil {
		log.Printf("sim %s: publish reading: %v", s.zone, err)
	}
}

func (s *Simulator) reportState(open bool) {
	st := device.ValveOpen
	if !open {
		st = device.ValveClosed
	}
	b, err := json.Marshal(map[string]any{"zone": s.zone, "state": st})
	if err != nil {
		return
	}
	if err := s.states.PublishQoS(1, true, string(b)); err != nil {
		log.Printf("sim %s: publish state: %v", s.zone, err)
	}
}
