package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/AndySymons/GAIL-Garden-irrigation-system/internal/sim"
	"github.com/AndySymons/GAIL-Garden-irrigation-system/pkg/mqttbus"
)

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

// parseZones reads "lawn=35,beds=25" into zone name -> seed moisture pairs.
func parseZones(spec string) (map[string]float64, error) {
	out := make(map[string]float64)
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, seedStr, ok := strings.Cut(part, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("bad zone spec %q, want name=seedPct", part)
		}
		seed, err := strconv.ParseFloat(seedStr, 64)
		if err != nil {
			return nil, fmt.Errorf("bad seed in %q: %w", part, err)
		}
		out[name] = seed
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no zones in %q", spec)
	}
	return out, nil
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zones, err := parseZones(env("SIM_ZONES", "lawn=35,beds=25"))
	if err != nil {
		log.Fatalf("zone spec: %v", err)
	}

	bus := &mqttbus.Config{
		Host:     env("MQTT_HOST", "localhost"),
		Port:     envInt("MQTT_PORT", 1883),
		User:     env("MQTT_USER", "guest"),
		Password: env("MQTT_PASSWORD", "guest"),
		ClientID: fmt.Sprintf("sensorsim-%s", env("HOSTNAME", "local")),
	}
	client, err := mqttbus.Connect(ctx, bus)
	if err != nil {
		log.Fatalf("MQTT connect failed: %v", err)
	}

	sensorRoot := env("SENSOR_TOPIC_ROOT", "garden/sensor")
	stateRoot := env("VALVE_STATE_TOPIC_ROOT", "garden/valve/state")
	commandRoot := env("VALVE_COMMAND_TOPIC_ROOT", "garden/valve/command")
	interval := time.Duration(envInt("SIM_INTERVAL_SECONDS", 15)) * time.Second

	for name, seed := range zones {
		s := sim.NewSimulator(name,
			sim.NewGenerator(seed),
			mqttbus.NewPublisher(client, sensorRoot+"/"+name),
			mqttbus.NewPublisher(client, stateRoot+"/"+name))
		consumer := mqttbus.NewConsumer(client, commandRoot+"/"+name, 1, s.HandleCommand)
		go consumer.Consume(ctx)
		go s.Run(ctx, interval)
		log.Printf("sensorsim: zone %s seeded at %.0f%%", name, seed)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	<-sigc
	cancel()
}
