package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/AndySymons/GAIL-Garden-irrigation-system/internal/config"
	"github.com/AndySymons/GAIL-Garden-irrigation-system/internal/device"
	"github.com/AndySymons/GAIL-Garden-irrigation-system/internal/engine"
	"github.com/AndySymons/GAIL-Garden-irrigation-system/internal/forecast"
	"github.com/AndySymons/GAIL-Garden-irrigation-system/internal/model"
	"github.com/AndySymons/GAIL-Garden-irrigation-system/internal/notify"
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

func main() {
	configPath := flag.String("config", "/etc/irrigationd/garden.yaml", "path to the garden YAML config")
	oneshot := flag.Bool("oneshot", false, "run one decision cycle and exit (for cron-style triggers)")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	owmKey := os.Getenv("OWM_API_KEY")
	if owmKey == "" {
		log.Fatalf("OWM_API_KEY is required")
	}
	provider := forecast.NewOWMClient(owmKey)

	sensorSource := env("SENSOR_SOURCE", "mqtt") // mqtt | influx
	valveBackend := env("VALVE_BACKEND", "mqtt") // mqtt | gpio
	notifyTopic := env("NOTIFY_TOPIC", "garden/notification")
	eventTopic := env("EVENT_TOPIC", "garden/event/irrigation")

	var mqClient mqtt.Client
	if sensorSource == "mqtt" || valveBackend == "mqtt" || notifyTopic != "" || eventTopic != "" {
		bus := &mqttbus.Config{
			Host:     env("MQTT_HOST", "localhost"),
			Port:     envInt("MQTT_PORT", 1883),
			User:     env("MQTT_USER", "guest"),
			Password: env("MQTT_PASSWORD", "guest"),
			ClientID: fmt.Sprintf("irrigationd-%s", env("HOSTNAME", "local")),
		}
		mqClient, err = mqttbus.Connect(ctx, bus)
		if err != nil {
			log.Fatalf("MQTT connect failed: %v", err)
		}
	}

	sensors, err := buildSensors(ctx, cfg, sensorSource, mqClient)
	if err != nil {
		log.Fatalf("sensor setup failed: %v", err)
	}
	valves, err := buildValves(ctx, cfg, valveBackend, mqClient)
	if err != nil {
		log.Fatalf("valve setup failed: %v", err)
	}

	notifier := notify.Notifier(notify.LogNotifier{})
	if mqClient != nil && notifyTopic != "" {
		notifier = notify.Multi{
			notify.LogNotifier{},
			notify.NewMQTTNotifier(mqttbus.NewPublisher(mqClient, notifyTopic)),
		}
	}

	zones := make([]engine.ZoneConfig, 0, len(cfg.Zones))
	for i, z := range cfg.Zones {
		zones = append(zones, engine.ZoneConfig{
			Name:            z.Name,
			Valve:           valves[i],
			Sensor:          sensors[i],
			ThresholdPct:    z.ThresholdPct,
			TargetPct:       z.TargetPct,
			MaxDuration:     time.Duration(z.MaxMinutes) * time.Minute,
			DefaultDuration: time.Duration(z.DefaultMinutes) * time.Minute,
		})
	}

	eng, err := engine.New(engine.Config{
		Zones:     zones,
		ValveKind: model.ValveKind(cfg.ValveKind),
		Timer:     device.NewLocalTimer(),
		Location: forecast.Location{
			Latitude:  cfg.Location.Latitude,
			Longitude: cfg.Location.Longitude,
		},
		MinForecastMM: cfg.MinForecastMM,
		PollInterval:  cfg.PollInterval(),
		SettleDelay:   cfg.SettleDelay(),
	}, provider, notifier)
	if err != nil {
		log.Fatalf("engine init: %v", err)
	}
	if mqClient != nil && eventTopic != "" {
		eng.SetOutcomeSink(notify.NewOutcomePublisher(mqttbus.NewPublisher(mqClient, eventTopic)))
	}

	runner := newRunner(ctx, eng)

	if *oneshot {
		if _, err := runner.Run(ctx); err != nil {
			log.Fatalf("run failed: %v", err)
		}
		return
	}

	srv := newServer(env("HTTP_ADDR", ":8080"), runner, mqClient)
	go func() {
		log.Printf("irrigationd: listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server: %v", err)
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	<-sigc
	cancel()

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
}

// buildSensors returns one MoistureSensor per configured zone, in zone order.
func buildSensors(ctx context.Context, cfg *config.Config, source string, mqClient mqtt.Client) ([]device.MoistureSensor, error) {
	switch source {
	case "mqtt":
		if mqClient == nil {
			return nil, errors.New("mqtt sensor source needs a broker connection")
		}
		cache := device.NewMoistureCache()
		topic := env("SENSOR_TOPIC", "garden/sensor/#")
		consumer := mqttbus.NewConsumer(mqClient, topic, 1, cache.Handle)
		go consumer.Consume(ctx)

		out := make([]device.MoistureSensor, 0, len(cfg.Zones))
		for _, z := range cfg.Zones {
			out = append(out, cache.Sensor(z.Sensor))
		}
		return out, nil

	case "influx":
		src := device.NewInfluxMoistureSource(influxClient(),
			env("INFLUX_ORG", "garden"),
			env("INFLUX_BUCKET", "sensors"),
			env("INFLUX_MEASUREMENT", "soil_moisture"))
		out := make([]device.MoistureSensor, 0, len(cfg.Zones))
		for _, z := range cfg.Zones {
			out = append(out, src.Sensor(z.Sensor))
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unknown sensor source %q", source)
	}
}

// buildValves returns one Valve per configured zone, in zone order. The MQTT
// backend also starts the consumer that keeps the reported-state cache fresh.
func buildValves(ctx context.Context, cfg *config.Config, backend string, mqClient mqtt.Client) ([]device.Valve, error) {
	switch backend {
	case "mqtt":
		if mqClient == nil {
			return nil, errors.New("mqtt valve backend needs a broker connection")
		}
		states := device.NewValveStateCache()
		stateTopic := env("VALVE_STATE_TOPIC", "garden/valve/state/#")
		consumer := mqttbus.NewConsumer(mqClient, stateTopic, 1, states.Handle)
		go consumer.Consume(ctx)

		commandRoot := env("VALVE_COMMAND_TOPIC", "garden/valve/command")
		out := make([]device.Valve, 0, len(cfg.Zones))
		for _, z := range cfg.Zones {
			pub := mqttbus.NewPublisher(mqClient, commandRoot+"/"+z.Valve)
			out = append(out, device.NewMQTTValve(pub, states, z.Valve))
		}
		return out, nil

	case "gpio":
		out := make([]device.Valve, 0, len(cfg.Zones))
		for _, z := range cfg.Zones {
			chip, offset, err := parseGPIORef(z.Valve)
			if err != nil {
				return nil, fmt.Errorf("zone %q: %w", z.Name, err)
			}
			v, err := device.NewGPIOValve(chip, offset)
			if err != nil {
				return nil, fmt.Errorf("zone %q: %w", z.Name, err)
			}
			out = append(out, v)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unknown valve backend %q", backend)
	}
}
