// Package engine implements the irrigation decision and zone control logic:
// the global suppression gate, the sequential zone scheduler, and the
// per-zone controller that supervises a watering session from valve open to
// a terminating condition.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/AndySymons/GAIL-Garden-irrigation-system/internal/device"
	"github.com/AndySymons/GAIL-Garden-irrigation-system/internal/forecast"
	"github.com/AndySymons/GAIL-Garden-irrigation-system/internal/metrics"
	"github.com/AndySymons/GAIL-Garden-irrigation-system/internal/model"
	"github.com/AndySymons/GAIL-Garden-irrigation-system/internal/notify"
)

const notifyTitle = "Garden watering"

// ZoneConfig is the immutable description of one irrigation zone, bound to
// its actuator and sensor handles for the duration of a run.
type ZoneConfig struct {
	Name   string
	Valve  device.Valve
	Sensor device.MoistureSensor

	// ThresholdPct is the moisture at or below which watering may start.
	ThresholdPct int
	// TargetPct is the moisture at which watering stops. The engine never
	// assumes TargetPct > ThresholdPct; each bound is compared on its own.
	TargetPct int

	// MaxDuration bounds a session when the probe is working;
	// DefaultDuration is used instead when it is not.
	MaxDuration     time.Duration
	DefaultDuration time.Duration
}

// Config parametrizes one daily run. It is constructed at run start and
// never reconfigured mid-run.
type Config struct {
	Zones     []ZoneConfig
	ValveKind model.ValveKind

	// Timer is the single physical timeout timer, reused strictly
	// sequentially across zones.
	Timer device.TimeoutTimer

	Location forecast.Location
	// MinForecastMM suppresses the run when tomorrow's forecast
	// precipitation exceeds it. Convention allows 10-200 mm.
	MinForecastMM float64

	// PollInterval is the monitoring cadence; SettleDelay is waited after
	// the open command so the actuator's reported state catches up. Both
	// default to a minute, matching how slowly soil moisture moves.
	PollInterval time.Duration
	SettleDelay  time.Duration
}

// OutcomeSink receives machine-readable run and zone events. Implementations
// must not block the engine or surface delivery failures.
type OutcomeSink interface {
	PublishOutcome(runID string, out model.ZoneOutcome)
	PublishRunEvent(runID, kind, reason string)
}

// Engine runs the daily irrigation decision for a configured garden.
type Engine struct {
	cfg      Config
	forecast forecast.Provider
	notifier notify.Notifier
	events   OutcomeSink
}

// New validates the configuration and builds an engine. Validation failures
// are fatal before any actuator is touched.
func New(cfg Config, provider forecast.Provider, notifier notify.Notifier) (*Engine, error) {
	if provider == nil {
		return nil, errors.New("forecast provider is nil")
	}
	if notifier == nil {
		return nil, errors.New("notifier is nil")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Minute
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = time.Minute
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("run config: %w", err)
	}
	return &Engine{cfg: cfg, forecast: provider, notifier: notifier}, nil
}

// SetOutcomeSink wires an optional event sink.
func (e *Engine) SetOutcomeSink(sink OutcomeSink) {
	e.events = sink
}

func validate(cfg Config) error {
	if len(cfg.Zones) == 0 {
		return errors.New("no zones configured")
	}
	if cfg.Timer == nil {
		return errors.New("timeout timer is nil")
	}
	if !cfg.ValveKind.Valid() {
		return fmt.Errorf("unknown valve kind %q", cfg.ValveKind)
	}
	if cfg.MinForecastMM < 10 || cfg.MinForecastMM > 200 {
		return fmt.Errorf("minimum forecast precipitation %.1f mm outside the 10-200 mm convention", cfg.MinForecastMM)
	}
	seen := make(map[string]bool, len(cfg.Zones))
	for i, z := range cfg.Zones {
		if z.Name == "" {
			return fmt.Errorf("zone %d has no name", i+1)
		}
		if seen[z.Name] {
			return fmt.Errorf("duplicate zone name %q", z.Name)
		}
		seen[z.Name] = true
		if z.Valve == nil {
			return fmt.Errorf("zone %q has no valve", z.Name)
		}
		if cfg.ValveKind == model.ValveTimed {
			if _, ok := z.Valve.(device.TimedValve); !ok {
				return fmt.Errorf("zone %q valve does not support timed opens", z.Name)
			}
		}
		if z.Sensor == nil {
			return fmt.Errorf("zone %q has no sensor", z.Name)
		}
		if z.ThresholdPct < 0 || z.ThresholdPct > 100 {
			return fmt.Errorf("zone %q threshold %d%% outside 0-100", z.Name, z.ThresholdPct)
		}
		if z.TargetPct < 0 || z.TargetPct > 100 {
			return fmt.Errorf("zone %q target %d%% outside 0-100", z.Name, z.TargetPct)
		}
		if z.MaxDuration <= 0 || z.DefaultDuration <= 0 {
			return fmt.Errorf("zone %q watering durations must be positive", z.Name)
		}
	}
	return nil
}

// Run executes one daily decision cycle: gate, then each zone in order.
// The returned outcomes cover zones that completed a session; a run that
// was suppressed returns no outcomes and no error.
func (e *Engine) Run(ctx context.Context) ([]model.ZoneOutcome, error) {
	runID := uuid.NewString()
	started := time.Now()
	defer func() {
		metrics.RunDuration.Observe(time.Since(started).Seconds())
	}()

	log.Printf("engine: run %s starting, %d zone(s)", shortID(runID), len(e.cfg.Zones))
	e.notifier.Notify(notifyTitle, runPreamble(runID),
		fmt.Sprintf("Watering considered at %s for %d zone(s)", started.Format(time.RFC1123), len(e.cfg.Zones)))
	e.event(runID, "started", "")

	suppress, reason, err := e.shouldSuppress(ctx)
	if err != nil {
		log.Printf("engine: run %s abandoned: %v", shortID(runID), err)
		e.notifier.Notify(notifyTitle, runPreamble(runID), "Watering abandoned: "+err.Error())
		e.event(runID, "failed", err.Error())
		metrics.RunsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}
	if suppress {
		log.Printf("engine: run %s suppressed: %s", shortID(runID), reason)
		e.notifier.Notify(notifyTitle, runPreamble(runID), "Watering suppressed: "+reason)
		e.event(runID, "suppressed", reason)
		metrics.RunsTotal.WithLabelValues("suppressed").Inc()
		return nil, nil
	}

	outcomes := e.runAll(ctx, runID)
	if err := ctx.Err(); err != nil {
		log.Printf("engine: run %s aborted: %v", shortID(runID), err)
		e.event(runID, "failed", err.Error())
		metrics.RunsTotal.WithLabelValues("failed").Inc()
		return outcomes, err
	}

	log.Printf("engine: run %s complete, %d zone(s) resolved", shortID(runID), len(outcomes))
	e.notifier.Notify(notifyTitle, runPreamble(runID), "Watering complete")
	e.event(runID, "completed", "")
	metrics.RunsTotal.WithLabelValues("completed").Inc()
	return outcomes, nil
}

func (e *Engine) event(runID, kind, reason string) {
	if e.events != nil {
		e.events.PublishRunEvent(runID, kind, reason)
	}
}

func runPreamble(runID string) string {
	return "run " + shortID(runID)
}

func shortID(runID string) string {
	if len(runID) > 8 {
		return runID[:8]
	}
	return runID
}

// sleepCtx suspends for d without busy-waiting, honouring cancellation.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
