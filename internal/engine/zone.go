package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/AndySymons/GAIL-Garden-irrigation-system/internal/device"
	"github.com/AndySymons/GAIL-Garden-irrigation-system/internal/model"
)

// runZone drives a single zone through the controller state machine:
// Evaluating -> {Skipped | Watering} -> Stopping -> Done. An error means an
// actuator or timer failed; watering state, if entered, has been unwound
// best-effort before returning.
func (e *Engine) runZone(ctx context.Context, z ZoneConfig) (model.ZoneOutcome, error) {
	// Evaluating
	current := z.Sensor.ReadMoisture(ctx)
	if current > z.ThresholdPct {
		log.Printf("zone %s: skip, moisture %d%% above threshold %d%%", z.Name, current, z.ThresholdPct)
		return model.ZoneOutcome{Zone: z.Name, Reason: model.OutcomeSkipped, FinalMoisture: current}, nil
	}

	// Watering entry: pick the effective duration, start the shared timer,
	// then open the valve. The timer starts first so a valve that opens can
	// never run unbounded.
	effective := z.MaxDuration
	if !model.SensorFunctional(current) {
		log.Printf("zone %s: probe reads %d%%, treating as non-functional, using default duration %s",
			z.Name, current, z.DefaultDuration)
		effective = z.DefaultDuration
	}

	if err := e.cfg.Timer.Start(effective); err != nil {
		return model.ZoneOutcome{}, fmt.Errorf("start timeout timer: %w", err)
	}
	if err := e.openValve(ctx, z, effective); err != nil {
		if serr := e.cfg.Timer.Stop(); serr != nil {
			log.Printf("zone %s: stop timer after failed open: %v", z.Name, serr)
		}
		return model.ZoneOutcome{}, fmt.Errorf("open valve: %w", err)
	}
	openedAt := time.Now()
	log.Printf("zone %s: watering, moisture %d%% <= threshold %d%%, target %d%%, up to %s",
		z.Name, current, z.ThresholdPct, z.TargetPct, effective)

	reason, final, monitorErr := e.monitor(ctx, z)

	// Stopping: close the valve first (the unsafe failure mode is water
	// left running), then release the shared timer for the next zone.
	wateredFor := time.Since(openedAt)
	cleanupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	closeErr := z.Valve.Close(cleanupCtx)
	stopErr := e.cfg.Timer.Stop()

	if monitorErr != nil {
		return model.ZoneOutcome{}, fmt.Errorf("watering %s: %w", z.Name, monitorErr)
	}
	if closeErr != nil {
		return model.ZoneOutcome{}, fmt.Errorf("close valve: %w", closeErr)
	}
	if stopErr != nil {
		return model.ZoneOutcome{}, fmt.Errorf("stop timeout timer: %w", stopErr)
	}

	// Done
	out := model.ZoneOutcome{Zone: z.Name, Reason: reason, FinalMoisture: final, WateredFor: wateredFor}
	log.Printf("zone %s: stopped (%s), moisture %d%%, watered for %s",
		z.Name, reason, final, wateredFor.Round(time.Second))
	return out, nil
}

// openValve issues the variant-appropriate open command. The timed variant
// opens for one minute longer than the engine's own timer, so the physical
// valve is never the first thing to close; it is only the backstop if this
// process dies with the water running.
func (e *Engine) openValve(ctx context.Context, z ZoneConfig, effective time.Duration) error {
	if e.cfg.ValveKind == model.ValveTimed {
		tv, ok := z.Valve.(device.TimedValve)
		if !ok {
			return fmt.Errorf("zone %q valve does not support timed opens", z.Name)
		}
		return tv.OpenFor(ctx, effective+time.Minute)
	}
	return z.Valve.Open(ctx)
}

// monitor polls the three independent stop predicates until one holds. More
// than one can be true at the same poll; classification order is fixed:
// target reached beats timeout beats external stop.
func (e *Engine) monitor(ctx context.Context, z ZoneConfig) (model.OutcomeReason, int, error) {
	// Settle delay: the actuator's reported state lags the command just
	// issued; polling immediately would read the valve as still closed.
	if err := sleepCtx(ctx, e.cfg.SettleDelay); err != nil {
		return "", 0, err
	}

	for {
		current := z.Sensor.ReadMoisture(ctx)
		valveState, err := z.Valve.State(ctx)
		if err != nil {
			return "", current, fmt.Errorf("read valve state: %w", err)
		}
		timerState := e.cfg.Timer.State()

		switch {
		case current >= z.TargetPct:
			return model.OutcomeTargetReached, current, nil
		case timerState == device.TimerIdle:
			// idle is the timer's at-rest state; observed here, after we
			// started it, it means expiry.
			return model.OutcomeTimedOut, current, nil
		case valveState == device.ValveClosed:
			return model.OutcomeStoppedExternally, current, nil
		}

		if err := sleepCtx(ctx, e.cfg.PollInterval); err != nil {
			return "", current, err
		}
	}
}
