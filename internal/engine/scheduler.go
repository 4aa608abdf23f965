package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/AndySymons/GAIL-Garden-irrigation-system/internal/device"
	"github.com/AndySymons/GAIL-Garden-irrigation-system/internal/metrics"
	"github.com/AndySymons/GAIL-Garden-irrigation-system/internal/model"
)

// runAll resolves every zone strictly in configuration order. Zones never
// run concurrently: they share one physical timeout timer, and each zone's
// Stopping state must release it before the next zone may start. A zone
// that fails is reported and the scheduler moves on.
func (e *Engine) runAll(ctx context.Context, runID string) []model.ZoneOutcome {
	outcomes := make([]model.ZoneOutcome, 0, len(e.cfg.Zones))

	for i, z := range e.cfg.Zones {
		if ctx.Err() != nil {
			log.Printf("scheduler: run cancelled before zone %d (%s)", i+1, z.Name)
			break
		}

		// The previous zone's Stopping state should have left the timer
		// idle; anything else is a leak we clear before trusting it.
		if st := e.cfg.Timer.State(); st != device.TimerIdle {
			log.Printf("scheduler: timer %s before zone %d (%s), resetting", st, i+1, z.Name)
			if err := e.cfg.Timer.Stop(); err != nil {
				e.reportZoneError(runID, i+1, z, fmt.Errorf("reset timer: %w", err))
				continue
			}
		}

		out, err := e.runZone(ctx, z)
		if err != nil {
			if ctx.Err() != nil {
				// cancelled mid-zone; runZone already unwound best-effort
				log.Printf("scheduler: zone %d (%s) interrupted: %v", i+1, z.Name, err)
				break
			}
			e.reportZoneError(runID, i+1, z, err)
			continue
		}

		outcomes = append(outcomes, out)
		e.notifier.Notify(notifyTitle, runPreamble(runID), outcomeMessage(i+1, z, out))
		if e.events != nil {
			e.events.PublishOutcome(runID, out)
		}
		metrics.ZoneOutcomes.WithLabelValues(z.Name, string(out.Reason)).Inc()
		if out.Watered() {
			metrics.WateringSeconds.WithLabelValues(z.Name).Add(out.WateredFor.Seconds())
		}
	}

	return outcomes
}

func (e *Engine) reportZoneError(runID string, index int, z ZoneConfig, err error) {
	log.Printf("scheduler: zone %d (%s) failed: %v", index, z.Name, err)
	e.notifier.Notify(notifyTitle, runPreamble(runID),
		fmt.Sprintf("Zone %d (%s) failed: %v", index, z.Name, err))
	metrics.ZoneErrors.WithLabelValues(z.Name).Inc()
}

// outcomeMessage renders the per-zone notification. The zone index is
// 1-based here and nowhere else.
func outcomeMessage(index int, z ZoneConfig, out model.ZoneOutcome) string {
	watered := out.WateredFor.Round(time.Second)
	switch out.Reason {
	case model.OutcomeSkipped:
		return fmt.Sprintf("Zone %d (%s) skipped: moisture %d%% is above the %d%% threshold",
			index, z.Name, out.FinalMoisture, z.ThresholdPct)
	case model.OutcomeTargetReached:
		return fmt.Sprintf("Zone %d (%s) watered for %s: moisture target %d%% reached, now %d%%",
			index, z.Name, watered, z.TargetPct, out.FinalMoisture)
	case model.OutcomeTimedOut:
		return fmt.Sprintf("Zone %d (%s) watered for %s: stopped on timeout, moisture now %d%%",
			index, z.Name, watered, out.FinalMoisture)
	case model.OutcomeStoppedExternally:
		return fmt.Sprintf("Zone %d (%s) stopped externally after %s, moisture now %d%%",
			index, z.Name, watered, out.FinalMoisture)
	default:
		return fmt.Sprintf("Zone %d (%s) finished with moisture %d%%", index, z.Name, out.FinalMoisture)
	}
}
