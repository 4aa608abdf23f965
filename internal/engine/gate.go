package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/AndySymons/GAIL-Garden-irrigation-system/internal/forecast"
	"github.com/AndySymons/GAIL-Garden-irrigation-system/internal/model"
)

// shouldSuppress evaluates the two system-wide suppression checks, in order,
// first true wins. A suppressed run never reaches the zone scheduler. The
// returned error means the run cannot safely decide (missing forecast data)
// and must be abandoned rather than guessed.
func (e *Engine) shouldSuppress(ctx context.Context) (bool, string, error) {
	// Check 1: every zone already at or above its threshold. A non-functional
	// probe counts as 0 here, so it can never satisfy "at or above threshold"
	// no matter how low the threshold sits. Fail-open, on purpose: the same
	// probe later selects the bounded default duration instead. Change one
	// side of that pairing and the other stops making sense.
	allSufficient := true
	for _, z := range e.cfg.Zones {
		current := z.Sensor.ReadMoisture(ctx)
		if !model.SensorFunctional(current) {
			current = 0
		}
		if current < z.ThresholdPct {
			allSufficient = false
			break
		}
	}
	if allSufficient {
		return true, "soil moisture already sufficient in every zone", nil
	}

	// Check 2: enough rain forecast for tomorrow. Index 0 is today; the
	// decision is about whether nature waters the garden before the next
	// daily run.
	days, err := e.forecast.Daily(ctx, e.cfg.Location)
	if err != nil {
		return false, "", fmt.Errorf("fetch forecast: %w", err)
	}
	tomorrow, err := forecast.Tomorrow(days)
	if err != nil {
		return false, "", err
	}
	log.Printf("gate: tomorrow's forecast precipitation %.1f mm (minimum %.1f mm)",
		tomorrow.PrecipitationMM, e.cfg.MinForecastMM)
	if tomorrow.PrecipitationMM > e.cfg.MinForecastMM {
		return true, fmt.Sprintf("%.1f mm of rain forecast for tomorrow", tomorrow.PrecipitationMM), nil
	}

	return false, "", nil
}
