// Package sim provides a soil moisture simulator for exercising the engine
// against a live MQTT broker without garden hardware. Each simulated zone
// dries slowly, wets while its valve is open, and honours timed open commands.
package sim

import (
	"math"
	"sync"
	"time"
)

// Tunables, in moisture percentage points per minute.
const (
	defaultGainPerMin  = 0.6
	defaultDecayPerMin = 0.1
)

// Generator evolves one zone's moisture over time. Moisture rises while the
// valve is open and decays while it is closed.
type Generator struct {
	mu          sync.Mutex
	moisture    float64 // 0..100
	last        time.Time
	valveOpen   bool
	gainPerMin  float64
	decayPerMin float64
}

// NewGenerator seeds a zone at the given starting moisture percentage.
func NewGenerator(seedPct float64) *Generator {
	return &Generator{
		moisture:    clampPct(seedPct),
		last:        time.Now().UTC(),
		gainPerMin:  defaultGainPerMin,
		decayPerMin: defaultDecayPerMin,
	}
}

// SetValve records the valve state the next advance integrates over.
func (g *Generator) SetValve(open bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.advanceLocked(time.Now().UTC())
	g.valveOpen = open
}

// Next advances the simulation to now and returns the moisture percentage.
func (g *Generator) Next() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.advanceLocked(time.Now().UTC())
	return int(math.Round(g.moisture))
}

func (g *Generator) advanceLocked(now time.Time) {
	minutes := now.Sub(g.last).Minutes()
	if minutes < 0 {
		minutes = 0
	}
	if g.valveOpen {
		g.moisture += g.gainPerMin * minutes
	} else {
		g.moisture -= g.decayPerMin * minutes
	}
	g.moisture = clampPct(g.moisture)
	g.last = now
}

func clampPct(v float64) float64 {
	return math.Min(100, math.Max(0, v))
}
