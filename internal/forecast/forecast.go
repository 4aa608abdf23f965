// Package forecast supplies the daily precipitation forecast the global
// suppression gate consumes.
package forecast

import (
	"context"
	"fmt"
)

// Location identifies where the garden is.
type Location struct {
	Latitude  float64
	Longitude float64
}

// Day is one day of the forecast sequence. Index 0 of a sequence is today,
// index 1 is tomorrow.
type Day struct {
	PrecipitationMM float64
}

// Provider returns the ordered daily forecast for a location.
type Provider interface {
	Daily(ctx context.Context, loc Location) ([]Day, error)
}

// Tomorrow extracts index 1 of a daily sequence. A sequence without tomorrow
// is a hard error: watering decisions must not silently proceed without
// forecast data.
func Tomorrow(days []Day) (Day, error) {
	if len(days) < 2 {
		return Day{}, fmt.Errorf("forecast has %d day(s), need tomorrow (index 1)", len(days))
	}
	return days[1], nil
}
