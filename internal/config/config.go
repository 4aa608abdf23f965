// Package config loads the garden description from a YAML file. Everything
// here is validated before any actuator is touched; an inconsistent file
// aborts the daemon at startup.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Zone describes one irrigation zone. Valve and Sensor are backend-specific
// references: the MQTT backend uses them as the id segment appended to the
// command, state and reading topic roots, the GPIO backend parses the valve
// reference as a chip:offset pair, and the influx source uses the sensor
// reference as the zone tag value.
type Zone struct {
	Name           string `yaml:"name"`
	Valve          string `yaml:"valve"`
	Sensor         string `yaml:"sensor"`
	ThresholdPct   int    `yaml:"thresholdPct"`
	TargetPct      int    `yaml:"targetPct"`
	MaxMinutes     int    `yaml:"maxMinutes"`
	DefaultMinutes int    `yaml:"defaultMinutes"`
}

type Location struct {
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
}

type Config struct {
	Zones []Zone `yaml:"zones"`

	// ValveKind selects the actuator capability: "switch" or "timed".
	ValveKind string `yaml:"valveKind"`

	// MinForecastMM suppresses the run when tomorrow's rain exceeds it.
	MinForecastMM float64 `yaml:"minForecastMM"`

	Location Location `yaml:"location"`

	// PollSeconds and SettleSeconds tune the monitoring loop; both default
	// to 60.
	PollSeconds   int `yaml:"pollSeconds"`
	SettleSeconds int `yaml:"settleSeconds"`
}

// Load reads and validates a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ValveKind == "" {
		c.ValveKind = "switch"
	}
	if c.PollSeconds <= 0 {
		c.PollSeconds = 60
	}
	if c.SettleSeconds <= 0 {
		c.SettleSeconds = 60
	}
}

// Validate checks the file for the inconsistencies that must abort a run
// before it starts.
func (c *Config) Validate() error {
	if len(c.Zones) == 0 {
		return fmt.Errorf("no zones defined")
	}
	if c.ValveKind != "switch" && c.ValveKind != "timed" {
		return fmt.Errorf("valveKind %q must be switch or timed", c.ValveKind)
	}
	if c.MinForecastMM < 10 || c.MinForecastMM > 200 {
		return fmt.Errorf("minForecastMM %.1f outside the 10-200 mm convention", c.MinForecastMM)
	}
	seen := make(map[string]bool, len(c.Zones))
	for i, z := range c.Zones {
		where := fmt.Sprintf("zone %d", i+1)
		if z.Name == "" {
			return fmt.Errorf("%s: missing name", where)
		}
		where = fmt.Sprintf("zone %d (%s)", i+1, z.Name)
		if seen[z.Name] {
			return fmt.Errorf("%s: duplicate name", where)
		}
		seen[z.Name] = true
		if z.Valve == "" {
			return fmt.Errorf("%s: missing valve reference", where)
		}
		if z.Sensor == "" {
			return fmt.Errorf("%s: missing sensor reference", where)
		}
		if z.ThresholdPct < 0 || z.ThresholdPct > 100 {
			return fmt.Errorf("%s: thresholdPct %d outside 0-100", where, z.ThresholdPct)
		}
		if z.TargetPct < 0 || z.TargetPct > 100 {
			return fmt.Errorf("%s: targetPct %d outside 0-100", where, z.TargetPct)
		}
		if z.MaxMinutes <= 0 {
			return fmt.Errorf("%s: maxMinutes must be positive", where)
		}
		if z.DefaultMinutes <= 0 {
			return fmt.Errorf("%s: defaultMinutes must be positive", where)
		}
	}
	return nil
}

// PollInterval returns the monitoring cadence as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollSeconds) * time.Second
}

// SettleDelay returns the post-open settle wait as a duration.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.SettleSeconds) * time.Second
}
