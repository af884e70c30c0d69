package alerts

import "time"

// Thresholds are the named numeric knobs evaluated by the detector. All
// are overridable via configuration; defaults match the installed system.
type Thresholds struct {
	MinPressure    float64       `yaml:"min_pressure"`
	MaxPressure    float64       `yaml:"max_pressure"`
	MinDeltaT      float64       `yaml:"min_delta_t"`
	MaxDeltaT      float64       `yaml:"max_delta_t"`
	MinCop         float64       `yaml:"min_cop"`
	StaleThreshold time.Duration `yaml:"stale_threshold"`
}

// DefaultThresholds returns the documented defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinPressure:    10,
		MaxPressure:    25,
		MinDeltaT:      3,
		MaxDeltaT:      25,
		MinCop:         2.0,
		StaleThreshold: 30 * time.Second,
	}
}
