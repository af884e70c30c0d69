package config

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	alerts "hvac-cloud/internal/alerts/domain"
	telemetry "hvac-cloud/internal/telemetry/domain"
)

// ZoneConfig describes one hydronic zone in the installation.
type ZoneConfig struct {
	ID         string  `yaml:"id"`
	Name       string  `yaml:"name"`
	Area       string  `yaml:"area"`
	Kind       string  `yaml:"kind"`
	DefaultGPM float64 `yaml:"default_gpm"`
}

// MeterConfig describes one BTU meter package.
type MeterConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// PumpConfig describes one circulator pump.
type PumpConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// ThresholdOverrides carries anomaly threshold knobs from the config file.
// Zero fields keep the documented defaults; the stale threshold is in
// milliseconds.
type ThresholdOverrides struct {
	MinPressure      float64 `yaml:"min_pressure"`
	MaxPressure      float64 `yaml:"max_pressure"`
	MinDeltaT        float64 `yaml:"min_delta_t"`
	MaxDeltaT        float64 `yaml:"max_delta_t"`
	MinCop           float64 `yaml:"min_cop"`
	StaleThresholdMs int     `yaml:"stale_threshold_ms"`
	RetentionMinutes int     `yaml:"retention_minutes"`
}

// Config is the system configuration: equipment catalog plus detector
// thresholds.
type Config struct {
	Zones      []ZoneConfig       `yaml:"zones"`
	Meters     []MeterConfig      `yaml:"meters"`
	Pumps      []PumpConfig       `yaml:"pumps"`
	Thresholds ThresholdOverrides `yaml:"thresholds"`
}

// Load builds the configuration from built-in defaults, optionally merged
// with a YAML file named by HVAC_CONFIG.
func Load() (Config, error) {
	cfg := Config{
		Zones:  defaultZones(),
		Meters: defaultMeters(),
		Pumps:  defaultPumps(),
	}

	if path := os.Getenv("HVAC_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		var override Config
		if err := yaml.Unmarshal(data, &override); err != nil {
			return cfg, err
		}
		if len(override.Zones) > 0 {
			cfg.Zones = override.Zones
		}
		if len(override.Meters) > 0 {
			cfg.Meters = override.Meters
		}
		if len(override.Pumps) > 0 {
			cfg.Pumps = override.Pumps
		}
		cfg.Thresholds = override.Thresholds
	}

	if len(cfg.Zones) == 0 {
		return cfg, errors.New("config: no zones defined")
	}
	for _, zone := range cfg.Zones {
		if zone.ID == "" {
			return cfg, errors.New("config: zone with empty id")
		}
		if _, ok := zoneKind(zone.Kind); !ok {
			return cfg, errors.New("config: unknown zone kind " + zone.Kind)
		}
	}
	return cfg, nil
}

// AnomalyThresholds merges the file overrides over the documented defaults.
func (c Config) AnomalyThresholds() alerts.Thresholds {
	th := alerts.DefaultThresholds()
	o := c.Thresholds
	if o.MinPressure != 0 {
		th.MinPressure = o.MinPressure
	}
	if o.MaxPressure != 0 {
		th.MaxPressure = o.MaxPressure
	}
	if o.MinDeltaT != 0 {
		th.MinDeltaT = o.MinDeltaT
	}
	if o.MaxDeltaT != 0 {
		th.MaxDeltaT = o.MaxDeltaT
	}
	if o.MinCop != 0 {
		th.MinCop = o.MinCop
	}
	if o.StaleThresholdMs != 0 {
		th.StaleThreshold = time.Duration(o.StaleThresholdMs) * time.Millisecond
	}
	return th
}

// Retention returns the resolved-alert retention window override, or zero
// to keep the detector default.
func (c Config) Retention() time.Duration {
	if c.Thresholds.RetentionMinutes > 0 {
		return time.Duration(c.Thresholds.RetentionMinutes) * time.Minute
	}
	return 0
}

// ZoneReadings seeds initial zone state from the catalog.
func (c Config) ZoneReadings() []telemetry.ZoneReading {
	zones := make([]telemetry.ZoneReading, 0, len(c.Zones))
	for _, zc := range c.Zones {
		kind, _ := zoneKind(zc.Kind)
		zones = append(zones, telemetry.ZoneReading{
			ID:   zc.ID,
			Name: zc.Name,
			Area: zc.Area,
			Kind: kind,
			GPM:  zc.DefaultGPM,
		})
	}
	return zones
}

// MeterStates seeds initial meter state; meters start offline until the
// first status report arrives.
func (c Config) MeterStates() []telemetry.MeterState {
	meters := make([]telemetry.MeterState, 0, len(c.Meters))
	for _, mc := range c.Meters {
		meters = append(meters, telemetry.MeterState{
			ID:     mc.ID,
			Name:   mc.Name,
			Status: telemetry.StatusOffline,
		})
	}
	return meters
}

// PumpStates seeds initial pump state.
func (c Config) PumpStates() []telemetry.PumpState {
	pumps := make([]telemetry.PumpState, 0, len(c.Pumps))
	for _, pc := range c.Pumps {
		pumps = append(pumps, telemetry.PumpState{ID: pc.ID, Name: pc.Name})
	}
	return pumps
}

func zoneKind(value string) (telemetry.ZoneKind, bool) {
	switch telemetry.ZoneKind(value) {
	case telemetry.ZoneAirHandler, telemetry.ZoneSnowMelt, telemetry.ZoneHeatPump:
		return telemetry.ZoneKind(value), true
	default:
		return "", false
	}
}

func defaultZones() []ZoneConfig {
	return []ZoneConfig{
		{ID: "heatpump", Name: "Heat Pump", Area: "main-house", Kind: string(telemetry.ZoneHeatPump), DefaultGPM: 8.0},
		{ID: "ahu1", Name: "AHU 1 - Main House", Area: "main-house", Kind: string(telemetry.ZoneAirHandler), DefaultGPM: 3.0},
		{ID: "ahu2", Name: "AHU 2 - Garage", Area: "garage", Kind: string(telemetry.ZoneAirHandler), DefaultGPM: 2.5},
		{ID: "ahu3", Name: "AHU 3 - Studio", Area: "studio", Kind: string(telemetry.ZoneAirHandler), DefaultGPM: 2.5},
		{ID: "snowmelt", Name: "Snow Melt", Area: "snow-melt", Kind: string(telemetry.ZoneSnowMelt), DefaultGPM: 4.0},
	}
}

func defaultMeters() []MeterConfig {
	return []MeterConfig{
		{ID: "hp-meter", Name: "Heat Pump Meter"},
		{ID: "ahu1-meter", Name: "AHU 1 Meter"},
		{ID: "ahu2-meter", Name: "AHU 2 Meter"},
		{ID: "ahu3-meter", Name: "AHU 3 Meter"},
		{ID: "snow-meter", Name: "Snow Melt Meter"},
	}
}

func defaultPumps() []PumpConfig {
	return []PumpConfig{
		{ID: "pump-main", Name: "Main Loop"},
		{ID: "pump1", Name: "AHU 1"},
		{ID: "pump2", Name: "AHU 2/3"},
		{ID: "pump3", Name: "Snow Melt"},
	}
}
