package telemetry

import "time"

// Mode is the system operating mode. Inferred modes are advisory, not a
// measured signal.
type Mode string

const (
	ModeHeating Mode = "heating"
	ModeCooling Mode = "cooling"
	ModeStandby Mode = "standby"
	ModeDefrost Mode = "defrost"
)

// Mode inference fallback thresholds, used only absent an authoritative
// mode signal from the heat pump.
const (
	modeBtuThreshold    = 1000
	modeSupplyThreshold = 100
)

// SystemAggregate is a full projection over the current zone set and power
// input. It is recomputed from scratch each cycle and has no lifecycle of
// its own.
type SystemAggregate struct {
	TotalBtu     float64  `json:"total_btu"`
	TotalGpm     float64  `json:"total_gpm"`
	TotalPowerKw *float64 `json:"total_power_kw"`
	LiveCop      *float64 `json:"live_cop"`
	DailyCop     *float64 `json:"daily_cop"`
	OutdoorTemp  *float64 `json:"outdoor_temp"`
	Mode         Mode     `json:"mode"`
}

// Aggregate combines per-zone state into system-wide totals. Zones failing
// the Contributing predicate add 0 to both totals; nil never propagates
// into a sum. DailyCop is an externally maintained rolling value passed
// through unchanged.
func Aggregate(zones []ZoneReading, powerKw, outdoorTemp, dailyCop *float64) SystemAggregate {
	var totalBtu, totalGpm float64
	var supply *float64
	for _, zone := range zones {
		if zone.Kind == ZoneHeatPump && zone.SupplyTemp != nil {
			supply = zone.SupplyTemp
		}
		if !zone.Contributing() {
			continue
		}
		totalBtu += *zone.BtuPerHour
		totalGpm += zone.GPM
	}

	return SystemAggregate{
		TotalBtu:     totalBtu,
		TotalGpm:     totalGpm,
		TotalPowerKw: powerKw,
		LiveCop:      COP(Float(totalBtu), powerKw),
		DailyCop:     dailyCop,
		OutdoorTemp:  outdoorTemp,
		Mode:         InferMode(totalBtu, supply),
	}
}

// InferMode guesses the operating mode from heat output and the
// representative supply temperature (the heat pump's, when known).
func InferMode(totalBtu float64, supply *float64) Mode {
	if totalBtu <= modeBtuThreshold {
		return ModeStandby
	}
	if supply != nil && *supply > modeSupplyThreshold {
		return ModeHeating
	}
	return ModeCooling
}

// Snapshot is the read-only view of current system state handed to
// consumers. Consumers must not mutate it.
type Snapshot struct {
	At     time.Time       `json:"at"`
	Zones  []ZoneReading   `json:"zones"`
	Buffer BufferTankState `json:"buffer"`
	Meters []MeterState    `json:"meters"`
	Pumps  []PumpState     `json:"pumps"`
	System SystemAggregate `json:"system"`
}

// Zone returns the zone with the given id, or nil.
func (s Snapshot) Zone(id string) *ZoneReading {
	for i := range s.Zones {
		if s.Zones[i].ID == id {
			return &s.Zones[i]
		}
	}
	return nil
}
