package telemetry

import "time"

// ZoneKind distinguishes equipment types sharing the zone contract.
type ZoneKind string

const (
	ZoneAirHandler ZoneKind = "air-handler"
	ZoneSnowMelt   ZoneKind = "snow-melt"
	ZoneHeatPump   ZoneKind = "heat-pump"
)

// SensorStatus reports meter/sensor health as published by the device.
type SensorStatus string

const (
	StatusOnline  SensorStatus = "online"
	StatusOffline SensorStatus = "offline"
	StatusError   SensorStatus = "error"
	StatusStale   SensorStatus = "stale"
)

// ZoneReading holds the latest raw sample and derived values for one
// hydronic zone. Raw fields are nil until a first sample arrives.
type ZoneReading struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Area string   `json:"area"`
	Kind ZoneKind `json:"kind"`

	SupplyTemp *float64 `json:"supply_temp"`
	ReturnTemp *float64 `json:"return_temp"`
	GPM        float64  `json:"gpm"`
	PumpOn     bool     `json:"pump_on"`
	FanOn      bool     `json:"fan_on"`
	Calling    bool     `json:"calling"`

	// Derived. BtuPerHour may instead carry a device-published value,
	// which takes precedence over the local computation.
	DeltaT     *float64 `json:"delta_t"`
	BtuPerHour *float64 `json:"btu_per_hour"`

	LastUpdate time.Time `json:"last_update"`
}

// Active reports whether the zone is currently running. This boolean, not
// the BTU value, is the ground truth for the aggregation filter: a stopped
// zone with a stale nonzero BTU must not contribute to totals.
func (z ZoneReading) Active() bool {
	return z.PumpOn || z.FanOn || z.Calling
}

// Contributing reports whether the zone counts toward system totals.
// TotalBtu and TotalGpm must use this same predicate.
func (z ZoneReading) Contributing() bool {
	return z.Active() && z.BtuPerHour != nil && *z.BtuPerHour > 0
}

// ZonePatch is a canonical partial update produced by the ingestion
// adapter. Nil fields leave the prior zone value unchanged.
type ZonePatch struct {
	SupplyTemp *float64
	ReturnTemp *float64
	GPM        *float64
	PumpOn     *bool
	FanOn      *bool
	Calling    *bool
	BtuPerHour *float64
}

// Empty reports whether the patch carries no fields.
func (p ZonePatch) Empty() bool {
	return p.SupplyTemp == nil && p.ReturnTemp == nil && p.GPM == nil &&
		p.PumpOn == nil && p.FanOn == nil && p.Calling == nil && p.BtuPerHour == nil
}

// Apply merges the patch into the zone and recomputes derived values.
// A device-published BTU value overrides the local computation for this
// update only.
func (z *ZoneReading) Apply(patch ZonePatch, at time.Time) {
	if z == nil {
		return
	}
	if patch.SupplyTemp != nil {
		z.SupplyTemp = patch.SupplyTemp
	}
	if patch.ReturnTemp != nil {
		z.ReturnTemp = patch.ReturnTemp
	}
	if patch.GPM != nil {
		z.GPM = *patch.GPM
	}
	if patch.PumpOn != nil {
		z.PumpOn = *patch.PumpOn
	}
	if patch.FanOn != nil {
		z.FanOn = *patch.FanOn
	}
	if patch.Calling != nil {
		z.Calling = *patch.Calling
	}

	z.DeltaT = DeltaT(z.SupplyTemp, z.ReturnTemp)
	z.BtuPerHour = BtuPerHour(Float(z.GPM), z.DeltaT)
	if patch.BtuPerHour != nil {
		z.BtuPerHour = patch.BtuPerHour
	}
	z.LastUpdate = at
}

// BufferTankState holds the buffer tank sensor readings.
type BufferTankState struct {
	Temp       *float64  `json:"temp"`
	Pressure   *float64  `json:"pressure"`
	LastUpdate time.Time `json:"last_update"`
}

// MeterState tracks a BTU meter's reported health.
type MeterState struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Status     SensorStatus `json:"status"`
	LastUpdate time.Time    `json:"last_update"`
}

// PumpState mirrors a circulator pump's published state.
type PumpState struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Running    bool      `json:"running"`
	Speed      *float64  `json:"speed"`
	PowerW     *float64  `json:"power_w"`
	LastUpdate time.Time `json:"last_update"`
}
