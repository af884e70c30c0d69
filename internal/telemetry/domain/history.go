package telemetry

import "time"

// HistoryRow is one persisted per-zone sample, as read back for trends
// and exports.
type HistoryRow struct {
	TS         time.Time `json:"ts"`
	ZoneID     string    `json:"zone_id"`
	SupplyTemp *float64  `json:"supply_temp"`
	ReturnTemp *float64  `json:"return_temp"`
	DeltaT     *float64  `json:"delta_t"`
	GPM        float64   `json:"gpm"`
	BtuPerHour *float64  `json:"btu_per_hour"`
	Active     bool      `json:"active"`
}
