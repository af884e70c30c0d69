package alerts

import "time"

// Level is a fixed severity tag chosen per condition, never computed.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Alert is one emitted instance of a condition. StartTime is when the
// condition first became true; EndTime is nil while it is still ongoing
// and is stamped exactly once when it clears. Timestamp is the last
// evaluation that observed the condition, refreshed each cycle.
type Alert struct {
	ID        string     `json:"id"`
	Level     Level      `json:"level"`
	Message   string     `json:"message"`
	Source    string     `json:"source"`
	Value     *float64   `json:"value,omitempty"`
	Threshold *float64   `json:"threshold,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

// Ongoing reports whether the condition was still true at last evaluation.
func (a Alert) Ongoing() bool {
	return a.EndTime == nil
}

// Stable condition identifiers. Per-zone conditions embed the zone id so
// each zone tracks its own incident lifecycle.
const (
	ConditionCopLow       = "smart-cop-low"
	ConditionPressureLow  = "smart-pressure-low"
	ConditionPressureHigh = "smart-pressure-high"
)

func ConditionFlowLow(zoneID string) string       { return "smart-flow-" + zoneID }
func ConditionDeltaTHigh(zoneID string) string    { return "smart-dt-high-" + zoneID }
func ConditionDeltaTLow(zoneID string) string     { return "smart-dt-low-" + zoneID }
func ConditionMeterOffline(meterID string) string { return "smart-meter-" + meterID }
func ConditionStale(zoneID string) string         { return "smart-stale-" + zoneID }
