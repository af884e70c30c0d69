package application

import (
	"context"
	"fmt"
	"sort"
	"time"

	alerts "hvac-cloud/internal/alerts/domain"
	"hvac-cloud/internal/observability/metrics"
	telemetry "hvac-cloud/internal/telemetry/domain"
)

// DefaultRetention is how long a resolved condition stays visible before
// its tracker entry is pruned.
const DefaultRetention = 10 * time.Minute

// Pump-on flow below this is treated as a flow fault.
const minZoneFlowGpm = 0.3

// AlertNotifier publishes alert lifecycle events.
type AlertNotifier interface {
	Notify(ctx context.Context, event AlertEvent)
}

// AlertEvent represents a lifecycle update.
type AlertEvent struct {
	Type  string       `json:"type"`
	Alert alerts.Alert `json:"alert"`
}

// conditionState is the per-condition tracker entry, the only state that
// survives across evaluation cycles. endTime zero means ongoing. The
// descriptive fields hold the last observed emission so a resolved entry
// can still be rendered after its inputs are gone.
type conditionState struct {
	startTime time.Time
	endTime   time.Time

	level     alerts.Level
	message   string
	source    string
	value     *float64
	threshold *float64
}

// Detector evaluates anomaly predicates against a snapshot and tracks each
// distinct condition's start and end times. It owns the tracker map
// exclusively; the host must not run two evaluations concurrently.
type Detector struct {
	retention time.Duration
	notifier  AlertNotifier
	tracker   map[string]*conditionState
}

// Option customizes a Detector.
type Option func(*Detector)

// WithRetention overrides the resolved-entry retention window.
func WithRetention(d time.Duration) Option {
	return func(det *Detector) {
		if d > 0 {
			det.retention = d
		}
	}
}

// WithNotifier assigns a lifecycle notifier.
func WithNotifier(notifier AlertNotifier) Option {
	return func(det *Detector) {
		det.notifier = notifier
	}
}

// NewDetector constructs a detector with an empty tracker.
func NewDetector(opts ...Option) *Detector {
	det := &Detector{
		retention: DefaultRetention,
		tracker:   make(map[string]*conditionState),
	}
	for _, opt := range opts {
		opt(det)
	}
	return det
}

// Evaluate runs every predicate against the snapshot, updates the tracker,
// and returns the deduplicated, time-ordered alert list covering ongoing
// and recently resolved conditions. It never returns an error: a missing
// input makes the affected predicate false, nothing more.
func (d *Detector) Evaluate(ctx context.Context, now time.Time, snap telemetry.Snapshot, th alerts.Thresholds) []alerts.Alert {
	if d == nil {
		return nil
	}

	hits := evaluateConditions(now, snap, th)
	active := make(map[string]conditionHit, len(hits))
	for _, hit := range hits {
		active[hit.id] = hit
	}

	for id, hit := range active {
		entry := d.tracker[id]
		created := false
		switch {
		case entry == nil:
			// absent -> ongoing
			entry = &conditionState{startTime: now}
			d.tracker[id] = entry
			created = true
		case entry.endTime.IsZero():
			// ongoing -> ongoing; startTime untouched
		default:
			// A resolved entry is never reopened: a re-occurrence is a
			// new incident with a fresh start time.
			entry = &conditionState{startTime: now}
			d.tracker[id] = entry
			created = true
		}
		entry.level = hit.level
		entry.message = hit.message
		entry.source = hit.source
		entry.value = hit.value
		entry.threshold = hit.threshold
		if created {
			d.notify(ctx, "active", d.render(id, entry, now))
		}
	}

	for id, entry := range d.tracker {
		if _, ok := active[id]; ok {
			continue
		}
		if entry.endTime.IsZero() {
			entry.endTime = now
			d.notify(ctx, "cleared", d.render(id, entry, now))
			continue
		}
		if now.Sub(entry.endTime) > d.retention {
			delete(d.tracker, id)
		}
	}

	out := make([]alerts.Alert, 0, len(d.tracker))
	ongoing := 0
	for id, entry := range d.tracker {
		if entry.endTime.IsZero() {
			ongoing++
		}
		out = append(out, d.render(id, entry, now))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	metrics.SetActiveAlerts(ongoing)
	return out
}

func (d *Detector) render(id string, entry *conditionState, now time.Time) alerts.Alert {
	alert := alerts.Alert{
		ID:        id,
		Level:     entry.level,
		Message:   entry.message,
		Source:    entry.source,
		Value:     entry.value,
		Threshold: entry.threshold,
		Timestamp: now,
		StartTime: entry.startTime,
	}
	if !entry.endTime.IsZero() {
		end := entry.endTime
		alert.EndTime = &end
	}
	return alert
}

func (d *Detector) notify(ctx context.Context, eventType string, alert alerts.Alert) {
	metrics.IncAlertEvent(eventType)
	if d.notifier == nil {
		return
	}
	d.notifier.Notify(ctx, AlertEvent{Type: eventType, Alert: alert})
}

type conditionHit struct {
	id        string
	level     alerts.Level
	message   string
	source    string
	value     *float64
	threshold *float64
}

// evaluateConditions runs all predicates against the snapshot. Predicates
// are independent; order only affects message ordering within one cycle.
func evaluateConditions(now time.Time, snap telemetry.Snapshot, th alerts.Thresholds) []conditionHit {
	var hits []conditionHit

	if cop := snap.System.LiveCop; cop != nil && *cop < th.MinCop {
		hits = append(hits, conditionHit{
			id:        alerts.ConditionCopLow,
			level:     alerts.LevelWarning,
			message:   fmt.Sprintf("Low COP (%.2f)", *cop),
			source:    "System",
			value:     cop,
			threshold: telemetry.Float(th.MinCop),
		})
	}

	for _, zone := range snap.Zones {
		if zone.Kind != telemetry.ZoneHeatPump {
			if zone.PumpOn && zone.GPM < minZoneFlowGpm {
				hits = append(hits, conditionHit{
					id:        alerts.ConditionFlowLow(zone.ID),
					level:     alerts.LevelWarning,
					message:   fmt.Sprintf("%s: Low flow (%.1f GPM)", zone.Name, zone.GPM),
					source:    zone.Name,
					value:     telemetry.Float(zone.GPM),
					threshold: telemetry.Float(minZoneFlowGpm),
				})
			}
			if zone.DeltaT != nil && *zone.DeltaT > th.MaxDeltaT {
				hits = append(hits, conditionHit{
					id:        alerts.ConditionDeltaTHigh(zone.ID),
					level:     alerts.LevelWarning,
					message:   fmt.Sprintf("%s: High delta T (%.1f F)", zone.Name, *zone.DeltaT),
					source:    zone.Name,
					value:     zone.DeltaT,
					threshold: telemetry.Float(th.MaxDeltaT),
				})
			}
			if zone.DeltaT != nil && *zone.DeltaT < th.MinDeltaT && zone.PumpOn {
				hits = append(hits, conditionHit{
					id:        alerts.ConditionDeltaTLow(zone.ID),
					level:     alerts.LevelWarning,
					message:   fmt.Sprintf("%s: Low delta T (%.1f F)", zone.Name, *zone.DeltaT),
					source:    zone.Name,
					value:     zone.DeltaT,
					threshold: telemetry.Float(th.MinDeltaT),
				})
			}
		}
		if !zone.LastUpdate.IsZero() && th.StaleThreshold > 0 && now.Sub(zone.LastUpdate) > th.StaleThreshold {
			hits = append(hits, conditionHit{
				id:      alerts.ConditionStale(zone.ID),
				level:   alerts.LevelWarning,
				message: fmt.Sprintf("%s: Stale sensor data", zone.Name),
				source:  zone.Name,
			})
		}
	}

	for _, meter := range snap.Meters {
		if meter.Status != telemetry.StatusOnline {
			hits = append(hits, conditionHit{
				id:      alerts.ConditionMeterOffline(meter.ID),
				level:   alerts.LevelError,
				message: fmt.Sprintf("%s: Sensor %s", meter.Name, meter.Status),
				source:  meter.Name,
			})
		}
	}

	if p := snap.Buffer.Pressure; p != nil {
		if *p < th.MinPressure {
			hits = append(hits, conditionHit{
				id:        alerts.ConditionPressureLow,
				level:     alerts.LevelWarning,
				message:   fmt.Sprintf("Loop pressure low (%.1f PSI)", *p),
				source:    "Buffer Tank",
				value:     p,
				threshold: telemetry.Float(th.MinPressure),
			})
		}
		if *p > th.MaxPressure {
			hits = append(hits, conditionHit{
				id:        alerts.ConditionPressureHigh,
				level:     alerts.LevelWarning,
				message:   fmt.Sprintf("Loop pressure high (%.1f PSI)", *p),
				source:    "Buffer Tank",
				value:     p,
				threshold: telemetry.Float(th.MaxPressure),
			})
		}
	}

	return hits
}
