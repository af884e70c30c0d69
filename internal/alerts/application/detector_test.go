package application

import (
	"context"
	"sync"
	"testing"
	"time"

	alerts "hvac-cloud/internal/alerts/domain"
	telemetry "hvac-cloud/internal/telemetry/domain"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []AlertEvent
}

func (r *recordingNotifier) Notify(_ context.Context, event AlertEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingNotifier) byType(eventType string) []AlertEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []AlertEvent
	for _, event := range r.events {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

func pressureSnapshot(psi *float64) telemetry.Snapshot {
	return telemetry.Snapshot{
		Buffer: telemetry.BufferTankState{Pressure: psi},
	}
}

func TestDetectorLifecycle(t *testing.T) {
	det := NewDetector()
	th := alerts.DefaultThresholds()
	ctx := context.Background()
	t1 := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	list := det.Evaluate(ctx, t1, pressureSnapshot(telemetry.Float(5)), th)
	if len(list) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(list))
	}
	alert := list[0]
	if alert.ID != alerts.ConditionPressureLow {
		t.Fatalf("unexpected condition %s", alert.ID)
	}
	if !alert.StartTime.Equal(t1) {
		t.Fatalf("expected start %v, got %v", t1, alert.StartTime)
	}
	if !alert.Ongoing() {
		t.Fatalf("expected ongoing alert")
	}

	// Still true one cycle later: same incident, same start time.
	t2 := t1.Add(time.Second)
	list = det.Evaluate(ctx, t2, pressureSnapshot(telemetry.Float(5)), th)
	if len(list) != 1 || !list[0].StartTime.Equal(t1) {
		t.Fatalf("expected preserved start time %v, got %+v", t1, list)
	}

	// Condition clears: end time stamped, alert still listed.
	t3 := t1.Add(2 * time.Second)
	list = det.Evaluate(ctx, t3, pressureSnapshot(telemetry.Float(15)), th)
	if len(list) != 1 {
		t.Fatalf("expected resolved alert retained, got %d", len(list))
	}
	if list[0].EndTime == nil || !list[0].EndTime.Equal(t3) {
		t.Fatalf("expected end time %v, got %v", t3, list[0].EndTime)
	}
	if !list[0].StartTime.Equal(t1) {
		t.Fatalf("expected original start time, got %v", list[0].StartTime)
	}

	// End time is stamped once and never moves.
	t4 := t1.Add(3 * time.Second)
	list = det.Evaluate(ctx, t4, pressureSnapshot(telemetry.Float(15)), th)
	if len(list) != 1 || list[0].EndTime == nil || !list[0].EndTime.Equal(t3) {
		t.Fatalf("expected end time pinned at %v, got %+v", t3, list)
	}

	// Past the retention window the entry is pruned.
	t5 := t3.Add(11 * time.Minute)
	list = det.Evaluate(ctx, t5, pressureSnapshot(telemetry.Float(15)), th)
	if len(list) != 0 {
		t.Fatalf("expected pruned tracker, got %+v", list)
	}
}

func TestDetectorRetriggerStartsFreshIncident(t *testing.T) {
	det := NewDetector()
	th := alerts.DefaultThresholds()
	ctx := context.Background()
	t1 := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	det.Evaluate(ctx, t1, pressureSnapshot(telemetry.Float(5)), th)
	t2 := t1.Add(time.Minute)
	det.Evaluate(ctx, t2, pressureSnapshot(telemetry.Float(15)), th)

	// Re-trigger while the resolved entry is still retained.
	t3 := t2.Add(time.Minute)
	list := det.Evaluate(ctx, t3, pressureSnapshot(telemetry.Float(5)), th)
	if len(list) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(list))
	}
	if !list[0].StartTime.Equal(t3) {
		t.Fatalf("expected fresh start time %v, got %v", t3, list[0].StartTime)
	}
	if list[0].EndTime != nil {
		t.Fatalf("expected reopened incident without end time, got %v", *list[0].EndTime)
	}
}

func TestDetectorEvaluateIdempotentWithinTick(t *testing.T) {
	det := NewDetector()
	th := alerts.DefaultThresholds()
	ctx := context.Background()
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	snap := pressureSnapshot(telemetry.Float(5))

	first := det.Evaluate(ctx, now, snap, th)
	second := det.Evaluate(ctx, now, snap, th)
	if len(first) != len(second) {
		t.Fatalf("expected stable output, got %d then %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID || !first[i].StartTime.Equal(second[i].StartTime) {
			t.Fatalf("expected identical alerts, got %+v vs %+v", first[i], second[i])
		}
	}
}

func TestDetectorMissingDataIsNotAnAnomaly(t *testing.T) {
	det := NewDetector()
	th := alerts.DefaultThresholds()
	snap := telemetry.Snapshot{
		Zones: []telemetry.ZoneReading{
			{ID: "ahu1", Name: "AHU 1", Kind: telemetry.ZoneAirHandler, PumpOn: true, GPM: 3.0},
		},
	}

	list := det.Evaluate(context.Background(), time.Now().UTC(), snap, th)
	if len(list) != 0 {
		t.Fatalf("expected no alerts from missing readings, got %+v", list)
	}
}

func TestDetectorCopLowFromDerivedChain(t *testing.T) {
	det := NewDetector()
	th := alerts.DefaultThresholds()
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	zone := telemetry.ZoneReading{
		ID: "ahu1", Name: "AHU 1", Kind: telemetry.ZoneAirHandler,
		GPM: 3.0, LastUpdate: now,
	}
	zone.Apply(telemetry.ZonePatch{
		SupplyTemp: telemetry.Float(114),
		ReturnTemp: telemetry.Float(104),
		PumpOn:     boolPtr(true),
	}, now)

	zones := []telemetry.ZoneReading{zone}
	snap := telemetry.Snapshot{
		At:     now,
		Zones:  zones,
		System: telemetry.Aggregate(zones, telemetry.Float(2.5), nil, nil),
	}

	list := det.Evaluate(context.Background(), now, snap, th)
	if len(list) != 1 {
		t.Fatalf("expected exactly the COP alert, got %+v", list)
	}
	if list[0].ID != alerts.ConditionCopLow {
		t.Fatalf("expected %s, got %s", alerts.ConditionCopLow, list[0].ID)
	}
	if list[0].Level != alerts.LevelWarning {
		t.Fatalf("expected warning, got %s", list[0].Level)
	}
	if list[0].Value == nil || *list[0].Value >= th.MinCop {
		t.Fatalf("expected COP below %v, got %v", th.MinCop, list[0].Value)
	}
}

func TestDetectorZoneAndMeterConditions(t *testing.T) {
	det := NewDetector()
	th := alerts.DefaultThresholds()
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	snap := telemetry.Snapshot{
		Zones: []telemetry.ZoneReading{
			{ID: "ahu1", Name: "AHU 1", Kind: telemetry.ZoneAirHandler, PumpOn: true, GPM: 0.1, LastUpdate: now},
			{ID: "ahu2", Name: "AHU 2", Kind: telemetry.ZoneAirHandler, PumpOn: true, GPM: 2.5, DeltaT: telemetry.Float(30), LastUpdate: now},
			{ID: "ahu3", Name: "AHU 3", Kind: telemetry.ZoneAirHandler, PumpOn: true, GPM: 2.5, DeltaT: telemetry.Float(1), LastUpdate: now},
			// Heat pump delta T is exempt from the per-zone checks.
			{ID: "heatpump", Name: "Heat Pump", Kind: telemetry.ZoneHeatPump, PumpOn: true, GPM: 8.0, DeltaT: telemetry.Float(30), LastUpdate: now},
			{ID: "snowmelt", Name: "Snow Melt", Kind: telemetry.ZoneSnowMelt, PumpOn: false, GPM: 4.0, LastUpdate: now.Add(-time.Minute)},
		},
		Meters: []telemetry.MeterState{
			{ID: "hp-meter", Name: "Heat Pump Meter", Status: telemetry.StatusOnline},
			{ID: "ahu1-meter", Name: "AHU 1 Meter", Status: telemetry.StatusOffline},
		},
	}

	list := det.Evaluate(context.Background(), now, snap, th)
	want := map[string]bool{
		alerts.ConditionFlowLow("ahu1"):         false,
		alerts.ConditionDeltaTHigh("ahu2"):      false,
		alerts.ConditionDeltaTLow("ahu3"):       false,
		alerts.ConditionStale("snowmelt"):       false,
		alerts.ConditionMeterOffline("ahu1-meter"): false,
	}
	for _, alert := range list {
		if _, ok := want[alert.ID]; !ok {
			t.Fatalf("unexpected alert %s", alert.ID)
		}
		want[alert.ID] = true
	}
	for id, seen := range want {
		if !seen {
			t.Fatalf("missing alert %s", id)
		}
	}
}

func TestDetectorNotifierLifecycleEvents(t *testing.T) {
	rec := &recordingNotifier{}
	det := NewDetector(WithNotifier(rec))
	th := alerts.DefaultThresholds()
	ctx := context.Background()
	t1 := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	det.Evaluate(ctx, t1, pressureSnapshot(telemetry.Float(5)), th)
	det.Evaluate(ctx, t1.Add(time.Second), pressureSnapshot(telemetry.Float(5)), th)
	det.Evaluate(ctx, t1.Add(2*time.Second), pressureSnapshot(telemetry.Float(15)), th)

	active := rec.byType("active")
	if len(active) != 1 {
		t.Fatalf("expected 1 active event, got %d", len(active))
	}
	if active[0].Alert.Message == "" || active[0].Alert.Source == "" {
		t.Fatalf("expected populated active event, got %+v", active[0].Alert)
	}
	cleared := rec.byType("cleared")
	if len(cleared) != 1 {
		t.Fatalf("expected 1 cleared event, got %d", len(cleared))
	}
	if cleared[0].Alert.EndTime == nil {
		t.Fatalf("expected end time on cleared event")
	}
}

func TestDetectorOutputOrderedByStartTime(t *testing.T) {
	det := NewDetector()
	th := alerts.DefaultThresholds()
	ctx := context.Background()
	t1 := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	det.Evaluate(ctx, t1, pressureSnapshot(telemetry.Float(5)), th)

	snap := pressureSnapshot(telemetry.Float(5))
	snap.Meters = []telemetry.MeterState{
		{ID: "hp-meter", Name: "Heat Pump Meter", Status: telemetry.StatusError},
	}
	list := det.Evaluate(ctx, t1.Add(time.Second), snap, th)
	if len(list) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(list))
	}
	if list[0].ID != alerts.ConditionPressureLow {
		t.Fatalf("expected oldest alert first, got %s", list[0].ID)
	}
}

func boolPtr(v bool) *bool { return &v }
