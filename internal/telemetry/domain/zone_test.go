package telemetry

import (
	"testing"
	"time"
)

func TestApplyMergesPartialPatch(t *testing.T) {
	zone := ZoneReading{ID: "ahu1", GPM: 3.0}
	at := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	zone.Apply(ZonePatch{SupplyTemp: Float(114)}, at)
	if zone.SupplyTemp == nil || *zone.SupplyTemp != 114 {
		t.Fatalf("expected supply 114, got %v", zone.SupplyTemp)
	}
	if zone.ReturnTemp != nil {
		t.Fatalf("expected return still unknown, got %v", *zone.ReturnTemp)
	}
	if zone.DeltaT != nil {
		t.Fatalf("expected delta T nil with one temperature, got %v", *zone.DeltaT)
	}
	if zone.BtuPerHour != nil {
		t.Fatalf("expected BTU nil with no delta T, got %v", *zone.BtuPerHour)
	}

	zone.Apply(ZonePatch{ReturnTemp: Float(104)}, at.Add(time.Second))
	if zone.SupplyTemp == nil || *zone.SupplyTemp != 114 {
		t.Fatalf("expected supply preserved across patches, got %v", zone.SupplyTemp)
	}
	if zone.DeltaT == nil || !almostEqual(*zone.DeltaT, 10) {
		t.Fatalf("expected delta T 10, got %v", zone.DeltaT)
	}
	if zone.BtuPerHour == nil || !almostEqual(*zone.BtuPerHour, 15000) {
		t.Fatalf("expected BTU 15000, got %v", zone.BtuPerHour)
	}
	if !zone.LastUpdate.Equal(at.Add(time.Second)) {
		t.Fatalf("expected last update advanced, got %v", zone.LastUpdate)
	}
}

func TestApplyDeviceBtuOverridesComputed(t *testing.T) {
	zone := ZoneReading{ID: "heatpump", GPM: 8.0}
	at := time.Now().UTC()

	zone.Apply(ZonePatch{
		SupplyTemp: Float(115),
		ReturnTemp: Float(105),
		BtuPerHour: Float(42000),
	}, at)
	if zone.BtuPerHour == nil || *zone.BtuPerHour != 42000 {
		t.Fatalf("expected published BTU 42000, got %v", zone.BtuPerHour)
	}

	// Next patch without a published value falls back to the computation.
	zone.Apply(ZonePatch{ReturnTemp: Float(105)}, at.Add(time.Second))
	if zone.BtuPerHour == nil || !almostEqual(*zone.BtuPerHour, 40000) {
		t.Fatalf("expected computed BTU 40000, got %v", zone.BtuPerHour)
	}
}

func TestContributingRequiresActivity(t *testing.T) {
	zone := ZoneReading{ID: "ahu2", GPM: 2.5, BtuPerHour: Float(500)}
	if zone.Active() {
		t.Fatalf("expected inactive zone")
	}
	if zone.Contributing() {
		t.Fatalf("inactive zone must not contribute despite nonzero BTU")
	}

	zone.PumpOn = true
	if !zone.Contributing() {
		t.Fatalf("expected contributing zone")
	}

	zone.BtuPerHour = nil
	if zone.Contributing() {
		t.Fatalf("zone without BTU must not contribute")
	}

	zone.BtuPerHour = Float(0)
	if zone.Contributing() {
		t.Fatalf("zone moving zero heat must not contribute")
	}
}

func TestZonePatchEmpty(t *testing.T) {
	if !(ZonePatch{}).Empty() {
		t.Fatalf("expected empty patch")
	}
	if (ZonePatch{GPM: Float(1)}).Empty() {
		t.Fatalf("expected non-empty patch")
	}
}
