package telemetry

import "testing"

func TestAggregateSkipsInactiveZones(t *testing.T) {
	zones := []ZoneReading{
		{ID: "ahu1", Kind: ZoneAirHandler, GPM: 3.0, PumpOn: true, BtuPerHour: Float(15000)},
		// Stopped zone with a stale nonzero BTU reading.
		{ID: "ahu2", Kind: ZoneAirHandler, GPM: 2.5, PumpOn: false, BtuPerHour: Float(500)},
	}

	agg := Aggregate(zones, Float(2.5), nil, nil)
	if !almostEqual(agg.TotalBtu, 15000) {
		t.Fatalf("expected total BTU 15000, got %v", agg.TotalBtu)
	}
	if !almostEqual(agg.TotalGpm, 3.0) {
		t.Fatalf("expected total GPM 3.0, got %v", agg.TotalGpm)
	}
}

func TestAggregateLiveCopFromTotals(t *testing.T) {
	zones := []ZoneReading{
		{ID: "ahu1", Kind: ZoneAirHandler, GPM: 3.0, PumpOn: true, BtuPerHour: Float(15000)},
	}

	agg := Aggregate(zones, Float(2.5), nil, nil)
	if agg.LiveCop == nil {
		t.Fatalf("expected live COP, got nil")
	}
	if !almostEqual(*agg.LiveCop, 15000/(2.5*BTUPerKWh)) {
		t.Fatalf("unexpected live COP %v", *agg.LiveCop)
	}

	agg = Aggregate(zones, nil, nil, nil)
	if agg.LiveCop != nil {
		t.Fatalf("expected nil live COP without power reading, got %v", *agg.LiveCop)
	}
}

func TestAggregatePassesThroughExternals(t *testing.T) {
	agg := Aggregate(nil, nil, Float(28), Float(3.1))
	if agg.OutdoorTemp == nil || *agg.OutdoorTemp != 28 {
		t.Fatalf("expected outdoor temp passthrough, got %v", agg.OutdoorTemp)
	}
	if agg.DailyCop == nil || *agg.DailyCop != 3.1 {
		t.Fatalf("expected daily COP passthrough, got %v", agg.DailyCop)
	}
}

func TestInferMode(t *testing.T) {
	if got := InferMode(800, Float(115)); got != ModeStandby {
		t.Fatalf("expected standby below output threshold, got %s", got)
	}
	if got := InferMode(15000, Float(115)); got != ModeHeating {
		t.Fatalf("expected heating with hot supply, got %s", got)
	}
	if got := InferMode(15000, Float(45)); got != ModeCooling {
		t.Fatalf("expected cooling with cold supply, got %s", got)
	}
	if got := InferMode(15000, nil); got != ModeCooling {
		t.Fatalf("expected cooling without supply reading, got %s", got)
	}
}

func TestAggregateUsesHeatPumpSupplyForMode(t *testing.T) {
	zones := []ZoneReading{
		{ID: "heatpump", Kind: ZoneHeatPump, GPM: 8.0, PumpOn: true, SupplyTemp: Float(115), BtuPerHour: Float(40000)},
		{ID: "ahu1", Kind: ZoneAirHandler, GPM: 3.0, PumpOn: true, SupplyTemp: Float(45), BtuPerHour: Float(15000)},
	}
	agg := Aggregate(zones, nil, nil, nil)
	if agg.Mode != ModeHeating {
		t.Fatalf("expected heating from heat pump supply, got %s", agg.Mode)
	}
}

func TestSnapshotZoneLookup(t *testing.T) {
	snap := Snapshot{Zones: []ZoneReading{{ID: "ahu1"}, {ID: "ahu2"}}}
	if zone := snap.Zone("ahu2"); zone == nil || zone.ID != "ahu2" {
		t.Fatalf("expected ahu2, got %v", zone)
	}
	if zone := snap.Zone("nope"); zone != nil {
		t.Fatalf("expected nil for unknown id, got %v", zone)
	}
}
