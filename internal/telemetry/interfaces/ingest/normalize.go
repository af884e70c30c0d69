package ingest

import (
	"errors"
	"fmt"

	telemetry "hvac-cloud/internal/telemetry/domain"
)

// Field aliases across firmware revisions. Older ESP32 builds publish
// supplyF/returnF, newer ones supplyTemp/returnTemp; both map onto one
// canonical patch. Unknown keys are ignored so firmware can add fields
// without breaking ingest.
var (
	supplyAliases  = []string{"supplyTemp", "supplyF", "supply_f", "loopTemp"}
	returnAliases  = []string{"returnTemp", "returnF", "return_f"}
	gpmAliases     = []string{"gpm", "flowGpm", "flow_gpm"}
	btuAliases     = []string{"btuPerHour", "btu_per_hour", "btuHr"}
	pumpAliases    = []string{"pumpOn", "pump_on", "pump"}
	fanAliases     = []string{"fanOn", "fan_on", "fan"}
	callingAliases = []string{"calling", "thermostatCall"}

	tankTempAliases = []string{"temp", "tankTemp", "tank_temp"}
	pressureAliases = []string{"pressure", "psi", "loopPsi"}

	powerAliases   = []string{"kw", "powerKw", "power_kw"}
	outdoorAliases = []string{"outdoorTemp", "outdoor_temp", "oat"}

	runningAliases = []string{"running", "on"}
	speedAliases   = []string{"speed", "speedPct"}
	pumpWAliases   = []string{"powerW", "power_w", "watts"}
)

// ZonePatchFrom normalizes a loosely typed payload into a canonical zone
// patch. Absent fields stay nil (merge semantics); a present field with
// the wrong type is a malformed payload and rejects the whole update.
func ZonePatchFrom(data map[string]any) (telemetry.ZonePatch, error) {
	var patch telemetry.ZonePatch
	var err error

	if patch.SupplyTemp, err = floatField(data, supplyAliases); err != nil {
		return telemetry.ZonePatch{}, err
	}
	if patch.ReturnTemp, err = floatField(data, returnAliases); err != nil {
		return telemetry.ZonePatch{}, err
	}
	if patch.GPM, err = floatField(data, gpmAliases); err != nil {
		return telemetry.ZonePatch{}, err
	}
	if patch.BtuPerHour, err = floatField(data, btuAliases); err != nil {
		return telemetry.ZonePatch{}, err
	}
	if patch.PumpOn, err = boolField(data, pumpAliases); err != nil {
		return telemetry.ZonePatch{}, err
	}
	if patch.FanOn, err = boolField(data, fanAliases); err != nil {
		return telemetry.ZonePatch{}, err
	}
	if patch.Calling, err = boolField(data, callingAliases); err != nil {
		return telemetry.ZonePatch{}, err
	}
	if patch.Empty() {
		return telemetry.ZonePatch{}, errors.New("no recognized zone fields")
	}
	return patch, nil
}

// BufferPatchFrom extracts buffer tank readings.
func BufferPatchFrom(data map[string]any) (temp, pressure *float64, err error) {
	if temp, err = floatField(data, tankTempAliases); err != nil {
		return nil, nil, err
	}
	if pressure, err = floatField(data, pressureAliases); err != nil {
		return nil, nil, err
	}
	if temp == nil && pressure == nil {
		return nil, nil, errors.New("no recognized buffer fields")
	}
	return temp, pressure, nil
}

// PowerFrom extracts an electrical draw reading in kW.
func PowerFrom(data map[string]any) (*float64, error) {
	kw, err := floatField(data, powerAliases)
	if err != nil {
		return nil, err
	}
	if kw == nil {
		return nil, errors.New("no recognized power fields")
	}
	return kw, nil
}

// OutdoorFrom extracts an outdoor temperature reading.
func OutdoorFrom(data map[string]any) (*float64, error) {
	temp, err := floatField(data, outdoorAliases)
	if err != nil {
		return nil, err
	}
	if temp == nil {
		return nil, errors.New("no recognized outdoor fields")
	}
	return temp, nil
}

// MeterStatusFrom extracts a sensor status report.
func MeterStatusFrom(data map[string]any) (telemetry.SensorStatus, error) {
	raw, ok := data["status"]
	if !ok {
		return "", errors.New("missing status field")
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("status: expected string, got %T", raw)
	}
	switch telemetry.SensorStatus(value) {
	case telemetry.StatusOnline, telemetry.StatusOffline, telemetry.StatusError, telemetry.StatusStale:
		return telemetry.SensorStatus(value), nil
	default:
		return "", fmt.Errorf("status: unknown value %q", value)
	}
}

// PumpPatchFrom extracts circulator pump fields.
func PumpPatchFrom(data map[string]any) (running *bool, speed, powerW *float64, err error) {
	if running, err = boolField(data, runningAliases); err != nil {
		return nil, nil, nil, err
	}
	if speed, err = floatField(data, speedAliases); err != nil {
		return nil, nil, nil, err
	}
	if powerW, err = floatField(data, pumpWAliases); err != nil {
		return nil, nil, nil, err
	}
	if running == nil && speed == nil && powerW == nil {
		return nil, nil, nil, errors.New("no recognized pump fields")
	}
	return running, speed, powerW, nil
}

func floatField(data map[string]any, aliases []string) (*float64, error) {
	for _, key := range aliases {
		raw, ok := data[key]
		if !ok || raw == nil {
			continue
		}
		switch v := raw.(type) {
		case float64:
			return telemetry.Float(v), nil
		case int:
			return telemetry.Float(float64(v)), nil
		default:
			return nil, fmt.Errorf("%s: expected number, got %T", key, raw)
		}
	}
	return nil, nil
}

func boolField(data map[string]any, aliases []string) (*bool, error) {
	for _, key := range aliases {
		raw, ok := data[key]
		if !ok || raw == nil {
			continue
		}
		switch v := raw.(type) {
		case bool:
			b := v
			return &b, nil
		case float64:
			// Some firmware publishes 0/1.
			b := v != 0
			return &b, nil
		default:
			return nil, fmt.Errorf("%s: expected bool, got %T", key, raw)
		}
	}
	return nil, nil
}
