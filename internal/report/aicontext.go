package report

import (
	"fmt"
	"strings"
	"time"

	"hvac-cloud/internal/telemetry/application"
)

// BuildAnalystContext renders the current view as a plain-text block for
// an external analyst assistant. Missing readings are spelled out as
// unknown so the consumer never mistakes absence for zero.
func BuildAnalystContext(view application.View) string {
	var b strings.Builder

	b.WriteString("HVAC system state\n")
	fmt.Fprintf(&b, "As of: %s\n", view.At.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Mode: %s\n", view.System.Mode)
	fmt.Fprintf(&b, "Total heat output: %.0f BTU/hr across contributing zones\n", view.System.TotalBtu)
	fmt.Fprintf(&b, "Total flow: %.1f GPM\n", view.System.TotalGpm)
	fmt.Fprintf(&b, "Electrical draw: %s kW\n", contextFloat(view.System.TotalPowerKw, "%.2f"))
	fmt.Fprintf(&b, "Live COP: %s\n", contextFloat(view.System.LiveCop, "%.2f"))
	fmt.Fprintf(&b, "Daily COP: %s\n", contextFloat(view.System.DailyCop, "%.2f"))
	fmt.Fprintf(&b, "Outdoor temp: %s F\n", contextFloat(view.System.OutdoorTemp, "%.1f"))
	fmt.Fprintf(&b, "Buffer tank: %s F at %s psi\n",
		contextFloat(view.Buffer.Temp, "%.1f"),
		contextFloat(view.Buffer.Pressure, "%.1f"))

	b.WriteString("\nZones:\n")
	for _, zone := range view.Zones {
		state := "idle"
		if zone.Active() {
			state = "active"
		}
		fmt.Fprintf(&b, "- %s (%s, %s): supply %s F, return %s F, delta-T %s F, flow %.1f GPM, output %s BTU/hr\n",
			zone.Name,
			zone.Kind,
			state,
			contextFloat(zone.SupplyTemp, "%.1f"),
			contextFloat(zone.ReturnTemp, "%.1f"),
			contextFloat(zone.DeltaT, "%.1f"),
			zone.GPM,
			contextFloat(zone.BtuPerHour, "%.0f"))
	}

	ongoing := 0
	for _, alert := range view.Alerts {
		if alert.Ongoing() {
			ongoing++
		}
	}
	if ongoing == 0 {
		b.WriteString("\nNo active alerts.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "\nActive alerts (%d):\n", ongoing)
	for _, alert := range view.Alerts {
		if !alert.Ongoing() {
			continue
		}
		fmt.Fprintf(&b, "- [%s] %s (since %s)\n",
			alert.Level,
			alert.Message,
			alert.StartTime.UTC().Format(time.RFC3339))
	}
	return b.String()
}

func contextFloat(value *float64, layout string) string {
	if value == nil {
		return "unknown"
	}
	return fmt.Sprintf(layout, *value)
}
