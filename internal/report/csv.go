package report

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	telemetry "hvac-cloud/internal/telemetry/domain"
)

var historyHeader = []string{"ts", "zone_id", "supply_temp", "return_temp", "delta_t", "gpm", "btu_per_hour", "active"}

// WriteHistoryCSV streams zone samples as CSV. Missing readings are
// written as empty cells, never as zeros.
func WriteHistoryCSV(w io.Writer, rows []telemetry.HistoryRow) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(historyHeader); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.TS.UTC().Format(time.RFC3339),
			row.ZoneID,
			csvFloat(row.SupplyTemp),
			csvFloat(row.ReturnTemp),
			csvFloat(row.DeltaT),
			strconv.FormatFloat(row.GPM, 'f', -1, 64),
			csvFloat(row.BtuPerHour),
			strconv.FormatBool(row.Active),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func csvFloat(value *float64) string {
	if value == nil {
		return ""
	}
	return strconv.FormatFloat(*value, 'f', -1, 64)
}
