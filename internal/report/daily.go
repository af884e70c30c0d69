package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	telemetry "hvac-cloud/internal/telemetry/domain"
)

// DailySummary is the day-level rollup rendered into reports. Pointer
// fields are nil when the underlying samples never carried a power
// reading.
type DailySummary struct {
	Day          time.Time `json:"day"`
	Samples      int       `json:"samples"`
	AvgBtu       float64   `json:"avg_btu"`
	PeakBtu      float64   `json:"peak_btu"`
	AvgPowerKw   *float64  `json:"avg_power_kw"`
	PeakPowerKw  *float64  `json:"peak_power_kw"`
	EstimatedKwh *float64  `json:"estimated_kwh"`
	AvgCop       *float64  `json:"avg_cop"`
}

// FinishSummary derives the computed fields from the raw aggregates.
// Call after filling Day, Samples, AvgBtu, PeakBtu and the power fields.
func (s *DailySummary) FinishSummary(firstTS, lastTS *time.Time) {
	if s == nil {
		return
	}
	s.AvgCop = telemetry.COP(telemetry.Float(s.AvgBtu), s.AvgPowerKw)
	if s.AvgPowerKw != nil && firstTS != nil && lastTS != nil && lastTS.After(*firstTS) {
		hours := lastTS.Sub(*firstTS).Hours()
		s.EstimatedKwh = telemetry.Float(*s.AvgPowerKw * hours)
	}
}

// BuildDailyReportPDF renders the day summary as a one-page PDF.
func BuildDailyReportPDF(summary DailySummary) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "HVAC Daily Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Day: %s", summary.Day.Format("2006-01-02")))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Samples: %d", summary.Samples))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Avg Heat Output (BTU/hr): %.0f", summary.AvgBtu))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Peak Heat Output (BTU/hr): %.0f", summary.PeakBtu))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Avg Electrical Draw (kW): %s", formatOptional(summary.AvgPowerKw, "%.2f")))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Peak Electrical Draw (kW): %s", formatOptional(summary.PeakPowerKw, "%.2f")))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Estimated Energy (kWh): %s", formatOptional(summary.EstimatedKwh, "%.1f")))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Average COP: %s", formatOptional(summary.AvgCop, "%.2f")))
	pdf.Ln(5)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildDailyReportXLSX renders the day summary plus raw zone samples.
func BuildDailyReportXLSX(summary DailySummary, rows []telemetry.HistoryRow) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	samplesSheet := "samples"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(samplesSheet)

	_ = f.SetCellValue(summarySheet, "A1", "HVAC Daily Report")
	_ = f.SetCellValue(summarySheet, "A3", "Day")
	_ = f.SetCellValue(summarySheet, "B3", summary.Day.Format("2006-01-02"))
	_ = f.SetCellValue(summarySheet, "A4", "Samples")
	_ = f.SetCellValue(summarySheet, "B4", summary.Samples)
	_ = f.SetCellValue(summarySheet, "A5", "Avg Heat Output (BTU/hr)")
	_ = f.SetCellValue(summarySheet, "B5", summary.AvgBtu)
	_ = f.SetCellValue(summarySheet, "A6", "Peak Heat Output (BTU/hr)")
	_ = f.SetCellValue(summarySheet, "B6", summary.PeakBtu)
	_ = f.SetCellValue(summarySheet, "A7", "Avg Electrical Draw (kW)")
	setOptionalCell(f, summarySheet, "B7", summary.AvgPowerKw)
	_ = f.SetCellValue(summarySheet, "A8", "Peak Electrical Draw (kW)")
	setOptionalCell(f, summarySheet, "B8", summary.PeakPowerKw)
	_ = f.SetCellValue(summarySheet, "A9", "Estimated Energy (kWh)")
	setOptionalCell(f, summarySheet, "B9", summary.EstimatedKwh)
	_ = f.SetCellValue(summarySheet, "A10", "Average COP")
	setOptionalCell(f, summarySheet, "B10", summary.AvgCop)

	_ = f.SetCellValue(samplesSheet, "A1", "Timestamp")
	_ = f.SetCellValue(samplesSheet, "B1", "Zone")
	_ = f.SetCellValue(samplesSheet, "C1", "Supply (F)")
	_ = f.SetCellValue(samplesSheet, "D1", "Return (F)")
	_ = f.SetCellValue(samplesSheet, "E1", "Delta-T (F)")
	_ = f.SetCellValue(samplesSheet, "F1", "Flow (GPM)")
	_ = f.SetCellValue(samplesSheet, "G1", "BTU/hr")
	_ = f.SetCellValue(samplesSheet, "H1", "Active")
	for i, row := range rows {
		line := i + 2
		_ = f.SetCellValue(samplesSheet, fmt.Sprintf("A%d", line), row.TS.UTC().Format(time.RFC3339))
		_ = f.SetCellValue(samplesSheet, fmt.Sprintf("B%d", line), row.ZoneID)
		setOptionalCell(f, samplesSheet, fmt.Sprintf("C%d", line), row.SupplyTemp)
		setOptionalCell(f, samplesSheet, fmt.Sprintf("D%d", line), row.ReturnTemp)
		setOptionalCell(f, samplesSheet, fmt.Sprintf("E%d", line), row.DeltaT)
		_ = f.SetCellValue(samplesSheet, fmt.Sprintf("F%d", line), row.GPM)
		setOptionalCell(f, samplesSheet, fmt.Sprintf("G%d", line), row.BtuPerHour)
		_ = f.SetCellValue(samplesSheet, fmt.Sprintf("H%d", line), row.Active)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func setOptionalCell(f *excelize.File, sheet, cell string, value *float64) {
	if value == nil {
		return
	}
	_ = f.SetCellValue(sheet, cell, *value)
}

func formatOptional(value *float64, layout string) string {
	if value == nil {
		return "n/a"
	}
	return fmt.Sprintf(layout, *value)
}
