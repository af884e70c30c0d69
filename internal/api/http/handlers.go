package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"hvac-cloud/internal/report"
	"hvac-cloud/internal/telemetry/application"
	telemetry "hvac-cloud/internal/telemetry/domain"
	"hvac-cloud/internal/telemetry/infrastructure/postgres"
)

const timeLayout = time.RFC3339

// ViewSource exposes the result of the most recent evaluation cycle.
type ViewSource interface {
	View() application.View
}

// HistoryReader reads persisted zone samples.
type HistoryReader interface {
	ListZoneRows(ctx context.Context, zoneID string, from, to time.Time, limit int) ([]telemetry.HistoryRow, error)
}

// DayStatsReader aggregates system samples for one day.
type DayStatsReader interface {
	DayStats(ctx context.Context, dayStart time.Time) (postgres.SystemDayStats, error)
}

// SnapshotHandler serves the live system snapshot.
type SnapshotHandler struct {
	source ViewSource
}

// NewSnapshotHandler constructs a SnapshotHandler.
func NewSnapshotHandler(source ViewSource) *SnapshotHandler {
	return &SnapshotHandler{source: source}
}

// ServeHTTP handles GET /api/v1/snapshot.
func (h *SnapshotHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.source == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}
	view := h.source.View()
	if view.At.IsZero() {
		http.Error(w, "no snapshot yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(view)
}

// HistoryHandler serves persisted zone samples as JSON.
type HistoryHandler struct {
	history HistoryReader
}

// NewHistoryHandler constructs a HistoryHandler.
func NewHistoryHandler(history HistoryReader) *HistoryHandler {
	return &HistoryHandler{history: history}
}

// ServeHTTP handles GET /api/v1/history.
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.history == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}
	rows, err := listRows(r, h.history)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if rows == nil {
		rows = []telemetry.HistoryRow{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rows)
}

// HistoryCSVHandler serves persisted zone samples as a CSV download.
type HistoryCSVHandler struct {
	history HistoryReader
}

// NewHistoryCSVHandler constructs a HistoryCSVHandler.
func NewHistoryCSVHandler(history HistoryReader) *HistoryCSVHandler {
	return &HistoryCSVHandler{history: history}
}

// ServeHTTP handles GET /api/v1/exports/history.csv.
func (h *HistoryCSVHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.history == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}
	rows, err := listRows(r, h.history)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="history.csv"`)
	if err := report.WriteHistoryCSV(w, rows); err != nil {
		http.Error(w, "write csv error", http.StatusInternalServerError)
	}
}

// ReportsHandler serves the daily report in XLSX or PDF form.
type ReportsHandler struct {
	stats   DayStatsReader
	history HistoryReader
}

// NewReportsHandler constructs a ReportsHandler.
func NewReportsHandler(stats DayStatsReader, history HistoryReader) *ReportsHandler {
	return &ReportsHandler{stats: stats, history: history}
}

// ServeHTTP handles GET /api/v1/reports/daily.{xlsx,pdf}.
func (h *ReportsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.stats == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	format := strings.TrimPrefix(r.URL.Path, "/api/v1/reports/daily.")
	if format != "xlsx" && format != "pdf" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	day, err := parseDayQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	stats, err := h.stats.DayStats(r.Context(), day)
	if err != nil {
		http.Error(w, "query report error", http.StatusInternalServerError)
		return
	}
	summary := summaryFromStats(day, stats)

	switch format {
	case "pdf":
		payload, err := report.BuildDailyReportPDF(summary)
		if err != nil {
			http.Error(w, "build report error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="daily.pdf"`)
		_, _ = w.Write(payload)
	case "xlsx":
		var rows []telemetry.HistoryRow
		if h.history != nil {
			rows, err = h.history.ListZoneRows(r.Context(), "", day, day.Add(24*time.Hour), 0)
			if err != nil {
				http.Error(w, "query report error", http.StatusInternalServerError)
				return
			}
		}
		payload, err := report.BuildDailyReportXLSX(summary, rows)
		if err != nil {
			http.Error(w, "build report error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="daily.xlsx"`)
		_, _ = w.Write(payload)
	}
}

// AnalystContextHandler serves the plain-text system summary consumed by
// the external analyst assistant.
type AnalystContextHandler struct {
	source ViewSource
}

// NewAnalystContextHandler constructs an AnalystContextHandler.
func NewAnalystContextHandler(source ViewSource) *AnalystContextHandler {
	return &AnalystContextHandler{source: source}
}

// ServeHTTP handles GET /api/v1/analyst/context.
func (h *AnalystContextHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.source == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}
	view := h.source.View()
	if view.At.IsZero() {
		http.Error(w, "no snapshot yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(report.BuildAnalystContext(view)))
}

func listRows(r *http.Request, history HistoryReader) ([]telemetry.HistoryRow, error) {
	from, err := parseTimeQuery(r, "from")
	if err != nil {
		return nil, err
	}
	to, err := parseTimeQuery(r, "to")
	if err != nil {
		return nil, err
	}
	if !to.After(from) {
		return nil, errors.New("to must be after from")
	}
	zoneID := r.URL.Query().Get("zone_id")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return nil, errors.New("limit must be a non-negative integer")
		}
	}
	return history.ListZoneRows(r.Context(), zoneID, from, to, limit)
}

func summaryFromStats(day time.Time, stats postgres.SystemDayStats) report.DailySummary {
	summary := report.DailySummary{
		Day:     day,
		Samples: stats.Samples,
		AvgBtu:  stats.AvgBtu,
		PeakBtu: stats.PeakBtu,
	}
	if stats.AvgKw.Valid {
		summary.AvgPowerKw = telemetry.Float(stats.AvgKw.Float64)
	}
	if stats.PeakKw.Valid {
		summary.PeakPowerKw = telemetry.Float(stats.PeakKw.Float64)
	}
	var first, last *time.Time
	if stats.FirstTS.Valid {
		t := stats.FirstTS.Time
		first = &t
	}
	if stats.LastTS.Valid {
		t := stats.LastTS.Time
		last = &t
	}
	summary.FinishSummary(first, last)
	return summary
}

func parseDayQuery(r *http.Request) (time.Time, error) {
	value := r.URL.Query().Get("day")
	if value == "" {
		return time.Now().UTC().Truncate(24 * time.Hour), nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, errors.New("day must be YYYY-MM-DD")
	}
	return parsed.UTC(), nil
}

func parseTimeQuery(r *http.Request, key string) (time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return time.Time{}, errors.New(key + " is required")
	}
	parsed, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, errors.New(key + " must be RFC3339")
	}
	return parsed.UTC(), nil
}
