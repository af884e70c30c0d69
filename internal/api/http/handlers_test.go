package apihttp

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hvac-cloud/internal/telemetry/application"
	telemetry "hvac-cloud/internal/telemetry/domain"
	"hvac-cloud/internal/telemetry/infrastructure/postgres"
)

type stubViewSource struct {
	view application.View
}

func (s stubViewSource) View() application.View { return s.view }

type stubHistory struct {
	rows    []telemetry.HistoryRow
	zoneID  string
	from    time.Time
	to      time.Time
	limit   int
	stats   postgres.SystemDayStats
	statsAt time.Time
}

func (s *stubHistory) ListZoneRows(_ context.Context, zoneID string, from, to time.Time, limit int) ([]telemetry.HistoryRow, error) {
	s.zoneID, s.from, s.to, s.limit = zoneID, from, to, limit
	return s.rows, nil
}

func (s *stubHistory) DayStats(_ context.Context, dayStart time.Time) (postgres.SystemDayStats, error) {
	s.statsAt = dayStart
	return s.stats, nil
}

func testView() application.View {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	zones := []telemetry.ZoneReading{
		{ID: "ahu1", Name: "AHU 1", Kind: telemetry.ZoneAirHandler, GPM: 3.0, PumpOn: true, BtuPerHour: telemetry.Float(15000)},
	}
	return application.View{
		Snapshot: telemetry.Snapshot{
			At:     now,
			Zones:  zones,
			System: telemetry.Aggregate(zones, telemetry.Float(2.5), nil, nil),
		},
	}
}

func TestSnapshotHandler(t *testing.T) {
	handler := NewSnapshotHandler(stubViewSource{view: testView()})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/snapshot", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var view application.View
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(view.Zones) != 1 || view.Zones[0].ID != "ahu1" {
		t.Fatalf("unexpected zones %+v", view.Zones)
	}
	if view.System.TotalBtu != 15000 {
		t.Fatalf("unexpected total BTU %v", view.System.TotalBtu)
	}
}

func TestSnapshotHandlerBeforeFirstTick(t *testing.T) {
	handler := NewSnapshotHandler(stubViewSource{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/snapshot", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before first tick, got %d", rec.Code)
	}
}

func TestHistoryHandler(t *testing.T) {
	history := &stubHistory{rows: []telemetry.HistoryRow{{ZoneID: "ahu1", GPM: 3.0}}}
	handler := NewHistoryHandler(history)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history?zone_id=ahu1&from=2026-02-01T00:00:00Z&to=2026-02-02T00:00:00Z&limit=100", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if history.zoneID != "ahu1" || history.limit != 100 {
		t.Fatalf("unexpected query params zone=%s limit=%d", history.zoneID, history.limit)
	}
	if !history.to.After(history.from) {
		t.Fatalf("unexpected window %v..%v", history.from, history.to)
	}

	var rows []telemetry.HistoryRow
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode rows: %v", err)
	}
	if len(rows) != 1 || rows[0].ZoneID != "ahu1" {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestHistoryHandlerValidation(t *testing.T) {
	handler := NewHistoryHandler(&stubHistory{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without window, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/history?from=2026-02-02T00:00:00Z&to=2026-02-01T00:00:00Z", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for inverted window, got %d", rec.Code)
	}
}

func TestHistoryCSVHandler(t *testing.T) {
	history := &stubHistory{rows: []telemetry.HistoryRow{
		{TS: time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC), ZoneID: "ahu1", GPM: 3.0, BtuPerHour: telemetry.Float(15000), Active: true},
	}}
	handler := NewHistoryCSVHandler(history)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/exports/history.csv?from=2026-02-01T00:00:00Z&to=2026-02-02T00:00:00Z", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/csv" {
		t.Fatalf("expected text/csv, got %s", got)
	}
	body := rec.Body.String()
	if !strings.HasPrefix(body, "ts,zone_id") {
		t.Fatalf("expected csv header, got %q", body)
	}
	if !strings.Contains(body, "ahu1") {
		t.Fatalf("expected row in csv, got %q", body)
	}
}

func TestReportsHandlerPDF(t *testing.T) {
	history := &stubHistory{stats: postgres.SystemDayStats{
		Samples: 10,
		AvgBtu:  17060,
		AvgKw:   sql.NullFloat64{Float64: 2.0, Valid: true},
		PeakBtu: 30000,
		PeakKw:  sql.NullFloat64{Float64: 4.0, Valid: true},
	}}
	handler := NewReportsHandler(history, history)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/daily.pdf?day=2026-02-01", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "application/pdf" {
		t.Fatalf("expected pdf content type, got %s", got)
	}
	if want := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC); !history.statsAt.Equal(want) {
		t.Fatalf("expected stats for %v, got %v", want, history.statsAt)
	}
}

func TestReportsHandlerUnknownFormat(t *testing.T) {
	handler := NewReportsHandler(&stubHistory{}, &stubHistory{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/daily.docx", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestAnalystContextHandler(t *testing.T) {
	handler := NewAnalystContextHandler(stubViewSource{view: testView()})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyst/context", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "HVAC system state") {
		t.Fatalf("expected context text, got %q", rec.Body.String())
	}
}
