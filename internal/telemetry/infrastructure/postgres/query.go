package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	telemetry "hvac-cloud/internal/telemetry/domain"
)

// HistoryQuery reads persisted samples back for trend views and exports.
type HistoryQuery struct {
	db          *sql.DB
	zoneTable   string
	systemTable string
}

// NewHistoryQuery constructs a query helper over the sample tables.
func NewHistoryQuery(db *sql.DB, opts ...RepositoryOption) *HistoryQuery {
	repo := &HistoryRepository{zoneTable: defaultZoneTable, systemTable: defaultSystemTable}
	for _, opt := range opts {
		opt(repo)
	}
	return &HistoryQuery{db: db, zoneTable: repo.zoneTable, systemTable: repo.systemTable}
}

// ListZoneRows returns zone samples in [from, to), oldest first. An empty
// zoneID returns rows for all zones.
func (q *HistoryQuery) ListZoneRows(ctx context.Context, zoneID string, from, to time.Time, limit int) ([]telemetry.HistoryRow, error) {
	if q == nil || q.db == nil {
		return nil, errors.New("history query: nil db")
	}
	if !to.After(from) {
		return nil, errors.New("history query: empty window")
	}
	if limit <= 0 {
		limit = 10000
	}

	query := fmt.Sprintf(`
SELECT ts, zone_id, supply_temp, return_temp, delta_t, gpm, btu_per_hour, active
FROM %s
WHERE ts >= $1 AND ts < $2
  AND ($3 = '' OR zone_id = $3)
ORDER BY ts ASC, zone_id ASC
LIMIT $4`, q.zoneTable)

	rows, err := q.db.QueryContext(ctx, query, from, to, zoneID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []telemetry.HistoryRow
	for rows.Next() {
		var (
			row                           telemetry.HistoryRow
			supply, ret, deltaT, btuPerHr sql.NullFloat64
		)
		if err := rows.Scan(&row.TS, &row.ZoneID, &supply, &ret, &deltaT, &row.GPM, &btuPerHr, &row.Active); err != nil {
			return nil, err
		}
		row.SupplyTemp = floatPtr(supply)
		row.ReturnTemp = floatPtr(ret)
		row.DeltaT = floatPtr(deltaT)
		row.BtuPerHour = floatPtr(btuPerHr)
		out = append(out, row)
	}
	return out, rows.Err()
}

// SystemDayStats summarizes system samples over one calendar day.
type SystemDayStats struct {
	Samples int
	AvgBtu  float64
	AvgKw   sql.NullFloat64
	PeakBtu float64
	PeakKw  sql.NullFloat64
	FirstTS sql.NullTime
	LastTS  sql.NullTime
}

// DayStats aggregates system samples in [dayStart, dayStart+24h).
func (q *HistoryQuery) DayStats(ctx context.Context, dayStart time.Time) (SystemDayStats, error) {
	if q == nil || q.db == nil {
		return SystemDayStats{}, errors.New("history query: nil db")
	}

	query := fmt.Sprintf(`
SELECT
	COUNT(*),
	COALESCE(AVG(total_btu), 0),
	AVG(power_kw),
	COALESCE(MAX(total_btu), 0),
	MAX(power_kw),
	MIN(ts),
	MAX(ts)
FROM %s
WHERE ts >= $1 AND ts < $2`, q.systemTable)

	var stats SystemDayStats
	err := q.db.QueryRowContext(ctx, query, dayStart, dayStart.Add(24*time.Hour)).Scan(
		&stats.Samples,
		&stats.AvgBtu,
		&stats.AvgKw,
		&stats.PeakBtu,
		&stats.PeakKw,
		&stats.FirstTS,
		&stats.LastTS,
	)
	if err != nil {
		return SystemDayStats{}, err
	}
	return stats, nil
}

func floatPtr(value sql.NullFloat64) *float64 {
	if !value.Valid {
		return nil
	}
	v := value.Float64
	return &v
}
