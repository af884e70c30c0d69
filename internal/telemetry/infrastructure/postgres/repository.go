package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	telemetry "hvac-cloud/internal/telemetry/domain"
)

const (
	defaultZoneTable   = "zone_samples"
	defaultSystemTable = "system_samples"
)

// HistoryRepository persists per-tick snapshots to Postgres.
type HistoryRepository struct {
	db          *sql.DB
	zoneTable   string
	systemTable string
}

// RepositoryOption configures the repository.
type RepositoryOption func(*HistoryRepository)

// WithZoneTable overrides the zone sample table name.
func WithZoneTable(table string) RepositoryOption {
	return func(repo *HistoryRepository) {
		if table != "" {
			repo.zoneTable = table
		}
	}
}

// WithSystemTable overrides the system sample table name.
func WithSystemTable(table string) RepositoryOption {
	return func(repo *HistoryRepository) {
		if table != "" {
			repo.systemTable = table
		}
	}
}

// NewHistoryRepository constructs a repository with default table names.
func NewHistoryRepository(db *sql.DB, opts ...RepositoryOption) *HistoryRepository {
	repo := &HistoryRepository{db: db, zoneTable: defaultZoneTable, systemTable: defaultSystemTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// InsertSnapshot writes one system row and one row per zone for the tick.
func (r *HistoryRepository) InsertSnapshot(ctx context.Context, snap telemetry.Snapshot) error {
	if r == nil || r.db == nil {
		return errors.New("history repo: nil db")
	}
	if snap.At.IsZero() {
		return errors.New("history repo: zero snapshot time")
	}

	systemQuery := fmt.Sprintf(`
INSERT INTO %s (
	ts,
	total_btu,
	total_gpm,
	power_kw,
	live_cop,
	outdoor_temp,
	mode
) VALUES (
	$1, $2, $3, $4, $5, $6, $7
)
ON CONFLICT (ts) DO NOTHING`, r.systemTable)

	zoneQuery := fmt.Sprintf(`
INSERT INTO %s (
	ts,
	zone_id,
	supply_temp,
	return_temp,
	delta_t,
	gpm,
	btu_per_hour,
	active
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8
)
ON CONFLICT (ts, zone_id) DO NOTHING`, r.zoneTable)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(
		ctx,
		systemQuery,
		snap.At,
		snap.System.TotalBtu,
		snap.System.TotalGpm,
		nullFloat(snap.System.TotalPowerKw),
		nullFloat(snap.System.LiveCop),
		nullFloat(snap.System.OutdoorTemp),
		string(snap.System.Mode),
	); err != nil {
		_ = tx.Rollback()
		return err
	}

	stmt, err := tx.PrepareContext(ctx, zoneQuery)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, zone := range snap.Zones {
		if _, err := stmt.ExecContext(
			ctx,
			snap.At,
			zone.ID,
			nullFloat(zone.SupplyTemp),
			nullFloat(zone.ReturnTemp),
			nullFloat(zone.DeltaT),
			zone.GPM,
			nullFloat(zone.BtuPerHour),
			zone.Active(),
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

func nullFloat(value *float64) sql.NullFloat64 {
	if value == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *value, Valid: true}
}
