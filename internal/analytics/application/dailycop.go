package application

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	telemetry "hvac-cloud/internal/telemetry/domain"
)

const defaultCacheTTL = time.Minute

// DailyCopService derives the day's running COP from persisted system
// samples: average heat output over the day divided by average electrical
// input, rather than an instantaneous reading. Results are cached so the
// per-tick lookup does not hit the database every second.
type DailyCopService struct {
	db       *sql.DB
	table    string
	cacheTTL time.Duration

	mu        sync.Mutex
	cached    *float64
	cachedDay time.Time
	fetchedAt time.Time
}

// DailyCopOption configures the service.
type DailyCopOption func(*DailyCopService)

// WithSystemTable overrides the system sample table name.
func WithSystemTable(table string) DailyCopOption {
	return func(s *DailyCopService) {
		if table != "" {
			s.table = table
		}
	}
}

// WithCacheTTL overrides how long a computed value is reused.
func WithCacheTTL(ttl time.Duration) DailyCopOption {
	return func(s *DailyCopService) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// NewDailyCopService constructs the service.
func NewDailyCopService(db *sql.DB, opts ...DailyCopOption) (*DailyCopService, error) {
	if db == nil {
		return nil, errors.New("daily cop: nil db")
	}
	service := &DailyCopService{db: db, table: "system_samples", cacheTTL: defaultCacheTTL}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// DailyCop returns the average COP since midnight UTC, or nil when no
// usable samples exist yet.
func (s *DailyCopService) DailyCop(ctx context.Context, now time.Time) (*float64, error) {
	if s == nil {
		return nil, errors.New("daily cop: nil service")
	}
	day := now.UTC().Truncate(24 * time.Hour)

	s.mu.Lock()
	if s.cachedDay.Equal(day) && now.Sub(s.fetchedAt) < s.cacheTTL {
		cached := s.cached
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	query := fmt.Sprintf(`
SELECT AVG(total_btu), AVG(power_kw), COUNT(*)
FROM %s
WHERE ts >= $1 AND ts < $2
  AND power_kw IS NOT NULL AND power_kw > 0`, s.table)

	var (
		avgBtu, avgKw sql.NullFloat64
		samples       int
	)
	err := s.db.QueryRowContext(ctx, query, day, day.Add(24*time.Hour)).Scan(&avgBtu, &avgKw, &samples)
	if err != nil {
		return nil, err
	}

	var cop *float64
	if samples > 0 && avgBtu.Valid && avgKw.Valid && avgKw.Float64 > 0 {
		cop = telemetry.COP(telemetry.Float(avgBtu.Float64), telemetry.Float(avgKw.Float64))
	}

	s.mu.Lock()
	s.cached = cop
	s.cachedDay = day
	s.fetchedAt = now
	s.mu.Unlock()
	return cop, nil
}
