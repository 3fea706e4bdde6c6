package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ieso-demand-agent/internal/models"
	"ieso-demand-agent/pkg/database"
	"ieso-demand-agent/pkg/logging"
	"ieso-demand-agent/pkg/metrics"
)

// DemandRepository provides data access for hourly IESO demand readings.
// It is the single collaborator the quality engine's callers depend on:
// the engine itself only ever sees plain reading slices.
type DemandRepository interface {
	// FetchReadings returns all readings with dates in [startDate, endDate]
	// inclusive, ordered by date then hour. A valid range with no data
	// returns an empty slice, not an error; store failures surface as
	// DataUnavailableError.
	FetchReadings(ctx context.Context, startDate, endDate time.Time) ([]models.DemandReading, error)

	// GetFreshness returns the boundary dates and row count of the table.
	GetFreshness(ctx context.Context) (*FreshnessRow, error)

	// GetSummary returns whole-table demand aggregates.
	GetSummary(ctx context.Context) (*SummaryRow, error)

	// InsertReadingsBatch upserts readings in a single transaction.
	InsertReadingsBatch(ctx context.Context, readings []models.DemandReading) error

	// HealthCheck verifies the backing store is reachable.
	HealthCheck(ctx context.Context) error
}

// FreshnessRow is the raw freshness aggregate; staleness policy is applied
// by the service layer.
type FreshnessRow struct {
	LatestDate   sql.NullTime `db:"latest_date"`
	EarliestDate sql.NullTime `db:"earliest_date"`
	TotalRows    int64        `db:"total_rows"`
}

// SummaryRow is the raw whole-table demand aggregate.
type SummaryRow struct {
	TotalRows    int64           `db:"total_rows"`
	MinDemandMW  sql.NullFloat64 `db:"min_demand_mw"`
	MaxDemandMW  sql.NullFloat64 `db:"max_demand_mw"`
	AvgDemandMW  sql.NullFloat64 `db:"avg_demand_mw"`
	EarliestDate sql.NullTime    `db:"earliest_date"`
	LatestDate   sql.NullTime    `db:"latest_date"`
}

// demandRepository implements DemandRepository over PostgreSQL
type demandRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewDemandRepository creates a new demand repository
func NewDemandRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) DemandRepository {
	return &demandRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// FetchReadings retrieves demand readings for an inclusive date range
func (r *demandRepository) FetchReadings(ctx context.Context, startDate, endDate time.Time) ([]models.DemandReading, error) {
	query := `
		SELECT date, hour, ontario_demand_mw, market_demand_mw
		FROM demand_readings
		WHERE date >= $1 AND date <= $2
		ORDER BY date, hour
	`

	var readings []models.DemandReading
	err := r.db.SelectContext(ctx, "fetch_readings", &readings, query, startDate, endDate)
	if err != nil {
		return nil, &models.DataUnavailableError{Cause: err}
	}

	r.metrics.ReadingsFetched.Observe(float64(len(readings)))
	r.logger.Debug(ctx, "[REPO_FETCH_READINGS] Readings fetched", logging.Fields{
		"start_date": startDate.Format("2006-01-02"),
		"end_date":   endDate.Format("2006-01-02"),
		"count":      len(readings),
	})

	return readings, nil
}

// GetFreshness retrieves data freshness aggregates
func (r *demandRepository) GetFreshness(ctx context.Context) (*FreshnessRow, error) {
	query := `
		SELECT
			MAX(date) AS latest_date,
			MIN(date) AS earliest_date,
			COUNT(*) AS total_rows
		FROM demand_readings
	`

	var row FreshnessRow
	if err := r.db.GetContext(ctx, "get_freshness", &row, query); err != nil {
		return nil, &models.DataUnavailableError{Cause: err}
	}

	return &row, nil
}

// GetSummary retrieves whole-table demand aggregates
func (r *demandRepository) GetSummary(ctx context.Context) (*SummaryRow, error) {
	query := `
		SELECT
			COUNT(*) AS total_rows,
			MIN(ontario_demand_mw) AS min_demand_mw,
			MAX(ontario_demand_mw) AS max_demand_mw,
			AVG(ontario_demand_mw) AS avg_demand_mw,
			MIN(date) AS earliest_date,
			MAX(date) AS latest_date
		FROM demand_readings
	`

	var row SummaryRow
	if err := r.db.GetContext(ctx, "get_summary", &row, query); err != nil {
		return nil, &models.DataUnavailableError{Cause: err}
	}

	return &row, nil
}

// InsertReadingsBatch upserts multiple readings in a single transaction
func (r *demandRepository) InsertReadingsBatch(ctx context.Context, readings []models.DemandReading) error {
	if len(readings) == 0 {
		return nil
	}

	timer := time.Now()
	defer func() {
		duration := time.Since(timer)
		r.metrics.IngestionBatchSize.Observe(float64(len(readings)))
		r.logger.Debug(ctx, "[REPO_BATCH_INSERT] Batch insert completed", logging.Fields{
			"count":       len(readings),
			"duration_ms": duration.Milliseconds(),
		})
	}()

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO demand_readings (date, hour, ontario_demand_mw, market_demand_mw, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (date, hour) DO UPDATE SET
			ontario_demand_mw = EXCLUDED.ontario_demand_mw,
			market_demand_mw = EXCLUDED.market_demand_mw
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i := range readings {
		_, err := stmt.ExecContext(ctx,
			readings[i].Date,
			readings[i].Hour,
			readings[i].OntarioDemandMW,
			readings[i].MarketDemandMW,
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert reading: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.metrics.IngestionRecordsTotal.Add(float64(len(readings)))

	return nil
}

// HealthCheck performs a repository health check
func (r *demandRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}
