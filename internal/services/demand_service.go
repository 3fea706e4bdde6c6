package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"ieso-demand-agent/internal/models"
	"ieso-demand-agent/internal/quality"
	"ieso-demand-agent/internal/repository"
	"ieso-demand-agent/pkg/logging"
	"ieso-demand-agent/pkg/metrics"
)

const (
	// StaleAfter is how old the newest reading may be before the dataset
	// is reported stale. Policy, not physics.
	StaleAfter = 48 * time.Hour

	// queryRowCap limits how many raw readings a query response carries,
	// to keep responses consumable by a text-generating client.
	queryRowCap = 100
)

// DemandService orchestrates demand-data operations: it fetches a reading
// window from the repository and hands the plain series to the quality
// engine. Retry and timeout policy for the store stays here and below;
// the engine never sees the database.
type DemandService struct {
	repo    repository.DemandRepository
	engine  *quality.Engine
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
	now     func() time.Time
}

// NewDemandService creates a new demand service
func NewDemandService(repo repository.DemandRepository, engine *quality.Engine, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *DemandService {
	return &DemandService{
		repo:    repo,
		engine:  engine,
		logger:  logger,
		metrics: metricsCollector,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ValidateQuality fetches the readings for [startDate, endDate] and runs
// the quality validation over them.
func (s *DemandService) ValidateQuality(ctx context.Context, startDate, endDate time.Time) (*models.QualityReport, error) {
	if startDate.After(endDate) {
		return nil, models.NewInvalidRangeError(startDate, endDate)
	}

	series, err := s.repo.FetchReadings(ctx, startDate, endDate)
	if err != nil {
		return nil, err
	}

	timer := s.metrics.NewTimer(s.metrics.ValidationDuration)
	report, err := s.engine.Validate(ctx, series, startDate, endDate)
	timer.ObserveDuration()
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "[SVC_VALIDATE] Quality validation completed", logging.Fields{
		"start_date":       startDate.Format("2006-01-02"),
		"end_date":         endDate.Format("2006-01-02"),
		"is_valid":         report.IsValid,
		"completeness_pct": report.CompletenessPct,
	})

	return report, nil
}

// CalculateStatistics fetches the readings for [startDate, endDate] and
// computes descriptive statistics over them. An empty window is an
// EmptySeriesError, never a zero-filled report.
func (s *DemandService) CalculateStatistics(ctx context.Context, startDate, endDate time.Time) (*models.StatisticsReport, error) {
	if startDate.After(endDate) {
		return nil, models.NewInvalidRangeError(startDate, endDate)
	}

	series, err := s.repo.FetchReadings(ctx, startDate, endDate)
	if err != nil {
		return nil, err
	}

	timer := s.metrics.NewTimer(s.metrics.StatisticsDuration)
	report, err := s.engine.Summarize(ctx, series)
	timer.ObserveDuration()
	if err != nil {
		return nil, err
	}

	return report, nil
}

// QueryDemand fetches raw readings for [startDate, endDate] with summary
// aggregates. At most 100 rows are returned in the response body;
// RecordCount reflects the full result size.
func (s *DemandService) QueryDemand(ctx context.Context, startDate, endDate time.Time) (*models.QueryResponse, error) {
	if startDate.After(endDate) {
		return nil, models.NewInvalidRangeError(startDate, endDate)
	}

	series, err := s.repo.FetchReadings(ctx, startDate, endDate)
	if err != nil {
		return nil, err
	}

	if len(series) == 0 {
		return &models.QueryResponse{
			Success:     false,
			Data:        []models.DemandReading{},
			RecordCount: 0,
			Message:     "No data found for specified date range",
		}, nil
	}

	sum := 0.0
	count := 0
	peak := math.Inf(-1)
	min := math.Inf(1)
	for i := range series {
		if series[i].OntarioDemandMW == nil {
			continue
		}
		v := *series[i].OntarioDemandMW
		sum += v
		count++
		if v > peak {
			peak = v
		}
		if v < min {
			min = v
		}
	}

	avg := 0.0
	if count > 0 {
		avg = sum / float64(count)
	} else {
		peak, min = 0, 0
	}

	data := series
	if len(data) > queryRowCap {
		data = data[:queryRowCap]
	}

	return &models.QueryResponse{
		Success:     true,
		Data:        data,
		RecordCount: len(series),
		DateRange: []string{
			series[0].Date.Format("2006-01-02"),
			series[len(series)-1].Date.Format("2006-01-02"),
		},
		AvgDemandMW:  round2(avg),
		PeakDemandMW: int(peak),
		MinDemandMW:  int(min),
		Message: fmt.Sprintf("Retrieved %d hourly demand records from %s to %s",
			len(series), startDate.Format("2006-01-02"), endDate.Format("2006-01-02")),
	}, nil
}

// CheckFreshness reports how recent the stored data is. Data older than
// StaleAfter, or an empty table, is reported stale.
func (s *DemandService) CheckFreshness(ctx context.Context) (*models.FreshnessReport, error) {
	row, err := s.repo.GetFreshness(ctx)
	if err != nil {
		return nil, err
	}

	if row.TotalRows == 0 || !row.LatestDate.Valid {
		return &models.FreshnessReport{
			Success:   true,
			TotalRows: row.TotalRows,
			IsStale:   true,
			Message:   "No demand data available",
		}, nil
	}

	hoursOld := s.now().Sub(row.LatestDate.Time).Hours()

	report := &models.FreshnessReport{
		Success:    true,
		LatestDate: row.LatestDate.Time.Format("2006-01-02"),
		TotalRows:  row.TotalRows,
		HoursOld:   round1(hoursOld),
		IsStale:    hoursOld > StaleAfter.Hours(),
		Message:    fmt.Sprintf("Latest data: %s, %.1f hours old", row.LatestDate.Time.Format("2006-01-02"), hoursOld),
	}
	if row.EarliestDate.Valid {
		report.EarliestDate = row.EarliestDate.Time.Format("2006-01-02")
	}

	return report, nil
}

// GetSummary reports whole-table demand aggregates.
func (s *DemandService) GetSummary(ctx context.Context) (*models.SummaryReport, error) {
	row, err := s.repo.GetSummary(ctx)
	if err != nil {
		return nil, err
	}

	report := &models.SummaryReport{
		Success:   true,
		TotalRows: row.TotalRows,
		Message:   "Demand data summary",
	}

	if row.MinDemandMW.Valid {
		report.MinDemandMW = row.MinDemandMW.Float64
	}
	if row.MaxDemandMW.Valid {
		report.MaxDemandMW = row.MaxDemandMW.Float64
	}
	if row.AvgDemandMW.Valid {
		report.AvgDemandMW = round2(row.AvgDemandMW.Float64)
	}
	if row.EarliestDate.Valid {
		report.EarliestDate = row.EarliestDate.Time.Format("2006-01-02")
	}
	if row.LatestDate.Valid {
		report.LatestDate = row.LatestDate.Time.Format("2006-01-02")
	}

	return report, nil
}

// HealthCheck verifies the backing store is reachable
func (s *DemandService) HealthCheck(ctx context.Context) error {
	return s.repo.HealthCheck(ctx)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
