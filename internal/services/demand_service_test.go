package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"ieso-demand-agent/internal/models"
	"ieso-demand-agent/internal/quality"
	"ieso-demand-agent/internal/repository"
	"ieso-demand-agent/pkg/logging"
	"ieso-demand-agent/pkg/metrics"
)

// One collector per test binary: the prometheus default registry rejects
// duplicate registration.
var testMetrics = metrics.NewCollector("services_test")

func testLogger() *logging.StructuredLogger {
	return logging.NewStructuredLogger("services-test", "test", logging.ErrorLevel)
}

// fakeRepo is an in-memory DemandRepository for service tests.
type fakeRepo struct {
	readings  []models.DemandReading
	fetchErr  error
	freshness *repository.FreshnessRow
	summary   *repository.SummaryRow
	inserted  []models.DemandReading
}

func (f *fakeRepo) FetchReadings(ctx context.Context, startDate, endDate time.Time) ([]models.DemandReading, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.readings, nil
}

func (f *fakeRepo) GetFreshness(ctx context.Context) (*repository.FreshnessRow, error) {
	return f.freshness, nil
}

func (f *fakeRepo) GetSummary(ctx context.Context) (*repository.SummaryRow, error) {
	return f.summary, nil
}

func (f *fakeRepo) InsertReadingsBatch(ctx context.Context, readings []models.DemandReading) error {
	f.inserted = append(f.inserted, readings...)
	return nil
}

func (f *fakeRepo) HealthCheck(ctx context.Context) error {
	return nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: true}
}

func nullFloat(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}

func newTestService(repo repository.DemandRepository) *DemandService {
	logger := testLogger()
	engine := quality.NewEngine(quality.DefaultConfig(), logger)
	return NewDemandService(repo, engine, logger, testMetrics)
}

// hourlyReadings builds a complete series of hourly readings starting at a
// date, with a linear demand ramp for distinguishable values.
func hourlyReadings(start time.Time, hours int, baseMW float64) []models.DemandReading {
	readings := make([]models.DemandReading, 0, hours)
	for i := 0; i < hours; i++ {
		ts := start.Add(time.Duration(i) * time.Hour)
		v := baseMW + float64(i)
		m := v + 1000
		readings = append(readings, models.DemandReading{
			Date:            time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC),
			Hour:            ts.Hour(),
			OntarioDemandMW: &v,
			MarketDemandMW:  &m,
		})
	}
	return readings
}

func TestDemandService_ValidateQuality(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := &fakeRepo{readings: hourlyReadings(start, 24, 15000)}
	service := newTestService(repo)

	report, err := service.ValidateQuality(context.Background(), start, start)
	if err != nil {
		t.Fatalf("ValidateQuality() error = %v", err)
	}

	if !report.IsValid {
		t.Error("IsValid = false, want true for a complete day")
	}
	if report.ExpectedCount != 24 || report.ActualCount != 24 {
		t.Errorf("counts = %d/%d, want 24/24", report.ExpectedCount, report.ActualCount)
	}
}

func TestDemandService_ValidateQuality_InvalidRange(t *testing.T) {
	service := newTestService(&fakeRepo{})
	start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := service.ValidateQuality(context.Background(), start, end)
	if err == nil {
		t.Fatal("ValidateQuality() error = nil, want InvalidRangeError")
	}
	if _, ok := err.(*models.InvalidRangeError); !ok {
		t.Errorf("error type = %T, want *models.InvalidRangeError", err)
	}
}

func TestDemandService_ValidateQuality_RepoError(t *testing.T) {
	repo := &fakeRepo{fetchErr: &models.DataUnavailableError{Cause: context.DeadlineExceeded}}
	service := newTestService(repo)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := service.ValidateQuality(context.Background(), start, start)
	if err == nil {
		t.Fatal("ValidateQuality() error = nil, want DataUnavailableError")
	}
	if _, ok := err.(*models.DataUnavailableError); !ok {
		t.Errorf("error type = %T, want *models.DataUnavailableError", err)
	}
}

func TestDemandService_CalculateStatistics_EmptyWindow(t *testing.T) {
	service := newTestService(&fakeRepo{})
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := service.CalculateStatistics(context.Background(), start, start)
	if err == nil {
		t.Fatal("CalculateStatistics() error = nil, want EmptySeriesError")
	}
	if _, ok := err.(*models.EmptySeriesError); !ok {
		t.Errorf("error type = %T, want *models.EmptySeriesError", err)
	}
}

func TestDemandService_QueryDemand_CapsRows(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := &fakeRepo{readings: hourlyReadings(start, 168, 15000)}
	service := newTestService(repo)

	resp, err := service.QueryDemand(context.Background(), start, start.AddDate(0, 0, 6))
	if err != nil {
		t.Fatalf("QueryDemand() error = %v", err)
	}

	if !resp.Success {
		t.Error("Success = false, want true")
	}
	if len(resp.Data) != 100 {
		t.Errorf("len(Data) = %d, want 100: responses are capped", len(resp.Data))
	}
	if resp.RecordCount != 168 {
		t.Errorf("RecordCount = %d, want 168: the count reflects the full result", resp.RecordCount)
	}
	if resp.PeakDemandMW != 15167 {
		t.Errorf("PeakDemandMW = %d, want 15167", resp.PeakDemandMW)
	}
	if resp.MinDemandMW != 15000 {
		t.Errorf("MinDemandMW = %d, want 15000", resp.MinDemandMW)
	}
	wantRange := []string{"2024-01-01", "2024-01-07"}
	if len(resp.DateRange) != 2 || resp.DateRange[0] != wantRange[0] || resp.DateRange[1] != wantRange[1] {
		t.Errorf("DateRange = %v, want %v", resp.DateRange, wantRange)
	}
	if resp.Message != "Retrieved 168 hourly demand records from 2024-01-01 to 2024-01-07" {
		t.Errorf("Message = %q", resp.Message)
	}
}

func TestDemandService_QueryDemand_NoData(t *testing.T) {
	service := newTestService(&fakeRepo{})
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	resp, err := service.QueryDemand(context.Background(), start, start)
	if err != nil {
		t.Fatalf("QueryDemand() error = %v", err)
	}

	if resp.Success {
		t.Error("Success = true, want false for an empty window")
	}
	if resp.RecordCount != 0 || len(resp.Data) != 0 {
		t.Errorf("RecordCount/Data = %d/%d, want 0/0", resp.RecordCount, len(resp.Data))
	}
	if resp.Message != "No data found for specified date range" {
		t.Errorf("Message = %q", resp.Message)
	}
}

func TestDemandService_CheckFreshness(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		latest    time.Time
		totalRows int64
		wantStale bool
		wantHours float64
	}{
		{
			name:      "fresh data",
			latest:    time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
			totalRows: 1000,
			wantStale: false,
			wantHours: 12,
		},
		{
			name:      "stale data beyond 48 hours",
			latest:    time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC),
			totalRows: 1000,
			wantStale: true,
			wantHours: 84,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeRepo{
				freshness: &repository.FreshnessRow{
					LatestDate:   nullTime(tt.latest),
					EarliestDate: nullTime(tt.latest.AddDate(-1, 0, 0)),
					TotalRows:    tt.totalRows,
				},
			}
			service := newTestService(repo)
			service.now = func() time.Time { return now }

			report, err := service.CheckFreshness(context.Background())
			if err != nil {
				t.Fatalf("CheckFreshness() error = %v", err)
			}

			if report.IsStale != tt.wantStale {
				t.Errorf("IsStale = %v, want %v", report.IsStale, tt.wantStale)
			}
			if report.HoursOld != tt.wantHours {
				t.Errorf("HoursOld = %v, want %v", report.HoursOld, tt.wantHours)
			}
			if report.TotalRows != tt.totalRows {
				t.Errorf("TotalRows = %d, want %d", report.TotalRows, tt.totalRows)
			}
		})
	}
}

func TestDemandService_CheckFreshness_EmptyTable(t *testing.T) {
	repo := &fakeRepo{freshness: &repository.FreshnessRow{}}
	service := newTestService(repo)

	report, err := service.CheckFreshness(context.Background())
	if err != nil {
		t.Fatalf("CheckFreshness() error = %v", err)
	}

	if !report.IsStale {
		t.Error("IsStale = false, want true for an empty table")
	}
	if report.Message != "No demand data available" {
		t.Errorf("Message = %q", report.Message)
	}
}

func TestDemandService_GetSummary(t *testing.T) {
	repo := &fakeRepo{
		summary: &repository.SummaryRow{
			TotalRows:    8760,
			MinDemandMW:  nullFloat(11021.5),
			MaxDemandMW:  nullFloat(23456),
			AvgDemandMW:  nullFloat(16123.456789),
			EarliestDate: nullTime(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)),
			LatestDate:   nullTime(time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)),
		},
	}
	service := newTestService(repo)

	report, err := service.GetSummary(context.Background())
	if err != nil {
		t.Fatalf("GetSummary() error = %v", err)
	}

	if report.TotalRows != 8760 {
		t.Errorf("TotalRows = %d, want 8760", report.TotalRows)
	}
	if report.AvgDemandMW != 16123.46 {
		t.Errorf("AvgDemandMW = %v, want 16123.46", report.AvgDemandMW)
	}
	if report.EarliestDate != "2023-01-01" || report.LatestDate != "2023-12-31" {
		t.Errorf("dates = %q/%q", report.EarliestDate, report.LatestDate)
	}
}
