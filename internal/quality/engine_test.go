package quality

import (
	"context"
	"reflect"
	"testing"
	"time"

	"ieso-demand-agent/internal/models"
	"ieso-demand-agent/pkg/logging"
)

func testEngine() *Engine {
	logger := logging.NewStructuredLogger("quality-test", "test", logging.ErrorLevel)
	return NewEngine(DefaultConfig(), logger)
}

// fullDay builds a complete 24-hour series for one date at a constant demand.
func fullDay(date time.Time, demandMW float64) []models.DemandReading {
	series := make([]models.DemandReading, 0, 24)
	for hour := 0; hour < 24; hour++ {
		v := demandMW
		m := demandMW + 1000
		series = append(series, models.DemandReading{
			Date:            date,
			Hour:            hour,
			OntarioDemandMW: &v,
			MarketDemandMW:  &m,
		})
	}
	return series
}

func fullRange(start time.Time, days int, demandMW float64) []models.DemandReading {
	var series []models.DemandReading
	for d := 0; d < days; d++ {
		series = append(series, fullDay(start.AddDate(0, 0, d), demandMW)...)
	}
	return series
}

func TestEngine_Validate_ExpectedCount(t *testing.T) {
	engine := testEngine()
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		end      time.Time
		expected int
	}{
		{"single day expects 24 hours", start, 24},
		{"two days expects 48 hours", start.AddDate(0, 0, 1), 48},
		{"one week expects 168 hours", start.AddDate(0, 0, 6), 168},
		{"thirty one days expects 744 hours", start.AddDate(0, 0, 30), 744},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := engine.Validate(ctx, nil, start, tt.end)
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if report.ExpectedCount != tt.expected {
				t.Errorf("ExpectedCount = %d, want %d", report.ExpectedCount, tt.expected)
			}
		})
	}
}

func TestEngine_Validate_CleanSeries(t *testing.T) {
	engine := testEngine()
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	series := fullRange(start, 2, 15000)

	report, err := engine.Validate(ctx, series, start, end)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if !report.Success {
		t.Error("Success = false, want true")
	}
	if !report.IsValid {
		t.Error("IsValid = false, want true")
	}
	if report.ActualCount != 48 {
		t.Errorf("ActualCount = %d, want 48", report.ActualCount)
	}
	if report.MissingCount != 0 {
		t.Errorf("MissingCount = %d, want 0", report.MissingCount)
	}
	if report.CompletenessPct != 100 {
		t.Errorf("CompletenessPct = %v, want 100", report.CompletenessPct)
	}
	if report.OutlierCount != 0 {
		t.Errorf("OutlierCount = %d, want 0", report.OutlierCount)
	}
	if report.GapCount != 0 || report.HasGaps {
		t.Errorf("GapCount = %d, HasGaps = %v, want 0 and false", report.GapCount, report.HasGaps)
	}
	if len(report.Issues) != 1 || report.Issues[0] != NoIssuesSentinel {
		t.Errorf("Issues = %v, want [%q]", report.Issues, NoIssuesSentinel)
	}
	if report.Message != "Data validation complete" {
		t.Errorf("Message = %q, want %q", report.Message, "Data validation complete")
	}
}

func TestEngine_Validate_MissingHour(t *testing.T) {
	engine := testEngine()
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// Drop one interior hour from a full day. The removal both raises the
	// missing count and opens a 2-hour gap.
	series := fullDay(start, 15000)
	series = append(series[:10], series[11:]...)

	report, err := engine.Validate(ctx, series, start, start)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if report.ActualCount != 23 {
		t.Errorf("ActualCount = %d, want 23", report.ActualCount)
	}
	if report.MissingCount != 1 {
		t.Errorf("MissingCount = %d, want 1", report.MissingCount)
	}
	if report.CompletenessPct != 95.83 {
		t.Errorf("CompletenessPct = %v, want 95.83", report.CompletenessPct)
	}
	if report.GapCount != 1 {
		t.Errorf("GapCount = %d, want 1", report.GapCount)
	}
	if !report.HasGaps {
		t.Error("HasGaps = false, want true")
	}
	if !report.IsValid {
		t.Error("IsValid = false, want true: 95.83% completeness clears the 95% threshold")
	}

	wantIssues := []string{
		"1 missing hours out of 24 expected",
		"1 time gaps detected",
	}
	if len(report.Issues) != len(wantIssues) {
		t.Fatalf("Issues = %v, want %v", report.Issues, wantIssues)
	}
	for i := range wantIssues {
		if report.Issues[i] != wantIssues[i] {
			t.Errorf("Issues[%d] = %q, want %q", i, report.Issues[i], wantIssues[i])
		}
	}
}

func TestEngine_Validate_BelowCompletenessThreshold(t *testing.T) {
	engine := testEngine()
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// 21 of 24 hours is 87.5%, below the 95% threshold.
	series := fullDay(start, 15000)[:21]

	report, err := engine.Validate(ctx, series, start, start)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if report.IsValid {
		t.Error("IsValid = true, want false below the completeness threshold")
	}
	if report.MissingCount != 3 {
		t.Errorf("MissingCount = %d, want 3", report.MissingCount)
	}
	if report.CompletenessPct != 87.5 {
		t.Errorf("CompletenessPct = %v, want 87.5", report.CompletenessPct)
	}
}

func TestEngine_Validate_OutlierDetection(t *testing.T) {
	engine := testEngine()
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// A constant two-day series with one spike: the spike's z-score is
	// roughly sqrt(n), far past 3 sigma for 48 readings.
	series := fullRange(start, 2, 15000)
	spike := 60000.0
	series[30].OntarioDemandMW = &spike

	report, err := engine.Validate(ctx, series, start, start.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if report.OutlierCount != 1 {
		t.Errorf("OutlierCount = %d, want 1", report.OutlierCount)
	}
	// 1 outlier of 48 readings is above the 1% rate threshold.
	if report.IsValid {
		t.Error("IsValid = true, want false with outlier rate above threshold")
	}

	found := false
	for _, issue := range report.Issues {
		if issue == "1 outlier values detected" {
			found = true
		}
	}
	if !found {
		t.Errorf("Issues = %v, want an outlier entry", report.Issues)
	}
}

func TestEngine_Validate_UnorderedSeries(t *testing.T) {
	engine := testEngine()
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// Reverse the series: gap detection must sort by timestamp first, so a
	// complete day in reverse order still has zero gaps.
	series := fullDay(start, 15000)
	for i, j := 0, len(series)-1; i < j; i, j = i+1, j-1 {
		series[i], series[j] = series[j], series[i]
	}

	report, err := engine.Validate(ctx, series, start, start)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if report.GapCount != 0 {
		t.Errorf("GapCount = %d, want 0 for a complete unordered day", report.GapCount)
	}
	if report.CompletenessPct != 100 {
		t.Errorf("CompletenessPct = %v, want 100", report.CompletenessPct)
	}
}

func TestEngine_Validate_EmptySeries(t *testing.T) {
	engine := testEngine()
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 6)

	report, err := engine.Validate(ctx, nil, start, end)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if report.Success {
		t.Error("Success = true, want false for an empty series")
	}
	if report.IsValid {
		t.Error("IsValid = true, want false for an empty series")
	}
	if report.ExpectedCount != 168 {
		t.Errorf("ExpectedCount = %d, want 168", report.ExpectedCount)
	}
	if report.MissingCount != 168 {
		t.Errorf("MissingCount = %d, want 168", report.MissingCount)
	}
	if report.Message != "No data found for validation" {
		t.Errorf("Message = %q, want %q", report.Message, "No data found for validation")
	}
}

func TestEngine_Validate_InvalidRange(t *testing.T) {
	engine := testEngine()
	ctx := context.Background()
	start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := engine.Validate(ctx, nil, start, end)
	if err == nil {
		t.Fatal("Validate() error = nil, want InvalidRangeError")
	}
	if _, ok := err.(*models.InvalidRangeError); !ok {
		t.Errorf("error type = %T, want *models.InvalidRangeError", err)
	}
}

func TestEngine_Validate_Idempotent(t *testing.T) {
	engine := testEngine()
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	series := fullDay(start, 15000)
	series = append(series[:5], series[6:]...)

	first, err := engine.Validate(ctx, series, start, start)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	second, err := engine.Validate(ctx, series, start, start)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated validation differs: first = %+v, second = %+v", first, second)
	}
}

func TestEngine_Validate_DuplicatesCountTowardActual(t *testing.T) {
	engine := testEngine()
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	series := fullDay(start, 15000)
	series = append(series, series[12])

	report, err := engine.Validate(ctx, series, start, start)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if report.ActualCount != 25 {
		t.Errorf("ActualCount = %d, want 25 with a duplicate slot", report.ActualCount)
	}
	// Over-complete: missing is floored at zero, never negative.
	if report.MissingCount != 0 {
		t.Errorf("MissingCount = %d, want 0", report.MissingCount)
	}
}

func TestEngine_Validate_NilDemandExcludedFromOutliers(t *testing.T) {
	engine := testEngine()
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	series := fullDay(start, 15000)
	series[8].OntarioDemandMW = nil
	series[9].OntarioDemandMW = nil

	report, err := engine.Validate(ctx, series, start, start)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	// Nil readings keep their grid slot for completeness but contribute no
	// measurement to outlier detection.
	if report.ActualCount != 24 {
		t.Errorf("ActualCount = %d, want 24", report.ActualCount)
	}
	if report.OutlierCount != 0 {
		t.Errorf("OutlierCount = %d, want 0", report.OutlierCount)
	}
}
