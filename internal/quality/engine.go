package quality

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ieso-demand-agent/internal/models"
	"ieso-demand-agent/pkg/logging"
)

// NoIssuesSentinel is placed in the issues list when a series was checked
// and found clean. Callers rely on it to distinguish "checked, no issues"
// from "not checked", so the issues list is never empty on a clean pass.
const NoIssuesSentinel = "No quality issues detected"

// nominalSpacing is the expected interval between adjacent readings.
const nominalSpacing = time.Hour

// Config holds the quality thresholds. These are policy values, not
// physics: the defaults reproduce the historical behaviour but callers
// may tune them.
type Config struct {
	// CompletenessThresholdPct is the minimum completeness percentage for
	// a series to be considered valid.
	CompletenessThresholdPct float64
	// OutlierSigmas is the distance from the mean, in standard deviations,
	// beyond which a reading counts as an outlier.
	OutlierSigmas float64
	// OutlierRateThreshold is the maximum outlier fraction of actual
	// readings for a series to be considered valid.
	OutlierRateThreshold float64
	// GapTolerance is the interval between adjacent readings above which
	// a gap is reported. 1.5x the nominal hourly spacing.
	GapTolerance time.Duration
}

// DefaultConfig returns the thresholds used by the demand tools:
// 95% completeness, 3 sigma outliers, 1% outlier rate, 90 minute gaps.
func DefaultConfig() Config {
	return Config{
		CompletenessThresholdPct: 95.0,
		OutlierSigmas:            3.0,
		OutlierRateThreshold:     0.01,
		GapTolerance:             nominalSpacing + nominalSpacing/2,
	}
}

// Engine validates hourly demand series and computes descriptive
// statistics. Both operations are pure functions of their inputs: the
// engine holds no mutable state and calls are safe to run concurrently.
type Engine struct {
	config Config
	logger *logging.StructuredLogger
}

// NewEngine creates a quality engine with the given thresholds.
func NewEngine(config Config, logger *logging.StructuredLogger) *Engine {
	return &Engine{
		config: config,
		logger: logger,
	}
}

// Validate checks a demand series against the expected hourly grid for
// [startDate, endDate] inclusive and reports completeness, gaps, and
// outliers. The series may be unordered and may contain duplicate
// (date, hour) pairs; duplicates count as-is toward the actual total.
// An empty series produces an invalid report, not an error. The only
// error returned is an InvalidRangeError for startDate > endDate.
func (e *Engine) Validate(ctx context.Context, series []models.DemandReading, startDate, endDate time.Time) (*models.QualityReport, error) {
	startDate = dateOnly(startDate)
	endDate = dateOnly(endDate)

	if startDate.After(endDate) {
		return nil, models.NewInvalidRangeError(startDate, endDate)
	}

	// Inclusive end: the +24 grants the full final day, so a single-day
	// range expects 24 hourly slots.
	expectedCount := int(endDate.Sub(startDate).Hours()) + 24

	if len(series) == 0 {
		return &models.QualityReport{
			IsValid:         false,
			ExpectedCount:   expectedCount,
			MissingCount:    expectedCount,
			CompletenessPct: 0,
			Issues:          []string{},
			Message:         "No data found for validation",
		}, nil
	}

	actualCount := len(series)
	missingCount := expectedCount - actualCount
	if missingCount < 0 {
		missingCount = 0
	}
	completeness := float64(actualCount) / float64(expectedCount) * 100

	sorted := make([]models.DemandReading, len(series))
	copy(sorted, series)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp().Before(sorted[j].Timestamp())
	})

	gapCount := 0
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Timestamp().Sub(sorted[i-1].Timestamp()) > e.config.GapTolerance {
			gapCount++
		}
	}

	// Malformed rows carry no measurement and are excluded from the mean,
	// the deviation, and the outlier count.
	values := demandValues(sorted)
	mean := meanOf(values)
	stdDev := sampleStdDev(values, mean)

	outlierCount := 0
	upper := mean + e.config.OutlierSigmas*stdDev
	lower := mean - e.config.OutlierSigmas*stdDev
	for _, v := range values {
		if v > upper || v < lower {
			outlierCount++
		}
	}

	issues := make([]string, 0, 3)
	if missingCount > 0 {
		issues = append(issues, fmt.Sprintf("%d missing hours out of %d expected", missingCount, expectedCount))
	}
	if outlierCount > 0 {
		issues = append(issues, fmt.Sprintf("%d outlier values detected", outlierCount))
	}
	if gapCount > 0 {
		issues = append(issues, fmt.Sprintf("%d time gaps detected", gapCount))
	}
	if len(issues) == 0 {
		issues = append(issues, NoIssuesSentinel)
	}

	isValid := completeness >= e.config.CompletenessThresholdPct &&
		float64(outlierCount) < float64(actualCount)*e.config.OutlierRateThreshold

	e.logger.Debug(ctx, "[QUALITY_VALIDATE] Series validated", logging.Fields{
		"start_date":       startDate.Format("2006-01-02"),
		"end_date":         endDate.Format("2006-01-02"),
		"expected_count":   expectedCount,
		"actual_count":     actualCount,
		"completeness_pct": completeness,
		"gap_count":        gapCount,
		"outlier_count":    outlierCount,
		"is_valid":         isValid,
	})

	return &models.QualityReport{
		Success:         true,
		IsValid:         isValid,
		ExpectedCount:   expectedCount,
		ActualCount:     actualCount,
		MissingCount:    missingCount,
		CompletenessPct: round2(completeness),
		OutlierCount:    outlierCount,
		GapCount:        gapCount,
		HasGaps:         gapCount > 0,
		Issues:          issues,
		Message:         "Data validation complete",
	}, nil
}

// dateOnly strips any time-of-day component from a calendar date.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// demandValues extracts the non-nil demand measurements from a series.
func demandValues(series []models.DemandReading) []float64 {
	values := make([]float64, 0, len(series))
	for i := range series {
		if series[i].OntarioDemandMW != nil {
			values = append(values, *series[i].OntarioDemandMW)
		}
	}
	return values
}
