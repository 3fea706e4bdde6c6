package models

import (
	"fmt"
	"time"
)

// DemandReading represents a single hourly demand observation from the
// IESO feed. NULL demand values are represented as pointers: a malformed
// source row keeps its grid slot but carries no measurement.
type DemandReading struct {
	Date            time.Time `json:"date" db:"date"`
	Hour            int       `json:"hour" db:"hour"`
	OntarioDemandMW *float64  `json:"ontario_demand_mw,omitempty" db:"ontario_demand_mw"`
	MarketDemandMW  *float64  `json:"market_demand_mw,omitempty" db:"market_demand_mw"`
}

// Timestamp combines the calendar date and hour-of-day (0-23) into a point
// on the hourly grid. All demand timestamps are treated as UTC.
func (r *DemandReading) Timestamp() time.Time {
	return time.Date(r.Date.Year(), r.Date.Month(), r.Date.Day(), r.Hour, 0, 0, 0, time.UTC)
}

// QualityReport is the immutable result of validating one demand series
// against the expected hourly grid for an inclusive date range.
// Field names are part of the tool contract and must not change.
type QualityReport struct {
	Success         bool     `json:"success"`
	IsValid         bool     `json:"is_valid"`
	ExpectedCount   int      `json:"expected_count"`
	ActualCount     int      `json:"actual_count"`
	MissingCount    int      `json:"missing_count"`
	CompletenessPct float64  `json:"completeness_pct"`
	OutlierCount    int      `json:"outlier_count"`
	GapCount        int      `json:"gap_count"`
	HasGaps         bool     `json:"has_gaps"`
	Issues          []string `json:"issues"`
	Message         string   `json:"message"`
}

// Percentiles holds the ranked demand percentiles. Values are truncated to
// whole megawatts in the output contract.
type Percentiles struct {
	P25 int `json:"p25"`
	P50 int `json:"p50"`
	P75 int `json:"p75"`
	P95 int `json:"p95"`
}

// StatisticsReport is the immutable descriptive-statistics result for one
// demand series. MW-valued floats are rounded to 2 decimal places at this
// boundary; min/max and percentiles are truncated to whole megawatts.
type StatisticsReport struct {
	Success        bool        `json:"success"`
	MeanDemandMW   float64     `json:"mean_demand_mw"`
	MedianDemandMW float64     `json:"median_demand_mw"`
	StdDevMW       float64     `json:"std_dev_mw"`
	MinDemandMW    int         `json:"min_demand_mw"`
	MaxDemandMW    int         `json:"max_demand_mw"`
	Percentiles    Percentiles `json:"percentiles"`
	PeakHour       int         `json:"peak_hour"`
	PeakHourAvgMW  float64     `json:"peak_hour_avg_mw"`
	MinHour        int         `json:"min_hour"`
	MinHourAvgMW   float64     `json:"min_hour_avg_mw"`
	Message        string      `json:"message"`
}

// FreshnessReport describes how recent the stored demand data is.
type FreshnessReport struct {
	Success      bool    `json:"success"`
	LatestDate   string  `json:"latest_date"`
	EarliestDate string  `json:"earliest_date"`
	TotalRows    int64   `json:"total_rows"`
	HoursOld     float64 `json:"hours_old"`
	IsStale      bool    `json:"is_stale"`
	Message      string  `json:"message"`
}

// SummaryReport is a whole-table overview of the stored demand data.
type SummaryReport struct {
	Success      bool    `json:"success"`
	TotalRows    int64   `json:"total_rows"`
	MinDemandMW  float64 `json:"min_demand_mw"`
	MaxDemandMW  float64 `json:"max_demand_mw"`
	AvgDemandMW  float64 `json:"avg_demand_mw"`
	EarliestDate string  `json:"earliest_date"`
	LatestDate   string  `json:"latest_date"`
	Message      string  `json:"message"`
}

// QueryResponse carries raw demand readings for a date range. Data is
// capped at 100 rows to keep responses consumable by a text client;
// RecordCount reflects the full result size.
type QueryResponse struct {
	Success      bool            `json:"success"`
	Data         []DemandReading `json:"data"`
	RecordCount  int             `json:"record_count"`
	DateRange    []string        `json:"date_range"`
	AvgDemandMW  float64         `json:"avg_demand_mw"`
	PeakDemandMW int             `json:"peak_demand_mw"`
	MinDemandMW  int             `json:"min_demand_mw"`
	Message      string          `json:"message"`
}

// ErrorResponse is the uniform failure envelope. Every tool returns this
// shape on failure so the consumer never has to handle anything but a
// structured record.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// NewErrorResponse builds a failure envelope from an error and a
// human-readable summary of what was being attempted.
func NewErrorResponse(err error, message string) *ErrorResponse {
	return &ErrorResponse{
		Success: false,
		Error:   err.Error(),
		Message: message,
	}
}

// InvalidRangeError reports a date range rejected before any computation:
// start after end, or a date that does not parse.
type InvalidRangeError struct {
	Start   string
	End     string
	Message string
}

func (e *InvalidRangeError) Error() string {
	return e.Message
}

// IsTransient returns false: a bad range never fixes itself on retry.
func (e *InvalidRangeError) IsTransient() bool {
	return false
}

// NewInvalidRangeError builds an InvalidRangeError for start > end.
func NewInvalidRangeError(start, end time.Time) *InvalidRangeError {
	return &InvalidRangeError{
		Start:   start.Format("2006-01-02"),
		End:     end.Format("2006-01-02"),
		Message: fmt.Sprintf("invalid date range: start %s is after end %s", start.Format("2006-01-02"), end.Format("2006-01-02")),
	}
}

// DataUnavailableError wraps a failed fetch from the backing store. Retry
// policy belongs to the caller, not the core.
type DataUnavailableError struct {
	Cause error
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("demand data unavailable: %v", e.Cause)
}

func (e *DataUnavailableError) Unwrap() error {
	return e.Cause
}

// IsTransient returns true: connectivity failures may clear.
func (e *DataUnavailableError) IsTransient() bool {
	return true
}

// EmptySeriesError reports statistics requested on zero readings. Distinct
// from a zero-valued report so "no data" cannot be mistaken for "statistic
// is zero".
type EmptySeriesError struct{}

func (e *EmptySeriesError) Error() string {
	return "no readings available for statistics"
}

func (e *EmptySeriesError) IsTransient() bool {
	return false
}
