package agent

import (
	"context"
	"fmt"
	"time"

	"ieso-demand-agent/internal/models"
	"ieso-demand-agent/internal/services"
	"ieso-demand-agent/pkg/logging"
	"ieso-demand-agent/pkg/metrics"
)

// ToolName identifies one tool in the fixed registry. Dispatch is a
// tagged switch over this enumeration; there is no dynamic tool lookup.
type ToolName string

const (
	ToolCheckDataFreshness        ToolName = "check_data_freshness"
	ToolGetDataSummary            ToolName = "get_data_summary"
	ToolQueryDemandData           ToolName = "query_demand_data"
	ToolValidateDataQuality       ToolName = "validate_data_quality"
	ToolCalculateDemandStatistics ToolName = "calculate_demand_statistics"
	ToolGetCurrentTime            ToolName = "get_current_time"
)

// AllTools lists every registered tool name.
func AllTools() []ToolName {
	return []ToolName{
		ToolCheckDataFreshness,
		ToolGetDataSummary,
		ToolQueryDemandData,
		ToolValidateDataQuality,
		ToolCalculateDemandStatistics,
		ToolGetCurrentTime,
	}
}

// defaultLookbackDays is the query window when no dates are given.
const defaultLookbackDays = 7

// ToolRequest carries the arguments a tool accepts. Unused fields are
// ignored by tools that do not take them.
type ToolRequest struct {
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	DaysBack  int    `json:"days_back,omitempty"`
}

// TimeResponse is the get_current_time result.
type TimeResponse struct {
	Success     bool   `json:"success"`
	CurrentTime string `json:"current_time"`
	Message     string `json:"message"`
}

// Registry dispatches tool invocations to the demand service. Every tool
// returns a JSON-serializable record carrying success and message fields;
// failures come back as the uniform ErrorResponse envelope, never as an
// error value, because the ultimate consumer is a text-generating client.
type Registry struct {
	service *services.DemandService
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
	now     func() time.Time
}

// NewRegistry creates a tool registry over the demand service.
func NewRegistry(service *services.DemandService, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Registry {
	return &Registry{
		service: service,
		logger:  logger,
		metrics: metricsCollector,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Dispatch runs the named tool with the given arguments and returns its
// structured result.
func (r *Registry) Dispatch(ctx context.Context, name ToolName, req ToolRequest) interface{} {
	r.metrics.RecordToolInvocation(string(name))
	timer := r.metrics.NewTimer(r.metrics.ToolDuration.WithLabelValues(string(name)))
	defer timer.ObserveDuration()

	r.logger.Debug(ctx, "[TOOL_DISPATCH] Dispatching tool", logging.Fields{
		"tool":       string(name),
		"start_date": req.StartDate,
		"end_date":   req.EndDate,
	})

	switch name {
	case ToolCheckDataFreshness:
		report, err := r.service.CheckFreshness(ctx)
		if err != nil {
			return r.fail(ctx, name, err, "Failed to check data freshness")
		}
		return report

	case ToolGetDataSummary:
		report, err := r.service.GetSummary(ctx)
		if err != nil {
			return r.fail(ctx, name, err, "Failed to get data summary")
		}
		return report

	case ToolQueryDemandData:
		start, end, err := r.resolveRange(req)
		if err != nil {
			return r.fail(ctx, name, err, "Failed to query demand data")
		}
		resp, err := r.service.QueryDemand(ctx, start, end)
		if err != nil {
			return r.fail(ctx, name, err, "Failed to query demand data")
		}
		return resp

	case ToolValidateDataQuality:
		start, end, err := parseRange(req.StartDate, req.EndDate)
		if err != nil {
			return r.fail(ctx, name, err, "Failed to validate data")
		}
		report, err := r.service.ValidateQuality(ctx, start, end)
		if err != nil {
			return r.fail(ctx, name, err, "Failed to validate data")
		}
		return report

	case ToolCalculateDemandStatistics:
		start, end, err := parseRange(req.StartDate, req.EndDate)
		if err != nil {
			return r.fail(ctx, name, err, "Failed to calculate statistics")
		}
		report, err := r.service.CalculateStatistics(ctx, start, end)
		if err != nil {
			return r.fail(ctx, name, err, "Failed to calculate statistics")
		}
		return report

	case ToolGetCurrentTime:
		return &TimeResponse{
			Success:     true,
			CurrentTime: r.now().Format(time.RFC3339),
			Message:     "Current time retrieved",
		}

	default:
		err := fmt.Errorf("unknown tool: %s", name)
		return r.fail(ctx, name, err, "Tool is not in the registry")
	}
}

// fail logs a tool failure and wraps it in the uniform envelope.
func (r *Registry) fail(ctx context.Context, name ToolName, err error, message string) *models.ErrorResponse {
	r.metrics.RecordToolError(string(name), errorKind(err))
	r.logger.Error(ctx, "[TOOL_ERROR] Tool invocation failed", logging.Fields{
		"tool":       string(name),
		"error_kind": errorKind(err),
	}, err)
	return models.NewErrorResponse(err, message)
}

// resolveRange applies the default lookback window when no dates are
// given, otherwise requires an explicit pair.
func (r *Registry) resolveRange(req ToolRequest) (time.Time, time.Time, error) {
	if req.StartDate == "" && req.EndDate == "" {
		daysBack := req.DaysBack
		if daysBack <= 0 {
			daysBack = defaultLookbackDays
		}
		end := r.now()
		start := end.AddDate(0, 0, -daysBack)
		return start, end, nil
	}
	return parseRange(req.StartDate, req.EndDate)
}

// parseRange parses an explicit start/end date pair.
func parseRange(startStr, endStr string) (time.Time, time.Time, error) {
	start, err := parseDate("start_date", startStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseDate("end_date", endStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func parseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, &models.InvalidRangeError{
			Message: fmt.Sprintf("missing %s: expected YYYY-MM-DD", field),
		}
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, &models.InvalidRangeError{
			Message: fmt.Sprintf("invalid %s %q: expected YYYY-MM-DD", field, value),
		}
	}
	return t, nil
}

// errorKind classifies an error for metrics labels.
func errorKind(err error) string {
	switch err.(type) {
	case *models.InvalidRangeError:
		return "invalid_range"
	case *models.DataUnavailableError:
		return "data_unavailable"
	case *models.EmptySeriesError:
		return "empty_series"
	default:
		return "internal"
	}
}
