package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"ieso-demand-agent/internal/agent"
	"ieso-demand-agent/internal/services"
	"ieso-demand-agent/pkg/logging"
	"ieso-demand-agent/pkg/metrics"
)

// DemandHandler exposes the demand tools over HTTP. Tool endpoints always
// answer 200 with the tool's structured envelope, success or not; only
// transport-level problems (unreadable body) get an HTTP error status.
type DemandHandler struct {
	registry *agent.Registry
	service  *services.DemandService
	logger   *logging.StructuredLogger
	metrics  *metrics.Collector
}

// NewDemandHandler creates a new demand handler
func NewDemandHandler(
	registry *agent.Registry,
	service *services.DemandService,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *DemandHandler {
	return &DemandHandler{
		registry: registry,
		service:  service,
		logger:   logger,
		metrics:  metricsCollector,
	}
}

// ErrorResponse represents a transport-level API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// GetDemand handles GET /api/demand
func (h *DemandHandler) GetDemand(w http.ResponseWriter, r *http.Request) {
	h.dispatchTool(w, r, agent.ToolQueryDemandData, "/api/demand")
}

// GetQuality handles GET /api/demand/quality
func (h *DemandHandler) GetQuality(w http.ResponseWriter, r *http.Request) {
	h.dispatchTool(w, r, agent.ToolValidateDataQuality, "/api/demand/quality")
}

// GetStatistics handles GET /api/demand/stats
func (h *DemandHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	h.dispatchTool(w, r, agent.ToolCalculateDemandStatistics, "/api/demand/stats")
}

// GetFreshness handles GET /api/demand/freshness
func (h *DemandHandler) GetFreshness(w http.ResponseWriter, r *http.Request) {
	h.dispatchTool(w, r, agent.ToolCheckDataFreshness, "/api/demand/freshness")
}

// GetSummary handles GET /api/demand/summary
func (h *DemandHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	h.dispatchTool(w, r, agent.ToolGetDataSummary, "/api/demand/summary")
}

// InvokeTool handles POST /api/tools/{tool} with a JSON ToolRequest body.
// This is the generic agent surface: any registered tool by name.
func (h *DemandHandler) InvokeTool(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()
	endpoint := "/api/tools"

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
	}()

	name := agent.ToolName(mux.Vars(r)["tool"])

	var req agent.ToolRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.logger.Error(ctx, "[API_TOOL_ERROR] Failed to decode tool request", logging.Fields{
				"tool": string(name),
			}, err)
			h.metrics.RecordAPIError("bad_request", endpoint)
			h.sendError(w, r, "invalid JSON request body", http.StatusBadRequest)
			return
		}
	}

	result := h.registry.Dispatch(ctx, name, req)

	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
	h.sendJSON(w, result, http.StatusOK)
}

// dispatchTool runs a tool from query parameters.
func (h *DemandHandler) dispatchTool(w http.ResponseWriter, r *http.Request, name agent.ToolName, endpoint string) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
	}()

	req := agent.ToolRequest{
		StartDate: r.URL.Query().Get("start_date"),
		EndDate:   r.URL.Query().Get("end_date"),
	}
	if daysBack := r.URL.Query().Get("days_back"); daysBack != "" {
		if d, err := strconv.Atoi(daysBack); err == nil && d > 0 {
			req.DaysBack = d
		}
	}

	result := h.registry.Dispatch(ctx, name, req)

	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
	h.sendJSON(w, result, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *DemandHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	code := http.StatusOK

	if err := h.service.HealthCheck(ctx); err != nil {
		h.logger.Error(ctx, "[HEALTH_CHECK_ERROR] Health check failed", logging.Fields{}, err)
		status["status"] = "degraded"
		code = http.StatusServiceUnavailable
	}

	h.sendJSON(w, status, code)
}

// sendJSON sends a JSON response
func (h *DemandHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends a transport-level error response
func (h *DemandHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	h.metrics.RecordAPIRequest(r.URL.Path, r.Method, strconv.Itoa(statusCode))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// RegisterRoutes registers all demand API routes
func (h *DemandHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/demand", h.GetDemand).Methods("GET")
	router.HandleFunc("/api/demand/quality", h.GetQuality).Methods("GET")
	router.HandleFunc("/api/demand/stats", h.GetStatistics).Methods("GET")
	router.HandleFunc("/api/demand/freshness", h.GetFreshness).Methods("GET")
	router.HandleFunc("/api/demand/summary", h.GetSummary).Methods("GET")
	router.HandleFunc("/api/tools/{tool}", h.InvokeTool).Methods("POST")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.HandleFunc("/api/docs/openapi.json", OpenAPISpec).Methods("GET")
	router.HandleFunc("/docs", SwaggerUI).Methods("GET")
}
