package handlers

import (
	"encoding/json"
	"net/http"
)

// OpenAPISpec returns the OpenAPI 3.0 specification for the IESO Demand Agent API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	dateParams := []map[string]interface{}{
		{
			"name":        "start_date",
			"in":          "query",
			"description": "Start date (YYYY-MM-DD)",
			"required":    true,
			"schema":      map[string]string{"type": "string", "format": "date"},
		},
		{
			"name":        "end_date",
			"in":          "query",
			"description": "End date (YYYY-MM-DD), inclusive",
			"required":    true,
			"schema":      map[string]string{"type": "string", "format": "date"},
		},
	}

	envelope := map[string]interface{}{
		"description": "Tool result envelope",
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{
				"schema": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"success": map[string]string{"type": "boolean"},
						"message": map[string]string{"type": "string"},
					},
				},
			},
		},
	}

	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "IESO Demand Agent API",
			"description": "Ontario electricity demand analysis: data quality validation, descriptive statistics, and freshness tooling over hourly IESO readings",
			"version":     "1.0.0",
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/api/demand": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Query demand readings",
					"description": "Retrieve hourly demand readings with summary aggregates. Defaults to the last 7 days when no dates are given; at most 100 rows are returned in the body.",
					"parameters": []map[string]interface{}{
						{
							"name":        "start_date",
							"in":          "query",
							"description": "Start date (YYYY-MM-DD)",
							"required":    false,
							"schema":      map[string]string{"type": "string", "format": "date"},
						},
						{
							"name":        "end_date",
							"in":          "query",
							"description": "End date (YYYY-MM-DD), inclusive",
							"required":    false,
							"schema":      map[string]string{"type": "string", "format": "date"},
						},
						{
							"name":        "days_back",
							"in":          "query",
							"description": "Lookback window in days when no dates are given (default: 7)",
							"required":    false,
							"schema":      map[string]interface{}{"type": "integer", "default": 7},
						},
					},
					"responses": map[string]interface{}{"200": envelope},
				},
			},
			"/api/demand/quality": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Validate data quality",
					"description": "Validate the hourly demand series for a date range: completeness against the expected hourly grid, time gaps over 90 minutes, and 3-sigma outliers.",
					"parameters":  dateParams,
					"responses":   map[string]interface{}{"200": envelope},
				},
			},
			"/api/demand/stats": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Calculate demand statistics",
					"description": "Descriptive statistics for a date range: mean, median, standard deviation, percentiles, and peak/min hour-of-day analysis.",
					"parameters":  dateParams,
					"responses":   map[string]interface{}{"200": envelope},
				},
			},
			"/api/demand/freshness": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Check data freshness",
					"description": "Report when demand data was last updated and whether it is stale (older than 48 hours).",
					"responses":   map[string]interface{}{"200": envelope},
				},
			},
			"/api/demand/summary": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get data summary",
					"description": "Whole-table overview: row count, min/max/average demand, and boundary dates.",
					"responses":   map[string]interface{}{"200": envelope},
				},
			},
			"/api/tools/{tool}": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Invoke a tool by name",
					"description": "Generic agent surface: dispatches any registered tool with a JSON argument body. Unknown tool names return a failure envelope.",
					"parameters": []map[string]interface{}{
						{
							"name":        "tool",
							"in":          "path",
							"description": "Registered tool name",
							"required":    true,
							"schema":      map[string]string{"type": "string"},
						},
					},
					"requestBody": map[string]interface{}{
						"content": map[string]interface{}{
							"application/json": map[string]interface{}{
								"schema": map[string]interface{}{
									"type": "object",
									"properties": map[string]interface{}{
										"start_date": map[string]string{"type": "string", "format": "date"},
										"end_date":   map[string]string{"type": "string", "format": "date"},
										"days_back":  map[string]string{"type": "integer"},
									},
								},
							},
						},
					},
					"responses": map[string]interface{}{"200": envelope},
				},
			},
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Health check",
					"description": "Check API and database connectivity",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "API is healthy",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"status": map[string]string{"type": "string"},
										},
									},
								},
							},
						},
					},
				},
			},
			"/metrics": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Prometheus metrics",
					"description": "Prometheus metrics endpoint for monitoring",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Prometheus metrics in text format",
							"content": map[string]interface{}{
								"text/plain": map[string]interface{}{
									"schema": map[string]string{"type": "string"},
								},
							},
						},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
