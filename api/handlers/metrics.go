package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/agriconnect/agriconnect-api/api"
)

// MetricsHandler exposes the in-memory route metrics
type MetricsHandler struct{}

// GetMetricsSummary returns the aggregated request counters per route
func (m MetricsHandler) GetMetricsSummary(w http.ResponseWriter, r *http.Request) {
	summary := api.GetMetrics().GetSummary()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(summary)
}
