package handlers

import (
	"net/http"

	"github.com/wonny/aegis-options/internal/scoring"
)

// MetricInfo describes one scoring metric
type MetricInfo struct {
	Name          string  `json:"name"`
	DefaultWeight float64 `json:"default_weight"`
}

// ListMetrics returns the closed set of scoring metrics usable as weight keys
// GET /api/metrics
func ListMetrics(w http.ResponseWriter, r *http.Request) {
	defaults := scoring.DefaultWeights()
	out := make([]MetricInfo, 0)
	for _, m := range scoring.Metrics() {
		out = append(out, MetricInfo{Name: m.String(), DefaultWeight: defaults[m]})
	}
	respondJSON(w, http.StatusOK, out)
}
