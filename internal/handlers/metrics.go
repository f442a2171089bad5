package handlers

import (
	"net/http"

	"github.com/charltonomondi/aedis-mpesa-backend/internal/services"
)

type MetricsHandler struct {
	metrics *services.Metrics
}

func NewMetricsHandler(metrics *services.Metrics) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

func (h *MetricsHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.metrics.Snapshot())
}
