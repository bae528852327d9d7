package handlers

import (
	"context"
	"net/http"
	"slices"
	"strconv"

	"soil-bknd/internal/analytics"
	"soil-bknd/internal/services"
	"soil-bknd/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AnalyticsProvider interface {
	Report(ctx context.Context, municipalityID *uuid.UUID, days int) (*analytics.Report, error)
	DashboardStats(ctx context.Context) (*analytics.DashboardStats, error)
}

type AnalyticsHandler struct {
	service     AnalyticsProvider
	defaultDays int
	logr        *zap.Logger
}

func NewAnalyticsHandler(svc AnalyticsProvider, defaultDays int, logr *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{service: svc, defaultDays: defaultDays, logr: logr}
}

// GetAnalytics handles GET /api/v1/analytics?municipality=<id|all>&days=<7|30|90|365>
func (h *AnalyticsHandler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	ids, err := utils.ParseUUIDList(q, "municipality")
	if err != nil || len(ids) > 1 {
		writeError(w, http.StatusBadRequest, "municipality must be a single id or all")
		return
	}
	var municipalityID *uuid.UUID
	if len(ids) == 1 {
		municipalityID = &ids[0]
	}

	days := h.defaultDays
	if v := q.Get("days"); v != "" {
		days, err = strconv.Atoi(v)
		if err != nil || !slices.Contains(services.AllowedWindows, days) {
			writeError(w, http.StatusBadRequest, "days must be one of 7, 30, 90 or 365")
			return
		}
	}

	report, err := h.service.Report(r.Context(), municipalityID, days)
	if err != nil {
		h.logr.Error("failed to build analytics", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch analytics data")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    report,
		"days":    days,
	})
}

// GetDashboardStats handles GET /api/v1/dashboard/stats
func (h *AnalyticsHandler) GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.DashboardStats(r.Context())
	if err != nil {
		h.logr.Error("failed to fetch dashboard stats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch dashboard stats")
		return
	}
	writeData(w, http.StatusOK, stats)
}
