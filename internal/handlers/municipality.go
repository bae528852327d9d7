package handlers

import (
	"context"
	"net/http"

	"soil-bknd/internal/models"

	"go.uber.org/zap"
)

type MunicipalityLister interface {
	List(ctx context.Context) ([]models.Municipality, error)
}

type MunicipalityHandler struct {
	service MunicipalityLister
	logr    *zap.Logger
}

func NewMunicipalityHandler(svc MunicipalityLister, logr *zap.Logger) *MunicipalityHandler {
	return &MunicipalityHandler{service: svc, logr: logr}
}

// ListMunicipalities handles GET /api/v1/municipalities
func (h *MunicipalityHandler) ListMunicipalities(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.logr.Error("failed to fetch municipalities", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load municipalities")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    list,
		"total":   len(list),
	})
}
