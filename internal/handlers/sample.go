package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"soil-bknd/internal/models"
	"soil-bknd/internal/observability"
	"soil-bknd/internal/services"
	"soil-bknd/internal/utils"
	"soil-bknd/internal/validation"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const maxListLimit = 1000

// SampleStore is the sample persistence the handlers depend on.
type SampleStore interface {
	List(ctx context.Context, params models.SampleQueryParams) ([]models.SoilSample, error)
	Get(ctx context.Context, id uuid.UUID) (*models.SoilSample, error)
	Create(ctx context.Context, form models.SampleForm) (*models.SoilSample, error)
	Update(ctx context.Context, id uuid.UUID, form models.SampleForm) (*models.SoilSample, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type SampleHandler struct {
	store   SampleStore
	metrics *observability.Metrics
	clock   clockwork.Clock
	logr    *zap.Logger
}

func NewSampleHandler(store SampleStore, metrics *observability.Metrics, clock clockwork.Clock, logr *zap.Logger) *SampleHandler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SampleHandler{store: store, metrics: metrics, clock: clock, logr: logr}
}

// ListSamples handles GET /api/v1/samples
func (h *SampleHandler) ListSamples(w http.ResponseWriter, r *http.Request) {
	params, err := parseSampleParams(r.URL.Query(), h.clock.Now().UTC())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	samples, err := h.store.List(r.Context(), params)
	if err != nil {
		h.logr.Error("failed to fetch samples", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch soil data")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    models.NewSampleViews(samples),
		"total":   len(samples),
	})
}

// GetSample handles GET /api/v1/samples/{id}
func (h *SampleHandler) GetSample(w http.ResponseWriter, r *http.Request) {
	id, ok := sampleID(w, r)
	if !ok {
		return
	}

	sample, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.writeLookupError(w, id, err)
		return
	}
	writeData(w, http.StatusOK, models.NewSampleView(*sample))
}

// GetSampleForm handles GET /api/v1/samples/{id}/form and returns the
// pre-populated edit form.
func (h *SampleHandler) GetSampleForm(w http.ResponseWriter, r *http.Request) {
	id, ok := sampleID(w, r)
	if !ok {
		return
	}

	sample, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.writeLookupError(w, id, err)
		return
	}
	writeData(w, http.StatusOK, models.FormFromSample(*sample))
}

// CreateSample handles POST /api/v1/samples
func (h *SampleHandler) CreateSample(w http.ResponseWriter, r *http.Request) {
	form, ok := h.decodeForm(w, r, services.ActionCreated)
	if !ok {
		return
	}

	sample, err := h.store.Create(r.Context(), form)
	if err != nil {
		h.writeMutationError(w, services.ActionCreated, uuid.Nil, err)
		return
	}

	h.countMutation(services.ActionCreated, "success")
	h.logr.Info("soil sample added", zap.String("id", sample.ID.String()))
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Soil data added successfully",
		"data":    models.NewSampleView(*sample),
	})
}

// UpdateSample handles PUT /api/v1/samples/{id}. Every editable field is
// overwritten and the stored row is returned.
func (h *SampleHandler) UpdateSample(w http.ResponseWriter, r *http.Request) {
	id, ok := sampleID(w, r)
	if !ok {
		return
	}
	form, ok := h.decodeForm(w, r, services.ActionUpdated)
	if !ok {
		return
	}

	sample, err := h.store.Update(r.Context(), id, form)
	if err != nil {
		h.writeMutationError(w, services.ActionUpdated, id, err)
		return
	}

	h.countMutation(services.ActionUpdated, "success")
	h.logr.Info("soil sample updated", zap.String("id", id.String()))
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Soil data updated successfully",
		"data":    models.NewSampleView(*sample),
	})
}

// DeleteSample handles DELETE /api/v1/samples/{id}?confirm=true
func (h *SampleHandler) DeleteSample(w http.ResponseWriter, r *http.Request) {
	id, ok := sampleID(w, r)
	if !ok {
		return
	}
	if confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm")); !confirmed {
		writeError(w, http.StatusBadRequest, "Deletion must be confirmed with confirm=true")
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		h.writeMutationError(w, services.ActionDeleted, id, err)
		return
	}

	h.countMutation(services.ActionDeleted, "success")
	h.logr.Info("soil sample deleted", zap.String("id", id.String()))
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Soil data deleted successfully",
	})
}

func (h *SampleHandler) decodeForm(w http.ResponseWriter, r *http.Request, action string) (models.SampleForm, bool) {
	var form models.SampleForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		h.logr.Warn("failed to decode sample form", zap.Error(err))
		h.countMutation(action, "invalid")
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return form, false
	}

	if err := validation.SampleForm(&form); err != nil {
		h.countMutation(action, "invalid")
		var verr *validation.Error
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"success": false,
				"message": verr.Message,
				"field":   verr.Field,
			})
			return form, false
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return form, false
	}
	return form, true
}

func (h *SampleHandler) writeLookupError(w http.ResponseWriter, id uuid.UUID, err error) {
	if errors.Is(err, services.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Soil sample not found")
		return
	}
	h.logr.Error("failed to fetch sample", zap.String("id", id.String()), zap.Error(err))
	writeError(w, http.StatusInternalServerError, "Failed to fetch soil data")
}

func (h *SampleHandler) writeMutationError(w http.ResponseWriter, action string, id uuid.UUID, err error) {
	fields := []zap.Field{zap.String("action", action), zap.String("id", id.String()), zap.Error(err)}

	switch {
	case errors.Is(err, services.ErrNoRowsAffected):
		h.countMutation(action, "denied")
		h.logr.Warn("mutation affected no rows", fields...)
		writeError(w, http.StatusForbidden, failureMessage(action)+": no rows affected (record missing or permission denied)")
	case errors.Is(err, services.ErrNotFound):
		h.countMutation(action, "not_found")
		writeError(w, http.StatusNotFound, "Soil sample not found")
	case errors.Is(err, services.ErrUnknownMunicipality):
		h.countMutation(action, "invalid")
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "Please select a municipality",
			"field":   "municipality_id",
		})
	default:
		h.countMutation(action, "error")
		h.logr.Error("mutation failed", fields...)
		writeError(w, http.StatusInternalServerError, failureMessage(action))
	}
}

func (h *SampleHandler) countMutation(action, outcome string) {
	if h.metrics != nil {
		h.metrics.SampleMutations.WithLabelValues(action, outcome).Inc()
	}
}

func failureMessage(action string) string {
	switch action {
	case services.ActionCreated:
		return "Failed to add soil data"
	case services.ActionUpdated:
		return "Failed to update soil data"
	default:
		return "Failed to delete soil data"
	}
}

func sampleID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid sample id")
		return uuid.Nil, false
	}
	return id, true
}

// parseSampleParams reads municipality, days, from, to, order and limit.
// days is relative to now and is overridden by an explicit from.
func parseSampleParams(q map[string][]string, now time.Time) (models.SampleQueryParams, error) {
	var params models.SampleQueryParams

	ids, err := utils.ParseUUIDList(q, "municipality")
	if err != nil {
		return params, err
	}
	params.MunicipalityIDs = ids

	get := func(key string) string {
		if v := q[key]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}

	if v := get("days"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days <= 0 {
			return params, errors.New("days must be a positive integer")
		}
		from := now.Add(-time.Duration(days) * 24 * time.Hour)
		params.From = &from
	}
	if v := get("from"); v != "" {
		from, err := utils.ParseTime(v)
		if err != nil {
			return params, err
		}
		params.From = &from
	}
	if v := get("to"); v != "" {
		to, err := utils.ParseTime(v)
		if err != nil {
			return params, err
		}
		params.To = &to
	}
	if params.From != nil && params.To != nil && params.To.Before(*params.From) {
		return params, errors.New("to must not be before from")
	}

	switch strings.ToLower(get("order")) {
	case "", "desc":
	case "asc":
		params.Ascending = true
	default:
		return params, errors.New("order must be asc or desc")
	}

	if v := get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			return params, errors.New("limit must be a positive integer")
		}
		params.Limit = min(limit, maxListLimit)
	}
	return params, nil
}
