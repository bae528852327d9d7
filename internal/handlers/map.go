package handlers

import (
	"net/http"

	"soil-bknd/internal/classify"
	"soil-bknd/internal/logger"
	"soil-bknd/internal/mapview"
	"soil-bknd/internal/observability"
	"soil-bknd/internal/realtime"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

type MapHandler struct {
	fetch   mapview.Fetcher
	hub     *realtime.Hub
	metrics *observability.Metrics
	clock   clockwork.Clock
	log     *logger.Logger
}

func NewMapHandler(fetch mapview.Fetcher, hub *realtime.Hub, metrics *observability.Metrics, clock clockwork.Clock, log *logger.Logger) *MapHandler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MapHandler{fetch: fetch, hub: hub, metrics: metrics, clock: clock, log: log}
}

// GetMap handles GET /api/v1/map. Accepts the same filters as the sample list.
func (h *MapHandler) GetMap(w http.ResponseWriter, r *http.Request) {
	params, err := parseSampleParams(r.URL.Query(), h.clock.Now().UTC())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	samples, err := h.fetch.List(r.Context(), params)
	if err != nil {
		h.log.Error("map fetch failed", zap.Error(err))
	}
	view := mapview.Build(samples, err)
	h.countRender(view)
	writeData(w, http.StatusOK, view)
}

// StreamMap handles GET /api/v1/map/stream. The client receives map.updated
// events carrying the full view, first loading, then the current data, then
// one per change.
func (h *MapHandler) StreamMap(w http.ResponseWriter, r *http.Request) {
	params, err := parseSampleParams(r.URL.Query(), h.clock.Now().UTC())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	session := mapview.NewSession(h.hub, h.fetch, params, h.log)
	defer session.Close()
	defer trackStream(h.metrics)()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	err = session.Run(r.Context(), func(v mapview.View) error {
		if v.State != mapview.StateLoading {
			h.countRender(v)
		}
		if err := realtime.WriteEvent(w, realtime.Message{Event: realtime.EventMapUpdated, Data: v}); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		h.log.Debug("map stream ended", zap.Error(err))
	}
}

// Legend handles GET /api/v1/legend
func (h *MapHandler) Legend(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, classify.Legend())
}

func (h *MapHandler) countRender(v mapview.View) {
	if h.metrics != nil {
		h.metrics.MapRenders.WithLabelValues(string(v.State)).Inc()
	}
}

// trackStream bumps the subscriber gauge and returns the matching decrement.
func trackStream(m *observability.Metrics) func() {
	if m == nil {
		return func() {}
	}
	m.StreamSubscribers.Inc()
	return m.StreamSubscribers.Dec
}
