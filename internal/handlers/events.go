package handlers

import (
	"net/http"

	"soil-bknd/internal/observability"
	"soil-bknd/internal/realtime"
)

type EventsHandler struct {
	hub     *realtime.Hub
	metrics *observability.Metrics
}

func NewEventsHandler(hub *realtime.Hub, metrics *observability.Metrics) *EventsHandler {
	return &EventsHandler{hub: hub, metrics: metrics}
}

// Stream handles GET /api/v1/events. Subscribers receive samples.changed
// events and re-fetch whatever they display.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	client := h.hub.NewClient()
	h.hub.AddChannel(client, realtime.ChannelSamples)
	defer h.hub.CloseClient(client)
	defer trackStream(h.metrics)()

	h.hub.ServeHTTP(w, r, client)
}
