package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"soil-bknd/internal/analytics"
	"soil-bknd/internal/logger"
	"soil-bknd/internal/models"
	"soil-bknd/internal/observability"
	"soil-bknd/internal/realtime"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestGetMap_EmptySetUsesDefaultCenter(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	h := NewMapHandler(newFakeStore(), realtime.NewHub(logger.Nop()), metrics, clockwork.NewFakeClockAt(testNow), logger.Nop())
	rec := httptest.NewRecorder()

	h.GetMap(rec, httptest.NewRequest(http.MethodGet, "/api/v1/map", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	view := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, "empty", view["state"])
	assert.Empty(t, view["markers"])
	viewport := view["viewport"].(map[string]any)
	assert.Equal(t, []any{17.5969, 120.8472}, viewport["center"])
	assert.Equal(t, 11.0, viewport["zoom"])
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.MapRenders.WithLabelValues("empty")))
}

func TestGetMap_FetchFailureIsEmpty(t *testing.T) {
	store := newFakeStore(storedSample())
	store.listErr = errors.New("timeout")
	h := NewMapHandler(store, realtime.NewHub(logger.Nop()), nil, nil, logger.Nop())
	rec := httptest.NewRecorder()

	h.GetMap(rec, httptest.NewRequest(http.MethodGet, "/api/v1/map", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "empty", decode(t, rec)["data"].(map[string]any)["state"])
}

func TestGetMap_Renders(t *testing.T) {
	h := NewMapHandler(newFakeStore(storedSample()), realtime.NewHub(logger.Nop()), nil, nil, logger.Nop())
	rec := httptest.NewRecorder()

	h.GetMap(rec, httptest.NewRequest(http.MethodGet, "/api/v1/map", nil))

	view := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, "rendering", view["state"])
	marker := view["markers"].([]any)[0].(map[string]any)
	assert.Equal(t, "#4A90E2", marker["color"])
	assert.Equal(t, "Upland plot", marker["popup"].(map[string]any)["title"])
}

func TestLegend(t *testing.T) {
	h := NewMapHandler(newFakeStore(), realtime.NewHub(logger.Nop()), nil, nil, logger.Nop())
	rec := httptest.NewRecorder()

	h.Legend(rec, httptest.NewRequest(http.MethodGet, "/api/v1/legend", nil))

	bands := decode(t, rec)["data"].([]any)
	require.Len(t, bands, 5)
	assert.Equal(t, "<15°C Cold", bands[0].(map[string]any)["label"])
	assert.Equal(t, ">30°C Hot", bands[4].(map[string]any)["label"])
}

// readEvents collects SSE data payloads of the named event until n are seen.
func readEvents(t *testing.T, body *bufio.Reader, event string, n int) []map[string]any {
	t.Helper()
	var out []map[string]any
	current := ""
	for len(out) < n {
		line, err := body.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			current = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: ") && current == event:
			var msg map[string]any
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &msg))
			out = append(out, msg)
		}
	}
	return out
}

func TestStreamMap_RerendersAfterChange(t *testing.T) {
	hub := realtime.NewHub(logger.Nop())
	store := newFakeStore()
	metrics := observability.NewMetricsForTesting()
	h := NewMapHandler(store, hub, metrics, nil, logger.Nop())

	srv := httptest.NewServer(http.HandlerFunc(h.StreamMap))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	first := readEvents(t, reader, string(realtime.EventMapUpdated), 2)
	assert.Equal(t, "loading", first[0]["data"].(map[string]any)["state"])
	assert.Equal(t, "empty", first[1]["data"].(map[string]any)["state"])
	assert.Equal(t, 1, hub.Subscribers(realtime.ChannelSamples))

	created, err := store.Create(ctx, models.FormFromSample(storedSample()))
	require.NoError(t, err)
	realtime.NewPublisher(hub, nil, logger.Nop()).SamplesChanged(ctx, "created", created.ID)

	next := readEvents(t, reader, string(realtime.EventMapUpdated), 1)
	assert.Equal(t, "rendering", next[0]["data"].(map[string]any)["state"])

	cancel()
	require.Eventually(t, func() bool { return hub.Subscribers(realtime.ChannelSamples) == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.StreamSubscribers))
}

func TestEventsStream_DeliversChanges(t *testing.T) {
	hub := realtime.NewHub(logger.Nop())
	h := NewEventsHandler(hub, nil)

	srv := httptest.NewServer(http.HandlerFunc(h.Stream))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Eventually(t, func() bool { return hub.Subscribers(realtime.ChannelSamples) == 1 }, 2*time.Second, 10*time.Millisecond)
	id := uuid.New()
	realtime.NewPublisher(hub, nil, logger.Nop()).SamplesChanged(context.Background(), "deleted", id)

	events := readEvents(t, bufio.NewReader(resp.Body), string(realtime.EventSamplesChanged), 1)
	data := events[0]["data"].(map[string]any)
	assert.Equal(t, "deleted", data["action"])
	assert.Equal(t, id.String(), data["id"])
}

func TestListMunicipalities(t *testing.T) {
	list := []models.Municipality{{ID: testMunicipality, Name: "Bangued"}}
	h := NewMunicipalityHandler(&fakeMunicipalities{list: list}, zap.NewNop())
	rec := httptest.NewRecorder()

	h.ListMunicipalities(rec, httptest.NewRequest(http.MethodGet, "/api/v1/municipalities", nil))

	body := decode(t, rec)
	assert.Equal(t, 1.0, body["total"])
	assert.Equal(t, "Bangued", body["data"].([]any)[0].(map[string]any)["name"])

	h = NewMunicipalityHandler(&fakeMunicipalities{err: errors.New("down")}, zap.NewNop())
	rec = httptest.NewRecorder()
	h.ListMunicipalities(rec, httptest.NewRequest(http.MethodGet, "/api/v1/municipalities", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetAnalytics(t *testing.T) {
	svc := &fakeAnalytics{report: &analytics.Report{SampleCount: 3}}
	h := NewAnalyticsHandler(svc, 90, zap.NewNop())

	rec := httptest.NewRecorder()
	h.GetAnalytics(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, svc.gotID)
	assert.Equal(t, 90, svc.gotDays)

	rec = httptest.NewRecorder()
	h.GetAnalytics(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics?municipality="+testMunicipality.String()+"&days=30", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.gotID)
	assert.Equal(t, testMunicipality, *svc.gotID)
	assert.Equal(t, 30, svc.gotDays)
	assert.Equal(t, 3.0, decode(t, rec)["data"].(map[string]any)["sample_count"])
}

func TestGetAnalytics_BadParams(t *testing.T) {
	h := NewAnalyticsHandler(&fakeAnalytics{}, 90, zap.NewNop())

	for _, q := range []string{"days=14", "days=abc", "municipality=x", "municipality=" + uuid.NewString() + "," + uuid.NewString()} {
		rec := httptest.NewRecorder()
		h.GetAnalytics(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics?"+q, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestGetDashboardStats(t *testing.T) {
	h := NewAnalyticsHandler(&fakeAnalytics{stats: &analytics.DashboardStats{TotalSamples: 4, AvgPH: 6.45}}, 90, zap.NewNop())
	rec := httptest.NewRecorder()

	h.GetDashboardStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/stats", nil))

	data := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, 4.0, data["total_samples"])
	assert.Equal(t, 6.45, data["avg_ph"])
}

func TestHealthAndReady(t *testing.T) {
	rec := httptest.NewRecorder()
	Health(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, "healthy", decode(t, rec)["status"])

	rec = httptest.NewRecorder()
	Ready(fakeReadiness{})(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	Ready(fakeReadiness{err: errors.New("db down")})(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "db down", decode(t, rec)["error"])
}
