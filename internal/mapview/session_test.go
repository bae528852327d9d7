package mapview

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"soil-bknd/internal/logger"
	"soil-bknd/internal/models"
	"soil-bknd/internal/realtime"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	mu      sync.Mutex
	samples []models.SoilSample
	err     error
	calls   int
}

func (f *stubFetcher) List(_ context.Context, _ models.SampleQueryParams) ([]models.SoilSample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.samples, f.err
}

func (f *stubFetcher) set(samples []models.SoilSample) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.samples = samples
}

func TestSession_CloseUnsubscribesAndIsIdempotent(t *testing.T) {
	hub := realtime.NewHub(logger.Nop())
	s := NewSession(hub, &stubFetcher{}, models.SampleQueryParams{}, logger.Nop())
	assert.Equal(t, 1, hub.Subscribers(realtime.ChannelSamples))

	s.Close()
	s.Close()

	assert.Equal(t, 0, hub.Subscribers(realtime.ChannelSamples))
}

func TestSession_RenderFetchFailureIsEmpty(t *testing.T) {
	hub := realtime.NewHub(logger.Nop())
	s := NewSession(hub, &stubFetcher{err: errors.New("timeout")}, models.SampleQueryParams{}, logger.Nop())
	defer s.Close()

	v := s.Render(context.Background())

	assert.Equal(t, StateEmpty, v.State)
}

func TestSession_RunRerendersOnChange(t *testing.T) {
	hub := realtime.NewHub(logger.Nop())
	fetch := &stubFetcher{}
	s := NewSession(hub, fetch, models.SampleQueryParams{}, logger.Nop())
	defer s.Close()

	views := make(chan View, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Run(ctx, func(v View) error {
			views <- v
			return nil
		})
	}()

	assert.Equal(t, StateLoading, (<-views).State)
	assert.Equal(t, StateEmpty, (<-views).State)

	fetch.set([]models.SoilSample{{
		ID:          uuid.New(),
		Temperature: 22,
		Location:    []byte(`{"type":"Point","coordinates":[120.8,17.6]}`),
	}})
	hub.Broadcast(realtime.Message{Channel: realtime.ChannelSamples, Event: realtime.EventMapUpdated})
	hub.Broadcast(realtime.Message{Channel: realtime.ChannelSamples, Event: realtime.EventSamplesChanged})

	select {
	case v := <-views:
		assert.Equal(t, StateRendering, v.State)
		assert.Len(t, v.Markers, 1)
	case <-time.After(time.Second):
		t.Fatal("no re-render after change event")
	}

	cancel()
	require.NoError(t, <-errCh)
}

func TestSession_RunStopsOnEmitError(t *testing.T) {
	hub := realtime.NewHub(logger.Nop())
	s := NewSession(hub, &stubFetcher{}, models.SampleQueryParams{}, logger.Nop())
	defer s.Close()

	boom := errors.New("client gone")
	err := s.Run(context.Background(), func(View) error { return boom })

	assert.ErrorIs(t, err, boom)
}
