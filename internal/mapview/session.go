package mapview

import (
	"context"
	"sync"

	"soil-bknd/internal/logger"
	"soil-bknd/internal/models"
	"soil-bknd/internal/realtime"

	"go.uber.org/zap"
)

// Fetcher loads the samples a map shows.
type Fetcher interface {
	List(ctx context.Context, params models.SampleQueryParams) ([]models.SoilSample, error)
}

// Session is one live map bound to a single streaming request. It holds a
// hub subscription from NewSession until Close.
type Session struct {
	hub    *realtime.Hub
	client *realtime.Client
	fetch  Fetcher
	params models.SampleQueryParams
	log    *zap.Logger

	closeOnce sync.Once
}

func NewSession(hub *realtime.Hub, fetch Fetcher, params models.SampleQueryParams, log *logger.Logger) *Session {
	client := hub.NewClient()
	hub.AddChannel(client, realtime.ChannelSamples)
	return &Session{
		hub:    hub,
		client: client,
		fetch:  fetch,
		params: params,
		log:    log.Named("map_session").With(zap.String("session_id", client.ID.String())),
	}
}

// Render fetches the current samples and builds the view. Fetch failures
// are logged and produce the empty view.
func (s *Session) Render(ctx context.Context) View {
	samples, err := s.fetch.List(ctx, s.params)
	if err != nil {
		s.log.Error("map fetch failed", zap.Error(err))
	}
	return Build(samples, err)
}

// Run emits the loading view, then the first render, then a fresh render for
// every change event until ctx ends, the session is closed or emit fails.
func (s *Session) Run(ctx context.Context, emit func(View) error) error {
	if err := emit(Loading()); err != nil {
		return err
	}
	if err := emit(s.Render(ctx)); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.client.Done():
			return nil
		case msg, ok := <-s.client.Outbound:
			if !ok {
				return nil
			}
			if msg.Event != realtime.EventSamplesChanged {
				continue
			}
			if err := emit(s.Render(ctx)); err != nil {
				return err
			}
		}
	}
}

// Close releases the hub subscription. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.hub.CloseClient(s.client)
		s.log.Debug("map session closed")
	})
}
