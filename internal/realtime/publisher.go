package realtime

import (
	"context"

	"soil-bknd/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Remote publishes to other replicas; the forwarder feeds messages back
// into every hub, this one included.
type Remote interface {
	Publish(ctx context.Context, msg Message) error
}

// ChangeData is the payload of a samples.changed event.
type ChangeData struct {
	Action string    `json:"action"`
	ID     uuid.UUID `json:"id"`
}

// Publisher turns committed sample mutations into change events.
type Publisher struct {
	hub    *Hub
	remote Remote
	log    *zap.Logger
}

func NewPublisher(hub *Hub, remote Remote, log *logger.Logger) *Publisher {
	return &Publisher{hub: hub, remote: remote, log: log.Named("publisher")}
}

func (p *Publisher) SamplesChanged(ctx context.Context, action string, id uuid.UUID) {
	msg := Message{
		Channel: ChannelSamples,
		Event:   EventSamplesChanged,
		Data:    ChangeData{Action: action, ID: id},
	}

	if p.remote != nil {
		err := p.remote.Publish(context.WithoutCancel(ctx), msg)
		if err == nil {
			return
		}
		p.log.Warn("remote publish failed, broadcasting locally", zap.Error(err))
	}
	p.hub.Broadcast(msg)
}
