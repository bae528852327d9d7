// Package bus fans change events out across server replicas.
package bus

import (
	"context"

	"soil-bknd/internal/realtime"
)

type Bus interface {
	Publish(ctx context.Context, msg realtime.Message) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.Message)) error
	Close() error
}
