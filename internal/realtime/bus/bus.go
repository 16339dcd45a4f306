package bus

import (
	"context"

	"github.com/yungbote/dreamworld-backend/internal/realtime"
)

// Bus carries realtime messages between processes.
type Bus interface {
	Publish(ctx context.Context, msg realtime.Message) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.Message)) error
	Close() error
}

type localBus struct {
	hub *realtime.Hub
}

// NewLocal delivers straight to the in-process hub; used when Redis is not configured.
func NewLocal(hub *realtime.Hub) Bus {
	return &localBus{hub: hub}
}

func (b *localBus) Publish(ctx context.Context, msg realtime.Message) error {
	if b.hub != nil {
		b.hub.Broadcast(msg)
	}
	return nil
}

func (b *localBus) StartForwarder(ctx context.Context, onMsg func(m realtime.Message)) error {
	return nil
}

func (b *localBus) Close() error { return nil }
