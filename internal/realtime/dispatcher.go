package realtime

import (
	"context"

	"github.com/praxis/backend/internal/domain"
	"go.uber.org/zap"
)

// Dispatcher publishes user events on the bus and delivers bus traffic to
// the local hub
type Dispatcher struct {
	hub    *Hub
	bus    Bus
	logger *zap.Logger
}

func NewDispatcher(hub *Hub, bus Bus, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{hub: hub, bus: bus, logger: logger}
}

// Start forwards bus envelopes to local clients until ctx is done
func (d *Dispatcher) Start(ctx context.Context) error {
	return d.bus.StartForwarder(ctx, func(env Envelope) {
		d.hub.SendToUser(env.UserID, env.Event)
	})
}

// Publish sends an event to every session of userID across instances
func (d *Dispatcher) Publish(ctx context.Context, userID, typ string, payload interface{}) error {
	ev, err := NewEvent(typ, payload)
	if err != nil {
		return err
	}
	return d.bus.Publish(ctx, Envelope{UserID: userID, Event: ev})
}

// MessageSent pushes a stored chat message to both participants
func (d *Dispatcher) MessageSent(ctx context.Context, msg *domain.Message) error {
	for _, userID := range []string{msg.ToUserID, msg.FromUserID} {
		if err := d.Publish(ctx, userID, EventNewMessage, msg); err != nil {
			return err
		}
	}
	return nil
}
