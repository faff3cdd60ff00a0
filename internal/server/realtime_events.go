package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/SreeragSreekanth/Blogplatform/internal/notifications"
)

// realtimePublisher routes notification events to websocket clients. With
// Redis every instance receives the event through pub/sub; without it only
// sockets on this instance are reachable, so the event goes to the hub directly.
type realtimePublisher struct {
	notifier *notifications.Notifier
	hub      *notifications.Hub
}

func (p *realtimePublisher) PublishUser(ctx context.Context, userID uint, event notifications.Event) error {
	if p.notifier.Enabled() {
		return p.notifier.PublishUser(ctx, userID, event)
	}
	if p.hub == nil || !p.hub.IsOnline(userID) {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}
	p.hub.Send(userID, payload)
	return nil
}

// PublishBroadcast reaches every connected socket, on all instances when
// Redis is available.
func (p *realtimePublisher) PublishBroadcast(ctx context.Context, event notifications.Event) error {
	if p.notifier.Enabled() {
		return p.notifier.PublishBroadcast(ctx, event)
	}
	if p.hub == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}
	p.hub.SendAll(payload)
	return nil
}
