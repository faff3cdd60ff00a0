// Package notifications delivers notification events to connected websocket clients.
//
// Services publish through a Notifier into Redis; every server instance runs a
// Hub subscribed to the same channels, so a user connected to any instance
// receives events produced on any other.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/SreeragSreekanth/Blogplatform/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const (
	userChannelPrefix = "notifications:user:"
	broadcastChannel  = "notifications:broadcast"
)

// Event types pushed to websocket clients.
const (
	EventNotificationCreated = "notification_created"
	EventUnreadCount         = "unread_count"
	EventMessagesDropped     = "messages_dropped"
	EventTaxonomyUpdated     = "taxonomy_updated"
)

// Event is the JSON frame written to websocket clients.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Notifier publishes events into Redis. A nil client makes every publish a no-op.
type Notifier struct {
	rdb *redis.Client
}

func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether events actually leave the process.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// PublishUser sends an event to every connection of one user.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, event Event) error {
	if !n.Enabled() {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// PublishBroadcast sends an event to every connected user.
func (n *Notifier) PublishBroadcast(ctx context.Context, event Event) error {
	if !n.Enabled() {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return n.rdb.Publish(ctx, broadcastChannel, payload).Err()
}

// StartPatternSubscriber subscribes to the per-user and broadcast channels and
// calls onMessage for each message until ctx is cancelled. A panicking handler
// is logged and the loop keeps going.
func (n *Notifier) StartPatternSubscriber(ctx context.Context, onMessage func(channel, payload string)) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPrefix+"*", broadcastChannel)
	// Wait for the subscription so publishes right after startup are not lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe to notification channels: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				dispatch(msg.Channel, msg.Payload, onMessage)
			}
		}
	}()
	return nil
}

func dispatch(channel, payload string, onMessage func(channel, payload string)) {
	defer func() {
		if r := recover(); r != nil {
			middleware.Logger.Error("notification subscriber panic",
				slog.Any("panic", r),
				slog.String("channel", channel),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	onMessage(channel, payload)
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(userID), 10)
}

// parseUserChannel extracts the user id from a per-user channel name.
func parseUserChannel(channel string) (uint, bool) {
	raw, ok := strings.CutPrefix(channel, userChannelPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
