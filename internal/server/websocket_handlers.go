package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/SreeragSreekanth/Blogplatform/internal/middleware"
	"github.com/SreeragSreekanth/Blogplatform/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebsocketHandler returns a websocket handler that registers connections with the Hub.
// Authentication is handled by route middleware and userID is read from connection locals.
// The first frame is the current unread count; notification events follow as they happen.
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		uid, ok := conn.Locals("userID").(uint)
		if !ok || uid == 0 {
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(uid, conn)
		if err != nil {
			middleware.Logger.Warn("websocket registration refused",
				slog.Uint64("user_id", uint64(uid)),
				slog.String("error", err.Error()),
			)
			msg, _ := json.Marshal(fiber.Map{"error": err.Error()})
			_ = conn.WriteMessage(websocket.TextMessage, msg)
			_ = conn.Close()
			return
		}

		s.sendUnreadSnapshot(client)

		go client.WritePump()
		client.ReadPump()
	})
}

func (s *Server) sendUnreadSnapshot(client *notifications.Client) {
	ctx := context.WithValue(context.Background(), middleware.UserIDKey, client.UserID)
	count, err := s.notificationService.UnreadCount(ctx, client.UserID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to load unread count for websocket snapshot",
			slog.String("error", err.Error()),
		)
		return
	}
	msg, err := json.Marshal(notifications.Event{
		Type:    notifications.EventUnreadCount,
		Payload: map[string]int64{"unread": count},
	})
	if err != nil {
		return
	}
	client.TrySend(msg)
}
