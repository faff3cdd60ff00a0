package service

import (
	"context"
	"log/slog"

	"github.com/SreeragSreekanth/Blogplatform/internal/featureflags"
	"github.com/SreeragSreekanth/Blogplatform/internal/middleware"
	"github.com/SreeragSreekanth/Blogplatform/internal/models"
	"github.com/SreeragSreekanth/Blogplatform/internal/notifications"
	"github.com/SreeragSreekanth/Blogplatform/internal/repository"
)

// EventPublisher pushes realtime events to a user's open sockets.
type EventPublisher interface {
	PublishUser(ctx context.Context, userID uint, event notifications.Event) error
}

// NotificationService is the append-only notification sink plus the
// recipient-scoped read operations.
type NotificationService struct {
	repo      repository.NotificationRepository
	publisher EventPublisher
	flags     *featureflags.Manager
}

func NewNotificationService(
	repo repository.NotificationRepository,
	publisher EventPublisher,
	flags *featureflags.Manager,
) *NotificationService {
	return &NotificationService{repo: repo, publisher: publisher, flags: flags}
}

// Send stores a notification and pushes it to the recipient's sockets.
// A failed push is logged; the stored row is what the API serves.
func (s *NotificationService) Send(ctx context.Context, recipientID uint, message string) (*models.Notification, error) {
	n := &models.Notification{UserID: recipientID, Message: message}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, appError(err)
	}

	if s.publisher != nil && s.flags.Enabled(featureflags.RealtimeNotifications, recipientID) {
		event := notifications.Event{Type: notifications.EventNotificationCreated, Payload: n}
		if err := s.publisher.PublishUser(ctx, recipientID, event); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to publish notification",
				slog.Uint64("recipient_id", uint64(recipientID)),
				slog.String("error", err.Error()),
			)
		}
	}
	return n, nil
}

// List returns the recipient's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, recipientID uint, limit, offset int) ([]models.Notification, int64, error) {
	items, total, err := s.repo.ListByRecipient(ctx, recipientID, limit, offset)
	if err != nil {
		return nil, 0, appError(err)
	}
	return items, total, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, recipientID uint) (int64, error) {
	count, err := s.repo.UnreadCount(ctx, recipientID)
	return count, appError(err)
}

// MarkRead flags one notification as read. Marking an already read
// notification succeeds without a write.
func (s *NotificationService) MarkRead(ctx context.Context, id, recipientID uint) (*models.Notification, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, appError(err)
	}
	if n.UserID != recipientID {
		return nil, models.NewForbiddenError("You can only update your own notifications")
	}
	if n.Read {
		return n, nil
	}
	if err := s.repo.MarkRead(ctx, id); err != nil {
		return nil, appError(err)
	}
	n.Read = true
	s.publishUnread(ctx, recipientID)
	return n, nil
}

// MarkAllRead flips every unread notification of the recipient and returns how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID uint) (int64, error) {
	flipped, err := s.repo.MarkAllRead(ctx, recipientID)
	if err != nil {
		return 0, appError(err)
	}
	if flipped > 0 {
		s.publishUnread(ctx, recipientID)
	}
	return flipped, nil
}

func (s *NotificationService) publishUnread(ctx context.Context, recipientID uint) {
	if s.publisher == nil || !s.flags.Enabled(featureflags.RealtimeNotifications, recipientID) {
		return
	}
	count, err := s.repo.UnreadCount(ctx, recipientID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to count unread notifications",
			slog.Uint64("recipient_id", uint64(recipientID)),
			slog.String("error", err.Error()),
		)
		return
	}
	event := notifications.Event{Type: notifications.EventUnreadCount, Payload: map[string]int64{"unread": count}}
	if err := s.publisher.PublishUser(ctx, recipientID, event); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish unread count",
			slog.Uint64("recipient_id", uint64(recipientID)),
			slog.String("error", err.Error()),
		)
	}
}
