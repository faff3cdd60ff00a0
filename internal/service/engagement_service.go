package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SreeragSreekanth/Blogplatform/internal/featureflags"
	"github.com/SreeragSreekanth/Blogplatform/internal/middleware"
	"github.com/SreeragSreekanth/Blogplatform/internal/models"
	"github.com/SreeragSreekanth/Blogplatform/internal/observability"
	"github.com/SreeragSreekanth/Blogplatform/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// EngagementService toggles likes and bookmarks and notifies authors of new likes.
type EngagementService struct {
	engagementRepo repository.EngagementRepository
	postRepo       repository.PostRepository
	userRepo       repository.UserRepository
	notifications  NotificationSink
	flags          *featureflags.Manager
}

func NewEngagementService(
	engagementRepo repository.EngagementRepository,
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	notifications NotificationSink,
	flags *featureflags.Manager,
) *EngagementService {
	return &EngagementService{
		engagementRepo: engagementRepo,
		postRepo:       postRepo,
		userRepo:       userRepo,
		notifications:  notifications,
		flags:          flags,
	}
}

// Like records that actorID likes postID. created is false when the like
// already existed; only a new like notifies the author.
func (s *EngagementService) Like(ctx context.Context, actorID, postID uint) (like *models.Like, created bool, err error) {
	ctx, span := observability.StartSpan(ctx, "engagement", "like",
		attribute.Int64("post.id", int64(postID)),
	)
	defer func() { span.End(err) }()

	post, err := s.postRepo.GetByID(ctx, postID, 0)
	if err != nil {
		return nil, false, appError(err)
	}
	like, created, err = s.engagementRepo.Like(ctx, actorID, postID)
	if err != nil {
		return nil, false, appError(err)
	}
	recordToggle("like", "on", created)

	if created {
		s.notifyAuthor(ctx, post, actorID, "like", "Your post '%s' was liked by %s.")
	}
	return like, created, nil
}

// Unlike removes the like; NotFound when there was none.
func (s *EngagementService) Unlike(ctx context.Context, actorID, postID uint) error {
	if _, err := s.postRepo.GetByID(ctx, postID, 0); err != nil {
		return appError(err)
	}
	removed, err := s.engagementRepo.Unlike(ctx, actorID, postID)
	if err != nil {
		return appError(err)
	}
	recordToggle("like", "off", removed)
	if !removed {
		return &models.AppError{Code: models.CodeNotFound, Message: "Like not found"}
	}
	return nil
}

func (s *EngagementService) Bookmark(ctx context.Context, actorID, postID uint) (*models.Bookmark, bool, error) {
	if _, err := s.postRepo.GetByID(ctx, postID, 0); err != nil {
		return nil, false, appError(err)
	}
	bookmark, created, err := s.engagementRepo.Bookmark(ctx, actorID, postID)
	if err != nil {
		return nil, false, appError(err)
	}
	recordToggle("bookmark", "on", created)
	return bookmark, created, nil
}

// Unbookmark removes the bookmark; NotFound when there was none.
func (s *EngagementService) Unbookmark(ctx context.Context, actorID, postID uint) error {
	if _, err := s.postRepo.GetByID(ctx, postID, 0); err != nil {
		return appError(err)
	}
	removed, err := s.engagementRepo.Unbookmark(ctx, actorID, postID)
	if err != nil {
		return appError(err)
	}
	recordToggle("bookmark", "off", removed)
	if !removed {
		return &models.AppError{Code: models.CodeNotFound, Message: "Bookmark not found"}
	}
	return nil
}

// BookmarkedPosts lists posts the actor bookmarked, newest post first.
func (s *EngagementService) BookmarkedPosts(ctx context.Context, actorID uint, limit, offset int) ([]*models.Post, int64, error) {
	posts, total, err := s.postRepo.ListBookmarked(ctx, actorID, limit, offset)
	if err != nil {
		return nil, 0, appError(err)
	}
	return posts, total, nil
}

// AuthoredPosts lists the actor's own posts, newest first.
func (s *EngagementService) AuthoredPosts(ctx context.Context, actorID uint, limit, offset int) ([]*models.Post, int64, error) {
	posts, total, err := s.postRepo.ListByAuthor(ctx, actorID, limit, offset, actorID)
	if err != nil {
		return nil, 0, appError(err)
	}
	return posts, total, nil
}

// notifyAuthor sends format(title, actor username) to the post author.
// Failures are logged: the engagement itself already committed.
func (s *EngagementService) notifyAuthor(ctx context.Context, post *models.Post, actorID uint, trigger, format string) {
	notifyPostAuthor(ctx, s.notifications, s.userRepo, s.flags, post, actorID, trigger, format)
}

func notifyPostAuthor(
	ctx context.Context,
	sink NotificationSink,
	users repository.UserRepository,
	flags *featureflags.Manager,
	post *models.Post,
	actorID uint,
	trigger, format string,
) {
	if sink == nil {
		return
	}
	if post.UserID == actorID && !flags.Enabled(featureflags.NotifySelfEngagement, actorID) {
		return
	}
	actor, err := users.GetByID(ctx, actorID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "notification skipped: actor lookup failed",
			slog.Uint64("actor_id", uint64(actorID)),
			slog.String("error", err.Error()),
		)
		return
	}
	if _, err := sink.Send(ctx, post.UserID, fmt.Sprintf(format, post.Title, actor.Username)); err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to send notification",
			slog.String("trigger", trigger),
			slog.Uint64("post_id", uint64(post.ID)),
			slog.String("error", err.Error()),
		)
		return
	}
	observability.NotificationsSent.WithLabelValues(trigger).Inc()
}

func recordToggle(kind, action string, changed bool) {
	outcome := "changed"
	if !changed {
		outcome = "noop"
	}
	observability.EngagementToggles.WithLabelValues(kind, action, outcome).Inc()
}
