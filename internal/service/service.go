// Package service implements the blog's use cases on top of the repositories.
//
// Every exported method returns either nil or a *models.AppError so handlers
// can map failures to HTTP statuses without inspecting storage errors.
package service

import (
	"context"
	"errors"

	"github.com/SreeragSreekanth/Blogplatform/internal/models"
)

// AdminChecker reports whether a user has the admin role.
type AdminChecker func(ctx context.Context, userID uint) (bool, error)

// NotificationSink persists a notification for one recipient.
type NotificationSink interface {
	Send(ctx context.Context, recipientID uint, message string) (*models.Notification, error)
}

// appError passes AppErrors through and wraps anything else as internal.
func appError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return models.NewInternalError(err)
}

func ownerOrAdmin(ctx context.Context, isAdmin AdminChecker, ownerID, actorID uint, denied string) error {
	if actorID != 0 && ownerID == actorID {
		return nil
	}
	return requireAdmin(ctx, isAdmin, actorID, denied)
}

func requireAdmin(ctx context.Context, isAdmin AdminChecker, actorID uint, denied string) error {
	if isAdmin == nil || actorID == 0 {
		return models.NewForbiddenError(denied)
	}
	admin, err := isAdmin(ctx, actorID)
	if err != nil {
		return appError(err)
	}
	if !admin {
		return models.NewForbiddenError(denied)
	}
	return nil
}
