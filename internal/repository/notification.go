package repository

import (
	"context"
	"errors"

	"github.com/SreeragSreekanth/Blogplatform/internal/cache"
	"github.com/SreeragSreekanth/Blogplatform/internal/models"

	"gorm.io/gorm"
)

// NotificationRepository is an append-only store whose only mutation is the read flag.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	GetByID(ctx context.Context, id uint) (*models.Notification, error)
	ListByRecipient(ctx context.Context, userID uint, limit, offset int) ([]models.Notification, int64, error)
	MarkRead(ctx context.Context, id uint) error
	// MarkAllRead flips only unread rows and returns how many changed.
	MarkAllRead(ctx context.Context, userID uint) (int64, error)
	UnreadCount(ctx context.Context, userID uint) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if err := r.db.WithContext(ctx).Omit("User").Create(n).Error; err != nil {
		return err
	}
	cache.InvalidateUnreadCount(ctx, n.UserID)
	return nil
}

func (r *notificationRepository) GetByID(ctx context.Context, id uint) (*models.Notification, error) {
	var n models.Notification
	if err := r.db.WithContext(ctx).First(&n, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Notification", id)
		}
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, userID uint, limit, offset int) ([]models.Notification, int64, error) {
	limit, offset = clampPage(limit, offset, 100)
	db := r.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.Notification{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	items := []models.Notification{}
	err := db.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&items).Error
	return items, total, err
}

func (r *notificationRepository) MarkRead(ctx context.Context, id uint) error {
	var n models.Notification
	if err := r.db.WithContext(ctx).Select("id", "user_id").First(&n, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Notification", id)
		}
		return err
	}
	if err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND is_read = ?", id, false).
		Update("is_read", true).Error; err != nil {
		return err
	}
	cache.InvalidateUnreadCount(ctx, n.UserID)
	return nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, res.Error
	}
	cache.InvalidateUnreadCount(ctx, userID)
	return res.RowsAffected, nil
}

func (r *notificationRepository) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := cache.Aside(ctx, cache.UnreadCountKey(userID), &count, cache.UnreadCountTTL, func() error {
		return r.db.WithContext(ctx).Model(&models.Notification{}).
			Where("user_id = ? AND is_read = ?", userID, false).
			Count(&count).Error
	})
	return count, err
}
