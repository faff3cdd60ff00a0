package repository

import (
	"context"

	"github.com/SreeragSreekanth/Blogplatform/internal/cache"
	"github.com/SreeragSreekanth/Blogplatform/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EngagementRepository stores likes and bookmarks. Each (user, post) pair has at most one of each.
type EngagementRepository interface {
	// Like inserts the row if absent and returns it; created is false when it already existed.
	Like(ctx context.Context, userID, postID uint) (*models.Like, bool, error)
	// Unlike reports whether a row was removed.
	Unlike(ctx context.Context, userID, postID uint) (bool, error)
	Bookmark(ctx context.Context, userID, postID uint) (*models.Bookmark, bool, error)
	Unbookmark(ctx context.Context, userID, postID uint) (bool, error)
}

type engagementRepository struct {
	db *gorm.DB
}

func NewEngagementRepository(db *gorm.DB) EngagementRepository {
	return &engagementRepository{db: db}
}

var userPostConflict = clause.OnConflict{
	Columns:   []clause.Column{{Name: "user_id"}, {Name: "post_id"}},
	DoNothing: true,
}

func (r *engagementRepository) Like(ctx context.Context, userID, postID uint) (*models.Like, bool, error) {
	like := &models.Like{UserID: userID, PostID: postID}
	created, err := insertOnce(ctx, r.db, like, userID, postID)
	if err != nil {
		return nil, false, err
	}
	if created {
		cache.InvalidatePost(ctx, postID)
	}
	return like, created, nil
}

func (r *engagementRepository) Unlike(ctx context.Context, userID, postID uint) (bool, error) {
	removed, err := deletePair(ctx, r.db, &models.Like{}, userID, postID)
	if removed {
		cache.InvalidatePost(ctx, postID)
	}
	return removed, err
}

func (r *engagementRepository) Bookmark(ctx context.Context, userID, postID uint) (*models.Bookmark, bool, error) {
	bookmark := &models.Bookmark{UserID: userID, PostID: postID}
	created, err := insertOnce(ctx, r.db, bookmark, userID, postID)
	if err != nil {
		return nil, false, err
	}
	return bookmark, created, nil
}

func (r *engagementRepository) Unbookmark(ctx context.Context, userID, postID uint) (bool, error) {
	return deletePair(ctx, r.db, &models.Bookmark{}, userID, postID)
}

// insertOnce is INSERT ... ON CONFLICT (user_id, post_id) DO NOTHING followed by a
// read of the surviving row, so concurrent toggles converge on one row.
func insertOnce[T any](ctx context.Context, db *gorm.DB, row *T, userID, postID uint) (bool, error) {
	res := db.WithContext(ctx).Clauses(userPostConflict).Omit(clause.Associations).Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	created := res.RowsAffected == 1
	if err := db.WithContext(ctx).Where("user_id = ? AND post_id = ?", userID, postID).First(row).Error; err != nil {
		return false, err
	}
	return created, nil
}

func deletePair(ctx context.Context, db *gorm.DB, model any, userID, postID uint) (bool, error) {
	res := db.WithContext(ctx).Where("user_id = ? AND post_id = ?", userID, postID).Delete(model)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
