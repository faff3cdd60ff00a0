package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix        = "user:%d"
	PostKeyPrefix        = "post:%d"
	UnreadCountKeyPrefix = "notifications:unread:%d"
	TagsKey              = "taxonomy:tags"
	CategoriesKey        = "taxonomy:categories"
)

const (
	UserTTL        = 5 * time.Minute
	PostTTL        = 10 * time.Minute
	TaxonomyTTL    = 30 * time.Minute
	UnreadCountTTL = time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

// PostKey caches the anonymous view of a post. Viewer-specific flags are never cached.
func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

func UnreadCountKey(userID uint) string {
	return fmt.Sprintf(UnreadCountKeyPrefix, userID)
}

// Invalidate deletes the given keys. Cache errors are ignored.
func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidatePost(ctx context.Context, postID uint) {
	Invalidate(ctx, PostKey(postID))
}

func InvalidateTaxonomy(ctx context.Context) {
	Invalidate(ctx, TagsKey, CategoriesKey)
}

func InvalidateUnreadCount(ctx context.Context, userID uint) {
	Invalidate(ctx, UnreadCountKey(userID))
}
