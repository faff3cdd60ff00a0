package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/SreeragSreekanth/Blogplatform/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngagementRepository_LikeIsIdempotent(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewEngagementRepository(db)
	ctx := context.Background()

	author := seedUser(t, db, "author")
	reader := seedUser(t, db, "reader")
	post := seedPost(t, db, author, "post", time.Now())

	first, created, err := repo.Like(ctx, reader.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := repo.Like(ctx, reader.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	var rows int64
	require.NoError(t, db.Model(&models.Like{}).Count(&rows).Error)
	assert.EqualValues(t, 1, rows)

	removed, err := repo.Unlike(ctx, reader.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.Unlike(ctx, reader.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestEngagementRepository_BookmarkIndependentOfLike(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewEngagementRepository(db)
	ctx := context.Background()

	author := seedUser(t, db, "author")
	post := seedPost(t, db, author, "post", time.Now())

	_, created, err := repo.Bookmark(ctx, author.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, created)
	_, created, err = repo.Bookmark(ctx, author.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, created)

	removed, err := repo.Unlike(ctx, author.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = repo.Unbookmark(ctx, author.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, removed)
}

func TestEngagementRepository_ConcurrentLikesConverge(t *testing.T) {
	db := setupSQLiteDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// sqlite serialises writers; one connection avoids SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)

	repo := NewEngagementRepository(db)
	ctx := context.Background()
	author := seedUser(t, db, "author")
	post := seedPost(t, db, author, "post", time.Now())

	var wg sync.WaitGroup
	var mu sync.Mutex
	createdCount := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, created, err := repo.Like(ctx, author.ID, post.ID)
			assert.NoError(t, err)
			if created {
				mu.Lock()
				createdCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, createdCount)
	var rows int64
	require.NoError(t, db.Model(&models.Like{}).Count(&rows).Error)
	assert.EqualValues(t, 1, rows)
}
