package repository

import (
	"context"
	"testing"

	"github.com/SreeragSreekanth/Blogplatform/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationRepository_MarkAllReadCountsOnlyUnread(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()

	owner := seedUser(t, db, "owner")
	other := seedUser(t, db, "other")

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(ctx, &models.Notification{UserID: owner.ID, Message: "unread"}))
	}
	for i := 0; i < 2; i++ {
		n := &models.Notification{UserID: owner.ID, Message: "read"}
		require.NoError(t, repo.Create(ctx, n))
		require.NoError(t, repo.MarkRead(ctx, n.ID))
	}
	require.NoError(t, repo.Create(ctx, &models.Notification{UserID: other.ID, Message: "theirs"}))

	unread, err := repo.UnreadCount(ctx, owner.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 5, unread)

	flipped, err := repo.MarkAllRead(ctx, owner.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 5, flipped)

	flipped, err = repo.MarkAllRead(ctx, owner.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, flipped)

	theirs, err := repo.UnreadCount(ctx, other.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, theirs)
}

func TestNotificationRepository_ListAndMarkRead(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()
	owner := seedUser(t, db, "owner")

	first := &models.Notification{UserID: owner.ID, Message: "first"}
	second := &models.Notification{UserID: owner.ID, Message: "second"}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	items, total, err := repo.ListByRecipient(ctx, owner.ID, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, items, 2)
	assert.Equal(t, "second", items[0].Message)
	assert.False(t, items[0].Read)

	require.NoError(t, repo.MarkRead(ctx, first.ID))
	require.NoError(t, repo.MarkRead(ctx, first.ID))
	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, got.Read)

	assert.True(t, models.IsCode(repo.MarkRead(ctx, 999), models.CodeNotFound))
	_, err = repo.GetByID(ctx, 999)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}
