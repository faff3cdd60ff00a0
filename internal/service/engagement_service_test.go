package service

import (
	"context"
	"testing"

	"github.com/SreeragSreekanth/Blogplatform/internal/featureflags"
	"github.com/SreeragSreekanth/Blogplatform/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngagementService_LikeIsIdempotent(t *testing.T) {
	t.Parallel()
	e := newEnv(t, "")
	author := e.user(t, "alice")
	reader := e.user(t, "bob")
	post := e.post(t, author, "Likeable")
	ctx := context.Background()

	like, created, err := e.engagementSvc.Like(ctx, reader.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, post.ID, like.PostID)

	again, created, err := e.engagementSvc.Like(ctx, reader.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, like.ID, again.ID)

	inbox := e.inbox(t, author)
	require.Len(t, inbox, 1, "only the first like notifies")
	assert.Equal(t, "Your post 'Likeable' was liked by bob.", inbox[0].Message)

	got, err := e.postSvc.GetPost(ctx, post.ID, reader.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.LikesCount)
	assert.True(t, got.Liked)
}

func TestEngagementService_Unlike(t *testing.T) {
	t.Parallel()
	e := newEnv(t, "")
	author := e.user(t, "alice")
	reader := e.user(t, "bob")
	post := e.post(t, author, "Likeable")
	ctx := context.Background()

	err := e.engagementSvc.Unlike(ctx, reader.ID, post.ID)
	assertCode(t, err, models.CodeNotFound)

	_, _, err = e.engagementSvc.Like(ctx, reader.ID, post.ID)
	require.NoError(t, err)
	require.NoError(t, e.engagementSvc.Unlike(ctx, reader.ID, post.ID))

	got, err := e.postSvc.GetPost(ctx, post.ID, reader.ID)
	require.NoError(t, err)
	assert.Zero(t, got.LikesCount)
	assert.False(t, got.Liked)

	_, _, err = e.engagementSvc.Like(ctx, reader.ID, 404)
	assertCode(t, err, models.CodeNotFound)
	assertCode(t, e.engagementSvc.Unlike(ctx, reader.ID, 404), models.CodeNotFound)
}

func TestEngagementService_SelfLike(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	quiet := newEnv(t, "")
	author := quiet.user(t, "alice")
	post := quiet.post(t, author, "Mine")
	_, created, err := quiet.engagementSvc.Like(ctx, author.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Empty(t, quiet.inbox(t, author))

	loud := newEnv(t, featureflags.NotifySelfEngagement+"=on")
	author = loud.user(t, "alice")
	post = loud.post(t, author, "Mine")
	_, _, err = loud.engagementSvc.Like(ctx, author.ID, post.ID)
	require.NoError(t, err)
	assert.Len(t, loud.inbox(t, author), 1)
}

func TestEngagementService_Bookmarks(t *testing.T) {
	t.Parallel()
	e := newEnv(t, "")
	author := e.user(t, "alice")
	reader := e.user(t, "bob")
	first := e.post(t, author, "First")
	second := e.post(t, author, "Second")
	ctx := context.Background()

	_, created, err := e.engagementSvc.Bookmark(ctx, reader.ID, first.ID)
	require.NoError(t, err)
	assert.True(t, created)
	_, created, err = e.engagementSvc.Bookmark(ctx, reader.ID, first.ID)
	require.NoError(t, err)
	assert.False(t, created)
	_, _, err = e.engagementSvc.Bookmark(ctx, reader.ID, second.ID)
	require.NoError(t, err)

	posts, total, err := e.engagementSvc.BookmarkedPosts(ctx, reader.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, posts, 2)
	assert.True(t, posts[0].Bookmarked)
	assert.Empty(t, e.inbox(t, author), "bookmarks do not notify")

	require.NoError(t, e.engagementSvc.Unbookmark(ctx, reader.ID, first.ID))
	assertCode(t, e.engagementSvc.Unbookmark(ctx, reader.ID, first.ID), models.CodeNotFound)

	_, total, err = e.engagementSvc.BookmarkedPosts(ctx, reader.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestEngagementService_AuthoredPosts(t *testing.T) {
	t.Parallel()
	e := newEnv(t, "")
	author := e.user(t, "alice")
	other := e.user(t, "bob")
	e.post(t, author, "One")
	e.post(t, author, "Two")
	e.post(t, other, "Three")

	posts, total, err := e.engagementSvc.AuthoredPosts(context.Background(), author.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, p := range posts {
		assert.Equal(t, author.ID, p.UserID)
	}
}
