package service

import (
	"context"
	"strings"
	"testing"

	"github.com/SreeragSreekanth/Blogplatform/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaxonomyService_CreateRequiresAdmin(t *testing.T) {
	t.Parallel()
	e := newEnv(t, "")
	user := e.user(t, "alice")
	ctx := context.Background()

	_, err := e.taxonomySvc.CreateTag(ctx, user.ID, "go")
	assertCode(t, err, models.CodeForbidden)
	_, err = e.taxonomySvc.CreateCategory(ctx, 0, "News")
	assertCode(t, err, models.CodeForbidden)
}

func TestTaxonomyService_CreateAndList(t *testing.T) {
	t.Parallel()
	e := newEnv(t, "")
	admin := e.admin(t, "root")
	ctx := context.Background()

	for _, name := range []string{"web", " go "} {
		_, err := e.taxonomySvc.CreateTag(ctx, admin.ID, name)
		require.NoError(t, err)
	}
	tags, err := e.taxonomySvc.ListTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "go", tags[0].Name)

	_, err = e.taxonomySvc.CreateTag(ctx, admin.ID, "go")
	assertValidationError(t, err)
	assert.Equal(t, "tag with this name already exists.", fieldError(t, err, "name"))

	_, err = e.taxonomySvc.CreateCategory(ctx, admin.ID, strings.Repeat("x", 200))
	assertValidationError(t, err)

	cat, err := e.taxonomySvc.CreateCategory(ctx, admin.ID, "News")
	require.NoError(t, err)
	categories, err := e.taxonomySvc.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, cat.ID, categories[0].ID)
}
