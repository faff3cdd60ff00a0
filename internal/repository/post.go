package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/SreeragSreekanth/Blogplatform/internal/cache"
	"github.com/SreeragSreekanth/Blogplatform/internal/models"

	"gorm.io/gorm"
)

// MaxPageSize bounds every post listing.
const MaxPageSize = 20

// PostFilter selects and orders a post listing.
type PostFilter struct {
	TagIDs     []uint
	CategoryID *uint
	Search     string
	// Ordering is one of created_at, -created_at, title, -title.
	Ordering string
	Limit    int
	Offset   int
	ViewerID uint
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	SlugExists(ctx context.Context, slug string, excludeID uint) (bool, error)
	GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error)
	GetBySlug(ctx context.Context, slug string, viewerID uint) (*models.Post, error)
	List(ctx context.Context, filter PostFilter) ([]*models.Post, int64, error)
	ListByAuthor(ctx context.Context, authorID uint, limit, offset int, viewerID uint) ([]*models.Post, int64, error)
	ListBookmarked(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, int64, error)
	// Update saves scalar fields. A non-nil tags slice replaces the post's tags.
	Update(ctx context.Context, post *models.Post, tags []models.Tag) error
	Delete(ctx context.Context, id uint) error
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// Create inserts the post with its tag links. A taken slug surfaces as ErrDuplicate.
func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return wrapWriteError("create post", err)
	}
	return nil
}

func (r *postRepository) SlugExists(ctx context.Context, slug string, excludeID uint) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&models.Post{}).Where("slug = ?", slug)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetByID serves anonymous reads through the cache; viewer flags are computed live.
func (r *postRepository) GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error) {
	var post models.Post
	fetch := func() error {
		return r.withDetails(r.db.WithContext(ctx), viewerID).
			Where("posts.id = ?", id).
			First(&post).Error
	}

	var err error
	if viewerID == 0 {
		err = cache.Aside(ctx, cache.PostKey(id), &post, cache.PostTTL, fetch)
	} else {
		err = fetch()
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) GetBySlug(ctx context.Context, slug string, viewerID uint) (*models.Post, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("slug = ?", slug).Limit(1).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, models.NewNotFoundError("Post", slug)
	}
	return r.GetByID(ctx, ids[0], viewerID)
}

func (r *postRepository) List(ctx context.Context, filter PostFilter) ([]*models.Post, int64, error) {
	limit, offset := clampPage(filter.Limit, filter.Offset, MaxPageSize)
	db := readDB(r.db).WithContext(ctx)

	scoped := func(q *gorm.DB) *gorm.DB {
		if len(filter.TagIDs) > 0 {
			q = q.Where("posts.id IN (SELECT post_id FROM post_tags WHERE tag_id IN ?)", filter.TagIDs)
		}
		if filter.CategoryID != nil {
			q = q.Where("posts.category_id = ?", *filter.CategoryID)
		}
		if term := strings.TrimSpace(filter.Search); term != "" {
			like := "%" + escapeLike(strings.ToLower(term)) + "%"
			q = q.Where("(LOWER(posts.title) LIKE ? ESCAPE '\\' OR LOWER(posts.content) LIKE ? ESCAPE '\\')", like, like)
		}
		return q
	}

	var total int64
	if err := scoped(db.Model(&models.Post{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var posts []*models.Post
	err := scoped(r.withDetails(db, filter.ViewerID)).
		Order(orderClause(filter.Ordering)).
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID uint, limit, offset int, viewerID uint) ([]*models.Post, int64, error) {
	limit, offset = clampPage(limit, offset, MaxPageSize)
	db := readDB(r.db).WithContext(ctx)

	var total int64
	if err := db.Model(&models.Post{}).Where("user_id = ?", authorID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var posts []*models.Post
	err := r.withDetails(db, viewerID).
		Where("posts.user_id = ?", authorID).
		Order("posts.created_at DESC, posts.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, total, err
}

// ListBookmarked orders by post creation, newest first.
func (r *postRepository) ListBookmarked(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, int64, error) {
	limit, offset = clampPage(limit, offset, MaxPageSize)
	db := readDB(r.db).WithContext(ctx)
	const bookmarkedBy = "posts.id IN (SELECT post_id FROM bookmarks WHERE bookmarks.user_id = ?)"

	var total int64
	if err := db.Model(&models.Post{}).Where(bookmarkedBy, userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var posts []*models.Post
	err := r.withDetails(db, userID).
		Where(bookmarkedBy, userID).
		Order("posts.created_at DESC, posts.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, total, err
}

func (r *postRepository) Update(ctx context.Context, post *models.Post, tags []models.Tag) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Post{ID: post.ID}).
			Select("title", "content", "image", "category_id", "updated_at").
			Updates(post).Error; err != nil {
			return err
		}
		if tags != nil {
			if err := tx.Model(&models.Post{ID: post.ID}).Association("Tags").Replace(tags); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return wrapWriteError("update post", err)
	}
	cache.InvalidatePost(ctx, post.ID)
	return nil
}

// Delete removes the post with its comments, likes, bookmarks and tag links.
// The foreign keys cascade on postgres; the explicit deletes keep sqlite in step.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&models.Like{}, &models.Bookmark{}, &models.Comment{}} {
			if err := tx.Where("post_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		if err := tx.Exec("DELETE FROM post_tags WHERE post_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Post", id)
		}
		return nil
	})
	if err != nil {
		return err
	}
	cache.InvalidatePost(ctx, id)
	return nil
}

// withDetails selects the computed columns and preloads tags and category.
func (r *postRepository) withDetails(db *gorm.DB, viewerID uint) *gorm.DB {
	selectQuery := "posts.*, " +
		"(SELECT username FROM users WHERE users.id = posts.user_id) AS author, " +
		"(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comments_count, " +
		"(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) AS likes_count"

	q := db.Model(&models.Post{}).Preload("Tags", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("tags.name ASC")
	}).Preload("Category")

	if viewerID != 0 {
		return q.Select(selectQuery+
			", EXISTS(SELECT 1 FROM likes WHERE likes.post_id = posts.id AND likes.user_id = ?) AS liked"+
			", EXISTS(SELECT 1 FROM bookmarks WHERE bookmarks.post_id = posts.id AND bookmarks.user_id = ?) AS bookmarked",
			viewerID, viewerID)
	}
	return q.Select(selectQuery + ", false AS liked, false AS bookmarked")
}

func orderClause(ordering string) string {
	switch ordering {
	case "created_at":
		return "posts.created_at ASC, posts.id ASC"
	case "title":
		return "posts.title ASC, posts.id ASC"
	case "-title":
		return "posts.title DESC, posts.id DESC"
	default:
		return "posts.created_at DESC, posts.id DESC"
	}
}

// ValidOrdering reports whether ordering is accepted by List.
func ValidOrdering(ordering string) bool {
	switch ordering {
	case "", "created_at", "-created_at", "title", "-title":
		return true
	}
	return false
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
