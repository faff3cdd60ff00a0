package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/SreeragSreekanth/Blogplatform/internal/featureflags"
	"github.com/SreeragSreekanth/Blogplatform/internal/models"
	"github.com/SreeragSreekanth/Blogplatform/internal/observability"
	"github.com/SreeragSreekanth/Blogplatform/internal/repository"
	"github.com/SreeragSreekanth/Blogplatform/internal/slug"
	"github.com/SreeragSreekanth/Blogplatform/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

const (
	MaxTitleLength   = 200
	MaxContentLength = 50000

	// DefaultPageSize applies to the public post listing only.
	DefaultPageSize = 5
	// DefaultListPageSize applies to every other paginated listing.
	DefaultListPageSize = 10
	MaxPageSize         = repository.MaxPageSize

	// MaxSlugAttempts bounds the insert retries after a concurrent slug collision.
	MaxSlugAttempts = 5
)

type PostService struct {
	postRepo     repository.PostRepository
	taxonomyRepo repository.TaxonomyRepository
	isAdmin      AdminChecker
	renderer     *Renderer
	flags        *featureflags.Manager
}

type CreatePostInput struct {
	UserID     uint
	Title      string
	Content    string
	TagIDs     []uint
	CategoryID *uint
}

// UpdatePostInput carries a full or partial update. Nil fields are left unchanged.
type UpdatePostInput struct {
	UserID  uint
	PostID  uint
	Title   *string
	Content *string
	// TagIDs replaces the post's tags when non-nil; an empty slice clears them.
	TagIDs []uint
	// SetCategory applies CategoryID, where nil clears the category.
	SetCategory bool
	CategoryID  *uint
}

type ListPostsInput struct {
	Page       int
	PageSize   int
	TagIDs     []uint
	CategoryID *uint
	Search     string
	Ordering   string
	ViewerID   uint
}

// PostList is one page of posts with what a handler needs to link neighbours.
type PostList struct {
	Posts    []*models.Post
	Total    int64
	Page     int
	PageSize int
}

func (l *PostList) HasNext() bool     { return int64(l.Page*l.PageSize) < l.Total }
func (l *PostList) HasPrevious() bool { return l.Page > 1 }

func NewPostService(
	postRepo repository.PostRepository,
	taxonomyRepo repository.TaxonomyRepository,
	isAdmin AdminChecker,
	renderer *Renderer,
	flags *featureflags.Manager,
) *PostService {
	return &PostService{
		postRepo:     postRepo,
		taxonomyRepo: taxonomyRepo,
		isAdmin:      isAdmin,
		renderer:     renderer,
		flags:        flags,
	}
}

// CreatePost validates the input, assigns a unique slug and stores the post.
// A unique violation on insert means another request took the slug between
// the check and the write, so the slug is assigned again.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (post *models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "posts", "create")
	defer func() { span.End(err) }()

	if err := validatePostText(in.Title, in.Content); err != nil {
		return nil, err
	}
	tags, err := s.resolveTags(ctx, in.TagIDs)
	if err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	exists := func(ctx context.Context, candidate string) (bool, error) {
		return s.postRepo.SlugExists(ctx, candidate, 0)
	}
	base := slug.Normalize(in.Title)
	if base == "" {
		base = slug.Fallback
	}

	// After a unique-index rejection the slug may be a truncated collision,
	// so later attempts resolve against the stored, length-fitted form.
	assign := slug.Assign
	var lastErr error
	for attempt := 1; attempt <= MaxSlugAttempts; attempt++ {
		assigned, err := assign(ctx, in.Title, exists)
		if err != nil {
			return nil, appError(err)
		}
		if assigned != slug.Truncate(base) {
			observability.SlugCollisions.WithLabelValues("suffix").Inc()
		}

		post = &models.Post{
			Title:      in.Title,
			Content:    in.Content,
			Slug:       assigned,
			UserID:     in.UserID,
			CategoryID: in.CategoryID,
			Tags:       tags,
		}
		err = s.postRepo.Create(ctx, post)
		if err == nil {
			span.AddAttributes(attribute.String("post.slug", assigned), attribute.Int("slug.attempts", attempt))
			return s.GetPost(ctx, post.ID, in.UserID)
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, appError(err)
		}
		observability.SlugCollisions.WithLabelValues("retry").Inc()
		lastErr = err
		assign = slug.AssignFitted
	}

	observability.SlugCollisions.WithLabelValues("exhausted").Inc()
	return nil, models.NewConflictError("Could not assign a unique slug, please retry", lastErr)
}

// ListPosts returns one page. Pages are 1-based; a page past the end is NotFound.
func (s *PostService) ListPosts(ctx context.Context, in ListPostsInput) (*PostList, error) {
	if !repository.ValidOrdering(in.Ordering) {
		return nil, models.NewFieldValidationError("ordering",
			fmt.Sprintf("Invalid ordering %q. Use created_at, -created_at, title or -title.", in.Ordering))
	}
	pageSize := in.PageSize
	switch {
	case pageSize <= 0:
		pageSize = DefaultPageSize
	case pageSize > MaxPageSize:
		pageSize = MaxPageSize
	}
	page := in.Page
	if page == 0 {
		page = 1
	}
	if page < 0 {
		return nil, invalidPage()
	}

	posts, total, err := s.postRepo.List(ctx, repository.PostFilter{
		TagIDs:     in.TagIDs,
		CategoryID: in.CategoryID,
		Search:     in.Search,
		Ordering:   in.Ordering,
		Limit:      pageSize,
		Offset:     (page - 1) * pageSize,
		ViewerID:   in.ViewerID,
	})
	if err != nil {
		return nil, appError(err)
	}
	if page > 1 && len(posts) == 0 {
		return nil, invalidPage()
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	s.render(in.ViewerID, posts...)
	return &PostList{Posts: posts, Total: total, Page: page, PageSize: pageSize}, nil
}

func invalidPage() error {
	return &models.AppError{Code: models.CodeNotFound, Message: "Invalid page."}
}

func (s *PostService) GetPost(ctx context.Context, id, viewerID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id, viewerID)
	if err != nil {
		return nil, appError(err)
	}
	s.render(viewerID, post)
	return post, nil
}

func (s *PostService) GetPostBySlug(ctx context.Context, postSlug string, viewerID uint) (*models.Post, error) {
	post, err := s.postRepo.GetBySlug(ctx, postSlug, viewerID)
	if err != nil {
		return nil, appError(err)
	}
	s.render(viewerID, post)
	return post, nil
}

// UpdatePost applies the owner's edits. The slug never changes.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID, in.UserID)
	if err != nil {
		return nil, appError(err)
	}
	if post.UserID != in.UserID {
		return nil, models.NewForbiddenError("You can only edit your own blog posts")
	}

	title, content := post.Title, post.Content
	if in.Title != nil {
		title = *in.Title
	}
	if in.Content != nil {
		content = *in.Content
	}
	if err := validatePostText(title, content); err != nil {
		return nil, err
	}

	var tags []models.Tag
	if in.TagIDs != nil {
		if tags, err = s.resolveTags(ctx, in.TagIDs); err != nil {
			return nil, err
		}
	}
	if in.SetCategory {
		if err := s.checkCategory(ctx, in.CategoryID); err != nil {
			return nil, err
		}
		post.CategoryID = in.CategoryID
	}

	post.Title, post.Content = title, content
	if err := s.postRepo.Update(ctx, post, tags); err != nil {
		return nil, appError(err)
	}
	return s.GetPost(ctx, post.ID, in.UserID)
}

// SetImage stores the URL of an uploaded image on the owner's post.
func (s *PostService) SetImage(ctx context.Context, userID, postID uint, imageURL string) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID, userID)
	if err != nil {
		return nil, appError(err)
	}
	if post.UserID != userID {
		return nil, models.NewForbiddenError("You can only edit your own blog posts")
	}
	post.Image = imageURL
	if err := s.postRepo.Update(ctx, post, nil); err != nil {
		return nil, appError(err)
	}
	return s.GetPost(ctx, post.ID, userID)
}

// CheckOwner returns NotFound or Forbidden unless userID wrote the post.
func (s *PostService) CheckOwner(ctx context.Context, userID, postID uint) error {
	post, err := s.postRepo.GetByID(ctx, postID, 0)
	if err != nil {
		return appError(err)
	}
	if post.UserID != userID {
		return models.NewForbiddenError("You can only edit your own blog posts")
	}
	return nil
}

// DeletePost removes the post with its comments, likes and bookmarks.
// Allowed for the author and for admins.
func (s *PostService) DeletePost(ctx context.Context, userID, postID uint) error {
	post, err := s.postRepo.GetByID(ctx, postID, 0)
	if err != nil {
		return appError(err)
	}
	if err := ownerOrAdmin(ctx, s.isAdmin, post.UserID, userID, "You can only delete your own blog posts"); err != nil {
		return err
	}
	return appError(s.postRepo.Delete(ctx, postID))
}

func (s *PostService) resolveTags(ctx context.Context, ids []uint) ([]models.Tag, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return []models.Tag{}, nil
	}
	tags, err := s.taxonomyRepo.FindTags(ctx, ids)
	if err != nil {
		return nil, appError(err)
	}
	if len(tags) != len(ids) {
		found := make(map[uint]bool, len(tags))
		for _, t := range tags {
			found[t.ID] = true
		}
		for _, id := range ids {
			if !found[id] {
				return nil, models.NewFieldValidationError("tags",
					fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id))
			}
		}
	}
	return tags, nil
}

func (s *PostService) checkCategory(ctx context.Context, id *uint) error {
	if id == nil {
		return nil
	}
	if _, err := s.taxonomyRepo.GetCategory(ctx, *id); err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return models.NewFieldValidationError("category",
				fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", *id))
		}
		return appError(err)
	}
	return nil
}

func (s *PostService) render(viewerID uint, posts ...*models.Post) {
	if s.renderer == nil || !s.flags.Enabled(featureflags.RenderMarkdown, viewerID) {
		return
	}
	for _, p := range posts {
		p.ContentHTML = s.renderer.Render(p.Content)
	}
}

func validatePostText(title, content string) error {
	if err := validation.ValidateLength("title", strings.TrimSpace(title), MaxTitleLength); err != nil {
		return models.NewFieldValidationError("title", err.Error())
	}
	if err := validation.ValidateLength("content", content, MaxContentLength); err != nil {
		return models.NewFieldValidationError("content", err.Error())
	}
	return nil
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
