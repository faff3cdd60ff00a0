package service

import (
	"context"
	"strings"

	"github.com/SreeragSreekanth/Blogplatform/internal/featureflags"
	"github.com/SreeragSreekanth/Blogplatform/internal/models"
	"github.com/SreeragSreekanth/Blogplatform/internal/repository"
	"github.com/SreeragSreekanth/Blogplatform/internal/validation"
)

const MaxCommentLength = 10000

type CommentService struct {
	commentRepo   repository.CommentRepository
	postRepo      repository.PostRepository
	userRepo      repository.UserRepository
	notifications NotificationSink
	isAdmin       AdminChecker
	renderer      *Renderer
	flags         *featureflags.Manager
}

type CreateCommentInput struct {
	UserID   uint
	PostID   uint
	ParentID *uint
	Content  string
}

type UpdateCommentInput struct {
	UserID    uint
	PostID    uint
	CommentID uint
	Content   string
}

type DeleteCommentInput struct {
	UserID    uint
	PostID    uint
	CommentID uint
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	notifications NotificationSink,
	isAdmin AdminChecker,
	renderer *Renderer,
	flags *featureflags.Manager,
) *CommentService {
	return &CommentService{
		commentRepo:   commentRepo,
		postRepo:      postRepo,
		userRepo:      userRepo,
		notifications: notifications,
		isAdmin:       isAdmin,
		renderer:      renderer,
		flags:         flags,
	}
}

// CreateComment adds a root comment or a reply. A reply's parent must exist
// on the same post. The post author is notified.
func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID, 0)
	if err != nil {
		return nil, appError(err)
	}
	content, err := cleanCommentContent(in.Content)
	if err != nil {
		return nil, err
	}

	if in.ParentID != nil {
		parent, err := s.commentRepo.GetByID(ctx, *in.ParentID)
		if err != nil {
			if models.IsCode(err, models.CodeNotFound) {
				return nil, models.NewFieldValidationError("parent", "Parent comment does not exist.")
			}
			return nil, appError(err)
		}
		if parent.PostID != post.ID {
			return nil, models.NewFieldValidationError("parent", "Parent comment must belong to the same post.")
		}
	}

	comment := &models.Comment{
		Content:  content,
		UserID:   in.UserID,
		PostID:   post.ID,
		ParentID: in.ParentID,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, appError(err)
	}

	notifyPostAuthor(ctx, s.notifications, s.userRepo, s.flags, post, in.UserID,
		"comment", "Your post '%s' received a new comment from %s.")

	created, err := s.commentRepo.GetByID(ctx, comment.ID)
	return created, appError(err)
}

// ListRootComments returns the post's comment forest. A post without
// comments, or one that does not exist, yields an empty forest.
func (s *CommentService) ListRootComments(ctx context.Context, postID, viewerID uint) ([]*models.CommentNode, error) {
	comments, err := s.commentRepo.ListByPost(ctx, postID)
	if err != nil {
		return nil, appError(err)
	}
	forest := BuildForest(comments)
	s.render(viewerID, forest)
	return forest, nil
}

// GetComment returns one comment with its replies. A comment addressed
// under another post is NotFound.
func (s *CommentService) GetComment(ctx context.Context, postID, commentID, viewerID uint) (*models.CommentNode, error) {
	if _, err := s.lookup(ctx, postID, commentID); err != nil {
		return nil, err
	}
	forest, err := s.ListRootComments(ctx, postID, viewerID)
	if err != nil {
		return nil, err
	}
	node := FindNode(forest, commentID)
	if node == nil {
		return nil, models.NewNotFoundError("Comment", commentID)
	}
	return node, nil
}

func (s *CommentService) UpdateComment(ctx context.Context, in UpdateCommentInput) (*models.Comment, error) {
	comment, err := s.lookup(ctx, in.PostID, in.CommentID)
	if err != nil {
		return nil, err
	}
	if comment.UserID != in.UserID {
		return nil, models.NewForbiddenError("You can only edit your own comments")
	}
	content, err := cleanCommentContent(in.Content)
	if err != nil {
		return nil, err
	}

	comment.Content = content
	if err := s.commentRepo.Update(ctx, comment); err != nil {
		return nil, appError(err)
	}
	updated, err := s.commentRepo.GetByID(ctx, comment.ID)
	return updated, appError(err)
}

// DeleteComment removes the comment and every reply below it and returns
// how many comments were removed. Allowed for the author and for admins.
func (s *CommentService) DeleteComment(ctx context.Context, in DeleteCommentInput) (int64, error) {
	comment, err := s.lookup(ctx, in.PostID, in.CommentID)
	if err != nil {
		return 0, err
	}
	if err := ownerOrAdmin(ctx, s.isAdmin, comment.UserID, in.UserID, "You can only delete your own comments"); err != nil {
		return 0, err
	}
	deleted, err := s.commentRepo.DeleteSubtree(ctx, comment.ID)
	return deleted, appError(err)
}

func (s *CommentService) lookup(ctx context.Context, postID, commentID uint) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, appError(err)
	}
	if comment.PostID != postID {
		return nil, models.NewNotFoundError("Comment", commentID)
	}
	return comment, nil
}

func (s *CommentService) render(viewerID uint, forest []*models.CommentNode) {
	if s.renderer == nil || !s.flags.Enabled(featureflags.RenderMarkdown, viewerID) {
		return
	}
	for _, n := range forest {
		n.ContentHTML = s.renderer.Render(n.Content)
		s.render(viewerID, n.Replies)
	}
}

func cleanCommentContent(raw string) (string, error) {
	content := strings.TrimSpace(StripTags(raw))
	if err := validation.ValidateLength("content", content, MaxCommentLength); err != nil {
		return "", models.NewFieldValidationError("content", err.Error())
	}
	return content, nil
}
