package server

import (
	"github.com/SreeragSreekanth/Blogplatform/internal/service"

	"github.com/gofiber/fiber/v2"
)

type commentRequest struct {
	Content string `json:"content"`
	Parent  *uint  `json:"parent"`
}

// GetComments handles GET /api/posts/:post_id/comments/
// @Summary Comment forest of a post
// @Description Root comments newest first, each with nested replies.
// @Tags comments
// @Produce json
// @Param post_id path int true "Post ID"
// @Success 200 {array} models.CommentNode
// @Router /posts/{post_id}/comments/ [get]
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "post_id")
	if err != nil {
		return nil
	}

	forest, err := s.commentService.ListRootComments(c.UserContext(), postID, s.optionalUserID(c))
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(forest)
}

// CreateComment handles POST /api/posts/:post_id/comments/
func (s *Server) CreateComment(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "post_id")
	if err != nil {
		return nil
	}

	var req commentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	comment, err := s.commentService.CreateComment(c.UserContext(), service.CreateCommentInput{
		UserID:   userID,
		PostID:   postID,
		ParentID: req.Parent,
		Content:  req.Content,
	})
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// GetComment handles GET /api/posts/:post_id/comments/:id/
func (s *Server) GetComment(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "post_id")
	if err != nil {
		return nil
	}
	commentID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	node, err := s.commentService.GetComment(c.UserContext(), postID, commentID, s.optionalUserID(c))
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(node)
}

// UpdateComment handles PUT and PATCH /api/posts/:post_id/comments/:id/
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "post_id")
	if err != nil {
		return nil
	}
	commentID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req commentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	comment, err := s.commentService.UpdateComment(c.UserContext(), service.UpdateCommentInput{
		UserID:    userID,
		PostID:    postID,
		CommentID: commentID,
		Content:   req.Content,
	})
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(comment)
}

// DeleteComment handles DELETE /api/posts/:post_id/comments/:id/. Replies go with it.
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "post_id")
	if err != nil {
		return nil
	}
	commentID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if _, err := s.commentService.DeleteComment(c.UserContext(), service.DeleteCommentInput{
		UserID:    userID,
		PostID:    postID,
		CommentID: commentID,
	}); err != nil {
		return s.respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
