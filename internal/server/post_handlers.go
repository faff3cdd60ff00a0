package server

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/SreeragSreekanth/Blogplatform/internal/models"
	"github.com/SreeragSreekanth/Blogplatform/internal/service"

	"github.com/gofiber/fiber/v2"
)

// postRequest is the body of create and update. Tags and category are
// pointers/raw so an update can tell "absent" from "cleared".
type postRequest struct {
	Title    *string         `json:"title"`
	Content  *string         `json:"content"`
	Tags     *[]uint         `json:"tags"`
	Category json.RawMessage `json:"category"`
}

// categoryID decodes the category field. set is false when the field was
// absent; a JSON null clears the category.
func (r *postRequest) categoryID() (id *uint, set bool, err error) {
	raw := bytes.TrimSpace(r.Category)
	if len(raw) == 0 {
		return nil, false, nil
	}
	if bytes.Equal(raw, []byte("null")) {
		return nil, true, nil
	}
	var v uint
	if err := json.Unmarshal(raw, &v); err != nil {
		// Form clients send the id as a string.
		var str string
		if json.Unmarshal(raw, &str) != nil {
			return nil, true, models.NewFieldValidationError("category", "Incorrect type. Expected pk value.")
		}
		n, perr := strconv.ParseUint(str, 10, 32)
		if perr != nil {
			return nil, true, models.NewFieldValidationError("category", "Incorrect type. Expected pk value.")
		}
		v = uint(n)
	}
	return &v, true, nil
}

func (r *postRequest) tagIDs() []uint {
	if r.Tags == nil {
		return nil
	}
	if *r.Tags == nil {
		return []uint{}
	}
	return *r.Tags
}

// GetPosts handles GET /api/posts/
// @Summary List posts
// @Description Paginated post listing with tag, category, search and ordering filters.
// @Tags posts
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size (max 20)"
// @Param tags query []int false "Tag ids" collectionFormat(multi)
// @Param category query int false "Category id"
// @Param search query string false "Search in title and content"
// @Param ordering query string false "created_at, -created_at, title or -title"
// @Success 200 {object} models.PostPage
// @Router /posts/ [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	page, err := s.parsePagination(c, service.DefaultPageSize)
	if err != nil {
		return nil
	}
	tagIDs, err := parseUintList(c, "tags")
	if err != nil {
		return s.respondServiceError(c, err)
	}

	var categoryID *uint
	if raw := c.Query("category"); raw != "" {
		n, perr := strconv.ParseUint(raw, 10, 32)
		if perr != nil || n == 0 {
			return s.respondServiceError(c, models.NewFieldValidationError("category",
				"Select a valid choice. That choice is not one of the available choices."))
		}
		id := uint(n)
		categoryID = &id
	}

	list, err := s.postService.ListPosts(c.UserContext(), service.ListPostsInput{
		Page:       page.Page,
		PageSize:   page.PageSize,
		TagIDs:     tagIDs,
		CategoryID: categoryID,
		Search:     c.Query("search"),
		Ordering:   c.Query("ordering"),
		ViewerID:   s.optionalUserID(c),
	})
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return respondPage(c, Pagination{Page: list.Page, PageSize: list.PageSize}, list.Total, list.Posts)
}

// GetPost handles GET /api/posts/:id/
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPost(c.UserContext(), id, s.optionalUserID(c))
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(post)
}

// GetPostBySlug handles GET /api/posts/slug/:slug/
func (s *Server) GetPostBySlug(c *fiber.Ctx) error {
	post, err := s.postService.GetPostBySlug(c.UserContext(), c.Params("slug"), s.optionalUserID(c))
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(post)
}

// CreatePost handles POST /api/posts/create/
// @Summary Create a post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{title=string,content=string,tags=[]int,category=int} true "Post"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /posts/create/ [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req postRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	categoryID, _, err := req.categoryID()
	if err != nil {
		return s.respondServiceError(c, err)
	}

	in := service.CreatePostInput{
		UserID:     userID,
		TagIDs:     req.tagIDs(),
		CategoryID: categoryID,
	}
	if req.Title != nil {
		in.Title = *req.Title
	}
	if req.Content != nil {
		in.Content = *req.Content
	}

	post, err := s.postService.CreatePost(c.UserContext(), in)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// UpdatePost handles PUT and PATCH /api/posts/:id/update/. Omitted fields keep
// their values; the slug never changes.
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req postRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	categoryID, setCategory, err := req.categoryID()
	if err != nil {
		return s.respondServiceError(c, err)
	}

	post, err := s.postService.UpdatePost(c.UserContext(), service.UpdatePostInput{
		UserID:      userID,
		PostID:      postID,
		Title:       req.Title,
		Content:     req.Content,
		TagIDs:      req.tagIDs(),
		SetCategory: setCategory,
		CategoryID:  categoryID,
	})
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id/delete/
func (s *Server) DeletePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.postService.DeletePost(c.UserContext(), userID, postID); err != nil {
		return s.respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// LikePost handles POST /api/posts/:post_id/like/. Liking twice is not an error.
func (s *Server) LikePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "post_id")
	if err != nil {
		return nil
	}

	_, created, err := s.engagementService.Like(c.UserContext(), userID, postID)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	if !created {
		return c.JSON(fiber.Map{"message": "Already liked"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Post liked"})
}

// UnlikePost handles DELETE /api/posts/:post_id/unlike/
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "post_id")
	if err != nil {
		return nil
	}

	if err := s.engagementService.Unlike(c.UserContext(), userID, postID); err != nil {
		return s.respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// BookmarkPost handles POST /api/posts/:post_id/bookmark/
func (s *Server) BookmarkPost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "post_id")
	if err != nil {
		return nil
	}

	_, created, err := s.engagementService.Bookmark(c.UserContext(), userID, postID)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	if !created {
		return c.JSON(fiber.Map{"message": "Already bookmarked"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Post bookmarked"})
}

// UnbookmarkPost handles DELETE /api/posts/:post_id/unbookmark/
func (s *Server) UnbookmarkPost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "post_id")
	if err != nil {
		return nil
	}

	if err := s.engagementService.Unbookmark(c.UserContext(), userID, postID); err != nil {
		return s.respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetBookmarkedPosts handles GET /api/profile/bookmarked/
func (s *Server) GetBookmarkedPosts(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	page, err := s.parsePagination(c, service.DefaultListPageSize)
	if err != nil {
		return nil
	}

	posts, total, err := s.engagementService.BookmarkedPosts(c.UserContext(), userID, page.Limit(), page.Offset())
	if err != nil {
		return s.respondServiceError(c, err)
	}
	if outOfRange(c, page, len(posts)) {
		return nil
	}
	return respondPage(c, page, total, posts)
}

// GetMyPosts handles GET /api/profile/blogs/
func (s *Server) GetMyPosts(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	page, err := s.parsePagination(c, service.DefaultListPageSize)
	if err != nil {
		return nil
	}

	posts, total, err := s.engagementService.AuthoredPosts(c.UserContext(), userID, page.Limit(), page.Offset())
	if err != nil {
		return s.respondServiceError(c, err)
	}
	if outOfRange(c, page, len(posts)) {
		return nil
	}
	return respondPage(c, page, total, posts)
}
