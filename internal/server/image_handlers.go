package server

import (
	"io"

	"github.com/SreeragSreekanth/Blogplatform/internal/models"
	"github.com/SreeragSreekanth/Blogplatform/internal/service"

	"github.com/gofiber/fiber/v2"
)

// readUpload loads the multipart "image" field. On failure it writes a 400
// response and returns errResponseWritten.
func (s *Server) readUpload(c *fiber.Ctx, userID uint, folder string) (service.UploadImageInput, error) {
	file, err := c.FormFile("image")
	if err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewFieldValidationError("image", "No file was submitted."))
		return service.UploadImageInput{}, errResponseWritten
	}
	src, err := file.Open()
	if err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Unable to read uploaded file"))
		return service.UploadImageInput{}, errResponseWritten
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Unable to read uploaded file"))
		return service.UploadImageInput{}, errResponseWritten
	}

	return service.UploadImageInput{
		UserID:      userID,
		Folder:      folder,
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Content:     content,
	}, nil
}

// UploadPostImage handles POST /api/posts/:id/image/. The stored WebP
// replaces the post's previous image.
func (s *Server) UploadPostImage(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	ctx := c.UserContext()

	// Ownership first so strangers cannot write files.
	previous, err := s.postService.GetPost(ctx, postID, userID)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	if err := s.postService.CheckOwner(ctx, userID, postID); err != nil {
		return s.respondServiceError(c, err)
	}

	in, err := s.readUpload(c, userID, service.FolderBlogImages)
	if err != nil {
		return nil
	}
	url, err := s.imageService.Upload(ctx, in)
	if err != nil {
		return s.respondServiceError(c, err)
	}

	post, err := s.postService.SetImage(ctx, userID, postID, url)
	if err != nil {
		s.imageService.Remove(url)
		return s.respondServiceError(c, err)
	}
	if previous.Image != "" && previous.Image != url {
		s.imageService.Remove(previous.Image)
	}
	return c.JSON(post)
}

// UploadProfilePicture handles POST /api/profile/picture/
func (s *Server) UploadProfilePicture(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	ctx := c.UserContext()

	current, err := s.userService.GetUserByID(ctx, userID)
	if err != nil {
		return s.respondServiceError(c, err)
	}

	in, err := s.readUpload(c, userID, service.FolderProfilePictures)
	if err != nil {
		return nil
	}
	url, err := s.imageService.Upload(ctx, in)
	if err != nil {
		return s.respondServiceError(c, err)
	}

	user, err := s.userService.UpdateProfile(ctx, service.UpdateProfileInput{
		UserID:         userID,
		ProfilePicture: &url,
	})
	if err != nil {
		s.imageService.Remove(url)
		return s.respondServiceError(c, err)
	}
	if current.ProfilePicture != "" && current.ProfilePicture != url {
		s.imageService.Remove(current.ProfilePicture)
	}
	return c.JSON(user)
}
