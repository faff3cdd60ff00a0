package server

import (
	"log/slog"

	"github.com/SreeragSreekanth/Blogplatform/internal/middleware"
	"github.com/SreeragSreekanth/Blogplatform/internal/notifications"

	"github.com/gofiber/fiber/v2"
)

type taxonomyRequest struct {
	Name string `json:"name"`
}

// GetTags handles GET /api/tags/
func (s *Server) GetTags(c *fiber.Ctx) error {
	tags, err := s.taxonomyService.ListTags(c.UserContext())
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(tags)
}

// CreateTag handles POST /api/tags/ (admins only)
func (s *Server) CreateTag(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req taxonomyRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	tag, err := s.taxonomyService.CreateTag(c.UserContext(), userID, req.Name)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	s.announceTaxonomy(c, "tag", tag.ID, tag.Name)
	return c.Status(fiber.StatusCreated).JSON(tag)
}

// GetCategories handles GET /api/categories/
func (s *Server) GetCategories(c *fiber.Ctx) error {
	categories, err := s.taxonomyService.ListCategories(c.UserContext())
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(categories)
}

// CreateCategory handles POST /api/categories/ (admins only)
func (s *Server) CreateCategory(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req taxonomyRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	category, err := s.taxonomyService.CreateCategory(c.UserContext(), userID, req.Name)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	s.announceTaxonomy(c, "category", category.ID, category.Name)
	return c.Status(fiber.StatusCreated).JSON(category)
}

// announceTaxonomy tells open clients to refresh their tag and category pickers.
func (s *Server) announceTaxonomy(c *fiber.Ctx, kind string, id uint, name string) {
	err := s.realtime.PublishBroadcast(c.UserContext(), notifications.Event{
		Type:    notifications.EventTaxonomyUpdated,
		Payload: fiber.Map{"kind": kind, "id": id, "name": name},
	})
	if err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "taxonomy broadcast failed",
			slog.String("kind", kind),
			slog.String("error", err.Error()),
		)
	}
}
