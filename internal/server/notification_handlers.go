package server

import (
	"github.com/SreeragSreekanth/Blogplatform/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetNotifications handles GET /api/notifications/, newest first.
func (s *Server) GetNotifications(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	page, err := s.parsePagination(c, service.DefaultListPageSize)
	if err != nil {
		return nil
	}

	items, total, err := s.notificationService.List(c.UserContext(), userID, page.Limit(), page.Offset())
	if err != nil {
		return s.respondServiceError(c, err)
	}
	if outOfRange(c, page, len(items)) {
		return nil
	}
	return respondPage(c, page, total, items)
}

// GetUnreadCount handles GET /api/notifications/unread-count/
func (s *Server) GetUnreadCount(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	count, err := s.notificationService.UnreadCount(c.UserContext(), userID)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"unread": count})
}

// MarkNotificationRead handles POST /api/notifications/:id/read/
func (s *Server) MarkNotificationRead(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	n, err := s.notificationService.MarkRead(c.UserContext(), id, userID)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(n)
}

// MarkAllNotificationsRead handles POST /api/notifications/mark-all-read/
func (s *Server) MarkAllNotificationsRead(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	flipped, err := s.notificationService.MarkAllRead(c.UserContext(), userID)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"marked": flipped})
}
