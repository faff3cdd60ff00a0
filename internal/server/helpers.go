package server

import (
	"errors"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/SreeragSreekanth/Blogplatform/internal/middleware"
	"github.com/SreeragSreekanth/Blogplatform/internal/models"
	"github.com/SreeragSreekanth/Blogplatform/internal/service"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// Pagination is a 1-based page request.
type Pagination struct {
	Page     int
	PageSize int
}

func (p Pagination) Limit() int  { return p.PageSize }
func (p Pagination) Offset() int { return (p.Page - 1) * p.PageSize }

// parsePagination reads ?page= and ?page_size=, falling back to defaultSize.
// A page that is not a positive integer is answered with 404, a page_size
// outside [1, max] is clamped.
func (s *Server) parsePagination(c *fiber.Ctx, defaultSize int) (Pagination, error) {
	page := 1
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			_ = models.RespondWithError(c, fiber.StatusNotFound,
				&models.AppError{Code: models.CodeNotFound, Message: "Invalid page."})
			return Pagination{}, errResponseWritten
		}
		page = n
	}

	size := defaultSize
	if raw := c.Query("page_size"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			size = n
		}
	}
	if size > service.MaxPageSize {
		size = service.MaxPageSize
	}
	return Pagination{Page: page, PageSize: size}, nil
}

// pageLink rebuilds the request URL with a different page number, keeping
// every other query parameter.
func pageLink(c *fiber.Ctx, page int) *string {
	q, err := url.ParseQuery(string(c.Request().URI().QueryString()))
	if err != nil {
		q = url.Values{}
	}
	if page <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	link := c.BaseURL() + c.Path()
	if encoded := q.Encode(); encoded != "" {
		link += "?" + encoded
	}
	return &link
}

// respondPage writes the {count, next, previous, results} envelope.
func respondPage[T any](c *fiber.Ctx, p Pagination, total int64, results []T) error {
	if results == nil {
		results = []T{}
	}
	var next, previous *string
	if int64(p.Page*p.PageSize) < total {
		next = pageLink(c, p.Page+1)
	}
	if p.Page > 1 {
		previous = pageLink(c, p.Page-1)
	}
	return c.JSON(fiber.Map{
		"count":    total,
		"next":     next,
		"previous": previous,
		"results":  results,
	})
}

// outOfRange reports a page past the last one. The first page is always valid.
func outOfRange(c *fiber.Ctx, p Pagination, n int) bool {
	if p.Page > 1 && n == 0 {
		_ = models.RespondWithError(c, fiber.StatusNotFound,
			&models.AppError{Code: models.CodeNotFound, Message: "Invalid page."})
		return true
	}
	return false
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
// The error message is derived from the parameter name (e.g. "id" -> "Invalid ID",
// "post_id" -> "Invalid post ID").
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "post_id" -> "post ID", "commentId" -> "comment ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if prefix, ok := strings.CutSuffix(param, "_id"); ok {
		return strings.ReplaceAll(prefix, "_", " ") + " ID"
	}
	if prefix, ok := strings.CutSuffix(param, "Id"); ok {
		return strings.ToLower(strings.Join(splitCamel(prefix), " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}

// parseUintList reads a repeatable query parameter of ids. Comma separated
// values are accepted too.
func parseUintList(c *fiber.Ctx, key string) ([]uint, error) {
	var out []uint
	for _, raw := range c.Context().QueryArgs().PeekMulti(key) {
		for _, part := range strings.Split(string(raw), ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n, err := strconv.ParseUint(part, 10, 32)
			if err != nil || n == 0 {
				return nil, models.NewFieldValidationError(key, "Select a valid choice. "+part+" is not one of the available choices.")
			}
			out = append(out, uint(n))
		}
	}
	return out, nil
}

// mapServiceError maps an AppError code to its HTTP status.
func mapServiceError(err error) int {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	switch appErr.Code {
	case models.CodeValidation:
		return fiber.StatusBadRequest
	case models.CodeUnauthorized:
		return fiber.StatusUnauthorized
	case models.CodeForbidden:
		return fiber.StatusForbidden
	case models.CodeNotFound:
		return fiber.StatusNotFound
	case models.CodeConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// respondServiceError writes err with the status its code maps to. Errors
// that are not AppErrors are reported as internal so their text stays in the logs.
func (s *Server) respondServiceError(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		err = models.NewInternalError(err)
	}
	status := mapServiceError(err)
	if status == fiber.StatusInternalServerError {
		logInternalError(c, err)
	}
	return models.RespondWithError(c, status, err)
}

func logInternalError(c *fiber.Ctx, err error) {
	middleware.Logger.ErrorContext(c.UserContext(), "request failed with internal error",
		slog.String("method", c.Method()),
		slog.String("path", c.Path()),
		slog.String("error", err.Error()),
	)
}

// parseBody decodes the request body, answering malformed input with 400.
func parseBody(c *fiber.Ctx, dest any) error {
	if err := c.BodyParser(dest); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
		return errResponseWritten
	}
	return nil
}
