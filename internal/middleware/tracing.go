package middleware

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/SreeragSreekanth/Blogplatform/internal/observability"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TracingMiddleware opens a server span per request. Once routing has run the
// span is renamed to the route pattern and tagged with the blog resources the
// route addressed (post, comment, notification) and the authenticated user.
func TracingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := otel.GetTextMapPropagator().Extract(c.UserContext(), propagation.HeaderCarrier(c.GetReqHeaders()))

		ctx, span := observability.Tracer.Start(ctx, fmt.Sprintf("%s %s", c.Method(), c.Path()),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Method()),
				attribute.String("http.path", c.Path()),
				attribute.String("http.ip", c.IP()),
				attribute.String("http.user_agent", c.Get("User-Agent")),
			),
		)
		defer span.End()

		traceID := span.SpanContext().TraceID().String()
		c.Locals("traceID", traceID)
		c.Locals("spanID", span.SpanContext().SpanID().String())
		if requestID := c.Locals("requestid"); requestID != nil {
			span.SetAttributes(attribute.String("request.id", fmt.Sprintf("%v", requestID)))
		}
		c.Set("X-Trace-ID", traceID)
		c.SetUserContext(ctx)

		err := c.Next()

		// Route and params are only known after the router matched.
		if route := c.Route().Path; strings.HasPrefix(route, "/api/") {
			span.SetName(c.Method() + " " + route)
			span.SetAttributes(attribute.String("http.route", route))
			span.SetAttributes(blogAttributes(c, route)...)
		}

		status := c.Response().StatusCode()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else if status >= fiber.StatusInternalServerError {
			span.SetStatus(codes.Error, fmt.Sprintf("status %d", status))
		}

		if userID, ok := c.Locals("userID").(uint); ok {
			span.SetAttributes(attribute.Int64("user.id", int64(userID)))
		}
		return err
	}
}

// blogAttributes maps the route parameters to resource ids. Under
// /api/posts the post is :post_id on nested routes and :id otherwise,
// where a nested :id is the comment.
func blogAttributes(c *fiber.Ctx, route string) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	idAttr := func(key, raw string) {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			attrs = append(attrs, attribute.Int64(key, int64(id)))
		}
	}

	switch {
	case strings.HasPrefix(route, "/api/posts"):
		if postID := c.Params("post_id"); postID != "" {
			idAttr("blog.post_id", postID)
			if commentID := c.Params("id"); commentID != "" {
				idAttr("blog.comment_id", commentID)
			}
		} else if postID := c.Params("id"); postID != "" {
			idAttr("blog.post_id", postID)
		}
		if s := c.Params("slug"); s != "" {
			attrs = append(attrs, attribute.String("blog.post_slug", s))
		}
	case strings.HasPrefix(route, "/api/notifications"):
		if id := c.Params("id"); id != "" {
			idAttr("blog.notification_id", id)
		}
	case strings.HasPrefix(route, "/api/users"):
		if id := c.Params("id"); id != "" {
			idAttr("blog.profile_user_id", id)
		}
	}
	return attrs
}
