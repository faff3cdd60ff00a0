package middleware

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/SreeragSreekanth/Blogplatform/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := observability.Tracer
	observability.Tracer = provider.Tracer("blog-test")
	t.Cleanup(func() {
		observability.Tracer = prev
		_ = provider.Shutdown(context.Background())
	})
	return recorder
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value, len(span.Attributes()))
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func tracedApp() *fiber.App {
	app := fiber.New()
	app.Use(TracingMiddleware())
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }
	withUser := func(c *fiber.Ctx) error {
		c.Locals("userID", uint(7))
		return c.Next()
	}

	api := app.Group("/api")
	api.Get("/posts/slug/:slug", ok)
	api.Get("/posts/:id", ok)
	api.Get("/posts/:post_id/comments/:id", withUser, ok)
	api.Post("/notifications/:id/read", withUser, ok)
	api.Get("/broken", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusInternalServerError) })
	return app
}

func TestTracingMiddleware_BlogAttributes(t *testing.T) {
	recorder := recordSpans(t)
	app := tracedApp()

	tests := []struct {
		method   string
		path     string
		spanName string
		want     map[attribute.Key]attribute.Value
		absent   []attribute.Key
	}{
		{
			method:   fiber.MethodGet,
			path:     "/api/posts/42",
			spanName: "GET /api/posts/:id",
			want: map[attribute.Key]attribute.Value{
				"blog.post_id": attribute.Int64Value(42),
				"http.route":   attribute.StringValue("/api/posts/:id"),
			},
			absent: []attribute.Key{"blog.comment_id", "user.id"},
		},
		{
			method:   fiber.MethodGet,
			path:     "/api/posts/9/comments/3",
			spanName: "GET /api/posts/:post_id/comments/:id",
			want: map[attribute.Key]attribute.Value{
				"blog.post_id":    attribute.Int64Value(9),
				"blog.comment_id": attribute.Int64Value(3),
				"user.id":         attribute.Int64Value(7),
			},
		},
		{
			method:   fiber.MethodGet,
			path:     "/api/posts/slug/hello-world",
			spanName: "GET /api/posts/slug/:slug",
			want: map[attribute.Key]attribute.Value{
				"blog.post_slug": attribute.StringValue("hello-world"),
			},
			absent: []attribute.Key{"blog.post_id"},
		},
		{
			method:   fiber.MethodPost,
			path:     "/api/notifications/5/read",
			spanName: "POST /api/notifications/:id/read",
			want: map[attribute.Key]attribute.Value{
				"blog.notification_id": attribute.Int64Value(5),
			},
			absent: []attribute.Key{"blog.post_id"},
		},
		{
			method:   fiber.MethodGet,
			path:     "/api/posts/abc",
			spanName: "GET /api/posts/:id",
			absent:   []attribute.Key{"blog.post_id"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(tt.method, tt.path, nil))
			require.NoError(t, err)
			assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))

			ended := recorder.Ended()
			require.NotEmpty(t, ended)
			span := ended[len(ended)-1]
			assert.Equal(t, tt.spanName, span.Name())

			attrs := spanAttrs(span)
			for key, want := range tt.want {
				assert.Equal(t, want, attrs[key], string(key))
			}
			for _, key := range tt.absent {
				assert.NotContains(t, attrs, key)
			}
		})
	}
}

func TestTracingMiddleware_ServerErrorStatus(t *testing.T) {
	recorder := recordSpans(t)
	app := tracedApp()

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/api/broken", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, attribute.Int64Value(500), spanAttrs(ended[0])["http.status_code"])
}
