// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/SreeragSreekanth/Blogplatform/docs" // swagger docs
	"github.com/SreeragSreekanth/Blogplatform/internal/bootstrap"
	"github.com/SreeragSreekanth/Blogplatform/internal/cache"
	"github.com/SreeragSreekanth/Blogplatform/internal/config"
	"github.com/SreeragSreekanth/Blogplatform/internal/database"
	"github.com/SreeragSreekanth/Blogplatform/internal/featureflags"
	"github.com/SreeragSreekanth/Blogplatform/internal/mail"
	"github.com/SreeragSreekanth/Blogplatform/internal/middleware"
	"github.com/SreeragSreekanth/Blogplatform/internal/models"
	"github.com/SreeragSreekanth/Blogplatform/internal/notifications"
	"github.com/SreeragSreekanth/Blogplatform/internal/observability"
	"github.com/SreeragSreekanth/Blogplatform/internal/repository"
	"github.com/SreeragSreekanth/Blogplatform/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	notifier     *notifications.Notifier
	hub          *notifications.Hub
	realtime     *realtimePublisher
	featureFlags *featureflags.Manager

	authService         *service.AuthService
	userService         *service.UserService
	postService         *service.PostService
	commentService      *service.CommentService
	engagementService   *service.EngagementService
	notificationService *service.NotificationService
	taxonomyService     *service.TaxonomyService
	imageService        *service.ImageService
}

// NewServer connects to the database and Redis through the shared runtime
// and builds a server on top of them. A nil Redis client means Redis is
// unreachable; caching and pub/sub degrade to no-ops.
func NewServer(cfg *config.Config) (*Server, error) {
	db, rdb, err := bootstrap.InitRuntime(cfg, bootstrap.Options{SeedTaxonomy: cfg.Env == "development"})
	if err != nil {
		return nil, err
	}
	if err := observability.NewDatabaseMetrics(db).Register(); err != nil {
		return nil, fmt.Errorf("register database metrics: %w", err)
	}
	return NewServerWithDeps(cfg, db, rdb, nil)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// A nil mailer selects SMTP or the log sender from cfg.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, mailer mail.Sender) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, fmt.Errorf("server requires a config and a database")
	}
	if mailer == nil {
		mailer = mail.NewSender(cfg)
	}

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	engagementRepo := repository.NewEngagementRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	taxonomyRepo := repository.NewTaxonomyRepository(db)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("blog-api"),
		notifier:       notifications.NewNotifier(redisClient),
		hub:            notifications.NewHub(),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
	}

	renderer := service.NewRenderer()
	s.userService = service.NewUserService(userRepo)
	isAdmin := s.userService.IsAdmin

	s.authService = service.NewAuthService(userRepo, cache.TokenBlacklist{}, mailer, service.AuthConfig{
		Secret:      cfg.JWTSecret,
		AccessTTL:   time.Duration(cfg.AccessTokenTTLMinutes) * time.Minute,
		RefreshTTL:  time.Duration(cfg.RefreshTokenTTLHours) * time.Hour,
		ResetTTL:    time.Duration(cfg.ResetTokenTTLMinutes) * time.Minute,
		FrontendURL: cfg.FrontendURL,
	})
	s.realtime = &realtimePublisher{notifier: s.notifier, hub: s.hub}
	s.notificationService = service.NewNotificationService(notificationRepo, s.realtime, s.featureFlags)
	s.postService = service.NewPostService(postRepo, taxonomyRepo, isAdmin, renderer, s.featureFlags)
	s.commentService = service.NewCommentService(commentRepo, postRepo, userRepo, s.notificationService, isAdmin, renderer, s.featureFlags)
	s.engagementService = service.NewEngagementService(engagementRepo, postRepo, userRepo, s.notificationService, s.featureFlags)
	s.taxonomyService = service.NewTaxonomyService(taxonomyRepo, isAdmin)
	s.imageService = service.NewImageService(cfg)

	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())

	// Runs after tracing so the trace id reaches the request context.
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New(helmet.Config{
		// Uploaded images are embedded by the frontend on another origin.
		CrossOriginResourcePolicy: "cross-origin",
	}))

	app.Use(middleware.StructuredLogger())

	// CORS runs before anything that can short-circuit so error responses keep their headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || s.config.Env == "test"
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	app.Static(service.MediaURLPrefix, s.imageService.MediaDir(), fiber.Static{
		MaxAge: 3600,
	})

	api := app.Group("/api")
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Blog API Metrics Dashboard",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	// Accounts and tokens
	api.Post("/register", middleware.RateLimit(s.redis, 3, 10*time.Minute, "register"), s.Register)
	api.Post("/token", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.ObtainToken)
	api.Post("/token/refresh", s.RefreshToken)
	api.Post("/logout", s.AuthRequired(), s.Logout)
	api.Post("/password-reset", middleware.RateLimit(s.redis, 5, 15*time.Minute, "password_reset"), s.RequestPasswordReset)
	api.Post("/password-reset-confirm", s.ConfirmPasswordReset)

	profile := api.Group("/profile", s.AuthRequired())
	profile.Get("/", s.GetMyProfile)
	profile.Put("/", s.UpdateMyProfile)
	profile.Patch("/", s.UpdateMyProfile)
	profile.Post("/picture", s.UploadProfilePicture)
	profile.Get("/bookmarked", s.GetBookmarkedPosts)
	profile.Get("/blogs", s.GetMyPosts)

	users := api.Group("/users", s.AuthRequired())
	users.Get("/", s.AdminRequired(), s.GetAllUsers)
	users.Get("/:id", s.GetUserProfile)

	// Posts. Static segments are registered before /:id.
	posts := api.Group("/posts")
	posts.Get("/", s.GetPosts)
	posts.Get("/slug/:slug", s.GetPostBySlug)
	posts.Post("/create", s.AuthRequired(),
		middleware.RateLimit(s.redis, 10, 5*time.Minute, "create_post"), s.CreatePost)
	posts.Get("/:id", s.GetPost)
	posts.Put("/:id/update", s.AuthRequired(), s.UpdatePost)
	posts.Patch("/:id/update", s.AuthRequired(), s.UpdatePost)
	posts.Delete("/:id/delete", s.AuthRequired(), s.DeletePost)
	posts.Post("/:id/image", s.AuthRequired(), s.UploadPostImage)

	// Comments
	posts.Get("/:post_id/comments", s.GetComments)
	posts.Post("/:post_id/comments", s.AuthRequired(),
		middleware.RateLimit(s.redis, 10, time.Minute, "create_comment"), s.CreateComment)
	posts.Get("/:post_id/comments/:id", s.GetComment)
	posts.Put("/:post_id/comments/:id", s.AuthRequired(), s.UpdateComment)
	posts.Patch("/:post_id/comments/:id", s.AuthRequired(), s.UpdateComment)
	posts.Delete("/:post_id/comments/:id", s.AuthRequired(), s.DeleteComment)

	// Likes and bookmarks
	posts.Post("/:post_id/like", s.AuthRequired(), s.LikePost)
	posts.Delete("/:post_id/unlike", s.AuthRequired(), s.UnlikePost)
	posts.Post("/:post_id/bookmark", s.AuthRequired(), s.BookmarkPost)
	posts.Delete("/:post_id/unbookmark", s.AuthRequired(), s.UnbookmarkPost)

	// Taxonomy
	api.Get("/categories", s.GetCategories)
	api.Post("/categories", s.AuthRequired(), s.CreateCategory)
	api.Get("/tags", s.GetTags)
	api.Post("/tags", s.AuthRequired(), s.CreateTag)

	notifs := api.Group("/notifications", s.AuthRequired())
	notifs.Get("/", s.GetNotifications)
	notifs.Get("/unread-count", s.GetUnreadCount)
	notifs.Post("/mark-all-read", s.MarkAllNotificationsRead)
	notifs.Post("/:id/read", s.MarkNotificationRead)

	// Browsers cannot set headers on a WebSocket upgrade, so the token travels in the query.
	api.Get("/ws/notifications", s.WebSocketAuthRequired(), s.WebsocketHandler())

	admin := api.Group("/admin", s.AuthRequired(), s.AdminRequired())
	admin.Get("/feature-flags", s.GetFeatureFlags)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":            "up",
		"websocket_clients": s.hub.ConnectionCount(),
		"time":              time.Now(),
	})
}

// ReadinessCheck pings the database and Redis. Redis is optional: without it
// the API still serves, so the probe reports it as unavailable but stays ready.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AuthRequired validates the bearer access token and stores the user id in locals.
func (s *Server) AuthRequired() fiber.Handler {
	return s.authenticate(false)
}

// WebSocketAuthRequired is AuthRequired that also accepts ?token=.
func (s *Server) WebSocketAuthRequired() fiber.Handler {
	return s.authenticate(true)
}

func (s *Server) authenticate(allowQuery bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := middleware.BearerToken(c, allowQuery)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authentication credentials were not provided."))
		}

		userID, claims, err := s.authService.Authenticate(c.UserContext(), token)
		if err != nil {
			return s.respondServiceError(c, err)
		}

		c.Locals("userID", userID)
		c.Locals("claims", claims)
		// Sync to UserContext for logging and downstream services
		ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, userID)
		c.SetUserContext(ctx)

		return c.Next()
	}
}

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after AuthRequired so that userID is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(uint)

		admin, err := s.userService.IsAdmin(c.UserContext(), userID)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		}
		if !admin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

// optionalUserID reads a bearer token when present without enforcing it.
// Public reads use it to fill the viewer's liked and bookmarked flags.
func (s *Server) optionalUserID(c *fiber.Ctx) uint {
	token, err := middleware.BearerToken(c, false)
	if err != nil {
		return 0
	}
	userID, _, err := s.authService.Authenticate(c.UserContext(), token)
	if err != nil {
		return 0
	}
	return userID
}

// App builds the Fiber application with middleware and routes.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:       "Blog API",
		StrictRouting: false,
		BodyLimit:     int(s.imageService.MaxUploadBytes()) + 1<<20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return models.RespondWithError(c, fe.Code, &models.AppError{
					Code:    codeForStatus(fe.Code),
					Message: fe.Message,
				})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled request error",
				slog.String("path", c.Path()),
				slog.String("error", err.Error()),
			)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start wires the hub to Redis, when available, and serves until Shutdown.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.App()

	if s.notifier.Enabled() {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start hub wiring",
					slog.String("hub", s.hub.Name()),
					slog.String("error", err.Error()),
				)
			}
		}()
	} else {
		middleware.Logger.Warn("redis unavailable, notifications are delivered to local sockets only")
	}

	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down hub",
			slog.String("hub", s.hub.Name()),
			slog.String("error", err.Error()),
		)
	}

	if s.db == database.DB {
		if err := database.Close(); err != nil {
			middleware.Logger.Error("error closing database", slog.String("error", err.Error()))
		}
	} else if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", err.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge, fiber.StatusUnprocessableEntity:
		return models.CodeValidation
	case fiber.StatusUnauthorized:
		return models.CodeUnauthorized
	case fiber.StatusForbidden:
		return models.CodeForbidden
	case fiber.StatusNotFound, fiber.StatusMethodNotAllowed:
		return models.CodeNotFound
	case fiber.StatusConflict:
		return models.CodeConflict
	}
	if status >= fiber.StatusInternalServerError {
		return models.CodeInternal
	}
	return ""
}
