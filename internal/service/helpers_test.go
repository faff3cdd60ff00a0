package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/SreeragSreekanth/Blogplatform/internal/database"
	"github.com/SreeragSreekanth/Blogplatform/internal/featureflags"
	"github.com/SreeragSreekanth/Blogplatform/internal/models"
	"github.com/SreeragSreekanth/Blogplatform/internal/notifications"
	"github.com/SreeragSreekanth/Blogplatform/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeValidation)
}

// assertUnauthorizedError asserts that err is an AppError with code UNAUTHORIZED.
func assertUnauthorizedError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeUnauthorized)
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code, appErr.Message)
}

// fieldError returns the message attached to field on a validation AppError.
func fieldError(t *testing.T, err error, field string) string {
	t.Helper()
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	return appErr.Fields[field]
}

// env wires every service over one sqlite database, the way the server does.
type env struct {
	db            *gorm.DB
	users         repository.UserRepository
	posts         repository.PostRepository
	taxonomy      repository.TaxonomyRepository
	comments      repository.CommentRepository
	engagement    repository.EngagementRepository
	notifications repository.NotificationRepository

	userSvc         *UserService
	postSvc         *PostService
	commentSvc      *CommentService
	engagementSvc   *EngagementService
	notificationSvc *NotificationService
	taxonomySvc     *TaxonomyService
	publisher       *recordingPublisher
}

func newEnv(t *testing.T, flags string) *env {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "service.db") + "?_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	e := &env{
		db:            db,
		users:         repository.NewUserRepository(db),
		posts:         repository.NewPostRepository(db),
		taxonomy:      repository.NewTaxonomyRepository(db),
		comments:      repository.NewCommentRepository(db),
		engagement:    repository.NewEngagementRepository(db),
		notifications: repository.NewNotificationRepository(db),
		publisher:     &recordingPublisher{},
	}
	ff := featureflags.NewManager(flags)
	renderer := NewRenderer()

	e.userSvc = NewUserService(e.users)
	e.notificationSvc = NewNotificationService(e.notifications, e.publisher, ff)
	e.postSvc = NewPostService(e.posts, e.taxonomy, e.userSvc.IsAdmin, renderer, ff)
	e.commentSvc = NewCommentService(e.comments, e.posts, e.users, e.notificationSvc, e.userSvc.IsAdmin, renderer, ff)
	e.engagementSvc = NewEngagementService(e.engagement, e.posts, e.users, e.notificationSvc, ff)
	e.taxonomySvc = NewTaxonomyService(e.taxonomy, e.userSvc.IsAdmin)
	return e
}

func (e *env) user(t *testing.T, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com", Password: "hash"}
	require.NoError(t, e.db.Create(u).Error)
	return u
}

func (e *env) admin(t *testing.T, username string) *models.User {
	t.Helper()
	u := e.user(t, username)
	require.NoError(t, e.users.SetAdmin(context.Background(), username, true))
	return u
}

func (e *env) post(t *testing.T, author *models.User, title string) *models.Post {
	t.Helper()
	p, err := e.postSvc.CreatePost(context.Background(), CreatePostInput{
		UserID:  author.ID,
		Title:   title,
		Content: "Body of " + title,
	})
	require.NoError(t, err)
	return p
}

func (e *env) inbox(t *testing.T, u *models.User) []models.Notification {
	t.Helper()
	items, _, err := e.notificationSvc.List(context.Background(), u.ID, 50, 0)
	require.NoError(t, err)
	return items
}

type publishedEvent struct {
	userID    uint
	eventType string
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	// err, when set, is returned after the event is recorded.
	err error
}

func (p *recordingPublisher) PublishUser(_ context.Context, userID uint, event notifications.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{userID: userID, eventType: event.Type})
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.eventType)
	}
	return out
}

func uintPtr(v uint) *uint    { return &v }
func strPtr(v string) *string { return &v }
