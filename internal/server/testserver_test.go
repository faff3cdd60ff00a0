package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SreeragSreekanth/Blogplatform/internal/cache"
	"github.com/SreeragSreekanth/Blogplatform/internal/config"
	"github.com/SreeragSreekanth/Blogplatform/internal/database"
	"github.com/SreeragSreekanth/Blogplatform/internal/middleware"
	"github.com/SreeragSreekanth/Blogplatform/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testSecret   = "test-secret-key-12345678901234567890123456789012"
	testPassword = "Sup3r$ecret!"
)

// MockMailer records password reset mails.
type MockMailer struct {
	mock.Mock
	mu    sync.Mutex
	links []string
}

func (m *MockMailer) SendPasswordReset(ctx context.Context, to, username, link string) error {
	m.mu.Lock()
	m.links = append(m.links, link)
	m.mu.Unlock()
	args := m.Called(ctx, to, username, link)
	return args.Error(0)
}

func (m *MockMailer) lastLink() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.links) == 0 {
		return ""
	}
	return m.links[len(m.links)-1]
}

type testServer struct {
	srv    *Server
	app    *fiber.App
	db     *gorm.DB
	redis  *miniredis.Miniredis
	mailer *MockMailer
	cfg    *config.Config
}

// newTestServer builds the full application over a temporary sqlite file and
// an in-memory Redis. configure may adjust the config before wiring.
func newTestServer(t *testing.T, configure ...func(*config.Config)) *testServer {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	previous := cache.GetClient()
	cache.SetClient(rdb)
	t.Cleanup(func() {
		cache.SetClient(previous)
		_ = rdb.Close()
	})

	dsn := filepath.Join(t.TempDir(), "server.db") + "?_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	cfg := &config.Config{
		JWTSecret:             testSecret,
		Env:                   "test",
		Port:                  "0",
		AllowedOrigins:        "http://localhost:5173",
		FrontendURL:           "http://localhost:5173",
		AccessTokenTTLMinutes: 60,
		RefreshTokenTTLHours:  24,
		ResetTokenTTLMinutes:  60,
		MediaDir:              t.TempDir(),
		ImageMaxUploadSizeMB:  2,
	}
	for _, fn := range configure {
		fn(cfg)
	}

	mailer := &MockMailer{}
	srv, err := NewServerWithDeps(cfg, db, rdb, mailer)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = srv.hub.Shutdown(context.Background())
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return &testServer{
		srv:    srv,
		app:    srv.App(),
		db:     db,
		redis:  mr,
		mailer: mailer,
		cfg:    cfg,
	}
}

// user inserts an account whose password is testPassword.
func (ts *testServer) user(t *testing.T, username string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{Username: username, Email: username + "@example.com", Password: string(hash)}
	require.NoError(t, ts.db.Create(u).Error)
	return u
}

func (ts *testServer) admin(t *testing.T, username string) *models.User {
	t.Helper()
	u := ts.user(t, username)
	require.NoError(t, ts.db.Model(u).Update("is_admin", true).Error)
	u.IsAdmin = true
	return u
}

// token mints an access token for u without going through login.
func (ts *testServer) token(t *testing.T, u *models.User) string {
	t.Helper()
	tok, _, err := middleware.SignToken(ts.cfg.JWTSecret, "", middleware.TokenTypeAccess, u.ID, time.Hour)
	require.NoError(t, err)
	return tok
}

// do sends a JSON request. body may be nil, a string or any value to marshal.
func (ts *testServer) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	resp, err := ts.app.Test(jsonRequest(t, method, path, token, body), -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func jsonRequest(t *testing.T, method, path, token string, body any) *http.Request {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

// createPost goes through the API so slugs and tags follow the real path.
func (ts *testServer) createPost(t *testing.T, token, title string) map[string]any {
	t.Helper()
	resp := ts.do(t, http.MethodPost, "/api/posts/create/", token, map[string]any{
		"title":   title,
		"content": "Body of " + title,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decodeMap(t, resp)
}

func decodeMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func decodeList(t *testing.T, resp *http.Response) []map[string]any {
	t.Helper()
	var out []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// idOf reads a JSON number id as the uint the routes expect.
func idOf(m map[string]any) uint {
	return uint(m["id"].(float64))
}
