package repository

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/SreeragSreekanth/Blogplatform/internal/database"
	"github.com/SreeragSreekanth/Blogplatform/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupMockDB returns a postgres-dialect GORM handle backed by sqlmock.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	return gormDB, mock
}

// setupSQLiteDB returns a migrated file-backed sqlite database with foreign keys enforced.
func setupSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "repo.db") + "?_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com", Password: "hash"}
	require.NoError(t, db.Create(u).Error)
	return u
}

var seedCounter int

func seedPost(t *testing.T, db *gorm.DB, author *models.User, title string, createdAt time.Time) *models.Post {
	t.Helper()
	seedCounter++
	p := &models.Post{
		Title:     title,
		Content:   "content of " + title,
		Slug:      fmt.Sprintf("seed-%d", seedCounter),
		UserID:    author.ID,
		CreatedAt: createdAt,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}
