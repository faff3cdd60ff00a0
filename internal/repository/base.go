// Package repository implements GORM-backed persistence for users, posts, comments,
// engagement and notifications.
package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/SreeragSreekanth/Blogplatform/internal/database"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrDuplicate wraps unique-constraint violations so services can react to them.
var ErrDuplicate = errors.New("duplicate record")

const pgUniqueViolation = "23505"

func readDB(primary *gorm.DB) *gorm.DB {
	if db := database.GetReadDB(); db != nil {
		return db
	}
	return primary
}

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, pgUniqueViolation)
}

func wrapWriteError(op string, err error) error {
	if isUniqueConstraintError(err) {
		return fmt.Errorf("%s: %w: %v", op, ErrDuplicate, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// clampPage bounds limit to [1, max] and offset to >= 0.
func clampPage(limit, offset, max int) (int, int) {
	if limit <= 0 {
		limit = 1
	}
	if limit > max {
		limit = max
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
