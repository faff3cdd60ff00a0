// Package bootstrap wires the process-wide runtime shared by the binaries.
package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SreeragSreekanth/Blogplatform/internal/cache"
	"github.com/SreeragSreekanth/Blogplatform/internal/config"
	"github.com/SreeragSreekanth/Blogplatform/internal/database"
	"github.com/SreeragSreekanth/Blogplatform/internal/middleware"
	"github.com/SreeragSreekanth/Blogplatform/internal/models"
	"github.com/SreeragSreekanth/Blogplatform/internal/seed"
	"github.com/SreeragSreekanth/Blogplatform/internal/validation"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedTaxonomy upserts the built-in categories and tags.
	SeedTaxonomy bool
}

// InitRuntime connects to the database and Redis, bootstraps the development
// root admin and optionally seeds the built-in taxonomy. The Redis client is
// nil when Redis is unreachable.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := EnsureDevRootAdmin(cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development root admin: %w", err)
	}

	if opts.SeedTaxonomy {
		if _, _, err := seed.Taxonomy(db, seed.DefaultTaxonomy()); err != nil {
			return nil, nil, fmt.Errorf("failed to seed taxonomy: %w", err)
		}
	}

	return db, r, nil
}

// EnsureDevRootAdmin creates or promotes the configured root account when
// running in development with DEV_BOOTSTRAP_ROOT set. Elsewhere it is a no-op.
func EnsureDevRootAdmin(cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapRoot {
		return nil
	}

	username := strings.TrimSpace(cfg.DevRootUsername)
	if username == "" {
		username = "blog_root"
	}
	email := strings.TrimSpace(strings.ToLower(cfg.DevRootEmail))
	if email == "" {
		email = "root@blog.local"
	}
	if cfg.DevRootPassword == "" {
		return fmt.Errorf("DEV_ROOT_PASSWORD must be set when DEV_BOOTSTRAP_ROOT is enabled")
	}
	if err := validation.ValidatePassword(cfg.DevRootPassword); err != nil {
		return fmt.Errorf("DEV_ROOT_PASSWORD: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(cfg.DevRootPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash root password: %w", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		var root models.User
		findErr := tx.Where("username = ?", username).First(&root).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			root = models.User{
				Username: username,
				Email:    email,
				Password: string(hashedPassword),
				IsAdmin:  true,
			}
			return tx.Create(&root).Error
		case findErr != nil:
			return findErr
		case root.IsAdmin:
			return nil
		default:
			return tx.Model(&root).Update("is_admin", true).Error
		}
	})
	if err != nil {
		return err
	}

	middleware.Logger.Info("development root admin ensured", slog.String("username", username))
	return nil
}
