// Command admin grants and revokes blog admin rights.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/SreeragSreekanth/Blogplatform/internal/cache"
	"github.com/SreeragSreekanth/Blogplatform/internal/config"
	"github.com/SreeragSreekanth/Blogplatform/internal/database"
	"github.com/SreeragSreekanth/Blogplatform/internal/models"

	"gorm.io/gorm"
)

const usage = `Usage:
  admin promote <user_id|username>   Grant admin rights
  admin demote <user_id|username>    Revoke admin rights
  admin list                         List all admins`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	// Cached profiles carry is_admin; a missing Redis just means nothing to evict.
	cache.InitRedis(cfg.RedisURL)

	switch command := os.Args[1]; command {
	case "promote", "demote":
		if len(os.Args) < 3 {
			fmt.Println(usage)
			os.Exit(1)
		}
		if err := setAdmin(db, os.Args[2], command == "promote"); err != nil {
			log.Fatal(err)
		}
	case "list", "list-admins":
		if err := listAdmins(db); err != nil {
			log.Fatal(err)
		}
	default:
		fmt.Printf("Unknown command: %s\n\n%s\n", command, usage)
		os.Exit(1)
	}
}

// findUser resolves ref as a numeric id first, then as a username.
func findUser(db *gorm.DB, ref string) (*models.User, error) {
	var user models.User
	query := db.Where("username = ?", ref)
	if id, err := strconv.ParseUint(ref, 10, 64); err == nil {
		query = db.Where("id = ?", id)
	}
	if err := query.First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %q not found", ref)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &user, nil
}

func setAdmin(db *gorm.DB, ref string, admin bool) error {
	user, err := findUser(db, ref)
	if err != nil {
		return err
	}
	if user.IsAdmin == admin {
		fmt.Printf("User %s (ID: %d) already has is_admin=%t\n", user.Username, user.ID, admin)
		return nil
	}

	if err := db.Model(user).Update("is_admin", admin).Error; err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	cache.InvalidateUser(context.Background(), user.ID)

	verb := "promoted"
	if !admin {
		verb = "demoted"
	}
	fmt.Printf("✅ %s %s (ID: %d)\n", verb, user.Username, user.ID)
	return nil
}

func listAdmins(db *gorm.DB) error {
	var admins []models.User
	if err := db.Where("is_admin = ?", true).Order("id ASC").Find(&admins).Error; err != nil {
		return fmt.Errorf("fetch admins: %w", err)
	}
	if len(admins) == 0 {
		fmt.Println("No admins found")
		return nil
	}
	for _, admin := range admins {
		fmt.Printf("ID: %d | Username: %s | Email: %s\n", admin.ID, admin.Username, admin.Email)
	}
	return nil
}
