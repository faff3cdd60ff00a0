// Command seed fills the database with demo users, posts and engagement.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/SreeragSreekanth/Blogplatform/internal/config"
	"github.com/SreeragSreekanth/Blogplatform/internal/database"
	"github.com/SreeragSreekanth/Blogplatform/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	numPosts := flag.Int("posts", 60, "Number of posts to create")
	comments := flag.Int("comments", 4, "Comments per post")
	shouldClean := flag.Bool("clean", false, "Delete existing blog data before seeding")
	taxonomyFile := flag.String("taxonomy", "", "YAML file with categories and tags (defaults to the built-in set)")
	dryRun := flag.Bool("dry-run", false, "Generate data without writing to the database")
	fast := flag.Bool("fast", false, "Hash the shared password at minimum bcrypt cost")
	randSeed := flag.Int64("seed", 0, "Random seed for reproducible content")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *shouldClean && cfg.Env == "production" {
		log.Fatal("❌ Refusing to clean a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	opts := seed.Options{
		NumUsers:        *numUsers,
		NumPosts:        *numPosts,
		CommentsPerPost: *comments,
		ShouldClean:     *shouldClean,
		SkipBcrypt:      *fast,
		DryRun:          *dryRun,
		RandSeed:        *randSeed,
	}
	if *taxonomyFile != "" {
		raw, err := os.ReadFile(*taxonomyFile)
		if err != nil {
			log.Fatalf("Failed to read taxonomy: %v", err)
		}
		if opts.Taxonomy, err = seed.ParseTaxonomy(raw); err != nil {
			log.Fatalf("❌ %v", err)
		}
	}

	if _, err := seed.Seed(context.Background(), db, opts); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}
	log.Printf("📧 All seeded users have the password: %s", seed.DefaultPassword)
}
