package seed

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/SreeragSreekanth/Blogplatform/internal/database"
	"github.com/SreeragSreekanth/Blogplatform/internal/models"
	"github.com/SreeragSreekanth/Blogplatform/internal/validation"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "seed.db") + "?_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func count(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestDefaultTaxonomy(t *testing.T) {
	set := DefaultTaxonomy()
	if len(set.Categories) == 0 || len(set.Tags) == 0 {
		t.Fatalf("expected built-in categories and tags, got %+v", set)
	}
	for _, name := range append(set.Categories, set.Tags...) {
		if err := validation.ValidateLength("name", name, 50); err != nil {
			t.Fatalf("taxonomy name %q too long: %v", name, err)
		}
	}
}

func TestParseTaxonomy_Invalid(t *testing.T) {
	if _, err := ParseTaxonomy([]byte("tags: [unterminated")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestTaxonomy_Idempotent(t *testing.T) {
	db := openDB(t)
	set := &TaxonomySet{Categories: []string{"Engineering", "Design"}, Tags: []string{"golang", "redis", "testing"}}

	for i := 0; i < 2; i++ {
		categories, tags, err := Taxonomy(db, set)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if len(categories) != 2 || len(tags) != 3 {
			t.Fatalf("run %d: got %d categories and %d tags", i, len(categories), len(tags))
		}
		if categories[0].Name != "Design" {
			t.Fatalf("expected categories sorted by name, got %q first", categories[0].Name)
		}
	}

	if n := count(t, db, &models.Tag{}); n != 3 {
		t.Fatalf("expected 3 tags, got %d", n)
	}
}

func TestSeeder_Run(t *testing.T) {
	db := openDB(t)
	summary, err := Seed(context.Background(), db, Options{
		NumUsers:        5,
		NumPosts:        8,
		CommentsPerPost: 4,
		SkipBcrypt:      true,
		MaxDays:         10,
		RandSeed:        42,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	if got := count(t, db, &models.Post{}); got != int64(summary.Posts) || got != 8 {
		t.Fatalf("expected 8 posts, summary %d, table %d", summary.Posts, got)
	}
	if got := count(t, db, &models.Comment{}); got != int64(summary.Comments) || got != 32 {
		t.Fatalf("expected 32 comments, summary %d, table %d", summary.Comments, got)
	}
	if got := count(t, db, &models.Like{}); got != int64(summary.Likes) {
		t.Fatalf("likes: summary %d, table %d", summary.Likes, got)
	}
	if got := count(t, db, &models.Notification{}); got != int64(summary.Notifications) {
		t.Fatalf("notifications: summary %d, table %d", summary.Notifications, got)
	}

	var users []models.User
	if err := db.Find(&users).Error; err != nil {
		t.Fatal(err)
	}
	for _, u := range users {
		if err := validation.ValidateUsername(u.Username); err != nil {
			t.Fatalf("seeded username %q breaks the registration rules: %v", u.Username, err)
		}
	}

	// Replies stay on their parent's post.
	var crossPost int64
	if err := db.Table("comments AS c").
		Joins("JOIN comments AS p ON p.id = c.parent_id").
		Where("p.post_id <> c.post_id").
		Count(&crossPost).Error; err != nil {
		t.Fatal(err)
	}
	if crossPost != 0 {
		t.Fatalf("found %d replies attached to another post's comment", crossPost)
	}

	var distinctSlugs int64
	if err := db.Model(&models.Post{}).Distinct("slug").Count(&distinctSlugs).Error; err != nil {
		t.Fatal(err)
	}
	if distinctSlugs != 8 {
		t.Fatalf("expected 8 distinct slugs, got %d", distinctSlugs)
	}
}

func TestSeeder_DryRunWritesNothing(t *testing.T) {
	db := openDB(t)
	summary, err := Seed(context.Background(), db, Options{
		NumUsers: 3, NumPosts: 4, CommentsPerPost: 2, DryRun: true, SkipBcrypt: true, RandSeed: 7,
	})
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if summary.Posts != 4 || summary.Comments != 8 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	for _, model := range []any{&models.User{}, &models.Post{}, &models.Comment{}, &models.Tag{}} {
		if n := count(t, db, model); n != 0 {
			t.Fatalf("dry run wrote %d rows of %T", n, model)
		}
	}
}

func TestClean(t *testing.T) {
	db := openDB(t)
	if _, err := Seed(context.Background(), db, Options{
		NumUsers: 3, NumPosts: 3, CommentsPerPost: 2, SkipBcrypt: true, RandSeed: 3,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := Clean(db); err != nil {
		t.Fatalf("clean: %v", err)
	}
	for _, model := range []any{&models.User{}, &models.Post{}, &models.Comment{}, &models.Like{}, &models.Category{}} {
		if n := count(t, db, model); n != 0 {
			t.Fatalf("expected empty %T table, got %d rows", model, n)
		}
	}
}

func TestCreateComment_RejectsParentFromOtherPost(t *testing.T) {
	f := NewFactory(nil, Options{DryRun: true, RandSeed: 1})
	user := &models.User{ID: 1}
	first := &models.Post{ID: 10}
	second := &models.Post{ID: 11}

	parent, err := f.CreateComment(user, first, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.CreateComment(user, second, parent); err == nil {
		t.Fatal("expected an error for a parent on another post")
	}
}
