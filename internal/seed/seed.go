package seed

import (
	"context"
	"fmt"
	"log"

	"github.com/SreeragSreekanth/Blogplatform/internal/models"

	"gorm.io/gorm"
)

// Options configures a seeding run.
type Options struct {
	NumUsers        int
	NumPosts        int
	CommentsPerPost int
	ShouldClean     bool
	// SkipBcrypt hashes the shared password at minimum cost.
	SkipBcrypt bool
	DryRun     bool
	MaxDays    int
	RandSeed   int64
	Taxonomy   *TaxonomySet
}

// Summary counts what a run created.
type Summary struct {
	Users         int
	Posts         int
	Comments      int
	Likes         int
	Bookmarks     int
	Notifications int
}

// Seeder fills a database with a connected set of users, posts and
// engagement.
type Seeder struct {
	db      *gorm.DB
	opts    Options
	factory *Factory
}

// NewSeeder returns a Seeder writing through db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{db: db, opts: opts, factory: NewFactory(db, opts)}
}

// Seed populates the database with demo data.
func Seed(ctx context.Context, db *gorm.DB, opts Options) (*Summary, error) {
	return NewSeeder(db, opts).Run(ctx)
}

// Run seeds taxonomy, users, posts, threaded comments, likes and bookmarks.
// Every like and comment from someone other than the author leaves an
// unread notification, as the live service would.
func (s *Seeder) Run(ctx context.Context) (*Summary, error) {
	log.Printf("🌱 Seeding %d users and %d posts...", s.opts.NumUsers, s.opts.NumPosts)

	if s.opts.ShouldClean && !s.opts.DryRun {
		if err := Clean(s.db); err != nil {
			return nil, fmt.Errorf("clean: %w", err)
		}
	}

	set := s.opts.Taxonomy
	if set == nil {
		set = DefaultTaxonomy()
	}
	var (
		categories []models.Category
		tags       []models.Tag
	)
	if !s.opts.DryRun {
		var err error
		categories, tags, err = Taxonomy(s.db, set)
		if err != nil {
			return nil, err
		}
		log.Printf("✓ %d categories and %d tags available", len(categories), len(tags))
	}

	summary := &Summary{}
	users := make([]*models.User, 0, s.opts.NumUsers)
	for i := 0; i < s.opts.NumUsers; i++ {
		u, err := s.factory.CreateUser()
		if err != nil {
			log.Printf("Failed to create user: %v", err)
			continue
		}
		users = append(users, u)
	}
	summary.Users = len(users)
	log.Printf("✓ %d users created", summary.Users)
	if len(users) == 0 {
		return summary, nil
	}

	rng := s.factory.rng
	for i := 0; i < s.opts.NumPosts; i++ {
		author := users[rng.Intn(len(users))]
		post, err := s.factory.CreatePost(ctx, author, func(p *models.Post) {
			if len(categories) > 0 && rng.Float32() < 0.8 {
				p.CategoryID = &categories[rng.Intn(len(categories))].ID
			}
			for _, idx := range rng.Perm(len(tags))[:min(len(tags), rng.Intn(4))] {
				p.Tags = append(p.Tags, tags[idx])
			}
		})
		if err != nil {
			return summary, fmt.Errorf("create post: %w", err)
		}
		summary.Posts++

		if err := s.engage(post, author, users, summary); err != nil {
			return summary, err
		}
	}

	log.Printf("✓ %d posts, %d comments, %d likes, %d bookmarks, %d notifications",
		summary.Posts, summary.Comments, summary.Likes, summary.Bookmarks, summary.Notifications)
	log.Println("🎉 Database seeding completed successfully!")
	return summary, nil
}

func (s *Seeder) engage(post *models.Post, author *models.User, users []*models.User, summary *Summary) error {
	rng := s.factory.rng

	var thread []*models.Comment
	for c := 0; c < s.opts.CommentsPerPost; c++ {
		commenter := users[rng.Intn(len(users))]
		var parent *models.Comment
		if len(thread) > 0 && rng.Float32() < 0.5 {
			parent = thread[rng.Intn(len(thread))]
		}
		comment, err := s.factory.CreateComment(commenter, post, parent)
		if err != nil {
			return fmt.Errorf("create comment: %w", err)
		}
		thread = append(thread, comment)
		summary.Comments++
		if commenter.ID != author.ID {
			if err := s.factory.CreateNotification(author,
				fmt.Sprintf("Your post '%s' received a new comment from %s.", post.Title, commenter.Username)); err != nil {
				return err
			}
			summary.Notifications++
		}
	}

	for _, idx := range rng.Perm(len(users))[:rng.Intn(len(users)+1)] {
		fan := users[idx]
		if err := s.factory.CreateLike(fan, post); err != nil {
			return fmt.Errorf("create like: %w", err)
		}
		summary.Likes++
		if fan.ID != author.ID {
			if err := s.factory.CreateNotification(author,
				fmt.Sprintf("Your post '%s' was liked by %s.", post.Title, fan.Username)); err != nil {
				return err
			}
			summary.Notifications++
		}
		if rng.Float32() < 0.3 {
			if err := s.factory.CreateBookmark(fan, post); err != nil {
				return fmt.Errorf("create bookmark: %w", err)
			}
			summary.Bookmarks++
		}
	}
	return nil
}

// Clean removes every row from the blog tables, children first.
func Clean(db *gorm.DB) error {
	log.Println("🗑️  Clearing existing data...")
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM post_tags").Error; err != nil {
			return err
		}
		for _, model := range []any{
			&models.Notification{},
			&models.Bookmark{},
			&models.Like{},
			&models.Comment{},
			&models.Post{},
			&models.Tag{},
			&models.Category{},
			&models.User{},
		} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
