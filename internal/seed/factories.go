// Package seed provides helpers to create demo data for the blog database.
// These helpers are intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/SreeragSreekanth/Blogplatform/internal/models"
	"github.com/SreeragSreekanth/Blogplatform/internal/slug"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the login password of every seeded account.
const DefaultPassword = "Seeded$Passw0rd"

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand
	hash string
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a Factory bound to db. A non-zero opts.RandSeed makes
// generated content reproducible.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seedValue := opts.RandSeed
	if seedValue == 0 {
		seedValue = time.Now().UnixNano()
	}
	gofakeit.Seed(seedValue)
	return &Factory{
		db:   db,
		opts: opts,
		// #nosec G404: acceptable for seeding
		rng:    rand.New(rand.NewSource(seedValue)),
		nextID: 1000,
	}
}

func (f *Factory) passwordHash() string {
	if f.hash != "" {
		return f.hash
	}
	cost := bcrypt.DefaultCost
	if f.opts.SkipBcrypt {
		cost = bcrypt.MinCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), cost)
	if err != nil {
		panic(err)
	}
	f.hash = string(hashed)
	return f.hash
}

// createdAt spreads timestamps over the last MaxDays days.
func (f *Factory) createdAt() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.rng.Intn(maxDays))*24*time.Hour +
		time.Duration(f.rng.Intn(24))*time.Hour +
		time.Duration(f.rng.Intn(60))*time.Minute
	return time.Now().Add(-back)
}

func (f *Factory) persist(record any, assignID func(uint)) error {
	if f.opts.DryRun {
		f.nextID++
		assignID(f.nextID)
		return nil
	}
	return f.db.Create(record).Error
}

// CreateUser constructs and persists a sample user. The username is kept
// inside the registration rules: 3 to 30 characters of [a-z0-9_-].
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	base := strings.ToLower(strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, gofakeit.Username()))
	if len(base) > 24 {
		base = base[:24]
	}
	if len(base) < 3 {
		base = "reader"
	}

	user := &models.User{
		Username: fmt.Sprintf("%s%d", base, gofakeit.Number(100, 999)),
		Bio:      gofakeit.Sentence(10),
		Password: f.passwordHash(),
	}
	user.Email = user.Username + "@example.com"

	for _, override := range overrides {
		override(user)
	}
	if err := f.persist(user, func(id uint) { user.ID = id }); err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost constructs a post in Markdown without persisting it. The slug
// is left empty.
func (f *Factory) BuildPost(author *models.User, overrides ...func(*models.Post)) *models.Post {
	var body strings.Builder
	for i := 0; i < 1+f.rng.Intn(3); i++ {
		if i > 0 {
			fmt.Fprintf(&body, "## %s\n\n", strings.TrimSuffix(gofakeit.Sentence(3), "."))
		}
		body.WriteString(gofakeit.Paragraph(1, 4, 12, " "))
		body.WriteString("\n\n")
	}
	if f.rng.Float32() < 0.3 {
		fmt.Fprintf(&body, "- %s\n- %s\n", gofakeit.HipsterSentence(4), gofakeit.HipsterSentence(5))
	}

	post := &models.Post{
		Title:     strings.TrimSuffix(gofakeit.Sentence(5), "."),
		Content:   strings.TrimSpace(body.String()),
		UserID:    author.ID,
		CreatedAt: f.createdAt(),
	}
	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePost persists a post for author, resolving a unique slug against
// the posts table.
func (f *Factory) CreatePost(ctx context.Context, author *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	post := f.BuildPost(author, overrides...)
	if post.Slug == "" {
		s, err := slug.Assign(ctx, post.Title, f.slugTaken)
		if err != nil {
			return nil, err
		}
		post.Slug = s
	}
	if err := f.persist(post, func(id uint) { post.ID = id }); err != nil {
		return nil, err
	}
	return post, nil
}

func (f *Factory) slugTaken(ctx context.Context, candidate string) (bool, error) {
	if f.opts.DryRun {
		return false, nil
	}
	var n int64
	err := f.db.WithContext(ctx).Model(&models.Post{}).Where("slug = ?", candidate).Count(&n).Error
	return n > 0, err
}

// CreateComment persists a comment by user on post. A non-nil parent makes
// it a reply; parent must belong to the same post.
func (f *Factory) CreateComment(user *models.User, post *models.Post, parent *models.Comment) (*models.Comment, error) {
	comment := &models.Comment{
		PostID:    post.ID,
		UserID:    user.ID,
		Content:   gofakeit.Sentence(8 + f.rng.Intn(10)),
		CreatedAt: post.CreatedAt.Add(time.Duration(1+f.rng.Intn(72)) * time.Hour),
	}
	if parent != nil {
		if parent.PostID != post.ID {
			return nil, fmt.Errorf("parent comment %d belongs to post %d", parent.ID, parent.PostID)
		}
		comment.ParentID = &parent.ID
		comment.CreatedAt = parent.CreatedAt.Add(time.Duration(1+f.rng.Intn(12)) * time.Hour)
	}
	if err := f.persist(comment, func(id uint) { comment.ID = id }); err != nil {
		return nil, err
	}
	return comment, nil
}

// CreateLike persists a like from user on post.
func (f *Factory) CreateLike(user *models.User, post *models.Post) error {
	like := &models.Like{UserID: user.ID, PostID: post.ID}
	return f.persist(like, func(id uint) { like.ID = id })
}

// CreateBookmark persists a bookmark from user on post.
func (f *Factory) CreateBookmark(user *models.User, post *models.Post) error {
	bookmark := &models.Bookmark{UserID: user.ID, PostID: post.ID}
	return f.persist(bookmark, func(id uint) { bookmark.ID = id })
}

// CreateNotification persists an unread notification for recipient.
func (f *Factory) CreateNotification(recipient *models.User, message string) error {
	n := &models.Notification{UserID: recipient.ID, Message: message}
	if f.opts.DryRun {
		log.Printf("[dry-run] notify user=%d: %s", recipient.ID, message)
	}
	return f.persist(n, func(id uint) { n.ID = id })
}
