package models

import (
	"time"
)

// Post is a blog entry. Slug is assigned once at creation and never changes.
type Post struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Title      string    `gorm:"size:200;not null" json:"title"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	Slug       string    `gorm:"size:200;uniqueIndex;not null" json:"slug"`
	Image      string    `json:"image"`
	UserID     uint      `gorm:"not null;index" json:"author_id"`
	User       *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	CategoryID *uint     `gorm:"index" json:"-"`
	Category   *Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"category"`
	Tags       []Tag     `gorm:"many2many:post_tags;constraint:OnDelete:CASCADE" json:"tags"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Author is the author's username, selected alongside the row.
	Author        string `gorm:"->;-:migration" json:"author"`
	LikesCount    int    `gorm:"->;-:migration" json:"likes_count"`
	CommentsCount int    `gorm:"->;-:migration" json:"comments_count"`
	Liked         bool   `gorm:"->;-:migration" json:"liked"`
	Bookmarked    bool   `gorm:"->;-:migration" json:"bookmarked"`
	ContentHTML   string `gorm:"-" json:"content_html,omitempty"`
}

// Tag is free-form reference data attached to posts.
type Tag struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:50;uniqueIndex;not null" json:"name"`
}

// Category groups posts; a post belongs to at most one.
type Category struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:50;uniqueIndex;not null" json:"name"`
}

// PostPage is one page of a post listing.
type PostPage struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []*Post `json:"results"`
}
