package models

import (
	"time"
)

// Comment belongs to a post and optionally replies to another comment on the same post.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;index" json:"post"`
	Post      *Post     `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	ParentID  *uint     `gorm:"index" json:"parent"`
	Parent    *Comment  `gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE" json:"-"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Username of the author, selected alongside the row.
	Username string `gorm:"->;-:migration" json:"user"`
}

// CommentNode is one comment in a post's comment forest together with its replies.
type CommentNode struct {
	*Comment
	ContentHTML string         `json:"content_html,omitempty"`
	Replies     []*CommentNode `json:"replies"`
}

// Count returns the number of nodes in the subtree rooted at n, n included.
func (n *CommentNode) Count() int {
	total := 1
	for _, r := range n.Replies {
		total += r.Count()
	}
	return total
}
