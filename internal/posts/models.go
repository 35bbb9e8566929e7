// internal/posts/models.go
// Post data structures and request payloads

package posts

import (
	"time"

	"github.com/lib/pq"

	"github.com/beegin-app/beegin-backend/internal/profile"
)

// Post is a feed entry. A post with a non-nil parent is a share of
// that parent. Soft-deleted posts keep their row with IsActive false.
type Post struct {
	ID          int64          `db:"id" json:"id"`
	UserID      int64          `db:"user_id" json:"-"`
	Content     string         `db:"content" json:"content"`
	Images      pq.StringArray `db:"images" json:"images"`
	ParentID    *int64         `db:"parent_id" json:"-"`
	NumLikes    int            `db:"num_likes" json:"numLikes"`
	NumComments int            `db:"num_comments" json:"numComments"`
	NumShares   int            `db:"num_shares" json:"numShares"`
	IsActive    bool           `db:"is_active" json:"isActived"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`

	// Enrichment fields filled by the service layer
	Author  *profile.Summary `db:"-" json:"user,omitempty"`
	Parent  *ParentPost      `db:"-" json:"parent,omitempty"`
	IsLiked bool             `db:"-" json:"isLiked"`
}

// ParentPost is the one-level summary of a shared post. It is returned
// even when the parent has been soft-deleted so clients can render a
// tombstone; IsActive tells them apart.
type ParentPost struct {
	ID        int64            `db:"id" json:"id"`
	UserID    int64            `db:"user_id" json:"-"`
	Content   string           `db:"content" json:"content"`
	Images    pq.StringArray   `db:"images" json:"images"`
	IsActive  bool             `db:"is_active" json:"isActived"`
	CreatedAt time.Time        `db:"created_at" json:"createdAt"`
	Author    *profile.Summary `db:"-" json:"user,omitempty"`
}

// CreatePostRequest is the POST /posts payload. Parent turns the new
// post into a share of an existing post.
type CreatePostRequest struct {
	Content string   `json:"content"`
	Images  []string `json:"images" validate:"omitempty,dive,url"`
	Parent  *int64   `json:"parent,omitempty"`
}

// UpdatePostRequest is the PATCH /posts/{id} payload; nil fields are
// left unchanged.
type UpdatePostRequest struct {
	Content *string   `json:"content,omitempty"`
	Images  *[]string `json:"images,omitempty"`
}
