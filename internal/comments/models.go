// internal/comments/models.go
// Comment data structures and request payloads

package comments

import (
	"time"

	"github.com/beegin-app/beegin-backend/internal/profile"
)

// Comment is a comment on a post. A comment with a parent is a reply
// to another comment on the same post.
type Comment struct {
	ID         int64     `db:"id" json:"id"`
	PostID     int64     `db:"post_id" json:"post"`
	UserID     int64     `db:"user_id" json:"-"`
	ParentID   *int64    `db:"parent_id" json:"parent,omitempty"`
	Content    string    `db:"content" json:"content"`
	NumLikes   int       `db:"num_likes" json:"numLikes"`
	NumReplies int       `db:"num_replies" json:"numReplies"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`

	Author  *profile.Summary `db:"-" json:"user,omitempty"`
	IsLiked bool             `db:"-" json:"isLiked"`
}

// CreateCommentRequest is the POST /posts/{id}/comments payload
type CreateCommentRequest struct {
	Content string `json:"content" validate:"required"`
	Parent  *int64 `json:"parent,omitempty"`
}

// UpdateCommentRequest is the PATCH /comments/{id} payload
type UpdateCommentRequest struct {
	Content *string `json:"content,omitempty"`
}
