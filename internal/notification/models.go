// internal/notification/models.go
// Notification data structures

package notification

import (
	"time"

	"github.com/beegin-app/beegin-backend/internal/profile"
)

// Type identifies what happened
type Type string

const (
	TypeLikePost     Type = "like_post"
	TypeSharePost    Type = "share_post"
	TypeCommentPost  Type = "comment_post"
	TypeReplyComment Type = "reply_comment"
	TypeLikeComment  Type = "like_comment"
)

// Notification is a stored in-app notification for one recipient
type Notification struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"-"`
	ActorID   int64     `db:"actor_id" json:"-"`
	Type      Type      `db:"type" json:"type"`
	PostID    *int64    `db:"post_id" json:"post,omitempty"`
	CommentID *int64    `db:"comment_id" json:"comment,omitempty"`
	IsRead    bool      `db:"is_read" json:"isRead"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`

	Actor *profile.Summary `db:"-" json:"actor,omitempty"`
}
