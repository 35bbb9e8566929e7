// internal/profile/models.go
// User profile data structures

package profile

import "time"

// Profile is the full user profile returned by the profile endpoints
type Profile struct {
	ID          int64     `db:"id" json:"id"`
	Email       string    `db:"email" json:"email,omitempty"`
	DisplayName string    `db:"display_name" json:"displayName"`
	Avatar      string    `db:"avatar" json:"avatar"`
	Slug        string    `db:"slug" json:"slug"`
	Bio         string    `db:"bio" json:"bio,omitempty"`
	Role        string    `db:"role" json:"-"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"-"`
}

// Summary is the embedded author shape attached to posts and comments
type Summary struct {
	ID          int64  `db:"id" json:"id"`
	DisplayName string `db:"display_name" json:"displayName"`
	Avatar      string `db:"avatar" json:"avatar"`
	Slug        string `db:"slug" json:"slug"`
}

// UpdateProfileRequest is the PATCH /users/me payload
type UpdateProfileRequest struct {
	DisplayName *string `json:"displayName,omitempty" validate:"omitempty,min=1,max=100"`
	Avatar      *string `json:"avatar,omitempty" validate:"omitempty,url"`
	Bio         *string `json:"bio,omitempty" validate:"omitempty,max=500"`
}
